package indexedtree

// Binary codec for the three persisted record shapes: IndexList,
// TreeMeta, and IndexedLeaf. All three are encoded with msgpack's
// struct-as-map mode, driven by `msgpack:"..."` field tags, so a field
// added to a struct later is simply absent (not misaligned) when an
// older reader decodes a record written before the field existed.

import (
	"github.com/holiman/uint256"
	"github.com/vmihailenco/msgpack/v5"
)

// MarshalMsgpack encodes Fr as its 32-byte big-endian image, so it
// round-trips through msgpack as an opaque binary field rather than
// leaking uint256.Int's internal limb representation.
func (f Fr) MarshalMsgpack() ([]byte, error) {
	b := f.v.Bytes32()
	return msgpack.Marshal(b[:])
}

// UnmarshalMsgpack decodes the 32-byte big-endian image written by
// MarshalMsgpack.
func (f *Fr) UnmarshalMsgpack(data []byte) error {
	var b []byte
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return err
	}
	var v uint256.Int
	v.SetBytes(b)
	f.v = v
	return nil
}

// EncodeIndexList serializes an IndexList to its wire form.
func EncodeIndexList(l IndexList) ([]byte, error) {
	b, err := msgpack.Marshal(l)
	if err != nil {
		return nil, &CodecError{Record: "IndexList", Err: err}
	}
	return b, nil
}

// DecodeIndexList parses the wire form produced by EncodeIndexList.
func DecodeIndexList(b []byte) (IndexList, error) {
	var l IndexList
	if err := msgpack.Unmarshal(b, &l); err != nil {
		return IndexList{}, &CodecError{Record: "IndexList", Err: err}
	}
	return l, nil
}

// EncodeMeta serializes a TreeMeta to its wire form.
func EncodeMeta(m TreeMeta) ([]byte, error) {
	b, err := msgpack.Marshal(m)
	if err != nil {
		return nil, &CodecError{Record: "TreeMeta", Err: err}
	}
	return b, nil
}

// DecodeMeta parses the wire form produced by EncodeMeta.
func DecodeMeta(b []byte) (TreeMeta, error) {
	var m TreeMeta
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return TreeMeta{}, &CodecError{Record: "TreeMeta", Err: err}
	}
	return m, nil
}

// EncodeLeaf serializes an IndexedLeaf to its wire form. The layout is
// stable for a given L across encode/decode.
func EncodeLeaf[L Keyer](leaf IndexedLeaf[L]) ([]byte, error) {
	b, err := msgpack.Marshal(leaf)
	if err != nil {
		return nil, &CodecError{Record: "IndexedLeaf", Err: err}
	}
	return b, nil
}

// DecodeLeaf parses the wire form produced by EncodeLeaf.
func DecodeLeaf[L Keyer](b []byte) (IndexedLeaf[L], error) {
	var leaf IndexedLeaf[L]
	if err := msgpack.Unmarshal(b, &leaf); err != nil {
		return IndexedLeaf[L]{}, &CodecError{Record: "IndexedLeaf", Err: err}
	}
	return leaf, nil
}

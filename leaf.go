package indexedtree

// Keyer is the contract a leaf value type must satisfy to be stored in
// an IndexedLeaf: it must expose its own ordering key.
type Keyer interface {
	Key() Fr
}

// IndexedLeaf is the record stored per leaf index. NextIndex/NextKey
// thread the linked-list-by-key structure that makes this tree support
// non-membership proofs: they point at the leaf whose key is the next
// one up from this leaf's key. The store only encodes, decodes, and
// stores these fields; it never interprets or updates them itself, that
// responsibility belongs to the tree algorithm built on top of the
// store.
type IndexedLeaf[L Keyer] struct {
	Value     L     `msgpack:"value"`
	NextIndex Index `msgpack:"next_index"`
	NextKey   Fr    `msgpack:"next_key"`
}

// Key returns the key of the wrapped leaf value, used to place the leaf
// in the indices overlay.
func (l IndexedLeaf[L]) Key() Fr {
	return l.Value.Key()
}

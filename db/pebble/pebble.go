// Package pebble is a durable Backend implementation for indexedtree.Store
// backed by a cockroachdb/pebble LSM store on disk.
package pebble

import (
	"context"
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"

	indexedtree "github.com/marlinprotocol/indexed-merkle-store"
)

const (
	nodePrefix  = byte('n')
	indexPrefix = byte('i')
	frPrefix    = byte('f')
)

// Backend is a Backend implementation persisted to a pebble database.
// The three key spaces (node, index, Fr) share one pebble instance under
// distinct single-byte prefixes, so GetValueOrPrevious's ordered scan
// over Fr keys never crosses into the other tables.
type Backend struct {
	db  *pebble.DB
	log *logrus.Entry
}

// Open opens (or creates) a pebble database at path.
func Open(path string) (*Backend, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"component": "indexedtree/pebble", "path": path})
	log.Info("opened database")
	return &Backend{db: db, log: log}, nil
}

// Close closes the underlying database.
func (b *Backend) Close() error {
	b.log.Info("closed database")
	return b.db.Close()
}

func nodeKey(level uint32, index indexedtree.Index) []byte {
	k := make([]byte, 0, 13)
	k = append(k, nodePrefix)
	var lvl [4]byte
	binary.BigEndian.PutUint32(lvl[:], level)
	k = append(k, lvl[:]...)
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(index))
	return append(k, idx[:]...)
}

func indexKey(index indexedtree.Index) []byte {
	k := make([]byte, 0, 9)
	k = append(k, indexPrefix)
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(index))
	return append(k, idx[:]...)
}

func frKey(key indexedtree.Fr) []byte {
	b := key.Bytes()
	k := make([]byte, 0, 33)
	k = append(k, frPrefix)
	return append(k, b[:]...)
}

// frKeyUpperBound returns the smallest key strictly greater than frKey(key),
// obtained by treating the encoded key as a big-endian integer and adding
// one. Used to turn "largest entry <= key" into pebble's SeekLT.
func frKeyUpperBound(key indexedtree.Fr) []byte {
	k := frKey(key)
	for i := len(k) - 1; i >= 0; i-- {
		if k[i] < 0xff {
			k[i]++
			return k
		}
		k[i] = 0x00
	}
	return append(k, 0x00)
}

func (b *Backend) NewReadTransaction(_ context.Context) (indexedtree.ReadTransaction, error) {
	return &readTx{snap: b.db.NewSnapshot()}, nil
}

func (b *Backend) NewWriteTransaction(_ context.Context) (indexedtree.WriteTransaction, error) {
	return &writeTx{batch: b.db.NewIndexedBatch()}, nil
}

type readTx struct {
	snap *pebble.Snapshot
}

func (t *readTx) get(key []byte) ([]byte, bool, error) {
	v, closer, err := t.snap.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	closer.Close()
	return out, true, nil
}

func (t *readTx) GetValueByIndex(_ context.Context, key indexedtree.Index) ([]byte, bool, error) {
	return t.get(indexKey(key))
}

func (t *readTx) GetValueByFr(_ context.Context, key indexedtree.Fr) ([]byte, bool, error) {
	return t.get(frKey(key))
}

func (t *readTx) GetValueOrPrevious(_ context.Context, key indexedtree.Fr) (indexedtree.Fr, []byte, bool, error) {
	iter, err := t.snap.NewIter(nil)
	if err != nil {
		return indexedtree.Fr{}, nil, false, err
	}
	defer iter.Close()

	if !iter.SeekLT(frKeyUpperBound(key)) {
		return indexedtree.Fr{}, nil, false, nil
	}
	k := iter.Key()
	if len(k) != 33 || k[0] != frPrefix {
		return indexedtree.Fr{}, nil, false, nil
	}
	matched, err := indexedtree.NewFrFromBytes(k[1:])
	if err != nil {
		return indexedtree.Fr{}, nil, false, err
	}
	v := iter.Value()
	out := make([]byte, len(v))
	copy(out, v)
	return matched, out, true, nil
}

func (t *readTx) GetNode(_ context.Context, level uint32, index indexedtree.Index) ([]byte, bool, error) {
	return t.get(nodeKey(level, index))
}

// ScanLeaves walks the index-keyed table in ascending order by relying
// on indexKey's big-endian encoding sorting the same way the indices
// themselves do.
func (t *readTx) ScanLeaves(_ context.Context, fn func(indexedtree.Index, []byte) (bool, error)) error {
	lower := []byte{indexPrefix}
	upper := []byte{indexPrefix + 1}
	iter, err := t.snap.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return err
	}
	defer iter.Close()

	for valid := iter.First(); valid; valid = iter.Next() {
		k := iter.Key()
		if len(k) != 9 || k[0] != indexPrefix {
			continue
		}
		index := indexedtree.Index(binary.BigEndian.Uint64(k[1:]))
		v := iter.Value()
		data := make([]byte, len(v))
		copy(data, v)
		stop, err := fn(index, data)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return iter.Error()
}

func (t *readTx) Close() {
	_ = t.snap.Close()
}

type writeTx struct {
	batch *pebble.Batch
}

func (t *writeTx) PutValueByIndex(_ context.Context, key indexedtree.Index, data []byte) error {
	return t.batch.Set(indexKey(key), data, nil)
}

func (t *writeTx) PutValueByFr(_ context.Context, key indexedtree.Fr, data []byte) error {
	return t.batch.Set(frKey(key), data, nil)
}

func (t *writeTx) PutNode(_ context.Context, level uint32, index indexedtree.Index, data []byte) error {
	return t.batch.Set(nodeKey(level, index), data, nil)
}

func (t *writeTx) Commit(_ context.Context) error {
	return t.batch.Commit(pebble.Sync)
}

func (t *writeTx) TryAbort() {
	_ = t.batch.Close()
}

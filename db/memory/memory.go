// Package memory is an in-process, non-persistent Backend implementation
// for indexedtree.Store, intended for tests and for callers that do not
// need durability across process restarts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/btree"
	"github.com/holiman/uint256"

	indexedtree "github.com/marlinprotocol/indexed-merkle-store"
)

type frEntry struct {
	key  uint256.Int
	data []byte
}

func lessFrEntry(a, b frEntry) bool {
	return a.key.Lt(&b.key)
}

// Backend is a Backend implementation backed entirely by in-process Go
// maps and an ordered tree. Every write is visible only after Commit;
// reads are served from whatever has already been committed.
type Backend struct {
	mu sync.RWMutex

	nodes   map[uint32]map[indexedtree.Index][]byte
	byIndex map[indexedtree.Index][]byte
	byFr    *btree.BTreeG[frEntry]
}

// New returns an empty Backend.
func New() *Backend {
	return &Backend{
		nodes:   make(map[uint32]map[indexedtree.Index][]byte),
		byIndex: make(map[indexedtree.Index][]byte),
		byFr:    btree.NewG(32, lessFrEntry),
	}
}

func (b *Backend) NewReadTransaction(_ context.Context) (indexedtree.ReadTransaction, error) {
	return &readTx{b: b}, nil
}

func (b *Backend) NewWriteTransaction(_ context.Context) (indexedtree.WriteTransaction, error) {
	return &writeTx{
		b:       b,
		nodes:   make(map[uint32]map[indexedtree.Index][]byte),
		byIndex: make(map[indexedtree.Index][]byte),
		byFr:    make(map[uint256.Int][]byte),
	}, nil
}

type readTx struct {
	b      *Backend
	closed bool
}

func (t *readTx) GetValueByIndex(_ context.Context, key indexedtree.Index) ([]byte, bool, error) {
	t.b.mu.RLock()
	defer t.b.mu.RUnlock()
	v, ok := t.b.byIndex[key]
	return cloneBytes(v), ok, nil
}

func (t *readTx) GetValueByFr(_ context.Context, key indexedtree.Fr) ([]byte, bool, error) {
	t.b.mu.RLock()
	defer t.b.mu.RUnlock()
	k := key.Uint256()
	e, ok := t.b.byFr.Get(frEntry{key: k})
	return cloneBytes(e.data), ok, nil
}

func (t *readTx) GetValueOrPrevious(_ context.Context, key indexedtree.Fr) (indexedtree.Fr, []byte, bool, error) {
	t.b.mu.RLock()
	defer t.b.mu.RUnlock()
	k := key.Uint256()
	var found frEntry
	ok := false
	t.b.byFr.DescendLessOrEqual(frEntry{key: k}, func(e frEntry) bool {
		found = e
		ok = true
		return false
	})
	if !ok {
		return indexedtree.Fr{}, nil, false, nil
	}
	return indexedtree.NewFrFromUint256(found.key), cloneBytes(found.data), true, nil
}

func (t *readTx) GetNode(_ context.Context, level uint32, index indexedtree.Index) ([]byte, bool, error) {
	t.b.mu.RLock()
	defer t.b.mu.RUnlock()
	lvl, ok := t.b.nodes[level]
	if !ok {
		return nil, false, nil
	}
	v, ok := lvl[index]
	return cloneBytes(v), ok, nil
}

func (t *readTx) ScanLeaves(_ context.Context, fn func(indexedtree.Index, []byte) (bool, error)) error {
	t.b.mu.RLock()
	defer t.b.mu.RUnlock()
	keys := make([]indexedtree.Index, 0, len(t.b.byIndex))
	for k := range t.b.byIndex {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		stop, err := fn(k, cloneBytes(t.b.byIndex[k]))
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (t *readTx) Close() {
	if t.closed {
		return
	}
	t.closed = true
}

type writeTx struct {
	b       *Backend
	nodes   map[uint32]map[indexedtree.Index][]byte
	byIndex map[indexedtree.Index][]byte
	byFr    map[uint256.Int][]byte
	done    bool
}

func (t *writeTx) PutValueByIndex(_ context.Context, key indexedtree.Index, data []byte) error {
	t.byIndex[key] = cloneBytes(data)
	return nil
}

func (t *writeTx) PutValueByFr(_ context.Context, key indexedtree.Fr, data []byte) error {
	t.byFr[key.Uint256()] = cloneBytes(data)
	return nil
}

func (t *writeTx) PutNode(_ context.Context, level uint32, index indexedtree.Index, data []byte) error {
	lvl, ok := t.nodes[level]
	if !ok {
		lvl = make(map[indexedtree.Index][]byte)
		t.nodes[level] = lvl
	}
	lvl[index] = cloneBytes(data)
	return nil
}

func (t *writeTx) Commit(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	t.b.mu.Lock()
	defer t.b.mu.Unlock()

	for level, entries := range t.nodes {
		lvl, ok := t.b.nodes[level]
		if !ok {
			lvl = make(map[indexedtree.Index][]byte)
			t.b.nodes[level] = lvl
		}
		for index, data := range entries {
			lvl[index] = data
		}
	}
	for index, data := range t.byIndex {
		t.b.byIndex[index] = data
	}
	for key, data := range t.byFr {
		t.b.byFr.ReplaceOrInsert(frEntry{key: key, data: data})
	}
	return nil
}

func (t *writeTx) TryAbort() {
	t.done = true
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Package indexedtree implements a cached, transactional node store for
// an indexed Merkle tree. It sits between in-memory tree operations and
// a durable key-value backend (the Backend interface), overlaying
// uncommitted mutations on top of the backend's committed snapshot and
// providing the low-value lookup an indexed Merkle tree needs to build
// non-membership proofs.
//
// The tree-walking algorithm itself, proof generation, and hashing are
// not part of this package; they are external collaborators that
// consume Store the way a caller consumes any key-value store.
package indexedtree

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Store is the cached, transactional node store for a single named tree
// of fixed depth. A Store is single-writer, single-threaded per
// instance; concurrent readers are safe only when each uses its own
// read transaction with includeUncommitted=false.
type Store[L Keyer] struct {
	name    string
	depth   uint32
	backend Backend
	log     *logrus.Entry

	writable bool

	nodes   []map[Index][]byte
	indices *indicesOverlay
	leaves  map[Index]IndexedLeaf[L]
	meta    TreeMeta
}

// NewStore loads or initializes a store named name with depth levels
// over backend. If the backend already has a persisted TreeMeta, its
// name and depth must match or construction fails with
// *MetaMismatchError.
func NewStore[L Keyer](ctx context.Context, name string, depth uint32, backend Backend) (*Store[L], error) {
	s := &Store[L]{
		name:     name,
		depth:    depth,
		backend:  backend,
		log:      logrus.WithFields(logrus.Fields{"component": "indexedtree", "tree": name}),
		writable: true,
	}
	s.resetOverlays()
	if err := s.initialise(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store[L]) resetOverlays() {
	s.nodes = make([]map[Index][]byte, s.depth+1)
	for i := range s.nodes {
		s.nodes[i] = make(map[Index][]byte)
	}
	s.indices = newIndicesOverlay()
	s.leaves = make(map[Index]IndexedLeaf[L])
}

// initialise adopts persisted meta if present and matching, or persists
// a fresh meta record if the backend has none yet.
func (s *Store[L]) initialise(ctx context.Context) error {
	rtx, err := s.backend.NewReadTransaction(ctx)
	if err != nil {
		return err
	}
	m, found, err := s.readPersistedMeta(ctx, rtx)
	rtx.Close()
	if err != nil {
		return err
	}
	if found {
		if m.Name != s.name || m.Depth != s.depth {
			return &MetaMismatchError{WantName: s.name, WantDepth: s.depth, GotName: m.Name, GotDepth: m.Depth}
		}
		s.meta = m
		return nil
	}

	s.meta = TreeMeta{Name: s.name, Depth: s.depth, Size: 0, Root: FrZero}
	wtx, err := s.backend.NewWriteTransaction(ctx)
	if err != nil {
		return err
	}
	if err := s.persistMeta(ctx, wtx, s.meta); err != nil {
		wtx.TryAbort()
		return err
	}
	if err := wtx.Commit(ctx); err != nil {
		wtx.TryAbort()
		return err
	}
	s.log.Debug("initialised fresh tree meta")
	return nil
}

func (s *Store[L]) readPersistedMeta(ctx context.Context, tx ReadTransaction) (TreeMeta, bool, error) {
	data, found, err := tx.GetNode(ctx, 0, 0)
	if err != nil {
		return TreeMeta{}, false, err
	}
	if !found {
		return TreeMeta{}, false, nil
	}
	m, err := DecodeMeta(data)
	if err != nil {
		return TreeMeta{}, false, err
	}
	return m, true, nil
}

func (s *Store[L]) persistMeta(ctx context.Context, tx WriteTransaction, m TreeMeta) error {
	data, err := EncodeMeta(m)
	if err != nil {
		return err
	}
	return tx.PutNode(ctx, 0, 0, data)
}

// CreateReadTransaction opens a fresh read transaction on the backend.
func (s *Store[L]) CreateReadTransaction(ctx context.Context) (ReadTransaction, error) {
	return s.backend.NewReadTransaction(ctx)
}

// --- Mutators: overlay-only, no backend I/O until Commit ---

// SetAtIndex sets leaves[index] := leaf, and if addToIndex, appends index
// to the indices overlay at leaf's key.
func (s *Store[L]) SetAtIndex(index Index, leaf IndexedLeaf[L], addToIndex bool) error {
	if !s.writable {
		return ErrNotWritable
	}
	s.leaves[index] = leaf
	if addToIndex {
		s.indices.Append(leaf.Key().Uint256(), index)
	}
	return nil
}

// UpdateIndex appends index to the indices overlay at leafKey.
func (s *Store[L]) UpdateIndex(index Index, leafKey Fr) error {
	if !s.writable {
		return ErrNotWritable
	}
	s.indices.Append(leafKey.Uint256(), index)
	return nil
}

// PutNode sets nodes[level][index] := data. Level 0 is reserved for
// TreeMeta: Commit flushes levels 1..depth only, so data put at level 0
// is never written to the backend.
func (s *Store[L]) PutNode(level uint32, index Index, data []byte) error {
	if !s.writable {
		return ErrNotWritable
	}
	if level > s.depth {
		return fmt.Errorf("indexedtree: level %d exceeds depth %d", level, s.depth)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.nodes[level][index] = cp
	return nil
}

// PutMeta updates the in-memory meta's size and root. Name and depth
// stay immutable once a store has been constructed.
func (s *Store[L]) PutMeta(size Index, root Fr) error {
	if !s.writable {
		return ErrNotWritable
	}
	s.meta.Size = size
	s.meta.Root = root
	return nil
}

// --- Queries ---

// GetLeaf returns the leaf at index, preferring the overlay when
// includeUncommitted is set.
func (s *Store[L]) GetLeaf(ctx context.Context, index Index, tx ReadTransaction, includeUncommitted bool) (IndexedLeaf[L], bool, error) {
	if includeUncommitted {
		if leaf, ok := s.leaves[index]; ok {
			return leaf, true, nil
		}
	}
	data, found, err := tx.GetValueByIndex(ctx, index)
	if err != nil || !found {
		return IndexedLeaf[L]{}, false, err
	}
	leaf, err := DecodeLeaf[L](data)
	if err != nil {
		return IndexedLeaf[L]{}, false, err
	}
	return leaf, true, nil
}

// GetNode returns the bytes at (level, index), preferring the overlay
// when includeUncommitted is set.
func (s *Store[L]) GetNode(ctx context.Context, level uint32, index Index, tx ReadTransaction, includeUncommitted bool) ([]byte, bool, error) {
	if includeUncommitted {
		if data, ok := s.nodes[level][index]; ok {
			out := make([]byte, len(data))
			copy(out, data)
			return out, true, nil
		}
	}
	return tx.GetNode(ctx, level, index)
}

// GetMeta returns the size and root of the tree.
func (s *Store[L]) GetMeta(ctx context.Context, tx ReadTransaction, includeUncommitted bool) (Index, Fr, error) {
	m, err := s.GetFullMeta(ctx, tx, includeUncommitted)
	if err != nil {
		return 0, Fr{}, err
	}
	return m.Size, m.Root, nil
}

// GetFullMeta returns the complete TreeMeta, including name and depth.
func (s *Store[L]) GetFullMeta(ctx context.Context, tx ReadTransaction, includeUncommitted bool) (TreeMeta, error) {
	if includeUncommitted {
		return s.meta, nil
	}
	m, found, err := s.readPersistedMeta(ctx, tx)
	if err != nil {
		return TreeMeta{}, err
	}
	if !found {
		return TreeMeta{}, ErrNotFound
	}
	return m, nil
}

// FindLeafIndex is FindLeafIndexFrom with start_index=0.
func (s *Store[L]) FindLeafIndex(ctx context.Context, leaf L, tx ReadTransaction, includeUncommitted bool) (Index, bool, error) {
	return s.FindLeafIndexFrom(ctx, leaf, 0, tx, includeUncommitted)
}

// FindLeafIndexFrom returns the smallest index >= startIndex among the
// union of the backend's committed IndexList at leaf's key (exact match
// only) and, if includeUncommitted, the overlay's list at the same key.
func (s *Store[L]) FindLeafIndexFrom(ctx context.Context, leaf L, startIndex Index, tx ReadTransaction, includeUncommitted bool) (Index, bool, error) {
	key := leaf.Key()
	var result Index
	haveResult := false

	consider := func(list IndexList) {
		for _, ind := range list.Indices {
			if ind < startIndex {
				continue
			}
			if !haveResult || ind < result {
				result = ind
				haveResult = true
			}
		}
	}

	data, found, err := tx.GetValueByFr(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if found {
		list, err := DecodeIndexList(data)
		if err != nil {
			return 0, false, err
		}
		consider(list)
	}

	if includeUncommitted {
		if list, ok := s.indices.Get(key.Uint256()); ok {
			consider(list)
		}
	}

	return result, haveResult, nil
}

// FindLowValue locates the entry whose key is the largest not exceeding
// newKey, across the union of committed and (if includeUncommitted)
// overlay state. It is the core lookup an indexed Merkle tree uses to
// find the "low leaf" a new key must be inserted next to: the leaf
// whose key is immediately below the new one in sorted order.
//
// It returns whether newKey itself is already present (exact match) and
// the index of the matched entry's earliest-recorded leaf.
func (s *Store[L]) FindLowValue(ctx context.Context, newKey Fr, includeUncommitted bool, tx ReadTransaction) (bool, Index, error) {
	v := newKey.Uint256()

	dbKeyFr, data, found, err := tx.GetValueOrPrevious(ctx, newKey)
	if err != nil {
		return false, 0, err
	}
	if !found {
		return false, 0, ErrNotFound
	}
	committed, err := DecodeIndexList(data)
	if err != nil {
		return false, 0, err
	}
	dbIndex := committed.First()
	dbKey := dbKeyFr.Uint256()

	if !includeUncommitted || dbKey.Eq(&v) || s.indices.Len() == 0 {
		return dbKey.Eq(&v), dbIndex, nil
	}

	entry, ok := s.indices.LowerBound(v)
	if !ok {
		// Every overlay key is below v: compare the largest overlay key
		// against the committed match and prefer whichever is closer to
		// v from below.
		maxEntry, _ := s.indices.Max()
		if maxEntry.key.Gt(&dbKey) {
			return false, maxEntry.list.First(), nil
		}
		return false, dbIndex, nil
	}

	if entry.key.Eq(&v) {
		return true, entry.list.First(), nil
	}

	// entry.key is above v: fall back to the overlay's predecessor of v.
	pred, ok := s.indices.Predecessor(v)
	if !ok {
		return false, dbIndex, nil
	}
	if pred.key.Gt(&dbKey) {
		return false, pred.list.First(), nil
	}
	return false, dbIndex, nil
}

// --- Commit / Rollback ---

// Commit atomically flushes every overlay into the backend: nodes
// (levels 1..depth), then indices (merged with the previously committed
// list per key), then leaves, then meta. On any failure the write
// transaction is aborted and overlays are left untouched so the caller
// may retry or Rollback. On success, overlays are cleared and meta is
// reloaded, equivalent to calling Rollback.
func (s *Store[L]) Commit(ctx context.Context) error {
	if !s.writable {
		return ErrNotWritable
	}

	// Merge phase: prepend each key's previously committed IndexList
	// ahead of the overlay's newly appended entries, so First() always
	// names the earliest index ever recorded for that key. The pre-merge
	// overlay is kept so a failed commit can restore it.
	pending := s.indices.tree.Clone()
	rtx, err := s.backend.NewReadTransaction(ctx)
	if err != nil {
		return err
	}
	mergeErr := s.mergeCommittedIndices(ctx, rtx)
	rtx.Close()
	if mergeErr != nil {
		s.indices.tree = pending
		return mergeErr
	}

	wtx, err := s.backend.NewWriteTransaction(ctx)
	if err != nil {
		s.indices.tree = pending
		return err
	}
	if err := s.flush(ctx, wtx); err != nil {
		wtx.TryAbort()
		s.indices.tree = pending
		return err
	}
	if err := wtx.Commit(ctx); err != nil {
		wtx.TryAbort()
		s.indices.tree = pending
		return err
	}

	s.log.WithFields(logrus.Fields{
		"nodes":   s.countNodes(),
		"indices": s.indices.Len(),
		"leaves":  len(s.leaves),
	}).Debug("committed tree store overlays")

	return s.Rollback(ctx)
}

func (s *Store[L]) mergeCommittedIndices(ctx context.Context, tx ReadTransaction) error {
	var mergeErr error
	s.indices.Each(func(e indexEntry) {
		if mergeErr != nil {
			return
		}
		key := NewFrFromUint256(e.key)
		data, found, err := tx.GetValueByFr(ctx, key)
		if err != nil {
			mergeErr = err
			return
		}
		if !found {
			return
		}
		committed, err := DecodeIndexList(data)
		if err != nil {
			mergeErr = err
			return
		}
		s.indices.Set(e.key, e.list.Prepend(committed))
	})
	return mergeErr
}

func (s *Store[L]) flush(ctx context.Context, tx WriteTransaction) error {
	for level := uint32(1); level <= s.depth; level++ {
		for index, data := range s.nodes[level] {
			if err := tx.PutNode(ctx, level, index, data); err != nil {
				return err
			}
		}
	}

	var putErr error
	s.indices.Each(func(e indexEntry) {
		if putErr != nil {
			return
		}
		data, err := EncodeIndexList(e.list)
		if err != nil {
			putErr = err
			return
		}
		putErr = tx.PutValueByFr(ctx, NewFrFromUint256(e.key), data)
	})
	if putErr != nil {
		return putErr
	}

	for index, leaf := range s.leaves {
		data, err := EncodeLeaf(leaf)
		if err != nil {
			return err
		}
		if err := tx.PutValueByIndex(ctx, index, data); err != nil {
			return err
		}
	}

	return s.persistMeta(ctx, tx, s.meta)
}

func (s *Store[L]) countNodes() int {
	n := 0
	for _, level := range s.nodes {
		n += len(level)
	}
	return n
}

// Rollback discards every overlay and reloads meta from the backend. A
// backend with no persisted meta leaves the in-memory meta untouched,
// preserving whatever meta was already in memory. Calling Rollback
// twice in a row is equivalent to calling it once.
func (s *Store[L]) Rollback(ctx context.Context) error {
	s.resetOverlays()

	rtx, err := s.backend.NewReadTransaction(ctx)
	if err != nil {
		return err
	}
	defer rtx.Close()

	m, found, err := s.readPersistedMeta(ctx, rtx)
	if err != nil {
		return err
	}
	if found {
		s.meta = m
	}
	return nil
}

package indexedtree

import "context"

// ReadOnlyHandle exposes only the query surface of a Store, with
// includeUncommitted forced to false on every call. It has no mutator
// methods at all, so misuse is a compile error rather than a runtime
// failure. Use it for collaborators that must only ever observe
// committed state, such as a snapshot handed to a prover.
type ReadOnlyHandle[L Keyer] struct {
	store *Store[L]
}

// ReadOnly returns a handle onto s restricted to committed-only queries.
func (s *Store[L]) ReadOnly() *ReadOnlyHandle[L] {
	return &ReadOnlyHandle[L]{store: s}
}

func (h *ReadOnlyHandle[L]) GetLeaf(ctx context.Context, index Index, tx ReadTransaction) (IndexedLeaf[L], bool, error) {
	return h.store.GetLeaf(ctx, index, tx, false)
}

func (h *ReadOnlyHandle[L]) GetNode(ctx context.Context, level uint32, index Index, tx ReadTransaction) ([]byte, bool, error) {
	return h.store.GetNode(ctx, level, index, tx, false)
}

func (h *ReadOnlyHandle[L]) GetMeta(ctx context.Context, tx ReadTransaction) (Index, Fr, error) {
	return h.store.GetMeta(ctx, tx, false)
}

func (h *ReadOnlyHandle[L]) GetFullMeta(ctx context.Context, tx ReadTransaction) (TreeMeta, error) {
	return h.store.GetFullMeta(ctx, tx, false)
}

func (h *ReadOnlyHandle[L]) FindLeafIndex(ctx context.Context, leaf L, tx ReadTransaction) (Index, bool, error) {
	return h.store.FindLeafIndex(ctx, leaf, tx, false)
}

func (h *ReadOnlyHandle[L]) FindLeafIndexFrom(ctx context.Context, leaf L, startIndex Index, tx ReadTransaction) (Index, bool, error) {
	return h.store.FindLeafIndexFrom(ctx, leaf, startIndex, tx, false)
}

func (h *ReadOnlyHandle[L]) FindLowValue(ctx context.Context, newKey Fr, tx ReadTransaction) (bool, Index, error) {
	return h.store.FindLowValue(ctx, newKey, false, tx)
}

// CreateReadTransaction opens a fresh read transaction on the backend.
func (h *ReadOnlyHandle[L]) CreateReadTransaction(ctx context.Context) (ReadTransaction, error) {
	return h.store.CreateReadTransaction(ctx)
}

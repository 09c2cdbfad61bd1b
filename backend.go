package indexedtree

import "context"

// Backend is the external, persisted key-value collaborator the store
// sits on top of. Durability across process crashes, and safety of
// concurrent transaction creation, are the backend's responsibility, not
// the store's.
//
// Transactions are single-use and created per call; the store never
// nests them.
type Backend interface {
	NewReadTransaction(ctx context.Context) (ReadTransaction, error)
	NewWriteTransaction(ctx context.Context) (WriteTransaction, error)
}

// ReadTransaction is a single-use, read-only view of the backend.
type ReadTransaction interface {
	// GetValueByIndex returns the bytes stored under the integer-keyed
	// table at key, and false if absent. Holds encoded IndexedLeaf
	// records.
	GetValueByIndex(ctx context.Context, key Index) ([]byte, bool, error)

	// GetValueByFr returns the bytes stored under the Fr-keyed table at
	// an exact match of key, and false if absent. Holds encoded
	// IndexList records. Used for exact-match lookups; contrast with
	// GetValueOrPrevious below, used for the low-value search.
	GetValueByFr(ctx context.Context, key Fr) ([]byte, bool, error)

	// GetValueOrPrevious returns the record stored at the largest
	// Fr-keyed entry <= key, along with the Fr it was actually stored
	// at, and false if no such entry exists. Holds encoded IndexList
	// records. The returned key lets the caller compare it against an
	// in-memory predecessor before deciding which candidate wins.
	GetValueOrPrevious(ctx context.Context, key Fr) (matchedKey Fr, data []byte, found bool, err error)

	// GetNode returns the bytes stored at (level, index) in the node
	// table, and false if absent. (level=0, index=0) is reserved for
	// the encoded TreeMeta.
	GetNode(ctx context.Context, level uint32, index Index) ([]byte, bool, error)

	// ScanLeaves iterates every committed entry of the integer-keyed
	// table in ascending Index order, invoking fn for each. Iteration
	// stops as soon as fn returns stop=true or a non-nil error. Used by
	// DumpLeaves, which otherwise has no way to enumerate indices
	// without guessing bounds.
	ScanLeaves(ctx context.Context, fn func(index Index, data []byte) (stop bool, err error)) error

	// Close releases the transaction's resources without committing
	// anything (read transactions never write).
	Close()
}

// WriteTransaction is a single-use, atomic write view of the backend.
type WriteTransaction interface {
	// PutValueByIndex overwrites the integer-keyed table entry at key.
	PutValueByIndex(ctx context.Context, key Index, data []byte) error

	// PutValueByFr overwrites the Fr-keyed table entry at key. The two
	// key spaces (Index and Fr) must never alias; implementations keep
	// them in separate tables or behind a typed key prefix.
	PutValueByFr(ctx context.Context, key Fr, data []byte) error

	// PutNode overwrites the node table entry at (level, index).
	PutNode(ctx context.Context, level uint32, index Index, data []byte) error

	// Commit makes every write in this transaction visible together, or
	// none at all.
	Commit(ctx context.Context) error

	// TryAbort is a best-effort abort used on error paths; it never
	// itself returns an error the caller must handle.
	TryAbort()
}

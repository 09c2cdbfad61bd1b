package indexedtree

// Index names a leaf position in the tree.
type Index uint64

// IndexList is a non-empty ordered sequence of indices that all map to
// leaves sharing the same key. Construction helpers enforce the
// non-empty invariant; the zero value is not a valid IndexList.
type IndexList struct {
	Indices []Index `msgpack:"indices"`
}

// NewIndexList builds an IndexList from at least one index.
func NewIndexList(first Index, rest ...Index) IndexList {
	l := IndexList{Indices: make([]Index, 0, 1+len(rest))}
	l.Indices = append(l.Indices, first)
	l.Indices = append(l.Indices, rest...)
	return l
}

// First returns the earliest index in the list. Commit prepends
// previously committed indices ahead of newly appended ones, so First
// always names the first index ever recorded for this key.
func (l IndexList) First() Index {
	return l.Indices[0]
}

// Append returns a new IndexList with index appended, preserving insertion
// order.
func (l IndexList) Append(index Index) IndexList {
	out := IndexList{Indices: make([]Index, len(l.Indices), len(l.Indices)+1)}
	copy(out.Indices, l.Indices)
	out.Indices = append(out.Indices, index)
	return out
}

// Prepend returns a new IndexList with committed in front of l's entries.
func (l IndexList) Prepend(committed IndexList) IndexList {
	out := IndexList{Indices: make([]Index, 0, len(committed.Indices)+len(l.Indices))}
	out.Indices = append(out.Indices, committed.Indices...)
	out.Indices = append(out.Indices, l.Indices...)
	return out
}

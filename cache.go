package indexedtree

import (
	"github.com/google/btree"
	"github.com/holiman/uint256"
)

// indexEntry is one entry of the indices overlay: a uint256(key) paired
// with the IndexList accumulated for it. google/btree gives the ordered
// iteration and lower-bound scan the low-value search needs.
type indexEntry struct {
	key  uint256.Int
	list IndexList
}

func lessIndexEntry(a, b indexEntry) bool {
	return a.key.Lt(&b.key)
}

// indicesOverlay is the ordered key(uint256) -> IndexList overlay.
type indicesOverlay struct {
	tree *btree.BTreeG[indexEntry]
}

func newIndicesOverlay() *indicesOverlay {
	return &indicesOverlay{tree: btree.NewG(32, lessIndexEntry)}
}

func (o *indicesOverlay) Len() int {
	if o.tree == nil {
		return 0
	}
	return o.tree.Len()
}

func (o *indicesOverlay) Get(key uint256.Int) (IndexList, bool) {
	if o.tree == nil {
		return IndexList{}, false
	}
	e, ok := o.tree.Get(indexEntry{key: key})
	return e.list, ok
}

// Append appends index to the list stored at key, creating the list if
// absent.
func (o *indicesOverlay) Append(key uint256.Int, index Index) {
	existing, ok := o.tree.Get(indexEntry{key: key})
	if !ok {
		o.tree.ReplaceOrInsert(indexEntry{key: key, list: NewIndexList(index)})
		return
	}
	o.tree.ReplaceOrInsert(indexEntry{key: key, list: existing.list.Append(index)})
}

// Set overwrites (or inserts) the list stored at key, used by commit's
// merge phase to write back the prepended list in place.
func (o *indicesOverlay) Set(key uint256.Int, list IndexList) {
	o.tree.ReplaceOrInsert(indexEntry{key: key, list: list})
}

// LowerBound returns the smallest entry with key >= target.
func (o *indicesOverlay) LowerBound(target uint256.Int) (indexEntry, bool) {
	var found indexEntry
	ok := false
	o.tree.AscendGreaterOrEqual(indexEntry{key: target}, func(e indexEntry) bool {
		found = e
		ok = true
		return false
	})
	return found, ok
}

// Predecessor returns the largest entry with key < target.
func (o *indicesOverlay) Predecessor(target uint256.Int) (indexEntry, bool) {
	var found indexEntry
	ok := false
	o.tree.DescendLessOrEqual(indexEntry{key: target}, func(e indexEntry) bool {
		if e.key.Lt(&target) {
			found = e
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// Max returns the largest entry in the overlay.
func (o *indicesOverlay) Max() (indexEntry, bool) {
	var found indexEntry
	ok := false
	o.tree.Descend(func(e indexEntry) bool {
		found = e
		ok = true
		return false
	})
	return found, ok
}

// Each visits every entry in ascending key order, used by commit to
// flush the overlay.
func (o *indicesOverlay) Each(f func(indexEntry)) {
	if o.tree == nil {
		return
	}
	o.tree.Ascend(func(e indexEntry) bool {
		f(e)
		return true
	})
}

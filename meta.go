package indexedtree

// TreeMeta is the persistent descriptor of a tree: its name, depth, the
// number of leaves committed so far, and the current root. It is
// persisted under the reserved node address (level=0, index=0) of the
// backend's node table.
type TreeMeta struct {
	Name  string `msgpack:"name"`
	Depth uint32 `msgpack:"depth"`
	Size  Index  `msgpack:"size"`
	Root  Fr     `msgpack:"root"`
}

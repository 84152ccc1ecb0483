// internal/tree/forest.go
package tree

// Forest is a growing sequence of root nodes with an index of every node
// by path, so each path maps to at most one node.
type Forest struct {
	roots  []Node
	byPath map[string]Node
}

func NewForest() *Forest {
	return &Forest{byPath: make(map[string]Node)}
}

// Nodes returns the root-level sequence.
func (f *Forest) Nodes() []Node {
	return f.roots
}

// Len returns the number of distinct nodes at every depth.
func (f *Forest) Len() int {
	return len(f.byPath)
}

// Lookup finds the node stored for path.
func (f *Forest) Lookup(path string) (Node, bool) {
	n, ok := f.byPath[path]
	return n, ok
}

// Insert upserts a classified path. Existing nodes are reused as-is; a
// file that has to hold children is promoted to a directory in place.
func (f *Forest) Insert(segs []Segment) {
	siblings := &f.roots
	for i, seg := range segs {
		last := i == len(segs)-1

		existing, ok := f.byPath[seg.Path]
		if !ok {
			n := newNode(seg)
			*siblings = append(*siblings, n)
			f.byPath[seg.Path] = n
			existing = n
		}
		if last {
			return
		}

		dir, isDir := existing.(*Dir)
		if !isDir {
			dir = &Dir{Name: existing.NodeName(), Path: existing.NodePath()}
			replace(*siblings, existing, dir)
			f.byPath[seg.Path] = dir
		}
		siblings = &dir.Children
	}
}

func newNode(seg Segment) Node {
	if seg.Kind == KindFile {
		return &File{Name: seg.Name, Path: seg.Path, Status: seg.Status}
	}
	return &Dir{Name: seg.Name, Path: seg.Path}
}

func replace(nodes []Node, old, repl Node) {
	for i, n := range nodes {
		if n == old {
			nodes[i] = repl
			return
		}
	}
}

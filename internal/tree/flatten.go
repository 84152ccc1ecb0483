// internal/tree/flatten.go
package tree

// Row is one visible line of a rendered forest.
type Row struct {
	Node  Node
	Depth int
}

// Flatten returns visible rows in display order. Children of directories
// whose path is in collapsed are omitted.
func Flatten(nodes []Node, collapsed map[string]bool) []Row {
	var rows []Row
	var walk func(nodes []Node, depth int)
	walk = func(nodes []Node, depth int) {
		for _, n := range nodes {
			rows = append(rows, Row{Node: n, Depth: depth})
			d, ok := n.(*Dir)
			if !ok || collapsed[d.Path] {
				continue
			}
			walk(d.Children, depth+1)
		}
	}
	walk(nodes, 0)
	return rows
}

// Files collects the paths of every file at or below n. Checking a
// directory in the view selects exactly these.
func Files(n Node) []string {
	switch v := n.(type) {
	case *File:
		return []string{v.Path}
	case *Dir:
		var paths []string
		for _, c := range v.Children {
			paths = append(paths, Files(c)...)
		}
		return paths
	}
	return nil
}

// Select resolves checked node keys of a forest into file paths,
// deduplicated and in display order.
func Select(nodes []Node, checked map[string]bool) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, row := range Flatten(nodes, nil) {
		if !checked[row.Node.Key()] {
			continue
		}
		for _, p := range Files(row.Node) {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// internal/tree/aggregate.go
package tree

import (
	"cmp"
	"slices"
)

// Aggregate fills FileNum on every directory below nodes, sorts each level
// and returns the number of files in the whole forest.
func Aggregate(nodes []Node) int {
	total := 0
	for _, n := range nodes {
		total += aggregate(n)
	}
	SortNodes(nodes)
	return total
}

func aggregate(n Node) int {
	d, ok := n.(*Dir)
	if !ok {
		return 1
	}
	if d.Children == nil {
		d.Children = []Node{}
	}
	d.FileNum = Aggregate(d.Children)
	return d.FileNum
}

// SortNodes orders siblings directories first, then by name.
func SortNodes(nodes []Node) {
	slices.SortStableFunc(nodes, func(a, b Node) int {
		if c := cmp.Compare(kindRank(a), kindRank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.NodeName(), b.NodeName())
	})
}

func kindRank(n Node) int {
	if n.Kind() == KindDir {
		return 0
	}
	return 1
}

// Package render prints status forests for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"committer/internal/tree"

	"github.com/fatih/color"
)

type Options struct {
	// Collapsed directory paths are printed without their children.
	Collapsed map[string]bool
	Indent    string
}

var (
	added     = color.New(color.FgGreen).SprintFunc()
	modified  = color.New(color.FgYellow).SprintFunc()
	deleted   = color.New(color.FgRed).SprintFunc()
	untracked = color.New(color.FgBlue).SprintFunc()
	dirName   = color.New(color.Bold).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
)

// Letter is the one-character status marker used in listings.
func Letter(s tree.Status) string {
	switch s {
	case tree.StatusAdded:
		return added("A")
	case tree.StatusModified:
		return modified("M")
	case tree.StatusDeleted:
		return deleted("D")
	case tree.StatusUntracked:
		return untracked("?")
	}
	return " "
}

// Tree writes both forests of group. A clean group prints a single line.
func Tree(w io.Writer, group tree.FileGroup, opts Options) error {
	if opts.Indent == "" {
		opts.Indent = "  "
	}

	changed, untrackedCount := count(group.Changed), count(group.Untracked)
	if changed == 0 && untrackedCount == 0 {
		_, err := fmt.Fprintln(w, "No changes (working tree clean)")
		return err
	}

	if changed > 0 {
		if _, err := fmt.Fprintf(w, "Changes (%d):\n", changed); err != nil {
			return err
		}
		if err := forest(w, group.Changed, opts); err != nil {
			return err
		}
	}
	if untrackedCount > 0 {
		if changed > 0 {
			fmt.Fprintln(w)
		}
		if _, err := fmt.Fprintf(w, "Untracked (%d):\n", untrackedCount); err != nil {
			return err
		}
		if err := forest(w, group.Untracked, opts); err != nil {
			return err
		}
	}
	return nil
}

func forest(w io.Writer, nodes []tree.Node, opts Options) error {
	for _, row := range tree.Flatten(nodes, opts.Collapsed) {
		pad := strings.Repeat(opts.Indent, row.Depth+1)
		var line string
		switch n := row.Node.(type) {
		case *tree.Dir:
			marker := "▾"
			if opts.Collapsed[n.Path] {
				marker = "▸"
			}
			line = fmt.Sprintf("%s%s %s/ %s", pad, marker, dirName(n.Name), faint(fmt.Sprintf("(%d)", n.FileNum)))
		case *tree.File:
			line = fmt.Sprintf("%s%s %s", pad, Letter(n.Status), n.Name)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func count(nodes []tree.Node) int {
	total := 0
	for _, n := range nodes {
		switch v := n.(type) {
		case *tree.Dir:
			total += v.FileNum
		case *tree.File:
			total++
		}
	}
	return total
}

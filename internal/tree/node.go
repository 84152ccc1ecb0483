// internal/tree/node.go
package tree

import (
	"encoding/json"
	"fmt"
)

// Status is the pending-change state carried by a file node
type Status string

const (
	StatusUntracked Status = "untracked"
	StatusAdded     Status = "added"
	StatusModified  Status = "modified"
	StatusDeleted   Status = "deleted"
)

// Valid reports whether s is one of the four known states.
func (s Status) Valid() bool {
	switch s {
	case StatusUntracked, StatusAdded, StatusModified, StatusDeleted:
		return true
	}
	return false
}

// Kind discriminates the two node variants
type Kind string

const (
	KindDir  Kind = "dir"
	KindFile Kind = "file"
)

// Node is a directory or file entry of a status forest. The set of
// implementations is closed: *Dir and *File.
type Node interface {
	Key() string
	NodeName() string
	NodePath() string
	Kind() Kind
	node()
}

// Dir is a directory node. Children is never nil after aggregation.
type Dir struct {
	Name     string
	Path     string
	Children []Node
	FileNum  int
}

// File is a leaf carrying the change status.
type File struct {
	Name   string
	Path   string
	Status Status
}

func (d *Dir) Key() string      { return d.Path }
func (d *Dir) NodeName() string { return d.Name }
func (d *Dir) NodePath() string { return d.Path }
func (d *Dir) Kind() Kind       { return KindDir }
func (*Dir) node()              {}

func (f *File) Key() string      { return f.Path }
func (f *File) NodeName() string { return f.Name }
func (f *File) NodePath() string { return f.Path }
func (f *File) Kind() Kind       { return KindFile }
func (*File) node()              {}

// FileGroup holds the two independent forests handed to the presentation layer
type FileGroup struct {
	Changed   []Node `json:"changed"`
	Untracked []Node `json:"untracked"`
}

// wireNode is the JSON shape consumed by the tree view.
type wireNode struct {
	Key      string      `json:"key"`
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Type     Kind        `json:"type"`
	Status   Status      `json:"status,omitempty"`
	Children []*wireNode `json:"children,omitempty"`
	FileNum  *int        `json:"fileNum,omitempty"`
}

func (d *Dir) MarshalJSON() ([]byte, error) { return json.Marshal(toWire(d)) }

func (f *File) MarshalJSON() ([]byte, error) { return json.Marshal(toWire(f)) }

func toWire(n Node) *wireNode {
	w := &wireNode{Key: n.Key(), Name: n.NodeName(), Path: n.NodePath(), Type: n.Kind()}
	switch v := n.(type) {
	case *File:
		w.Status = v.Status
	case *Dir:
		num := v.FileNum
		w.FileNum = &num
		w.Children = make([]*wireNode, 0, len(v.Children))
		for _, c := range v.Children {
			w.Children = append(w.Children, toWire(c))
		}
	}
	return w
}

// UnmarshalJSON decodes both forests, restoring the Dir/File variants
// from the "type" discriminant.
func (g *FileGroup) UnmarshalJSON(data []byte) error {
	var raw struct {
		Changed   []*wireNode `json:"changed"`
		Untracked []*wireNode `json:"untracked"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	changed, err := fromWireList(raw.Changed)
	if err != nil {
		return fmt.Errorf("decoding changed: %w", err)
	}
	untracked, err := fromWireList(raw.Untracked)
	if err != nil {
		return fmt.Errorf("decoding untracked: %w", err)
	}

	g.Changed, g.Untracked = changed, untracked
	return nil
}

func fromWireList(list []*wireNode) ([]Node, error) {
	nodes := make([]Node, 0, len(list))
	for _, w := range list {
		n, err := fromWire(w)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func fromWire(w *wireNode) (Node, error) {
	switch w.Type {
	case KindFile:
		if !w.Status.Valid() {
			return nil, fmt.Errorf("file %q: invalid status %q", w.Path, w.Status)
		}
		return &File{Name: w.Name, Path: w.Path, Status: w.Status}, nil
	case KindDir:
		children, err := fromWireList(w.Children)
		if err != nil {
			return nil, err
		}
		d := &Dir{Name: w.Name, Path: w.Path, Children: children}
		if w.FileNum != nil {
			d.FileNum = *w.FileNum
		}
		return d, nil
	default:
		return nil, fmt.Errorf("node %q: unknown type %q", w.Path, w.Type)
	}
}

// internal/tree/classify.go
package tree

import (
	"errors"
	"strings"
)

// Sep separates path segments in status output regardless of host OS.
const Sep = "/"

var (
	// ErrDirectoryEntry marks a status entry that names a directory
	// (trailing separator), typically a nested repository.
	ErrDirectoryEntry = errors.New("status entry is a directory")
	ErrMalformedPath  = errors.New("malformed status path")
)

// Segment describes one level of a classified path
type Segment struct {
	Name   string
	Path   string
	Kind   Kind
	Status Status // set on the final segment only
}

// Classify splits a repository-relative path into one segment per level.
// Every segment but the last is a directory; the last is a file carrying status.
func Classify(relPath string, status Status) ([]Segment, error) {
	if relPath == "" {
		return nil, ErrMalformedPath
	}

	parts := strings.Split(relPath, Sep)
	if parts[len(parts)-1] == "" {
		return nil, ErrDirectoryEntry
	}

	segs := make([]Segment, len(parts))
	for i, p := range parts {
		if p == "" {
			return nil, ErrMalformedPath
		}

		seg := Segment{
			Name: p,
			Path: strings.Join(parts[:i+1], Sep),
			Kind: KindDir,
		}
		if i == len(parts)-1 {
			seg.Kind = KindFile
			seg.Status = status
		}
		segs[i] = seg
	}

	return segs, nil
}

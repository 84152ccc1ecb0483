// internal/vcs/mock.go
package vcs

import (
	"context"
	"fmt"
	"sync"

	"committer/internal/tree"
)

// MockRepository is an in-memory Repository for tests and demos. Errors
// set in Fail are returned by the named operation.
type MockRepository struct {
	mu       sync.Mutex
	snapshot tree.Snapshot
	staged   map[string]bool
	commits  []MockCommit
	pushed   int
	pulled   int
	Fail     map[string]error
}

// MockCommit records one call to Commit.
type MockCommit struct {
	Hash    string
	Paths   []string
	Message string
}

func NewMockRepository(snap tree.Snapshot) *MockRepository {
	return &MockRepository{
		snapshot: snap,
		staged:   make(map[string]bool),
		Fail:     make(map[string]error),
	}
}

func (m *MockRepository) fail(op string) error {
	return m.Fail[op]
}

func (m *MockRepository) Status(ctx context.Context) (tree.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("status"); err != nil {
		return tree.Snapshot{}, err
	}
	return m.snapshot, nil
}

func (m *MockRepository) Add(ctx context.Context, paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("add"); err != nil {
		return err
	}
	if len(paths) == 0 {
		return ErrNoPaths
	}
	for _, p := range paths {
		m.staged[p] = true
	}
	return nil
}

func (m *MockRepository) Commit(ctx context.Context, paths []string, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("commit"); err != nil {
		return "", err
	}
	if err := CheckCommit(paths, message); err != nil {
		return "", err
	}

	hash := fmt.Sprintf("%040x", len(m.commits)+1)
	m.commits = append(m.commits, MockCommit{Hash: hash, Paths: paths, Message: message})
	m.snapshot = without(m.snapshot, paths)
	return hash, nil
}

func (m *MockRepository) Push(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("push"); err != nil {
		return err
	}
	m.pushed++
	return nil
}

func (m *MockRepository) Pull(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("pull"); err != nil {
		return err
	}
	m.pulled++
	return nil
}

func (m *MockRepository) Revert(ctx context.Context, paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("revert"); err != nil {
		return err
	}
	if len(paths) == 0 {
		return ErrNoPaths
	}
	m.snapshot = without(m.snapshot, paths)
	return nil
}

// Commits returns a copy of recorded commits.
func (m *MockRepository) Commits() []MockCommit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCommit(nil), m.commits...)
}

// Staged reports whether Add saw path.
func (m *MockRepository) Staged(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.staged[path]
}

// Syncs returns how many pushes and pulls succeeded.
func (m *MockRepository) Syncs() (pushed, pulled int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushed, m.pulled
}

func without(snap tree.Snapshot, paths []string) tree.Snapshot {
	drop := make(map[string]bool, len(paths))
	for _, p := range paths {
		drop[p] = true
	}
	filter := func(in []string) []string {
		var out []string
		for _, p := range in {
			if !drop[p] {
				out = append(out, p)
			}
		}
		return out
	}
	return tree.Snapshot{
		Created:  filter(snap.Created),
		Modified: filter(snap.Modified),
		Deleted:  filter(snap.Deleted),
		NotAdded: filter(snap.NotAdded),
	}
}

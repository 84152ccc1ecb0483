// internal/api/events.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"committer/internal/tree"

	"go.uber.org/zap"
)

// ChangeEvent tells subscribers the vault changed and the status tree
// should be fetched again.
type ChangeEvent struct {
	Changed   int       `json:"changed"`
	Untracked int       `json:"untracked"`
	At        time.Time `json:"at"`
}

type statusReader interface {
	Status(ctx context.Context) (tree.FileGroup, error)
}

// Notifier fans change events out to every open event stream. Each
// subscriber holds at most the latest undelivered event.
type Notifier struct {
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[chan ChangeEvent]struct{}
	closed bool
}

func NewNotifier(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{logger: logger, subs: make(map[chan ChangeEvent]struct{})}
}

// Subscribe returns a channel of events and a func that ends the
// subscription. The channel is closed when either is called or the
// notifier closes.
func (n *Notifier) Subscribe() (<-chan ChangeEvent, func()) {
	ch := make(chan ChangeEvent, 1)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(ch)
		return ch, func() {}
	}
	n.subs[ch] = struct{}{}
	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
	}
}

// Publish never blocks; a pending event a subscriber has not read yet is
// replaced.
func (n *Notifier) Publish(e ChangeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case <-ch:
		default:
		}
		ch <- e
	}
}

// Run rebuilds the status tree on every signal from changes and publishes
// the result until changes is closed or ctx is done.
func (n *Notifier) Run(ctx context.Context, changes <-chan struct{}, repo statusReader) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			group, err := repo.Status(ctx)
			if err != nil {
				n.logger.Warn("status refresh failed", zap.Error(err))
				continue
			}
			e := ChangeEvent{
				Changed:   countFiles(group.Changed),
				Untracked: countFiles(group.Untracked),
				At:        time.Now().UTC(),
			}
			n.logger.Debug("vault changed", zap.Int("changed", e.Changed), zap.Int("untracked", e.Untracked))
			n.Publish(e)
		}
	}
}

// Close ends every subscription so open streams return.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for ch := range n.subs {
		delete(n.subs, ch)
		close(ch)
	}
}

func countFiles(nodes []tree.Node) int {
	total := 0
	for _, node := range nodes {
		total += len(tree.Files(node))
	}
	return total
}

// Events streams ChangeEvents as server-sent events named "change".
func (h *RepoHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, cancel := h.events.Subscribe()
	defer cancel()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.WithRequestID(r.Context()).Warn("event stream unsupported", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// Package watch notifies when the work tree or the git index changes so
// callers can rebuild the status tree.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 300 * time.Millisecond

var ignoreDirs = map[string]bool{
	".git":         true,
	".committer":   true,
	".obsidian":    true,
	"node_modules": true,
}

// Watcher coalesces filesystem events under a repository root into
// signals on Events. A burst of events yields one signal once the tree has
// been quiet for the debounce window.
type Watcher struct {
	root     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	events   chan struct{}
	done     chan struct{}
	logger   *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	paths  map[string]struct{}
	closed bool
}

// New starts watching root recursively. The top of .git is watched too so
// commits and staging show up.
func New(root string, logger *zap.Logger, debounce time.Duration) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		watcher:  fw,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		logger:   logger,
		paths:    make(map[string]struct{}),
	}

	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}
	w.addDir(filepath.Join(root, ".git"))

	go w.run()
	return w, nil
}

// Events delivers one value per debounced burst. It is closed by Close.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.done)
	w.mu.Unlock()

	err := w.watcher.Close()
	close(w.events)
	return err
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Error("adding new directory to watcher", zap.Error(err))
					}
				}
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.signal)
}

func (w *Watcher) signal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- struct{}{}:
	default:
	}
}

// ignored reports whether path lies in an ignored directory. Files
// directly inside .git are kept since index and HEAD live there.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) == 2 && parts[0] == ".git" {
		return strings.HasSuffix(parts[1], ".lock")
	}
	for _, part := range parts {
		if ignoreDirs[part] {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignoreDirs[d.Name()] {
			return filepath.SkipDir
		}
		w.addDir(path)
		return nil
	})
}

func (w *Watcher) addDir(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.paths[path]; ok {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		w.logger.Debug("watch add failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.paths[path] = struct{}{}
}

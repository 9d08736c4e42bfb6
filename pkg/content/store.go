// Package content serves the application content for the root endpoint.
//
// When a content file is configured, the store reads and caches it, and an
// fsnotify watcher invalidates the cache when the file changes on disk, so
// updated content is served without a restart. Reading the file is the only
// operation in the server that touches disk on the request path.
package content

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"bastion-hq/bastion/pkg/config"
	"bastion-hq/bastion/pkg/lifecycle"
)

// Store caches the configured content file.
type Store struct {
	path string

	mu     sync.RWMutex
	cached []byte
	loaded bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore creates a content store for the configured file and starts the
// change watcher. When no file is configured it returns (nil, nil) and the
// root endpoint falls back to the JSON greeting. onFault is invoked if the
// watcher goroutine panics; it may be nil.
func NewStore(cfg *config.ContentConfig, onFault func(error)) (*Store, error) {
	if cfg.File == "" {
		return nil, nil
	}

	if _, err := os.Stat(cfg.File); err != nil {
		return nil, fmt.Errorf("content file %q: %w", cfg.File, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create content watcher: %w", err)
	}

	// Watch the directory rather than the file itself: editors and
	// deploy tooling often replace files by rename, which drops a watch
	// held directly on the file.
	if err := watcher.Add(filepath.Dir(cfg.File)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch content directory: %w", err)
	}

	s := &Store{
		path:    cfg.File,
		watcher: watcher,
		done:    make(chan struct{}),
	}

	lifecycle.Go("content watcher", onFault, s.watch)

	return s, nil
}

// Get returns the content bytes, reading from disk on a cache miss.
func (s *Store) Get() ([]byte, error) {
	s.mu.RLock()
	if s.loaded {
		data := s.cached
		s.mu.RUnlock()
		return data, nil
	}
	s.mu.RUnlock()

	return s.load()
}

// Path returns the configured content file path.
func (s *Store) Path() string {
	return s.path
}

// Close stops the change watcher.
func (s *Store) Close() error {
	close(s.done)
	return s.watcher.Close()
}

func (s *Store) load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file %q: %w", s.path, err)
	}

	s.mu.Lock()
	s.cached = data
	s.loaded = true
	s.mu.Unlock()

	return data, nil
}

// invalidate drops the cached bytes; the next Get re-reads from disk.
func (s *Store) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.loaded = false
	s.mu.Unlock()
}

func (s *Store) watch() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				slog.Debug("content file changed, invalidating cache",
					"file", s.path,
					"op", event.Op.String(),
				)
				s.invalidate()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("content watcher error", "error", err)
		case <-s.done:
			return
		}
	}
}

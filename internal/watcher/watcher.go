// Package watcher watches conceptual.yml and the model schema directories
// and emits debounced change notifications.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/conceptual/internal/log"
)

// Event is one debounced batch of changes.
type Event struct {
	// Paths lists the changed YAML files, sorted and deduplicated.
	Paths []string
}

// Watcher monitors project YAML files for changes and sends notifications.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	roots     []string
	debounce  time.Duration
	onChange  chan Event
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	// ProjectDir is watched non-recursively for conceptual.yml.
	ProjectDir string
	// ModelDirs are watched recursively for schema files.
	ModelDirs   []string
	DebounceDur time.Duration
}

// DefaultConfig returns defaults for a project. Model directories are the
// literal prefixes of the gold scan patterns.
func DefaultConfig(projectDir string, goldPatterns []string) Config {
	return Config{
		ProjectDir:  projectDir,
		ModelDirs:   ModelDirs(projectDir, goldPatterns),
		DebounceDur: 300 * time.Millisecond,
	}
}

// ModelDirs returns the existing directories under which the scan patterns
// can match, deduplicated.
func ModelDirs(projectDir string, patterns []string) []string {
	var dirs []string
	for _, p := range patterns {
		p = strings.TrimPrefix(filepath.ToSlash(p), "./")
		prefix := p
		if i := strings.IndexAny(p, "*?[{"); i >= 0 {
			prefix = p[:i]
			if j := strings.LastIndex(prefix, "/"); j >= 0 {
				prefix = prefix[:j]
			} else {
				prefix = ""
			}
		} else if strings.HasSuffix(p, ".yml") || strings.HasSuffix(p, ".yaml") {
			prefix = filepath.ToSlash(filepath.Dir(p))
		}
		dir := filepath.Join(projectDir, filepath.FromSlash(prefix))
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// New creates a new project watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		roots:     append([]string{cfg.ProjectDir}, cfg.ModelDirs...),
		debounce:  cfg.DebounceDur,
		onChange:  make(chan Event, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching. Returns a channel that receives a batch after
// changes settle for the debounce interval.
func (w *Watcher) Start() (<-chan Event, error) {
	if err := w.fsWatcher.Add(w.roots[0]); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", w.roots[0], err)
	}
	for _, dir := range w.roots[1:] {
		if err := w.addTree(dir); err != nil {
			return nil, err
		}
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// addTree watches dir and every directory below it, skipping hidden ones.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("watching directory %s: %w", path, err)
		}
		return nil
	})
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending = make(map[string]bool)
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) && w.isNewModelDir(event.Name) {
				if err := w.addTree(event.Name); err != nil {
					log.Warn(log.CatWatcher, "Failed to watch new directory", "path", event.Name, "error", err)
				}
				continue
			}

			if !isRelevantEvent(event) {
				continue
			}
			pending[event.Name] = true

			// Reset or start debounce timer
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			timer = nil
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)

			log.Debug(log.CatWatcher, "Project files changed", "count", len(paths))
			// Non-blocking send - drop if a batch is already queued
			select {
			case w.onChange <- Event{Paths: paths}:
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn(log.CatWatcher, "Watcher error", "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isNewModelDir reports whether path is a fresh directory under a
// recursively watched model root.
func (w *Watcher) isNewModelDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	for _, root := range w.roots[1:] {
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// isRelevantEvent checks if the event should trigger a rebuild.
func isRelevantEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	ext := filepath.Ext(event.Name)
	if ext != ".yml" && ext != ".yaml" {
		return false
	}
	return !strings.HasPrefix(filepath.Base(event.Name), ".")
}

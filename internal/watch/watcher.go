// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce applies when Config.Debounce is not positive.
const DefaultDebounce = 300 * time.Millisecond

var (
	// ErrNoRoots is returned by New without any root directory.
	ErrNoRoots = errors.New("watch: no root directories")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watch: Run called more than once")
)

// defaultIgnores are never reported: VCS metadata, CMake and IDE output,
// editor swap files.
var defaultIgnores = []string{
	"**/.git/**",
	"**/build/**",
	"**/CMakeFiles/**",
	"**/.vscode/**",
	"**/.idea/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are the directories to watch recursively. A root that is a
		// file is replaced by its directory.
		Roots []string
		// Patterns are doublestar globs matched against paths relative to
		// their root. Empty matches every non-ignored file.
		Patterns []string
		// Ignore extends the built-in ignore list.
		Ignore []string
		// Debounce is the quiet period that closes a batch.
		Debounce time.Duration
		// Logger receives non-fatal watcher errors. Nil discards them.
		Logger *log.Logger
	}

	// Batch is a set of changed files, as absolute paths in sorted order.
	Batch struct {
		Paths []string
	}

	// Watcher delivers debounced change batches. Run must be called once.
	Watcher struct {
		fsw      *fsnotify.Watcher
		roots    []string
		patterns []string
		ignores  []string
		debounce time.Duration
		logger   *log.Logger
		changes  chan Batch
		started  atomic.Bool
	}
)

// New validates cfg and registers every non-ignored directory under the
// roots with fsnotify.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Roots) == 0 {
		return nil, ErrNoRoots
	}
	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	roots, err := resolveRoots(cfg.Roots)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		roots:    roots,
		patterns: slices.Clone(cfg.Patterns),
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		debounce: debounce,
		logger:   logger,
		changes:  make(chan Batch),
	}
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Roots returns the absolute watched directories.
func (w *Watcher) Roots() []string { return slices.Clone(w.roots) }

// Changes delivers batches until Run returns, then is closed.
func (w *Watcher) Changes() <-chan Batch { return w.changes }

// Run processes events until ctx is done. It returns nil on cancellation
// and an error when the underlying watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(w.changes)
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify", "error", err)
		}
	}()

	var (
		pending = map[string]struct{}{}
		timer   = time.NewTimer(0)
		// ready is non-nil once the quiet period has passed with changes
		// pending; sends are only attempted then.
		ready chan<- Batch
		batch Batch
	)
	<-timer.C
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if !w.relevant(evt) {
				continue
			}
			pending[evt.Name] = struct{}{}
			ready = nil
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) > 0 {
				batch = Batch{Paths: slices.Sorted(maps.Keys(pending))}
				ready = w.changes
			}

		case ready <- batch:
			clear(pending)
			ready = nil

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// relevant filters an event and extends the watch to new directories.
func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if evt.Op == fsnotify.Chmod {
		return false
	}
	root, rel, ok := w.locate(evt.Name)
	if !ok || w.isIgnored(rel) {
		return false
	}
	if evt.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := w.addTree(evt.Name); err != nil {
				w.logger.Warn("watch new directory", "root", root, "path", evt.Name, "error", err)
			}
			return false
		}
	}
	return w.matchesPatterns(rel)
}

// locate returns the root containing path and path relative to it.
func (w *Watcher) locate(path string) (root, rel string, ok bool) {
	for _, r := range w.roots {
		relPath, err := filepath.Rel(r, path)
		if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
			continue
		}
		return r, filepath.ToSlash(relPath), true
	}
	return "", "", false
}

// addTree registers dir and its non-ignored subdirectories.
func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "error", walkErr)
			return nil //nolint:nilerr // inaccessible subtrees are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if _, rel, ok := w.locate(path); ok && rel != "." && (w.isIgnored(rel) || w.isIgnored(rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", dir, err)
	}
	return nil
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) matchesPatterns(rel string) bool {
	return len(w.patterns) == 0 || matchAny(w.patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q", label, pat)
		}
	}
	return nil
}

// resolveRoots makes roots absolute, maps files to their directory and
// drops duplicates and roots nested in another root.
func resolveRoots(in []string) ([]string, error) {
	var roots []string
	for _, r := range in {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %s: %w", r, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("watch: %w", err)
		}
		if !info.IsDir() {
			abs = filepath.Dir(abs)
		}
		roots = append(roots, filepath.Clean(abs))
	}
	slices.Sort(roots)
	roots = slices.Compact(roots)

	out := roots[:0]
	for _, r := range roots {
		if len(out) > 0 {
			last := out[len(out)-1]
			if strings.HasPrefix(r, last+string(filepath.Separator)) {
				continue
			}
		}
		out = append(out, r)
	}
	return out, nil
}

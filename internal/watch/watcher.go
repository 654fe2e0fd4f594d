// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs extraction when an installed mod tree changes.
//
// A Watcher monitors one or more root directories (the game data directory,
// the mods directory and wherever mod-list.json and mod-settings.dat live)
// and invokes OnChange once a debounce window passes without further
// matching events. Callbacks never overlap: events that arrive while a
// callback runs are collected and delivered in exactly one follow-up call.
package watch

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 300 * time.Millisecond

var (
	// ErrNoRoots is returned by New when Config.Roots is empty.
	ErrNoRoots = errors.New("no directories to watch")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watcher already running")

	// defaultPatterns select the files that change what extraction produces.
	defaultPatterns = []string{
		"**/*.lua",
		"**/*.sh",
		"**/info.json",
		"**/*.zip",
		"**/mod-list.json",
		"**/mod-settings.dat",
	}

	// defaultIgnores cover editor and VCS noise inside mod folders.
	defaultIgnores = []string{
		"**/.git/**",
		"**/*.swp",
		"**/*.swx",
		"**/*~",
		"**/.#*",
		"**/.DS_Store",
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are the directories to watch recursively. Missing roots are
		// skipped with a warning; at least one must be given.
		Roots []string
		// Patterns are doublestar globs matched against the slash-separated
		// path relative to its root. Empty selects DefaultPatterns.
		Patterns []string
		// Ignore adds globs to the built-in ignore list.
		Ignore []string
		// Debounce is the quiet period before OnChange fires.
		Debounce time.Duration
		// OnChange receives the sorted absolute paths that changed. An error
		// is logged and does not stop the watcher.
		OnChange func(ctx context.Context, changed []string) error
		// Logger defaults to slog.Default().
		Logger *slog.Logger
	}

	// Watcher monitors mod trees and fires a debounced callback. Run may be
	// called once.
	Watcher struct {
		fsw      *fsnotify.Watcher
		roots    []string
		patterns []string
		ignores  []string
		debounce time.Duration
		onChange func(ctx context.Context, changed []string) error
		logger   *slog.Logger
		started  atomic.Bool

		mu      sync.Mutex
		pending map[string]struct{}
	}
)

// DefaultPatterns returns a copy of the patterns used when Config.Patterns
// is empty.
func DefaultPatterns() []string {
	return slices.Clone(defaultPatterns)
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

// Validate reports every invalid glob in the config.
func (c Config) Validate() error {
	var errs []error
	for _, pat := range c.Patterns {
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("invalid watch pattern %q: %w", pat, doublestar.ErrBadPattern))
		}
	}
	for _, pat := range c.Ignore {
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("invalid ignore pattern %q: %w", pat, doublestar.ErrBadPattern))
		}
	}
	return errors.Join(errs...)
}

// New validates cfg and registers every directory under the roots.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Roots) == 0 {
		return nil, ErrNoRoots
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}

	w := &Watcher{
		patterns: patterns,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: cmp.Or(max(cfg.Debounce, 0), DefaultDebounce),
		onChange: cfg.OnChange,
		logger:   cmp.Or(cfg.Logger, slog.Default()),
		pending:  make(map[string]struct{}),
	}

	for _, root := range cfg.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %q: %w", root, err)
		}
		if !slices.Contains(w.roots, abs) {
			w.roots = append(w.roots, abs)
		}
	}
	// Longest first so nested roots win in relPath.
	slices.SortFunc(w.roots, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), strings.Compare(a, b))
	})

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	watched := 0
	for _, root := range w.roots {
		info, statErr := os.Stat(root)
		if statErr != nil || !info.IsDir() {
			w.logger.Warn("not watching missing directory", "path", root)
			continue
		}
		if err := w.addTree(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
		watched++
	}
	if watched == 0 {
		_ = fsw.Close()
		return nil, ErrNoRoots
	}
	return w, nil
}

// Roots returns the absolute roots being watched.
func (w *Watcher) Roots() []string {
	return slices.Clone(w.roots)
}

// Run processes events until ctx is canceled. It returns nil on
// cancellation and an error when the underlying watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	trigger := make(chan struct{}, 1)
	var wg sync.WaitGroup
	wg.Go(func() { w.dispatch(ctx, trigger) })

	defer func() {
		cancel()
		wg.Wait()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing watcher failed", "err", err)
		}
	}()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if !w.record(evt) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were dropped; treat every root as changed.
				w.logger.Warn("watch events overflowed, re-extracting")
				w.mu.Lock()
				for _, root := range w.roots {
					w.pending[root] = struct{}{}
				}
				w.mu.Unlock()
				timer.Reset(w.debounce)
				continue
			}
			if isFatal(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.logger.Warn("watch error", "err", err)

		case <-timer.C:
			select {
			case trigger <- struct{}{}:
			default:
			}
		}
	}
}

// dispatch runs OnChange serially. A trigger that arrives during a callback
// stays buffered, so changes made meanwhile get one more call.
func (w *Watcher) dispatch(ctx context.Context, trigger <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
		}

		w.mu.Lock()
		changed := slices.Sorted(maps.Keys(w.pending))
		clear(w.pending)
		w.mu.Unlock()

		if len(changed) == 0 || w.onChange == nil {
			continue
		}
		w.logger.Debug("mod files changed", "count", len(changed), "first", changed[0])
		if err := w.onChange(ctx, changed); err != nil {
			w.logger.Error("re-extraction failed", "err", err)
		}
	}
}

// record adds evt to the pending set and reports whether it counts.
func (w *Watcher) record(evt fsnotify.Event) bool {
	if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
		return false
	}
	rel, ok := w.relPath(evt.Name)
	if !ok || w.ignored(rel) {
		return false
	}
	if evt.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := w.addTree(evt.Name); err != nil {
				w.logger.Warn("cannot watch new directory", "path", evt.Name, "err", err)
			}
			// An unpacked mod folder arrives with its files already inside.
			return w.recordTree(evt.Name)
		}
	}
	if !w.matches(rel) {
		return false
	}
	w.mu.Lock()
	w.pending[evt.Name] = struct{}{}
	w.mu.Unlock()
	return true
}

// recordTree marks matching files under a newly created directory.
func (w *Watcher) recordTree(dir string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		rel, ok := w.relPath(path)
		if !ok || w.ignored(rel) || !w.matches(rel) {
			return nil
		}
		w.mu.Lock()
		w.pending[path] = struct{}{}
		w.mu.Unlock()
		found = true
		return nil
	})
	return found
}

// addTree registers dir and every non-ignored directory below it.
func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping unreadable path", "path", path, "err", err)
			return nil //nolint:nilerr // keep watching the rest
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.relPath(path); ok && rel != "." && (w.ignored(rel) || w.ignored(rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %q: %w", path, err)
		}
		return nil
	})
	return err
}

// relPath returns path relative to the innermost root containing it, with
// forward slashes.
func (w *Watcher) relPath(path string) (string, bool) {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return filepath.ToSlash(rel), true
	}
	return "", false
}

func (w *Watcher) ignored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) matches(rel string) bool {
	return matchAny(w.patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// isFatal reports whether err means the kernel stopped delivering events,
// such as an exhausted inotify watch or descriptor limit.
func isFatal(err error) bool {
	return slices.ContainsFunc(fatalErrnos, func(errno error) bool {
		return errors.Is(err, errno)
	})
}

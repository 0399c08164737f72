package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/spec"
)

// minDebounce floors a configured debounce window, so a misconfigured
// zero value doesn't turn every keystroke into a restart storm.
const minDebounce = 50 * time.Millisecond

// Spawn starts one background watcher goroutine per spec with a non-empty
// Watch config. Restart requests are delivered as event.Restart on out;
// the caller (the event-loop host) decides whether and how to act on them.
func Spawn(specs []spec.ProcessSpec, out chan<- event.Event) {
	for _, sp := range specs {
		if !sp.Watch.Enabled() {
			continue
		}
		go func(sp spec.ProcessSpec) {
			if err := watchOne(sp, out); err != nil {
				out <- event.Output{
					ID:     sp.Name,
					Stream: event.Stderr,
					Line:   fmt.Sprintf("watcher failed: %v", err),
				}
			}
		}(sp)
	}
}

func watchOne(sp spec.ProcessSpec, out chan<- event.Event) error {
	base := sp.Cwd
	if base == "" {
		var err error
		base, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve cwd: %w", err)
		}
	}

	paths := resolveWatchPaths(base, sp.Watch.Paths)
	m := newMatcher(base, sp.Watch.Ignore, sp.Watch.IgnoreGitignore)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	for _, p := range paths {
		if err := addRecursive(w, p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}

	debounce := sp.Watch.Debounce
	if debounce < minDebounce {
		debounce = minDebounce
	}

	var timer *time.Timer
	trigger := func() {
		out <- event.Restart{ID: sp.Name}
	}

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if isRelevant(ev, m) {
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, trigger)
			}
		case _, ok := <-w.Errors:
			if !ok {
				return nil
			}
			// A transient watch error shouldn't kill the watcher goroutine;
			// keep waiting for the next event.
		}
	}
}

func resolveWatchPaths(base string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = p
		} else {
			out[i] = filepath.Join(base, p)
		}
	}
	return out
}

// addRecursive registers root and every directory beneath it, since
// fsnotify watches are non-recursive on every backend.
func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func isRelevant(ev fsnotify.Event, m *matcher) bool {
	if ev.Name == "" {
		return true
	}
	return !m.isIgnored(ev.Name)
}

package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a watched path must stay quiet before a rerun.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reruns a function whenever the template or data sources change.
// Editors save in bursts (temp file, rename, chmod); events are coalesced
// until no event arrived for Debounce.
type Watcher struct {
	// Paths are files or directories. For a file, its directory is watched
	// and events are filtered to the file name, so atomic saves are seen.
	Paths []string

	Debounce time.Duration
	Logger   *zap.Logger
}

// Run blocks until ctx is done, calling onChange after every settled burst
// of relevant events.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// files maps watched directories to the file names of interest;
	// a nil set means every entry of the directory.
	files := make(map[string]map[string]bool)
	for _, path := range w.Paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}

		dir, name := abs, ""
		if !info.IsDir() {
			dir, name = filepath.Dir(abs), filepath.Base(abs)
		}

		names, seen := files[dir]
		switch {
		case !seen && name != "":
			files[dir] = map[string]bool{name: true}
		case !seen:
			files[dir] = nil
		case names != nil && name != "":
			names[name] = true
		case names != nil:
			files[dir] = nil
		}
		if !seen {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			logger.Debug("watching", zap.String("path", dir))
		}
	}

	relevant := func(event fsnotify.Event) bool {
		if event.Op == fsnotify.Chmod {
			return false
		}
		names, ok := files[filepath.Dir(event.Name)]
		if !ok {
			return false
		}
		return names == nil || names[filepath.Base(event.Name)]
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			onChange()
		}
	}
}

package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	log "github.com/geoknoesis/cimshacl/internal/logging"
)

// DefaultDebounce is used when a Watcher has no debounce delay.
const DefaultDebounce = 500 * time.Millisecond

// Watcher calls OnChange whenever one of Paths changes. Files are watched
// through their parent directory so editors that replace files on save keep
// triggering; directories trigger on any direct child.
type Watcher struct {
	Paths    []string
	Debounce time.Duration
	// OnChange receives the sorted set of paths that changed since the last call.
	OnChange func(ctx context.Context, changed []string)

	files map[string]struct{}
	dirs  map[string]struct{}
}

// Watch blocks until ctx is done. It returns nil on cancellation.
func (w *Watcher) Watch(ctx context.Context) error {
	if w.OnChange == nil {
		return errors.New("watcher has no change handler")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addWatches(fsw); err != nil {
		return err
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]struct{})
	logger := log.Ctx(ctx)
	logger.Info().Strs("paths", w.Paths).Dur("debounce", debounce).Msg("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod || !w.relevant(event.Name) {
				continue
			}
			logger.Debug().Str("path", event.Name).Stringer("op", event.Op).Msg("change detected")
			pending[event.Name] = struct{}{}
			timer.Reset(debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			clear(pending)
			slices.Sort(changed)
			w.OnChange(ctx, changed)
		}
	}
}

func (w *Watcher) addWatches(fsw *fsnotify.Watcher) error {
	w.files = make(map[string]struct{})
	w.dirs = make(map[string]struct{})
	added := make(map[string]struct{})
	for _, path := range w.Paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		dir := abs
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			w.dirs[abs] = struct{}{}
		} else {
			w.files[abs] = struct{}{}
			dir = filepath.Dir(abs)
		}
		if _, ok := added[dir]; ok {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			return err
		}
		added[dir] = struct{}{}
	}
	return nil
}

func (w *Watcher) relevant(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	if _, ok := w.files[abs]; ok {
		return true
	}
	_, ok := w.dirs[filepath.Dir(abs)]
	return ok
}

package scene

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/raphi011/cachemgr/internal/log"
)

// DefaultWatchDebounce coalesces the burst of events an atomic rename
// produces.
const DefaultWatchDebounce = 200 * time.Millisecond

// Watch reports changes to the files named in paths. The containing
// directories are watched so files replaced by rename are still seen. The
// returned channel receives one value per debounced burst and is closed
// when ctx is done.
func Watch(ctx context.Context, debounce time.Duration, paths ...string) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch scene: %w", err)
	}

	names := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range paths {
		p = filepath.Clean(p)
		names[p] = true
		dirs[filepath.Dir(p)] = true
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch %s: %w", d, err)
		}
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer w.Close()

		var timer <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !names[filepath.Clean(ev.Name)] || ev.Op == fsnotify.Chmod {
					continue
				}
				timer = time.After(debounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.FromContext(ctx).Warnf("scene watch: %v", err)
			case <-timer:
				timer = nil
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

// WatchPaths returns the files a Manifest depends on.
func (m *Manifest) WatchPaths() []string {
	return []string{m.path, m.envFile}
}

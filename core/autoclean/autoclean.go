// Package autoclean removes playback artifacts: files popped off a queue and
// stray downloads that nothing claimed.
package autoclean

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"AviaxMusic/logger"
	"AviaxMusic/model"

	"github.com/fsnotify/fsnotify"
)

// Clean removes the temporary artifacts of a finished track. Stream URLs,
// sentinel sources and index markers own no local files and are skipped.
// Failures are logged only; cleanup never blocks a queue advance.
func Clean(track *model.Track) {
	if track == nil {
		return
	}
	if track.IsLive() || track.IsIndexed() {
		return
	}
	if strings.HasPrefix(track.File, "http://") || strings.HasPrefix(track.File, "https://") {
		return
	}
	if track.VidID == model.SentinelTelegram || track.VidID == model.SentinelSoundcloud {
		return
	}

	for _, path := range []string{track.File, track.SpeedPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("autoclean remove failed", logger.String("path", path), logger.ErrorField(err))
		}
	}
}

// Watcher ages out files in the downloads dir that nothing touched for ttl.
// New files are picked up through fsnotify; anything already present is
// registered at startup.
type Watcher struct {
	dir string
	ttl time.Duration

	mu   sync.Mutex
	seen map[string]time.Time

	done chan struct{}
}

// NewWatcher creates a watcher over dir with the given ttl.
func NewWatcher(dir string, ttl time.Duration) *Watcher {
	return &Watcher{
		dir:  dir,
		ttl:  ttl,
		seen: make(map[string]time.Time),
		done: make(chan struct{}),
	}
}

// Start begins watching. It returns after the fsnotify watcher is
// registered; the sweep loop runs until Stop.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	now := time.Now()
	w.mu.Lock()
	for _, e := range entries {
		if !e.IsDir() {
			w.seen[filepath.Join(w.dir, e.Name())] = now
		}
	}
	w.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		ticker := time.NewTicker(w.ttl / 4)
		defer ticker.Stop()
		for {
			select {
			case event := <-watcher.Events:
				if event.Op&fsnotify.Create == fsnotify.Create || event.Op&fsnotify.Write == fsnotify.Write {
					w.mu.Lock()
					w.seen[event.Name] = time.Now()
					w.mu.Unlock()
				}
				if event.Op&fsnotify.Remove == fsnotify.Remove {
					w.mu.Lock()
					delete(w.seen, event.Name)
					w.mu.Unlock()
				}
			case err := <-watcher.Errors:
				logger.Warn("downloads watcher error", logger.ErrorField(err))
			case <-ticker.C:
				w.sweep()
			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// Stop ends the watch loop.
func (w *Watcher) Stop() {
	close(w.done)
}

func (w *Watcher) sweep() {
	cutoff := time.Now().Add(-w.ttl)
	w.mu.Lock()
	var stale []string
	for path, at := range w.seen {
		if at.Before(cutoff) {
			stale = append(stale, path)
			delete(w.seen, path)
		}
	}
	w.mu.Unlock()

	for _, path := range stale {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("sweep remove failed", logger.String("path", path), logger.ErrorField(err))
			continue
		}
		logger.Debug("swept stale download", logger.String("path", path))
	}
}

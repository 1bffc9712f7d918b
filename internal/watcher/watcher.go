// Package watcher notifies the caller when watched env files change
// on disk. It watches parent directories rather than the files
// themselves, so editors that replace a file via rename are still
// seen.
package watcher

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher invokes a callback for every change to a fixed set of
// files. Create one with New, Start it, and Stop it to release the
// underlying OS watches.
type Watcher struct {
	fw       *fsnotify.Watcher
	paths    map[string]bool
	onChange func(path string)
	started  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New prepares a watcher for the given file paths. onChange runs on
// the watcher's goroutine; keep it quick or hand off.
func New(paths []string, onChange func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fs watcher: %w", err)
	}

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	return &Watcher{
		fw:       fw,
		paths:    watched,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins delivering change notifications.
func (w *Watcher) Start() {
	w.started = true
	go w.run()
}

// Stop ends delivery and releases the OS watches. Call it once.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.fw.Close()
	if w.started {
		<-w.doneCh
	}
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Watch error")
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	const ops = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
	if event.Op&ops == 0 {
		return
	}
	path := filepath.Clean(event.Name)
	if !w.paths[path] {
		return
	}
	log.Debug().Str("path", path).Str("op", event.Op.String()).Msg("Env file changed")
	w.onChange(path)
}

package incremental

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// watchState is the mutable half of the cycle driver, guarded by the
// pipeline mutex.
type watchState struct {
	fsw      *fsnotify.Watcher
	host     Host
	root     string
	dirs     map[string]struct{} // known directories, to classify removals
	timer    *time.Timer
	building bool
	pending  bool // a trigger arrived while a build was in flight
	closed   bool
	loopDone chan struct{}
}

// Watch starts observing the host's source directory recursively and
// drives repeated builds: events are coalesced through a
// restart-on-event debounce timer, and a quiet interval triggers one
// full build. Files that existed before the watch started produce no
// events on their own; the initial recursive scan only registers
// directories and flips the session into the ready state.
//
// A failing build is logged and the watcher keeps listening. Triggers
// arriving while a build is in flight are coalesced into exactly one
// follow-up build.
func (p *Pipeline) Watch(batch Batch, host Host, done func(error)) {
	p.mu.Lock()
	if p.watch != nil && !p.watch.closed {
		p.mu.Unlock()
		signal(done, ErrAlreadyWatching)
		return
	}
	p.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		signal(done, fmt.Errorf("failed to create watcher: %w", err))
		return
	}

	w := &watchState{
		fsw:      fsw,
		host:     host,
		root:     host.Source(),
		dirs:     make(map[string]struct{}),
		loopDone: make(chan struct{}),
	}

	if err := p.scanTree(w, w.root); err != nil {
		fsw.Close()
		signal(done, fmt.Errorf("failed to scan %s: %w", w.root, err))
		return
	}

	p.mu.Lock()
	p.watch = w
	p.ready = true
	p.mu.Unlock()

	go p.eventLoop(w)
	p.log.Debug("watching", "root", w.root)
	signal(done, nil)
}

// Close stops the watcher and releases its resources. An in-flight
// build runs to completion; no follow-up build is triggered.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	w := p.watch
	if w == nil || w.closed {
		p.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	p.mu.Unlock()

	err := w.fsw.Close()
	<-w.loopDone
	return err
}

// scanTree registers dir and every directory below it with the
// watcher.
func (p *Pipeline) scanTree(w *watchState, dir string) error {
	return afero.Walk(p.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		if rel := p.relPath(w, path); rel != "" {
			w.dirs[rel] = struct{}{}
		}
		return nil
	})
}

func (p *Pipeline) eventLoop(w *watchState) {
	defer close(w.loopDone)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			p.handleEvent(w, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			p.log.Warn("watch error", "err", err)
		}
	}
}

// handleEvent records one filesystem event on the change set and
// restarts the debounce timer.
func (p *Pipeline) handleEvent(w *watchState, ev fsnotify.Event) {
	rel := p.relPath(w, ev.Name)
	if rel == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if w.closed {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		if isDir(p.fs, ev.Name) {
			p.changes.MarkDirModified(rel)
			w.dirs[rel] = struct{}{}
			// New directories need their own watch; content may land
			// in them before Add takes effect, but the dir prefix
			// already covers those paths.
			if err := p.scanTree(w, ev.Name); err != nil {
				p.log.Warn("watch add failed", "dir", rel, "err", err)
			}
		} else {
			p.changes.MarkModified(rel)
		}
	case ev.Has(fsnotify.Write):
		p.changes.MarkModified(rel)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if _, ok := w.dirs[rel]; ok {
			delete(w.dirs, rel)
			p.changes.MarkDirRemoved(rel)
		} else {
			p.changes.MarkRemoved(rel)
		}
	default:
		return // chmod and friends
	}

	p.restartTimerLocked(w)
}

// restartTimerLocked resets the debounce timer so the rebuild fires
// only after a quiet interval.
func (p *Pipeline) restartTimerLocked(w *watchState) {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(p.debounce, func() { p.fireBuild(w) })
}

// fireBuild runs one full build through the host. Completion, success
// or failure, clears the change set for the next round.
func (p *Pipeline) fireBuild(w *watchState) {
	p.mu.Lock()
	if w.closed {
		p.mu.Unlock()
		return
	}
	if w.building {
		w.pending = true
		p.mu.Unlock()
		return
	}
	w.building = true
	p.expandForceTargetsLocked()
	p.mu.Unlock()

	w.host.Build(func(err error) {
		p.mu.Lock()
		p.changes.reset()
		p.stats.Cycles++
		w.building = false
		rerun := w.pending && !w.closed
		w.pending = false
		if rerun {
			p.restartTimerLocked(w)
		}
		p.mu.Unlock()

		if err != nil {
			p.log.Error("build failed", "err", err)
		}
	})
}

// expandForceTargetsLocked turns each force-rebuild pair whose source
// glob matches a currently-modified path into a force target for the
// upcoming filter pass.
func (p *Pipeline) expandForceTargetsLocked() {
	for srcGlob, targetGlob := range p.forceGlobs {
		for path := range p.changes.modifiedFiles {
			if matchGlob(path, srcGlob) {
				p.changes.ForceTarget(targetGlob)
				break
			}
		}
	}
}

// relPath converts an absolute event path into a slash-separated batch
// key, or "" for paths outside the watched root.
func (p *Pipeline) relPath(w *watchState, abs string) string {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == "." || rel == ".." || filepath.IsAbs(rel) {
		return ""
	}
	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}

func isDir(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}

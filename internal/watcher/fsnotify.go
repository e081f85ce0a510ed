package watcher

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/fileindex-mcp/pkg/types"
)

// FSNotifySource adapts fsnotify to the EventSource interface. It watches
// a directory tree recursively, registering new subdirectories as they
// appear. fsnotify cannot pair the two halves of a rename, so renames
// surface as EventDeleted for the old path; the new path arrives as an
// independent EventCreated.
type FSNotifySource struct {
	watcher *fsnotify.Watcher
	events  chan Event
	errs    chan error

	closeOnce sync.Once
	done      chan struct{}
}

// NewFSNotifySource starts watching root and every non-hidden directory
// beneath it.
func NewFSNotifySource(root string) (*FSNotifySource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	s := &FSNotifySource{
		watcher: w,
		events:  make(chan Event, 64),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}

	if err := s.watchTree(root); err != nil {
		_ = w.Close()
		return nil, err
	}

	go s.loop()
	return s, nil
}

func (s *FSNotifySource) Events() <-chan Event { return s.events }
func (s *FSNotifySource) Errors() <-chan error { return s.errs }

// Close stops the underlying watcher and closes the event channels.
func (s *FSNotifySource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.watcher.Close()
	})
	return err
}

func (s *FSNotifySource) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && types.IsHiddenName(d.Name()) {
			return filepath.SkipDir
		}
		if err := s.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (s *FSNotifySource) loop() {
	defer close(s.events)
	defer close(s.errs)

	for {
		select {
		case <-s.done:
			return
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			select {
			case s.errs <- err:
			case <-s.done:
				return
			}
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.translate(ev)
		}
	}
}

func (s *FSNotifySource) translate(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		isDir := false
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			isDir = true
			if !types.IsHiddenName(filepath.Base(ev.Name)) {
				if err := s.watcher.Add(ev.Name); err != nil {
					log.Printf("watch new directory %s: %v", ev.Name, err)
				}
			}
		}
		s.emit(Event{Type: EventCreated, Path: ev.Name, IsDir: isDir})
	case ev.Op.Has(fsnotify.Write):
		s.emit(Event{Type: EventModified, Path: ev.Name})
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		// Rename degrades to delete; see the type comment.
		s.emit(Event{Type: EventDeleted, Path: ev.Name})
	}
	// Chmod is deliberately dropped.
}

func (s *FSNotifySource) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

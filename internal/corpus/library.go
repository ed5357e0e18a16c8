package corpus

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

//go:embed sample.txt
var sample []byte

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// Library serves passages from a corpus file. Reloads swap in a new set of
// passages atomically; passages already handed out stay valid.
type Library struct {
	path string
	snap atomic.Pointer[snapshot]
	log  *log.Logger
}

type snapshot struct {
	passages []*Passage
	byID     map[int]*Passage
}

func newSnapshot(passages []*Passage) *snapshot {
	s := &snapshot{
		passages: passages,
		byID:     make(map[int]*Passage, len(passages)),
	}
	for _, p := range passages {
		s.byID[p.ID] = p
	}
	return s
}

// NewLibrary serves a fixed set of passages.
func NewLibrary(passages []*Passage) *Library {
	l := &Library{log: log.WithPrefix("corpus")}
	l.snap.Store(newSnapshot(passages))
	return l
}

// Sample returns the built-in sample corpus.
func Sample() *Library {
	passages, err := Parse(bytes.NewReader(sample))
	if err != nil {
		panic(fmt.Sprintf("corpus: bad sample corpus: %v", err))
	}
	return NewLibrary(passages)
}

// Open loads the corpus at path.
func Open(path string) (*Library, error) {
	l := &Library{path: path, log: log.WithPrefix("corpus")}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the corpus file, or "" for an in-memory library.
func (l *Library) Path() string {
	return l.path
}

// Reload parses the corpus file again. On error the previous passages are
// kept.
func (l *Library) Reload() error {
	if l.path == "" {
		return nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	parse := Parse
	if isMarkdown(l.path) {
		parse = ParseMarkdown
	}
	passages, err := parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(l.path), err)
	}

	l.snap.Store(newSnapshot(passages))
	l.log.Debug("corpus loaded", "path", l.path, "passages", len(passages))
	return nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// Passage returns the passage with the given ID.
func (l *Library) Passage(id int) (*Passage, bool) {
	p, ok := l.snap.Load().byID[id]
	return p, ok
}

// Passages returns every passage in ID order.
func (l *Library) Passages() []*Passage {
	return l.snap.Load().passages
}

// Watch reloads the corpus whenever its file is written, until ctx is done.
// onReload, if set, is called after every reload attempt with its result.
func (l *Library) Watch(ctx context.Context, onReload func(error)) error {
	if l.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	l.log.Info("fsnotify watching dir", "dir", dir)

	target := filepath.Clean(l.path)
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			l.log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			pending = time.After(reloadDebounce)

		case <-pending:
			pending = nil
			err := l.Reload()
			if err != nil {
				l.log.Warn("corpus reload failed", "err", err)
			}
			if onReload != nil {
				onReload(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.log.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}

package watcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a project tree recursively and reports changed paths.
// The TUI uses it to re-run a pending preview when the tree shifts under
// it; the engine itself never watches anything.
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	Events   chan string
	stopChan chan struct{}
}

// New creates a watcher over the project root. Dot-directories (including
// .git, .applydiff, and backup directories) are skipped.
func New(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		fsw:      fsw,
		Events:   make(chan string, 64),
		stopChan: make(chan struct{}),
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if skipDir(filepath.Base(path)) && path != root {
				return filepath.SkipDir
			}
			return w.fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Start begins forwarding change events. Newly created directories are
// added to the watch set on the fly.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			base := filepath.Base(event.Name)
			if skipDir(base) || strings.HasSuffix(base, ".tmp") {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.fsw.Add(event.Name)
				}
			}
			select {
			case w.Events <- event.Name:
			default:
				// Drop when the consumer lags; the next event re-triggers.
			}
		case <-w.fsw.Errors:
			// Watch errors are non-fatal for a preview refresh.
		case <-w.stopChan:
			return
		}
	}
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	close(w.stopChan)
	w.fsw.Close()
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".")
}

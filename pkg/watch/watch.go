// Package watch turns file system events into debounced rescan and
// rebuild requests.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sw33tLie/baseline-lite/pkg/runner"
	"github.com/sw33tLie/baseline-lite/pkg/scanner"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 300 * time.Millisecond

// Logger is the subset of logrus the watcher uses.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// Config describes what to watch.
type Config struct {
	// Roots are directories whose source files are rescanned on change.
	Roots []string
	// Triggers are files that request an index rebuild when they change,
	// such as the dataset files. Their parent directories are watched so
	// files replaced by rename are still seen.
	Triggers []string
	Debounce time.Duration
	// OnChange receives the changed source files, sorted, and whether a
	// rebuild was requested. It runs on the Run goroutine.
	OnChange func(files []string, rebuild bool)
	Log      Logger // optional
}

type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	triggers map[string]bool
	fire     chan struct{}

	mu      sync.Mutex
	pending map[string]bool
	rebuild bool
	timer   *time.Timer
}

// New starts watching cfg.Roots recursively and the trigger files.
func New(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Log == nil {
		cfg.Log = nopLogger{}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch init failed: %w", err)
	}
	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		triggers: map[string]bool{},
		fire:     make(chan struct{}, 1),
		pending:  map[string]bool{},
	}

	for _, root := range cfg.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		if err := w.addRecursive(abs); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	dirs := map[string]bool{}
	for _, t := range cfg.Triggers {
		if t == "" {
			continue
		}
		abs, err := filepath.Abs(t)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.triggers[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			cfg.Log.Warnf("Cannot watch %s: %v", dir, err)
		}
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && runner.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// RequestRebuild schedules a rebuild as if a trigger file had changed.
func (w *Watcher) RequestRebuild() {
	w.mu.Lock()
	w.rebuild = true
	w.arm()
	w.mu.Unlock()
}

// arm restarts the debounce timer. Callers hold mu.
func (w *Watcher) arm() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	name, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.triggers[name] {
		w.rebuild = true
		w.arm()
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := w.addRecursive(name); err != nil {
				w.cfg.Log.Warnf("Cannot watch %s: %v", name, err)
			}
			return
		}
	}
	if _, ok := scanner.LanguageFromPath(name); !ok {
		return
	}
	w.pending[name] = true
	w.arm()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	files := make([]string, 0, len(w.pending))
	for f := range w.pending {
		files = append(files, f)
	}
	rebuild := w.rebuild
	w.pending = map[string]bool{}
	w.rebuild = false
	w.mu.Unlock()

	if len(files) == 0 && !rebuild {
		return
	}
	sort.Strings(files)
	w.cfg.Log.Debugf("Change batch: %d files, rebuild=%t", len(files), rebuild)
	if w.cfg.OnChange != nil {
		w.cfg.OnChange(files, rebuild)
	}
}

// Run delivers change batches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.cfg.Log.Warnf("Watch error: %v", err)
		case <-w.fire:
			w.flush()
		}
	}
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

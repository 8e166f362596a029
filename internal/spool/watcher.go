package spool

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentguard/agentguard-go/internal/model"
)

// debounceDefault is the default debounce interval for file events.
const debounceDefault = 200 * time.Millisecond

// maxConcurrentFiles limits how many inbox files are handled simultaneously.
const maxConcurrentFiles = 5

// maxQueueSize buffers the work queue so bursts don't block the debounce
// flush. Must exceed maxConcurrentFiles.
const maxQueueSize = 200

// Watcher watches an inbox directory for new .json event files, parses
// each file as one ExecutionEvent, hands it to the configured handler, and
// removes the file. Files already present when Run starts are processed
// first, so events spooled by a previous process are not stranded.
type Watcher struct {
	dir      string
	handle   func(model.ExecutionEvent)
	log      *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher for the inbox directory.
func NewWatcher(dir string, handle func(model.ExecutionEvent), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      dir,
		handle:   handle,
		log:      logger,
		debounce: debounceDefault,
	}
}

// Run watches the inbox until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	// ready collects paths that passed debounce; a single timer resets on
	// each event and flushes the whole set when it fires, so bursts create
	// zero per-file goroutines.
	var mu sync.Mutex
	ready := make(map[string]bool)

	queue := make(chan string, maxQueueSize)

	var wg sync.WaitGroup
	for i := 0; i < maxConcurrentFiles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range queue {
				w.process(path)
			}
		}()
	}

	flush := func() {
		mu.Lock()
		batch := make([]string, 0, len(ready))
		for p := range ready {
			batch = append(batch, p)
		}
		ready = make(map[string]bool)
		mu.Unlock()

		for _, p := range batch {
			select {
			case queue <- p:
			case <-ctx.Done():
				return
			}
		}
	}

	// Drain files that predate the watch.
	if entries, err := os.ReadDir(w.dir); err == nil {
		for _, e := range entries {
			if e.IsDir() || !isEventFile(e.Name()) {
				continue
			}
			select {
			case queue <- filepath.Join(w.dir, e.Name()):
			case <-ctx.Done():
			}
		}
	}

	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()

	defer func() {
		debounceTimer.Stop()
		flush()
		close(queue)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			flush()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !isEventFile(event.Name) {
				continue
			}

			mu.Lock()
			ready[event.Name] = true
			mu.Unlock()

			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Debug("inbox watch error", slog.String("error", err.Error()))
		}
	}
}

// process reads one inbox file, hands the event off, and removes the file.
// Malformed files are left in place for inspection.
func (w *Watcher) process(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn("failed to read inbox file", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	var ev model.ExecutionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		w.log.Warn("skipping malformed inbox file", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	w.handle(ev)
	if err := os.Remove(path); err != nil {
		w.log.Warn("failed to remove inbox file", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func isEventFile(name string) bool {
	return strings.HasSuffix(name, ".json")
}

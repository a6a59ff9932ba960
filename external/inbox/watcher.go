package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/meetbot/internal/session"
	"github.com/fsnotify/fsnotify"
)

const defaultSettleDelay = 500 * time.Millisecond

// Importer turns a recording on disk into a processed session.
type Importer interface {
	ImportRecording(path string) (session.Snapshot, error)
	Wait(ctx context.Context, id int64) (session.Snapshot, error)
}

// Watcher imports WAV files dropped into a directory, one at a time.
type Watcher struct {
	dir         string
	importer    Importer
	watcher     *fsnotify.Watcher
	settleDelay time.Duration
	semaphore   chan struct{}
	wg          sync.WaitGroup
}

func NewWatcher(dir string, importer Importer) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}
	return &Watcher{
		dir:         dir,
		importer:    importer,
		watcher:     fw,
		settleDelay: defaultSettleDelay,
		semaphore:   make(chan struct{}, 1),
	}, nil
}

// Run watches until ctx is canceled, then waits for the running import.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("inbox watcher started", "dir", w.dir)
	defer w.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			slog.Info("inbox watcher stopping")
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !isRecording(event.Name) {
				slog.Debug("ignoring non-wav file", "path", event.Name)
				continue
			}
			w.wg.Add(1)
			go w.handle(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			slog.Error("inbox watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	defer w.wg.Done()
	slog.Info("recording detected", "path", path)

	// Writers may still be flushing the file.
	select {
	case <-time.After(w.settleDelay):
	case <-ctx.Done():
		return
	}
	select {
	case w.semaphore <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-w.semaphore }()

	snap, err := w.importer.ImportRecording(path)
	if err != nil {
		slog.Error("failed to import recording", "path", path, "error", err)
		return
	}
	final, err := w.importer.Wait(ctx, snap.ID)
	if err != nil {
		slog.Warn("stopped waiting for imported session", "session_id", snap.ID, "error", err)
		return
	}
	slog.Info("imported recording processed", "session_id", snap.ID, "path", path, "state", final.State)
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func isRecording(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

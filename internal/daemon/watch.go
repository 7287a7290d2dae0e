package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/Chichichkin/logshipper/internal/logging"
	"github.com/Chichichkin/logshipper/internal/logging/batch"
	"github.com/Chichichkin/logshipper/internal/logging/delivery"
	"github.com/Chichichkin/logshipper/internal/logging/filter"
)

// Follow modes accepted in Config.FollowMode. An empty mode means FollowNotify.
const (
	FollowNotify = "notify"
	FollowPoll   = "poll"
)

const defaultFilePollInterval = time.Second

// ErrFileWaitTimeout is returned when a deleted log file does not reappear
// within Config.FileWaitTimeout.
var ErrFileWaitTimeout = errors.New("log file did not reappear in time")

// Deliverer sends one sealed batch and returns once it is delivered or
// abandoned.
type Deliverer interface {
	Deliver(ctx context.Context, batch *logging.Batch) delivery.Result
}

// Watcher tails one file and ships what it reads. All of its state belongs
// to the goroutine calling Run.
type Watcher struct {
	config     Config
	path       string
	dir        string
	state      *watchState
	filter     *filter.Filter
	assembler  *batch.Assembler
	dispatcher Deliverer
	metrics    *Metrics

	filePollInterval time.Duration
	now              func() time.Time
}

func NewWatcher(config Config, dispatcher Deliverer, metrics *Metrics) (*Watcher, error) {
	path, err := filepath.Abs(config.LogPath)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", config.LogPath, err)
	}
	if metrics == nil {
		metrics = &Metrics{}
	}
	fsys := config.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	return &Watcher{
		config:           config,
		path:             path,
		dir:              filepath.Dir(path),
		state:            newWatchState(fsys, path, config.MaxBatchBytes),
		filter:           filter.New(config.Filter),
		assembler:        batch.NewAssembler(config.BatchSize, config.MaxBatchBytes),
		dispatcher:       dispatcher,
		metrics:          metrics,
		filePollInterval: defaultFilePollInterval,
		now:              time.Now,
	}, nil
}

// Run follows the file until ctx is cancelled or an unrecoverable error
// occurs. Cancellation is a clean exit and returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	var err error
	if w.config.FollowMode == FollowPoll {
		err = w.runPoll(ctx)
	} else {
		err = w.runNotify(ctx)
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (w *Watcher) runNotify(ctx context.Context) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fs watcher: %w", err)
	}
	defer notifier.Close()

	// the directory, not the file, so that delete and recreate are seen
	if err := notifier.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	defer w.state.close()

	if err := w.state.open(true); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("opening %s: %w", w.path, err)
		}
		slog.Info("Log file does not exist yet, waiting for it", "path", w.path)
		if err := w.awaitFile(ctx); err != nil {
			return err
		}
		if err := w.process(ctx); err != nil {
			return err
		}
	}

	slog.Info("Started watching for new content", "path", w.path, "mode", FollowNotify)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if err := w.process(ctx); err != nil {
				return err
			}

		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			slog.Warn("fs watcher error", "path", w.dir, "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

// process runs one pass: rotation check, then read until no complete line
// is left, delivering each sealed batch before reading on.
func (w *Watcher) process(ctx context.Context) error {
	if err := w.detectRotation(ctx); err != nil {
		return err
	}

	for ctx.Err() == nil {
		line, ok, err := w.state.reader.ReadLine()
		if err != nil {
			return fmt.Errorf("reading %s: %w", w.path, err)
		}
		if !ok {
			break
		}
		w.handleLine(ctx, line, w.now())
	}

	w.flush(ctx)
	return nil
}

func (w *Watcher) detectRotation(ctx context.Context) error {
	if !w.state.isOpen() {
		return w.awaitFile(ctx)
	}

	rot, err := w.state.checkRotation()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("Log file not found, waiting for it to reappear", "path", w.path)
		w.state.close()
		return w.awaitFile(ctx)
	case err != nil:
		return fmt.Errorf("checking %s: %w", w.path, err)
	}

	switch rot {
	case rotationTruncated:
		w.metrics.IncRotations()
		slog.Info("Log rotation detected, starting from beginning of file", "path", w.path)
	case rotationReplaced:
		w.metrics.IncReopens()
		slog.Info("Log file replaced, reopened from beginning", "path", w.path)
	}
	return nil
}

// awaitFile polls for the file until it can be opened, then positions the
// cursor at its start: everything in a recreated file is new content.
func (w *Watcher) awaitFile(ctx context.Context) error {
	ticker := time.NewTicker(w.filePollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if w.config.FileWaitTimeout > 0 {
		timer := time.NewTimer(w.config.FileWaitTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		err := w.state.open(false)
		if err == nil {
			w.metrics.IncReopens()
			slog.Info("Log file available, reading from beginning", "path", w.path)
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reopening %s: %w", w.path, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%s: %w", w.path, ErrFileWaitTimeout)
		case <-ticker.C:
		}
	}
}

func (w *Watcher) handleLine(ctx context.Context, line string, ts time.Time) {
	w.metrics.IncLinesRead()
	if !w.filter.Accept(line) {
		return
	}
	w.metrics.IncLinesAccepted()

	if sealed := w.assembler.Add(logging.LogEntry{Content: line, Timestamp: ts}); sealed != nil {
		w.deliver(ctx, sealed)
	}
}

func (w *Watcher) flush(ctx context.Context) {
	if sealed := w.assembler.Flush(); sealed != nil {
		w.deliver(ctx, sealed)
	}
}

func (w *Watcher) deliver(ctx context.Context, sealed *logging.Batch) {
	w.metrics.IncBatchesSealed()
	res := w.dispatcher.Deliver(ctx, sealed)
	w.metrics.AddDeliveryAttempts(res.Attempts)
	if res.Delivered() {
		w.metrics.IncBatchesDelivered()
		return
	}
	w.metrics.IncBatchesDropped()
}

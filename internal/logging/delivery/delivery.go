package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Chichichkin/logshipper/internal/logging"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
)

type Config struct {
	// RetryAttempts is the number of attempts after the first one fails.
	RetryAttempts int
	RetryDelay    time.Duration
}

// Result describes how delivery of one batch ended. Err is nil when the sink
// accepted the batch.
type Result struct {
	Attempts int
	Err      error
}

func (r Result) Delivered() bool {
	return r.Err == nil
}

// Dispatcher hands sealed batches to a sink one at a time, retrying failures
// with a fixed delay. It never returns before the batch is delivered or
// abandoned, which keeps batches ordered.
type Dispatcher struct {
	sink   logging.Sink
	config Config
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(sink logging.Sink, config Config) *Dispatcher {
	if config.RetryAttempts < 0 {
		config.RetryAttempts = 0
	}
	return &Dispatcher{
		sink:   sink,
		config: config,
		sleep:  sleepContext,
	}
}

func (d *Dispatcher) Deliver(ctx context.Context, batch *logging.Batch) Result {
	if batch == nil || batch.Len() == 0 {
		return Result{}
	}

	maxAttempts := d.config.RetryAttempts + 1
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if serr := d.sleep(ctx, d.config.RetryDelay); serr != nil {
				slog.Error("batch abandoned",
					"sink", d.sink.Name(), "batch", batch.ID, "entries", batch.Len(), "error", serr)
				return Result{Attempts: attempt - 1, Err: fmt.Errorf("waiting to retry: %w", serr)}
			}
		}

		err = d.sink.Ingest(ctx, batch.Entries)
		if err == nil {
			slog.Debug("batch delivered",
				"sink", d.sink.Name(), "batch", batch.ID, "entries", batch.Len(), "bytes", batch.Bytes, "attempts", attempt)
			return Result{Attempts: attempt}
		}

		slog.Warn("delivery attempt failed",
			"sink", d.sink.Name(), "batch", batch.ID, "attempt", attempt, "max_attempts", maxAttempts, "error", err)

		if logging.IsPermanent(err) {
			slog.Error("batch dropped, sink rejected it",
				"sink", d.sink.Name(), "batch", batch.ID, "entries", batch.Len(), "error", err)
			return Result{Attempts: attempt, Err: err}
		}
	}

	slog.Error("batch dropped after retries exhausted",
		"sink", d.sink.Name(), "batch", batch.ID, "entries", batch.Len(), "attempts", maxAttempts, "error", err)
	return Result{Attempts: maxAttempts, Err: fmt.Errorf("failed to deliver batch after %d attempts: %w", maxAttempts, err)}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/hpcloud/tail"
)

// pollIdle is how long poll mode waits for another line before treating the
// input as exhausted and flushing the open batch.
const pollIdle = 100 * time.Millisecond

// runPoll follows the file by polling, for filesystems that deliver no
// change notifications. The tail library reopens the file on truncation and
// on delete and recreate.
func (w *Watcher) runPoll(ctx context.Context) error {
	// a file that appears after startup is all new content, so read it from 0
	var location *tail.SeekInfo
	_, err := w.state.fs.Stat(w.path)
	switch {
	case err == nil:
		location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("Log file does not exist yet, waiting for it", "path", w.path)
	default:
		return fmt.Errorf("checking %s: %w", w.path, err)
	}

	t, err := tail.TailFile(w.path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		Poll:      true,
		MustExist: false,
		Location:  location,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail file %s: %w", w.path, err)
	}
	defer func() {
		// the tail goroutine blocks sending lines nobody reads; drain until
		// it closes the channel so Stop can return
		go func() {
			for range t.Lines {
			}
		}()
		if err := t.Stop(); err != nil {
			slog.Warn("Error stopping file follower", "path", w.path, "error", err)
		}
		t.Cleanup()
	}()

	slog.Info("Started watching for new content", "path", w.path, "mode", FollowPoll)

	idle := time.NewTimer(pollIdle)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-t.Lines:
			if !ok {
				if err := t.Wait(); err != nil {
					return fmt.Errorf("tailing %s: %w", w.path, err)
				}
				return nil
			}
			if line == nil {
				continue
			}
			if line.Err != nil {
				slog.Warn("Error reading line", "path", w.path, "error", line.Err)
				continue
			}
			w.handleLine(ctx, line.Text, line.Time)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(pollIdle)

		case <-idle.C:
			w.flush(ctx)
			idle.Reset(pollIdle)
		}
	}
}

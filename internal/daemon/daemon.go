package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"
)

type Config struct {
	LogPath       string
	BatchSize     int
	MaxBatchBytes int
	// nil or empty accepts every non-blank line
	Filter     []string
	FollowMode string
	// If > 0, give up waiting for a deleted file after this long
	FileWaitTimeout time.Duration
	// If > 0, log a metrics summary at this interval
	MetricsInterval time.Duration
	// defaults to the OS filesystem
	Fs afero.Fs
}

// LogDaemonService runs one Watcher plus its metrics reporter.
type LogDaemonService struct {
	config        Config
	watcher       *Watcher
	metrics       *Metrics
	subServicesWg sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc

	startOnce sync.Once
	done      chan struct{}
	err       error
}

func NewLogDaemonService(ctx context.Context, config Config, dispatcher Deliverer) (*LogDaemonService, error) {
	nCtx, cancel := context.WithCancel(ctx)

	metrics := &Metrics{}
	watcher, err := NewWatcher(config, dispatcher, metrics)
	if err != nil {
		cancel()
		return nil, err
	}

	return &LogDaemonService{
		config:  config,
		watcher: watcher,
		metrics: metrics,
		ctx:     nCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

func (s *LogDaemonService) Start() {
	s.startOnce.Do(s.start)
}

func (s *LogDaemonService) start() {
	slog.Info("Starting log shipper",
		"path", s.config.LogPath,
		"batch_size", s.config.BatchSize,
		"max_batch_bytes", s.config.MaxBatchBytes,
		"follow_mode", s.config.FollowMode)

	go func() {
		defer close(s.done)
		s.err = s.watcher.Run(s.ctx)
		if s.err != nil {
			slog.Error("Watch loop stopped", "path", s.config.LogPath, "error", s.err)
		}
		s.cancel()
	}()

	if s.config.MetricsInterval > 0 {
		s.subServicesWg.Add(1)
		go s.metricsReporter()
	}
}

func (s *LogDaemonService) Stop() {
	slog.Info("Stopping log shipper...")
	s.cancel()
	// a service that never started has no watch loop to close done
	s.startOnce.Do(func() { close(s.done) })
	<-s.done
	s.subServicesWg.Wait()
	s.reportMetrics()
	slog.Info("Log shipper stopped")
}

// Done is closed when the watch loop has exited, on its own or after Stop.
func (s *LogDaemonService) Done() <-chan struct{} {
	return s.done
}

// Err is the watch loop's exit error. Valid after Done is closed.
func (s *LogDaemonService) Err() error {
	<-s.done
	return s.err
}

func (s *LogDaemonService) Metrics() Metrics {
	return s.metrics.GetMetricsStamp()
}

func (s *LogDaemonService) metricsReporter() {
	defer s.subServicesWg.Done()

	ticker := time.NewTicker(s.config.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportMetrics()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *LogDaemonService) reportMetrics() {
	m := s.metrics.GetMetricsStamp()
	slog.Info("Metrics",
		"lines_read", m.LinesRead,
		"lines_accepted", m.LinesAccepted,
		"batches_sealed", m.BatchesSealed,
		"batches_delivered", m.BatchesDelivered,
		"batches_dropped", m.BatchesDropped,
		"drop_rate_pct", int(s.metrics.GetDropRate()*100),
		"delivery_attempts", m.DeliveryAttempts,
		"rotations", m.Rotations,
		"reopens", m.Reopens)
}

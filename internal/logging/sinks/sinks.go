// Package sinks builds the single Sink a run delivers to.
package sinks

import (
	"fmt"

	"github.com/Chichichkin/logshipper/internal/config"
	"github.com/Chichichkin/logshipper/internal/logging"
	"github.com/Chichichkin/logshipper/internal/logging/axiom"
	"github.com/Chichichkin/logshipper/internal/logging/betterstack"
	"github.com/Chichichkin/logshipper/internal/logging/datadog"
	"github.com/Chichichkin/logshipper/internal/logging/httpsink"
	"github.com/Chichichkin/logshipper/internal/logging/loki"
)

// New validates cfg and constructs the vendor sink it selects. logPath is
// used by sinks that label streams with the tailed file.
func New(cfg config.LogServiceConfig, logPath string) (logging.Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := httpsink.New(
		httpsink.WithTimeout(cfg.Timeout.Duration),
		httpsink.WithGzip(cfg.Compress),
	)

	switch cfg.Service {
	case config.ServiceAxiom:
		return axiom.NewSender(cfg.APIKey, cfg.Dataset, cfg.IngestionURL, client), nil
	case config.ServiceBetterStack:
		return betterstack.NewSender(cfg.APIKey, cfg.IngestionURL, client), nil
	case config.ServiceDatadog:
		return datadog.NewSender(cfg.APIKey, cfg.IngestionURL, cfg.Dataset, client), nil
	case config.ServiceLoki:
		return loki.NewLokiSender(cfg.IngestionURL, cfg.APIKey, logPath, client), nil
	default:
		return nil, fmt.Errorf("unsupported log service %q", cfg.Service)
	}
}

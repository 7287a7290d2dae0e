package datadog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Chichichkin/logshipper/internal/logging"
	"github.com/Chichichkin/logshipper/internal/logging/httpsink"
)

const source = "logshipper"

type Sender struct {
	apiKey       string
	ingestionURL string
	hostname     string
	service      string
	client       *httpsink.Client
}

// Log is one element of the Datadog logs intake array.
type Log struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"ddsource"`
	Hostname  string `json:"hostname,omitempty"`
	Service   string `json:"service,omitempty"`
}

func NewSender(apiKey, ingestionURL, service string, client *httpsink.Client) *Sender {
	hostname, _ := os.Hostname()
	return &Sender{
		apiKey:       apiKey,
		ingestionURL: ingestionURL,
		hostname:     hostname,
		service:      service,
		client:       client,
	}
}

func (s *Sender) Name() string {
	return "datadog"
}

func (s *Sender) Ingest(ctx context.Context, entries []logging.LogEntry) error {
	logs := make([]Log, 0, len(entries))
	for _, entry := range entries {
		logs = append(logs, Log{
			Message:   entry.Content,
			Timestamp: entry.Timestamp.UTC().Format(time.RFC3339Nano),
			Source:    source,
			Hostname:  s.hostname,
			Service:   s.service,
		})
	}

	headers := map[string]string{"DD-API-KEY": s.apiKey}
	if err := s.client.PostJSON(ctx, s.ingestionURL, headers, logs, nil); err != nil {
		return fmt.Errorf("datadog ingest: %w", err)
	}
	return nil
}

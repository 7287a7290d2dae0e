package betterstack

import (
	"context"
	"fmt"
	"time"

	"github.com/Chichichkin/logshipper/internal/logging"
	"github.com/Chichichkin/logshipper/internal/logging/httpsink"
)

type Sender struct {
	apiKey       string
	ingestionURL string
	client       *httpsink.Client
}

// Log uses "dt" so Better Stack takes the read time as the event time.
type Log struct {
	Message string `json:"message"`
	Dt      string `json:"dt"`
}

func NewSender(apiKey, ingestionURL string, client *httpsink.Client) *Sender {
	return &Sender{
		apiKey:       apiKey,
		ingestionURL: ingestionURL,
		client:       client,
	}
}

func (s *Sender) Name() string {
	return "betterstack"
}

func (s *Sender) Ingest(ctx context.Context, entries []logging.LogEntry) error {
	logs := make([]Log, 0, len(entries))
	for _, entry := range entries {
		logs = append(logs, Log{
			Message: entry.Content,
			Dt:      entry.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}

	headers := map[string]string{"Authorization": "Bearer " + s.apiKey}
	if err := s.client.PostJSON(ctx, s.ingestionURL, headers, logs, nil); err != nil {
		return fmt.Errorf("betterstack ingest: %w", err)
	}
	return nil
}

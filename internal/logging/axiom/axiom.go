package axiom

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Chichichkin/logshipper/internal/logging"
	"github.com/Chichichkin/logshipper/internal/logging/httpsink"
)

const DefaultURL = "https://api.axiom.co"

type Sender struct {
	token   string
	dataset string
	baseURL string
	client  *httpsink.Client
}

type Event struct {
	Time    string `json:"_time"`
	Message string `json:"message"`
}

// IngestStatus is the body Axiom returns for an accepted ingest request.
type IngestStatus struct {
	Ingested int `json:"ingested"`
	Failed   int `json:"failed"`
	Failures []struct {
		Error string `json:"error"`
	} `json:"failures"`
}

// NewSender ingests into dataset. baseURL may be empty to use the public
// Axiom endpoint.
func NewSender(token, dataset, baseURL string, client *httpsink.Client) *Sender {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Sender{
		token:   token,
		dataset: dataset,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

func (s *Sender) Name() string {
	return "axiom"
}

func (s *Sender) Ingest(ctx context.Context, entries []logging.LogEntry) error {
	events := make([]Event, 0, len(entries))
	for _, entry := range entries {
		events = append(events, Event{
			Time:    entry.Timestamp.UTC().Format(time.RFC3339Nano),
			Message: entry.Content,
		})
	}

	endpoint := fmt.Sprintf("%s/v1/datasets/%s/ingest", s.baseURL, url.PathEscape(s.dataset))
	headers := map[string]string{"Authorization": "Bearer " + s.token}

	var status IngestStatus
	if err := s.client.PostJSON(ctx, endpoint, headers, events, &status); err != nil {
		return fmt.Errorf("axiom ingest: %w", err)
	}

	// rows already ingested would be duplicated by a retry, so partial
	// failures are reported but the batch counts as delivered
	if status.Failed > 0 {
		reason := ""
		if len(status.Failures) > 0 {
			reason = status.Failures[0].Error
		}
		slog.Warn("axiom rejected some events",
			"dataset", s.dataset, "ingested", status.Ingested, "failed", status.Failed, "reason", reason)
	}
	return nil
}

package loki

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Chichichkin/logshipper/internal/logging"
	"github.com/Chichichkin/logshipper/internal/logging/httpsink"
)

const pushPath = "/loki/api/v1/push"

type Sender struct {
	baseURL string
	apiKey  string
	labels  map[string]string
	client  *httpsink.Client
}

type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

type Payload struct {
	Streams []Stream `json:"streams"`
}

// NewLokiSender pushes to baseURL. apiKey is optional and sent as a bearer
// token when set. logPath labels the stream with the tailed file's name.
func NewLokiSender(baseURL, apiKey, logPath string, client *httpsink.Client) *Sender {
	hostname, _ := os.Hostname()
	return &Sender{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		labels: map[string]string{
			"job":      "logshipper",
			"host":     hostname,
			"filename": filepath.Base(logPath),
		},
		client: client,
	}
}

func (ls *Sender) Name() string {
	return "loki"
}

func (ls *Sender) Ingest(ctx context.Context, entries []logging.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	headers := map[string]string{}
	if ls.apiKey != "" {
		headers["Authorization"] = "Bearer " + ls.apiKey
	}

	if err := ls.client.PostJSON(ctx, ls.baseURL+pushPath, headers, ls.createPayload(entries), nil); err != nil {
		return fmt.Errorf("loki push: %w", err)
	}
	return nil
}

func (ls *Sender) createPayload(entries []logging.LogEntry) Payload {
	stream := Stream{
		Stream: ls.labels,
		Values: make([][2]string, 0, len(entries)),
	}
	for _, entry := range entries {
		timestamp := fmt.Sprintf("%d", entry.Timestamp.UnixNano())
		stream.Values = append(stream.Values, [2]string{timestamp, entry.Content})
	}
	return Payload{Streams: []Stream{stream}}
}

package testutils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Chichichkin/logshipper/internal/logging"
)

// MockSink records every Ingest call. The first FailFirst calls fail, and
// every call fails while ShouldFail is set.
type MockSink struct {
	SentBatches [][]logging.LogEntry
	mu          sync.Mutex
	ShouldFail  bool
	FailFirst   int
	Err         error
	Delay       time.Duration
	calls       int
}

func (m *MockSink) Name() string {
	return "mock"
}

func (m *MockSink) Ingest(ctx context.Context, entries []logging.LogEntry) error {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.ShouldFail || m.calls <= m.FailFirst {
		if m.Err != nil {
			return m.Err
		}
		return fmt.Errorf("mock send failed")
	}

	m.SentBatches = append(m.SentBatches, entries)
	return nil
}

func (m *MockSink) SetShouldFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShouldFail = fail
}

func (m *MockSink) GetSentBatches() [][]logging.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]logging.LogEntry, len(m.SentBatches))
	copy(out, m.SentBatches)
	return out
}

// GetSentContents flattens delivered batches into their line contents, in order.
func (m *MockSink) GetSentContents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, b := range m.SentBatches {
		for _, e := range b {
			out = append(out, e.Content)
		}
	}
	return out
}

func (m *MockSink) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// CreateTempLog writes content to a fresh log file inside a temp dir and
// returns its path.
func CreateTempLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create log file: %v", err)
	}
	return path
}

// AppendLines appends lines to path in a single write, each terminated with
// a newline.
func AppendLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	AppendRaw(t, path, strings.Join(lines, "\n")+"\n")
}

func AppendRaw(t *testing.T, path string, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(data); err != nil {
		t.Fatalf("append: %v", err)
	}
}

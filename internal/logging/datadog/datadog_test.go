package datadog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chichichkin/logshipper/internal/logging"
	"github.com/Chichichkin/logshipper/internal/logging/httpsink"
)

func TestSender_Ingest(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/logs", r.URL.Path)
		assert.Equal(t, "dd-key", r.Header.Get("DD-API-KEY"))

		var logs []Log
		require.NoError(t, json.NewDecoder(r.Body).Decode(&logs))
		require.Len(t, logs, 2)
		assert.Equal(t, "ERROR boom", logs[0].Message)
		assert.Equal(t, "ERROR again", logs[1].Message)
		assert.Equal(t, "2024-05-01T12:00:00Z", logs[0].Timestamp)
		assert.Equal(t, "logshipper", logs[0].Source)
		assert.Equal(t, "validator", logs[0].Service)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := NewSender("dd-key", server.URL+"/api/v2/logs", "validator", httpsink.New())
	err := sender.Ingest(context.Background(), []logging.LogEntry{
		{Content: "ERROR boom", Timestamp: ts},
		{Content: "ERROR again", Timestamp: ts},
	})
	assert.NoError(t, err)
}

func TestSender_Forbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	sender := NewSender("bad", server.URL, "", httpsink.New())
	err := sender.Ingest(context.Background(), []logging.LogEntry{{Content: "x", Timestamp: time.Now()}})
	require.Error(t, err)
	assert.True(t, logging.IsPermanent(err))
	assert.Equal(t, "datadog", sender.Name())
}

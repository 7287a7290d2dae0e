package httpsink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chichichkin/logshipper/internal/logging"
)

func TestPostJSON_SendsHeadersAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Key"))
		assert.Empty(t, r.Header.Get("Content-Encoding"))

		var payload []map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "hello", payload[0]["message"])

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	c := New()
	err := c.PostJSON(context.Background(), server.URL, map[string]string{"X-Key": "secret"},
		[]map[string]string{{"message": "hello"}}, nil)
	assert.NoError(t, err)
}

func TestPostJSON_Gzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip", r.Header.Get("Content-Encoding"))

		zr, err := gzip.NewReader(r.Body)
		require.NoError(t, err)
		defer zr.Close()

		var payload []map[string]string
		require.NoError(t, json.NewDecoder(zr).Decode(&payload))
		assert.Equal(t, "compressed", payload[0]["message"])

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(WithGzip(true))
	err := c.PostJSON(context.Background(), server.URL, nil, []map[string]string{{"message": "compressed"}}, nil)
	assert.NoError(t, err)
}

func TestPostJSON_DecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ingested": 2, "failed": 0}`))
	}))
	defer server.Close()

	var status struct {
		Ingested int `json:"ingested"`
		Failed   int `json:"failed"`
	}
	err := New().PostJSON(context.Background(), server.URL, nil, []int{1, 2}, &status)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Ingested)
}

func TestPostJSON_StatusClassification(t *testing.T) {
	cases := []struct {
		status    int
		permanent bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusRequestTimeout, false},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte("nope"))
		}))

		err := New().PostJSON(context.Background(), server.URL, nil, []int{1}, nil)
		server.Close()

		require.Error(t, err)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, tc.status, statusErr.StatusCode)
		assert.Equal(t, "nope", statusErr.Body)
		assert.Equal(t, tc.permanent, logging.IsPermanent(err), "status %d", tc.status)
	}
}

func TestPostJSON_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := New(WithTimeout(time.Second)).PostJSON(context.Background(), url, nil, []int{1}, nil)
	require.Error(t, err)
	assert.False(t, logging.IsPermanent(err))
}

func TestPostJSON_UnencodablePayloadIsPermanent(t *testing.T) {
	err := New().PostJSON(context.Background(), "http://localhost", nil, make(chan int), nil)
	require.Error(t, err)
	assert.True(t, logging.IsPermanent(err))
}

package logging

import (
	"context"
	"errors"
	"time"
)

type LogEntry struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Batch is a sealed, ordered group of entries handed to a Sink in one call.
type Batch struct {
	ID      string
	Entries []LogEntry
	Bytes   int
}

func (b *Batch) Len() int {
	return len(b.Entries)
}

// Sink delivers a batch to one ingestion vendor. Implementations encode the
// entries into the vendor's wire format and report success or failure only.
type Sink interface {
	Name() string
	Ingest(ctx context.Context, entries []LogEntry) error
}

// PermanentError marks a delivery failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

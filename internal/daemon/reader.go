package daemon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

const (
	minReadBuffer = 4 << 10
	maxReadBuffer = 16 << 20
)

// lineReader yields complete lines from file starting at a byte cursor.
// offset always points just past the last complete line returned.
type lineReader struct {
	file   afero.File
	reader *bufio.Reader
	offset int64
}

func newLineReader(file afero.File, offset int64, bufSize int) (*lineReader, error) {
	if bufSize < minReadBuffer {
		bufSize = minReadBuffer
	}
	if bufSize > maxReadBuffer {
		bufSize = maxReadBuffer
	}
	r := &lineReader{
		file:   file,
		reader: bufio.NewReaderSize(file, bufSize),
	}
	if err := r.seek(offset); err != nil {
		return nil, err
	}
	return r, nil
}

// ReadLine returns the next complete line without its terminator. ok is
// false when no complete line is available yet; a trailing partial line is
// left unconsumed and returned once its newline is written.
func (r *lineReader) ReadLine() (line string, ok bool, err error) {
	raw, err := r.reader.ReadString('\n')
	if err == nil {
		r.offset += int64(len(raw))
		return trimNewline(raw), true, nil
	}
	if !errors.Is(err, io.EOF) {
		return "", false, err
	}
	if raw != "" {
		if err := r.seek(r.offset); err != nil {
			return "", false, err
		}
	}
	return "", false, nil
}

// Reset moves the cursor back to the start of the file.
func (r *lineReader) Reset() error {
	return r.seek(0)
}

func (r *lineReader) Offset() int64 {
	return r.offset
}

func (r *lineReader) seek(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", offset, err)
	}
	r.reader.Reset(r.file)
	r.offset = offset
	return nil
}

func trimNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

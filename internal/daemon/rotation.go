package daemon

import (
	"os"

	"github.com/spf13/afero"
)

type rotation int

const (
	rotationNone rotation = iota
	// truncated in place: same file, cursor moved back to 0
	rotationTruncated
	// path now names a different file: reopened at 0
	rotationReplaced
)

// watchState is the open handle and cursor for one watched file. It is owned
// by a single Watcher and never shared.
type watchState struct {
	fs       afero.Fs
	path     string
	bufSize  int
	file     afero.File
	reader   *lineReader
	info     os.FileInfo
	lastSize int64
}

func newWatchState(fs afero.Fs, path string, bufSize int) *watchState {
	return &watchState{
		fs:      fs,
		path:    path,
		bufSize: bufSize,
	}
}

// open replaces the current handle with a fresh one, positioned at end of
// file when atEnd is set and at the start otherwise.
func (s *watchState) open(atEnd bool) error {
	f, err := s.fs.Open(s.path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	var offset int64
	if atEnd {
		offset = info.Size()
	}
	reader, err := newLineReader(f, offset, s.bufSize)
	if err != nil {
		f.Close()
		return err
	}

	s.close()
	s.file = f
	s.reader = reader
	s.info = info
	s.lastSize = info.Size()
	return nil
}

func (s *watchState) isOpen() bool {
	return s.file != nil
}

func (s *watchState) close() {
	if s.file != nil {
		s.file.Close()
	}
	s.file = nil
	s.reader = nil
}

// checkRotation compares the file at path with the open handle and fixes the
// cursor up. A missing file is returned as the Stat error untouched so the
// caller can wait for it.
func (s *watchState) checkRotation() (rotation, error) {
	info, err := s.fs.Stat(s.path)
	if err != nil {
		return rotationNone, err
	}

	if !sameFile(s.info, info) {
		if err := s.open(false); err != nil {
			return rotationNone, err
		}
		return rotationReplaced, nil
	}

	size := info.Size()
	if size < s.lastSize || size < s.reader.Offset() {
		if err := s.reader.Reset(); err != nil {
			return rotationNone, err
		}
		s.lastSize = size
		return rotationTruncated, nil
	}

	s.lastSize = size
	return rotationNone, nil
}

// sameFile treats files as identical when the filesystem exposes no
// identity to compare.
func sameFile(a, b os.FileInfo) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Sys() == nil || b.Sys() == nil {
		return true
	}
	return os.SameFile(a, b)
}

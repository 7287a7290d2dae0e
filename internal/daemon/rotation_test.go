package daemon

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRotation_Growth(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/app.log", []byte("old\n"), 0644))

	s := newWatchState(mem, "/app.log", 64)
	require.NoError(t, s.open(true))
	defer s.close()

	memAppend(t, mem, "/app.log", "grown\n")

	rot, err := s.checkRotation()
	require.NoError(t, err)
	assert.Equal(t, rotationNone, rot)
	assert.Equal(t, int64(10), s.lastSize)
	assert.Equal(t, []string{"grown"}, readAll(t, s.reader))
}

func TestCheckRotation_TruncationReadsFromStart(t *testing.T) {
	mem := afero.NewMemMapFs()
	original := strings.Repeat("0123456789abcdefghi\n", 5)
	require.Len(t, original, 100)
	require.NoError(t, afero.WriteFile(mem, "/app.log", []byte(original), 0644))

	s := newWatchState(mem, "/app.log", 64)
	require.NoError(t, s.open(true))
	defer s.close()
	assert.Equal(t, int64(100), s.reader.Offset())

	// truncate to 10 bytes, then append
	require.NoError(t, afero.WriteFile(mem, "/app.log", []byte("new first\n"), 0644))
	memAppend(t, mem, "/app.log", "appended\n")

	rot, err := s.checkRotation()
	require.NoError(t, err)
	assert.Equal(t, rotationTruncated, rot)
	assert.Equal(t, int64(0), s.reader.Offset())
	assert.Equal(t, []string{"new first", "appended"}, readAll(t, s.reader))
}

func TestCheckRotation_TruncatedAfterReading(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/app.log", []byte("aaaa\n"), 0644))

	s := newWatchState(mem, "/app.log", 64)
	require.NoError(t, s.open(false))
	defer s.close()

	memAppend(t, mem, "/app.log", "bbbbbbbb\n")
	_, err := s.checkRotation()
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaa", "bbbbbbbb"}, readAll(t, s.reader))

	// lastSize is 14 and cursor 14; new file is smaller than both
	require.NoError(t, afero.WriteFile(mem, "/app.log", []byte("c\n"), 0644))
	rot, err := s.checkRotation()
	require.NoError(t, err)
	assert.Equal(t, rotationTruncated, rot)
	assert.Equal(t, []string{"c"}, readAll(t, s.reader))
}

func TestCheckRotation_MissingFile(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/app.log", []byte("x\n"), 0644))

	s := newWatchState(mem, "/app.log", 64)
	require.NoError(t, s.open(true))
	defer s.close()

	require.NoError(t, mem.Remove("/app.log"))

	_, err := s.checkRotation()
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCheckRotation_ReplacedFileOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("before\n"), 0644))

	s := newWatchState(afero.NewOsFs(), path, 64)
	require.NoError(t, s.open(true))
	defer s.close()

	// keep the old inode alive so the new file cannot reuse its number
	keep, err := os.Open(path)
	require.NoError(t, err)
	defer keep.Close()

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.WriteFile(path, []byte("after recreate with more bytes\n"), 0644))

	rot, err := s.checkRotation()
	require.NoError(t, err)
	assert.Equal(t, rotationReplaced, rot)
	assert.Equal(t, []string{"after recreate with more bytes"}, readAll(t, s.reader))
}

func TestSameFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, nil, 0644))
	require.NoError(t, os.WriteFile(b, nil, 0644))

	ia, err := os.Stat(a)
	require.NoError(t, err)
	ia2, err := os.Stat(a)
	require.NoError(t, err)
	ib, err := os.Stat(b)
	require.NoError(t, err)

	assert.True(t, sameFile(ia, ia2))
	assert.False(t, sameFile(ia, ib))
	assert.False(t, sameFile(nil, ia))

	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/m", nil, 0644))
	im, err := mem.Stat("/m")
	require.NoError(t, err)
	assert.True(t, sameFile(im, im))
}

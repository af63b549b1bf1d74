package tagscan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruckert/canto/internal/logger"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestScanFolderReturnsTracksInNameOrder(t *testing.T) {
	dir := t.TempDir()

	// Untagged junk still counts as a track slot
	writeFile(t, dir, "02 - second.mp3", []byte("not really audio"))
	writeFile(t, dir, "01 - first.mp3", []byte("not really audio"))
	writeFile(t, dir, "cover.jpg", []byte("jpeg"))
	writeFile(t, dir, "notes.txt", []byte("liner notes"))

	s := NewScanner(logger.NewTestLogger())

	tracks, err := s.ScanFolder(dir)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, "01 - first", tracks[0].Title)
	assert.Equal(t, "02 - second", tracks[1].Title)
	for _, track := range tracks {
		assert.False(t, track.Found)
		assert.Equal(t, track.Path, track.ID)
	}
}

func TestScanFolderMissingDir(t *testing.T) {
	s := NewScanner(logger.NewTestLogger())

	_, err := s.ScanFolder(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestReadTrackMissingFileIsPlaceholder(t *testing.T) {
	s := NewScanner(logger.NewTestLogger())

	path := filepath.Join(t.TempDir(), "gone.mp3")
	track, err := s.ReadTrack(path)
	require.NoError(t, err)

	assert.False(t, track.Found)
	assert.Equal(t, path, track.ID)
	assert.Equal(t, "gone", track.Title)
}

func TestReadTrackUntaggedFileFallsBackToFilename(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "03 - untitled.mp3", []byte("garbage bytes"))

	s := NewScanner(logger.NewTestLogger())

	track, err := s.ReadTrack(path)
	require.NoError(t, err)

	assert.False(t, track.Found)
	assert.Equal(t, "03 - untitled", track.Title)
	assert.Equal(t, path, track.Path)
}

// Package tagscan reads track metadata from audio files on disk.
// An album folder is scanned in file-name order; files whose tags cannot
// be read still yield a placeholder track so the album keeps its shape.
package tagscan

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"

	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/ports"
)

// Audio file extensions considered part of an album.
var audioFormats = []string{
	".mp3", ".m4a", ".flac", ".ogg",
}

// isAudioFile checks if the file is a supported audio format.
func isAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, audioExt := range audioFormats {
		if ext == audioExt {
			return true
		}
	}
	return false
}

// Scanner extracts track metadata using embedded tags.
//
// The track ID is the file path: the scanner never invents identifiers,
// so rescanning the same folder yields the same documents.
type Scanner struct {
	logger *slog.Logger
}

// NewScanner creates a metadata scanner.
func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// ScanFolder reads the audio files of an album folder in name order.
// Unreadable files come back as Found=false placeholders rather than
// being omitted, so a damaged file still occupies its slot in the album.
func (s *Scanner) ScanFolder(path string) ([]domain.Track, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isAudioFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	tracks := make([]domain.Track, 0, len(names))
	for _, name := range names {
		trackPath := filepath.Join(path, name)
		track, err := s.ReadTrack(trackPath)
		if err != nil {
			s.logger.Warn("failed to read track metadata",
				slog.String("path", trackPath),
				slog.Any("error", err))
			track = placeholderTrack(trackPath)
		}
		tracks = append(tracks, track)
	}

	return tracks, nil
}

// ReadTrack extracts metadata for a single audio file. A file that exists
// but carries no readable tags yields a placeholder instead of an error;
// only filesystem failures propagate.
func (s *Scanner) ReadTrack(path string) (domain.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return placeholderTrack(path), nil
		}
		return domain.Track{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		// Present but untagged: keep the file, fall back to its name
		return placeholderTrack(path), nil
	}

	track := domain.Track{
		Entity: domain.Entity{ID: path},
		Path:   path,
		Found:  true,
		Artist: strings.TrimSpace(meta.Artist()),
		Title:  strings.TrimSpace(meta.Title()),
	}
	if track.Title == "" {
		track.Title = titleFromFilename(path)
	}
	if number, _ := meta.Track(); number > 0 {
		track.Number = number
	}

	return track, nil
}

// placeholderTrack represents a file whose metadata could not be read.
func placeholderTrack(path string) domain.Track {
	return domain.Track{
		Entity: domain.Entity{ID: path},
		Path:   path,
		Found:  false,
		Title:  titleFromFilename(path),
	}
}

// titleFromFilename derives a display title from the file name, without
// its extension.
func titleFromFilename(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Verify that Scanner implements the AlbumScanner interface
var _ ports.AlbumScanner = (*Scanner)(nil)

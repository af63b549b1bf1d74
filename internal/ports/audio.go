// Package ports defines the AudioStream interface for audio playback abstraction.
package ports

import (
	"github.com/ruckert/canto/internal/domain"
)

// AudioStream is the single audio output of the process. At most one
// source is loaded at a time: Load implicitly stops and unloads whatever
// was playing before. Decoding and output are delegated to the
// implementation; the player only drives transport state.
//
// Thread-safety: implementations must be safe for concurrent use, as the
// player's tick loop polls status while transport calls arrive from the
// request surface.
type AudioStream interface {
	// Load replaces the current source with the file at path and leaves
	// the stream paused at position zero. Returns the source duration
	// in seconds, or an error when the file cannot be opened or decoded.
	Load(path string) (float64, error)

	// Play starts or resumes the loaded source.
	Play() error

	// Pause suspends the loaded source, preserving its position.
	Pause() error

	// Stop unloads the current source and returns the stream to idle.
	Stop() error

	// Seek moves the playback position, clamped to [0, duration].
	Seek(seconds float64) error

	// SetVolume sets the output volume (0.0 to 1.0).
	SetVolume(volume float64) error

	// Status reports the stream state. StreamEnded is sticky after the
	// source plays to its end, until the next Load or Stop.
	Status() domain.StreamStatus

	// Position returns the playback position in seconds.
	Position() float64

	// Duration returns the loaded source duration in seconds (0 when idle).
	Duration() float64
}

// LibraryResolver resolves playback coordinates into entities. The
// player depends on this narrow view of the library rather than on the
// full service.
type LibraryResolver interface {
	// GetAlbumFull resolves an album and its track documents, scanning
	// the album folder when the track list has not been populated yet.
	GetAlbumFull(id string) (domain.Album, []domain.Track, error)

	// GetPlaylist returns a playlist by ID (zero playlist when absent).
	GetPlaylist(id string) (domain.Playlist, error)
}

// AlbumScanner extracts track metadata from the filesystem.
type AlbumScanner interface {
	// ScanFolder reads the audio files of an album folder in name
	// order. Files whose metadata cannot be read are returned as
	// placeholders with Found=false rather than omitted.
	ScanFolder(path string) ([]domain.Track, error)

	// ReadTrack extracts metadata for a single audio file.
	ReadTrack(path string) (domain.Track, error)
}

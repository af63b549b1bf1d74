// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the Canto music library.
package domain

import (
	"strings"
	"time"
)

// Entity is the base for every persisted record. It carries the document
// identity, the opaque revision token used for optimistic concurrency, and
// the soft-delete flag.
//
// A write must carry the revision last observed for its ID or it is
// rejected with ErrConflict.
type Entity struct {
	// ID is the unique, stable document identifier
	ID string `json:"_id"`

	// Rev is the opaque revision token assigned by the store on every
	// successful write
	Rev string `json:"_rev,omitempty"`

	// Deleted marks a tombstoned document; tombstones are excluded from
	// normal queries but not physically erased
	Deleted bool `json:"_deleted,omitempty"`
}

// DocID returns the document identifier.
func (e *Entity) DocID() string { return e.ID }

// DocRev returns the current revision token.
func (e *Entity) DocRev() string { return e.Rev }

// SetRev replaces the revision token.
func (e *Entity) SetRev(rev string) { e.Rev = rev }

// IsDeleted reports whether the document is a tombstone.
func (e *Entity) IsDeleted() bool { return e.Deleted }

// MarkDeleted turns the document into a tombstone.
func (e *Entity) MarkDeleted() { e.Deleted = true }

// IsEmpty reports whether the entity was absent from the store.
// Get returns a zero entity rather than an error for missing IDs.
func (e *Entity) IsEmpty() bool { return e.ID == "" }

// AlbumType classifies a release.
type AlbumType string

// Album release types.
const (
	AlbumTypeAlbum       AlbumType = "album"
	AlbumTypeEP          AlbumType = "ep"
	AlbumTypeLive        AlbumType = "live"
	AlbumTypeCompilation AlbumType = "compilation"
	AlbumTypeRemix       AlbumType = "remix"
	AlbumTypeVarious     AlbumType = "various"
)

// ParseAlbumType maps a free-form string to an AlbumType, defaulting to
// a plain album for unrecognized values.
func ParseAlbumType(s string) AlbumType {
	switch AlbumType(strings.ToLower(strings.TrimSpace(s))) {
	case AlbumTypeEP:
		return AlbumTypeEP
	case AlbumTypeLive:
		return AlbumTypeLive
	case AlbumTypeCompilation:
		return AlbumTypeCompilation
	case AlbumTypeRemix:
		return AlbumTypeRemix
	case AlbumTypeVarious:
		return AlbumTypeVarious
	default:
		return AlbumTypeAlbum
	}
}

// Album represents one imported release: a filesystem folder of audio
// files plus its metadata. Track membership is kept as an ordered list of
// track IDs; the track documents live in their own collection.
type Album struct {
	Entity

	// Artist is the release artist
	Artist string `json:"artist"`

	// Title is the release title
	Title string `json:"title"`

	// Year is the release year (0 when unknown)
	Year int `json:"year,omitempty"`

	// Type is the release type (album, ep, live, ...)
	Type AlbumType `json:"type"`

	// CreatedAt is when the album was imported into the library
	CreatedAt time.Time `json:"created"`

	// Path is the filesystem folder the album was imported from.
	// Unique among non-tombstoned albums, enforced by an existence
	// query before insert rather than by a storage constraint.
	Path string `json:"path"`

	// Tracks is the ordered list of track IDs belonging to the album
	Tracks []string `json:"tracks,omitempty"`
}

// Track represents a single audio file. The track ID is the file path,
// which keeps the album's track list and the track collection in step
// without a join table.
type Track struct {
	Entity

	// Path is the absolute path of the audio file
	Path string `json:"path"`

	// Found reports whether metadata extraction succeeded and the file
	// was present the last time it was read. Found=false tracks render
	// as placeholders and are excluded from playback and duration math.
	Found bool `json:"found"`

	// Artist is the performing artist
	Artist string `json:"artist"`

	// Title is the track title (falls back to the file name)
	Title string `json:"title"`

	// Number is the track number within the album (0 when unknown)
	Number int `json:"number,omitempty"`

	// Duration is the track length in seconds (0 when unknown)
	Duration float64 `json:"duration,omitempty"`
}

// Playlist is an ordered collection of album IDs. The same album may
// appear more than once.
type Playlist struct {
	Entity

	// Title is the playlist name, non-empty after trimming
	Title string `json:"title"`

	// CreatedAt is when the playlist was created
	CreatedAt time.Time `json:"created"`

	// AccessedAt is bumped on every save
	AccessedAt time.Time `json:"accessed"`

	// Albums is the ordered list of album IDs (duplicates allowed)
	Albums []string `json:"albums"`
}

// VariousArtistsID is the sentinel artist grouping compilation albums.
// It lives outside the persisted artist set.
const VariousArtistsID = "_various-artists"

// VariousArtistsName is the display name of the sentinel artist.
const VariousArtistsName = "Various Artists"

// Artist is a runtime aggregation over albums, not a persisted entity.
type Artist struct {
	// Name is the artist name (VariousArtistsName for the sentinel)
	Name string `json:"name"`

	// Count is the number of albums attributed to the artist
	Count int `json:"count"`
}

// StatEntry is one bucket of a grouped album count (per year, per type,
// per artist).
type StatEntry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// PlaybackStatus represents the player state machine position.
type PlaybackStatus int

const (
	// StatusIdle indicates no track is loaded
	StatusIdle PlaybackStatus = iota

	// StatusPaused indicates a track is loaded but not playing
	StatusPaused

	// StatusPlaying indicates playback is active
	StatusPlaying
)

// String returns a human-readable representation of the playback status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPaused:
		return "paused"
	case StatusPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// PlaybackIDs addresses a track through its playlist/album/track
// coordinates. TrackID may be empty, meaning the first track of the album.
type PlaybackIDs struct {
	PlaylistID string `json:"playlistId,omitempty"`
	AlbumID    string `json:"albumId"`
	TrackID    string `json:"trackId,omitempty"`
}

// PlaybackState is a snapshot of the player, safe to hand to observers.
type PlaybackState struct {
	// CurrentPlaylistID is the playlist the current album was played
	// from (empty when played directly)
	CurrentPlaylistID string

	// CurrentAlbumID is the album owning the current track (empty when idle)
	CurrentAlbumID string

	// CurrentTrackID is the loaded track (empty when idle)
	CurrentTrackID string

	// Status is the state machine position
	Status PlaybackStatus

	// Position is the playback position in seconds
	Position float64

	// Duration is the loaded track length in seconds
	Duration float64

	// Volume is the current volume (0.0 to 1.0)
	Volume float64
}

// StreamStatus is the state of the underlying single audio stream.
type StreamStatus int

const (
	// StreamIdle indicates no source is loaded
	StreamIdle StreamStatus = iota

	// StreamPaused indicates a source is loaded and suspended
	StreamPaused

	// StreamPlaying indicates the stream is producing audio
	StreamPlaying

	// StreamEnded indicates the loaded source played to its end
	StreamEnded
)

// String returns a human-readable representation of the stream status.
func (s StreamStatus) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamPaused:
		return "paused"
	case StreamPlaying:
		return "playing"
	case StreamEnded:
		return "ended"
	default:
		return "unknown"
	}
}

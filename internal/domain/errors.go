// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services and stores can return.
var (
	// ErrConflict is returned when a write carries a stale revision.
	// The caller should reload the entity and retry, or surface the
	// conflict; the store never silently merges.
	ErrConflict = errors.New("revision conflict: document was modified by another writer")

	// ErrAlbumNotFound is returned when a referenced album does not exist.
	ErrAlbumNotFound = errors.New("album not found")

	// ErrAlbumExists is returned when importing a folder that is already
	// in the library.
	ErrAlbumExists = errors.New("album already imported")

	// ErrAlbumEmpty is returned when an album resolves to no playable tracks.
	ErrAlbumEmpty = errors.New("album has no playable tracks")

	// ErrNoTrackLoaded is returned when a transport control requires a
	// loaded track and the player is idle.
	ErrNoTrackLoaded = errors.New("no track loaded")

	// ErrInvalidVolume is returned when the volume is out of range (0.0-1.0).
	ErrInvalidVolume = errors.New("invalid volume: must be between 0.0 and 1.0")

	// ErrStoreClosed is returned when an operation is attempted on a
	// closed document store.
	ErrStoreClosed = errors.New("document store is closed")

	// ErrUnknownMessage is returned by the message bus for a request
	// name no handler was registered for.
	ErrUnknownMessage = errors.New("unknown message name")
)

// PlaybackError carries the identity of a track the audio stream could
// not load or play. The player transitions to idle and surfaces the
// error; it never retries or skips on its own.
type PlaybackError struct {
	TrackID string // Offending track ID
	Path    string // File path handed to the stream
	Err     error  // Underlying stream error
}

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback failed for track %q: %v", e.TrackID, e.Err)
}

// Unwrap returns the underlying error.
func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// NewPlaybackError creates a new PlaybackError.
func NewPlaybackError(trackID, path string, err error) *PlaybackError {
	return &PlaybackError{TrackID: trackID, Path: path, Err: err}
}

// StoreError wraps a storage failure with the operation and collection it
// occurred in.
type StoreError struct {
	Op         string // Operation that failed (e.g., "save", "find")
	Collection string // Collection name (playlist, album, track)
	Err        error  // Underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s.%s failed: %v", e.Collection, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, collection string, err error) *StoreError {
	return &StoreError{Op: op, Collection: collection, Err: err}
}

// ValidationError represents an application-level validation failure,
// rejected before any write is attempted.
type ValidationError struct {
	Field   string // Field that failed validation
	Message string // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

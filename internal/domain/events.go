// Package domain defines events for the event-driven architecture.
// Events replace direct callbacks and enable loose coupling between components.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Playback events
	EventPlay          EventType = "player.play"
	EventPause         EventType = "player.pause"
	EventStop          EventType = "player.stop"
	EventTick          EventType = "player.tick"
	EventTrackChanged  EventType = "player.trackChanged"
	EventTrackEnded    EventType = "player.trackEnded"
	EventPlaybackError EventType = "player.error"
	EventVolumeChanged EventType = "player.volume"

	// Queue events
	EventQueueChanged EventType = "queue.changed"

	// Library events
	EventAlbumAdded    EventType = "library.albumAdded"
	EventAlbumsRemoved EventType = "library.albumsRemoved"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// PlayEvent is published when playback starts or resumes.
type PlayEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e PlayEvent) Type() EventType { return EventPlay }

// NewPlayEvent creates a new PlayEvent.
func NewPlayEvent(track Track) PlayEvent {
	return PlayEvent{baseEvent: newBaseEvent(), Track: track}
}

// PauseEvent is published when playback is paused.
type PauseEvent struct {
	baseEvent
	Track    Track
	Position float64 // Seconds
}

// Type returns the event type.
func (e PauseEvent) Type() EventType { return EventPause }

// NewPauseEvent creates a new PauseEvent.
func NewPauseEvent(track Track, position float64) PauseEvent {
	return PauseEvent{baseEvent: newBaseEvent(), Track: track, Position: position}
}

// StopEvent is published when the player unloads and returns to idle.
type StopEvent struct {
	baseEvent
}

// Type returns the event type.
func (e StopEvent) Type() EventType { return EventStop }

// NewStopEvent creates a new StopEvent.
func NewStopEvent() StopEvent {
	return StopEvent{baseEvent: newBaseEvent()}
}

// TickEvent is published periodically during playback.
type TickEvent struct {
	baseEvent
	Position float64 // Seconds
	Duration float64 // Seconds
}

// Type returns the event type.
func (e TickEvent) Type() EventType { return EventTick }

// NewTickEvent creates a new TickEvent.
func NewTickEvent(position, duration float64) TickEvent {
	return TickEvent{baseEvent: newBaseEvent(), Position: position, Duration: duration}
}

// TrackChangedEvent is published when a new track is loaded into the stream.
type TrackChangedEvent struct {
	baseEvent
	IDs   PlaybackIDs
	Track Track
	Album Album
}

// Type returns the event type.
func (e TrackChangedEvent) Type() EventType { return EventTrackChanged }

// NewTrackChangedEvent creates a new TrackChangedEvent.
func NewTrackChangedEvent(ids PlaybackIDs, track Track, album Album) TrackChangedEvent {
	return TrackChangedEvent{baseEvent: newBaseEvent(), IDs: ids, Track: track, Album: album}
}

// TrackEndedEvent is published when a track finishes playing naturally.
type TrackEndedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackEndedEvent) Type() EventType { return EventTrackEnded }

// NewTrackEndedEvent creates a new TrackEndedEvent.
func NewTrackEndedEvent(track Track) TrackEndedEvent {
	return TrackEndedEvent{baseEvent: newBaseEvent(), Track: track}
}

// PlaybackErrorEvent is published when the stream fails to load or play a
// track. The player is idle by the time subscribers observe it.
type PlaybackErrorEvent struct {
	baseEvent
	TrackID string
	Err     error
}

// Type returns the event type.
func (e PlaybackErrorEvent) Type() EventType { return EventPlaybackError }

// NewPlaybackErrorEvent creates a new PlaybackErrorEvent.
func NewPlaybackErrorEvent(trackID string, err error) PlaybackErrorEvent {
	return PlaybackErrorEvent{baseEvent: newBaseEvent(), TrackID: trackID, Err: err}
}

// VolumeChangedEvent is published when the volume changes.
type VolumeChangedEvent struct {
	baseEvent
	Volume float64 // 0.0 to 1.0
}

// Type returns the event type.
func (e VolumeChangedEvent) Type() EventType { return EventVolumeChanged }

// NewVolumeChangedEvent creates a new VolumeChangedEvent.
func NewVolumeChangedEvent(volume float64) VolumeChangedEvent {
	return VolumeChangedEvent{baseEvent: newBaseEvent(), Volume: volume}
}

// QueueChangedEvent is published whenever the queue contents change.
// CurrentRemoved is set when the change removed the album that was
// playing; the player reacts by unloading.
type QueueChangedEvent struct {
	baseEvent
	Queue          []string
	CurrentRemoved bool
}

// Type returns the event type.
func (e QueueChangedEvent) Type() EventType { return EventQueueChanged }

// NewQueueChangedEvent creates a new QueueChangedEvent.
func NewQueueChangedEvent(queue []string, currentRemoved bool) QueueChangedEvent {
	return QueueChangedEvent{baseEvent: newBaseEvent(), Queue: queue, CurrentRemoved: currentRemoved}
}

// AlbumAddedEvent is published when an album is imported into the library.
type AlbumAddedEvent struct {
	baseEvent
	Album Album
}

// Type returns the event type.
func (e AlbumAddedEvent) Type() EventType { return EventAlbumAdded }

// NewAlbumAddedEvent creates a new AlbumAddedEvent.
func NewAlbumAddedEvent(album Album) AlbumAddedEvent {
	return AlbumAddedEvent{baseEvent: newBaseEvent(), Album: album}
}

// AlbumsRemovedEvent is published after a library removal cascade completes.
type AlbumsRemovedEvent struct {
	baseEvent
	AlbumIDs []string
}

// Type returns the event type.
func (e AlbumsRemovedEvent) Type() EventType { return EventAlbumsRemoved }

// NewAlbumsRemovedEvent creates a new AlbumsRemovedEvent.
func NewAlbumsRemovedEvent(albumIDs []string) AlbumsRemovedEvent {
	return AlbumsRemovedEvent{baseEvent: newBaseEvent(), AlbumIDs: albumIDs}
}

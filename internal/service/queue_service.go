// Package service provides business logic for the Canto application.
package service

import (
	"log/slog"
	"sync"

	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/ports"
)

// QueueService manages the playback queue of album IDs.
// The queue never deduplicates: the same album may be enqueued several
// times and each occurrence is a distinct slot. All operations are
// thread-safe via sync.RWMutex.
type QueueService struct {
	// Dependencies (injected)
	logger *slog.Logger
	bus    ports.EventBus

	// State
	items      []string
	currentIdx int // -1 when nothing is current

	// Concurrency control
	mu sync.RWMutex
}

// NewQueueService creates a new queue service.
func NewQueueService(logger *slog.Logger, bus ports.EventBus) *QueueService {
	return &QueueService{
		logger:     logger,
		bus:        bus,
		items:      make([]string, 0),
		currentIdx: -1,
	}
}

// Queue returns a snapshot of the queued album IDs.
func (s *QueueService) Queue() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// CurrentAlbumID returns the album occupying the current slot, or empty
// when nothing is current.
func (s *QueueService) CurrentAlbumID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentIdx < 0 || s.currentIdx >= len(s.items) {
		return ""
	}
	return s.items[s.currentIdx]
}

// NextAlbumID returns the album after the current slot, or empty when at
// the end (or when nothing is current).
func (s *QueueService) NextAlbumID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentIdx < 0 || s.currentIdx+1 >= len(s.items) {
		return ""
	}
	return s.items[s.currentIdx+1]
}

// PreviousAlbumID returns the album before the current slot, or empty
// when at the start (or when nothing is current).
func (s *QueueService) PreviousAlbumID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentIdx <= 0 || s.currentIdx > len(s.items) {
		return ""
	}
	return s.items[s.currentIdx-1]
}

// SetQueue replaces the whole queue. The current slot is re-anchored to
// the first occurrence of the album that was current, or cleared when it
// is no longer present.
func (s *QueueService) SetQueue(albumIDs []string) {
	s.mu.Lock()

	current := ""
	if s.currentIdx >= 0 && s.currentIdx < len(s.items) {
		current = s.items[s.currentIdx]
	}

	s.items = make([]string, len(albumIDs))
	copy(s.items, albumIDs)
	s.currentIdx = indexOf(s.items, current)

	snapshot := s.snapshotLocked()
	currentRemoved := current != "" && s.currentIdx < 0
	s.mu.Unlock()

	s.bus.Publish(domain.NewQueueChangedEvent(snapshot, currentRemoved))
}

// EnqueueAfterCurrent inserts albums right after the current slot, so
// they play next. With nothing current they go to the front.
func (s *QueueService) EnqueueAfterCurrent(albumIDs ...string) {
	if len(albumIDs) == 0 {
		return
	}

	s.mu.Lock()

	at := s.currentIdx + 1
	next := make([]string, 0, len(s.items)+len(albumIDs))
	next = append(next, s.items[:at]...)
	next = append(next, albumIDs...)
	next = append(next, s.items[at:]...)
	s.items = next

	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewQueueChangedEvent(snapshot, false))
}

// EnqueueAtEnd appends albums to the end of the queue.
func (s *QueueService) EnqueueAtEnd(albumIDs ...string) {
	if len(albumIDs) == 0 {
		return
	}

	s.mu.Lock()
	s.items = append(s.items, albumIDs...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewQueueChangedEvent(snapshot, false))
}

// Remove strips every occurrence of the given albums from the queue.
// Removing the current album clears the current slot; the published
// event carries CurrentRemoved so the player can unload.
func (s *QueueService) Remove(albumIDs []string) {
	if len(albumIDs) == 0 {
		return
	}

	doomed := make(map[string]struct{}, len(albumIDs))
	for _, id := range albumIDs {
		doomed[id] = struct{}{}
	}

	s.mu.Lock()

	currentRemoved := false
	kept := make([]string, 0, len(s.items))
	newIdx := -1
	for i, id := range s.items {
		if _, gone := doomed[id]; gone {
			if i == s.currentIdx {
				currentRemoved = true
			}
			continue
		}
		if i == s.currentIdx {
			newIdx = len(kept)
		}
		kept = append(kept, id)
	}

	if len(kept) == len(s.items) {
		// Nothing removed
		s.mu.Unlock()
		return
	}

	s.items = kept
	s.currentIdx = newIdx

	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("albums removed from queue",
		slog.Int("removed", len(albumIDs)),
		slog.Bool("current_removed", currentRemoved))

	s.bus.Publish(domain.NewQueueChangedEvent(snapshot, currentRemoved))
}

// Reorder replaces the queue order. The current slot follows the album's
// identity, not its old position: after reordering, the first occurrence
// of the previously current album is current.
func (s *QueueService) Reorder(albumIDs []string) {
	s.SetQueue(albumIDs)
}

// SetCurrent anchors the current slot at the first occurrence of the
// given album, reporting whether it was found.
func (s *QueueService) SetCurrent(albumID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.items, albumID)
	if idx < 0 {
		return false
	}
	s.currentIdx = idx
	return true
}

// ClearCurrent detaches the current slot without touching the queue.
func (s *QueueService) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentIdx = -1
}

// snapshotLocked copies the queue. Caller holds s.mu.
func (s *QueueService) snapshotLocked() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// indexOf returns the first occurrence of id, or -1.
func indexOf(items []string, id string) int {
	if id == "" {
		return -1
	}
	for i, item := range items {
		if item == id {
			return i
		}
	}
	return -1
}

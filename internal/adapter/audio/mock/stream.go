// Package mock provides a simulated implementation of the AudioStream
// interface. It keeps transport state in memory without producing audio,
// for tests and headless runs.
package mock

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/ports"
)

// defaultDuration is the simulated source length when none is configured.
const defaultDuration = 180.0

// Stream simulates the single audio output. Position only moves through
// Seek and the test helpers; there is no wall-clock playback.
//
// Thread-safety: this implementation is thread-safe.
type Stream struct {
	mu sync.RWMutex

	path     string
	status   domain.StreamStatus
	position float64
	duration float64
	volume   float64

	// Behavior configuration (for testing error scenarios)
	failLoad  bool
	failPlay  bool
	durations map[string]float64
}

// NewStream creates a simulated audio stream at full volume with nothing
// loaded.
func NewStream() *Stream {
	return &Stream{
		status:    domain.StreamIdle,
		volume:    1.0,
		durations: make(map[string]float64),
	}
}

// SetFailLoad configures the stream to reject the next loads (for testing).
func (s *Stream) SetFailLoad(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLoad = fail
}

// SetFailPlay configures the stream to reject Play calls (for testing).
func (s *Stream) SetFailPlay(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPlay = fail
}

// SetDuration fixes the simulated duration reported for a path (for testing).
func (s *Stream) SetDuration(path string, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations[path] = seconds
}

// AdvanceTo moves the simulated position (for testing). Reaching the
// duration flips the stream to StreamEnded, as a real output would.
func (s *Stream) AdvanceTo(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StreamPlaying {
		return
	}
	s.position = seconds
	if s.position >= s.duration {
		s.position = s.duration
		s.status = domain.StreamEnded
	}
}

// FinishCurrent plays the simulated source to its end (for testing).
func (s *Stream) FinishCurrent() {
	s.AdvanceTo(s.Duration())
}

// LoadedPath returns the path of the loaded source (for testing).
func (s *Stream) LoadedPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Load replaces the current source and leaves the stream paused at zero.
func (s *Stream) Load(path string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failLoad {
		return 0, fmt.Errorf("mock load failure for %s", filepath.Base(path))
	}

	duration, ok := s.durations[path]
	if !ok {
		duration = defaultDuration
	}

	s.path = path
	s.status = domain.StreamPaused
	s.position = 0
	s.duration = duration
	return duration, nil
}

// Play starts or resumes the loaded source.
func (s *Stream) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return domain.ErrNoTrackLoaded
	}
	if s.failPlay {
		return fmt.Errorf("mock play failure for %s", filepath.Base(s.path))
	}
	s.status = domain.StreamPlaying
	return nil
}

// Pause suspends the loaded source, preserving its position.
func (s *Stream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return domain.ErrNoTrackLoaded
	}
	s.status = domain.StreamPaused
	return nil
}

// Stop unloads the current source. Stopping an idle stream is a no-op.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.path = ""
	s.status = domain.StreamIdle
	s.position = 0
	s.duration = 0
	return nil
}

// Seek moves the playback position, clamped to [0, duration].
func (s *Stream) Seek(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return domain.ErrNoTrackLoaded
	}
	if seconds < 0 {
		seconds = 0
	}
	if seconds > s.duration {
		seconds = s.duration
	}
	s.position = seconds
	return nil
}

// SetVolume sets the output volume (0.0 to 1.0).
func (s *Stream) SetVolume(volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if volume < 0 || volume > 1 {
		return domain.ErrInvalidVolume
	}
	s.volume = volume
	return nil
}

// Volume returns the current volume.
func (s *Stream) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// Status reports the stream state.
func (s *Stream) Status() domain.StreamStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Position returns the playback position in seconds.
func (s *Stream) Position() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position
}

// Duration returns the loaded source duration in seconds.
func (s *Stream) Duration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duration
}

// Verify that Stream implements the AudioStream interface
var _ ports.AudioStream = (*Stream)(nil)

package mock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruckert/canto/internal/domain"
)

func TestLoadLeavesStreamPaused(t *testing.T) {
	s := NewStream()
	s.SetDuration("/music/a.mp3", 240)

	duration, err := s.Load("/music/a.mp3")
	require.NoError(t, err)

	assert.Equal(t, 240.0, duration)
	assert.Equal(t, domain.StreamPaused, s.Status())
	assert.Equal(t, 0.0, s.Position())
}

func TestLoadReplacesCurrentSource(t *testing.T) {
	s := NewStream()

	_, err := s.Load("/music/a.mp3")
	require.NoError(t, err)
	require.NoError(t, s.Play())

	_, err = s.Load("/music/b.mp3")
	require.NoError(t, err)

	assert.Equal(t, "/music/b.mp3", s.LoadedPath())
	assert.Equal(t, domain.StreamPaused, s.Status())
	assert.Equal(t, 0.0, s.Position())
}

func TestPlayWithoutSourceFails(t *testing.T) {
	s := NewStream()

	assert.ErrorIs(t, s.Play(), domain.ErrNoTrackLoaded)
}

func TestStreamEndedIsSticky(t *testing.T) {
	s := NewStream()
	s.SetDuration("/music/a.mp3", 10)

	_, err := s.Load("/music/a.mp3")
	require.NoError(t, err)
	require.NoError(t, s.Play())

	s.FinishCurrent()

	assert.Equal(t, domain.StreamEnded, s.Status())
	// Status stays ended until the next Load or Stop
	assert.Equal(t, domain.StreamEnded, s.Status())

	require.NoError(t, s.Stop())
	assert.Equal(t, domain.StreamIdle, s.Status())
}

func TestSeekClampsToDuration(t *testing.T) {
	s := NewStream()
	s.SetDuration("/music/a.mp3", 100)

	_, err := s.Load("/music/a.mp3")
	require.NoError(t, err)

	require.NoError(t, s.Seek(250))
	assert.Equal(t, 100.0, s.Position())

	require.NoError(t, s.Seek(-5))
	assert.Equal(t, 0.0, s.Position())
}

func TestSetVolumeRejectsOutOfRange(t *testing.T) {
	s := NewStream()

	require.NoError(t, s.SetVolume(0.5))
	assert.Equal(t, 0.5, s.Volume())

	assert.ErrorIs(t, s.SetVolume(1.5), domain.ErrInvalidVolume)
	assert.ErrorIs(t, s.SetVolume(-0.1), domain.ErrInvalidVolume)
	assert.Equal(t, 0.5, s.Volume())
}

func TestFailLoad(t *testing.T) {
	s := NewStream()
	s.SetFailLoad(true)

	_, err := s.Load("/music/a.mp3")
	assert.Error(t, err)
	assert.Equal(t, domain.StreamIdle, s.Status())
}

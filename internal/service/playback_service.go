package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/ports"
)

// PlaybackService drives the single audio stream through the player
// state machine: Idle, Paused and Playing. Track navigation walks the
// playable tracks of the current album and crosses album boundaries
// through the queue. All operations are thread-safe via sync.RWMutex.
//
// Locking rule: no bus publish and no queue call happens while s.mu is
// held, because the synchronous bus delivers events on the calling
// goroutine and this service subscribes to queue changes itself.
type PlaybackService struct {
	// Dependencies (injected)
	logger   *slog.Logger
	stream   ports.AudioStream
	resolver ports.LibraryResolver
	queue    *QueueService
	bus      ports.EventBus

	// State
	playlistID     string
	album          domain.Album
	tracks         []domain.Track // playable tracks of the current album
	trackIdx       int
	status         domain.PlaybackStatus
	volume         float64
	updateInterval time.Duration

	// Concurrency control
	mu            sync.RWMutex
	stopUpdate    chan struct{}
	updateRunning bool
	updateWg      sync.WaitGroup

	// Event subscription
	queueSub domain.SubscriptionID
}

// NewPlaybackService creates a new playback service and starts its
// progress tick loop.
func NewPlaybackService(
	logger *slog.Logger,
	stream ports.AudioStream,
	resolver ports.LibraryResolver,
	queue *QueueService,
	bus ports.EventBus,
) *PlaybackService {
	service := &PlaybackService{
		logger:         logger,
		stream:         stream,
		resolver:       resolver,
		queue:          queue,
		bus:            bus,
		status:         domain.StatusIdle,
		volume:         1.0,
		updateInterval: 333 * time.Millisecond,
		stopUpdate:     make(chan struct{}),
	}

	// Unload when the album being played is removed from the queue
	service.queueSub = bus.Subscribe(domain.EventQueueChanged, service.handleQueueChanged)

	service.startUpdateRoutine()

	return service
}

// PlayTrack resolves the playback coordinates and starts playing. An
// empty TrackID means the first playable track of the album. When a
// playlist ID is given, the queue is replaced by the playlist's albums
// before the current slot is anchored.
func (s *PlaybackService) PlayTrack(ids domain.PlaybackIDs) error {
	if ids.AlbumID == "" {
		return domain.NewValidationError("albumId", "album ID is required")
	}

	album, tracks, err := s.resolver.GetAlbumFull(ids.AlbumID)
	if err != nil {
		return err
	}
	if album.IsEmpty() {
		return domain.ErrAlbumNotFound
	}

	playable := playableTracks(tracks)
	if len(playable) == 0 {
		return domain.ErrAlbumEmpty
	}

	idx := 0
	if ids.TrackID != "" {
		idx = trackIndex(playable, ids.TrackID)
		if idx < 0 {
			return domain.NewValidationError("trackId", "track is not part of the album")
		}
	}

	// Anchor the queue before touching the stream
	if ids.PlaylistID != "" {
		playlist, err := s.resolver.GetPlaylist(ids.PlaylistID)
		if err != nil {
			return err
		}
		if !playlist.IsEmpty() {
			s.queue.SetQueue(playlist.Albums)
		}
	}
	if !s.queue.SetCurrent(album.ID) {
		s.queue.EnqueueAfterCurrent(album.ID)
		s.queue.SetCurrent(album.ID)
	}

	return s.startTrack(ids.PlaylistID, album, playable, idx)
}

// startTrack loads the playable track at idx into the stream and starts
// it. On a stream failure the player transitions to Idle and publishes a
// playback error; it never skips to another track on its own.
func (s *PlaybackService) startTrack(playlistID string, album domain.Album, playable []domain.Track, idx int) error {
	track := playable[idx]

	s.mu.Lock()

	if _, err := s.stream.Load(track.Path); err != nil {
		s.clearLocked()
		s.mu.Unlock()

		perr := domain.NewPlaybackError(track.ID, track.Path, err)
		s.logger.Warn("failed to load track",
			slog.String("track_id", track.ID),
			slog.Any("error", err))
		s.bus.Publish(domain.NewPlaybackErrorEvent(track.ID, perr))
		return perr
	}

	if err := s.stream.SetVolume(s.volume); err != nil {
		s.logger.Warn("failed to apply volume", slog.Any("error", err))
	}

	if err := s.stream.Play(); err != nil {
		_ = s.stream.Stop()
		s.clearLocked()
		s.mu.Unlock()

		perr := domain.NewPlaybackError(track.ID, track.Path, err)
		s.bus.Publish(domain.NewPlaybackErrorEvent(track.ID, perr))
		return perr
	}

	s.playlistID = playlistID
	s.album = album
	s.tracks = playable
	s.trackIdx = idx
	s.status = domain.StatusPlaying

	s.mu.Unlock()

	s.bus.Publish(domain.NewTrackChangedEvent(domain.PlaybackIDs{
		PlaylistID: playlistID,
		AlbumID:    album.ID,
		TrackID:    track.ID,
	}, track, album))
	s.bus.Publish(domain.NewPlayEvent(track))

	return nil
}

// TogglePlayback flips between Playing and Paused. Toggling while Idle
// is a no-op.
func (s *PlaybackService) TogglePlayback() error {
	s.mu.Lock()

	switch s.status {
	case domain.StatusIdle:
		s.mu.Unlock()
		return nil

	case domain.StatusPlaying:
		if err := s.stream.Pause(); err != nil {
			s.mu.Unlock()
			return err
		}
		s.status = domain.StatusPaused
		track := s.tracks[s.trackIdx]
		s.mu.Unlock()

		s.bus.Publish(domain.NewPauseEvent(track, s.stream.Position()))
		return nil

	default: // StatusPaused
		if err := s.stream.Play(); err != nil {
			s.mu.Unlock()
			return err
		}
		s.status = domain.StatusPlaying
		track := s.tracks[s.trackIdx]
		s.mu.Unlock()

		s.bus.Publish(domain.NewPlayEvent(track))
		return nil
	}
}

// Stop unloads the stream and returns the player to Idle. The queue
// keeps its albums but its current slot is detached, since an idle
// player has no coordinates. Stopping an idle player is a no-op.
func (s *PlaybackService) Stop() error {
	s.mu.Lock()

	if s.status == domain.StatusIdle {
		s.mu.Unlock()
		return nil
	}

	if err := s.stream.Stop(); err != nil {
		s.logger.Warn("failed to stop stream", slog.Any("error", err))
	}
	s.clearLocked()
	s.mu.Unlock()

	s.queue.ClearCurrent()
	s.bus.Publish(domain.NewStopEvent())
	return nil
}

// PlayNextTrack advances within the current album, then to the first
// track of the next queued album, and finally to Idle when the queue is
// exhausted.
func (s *PlaybackService) PlayNextTrack() error {
	s.mu.Lock()
	if s.status == domain.StatusIdle {
		s.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}

	if s.trackIdx+1 < len(s.tracks) {
		playlistID, album, tracks, idx := s.playlistID, s.album, s.tracks, s.trackIdx+1
		s.mu.Unlock()
		return s.startTrack(playlistID, album, tracks, idx)
	}
	playlistID := s.playlistID
	s.mu.Unlock()

	nextID := s.queue.NextAlbumID()
	if nextID == "" {
		return s.Stop()
	}

	album, tracks, err := s.resolver.GetAlbumFull(nextID)
	if err != nil {
		_ = s.Stop()
		return err
	}
	playable := playableTracks(tracks)
	if len(playable) == 0 {
		_ = s.Stop()
		return domain.ErrAlbumEmpty
	}

	s.queue.SetCurrent(nextID)
	return s.startTrack(playlistID, album, playable, 0)
}

// PlayPreviousTrack steps back within the current album. At the first
// track it crosses to the last track of the previous queued album when
// one exists, and stays put otherwise.
func (s *PlaybackService) PlayPreviousTrack() error {
	s.mu.Lock()
	if s.status == domain.StatusIdle {
		s.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}

	if s.trackIdx > 0 {
		playlistID, album, tracks, idx := s.playlistID, s.album, s.tracks, s.trackIdx-1
		s.mu.Unlock()
		return s.startTrack(playlistID, album, tracks, idx)
	}
	playlistID := s.playlistID
	s.mu.Unlock()

	prevID := s.queue.PreviousAlbumID()
	if prevID == "" {
		// First track of the first queued album: stay
		return nil
	}

	album, tracks, err := s.resolver.GetAlbumFull(prevID)
	if err != nil {
		return err
	}
	playable := playableTracks(tracks)
	if len(playable) == 0 {
		return domain.ErrAlbumEmpty
	}

	s.queue.SetCurrent(prevID)
	return s.startTrack(playlistID, album, playable, len(playable)-1)
}

// SeekTo moves the position to a fraction of the track duration,
// clamped to [0, 1].
func (s *PlaybackService) SeekTo(fraction float64) error {
	s.mu.RLock()
	if s.status == domain.StatusIdle {
		s.mu.RUnlock()
		return domain.ErrNoTrackLoaded
	}
	s.mu.RUnlock()

	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	return s.stream.Seek(fraction * s.stream.Duration())
}

// SetVolume sets the output volume, clamped to [0, 1].
func (s *PlaybackService) SetVolume(volume float64) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	s.mu.Lock()
	s.volume = volume
	idle := s.status == domain.StatusIdle
	s.mu.Unlock()

	if !idle {
		if err := s.stream.SetVolume(volume); err != nil {
			return err
		}
	}

	s.bus.Publish(domain.NewVolumeChangedEvent(volume))
	return nil
}

// GetState returns a snapshot of the player.
func (s *PlaybackService) GetState() domain.PlaybackState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := domain.PlaybackState{
		Status: s.status,
		Volume: s.volume,
	}
	if s.status == domain.StatusIdle {
		return state
	}

	state.CurrentPlaylistID = s.playlistID
	state.CurrentAlbumID = s.album.ID
	state.CurrentTrackID = s.tracks[s.trackIdx].ID
	state.Position = s.stream.Position()
	state.Duration = s.stream.Duration()
	return state
}

// Shutdown stops the tick loop, unloads the stream and detaches from the
// bus.
func (s *PlaybackService) Shutdown() error {
	s.mu.Lock()
	if s.updateRunning {
		close(s.stopUpdate)
		s.updateRunning = false
	}
	s.mu.Unlock()

	s.updateWg.Wait()

	s.bus.Unsubscribe(s.queueSub)

	return s.Stop()
}

// clearLocked resets the player to Idle. Caller holds s.mu.
func (s *PlaybackService) clearLocked() {
	s.playlistID = ""
	s.album = domain.Album{}
	s.tracks = nil
	s.trackIdx = 0
	s.status = domain.StatusIdle
}

// handleQueueChanged reacts to queue edits that removed the album being
// played: the stream is unloaded, matching what listeners expect after
// the queue lost its current slot.
func (s *PlaybackService) handleQueueChanged(event domain.Event) {
	e, ok := event.(domain.QueueChangedEvent)
	if !ok || !e.CurrentRemoved {
		return
	}

	if err := s.Stop(); err != nil {
		s.logger.Warn("failed to stop after queue removal", slog.Any("error", err))
	}
}

// startUpdateRoutine starts the goroutine that publishes progress ticks
// and detects the end of the stream.
func (s *PlaybackService) startUpdateRoutine() {
	s.mu.Lock()
	if s.updateRunning {
		s.mu.Unlock()
		return
	}
	s.updateRunning = true
	s.updateWg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.updateWg.Done()
		ticker := time.NewTicker(s.updateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopUpdate:
				return

			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// tick publishes progress while playing and advances the queue when the
// stream reports that the source played to its end.
func (s *PlaybackService) tick() {
	s.mu.RLock()
	if s.status == domain.StatusIdle {
		s.mu.RUnlock()
		return
	}
	track := s.tracks[s.trackIdx]
	s.mu.RUnlock()

	switch s.stream.Status() {
	case domain.StreamPlaying:
		s.bus.Publish(domain.NewTickEvent(s.stream.Position(), s.stream.Duration()))

	case domain.StreamEnded:
		s.bus.Publish(domain.NewTrackEndedEvent(track))
		if err := s.PlayNextTrack(); err != nil {
			s.logger.Debug("auto-advance ended playback", slog.Any("error", err))
		}
	}
}

// playableTracks filters out placeholder tracks whose files could not be
// read.
func playableTracks(tracks []domain.Track) []domain.Track {
	playable := make([]domain.Track, 0, len(tracks))
	for _, track := range tracks {
		if track.Found {
			playable = append(playable, track)
		}
	}
	return playable
}

// trackIndex returns the position of the track with the given ID, or -1.
func trackIndex(tracks []domain.Track, id string) int {
	for i, track := range tracks {
		if track.ID == id {
			return i
		}
	}
	return -1
}

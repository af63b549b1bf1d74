package service

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/ports"
)

// LibraryService owns the album, track and playlist collections and the
// relationships between them: importing albums, resolving their tracks,
// and the removal cascade that keeps playlists and the queue free of
// dangling album IDs.
//
// There are no cross-collection transactions. The removal cascade is
// ordered so that a crash mid-way leaves only orphans that readers
// already filter out (missing IDs are dropped by GetMany).
type LibraryService struct {
	// Dependencies (injected)
	logger    *slog.Logger
	albums    ports.DocumentStore[domain.Album]
	tracks    ports.DocumentStore[domain.Track]
	playlists ports.DocumentStore[domain.Playlist]
	scanner   ports.AlbumScanner
	queue     *QueueService
	bus       ports.EventBus
}

// NewLibraryService creates a new library service.
func NewLibraryService(
	logger *slog.Logger,
	albums ports.DocumentStore[domain.Album],
	tracks ports.DocumentStore[domain.Track],
	playlists ports.DocumentStore[domain.Playlist],
	scanner ports.AlbumScanner,
	queue *QueueService,
	bus ports.EventBus,
) *LibraryService {
	return &LibraryService{
		logger:    logger,
		albums:    albums,
		tracks:    tracks,
		playlists: playlists,
		scanner:   scanner,
		queue:     queue,
		bus:       bus,
	}
}

// AlbumExists reports whether a live album was already imported from the
// given folder.
func (s *LibraryService) AlbumExists(path string) (bool, error) {
	matches, err := s.albums.Find(map[string]any{"path": path})
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// GetAlbums resolves several album IDs, dropping the ones that no longer
// exist.
func (s *LibraryService) GetAlbums(ids []string) ([]domain.Album, error) {
	return s.albums.GetMany(ids)
}

// GetAlbumFull returns an album together with its track documents. An
// album whose track list was never populated triggers a folder rescan
// that is persisted before the tracks are resolved. Track IDs that have
// no document come back as Found=false placeholders so the album keeps
// its shape.
//
// An absent album yields a zero album and no error.
func (s *LibraryService) GetAlbumFull(id string) (domain.Album, []domain.Track, error) {
	album, err := s.albums.Get(id)
	if err != nil {
		return domain.Album{}, nil, err
	}
	if album.IsEmpty() {
		return domain.Album{}, nil, nil
	}

	if len(album.Tracks) == 0 {
		album, err = s.rescanAlbum(album)
		if err != nil {
			return domain.Album{}, nil, err
		}
	}

	tracks, err := s.GetTrackList(album.Tracks, false, false)
	if err != nil {
		return domain.Album{}, nil, err
	}
	return album, tracks, nil
}

// rescanAlbum reads the album folder, persists the discovered tracks and
// saves the album with its populated track list.
func (s *LibraryService) rescanAlbum(album domain.Album) (domain.Album, error) {
	scanned, err := s.scanner.ScanFolder(album.Path)
	if err != nil {
		return domain.Album{}, err
	}

	s.logger.Info("rescanned album folder",
		slog.String("album_id", album.ID),
		slog.String("path", album.Path),
		slog.Int("tracks", len(scanned)))

	s.persistTracks(scanned)

	album.Tracks = trackIDs(scanned)
	return s.albums.Save(album)
}

// GetTrackList resolves track documents for the given IDs, preserving
// order. Missing entries are re-read from disk, as is every entry when
// forceUpdate is set; unreadable files yield placeholders. With persist
// set, refreshed documents are written back.
func (s *LibraryService) GetTrackList(ids []string, forceUpdate, persist bool) ([]domain.Track, error) {
	stored, err := s.tracks.GetMany(ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Track, len(stored))
	for _, track := range stored {
		byID[track.ID] = track
	}

	result := make([]domain.Track, 0, len(ids))
	refreshed := make([]domain.Track, 0)

	for _, id := range ids {
		track, ok := byID[id]
		if ok && !forceUpdate {
			result = append(result, track)
			continue
		}

		fresh, err := s.scanner.ReadTrack(id)
		if err != nil {
			return nil, err
		}
		// Keep the stored revision so a persist is an update, not a conflict
		fresh.Rev = track.Rev

		result = append(result, fresh)
		refreshed = append(refreshed, fresh)
	}

	if persist && len(refreshed) > 0 {
		s.persistTracks(refreshed)
	}

	return result, nil
}

// persistTracks writes track documents best-effort, fetching current
// revisions for documents that already exist. Failures are logged, not
// surfaced: a track that cannot be persisted is still usable in memory.
func (s *LibraryService) persistTracks(tracks []domain.Track) {
	if len(tracks) == 0 {
		return
	}

	stored, err := s.tracks.GetMany(trackIDs(tracks))
	if err != nil {
		s.logger.Warn("failed to resolve stored tracks", slog.Any("error", err))
		return
	}
	revs := make(map[string]string, len(stored))
	for _, track := range stored {
		revs[track.ID] = track.Rev
	}

	docs := make([]domain.Track, len(tracks))
	copy(docs, tracks)
	for i := range docs {
		docs[i].Rev = revs[docs[i].ID]
	}

	for _, res := range s.tracks.SaveBulk(docs) {
		if !res.OK {
			s.logger.Warn("failed to persist track",
				slog.String("track_id", res.ID),
				slog.Any("error", res.Err))
		}
	}
}

// ImportAlbum brings a new folder into the library: the path must not be
// imported yet, its files are scanned and persisted, and the album
// document is saved with the discovered track list. Metadata carried on
// the album (artist, title, year, type) is kept as given.
func (s *LibraryService) ImportAlbum(album domain.Album) (domain.Album, error) {
	if album.Path == "" {
		return domain.Album{}, domain.NewValidationError("path", "album path is required")
	}

	exists, err := s.AlbumExists(album.Path)
	if err != nil {
		return domain.Album{}, err
	}
	if exists {
		return domain.Album{}, domain.ErrAlbumExists
	}

	scanned, err := s.scanner.ScanFolder(album.Path)
	if err != nil {
		return domain.Album{}, err
	}

	s.persistTracks(scanned)

	if album.ID == "" {
		album.ID = uuid.NewString()
	}
	if album.Type == "" {
		album.Type = domain.AlbumTypeAlbum
	}
	if album.CreatedAt.IsZero() {
		album.CreatedAt = time.Now().UTC()
	}
	album.Tracks = trackIDs(scanned)

	saved, err := s.albums.Save(album)
	if err != nil {
		return domain.Album{}, err
	}

	s.logger.Info("album imported",
		slog.String("album_id", saved.ID),
		slog.String("path", saved.Path),
		slog.Int("tracks", len(saved.Tracks)))

	s.bus.Publish(domain.NewAlbumAddedEvent(saved))
	return saved, nil
}

// RemoveAlbums cascades an album removal: owned tracks are tombstoned,
// then the albums, then every playlist referencing them is patched, and
// finally the in-memory queue drops the IDs. Each stage is best-effort;
// a partial failure leaves orphans that readers already filter out.
func (s *LibraryService) RemoveAlbums(ids []string) error {
	albums, err := s.albums.GetMany(ids)
	if err != nil {
		return err
	}
	if len(albums) == 0 {
		return nil
	}

	removedIDs := make([]string, 0, len(albums))
	ownedTrackIDs := make([]string, 0)
	for _, album := range albums {
		removedIDs = append(removedIDs, album.ID)
		ownedTrackIDs = append(ownedTrackIDs, album.Tracks...)
	}

	// Tracks first: an album without tracks is harmless, tracks without
	// an album would never be cleaned up
	ownedTracks, err := s.tracks.GetMany(ownedTrackIDs)
	if err != nil {
		return err
	}
	for _, res := range s.tracks.DeleteBulk(ownedTracks) {
		if !res.OK {
			s.logger.Warn("failed to delete track",
				slog.String("track_id", res.ID),
				slog.Any("error", res.Err))
		}
	}

	for _, res := range s.albums.DeleteBulk(albums) {
		if !res.OK {
			s.logger.Warn("failed to delete album",
				slog.String("album_id", res.ID),
				slog.Any("error", res.Err))
		}
	}

	if err := s.stripFromPlaylists(removedIDs); err != nil {
		s.logger.Warn("failed to patch playlists after removal", slog.Any("error", err))
	}

	s.queue.Remove(removedIDs)

	s.logger.Info("albums removed", slog.Int("count", len(removedIDs)))
	s.bus.Publish(domain.NewAlbumsRemovedEvent(removedIDs))
	return nil
}

// stripFromPlaylists rewrites every playlist that references one of the
// removed albums and bulk-saves the modified ones.
func (s *LibraryService) stripFromPlaylists(removedIDs []string) error {
	doomed := make(map[string]struct{}, len(removedIDs))
	for _, id := range removedIDs {
		doomed[id] = struct{}{}
	}

	playlists, err := s.playlists.FindAll()
	if err != nil {
		return err
	}

	modified := make([]domain.Playlist, 0)
	for _, playlist := range playlists {
		kept := make([]string, 0, len(playlist.Albums))
		for _, id := range playlist.Albums {
			if _, gone := doomed[id]; !gone {
				kept = append(kept, id)
			}
		}
		if len(kept) != len(playlist.Albums) {
			playlist.Albums = kept
			modified = append(modified, playlist)
		}
	}

	for _, res := range s.playlists.SaveBulk(modified) {
		if !res.OK {
			s.logger.Warn("failed to patch playlist",
				slog.String("playlist_id", res.ID),
				slog.Any("error", res.Err))
		}
	}
	return nil
}

// GetLatestAlbums returns albums imported after the given time, newest
// first.
func (s *LibraryService) GetLatestAlbums(since time.Time, limit int) ([]domain.Album, error) {
	return s.albums.GetLatest(ports.LatestQuery{
		Since:      since,
		DateField:  "created",
		Limit:      limit,
		Descending: true,
	})
}

// GetAlbumStats groups album counts by "artist", "year" or "type".
// Compilations count under the Various Artists sentinel instead of their
// nominal artist. Entries come back sorted by key.
func (s *LibraryService) GetAlbumStats(field string) ([]domain.StatEntry, error) {
	albums, err := s.albums.FindAll()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, album := range albums {
		var key string
		switch field {
		case "artist":
			if album.Type == domain.AlbumTypeVarious {
				key = domain.VariousArtistsName
			} else {
				key = album.Artist
			}
		case "year":
			key = strconv.Itoa(album.Year)
		case "type":
			key = string(album.Type)
		default:
			return nil, domain.NewValidationError("field", "must be artist, year or type")
		}
		counts[key]++
	}

	stats := make([]domain.StatEntry, 0, len(counts))
	for key, count := range counts {
		stats = append(stats, domain.StatEntry{Key: key, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Key < stats[j].Key })
	return stats, nil
}

// GetArtists returns the artist aggregation over the whole library.
func (s *LibraryService) GetArtists() ([]domain.Artist, error) {
	stats, err := s.GetAlbumStats("artist")
	if err != nil {
		return nil, err
	}

	artists := make([]domain.Artist, 0, len(stats))
	for _, entry := range stats {
		artists = append(artists, domain.Artist{Name: entry.Key, Count: entry.Count})
	}
	return artists, nil
}

// GetAllPlaylists returns every playlist.
func (s *LibraryService) GetAllPlaylists() ([]domain.Playlist, error) {
	return s.playlists.FindAll()
}

// GetPlaylist returns a playlist by ID (zero playlist when absent).
func (s *LibraryService) GetPlaylist(id string) (domain.Playlist, error) {
	return s.playlists.Get(id)
}

// SavePlaylist validates and persists a playlist, bumping AccessedAt. A
// playlist without an ID is created.
func (s *LibraryService) SavePlaylist(playlist domain.Playlist) (domain.Playlist, error) {
	if strings.TrimSpace(playlist.Title) == "" {
		return domain.Playlist{}, domain.NewValidationError("title", "playlist title cannot be empty")
	}

	now := time.Now().UTC()
	if playlist.ID == "" {
		playlist.ID = uuid.NewString()
	}
	if playlist.CreatedAt.IsZero() {
		playlist.CreatedAt = now
	}
	playlist.AccessedAt = now

	return s.playlists.Save(playlist)
}

// SavePlaylists persists several playlists best-effort, bumping
// AccessedAt on each, and returns the per-item outcomes.
func (s *LibraryService) SavePlaylists(playlists []domain.Playlist) []ports.BulkResult {
	now := time.Now().UTC()
	docs := make([]domain.Playlist, len(playlists))
	copy(docs, playlists)
	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = uuid.NewString()
		}
		if docs[i].CreatedAt.IsZero() {
			docs[i].CreatedAt = now
		}
		docs[i].AccessedAt = now
	}
	return s.playlists.SaveBulk(docs)
}

// DeletePlaylist tombstones a playlist.
func (s *LibraryService) DeletePlaylist(playlist domain.Playlist) error {
	_, err := s.playlists.Delete(playlist)
	return err
}

// trackIDs extracts the IDs of a track slice in order.
func trackIDs(tracks []domain.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, track := range tracks {
		ids = append(ids, track.ID)
	}
	return ids
}

// Verify that LibraryService satisfies the player's resolver dependency
var _ ports.LibraryResolver = (*LibraryService)(nil)

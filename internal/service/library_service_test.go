package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruckert/canto/internal/adapter/eventbus"
	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/logger"
)

// mockScanner serves canned scan results.
type mockScanner struct {
	folders map[string][]domain.Track
	scanErr error
}

func newMockScanner() *mockScanner {
	return &mockScanner{folders: make(map[string][]domain.Track)}
}

func (m *mockScanner) addFolder(path string, titles ...string) []string {
	tracks := make([]domain.Track, 0, len(titles))
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		id := path + "/" + title + ".mp3"
		tracks = append(tracks, domain.Track{
			Entity: domain.Entity{ID: id},
			Path:   id,
			Found:  true,
			Title:  title,
		})
		ids = append(ids, id)
	}
	m.folders[path] = tracks
	return ids
}

func (m *mockScanner) ScanFolder(path string) ([]domain.Track, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	return m.folders[path], nil
}

func (m *mockScanner) ReadTrack(path string) (domain.Track, error) {
	for _, tracks := range m.folders {
		for _, track := range tracks {
			if track.ID == path {
				return track, nil
			}
		}
	}
	return domain.Track{
		Entity: domain.Entity{ID: path},
		Path:   path,
		Found:  false,
		Title:  path,
	}, nil
}

type libraryFixture struct {
	service   *LibraryService
	albums    *mockAlbumStore
	tracks    *mockTrackStore
	playlists *mockPlaylistStore
	scanner   *mockScanner
	queue     *QueueService
	bus       *eventbus.SyncEventBus
}

func newLibraryFixture() *libraryFixture {
	albums := newMockStore[domain.Album]()
	tracks := newMockStore[domain.Track]()
	playlists := newMockStore[domain.Playlist]()
	scanner := newMockScanner()
	bus := eventbus.NewSyncEventBus()
	queue := NewQueueService(logger.NewTestLogger(), bus)

	service := NewLibraryService(
		logger.NewTestLogger(), albums, tracks, playlists, scanner, queue, bus)

	return &libraryFixture{
		service:   service,
		albums:    albums,
		tracks:    tracks,
		playlists: playlists,
		scanner:   scanner,
		queue:     queue,
		bus:       bus,
	}
}

func (f *libraryFixture) seedAlbum(t *testing.T, id, path string, trackIDs []string) domain.Album {
	t.Helper()
	album, err := f.albums.Save(domain.Album{
		Entity: domain.Entity{ID: id},
		Artist: "Artist " + id,
		Title:  "Title " + id,
		Type:   domain.AlbumTypeAlbum,
		Path:   path,
		Tracks: trackIDs,
	})
	require.NoError(t, err)
	return album
}

func TestAlbumExists(t *testing.T) {
	f := newLibraryFixture()
	f.seedAlbum(t, "album-1", "/music/a", nil)

	exists, err := f.service.AlbumExists("/music/a")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.service.AlbumExists("/music/zzz")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestImportAlbum(t *testing.T) {
	f := newLibraryFixture()
	ids := f.scanner.addFolder("/music/a", "01", "02")

	var added domain.AlbumAddedEvent
	f.bus.Subscribe(domain.EventAlbumAdded, func(e domain.Event) {
		added = e.(domain.AlbumAddedEvent)
	})

	saved, err := f.service.ImportAlbum(domain.Album{
		Artist: "Low",
		Title:  "Secret Name",
		Year:   1999,
		Path:   "/music/a",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.NotEmpty(t, saved.Rev)
	assert.Equal(t, ids, saved.Tracks)
	assert.Equal(t, domain.AlbumTypeAlbum, saved.Type)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.Equal(t, saved.ID, added.Album.ID)

	// Tracks were persisted
	stored, err := f.tracks.GetMany(ids)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestImportAlbumDuplicatePath(t *testing.T) {
	f := newLibraryFixture()
	f.scanner.addFolder("/music/a", "01")

	_, err := f.service.ImportAlbum(domain.Album{Title: "x", Path: "/music/a"})
	require.NoError(t, err)

	_, err = f.service.ImportAlbum(domain.Album{Title: "y", Path: "/music/a"})
	assert.ErrorIs(t, err, domain.ErrAlbumExists)
}

func TestGetAlbumFullResolvesTracks(t *testing.T) {
	f := newLibraryFixture()
	ids := f.scanner.addFolder("/music/a", "01", "02")
	f.seedAlbum(t, "album-1", "/music/a", ids)
	for _, track := range f.scanner.folders["/music/a"] {
		_, err := f.tracks.Save(track)
		require.NoError(t, err)
	}

	album, tracks, err := f.service.GetAlbumFull("album-1")
	require.NoError(t, err)

	assert.Equal(t, "album-1", album.ID)
	require.Len(t, tracks, 2)
	assert.Equal(t, ids[0], tracks[0].ID)
	assert.True(t, tracks[0].Found)
}

func TestGetAlbumFullRescansEmptyTrackList(t *testing.T) {
	f := newLibraryFixture()
	ids := f.scanner.addFolder("/music/a", "01", "02")
	f.seedAlbum(t, "album-1", "/music/a", nil)

	album, tracks, err := f.service.GetAlbumFull("album-1")
	require.NoError(t, err)

	assert.Equal(t, ids, album.Tracks)
	assert.Len(t, tracks, 2)

	// The populated track list was persisted
	stored, err := f.albums.Get("album-1")
	require.NoError(t, err)
	assert.Equal(t, ids, stored.Tracks)
}

func TestGetAlbumFullAbsentAlbum(t *testing.T) {
	f := newLibraryFixture()

	album, tracks, err := f.service.GetAlbumFull("ghost")
	require.NoError(t, err)
	assert.True(t, album.IsEmpty())
	assert.Nil(t, tracks)
}

func TestGetTrackListSynthesizesPlaceholders(t *testing.T) {
	f := newLibraryFixture()

	// Only one of the two IDs has a document or a file behind it
	ids := f.scanner.addFolder("/music/a", "01")
	for _, track := range f.scanner.folders["/music/a"] {
		_, err := f.tracks.Save(track)
		require.NoError(t, err)
	}
	want := append(ids, "/music/a/missing.mp3")

	tracks, err := f.service.GetTrackList(want, false, false)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.True(t, tracks[0].Found)
	assert.False(t, tracks[1].Found)
	assert.Equal(t, "/music/a/missing.mp3", tracks[1].ID)
}

func TestGetTrackListForceUpdatePersists(t *testing.T) {
	f := newLibraryFixture()
	ids := f.scanner.addFolder("/music/a", "01")

	// Stored copy carries stale metadata
	stale := f.scanner.folders["/music/a"][0]
	stale.Title = "old title"
	saved, err := f.tracks.Save(stale)
	require.NoError(t, err)

	tracks, err := f.service.GetTrackList(ids, true, true)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "01", tracks[0].Title)

	// Persisted as an update, not a conflicting insert
	stored, err := f.tracks.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "01", stored.Title)
	assert.NotEqual(t, saved.Rev, stored.Rev)
}

func TestRemoveAlbumsCascade(t *testing.T) {
	f := newLibraryFixture()

	idsA := f.scanner.addFolder("/music/a", "01")
	idsB := f.scanner.addFolder("/music/b", "01")
	f.seedAlbum(t, "album-1", "/music/a", idsA)
	f.seedAlbum(t, "album-2", "/music/b", idsB)
	for _, folder := range []string{"/music/a", "/music/b"} {
		for _, track := range f.scanner.folders[folder] {
			_, err := f.tracks.Save(track)
			require.NoError(t, err)
		}
	}

	playlist, err := f.service.SavePlaylist(domain.Playlist{
		Title:  "Mix",
		Albums: []string{"album-1", "album-2", "album-1"},
	})
	require.NoError(t, err)

	f.queue.SetQueue([]string{"album-1", "album-2"})

	var removed domain.AlbumsRemovedEvent
	f.bus.Subscribe(domain.EventAlbumsRemoved, func(e domain.Event) {
		removed = e.(domain.AlbumsRemovedEvent)
	})

	require.NoError(t, f.service.RemoveAlbums([]string{"album-1"}))

	// Album and its tracks are gone
	album, err := f.albums.Get("album-1")
	require.NoError(t, err)
	assert.True(t, album.IsEmpty())
	gone, err := f.tracks.GetMany(idsA)
	require.NoError(t, err)
	assert.Empty(t, gone)

	// The other album survives
	kept, err := f.albums.Get("album-2")
	require.NoError(t, err)
	assert.False(t, kept.IsEmpty())

	// Playlist stripped of every occurrence
	patched, err := f.playlists.Get(playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"album-2"}, patched.Albums)

	// Queue patched
	assert.Equal(t, []string{"album-2"}, f.queue.Queue())

	assert.Equal(t, []string{"album-1"}, removed.AlbumIDs)
}

func TestRemoveAlbumsUnknownIDs(t *testing.T) {
	f := newLibraryFixture()

	published := false
	f.bus.Subscribe(domain.EventAlbumsRemoved, func(domain.Event) { published = true })

	require.NoError(t, f.service.RemoveAlbums([]string{"ghost"}))
	assert.False(t, published)
}

func TestGetLatestAlbums(t *testing.T) {
	f := newLibraryFixture()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"album-1", "album-2", "album-3"} {
		_, err := f.albums.Save(domain.Album{
			Entity:    domain.Entity{ID: id},
			Title:     id,
			Type:      domain.AlbumTypeAlbum,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Path:      "/music/" + id,
		})
		require.NoError(t, err)
	}

	latest, err := f.service.GetLatestAlbums(base, 10)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "album-3", latest[0].ID)
}

func TestGetAlbumStats(t *testing.T) {
	f := newLibraryFixture()

	save := func(id, artist string, year int, kind domain.AlbumType) {
		_, err := f.albums.Save(domain.Album{
			Entity: domain.Entity{ID: id},
			Artist: artist,
			Title:  id,
			Year:   year,
			Type:   kind,
			Path:   "/music/" + id,
		})
		require.NoError(t, err)
	}
	save("a1", "Low", 1999, domain.AlbumTypeAlbum)
	save("a2", "Low", 2001, domain.AlbumTypeAlbum)
	save("a3", "Who Cares", 2003, domain.AlbumTypeVarious)

	stats, err := f.service.GetAlbumStats("artist")
	require.NoError(t, err)
	assert.Equal(t, []domain.StatEntry{
		{Key: "Low", Count: 2},
		{Key: domain.VariousArtistsName, Count: 1},
	}, stats)

	stats, err = f.service.GetAlbumStats("year")
	require.NoError(t, err)
	assert.Len(t, stats, 3)

	_, err = f.service.GetAlbumStats("bogus")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGetArtists(t *testing.T) {
	f := newLibraryFixture()
	f.seedAlbum(t, "album-1", "/music/a", nil)

	artists, err := f.service.GetArtists()
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, "Artist album-1", artists[0].Name)
	assert.Equal(t, 1, artists[0].Count)
}

func TestSavePlaylistValidation(t *testing.T) {
	f := newLibraryFixture()

	_, err := f.service.SavePlaylist(domain.Playlist{Title: "   "})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSavePlaylistBumpsAccessedAt(t *testing.T) {
	f := newLibraryFixture()

	saved, err := f.service.SavePlaylist(domain.Playlist{Title: "Mix"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	first := saved.AccessedAt

	time.Sleep(2 * time.Millisecond)

	saved.Albums = []string{"album-1"}
	updated, err := f.service.SavePlaylist(saved)
	require.NoError(t, err)
	assert.True(t, updated.AccessedAt.After(first))
	assert.Equal(t, saved.CreatedAt, updated.CreatedAt)
}

func TestSavePlaylistsBulk(t *testing.T) {
	f := newLibraryFixture()

	results := f.service.SavePlaylists([]domain.Playlist{
		{Title: "One"},
		{Title: "Two"},
	})
	require.Len(t, results, 2)
	for _, res := range results {
		assert.True(t, res.OK)
	}

	all, err := f.service.GetAllPlaylists()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeletePlaylist(t *testing.T) {
	f := newLibraryFixture()

	saved, err := f.service.SavePlaylist(domain.Playlist{Title: "Mix"})
	require.NoError(t, err)

	require.NoError(t, f.service.DeletePlaylist(saved))

	got, err := f.service.GetPlaylist(saved.ID)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

package api

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruckert/canto/internal/adapter/eventbus"
	"github.com/ruckert/canto/internal/adapter/scanner/tagscan"
	"github.com/ruckert/canto/internal/adapter/store/bolt"
	"github.com/ruckert/canto/internal/appstate"
	"github.com/ruckert/canto/internal/bus"
	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/logger"
	"github.com/ruckert/canto/internal/service"
)

// apiFixture wires the real stores and services behind the message bus,
// rooted in a temp directory.
type apiFixture struct {
	bus    *bus.Bus
	albums *bolt.Store[domain.Album, *domain.Album]
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	dir := t.TempDir()
	log := logger.NewTestLogger()

	albums, err := bolt.New[domain.Album](bolt.Options{
		Dir: filepath.Join(dir, "album"), Name: "album", Logger: log})
	require.NoError(t, err)
	tracks, err := bolt.New[domain.Track](bolt.Options{
		Dir: filepath.Join(dir, "track"), Name: "track", Logger: log})
	require.NoError(t, err)
	playlists, err := bolt.New[domain.Playlist](bolt.Options{
		Dir: filepath.Join(dir, "playlist"), Name: "playlist", Logger: log})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = albums.Close()
		_ = tracks.Close()
		_ = playlists.Close()
	})

	events := eventbus.NewSyncEventBus()
	queue := service.NewQueueService(log, events)
	library := service.NewLibraryService(
		log, albums, tracks, playlists, tagscan.NewScanner(log), queue, events)
	search := service.NewSearchService(log, albums)

	state := appstate.New(filepath.Join(dir, "appState.json"), log)
	require.NoError(t, state.Load())

	b := bus.New(log)
	New(log, library, search, state).Register(b)

	return &apiFixture{bus: b, albums: albums}
}

func (f *apiFixture) dispatch(t *testing.T, name string, payload string, out any) {
	t.Helper()

	var raw json.RawMessage
	if payload != "" {
		raw = json.RawMessage(payload)
	}
	resp, err := f.bus.Dispatch(context.Background(), name, raw)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(resp, out))
	}
}

func TestPlaylistRoundTrip(t *testing.T) {
	f := newAPIFixture(t)

	var saved domain.Playlist
	f.dispatch(t, MsgPlaylistSave, `{"title":"Morning","albums":[]}`, &saved)
	assert.NotEmpty(t, saved.ID)
	assert.NotEmpty(t, saved.Rev)

	var all []domain.Playlist
	f.dispatch(t, MsgPlaylistGetAll, "", &all)
	require.Len(t, all, 1)
	assert.Equal(t, "Morning", all[0].Title)

	payload, err := json.Marshal(saved)
	require.NoError(t, err)
	f.dispatch(t, MsgPlaylistDelete, string(payload), nil)

	f.dispatch(t, MsgPlaylistGetAll, "", &all)
	assert.Empty(t, all)
}

func TestPlaylistSaveRejectsBlankTitle(t *testing.T) {
	f := newAPIFixture(t)

	_, err := f.bus.Dispatch(context.Background(), MsgPlaylistSave,
		json.RawMessage(`{"title":"  "}`))
	assert.Error(t, err)
}

func TestPlaylistSaveList(t *testing.T) {
	f := newAPIFixture(t)

	var outcomes []BulkOutcome
	f.dispatch(t, MsgPlaylistSaveList,
		`[{"title":"One"},{"title":"Two"}]`, &outcomes)
	require.Len(t, outcomes, 2)
	for _, outcome := range outcomes {
		assert.True(t, outcome.OK)
		assert.NotEmpty(t, outcome.Rev)
	}
}

func TestAlbumExistsAndStats(t *testing.T) {
	f := newAPIFixture(t)

	_, err := f.albums.Save(domain.Album{
		Entity: domain.Entity{ID: "album-1"},
		Artist: "Low",
		Title:  "Trust",
		Year:   2002,
		Type:   domain.AlbumTypeAlbum,
		Path:   "/music/low/trust",
	})
	require.NoError(t, err)

	var exists bool
	f.dispatch(t, MsgAlbumExists, `{"path":"/music/low/trust"}`, &exists)
	assert.True(t, exists)

	f.dispatch(t, MsgAlbumExists, `{"path":"/music/other"}`, &exists)
	assert.False(t, exists)

	var stats []domain.StatEntry
	f.dispatch(t, MsgAlbumGetStats, `{"field":"artist"}`, &stats)
	require.Len(t, stats, 1)
	assert.Equal(t, "Low", stats[0].Key)
}

func TestArtistGetList(t *testing.T) {
	f := newAPIFixture(t)

	_, err := f.albums.Save(domain.Album{
		Entity: domain.Entity{ID: "album-1"},
		Artist: "Low",
		Title:  "Trust",
		Type:   domain.AlbumTypeAlbum,
		Path:   "/music/low/trust",
	})
	require.NoError(t, err)
	_, err = f.albums.Save(domain.Album{
		Entity: domain.Entity{ID: "album-2"},
		Artist: "Low",
		Title:  "Things We Lost in the Fire",
		Type:   domain.AlbumTypeAlbum,
		Path:   "/music/low/things",
	})
	require.NoError(t, err)

	var artists []domain.Artist
	f.dispatch(t, MsgArtistGetList, "", &artists)
	require.Len(t, artists, 1)
	assert.Equal(t, "Low", artists[0].Name)
	assert.Equal(t, 2, artists[0].Count)
}

func TestAlbumGetListDropsUnknown(t *testing.T) {
	f := newAPIFixture(t)

	_, err := f.albums.Save(domain.Album{
		Entity: domain.Entity{ID: "album-1"},
		Title:  "Trust",
		Type:   domain.AlbumTypeAlbum,
		Path:   "/music/a",
	})
	require.NoError(t, err)

	var albums []domain.Album
	f.dispatch(t, MsgAlbumGetList, `{"ids":["album-1","ghost"]}`, &albums)
	require.Len(t, albums, 1)
	assert.Equal(t, "album-1", albums[0].ID)
}

func TestSearchMessage(t *testing.T) {
	f := newAPIFixture(t)

	_, err := f.albums.Save(domain.Album{
		Entity: domain.Entity{ID: "album-1"},
		Artist: "Galaxie 500",
		Title:  "On Fire",
		Type:   domain.AlbumTypeAlbum,
		Path:   "/music/g500",
	})
	require.NoError(t, err)

	var albums []domain.Album
	f.dispatch(t, MsgSearch, `{"query":"fire"}`, &albums)
	require.Len(t, albums, 1)
	assert.Equal(t, "album-1", albums[0].ID)

	f.dispatch(t, MsgSearch, `{"query":""}`, &albums)
	assert.Empty(t, albums)
}

func TestUIStateRoundTrip(t *testing.T) {
	f := newAPIFixture(t)

	f.dispatch(t, MsgUIStateUpdate, `{"volume":0.4}`, nil)

	var state map[string]json.RawMessage
	f.dispatch(t, MsgUIStateLoad, "", &state)
	assert.JSONEq(t, `0.4`, string(state["volume"]))
}

func TestUnknownMessage(t *testing.T) {
	f := newAPIFixture(t)

	_, err := f.bus.Dispatch(context.Background(), "album.frobnicate", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownMessage)
}

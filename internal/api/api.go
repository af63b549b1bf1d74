// Package api binds the message names of the request surface to the
// services behind them. The names and payload shapes are the contract
// with the UI process.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ruckert/canto/internal/appstate"
	"github.com/ruckert/canto/internal/bus"
	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/service"
)

// Message names understood by the backend.
const (
	MsgPlaylistGetAll   = "playlist.getAll"
	MsgPlaylistSave     = "playlist.save"
	MsgPlaylistSaveList = "playlist.saveList"
	MsgPlaylistDelete   = "playlist.delete"

	MsgAlbumGetList    = "album.getList"
	MsgAlbumGetContent = "album.getContent"
	MsgAlbumGetLatest  = "album.getLatest"
	MsgAlbumExists     = "album.exists"
	MsgAlbumGetStats   = "album.getStats"
	MsgAlbumDeleteList = "album.deleteList"

	MsgTrackGetList = "track.getList"

	MsgArtistGetList = "artist.getList"

	MsgSearch = "search"

	MsgUIStateLoad   = "ui.stateLoad"
	MsgUIStateUpdate = "ui.stateUpdate"
)

// BulkOutcome is the JSON-safe form of a bulk write result.
type BulkOutcome struct {
	ID    string `json:"id"`
	Rev   string `json:"rev,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// API wires the services into the message bus.
type API struct {
	logger  *slog.Logger
	library *service.LibraryService
	search  *service.SearchService
	state   *appstate.Store
}

// New creates the API binding.
func New(
	logger *slog.Logger,
	library *service.LibraryService,
	search *service.SearchService,
	state *appstate.Store,
) *API {
	return &API{
		logger:  logger,
		library: library,
		search:  search,
		state:   state,
	}
}

// Register binds every message name. Called once at startup.
func (a *API) Register(b *bus.Bus) {
	bus.Register(b, MsgPlaylistGetAll, a.playlistGetAll)
	bus.Register(b, MsgPlaylistSave, a.playlistSave)
	bus.Register(b, MsgPlaylistSaveList, a.playlistSaveList)
	bus.Register(b, MsgPlaylistDelete, a.playlistDelete)

	bus.Register(b, MsgAlbumGetList, a.albumGetList)
	bus.Register(b, MsgAlbumGetContent, a.albumGetContent)
	bus.Register(b, MsgAlbumGetLatest, a.albumGetLatest)
	bus.Register(b, MsgAlbumExists, a.albumExists)
	bus.Register(b, MsgAlbumGetStats, a.albumGetStats)
	bus.Register(b, MsgAlbumDeleteList, a.albumDeleteList)

	bus.Register(b, MsgTrackGetList, a.trackGetList)

	bus.Register(b, MsgArtistGetList, a.artistGetList)

	bus.Register(b, MsgSearch, a.searchAlbums)

	bus.Register(b, MsgUIStateLoad, a.stateLoad)
	bus.Register(b, MsgUIStateUpdate, a.stateUpdate)
}

func (a *API) playlistGetAll(_ context.Context, _ struct{}) ([]domain.Playlist, error) {
	return a.library.GetAllPlaylists()
}

func (a *API) playlistSave(_ context.Context, playlist domain.Playlist) (domain.Playlist, error) {
	return a.library.SavePlaylist(playlist)
}

func (a *API) playlistSaveList(_ context.Context, playlists []domain.Playlist) ([]BulkOutcome, error) {
	results := a.library.SavePlaylists(playlists)

	outcomes := make([]BulkOutcome, len(results))
	for i, res := range results {
		outcomes[i] = BulkOutcome{ID: res.ID, Rev: res.Rev, OK: res.OK}
		if res.Err != nil {
			outcomes[i].Error = res.Err.Error()
		}
	}
	return outcomes, nil
}

func (a *API) playlistDelete(_ context.Context, playlist domain.Playlist) (any, error) {
	return nil, a.library.DeletePlaylist(playlist)
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (a *API) albumGetList(_ context.Context, req idsRequest) ([]domain.Album, error) {
	return a.library.GetAlbums(req.IDs)
}

type albumContentRequest struct {
	ID string `json:"id"`
}

type albumContentResponse struct {
	Album  domain.Album   `json:"album"`
	Tracks []domain.Track `json:"tracks"`
}

func (a *API) albumGetContent(_ context.Context, req albumContentRequest) (albumContentResponse, error) {
	album, tracks, err := a.library.GetAlbumFull(req.ID)
	if err != nil {
		return albumContentResponse{}, err
	}
	if tracks == nil {
		tracks = []domain.Track{}
	}
	return albumContentResponse{Album: album, Tracks: tracks}, nil
}

type latestRequest struct {
	Since time.Time `json:"since"`
	Limit int       `json:"limit"`
}

func (a *API) albumGetLatest(_ context.Context, req latestRequest) ([]domain.Album, error) {
	return a.library.GetLatestAlbums(req.Since, req.Limit)
}

type existsRequest struct {
	Path string `json:"path"`
}

func (a *API) albumExists(_ context.Context, req existsRequest) (bool, error) {
	return a.library.AlbumExists(req.Path)
}

type statsRequest struct {
	Field string `json:"field"`
}

func (a *API) albumGetStats(_ context.Context, req statsRequest) ([]domain.StatEntry, error) {
	return a.library.GetAlbumStats(req.Field)
}

func (a *API) albumDeleteList(_ context.Context, req idsRequest) (any, error) {
	return nil, a.library.RemoveAlbums(req.IDs)
}

type trackListRequest struct {
	IDs         []string `json:"ids"`
	ForceUpdate bool     `json:"forceUpdate"`
	Persist     bool     `json:"persist"`
}

func (a *API) trackGetList(_ context.Context, req trackListRequest) ([]domain.Track, error) {
	return a.library.GetTrackList(req.IDs, req.ForceUpdate, req.Persist)
}

func (a *API) artistGetList(_ context.Context, _ struct{}) ([]domain.Artist, error) {
	return a.library.GetArtists()
}

type searchRequest struct {
	Query string `json:"query"`
}

func (a *API) searchAlbums(_ context.Context, req searchRequest) ([]domain.Album, error) {
	return a.search.Search(req.Query)
}

func (a *API) stateLoad(_ context.Context, _ struct{}) (map[string]json.RawMessage, error) {
	return a.state.Get(), nil
}

func (a *API) stateUpdate(_ context.Context, patch map[string]json.RawMessage) (any, error) {
	return nil, a.state.Update(patch)
}

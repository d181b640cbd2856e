package endpoints

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/apperror"
	"github.com/Nixie-Tech-LLC/signage/internal/content"
	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
	"github.com/Nixie-Tech-LLC/signage/internal/playlist"
	"github.com/Nixie-Tech-LLC/signage/internal/storage"
)

// ETagCache remembers the feed ETag of a playlist.
type ETagCache interface {
	playlist.Invalidator
	PlaylistETag(ctx context.Context, playlistID string) (string, bool)
	StorePlaylistETag(ctx context.Context, playlistID, etag string, ttl time.Duration)
}

type PlayerController struct {
	store      db.Store
	storage    storage.Storage
	cache      ETagCache
	staleAfter time.Duration
	now        func() time.Time
}

func newPlayerController(store db.Store, storage storage.Storage, cache ETagCache, staleAfter time.Duration) *PlayerController {
	return &PlayerController{
		store:      store,
		storage:    storage,
		cache:      cache,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// PlayerModule mounts all authenticated /players endpoints
func PlayerModule(store db.Store, storage storage.Storage, cache ETagCache, staleAfter time.Duration) api.Module {
	ctl := newPlayerController(store, storage, cache, staleAfter)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/players", ctl.listPlayers)
		c.POST("/players", ctl.createPlayer)
		c.GET("/players/:id", ctl.getPlayer)
		c.PUT("/players/:id", ctl.updatePlayer)
		c.DELETE("/players/:id", ctl.deletePlayer)

		c.POST("/players/:id/status", ctl.updateStatus)
		c.POST("/players/:id/screenshot", ctl.uploadScreenshot)
		c.GET("/players/:id/playlist", ctl.playerFeed)
	})
}

func (p *PlayerController) mapPlayer(pl model.Player) packets.PlayerResponse {
	return packets.PlayerResponse{Player: pl, Stale: pl.Stale(p.now(), p.staleAfter)}
}

func (p *PlayerController) invalidate(ctx context.Context, ids ...*string) {
	if p.cache == nil {
		return
	}
	for _, id := range ids {
		if id != nil {
			p.cache.InvalidatePlaylist(ctx, *id)
		}
	}
}

func (p *PlayerController) listPlayers(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	players, err := p.store.ListPlayers(ctx, user.Owner())
	if err != nil {
		return nil, api.FromError(err, "[player] list: could not list players")
	}

	assigned := false
	for _, pl := range players {
		assigned = assigned || pl.PlaylistID != nil
	}
	playlists := map[string]packets.PlaylistResponse{}
	if assigned {
		all, err := p.store.ListPlaylists(ctx, user.Owner())
		if err != nil {
			return nil, api.FromError(err, "[player] list: could not list playlists")
		}
		for _, pl := range all {
			playlists[pl.ID] = mapPlaylist(pl)
		}
	}

	out := make([]packets.PlayerResponse, 0, len(players))
	for _, pl := range players {
		resp := p.mapPlayer(pl)
		if pl.PlaylistID != nil {
			if mapped, ok := playlists[*pl.PlaylistID]; ok {
				resp.Playlist = &mapped
			}
		}
		out = append(out, resp)
	}
	return out, nil
}

func (p *PlayerController) createPlayer(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.CreatePlayerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("[player] create: bad request")
		return nil, api.BadRequest(err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, api.BadRequest("name is required")
	}

	created, err := p.store.CreatePlayer(ctx, user.Owner(), name, req.Description)
	if err != nil {
		return nil, api.FromError(err, "[player] create: could not create player")
	}
	return api.Created(p.mapPlayer(*created)), nil
}

// GET /api/players/:id includes the assigned playlist with its aggregates.
func (p *PlayerController) getPlayer(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "player")
	if apiErr != nil {
		return nil, apiErr
	}

	owner := user.Owner()
	found, err := p.store.GetPlayer(ctx, owner, id)
	if err != nil {
		return nil, api.FromError(err, "[player] get: could not load player")
	}

	resp := p.mapPlayer(*found)
	if found.PlaylistID != nil {
		pl, err := p.store.GetPlaylist(ctx, owner, *found.PlaylistID)
		switch {
		case err == nil:
			mapped := mapPlaylist(*pl)
			resp.Playlist = &mapped
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, api.FromError(err, "[player] get: could not load playlist")
		}
	}
	return resp, nil
}

// PUT /api/players/:id  {name?, description?, playlistId?}
func (p *PlayerController) updatePlayer(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "player")
	if apiErr != nil {
		return nil, apiErr
	}

	var req packets.UpdatePlayerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	owner := user.Owner()
	current, err := p.store.GetPlayer(ctx, owner, id)
	if err != nil {
		return nil, api.FromError(err, "[player] update: could not load player")
	}

	next := *current
	if req.Name.Set {
		if req.Name.Value == nil || strings.TrimSpace(*req.Name.Value) == "" {
			return nil, api.BadRequest("name must not be empty")
		}
		next.Name = strings.TrimSpace(*req.Name.Value)
	}
	next.Description = req.Description.Or(current.Description)

	if req.PlaylistID.Set && req.PlaylistID.Value != nil {
		playlistID := *req.PlaylistID.Value
		if !validID(playlistID) {
			return nil, api.NotFound("playlist not found")
		}
		if _, err := p.store.GetPlaylist(ctx, owner, playlistID); err != nil {
			return nil, api.FromError(err, "[player] update: could not load playlist")
		}
	}
	next.PlaylistID = req.PlaylistID.Or(current.PlaylistID)

	updated, err := p.store.UpdatePlayer(ctx, owner, next)
	if err != nil {
		return nil, api.FromError(err, "[player] update: could not update player")
	}
	p.invalidate(ctx, current.PlaylistID, updated.PlaylistID)
	return p.mapPlayer(*updated), nil
}

func (p *PlayerController) deletePlayer(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "player")
	if apiErr != nil {
		return nil, apiErr
	}

	owner := user.Owner()
	found, err := p.store.GetPlayer(ctx, owner, id)
	if err != nil {
		return nil, api.FromError(err, "[player] delete: could not load player")
	}
	if err := p.store.DeletePlayer(ctx, owner, id); err != nil {
		return nil, api.FromError(err, "[player] delete: could not delete player")
	}
	if found.Screenshot != nil {
		if err := p.storage.DeleteFile(*found.Screenshot); err != nil {
			log.Warn().Err(err).Str("player_id", id).Msg("[player] delete: could not remove screenshot")
		}
	}
	return packets.MessageResponse{Message: "player deleted"}, nil
}

// POST /api/players/:id/status  {status}
func (p *PlayerController) updateStatus(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "player")
	if apiErr != nil {
		return nil, apiErr
	}

	var req packets.UpdatePlayerStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if !req.Status.IsValid() {
		return nil, api.BadRequest("status must be online or offline")
	}

	updated, err := p.store.SetPlayerStatus(ctx, user.Owner(), id, req.Status)
	if err != nil {
		return nil, api.FromError(err, "[player] status: could not update status")
	}
	return p.mapPlayer(*updated), nil
}

// POST /api/players/:id/screenshot  multipart: screenshot
func (p *PlayerController) uploadScreenshot(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "player")
	if apiErr != nil {
		return nil, apiErr
	}

	uploadLimit(ctx, content.MaxScreenshotSize)
	fh, apiErr := formFile(ctx, "screenshot", content.MaxScreenshotSize)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := content.ValidateScreenshot(fh.Filename); err != nil {
		return nil, api.FromError(err, "[player] screenshot: rejected upload")
	}

	owner := user.Owner()
	current, err := p.store.GetPlayer(ctx, owner, id)
	if err != nil {
		return nil, api.FromError(err, "[player] screenshot: could not load player")
	}

	ref, err := p.storage.SaveFile(fh, "screenshots")
	if err != nil {
		log.Error().Err(err).Str("player_id", id).Msg("[player] screenshot: could not store file")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not store file"}
	}

	updated, err := p.store.SetPlayerScreenshot(ctx, owner, id, ref)
	if err != nil {
		if derr := p.storage.DeleteFile(ref); derr != nil {
			log.Warn().Err(derr).Str("ref", ref).Msg("[player] screenshot: could not remove orphaned file")
		}
		return nil, api.FromError(err, "[player] screenshot: could not save reference")
	}

	if current.Screenshot != nil && *current.Screenshot != ref {
		if err := p.storage.DeleteFile(*current.Screenshot); err != nil {
			log.Warn().Err(err).Str("player_id", id).Msg("[player] screenshot: could not remove previous file")
		}
	}
	return p.mapPlayer(*updated), nil
}

// GET /api/players/:id/playlist
// Serves the active entries of the assigned playlist. The ETag is cached until the
// next start or end date among the entries, when the active set changes by itself.
func (p *PlayerController) playerFeed(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "player")
	if apiErr != nil {
		return nil, apiErr
	}

	owner := user.Owner()
	player, err := p.store.GetPlayer(ctx, owner, id)
	if err != nil {
		return nil, api.FromError(err, "[player] feed: could not load player")
	}
	if player.PlaylistID == nil {
		return nil, api.NotFound("playlist not found")
	}
	playlistID := *player.PlaylistID

	ifNoneMatch := ctx.GetHeader("If-None-Match")
	if p.cache != nil {
		if etag, ok := p.cache.PlaylistETag(ctx, playlistID); ok && etagMatches(ifNoneMatch, etag) {
			ctx.Header("ETag", etag)
			return api.NotModified(), nil
		}
	}

	pl, err := p.store.GetPlaylist(ctx, owner, playlistID)
	if err != nil {
		return nil, api.FromError(err, "[player] feed: could not load playlist")
	}

	now := p.now()
	active := playlist.ActiveEntries(pl.Entries, now)
	etag := playlist.ETag(pl.ID, active)
	if p.cache != nil {
		var ttl time.Duration
		if next, ok := playlist.NextBoundary(pl.Entries, now); ok {
			ttl = next.Sub(now)
		}
		p.cache.StorePlaylistETag(ctx, pl.ID, etag, ttl)
	}

	ctx.Header("ETag", etag)
	if etagMatches(ifNoneMatch, etag) {
		return api.NotModified(), nil
	}

	agg := playlist.ComputeAggregates(active)
	return packets.PlayerFeedResponse{
		PlayerID:      player.ID,
		PlaylistID:    pl.ID,
		Name:          pl.Name,
		Entries:       active,
		TotalDuration: agg.TotalDuration,
		TotalSize:     agg.TotalSize,
		ETag:          etag,
	}, nil
}

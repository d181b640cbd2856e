package endpoints

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
	"github.com/Nixie-Tech-LLC/signage/internal/playlist"
)

type PlaylistController struct {
	store  db.Store
	engine *playlist.Engine
	cache  playlist.Invalidator
}

func newPlaylistController(store db.Store, engine *playlist.Engine, cache playlist.Invalidator) *PlaylistController {
	return &PlaylistController{store: store, engine: engine, cache: cache}
}

// PlaylistModule mounts all authenticated /playlists endpoints.
func PlaylistModule(store db.Store, engine *playlist.Engine, cache playlist.Invalidator) api.Module {
	ctl := newPlaylistController(store, engine, cache)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/playlists", ctl.listPlaylists)
		c.POST("/playlists", ctl.createPlaylist)
		c.GET("/playlists/:id", ctl.getPlaylist)
		c.PUT("/playlists/:id", ctl.updatePlaylist)
		c.DELETE("/playlists/:id", ctl.deletePlaylist)

		c.POST("/playlists/:id/content", ctl.addContent)
		c.DELETE("/playlists/:id/content/:contentId", ctl.removeContent)
	})
}

func mapPlaylist(pl model.Playlist) packets.PlaylistResponse {
	entries := pl.Entries
	if entries == nil {
		entries = []model.PlaylistEntry{}
	}
	agg := playlist.ComputeAggregates(entries)
	return packets.PlaylistResponse{
		ID:            pl.ID,
		Name:          pl.Name,
		OwnerID:       pl.OwnerID,
		CreatedAt:     pl.CreatedAt,
		UpdatedAt:     pl.UpdatedAt,
		Entries:       entries,
		TotalDuration: agg.TotalDuration,
		TotalSize:     agg.TotalSize,
	}
}

// ===== Handlers (AuthHandlerFunc signatures) =====

func (p *PlaylistController) listPlaylists(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	all, err := p.store.ListPlaylists(ctx, user.Owner())
	if err != nil {
		return nil, api.FromError(err, "[playlist] list: could not list playlists")
	}

	out := make([]packets.PlaylistResponse, 0, len(all))
	for _, pl := range all {
		out = append(out, mapPlaylist(pl))
	}
	return out, nil
}

func (p *PlaylistController) createPlaylist(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.CreatePlaylistRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("[playlist] create: bad request")
		return nil, api.BadRequest(err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, api.BadRequest("name is required")
	}

	pl, err := p.store.CreatePlaylist(ctx, user.Owner(), name)
	if err != nil {
		return nil, api.FromError(err, "[playlist] create: could not create playlist")
	}
	return api.Created(mapPlaylist(*pl)), nil
}

func (p *PlaylistController) getPlaylist(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "playlist")
	if apiErr != nil {
		return nil, apiErr
	}
	pl, err := p.store.GetPlaylist(ctx, user.Owner(), id)
	if err != nil {
		return nil, api.FromError(err, "[playlist] get: could not load playlist")
	}
	return mapPlaylist(*pl), nil
}

// PUT /api/playlists/:id  {name?, contentIds?}
// contentIds replaces the whole membership in the given order. Both fields are written in one
// transaction, so a rejected list leaves the name untouched too.
func (p *PlaylistController) updatePlaylist(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "playlist")
	if apiErr != nil {
		return nil, apiErr
	}

	var req packets.UpdatePlaylistRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	update := model.PlaylistUpdate{ContentIDs: req.ContentIDs}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, api.BadRequest("name must not be empty")
		}
		update.Name = &name
	}
	if update.ContentIDs != nil {
		for _, cid := range *update.ContentIDs {
			if !validID(cid) {
				return nil, api.NotFound("content not found")
			}
		}
	}

	owner := user.Owner()
	if err := p.engine.Update(ctx, owner, id, update); err != nil {
		return nil, api.FromError(err, "[playlist] update: could not update playlist")
	}

	pl, err := p.store.GetPlaylist(ctx, owner, id)
	if err != nil {
		return nil, api.FromError(err, "[playlist] update: could not reload playlist")
	}
	return mapPlaylist(*pl), nil
}

func (p *PlaylistController) deletePlaylist(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "playlist")
	if apiErr != nil {
		return nil, apiErr
	}
	if err := p.store.DeletePlaylist(ctx, user.Owner(), id); err != nil {
		return nil, api.FromError(err, "[playlist] delete: could not delete playlist")
	}
	if p.cache != nil {
		p.cache.InvalidatePlaylist(ctx, id)
	}
	return packets.MessageResponse{Message: "playlist deleted"}, nil
}

// POST /api/playlists/:id/content  {contentId}
func (p *PlaylistController) addContent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "playlist")
	if apiErr != nil {
		return nil, apiErr
	}

	var req packets.AddPlaylistContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if !validID(req.ContentID) {
		return nil, api.NotFound("content not found")
	}

	entry, err := p.engine.Append(ctx, user.Owner(), id, req.ContentID)
	if err != nil {
		return nil, api.FromError(err, "[playlist] add content: could not append entry")
	}
	return api.Created(entry), nil
}

// DELETE /api/playlists/:id/content/:contentId[?compact=true]
// Without compact the remaining orders keep their gaps until the next full replace.
func (p *PlaylistController) removeContent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "playlist")
	if apiErr != nil {
		return nil, apiErr
	}
	contentID, apiErr := pathID(ctx, "contentId", "content")
	if apiErr != nil {
		return nil, apiErr
	}

	owner := user.Owner()
	if ctx.Query("compact") == "true" {
		if _, err := p.engine.Without(ctx, owner, id, contentID); err != nil {
			return nil, api.FromError(err, "[playlist] remove content: could not compact entries")
		}
	} else if _, err := p.engine.RemoveByContent(ctx, owner, id, contentID); err != nil {
		return nil, api.FromError(err, "[playlist] remove content: could not remove entries")
	}
	return packets.MessageResponse{Message: "content removed from playlist"}, nil
}

package endpoints

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/content"
	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
	"github.com/Nixie-Tech-LLC/signage/internal/playlist"
	"github.com/Nixie-Tech-LLC/signage/internal/storage"
)

type ContentController struct {
	store   db.Store
	storage storage.Storage
	cache   playlist.Invalidator
}

func newContentController(store db.Store, storage storage.Storage, cache playlist.Invalidator) *ContentController {
	return &ContentController{store: store, storage: storage, cache: cache}
}

// ContentModule mounts all authenticated /content endpoints
func ContentModule(store db.Store, storage storage.Storage, cache playlist.Invalidator) api.Module {
	ctl := newContentController(store, storage, cache)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/content/:id", ctl.getContent)
		c.GET("/content", ctl.listContent)
		c.POST("/content", ctl.createContent)
		c.PUT("/content/:id", ctl.updateContent)
		c.DELETE("/content/:id", ctl.deleteContent)
	})
}

// invalidatePlaylists drops the feed ETag of every playlist showing contentID.
func (c *ContentController) invalidatePlaylists(ctx context.Context, playlistIDs []string) {
	if c.cache == nil {
		return
	}
	for _, id := range playlistIDs {
		c.cache.InvalidatePlaylist(ctx, id)
	}
}

// GET /api/content?type=video&name=promo
func (c *ContentController) listContent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	filter := model.ContentFilter{Names: ctx.QueryArray("name")}
	for _, t := range ctx.QueryArray("type") {
		ct := model.ContentType(strings.ToLower(t))
		if !ct.IsValid() {
			return nil, api.BadRequest("type must be image or video")
		}
		filter.Types = append(filter.Types, ct)
	}

	all, err := c.store.SearchContent(ctx, user.Owner(), filter)
	if err != nil {
		return nil, api.FromError(err, "[content] list: could not list content")
	}
	return all, nil
}

func (c *ContentController) getContent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "content")
	if apiErr != nil {
		return nil, apiErr
	}
	x, err := c.store.GetContent(ctx, user.Owner(), id)
	if err != nil {
		return nil, api.FromError(err, "[content] get: could not load content")
	}
	return x, nil
}

// POST /api/content (multipart: file, name, description, duration, startDate, endDate)
func (c *ContentController) createContent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	uploadLimit(ctx, content.MaxMediaSize)

	fh, apiErr := formFile(ctx, "file", content.MaxMediaSize)
	if apiErr != nil {
		log.Warn().Str("reason", apiErr.Message).Msg("[content] create: rejected upload")
		return nil, apiErr
	}

	typ, err := content.Classify(fh.Filename)
	if err != nil {
		return nil, api.FromError(err, "[content] create: unsupported file")
	}

	item := model.Content{
		Name:        strings.TrimSpace(ctx.PostForm("name")),
		Description: formString(ctx, "description"),
		Type:        typ,
		FileSize:    fh.Size,
	}
	if item.Duration, apiErr = formInt(ctx, "duration"); apiErr != nil {
		return nil, apiErr
	}
	if item.StartDate, apiErr = formTime(ctx, "startDate"); apiErr != nil {
		return nil, apiErr
	}
	if item.EndDate, apiErr = formTime(ctx, "endDate"); apiErr != nil {
		return nil, apiErr
	}
	if err := content.Validate(item); err != nil {
		return nil, api.FromError(err, "[content] create: invalid metadata")
	}

	ref, err := c.storage.SaveFile(fh, "content")
	if err != nil {
		log.Error().Err(err).Str("filename", fh.Filename).Msg("[content] create: could not store file")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not store file"}
	}
	item.FilePath = ref

	created, err := c.store.CreateContent(ctx, user.Owner(), item)
	if err != nil {
		if delErr := c.storage.DeleteFile(ref); delErr != nil {
			log.Warn().Err(delErr).Str("file", ref).Msg("[content] create: could not remove orphaned file")
		}
		return nil, api.FromError(err, "[content] create: could not save content")
	}

	log.Info().Str("content_id", created.ID).Str("type", string(created.Type)).Int64("size", created.FileSize).
		Msg("[content] uploaded")
	return api.Created(created), nil
}

// PUT /api/content/:id
func (c *ContentController) updateContent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "content")
	if apiErr != nil {
		return nil, apiErr
	}

	// An empty body is a patch with no fields set.
	var request packets.UpdateContentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		return nil, api.BadRequest(err.Error())
	}

	owner := user.Owner()
	current, err := c.store.GetContent(ctx, owner, id)
	if err != nil {
		return nil, api.FromError(err, "[content] update: could not load content")
	}

	merged, err := content.ApplyPatch(*current, request)
	if err != nil {
		return nil, api.FromError(err, "[content] update: invalid patch")
	}

	updated, err := c.store.UpdateContent(ctx, owner, merged)
	if err != nil {
		return nil, api.FromError(err, "[content] update: could not save content")
	}

	playlistIDs, err := c.store.PlaylistIDsForContent(ctx, owner, id)
	if err != nil {
		log.Warn().Err(err).Str("content_id", id).Msg("[content] update: could not resolve playlists to invalidate")
	}
	c.invalidatePlaylists(ctx, playlistIDs)

	return updated, nil
}

// DELETE /api/content/:id
// The stored file goes first and its failure is only logged; the row delete cascades to playlist entries.
func (c *ContentController) deleteContent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx, "id", "content")
	if apiErr != nil {
		return nil, apiErr
	}

	owner := user.Owner()
	current, err := c.store.GetContent(ctx, owner, id)
	if err != nil {
		return nil, api.FromError(err, "[content] delete: could not load content")
	}

	playlistIDs, err := c.store.PlaylistIDsForContent(ctx, owner, id)
	if err != nil {
		log.Warn().Err(err).Str("content_id", id).Msg("[content] delete: could not resolve playlists to invalidate")
	}

	if err := c.storage.DeleteFile(current.FilePath); err != nil {
		log.Warn().Err(err).Str("content_id", id).Str("file", current.FilePath).
			Msg("[content] delete: could not remove stored file")
	}

	if err := c.store.DeleteContent(ctx, owner, id); err != nil {
		return nil, api.FromError(err, "[content] delete: could not delete content")
	}
	c.invalidatePlaylists(ctx, playlistIDs)

	return packets.MessageResponse{Message: "content deleted"}, nil
}

package endpoints

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

// pathID reads a uuid path parameter. A malformed id cannot name an existing
// row, so it is reported as not found.
func pathID(ctx *gin.Context, param, resource string) (string, *api.APIError) {
	raw := ctx.Param(param)
	if _, err := uuid.Parse(raw); err != nil {
		return "", api.NotFound(resource + " not found")
	}
	return raw, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// formTime parses an optional timestamp form field. Empty means unset.
func formTime(ctx *gin.Context, field string) (*time.Time, *api.APIError) {
	raw := strings.TrimSpace(ctx.PostForm(field))
	if raw == "" {
		return nil, nil
	}
	t, err := model.ParseTime(raw)
	if err != nil {
		return nil, api.BadRequest("invalid " + field)
	}
	return &t, nil
}

func formInt(ctx *gin.Context, field string) (*int, *api.APIError) {
	raw := strings.TrimSpace(ctx.PostForm(field))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, api.BadRequest("invalid " + field)
	}
	return &n, nil
}

func formString(ctx *gin.Context, field string) *string {
	v, ok := ctx.GetPostForm(field)
	if !ok {
		return nil
	}
	return &v
}

// uploadLimit caps the request body slightly above the file limit to leave room for form fields.
func uploadLimit(ctx *gin.Context, fileLimit int64) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, fileLimit+1<<20)
}

// formFile returns the named upload or a 400 explaining why it is unusable.
func formFile(ctx *gin.Context, field string, limit int64) (*multipart.FileHeader, *api.APIError) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, api.BadRequest("file too large")
		}
		return nil, api.BadRequest(field + " is required")
	}
	if fh.Size > limit {
		return nil, api.BadRequest("file too large")
	}
	return fh, nil
}

// etagMatches implements If-None-Match comparison (weak, lists and "*").
func etagMatches(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/apperror"
	"github.com/Nixie-Tech-LLC/signage/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

type APIError struct {
	Code    int
	Message string
}

// Response lets a handler choose a status other than 200. A nil Body writes no body.
type Response struct {
	Code int
	Body any
}

func Created(body any) Response {
	return Response{Code: http.StatusCreated, Body: body}
}

func NotModified() Response {
	return Response{Code: http.StatusNotModified}
}

func BadRequest(msg string) *APIError {
	return &APIError{Code: http.StatusBadRequest, Message: msg}
}

func NotFound(msg string) *APIError {
	return &APIError{Code: http.StatusNotFound, Message: msg}
}

// FromError maps a store or domain error onto an APIError.
// Internal failures are logged under op and reported with a generic message.
func FromError(err error, op string) *APIError {
	code := apperror.Status(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg(op)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		log.Warn().Err(err).Msg(op)
	}
	return &APIError{Code: code, Message: apperror.Message(err)}
}

type HandlerFuncWithAuth func(ctx *gin.Context, user *model.User) (any, *APIError)
type HandlerFunc func(ctx *gin.Context) (any, *APIError)

func write(ctx *gin.Context, result any, apiErr *APIError) {
	if apiErr != nil {
		ctx.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
		return
	}
	if r, ok := result.(Response); ok {
		if r.Body == nil {
			ctx.Status(r.Code)
			return
		}
		ctx.JSON(r.Code, r.Body)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func ResolveEndpointWithAuth(h HandlerFuncWithAuth) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := middleware.GetCurrentUser(ctx)
		if !ok {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		result, apiErr := h(ctx, user)
		write(ctx, result, apiErr)
	}
}

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		write(ctx, result, apiErr)
	}
}

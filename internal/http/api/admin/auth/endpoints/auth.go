package endpoints

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/apperror"
	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api/admin/auth/packets"
	"github.com/Nixie-Tech-LLC/signage/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

// AuthPublicModule mounts public auth endpoints (/auth/register, /auth/login).
// Extra middleware (the rate limiter) runs in front of both.
func AuthPublicModule(jwtSecret string, lifespan time.Duration, store db.Store, mw ...gin.HandlerFunc) api.Module {
	ctl := newAccountManager(jwtSecret, lifespan, store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_POST("/auth/register", ctl.register, mw...)
		c.PUBLIC_POST("/auth/login", ctl.login, mw...)
	})
}

// AuthSessionModule mounts private session endpoints (JWT required)
func AuthSessionModule(jwtSecret string, lifespan time.Duration, store db.Store) api.Module {
	ctl := newAccountManager(jwtSecret, lifespan, store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/auth/me", ctl.me)
	})
}

type AccountManager struct {
	jwtSecret string
	lifespan  time.Duration
	store     db.Store
}

func newAccountManager(secret string, lifespan time.Duration, store db.Store) *AccountManager {
	return &AccountManager{jwtSecret: secret, lifespan: lifespan, store: store}
}

func (a *AccountManager) issue(user *model.User) (packets.AuthResponse, *api.APIError) {
	token, err := middleware.GenerateJWT(user.ID, a.jwtSecret, a.lifespan)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("[auth] could not sign token")
		return packets.AuthResponse{}, &api.APIError{Code: http.StatusInternalServerError, Message: "could not generate token"}
	}
	return packets.AuthResponse{Token: token, User: user}, nil
}

// POST /api/auth/register
func (a *AccountManager) register(ctx *gin.Context) (any, *api.APIError) {
	var request packets.RegisterRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	email := strings.ToLower(strings.TrimSpace(request.Email))

	hashed, err := middleware.HashPassword(request.Password)
	if err != nil {
		log.Error().Err(err).Msg("[auth] register: could not hash password")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not hash password"}
	}

	user, err := a.store.CreateUser(ctx, email, hashed, request.Name)
	if err != nil {
		return nil, api.FromError(err, "[auth] register: could not create user")
	}

	resp, apiErr := a.issue(user)
	if apiErr != nil {
		return nil, apiErr
	}
	log.Info().Str("user_id", user.ID).Msg("[auth] user registered")
	return api.Created(resp), nil
}

// POST /api/auth/login
func (a *AccountManager) login(ctx *gin.Context) (any, *api.APIError) {
	var request packets.LoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	email := strings.ToLower(strings.TrimSpace(request.Email))

	// Unknown email and wrong password answer the same way.
	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, api.FromError(err, "[auth] login: could not load user")
	}
	if err != nil || !middleware.CheckPassword(user.HashedPassword, request.Password) {
		log.Warn().Str("email", email).Msg("[auth] login failed")
		return nil, &api.APIError{Code: http.StatusUnauthorized, Message: "invalid credentials"}
	}

	resp, apiErr := a.issue(user)
	if apiErr != nil {
		return nil, apiErr
	}
	return resp, nil
}

// GET /api/auth/me
func (a *AccountManager) me(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	return user, nil
}

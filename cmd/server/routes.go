package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/signage/internal/config"
	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	authapi "github.com/Nixie-Tech-LLC/signage/internal/http/api/admin/auth/endpoints"
	adminapi "github.com/Nixie-Tech-LLC/signage/internal/http/api/admin/control/endpoints"
	"github.com/Nixie-Tech-LLC/signage/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/signage/internal/playlist"
	"github.com/Nixie-Tech-LLC/signage/internal/redis"
	"github.com/Nixie-Tech-LLC/signage/internal/storage"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, cfg *config.Config, store db.Store, storageSystem storage.Storage, cache *redis.Cache) {
	r.Use(middleware.RequestLogger())

	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"Content-Length",
			"ETag",
		},
		AllowCredentials: false,
	}))

	engine := playlist.NewEngine(store, cache)
	limiter := middleware.NewRateLimiter(cfg.AuthRatePerMin)

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
		Auth:   false,
	},
		authapi.AuthPublicModule(cfg.JWTSecret, cfg.TokenLifespan, store, limiter.Middleware()),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      true,
		SecretKey: cfg.JWTSecret,
		Users:     store,
	},
		// control modules
		adminapi.ContentModule(store, storageSystem, cache),
		adminapi.PlaylistModule(store, engine, cache),
		adminapi.PlayerModule(store, storageSystem, cache, cfg.PlayerStaleAfter),
		// session endpoints that require auth
		authapi.AuthSessionModule(cfg.JWTSecret, cfg.TokenLifespan, store),
	)

	// Static content
	if !cfg.UseSpaces {
		r.Static(storage.PublicPrefix, cfg.UploadDir)
	}
}

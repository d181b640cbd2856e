package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/Nixie-Tech-LLC/signage/internal/apperror"
	"github.com/Nixie-Tech-LLC/signage/internal/config"
	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/heartbeat"
	"github.com/Nixie-Tech-LLC/signage/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/signage/internal/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.Command{
		Name:  "signage",
		Usage: "Digital signage content, playlist and player management API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Path to a .env file",
				Value:   ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run migrations and start the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: migrate,
			},
			{
				Name:  "seed",
				Usage: "Create the initial admin account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Admin email", Value: "admin@mediasignage.com"},
					&cli.StringFlag{Name: "password", Usage: "Admin password", Value: "admin123"},
					&cli.StringFlag{Name: "name", Usage: "Admin display name", Value: "Admin"},
				},
				Action: seed,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

// setup loads configuration, configures logging and connects to PostgreSQL.
func setup(ctx context.Context, cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("env-file"))
	if err != nil {
		return nil, err
	}
	configureLogger(cfg)

	if err := db.Init(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configureLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.DB.Close()
	return db.RunMigrations(ctx, db.DB, cfg.MigrationsPath)
}

func seed(ctx context.Context, cmd *cli.Command) error {
	if _, err := setup(ctx, cmd); err != nil {
		return err
	}
	defer db.DB.Close()

	hashed, err := middleware.HashPassword(cmd.String("password"))
	if err != nil {
		return err
	}
	name := cmd.String("name")
	user, err := db.NewStore(db.DB).CreateUser(ctx, cmd.String("email"), hashed, &name)
	if errors.Is(err, apperror.ErrConflict) {
		log.Info().Str("email", cmd.String("email")).Msg("[seed] admin already exists")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("[seed] admin created")
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.DB.Close()

	if err := db.RunMigrations(ctx, db.DB, cfg.MigrationsPath); err != nil {
		return err
	}
	store := db.NewStore(db.DB)

	var cache *redis.Cache
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
		defer rdb.Close()
		cache = redis.NewCache(rdb)
		if err := cache.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("address", cfg.RedisAddress).Msg("[redis] not reachable, feed ETags will be recomputed")
		}
	} else {
		log.Info().Msg("[redis] REDIS_ADDRESS not set, feed cache disabled")
	}

	storageSystem, err := InitStorage(cfg)
	if err != nil {
		return err
	}

	if cfg.MQTTBrokerURL != "" {
		listener := heartbeat.NewListener(cfg.MQTTBrokerURL, cfg.MQTTClientID, store)
		if err := listener.Start(); err != nil {
			log.Error().Err(err).Msg("[heartbeat] listener disabled")
		} else {
			defer listener.Stop()
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	RegisterRoutes(r, cfg, store, storageSystem, cache)

	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.ServerAddress).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

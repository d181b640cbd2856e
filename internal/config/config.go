package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds environment-based settings
type Config struct {
	Environment    string        `mapstructure:"app_env"`
	ServerAddress  string        `mapstructure:"server_address"`
	DatabaseURL    string        `mapstructure:"database_url"`
	MigrationsPath string        `mapstructure:"migrations_path"`
	LogLevel       string        `mapstructure:"log_level"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	TokenLifespan  time.Duration `mapstructure:"token_lifespan"`
	AuthRatePerMin int           `mapstructure:"auth_rate_per_minute"`

	RedisAddress  string `mapstructure:"redis_address"`
	RedisUsername string `mapstructure:"redis_username"`
	RedisPassword string `mapstructure:"redis_password"`

	MQTTBrokerURL string `mapstructure:"mqtt_broker_url"`
	MQTTClientID  string `mapstructure:"mqtt_client_id"`

	UploadDir       string `mapstructure:"upload_dir"`
	UseSpaces       bool   `mapstructure:"use_spaces"`
	SpacesEndpoint  string `mapstructure:"spaces_endpoint"`
	SpacesRegion    string `mapstructure:"spaces_region"`
	SpacesBucket    string `mapstructure:"spaces_bucket"`
	SpacesCDNURL    string `mapstructure:"spaces_cdn_url"`
	SpacesAccessKey string `mapstructure:"spaces_access_key"`
	SpacesSecretKey string `mapstructure:"spaces_secret_key"`

	PlayerStaleAfter time.Duration `mapstructure:"player_stale_after"`
}

var defaults = map[string]any{
	"app_env":              "development",
	"server_address":       ":8080",
	"migrations_path":      "./migrations",
	"log_level":            "info",
	"token_lifespan":       "168h",
	"auth_rate_per_minute": 30,
	"mqtt_client_id":       "signage-server",
	"upload_dir":           "./uploads",
	"use_spaces":           false,
	"player_stale_after":   "5m",
}

var keys = []string{
	"app_env", "server_address", "database_url", "migrations_path", "log_level",
	"jwt_secret", "token_lifespan", "auth_rate_per_minute",
	"redis_address", "redis_username", "redis_password",
	"mqtt_broker_url", "mqtt_client_id",
	"upload_dir", "use_spaces", "spaces_endpoint", "spaces_region", "spaces_bucket",
	"spaces_cdn_url", "spaces_access_key", "spaces_secret_key",
	"player_stale_after",
}

// Load reads .env files (when present) and then the environment.
// Real environment variables win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded, using process environment")
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.UseSpaces && (c.SpacesBucket == "" || c.SpacesEndpoint == "" || c.SpacesCDNURL == "") {
		return fmt.Errorf("USE_SPACES requires SPACES_ENDPOINT, SPACES_BUCKET and SPACES_CDN_URL")
	}
	if c.TokenLifespan <= 0 {
		return fmt.Errorf("TOKEN_LIFESPAN must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

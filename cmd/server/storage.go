package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/config"
	"github.com/Nixie-Tech-LLC/signage/internal/storage"
)

// InitStorage selects and returns the configured storage backend
func InitStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.UseSpaces {
		spacesStorage, err := storage.NewSpacesStorage(
			cfg.SpacesEndpoint,
			cfg.SpacesRegion,
			cfg.SpacesBucket,
			cfg.SpacesCDNURL,
			cfg.SpacesAccessKey,
			cfg.SpacesSecretKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Spaces storage: %w", err)
		}
		log.Info().Str("cdn", cfg.SpacesCDNURL).Msg("[storage] using Spaces with CDN")
		return spacesStorage, nil
	}

	log.Info().Str("dir", cfg.UploadDir).Msg("[storage] using local file storage")
	return storage.NewLocalStorage(cfg.UploadDir), nil
}

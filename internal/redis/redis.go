package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func NewClient(address, username, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     address,
		Username: username,
		Password: password,
		DB:       0,
	})
}

// Cache holds the player feed ETags. A nil *Cache is a valid, disabled cache,
// and redis failures are logged rather than returned.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache {
	if rdb == nil {
		return nil
	}
	return &Cache{rdb: rdb}
}

func playlistETagKey(playlistID string) string {
	return fmt.Sprintf("playlist:%s:etag", playlistID)
}

func (c *Cache) PlaylistETag(ctx context.Context, playlistID string) (string, bool) {
	if c == nil {
		return "", false
	}
	key := playlistETagKey(playlistID)
	etag, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("etag_key", key).Msg("[cache] failed to read playlist ETag")
		}
		return "", false
	}
	return etag, true
}

// StorePlaylistETag keeps etag for ttl; ttl <= 0 keeps it until invalidated.
func (c *Cache) StorePlaylistETag(ctx context.Context, playlistID, etag string, ttl time.Duration) {
	if c == nil {
		return
	}
	if ttl < 0 {
		ttl = 0
	}
	key := playlistETagKey(playlistID)
	if err := c.rdb.Set(ctx, key, etag, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("etag_key", key).Msg("[cache] failed to store playlist ETag")
	}
}

func (c *Cache) InvalidatePlaylist(ctx context.Context, playlistID string) {
	if c == nil {
		return
	}
	key := playlistETagKey(playlistID)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("etag_key", key).Msg("[cache] failed to invalidate playlist ETag")
		return
	}
	log.Debug().Str("playlist_id", playlistID).Str("etag_key", key).Msg("[cache] invalidated playlist ETag")
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

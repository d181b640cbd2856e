package packets

import (
	"time"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type PlaylistResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	OwnerID       string                `json:"ownerId"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
	Entries       []model.PlaylistEntry `json:"entries"`
	TotalDuration int                   `json:"totalDuration"`
	TotalSize     int64                 `json:"totalSize"`
}

type PlayerResponse struct {
	model.Player
	Stale    bool              `json:"stale"`
	Playlist *PlaylistResponse `json:"playlist,omitempty"`
}

// PlayerFeedResponse is what a device renders: the active entries of its playlist.
type PlayerFeedResponse struct {
	PlayerID      string                `json:"playerId"`
	PlaylistID    string                `json:"playlistId"`
	Name          string                `json:"name"`
	Entries       []model.PlaylistEntry `json:"entries"`
	TotalDuration int                   `json:"totalDuration"`
	TotalSize     int64                 `json:"totalSize"`
	ETag          string                `json:"etag"`
}

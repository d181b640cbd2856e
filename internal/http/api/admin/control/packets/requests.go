package packets

import (
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

// UpdateContentRequest is a partial patch: omitted fields are kept, null clears.
type UpdateContentRequest = model.ContentPatch

type CreatePlaylistRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdatePlaylistRequest replaces the playlist's entries when ContentIDs is present.
// An empty list clears the playlist.
type UpdatePlaylistRequest struct {
	Name       *string   `json:"name"`
	ContentIDs *[]string `json:"contentIds"`
}

type AddPlaylistContentRequest struct {
	ContentID string `json:"contentId" binding:"required"`
}

type CreatePlayerRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// UpdatePlayerRequest: playlistId null unassigns, omitted keeps the current assignment.
type UpdatePlayerRequest = model.PlayerPatch

type UpdatePlayerStatusRequest struct {
	Status model.PlayerStatus `json:"status" binding:"required"`
}

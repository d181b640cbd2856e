package model

import "time"

type Playlist struct {
	ID        string          `db:"id"         json:"id"`
	Name      string          `db:"name"       json:"name"`
	OwnerID   string          `db:"owner_id"   json:"ownerId"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
	Entries   []PlaylistEntry `db:"-"          json:"entries"`
}

type PlaylistEntry struct {
	ID         string    `db:"id"          json:"id"`
	PlaylistID string    `db:"playlist_id" json:"playlistId"`
	ContentID  string    `db:"content_id"  json:"contentId"`
	Order      int       `db:"position"    json:"order"`
	CreatedAt  time.Time `db:"created_at"  json:"createdAt"`
	Content    *Content  `db:"-"           json:"content,omitempty"`
}

// PlaylistUpdate changes name and membership in one write. A nil field is left alone;
// an empty ContentIDs clears the playlist.
type PlaylistUpdate struct {
	Name       *string
	ContentIDs *[]string
}

// Aggregates are derived on read and never stored.
type Aggregates struct {
	TotalDuration int   `json:"totalDuration"`
	TotalSize     int64 `json:"totalSize"`
}

package model

import "time"

type PlayerStatus string

const (
	PlayerOnline  PlayerStatus = "online"
	PlayerOffline PlayerStatus = "offline"
)

func (s PlayerStatus) IsValid() bool {
	return s == PlayerOnline || s == PlayerOffline
}

// Player represents a playback device registered by an owner.
type Player struct {
	ID          string       `db:"id"          json:"id"`
	Name        string       `db:"name"        json:"name"`
	Description *string      `db:"description" json:"description"`
	PlaylistID  *string      `db:"playlist_id" json:"playlistId"`
	OwnerID     string       `db:"owner_id"    json:"ownerId"`
	Status      PlayerStatus `db:"status"      json:"status"`
	LastSeen    *time.Time   `db:"last_seen"   json:"lastSeen"`
	Screenshot  *string      `db:"screenshot"  json:"screenshot"`
	CreatedAt   time.Time    `db:"created_at"  json:"createdAt"`
	UpdatedAt   time.Time    `db:"updated_at"  json:"updatedAt"`
}

// Stale reports an online player that has not been heard from within window.
func (p *Player) Stale(now time.Time, window time.Duration) bool {
	if p.Status != PlayerOnline || window <= 0 {
		return false
	}
	return p.LastSeen == nil || now.Sub(*p.LastSeen) > window
}

type PlayerPatch struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	PlaylistID  Optional[string] `json:"playlistId"`
}

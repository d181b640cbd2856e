// Package playlist keeps the dense 0-based entry order of playlists and derives
// the read-side views (aggregates, active window, ETag) served to admins and players.
package playlist

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

// EntryStore is the part of db.Store the engine writes through.
type EntryStore interface {
	ListEntries(ctx context.Context, owner model.Owner, playlistID string) ([]model.PlaylistEntry, error)
	ReplaceEntries(ctx context.Context, owner model.Owner, playlistID string, contentIDs []string) ([]model.PlaylistEntry, error)
	AppendEntry(ctx context.Context, owner model.Owner, playlistID, contentID string) (*model.PlaylistEntry, error)
	RemoveEntriesByContent(ctx context.Context, owner model.Owner, playlistID, contentID string) (int64, error)
	UpdatePlaylist(ctx context.Context, owner model.Owner, playlistID string, update model.PlaylistUpdate) error
}

type Invalidator interface {
	InvalidatePlaylist(ctx context.Context, playlistID string)
}

type Engine struct {
	store EntryStore
	cache Invalidator
}

// NewEngine wires the engine; cache may be nil.
func NewEngine(store EntryStore, cache Invalidator) *Engine {
	return &Engine{store: store, cache: cache}
}

func (e *Engine) invalidate(ctx context.Context, playlistID string) {
	if e.cache != nil {
		e.cache.InvalidatePlaylist(ctx, playlistID)
	}
}

// Replace sets the playlist membership to contentIDs with order = index.
// Duplicates are kept as separate entries.
func (e *Engine) Replace(ctx context.Context, owner model.Owner, playlistID string, contentIDs []string) ([]model.PlaylistEntry, error) {
	entries, err := e.store.ReplaceEntries(ctx, owner, playlistID, contentIDs)
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx, playlistID)
	log.Debug().Str("playlist_id", playlistID).Int("entries", len(entries)).Msg("[playlist] replaced entries")
	return entries, nil
}

// Update renames the playlist and/or replaces its membership atomically.
func (e *Engine) Update(ctx context.Context, owner model.Owner, playlistID string, update model.PlaylistUpdate) error {
	if err := e.store.UpdatePlaylist(ctx, owner, playlistID, update); err != nil {
		return err
	}
	e.invalidate(ctx, playlistID)
	return nil
}

// Append adds contentID after the current last entry.
func (e *Engine) Append(ctx context.Context, owner model.Owner, playlistID, contentID string) (*model.PlaylistEntry, error) {
	entry, err := e.store.AppendEntry(ctx, owner, playlistID, contentID)
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx, playlistID)
	return entry, nil
}

// RemoveByContent drops every entry of contentID and leaves gaps in the order.
// Use Without to keep the order dense.
func (e *Engine) RemoveByContent(ctx context.Context, owner model.Owner, playlistID, contentID string) (int64, error) {
	n, err := e.store.RemoveEntriesByContent(ctx, owner, playlistID, contentID)
	if err != nil {
		return 0, err
	}
	e.invalidate(ctx, playlistID)
	return n, nil
}

// Without removes contentID by reading the current order, filtering it and calling Replace,
// which renumbers the remaining entries 0..N-1.
func (e *Engine) Without(ctx context.Context, owner model.Owner, playlistID, contentID string) ([]model.PlaylistEntry, error) {
	current, err := e.store.ListEntries(ctx, owner, playlistID)
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(current))
	for _, entry := range current {
		if entry.ContentID != contentID {
			kept = append(kept, entry.ContentID)
		}
	}
	return e.Replace(ctx, owner, playlistID, kept)
}

// ContentIDs returns the content ids of entries in order.
func ContentIDs(entries []model.PlaylistEntry) []string {
	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ContentID
	}
	return ids
}

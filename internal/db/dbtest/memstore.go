// Package dbtest provides an in-memory db.Store with the same ownership and cascade rules
// as the postgres schema.
package dbtest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nixie-Tech-LLC/signage/internal/apperror"
	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

type MemStore struct {
	mu        sync.Mutex
	users     map[string]model.User
	content   map[string]model.Content
	playlists map[string]model.Playlist
	entries   map[string][]model.PlaylistEntry // by playlist id, insertion order
	players   map[string]model.Player

	// Now is used for every timestamp; tests may replace it.
	Now func() time.Time
}

var _ db.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		users:     map[string]model.User{},
		content:   map[string]model.Content{},
		playlists: map[string]model.Playlist{},
		entries:   map[string][]model.PlaylistEntry{},
		players:   map[string]model.Player{},
		Now:       time.Now,
	}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ---- users

func (m *MemStore) CreateUser(_ context.Context, email, hashedPassword string, name *string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, apperror.Conflict("user already exists")
		}
	}
	now := m.Now()
	u := model.User{ID: uuid.NewString(), Email: email, HashedPassword: hashedPassword, Name: name, CreatedAt: now, UpdatedAt: now}
	m.users[u.ID] = u
	return &u, nil
}

func (m *MemStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user")
}

func (m *MemStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user")
	}
	return &u, nil
}

// ---- content

func (m *MemStore) CreateContent(_ context.Context, owner model.Owner, c model.Content) (*model.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	c.ID = uuid.NewString()
	c.OwnerID = owner.UserID
	c.CreatedAt, c.UpdatedAt = now, now
	m.content[c.ID] = c
	return &c, nil
}

func (m *MemStore) ownedContent(owner model.Owner, id string) (model.Content, bool) {
	c, ok := m.content[id]
	if !ok || c.OwnerID != owner.UserID {
		return model.Content{}, false
	}
	return c, true
}

func (m *MemStore) GetContent(_ context.Context, owner model.Owner, id string) (*model.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.ownedContent(owner, id)
	if !ok {
		return nil, apperror.NotFound("content")
	}
	return &c, nil
}

func (m *MemStore) SearchContent(_ context.Context, owner model.Owner, filter model.ContentFilter) ([]model.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Content{}
	for _, c := range m.content {
		if c.OwnerID != owner.UserID || !matches(c, filter) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func matches(c model.Content, f model.ContentFilter) bool {
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			ok = ok || c.Type == t
		}
		if !ok {
			return false
		}
	}
	if len(f.Names) > 0 {
		ok := false
		for _, n := range f.Names {
			ok = ok || strings.Contains(strings.ToLower(c.Name), strings.ToLower(n))
		}
		if !ok {
			return false
		}
	}
	return true
}

func (m *MemStore) UpdateContent(_ context.Context, owner model.Owner, c model.Content) (*model.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.ownedContent(owner, c.ID)
	if !ok {
		return nil, apperror.NotFound("content")
	}
	cur.Name = c.Name
	cur.Description = c.Description
	cur.Duration = c.Duration
	cur.StartDate = c.StartDate
	cur.EndDate = c.EndDate
	cur.UpdatedAt = m.Now()
	m.content[cur.ID] = cur
	return &cur, nil
}

func (m *MemStore) DeleteContent(_ context.Context, owner model.Owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ownedContent(owner, id); !ok {
		return apperror.NotFound("content")
	}
	delete(m.content, id)
	for pid, list := range m.entries {
		kept := list[:0]
		for _, e := range list {
			if e.ContentID != id {
				kept = append(kept, e)
			}
		}
		m.entries[pid] = kept
	}
	return nil
}

func (m *MemStore) PlaylistIDsForContent(_ context.Context, owner model.Owner, contentID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []string{}
	for pid, list := range m.entries {
		if p, ok := m.playlists[pid]; !ok || p.OwnerID != owner.UserID {
			continue
		}
		for _, e := range list {
			if e.ContentID == contentID {
				ids = append(ids, pid)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ---- playlists

func (m *MemStore) CreatePlaylist(_ context.Context, owner model.Owner, name string) (*model.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	p := model.Playlist{ID: uuid.NewString(), Name: name, OwnerID: owner.UserID, CreatedAt: now, UpdatedAt: now}
	m.playlists[p.ID] = p
	p.Entries = []model.PlaylistEntry{}
	return &p, nil
}

func (m *MemStore) ownedPlaylist(owner model.Owner, id string) (model.Playlist, bool) {
	p, ok := m.playlists[id]
	if !ok || p.OwnerID != owner.UserID {
		return model.Playlist{}, false
	}
	return p, true
}

// sortedEntries returns entries ordered the way the SQL store orders them, with content attached.
func (m *MemStore) sortedEntries(playlistID string) []model.PlaylistEntry {
	list := m.entries[playlistID]
	out := make([]model.PlaylistEntry, 0, len(list))
	for _, e := range list {
		c := m.content[e.ContentID]
		e.Content = &c
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (m *MemStore) GetPlaylist(_ context.Context, owner model.Owner, id string) (*model.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ownedPlaylist(owner, id)
	if !ok {
		return nil, apperror.NotFound("playlist")
	}
	p.Entries = m.sortedEntries(id)
	return &p, nil
}

func (m *MemStore) ListPlaylists(_ context.Context, owner model.Owner) ([]model.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Playlist{}
	for _, p := range m.playlists {
		if p.OwnerID != owner.UserID {
			continue
		}
		p.Entries = m.sortedEntries(p.ID)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) UpdatePlaylist(_ context.Context, owner model.Owner, id string, update model.PlaylistUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ownedPlaylist(owner, id)
	if !ok {
		return apperror.NotFound("playlist")
	}
	now := m.Now()
	if update.ContentIDs != nil {
		list, err := m.buildEntries(owner, id, *update.ContentIDs, now)
		if err != nil {
			return err
		}
		m.entries[id] = list
	}
	if update.Name != nil {
		p.Name = *update.Name
	}
	p.UpdatedAt = now
	m.playlists[id] = p
	return nil
}

func (m *MemStore) DeletePlaylist(_ context.Context, owner model.Owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ownedPlaylist(owner, id); !ok {
		return apperror.NotFound("playlist")
	}
	delete(m.playlists, id)
	delete(m.entries, id)
	for pid, pl := range m.players {
		if pl.PlaylistID != nil && *pl.PlaylistID == id {
			pl.PlaylistID = nil
			m.players[pid] = pl
		}
	}
	return nil
}

// ---- entries

func (m *MemStore) ListEntries(_ context.Context, owner model.Owner, playlistID string) ([]model.PlaylistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ownedPlaylist(owner, playlistID); !ok {
		return nil, apperror.NotFound("playlist")
	}
	return m.sortedEntries(playlistID), nil
}

func (m *MemStore) ReplaceEntries(_ context.Context, owner model.Owner, playlistID string, contentIDs []string) ([]model.PlaylistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ownedPlaylist(owner, playlistID)
	if !ok {
		return nil, apperror.NotFound("playlist")
	}
	now := m.Now()
	list, err := m.buildEntries(owner, playlistID, contentIDs, now)
	if err != nil {
		return nil, err
	}
	m.entries[playlistID] = list
	p.UpdatedAt = now
	m.playlists[playlistID] = p
	return m.sortedEntries(playlistID), nil
}

func (m *MemStore) buildEntries(owner model.Owner, playlistID string, contentIDs []string, now time.Time) ([]model.PlaylistEntry, error) {
	for _, id := range contentIDs {
		if _, ok := m.ownedContent(owner, id); !ok {
			return nil, apperror.NotFound("content")
		}
	}
	list := make([]model.PlaylistEntry, len(contentIDs))
	for i, id := range contentIDs {
		list[i] = model.PlaylistEntry{ID: uuid.NewString(), PlaylistID: playlistID, ContentID: id, Order: i, CreatedAt: now}
	}
	return list, nil
}

func (m *MemStore) AppendEntry(_ context.Context, owner model.Owner, playlistID, contentID string) (*model.PlaylistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ownedPlaylist(owner, playlistID)
	if !ok {
		return nil, apperror.NotFound("playlist")
	}
	c, ok := m.ownedContent(owner, contentID)
	if !ok {
		return nil, apperror.NotFound("content")
	}
	next := 0
	for _, e := range m.entries[playlistID] {
		if e.Order >= next {
			next = e.Order + 1
		}
	}
	now := m.Now()
	e := model.PlaylistEntry{ID: uuid.NewString(), PlaylistID: playlistID, ContentID: contentID, Order: next, CreatedAt: now}
	m.entries[playlistID] = append(m.entries[playlistID], e)
	p.UpdatedAt = now
	m.playlists[playlistID] = p
	e.Content = &c
	return &e, nil
}

func (m *MemStore) RemoveEntriesByContent(_ context.Context, owner model.Owner, playlistID, contentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ownedPlaylist(owner, playlistID); !ok {
		return 0, apperror.NotFound("playlist")
	}
	var removed int64
	kept := []model.PlaylistEntry{}
	for _, e := range m.entries[playlistID] {
		if e.ContentID == contentID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries[playlistID] = kept
	return removed, nil
}

// ---- players

func (m *MemStore) CreatePlayer(_ context.Context, owner model.Owner, name string, description *string) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	p := model.Player{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		OwnerID:     owner.UserID,
		Status:      model.PlayerOffline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.players[p.ID] = p
	return &p, nil
}

func (m *MemStore) ownedPlayer(owner model.Owner, id string) (model.Player, bool) {
	p, ok := m.players[id]
	if !ok || p.OwnerID != owner.UserID {
		return model.Player{}, false
	}
	return p, true
}

func (m *MemStore) GetPlayer(_ context.Context, owner model.Owner, id string) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ownedPlayer(owner, id)
	if !ok {
		return nil, apperror.NotFound("player")
	}
	return &p, nil
}

func (m *MemStore) ListPlayers(_ context.Context, owner model.Owner) ([]model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Player{}
	for _, p := range m.players {
		if p.OwnerID == owner.UserID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) UpdatePlayer(_ context.Context, owner model.Owner, p model.Player) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.ownedPlayer(owner, p.ID)
	if !ok {
		return nil, apperror.NotFound("player")
	}
	if p.PlaylistID != nil {
		if _, ok := m.playlists[*p.PlaylistID]; !ok {
			return nil, apperror.Internal("update player", nil)
		}
	}
	cur.Name = p.Name
	cur.Description = p.Description
	cur.PlaylistID = p.PlaylistID
	cur.UpdatedAt = m.Now()
	m.players[cur.ID] = cur
	return &cur, nil
}

func (m *MemStore) DeletePlayer(_ context.Context, owner model.Owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ownedPlayer(owner, id); !ok {
		return apperror.NotFound("player")
	}
	delete(m.players, id)
	return nil
}

func (m *MemStore) SetPlayerStatus(_ context.Context, owner model.Owner, id string, status model.PlayerStatus) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ownedPlayer(owner, id)
	if !ok {
		return nil, apperror.NotFound("player")
	}
	now := m.Now()
	p.Status = status
	p.LastSeen = &now
	p.UpdatedAt = now
	m.players[id] = p
	return &p, nil
}

func (m *MemStore) SetPlayerScreenshot(_ context.Context, owner model.Owner, id, ref string) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ownedPlayer(owner, id)
	if !ok {
		return nil, apperror.NotFound("player")
	}
	now := m.Now()
	p.Screenshot = &ref
	p.LastSeen = &now
	p.UpdatedAt = now
	m.players[id] = p
	return &p, nil
}

func (m *MemStore) RecordHeartbeat(_ context.Context, playerID string, status model.PlayerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !validID(playerID) {
		return apperror.NotFound("player")
	}
	p, ok := m.players[playerID]
	if !ok {
		return apperror.NotFound("player")
	}
	now := m.Now()
	p.Status = status
	p.LastSeen = &now
	p.UpdatedAt = now
	m.players[playerID] = p
	return nil
}

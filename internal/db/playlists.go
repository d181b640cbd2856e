package db

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/apperror"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

const playlistColumns = `id, name, owner_id, created_at, updated_at`

// @ PLAYLIST
func (s *pgStore) CreatePlaylist(ctx context.Context, owner model.Owner, name string) (*model.Playlist, error) {
	var p model.Playlist
	query := `
	INSERT INTO playlists (name, owner_id)
	VALUES ($1, $2)
	RETURNING ` + playlistColumns + `;`
	if err := s.db.GetContext(ctx, &p, query, name, owner.UserID); err != nil {
		log.Error().Err(err).Msg("[db] CreatePlaylist: failed to insert playlist")
		return nil, apperror.Internal("create playlist", err)
	}
	p.Entries = []model.PlaylistEntry{}
	return &p, nil
}

func (s *pgStore) GetPlaylist(ctx context.Context, owner model.Owner, id string) (*model.Playlist, error) {
	var p model.Playlist
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = $1 AND owner_id = $2;`
	if err := s.db.GetContext(ctx, &p, query, id, owner.UserID); err != nil {
		return nil, storeError(err, "playlist", "get playlist")
	}

	entries, err := selectEntries(ctx, s.db, p.ID)
	if err != nil {
		return nil, err
	}
	p.Entries = entries
	return &p, nil
}

func (s *pgStore) ListPlaylists(ctx context.Context, owner model.Owner) ([]model.Playlist, error) {
	out := []model.Playlist{}
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE owner_id = $1 ORDER BY created_at DESC;`
	if err := s.db.SelectContext(ctx, &out, query, owner.UserID); err != nil {
		log.Error().Err(err).Msg("[db] ListPlaylists: failed to select playlists")
		return nil, apperror.Internal("list playlists", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	entries, err := selectEntries(ctx, s.db, ids...)
	if err != nil {
		return nil, err
	}

	byPlaylist := make(map[string][]model.PlaylistEntry, len(out))
	for _, e := range entries {
		byPlaylist[e.PlaylistID] = append(byPlaylist[e.PlaylistID], e)
	}
	for i := range out {
		out[i].Entries = byPlaylist[out[i].ID]
		if out[i].Entries == nil {
			out[i].Entries = []model.PlaylistEntry{}
		}
	}
	return out, nil
}

// UpdatePlaylist applies the rename and the membership swap under one playlist lock,
// so either both land or neither does.
func (s *pgStore) UpdatePlaylist(ctx context.Context, owner model.Owner, id string, update model.PlaylistUpdate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Internal("begin update playlist", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockPlaylist(ctx, tx, owner, id); err != nil {
		return err
	}
	if update.ContentIDs != nil {
		if err := writeEntries(ctx, tx, owner, id, *update.ContentIDs); err != nil {
			return err
		}
	}
	if update.Name != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE playlists
			SET
			name       = $2,
			updated_at = now()
			WHERE id = $1;`,
			id, *update.Name,
		); err != nil {
			log.Error().Err(err).Str("playlist_id", id).Msg("[db] UpdatePlaylist: failed to rename")
			return apperror.Internal("rename playlist", err)
		}
	} else if err := touchPlaylist(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperror.Internal("commit update playlist", err)
	}
	return nil
}

// DeletePlaylist cascades to entries; players pointing at it are unassigned by the FK.
func (s *pgStore) DeletePlaylist(ctx context.Context, owner model.Owner, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = $1 AND owner_id = $2;`, id, owner.UserID)
	if err != nil {
		return storeError(err, "playlist", "delete playlist")
	}
	return affected(res, "playlist", "delete playlist")
}

// @ PLAYLIST ENTRIES

// entryRow flattens the entry/content join; content columns are aliased "content.<col>".
type entryRow struct {
	model.PlaylistEntry
	C model.Content `db:"content"`
}

const entrySelect = `
	SELECT
	pe.id, pe.playlist_id, pe.content_id, pe.position, pe.created_at,
	c.id          AS "content.id",
	c.name        AS "content.name",
	c.description AS "content.description",
	c.type        AS "content.type",
	c.file_path   AS "content.file_path",
	c.file_size   AS "content.file_size",
	c.duration    AS "content.duration",
	c.start_date  AS "content.start_date",
	c.end_date    AS "content.end_date",
	c.owner_id    AS "content.owner_id",
	c.created_at  AS "content.created_at",
	c.updated_at  AS "content.updated_at"
	FROM playlist_entries pe
	JOIN content c ON c.id = pe.content_id`

func selectEntries(ctx context.Context, q sqlx.QueryerContext, playlistIDs ...string) ([]model.PlaylistEntry, error) {
	var rows []entryRow
	query := entrySelect + `
	WHERE pe.playlist_id = ANY($1::uuid[])
	ORDER BY pe.playlist_id, pe.position, pe.created_at;`
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(playlistIDs)); err != nil {
		log.Error().Err(err).Strs("playlist_ids", playlistIDs).Msg("[db] selectEntries: failed to load entries")
		return nil, apperror.Internal("list entries", err)
	}

	out := make([]model.PlaylistEntry, len(rows))
	for i := range rows {
		c := rows[i].C
		out[i] = rows[i].PlaylistEntry
		out[i].Content = &c
	}
	return out, nil
}

func (s *pgStore) ListEntries(ctx context.Context, owner model.Owner, playlistID string) ([]model.PlaylistEntry, error) {
	if err := s.ownsPlaylist(ctx, owner, playlistID); err != nil {
		return nil, err
	}
	return selectEntries(ctx, s.db, playlistID)
}

func (s *pgStore) ownsPlaylist(ctx context.Context, owner model.Owner, playlistID string) error {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM playlists WHERE id = $1 AND owner_id = $2);`
	if err := s.db.GetContext(ctx, &exists, query, playlistID, owner.UserID); err != nil {
		return storeError(err, "playlist", "check playlist owner")
	}
	if !exists {
		return apperror.NotFound("playlist")
	}
	return nil
}

// lockPlaylist takes the row lock that serializes every ordering write on one playlist.
func lockPlaylist(ctx context.Context, tx *sqlx.Tx, owner model.Owner, playlistID string) error {
	var id string
	query := `SELECT id FROM playlists WHERE id = $1 AND owner_id = $2 FOR UPDATE;`
	if err := tx.GetContext(ctx, &id, query, playlistID, owner.UserID); err != nil {
		return storeError(err, "playlist", "lock playlist")
	}
	return nil
}

// requireOwnedContent fails with NotFound unless every id is content of owner.
func requireOwnedContent(ctx context.Context, tx *sqlx.Tx, owner model.Owner, contentIDs []string) error {
	distinct := make(map[string]struct{}, len(contentIDs))
	for _, id := range contentIDs {
		distinct[id] = struct{}{}
	}
	if len(distinct) == 0 {
		return nil
	}
	ids := make([]string, 0, len(distinct))
	for id := range distinct {
		ids = append(ids, id)
	}

	var n int
	query := `SELECT COUNT(*) FROM content WHERE owner_id = $1 AND id = ANY($2::uuid[]);`
	if err := tx.GetContext(ctx, &n, query, owner.UserID, pq.Array(ids)); err != nil {
		return storeError(err, "content", "check content owner")
	}
	if n != len(ids) {
		return apperror.NotFound("content")
	}
	return nil
}

func touchPlaylist(ctx context.Context, tx *sqlx.Tx, playlistID string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE playlists SET updated_at = now() WHERE id = $1;`, playlistID); err != nil {
		return apperror.Internal("touch playlist", err)
	}
	return nil
}

// ReplaceEntries deletes every entry of the playlist and inserts one per id with order = index.
// Duplicate ids yield duplicate entries.
func (s *pgStore) ReplaceEntries(ctx context.Context, owner model.Owner, playlistID string, contentIDs []string) ([]model.PlaylistEntry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperror.Internal("begin replace", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockPlaylist(ctx, tx, owner, playlistID); err != nil {
		return nil, err
	}
	if err := writeEntries(ctx, tx, owner, playlistID, contentIDs); err != nil {
		return nil, err
	}
	if err := touchPlaylist(ctx, tx, playlistID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperror.Internal("commit replace", err)
	}

	return selectEntries(ctx, s.db, playlistID)
}

// writeEntries swaps the membership inside tx. The caller holds the playlist lock.
func writeEntries(ctx context.Context, tx *sqlx.Tx, owner model.Owner, playlistID string, contentIDs []string) error {
	if err := requireOwnedContent(ctx, tx, owner, contentIDs); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_entries WHERE playlist_id = $1;`, playlistID); err != nil {
		log.Error().Err(err).Str("playlist_id", playlistID).Msg("[db] writeEntries: failed to clear entries")
		return apperror.Internal("clear entries", err)
	}
	if len(contentIDs) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO playlist_entries (playlist_id, content_id, position)
		SELECT $1::uuid, t.content_id, t.ord - 1
		FROM unnest($2::uuid[]) WITH ORDINALITY AS t(content_id, ord);`,
		playlistID, pq.Array(contentIDs),
	); err != nil {
		log.Error().Err(err).Str("playlist_id", playlistID).Msg("[db] writeEntries: failed to insert entries")
		return apperror.Internal("insert entries", err)
	}
	return nil
}

// AppendEntry inserts at max(order)+1, or 0 on an empty playlist.
// The playlist row lock makes concurrent appends take distinct orders.
func (s *pgStore) AppendEntry(ctx context.Context, owner model.Owner, playlistID, contentID string) (*model.PlaylistEntry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperror.Internal("begin append", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockPlaylist(ctx, tx, owner, playlistID); err != nil {
		return nil, err
	}

	var c model.Content
	contentQuery := `SELECT ` + contentColumns + ` FROM content WHERE id = $1 AND owner_id = $2;`
	if err := tx.GetContext(ctx, &c, contentQuery, contentID, owner.UserID); err != nil {
		return nil, storeError(err, "content", "get content")
	}

	var e model.PlaylistEntry
	query := `
	INSERT INTO playlist_entries (playlist_id, content_id, position)
	VALUES ($1, $2, (SELECT COALESCE(MAX(position), -1) + 1 FROM playlist_entries WHERE playlist_id = $1))
	RETURNING id, playlist_id, content_id, position, created_at;`
	if err := tx.GetContext(ctx, &e, query, playlistID, contentID); err != nil {
		log.Error().Err(err).Str("playlist_id", playlistID).Msg("[db] AppendEntry: failed to insert entry")
		return nil, apperror.Internal("append entry", err)
	}
	if err := touchPlaylist(ctx, tx, playlistID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperror.Internal("commit append", err)
	}

	e.Content = &c
	return &e, nil
}

// RemoveEntriesByContent deletes every entry of contentID in the playlist.
// Remaining orders are not renumbered.
func (s *pgStore) RemoveEntriesByContent(ctx context.Context, owner model.Owner, playlistID, contentID string) (int64, error) {
	if err := s.ownsPlaylist(ctx, owner, playlistID); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM playlist_entries WHERE playlist_id = $1 AND content_id = $2;`,
		playlistID, contentID,
	)
	if err != nil {
		return 0, storeError(err, "content", "remove entries")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperror.Internal("remove entries", err)
	}
	return n, nil
}

package db

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/apperror"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

const contentColumns = `id, name, description, type, file_path, file_size, duration, start_date, end_date, owner_id, created_at, updated_at`

func (s *pgStore) CreateContent(ctx context.Context, owner model.Owner, c model.Content) (*model.Content, error) {
	var out model.Content
	query := `
	INSERT INTO content
	(name, description, type, file_path, file_size, duration, start_date, end_date, owner_id)
	VALUES
	($1,   $2,          $3,   $4,        $5,        $6,       $7,         $8,       $9)
	RETURNING ` + contentColumns + `;`

	if err := s.db.GetContext(ctx, &out, query,
		c.Name,
		c.Description,
		c.Type,
		c.FilePath,
		c.FileSize,
		c.Duration,
		c.StartDate,
		c.EndDate,
		owner.UserID,
	); err != nil {
		log.Error().Err(err).Str("owner_id", owner.UserID).Msg("[db] CreateContent: failed to insert content")
		return nil, apperror.Internal("create content", err)
	}
	return &out, nil
}

func (s *pgStore) GetContent(ctx context.Context, owner model.Owner, id string) (*model.Content, error) {
	var c model.Content
	query := `SELECT ` + contentColumns + ` FROM content WHERE id = $1 AND owner_id = $2;`
	if err := s.db.GetContext(ctx, &c, query, id, owner.UserID); err != nil {
		return nil, storeError(err, "content", "get content")
	}
	return &c, nil
}

// SearchContent lists the owner's content, newest first.
// Names match as case-insensitive substrings.
func (s *pgStore) SearchContent(ctx context.Context, owner model.Owner, filter model.ContentFilter) ([]model.Content, error) {
	builder := psql.Select(contentColumns).
		From("content").
		Where(sq.Eq{"owner_id": owner.UserID}).
		OrderBy("created_at DESC")

	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		builder = builder.Where(sq.Eq{"type": types})
	}
	if len(filter.Names) > 0 {
		names := sq.Or{}
		for _, n := range filter.Names {
			names = append(names, sq.ILike{"name": "%" + n + "%"})
		}
		builder = builder.Where(names)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, apperror.Internal("build content search", err)
	}

	out := []model.Content{}
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		log.Error().Err(err).Str("owner_id", owner.UserID).Msg("[db] SearchContent: failed to select content")
		return nil, apperror.Internal("search content", err)
	}
	return out, nil
}

// UpdateContent writes every editable field of c; merging a patch is the caller's job.
func (s *pgStore) UpdateContent(ctx context.Context, owner model.Owner, c model.Content) (*model.Content, error) {
	var out model.Content
	query := `
	UPDATE content
	SET
	name        = $3,
	description = $4,
	duration    = $5,
	start_date  = $6,
	end_date    = $7,
	updated_at  = now()
	WHERE id = $1 AND owner_id = $2
	RETURNING ` + contentColumns + `;`

	if err := s.db.GetContext(ctx, &out, query,
		c.ID, owner.UserID, c.Name, c.Description, c.Duration, c.StartDate, c.EndDate,
	); err != nil {
		return nil, storeError(err, "content", "update content")
	}
	return &out, nil
}

// DeleteContent removes the row; playlist_entries rows go with it through ON DELETE CASCADE
// in the same statement.
func (s *pgStore) DeleteContent(ctx context.Context, owner model.Owner, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM content WHERE id = $1 AND owner_id = $2;`, id, owner.UserID)
	if err != nil {
		return storeError(err, "content", "delete content")
	}
	return affected(res, "content", "delete content")
}

func (s *pgStore) PlaylistIDsForContent(ctx context.Context, owner model.Owner, contentID string) ([]string, error) {
	ids := []string{}
	query := `
	SELECT DISTINCT pe.playlist_id
	FROM playlist_entries pe
	JOIN playlists p ON p.id = pe.playlist_id
	WHERE pe.content_id = $1 AND p.owner_id = $2;`
	if err := s.db.SelectContext(ctx, &ids, query, contentID, owner.UserID); err != nil {
		return nil, storeError(err, "content", "playlists for content")
	}
	return ids, nil
}

package db

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/apperror"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

const playerColumns = `id, name, description, playlist_id, owner_id, status, last_seen, screenshot, created_at, updated_at`

func (s *pgStore) CreatePlayer(ctx context.Context, owner model.Owner, name string, description *string) (*model.Player, error) {
	var p model.Player
	query := `
	INSERT INTO players (name, description, owner_id)
	VALUES ($1, $2, $3)
	RETURNING ` + playerColumns + `;`
	if err := s.db.GetContext(ctx, &p, query, name, description, owner.UserID); err != nil {
		log.Error().Err(err).Msg("[db] CreatePlayer: failed to insert player")
		return nil, apperror.Internal("create player", err)
	}
	return &p, nil
}

func (s *pgStore) GetPlayer(ctx context.Context, owner model.Owner, id string) (*model.Player, error) {
	var p model.Player
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1 AND owner_id = $2;`
	if err := s.db.GetContext(ctx, &p, query, id, owner.UserID); err != nil {
		return nil, storeError(err, "player", "get player")
	}
	return &p, nil
}

func (s *pgStore) ListPlayers(ctx context.Context, owner model.Owner) ([]model.Player, error) {
	out := []model.Player{}
	query := `SELECT ` + playerColumns + ` FROM players WHERE owner_id = $1 ORDER BY created_at DESC;`
	if err := s.db.SelectContext(ctx, &out, query, owner.UserID); err != nil {
		log.Error().Err(err).Msg("[db] ListPlayers: failed to select players")
		return nil, apperror.Internal("list players", err)
	}
	return out, nil
}

// UpdatePlayer writes name, description and playlist assignment as given.
// Checking that the playlist belongs to owner happens before this call.
func (s *pgStore) UpdatePlayer(ctx context.Context, owner model.Owner, p model.Player) (*model.Player, error) {
	var out model.Player
	query := `
	UPDATE players
	SET
	name        = $3,
	description = $4,
	playlist_id = $5,
	updated_at  = now()
	WHERE id = $1 AND owner_id = $2
	RETURNING ` + playerColumns + `;`
	if err := s.db.GetContext(ctx, &out, query, p.ID, owner.UserID, p.Name, p.Description, p.PlaylistID); err != nil {
		return nil, storeError(err, "player", "update player")
	}
	return &out, nil
}

func (s *pgStore) DeletePlayer(ctx context.Context, owner model.Owner, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE id = $1 AND owner_id = $2;`, id, owner.UserID)
	if err != nil {
		return storeError(err, "player", "delete player")
	}
	return affected(res, "player", "delete player")
}

func (s *pgStore) SetPlayerStatus(ctx context.Context, owner model.Owner, id string, status model.PlayerStatus) (*model.Player, error) {
	var out model.Player
	query := `
	UPDATE players
	SET
	status     = $3,
	last_seen  = now(),
	updated_at = now()
	WHERE id = $1 AND owner_id = $2
	RETURNING ` + playerColumns + `;`
	if err := s.db.GetContext(ctx, &out, query, id, owner.UserID, status); err != nil {
		return nil, storeError(err, "player", "set player status")
	}
	return &out, nil
}

func (s *pgStore) SetPlayerScreenshot(ctx context.Context, owner model.Owner, id, ref string) (*model.Player, error) {
	var out model.Player
	query := `
	UPDATE players
	SET
	screenshot = $3,
	last_seen  = now(),
	updated_at = now()
	WHERE id = $1 AND owner_id = $2
	RETURNING ` + playerColumns + `;`
	if err := s.db.GetContext(ctx, &out, query, id, owner.UserID, ref); err != nil {
		return nil, storeError(err, "player", "set player screenshot")
	}
	return &out, nil
}

func (s *pgStore) RecordHeartbeat(ctx context.Context, playerID string, status model.PlayerStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE players
		SET
		status     = $2,
		last_seen  = now(),
		updated_at = now()
		WHERE id = $1;`,
		playerID, status,
	)
	if err != nil {
		return storeError(err, "player", "record heartbeat")
	}
	return affected(res, "player", "record heartbeat")
}

package db

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/apperror"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

const userColumns = `id, email, hashed_password, name, created_at, updated_at`

// inserts a new user. a duplicate email is reported as a conflict.
func (s *pgStore) CreateUser(ctx context.Context, email, hashedPassword string, name *string) (*model.User, error) {
	var u model.User
	query := `
	INSERT INTO users (email, hashed_password, name)
	VALUES ($1, $2, $3)
	RETURNING ` + userColumns + `;`

	if err := s.db.GetContext(ctx, &u, query, email, hashedPassword, name); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, apperror.Conflict("user already exists")
		}
		log.Error().Err(err).Msg("[db] CreateUser: failed to insert user")
		return nil, apperror.Internal("create user", err)
	}
	return &u, nil
}

func (s *pgStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1;`
	if err := s.db.GetContext(ctx, &u, query, email); err != nil {
		return nil, storeError(err, "user", "get user by email")
	}
	return &u, nil
}

func (s *pgStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`
	if err := s.db.GetContext(ctx, &u, query, id); err != nil {
		return nil, storeError(err, "user", "get user by id")
	}
	return &u, nil
}

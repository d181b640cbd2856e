// exposes a Store interface that is passed to API calls w/ owner scoping
package db

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Nixie-Tech-LLC/signage/internal/apperror"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

type Store interface {
	// user functions
	CreateUser(ctx context.Context, email, hashedPassword string, name *string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// content functions
	CreateContent(ctx context.Context, owner model.Owner, c model.Content) (*model.Content, error)
	GetContent(ctx context.Context, owner model.Owner, id string) (*model.Content, error)
	SearchContent(ctx context.Context, owner model.Owner, filter model.ContentFilter) ([]model.Content, error)
	UpdateContent(ctx context.Context, owner model.Owner, c model.Content) (*model.Content, error)
	DeleteContent(ctx context.Context, owner model.Owner, id string) error
	PlaylistIDsForContent(ctx context.Context, owner model.Owner, contentID string) ([]string, error)

	// playlist functions
	CreatePlaylist(ctx context.Context, owner model.Owner, name string) (*model.Playlist, error)
	GetPlaylist(ctx context.Context, owner model.Owner, id string) (*model.Playlist, error)
	ListPlaylists(ctx context.Context, owner model.Owner) ([]model.Playlist, error)
	UpdatePlaylist(ctx context.Context, owner model.Owner, id string, update model.PlaylistUpdate) error
	DeletePlaylist(ctx context.Context, owner model.Owner, id string) error

	// playlist entry functions
	ListEntries(ctx context.Context, owner model.Owner, playlistID string) ([]model.PlaylistEntry, error)
	ReplaceEntries(ctx context.Context, owner model.Owner, playlistID string, contentIDs []string) ([]model.PlaylistEntry, error)
	AppendEntry(ctx context.Context, owner model.Owner, playlistID, contentID string) (*model.PlaylistEntry, error)
	RemoveEntriesByContent(ctx context.Context, owner model.Owner, playlistID, contentID string) (int64, error)

	// player functions
	CreatePlayer(ctx context.Context, owner model.Owner, name string, description *string) (*model.Player, error)
	GetPlayer(ctx context.Context, owner model.Owner, id string) (*model.Player, error)
	ListPlayers(ctx context.Context, owner model.Owner) ([]model.Player, error)
	UpdatePlayer(ctx context.Context, owner model.Owner, p model.Player) (*model.Player, error)
	DeletePlayer(ctx context.Context, owner model.Owner, id string) error
	SetPlayerStatus(ctx context.Context, owner model.Owner, id string, status model.PlayerStatus) (*model.Player, error)
	SetPlayerScreenshot(ctx context.Context, owner model.Owner, id, ref string) (*model.Player, error)

	// device side, not owner scoped
	RecordHeartbeat(ctx context.Context, playerID string, status model.PlayerStatus) error
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
// required so linter doesn't complain
var _ Store = (*pgStore)(nil)

func NewStore(conn *sqlx.DB) Store {
	return &pgStore{db: conn}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	pqInvalidText     = "22P02"
	pqUniqueViolation = "23505"
)

// storeError translates driver errors into apperror kinds.
// A malformed uuid can never match a row, so it is reported like a missing one.
func storeError(err error, resource, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound(resource)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqInvalidText {
		return apperror.NotFound(resource)
	}
	return apperror.Internal(op, err)
}

// affected turns a zero-row write into NotFound.
func affected(res sql.Result, resource, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.Internal(op, err)
	}
	if n == 0 {
		return apperror.NotFound(resource)
	}
	return nil
}

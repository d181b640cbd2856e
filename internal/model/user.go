package model

import "time"

type User struct {
	ID             string    `db:"id"              json:"id"`
	Email          string    `db:"email"           json:"email"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	Name           *string   `db:"name"            json:"name"`
	CreatedAt      time.Time `db:"created_at"      json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updatedAt"`
}

// Owner is the account scope threaded through every store call.
// Rows owned by any other account behave as if they do not exist.
type Owner struct {
	UserID string
}

func (u *User) Owner() Owner {
	return Owner{UserID: u.ID}
}

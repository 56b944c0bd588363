package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Verified     bool      `json:"verified_user"`
	ModifiedAt   time.Time `json:"modified_at"`
	CreatedAt    time.Time `json:"created_at"`
}

type Post struct {
	ID            int64     `json:"id"`
	PUID          int64     `json:"puid"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ModifiedAt    time.Time `json:"modified_at"`
	CreatedAt     time.Time `json:"created_at"`
	OwnerID       int64     `json:"-"`
	OwnerUsername string    `json:"-"`
}

// Vote holds one user's rating of one post. At most one row exists per
// (post, user) pair; a value of 0 is a stored vote, distinguishable from
// "never voted" only by row presence.
type Vote struct {
	ID     int64 `json:"-"`
	Value  int   `json:"vote"`
	PostID int64 `json:"post_id"`
	UserID int64 `json:"user_id"`
}

type Comment struct {
	ID     int64  `json:"id"`
	Text   string `json:"comment"`
	PostID int64  `json:"-"`
	UserID int64  `json:"-"`
}

// UserPatch is a partial update: nil means the field was not provided and
// the stored value is kept.
type UserPatch struct {
	Name     *string `json:"name"`
	Verified *bool   `json:"verified_user"`
}

type PostPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

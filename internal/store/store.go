package store

import (
	"context"
	"errors"
	"time"

	"postboard/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicatePostID   = errors.New("duplicate post id")
	ErrDuplicateVote     = errors.New("duplicate vote")
)

type Store interface {
	UserStore
	PostStore
	VoteStore
	CommentStore
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	// FindUserByLogin matches either username or email.
	FindUserByLogin(ctx context.Context, login string) (model.User, error)
	ListUsers(ctx context.Context, limit int) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, patch model.UserPatch, modifiedAt time.Time) error
	DeleteUser(ctx context.Context, id int64) error
}

type PostStore interface {
	CreatePost(ctx context.Context, post *model.Post) (int64, error)
	GetPostByPUID(ctx context.Context, ownerID, puid int64) (model.Post, error)
	ListPostsByOwner(ctx context.Context, ownerID int64) ([]model.Post, error)
	UpdatePost(ctx context.Context, id int64, patch model.PostPatch, modifiedAt time.Time) error
	DeletePost(ctx context.Context, id int64) error
}

type VoteStore interface {
	CreateVote(ctx context.Context, vote *model.Vote) (int64, error)
	GetVoteByPostUser(ctx context.Context, postID, userID int64) (model.Vote, error)
	ListVotesByPost(ctx context.Context, postID int64) ([]model.Vote, error)
	UpdateVoteValue(ctx context.Context, id int64, value int) error
}

type CommentStore interface {
	CreateComment(ctx context.Context, comment *model.Comment) (int64, error)
	GetComment(ctx context.Context, id int64) (model.Comment, error)
	ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error)
	UpdateCommentText(ctx context.Context, id int64, text string) error
	DeleteComment(ctx context.Context, id int64) error
}

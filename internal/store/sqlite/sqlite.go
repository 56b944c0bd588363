package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"postboard/internal/model"
	"postboard/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// The pragma is per-connection; a single pooled connection keeps it
	// (and the cascade deletes that depend on it) in force.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by the schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	username TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	verified INTEGER NOT NULL DEFAULT 0,
	modified_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);

CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	puid INTEGER NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	modified_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	owner_id INTEGER NOT NULL,
	FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_puid ON posts(puid);
CREATE INDEX IF NOT EXISTS idx_posts_owner ON posts(owner_id);

CREATE TABLE IF NOT EXISTS votes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	vote INTEGER NOT NULL DEFAULT 0,
	post_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_post_user ON votes(post_id, user_id);

CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	comment TEXT NOT NULL,
	post_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id);
`,
	// Future migrations go here:
	// Migration 2: `ALTER TABLE ...`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO users (name, username, email, password_hash, verified, modified_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, user.Name, user.Username, user.Email, user.PasswordHash, boolToInt(user.Verified), user.ModifiedAt.Unix(), user.CreatedAt.Unix())
	if err != nil {
		return 0, mapUniqueViolation(err)
	}
	return res.LastInsertId()
}

func (s *Store) GetUser(ctx context.Context, id int64) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, username, email, password_hash, verified, modified_at, created_at
FROM users
WHERE id = ?
`, id)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, username, email, password_hash, verified, modified_at, created_at
FROM users
WHERE username = ?
`, username)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, username, email, password_hash, verified, modified_at, created_at
FROM users
WHERE email = ?
`, email)
	return scanUser(row)
}

func (s *Store) FindUserByLogin(ctx context.Context, login string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, username, email, password_hash, verified, modified_at, created_at
FROM users
WHERE username = ? OR email = ?
LIMIT 1
`, login, login)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, username, email, password_hash, verified, modified_at, created_at
FROM users
ORDER BY id ASC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, id int64, patch model.UserPatch, modifiedAt time.Time) error {
	sets := []string{"modified_at = ?"}
	args := []any{modifiedAt.Unix()}
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Verified != nil {
		sets = append(sets, "verified = ?")
		args = append(args, boolToInt(*patch.Verified))
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO posts (puid, title, description, modified_at, created_at, owner_id)
VALUES (?, ?, ?, ?, ?, ?)
`, post.PUID, post.Title, nullIfEmpty(post.Description), post.ModifiedAt.Unix(), post.CreatedAt.Unix(), post.OwnerID)
	if err != nil {
		return 0, mapUniqueViolation(err)
	}
	return res.LastInsertId()
}

func (s *Store) GetPostByPUID(ctx context.Context, ownerID, puid int64) (model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT p.id, p.puid, p.title, p.description, p.modified_at, p.created_at, p.owner_id, u.username
FROM posts p
LEFT JOIN users u ON u.id = p.owner_id
WHERE p.owner_id = ? AND p.puid = ?
LIMIT 1
`, ownerID, puid)
	return scanPost(row)
}

func (s *Store) ListPostsByOwner(ctx context.Context, ownerID int64) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT p.id, p.puid, p.title, p.description, p.modified_at, p.created_at, p.owner_id, u.username
FROM posts p
LEFT JOIN users u ON u.id = p.owner_id
WHERE p.owner_id = ?
ORDER BY p.created_at ASC, p.id ASC
`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *Store) UpdatePost(ctx context.Context, id int64, patch model.PostPatch, modifiedAt time.Time) error {
	sets := []string{"modified_at = ?"}
	args := []any{modifiedAt.Unix()}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE posts SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateVote(ctx context.Context, vote *model.Vote) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO votes (vote, post_id, user_id)
VALUES (?, ?, ?)
`, vote.Value, vote.PostID, vote.UserID)
	if err != nil {
		return 0, mapUniqueViolation(err)
	}
	return res.LastInsertId()
}

func (s *Store) GetVoteByPostUser(ctx context.Context, postID, userID int64) (model.Vote, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, vote, post_id, user_id
FROM votes
WHERE post_id = ? AND user_id = ?
LIMIT 1
`, postID, userID)
	var v model.Vote
	if err := row.Scan(&v.ID, &v.Value, &v.PostID, &v.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Vote{}, store.ErrNotFound
		}
		return model.Vote{}, err
	}
	return v, nil
}

func (s *Store) ListVotesByPost(ctx context.Context, postID int64) ([]model.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, vote, post_id, user_id
FROM votes
WHERE post_id = ?
ORDER BY id ASC
`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []model.Vote
	for rows.Next() {
		var v model.Vote
		if err := rows.Scan(&v.ID, &v.Value, &v.PostID, &v.UserID); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (s *Store) UpdateVoteValue(ctx context.Context, id int64, value int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE votes SET vote = ? WHERE id = ?`, value, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateComment(ctx context.Context, comment *model.Comment) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO comments (comment, post_id, user_id)
VALUES (?, ?, ?)
`, comment.Text, comment.PostID, comment.UserID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetComment(ctx context.Context, id int64) (model.Comment, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, comment, post_id, user_id
FROM comments
WHERE id = ?
`, id)
	var c model.Comment
	if err := row.Scan(&c.ID, &c.Text, &c.PostID, &c.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, store.ErrNotFound
		}
		return model.Comment{}, err
	}
	return c, nil
}

func (s *Store) ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, comment, post_id, user_id
FROM comments
WHERE post_id = ?
ORDER BY id ASC
`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.PostID, &c.UserID); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *Store) UpdateCommentText(ctx context.Context, id int64, text string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE comments SET comment = ? WHERE id = ?`, text, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (model.User, error) {
	var u model.User
	var verified int
	var modified, created int64
	if err := scanner.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &verified, &modified, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	u.Verified = verified == 1
	u.ModifiedAt = time.Unix(modified, 0)
	u.CreatedAt = time.Unix(created, 0)
	return u, nil
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (model.Post, error) {
	var p model.Post
	var description sql.NullString
	var ownerName sql.NullString
	var modified, created int64
	if err := scanner.Scan(&p.ID, &p.PUID, &p.Title, &description, &modified, &created, &p.OwnerID, &ownerName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	if description.Valid {
		p.Description = description.String
	}
	if ownerName.Valid {
		p.OwnerUsername = ownerName.String
	}
	p.ModifiedAt = time.Unix(modified, 0)
	p.CreatedAt = time.Unix(created, 0)
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// mapUniqueViolation turns sqlite unique-index failures into the domain
// errors the handlers translate to Conflict responses. Anything else passes
// through unchanged.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "PRIMARY KEY") {
		return err
	}
	switch {
	case strings.Contains(msg, "users.email"):
		return store.ErrDuplicateEmail
	case strings.Contains(msg, "users.username"):
		return store.ErrDuplicateUsername
	case strings.Contains(msg, "posts.puid"):
		return store.ErrDuplicatePostID
	case strings.Contains(msg, "votes.post_id"):
		return store.ErrDuplicateVote
	}
	return err
}

package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"postboard/internal/auth"
	"postboard/internal/model"
	"postboard/internal/store"
)

// puid bounds for the public post identifier exposed in URLs, distinct
// from the surrogate row id.
const (
	puidMin = 1000001
	puidMax = 10000000
)

func randomPUID() int64 {
	return puidMin + rand.Int63n(puidMax-puidMin)
}

type ownerRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type postPayload struct {
	model.Post
	Owner    ownerRef        `json:"owner"`
	Votes    []model.Vote    `json:"post_votes"`
	Comments []model.Comment `json:"post_comments"`
}

func (s *Server) buildPostPayload(ctx context.Context, post model.Post) (postPayload, error) {
	votes, err := s.store.ListVotesByPost(ctx, post.ID)
	if err != nil {
		return postPayload{}, err
	}
	comments, err := s.store.ListCommentsByPost(ctx, post.ID)
	if err != nil {
		return postPayload{}, err
	}
	if votes == nil {
		votes = []model.Vote{}
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	return postPayload{
		Post:     post,
		Owner:    ownerRef{ID: post.OwnerID, Username: post.OwnerUsername},
		Votes:    votes,
		Comments: comments,
	}, nil
}

// resolvePost walks the user -> post path chain, writing the response on
// failure. Unknown username and unknown puid both end the request with 404.
func (s *Server) resolvePost(w http.ResponseWriter, r *http.Request, username, puidStr string) (model.User, model.Post, bool) {
	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("username %s not found", username))
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return model.User{}, model.Post{}, false
	}
	puid, err := strconv.ParseInt(puidStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid post id"))
		return model.User{}, model.Post{}, false
	}
	post, err := s.store.GetPostByPUID(r.Context(), user.ID, puid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("post id %d not found", puid))
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return model.User{}, model.Post{}, false
	}
	return user, post, true
}

// resolveComment loads a comment by id and checks it hangs off the resolved
// post; a comment under a different post is indistinguishable from a
// missing one.
func (s *Server) resolveComment(w http.ResponseWriter, r *http.Request, post model.Post, idStr string) (model.Comment, bool) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid comment id"))
		return model.Comment{}, false
	}
	comment, err := s.store.GetComment(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err)
		return model.Comment{}, false
	}
	if err != nil || comment.PostID != post.ID {
		writeError(w, http.StatusNotFound, fmt.Errorf("comment id %d not found", id))
		return model.Comment{}, false
	}
	return comment, true
}

// handleIssueToken godoc
//
//	@Summary		Issue an access token
//	@Description	Exchange username (or email) and password for a bearer token.
//	@Tags			Auth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string	true	"Username or email"
//	@Param			password	formData	string	true	"Password"
//	@Success		200			{object}	map[string]string	"access_token and token_type"
//	@Failure		403			{object}	map[string]string	"Invalid credentials"
//	@Router			/auth/token [post]
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "token", s.cfg.RateLimits.TokenPerMinute) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid form body"))
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, errors.New("username and password required"))
		return
	}

	user, err := s.store.FindUserByLogin(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusForbidden, errors.New("invalid credentials"))
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		writeError(w, http.StatusForbidden, errors.New("invalid credentials"))
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// handleListUsers godoc
//
//	@Summary	List users
//	@Tags		Users
//	@Produce	json
//	@Param		limit	query		int	false	"Max results"	default(50)
//	@Success	200		{array}		model.User
//	@Router		/users/ [get]
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	users, err := s.store.ListUsers(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// handleCreateUser godoc
//
//	@Summary		Register a user
//	@Description	Create a new user. Fails with 226 IM Used when the email or username is taken.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			user	body		object{name=string,username=string,email=string,password=string,verified_user=bool}	true	"User data"
//	@Success		201		{object}	model.User
//	@Failure		226		{object}	map[string]string	"Email or username already exists"
//	@Router			/users/ [post]
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "signup", s.cfg.RateLimits.SignupPerMinute) {
		return
	}
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Verified bool   `json:"verified_user"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("name, username, email and password are required"))
		return
	}

	// Email is checked before username, so a request duplicating both
	// reports the email.
	if _, err := s.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusIMUsed, fmt.Errorf("email %s already exists", req.Email))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if _, err := s.store.GetUserByUsername(r.Context(), req.Username); err == nil {
		writeError(w, http.StatusIMUsed, fmt.Errorf("username %s already exists", req.Username))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	now := time.Now()
	user := model.User{
		Name:         req.Name,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Verified:     req.Verified,
		ModifiedAt:   now,
		CreatedAt:    now,
	}
	id, err := s.store.CreateUser(r.Context(), &user)
	if err != nil {
		// Concurrent registration can slip past the pre-checks and land
		// on the unique index instead.
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			writeError(w, http.StatusIMUsed, fmt.Errorf("email %s already exists", req.Email))
		case errors.Is(err, store.ErrDuplicateUsername):
			writeError(w, http.StatusIMUsed, fmt.Errorf("username %s already exists", req.Username))
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	user.ID = id
	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser godoc
//
//	@Summary	Get a user
//	@Tags		Users
//	@Produce	json
//	@Param		username	path		string	true	"Username"
//	@Success	200			{object}	model.User
//	@Failure	404			{object}	map[string]string
//	@Router		/users/{username} [get]
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, username string) {
	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("username %s not found", username))
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser godoc
//
//	@Summary		Update a user
//	@Description	Partial update: only provided fields change. Requester must be the user.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	path		string	true	"Username"
//	@Param			patch		body		model.UserPatch	true	"Fields to update"
//	@Success		200			{object}	model.User
//	@Failure		403			{object}	map[string]string
//	@Failure		404			{object}	map[string]string
//	@Router			/users/{username} [put]
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, username string) {
	current, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if current.Username != username {
		writeError(w, http.StatusForbidden, errors.New("not authorized"))
		return
	}
	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("username %s not found", username))
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	var patch model.UserPatch
	if err := readJSON(r.Body, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.UpdateUser(r.Context(), user.ID, patch, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	updated, err := s.store.GetUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteUser godoc
//
//	@Summary		Delete a user
//	@Description	Deletes the user and cascades to their posts, votes and comments.
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			username	path	string	true	"Username"
//	@Success		204
//	@Failure		403	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/users/{username} [delete]
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, username string) {
	current, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if current.Username != username {
		writeError(w, http.StatusForbidden, errors.New("not authorized"))
		return
	}
	if err := s.store.DeleteUser(r.Context(), current.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("username %s not found", username))
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	log.Printf("user %s deleted", username)
	w.WriteHeader(http.StatusNoContent)
}

// handleListPosts godoc
//
//	@Summary	List a user's posts
//	@Tags		Posts
//	@Produce	json
//	@Param		username	path		string	true	"Username"
//	@Success	200			{array}		postPayload
//	@Failure	404			{object}	map[string]string
//	@Router		/users/{username}/posts/ [get]
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request, username string) {
	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Errorf("username %s not found", username))
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	posts, err := s.store.ListPostsByOwner(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	payloads := make([]postPayload, 0, len(posts))
	for _, post := range posts {
		payload, err := s.buildPostPayload(r.Context(), post)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		payloads = append(payloads, payload)
	}
	writeJSON(w, http.StatusOK, payloads)
}

// handleCreatePost godoc
//
//	@Summary		Create a post
//	@Description	Requester must be the path user. The public post id is generated server-side.
//	@Tags			Posts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	path		string	true	"Username"
//	@Param			post		body		object{title=string,description=string}	true	"Post data"
//	@Success		201			{object}	postPayload
//	@Failure		403			{object}	map[string]string
//	@Failure		409			{object}	map[string]string	"Public id collision"
//	@Router			/users/{username}/posts/ [post]
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request, username string) {
	current, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if current.Username != username {
		writeError(w, http.StatusForbidden, errors.New("not authorized"))
		return
	}
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, errors.New("title required"))
		return
	}

	now := time.Now()
	post := model.Post{
		PUID:          randomPUID(),
		Title:         req.Title,
		Description:   req.Description,
		ModifiedAt:    now,
		CreatedAt:     now,
		OwnerID:       current.ID,
		OwnerUsername: current.Username,
	}
	id, err := s.store.CreatePost(r.Context(), &post)
	if err != nil {
		if errors.Is(err, store.ErrDuplicatePostID) {
			writeError(w, http.StatusConflict, fmt.Errorf("post id %d already exists", post.PUID))
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	post.ID = id
	payload, err := s.buildPostPayload(r.Context(), post)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, payload)
}

// handleGetPost godoc
//
//	@Summary	Get a post
//	@Tags		Posts
//	@Produce	json
//	@Param		username	path		string	true	"Username"
//	@Param		puid		path		int		true	"Public post id"
//	@Success	200			{object}	postPayload
//	@Failure	404			{object}	map[string]string
//	@Router		/users/{username}/posts/{puid} [get]
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request, username, puidStr string) {
	_, post, ok := s.resolvePost(w, r, username, puidStr)
	if !ok {
		return
	}
	payload, err := s.buildPostPayload(r.Context(), post)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleUpdatePost godoc
//
//	@Summary		Update a post
//	@Description	Partial update: only provided fields change. Requester must be the owner.
//	@Tags			Posts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	path		string	true	"Username"
//	@Param			puid		path		int		true	"Public post id"
//	@Param			patch		body		model.PostPatch	true	"Fields to update"
//	@Success		200			{object}	postPayload
//	@Failure		403			{object}	map[string]string
//	@Failure		404			{object}	map[string]string
//	@Router			/users/{username}/posts/{puid} [put]
func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request, username, puidStr string) {
	current, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if current.Username != username {
		writeError(w, http.StatusForbidden, errors.New("not authorized"))
		return
	}
	user, post, ok := s.resolvePost(w, r, username, puidStr)
	if !ok {
		return
	}
	var patch model.PostPatch
	if err := readJSON(r.Body, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.UpdatePost(r.Context(), post.ID, patch, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	updated, err := s.store.GetPostByPUID(r.Context(), user.ID, post.PUID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	payload, err := s.buildPostPayload(r.Context(), updated)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleDeletePost godoc
//
//	@Summary		Delete a post
//	@Description	Deletes the post and cascades to its votes and comments.
//	@Tags			Posts
//	@Security		BearerAuth
//	@Param			username	path	string	true	"Username"
//	@Param			puid		path	int		true	"Public post id"
//	@Success		204
//	@Failure		403	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/users/{username}/posts/{puid} [delete]
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, username, puidStr string) {
	current, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if current.Username != username {
		writeError(w, http.StatusForbidden, errors.New("not authorized"))
		return
	}
	_, post, ok := s.resolvePost(w, r, username, puidStr)
	if !ok {
		return
	}
	if err := s.store.DeletePost(r.Context(), post.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.Printf("post %d deleted", post.PUID)
	w.WriteHeader(http.StatusNoContent)
}

// handleListVotes godoc
//
//	@Summary	List votes on a post
//	@Tags		Votes
//	@Produce	json
//	@Param		username	path		string	true	"Username"
//	@Param		puid		path		int		true	"Public post id"
//	@Success	200			{array}		model.Vote
//	@Failure	404			{object}	map[string]string
//	@Router		/users/{username}/posts/{puid}/votes/ [get]
func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request, username, puidStr string) {
	_, post, ok := s.resolvePost(w, r, username, puidStr)
	if !ok {
		return
	}
	votes, err := s.store.ListVotesByPost(r.Context(), post.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if votes == nil {
		votes = []model.Vote{}
	}
	writeJSON(w, http.StatusOK, votes)
}

// handleUpdateVote godoc
//
//	@Summary		Cast or change a vote
//	@Description	Upserts the requester's vote on the post: first vote inserts, the same value again is a no-op, a different value updates in place.
//	@Tags			Votes
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	path		string	true	"Username"
//	@Param			puid		path		int		true	"Public post id"
//	@Param			vote		body		object{vote=int}	true	"Vote value 0-5"
//	@Success		200			{object}	model.Vote
//	@Failure		400			{object}	map[string]string
//	@Failure		404			{object}	map[string]string
//	@Router			/users/{username}/posts/{puid}/votes/ [put]
func (s *Server) handleUpdateVote(w http.ResponseWriter, r *http.Request, username, puidStr string) {
	current, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	_, post, ok := s.resolvePost(w, r, username, puidStr)
	if !ok {
		return
	}
	var req struct {
		Vote *int `json:"vote"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Vote == nil {
		writeError(w, http.StatusBadRequest, errors.New("vote required"))
		return
	}
	if *req.Vote < 0 || *req.Vote > 5 {
		writeError(w, http.StatusBadRequest, errors.New("vote must be between 0 and 5"))
		return
	}

	existing, err := s.store.GetVoteByPostUser(r.Context(), post.ID, current.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		vote := model.Vote{Value: *req.Vote, PostID: post.ID, UserID: current.ID}
		id, err := s.store.CreateVote(r.Context(), &vote)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateVote) {
				// Lost a race with a concurrent vote from the same user.
				writeError(w, http.StatusConflict, err)
			} else {
				writeError(w, http.StatusInternalServerError, err)
			}
			return
		}
		vote.ID = id
		writeJSON(w, http.StatusOK, vote)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	case existing.Value == *req.Vote:
		// Idempotent re-vote.
		writeJSON(w, http.StatusOK, existing)
	default:
		if err := s.store.UpdateVoteValue(r.Context(), existing.ID, *req.Vote); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		existing.Value = *req.Vote
		writeJSON(w, http.StatusOK, existing)
	}
}

// handleListComments godoc
//
//	@Summary	List comments on a post
//	@Tags		Comments
//	@Produce	json
//	@Param		username	path		string	true	"Username"
//	@Param		puid		path		int		true	"Public post id"
//	@Success	200			{array}		model.Comment
//	@Failure	404			{object}	map[string]string
//	@Router		/users/{username}/posts/{puid}/comments/ [get]
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request, username, puidStr string) {
	_, post, ok := s.resolvePost(w, r, username, puidStr)
	if !ok {
		return
	}
	comments, err := s.store.ListCommentsByPost(r.Context(), post.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

// handleCreateComment godoc
//
//	@Summary		Comment on a post
//	@Description	Any authenticated user may comment on any post.
//	@Tags			Comments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	path		string	true	"Username"
//	@Param			puid		path		int		true	"Public post id"
//	@Param			comment		body		object{comment=string}	true	"Comment text"
//	@Success		201			{object}	model.Comment
//	@Failure		404			{object}	map[string]string
//	@Router			/users/{username}/posts/{puid}/comments/ [post]
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request, username, puidStr string) {
	current, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	_, post, ok := s.resolvePost(w, r, username, puidStr)
	if !ok {
		return
	}
	var req struct {
		Comment string `json:"comment"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if req.Comment == "" {
		writeError(w, http.StatusBadRequest, errors.New("comment required"))
		return
	}

	comment := model.Comment{Text: req.Comment, PostID: post.ID, UserID: current.ID}
	id, err := s.store.CreateComment(r.Context(), &comment)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	comment.ID = id
	writeJSON(w, http.StatusCreated, comment)
}

// handleGetComment godoc
//
//	@Summary	Get a comment
//	@Tags		Comments
//	@Produce	json
//	@Param		username	path		string	true	"Username"
//	@Param		puid		path		int		true	"Public post id"
//	@Param		id			path		int		true	"Comment id"
//	@Success	200			{object}	model.Comment
//	@Failure	404			{object}	map[string]string
//	@Router		/users/{username}/posts/{puid}/comments/{id} [get]
func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request, username, puidStr, idStr string) {
	_, post, ok := s.resolvePost(w, r, username, puidStr)
	if !ok {
		return
	}
	comment, ok := s.resolveComment(w, r, post, idStr)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// handleUpdateComment godoc
//
//	@Summary		Edit a comment
//	@Description	Only the comment's author may edit it.
//	@Tags			Comments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	path		string	true	"Username"
//	@Param			puid		path		int		true	"Public post id"
//	@Param			id			path		int		true	"Comment id"
//	@Param			comment		body		object{comment=string}	true	"New text"
//	@Success		200			{object}	model.Comment
//	@Failure		403			{object}	map[string]string
//	@Failure		404			{object}	map[string]string
//	@Router			/users/{username}/posts/{puid}/comments/{id} [put]
func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request, username, puidStr, idStr string) {
	current, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	_, post, ok := s.resolvePost(w, r, username, puidStr)
	if !ok {
		return
	}
	comment, ok := s.resolveComment(w, r, post, idStr)
	if !ok {
		return
	}
	if current.ID != comment.UserID {
		writeError(w, http.StatusForbidden, errors.New("not authorized"))
		return
	}
	var req struct {
		Comment string `json:"comment"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if req.Comment == "" {
		writeError(w, http.StatusBadRequest, errors.New("comment required"))
		return
	}
	if err := s.store.UpdateCommentText(r.Context(), comment.ID, req.Comment); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	comment.Text = req.Comment
	writeJSON(w, http.StatusOK, comment)
}

// handleDeleteComment godoc
//
//	@Summary		Delete a comment
//	@Description	The comment's author or the post's owner may delete it.
//	@Tags			Comments
//	@Security		BearerAuth
//	@Param			username	path	string	true	"Username"
//	@Param			puid		path	int		true	"Public post id"
//	@Param			id			path	int		true	"Comment id"
//	@Success		204
//	@Failure		403	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/users/{username}/posts/{puid}/comments/{id} [delete]
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request, username, puidStr, idStr string) {
	current, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	_, post, ok := s.resolvePost(w, r, username, puidStr)
	if !ok {
		return
	}
	comment, ok := s.resolveComment(w, r, post, idStr)
	if !ok {
		return
	}
	if current.ID != comment.UserID && current.ID != post.OwnerID {
		writeError(w, http.StatusForbidden, errors.New("not authorized"))
		return
	}
	if err := s.store.DeleteComment(r.Context(), comment.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.Printf("comment %d deleted", comment.ID)
	w.WriteHeader(http.StatusNoContent)
}

package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"postboard/internal/auth"
	"postboard/internal/config"
	"postboard/internal/model"
	"postboard/internal/rate"
	"postboard/internal/store"

	"github.com/google/uuid"
)

type Server struct {
	store   store.Store
	tokens  *auth.Tokens
	limiter rate.Limiter
	cfg     config.Config
}

func NewServer(st store.Store, tokens *auth.Tokens, limiter rate.Limiter, cfg config.Config) *Server {
	return &Server{store: st, tokens: tokens, limiter: limiter, cfg: cfg}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[recover] %s: %v (%s %s)", reqID, rec, r.Method, r.URL.Path)
			writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
		}
	}()

	if s.applyCORS(w, r) {
		return
	}
	s.route(w, r)
	log.Printf("%s %s %s %s", reqID, r.Method, r.URL.Path, time.Since(start))
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	segments := splitPath(r.URL.Path)

	switch {
	case len(segments) == 2 && segments[0] == "auth" && segments[1] == "token":
		if r.Method == http.MethodPost {
			s.handleIssueToken(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "users":
		if r.Method == http.MethodGet {
			s.handleListUsers(w, r)
			return
		}
		if r.Method == http.MethodPost {
			s.handleCreateUser(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "users":
		switch r.Method {
		case http.MethodGet:
			s.handleGetUser(w, r, segments[1])
			return
		case http.MethodPut:
			s.handleUpdateUser(w, r, segments[1])
			return
		case http.MethodDelete:
			s.handleDeleteUser(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "users" && segments[2] == "posts":
		if r.Method == http.MethodGet {
			s.handleListPosts(w, r, segments[1])
			return
		}
		if r.Method == http.MethodPost {
			s.handleCreatePost(w, r, segments[1])
			return
		}
	case len(segments) == 4 && segments[0] == "users" && segments[2] == "posts":
		switch r.Method {
		case http.MethodGet:
			s.handleGetPost(w, r, segments[1], segments[3])
			return
		case http.MethodPut:
			s.handleUpdatePost(w, r, segments[1], segments[3])
			return
		case http.MethodDelete:
			s.handleDeletePost(w, r, segments[1], segments[3])
			return
		}
	case len(segments) == 5 && segments[0] == "users" && segments[2] == "posts" && segments[4] == "votes":
		if r.Method == http.MethodGet {
			s.handleListVotes(w, r, segments[1], segments[3])
			return
		}
		if r.Method == http.MethodPut {
			s.handleUpdateVote(w, r, segments[1], segments[3])
			return
		}
	case len(segments) == 5 && segments[0] == "users" && segments[2] == "posts" && segments[4] == "comments":
		if r.Method == http.MethodGet {
			s.handleListComments(w, r, segments[1], segments[3])
			return
		}
		if r.Method == http.MethodPost {
			s.handleCreateComment(w, r, segments[1], segments[3])
			return
		}
	case len(segments) == 6 && segments[0] == "users" && segments[2] == "posts" && segments[4] == "comments":
		switch r.Method {
		case http.MethodGet:
			s.handleGetComment(w, r, segments[1], segments[3], segments[5])
			return
		case http.MethodPut:
			s.handleUpdateComment(w, r, segments[1], segments[3], segments[5])
			return
		case http.MethodDelete:
			s.handleDeleteComment(w, r, segments[1], segments[3], segments[5])
			return
		}
	default:
		notFound(w)
		return
	}

	methodNotAllowed(w)
}

// applyCORS decorates the response for allowed origins and short-circuits
// preflight requests. Returns true when the request was fully handled.
func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) bool {
	if origin := r.Header.Get("Origin"); origin != "" {
		if allowed := s.corsOrigin(origin); allowed != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowed)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
	}
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

func (s *Server) corsOrigin(origin string) string {
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" {
			return "*"
		}
		if strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

// requireAuth resolves the bearer token to a user. A missing, malformed,
// invalid or expired token is 401; a valid token whose user no longer
// exists is 403, matching the handlers' "not authorized" path.
func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken)
		return model.User{}, false
	}
	bearer := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	userID, err := s.tokens.Verify(bearer)
	if err != nil {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken)
		return model.User{}, false
	}
	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusForbidden, errors.New("not authorized"))
		return model.User{}, false
	}
	return user, true
}

func (s *Server) allowRateLimit(w http.ResponseWriter, r *http.Request, action string, limit int) bool {
	if limit <= 0 {
		return true
	}
	key := action + ":" + s.clientIP(r)
	if ok, retry := s.limiter.Allow(key, limit, time.Minute); !ok {
		writeRateLimit(w, retry)
		return false
	}
	return true
}

func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate limit exceeded",
		"retry_after": int(retry.Seconds()),
	})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func parseIntDefault(value string, def int) int {
	if value == "" {
		return def
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return def
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

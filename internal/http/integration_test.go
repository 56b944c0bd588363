package httpapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"postboard/internal/auth"
	"postboard/internal/config"
	"postboard/internal/model"
	"postboard/internal/rate"
	"postboard/internal/store/sqlite"
)

type testClient struct {
	t   *testing.T
	srv *httptest.Server
}

func testConfig() config.Config {
	return config.Config{
		AllowedOrigins: []string{"*"},
		RateLimits: config.RateLimits{
			TokenPerMinute:  1000,
			SignupPerMinute: 1000,
		},
	}
}

func newTestClient(t *testing.T) *testClient {
	return newTestClientWithConfig(t, testConfig())
}

func newTestClientWithConfig(t *testing.T, cfg config.Config) *testClient {
	t.Helper()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	tokens, err := auth.NewTokens("test-secret", "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	srv := httptest.NewServer(NewServer(st, tokens, rate.NewMemory(), cfg))
	t.Cleanup(func() {
		srv.Close()
		_ = st.Close()
	})
	return &testClient{t: t, srv: srv}
}

func (c *testClient) do(method, path, token string, body []byte, contentType string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.srv.URL+path, bytes.NewReader(body))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.srv.Client().Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (c *testClient) jsonReq(method, path, token string, payload any) *http.Response {
	c.t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		c.t.Fatalf("marshal payload: %v", err)
	}
	return c.do(method, path, token, body, "application/json")
}

func (c *testClient) get(path, token string) *http.Response {
	return c.do(http.MethodGet, path, token, nil, "")
}

func (c *testClient) del(path, token string) *http.Response {
	return c.do(http.MethodDelete, path, token, nil, "")
}

func (c *testClient) postForm(path string, values url.Values) *http.Response {
	c.t.Helper()
	return c.do(http.MethodPost, path, "", []byte(values.Encode()), "application/x-www-form-urlencoded")
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}

func (c *testClient) register(name, username, email, password string) model.User {
	c.t.Helper()
	resp := c.jsonReq(http.MethodPost, "/users/", "", map[string]any{
		"name":     name,
		"username": username,
		"email":    email,
		"password": password,
	})
	wantStatus(c.t, resp, http.StatusCreated)
	return decodeJSON[model.User](c.t, resp)
}

func (c *testClient) login(username, password string) string {
	c.t.Helper()
	resp := c.postForm("/auth/token", url.Values{
		"username": {username},
		"password": {password},
	})
	wantStatus(c.t, resp, http.StatusOK)
	body := decodeJSON[map[string]string](c.t, resp)
	if body["token_type"] != "bearer" {
		c.t.Fatalf("expected bearer token type, got %q", body["token_type"])
	}
	if body["access_token"] == "" {
		c.t.Fatalf("expected non-empty access token")
	}
	return body["access_token"]
}

type postBody struct {
	PUID        int64  `json:"puid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Owner       struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"owner"`
	Votes    []model.Vote    `json:"post_votes"`
	Comments []model.Comment `json:"post_comments"`
}

func (c *testClient) createPost(username, token, title, description string) postBody {
	c.t.Helper()
	resp := c.jsonReq(http.MethodPost, "/users/"+username+"/posts/", token, map[string]string{
		"title":       title,
		"description": description,
	})
	wantStatus(c.t, resp, http.StatusCreated)
	return decodeJSON[postBody](c.t, resp)
}

func TestRegisterAndLogin(t *testing.T) {
	c := newTestClient(t)

	user := c.register("Ada Lovelace", "ada", "ada@example.com", "s3cret")
	if user.Username != "ada" || user.ID == 0 {
		t.Fatalf("unexpected user: %+v", user)
	}

	// Duplicate email reports 226, even with a fresh username.
	resp := c.jsonReq(http.MethodPost, "/users/", "", map[string]any{
		"name": "Other", "username": "other", "email": "ada@example.com", "password": "x",
	})
	wantStatus(t, resp, http.StatusIMUsed)
	body := decodeJSON[map[string]string](t, resp)
	if !strings.Contains(body["error"], "email") {
		t.Fatalf("expected email conflict, got %q", body["error"])
	}

	// Duplicate username with a fresh email reports the username.
	resp = c.jsonReq(http.MethodPost, "/users/", "", map[string]any{
		"name": "Other", "username": "ada", "email": "other@example.com", "password": "x",
	})
	wantStatus(t, resp, http.StatusIMUsed)
	body = decodeJSON[map[string]string](t, resp)
	if !strings.Contains(body["error"], "username") {
		t.Fatalf("expected username conflict, got %q", body["error"])
	}

	c.login("ada", "s3cret")
	// Email works as the login identifier too.
	c.login("ada@example.com", "s3cret")

	resp = c.postForm("/auth/token", url.Values{"username": {"ada"}, "password": {"wrong"}})
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// Unknown account is indistinguishable from a bad password.
	resp = c.postForm("/auth/token", url.Values{"username": {"nobody"}, "password": {"x"}})
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = c.postForm("/auth/token", url.Values{"username": {"ada"}})
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestUserResponseHidesPassword(t *testing.T) {
	c := newTestClient(t)
	c.register("Ada Lovelace", "ada", "ada@example.com", "s3cret")

	resp := c.get("/users/ada", "")
	wantStatus(t, resp, http.StatusOK)
	raw := decodeJSON[map[string]any](t, resp)
	for key := range raw {
		if strings.Contains(key, "password") {
			t.Fatalf("response leaks field %q", key)
		}
	}
	if raw["username"] != "ada" {
		t.Fatalf("unexpected body: %v", raw)
	}
}

func TestPostOwnership(t *testing.T) {
	c := newTestClient(t)
	c.register("Ada", "ada", "ada@example.com", "pw-a")
	c.register("Grace", "grace", "grace@example.com", "pw-g")
	adaToken := c.login("ada", "pw-a")
	graceToken := c.login("grace", "pw-g")

	post := c.createPost("ada", adaToken, "Analytical Engine", "notes on computation")
	path := fmt.Sprintf("/users/ada/posts/%d", post.PUID)

	// Another authenticated user cannot touch it.
	resp := c.jsonReq(http.MethodPut, path, graceToken, map[string]string{"title": "hijacked"})
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
	resp = c.del(path, graceToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// Anonymous writes are rejected before any lookup.
	resp = c.jsonReq(http.MethodPut, path, "", map[string]string{"title": "anon"})
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	// Partial update keeps the omitted field.
	resp = c.jsonReq(http.MethodPut, path, adaToken, map[string]string{"title": "Engine v2"})
	wantStatus(t, resp, http.StatusOK)
	updated := decodeJSON[postBody](t, resp)
	if updated.Title != "Engine v2" {
		t.Fatalf("expected updated title, got %q", updated.Title)
	}
	if updated.Description != "notes on computation" {
		t.Fatalf("description changed by a patch that omitted it: %q", updated.Description)
	}
	if updated.Owner.Username != "ada" {
		t.Fatalf("unexpected owner: %+v", updated.Owner)
	}

	// Creating a post under someone else's username is forbidden.
	resp = c.jsonReq(http.MethodPost, "/users/ada/posts/", graceToken, map[string]string{"title": "squatting"})
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = c.del(path, adaToken)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
	resp = c.get(path, "")
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestAnonymousReads(t *testing.T) {
	c := newTestClient(t)
	c.register("Ada", "ada", "ada@example.com", "pw-a")
	token := c.login("ada", "pw-a")
	post := c.createPost("ada", token, "Public post", "")

	paths := []string{
		"/users/",
		"/users/ada",
		"/users/ada/posts/",
		fmt.Sprintf("/users/ada/posts/%d", post.PUID),
		fmt.Sprintf("/users/ada/posts/%d/votes/", post.PUID),
		fmt.Sprintf("/users/ada/posts/%d/comments/", post.PUID),
	}
	for _, path := range paths {
		resp := c.get(path, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s without token: status %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := c.get("/users/nobody/posts/", "")
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestVoteFlow(t *testing.T) {
	c := newTestClient(t)
	c.register("Ada", "ada", "ada@example.com", "pw-a")
	c.register("Grace", "grace", "grace@example.com", "pw-g")
	adaToken := c.login("ada", "pw-a")
	graceToken := c.login("grace", "pw-g")
	post := c.createPost("ada", adaToken, "Votable", "")
	path := fmt.Sprintf("/users/ada/posts/%d/votes/", post.PUID)

	resp := c.jsonReq(http.MethodPut, path, "", map[string]int{"vote": 3})
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = c.jsonReq(http.MethodPut, path, graceToken, map[string]int{"vote": 7})
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
	resp = c.jsonReq(http.MethodPut, path, graceToken, map[string]string{})
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	// First vote inserts.
	resp = c.jsonReq(http.MethodPut, path, graceToken, map[string]int{"vote": 3})
	wantStatus(t, resp, http.StatusOK)
	vote := decodeJSON[model.Vote](t, resp)
	if vote.Value != 3 {
		t.Fatalf("expected vote 3, got %d", vote.Value)
	}

	// Same value again is a no-op, different value updates in place.
	resp = c.jsonReq(http.MethodPut, path, graceToken, map[string]int{"vote": 3})
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = c.jsonReq(http.MethodPut, path, graceToken, map[string]int{"vote": 5})
	wantStatus(t, resp, http.StatusOK)
	vote = decodeJSON[model.Vote](t, resp)
	if vote.Value != 5 {
		t.Fatalf("expected vote 5, got %d", vote.Value)
	}

	resp = c.get(path, "")
	wantStatus(t, resp, http.StatusOK)
	votes := decodeJSON[[]model.Vote](t, resp)
	if len(votes) != 1 || votes[0].Value != 5 {
		t.Fatalf("expected single vote of 5, got %+v", votes)
	}

	// A zero vote is stored, not deleted.
	resp = c.jsonReq(http.MethodPut, path, graceToken, map[string]int{"vote": 0})
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = c.get(path, "")
	votes = decodeJSON[[]model.Vote](t, resp)
	if len(votes) != 1 || votes[0].Value != 0 {
		t.Fatalf("expected single vote of 0, got %+v", votes)
	}
}

func TestCommentModeration(t *testing.T) {
	c := newTestClient(t)
	c.register("Ada", "ada", "ada@example.com", "pw-a")
	c.register("Grace", "grace", "grace@example.com", "pw-g")
	c.register("Edsger", "edsger", "edsger@example.com", "pw-e")
	adaToken := c.login("ada", "pw-a")
	graceToken := c.login("grace", "pw-g")
	edsgerToken := c.login("edsger", "pw-e")
	post := c.createPost("ada", adaToken, "Discussed", "")
	base := fmt.Sprintf("/users/ada/posts/%d/comments/", post.PUID)

	resp := c.jsonReq(http.MethodPost, base, graceToken, map[string]string{"comment": "interesting"})
	wantStatus(t, resp, http.StatusCreated)
	comment := decodeJSON[model.Comment](t, resp)
	path := fmt.Sprintf("%s%d", base, comment.ID)

	// Only the author may edit, not even the post owner.
	resp = c.jsonReq(http.MethodPut, path, adaToken, map[string]string{"comment": "rewritten"})
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
	resp = c.jsonReq(http.MethodPut, path, graceToken, map[string]string{"comment": "clarified"})
	wantStatus(t, resp, http.StatusOK)
	edited := decodeJSON[model.Comment](t, resp)
	if edited.Text != "clarified" {
		t.Fatalf("expected edited text, got %q", edited.Text)
	}

	// A third party may not delete it; the post owner may.
	resp = c.del(path, edsgerToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
	resp = c.del(path, adaToken)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
	resp = c.get(path, "")
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	// The author can delete their own comment.
	resp = c.jsonReq(http.MethodPost, base, graceToken, map[string]string{"comment": "again"})
	wantStatus(t, resp, http.StatusCreated)
	comment = decodeJSON[model.Comment](t, resp)
	resp = c.del(fmt.Sprintf("%s%d", base, comment.ID), graceToken)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
}

func TestCommentUnderWrongPost(t *testing.T) {
	c := newTestClient(t)
	c.register("Ada", "ada", "ada@example.com", "pw-a")
	token := c.login("ada", "pw-a")
	first := c.createPost("ada", token, "First", "")
	second := c.createPost("ada", token, "Second", "")

	resp := c.jsonReq(http.MethodPost, fmt.Sprintf("/users/ada/posts/%d/comments/", first.PUID), token, map[string]string{"comment": "on first"})
	wantStatus(t, resp, http.StatusCreated)
	comment := decodeJSON[model.Comment](t, resp)

	// The comment is not reachable through the other post.
	resp = c.get(fmt.Sprintf("/users/ada/posts/%d/comments/%d", second.PUID, comment.ID), "")
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
	resp = c.get(fmt.Sprintf("/users/ada/posts/%d/comments/%d", first.PUID, comment.ID), "")
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestDeleteUserCascades(t *testing.T) {
	c := newTestClient(t)
	c.register("Ada", "ada", "ada@example.com", "pw-a")
	c.register("Grace", "grace", "grace@example.com", "pw-g")
	adaToken := c.login("ada", "pw-a")
	graceToken := c.login("grace", "pw-g")
	post := c.createPost("ada", adaToken, "Doomed", "")

	votePath := fmt.Sprintf("/users/ada/posts/%d/votes/", post.PUID)
	resp := c.jsonReq(http.MethodPut, votePath, graceToken, map[string]int{"vote": 4})
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = c.jsonReq(http.MethodPost, fmt.Sprintf("/users/ada/posts/%d/comments/", post.PUID), graceToken, map[string]string{"comment": "bye"})
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	// Only the account owner can delete it.
	resp = c.del("/users/ada", graceToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = c.del("/users/ada", adaToken)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = c.get("/users/ada", "")
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
	resp = c.get(fmt.Sprintf("/users/ada/posts/%d", post.PUID), "")
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	// The deleted user's still-valid token now resolves to nobody.
	resp = c.jsonReq(http.MethodPut, "/users/ada", adaToken, map[string]string{"name": "ghost"})
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// The voter is untouched.
	resp = c.get("/users/grace", "")
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestUserPartialUpdate(t *testing.T) {
	c := newTestClient(t)
	c.register("Ada", "ada", "ada@example.com", "pw-a")
	token := c.login("ada", "pw-a")

	resp := c.jsonReq(http.MethodPut, "/users/ada", token, map[string]any{"verified_user": true})
	wantStatus(t, resp, http.StatusOK)
	user := decodeJSON[model.User](t, resp)
	if !user.Verified {
		t.Fatalf("expected verified set")
	}
	if user.Name != "Ada" {
		t.Fatalf("name changed by a patch that omitted it: %q", user.Name)
	}

	resp = c.jsonReq(http.MethodPut, "/users/ada", token, map[string]any{"name": "Countess"})
	wantStatus(t, resp, http.StatusOK)
	user = decodeJSON[model.User](t, resp)
	if user.Name != "Countess" || !user.Verified {
		t.Fatalf("unexpected user after patch: %+v", user)
	}
}

func TestInvalidTokens(t *testing.T) {
	c := newTestClient(t)
	c.register("Ada", "ada", "ada@example.com", "pw-a")

	for _, token := range []string{"", "garbage", "a.b.c"} {
		resp := c.jsonReq(http.MethodPut, "/users/ada", token, map[string]string{"name": "x"})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401, got %d", token, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// A token signed with a different secret is rejected too.
	other, err := auth.NewTokens("other-secret", "HS256", time.Minute)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	forged, err := other.Issue(1)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	resp := c.jsonReq(http.MethodPut, "/users/ada", forged, map[string]string{"name": "x"})
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestRoutingErrors(t *testing.T) {
	c := newTestClient(t)

	resp := c.get("/nope", "")
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = c.do(http.MethodPatch, "/users/", "", nil, "")
	wantStatus(t, resp, http.StatusMethodNotAllowed)
	resp.Body.Close()

	resp = c.get("/auth/token", "")
	wantStatus(t, resp, http.StatusMethodNotAllowed)
	resp.Body.Close()
}

func TestCORSPreflight(t *testing.T) {
	c := newTestClient(t)

	req, err := http.NewRequest(http.MethodOptions, c.srv.URL+"/users/", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := c.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusNoContent)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("expected allow-methods header")
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://trusted.example.com"}
	c := newTestClientWithConfig(t, cfg)

	req, err := http.NewRequest(http.MethodGet, c.srv.URL+"/users/", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err := c.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}

func TestTokenRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimits.TokenPerMinute = 2
	c := newTestClientWithConfig(t, cfg)
	c.register("Ada", "ada", "ada@example.com", "pw-a")

	values := url.Values{"username": {"ada"}, "password": {"pw-a"}}
	for i := 0; i < 2; i++ {
		resp := c.postForm("/auth/token", values)
		wantStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}
	resp := c.postForm("/auth/token", values)
	wantStatus(t, resp, http.StatusTooManyRequests)
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	resp.Body.Close()
}

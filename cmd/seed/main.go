package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
)

var users = []struct {
	name     string
	username string
	email    string
}{
	{"Ada Lovelace", "ada", "ada@example.com"},
	{"Grace Hopper", "grace", "grace@example.com"},
	{"Alan Turing", "alan", "alan@example.com"},
	{"Edsger Dijkstra", "edsger", "edsger@example.com"},
}

var posts = []struct {
	title       string
	description string
}{
	{"Notes on the Analytical Engine", "A few observations on programmable machines."},
	{"Debugging stories", "The first bug was an actual moth."},
	{"On computable numbers", ""},
	{"Goto considered harmful", "A short letter to the editor."},
	{"Weekend reading list", "Papers worth a second pass."},
	{"Thoughts on program proofs", ""},
}

var comments = []string{
	"Great write-up, thanks for sharing.",
	"I think the second paragraph deserves its own post.",
	"Do you have a reference for this?",
	"Strongly disagree, but well argued.",
	"This matches what I've seen in practice.",
	"Bookmarking this one.",
}

const seedPassword = "seed-password"

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "postboard server URL")
	flag.Parse()

	log.Printf("seeding %s...", *baseURL)

	tokens := make(map[string]string, len(users))
	for _, u := range users {
		if err := createUser(*baseURL, u.name, u.username, u.email); err != nil {
			log.Fatalf("create user %s: %v", u.username, err)
		}
		token, err := issueToken(*baseURL, u.username)
		if err != nil {
			log.Fatalf("token for %s: %v", u.username, err)
		}
		tokens[u.username] = token
		log.Printf("✓ user %s", u.username)
	}

	var created []struct {
		owner string
		puid  int64
	}
	for i, p := range posts {
		owner := users[i%len(users)].username
		puid, err := createPost(*baseURL, tokens[owner], owner, p.title, p.description)
		if err != nil {
			log.Fatalf("create post %q: %v", p.title, err)
		}
		created = append(created, struct {
			owner string
			puid  int64
		}{owner, puid})
		log.Printf("✓ post %d by %s", puid, owner)
	}

	for _, post := range created {
		for _, u := range users {
			if rand.Intn(2) == 0 {
				continue
			}
			if err := castVote(*baseURL, tokens[u.username], post.owner, post.puid, rand.Intn(6)); err != nil {
				log.Fatalf("vote on %d: %v", post.puid, err)
			}
			if err := createComment(*baseURL, tokens[u.username], post.owner, post.puid, comments[rand.Intn(len(comments))]); err != nil {
				log.Fatalf("comment on %d: %v", post.puid, err)
			}
		}
	}

	log.Println("done")
}

func createUser(baseURL, name, username, email string) error {
	body := map[string]any{
		"name":     name,
		"username": username,
		"email":    email,
		"password": seedPassword,
	}
	resp, err := postJSON(baseURL+"/users/", "", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// 226 means a previous seed run already created the user.
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusIMUsed {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func issueToken(baseURL, username string) (string, error) {
	form := url.Values{"username": {username}, "password": {seedPassword}}
	resp, err := http.Post(baseURL+"/auth/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.AccessToken, nil
}

func createPost(baseURL, token, owner, title, description string) (int64, error) {
	body := map[string]any{"title": title}
	if description != "" {
		body["description"] = description
	}
	resp, err := postJSON(fmt.Sprintf("%s/users/%s/posts/", baseURL, owner), token, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	var payload struct {
		PUID int64 `json:"puid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	return payload.PUID, nil
}

func castVote(baseURL, token, owner string, puid int64, value int) error {
	payload, _ := json.Marshal(map[string]any{"vote": value})
	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/users/%s/posts/%d/votes/", baseURL, owner, puid), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func createComment(baseURL, token, owner string, puid int64, text string) error {
	resp, err := postJSON(fmt.Sprintf("%s/users/%s/posts/%d/comments/", baseURL, owner, puid), token, map[string]any{"comment": text})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func postJSON(url, token string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}

//go:build integration

package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/attaboy/gamesocial/internal/auth"
)

// PlayerToken signs a player-realm token for uid.
func (env *TestEnv) PlayerToken(uid, username string) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(auth.RealmPlayer, uid, username, "")
	if err != nil {
		env.t.Fatalf("PlayerToken: %v", err)
	}
	return token
}

// AdminToken signs an admin-realm token with the given role.
func (env *TestEnv) AdminToken(role string) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateToken(auth.RealmAdmin, "ops-"+role, role, role)
	if err != nil {
		env.t.Fatalf("AdminToken: %v", err)
	}
	return token
}

// RegisterUser registers uid through the API and returns its player token.
func (env *TestEnv) RegisterUser(uid string) string {
	env.t.Helper()
	token := env.PlayerToken(uid, uid)
	resp := env.POST("/scores", nil, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("RegisterUser %s: expected 201, got %d", uid, resp.StatusCode)
	}
	return token
}

// RecordWin posts one win for uid with an admin token.
func (env *TestEnv) RecordWin(uid string) *http.Response {
	env.t.Helper()
	return env.POST("/scores/"+uid+"/wins", nil, env.AdminToken(auth.RoleAdmin))
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token)
}

// DELETE performs a DELETE request with optional auth token.
func (env *TestEnv) DELETE(path, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodDelete, path, nil, token)
}

func (env *TestEnv) do(method, path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsExpectAndChecksAccounts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"accounts":{"admin":{"username":"a","password":"b"}},"targets":[{"method":"GET","path":"/courses","as":"admin"}]}`), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, cfg.Targets[0].Expect)

	require.NoError(t, os.WriteFile(path, []byte(`{"targets":[{"method":"GET","path":"/courses","as":"ghost"}]}`), 0o600))
	_, err = loadConfig(path)
	assert.Error(t, err)
}

func TestLoginAndRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]string{"access_token": "tok"}})
		case "/api/v1/courses":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	base := srv.URL + "/api/v1"
	token, err := login(srv.Client(), base, account{Username: "admin", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	tokens := map[string]string{"admin": token}
	res := run(srv.Client(), base, tokens, target{Method: "GET", Path: "courses", As: "admin", Expect: http.StatusOK})
	assert.True(t, res.ok())

	res = run(srv.Client(), base, tokens, target{Method: "GET", Path: "/courses", Expect: http.StatusOK})
	assert.False(t, res.ok())
	assert.Equal(t, http.StatusUnauthorized, res.Status)
}

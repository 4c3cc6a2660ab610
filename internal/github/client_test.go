package github

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
)

func newTestIssuer(t *testing.T, mux *http.ServeMux) *Issuer {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := github.NewClient(nil)
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = baseURL

	cfg := &config.Config{
		GitHub: config.GitHubConfig{RunnerGroupID: 3},
		Runner: config.RunnerConfig{Labels: []string{"self-hosted", "linux"}, NamePrefix: "warden"},
	}
	return NewIssuer(cfg, staticSource{client: client}, slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func testEvent() *core.JobEvent {
	return &core.JobEvent{
		JobID:        "1001",
		RepoOwner:    "acme",
		RepoName:     "api",
		RepoFullName: "acme/api",
		Labels:       []string{"self-hosted"},
	}
}

func TestIssuer_IssueCredential(t *testing.T) {
	mux := http.NewServeMux()
	var got github.GenerateJITConfigRequest
	mux.HandleFunc("POST /repos/acme/api/actions/runners/generate-jitconfig", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"runner":{"id":23,"name":"warden-1001"},"encoded_jit_config":"ENCODED-JIT"}`))
	})

	issuer := newTestIssuer(t, mux)
	cred, err := issuer.IssueCredential(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, "warden-1001", got.Name)
	assert.Equal(t, int64(3), got.RunnerGroupID)
	assert.Equal(t, []string{"self-hosted", "linux"}, got.Labels)

	assert.Equal(t, "1001", cred.JobID())
	assert.Equal(t, int64(23), cred.RunnerID())
	token, err := cred.Consume()
	require.NoError(t, err)
	assert.Equal(t, "ENCODED-JIT", token)
}

func TestIssuer_IssueCredentialErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "api error", status: http.StatusForbidden, payload: `{"message":"Resource not accessible by integration"}`},
		{name: "server error", status: http.StatusBadGateway, payload: `{"message":"bad gateway"}`},
		{name: "empty config", status: http.StatusCreated, payload: `{"runner":{"id":23}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /repos/acme/api/actions/runners/generate-jitconfig", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			})

			cred, err := newTestIssuer(t, mux).IssueCredential(context.Background(), testEvent())
			assert.Error(t, err)
			assert.Nil(t, cred)
		})
	}
}

func TestIssuer_Revoke(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "removed", status: http.StatusNoContent},
		{name: "already gone", status: http.StatusNotFound},
		{name: "forbidden", status: http.StatusForbidden, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			mux := http.NewServeMux()
			mux.HandleFunc("DELETE /repos/acme/api/actions/runners/23", func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(tt.status)
			})

			cred := core.NewJobCredential("1001", 23, "warden-1001", "ENCODED-JIT")
			err := newTestIssuer(t, mux).Revoke(context.Background(), testEvent(), cred)
			assert.True(t, called)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIssuer_RevokeWithoutRunner(t *testing.T) {
	issuer := newTestIssuer(t, http.NewServeMux())
	cred := core.NewJobCredential("1001", 0, "warden-1001", "ENCODED-JIT")
	assert.NoError(t, issuer.Revoke(context.Background(), testEvent(), cred))
}

func TestAppSource_RequiresInstallation(t *testing.T) {
	src := &appSource{appID: 1, clients: map[int64]*github.Client{}, logger: slog.New(slog.NewTextHandler(os.Stdout, nil))}
	_, err := src.Client(context.Background(), 0)
	assert.Error(t, err)
}

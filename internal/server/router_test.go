package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/runner-warden/internal/callback"
	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/gate"
	"github.com/sevigo/runner-warden/internal/jobs"
	"github.com/sevigo/runner-warden/internal/storage"
	"github.com/sevigo/runner-warden/internal/webhook"
	"github.com/sevigo/runner-warden/mocks"
)

const secret = "webhook-secret"

type pipeline struct {
	gate       *gate.Gate
	issuer     *mocks.MockCredentialIssuer
	launcher   *mocks.MockUnitLauncher
	dispatcher *jobs.CompletionDispatcher
	signer     *callback.Signer
	server     *httptest.Server
}

func newPipeline(t *testing.T, ceiling int) *pipeline {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Server: config.ServerConfig{
			PublicURL:      "https://warden.example.com",
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		GitHub: config.GitHubConfig{WebhookSecret: secret, IssueTimeout: time.Second},
		Runner: config.RunnerConfig{
			Labels:        []string{"self-hosted"},
			MaxRuntime:    time.Hour,
			LaunchTimeout: time.Second,
		},
		Gate: config.GateConfig{
			MaxConcurrentUnits:  ceiling,
			SweepInterval:       time.Minute,
			Grace:               time.Minute,
			CompletionWorkers:   1,
			CompletionQueueSize: 8,
		},
	}

	ctrl := gomock.NewController(t)
	p := &pipeline{
		gate:     gate.New(ceiling),
		issuer:   mocks.NewMockCredentialIssuer(ctrl),
		launcher: mocks.NewMockUnitLauncher(ctrl),
		signer:   callback.NewSigner("callback-secret"),
	}
	store := storage.NewNoopStore()
	p.dispatcher = jobs.NewCompletionDispatcher(cfg, p.gate, store, p.launcher, logger)
	provisioner := jobs.NewProvisioner(cfg, p.gate, p.issuer, p.launcher, p.signer, store, logger)

	p.server = httptest.NewServer(NewRouter(cfg, provisioner, p.gate, p.signer, p.dispatcher, logger))
	t.Cleanup(func() {
		p.server.Close()
		provisioner.Wait()
		p.dispatcher.Stop()
	})
	return p
}

func (p *pipeline) deliver(t *testing.T, body []byte, signature string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, p.server.URL+"/api/v1/webhook/github", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-GitHub-Event", "workflow_job")
	req.Header.Set(webhook.SignatureHeader, signature)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func queuedJob(action string, jobID int) []byte {
	raw, _ := json.Marshal(map[string]any{
		"action": action,
		"workflow_job": map[string]any{
			"id":     jobID,
			"labels": []string{"self-hosted"},
		},
		"repository": map[string]any{
			"name":      "api",
			"full_name": "acme/api",
			"owner":     map[string]any{"login": "acme"},
		},
	})
	return raw
}

func launched(_ context.Context, req core.LaunchRequest) (*core.ExecutionUnit, error) {
	return &core.ExecutionUnit{
		ID:        "warden-" + req.Event.JobID,
		JobID:     req.Event.JobID,
		StartedAt: time.Now(),
		Deadline:  time.Now().Add(req.MaxRuntime),
		State:     core.UnitRunning,
	}, nil
}

func issued(_ context.Context, ev *core.JobEvent) (*core.JobCredential, error) {
	return core.NewJobCredential(ev.JobID, 1, "warden-"+ev.JobID, "jit-secret"), nil
}

func TestPipeline_CeilingAdmitsExactlyTwoOfThree(t *testing.T) {
	p := newPipeline(t, 2)
	p.issuer.EXPECT().IssueCredential(gomock.Any(), gomock.Any()).DoAndReturn(issued).Times(2)
	p.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).DoAndReturn(launched).Times(2)

	codes := make([]int, 3)
	var wg sync.WaitGroup
	for i := range 3 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := queuedJob("queued", 1000+i)
			codes[i] = p.deliver(t, body, webhook.Sign([]byte(secret), body))
		}(i)
	}
	wg.Wait()

	count := map[int]int{}
	for _, c := range codes {
		count[c]++
	}
	assert.Equal(t, 2, count[http.StatusAccepted])
	assert.Equal(t, 1, count[http.StatusTooManyRequests])
	assert.Equal(t, 2, p.gate.Outstanding())
}

func TestPipeline_NonQueuedActionHasNoDownstreamCalls(t *testing.T) {
	p := newPipeline(t, 2)
	body := queuedJob("completed", 1001)

	assert.Equal(t, http.StatusOK, p.deliver(t, body, webhook.Sign([]byte(secret), body)))
	assert.Equal(t, 0, p.gate.Outstanding())
}

func TestPipeline_TamperedBodyHasNoDownstreamCalls(t *testing.T) {
	p := newPipeline(t, 2)
	signed := queuedJob("queued", 1001)
	tampered := queuedJob("queued", 9999)

	assert.Equal(t, http.StatusForbidden, p.deliver(t, tampered, webhook.Sign([]byte(secret), signed)))
	assert.Equal(t, 0, p.gate.Outstanding())
}

func TestPipeline_IssuanceFailureRestoresCounter(t *testing.T) {
	p := newPipeline(t, 2)
	p.issuer.EXPECT().IssueCredential(gomock.Any(), gomock.Any()).Return(nil, errors.New("upstream 502"))

	body := queuedJob("queued", 1001)
	assert.Equal(t, http.StatusBadGateway, p.deliver(t, body, webhook.Sign([]byte(secret), body)))
	assert.Equal(t, 0, p.gate.Outstanding())
}

func TestPipeline_RedeliveryLaunchesOnce(t *testing.T) {
	p := newPipeline(t, 2)
	p.issuer.EXPECT().IssueCredential(gomock.Any(), gomock.Any()).DoAndReturn(issued).Times(1)
	p.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).DoAndReturn(launched).Times(1)

	body := queuedJob("queued", 1001)
	sig := webhook.Sign([]byte(secret), body)
	assert.Equal(t, http.StatusAccepted, p.deliver(t, body, sig))
	assert.Equal(t, http.StatusOK, p.deliver(t, body, sig))
	assert.Equal(t, 1, p.gate.Outstanding())
}

func TestPipeline_CallbackStopsUnitAndReleasesSlot(t *testing.T) {
	p := newPipeline(t, 1)
	p.issuer.EXPECT().IssueCredential(gomock.Any(), gomock.Any()).DoAndReturn(issued).Times(2)
	p.launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).DoAndReturn(launched).Times(2)
	p.launcher.EXPECT().Stop(gomock.Any(), "warden-1001").Return(nil).Times(1)

	first := queuedJob("queued", 1001)
	require.Equal(t, http.StatusAccepted, p.deliver(t, first, webhook.Sign([]byte(secret), first)))

	token, err := p.signer.Mint("1001", time.Now().Add(time.Hour))
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, p.server.URL+"/api/v1/jobs/1001/complete", bytes.NewReader([]byte(`{"state":"completed"}`)))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool { return p.gate.Outstanding() == 0 }, time.Second, 10*time.Millisecond)

	second := queuedJob("queued", 1002)
	assert.Equal(t, http.StatusAccepted, p.deliver(t, second, webhook.Sign([]byte(secret), second)))
}

func TestRouter_Health(t *testing.T) {
	p := newPipeline(t, 1)
	resp, err := http.Get(p.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}


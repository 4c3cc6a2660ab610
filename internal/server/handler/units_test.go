package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/runner-warden/internal/callback"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/gate"
	"github.com/sevigo/runner-warden/mocks"
)

func unitsRouter(h *UnitsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/units", h.List)
	r.Post("/api/v1/jobs/{jobID}/complete", h.Complete)
	return r
}

func call(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUnits_ListRequiresAdminToken(t *testing.T) {
	g := gate.New(3)
	ticket, err := g.Admit("1001")
	require.NoError(t, err)
	_, err = g.Attach(ticket, &core.ExecutionUnit{ID: "warden-1001", JobID: "1001", StartedAt: time.Now(), State: core.UnitRunning})
	require.NoError(t, err)

	router := unitsRouter(NewUnitsHandler(testConfig(), g, nil, nil, testLogger()))

	assert.Equal(t, http.StatusForbidden, call(t, router, http.MethodGet, "/api/v1/units", "", "").Code)
	assert.Equal(t, http.StatusForbidden, call(t, router, http.MethodGet, "/api/v1/units", "wrong", "").Code)

	rec := call(t, router, http.MethodGet, "/api/v1/units", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outstanding":1`)
	assert.Contains(t, rec.Body.String(), `"ceiling":3`)
	assert.Contains(t, rec.Body.String(), "warden-1001")
}

func TestUnits_ListDisabledWithoutAdminToken(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AdminToken = ""
	router := unitsRouter(NewUnitsHandler(cfg, gate.New(1), nil, nil, testLogger()))

	assert.Equal(t, http.StatusNotFound, call(t, router, http.MethodGet, "/api/v1/units", "", "").Code)
}

func TestUnits_CompleteCallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockCompletionNotifier(ctrl)
	signer := callback.NewSigner("callback-secret")
	router := unitsRouter(NewUnitsHandler(testConfig(), gate.New(1), signer, notifier, testLogger()))

	token, err := signer.Mint("1001", time.Now().Add(time.Hour))
	require.NoError(t, err)
	otherJob, err := signer.Mint("2002", time.Now().Add(time.Hour))
	require.NoError(t, err)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c core.Completion) error {
			assert.Equal(t, "1001", c.JobID)
			assert.Equal(t, core.UnitFailed, c.State)
			assert.Equal(t, core.SourceCallback, c.Source)
			return nil
		}).Times(1)

	path := "/api/v1/jobs/1001/complete"
	assert.Equal(t, http.StatusForbidden, call(t, router, http.MethodPost, path, "", `{"state":"completed"}`).Code)
	assert.Equal(t, http.StatusForbidden, call(t, router, http.MethodPost, path, "not-a-jwt", `{"state":"completed"}`).Code)
	assert.Equal(t, http.StatusForbidden, call(t, router, http.MethodPost, path, otherJob, `{"state":"completed"}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, router, http.MethodPost, path, token, `{"state":"running"}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, router, http.MethodPost, path, token, `{`).Code)
	assert.Equal(t, http.StatusAccepted, call(t, router, http.MethodPost, path, token, `{"state":"failed"}`).Code)
}

func TestUnits_CompleteDisabledWithoutSigner(t *testing.T) {
	router := unitsRouter(NewUnitsHandler(testConfig(), gate.New(1), nil, nil, testLogger()))
	rec := call(t, router, http.MethodPost, "/api/v1/jobs/1001/complete", "anything", `{"state":"completed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package handler

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/runner-warden/internal/callback"
	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/gate"
)

type completionRequest struct {
	State core.UnitState `json:"state"`
}

// UnitsList is the admin view of outstanding units.
type UnitsList struct {
	Outstanding int                  `json:"outstanding"`
	Ceiling     int                  `json:"ceiling"`
	Units       []core.ExecutionUnit `json:"units"`
}

// UnitsHandler serves the admin listing and the unit completion callback.
type UnitsHandler struct {
	cfg      *config.Config
	gate     *gate.Gate
	signer   *callback.Signer
	notifier core.CompletionNotifier
	logger   *slog.Logger
}

func NewUnitsHandler(cfg *config.Config, g *gate.Gate, signer *callback.Signer, notifier core.CompletionNotifier, logger *slog.Logger) *UnitsHandler {
	return &UnitsHandler{
		cfg:      cfg,
		gate:     g,
		signer:   signer,
		notifier: notifier,
		logger:   logger,
	}
}

// List returns the outstanding units. It is hidden unless an admin token is configured.
func (h *UnitsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Server.AdminToken == "" {
		http.NotFound(w, r)
		return
	}
	token, ok := bearerToken(r)
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.Server.AdminToken)) != 1 {
		writeJSON(w, http.StatusForbidden, Response{Status: "rejected", Message: "authentication failed"})
		return
	}

	units := h.gate.Units()
	writeJSON(w, http.StatusOK, UnitsList{
		Outstanding: h.gate.Outstanding(),
		Ceiling:     h.gate.Ceiling(),
		Units:       units,
	})
}

// Complete lets a unit report its own terminal state.
func (h *UnitsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if h.signer == nil {
		http.NotFound(w, r)
		return
	}

	token, ok := bearerToken(r)
	if !ok {
		writeJSON(w, http.StatusForbidden, Response{Status: "rejected", Message: "authentication failed"})
		return
	}
	subject, err := h.signer.Verify(token)
	if err != nil || subject != jobID {
		h.logger.Warn("rejected completion callback", "job_id", jobID, "error", err)
		writeJSON(w, http.StatusForbidden, Response{Status: "rejected", Message: "authentication failed"})
		return
	}

	var req completionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: "rejected", Message: "malformed payload", JobID: jobID})
		return
	}
	if req.State != core.UnitCompleted && req.State != core.UnitFailed {
		writeJSON(w, http.StatusBadRequest, Response{Status: "rejected", Message: "state must be completed or failed", JobID: jobID})
		return
	}

	err = h.notifier.Notify(r.Context(), core.Completion{
		JobID:  jobID,
		State:  req.State,
		Source: core.SourceCallback,
		At:     time.Now(),
	})
	if err != nil {
		h.logger.Error("failed to queue completion", "job_id", jobID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, Response{Status: "error", Message: "completion not accepted", JobID: jobID})
		return
	}

	h.logger.Info("completion callback accepted", "job_id", jobID, "state", req.State)
	writeJSON(w, http.StatusAccepted, Response{Status: "accepted", JobID: jobID})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(auth[len(prefix):]), true
}

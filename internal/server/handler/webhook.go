// Package handler provides the HTTP handlers of runner-warden.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/webhook"
)

const (
	eventPing        = "ping"
	eventWorkflowJob = "workflow_job"
)

// Response is the JSON body of every webhook and callback reply.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	JobID   string `json:"job_id,omitempty"`
	UnitID  string `json:"unit_id,omitempty"`
}

// WebhookHandler processes incoming workflow_job deliveries from GitHub.
type WebhookHandler struct {
	cfg         *config.Config
	provisioner core.Provisioner
	logger      *slog.Logger
}

// NewWebhookHandler creates a new webhook handler with the given configuration and provisioner.
func NewWebhookHandler(cfg *config.Config, provisioner core.Provisioner, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:         cfg,
		provisioner: provisioner,
		logger:      logger,
	}
}

// Handle authenticates, validates and provisions one delivery.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deliveryID := github.DeliveryID(r)
	log := h.logger.With("delivery_id", deliveryID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("webhook body too large", "limit", tooLarge.Limit)
			writeJSON(w, http.StatusRequestEntityTooLarge, Response{Status: "rejected", Message: "payload too large"})
			return
		}
		log.Warn("failed to read webhook body", "error", err)
		writeJSON(w, http.StatusBadRequest, Response{Status: "rejected", Message: "could not read payload"})
		return
	}

	if err := webhook.Verify([]byte(h.cfg.GitHub.WebhookSecret), r.Header.Get(webhook.SignatureHeader), body); err != nil {
		log.Warn("webhook authentication failed", "error", err, "remote", r.RemoteAddr)
		writeJSON(w, http.StatusForbidden, Response{Status: "rejected", Message: "authentication failed"})
		return
	}

	eventType := github.WebHookType(r)
	if eventType == "" {
		eventType = eventWorkflowJob
	}
	switch eventType {
	case eventPing:
		writeJSON(w, http.StatusOK, Response{Status: "pong"})
		return
	case eventWorkflowJob:
	default:
		log.Debug("ignoring unhandled webhook event type", "type", eventType)
		writeJSON(w, http.StatusOK, Response{Status: "ignored", Message: "event type not handled"})
		return
	}

	parsed, err := github.ParseWebHook(eventWorkflowJob, body)
	if err != nil {
		log.Warn("could not parse webhook", "error", err)
		writeJSON(w, http.StatusBadRequest, Response{Status: "rejected", Message: "malformed payload"})
		return
	}
	wj, _ := parsed.(*github.WorkflowJobEvent)

	event, err := core.EventFromWorkflowJob(wj)
	switch {
	case errors.Is(err, core.ErrNotActionable):
		log.Debug("ignoring workflow job", "action", wj.GetAction(), "job_id", wj.GetWorkflowJob().GetID())
		writeJSON(w, http.StatusOK, Response{Status: "ignored", Message: "action not actionable"})
		return
	case err != nil:
		log.Warn("invalid workflow job payload", "error", err)
		writeJSON(w, http.StatusBadRequest, Response{Status: "rejected", Message: err.Error()})
		return
	}
	event.DeliveryID = deliveryID

	if !core.LabelsServed(event.Labels, h.cfg.Runner.Labels) {
		log.Debug("ignoring job with unserved labels", "job_id", event.JobID, "labels", event.Labels)
		writeJSON(w, http.StatusOK, Response{Status: "ignored", Message: "labels not served", JobID: event.JobID})
		return
	}

	unit, err := h.provisioner.Provision(r.Context(), event)
	if err != nil {
		h.writeProvisionError(w, log, event, err)
		return
	}

	log.Info("workflow job provisioned", "job_id", event.JobID, "unit_id", unit.ID, "repo", event.RepoFullName)
	writeJSON(w, http.StatusAccepted, Response{Status: "provisioned", JobID: event.JobID, UnitID: unit.ID})
}

func (h *WebhookHandler) writeProvisionError(w http.ResponseWriter, log *slog.Logger, event *core.JobEvent, err error) {
	switch {
	case errors.Is(err, core.ErrDuplicateJob):
		log.Info("duplicate delivery for active job", "job_id", event.JobID)
		writeJSON(w, http.StatusOK, Response{Status: "duplicate", Message: "job already provisioned", JobID: event.JobID})
	case errors.Is(err, core.ErrAdmissionDenied):
		w.Header().Set("Retry-After", strconv.Itoa(h.retryAfterSeconds()))
		writeJSON(w, http.StatusTooManyRequests, Response{Status: "denied", Message: "concurrency ceiling reached", JobID: event.JobID})
	case errors.Is(err, core.ErrProvisioning):
		log.Error("failed to provision workflow job", "job_id", event.JobID, "error", err)
		writeJSON(w, http.StatusBadGateway, Response{Status: "failed", Message: provisioningMessage(err), JobID: event.JobID})
	default:
		log.Error("unexpected provisioning failure", "job_id", event.JobID, "error", err)
		writeJSON(w, http.StatusInternalServerError, Response{Status: "error", Message: "internal error", JobID: event.JobID})
	}
}

// retryAfterSeconds hints when a slot may free up: the next watchdog sweep at the latest.
func (h *WebhookHandler) retryAfterSeconds() int {
	return max(int(h.cfg.Gate.SweepInterval.Seconds()), 1)
}

func provisioningMessage(err error) string {
	var issueErr *core.CredentialIssuanceError
	if errors.As(err, &issueErr) {
		return "credential issuance failed"
	}
	return "unit launch failed"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

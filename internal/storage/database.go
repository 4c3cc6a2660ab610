// Package storage persists the optional job ledger. It records what happened to
// each job; it never stores credential material.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/runner-warden/internal/core"
)

// JobRecord is one provisioning attempt for a workflow job.
type JobRecord struct {
	ID         int64     `db:"id" json:"id"`
	JobID      string    `db:"job_id" json:"job_id"`
	DeliveryID string    `db:"delivery_id" json:"delivery_id,omitempty"`
	Repository string    `db:"repository" json:"repository"`
	UnitID     string    `db:"unit_id" json:"unit_id,omitempty"`
	Profile    string    `db:"profile" json:"profile,omitempty"`
	State      string    `db:"state" json:"state"`
	Reason     string    `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Store defines the interface for all database operations.
//
//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks . Store
type Store interface {
	RecordJob(ctx context.Context, rec *JobRecord) error
	// UpdateJobState changes the most recent record of jobID. An empty unitID
	// keeps the stored one.
	UpdateJobState(ctx context.Context, jobID, unitID string, state core.UnitState, reason string) error
	UpdateUnitState(ctx context.Context, unitID string, state core.UnitState, reason string) error
	ListJobs(ctx context.Context, limit int) ([]JobRecord, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) RecordJob(ctx context.Context, rec *JobRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `
		INSERT INTO runner_jobs (job_id, delivery_id, repository, unit_id, profile, state, reason, created_at, updated_at)
		VALUES (:job_id, :delivery_id, :repository, :unit_id, :profile, :state, :reason, :created_at, :updated_at)
		RETURNING id`

	rows, err := s.db.NamedQueryContext(ctx, query, rec)
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", rec.JobID, err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&rec.ID); err != nil {
			return fmt.Errorf("failed to read id of job record %s: %w", rec.JobID, err)
		}
	}
	return rows.Err()
}

func (s *postgresStore) UpdateJobState(ctx context.Context, jobID, unitID string, state core.UnitState, reason string) error {
	query := `
		UPDATE runner_jobs
		SET state = $1, unit_id = COALESCE(NULLIF($2, ''), unit_id), reason = $3, updated_at = $4
		WHERE id = (SELECT id FROM runner_jobs WHERE job_id = $5 ORDER BY created_at DESC, id DESC LIMIT 1)`

	if _, err := s.db.ExecContext(ctx, query, string(state), unitID, reason, time.Now().UTC(), jobID); err != nil {
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	return nil
}

func (s *postgresStore) UpdateUnitState(ctx context.Context, unitID string, state core.UnitState, reason string) error {
	query := `UPDATE runner_jobs SET state = $1, reason = $2, updated_at = $3 WHERE unit_id = $4`
	if _, err := s.db.ExecContext(ctx, query, string(state), reason, time.Now().UTC(), unitID); err != nil {
		return fmt.Errorf("failed to update unit %s: %w", unitID, err)
	}
	return nil
}

func (s *postgresStore) ListJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []JobRecord
	query := `
		SELECT id, job_id, delivery_id, repository, unit_id, profile, state, reason, created_at, updated_at
		FROM runner_jobs
		ORDER BY created_at DESC
		LIMIT $1`
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return records, nil
}

type noopStore struct{}

// NewNoopStore returns a Store that discards everything. It is used when no
// database is configured.
func NewNoopStore() Store { return noopStore{} }

func (noopStore) RecordJob(context.Context, *JobRecord) error { return nil }

func (noopStore) UpdateJobState(context.Context, string, string, core.UnitState, string) error {
	return nil
}

func (noopStore) UpdateUnitState(context.Context, string, core.UnitState, string) error { return nil }

func (noopStore) ListJobs(context.Context, int) ([]JobRecord, error) { return nil, nil }

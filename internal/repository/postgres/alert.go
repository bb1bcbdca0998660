package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mediminder/mediminder-api/internal/model"
	"github.com/mediminder/mediminder-api/internal/repository"
)

type alertRepository struct {
	db *sqlx.DB
}

func NewAlertRepository(db *sqlx.DB) repository.AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(ctx context.Context, alert *model.ScheduledAlert) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scheduled_alerts (id, dose_id, title, body, trigger_at, status, retry_count, last_error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		alert.ID, alert.DoseID, alert.Title, alert.Body, alert.TriggerAt,
		alert.Status, alert.RetryCount, alert.LastError, alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (r *alertRepository) Get(ctx context.Context, id uuid.UUID) (*model.ScheduledAlert, error) {
	var alert model.ScheduledAlert
	err := r.db.GetContext(ctx, &alert,
		`SELECT id, dose_id, title, body, trigger_at, status, retry_count, last_error, sent_at, created_at
		 FROM scheduled_alerts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return &alert, nil
}

func (r *alertRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}

func (r *alertRepository) DeleteAllPending(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_alerts WHERE status = $1`, model.AlertStatusPending)
	if err != nil {
		return fmt.Errorf("failed to delete pending alerts: %w", err)
	}
	return nil
}

// GetDueWithLock selects due pending alerts with FOR UPDATE SKIP LOCKED so
// multiple dispatcher instances never deliver the same alert twice.
func (r *alertRepository) GetDueWithLock(ctx context.Context, until time.Time, limit int) ([]*model.ScheduledAlert, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT id, dose_id, title, body, trigger_at, status, retry_count, last_error, sent_at, created_at
		 FROM scheduled_alerts
		 WHERE status = $1 AND trigger_at <= $2
		 ORDER BY trigger_at ASC
		 LIMIT $3
		 FOR UPDATE SKIP LOCKED`,
		model.AlertStatusPending, until, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query due alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*model.ScheduledAlert
	for rows.Next() {
		var alert model.ScheduledAlert
		if err := rows.StructScan(&alert); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, &alert)
	}
	return alerts, rows.Err()
}

func (r *alertRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_alerts SET status = $1, sent_at = $2 WHERE id = $3`,
		model.AlertStatusSent, sentAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark alert sent: %w", err)
	}
	return nil
}

func (r *alertRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_alerts
		 SET status = $1, retry_count = retry_count + 1, last_error = $2
		 WHERE id = $3`,
		model.AlertStatusFailed, reason, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark alert failed: %w", err)
	}
	return nil
}

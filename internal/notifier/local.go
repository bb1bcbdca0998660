package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediminder/mediminder-api/internal/model"
	"github.com/mediminder/mediminder-api/internal/repository"
)

// LocalPlatform implements Platform on top of the scheduled_alerts table.
// Alerts sit there until the dispatch worker delivers them; cancelling simply
// deletes the row before it fires.
type LocalPlatform struct {
	alerts repository.AlertRepository
	now    func() time.Time
}

func NewLocalPlatform(alerts repository.AlertRepository) *LocalPlatform {
	return &LocalPlatform{alerts: alerts, now: time.Now}
}

func (p *LocalPlatform) Schedule(ctx context.Context, req AlertRequest) (string, error) {
	alert := &model.ScheduledAlert{
		ID:        uuid.New(),
		DoseID:    req.Data["doseId"],
		Title:     req.Title,
		Body:      req.Body,
		TriggerAt: req.TriggerAt,
		Status:    model.AlertStatusPending,
		CreatedAt: p.now(),
	}
	if err := p.alerts.Create(ctx, alert); err != nil {
		return "", fmt.Errorf("failed to register alert: %w", err)
	}
	return alert.ID.String(), nil
}

func (p *LocalPlatform) Cancel(ctx context.Context, alertID string) error {
	id, err := uuid.Parse(alertID)
	if err != nil {
		return fmt.Errorf("invalid alert id %q: %w", alertID, err)
	}
	return p.alerts.Delete(ctx, id)
}

func (p *LocalPlatform) CancelAll(ctx context.Context) error {
	return p.alerts.DeleteAllPending(ctx)
}

package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mediminder/mediminder-api/internal/model"
	"github.com/mediminder/mediminder-api/internal/repository"
	"github.com/mediminder/mediminder-api/pkg/logger"
	"github.com/mediminder/mediminder-api/pkg/metrics"
)

// indexKey holds the persisted doseId -> []alertId mapping. The index exists
// only for cancellation and can be rebuilt by re-scheduling.
const indexKey = "doseNotifMap"

// AlertRequest describes one platform-level timed alert.
type AlertRequest struct {
	Title     string
	Body      string
	Data      map[string]string
	TriggerAt time.Time
}

// Platform is the local-notification collaborator: it registers timed alerts
// and returns opaque alert ids for later cancellation.
type Platform interface {
	Schedule(ctx context.Context, req AlertRequest) (string, error)
	Cancel(ctx context.Context, alertID string) error
	CancelAll(ctx context.Context) error
}

// Scheduler maps dose instances to platform alerts and maintains the
// dose→alert index.
type Scheduler struct {
	platform Platform
	kv       repository.KVStore
	metrics  *metrics.Metrics
	logger   *logger.Logger
	now      func() time.Time
}

func NewScheduler(platform Platform, kv repository.KVStore, m *metrics.Metrics, log *logger.Logger) *Scheduler {
	return &Scheduler{
		platform: platform,
		kv:       kv,
		metrics:  m,
		logger:   log.WithComponent("notifier"),
		now:      time.Now,
	}
}

// NewSchedulerAt builds a scheduler with a fixed clock for tests.
func NewSchedulerAt(platform Platform, kv repository.KVStore, m *metrics.Metrics, log *logger.Logger, now func() time.Time) *Scheduler {
	s := NewScheduler(platform, kv, m, log)
	s.now = now
	return s
}

// ScheduleDoseNotification registers one alert for the dose. Doses whose time
// has already passed are skipped and yield an empty id without error.
func (s *Scheduler) ScheduleDoseNotification(ctx context.Context, dose model.Dose, medName string) (string, error) {
	if !dose.When.After(s.now()) {
		s.metrics.AlertsSkipped.Inc()
		s.logger.Debug("skipping past dose", "dose_id", dose.DoseID, "when", dose.When.Format(time.RFC3339))
		return "", nil
	}

	alertID, err := s.platform.Schedule(ctx, AlertRequest{
		Title:     "Time to take your meds",
		Body:      fmt.Sprintf("%s — %s", medName, dose.When.Format("15:04")),
		Data:      map[string]string{"doseId": dose.DoseID},
		TriggerAt: dose.When,
	})
	if err != nil {
		return "", fmt.Errorf("failed to schedule alert for dose %s: %w", dose.DoseID, err)
	}

	s.link(ctx, dose.DoseID, alertID)
	s.metrics.AlertsScheduled.Inc()
	s.logger.Debug("scheduled alert", "dose_id", dose.DoseID, "alert_id", alertID)
	return alertID, nil
}

// ScheduleMany schedules doses in order. Individual failures are logged and
// skipped; partial success is the expected outcome on a flaky platform. The
// number of alerts actually registered is returned.
func (s *Scheduler) ScheduleMany(ctx context.Context, doses []model.Dose, medName string) int {
	scheduled := 0
	for _, d := range doses {
		alertID, err := s.ScheduleDoseNotification(ctx, d, medName)
		if err != nil {
			s.logger.Error(err, "alert scheduling failed, continuing", "dose_id", d.DoseID)
			continue
		}
		if alertID != "" {
			scheduled++
		}
	}
	return scheduled
}

// CancelForDose best-effort-cancels every alert linked to the dose, then
// drops the dose's index entry. A failure cancelling one alert does not block
// the rest.
func (s *Scheduler) CancelForDose(ctx context.Context, doseID string) error {
	index := s.getIndex(ctx)
	for _, alertID := range index[doseID] {
		if err := s.platform.Cancel(ctx, alertID); err != nil {
			s.logger.Warn("failed to cancel alert", "alert_id", alertID, "dose_id", doseID, "error", err.Error())
		}
	}
	delete(index, doseID)
	return s.setIndex(ctx, index)
}

// CancelAllScheduled cancels every pending alert and clears the index.
func (s *Scheduler) CancelAllScheduled(ctx context.Context) error {
	if err := s.platform.CancelAll(ctx); err != nil {
		return fmt.Errorf("failed to cancel scheduled alerts: %w", err)
	}
	return s.setIndex(ctx, map[string][]string{})
}

// AlertIDsForDose returns the alert ids currently linked to a dose.
func (s *Scheduler) AlertIDsForDose(ctx context.Context, doseID string) []string {
	return s.getIndex(ctx)[doseID]
}

func (s *Scheduler) link(ctx context.Context, doseID, alertID string) {
	index := s.getIndex(ctx)
	index[doseID] = append(index[doseID], alertID)
	if err := s.setIndex(ctx, index); err != nil {
		// The index is rebuildable; losing a link is logged, not fatal.
		s.logger.Warn("failed to persist alert index", "dose_id", doseID, "error", err.Error())
	}
}

func (s *Scheduler) getIndex(ctx context.Context) map[string][]string {
	raw, err := s.kv.Get(ctx, indexKey)
	if err != nil {
		if !errors.Is(err, repository.ErrKeyNotFound) {
			s.logger.Warn("failed to read alert index", "error", err.Error())
		}
		return map[string][]string{}
	}
	index := map[string][]string{}
	if err := json.Unmarshal([]byte(raw), &index); err != nil {
		s.logger.Warn("corrupt alert index, starting fresh", "error", err.Error())
		return map[string][]string{}
	}
	return index
}

func (s *Scheduler) setIndex(ctx context.Context, index map[string][]string) error {
	raw, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal alert index: %w", err)
	}
	if err := s.kv.Set(ctx, indexKey, string(raw)); err != nil {
		return fmt.Errorf("failed to persist alert index: %w", err)
	}
	return nil
}

package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/mediminder/mediminder-api/internal/model"
	"github.com/mediminder/mediminder-api/internal/notifier"
	"github.com/mediminder/mediminder-api/internal/schedule"
	"github.com/mediminder/mediminder-api/internal/store"
	"github.com/mediminder/mediminder-api/pkg/logger"
	"github.com/mediminder/mediminder-api/pkg/metrics"
)

// Service wires extraction-confirmed medications through generation,
// persistence and alert scheduling. Persistence always completes before
// scheduling starts: an alert failure never leaves an un-persisted dose, and
// a persistence failure stops the flow before any alert is registered.
type Service struct {
	store    *store.ScheduleStore
	expander *schedule.Expander
	notifier *notifier.Scheduler
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

// AddResult reports the combined outcome of an add flow. Alert scheduling is
// best-effort, so AlertsScheduled may be lower than DosesGenerated.
type AddResult struct {
	Medication      *model.Medication `json:"medication"`
	DosesGenerated  int               `json:"dosesGenerated"`
	AlertsScheduled int               `json:"alertsScheduled"`
}

func NewService(st *store.ScheduleStore, expander *schedule.Expander, nt *notifier.Scheduler, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		store:    st,
		expander: expander,
		notifier: nt,
		metrics:  m,
		logger:   log.WithComponent("reminder"),
	}
}

// AddMedicationWithPattern runs the pattern flow: upsert by name, expand the
// pattern over the horizon, merge the doses, then schedule alerts.
func (s *Service) AddMedicationWithPattern(ctx context.Context, name, pattern string, days int) (*AddResult, error) {
	med, err := s.store.UpsertMedication(ctx, name, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert medication: %w", err)
	}

	doses := s.expander.Expand(med, days)
	s.metrics.DosesGenerated.Add(float64(len(doses)))
	if err := s.store.AppendDoses(ctx, doses); err != nil {
		return nil, fmt.Errorf("failed to persist doses: %w", err)
	}
	s.metrics.DosesPersisted.Add(float64(len(doses)))

	scheduled := s.notifier.ScheduleMany(ctx, doses, med.Name)
	s.logger.Info("medication added",
		"med_id", med.MedID, "pattern", pattern,
		"doses", len(doses), "alerts", scheduled)

	return &AddResult{Medication: med, DosesGenerated: len(doses), AlertsScheduled: scheduled}, nil
}

// AddMedicationWithExplicitTimes runs the manual flow: one custom-slot dose
// for every (date, time) combination. Dates use YYYY-MM-DD, times HH:MM,
// interpreted in local time.
func (s *Service) AddMedicationWithExplicitTimes(ctx context.Context, name string, dates, times []string) (*AddResult, error) {
	var whens []time.Time
	for _, d := range dates {
		day, err := time.ParseInLocation("2006-01-02", d, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", d, err)
		}
		for _, t := range times {
			clock, err := time.Parse("15:04", t)
			if err != nil {
				return nil, fmt.Errorf("invalid time %q: %w", t, err)
			}
			whens = append(whens, time.Date(day.Year(), day.Month(), day.Day(),
				clock.Hour(), clock.Minute(), 0, 0, time.Local))
		}
	}

	med, err := s.store.UpsertMedication(ctx, name, model.PatternCustom)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert medication: %w", err)
	}

	doses := make([]model.Dose, 0, len(whens))
	for _, when := range whens {
		doses = append(doses, model.Dose{
			DoseID: schedule.CustomDoseID(med.MedID, when),
			MedID:  med.MedID,
			When:   when,
			Slot:   model.SlotCustom,
			Status: model.DoseStatusScheduled,
		})
	}

	s.metrics.DosesGenerated.Add(float64(len(doses)))
	if err := s.store.AppendDoses(ctx, doses); err != nil {
		return nil, fmt.Errorf("failed to persist doses: %w", err)
	}
	s.metrics.DosesPersisted.Add(float64(len(doses)))

	scheduled := s.notifier.ScheduleMany(ctx, doses, med.Name)
	s.logger.Info("custom medication added",
		"med_id", med.MedID, "doses", len(doses), "alerts", scheduled)

	return &AddResult{Medication: med, DosesGenerated: len(doses), AlertsScheduled: scheduled}, nil
}

// MarkDose records a taken/missed outcome and cancels any outstanding alerts
// for the dose. Returns nil without error for an unknown dose id.
func (s *Service) MarkDose(ctx context.Context, doseID string, status model.DoseStatus) (*model.Dose, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("invalid dose status %q", status)
	}

	dose, err := s.store.UpdateDoseStatus(ctx, doseID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update dose status: %w", err)
	}
	if dose == nil {
		return nil, nil
	}
	s.metrics.DoseStatusSet.WithLabelValues(string(status)).Inc()

	if err := s.notifier.CancelForDose(ctx, doseID); err != nil {
		// The dose state is already recorded; a stale alert firing later is
		// tolerable.
		s.logger.Warn("failed to cancel alerts for logged dose", "dose_id", doseID, "error", err.Error())
	}
	return dose, nil
}

// Medications returns all confirmed medications.
func (s *Service) Medications(ctx context.Context) []model.Medication {
	return s.store.GetMeds(ctx)
}

// Doses returns doses, optionally filtered by medication and time window.
func (s *Service) Doses(ctx context.Context, medID string, from, to *time.Time) []model.Dose {
	all := s.store.GetDoses(ctx)
	var out []model.Dose
	for _, d := range all {
		if medID != "" && d.MedID != medID {
			continue
		}
		if from != nil && d.When.Before(*from) {
			continue
		}
		if to != nil && !d.When.Before(*to) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Reset clears all persisted schedule state and cancels every pending alert.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.ResetAll(ctx); err != nil {
		return err
	}
	return s.notifier.CancelAllScheduled(ctx)
}

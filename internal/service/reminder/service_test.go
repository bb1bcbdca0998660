package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediminder/mediminder-api/internal/model"
	"github.com/mediminder/mediminder-api/internal/notifier"
	"github.com/mediminder/mediminder-api/internal/repository/memory"
	"github.com/mediminder/mediminder-api/internal/schedule"
	"github.com/mediminder/mediminder-api/internal/store"
	"github.com/mediminder/mediminder-api/pkg/logger"
	"github.com/mediminder/mediminder-api/pkg/metrics"
)

// Registered once; promauto panics on duplicate registration.
var testMetrics = metrics.NewMetrics("mediminder_test", "reminder")

type fakePlatform struct {
	scheduled    []notifier.AlertRequest
	cancelled    []string
	cancelledAll bool
	scheduleErr  error
	nextID       int
}

func (f *fakePlatform) Schedule(_ context.Context, req notifier.AlertRequest) (string, error) {
	if f.scheduleErr != nil {
		return "", f.scheduleErr
	}
	f.nextID++
	f.scheduled = append(f.scheduled, req)
	return fmt.Sprintf("alert-%d", f.nextID), nil
}

func (f *fakePlatform) Cancel(_ context.Context, alertID string) error {
	f.cancelled = append(f.cancelled, alertID)
	return nil
}

func (f *fakePlatform) CancelAll(_ context.Context) error {
	f.cancelledAll = true
	return nil
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

// Mid-day anchor so morning doses on day one are already past.
var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)

func newTestService(platform notifier.Platform) *Service {
	kv := memory.NewKVStore()
	log := testLogger()
	clock := func() time.Time { return testNow }
	return NewService(
		store.NewScheduleStoreAt(kv, log, clock),
		schedule.NewExpanderAt(clock),
		notifier.NewSchedulerAt(platform, kv, testMetrics, log, clock),
		testMetrics,
		log,
	)
}

func TestAddMedicationWithPattern(t *testing.T) {
	platform := &fakePlatform{}
	s := newTestService(platform)
	ctx := context.Background()

	result, err := s.AddMedicationWithPattern(ctx, "Paracetamol", "1-0-1", 2)
	require.NoError(t, err)

	assert.Equal(t, "Paracetamol", result.Medication.Name)
	assert.Equal(t, 4, result.DosesGenerated)
	// Day one's 07:30 dose is in the past; only 3 alerts fire.
	assert.Equal(t, 3, result.AlertsScheduled)
	assert.Len(t, platform.scheduled, 3)

	assert.Len(t, s.Medications(ctx), 1)
	assert.Len(t, s.Doses(ctx, "", nil, nil), 4)
}

func TestAddMedicationPersistsBeforeScheduling(t *testing.T) {
	platform := &fakePlatform{scheduleErr: errors.New("platform down")}
	s := newTestService(platform)
	ctx := context.Background()

	result, err := s.AddMedicationWithPattern(ctx, "Paracetamol", "1-0-1", 1)
	require.NoError(t, err)

	// Doses survive even though every alert failed.
	assert.Equal(t, 2, result.DosesGenerated)
	assert.Zero(t, result.AlertsScheduled)
	assert.Len(t, s.Doses(ctx, "", nil, nil), 2)
}

func TestAddMedicationWithExplicitTimes(t *testing.T) {
	platform := &fakePlatform{}
	s := newTestService(platform)
	ctx := context.Background()

	result, err := s.AddMedicationWithExplicitTimes(ctx, "Insulin",
		[]string{"2025-03-11", "2025-03-12"}, []string{"08:00", "20:00"})
	require.NoError(t, err)

	assert.Equal(t, model.PatternCustom, result.Medication.Pattern)
	assert.Equal(t, 4, result.DosesGenerated)
	assert.Equal(t, 4, result.AlertsScheduled)

	doses := s.Doses(ctx, result.Medication.MedID, nil, nil)
	require.Len(t, doses, 4)
	for _, d := range doses {
		assert.Equal(t, model.SlotCustom, d.Slot)
		assert.Contains(t, d.DoseID, result.Medication.MedID)
	}
}

func TestAddMedicationWithExplicitTimesRejectsBadInput(t *testing.T) {
	s := newTestService(&fakePlatform{})
	ctx := context.Background()

	_, err := s.AddMedicationWithExplicitTimes(ctx, "Insulin", []string{"11/03/2025"}, []string{"08:00"})
	assert.Error(t, err)

	_, err = s.AddMedicationWithExplicitTimes(ctx, "Insulin", []string{"2025-03-11"}, []string{"8pm"})
	assert.Error(t, err)
}

func TestMarkDoseCancelsAlerts(t *testing.T) {
	platform := &fakePlatform{}
	s := newTestService(platform)
	ctx := context.Background()

	result, err := s.AddMedicationWithExplicitTimes(ctx, "Insulin",
		[]string{"2025-03-11"}, []string{"08:00"})
	require.NoError(t, err)

	doses := s.Doses(ctx, result.Medication.MedID, nil, nil)
	require.Len(t, doses, 1)

	marked, err := s.MarkDose(ctx, doses[0].DoseID, model.DoseStatusTaken)
	require.NoError(t, err)
	require.NotNil(t, marked)
	assert.Equal(t, model.DoseStatusTaken, marked.Status)
	assert.Equal(t, []string{"alert-1"}, platform.cancelled)
}

func TestMarkDoseUnknownID(t *testing.T) {
	s := newTestService(&fakePlatform{})

	marked, err := s.MarkDose(context.Background(), "no-such-dose", model.DoseStatusMissed)
	assert.NoError(t, err)
	assert.Nil(t, marked)
}

func TestMarkDoseRejectsNonTerminalStatus(t *testing.T) {
	s := newTestService(&fakePlatform{})

	_, err := s.MarkDose(context.Background(), "d1", model.DoseStatusScheduled)
	assert.Error(t, err)
}

func TestDosesFiltering(t *testing.T) {
	s := newTestService(&fakePlatform{})
	ctx := context.Background()

	_, err := s.AddMedicationWithExplicitTimes(ctx, "Insulin",
		[]string{"2025-03-11", "2025-03-12"}, []string{"08:00"})
	require.NoError(t, err)

	from := time.Date(2025, 3, 12, 0, 0, 0, 0, time.Local)
	filtered := s.Doses(ctx, "", &from, nil)
	require.Len(t, filtered, 1)
	assert.Equal(t, 12, filtered[0].When.Day())

	to := from
	filtered = s.Doses(ctx, "", nil, &to)
	require.Len(t, filtered, 1)
	assert.Equal(t, 11, filtered[0].When.Day())
}

func TestReset(t *testing.T) {
	platform := &fakePlatform{}
	s := newTestService(platform)
	ctx := context.Background()

	_, err := s.AddMedicationWithPattern(ctx, "Paracetamol", "1-0-1", 1)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))
	assert.True(t, platform.cancelledAll)
	assert.Empty(t, s.Medications(ctx))
	assert.Empty(t, s.Doses(ctx, "", nil, nil))
}

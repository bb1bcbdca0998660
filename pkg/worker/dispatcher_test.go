package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediminder/mediminder-api/internal/model"
	"github.com/mediminder/mediminder-api/pkg/logger"
	"github.com/mediminder/mediminder-api/pkg/metrics"
)

// Registered once; promauto panics on duplicate registration.
var testMetrics = metrics.NewMetrics("mediminder_test", "dispatcher")

type fakeAlertRepo struct {
	due    []*model.ScheduledAlert
	sent   []uuid.UUID
	failed map[uuid.UUID]string
	dueErr error
}

func (f *fakeAlertRepo) Create(context.Context, *model.ScheduledAlert) error { return nil }
func (f *fakeAlertRepo) Get(context.Context, uuid.UUID) (*model.ScheduledAlert, error) {
	return nil, nil
}
func (f *fakeAlertRepo) Delete(context.Context, uuid.UUID) error { return nil }
func (f *fakeAlertRepo) DeleteAllPending(context.Context) error  { return nil }

func (f *fakeAlertRepo) GetDueWithLock(context.Context, time.Time, int) ([]*model.ScheduledAlert, error) {
	return f.due, f.dueErr
}

func (f *fakeAlertRepo) MarkSent(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeAlertRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	if f.failed == nil {
		f.failed = map[uuid.UUID]string{}
	}
	f.failed[id] = reason
	return nil
}

type fakeBroker struct {
	published map[string][][]byte
	err       error
	calls     int
}

func (f *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.published == nil {
		f.published = map[string][][]byte{}
	}
	f.published[channel] = append(f.published[channel], message.([]byte))
	return nil
}

func (f *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }
func (f *fakeBroker) Close() error                                             { return nil }

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func testConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}
}

func testAlert() *model.ScheduledAlert {
	return &model.ScheduledAlert{
		ID:        uuid.New(),
		DoseID:    "med-1-2025-03-10-morning-1",
		Title:     "Time to take your meds",
		Body:      "Paracetamol",
		TriggerAt: time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC),
		Status:    model.AlertStatusPending,
	}
}

func TestDispatchPublishesAndMarksSent(t *testing.T) {
	alert := testAlert()
	repo := &fakeAlertRepo{due: []*model.ScheduledAlert{alert}}
	broker := &fakeBroker{}
	d := NewDispatcher(repo, broker, nil, testConfig(), testLogger(), testMetrics)

	require.NoError(t, d.dispatchDue(context.Background()))

	require.Len(t, broker.published[NotificationChannel], 1)
	var n notification
	require.NoError(t, json.Unmarshal(broker.published[NotificationChannel][0], &n))
	assert.Equal(t, alert.ID.String(), n.AlertID)
	assert.Equal(t, alert.DoseID, n.DoseID)

	assert.Equal(t, []uuid.UUID{alert.ID}, repo.sent)
	assert.Empty(t, repo.failed)
}

func TestDispatchRetriesThenMarksFailed(t *testing.T) {
	alert := testAlert()
	repo := &fakeAlertRepo{due: []*model.ScheduledAlert{alert}}
	broker := &fakeBroker{err: errors.New("broker down")}
	d := NewDispatcher(repo, broker, nil, testConfig(), testLogger(), testMetrics)

	require.NoError(t, d.dispatchDue(context.Background()))

	assert.Equal(t, 2, broker.calls)
	assert.Empty(t, repo.sent)
	assert.Contains(t, repo.failed[alert.ID], "broker down")
}

func TestDispatchContinuesPastFailures(t *testing.T) {
	bad := testAlert()
	good := testAlert()
	repo := &fakeAlertRepo{due: []*model.ScheduledAlert{bad, good}}

	// Fail only the first publish attempt pair by toggling the error off
	// after the first alert exhausts its retries.
	broker := &fakeBroker{err: errors.New("broker down")}
	d := NewDispatcher(repo, broker, nil, testConfig(), testLogger(), testMetrics)
	d.policy.Retryable = func(error) bool { return false }

	// First pass: both fail fast.
	require.NoError(t, d.dispatchDue(context.Background()))
	assert.Len(t, repo.failed, 2)

	// Broker recovers; the next poll delivers.
	broker.err = nil
	require.NoError(t, d.dispatchDue(context.Background()))
	assert.Len(t, repo.sent, 2)
}

func TestDispatchDuePropagatesRepoError(t *testing.T) {
	repo := &fakeAlertRepo{dueErr: errors.New("db down")}
	d := NewDispatcher(repo, &fakeBroker{}, nil, testConfig(), testLogger(), testMetrics)

	assert.Error(t, d.dispatchDue(context.Background()))
}

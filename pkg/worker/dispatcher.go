package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mediminder/mediminder-api/internal/email"
	"github.com/mediminder/mediminder-api/internal/model"
	"github.com/mediminder/mediminder-api/internal/repository"
	"github.com/mediminder/mediminder-api/pkg/logger"
	"github.com/mediminder/mediminder-api/pkg/messaging"
	"github.com/mediminder/mediminder-api/pkg/metrics"
	"github.com/mediminder/mediminder-api/pkg/retry"
)

// NotificationChannel is where dispatched alerts are published for connected
// clients to pick up.
const NotificationChannel = "notifications.dose"

type DispatcherConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// notification is the wire form published on the broker channel.
type notification struct {
	AlertID   string    `json:"alertId"`
	DoseID    string    `json:"doseId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	TriggerAt time.Time `json:"triggerAt"`
}

// Dispatcher drains due alerts from the repository and delivers them: always
// to the broker channel, and to caregiver email when that channel is
// configured. Rows are locked while in flight so multiple dispatchers can run
// side by side.
type Dispatcher struct {
	repo    repository.AlertRepository
	broker  messaging.Broker
	mailer  *email.Service
	config  DispatcherConfig
	policy  retry.Policy
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewDispatcher(
	repo repository.AlertRepository,
	broker messaging.Broker,
	mailer *email.Service,
	config DispatcherConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Dispatcher {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &Dispatcher{
		repo:   repo,
		broker: broker,
		mailer: mailer,
		config: config,
		policy: retry.Policy{
			MaxAttempts: config.RetryAttempts,
			Backoff:     config.RetryDelay,
		},
		logger:  logger.WithComponent("dispatcher"),
		metrics: metrics,
		now:     time.Now,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	d.logger.Info("starting alert dispatcher", "poll_interval", d.config.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down alert dispatcher")
			return
		case <-ticker.C:
			if err := d.dispatchDue(ctx); err != nil {
				d.logger.Error(err, "failed to dispatch due alerts")
			}
		}
	}
}

func (d *Dispatcher) dispatchDue(ctx context.Context) error {
	timer := prometheus.NewTimer(d.metrics.DispatchLatency)
	defer timer.ObserveDuration()

	alerts, err := d.repo.GetDueWithLock(ctx, d.now(), d.config.BatchSize)
	if err != nil {
		d.metrics.StoreOperations.WithLabelValues("get_due_alerts", "error").Inc()
		return fmt.Errorf("failed to get due alerts: %w", err)
	}
	d.metrics.StoreOperations.WithLabelValues("get_due_alerts", "success").Inc()

	for _, alert := range alerts {
		if err := d.dispatch(ctx, alert); err != nil {
			d.logger.Error(err, "failed to dispatch alert",
				"alert_id", alert.ID.String(), "dose_id", alert.DoseID)
			continue
		}
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, alert *model.ScheduledAlert) error {
	payload, err := json.Marshal(notification{
		AlertID:   alert.ID.String(),
		DoseID:    alert.DoseID,
		Title:     alert.Title,
		Body:      alert.Body,
		TriggerAt: alert.TriggerAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	err = d.policy.Do(ctx, func() error {
		return d.broker.Publish(ctx, NotificationChannel, payload)
	})
	if err != nil {
		d.metrics.AlertsFailed.Inc()
		if markErr := d.repo.MarkFailed(ctx, alert.ID, err.Error()); markErr != nil {
			d.logger.Error(markErr, "failed to mark alert failed", "alert_id", alert.ID.String())
		}
		return err
	}

	// Email is a secondary channel; a failure there does not fail the alert.
	if d.mailer != nil && d.mailer.Enabled() {
		if mailErr := d.mailer.SendDoseReminder(alert.Title, alert.Body); mailErr != nil {
			d.logger.Warn("failed to send reminder email",
				"alert_id", alert.ID.String(), "error", mailErr.Error())
		}
	}

	if err := d.repo.MarkSent(ctx, alert.ID, d.now()); err != nil {
		d.logger.Error(err, "failed to mark alert sent", "alert_id", alert.ID.String())
	}
	d.metrics.AlertsSent.Inc()
	d.logger.Debug("alert dispatched", "alert_id", alert.ID.String(), "dose_id", alert.DoseID)
	return nil
}

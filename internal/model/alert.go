package model

import (
	"time"

	"github.com/google/uuid"
)

type AlertStatus string

const (
	AlertStatusPending AlertStatus = "pending"
	AlertStatusSent    AlertStatus = "sent"
	AlertStatusFailed  AlertStatus = "failed"
)

// ScheduledAlert is one platform-level timed alert backing a dose reminder.
// The dispatcher delivers it when TriggerAt passes. DoseID travels as opaque
// payload so a client tapping the alert can correlate it back to the dose.
type ScheduledAlert struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	DoseID     string      `json:"dose_id" db:"dose_id"`
	Title      string      `json:"title" db:"title"`
	Body       string      `json:"body" db:"body"`
	TriggerAt  time.Time   `json:"trigger_at" db:"trigger_at"`
	Status     AlertStatus `json:"status" db:"status"`
	RetryCount int         `json:"retry_count" db:"retry_count"`
	LastError  string      `json:"last_error" db:"last_error"`
	SentAt     *time.Time  `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

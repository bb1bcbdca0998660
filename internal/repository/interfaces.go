package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mediminder/mediminder-api/internal/model"
)

// ErrKeyNotFound is returned by KVStore.Get for absent keys.
var ErrKeyNotFound = errors.New("key not found")

type (
	// KVStore is the persistent key-value collaborator: string keys, string
	// values holding JSON-serialized collections.
	KVStore interface {
		Get(ctx context.Context, key string) (string, error)
		Set(ctx context.Context, key, value string) error
		MultiRemove(ctx context.Context, keys ...string) error
	}

	// AlertRepository persists platform-level scheduled alerts for the
	// dispatch worker to drain.
	AlertRepository interface {
		Create(ctx context.Context, alert *model.ScheduledAlert) error
		Get(ctx context.Context, id uuid.UUID) (*model.ScheduledAlert, error)
		Delete(ctx context.Context, id uuid.UUID) error
		DeleteAllPending(ctx context.Context) error
		GetDueWithLock(ctx context.Context, until time.Time, limit int) ([]*model.ScheduledAlert, error)
		MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	}
)

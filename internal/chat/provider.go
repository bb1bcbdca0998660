package chat

import (
	"context"
	"errors"
)

// ErrQuota marks a provider whose quota or billing limit is exhausted. The
// caller is expected to fail over rather than retry.
var ErrQuota = errors.New("chat provider quota exhausted")

// ErrEmptyReply marks a completed call that produced no usable answer.
var ErrEmptyReply = errors.New("chat provider returned an empty reply")

// Provider answers one free-form medication question within a token budget.
type Provider interface {
	Name() string
	Ask(ctx context.Context, question string, maxTokens int) (string, error)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInput marks errors caused by the caller's data rather than the backend.
var ErrInvalidInput = errors.New("invalid input")

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// EventPublisher announces ledger changes to other processes.
type EventPublisher interface {
	PublishLedgerChanged(ctx context.Context, userID, month, kind string) error
}

// Invalidator drops any derived state cached for a user.
type Invalidator interface {
	Invalidate(userID string)
}

// timeNow is replaced in tests that pin the calendar.
var timeNow = time.Now

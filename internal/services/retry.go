package services

import (
	"context"
	"errors"
	"time"

	"imposter-game-backend/internal/apperr"
	"imposter-game-backend/internal/logging"
	"imposter-game-backend/internal/store"

	"github.com/cenkalti/backoff/v5"
)

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	return b
}

// retry runs op until it succeeds, fails with a non-retryable error, or the
// try budget runs out. Errors without a kind come back as StoreUnavailable.
func (s *SessionService) retry(ctx context.Context, op func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err != nil && !apperr.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxTries(s.settings.StoreRetries),
		backoff.WithNotify(func(err error, next time.Duration) {
			if s.metrics != nil {
				s.metrics.StoreRetries.Inc()
			}
			s.logger.LogEvent(logging.LevelWarn, "SessionService", "retrying store operation", map[string]any{
				"error": err.Error(),
				"after": next.String(),
			})
		}),
	)
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return apperr.Wrap(apperr.StoreUnavailable, "store operation", err)
	}
	return err
}

// mutate runs fn as one store unit under the session's exclusion and the
// operation timeout. fn may run more than once and must not leak state
// between attempts. onCommit hooks run after a successful commit while the
// exclusion is still held; timer starts and stops go there.
func (s *SessionService) mutate(ctx context.Context, sessionID string, fn func(tx store.Tx) error, onCommit ...func()) error {
	ctx, cancel := context.WithTimeout(ctx, s.settings.StoreTimeout)
	defer cancel()

	unlock, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.retry(ctx, func() error {
		return s.store.Update(ctx, sessionID, fn)
	})
	if err != nil {
		return err
	}
	for _, hook := range onCommit {
		hook()
	}
	return nil
}

// read returns a snapshot under the operation timeout without taking the
// session lock.
func (s *SessionService) read(ctx context.Context, sessionID string) (*store.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.StoreTimeout)
	defer cancel()

	var snap *store.Snapshot
	err := s.retry(ctx, func() error {
		var err error
		snap, err = s.store.Snapshot(ctx, sessionID)
		return err
	})
	return snap, err
}

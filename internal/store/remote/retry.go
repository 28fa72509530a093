package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/recallhq/recall/internal/store"
	"github.com/sethvargo/go-retry"
)

const (
	// maxAttempts bounds retries of idempotent operations: one initial
	// attempt plus two retries.
	maxAttempts = 3

	retryBaseDelay = 100 * time.Millisecond
)

// IsTransient reports whether err looks like a temporary network or server
// condition worth retrying for idempotent operations.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.SQLState()
		switch {
		case strings.HasPrefix(code, "08"): // connection exception
			return true
		case strings.HasPrefix(code, "53"): // insufficient resources
			return true
		case code == "40001" || code == "40P01": // serialization failure, deadlock
			return true
		case code == "57P03": // cannot connect now
			return true
		}
	}

	return errors.Is(err, store.ErrTransient)
}

// withRetry runs fn with bounded exponential backoff, retrying only
// transient failures. It must wrap idempotent operations only: create and
// update are never routed through here because a duplicate send could have
// side effects. After the final attempt the error is surfaced as
// store.ErrTransient (or store.ErrTimeout on context expiry).
func withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(maxAttempts-1, retry.NewExponential(retryBaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, store.ErrTimeout)
	}
	if IsTransient(err) {
		return fmt.Errorf("%s: %v: %w", op, err, store.ErrTransient)
	}
	return err
}

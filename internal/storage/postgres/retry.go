package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// retryPolicy bounds how long the store waits for a server that is still
// starting. attempts counts the first try.
type retryPolicy struct {
	attempts int
	delay    time.Duration
}

var schemaRetry = retryPolicy{attempts: 4, delay: 200 * time.Millisecond}

// do runs fn until it succeeds, the server rejects the statement, or the
// attempts are spent. The delay doubles after every failure.
func (p retryPolicy) do(ctx context.Context, fn func(context.Context) error) error {
	delay := p.delay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || !transient(err) || attempt >= p.attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// transient reports whether err came from reaching the server rather than
// from the server refusing a statement.
func transient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

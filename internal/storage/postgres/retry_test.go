package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestRetryUntilServerAnswers(t *testing.T) {
	calls := 0
	policy := retryPolicy{attempts: 4, delay: time.Millisecond}
	err := policy.do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	want := errors.New("still down")
	calls := 0
	policy := retryPolicy{attempts: 3, delay: time.Millisecond}
	err := policy.do(context.Background(), func(context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetrySkipsServerErrors(t *testing.T) {
	calls := 0
	policy := retryPolicy{attempts: 5, delay: time.Millisecond}
	err := policy.do(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("create schema: %w", &pgconn.PgError{Code: "42601", Message: "syntax error"})
	})
	if err == nil || calls != 1 {
		t.Fatalf("server error should not be retried: calls=%d err=%v", calls, err)
	}
}

func TestRetryHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := retryPolicy{attempts: 5, delay: time.Hour}
	err := policy.do(ctx, func(context.Context) error {
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), "", ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

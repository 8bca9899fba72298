package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 2}, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 2}, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetrySkipsNonRetryable(t *testing.T) {
	transient := errors.New("transient")
	fatal := errors.New("fatal")
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, Retryable: []error{transient}}, func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) || calls != 1 {
		t.Errorf("err = %v after %d calls, want fatal after 1", err, calls)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, RetryConfig{MaxAttempts: 3, InitialDelay: time.Hour}, func() error {
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCalculateBackoff(t *testing.T) {
	if got := CalculateBackoff(0, 50*time.Millisecond, time.Second, 2); got != 50*time.Millisecond {
		t.Errorf("attempt 0 = %v", got)
	}
	if got := CalculateBackoff(2, 50*time.Millisecond, time.Second, 2); got != 200*time.Millisecond {
		t.Errorf("attempt 2 = %v", got)
	}
	if got := CalculateBackoff(10, 50*time.Millisecond, time.Second, 2); got != time.Second {
		t.Errorf("attempt 10 = %v, want cap", got)
	}
}

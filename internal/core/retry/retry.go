// Package retry runs a call under a bounded exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/googleapi"

	"github.com/joseph-ayodele/pbb-arrears-tracker/constants"
)

// retryableStatuses are matched as substrings of the error message.
var retryableStatuses = []string{"429", "500", "503"}

// Policy parameterizes Do. Zero fields take the defaults of DefaultPolicy.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	Retryable    func(error) bool

	// Timer drives the waits; nil uses a real timer.
	Timer backoff.Timer
	// OnRetry is called before each wait with the 1-based attempt that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy is 3 attempts, 2s initial delay doubling each time, no jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  constants.DefaultMaxAttempts,
		InitialDelay: constants.DefaultInitialBackoff,
		Multiplier:   constants.DefaultBackoffFactor,
		Retryable:    IsRetryableStatus,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = d.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.Retryable == nil {
		p.Retryable = d.Retryable
	}
	return p
}

// IsRetryableStatus reports whether err looks like a 429, 500 or 503 from the model endpoint.
func IsRetryableStatus(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 429, 500, 503:
			return true
		}
	}
	msg := err.Error()
	for _, s := range retryableStatuses {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the attempt
// budget is spent. Waits are sequential and abort when ctx is done.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialDelay
	exp.Multiplier = p.Multiplier
	exp.RandomizationFactor = 0
	exp.MaxInterval = time.Duration(1<<62 - 1)
	exp.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)), ctx)

	var (
		result  T
		attempt int
	)
	op := func() error {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			result = v
			return nil
		}
		if !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, d time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, d)
		}
	}

	if err := backoff.RetryNotifyWithTimer(op, b, notify, p.Timer); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

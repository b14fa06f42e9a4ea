package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/jonwraymond/assetmigrate/failure"
)

// BackoffStrategy defines how delays increase between retries.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay by BackoffFactor each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear increases delay linearly.
	BackoffLinear
	// BackoffConstant uses the same delay for all retries.
	BackoffConstant
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 100ms when both InitialDelay and MaxDelay are zero; a zero
	// InitialDelay with an explicit MaxDelay retries without waiting.
	InitialDelay time.Duration

	// MaxDelay caps the maximum delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// BackoffFactor is the multiplier for exponential backoff.
	// Default: 2.0
	BackoffFactor float64

	// Strategy is the backoff strategy.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter adds up to 25% randomness to delays.
	// Default: false
	Jitter bool

	// RetryCondition determines if an error should trigger a retry.
	// Takes precedence over RetryableErrors.
	RetryCondition func(err error) bool

	// RetryableErrors lists substrings or regular expressions matched
	// against the error message. Used when RetryCondition is nil.
	// When both are empty every error is retryable.
	RetryableErrors []string

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry implements retry with backoff.
//
// Errors whose failure kind is fail-fast (validation, capacity exceeded,
// circuit open) and context errors are never retried.
type Retry struct {
	config   RetryConfig
	patterns []*regexp.Regexp
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	// Apply defaults
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay < 0 {
		config.InitialDelay = 0
	}
	if config.InitialDelay == 0 && config.MaxDelay == 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = 2.0
	}

	r := &Retry{config: config}
	for _, p := range config.RetryableErrors {
		// Entries that are not valid patterns still match as substrings.
		if re, err := regexp.Compile(p); err == nil {
			r.patterns = append(r.patterns, re)
		}
	}
	return r
}

// Execute runs the operation with retry logic.
//
// On exhaustion it returns a *RetryError carrying every attempt's error.
// Non-retryable errors are returned unchanged after the attempt that produced them.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var errs []error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		if !r.shouldRetry(err) {
			return err
		}
		errs = append(errs, err)

		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.calculateDelay(attempt)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return &RetryError{Attempts: len(errs), Errors: errs}
}

// ShouldRetry reports whether err would be retried by this policy.
func (r *Retry) ShouldRetry(err error) bool {
	return r.shouldRetry(err)
}

func (r *Retry) shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if failure.KindOf(err).FailFast() {
		return false
	}
	if r.config.RetryCondition != nil {
		return r.config.RetryCondition(err)
	}
	if len(r.config.RetryableErrors) == 0 {
		return true
	}

	msg := err.Error()
	for _, s := range r.config.RetryableErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	for _, re := range r.patterns {
		if re.MatchString(msg) {
			return true
		}
	}
	return false
}

// Delay returns the wait before retry number attempt (1-indexed).
func (r *Retry) Delay(attempt int) time.Duration {
	return r.calculateDelay(attempt)
}

func (r *Retry) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.Strategy {
	case BackoffConstant:
		delay = r.config.InitialDelay

	case BackoffLinear:
		delay = r.config.InitialDelay * time.Duration(attempt)

	case BackoffExponential:
		multiplier := math.Pow(r.config.BackoffFactor, float64(attempt-1))
		delay = time.Duration(float64(r.config.InitialDelay) * multiplier)
	}

	if r.config.Jitter && delay >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		jitter := time.Duration(rand.Int64N(int64(delay / 4)))
		delay = delay + jitter
	}

	// MaxDelay bounds the jittered value too.
	if delay > r.config.MaxDelay || delay < 0 {
		delay = r.config.MaxDelay
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

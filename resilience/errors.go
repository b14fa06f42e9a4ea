package resilience

import (
	"fmt"
	"strings"

	"github.com/jonwraymond/assetmigrate/failure"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = failure.New(failure.KindCircuitOpen, "resilience", "circuit breaker is open")

	// ErrMaxRetriesExceeded is matched by RetryError when retry attempts are exhausted.
	ErrMaxRetriesExceeded = failure.New(failure.KindInternal, "resilience", "max retries exceeded")

	// ErrRateLimitExceeded is returned when the rate limit is exceeded.
	ErrRateLimitExceeded = failure.New(failure.KindCapacityExceeded, "resilience", "rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead and its queue are at capacity.
	ErrBulkheadFull = failure.New(failure.KindCapacityExceeded, "resilience", "bulkhead at capacity")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = failure.New(failure.KindTimeout, "resilience", "operation timed out")
)

// RetryError is returned when every retry attempt failed.
// It unwraps to the last error, so the failure kind of the final attempt is preserved.
type RetryError struct {
	// Attempts is the number of invocations made.
	Attempts int

	// Errors holds the error of every attempt, oldest first.
	Errors []error
}

// Error returns the error message.
func (e *RetryError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("resilience: max retries exceeded after %d attempts: [%s]",
		e.Attempts, strings.Join(msgs, "; "))
}

// Unwrap returns the last attempt's error.
func (e *RetryError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// Is reports whether target is ErrMaxRetriesExceeded.
func (e *RetryError) Is(target error) bool {
	return target == ErrMaxRetriesExceeded
}

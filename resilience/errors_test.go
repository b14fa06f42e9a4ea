package resilience

import (
	"errors"
	"testing"

	"github.com/jonwraymond/assetmigrate/failure"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind failure.Kind
	}{
		{"ErrCircuitOpen", ErrCircuitOpen, failure.KindCircuitOpen},
		{"ErrMaxRetriesExceeded", ErrMaxRetriesExceeded, failure.KindInternal},
		{"ErrRateLimitExceeded", ErrRateLimitExceeded, failure.KindCapacityExceeded},
		{"ErrBulkheadFull", ErrBulkheadFull, failure.KindCapacityExceeded},
		{"ErrTimeout", ErrTimeout, failure.KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() == "" {
				t.Errorf("%s has empty message", tt.name)
			}
			if got := failure.KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf(%s) = %v, want %v", tt.name, got, tt.kind)
			}
		})
	}
}

func TestRetryError(t *testing.T) {
	first := errors.New("first")
	last := failure.New(failure.KindTransient, "http", "502")
	err := &RetryError{Attempts: 2, Errors: []error{first, last}}

	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Error("errors.Is(err, ErrMaxRetriesExceeded) = false")
	}
	if !errors.Is(err, last) {
		t.Error("RetryError should unwrap to the last error")
	}
	if got := failure.KindOf(err); got != failure.KindTransient {
		t.Errorf("KindOf() = %v, want transient", got)
	}
	if err.Error() == "" {
		t.Error("empty message")
	}
}

package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jonwraymond/assetmigrate/failure"
)

// Option limits.
const (
	MinConcurrentJobs = 1
	MaxConcurrentJobs = 100
	MaxRetryCount     = 10

	// DefaultTarget is the resilience target conversions run under.
	DefaultTarget = "converter"
)

// Options is the per-batch processing configuration. Decode requests onto
// DefaultOptions so omitted fields keep their defaults.
type Options struct {
	MaxConcurrentJobs    int      `json:"maxConcurrentJobs" toml:"max_concurrent_jobs"`
	AbortOnFailure       bool     `json:"abortOnFailure" toml:"abort_on_failure"`
	TimeoutSeconds       int      `json:"timeoutSeconds" toml:"timeout_seconds"`
	RetryCount           int      `json:"retryCount" toml:"retry_count"`
	RetryDelayMs         int      `json:"retryDelayMs" toml:"retry_delay_ms"`
	FilterByContentType  []string `json:"filterByContentType,omitempty" toml:"filter_by_content_type"`
	FilterByFileName     []string `json:"filterByFileName,omitempty" toml:"filter_by_file_name"`
	CollectDetailedStats bool     `json:"collectDetailedStats" toml:"collect_detailed_stats"`
}

// DefaultOptions returns the options used when a request specifies none.
func DefaultOptions() Options {
	return Options{
		MaxConcurrentJobs: 5,
		TimeoutSeconds:    300,
		RetryCount:        3,
		RetryDelayMs:      1000,
	}
}

// Validate reports every invalid field in one validation error. A zero
// TimeoutSeconds is valid and means the default.
func (o Options) Validate() error {
	var problems []string
	if o.MaxConcurrentJobs < MinConcurrentJobs || o.MaxConcurrentJobs > MaxConcurrentJobs {
		problems = append(problems, fmt.Sprintf("maxConcurrentJobs must be between %d and %d", MinConcurrentJobs, MaxConcurrentJobs))
	}
	if o.TimeoutSeconds < 0 {
		problems = append(problems, "timeoutSeconds must not be negative")
	}
	if o.RetryCount < 0 || o.RetryCount > MaxRetryCount {
		problems = append(problems, fmt.Sprintf("retryCount must be between 0 and %d", MaxRetryCount))
	}
	if o.RetryDelayMs < 0 {
		problems = append(problems, "retryDelayMs must not be negative")
	}
	for _, p := range o.FilterByFileName {
		if p == "" || !doublestar.ValidatePattern(p) {
			problems = append(problems, fmt.Sprintf("invalid file name pattern %q", p))
		}
	}
	for _, ct := range o.FilterByContentType {
		if !validContentTypePattern(ct) {
			problems = append(problems, fmt.Sprintf("invalid content type filter %q", ct))
		}
	}
	if len(problems) > 0 {
		return failure.New(failure.KindValidation, "batch.options", strings.Join(problems, "; "))
	}
	return nil
}

// Timeout returns the batch deadline, applying the default for zero.
func (o Options) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return time.Duration(DefaultOptions().TimeoutSeconds) * time.Second
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// RetryDelay returns RetryDelayMs as a duration.
func (o Options) RetryDelay() time.Duration {
	return time.Duration(o.RetryDelayMs) * time.Millisecond
}

// ProcessingOptions selects the providers and the resilience target of a batch.
type ProcessingOptions struct {
	SourceProvider string `json:"sourceProvider,omitempty"`
	TargetProvider string `json:"targetProvider,omitempty"`

	// Target names the resilience policy conversions run under.
	// Default: "converter"
	Target string `json:"target,omitempty"`

	// RatePerSecond throttles item dispatch. Zero falls back to the
	// target's configured limiter, if any.
	RatePerSecond float64 `json:"ratePerSecond,omitempty"`
}

func (p ProcessingOptions) target() string {
	if p.Target == "" {
		return DefaultTarget
	}
	return p.Target
}

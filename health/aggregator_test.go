package health

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

func fixed(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestNewAggregator_Defaults(t *testing.T) {
	agg := NewAggregator()
	if agg.config.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", agg.config.Timeout)
	}
	if agg.config.MaxParallel != 0 {
		t.Errorf("MaxParallel = %d, want 0", agg.config.MaxParallel)
	}
}

func TestAggregator_RegisterKeepsOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register("zephyr", fixed("zephyr", Healthy("ok")))
	agg.Register("qtest", fixed("qtest", Healthy("ok")))
	agg.Register("zephyr", fixed("zephyr", Degraded("replaced")))

	if got := agg.CheckerNames(); !slices.Equal(got, []string{"zephyr", "qtest"}) {
		t.Errorf("CheckerNames() = %v", got)
	}
	res, err := agg.Check(context.Background(), "zephyr")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Status != StatusDegraded {
		t.Error("Register should replace an existing checker")
	}
}

func TestAggregator_Unregister(t *testing.T) {
	agg := NewAggregator()
	agg.Register("a", fixed("a", Healthy("ok")))
	agg.Register("b", fixed("b", Healthy("ok")))
	agg.Unregister("a")
	agg.Unregister("missing")

	if got := agg.CheckerNames(); !slices.Equal(got, []string{"b"}) {
		t.Errorf("CheckerNames() = %v, want [b]", got)
	}
	if _, err := agg.Check(context.Background(), "a"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check() error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator()
	agg.Register("zephyr", fixed("zephyr", Healthy("closed")))
	agg.Register("qtest", fixed("qtest", Unhealthy("open", errors.New("circuit open"))))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results["qtest"].Status != StatusUnhealthy {
		t.Errorf("qtest = %v, want unhealthy", results["qtest"].Status)
	}
	if results["zephyr"].Timestamp.IsZero() {
		t.Error("Timestamp should be filled in")
	}
}

func TestAggregator_CheckAllEmpty(t *testing.T) {
	results := NewAggregator().CheckAll(context.Background())
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
	if OverallStatus(results) != StatusHealthy {
		t.Error("empty results should be healthy")
	}
}

func TestAggregator_CheckAllTimeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register("slow", NewCheckerFunc("slow", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return Healthy("late")
	}))

	res := agg.CheckAll(context.Background())["slow"]
	if res.Status != StatusUnhealthy || !errors.Is(res.Error, ErrCheckTimeout) {
		t.Errorf("result = %+v, want timeout", res)
	}
}

func TestAggregator_MaxParallel(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{MaxParallel: 1})
	var running, peak atomic.Int32
	for _, name := range []string{"a", "b", "c", "d"} {
		agg.Register(name, NewCheckerFunc(name, func(context.Context) Result {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return Healthy("ok")
		}))
	}

	if got := len(agg.CheckAll(context.Background())); got != 4 {
		t.Fatalf("len(results) = %d, want 4", got)
	}
	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"all healthy", map[string]Result{"a": Healthy(""), "b": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"unhealthy wins", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_Report(t *testing.T) {
	agg := NewAggregator()
	agg.Register("zephyr", fixed("zephyr", Degraded("half-open")))

	report := agg.Report(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", report.Status)
	}
	if len(report.Checks) != 1 || report.Timestamp.IsZero() {
		t.Errorf("report = %+v", report)
	}
}

package batch

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jonwraymond/assetmigrate/attachment"
	"github.com/jonwraymond/assetmigrate/failure"
	"github.com/jonwraymond/assetmigrate/observe"
	"github.com/jonwraymond/assetmigrate/provider"
	"github.com/jonwraymond/assetmigrate/resilience"
)

const owner = "acme"

func newRegistry() *resilience.Registry {
	return resilience.NewRegistry(resilience.DefaultPolicyConfig())
}

func seed(t *testing.T, store *attachment.MemoryStore, items map[string]string) []string {
	t.Helper()
	ids := make([]string, 0, len(items))
	for id, ct := range items {
		payload := "step " + id
		switch attachment.FormatOf(ct) {
		case attachment.FormatJSON:
			payload = `{"id":"` + id + `"}`
		case attachment.FormatXML:
			payload = "<case id=\"" + id + "\"/>"
		}
		a := &attachment.Attachment{ID: id, FileName: id, ContentType: ct, Payload: []byte(payload)}
		if err := store.Save(context.Background(), owner, a); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func textItems(t *testing.T, store *attachment.MemoryStore, n int) []string {
	t.Helper()
	items := make(map[string]string, n)
	for i := 0; i < n; i++ {
		items[fmt.Sprintf("case-%02d.txt", i)] = "text/plain"
	}
	return seed(t, store, items)
}

func fastOptions() Options {
	o := DefaultOptions()
	o.RetryDelayMs = 0
	return o
}

func TestProcessAttachments_AllTextItemsSucceed(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := textItems(t, store, 10)

	opts := DefaultOptions()
	opts.CollectDetailedStats = true
	p := NewProcessor(newRegistry(), attachment.DefaultConverter{})

	res, err := p.ProcessAttachments(context.Background(), owner, ids,
		ProcessingOptions{SourceProvider: provider.Zephyr, TargetProvider: provider.QTest}, opts, store)
	if err != nil {
		t.Fatalf("ProcessAttachments() error = %v", err)
	}

	if res.Total != 10 || res.Processed != 10 || res.Failed != 0 {
		t.Fatalf("counters = total %d processed %d failed %d (%v)", res.Total, res.Processed, res.Failed, res.FailedAttachments)
	}
	if res.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", res.Status)
	}
	if res.DetailedStats == nil || res.DetailedStats.TextConversions != 10 {
		t.Fatalf("DetailedStats = %+v, want 10 text conversions", res.DetailedStats)
	}
	if res.DetailedStats.ByProvider[provider.Zephyr] != 10 {
		t.Errorf("ByProvider = %v", res.DetailedStats.ByProvider)
	}
	if !slices.Equal(res.ProcessedAttachments, ids) {
		t.Errorf("ProcessedAttachments = %v, want %v", res.ProcessedAttachments, ids)
	}
	if res.BatchID == "" {
		t.Error("BatchID should be set")
	}

	saved, err := store.Get(context.Background(), owner, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if saved.Provider != provider.QTest {
		t.Errorf("saved Provider = %q, want %q", saved.Provider, provider.QTest)
	}
}

func TestProcessAttachments_ContentTypeFilterExcludes(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := seed(t, store, map[string]string{
		"a.txt": "text/plain", "b.txt": "text/plain", "c.txt": "text/plain",
		"d.json": "application/json", "e.json": "application/json",
		"f.xml": "application/xml",
	})

	opts := fastOptions()
	opts.FilterByContentType = []string{"text/plain"}
	res, err := NewProcessor(newRegistry(), attachment.DefaultConverter{}).
		ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, opts, store)
	if err != nil {
		t.Fatal(err)
	}

	if res.Total != 3 || res.Processed != 3 || res.Failed != 0 {
		t.Errorf("counters = total %d processed %d failed %d", res.Total, res.Processed, res.Failed)
	}
	if !slices.Equal(res.Excluded, []string{"d.json", "e.json", "f.xml"}) {
		t.Errorf("Excluded = %v", res.Excluded)
	}
	if res.Status != StatusCompleted {
		t.Errorf("Status = %q", res.Status)
	}
}

func TestProcessAttachments_FilterAppliedBeforeDeadline(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := seed(t, store, map[string]string{
		"a.txt": "text/plain", "b.json": "application/json", "c.json": "application/json",
	})

	release := make(chan struct{})
	conv := attachment.ConverterFunc(func(ctx context.Context, payload []byte, ct, src, dst string) (attachment.ConversionResult, error) {
		<-release
		return attachment.DefaultConverter{}.Convert(ctx, payload, ct, src, dst)
	})

	opts := fastOptions()
	opts.TimeoutSeconds = 1
	opts.MaxConcurrentJobs = 1
	opts.FilterByContentType = []string{"text/plain"}
	p := NewProcessor(newRegistry(), conv)

	res, err := p.ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, opts, store)
	close(release)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	if res.Total != 1 || res.Failed != 1 || res.FailedAttachments["a.txt"] != ReasonTimeout {
		t.Errorf("total %d failed %d reasons %v; want only a.txt timed out", res.Total, res.Failed, res.FailedAttachments)
	}
	if !slices.Equal(res.Excluded, []string{"b.json", "c.json"}) {
		t.Errorf("Excluded = %v", res.Excluded)
	}
}

func TestProcessAttachments_FilterAppliedBeforeAbort(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := seed(t, store, map[string]string{
		"0-bad.txt": "text/plain", "1-ok.txt": "text/plain",
		"2-skip.json": "application/json", "3-skip.json": "application/json", "4-ok.txt": "text/plain",
	})

	conv := attachment.ConverterFunc(func(ctx context.Context, payload []byte, ct, src, dst string) (attachment.ConversionResult, error) {
		if strings.Contains(string(payload), "bad") {
			return attachment.ConversionResult{}, failure.New(failure.KindConversion, "convert", "unmapped field")
		}
		return attachment.DefaultConverter{}.Convert(ctx, payload, ct, src, dst)
	})

	opts := fastOptions()
	opts.MaxConcurrentJobs = 1
	opts.AbortOnFailure = true
	opts.FilterByContentType = []string{"text/plain"}
	res, err := NewProcessor(newRegistry(), conv).
		ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, opts, store)
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(res.Excluded, []string{"2-skip.json", "3-skip.json"}) {
		t.Errorf("Excluded = %v", res.Excluded)
	}
	if res.Total != 3 || res.Processed+res.Failed != 3 {
		t.Errorf("total %d processed %d failed %d, want 3 text items", res.Total, res.Processed, res.Failed)
	}
	for _, id := range []string{"2-skip.json", "3-skip.json"} {
		if _, ok := res.FailedAttachments[id]; ok {
			t.Errorf("excluded %s reported as failed: %q", id, res.FailedAttachments[id])
		}
	}
}

func TestProcessAttachments_LookupFailureAbortsBeforeDispatch(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := textItems(t, store, 3)
	ids = append(ids, "missing.txt")

	var calls atomic.Int32
	conv := attachment.ConverterFunc(func(_ context.Context, payload []byte, _, _, _ string) (attachment.ConversionResult, error) {
		calls.Add(1)
		return attachment.ConversionResult{Payload: payload}, nil
	})

	opts := fastOptions()
	opts.AbortOnFailure = true
	res, err := NewProcessor(newRegistry(), conv).
		ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, opts, store)
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 0 {
		t.Errorf("converter called %d times after a failed lookup", calls.Load())
	}
	if !strings.Contains(res.FailedAttachments["missing.txt"], "not found") {
		t.Errorf("missing reason = %q", res.FailedAttachments["missing.txt"])
	}
	for _, id := range ids[:3] {
		if res.FailedAttachments[id] != ReasonAborted {
			t.Errorf("%s reason = %q, want aborted", id, res.FailedAttachments[id])
		}
	}
}

func TestProcessAttachments_FileNameFilter(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := seed(t, store, map[string]string{
		"login.feature": "text/plain", "logout.feature": "text/plain", "readme.txt": "text/plain",
	})

	opts := fastOptions()
	opts.FilterByFileName = []string{"*.feature"}
	res, err := NewProcessor(newRegistry(), attachment.DefaultConverter{}).
		ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, opts, store)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 2 || !slices.Equal(res.Excluded, []string{"readme.txt"}) {
		t.Errorf("Processed = %d, Excluded = %v", res.Processed, res.Excluded)
	}
}

func TestProcessAttachments_DeadlineMarksUnfinishedItems(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := seed(t, store, map[string]string{
		"0-fast.txt": "text/plain", "1-fast.txt": "text/plain",
		"2-slow.txt": "text/plain", "3-slow.txt": "text/plain", "4-slow.txt": "text/plain",
	})

	release := make(chan struct{})
	conv := attachment.ConverterFunc(func(ctx context.Context, payload []byte, ct, src, dst string) (attachment.ConversionResult, error) {
		if strings.Contains(string(payload), "slow") {
			<-release
		}
		return attachment.DefaultConverter{}.Convert(ctx, payload, ct, src, dst)
	})

	opts := fastOptions()
	opts.TimeoutSeconds = 1
	opts.MaxConcurrentJobs = 2
	p := NewProcessor(newRegistry(), conv)

	start := time.Now()
	res, err := p.ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, opts, store)
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("batch returned after %v, want about 1s", elapsed)
	}
	close(release)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(res.ProcessedAttachments, []string{"0-fast.txt", "1-fast.txt"}) {
		t.Errorf("ProcessedAttachments = %v", res.ProcessedAttachments)
	}
	for _, id := range ids[2:] {
		if res.FailedAttachments[id] != ReasonTimeout {
			t.Errorf("%s reason = %q, want timeout", id, res.FailedAttachments[id])
		}
	}
	if res.Status != StatusPartial {
		t.Errorf("Status = %q, want partial", res.Status)
	}
}

func TestProcessAttachments_ItemFailuresAreRecorded(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := seed(t, store, map[string]string{
		"good.txt": "text/plain", "broken.json": "application/json", "image.png": "image/png",
	})
	if err := store.Save(context.Background(), owner, &attachment.Attachment{ID: "broken.json", ContentType: "application/json", Payload: []byte("{oops")}); err != nil {
		t.Fatal(err)
	}
	ids = append(ids, "missing.txt")

	res, err := NewProcessor(newRegistry(), attachment.DefaultConverter{}).
		ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, fastOptions(), store)
	if err != nil {
		t.Fatalf("item failures must not fail the batch: %v", err)
	}
	if res.Processed != 1 || res.Failed != 3 || res.Status != StatusPartial {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(res.FailedAttachments["missing.txt"], "not found") {
		t.Errorf("missing reason = %q", res.FailedAttachments["missing.txt"])
	}
	if !strings.Contains(res.FailedAttachments["image.png"], "unsupported content type") {
		t.Errorf("image reason = %q", res.FailedAttachments["image.png"])
	}
}

func TestProcessAttachments_BadPayloadsDoNotOpenCircuit(t *testing.T) {
	store := attachment.NewMemoryStore()
	items := map[string]string{}
	for i := 0; i < 6; i++ {
		items[fmt.Sprintf("%02d-bad.json", i)] = "application/json"
	}
	for i := 6; i < 10; i++ {
		items[fmt.Sprintf("%02d-ok.txt", i)] = "text/plain"
	}
	ids := seed(t, store, items)
	for _, id := range ids[:6] {
		a := &attachment.Attachment{ID: id, FileName: id, ContentType: "application/json", Payload: []byte("{not json")}
		if err := store.Save(context.Background(), owner, a); err != nil {
			t.Fatal(err)
		}
	}

	opts := fastOptions()
	opts.MaxConcurrentJobs = 1
	res, err := NewProcessor(resilience.NewRegistry(resilience.DefaultPolicyConfig()), attachment.DefaultConverter{}).
		ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, opts, store)
	if err != nil {
		t.Fatal(err)
	}

	if res.Processed != 4 || res.Failed != 6 {
		t.Fatalf("processed %d failed %d, want 4 and 6 (%v)", res.Processed, res.Failed, res.FailedAttachments)
	}
	if !slices.Equal(res.ProcessedAttachments, ids[6:]) {
		t.Errorf("ProcessedAttachments = %v, want %v", res.ProcessedAttachments, ids[6:])
	}
	for id, reason := range res.FailedAttachments {
		if strings.Contains(reason, "circuit") {
			t.Errorf("%s reason = %q; bad input must not open the circuit", id, reason)
		}
	}
}

func TestProcessAttachments_RetriesTransientFailures(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := textItems(t, store, 1)

	var calls atomic.Int32
	conv := attachment.ConverterFunc(func(ctx context.Context, payload []byte, ct, src, dst string) (attachment.ConversionResult, error) {
		if calls.Add(1) <= 2 {
			return attachment.ConversionResult{}, failure.New(failure.KindTransient, "convert", "503 from converter")
		}
		return attachment.ConversionResult{Payload: payload}, nil
	})

	res, err := NewProcessor(newRegistry(), conv).
		ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, fastOptions(), store)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 1 {
		t.Errorf("Processed = %d, want 1 (%v)", res.Processed, res.FailedAttachments)
	}
	if calls.Load() != 3 {
		t.Errorf("converter called %d times, want 3", calls.Load())
	}
}

func TestProcessAttachments_ConversionErrorsNotRetried(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := textItems(t, store, 1)

	var calls atomic.Int32
	conv := attachment.ConverterFunc(func(context.Context, []byte, string, string, string) (attachment.ConversionResult, error) {
		calls.Add(1)
		return attachment.ConversionResult{}, failure.New(failure.KindConversion, "convert", "unmapped field")
	})

	res, err := NewProcessor(newRegistry(), conv).
		ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, fastOptions(), store)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusFailed || calls.Load() != 1 {
		t.Errorf("Status = %q, calls = %d; want failed after one call", res.Status, calls.Load())
	}
}

func TestProcessAttachments_AbortOnFailureStopsDispatch(t *testing.T) {
	store := attachment.NewMemoryStore()
	items := map[string]string{"00-bad.png": "image/png"}
	for i := 1; i <= 20; i++ {
		items[fmt.Sprintf("%02d-ok.txt", i)] = "text/plain"
	}
	ids := seed(t, store, items)

	conv := attachment.ConverterFunc(func(ctx context.Context, payload []byte, ct, src, dst string) (attachment.ConversionResult, error) {
		time.Sleep(5 * time.Millisecond)
		return attachment.DefaultConverter{}.Convert(ctx, payload, ct, src, dst)
	})

	opts := fastOptions()
	opts.MaxConcurrentJobs = 1
	opts.AbortOnFailure = true
	res, err := NewProcessor(newRegistry(), conv).
		ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, opts, store)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := res.FailedAttachments["00-bad.png"]; !ok {
		t.Fatalf("bad item not recorded: %v", res.FailedAttachments)
	}
	aborted := 0
	for _, reason := range res.FailedAttachments {
		if reason == ReasonAborted {
			aborted++
		}
	}
	if aborted == 0 {
		t.Error("no item was marked aborted")
	}
	if res.Total != len(ids) || res.Processed+res.Failed != res.Total {
		t.Errorf("every item needs exactly one outcome: %+v", res)
	}
}

func TestProcessAttachments_BoundedConcurrency(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := textItems(t, store, 30)

	var running, peak atomic.Int32
	conv := attachment.ConverterFunc(func(ctx context.Context, payload []byte, ct, src, dst string) (attachment.ConversionResult, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		return attachment.ConversionResult{Payload: payload}, nil
	})

	opts := fastOptions()
	opts.MaxConcurrentJobs = 4
	res, err := NewProcessor(newRegistry(), conv).
		ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, opts, store)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 30 {
		t.Fatalf("Processed = %d", res.Processed)
	}
	if peak.Load() > 4 {
		t.Errorf("peak concurrency = %d, want <= 4", peak.Load())
	}
}

func TestProcessAttachments_DuplicateIDsProcessedOnce(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := textItems(t, store, 2)

	var calls atomic.Int32
	conv := attachment.ConverterFunc(func(_ context.Context, payload []byte, _, _, _ string) (attachment.ConversionResult, error) {
		calls.Add(1)
		return attachment.ConversionResult{Payload: payload}, nil
	})
	res, err := NewProcessor(newRegistry(), conv).ProcessAttachments(context.Background(), owner,
		[]string{ids[0], ids[1], ids[0], ""}, ProcessingOptions{}, fastOptions(), store)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 || calls.Load() != 2 {
		t.Errorf("Total = %d, calls = %d, want 2 and 2", res.Total, calls.Load())
	}
}

func TestProcessAttachments_RateLimited(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := textItems(t, store, 3)

	start := time.Now()
	res, err := NewProcessor(newRegistry(), attachment.DefaultConverter{}).ProcessAttachments(context.Background(), owner, ids,
		ProcessingOptions{RatePerSecond: 20}, fastOptions(), store)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 3 {
		t.Fatalf("Processed = %d", res.Processed)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("elapsed = %v, want at least two 50ms intervals", elapsed)
	}
}

func TestProcessAttachments_Misconfiguration(t *testing.T) {
	store := attachment.NewMemoryStore()
	p := NewProcessor(newRegistry(), attachment.DefaultConverter{})
	ctx := context.Background()

	badOpts := fastOptions()
	badOpts.MaxConcurrentJobs = 0

	tests := []struct {
		name  string
		owner string
		proc  ProcessingOptions
		opts  Options
		store attachment.Store
	}{
		{"no owner", "", ProcessingOptions{}, fastOptions(), store},
		{"no store", owner, ProcessingOptions{}, fastOptions(), nil},
		{"invalid options", owner, ProcessingOptions{}, badOpts, store},
		{"negative rate", owner, ProcessingOptions{RatePerSecond: -1}, fastOptions(), store},
		{"unknown provider", owner, ProcessingOptions{SourceProvider: "jira"}, fastOptions(), store},
		{"read-only target", owner, ProcessingOptions{SourceProvider: provider.Zephyr, TargetProvider: provider.HPALM}, fastOptions(), store},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.ProcessAttachments(ctx, tt.owner, []string{"x"}, tt.proc, tt.opts, tt.store)
			if !failure.Is(err, failure.KindValidation) {
				t.Errorf("error = %v, want validation", err)
			}
			if res != nil {
				t.Error("misconfiguration must not produce a result")
			}
		})
	}
}

func TestProcessAttachments_CancelledContext(t *testing.T) {
	store := attachment.NewMemoryStore()
	ids := textItems(t, store, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewProcessor(newRegistry(), attachment.DefaultConverter{}).
		ProcessAttachments(ctx, owner, ids, ProcessingOptions{}, fastOptions(), store)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed+res.Failed != 3 {
		t.Errorf("every item needs an outcome: %+v", res)
	}
	for id, reason := range res.FailedAttachments {
		if reason != ReasonCancelled && !strings.Contains(reason, "canceled") {
			t.Errorf("%s reason = %q", id, reason)
		}
	}
}

func TestProcessAttachments_EmptyBatch(t *testing.T) {
	res, err := NewProcessor(newRegistry(), attachment.DefaultConverter{}, WithIDGenerator(func() string { return "fixed" })).
		ProcessAttachments(context.Background(), owner, nil, ProcessingOptions{}, fastOptions(), attachment.NewMemoryStore())
	if err != nil {
		t.Fatal(err)
	}
	if res.BatchID != "fixed" || res.Total != 0 || res.Status != StatusUnknown {
		t.Errorf("result = %+v", res)
	}
}

func TestProcessAttachments_Telemetry(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observe.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	in := &observe.Instruments{
		Tracer:  observe.NewTracer(tp.Tracer("test")),
		Metrics: metrics,
		Logger:  observe.NopLogger(),
	}

	store := attachment.NewMemoryStore()
	ids := textItems(t, store, 3)
	ids = append(ids, "missing.txt")

	_, err = NewProcessor(newRegistry(), attachment.DefaultConverter{}, WithInstruments(in)).
		ProcessAttachments(context.Background(), owner, ids, ProcessingOptions{}, fastOptions(), store)
	if err != nil {
		t.Fatal(err)
	}

	names := map[string]int{}
	for _, s := range recorder.Ended() {
		names[s.Name()]++
	}
	// missing.txt fails its lookup and is never dispatched.
	if names[observe.SpanBatchProcess] != 1 || names[observe.SpanBatchItem] != 3 {
		t.Errorf("spans = %v", names)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}
	if totals["batch.items.total"] != 4 || totals["batch.items.failed"] != 1 {
		t.Errorf("metrics = %v", totals)
	}
}

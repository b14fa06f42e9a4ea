package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/assetmigrate/attachment"
	"github.com/jonwraymond/assetmigrate/failure"
	"github.com/jonwraymond/assetmigrate/observe"
	"github.com/jonwraymond/assetmigrate/provider"
	"github.com/jonwraymond/assetmigrate/resilience"
)

// Option configures a Processor.
type Option func(*Processor)

// WithCatalog sets the provider catalog used to validate source and target.
func WithCatalog(c *provider.Catalog) Option {
	return func(p *Processor) {
		if c != nil {
			p.catalog = c
		}
	}
}

// WithInstruments attaches telemetry.
func WithInstruments(in *observe.Instruments) Option {
	return func(p *Processor) {
		if in != nil {
			p.instruments = in
		}
	}
}

// WithIDGenerator overrides batch id generation.
func WithIDGenerator(fn func() string) Option {
	return func(p *Processor) { p.newID = fn }
}

// Processor runs attachment batches. It is safe for concurrent use; each
// call owns its own job.
type Processor struct {
	registry    *resilience.Registry
	converter   attachment.Converter
	catalog     *provider.Catalog
	instruments *observe.Instruments
	newID       func() string

	// inflight tracks workers still running after their batch returned.
	inflight sync.WaitGroup
}

// NewProcessor creates a processor converting through conv under the
// policies of reg.
func NewProcessor(reg *resilience.Registry, conv attachment.Converter, opts ...Option) *Processor {
	p := &Processor{
		registry:    reg,
		converter:   conv,
		catalog:     provider.NewCatalog(),
		instruments: observe.NopInstruments(),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessAttachments converts the given items of ownerID and saves the
// results back to store.
//
// The returned error is non-nil only for misconfiguration; item failures,
// the deadline and aborts are reported in the Result. At the deadline the
// result is returned immediately: items still converting are reported as
// timed out and finish in the background without changing the result.
func (p *Processor) ProcessAttachments(
	ctx context.Context,
	ownerID string,
	itemIDs []string,
	proc ProcessingOptions,
	opts Options,
	store attachment.Store,
) (*Result, error) {
	if err := p.validate(ownerID, proc, opts, store); err != nil {
		return nil, err
	}

	items := dedupe(itemIDs)
	j := newJob(p.newID(), ownerID, items, time.Now(), opts.CollectDetailedStats)

	ctx, span := p.instruments.Tracer.StartSpan(ctx, observe.SpanBatchProcess,
		attribute.String("batch.id", j.id),
		attribute.String("batch.owner", ownerID),
		attribute.Int("batch.items", len(items)),
		attribute.String("resilience.target", proc.target()),
	)
	logger := p.instruments.Logger.With(
		observe.F("batch_id", j.id),
		observe.F("owner", ownerID),
		observe.F("target", proc.target()),
	)
	logger.Info(ctx, "batch started",
		observe.F("items", len(items)),
		observe.F("workers", opts.MaxConcurrentJobs))

	r := &run{
		p:      p,
		owner:  ownerID,
		proc:   proc,
		opts:   opts,
		store:  store,
		filter: NewFilter(opts),
		policy: p.policyFor(proc, opts),
		limit:  p.limiterFor(proc, opts),
		logger: logger,
	}
	res := r.execute(ctx, j)

	p.instruments.Metrics.RecordBatch(ctx, string(res.Status), res.Total, res.Failed, res.Elapsed)
	span.SetAttributes(
		attribute.String("batch.status", string(res.Status)),
		attribute.Int("batch.processed", res.Processed),
		attribute.Int("batch.failed", res.Failed),
	)
	p.instruments.Tracer.EndSpan(span, nil)

	logger.Info(ctx, "batch finished",
		observe.F("status", string(res.Status)),
		observe.F("processed", res.Processed),
		observe.F("failed", res.Failed),
		observe.F("excluded", len(res.Excluded)),
		observe.F("elapsed", res.ElapsedTime))
	return res, nil
}

// Wait blocks until workers left running by timed out batches have
// finished, or ctx ends.
func (p *Processor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) validate(ownerID string, proc ProcessingOptions, opts Options, store attachment.Store) error {
	if ownerID == "" {
		return failure.New(failure.KindValidation, "batch.process", "owner id is required")
	}
	if store == nil {
		return failure.New(failure.KindValidation, "batch.process", "attachment store is required")
	}
	if p.converter == nil || p.registry == nil {
		return failure.New(failure.KindValidation, "batch.process", "processor is not configured")
	}
	if proc.RatePerSecond < 0 {
		return failure.New(failure.KindValidation, "batch.process", "ratePerSecond must not be negative")
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if _, _, err := p.catalog.Route(proc.SourceProvider, proc.TargetProvider); err != nil {
		return failure.Wrap(failure.KindValidation, "batch.process", err)
	}
	return nil
}

func (p *Processor) policyFor(proc ProcessingOptions, opts Options) *resilience.Policy {
	return p.registry.Policy(proc.target()).WithRetry(resilience.RetryConfig{
		MaxAttempts:    opts.RetryCount + 1,
		InitialDelay:   opts.RetryDelay(),
		MaxDelay:       30 * time.Second,
		BackoffFactor:  2,
		RetryCondition: retryable,
	})
}

func (p *Processor) limiterFor(proc ProcessingOptions, opts Options) *resilience.RateLimiter {
	if proc.RatePerSecond > 0 {
		return resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:    proc.RatePerSecond,
			Burst:   1,
			MaxWait: opts.Timeout(),
		})
	}
	return p.registry.RateLimiter(proc.target())
}

// retryable limits item retries to failures that may go away on their own.
func retryable(err error) bool {
	switch failure.KindOf(err) {
	case failure.KindTransient, failure.KindTimeout, failure.KindInternal:
		return true
	default:
		return false
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// run holds the per-call collaborators shared by the workers.
type run struct {
	p      *Processor
	owner  string
	proc   ProcessingOptions
	opts   Options
	store  attachment.Store
	filter Filter
	policy *resilience.Policy
	limit  *resilience.RateLimiter
	logger observe.Logger
}

func (r *run) execute(ctx context.Context, j *job) *Result {
	deadline, cancelDeadline := context.WithTimeout(ctx, r.opts.Timeout())
	defer cancelDeadline()

	// dispatch ends when no new item may start.
	dispatch, stopDispatch := context.WithCancel(deadline)
	defer stopDispatch()

	candidates, failed := r.prepare(deadline, j)
	aborted := false
	if failed && r.opts.AbortOnFailure {
		aborted = true
		stopDispatch()
		r.logger.Warn(ctx, "aborting batch after item lookup failure")
	}

	queue := make(chan fetched, len(candidates))
	for _, f := range candidates {
		queue <- f
	}
	close(queue)

	reports := make(chan report, len(candidates))
	workersDone := make(chan struct{})

	var g errgroup.Group
	for i := 0; i < min(r.opts.MaxConcurrentJobs, max(len(candidates), 1)); i++ {
		g.Go(func() error {
			r.work(ctx, dispatch, queue, reports)
			return nil
		})
	}
	r.p.inflight.Add(1)
	go func() {
		_ = g.Wait()
		close(workersDone)
		r.p.inflight.Done()
	}()

	reason := ""
	for reason == "" {
		select {
		case rep := <-reports:
			if j.record(rep) && r.opts.AbortOnFailure && !aborted {
				aborted = true
				stopDispatch()
				r.logger.Warn(ctx, "aborting batch after item failure", observe.F("item", rep.id))
			}
		case <-workersDone:
			drain(j, reports)
			reason = stopReason(ctx, deadline)
		case <-deadline.Done():
			drain(j, reports)
			reason = stopReason(ctx, deadline)
			r.logger.Warn(ctx, "batch deadline reached", observe.F("reason", reason))
		}
	}

	j.finish(reason)
	return j.result(time.Now())
}

// fetched is an item looked up before dispatch.
type fetched struct {
	id  string
	a   *attachment.Attachment
	err error
}

// prepare looks up every item and applies the filter before anything is
// dispatched, so excluded items can never be reported as timed out or
// aborted. Lookups run MaxConcurrentJobs at a time under the batch
// deadline. Lookup failures and exclusions are recorded on j; the matching
// attachments are returned in item order, and failed reports whether any
// lookup failed. Items not looked up by the deadline get no outcome here.
func (r *run) prepare(deadline context.Context, j *job) (candidates []fetched, failed bool) {
	results := make(chan fetched, len(j.items))

	var g errgroup.Group
	g.SetLimit(max(r.opts.MaxConcurrentJobs, 1))
	r.p.inflight.Add(1)
	go func() {
		defer r.p.inflight.Done()
		for _, id := range j.items {
			if deadline.Err() != nil {
				break
			}
			g.Go(func() error {
				a, err := r.store.Get(deadline, r.owner, id)
				results <- fetched{id: id, a: a, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()

	matched := make(map[string]fetched, len(j.items))
	classify := func(f fetched) {
		switch {
		case f.err != nil && deadline.Err() != nil:
			// The lookup was cut short; finish assigns the outcome.
		case f.err != nil:
			if j.record(report{id: f.id, err: f.err}) {
				failed = true
			}
		case !r.filter.Match(f.a):
			j.record(report{id: f.id, excluded: true})
		default:
			matched[f.id] = f
		}
	}

collect:
	for range j.items {
		select {
		case f := <-results:
			classify(f)
		case <-deadline.Done():
			for {
				select {
				case f := <-results:
					classify(f)
				default:
					break collect
				}
			}
		}
	}

	for _, id := range j.items {
		if f, ok := matched[id]; ok {
			candidates = append(candidates, f)
		}
	}
	if n := len(j.items) - len(candidates); n > 0 {
		r.logger.Debug(deadline, "items resolved before dispatch",
			observe.F("candidates", len(candidates)),
			observe.F("skipped", n))
	}
	return candidates, failed
}

// stopReason names why items may be left without an outcome.
func stopReason(ctx, deadline context.Context) string {
	switch {
	case ctx.Err() != nil:
		return ReasonCancelled
	case deadline.Err() != nil:
		return ReasonTimeout
	default:
		return ReasonAborted
	}
}

func drain(j *job, reports <-chan report) {
	for {
		select {
		case rep := <-reports:
			j.record(rep)
		default:
			return
		}
	}
}

// work pulls items until the queue is empty or dispatch ends. Items are
// processed under ctx, so a started item is not interrupted by the batch
// deadline or an abort.
func (r *run) work(ctx, dispatch context.Context, queue <-chan fetched, reports chan<- report) {
	for f := range queue {
		if dispatch.Err() != nil {
			return
		}
		if r.limit != nil {
			if err := r.limit.Wait(dispatch); err != nil {
				if dispatch.Err() != nil {
					return
				}
				reports <- report{id: f.id, err: err}
				continue
			}
		}
		reports <- r.processItem(ctx, f.id, f.a)
	}
}

func (r *run) processItem(ctx context.Context, id string, a *attachment.Attachment) (rep report) {
	rep.id = id
	tr := r.p.instruments.Tracer
	ctx, span := tr.StartSpan(ctx, observe.SpanBatchItem,
		attribute.String("batch.item", id),
		attribute.String("batch.owner", r.owner),
	)
	defer func() { tr.EndSpan(span, rep.err) }()

	res, err := resilience.Do(ctx, r.policy, "", func(ctx context.Context) (attachment.ConversionResult, error) {
		return r.p.converter.Convert(ctx, a.Payload, a.ContentType, r.proc.SourceProvider, r.proc.TargetProvider)
	})
	if err != nil {
		rep.err = err
		r.logger.Debug(ctx, "item conversion failed",
			observe.F("item", id),
			observe.F("error", err),
			observe.F("error.kind", failure.KindOf(err).String()))
		return rep
	}

	out := a.Clone()
	out.Payload = res.Payload
	if res.ContentType != "" {
		out.ContentType = res.ContentType
	}
	if r.proc.TargetProvider != "" {
		out.Provider = r.proc.TargetProvider
	}
	if err := r.store.Save(ctx, r.owner, out); err != nil {
		rep.err = err
		return rep
	}

	source := a.Provider
	if source == "" {
		source = r.proc.SourceProvider
	}
	rep.format = a.Format()
	rep.mediaType = a.MediaType()
	rep.provider = source
	rep.warnings = len(res.Warnings)
	rep.stats = res.Stats
	rep.bytesIn = a.Size()
	rep.bytesOutput = int64(len(res.Payload))
	return rep
}

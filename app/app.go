// Package app wires the assetmigrate components together and owns their
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/assetmigrate/api"
	"github.com/jonwraymond/assetmigrate/attachment"
	"github.com/jonwraymond/assetmigrate/batch"
	"github.com/jonwraymond/assetmigrate/config"
	"github.com/jonwraymond/assetmigrate/health"
	"github.com/jonwraymond/assetmigrate/observe"
	"github.com/jonwraymond/assetmigrate/observe/exporters"
	"github.com/jonwraymond/assetmigrate/operation"
	"github.com/jonwraymond/assetmigrate/provider"
	"github.com/jonwraymond/assetmigrate/resilience"
)

const defaultShutdownTimeout = 30 * time.Second

// Option configures an App.
type Option func(*options)

type options struct {
	converter attachment.Converter
	observer  observe.Observer
	store     attachment.Store
	catalog   *provider.Catalog
}

// WithConverter replaces attachment.DefaultConverter.
func WithConverter(c attachment.Converter) Option {
	return func(o *options) { o.converter = c }
}

// WithObserver uses obs instead of building one from the configuration.
// The App still shuts it down.
func WithObserver(obs observe.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithStore uses s instead of the configured store.
func WithStore(s attachment.Store) Option {
	return func(o *options) { o.store = s }
}

// WithCatalog registers additional providers.
func WithCatalog(c *provider.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// App is a configured assetmigrate instance.
//
// Lifecycle: New builds every component, Init starts background work,
// Shutdown stops it. Shutdown is safe to call more than once.
type App struct {
	cfg         *config.Config
	observer    observe.Observer
	instruments *observe.Instruments
	registry    *resilience.Registry
	health      *health.Aggregator
	monitor     *health.Monitor
	store       attachment.Store
	catalog     *provider.Catalog
	processor   *batch.Processor
	runner      *operation.Runner
	server      *api.Server

	mu          sync.Mutex
	stopMonitor health.StopFunc
	closed      bool
}

// New builds an App from cfg. A nil cfg uses config.Default().
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	o := options{converter: attachment.DefaultConverter{}}
	for _, opt := range opts {
		opt(&o)
	}

	promReg := prom.NewRegistry()
	obs := o.observer
	if obs == nil {
		var err error
		obs, err = observe.NewObserver(ctx, cfg.Observe, exporters.WithRegisterer(promReg))
		if err != nil {
			return nil, fmt.Errorf("app: observer: %w", err)
		}
	}
	in, err := observe.NewInstruments(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("app: instruments: %w", err)
	}

	store := o.store
	if store == nil {
		store, err = cfg.Store.Open()
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("app: store: %w", err)
		}
	}
	catalog := o.catalog
	if catalog == nil {
		catalog = provider.NewCatalog()
	}

	agg := health.NewAggregator(cfg.Health.Aggregator())
	agg.Register("heap", health.NewHeapChecker(health.HeapCheckerConfig{MaxHeapBytes: cfg.Health.MaxHeapBytes}))

	reg := resilience.NewRegistry(cfg.Resilience.DefaultPolicy(),
		resilience.WithInstruments(in),
		resilience.WithHealth(agg))
	cfg.Resilience.Apply(reg)

	a := &App{
		cfg:         cfg,
		observer:    obs,
		instruments: in,
		registry:    reg,
		health:      agg,
		monitor:     health.NewMonitor(agg, health.MonitorConfig{Interval: cfg.Health.Interval}, in.Logger),
		store:       store,
		catalog:     catalog,
		processor:   batch.NewProcessor(reg, o.converter, batch.WithCatalog(catalog), batch.WithInstruments(in)),
		runner:      operation.NewRunner(reg, operation.WithInstruments(in)),
	}

	serverOpts := []api.Option{
		api.WithDefaults(cfg.Batch),
		api.WithAuthentication(cfg.Auth.HTTP()),
		api.WithAuthorizer(cfg.Auth.Authorizer()),
		api.WithHealth(agg),
		api.WithCatalog(catalog),
		api.WithLogger(in.Logger),
		api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if o.observer == nil && cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		serverOpts = append(serverOpts, api.WithMetricsHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	}
	a.server = api.New(a.processor, store, serverOpts...)
	return a, nil
}

// Init creates the policies of every configured target, registers them
// for health checking and starts the health monitor.
func (a *App) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errors.New("app: already shut down")
	}
	if a.stopMonitor != nil {
		return nil
	}

	for _, name := range append(a.cfg.Resilience.TargetNames(), batch.DefaultTarget, operation.DefaultTarget) {
		a.registry.Policy(name)
	}
	if err := a.registry.Init(ctx); err != nil {
		return fmt.Errorf("app: resilience: %w", err)
	}

	stop, err := a.monitor.Start(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("app: health monitor: %w", err)
	}
	a.stopMonitor = stop

	a.instruments.Logger.Info(ctx, "assetmigrate initialized",
		observe.F("service", a.cfg.Service.Name),
		observe.F("version", a.cfg.Service.Version),
		observe.F("environment", a.cfg.Service.Environment),
		observe.F("targets", a.registry.Names()))
	return nil
}

// Shutdown stops the health monitor, waits for batch workers left running
// by timed out batches and flushes telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	stop := a.stopMonitor
	a.mu.Unlock()

	if stop != nil {
		stop()
	}

	var errs []error
	if err := a.processor.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("batch workers: %w", err))
	}
	if err := a.registry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("resilience: %w", err))
	}
	a.instruments.Logger.Info(ctx, "assetmigrate stopped")
	if err := a.observer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("observer: %w", err))
	}
	return errors.Join(errs...)
}

// Serve serves the HTTP API on ln until ctx is done, then shuts the server
// down gracefully within the configured shutdown timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.instruments.Logger.Info(gctx, "http server listening", observe.F("addr", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := a.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// ListenAndServe listens on the configured address and calls Serve.
func (a *App) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.cfg.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Handler returns the HTTP API handler.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// Processor returns the batch processor.
func (a *App) Processor() *batch.Processor { return a.processor }

// Runner returns the operation runner.
func (a *App) Runner() *operation.Runner { return a.runner }

// Registry returns the resilience registry.
func (a *App) Registry() *resilience.Registry { return a.registry }

// Health returns the health aggregator.
func (a *App) Health() *health.Aggregator { return a.health }

// Store returns the attachment store.
func (a *App) Store() attachment.Store { return a.store }

// Catalog returns the provider catalog.
func (a *App) Catalog() *provider.Catalog { return a.catalog }

// Logger returns the application logger.
func (a *App) Logger() observe.Logger { return a.instruments.Logger }

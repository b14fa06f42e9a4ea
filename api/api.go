package api

import (
	"net/http"
	"time"

	"github.com/jonwraymond/assetmigrate/attachment"
	"github.com/jonwraymond/assetmigrate/auth"
	"github.com/jonwraymond/assetmigrate/batch"
	"github.com/jonwraymond/assetmigrate/health"
	"github.com/jonwraymond/assetmigrate/observe"
	"github.com/jonwraymond/assetmigrate/provider"
)

// DefaultMaxBodyBytes bounds request bodies unless WithMaxBodyBytes is given.
const DefaultMaxBodyBytes = 1 << 20

// Option configures a Server.
type Option func(*Server)

// WithDefaults sets the batch options that requests override field by field.
func WithDefaults(opts batch.Options) Option {
	return func(s *Server) { s.defaults = opts }
}

// WithAuthentication sets the middleware that attaches an identity to each
// /v1 request, typically auth.Config.HTTP().
func WithAuthentication(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		if mw != nil {
			s.authn = mw
		}
	}
}

// WithAuthorizer sets the authorizer consulted before each /v1 action.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(s *Server) {
		if a != nil {
			s.authz = a
		}
	}
}

// WithHealth mounts the health routes for agg.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) { s.health = agg }
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithCatalog sets the catalog listed by /v1/providers. It should be the
// catalog the processor validates against.
func WithCatalog(c *provider.Catalog) Option {
	return func(s *Server) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithLogger logs every request on l.
func WithLogger(l observe.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBodyBytes bounds request bodies. Zero or less disables the limit.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// Server is the HTTP front end of a batch.Processor.
type Server struct {
	processor *batch.Processor
	store     attachment.Store
	defaults  batch.Options
	catalog   *provider.Catalog
	authn     func(http.Handler) http.Handler
	authz     auth.Authorizer
	health    *health.Aggregator
	metrics   http.Handler
	logger    observe.Logger
	maxBody   int64
}

// New creates a server converting attachments of store with proc.
//
// Without WithAuthentication every request runs as the anonymous identity
// "local".
func New(proc *batch.Processor, store attachment.Store, opts ...Option) *Server {
	s := &Server{
		processor: proc,
		store:     store,
		defaults:  batch.DefaultOptions(),
		catalog:   provider.NewCatalog(),
		authn:     auth.Anonymous("local"),
		authz:     auth.AllowAllAuthorizer{},
		logger:    observe.NopLogger(),
		maxBody:   DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	protect := func(action string, h http.HandlerFunc) http.Handler {
		return s.authn(auth.Require(s.authz, action)(h))
	}
	mux.Handle("POST /v1/batches", protect(auth.ActionSubmitBatch, s.submitBatch))
	mux.Handle("POST /v1/plans", protect(auth.ActionPlan, s.resolvePlan))
	mux.Handle("GET /v1/providers", s.authn(http.HandlerFunc(s.listProviders)))

	if s.health != nil {
		health.RegisterHandlers(mux, s.health)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return s.logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []observe.Field{
			observe.F("method", r.Method),
			observe.F("path", r.URL.Path),
			observe.F("status", rec.status),
			observe.F("duration_ms", time.Since(start).Milliseconds()),
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "request failed", fields...)
			return
		}
		s.logger.Debug(r.Context(), "request served", fields...)
	})
}

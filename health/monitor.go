package health

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/assetmigrate/observe"
)

// StopFunc stops a running Monitor and waits for its loop to exit. It is
// safe to call more than once.
type StopFunc func()

// MonitorConfig configures periodic health polling.
type MonitorConfig struct {
	// Interval between rounds.
	// Default: 30 seconds
	Interval time.Duration

	// OnChange is called after a check changes status. Checks seen for the
	// first time are compared against healthy.
	OnChange func(name string, from, to Status)
}

// Monitor polls an Aggregator on a fixed interval and logs status changes.
type Monitor struct {
	agg    *Aggregator
	config MonitorConfig
	logger observe.Logger

	mu      sync.Mutex
	running bool
	last    Report
	seen    map[string]Status
}

// NewMonitor creates a monitor for agg. A nil logger disables logging.
func NewMonitor(agg *Aggregator, config MonitorConfig, logger observe.Logger) *Monitor {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Monitor{
		agg:    agg,
		config: config,
		logger: logger,
		seen:   make(map[string]Status),
	}
}

// Start runs one round immediately and then one per interval until ctx is
// done or the returned StopFunc is called.
func (m *Monitor) Start(ctx context.Context) (StopFunc, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, ErrMonitorRunning
	}
	m.running = true
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()

		m.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Tick(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
		})
	}, nil
}

// Tick runs a single polling round and returns its report.
func (m *Monitor) Tick(ctx context.Context) Report {
	report := m.agg.Report(ctx)

	type change struct {
		name     string
		from, to Status
		result   Result
	}
	var changes []change

	m.mu.Lock()
	for name, r := range report.Checks {
		prev, ok := m.seen[name]
		if !ok {
			prev = StatusHealthy
		}
		if prev != r.Status {
			changes = append(changes, change{name: name, from: prev, to: r.Status, result: r})
		}
		m.seen[name] = r.Status
	}
	for name := range m.seen {
		if _, ok := report.Checks[name]; !ok {
			delete(m.seen, name)
		}
	}
	m.last = report
	m.mu.Unlock()

	for _, c := range changes {
		fields := []observe.Field{
			observe.F("check", c.name),
			observe.F("from", c.from.String()),
			observe.F("to", c.to.String()),
			observe.F("message", c.result.Message),
		}
		if c.result.Error != nil {
			fields = append(fields, observe.F("error", c.result.Error))
		}
		if c.to == StatusHealthy {
			m.logger.Info(ctx, "health check recovered", fields...)
		} else {
			m.logger.Warn(ctx, "health check status changed", fields...)
		}
		if m.config.OnChange != nil {
			m.config.OnChange(c.name, c.from, c.to)
		}
	}
	return report
}

// Last returns the most recent report. It is the zero Report before the
// first round.
func (m *Monitor) Last() Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

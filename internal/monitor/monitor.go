// Package monitor polls the Linggen backend's health in the background,
// reports status transitions and keeps the editor's MCP registration in
// step with backend availability.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linggen/linggen-editor/internal/backend"
	"github.com/linggen/linggen-editor/internal/config"
	"github.com/linggen/linggen-editor/internal/integration"
	"github.com/linggen/linggen-editor/internal/metrics"
	"github.com/linggen/linggen-editor/internal/state"
)

// Status is the short text shown in the status bar.
type Status string

const (
	StatusChecking Status = "checking…"
	StatusRunning  Status = "running"
	StatusOffline  Status = "offline"
	StatusOff      Status = "monitoring off"
)

// Update is one status change.
type Update struct {
	Status  Status `json:"status"`
	Tooltip string `json:"tooltip"`
	BaseURL string `json:"base_url"`
}

// HealthChecker reports backend reachability. *backend.Client satisfies it.
type HealthChecker interface {
	CheckServerHealth(ctx context.Context) bool
}

// FlagStore persists boolean flags. *state.Store satisfies it.
type FlagStore interface {
	Bool(ctx context.Context, key string, def bool) bool
	Set(ctx context.Context, key string, v interface{}) error
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options configures a Monitor. Zero durations and counts take the
// defaults below.
type Options struct {
	Enabled  bool
	Interval time.Duration
	BaseURL  string

	// Checker defaults to a backend client for BaseURL.
	Checker HealthChecker
	// Registrar, when set, receives the MCP server registration.
	Registrar integration.Registrar
	State     FlagStore
	Metrics   *metrics.Registry
	// OnUpdate is called from the monitor goroutine on every status change.
	OnUpdate func(Update)

	Probe         integration.Prober
	ReadyAttempts int
	ReadyInterval time.Duration
	RefreshGap    time.Duration
}

const (
	defaultReadyAttempts = 10
	defaultReadyInterval = time.Second
	defaultRefreshGap    = 1500 * time.Millisecond
)

// OptionsFromConfig maps the healthPoll and backend settings.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Enabled:  cfg.HealthPoll.Enabled,
		Interval: cfg.HealthPoll.Interval(),
		BaseURL:  cfg.Backend.HTTPURL,
	}
}

func (o Options) withDefaults() Options {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.BaseURL == "" {
		o.BaseURL = backend.DefaultBaseURL
	}
	if o.Interval <= 0 {
		o.Interval = 5 * time.Second
	}
	if o.Checker == nil {
		o.Checker = backend.New(o.BaseURL)
	}
	if o.ReadyAttempts <= 0 {
		o.ReadyAttempts = defaultReadyAttempts
	}
	if o.ReadyInterval <= 0 {
		o.ReadyInterval = defaultReadyInterval
	}
	if o.RefreshGap <= 0 {
		o.RefreshGap = defaultRefreshGap
	}
	return o
}

// ---------------------------------------------------------------------------
// Monitor
// ---------------------------------------------------------------------------

// Monitor runs the poll loop. Start, Restart and Stop may be called from
// any goroutine.
type Monitor struct {
	mu      sync.Mutex
	opts    Options
	current Update
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	registering atomic.Bool
}

// New creates a stopped monitor.
func New(opts Options) *Monitor {
	return &Monitor{opts: opts.withDefaults()}
}

// Current returns the latest status.
func (m *Monitor) Current() Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Start begins polling with the current options. A running loop is
// stopped first.
func (m *Monitor) Start(ctx context.Context) {
	m.Stop()

	m.mu.Lock()
	opts := m.opts
	m.mu.Unlock()

	if !opts.Enabled {
		m.publish(opts, Update{
			Status:  StatusOff,
			Tooltip: "Linggen health monitoring is disabled",
			BaseURL: opts.BaseURL,
		})
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx, opts)
	}()
}

// Restart applies new options (e.g. after a config change) and starts
// again from the checking state.
func (m *Monitor) Restart(ctx context.Context, opts Options) {
	m.Stop()
	m.mu.Lock()
	m.opts = opts.withDefaults()
	m.mu.Unlock()
	m.Start(ctx)
}

// Stop cancels the loop and waits for it and any registration in
// progress. Safe to call repeatedly.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) publish(opts Options, u Update) {
	m.mu.Lock()
	changed := m.current != u
	m.current = u
	m.mu.Unlock()

	if changed && opts.OnUpdate != nil {
		opts.OnUpdate(u)
	}
}

// run checks immediately and then on every tick. The first result only
// sets the baseline; later flips are logged as transitions. Either way an
// up result triggers MCP registration.
func (m *Monitor) run(ctx context.Context, opts Options) {
	m.publish(opts, Update{
		Status:  StatusChecking,
		Tooltip: fmt.Sprintf("Linggen: checking server status… (%s)", opts.BaseURL),
		BaseURL: opts.BaseURL,
	})

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var lastHealthy *bool
	for {
		ok := opts.Checker.CheckServerHealth(ctx)
		if ctx.Err() != nil {
			return
		}
		if opts.Metrics != nil {
			opts.Metrics.RecordHealth(ok)
		}

		if ok {
			m.publish(opts, Update{Status: StatusRunning, Tooltip: "Linggen is reachable at " + opts.BaseURL, BaseURL: opts.BaseURL})
		} else {
			m.publish(opts, Update{Status: StatusOffline, Tooltip: "Linggen is not reachable at " + opts.BaseURL, BaseURL: opts.BaseURL})
		}

		switch {
		case lastHealthy == nil:
			lastHealthy = &ok
			if ok {
				m.ensureRegistered(ctx, opts)
			}
		case *lastHealthy != ok:
			lastHealthy = &ok
			word := "DOWN"
			if ok {
				word = "UP"
			}
			slog.Info(fmt.Sprintf("Linggen health changed: %s (%s)", word, opts.BaseURL))
			if ok {
				m.ensureRegistered(ctx, opts)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ============================== REGISTRATION ==============================

// ensureRegistered runs one registration in the background unless one is
// already in flight.
func (m *Monitor) ensureRegistered(ctx context.Context, opts Options) {
	if opts.Registrar == nil {
		return
	}
	if !m.registering.CompareAndSwap(false, true) {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.registering.Store(false)
		m.register(ctx, opts)
	}()
}

// register waits for the MCP endpoint, then registers it (first time) or
// refreshes the registration twice, a moment apart (previously
// configured). Failures are logged only.
func (m *Monitor) register(ctx context.Context, opts Options) {
	mcpURL := integration.MCPURL(opts.BaseURL)
	r := opts.Registrar

	configured := opts.State != nil && opts.State.Bool(ctx, state.KeyMCPConfigured, false)
	if configured {
		slog.Info("Linggen is up, refreshing MCP registration", "url", mcpURL, "registrar", r.Name())
	} else {
		slog.Info("Linggen is up, registering MCP server", "url", mcpURL, "registrar", r.Name())
	}

	if !integration.WaitReady(ctx, mcpURL, opts.ReadyAttempts, opts.ReadyInterval, opts.Probe) {
		slog.Warn("Linggen is up, but MCP endpoint still not responsive", "url", mcpURL)
		m.countRegistration(opts, r, "not_ready")
		return
	}

	if configured {
		m.attempt(opts, "refresh", func() error {
			return integration.Refresh(ctx, r, integration.ServerName, mcpURL)
		})
		select {
		case <-ctx.Done():
			return
		case <-time.After(opts.RefreshGap):
		}
		m.attempt(opts, "refresh", func() error {
			return integration.Refresh(ctx, r, integration.ServerName, mcpURL)
		})
	} else {
		m.attempt(opts, "register", func() error {
			return r.Register(ctx, integration.ServerName, mcpURL)
		})
	}

	if opts.State != nil {
		if err := opts.State.Set(ctx, state.KeyMCPConfigured, true); err != nil {
			slog.Warn("failed to persist MCP configured flag", "error", err)
		}
	}
}

func (m *Monitor) attempt(opts Options, mode string, fn func() error) {
	if err := fn(); err != nil {
		slog.Warn("MCP registration failed", "mode", mode, "registrar", opts.Registrar.Name(), "error", err)
		m.countRegistration(opts, opts.Registrar, mode+"_error")
		return
	}
	m.countRegistration(opts, opts.Registrar, mode)
}

func (m *Monitor) countRegistration(opts Options, r integration.Registrar, outcome string) {
	if opts.Metrics != nil {
		opts.Metrics.Registrations.WithLabelValues(r.Name(), outcome).Inc()
	}
}

package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/nandanugg/gird/module/core/domain"
)

// DebounceMeters is the minimum movement from the last accepted fix for a new fix
// to be evaluated.
const DebounceMeters = 5

type MonitorStatus struct {
	Running bool
	Plan    *domain.PollingPlan
	LastFix *domain.Fix
}

// Monitor is the single writer: one worker goroutine evaluates fixes strictly in
// sequence, then reconfigures polling, before accepting the next fix.
type Monitor struct {
	store    *GeofenceStore
	settings *Settings
	engine   *TransitionEngine
	polling  *PollingController
	logger   *zap.Logger

	// lifecycle serialises Start and Stop end to end and guards teardownPending
	lifecycle       sync.Mutex
	teardownPending bool

	mu      sync.Mutex
	running bool
	fixes   chan domain.Fix
	refresh chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}

	fixMu   sync.RWMutex
	lastFix *domain.Fix
}

func NewMonitor(store *GeofenceStore, settings *Settings, engine *TransitionEngine, polling *PollingController, logger *zap.Logger) *Monitor {
	return &Monitor{
		store:    store,
		settings: settings,
		engine:   engine,
		polling:  polling,
		logger:   logger,
	}
}

// Start launches the worker. The worker outlives ctx's cancellation; use Stop.
// If a previous Stop gave up before its worker exited, Start first waits for
// that worker and finishes its teardown, so there is never more than one writer.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	running, prev := m.running, m.done
	m.mu.Unlock()

	if running {
		return nil
	}
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.teardownPending {
		if err := m.polling.Stop(ctx); err != nil {
			m.report("teardown after stop timeout", err)
		}
		m.teardownPending = false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.fixes = make(chan domain.Fix)
	m.refresh = make(chan struct{}, 1)
	m.done = make(chan struct{})
	m.cancel = cancel
	m.running = true
	m.setLastFix(nil)

	changes, unsubscribe := m.store.Subscribe()
	go m.run(runCtx, m.fixes, m.refresh, changes, unsubscribe, m.done)

	m.logger.Info("monitor started")
	return nil
}

// Stop waits for the in-flight fix to finish, then tears down every subscription.
// Fixes submitted afterwards are discarded with domain.ErrMonitorStopped. When
// ctx expires first, the teardown is left to the next Start.
func (m *Monitor) Stop(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.cancel()
	done := m.done
	m.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		m.teardownPending = true
		return ctx.Err()
	}

	err := m.polling.Stop(ctx)
	m.logger.Info("monitor stopped")
	return err
}

// Submit hands a fix to the worker, blocking until the worker is free to take it.
func (m *Monitor) Submit(ctx context.Context, fix domain.Fix) error {
	m.mu.Lock()
	running, fixes, done := m.running, m.fixes, m.done
	m.mu.Unlock()

	if !running {
		return domain.ErrMonitorStopped
	}
	select {
	case fixes <- fix:
		return nil
	case <-done:
		return domain.ErrMonitorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh asks the worker to recompute the polling plan, e.g. after a mode change.
func (m *Monitor) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	select {
	case m.refresh <- struct{}{}:
	default:
	}
}

func (m *Monitor) Status() MonitorStatus {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	st := MonitorStatus{Running: running, LastFix: m.LastFix()}
	if plan, ok := m.polling.Plan(); ok {
		st.Plan = &plan
	}
	return st
}

func (m *Monitor) LastFix() *domain.Fix {
	m.fixMu.RLock()
	defer m.fixMu.RUnlock()

	if m.lastFix == nil {
		return nil
	}
	fix := *m.lastFix
	return &fix
}

func (m *Monitor) setLastFix(fix *domain.Fix) {
	m.fixMu.Lock()
	defer m.fixMu.Unlock()
	m.lastFix = fix
}

func (m *Monitor) run(ctx context.Context, fixes <-chan domain.Fix, refresh, changes <-chan struct{}, unsubscribe func(), done chan<- struct{}) {
	defer close(done)
	defer unsubscribe()

	// an accepted fix is always processed to completion, even across Stop
	work := context.WithoutCancel(ctx)
	m.reconfigure(work)

	for {
		select {
		case <-ctx.Done():
			return
		case fix := <-fixes:
			m.process(work, fix)
		case <-changes:
			m.reconfigure(work)
		case <-refresh:
			m.reconfigure(work)
		}
	}
}

func (m *Monitor) process(ctx context.Context, fix domain.Fix) {
	if last := m.LastFix(); last != nil && Distance(last.Lat, last.Lon, fix.Lat, fix.Lon) < DebounceMeters {
		m.logger.Debug("fix debounced", zap.Float64("lat", fix.Lat), zap.Float64("lon", fix.Lon))
		return
	}
	m.setLastFix(&fix)

	events, err := m.engine.Evaluate(ctx, fix)
	if err != nil {
		m.report("evaluate fix", err)
	}
	if len(events) > 0 {
		m.logger.Debug("fix evaluated", zap.Int("transitions", len(events)))
	}

	m.reconfigure(ctx)
}

func (m *Monitor) reconfigure(ctx context.Context) {
	if err := m.polling.Start(ctx); err != nil {
		m.report("passive subscription", err)
	}

	plan := ComputePlan(m.settings.PollingMode(), m.store.ActiveFences(), m.LastFix())
	if err := m.polling.Reconfigure(ctx, plan); err != nil {
		m.report("reconfigure polling", err)
	}
}

// report is the single sink for the non-fatal error categories.
func (m *Monitor) report(op string, err error) {
	m.logger.Error(op, zap.String("category", errorCategory(err)), zap.Error(err))
}

func errorCategory(err error) string {
	switch {
	case errors.Is(err, domain.ErrProvider):
		return "provider"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence"
	case errors.Is(err, domain.ErrNotifier):
		return "notifier"
	case errors.Is(err, domain.ErrMalformedRecord):
		return "malformed_record"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "unknown"
}

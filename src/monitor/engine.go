// Package monitor owns the collection loop: it composes the collector,
// analyzer, history, recorder, health checker, and report generator into one
// explicitly constructed engine.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pgpulse/pgpulse/src/analyzer"
	"github.com/pgpulse/pgpulse/src/collector"
	"github.com/pgpulse/pgpulse/src/health"
	"github.com/pgpulse/pgpulse/src/history"
	"github.com/pgpulse/pgpulse/src/models"
	"github.com/pgpulse/pgpulse/src/provider"
	"github.com/pgpulse/pgpulse/src/recorder"
	"github.com/pgpulse/pgpulse/src/report"
)

// ErrCycleInFlight is returned when a collection cycle is requested while a
// previous one is still collecting. The tick is skipped, not queued.
var ErrCycleInFlight = errors.New("collection cycle already in flight")

// ErrNoSnapshot is returned by consumers before the first successful cycle.
var ErrNoSnapshot = errors.New("no snapshot collected yet")

// unavailableAfter is the number of consecutive collection failures after
// which the engine reports "monitoring unavailable" instead of evaluating a
// stale snapshot.
const unavailableAfter = 3

// persistTimeout bounds the fire-and-forget persistence of one snapshot.
const persistTimeout = 30 * time.Second

// Options configures engine timing and capacity.
type Options struct {
	Interval        time.Duration
	SubQueryTimeout time.Duration
	HistoryCapacity int
	TrendWindow     time.Duration
}

// Engine runs the periodic collection loop and owns the rolling history and
// the active thresholds. One engine per process is a caller-enforced
// convention; the engine itself carries no global state.
type Engine struct {
	collector *collector.MetricsCollector
	analyzer  *analyzer.IssueAnalyzer
	history   *history.MetricsHistory
	recorder  *recorder.MetricsRecorder // nil when no sink is configured
	checker   *health.HealthChecker
	reports   *report.ReportGenerator
	log       *logrus.Logger

	interval    time.Duration
	trendWindow time.Duration

	mu         sync.RWMutex
	thresholds models.AlertThresholds

	inFlight atomic.Bool
	failures atomic.Uint32
}

// New constructs an engine with its collaborators injected. sink may be nil
// to disable persistence.
func New(p provider.StatisticsProvider, sink recorder.Sink, thresholds models.AlertThresholds, log *logrus.Logger, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = 60 * time.Second
	}
	if opts.TrendWindow <= 0 {
		opts.TrendWindow = time.Hour
	}

	e := &Engine{
		collector:   collector.NewMetricsCollector(p, log, opts.SubQueryTimeout),
		analyzer:    analyzer.NewIssueAnalyzer(),
		history:     history.New(opts.HistoryCapacity),
		checker:     health.NewHealthChecker(),
		reports:     report.NewReportGenerator(),
		log:         log,
		interval:    opts.Interval,
		trendWindow: opts.TrendWindow,
		thresholds:  thresholds,
	}
	if sink != nil {
		e.recorder = recorder.NewMetricsRecorder(sink, log)
	}
	return e
}

// Start drives collection cycles until the context is cancelled. It is the
// single writer into the history; a tick arriving while a cycle is still in
// flight is logged and skipped rather than queued.
func (e *Engine) Start(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.log.Info("Monitoring engine started")

	// Initial collection
	e.runTick(ctx)

	for {
		select {
		case <-ctx.Done():
			e.log.Info("Monitoring engine stopped")
			return
		case <-ticker.C:
			e.runTick(ctx)
		}
	}
}

func (e *Engine) runTick(ctx context.Context) {
	if err := e.RunCycle(ctx); err != nil {
		if errors.Is(err, ErrCycleInFlight) {
			e.log.Warn("Skipping collection tick: previous cycle still running")
		}
		// Collection failures are already logged by RunCycle; the driver
		// simply retries on the next tick.
	}
}

// RunCycle performs one collect-analyze-append-persist cycle. Cycles are not
// reentrant: a concurrent call returns ErrCycleInFlight.
func (e *Engine) RunCycle(ctx context.Context) error {
	if !e.inFlight.CompareAndSwap(false, true) {
		return ErrCycleInFlight
	}
	defer e.inFlight.Store(false)

	thresholds := e.Thresholds()

	snapshot, err := e.collector.Collect(ctx, thresholds)
	if err != nil {
		n := e.failures.Add(1)
		e.log.Errorf("Collection cycle failed (%d consecutive): %v", n, err)
		return err
	}

	// Issues are attached exactly once, before the snapshot becomes visible.
	snapshot.Issues = e.analyzer.Analyze(snapshot, thresholds)
	e.history.Append(*snapshot)
	e.failures.Store(0)

	e.log.WithFields(logrus.Fields{
		"connections": snapshot.ActiveConnections,
		"issues":      len(snapshot.Issues),
	}).Debug("Collection cycle completed")

	if e.recorder != nil {
		snap := *snapshot
		go func() {
			persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := e.recorder.Persist(persistCtx, &snap); err != nil {
				e.log.Warnf("Snapshot persistence degraded: %v", err)
			}
		}()
	}

	return nil
}

// Thresholds returns the active alert thresholds.
func (e *Engine) Thresholds() models.AlertThresholds {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.thresholds
}

// SetThresholds replaces the thresholds wholesale. Partial updates are not
// supported; merging fields under concurrent reads is exactly the race this
// avoids.
func (e *Engine) SetThresholds(t models.AlertThresholds) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}

	e.mu.Lock()
	e.thresholds = t
	e.mu.Unlock()

	e.log.Info("Alert thresholds replaced")
	return nil
}

// Latest returns the most recent snapshot, if one exists.
func (e *Engine) Latest() (models.Snapshot, bool) {
	return e.history.Latest()
}

// Window returns the retained snapshots within d of now, oldest first.
func (e *Engine) Window(d time.Duration) []models.Snapshot {
	return e.history.Window(d)
}

// Status is the engine's health verdict. Unavailable marks the monitoring
// pipeline itself as broken (repeated collection failures, or no snapshot
// collected yet), which is a different failure mode than an unhealthy
// monitored system: a stale snapshot must never be evaluated as if it were
// current.
type Status struct {
	Healthy     bool
	Unavailable bool
	Reasons     []string
}

// Status reports the current verdict.
func (e *Engine) Status() Status {
	if n := e.failures.Load(); n >= unavailableAfter {
		return Status{
			Unavailable: true,
			Reasons:     []string{fmt.Sprintf("monitoring unavailable: %d consecutive collection failures", n)},
		}
	}

	latest, ok := e.history.Latest()
	if !ok {
		return Status{
			Unavailable: true,
			Reasons:     []string{"monitoring unavailable: no snapshot collected yet"},
		}
	}

	healthy, reasons := e.checker.Check(latest, e.Thresholds())
	return Status{Healthy: healthy, Reasons: reasons}
}

// Health reports the current verdict as a plain pass/fail with reasons.
func (e *Engine) Health() (bool, []string) {
	s := e.Status()
	return s.Healthy, s.Reasons
}

// Report renders the current report from the latest snapshot and the
// configured trend window.
func (e *Engine) Report() (models.Report, error) {
	latest, ok := e.history.Latest()
	if !ok {
		return models.Report{}, ErrNoSnapshot
	}
	return e.reports.Render(latest, e.history.Window(e.trendWindow)), nil
}

// ReportMarkdown renders the current report as markdown.
func (e *Engine) ReportMarkdown() (string, error) {
	r, err := e.Report()
	if err != nil {
		return "", err
	}
	return e.reports.Markdown(r), nil
}

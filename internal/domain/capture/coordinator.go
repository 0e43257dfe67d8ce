package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ganot/sitewatch/internal/autosave"
	"github.com/ganot/sitewatch/internal/domain/website"
	"github.com/ganot/sitewatch/internal/notify"
	"github.com/google/uuid"
)

// DefaultGraceDelay keeps a finished job visible before resetting to idle.
const DefaultGraceDelay = 2 * time.Second

// Config wires a Coordinator.
type Config struct {
	Registry Registry
	Engine   Engine
	Source   ProgressSource
	Runs     RunRepository
	Alerts   *notify.Center
	Logger   *slog.Logger
	Clock    autosave.Clock
	Grace    time.Duration
}

// Coordinator owns the lifecycle of the single exclusive bulk capture job
// and the per-record single captures. It learns about bulk progress only
// through the engine's event stream; the engine is authoritative for
// completion and cancellation.
type Coordinator struct {
	registry Registry
	engine   Engine
	source   ProgressSource
	runs     RunRepository
	alerts   *notify.Center
	logger   *slog.Logger
	clock    autosave.Clock
	grace    time.Duration

	mu        sync.Mutex
	job       Job
	capturing map[int64]bool
	watchers  map[int]chan Progress
	nextWatch int

	sub  Subscription
	done chan struct{}
}

// NewCoordinator creates a Coordinator in the idle state.
func NewCoordinator(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = autosave.SystemClock()
	}
	grace := cfg.Grace
	if grace <= 0 {
		grace = DefaultGraceDelay
	}
	return &Coordinator{
		registry:  cfg.Registry,
		engine:    cfg.Engine,
		source:    cfg.Source,
		runs:      cfg.Runs,
		alerts:    cfg.Alerts,
		logger:    logger,
		clock:     clock,
		grace:     grace,
		job:       Job{Status: StatusIdle},
		capturing: make(map[int64]bool),
		watchers:  make(map[int]chan Progress),
	}
}

// Start subscribes to the progress stream and begins consuming events.
// Must be called once per coordinator; Close disposes the subscription.
func (c *Coordinator) Start(ctx context.Context) error {
	sub, err := c.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to progress stream: %w", err)
	}
	c.sub = sub
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-sub.Events():
				if !ok {
					return
				}
				c.handleProgress(ctx, p)
			}
		}
	}()
	return nil
}

// Close unsubscribes from the progress stream and waits for the consumer
// to stop, so no events can reach a torn-down coordinator.
func (c *Coordinator) Close() error {
	if c.sub == nil {
		return nil
	}
	err := c.sub.Close()
	<-c.done
	return err
}

// Job returns a copy of the current bulk job state.
func (c *Coordinator) Job() Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	job := c.job
	job.Errors = append([]string(nil), c.job.Errors...)
	return job
}

// Watch registers a progress listener for the dashboard. Slow listeners
// miss intermediate events rather than blocking the coordinator; the
// terminal snapshot is retrievable via Job at any time.
func (c *Coordinator) Watch() (<-chan Progress, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextWatch
	c.nextWatch++
	ch := make(chan Progress, 8)
	c.watchers[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.watchers[id]; ok {
			delete(c.watchers, id)
			close(ch)
		}
	}
}

func (c *Coordinator) broadcast(p Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.watchers {
		select {
		case ch <- p:
		default:
		}
	}
}

// StartBulk asks the engine to begin a batch capture over the whole
// registry. Fails fast with ErrAlreadyRunning if a job is active. A start
// request that itself fails is terminal: state returns to idle immediately.
func (c *Coordinator) StartBulk(ctx context.Context) error {
	c.mu.Lock()
	if c.job.Status != StatusIdle {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.job = Job{
		RunID:     uuid.NewString(),
		Status:    StatusRunning,
		Total:     c.registry.Count(),
		StartedAt: time.Now().UTC(),
	}
	c.mu.Unlock()

	if err := c.engine.StartBulkCapture(ctx); err != nil {
		c.mu.Lock()
		c.job = Job{Status: StatusIdle}
		c.mu.Unlock()
		c.alert(notify.LevelError, fmt.Sprintf("could not start bulk screenshots: %v", err))
		return fmt.Errorf("starting bulk capture: %w", err)
	}

	c.logger.Info("bulk capture started", "total", c.Job().Total)
	return nil
}

// Cancel requests cancellation of the running bulk job. The job stays in
// cancelling until the engine acknowledges with a terminal progress event.
// If the cancel request itself fails the true backend state is unknown, so
// the job state is left as-is and the failure reported.
func (c *Coordinator) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.job.Status != StatusRunning {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.job.Status = StatusCancelling
	c.mu.Unlock()

	if err := c.engine.CancelBulkCapture(ctx); err != nil {
		c.alert(notify.LevelWarning, "cancel request failed; capture state unknown")
		return fmt.Errorf("cancelling bulk capture: %w", err)
	}
	return nil
}

// handleProgress folds one engine event into the job state. Events arriving
// when no job is active (stale runs, duplicated terminal events) are
// dropped: only the first terminal event triggers the reload/clear
// sequence.
func (c *Coordinator) handleProgress(ctx context.Context, p Progress) {
	c.mu.Lock()
	if c.job.Status != StatusRunning && c.job.Status != StatusCancelling {
		c.mu.Unlock()
		return
	}
	wasCancelling := c.job.Status == StatusCancelling
	c.job.Total = p.Total
	c.job.Completed = p.Completed
	c.job.CurrentTarget = p.CurrentWebsite
	c.job.CurrentID = p.CurrentID
	c.job.Errors = append([]string(nil), p.Errors...)

	if !p.IsComplete {
		c.mu.Unlock()
		c.broadcast(p)
		return
	}

	runID := c.job.RunID
	run := &Run{
		ID:         runID,
		StartedAt:  c.job.StartedAt,
		FinishedAt: time.Now().UTC(),
		Total:      p.Total,
		Completed:  p.Completed,
		Errors:     append([]string(nil), p.Errors...),
		Outcome:    runOutcome(wasCancelling, p),
	}
	if wasCancelling {
		// Cancellation acknowledged: discard immediately.
		c.job = Job{Status: StatusIdle}
	} else {
		c.job.Status = StatusComplete
		c.job.CurrentTarget = ""
		c.job.CurrentID = 0
	}
	c.mu.Unlock()
	c.broadcast(p)

	// Results were written by the engine out-of-process; reload to see them.
	if _, err := c.registry.Load(ctx); err != nil {
		c.logger.Error("registry reload after bulk capture failed", "error", err)
		c.alert(notify.LevelError, "could not reload websites after screenshots")
	}

	if c.runs != nil {
		if err := c.runs.RecordRun(ctx, run); err != nil {
			c.logger.Error("recording bulk run failed", "run_id", runID, "error", err)
		}
	}

	if len(p.Errors) > 0 {
		c.alert(notify.LevelWarning, fmt.Sprintf("screenshots completed with %d errors", len(p.Errors)))
	}
	c.logger.Info("bulk capture finished", "run_id", runID, "outcome", run.Outcome, "errors", len(p.Errors))

	if !wasCancelling {
		c.clock.AfterFunc(c.grace, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.job.RunID == runID && c.job.Status == StatusComplete {
				c.job = Job{Status: StatusIdle}
			}
		})
	}
}

func runOutcome(cancelled bool, p Progress) string {
	switch {
	case cancelled:
		return OutcomeCancelled
	case len(p.Errors) > 0:
		return OutcomeDegraded
	default:
		return OutcomeComplete
	}
}

// TakeSingle captures one website outside the bulk state machine. The
// record's transient capture flag is set for the duration and cleared on
// every exit; on failure the record keeps its prior state.
func (c *Coordinator) TakeSingle(ctx context.Context, id int64) error {
	rec, ok := c.registry.Get(id)
	if !ok {
		return ErrUnknownWebsite
	}

	c.mu.Lock()
	if c.capturing[id] {
		c.mu.Unlock()
		return ErrCaptureInFlight
	}
	// Don't race the bulk job over the record it is processing right now.
	if c.job.Status != StatusIdle && c.job.CurrentID == id {
		c.mu.Unlock()
		return ErrCaptureInFlight
	}
	c.capturing[id] = true
	c.mu.Unlock()

	inFlight := true
	c.registry.UpdateOne(id, website.Patch{IsCapturing: &inFlight})
	defer func() {
		done := false
		c.registry.UpdateOne(id, website.Patch{IsCapturing: &done})
		c.mu.Lock()
		delete(c.capturing, id)
		c.mu.Unlock()
	}()

	shot, err := c.engine.CaptureScreenshot(ctx, rec.URL)
	if err != nil {
		c.alert(notify.LevelError, fmt.Sprintf("screenshot of %s failed", rec.Name))
		return fmt.Errorf("capturing %s: %w", rec.URL, err)
	}

	now := time.Now().UTC()
	c.registry.UpdateOne(id, website.Patch{Screenshot: &shot, LastChecked: &now})
	return nil
}

// CheckOne runs a health check for a single website and applies the result.
func (c *Coordinator) CheckOne(ctx context.Context, id int64) (website.Website, error) {
	rec, ok := c.registry.Get(id)
	if !ok {
		return website.Website{}, ErrUnknownWebsite
	}

	res, err := c.engine.CheckSite(ctx, rec.URL)
	if err != nil {
		c.alert(notify.LevelError, fmt.Sprintf("check of %s failed", rec.Name))
		return website.Website{}, fmt.Errorf("checking %s: %w", rec.URL, err)
	}

	now := time.Now().UTC()
	c.registry.UpdateOne(id, website.Patch{
		Status:      &res.Status,
		Vitals:      &res.Vitals,
		LastChecked: &now,
	})
	updated, _ := c.registry.Get(id)
	return updated, nil
}

// CheckAll sequentially checks every website. Per-site failures keep the
// original record and are summarized in a single notification.
func (c *Coordinator) CheckAll(ctx context.Context) (checked, failed int, err error) {
	for _, rec := range c.registry.Snapshot() {
		if ctx.Err() != nil {
			return checked, failed, ctx.Err()
		}
		res, checkErr := c.engine.CheckSite(ctx, rec.URL)
		if checkErr != nil {
			c.logger.Warn("site check failed", "url", rec.URL, "error", checkErr)
			failed++
			continue
		}
		now := time.Now().UTC()
		c.registry.UpdateOne(rec.ID, website.Patch{
			Status:      &res.Status,
			Vitals:      &res.Vitals,
			LastChecked: &now,
		})
		checked++
	}
	if failed > 0 {
		c.alert(notify.LevelWarning, fmt.Sprintf("%d of %d site checks failed", failed, checked+failed))
	}
	return checked, failed, nil
}

// History returns the most recent bulk runs.
func (c *Coordinator) History(ctx context.Context, limit int) ([]Run, error) {
	if c.runs == nil {
		return nil, nil
	}
	return c.runs.ListRuns(ctx, limit)
}

func (c *Coordinator) alert(level notify.Level, message string) {
	if c.alerts != nil {
		c.alerts.Add(level, message)
	}
}

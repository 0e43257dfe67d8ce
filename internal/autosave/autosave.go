// Package autosave turns registry change notifications into debounced,
// serialized writes to durable storage. It is independent of any transport
// or rendering concern: callers wire a save function and call Trigger on
// every change.
package autosave

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ganot/sitewatch/internal/notify"
)

// Clock abstracts timer creation so debounce behavior is testable without
// real sleeps.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a stoppable pending callback.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

type systemTimer struct{ t *time.Timer }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{t: time.AfterFunc(d, fn)}
}

func (t systemTimer) Stop() bool { return t.t.Stop() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

// SaveFunc pushes the current registry snapshot to durable storage. It must
// take its snapshot when called, not earlier, so a queued follow-up save
// always carries the latest state.
type SaveFunc func(ctx context.Context) error

// DefaultDelay coalesces rapid successive edits while staying short enough
// to feel instantaneous.
const DefaultDelay = 300 * time.Millisecond

// Synchronizer debounces change notifications and guarantees at most one
// save in flight. A change arriving mid-save queues exactly one follow-up,
// issued after the in-flight save settles. Failed saves are reported and
// dropped; the next change triggers a fresh attempt.
type Synchronizer struct {
	save   SaveFunc
	delay  time.Duration
	clock  Clock
	logger *slog.Logger
	alerts *notify.Center

	mu       sync.Mutex
	settled  *sync.Cond
	timer    Timer
	inflight bool
	pending  bool
	closed   bool
	wg       sync.WaitGroup
}

// New creates a Synchronizer. A nil clock uses the system clock; a
// non-positive delay uses DefaultDelay.
func New(save SaveFunc, delay time.Duration, clock Clock, alerts *notify.Center, logger *slog.Logger) *Synchronizer {
	if clock == nil {
		clock = SystemClock()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Synchronizer{
		save:   save,
		delay:  delay,
		clock:  clock,
		logger: logger,
		alerts: alerts,
	}
	s.settled = sync.NewCond(&s.mu)
	return s
}

// Trigger (re)starts the debounce window. Safe to call from any goroutine.
func (s *Synchronizer) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(s.delay, s.fire)
}

func (s *Synchronizer) fire() {
	s.mu.Lock()
	s.timer = nil
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.inflight {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.inflight = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run()
}

// run issues saves until no follow-up is queued. Only one run loop exists
// at a time.
func (s *Synchronizer) run() {
	defer s.wg.Done()
	for {
		if err := s.save(context.Background()); err != nil {
			s.logger.Error("registry save failed", "error", err)
			if s.alerts != nil {
				s.alerts.Add(notify.LevelError, fmt.Sprintf("saving websites failed: %v", err))
			}
		}

		s.mu.Lock()
		if s.pending && !s.closed {
			s.pending = false
			s.mu.Unlock()
			continue
		}
		s.inflight = false
		s.settled.Broadcast()
		s.mu.Unlock()
		return
	}
}

// Flush performs one synchronous save, bypassing the debounce window. Used
// at shutdown so the final registry state is not lost to a pending timer.
// The save runs through the same in-flight slot as debounced saves, so a
// timer firing mid-flush queues a follow-up instead of starting a second
// concurrent write.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	for s.inflight && !s.closed {
		s.settled.Wait()
	}
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.inflight = true
	s.pending = false
	s.wg.Add(1)
	s.mu.Unlock()

	err := s.save(ctx)

	s.mu.Lock()
	rearm := s.pending && !s.closed
	s.pending = false
	s.inflight = false
	s.settled.Broadcast()
	s.mu.Unlock()
	s.wg.Done()

	if rearm {
		s.Trigger()
	}
	return err
}

// Close stops the debounce timer and waits for any in-flight save.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.settled.Broadcast()
	s.mu.Unlock()
	s.wg.Wait()
}

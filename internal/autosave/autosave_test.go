package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ganot/sitewatch/internal/notify"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (c *fakeClock) AfterFunc(_ time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// fire runs every armed timer, as if the debounce window elapsed.
func (c *fakeClock) fire() {
	c.mu.Lock()
	timers := c.timers
	c.timers = nil
	c.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.fn()
		}
	}
}

func TestSynchronizer_CoalescesRapidTriggers(t *testing.T) {
	clock := &fakeClock{}
	value := 0
	var mu sync.Mutex
	var saved []int

	s := New(func(context.Context) error {
		mu.Lock()
		saved = append(saved, value)
		mu.Unlock()
		return nil
	}, time.Second, clock, nil, nil)
	defer s.Close()

	value = 1
	s.Trigger()
	value = 2
	s.Trigger()
	value = 3
	s.Trigger()

	clock.fire()
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{3}, saved, "exactly one save carrying the final state")
}

func TestSynchronizer_AtMostOneInFlight(t *testing.T) {
	clock := &fakeClock{}
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0

	s := New(func(context.Context) error {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		started <- struct{}{}
		if first {
			<-release
		}
		return nil
	}, time.Second, clock, nil, nil)

	s.Trigger()
	clock.fire()
	<-started // first save is now in flight

	// New change arrives while saving: queued, not started.
	s.Trigger()
	clock.fire()
	mu.Lock()
	require.Equal(t, 1, calls)
	mu.Unlock()

	close(release)
	<-started // exactly one follow-up save
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, calls)
}

func TestSynchronizer_FailedSaveDoesNotBlockNext(t *testing.T) {
	clock := &fakeClock{}
	alerts := notify.NewCenter(time.Minute)
	var mu sync.Mutex
	calls := 0

	s := New(func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return errors.New("disk gone")
		}
		return nil
	}, time.Second, clock, alerts, nil)

	s.Trigger()
	clock.fire()
	require.Eventually(t, func() bool {
		return len(alerts.List()) == 1
	}, time.Second, 5*time.Millisecond)

	s.Trigger()
	clock.fire()
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, calls, "next mutation triggers a fresh attempt")
}

func TestSynchronizer_FlushHoldsTheInFlightSlot(t *testing.T) {
	clock := &fakeClock{}
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var mu sync.Mutex
	inflight := 0
	maxInflight := 0
	calls := 0

	s := New(func(context.Context) error {
		mu.Lock()
		calls++
		first := calls == 1
		inflight++
		if inflight > maxInflight {
			maxInflight = inflight
		}
		mu.Unlock()
		started <- struct{}{}
		if first {
			<-release
		}
		mu.Lock()
		inflight--
		mu.Unlock()
		return nil
	}, time.Second, clock, nil, nil)

	flushDone := make(chan error, 1)
	go func() { flushDone <- s.Flush(context.Background()) }()
	<-started // flush save is now in flight

	// Debounce elapses mid-flush: the save must queue, not run concurrently.
	s.Trigger()
	clock.fire()
	mu.Lock()
	require.Equal(t, 1, calls)
	mu.Unlock()

	close(release)
	require.NoError(t, <-flushDone)
	clock.fire() // flush re-armed the debounce for the queued change
	<-started
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, calls)
	require.Equal(t, 1, maxInflight, "never more than one save in flight")
}

func TestSynchronizer_FlushWaitsForInFlightSave(t *testing.T) {
	clock := &fakeClock{}
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var mu sync.Mutex
	inflight := 0
	maxInflight := 0

	s := New(func(context.Context) error {
		mu.Lock()
		inflight++
		if inflight > maxInflight {
			maxInflight = inflight
		}
		first := maxInflight == 1 && inflight == 1
		mu.Unlock()
		started <- struct{}{}
		if first {
			<-release
		}
		mu.Lock()
		inflight--
		mu.Unlock()
		return nil
	}, time.Second, clock, nil, nil)

	s.Trigger()
	clock.fire()
	<-started // debounced save is now in flight

	flushDone := make(chan error, 1)
	go func() { flushDone <- s.Flush(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	require.Equal(t, 1, maxInflight, "flush blocked behind the running save")
	mu.Unlock()

	close(release)
	require.NoError(t, <-flushDone)
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, maxInflight)
}

func TestSynchronizer_FlushSavesPendingState(t *testing.T) {
	clock := &fakeClock{}
	var mu sync.Mutex
	calls := 0

	s := New(func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	}, time.Second, clock, nil, nil)

	s.Trigger() // debounce armed but never fires
	require.NoError(t, s.Flush(context.Background()))
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
}

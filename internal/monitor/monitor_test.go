package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundry-notifier/internal/feed"
	"laundry-notifier/internal/metrics"
	"laundry-notifier/internal/model"
)

// scriptedSource returns its batches in order and then repeats the last one.
type scriptedSource struct {
	mu      sync.Mutex
	batches []feed.Batch
	errs    []error
	calls   int
	delay   time.Duration

	inFlight    int32
	maxInFlight int32
}

func (s *scriptedSource) Fetch(ctx context.Context) (feed.Batch, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		old := atomic.LoadInt32(&s.maxInFlight)
		if n <= old || atomic.CompareAndSwapInt32(&s.maxInFlight, old, n) {
			break
		}
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return feed.Batch{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return feed.Batch{}, s.errs[i]
	}
	if i >= len(s.batches) {
		i = len(s.batches) - 1
	}
	return s.batches[i], nil
}

func (s *scriptedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []model.TransitionEvent
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, event model.TransitionEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) take() []model.TransitionEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.events
	d.events = nil
	return out
}

func machine(id string, status model.Status) model.Snapshot {
	return model.Snapshot{ID: id, Name: "Machine " + id, Number: id, IsWasher: true, Status: status, Cycle: model.UnknownCycle}
}

func batch(snaps ...model.Snapshot) feed.Batch {
	return feed.Batch{Snapshots: snaps}
}

func newTestMonitor(src feed.Source, d Dispatcher) *Monitor {
	return New(src, d, 10*time.Millisecond, metrics.New(prometheus.NewRegistry()))
}

func TestMonitor_PollOnce(t *testing.T) {
	src := &scriptedSource{batches: []feed.Batch{
		batch(machine("A1", model.StatusAvailable), machine("B1", model.StatusFinished)),
		batch(machine("A1", model.StatusInUse), machine("B1", model.StatusFinished)),
		batch(machine("A1", model.StatusInUse)),
		batch(machine("A1", model.StatusFinished)),
	}}
	d := &recordingDispatcher{}
	m := newTestMonitor(src, d)
	ctx := context.Background()

	assert.Nil(t, m.Current())

	// Cycle 1: B1 is first seen as FINISHED.
	events, err := m.PollOnce(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	dispatched := d.take()
	require.Len(t, dispatched, 1)
	assert.Equal(t, "B1", dispatched[0].Current.ID)
	assert.Nil(t, dispatched[0].Previous)
	assert.True(t, dispatched[0].Finished)

	// Cycle 2: A1 starts; B1 is still FINISHED and is reported again.
	_, err = m.PollOnce(ctx)
	require.NoError(t, err)
	dispatched = d.take()
	require.Len(t, dispatched, 2)
	assert.Equal(t, "A1", dispatched[0].Current.ID)
	assert.False(t, dispatched[0].Finished)
	assert.Equal(t, "B1", dispatched[1].Current.ID)

	// Cycle 3: B1 disappears, nothing changes for A1.
	_, err = m.PollOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, d.take())
	_, ok := m.Current().Get("B1")
	assert.False(t, ok)

	// Cycle 4: A1 finishes.
	_, err = m.PollOnce(ctx)
	require.NoError(t, err)
	dispatched = d.take()
	require.Len(t, dispatched, 1)
	assert.True(t, dispatched[0].Finished)
	require.NotNil(t, dispatched[0].Previous)
	assert.Equal(t, model.StatusInUse, dispatched[0].Previous.Status)
}

func TestMonitor_FetchErrorKeepsGeneration(t *testing.T) {
	src := &scriptedSource{
		batches: []feed.Batch{
			batch(machine("A1", model.StatusInUse)),
			batch(machine("A1", model.StatusInUse)),
			batch(machine("A1", model.StatusAvailable)),
		},
		errs: []error{nil, errors.New("upstream down")},
	}
	d := &recordingDispatcher{}
	m := newTestMonitor(src, d)
	ctx := context.Background()

	_, err := m.PollOnce(ctx)
	require.NoError(t, err)
	before := m.Current()

	_, err = m.PollOnce(ctx)
	assert.Error(t, err)
	assert.Same(t, before, m.Current(), "a failed cycle must not swap the generation")

	_, err = m.PollOnce(ctx)
	require.NoError(t, err)
	dispatched := d.take()
	require.Len(t, dispatched, 1)
	assert.True(t, dispatched[0].Finished, "IN_USE to AVAILABLE is still detected after the failed cycle")
}

func TestMonitor_SkippedMachineIsNotATransition(t *testing.T) {
	src := &scriptedSource{batches: []feed.Batch{
		batch(machine("A1", model.StatusInUse)),
		{Skipped: []string{"A1"}},
		batch(machine("A1", model.StatusAvailable)),
	}}
	d := &recordingDispatcher{}
	m := newTestMonitor(src, d)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := m.PollOnce(ctx)
		require.NoError(t, err)
	}
	assert.Empty(t, d.take())
	carried, ok := m.Current().Get("A1")
	require.True(t, ok)
	assert.Equal(t, model.StatusInUse, carried.Status)

	_, err := m.PollOnce(ctx)
	require.NoError(t, err)
	dispatched := d.take()
	require.Len(t, dispatched, 1)
	assert.True(t, dispatched[0].Finished)
}

func TestMonitor_StartStop(t *testing.T) {
	src := &scriptedSource{batches: []feed.Batch{batch(machine("A1", model.StatusInUse))}}
	m := newTestMonitor(src, &recordingDispatcher{})

	m.Start(context.Background())
	assert.Eventually(t, func() bool { return src.callCount() >= 3 }, time.Second, 5*time.Millisecond)
	m.Stop()

	calls := src.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, src.callCount(), "no cycle runs after Stop returns")
	require.NotNil(t, m.Current())
	assert.Equal(t, 1, m.Current().Len())
}

func TestMonitor_StopAbandonsInFlightFetch(t *testing.T) {
	src := &scriptedSource{
		batches: []feed.Batch{batch(machine("A1", model.StatusInUse))},
		delay:   time.Hour,
	}
	m := newTestMonitor(src, &recordingDispatcher{})

	m.Start(context.Background())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&src.inFlight) == 1 }, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	assert.Nil(t, m.Current(), "the abandoned cycle published nothing")
}

func TestMonitor_CyclesNeverOverlap(t *testing.T) {
	src := &scriptedSource{
		batches: []feed.Batch{batch(machine("A1", model.StatusInUse))},
		delay:   5 * time.Millisecond,
	}
	m := New(src, &recordingDispatcher{}, time.Millisecond, metrics.New(prometheus.NewRegistry()))

	m.Start(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.PollOnce(context.Background())
		}()
	}
	wg.Wait()
	m.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&src.maxInFlight))
}

// Package monitor drives the poll cycle: fetch a batch, diff it against the
// current generation, hand the interesting events to the dispatcher, and
// publish the new generation.
package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"laundry-notifier/internal/feed"
	"laundry-notifier/internal/metrics"
	"laundry-notifier/internal/model"
	"laundry-notifier/internal/notification"
	"laundry-notifier/internal/transition"
)

// Dispatcher receives the events of a cycle that somebody may need to act on.
type Dispatcher interface {
	Dispatch(ctx context.Context, event model.TransitionEvent) error
}

// Monitor owns the current generation. Only one cycle runs at a time.
type Monitor struct {
	source     feed.Source
	dispatcher Dispatcher
	interval   time.Duration
	debug      bool
	metrics    *metrics.Metrics

	current atomic.Pointer[transition.Generation]
	cycleMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a monitor polling source every interval.
func New(source feed.Source, dispatcher Dispatcher, interval time.Duration, m *metrics.Metrics) *Monitor {
	return &Monitor{
		source:     source,
		dispatcher: dispatcher,
		interval:   interval,
		metrics:    m,
	}
}

// SetDebug enables a log line per machine per cycle.
func (m *Monitor) SetDebug(debug bool) {
	m.debug = debug
}

// Current returns the latest complete generation, or nil before the first
// successful cycle. The returned generation is never modified.
func (m *Monitor) Current() *transition.Generation {
	return m.current.Load()
}

// Start runs the poll loop in a background goroutine.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		m.run(ctx)
	}()
}

// Stop cancels the poll loop and waits for it to exit. A cycle that is
// fetching when Stop is called is abandoned without touching the current
// generation.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

func (m *Monitor) run(ctx context.Context) {
	log.Printf("Starting machine monitor, polling every %s", m.interval)

	m.cycle(ctx)

	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Machine monitor shutting down.")
			return
		case <-timer.C:
			m.cycle(ctx)
			// Reset only after the cycle, so an overrunning cycle delays the next one.
			timer.Reset(m.interval)
		}
	}
}

func (m *Monitor) cycle(ctx context.Context) {
	if _, err := m.PollOnce(ctx); err != nil {
		log.Printf("Poll cycle skipped: %v", err)
	}
}

// PollOnce runs one complete cycle and returns every event it computed. On a
// fetch error the current generation is kept and no event is dispatched.
func (m *Monitor) PollOnce(ctx context.Context) ([]model.TransitionEvent, error) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	start := time.Now()
	batch, err := m.source.Fetch(ctx)
	if err != nil {
		m.metrics.PollCycles.WithLabelValues("fetch_error").Inc()
		return nil, fmt.Errorf("fetch machines: %w", err)
	}
	if len(batch.Skipped) > 0 {
		m.metrics.SkippedMachines.Add(float64(len(batch.Skipped)))
	}

	events, next := transition.Diff(m.current.Load(), batch.Snapshots, batch.Skipped)
	m.metrics.PollDuration.Observe(time.Since(start).Seconds())

	for _, event := range events {
		m.logEvent(event)
		if !event.Finished && !event.StatusChanged() {
			continue
		}
		if event.Finished {
			m.metrics.Finished.Inc()
		}
		if err := m.dispatcher.Dispatch(ctx, event); err != nil {
			log.Printf("Error dispatching event for machine %s: %v", event.Current.ID, err)
		}
	}

	m.current.Store(next)
	m.metrics.Machines.Set(float64(next.Len()))
	m.metrics.PollCycles.WithLabelValues("ok").Inc()
	return events, nil
}

func (m *Monitor) logEvent(event model.TransitionEvent) {
	cur := event.Current
	if event.Finished {
		prev := "none"
		if event.Previous != nil {
			prev = string(event.Previous.Status)
		}
		log.Printf("Machine %s has finished! Status: %s -> %s", cur.Number, prev, cur.Status)
	}
	if m.debug {
		log.Printf("[DEBUG] %s: %s (%s remaining)", cur.Number, cur.Status, notification.FormatRemaining(cur.RemainingSeconds))
	}
}

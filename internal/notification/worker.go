package notification

import (
	"context"
	"hash/fnv"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"laundry-notifier/internal/events"
	"laundry-notifier/internal/metrics"
	"laundry-notifier/internal/model"
	"laundry-notifier/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Engagements is the part of the tracker the notifier updates.
type Engagements interface {
	TakePending(machineID string, kind model.NoticeKind) model.Engagement
	ClearMachine(machineID string)
}

// WorkerPool turns transition events into push notifications. Events are
// sharded by machine id, so one machine's events are handled in order by a
// single worker.
type WorkerPool struct {
	jobs      []chan model.TransitionEvent
	store     store.Store
	tracker   Engagements
	webpush   *webpush.Options
	sender    NotificationSender
	publisher events.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewWorkerPool creates a new worker pool with size workers.
func NewWorkerPool(size int, st store.Store, tr Engagements, webpushOptions *webpush.Options, m *metrics.Metrics) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	jobs := make([]chan model.TransitionEvent, size)
	for i := range jobs {
		jobs[i] = make(chan model.TransitionEvent, 16)
	}
	return &WorkerPool{
		jobs:      jobs,
		store:     st,
		tracker:   tr,
		webpush:   webpushOptions,
		sender:    &WebPushSender{}, // Use the real sender by default
		publisher: events.Discard{},
		metrics:   m,
		now:       time.Now,
	}
}

// SetPublisher makes the pool forward every handled event to p.
func (wp *WorkerPool) SetPublisher(p events.Publisher) {
	wp.publisher = p
}

// Start launches the worker goroutines. They exit when ctx is done.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := range wp.jobs {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log.Printf("Worker %d started", id)
	for {
		select {
		case event := <-wp.jobs[id]:
			wp.Handle(ctx, event)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down (%d jobs dropped)", id, len(wp.jobs[id]))
			return
		}
	}
}

// Dispatch queues event on the worker that owns its machine. It blocks while
// that worker's queue is full, until ctx is done.
func (wp *WorkerPool) Dispatch(ctx context.Context, event model.TransitionEvent) error {
	select {
	case wp.jobs[wp.shard(event.Current.ID)] <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *WorkerPool) shard(machineID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(machineID))
	return int(h.Sum32() % uint32(len(wp.jobs)))
}

// Handle processes one event: publish it, notify whoever is waiting on a
// finished machine, and drop the machine's engagement once it is available
// again.
func (wp *WorkerPool) Handle(ctx context.Context, event model.TransitionEvent) {
	machineID := event.Current.ID

	if err := wp.publisher.Publish(ctx, event); err != nil {
		log.Printf("Error publishing transition for machine %s: %v", machineID, err)
	}

	if event.Finished {
		wp.notifyFinished(ctx, event)
	}

	if event.Current.Status == model.StatusAvailable && event.StatusChanged() {
		wp.tracker.ClearMachine(machineID)
	}
}

type recipient struct {
	userID  string
	message string
}

func (wp *WorkerPool) notifyFinished(ctx context.Context, event model.TransitionEvent) {
	machine := event.Current
	// Recipients are marked before delivery, so a snoop added while pushes
	// are in flight is left for the next reading.
	pending := wp.tracker.TakePending(machine.ID, model.NoticeCompletion)

	var recipients []recipient
	if pending.Claim != nil {
		recipients = append(recipients, recipient{userID: pending.Claim.UserID, message: claimantMessage(machine)})
	}
	for _, s := range pending.Snoops {
		if pending.Claim != nil && s.UserID == pending.Claim.UserID {
			continue
		}
		recipients = append(recipients, recipient{userID: s.UserID, message: snooperMessage(machine)})
	}

	if len(recipients) > 0 {
		log.Printf("Sending completion notifications for machine %s to %d users", machine.ID, len(recipients))
		wp.deliver(ctx, recipients)
	}

	if freshFinish(event) {
		wp.record(ctx, event, len(recipients))
	}
}

// freshFinish excludes repeated FINISHED readings of the same load.
func freshFinish(event model.TransitionEvent) bool {
	return event.Previous == nil || event.Previous.Status != model.StatusFinished
}

func (wp *WorkerPool) deliver(ctx context.Context, recipients []recipient) {
	userIDs := make([]string, 0, len(recipients))
	for _, r := range recipients {
		userIDs = append(userIDs, r.userID)
	}

	subs, err := wp.store.PushSubscriptionsForUsers(ctx, userIDs)
	if err != nil {
		log.Printf("Error fetching push subscriptions: %v", err)
		return
	}
	byUser := make(map[string][]model.PushSubscription, len(subs))
	for _, sub := range subs {
		byUser[sub.UserID] = append(byUser[sub.UserID], sub)
	}

	for _, r := range recipients {
		if len(byUser[r.userID]) == 0 {
			log.Printf("User %s has no push subscription; skipping", r.userID)
			continue
		}
		for _, sub := range byUser[r.userID] {
			wp.sendNotification(ctx, sub, []byte(r.message))
		}
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	// Manually construct the webpush.Subscription object
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		wp.metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		wp.metrics.Notifications.WithLabelValues("expired").Inc()
		if err := wp.store.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
		return
	}
	wp.metrics.Notifications.WithLabelValues("sent").Inc()
}

func (wp *WorkerPool) record(ctx context.Context, event model.TransitionEvent, notified int) {
	rec := &model.FinishRecord{
		MachineID:   event.Current.ID,
		MachineName: event.Current.Name,
		Status:      string(event.Current.Status),
		Cycle:       event.Current.Cycle,
		Notified:    notified,
		ObservedAt:  wp.now().UTC(),
	}
	if event.Previous != nil {
		rec.PreviousStatus = string(event.Previous.Status)
	}
	if err := wp.store.RecordFinish(ctx, rec); err != nil {
		log.Printf("Error recording finish: %v", err)
	}
}

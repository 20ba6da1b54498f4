// Package events publishes transition events to NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"laundry-notifier/internal/model"
)

// Publisher delivers transition events to interested external consumers.
type Publisher interface {
	Publish(ctx context.Context, event model.TransitionEvent) error
}

// Message is the JSON document published for each transition.
type Message struct {
	ID             string    `json:"id"`
	MachineID      string    `json:"machine_id"`
	MachineName    string    `json:"machine_name"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Finished       bool      `json:"finished"`
	ObservedAt     time.Time `json:"observed_at"`
}

// NewMessage builds the published form of event.
func NewMessage(event model.TransitionEvent, observedAt time.Time) Message {
	msg := Message{
		ID:          uuid.NewString(),
		MachineID:   event.Current.ID,
		MachineName: event.Current.Name,
		Status:      string(event.Current.Status),
		Finished:    event.Finished,
		ObservedAt:  observedAt.UTC(),
	}
	if event.Previous != nil {
		msg.PreviousStatus = string(event.Previous.Status)
	}
	return msg
}

// Bus wraps a NATS connection for publishing transition events.
type Bus struct {
	conn    *nats.Conn
	subject string
	now     func() time.Time
}

// New creates a Bus connected to the provided NATS endpoint.
func New(url, subject string, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &Bus{conn: nc, subject: subject, now: time.Now}, nil
}

// Close drains and shuts down the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// Publish encodes event as JSON and publishes it to the bus subject.
func (b *Bus) Publish(ctx context.Context, event model.TransitionEvent) error {
	if b == nil {
		return errors.New("nil bus")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(NewMessage(event, b.now()))
	if err != nil {
		return err
	}
	return b.conn.Publish(b.subject, data)
}

// Discard is a Publisher that drops every event.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, model.TransitionEvent) error { return nil }

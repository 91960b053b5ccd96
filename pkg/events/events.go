package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Event types emitted by the tuition workflow.
const (
	TuitionBatchCreated = "tuition.batch_created"
	TuitionRecordPaid   = "tuition.record_paid"
	TuitionRecordUnpaid = "tuition.record_unpaid"
)

// Event is the envelope published for domain changes.
type Event struct {
	Type       string                 `json:"type"`
	EntityID   string                 `json:"entity_id"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publisher delivers domain events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NATSPublisher publishes each event on `<subject>.<type>`.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// Connect dials NATS and returns a publisher on the given base subject.
func Connect(url, subject, clientName string) (*NATSPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("nats url must not be empty")
	}

	conn, err := nats.Connect(url, nats.Name(clientName), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}
	return NewNATSPublisher(conn, subject), nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: strings.Trim(subject, ".")}
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := Encode(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(Subject(p.subject, event.Type), payload)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Encode serialises the event, stamping the occurrence time when missing.
func Encode(event Event) ([]byte, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return payload, nil
}

// Subject joins the base subject and the event type.
func Subject(base, eventType string) string {
	if base == "" {
		return eventType
	}
	return base + "." + eventType
}

// NopPublisher drops every event. It is used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Package events streams log lifecycle events over NATS JetStream so site
// features like live feeds and ranking rebuilds can react to uploads.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/guy0090/lostarklogs/model"
)

// Publisher publishes log lifecycle events.
type Publisher interface {
	PublishLogCreated(ctx context.Context, log model.Log) error
	PublishLogDeleted(ctx context.Context, id string) error
	PublishLogsPurged(ctx context.Context, creator string, deleted int64) error
	Close() error
}

// Envelope wraps every published event.
type Envelope struct {
	Type          string      `json:"type"`
	Version       string      `json:"version"`
	OccurredAt    time.Time   `json:"occurredAt"`
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload"`
}

// noop is used when NATS is not configured; the service runs fine without
// event streaming.
type noop struct{}

func (n *noop) PublishLogCreated(ctx context.Context, log model.Log) error {
	return nil
}

func (n *noop) PublishLogDeleted(ctx context.Context, id string) error {
	return nil
}

func (n *noop) PublishLogsPurged(ctx context.Context, creator string, deleted int64) error {
	return nil
}

func (n *noop) Close() error { return nil }

// NewNoop returns a publisher that drops every event.
func NewNoop() Publisher {
	return &noop{}
}

type natsPub struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// NewPublisher connects to NATS and prepares the logs stream. An empty URL,
// a failed connection or a failed stream init all fall back to the noop
// publisher so event streaming never blocks startup.
func NewPublisher(url string) Publisher {
	if url == "" {
		return NewNoop()
	}

	nc, err := nats.Connect(url)
	if err != nil {
		slog.Warn("NATS connect failed, using noop publisher", "error", err)
		return NewNoop()
	}

	js, err := nc.JetStream()
	if err != nil {
		slog.Warn("NATS JetStream context creation failed, using noop publisher", "error", err)
		nc.Close()
		return NewNoop()
	}

	if err := initStream(js); err != nil {
		slog.Warn("NATS stream initialization failed, using noop publisher", "error", err)
		nc.Close()
		return NewNoop()
	}

	return &natsPub{nc: nc, js: js}
}

func initStream(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      "LOGS",
		Subjects:  []string{"logs.*"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Discard:   nats.DiscardOld,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create LOGS stream: %w", err)
	}
	return nil
}

func (p *natsPub) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

func (p *natsPub) publish(ctx context.Context, subject string, payload interface{}) error {
	envelope := Envelope{
		Type:          subject,
		Version:       "1.0.0",
		OccurredAt:    time.Now().UTC(),
		CorrelationID: uuid.New().String(),
		Payload:       payload,
	}

	b, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(subject, b)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "event_published", "type", subject, "correlation_id", envelope.CorrelationID)
	return nil
}

func (p *natsPub) PublishLogCreated(ctx context.Context, log model.Log) error {
	return p.publish(ctx, "logs.created", log)
}

func (p *natsPub) PublishLogDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, "logs.deleted", map[string]string{"id": id})
}

func (p *natsPub) PublishLogsPurged(ctx context.Context, creator string, deleted int64) error {
	return p.publish(ctx, "logs.purged", map[string]interface{}{
		"creator": creator,
		"deleted": deleted,
	})
}

package events

import (
	"context"
	"testing"

	"github.com/guy0090/lostarklogs/model"
)

func TestNewPublisherWithoutURL(t *testing.T) {
	pub := NewPublisher("")
	if pub == nil {
		t.Fatal("NewPublisher() returned nil")
	}
	if _, ok := pub.(*noop); !ok {
		t.Errorf("NewPublisher(\"\") = %T, want noop", pub)
	}
}

func TestNewPublisherUnreachableFallsBack(t *testing.T) {
	// Port 1 is never a NATS server; the constructor must fall back
	// instead of failing startup.
	pub := NewPublisher("nats://127.0.0.1:1")
	if _, ok := pub.(*noop); !ok {
		t.Errorf("NewPublisher(unreachable) = %T, want noop", pub)
	}
}

func TestNoopPublishes(t *testing.T) {
	pub := NewNoop()
	ctx := context.Background()

	if err := pub.PublishLogCreated(ctx, model.Log{ID: "log-1"}); err != nil {
		t.Errorf("PublishLogCreated() error = %v", err)
	}
	if err := pub.PublishLogDeleted(ctx, "log-1"); err != nil {
		t.Errorf("PublishLogDeleted() error = %v", err)
	}
	if err := pub.PublishLogsPurged(ctx, "user-1", 3); err != nil {
		t.Errorf("PublishLogsPurged() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

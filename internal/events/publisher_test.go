package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"converto/internal/config"
	"converto/internal/history"
	"converto/internal/media"
)

type fakeChannel struct {
	exchange string
	key      string
	msgs     []amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange = exchange
	f.key = key
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublishEncodesEnvelope(t *testing.T) {
	ch := &fakeChannel{}
	pub := NewPublisher(ch, "converto", "task_history", nil)
	fixed := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	rec := history.Record{ID: 9, UserID: 3, ServiceType: media.ServiceCompression, Status: history.StatusCompleted}
	if err := pub.Publish(context.Background(), rec); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ch.exchange != "converto" || ch.key != "task_history" {
		t.Fatalf("published to %s/%s", ch.exchange, ch.key)
	}
	if len(ch.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ch.msgs))
	}
	msg := ch.msgs[0]
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected publishing: %+v", msg)
	}
	var env Envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if env.Event != EventTaskRecorded || env.Task.ID != 9 || !env.OccurredAt.Equal(fixed) {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestPublishWrapsChannelError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	pub := NewPublisher(ch, "x", "y", nil)
	if err := pub.Publish(context.Background(), history.Record{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCloseStopsPublishing(t *testing.T) {
	ch := &fakeChannel{}
	pub := NewPublisher(ch, "x", "y", nil)
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !ch.closed {
		t.Fatal("expected channel closed")
	}
	if err := pub.Publish(context.Background(), history.Record{}); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestDialWithoutURLIsDisabled(t *testing.T) {
	pub, err := Dial(config.Events{}, nil)
	if err != nil || pub != nil {
		t.Fatalf("Dial() = %v, %v", pub, err)
	}
	var nilPub *Publisher
	if err := nilPub.Publish(context.Background(), history.Record{}); err != nil {
		t.Fatalf("nil publisher Publish: %v", err)
	}
}

package events

import (
	"context"
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

type recordingChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	deadline bool
	closed   bool
}

func (c *recordingChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	_, c.deadline = ctx.Deadline()
	c.exchange, c.key, c.msg = exchange, key, msg
	return nil
}

func (c *recordingChannel) Close() error {
	c.closed = true
	return nil
}

func TestRabbitPublisherPublish(t *testing.T) {
	ch := &recordingChannel{}
	p := &RabbitPublisher{ch: ch, exchange: "agora.events"}

	err := p.Publish(context.Background(), KeyVoteCast, VoteCast{UserID: "usr_1", TargetType: "POST", TargetID: "pst_1", Value: 1, Action: "voted", Score: 3}, "req-1")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if ch.exchange != "agora.events" || ch.key != KeyVoteCast {
		t.Fatalf("published to %s/%s", ch.exchange, ch.key)
	}
	if !ch.deadline {
		t.Fatal("expected a publish deadline")
	}
	if ch.msg.MessageId == "" || ch.msg.Headers["X-Request-ID"] != "req-1" || ch.msg.ContentType != "application/json" {
		t.Fatalf("unexpected message envelope: %+v", ch.msg)
	}

	var decoded VoteCast
	if err := json.Unmarshal(ch.msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.TargetID != "pst_1" || decoded.Score != 3 {
		t.Fatalf("unexpected body: %+v", decoded)
	}

	if err := p.Close(); err != nil || !ch.closed {
		t.Fatalf("Close() = %v, closed=%v", err, ch.closed)
	}
}

func TestNilAndNoopPublishersAreSafe(t *testing.T) {
	var p *RabbitPublisher
	if err := p.Publish(context.Background(), KeyThreadCreated, ThreadCreated{}, ""); err != nil {
		t.Fatalf("nil Publish() = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("nil Close() = %v", err)
	}
	if err := NewNoop().Publish(context.Background(), KeyPostReplied, PostReplied{}, ""); err != nil {
		t.Fatalf("noop Publish() = %v", err)
	}
}

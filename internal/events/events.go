// Package events publishes domain events to a RabbitMQ topic exchange.
package events

import "context"

// Routing keys.
const (
	KeyThreadCreated = "thread.created"
	KeyPostReplied   = "post.replied"
	KeyVoteCast      = "vote.cast"
)

type Publisher interface {
	Publish(ctx context.Context, key string, event any, requestID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(context.Context, string, any, string) error { return nil }

func (NoopPub) Close() error { return nil }

type ThreadCreated struct {
	ThreadID string `json:"thread_id"`
	BoardID  string `json:"board_id"`
	AuthorID string `json:"author_id"`
	Title    string `json:"title"`
}

type PostReplied struct {
	PostID       string `json:"post_id"`
	ThreadID     string `json:"thread_id"`
	ParentPostID string `json:"parent_post_id,omitempty"`
	AuthorID     string `json:"author_id"`
	Depth        int    `json:"depth"`
	Flagged      bool   `json:"flagged"`
}

type VoteCast struct {
	UserID        string `json:"user_id"`
	TargetType    string `json:"target_type"`
	TargetID      string `json:"target_id"`
	Value         int    `json:"value"`
	Action        string `json:"action"`
	PreviousValue int    `json:"previous_value"`
	Score         int    `json:"score"`
}

package search

import "context"

// MaxMatches bounds how many thread ids a text query can contribute to a listing.
const MaxMatches = 1000

// Query describes a thread search request.
type Query struct {
	Text    string
	BoardID string
	Limit   int
}

// ThreadRecord is the data we index for a thread.
type ThreadRecord struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	BoardID string `json:"boardId"`
	Status  string `json:"status"`
}

// Matcher resolves a text query to matching thread ids, best match first.
type Matcher interface {
	MatchThreadIDs(ctx context.Context, q Query) ([]string, error)
	Healthy() bool
}

func (q Query) limit() int {
	if q.Limit <= 0 || q.Limit > MaxMatches {
		return MaxMatches
	}
	return q.Limit
}

package search

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	meili "github.com/meilisearch/meilisearch-go"
)

type fakeIndex struct {
	mu       sync.Mutex
	healthy  bool
	ids      []string
	err      error
	indexed  []ThreadRecord
	lastText string
}

func (f *fakeIndex) Healthy() bool { return f.healthy }

func (f *fakeIndex) MatchThreadIDs(_ context.Context, q Query) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastText = q.Text
	return f.ids, f.err
}

func (f *fakeIndex) IndexThread(t ThreadRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, t)
	return nil
}

func (f *fakeIndex) IndexThreads(ts []ThreadRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, ts...)
	return nil
}

func (f *fakeIndex) DeleteThread(string) error { return nil }

type fakeFallback struct {
	ids     []string
	records []ThreadRecord
	calls   int
}

func (f *fakeFallback) Healthy() bool { return true }

func (f *fakeFallback) MatchThreadIDs(context.Context, Query) ([]string, error) {
	f.calls++
	return f.ids, nil
}

func (f *fakeFallback) LoadAllRecords(context.Context) ([]ThreadRecord, error) {
	return f.records, nil
}

func TestMatchThreadIDsPrefersHealthyMeili(t *testing.T) {
	primary := &fakeIndex{healthy: true, ids: []string{"thr_meili"}}
	fallback := &fakeFallback{ids: []string{"thr_pg"}}
	svc := newService(primary, fallback, nil)

	ids, err := svc.MatchThreadIDs(context.Background(), Query{Text: "pallets"})
	if err != nil {
		t.Fatalf("MatchThreadIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != "thr_meili" || fallback.calls != 0 {
		t.Fatalf("expected meili result only, got %v (fallback calls %d)", ids, fallback.calls)
	}
}

func TestMatchThreadIDsFallsBack(t *testing.T) {
	fallback := &fakeFallback{ids: []string{"thr_pg"}}

	for name, primary := range map[string]*fakeIndex{
		"unhealthy": {healthy: false, ids: []string{"thr_meili"}},
		"erroring":  {healthy: true, err: errors.New("timeout")},
	} {
		fallback.calls = 0
		ids, err := newService(primary, fallback, nil).MatchThreadIDs(context.Background(), Query{Text: "x"})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(ids) != 1 || ids[0] != "thr_pg" || fallback.calls != 1 {
			t.Fatalf("%s: expected pg fallback, got %v", name, ids)
		}
	}

	ids, err := newService(nil, nil, nil).MatchThreadIDs(context.Background(), Query{Text: "x"})
	if err != nil || len(ids) != 0 {
		t.Fatalf("no backends: %v, %v", ids, err)
	}
}

func TestReindexAllFromPG(t *testing.T) {
	primary := &fakeIndex{healthy: true}
	fallback := &fakeFallback{records: []ThreadRecord{{ID: "thr_1"}, {ID: "thr_2"}}}
	newService(primary, fallback, nil).ReindexAllFromPG(context.Background())
	if len(primary.indexed) != 2 {
		t.Fatalf("indexed %d records, want 2", len(primary.indexed))
	}
}

func TestQueryLimitIsCapped(t *testing.T) {
	if got := (Query{}).limit(); got != MaxMatches {
		t.Fatalf("default limit = %d", got)
	}
	if got := (Query{Limit: 50}).limit(); got != 50 {
		t.Fatalf("limit = %d", got)
	}
	if got := (Query{Limit: 5000}).limit(); got != MaxMatches {
		t.Fatalf("oversized limit = %d", got)
	}
}

func TestThreadFilter(t *testing.T) {
	if got := threadFilter(""); got != `status != "ARCHIVED"` {
		t.Fatalf("threadFilter() = %s", got)
	}
	if got := threadFilter("brd_1"); got != `status != "ARCHIVED" AND boardId = "brd_1"` {
		t.Fatalf("threadFilter(brd_1) = %s", got)
	}
}

func TestDecodeString(t *testing.T) {
	hit := meili.Hit{"id": json.RawMessage(`"thr_9"`), "n": json.RawMessage(`3`)}
	if got := decodeString(hit, "id"); got != "thr_9" {
		t.Fatalf("decodeString(id) = %q", got)
	}
	if got := decodeString(hit, "n"); got != "" {
		t.Fatalf("decodeString(n) = %q", got)
	}
	if got := decodeString(hit, "missing"); got != "" {
		t.Fatalf("decodeString(missing) = %q", got)
	}
}

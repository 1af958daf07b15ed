package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Matcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// MatchThreadIDs matches the thread title through the indexed search_vector and the
// body post on the fly, ranked by title relevance.
func (p *PgFTS) MatchThreadIDs(ctx context.Context, q Query) ([]string, error) {
	if strings.TrimSpace(q.Text) == "" {
		return []string{}, nil
	}

	args := []any{q.Text}
	where := `t.status <> 'ARCHIVED' AND (
		t.search_vector @@ plainto_tsquery('simple', $1)
		OR EXISTS (
			SELECT 1 FROM posts p
			WHERE p.thread_id = t.id AND p.parent_post_id IS NULL AND NOT p.is_deleted
				AND to_tsvector('simple', p.body) @@ plainto_tsquery('simple', $1)
		)
	)`
	if q.BoardID != "" {
		args = append(args, q.BoardID)
		where += fmt.Sprintf(" AND t.board_id = $%d", len(args))
	}
	args = append(args, q.limit())

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT t.id
		FROM threads t
		WHERE %s
		ORDER BY ts_rank(t.search_vector, plainto_tsquery('simple', $1)) DESC, t.created_at DESC
		LIMIT $%d
	`, where, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgfts scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgfts iterate: %w", err)
	}
	return ids, nil
}

// LoadAllRecords returns every thread with its body for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ThreadRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT t.id, t.title, COALESCE(b.body, ''), t.board_id, t.status
		FROM threads t
		LEFT JOIN LATERAL (
			SELECT p.body FROM posts p
			WHERE p.thread_id = t.id AND p.parent_post_id IS NULL AND NOT p.is_deleted
			ORDER BY p.created_at ASC, p.id ASC
			LIMIT 1
		) b ON TRUE
	`)
	if err != nil {
		return nil, fmt.Errorf("load threads: %w", err)
	}
	defer rows.Close()

	threads := make([]ThreadRecord, 0)
	for rows.Next() {
		var t ThreadRecord
		if err := rows.Scan(&t.ID, &t.Title, &t.Body, &t.BoardID, &t.Status); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return threads, nil
}

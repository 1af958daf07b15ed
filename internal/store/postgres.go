package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"agora/api/internal/comments"
	"agora/api/internal/vote"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) EnsureUserByName(ctx context.Context, id, name string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, role, created_at FROM users WHERE display_name = $1
	`, name).Scan(&user.ID, &user.DisplayName, &user.Role, &user.CreatedAt)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (display_name) DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id, display_name, role, created_at
	`, id, name).Scan(&user.ID, &user.DisplayName, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, role, created_at FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

func (s *PostgresStore) ListBoards(ctx context.Context) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, name, description, sort_order, created_at
		FROM boards
		ORDER BY sort_order ASC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	items := make([]Board, 0)
	for rows.Next() {
		var item Board
		if err := rows.Scan(&item.ID, &item.Slug, &item.Name, &item.Description, &item.SortOrder, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return items, nil
}

// GetBoard accepts either the board id or its slug.
func (s *PostgresStore) GetBoard(ctx context.Context, idOrSlug string) (Board, error) {
	var item Board
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slug, name, description, sort_order, created_at
		FROM boards
		WHERE id = $1 OR slug = $1
		LIMIT 1
	`, idOrSlug).Scan(&item.ID, &item.Slug, &item.Name, &item.Description, &item.SortOrder, &item.CreatedAt)
	if err != nil {
		return Board{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertBoard(ctx context.Context, board Board) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boards (id, slug, name, description, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slug) DO NOTHING
	`, board.ID, board.Slug, board.Name, board.Description, board.SortOrder)
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}
	return nil
}

const threadColumns = `
	t.id, t.board_id, t.author_id, t.author_name, t.title, t.status, t.is_pinned, t.is_locked,
	t.created_at, t.last_post_at,
	GREATEST((SELECT COUNT(*) FROM posts p WHERE p.thread_id = t.id AND NOT p.is_deleted) - 1, 0)::int
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (Thread, error) {
	var item Thread
	err := row.Scan(
		&item.ID, &item.BoardID, &item.AuthorID, &item.AuthorName, &item.Title, &item.Status,
		&item.IsPinned, &item.IsLocked, &item.CreatedAt, &item.LastPostAt, &item.ReplyCount,
	)
	return item, err
}

func (s *PostgresStore) GetThread(ctx context.Context, threadID string) (Thread, error) {
	item, err := scanThread(s.db.QueryRowContext(ctx, `SELECT `+threadColumns+` FROM threads t WHERE t.id = $1`, threadID))
	if err != nil {
		return Thread{}, err
	}
	return item, nil
}

// threadWhere renders the shared WHERE clause and its args for a ThreadFilter.
func threadWhere(filter ThreadFilter) (string, []any) {
	clauses := []string{"t.status <> 'ARCHIVED'"}
	args := make([]any, 0, 3)
	if filter.BoardID != "" {
		args = append(args, filter.BoardID)
		clauses = append(clauses, fmt.Sprintf("t.board_id = $%d", len(args)))
	}
	if filter.RestrictToIDs {
		ids := filter.IDs
		if ids == nil {
			ids = []string{}
		}
		args = append(args, ids)
		clauses = append(clauses, fmt.Sprintf("t.id = ANY($%d::text[])", len(args)))
	}
	if !filter.CreatedAfter.IsZero() {
		args = append(args, filter.CreatedAfter)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func (s *PostgresStore) queryThreads(ctx context.Context, query string, args ...any) ([]Thread, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	items := make([]Thread, 0)
	for rows.Next() {
		item, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return items, nil
}

// ListThreadCandidates returns the most recent matching threads, newest first, for in-memory ranking.
func (s *PostgresStore) ListThreadCandidates(ctx context.Context, filter ThreadFilter, limit int) ([]Thread, error) {
	where, args := threadWhere(filter)
	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT %s FROM threads t
		WHERE %s
		ORDER BY t.created_at DESC
		LIMIT $%d
	`, threadColumns, where, len(args))
	return s.queryThreads(ctx, query, args...)
}

// ListThreadsPage pages matching threads pinned first, then newest first.
func (s *PostgresStore) ListThreadsPage(ctx context.Context, filter ThreadFilter, limit, offset int) ([]Thread, error) {
	where, args := threadWhere(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s FROM threads t
		WHERE %s
		ORDER BY t.is_pinned DESC, t.created_at DESC
		LIMIT $%d OFFSET $%d
	`, threadColumns, where, len(args)-1, len(args))
	return s.queryThreads(ctx, query, args...)
}

func (s *PostgresStore) CountThreads(ctx context.Context, filter ThreadFilter) (int, error) {
	where, args := threadWhere(filter)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threads t WHERE `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count threads: %w", err)
	}
	return count, nil
}

// CreateThread inserts the thread and its body post together.
func (s *PostgresStore) CreateThread(ctx context.Context, thread Thread, body Post) (Thread, Post, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO threads (id, board_id, author_id, author_name, title, status, is_pinned, is_locked)
			VALUES ($1, $2, $3, $4, $5, 'OPEN', FALSE, FALSE)
			RETURNING status, created_at, last_post_at
		`, thread.ID, thread.BoardID, thread.AuthorID, thread.AuthorName, thread.Title).Scan(
			&thread.Status, &thread.CreatedAt, &thread.LastPostAt,
		); err != nil {
			return fmt.Errorf("insert thread: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO posts (id, thread_id, parent_post_id, author_id, author_name, body)
			VALUES ($1, $2, NULL, $3, $4, $5)
			RETURNING created_at
		`, body.ID, thread.ID, body.AuthorID, body.AuthorName, body.Body).Scan(&body.CreatedAt); err != nil {
			return fmt.Errorf("insert thread body: %w", err)
		}
		return nil
	})
	if err != nil {
		return Thread{}, Post{}, err
	}
	body.ThreadID = thread.ID
	return thread, body, nil
}

const postColumns = `id, thread_id, parent_post_id, author_id, author_name, body, is_deleted, deleted_reason, created_at`

func scanPost(row rowScanner) (Post, error) {
	var item Post
	var parent sql.NullString
	err := row.Scan(&item.ID, &item.ThreadID, &parent, &item.AuthorID, &item.AuthorName, &item.Body,
		&item.IsDeleted, &item.DeletedReason, &item.CreatedAt)
	if err != nil {
		return Post{}, err
	}
	if parent.Valid {
		item.ParentPostID = &parent.String
	}
	return item, nil
}

// ListThreadPosts returns every post of the thread in creation order, deleted ones included.
func (s *PostgresStore) ListThreadPosts(ctx context.Context, threadID string) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE thread_id = $1
		ORDER BY created_at ASC, id ASC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	items := make([]Post, 0)
	for rows.Next() {
		item, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetPost(ctx context.Context, postID string) (Post, error) {
	item, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postID))
	if err != nil {
		return Post{}, err
	}
	return item, nil
}

// PostParent matches comments.ParentLookup outside of any transaction.
func (s *PostgresStore) PostParent(ctx context.Context, postID string) (string, bool, error) {
	return lookupParent(ctx, s.db, postID, false)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func lookupParent(ctx context.Context, q queryRower, postID string, lock bool) (string, bool, error) {
	query := `SELECT parent_post_id FROM posts WHERE id = $1`
	if lock {
		query += ` FOR SHARE`
	}
	var parent sql.NullString
	err := q.QueryRowContext(ctx, query, postID).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup parent post: %w", err)
	}
	return parent.String, true, nil
}

// InsertReply adds a reply to an open thread. The thread row is locked for update and every
// ancestor is share-locked while the depth cap is re-checked, so the chain the check saw is the
// chain the reply lands in.
func (s *PostgresStore) InsertReply(ctx context.Context, post Post) (Post, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var status string
		var locked bool
		err := tx.QueryRowContext(ctx, `
			SELECT status, is_locked FROM threads WHERE id = $1 FOR UPDATE
		`, post.ThreadID).Scan(&status, &locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock thread: %w", err)
		}
		switch {
		case status == ThreadArchived:
			return ErrThreadArchived
		case locked || status == ThreadLocked:
			return ErrThreadLocked
		}

		parentID := post.ParentID()
		if parentID != "" {
			var threadID string
			var deleted bool
			err := tx.QueryRowContext(ctx, `
				SELECT thread_id, is_deleted FROM posts WHERE id = $1 FOR SHARE
			`, parentID).Scan(&threadID, &deleted)
			if errors.Is(err, sql.ErrNoRows) || (err == nil && threadID != post.ThreadID) {
				return ErrParentNotFound
			}
			if err != nil {
				return fmt.Errorf("lock parent post: %w", err)
			}
			if deleted {
				return ErrTargetDeleted
			}
		}

		depth, err := comments.ValidateReplyDepth(ctx, parentID, func(ctx context.Context, id string) (string, bool, error) {
			return lookupParent(ctx, tx, id, true)
		})
		if err != nil {
			return err
		}
		post.Depth = depth

		if err := tx.QueryRowContext(ctx, `
			INSERT INTO posts (id, thread_id, parent_post_id, author_id, author_name, body)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`, post.ID, post.ThreadID, post.ParentPostID, post.AuthorID, post.AuthorName, post.Body).Scan(&post.CreatedAt); err != nil {
			return fmt.Errorf("insert reply: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE threads SET last_post_at = NOW() WHERE id = $1`, post.ThreadID); err != nil {
			return fmt.Errorf("bump thread activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return Post{}, err
	}
	return post, nil
}

// CastVote applies one vote request for userID on the target inside a single transaction.
// A concurrent first vote by the same user loses the insert race and is re-applied once
// against the row that won, so retries converge instead of duplicating.
func (s *PostgresStore) CastVote(ctx context.Context, userID string, targetType vote.TargetType, targetID string, value int) (vote.Result, error) {
	var result vote.Result
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkVoteTarget(ctx, tx, targetType, targetID); err != nil {
			return err
		}

		for attempt := 0; attempt < 2; attempt++ {
			current, err := lockVote(ctx, tx, userID, targetType, targetID)
			if err != nil {
				return err
			}
			next, action, err := vote.Transition(current, value)
			if err != nil {
				return err
			}
			result = vote.Result{Action: action, PreviousValue: int(current)}

			switch action {
			case vote.ActionVoted:
				res, err := tx.ExecContext(ctx, `
					INSERT INTO votes (user_id, target_type, target_id, value)
					VALUES ($1, $2, $3, $4)
					ON CONFLICT (user_id, target_type, target_id) DO NOTHING
				`, userID, string(targetType), targetID, int(next))
				if err != nil {
					return fmt.Errorf("insert vote: %w", err)
				}
				affected, err := res.RowsAffected()
				if err != nil {
					return fmt.Errorf("insert vote rows: %w", err)
				}
				if affected == 0 {
					continue
				}
			case vote.ActionRemoved:
				if _, err := tx.ExecContext(ctx, `
					DELETE FROM votes WHERE user_id = $1 AND target_type = $2 AND target_id = $3
				`, userID, string(targetType), targetID); err != nil {
					return fmt.Errorf("delete vote: %w", err)
				}
			case vote.ActionChanged:
				if _, err := tx.ExecContext(ctx, `
					UPDATE votes SET value = $4, updated_at = NOW()
					WHERE user_id = $1 AND target_type = $2 AND target_id = $3
				`, userID, string(targetType), targetID, int(next)); err != nil {
					return fmt.Errorf("update vote: %w", err)
				}
			}
			return nil
		}
		return fmt.Errorf("cast vote: concurrent writer kept winning")
	})
	if err != nil {
		return vote.Result{}, err
	}
	return result, nil
}

func checkVoteTarget(ctx context.Context, tx *sql.Tx, targetType vote.TargetType, targetID string) error {
	switch targetType {
	case vote.TargetThread:
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM threads WHERE id = $1`, targetID).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lookup vote thread: %w", err)
		}
		if status == ThreadArchived {
			return ErrThreadArchived
		}
	case vote.TargetPost:
		var deleted bool
		var status string
		err := tx.QueryRowContext(ctx, `
			SELECT p.is_deleted, t.status
			FROM posts p
			JOIN threads t ON t.id = p.thread_id
			WHERE p.id = $1
		`, targetID).Scan(&deleted, &status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lookup vote post: %w", err)
		}
		if deleted {
			return ErrTargetDeleted
		}
		if status == ThreadArchived {
			return ErrThreadArchived
		}
	default:
		return vote.ErrInvalidTargetType
	}
	return nil
}

func lockVote(ctx context.Context, tx *sql.Tx, userID string, targetType vote.TargetType, targetID string) (vote.State, error) {
	var value int
	err := tx.QueryRowContext(ctx, `
		SELECT value FROM votes
		WHERE user_id = $1 AND target_type = $2 AND target_id = $3
		FOR UPDATE
	`, userID, string(targetType), targetID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return vote.None, nil
	}
	if err != nil {
		return vote.None, fmt.Errorf("lookup vote: %w", err)
	}
	return vote.State(value), nil
}

// ScoresFor sums votes per target in one round trip. Targets without votes are absent.
func (s *PostgresStore) ScoresFor(ctx context.Context, targetType vote.TargetType, ids []string) (map[string]int, error) {
	totals := make(map[string]int)
	if len(ids) == 0 {
		return totals, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT target_id, COALESCE(SUM(value), 0)::int
		FROM votes
		WHERE target_type = $1 AND target_id = ANY($2::text[])
		GROUP BY target_id
	`, string(targetType), ids)
	if err != nil {
		return nil, fmt.Errorf("list vote totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var targetID string
		var total int
		if err := rows.Scan(&targetID, &total); err != nil {
			return nil, fmt.Errorf("scan vote total: %w", err)
		}
		totals[targetID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote totals: %w", err)
	}
	return totals, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

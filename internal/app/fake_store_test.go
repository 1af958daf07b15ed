package app

import (
	"context"
	"database/sql"
	"time"

	"agora/api/internal/config"
	"agora/api/internal/store"
	"agora/api/internal/vote"
)

type fakeStore struct {
	ensureUserByNameFn     func(context.Context, string, string) (store.User, error)
	getUserByIDFn          func(context.Context, string) (store.User, error)
	isAccessTokenRevokedFn func(context.Context, string) (bool, error)
	revokeAccessTokenFn    func(context.Context, string, time.Time) error
	listBoardsFn           func(context.Context) ([]store.Board, error)
	getBoardFn             func(context.Context, string) (store.Board, error)
	getThreadFn            func(context.Context, string) (store.Thread, error)
	listThreadCandidatesFn func(context.Context, store.ThreadFilter, int) ([]store.Thread, error)
	listThreadsPageFn      func(context.Context, store.ThreadFilter, int, int) ([]store.Thread, error)
	countThreadsFn         func(context.Context, store.ThreadFilter) (int, error)
	createThreadFn         func(context.Context, store.Thread, store.Post) (store.Thread, store.Post, error)
	listThreadPostsFn      func(context.Context, string) ([]store.Post, error)
	getPostFn              func(context.Context, string) (store.Post, error)
	postParentFn           func(context.Context, string) (string, bool, error)
	insertReplyFn          func(context.Context, store.Post) (store.Post, error)
	castVoteFn             func(context.Context, string, vote.TargetType, string, int) (vote.Result, error)
	scoresForFn            func(context.Context, vote.TargetType, []string) (map[string]int, error)
	pingFn                 func(context.Context) error
}

func (f *fakeStore) EnsureUserByName(ctx context.Context, id, name string) (store.User, error) {
	if f.ensureUserByNameFn != nil {
		return f.ensureUserByNameFn(ctx, id, name)
	}
	return store.User{ID: id, DisplayName: name, Role: "member"}, nil
}
func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	if f.revokeAccessTokenFn != nil {
		return f.revokeAccessTokenFn(ctx, jti, exp)
	}
	return nil
}
func (f *fakeStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if f.isAccessTokenRevokedFn != nil {
		return f.isAccessTokenRevokedFn(ctx, jti)
	}
	return false, nil
}
func (f *fakeStore) ListBoards(ctx context.Context) ([]store.Board, error) {
	if f.listBoardsFn != nil {
		return f.listBoardsFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) GetBoard(ctx context.Context, idOrSlug string) (store.Board, error) {
	if f.getBoardFn != nil {
		return f.getBoardFn(ctx, idOrSlug)
	}
	if idOrSlug == defaultBoardSlug || idOrSlug == defaultBoardID {
		return store.Board{ID: defaultBoardID, Slug: defaultBoardSlug, Name: "General"}, nil
	}
	return store.Board{}, sql.ErrNoRows
}
func (f *fakeStore) InsertBoard(context.Context, store.Board) error { return nil }
func (f *fakeStore) GetThread(ctx context.Context, threadID string) (store.Thread, error) {
	if f.getThreadFn != nil {
		return f.getThreadFn(ctx, threadID)
	}
	return store.Thread{}, sql.ErrNoRows
}
func (f *fakeStore) ListThreadCandidates(ctx context.Context, filter store.ThreadFilter, limit int) ([]store.Thread, error) {
	if f.listThreadCandidatesFn != nil {
		return f.listThreadCandidatesFn(ctx, filter, limit)
	}
	return nil, nil
}
func (f *fakeStore) ListThreadsPage(ctx context.Context, filter store.ThreadFilter, limit, offset int) ([]store.Thread, error) {
	if f.listThreadsPageFn != nil {
		return f.listThreadsPageFn(ctx, filter, limit, offset)
	}
	return nil, nil
}
func (f *fakeStore) CountThreads(ctx context.Context, filter store.ThreadFilter) (int, error) {
	if f.countThreadsFn != nil {
		return f.countThreadsFn(ctx, filter)
	}
	return 0, nil
}
func (f *fakeStore) CreateThread(ctx context.Context, thread store.Thread, body store.Post) (store.Thread, store.Post, error) {
	if f.createThreadFn != nil {
		return f.createThreadFn(ctx, thread, body)
	}
	thread.Status = store.ThreadOpen
	body.ThreadID = thread.ID
	return thread, body, nil
}
func (f *fakeStore) ListThreadPosts(ctx context.Context, threadID string) ([]store.Post, error) {
	if f.listThreadPostsFn != nil {
		return f.listThreadPostsFn(ctx, threadID)
	}
	return nil, nil
}
func (f *fakeStore) GetPost(ctx context.Context, postID string) (store.Post, error) {
	if f.getPostFn != nil {
		return f.getPostFn(ctx, postID)
	}
	return store.Post{}, sql.ErrNoRows
}
func (f *fakeStore) PostParent(ctx context.Context, postID string) (string, bool, error) {
	if f.postParentFn != nil {
		return f.postParentFn(ctx, postID)
	}
	return "", false, nil
}
func (f *fakeStore) InsertReply(ctx context.Context, post store.Post) (store.Post, error) {
	if f.insertReplyFn != nil {
		return f.insertReplyFn(ctx, post)
	}
	return post, nil
}
func (f *fakeStore) CastVote(ctx context.Context, userID string, targetType vote.TargetType, targetID string, value int) (vote.Result, error) {
	if f.castVoteFn != nil {
		return f.castVoteFn(ctx, userID, targetType, targetID, value)
	}
	return vote.Result{Action: vote.ActionVoted}, nil
}
func (f *fakeStore) ScoresFor(ctx context.Context, targetType vote.TargetType, ids []string) (map[string]int, error) {
	if f.scoresForFn != nil {
		return f.scoresForFn(ctx, targetType, ids)
	}
	return map[string]int{}, nil
}
func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

// memoryLedger is a vote table keyed like the real one, driven by the same transition function.
type memoryLedger struct {
	rows map[string]int
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{rows: make(map[string]int)}
}

func ledgerKey(userID string, targetType vote.TargetType, targetID string) string {
	return userID + "|" + string(targetType) + "|" + targetID
}

func (l *memoryLedger) cast(_ context.Context, userID string, targetType vote.TargetType, targetID string, value int) (vote.Result, error) {
	key := ledgerKey(userID, targetType, targetID)
	current := vote.State(l.rows[key])
	next, action, err := vote.Transition(current, value)
	if err != nil {
		return vote.Result{}, err
	}
	if next == vote.None {
		delete(l.rows, key)
	} else {
		l.rows[key] = int(next)
	}
	return vote.Result{Action: action, PreviousValue: int(current)}, nil
}

func (l *memoryLedger) scores(_ context.Context, targetType vote.TargetType, ids []string) (map[string]int, error) {
	out := make(map[string]int)
	for _, id := range ids {
		for key, value := range l.rows {
			if ledgerKeyMatches(key, targetType, id) {
				out[id] += value
			}
		}
	}
	return out, nil
}

func ledgerKeyMatches(key string, targetType vote.TargetType, id string) bool {
	suffix := "|" + string(targetType) + "|" + id
	return len(key) > len(suffix) && key[len(key)-len(suffix):] == suffix
}

func (l *memoryLedger) rowsFor(targetType vote.TargetType, id string) []int {
	var values []int
	for key, value := range l.rows {
		if ledgerKeyMatches(key, targetType, id) {
			values = append(values, value)
		}
	}
	return values
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "test-secret",
		AccessTTL:       time.Hour,
		CORSOrigin:      "*",
		CandidateWindow: 200,
		MaxBodyRunes:    10000,
	}
}

func newTestService(fs *fakeStore) *Service {
	return New(testConfig(), fs, Options{})
}

func memberSession() Session {
	return Session{UserID: "usr_1", UserName: "Avery", Role: "member"}
}

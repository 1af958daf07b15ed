package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"agora/api/internal/auth"
	"agora/api/internal/comments"
	"agora/api/internal/config"
	"agora/api/internal/events"
	"agora/api/internal/logging"
	"agora/api/internal/metrics"
	"agora/api/internal/ranking"
	"agora/api/internal/rbac"
	"agora/api/internal/search"
	"agora/api/internal/store"
	"agora/api/internal/util"
	"agora/api/internal/vote"
)

type Session struct {
	Token     string
	UserID    string
	UserName  string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

type ListThreadsInput struct {
	Board    string
	Sort     string
	Period   string
	Query    string
	Page     int
	PageSize int
}

type CreateThreadInput struct {
	BoardID string `json:"boardId"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

type ReplyInput struct {
	Body         string `json:"body"`
	ParentPostID string `json:"parentPostId"`
}

type VoteInput struct {
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
	Value      int    `json:"value"`
}

const (
	defaultPageSize  = 20
	maxPageSize      = 100
	minTitleRunes    = 3
	maxTitleRunes    = 300
	maxNameRunes     = 64
	defaultBoardID   = "brd_general"
	defaultBoardSlug = "general"
)

type dataStore interface {
	EnsureUserByName(context.Context, string, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	ListBoards(context.Context) ([]store.Board, error)
	GetBoard(context.Context, string) (store.Board, error)
	InsertBoard(context.Context, store.Board) error
	GetThread(context.Context, string) (store.Thread, error)
	ListThreadCandidates(context.Context, store.ThreadFilter, int) ([]store.Thread, error)
	ListThreadsPage(context.Context, store.ThreadFilter, int, int) ([]store.Thread, error)
	CountThreads(context.Context, store.ThreadFilter) (int, error)
	CreateThread(context.Context, store.Thread, store.Post) (store.Thread, store.Post, error)
	ListThreadPosts(context.Context, string) ([]store.Post, error)
	GetPost(context.Context, string) (store.Post, error)
	PostParent(context.Context, string) (string, bool, error)
	InsertReply(context.Context, store.Post) (store.Post, error)
	CastVote(context.Context, string, vote.TargetType, string, int) (vote.Result, error)
	ScoresFor(context.Context, vote.TargetType, []string) (map[string]int, error)
	Ping(ctx context.Context) error
}

// TokenRevoker keeps the list of logged-out access tokens until they expire.
type TokenRevoker interface {
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
}

type ThreadSearcher interface {
	MatchThreadIDs(context.Context, search.Query) ([]string, error)
	IndexThread(search.ThreadRecord)
}

// ContentFilter inspects a reply body. Its verdict is reported to the client only
// and never decides whether the reply is stored.
type ContentFilter interface {
	Check(ctx context.Context, body string) (flagged bool, reason string)
}

type noopFilter struct{}

func (noopFilter) Check(context.Context, string) (bool, string) { return false, "" }

type Options struct {
	// Revoker defaults to the data store's revocation table.
	Revoker TokenRevoker
	// Search is optional; without it text queries match nothing.
	Search  ThreadSearcher
	Events  events.Publisher
	Filter  ContentFilter
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type Service struct {
	cfg     config.Config
	store   dataStore
	revoker TokenRevoker
	search  ThreadSearcher
	events  events.Publisher
	filter  ContentFilter
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func New(cfg config.Config, dataStore dataStore, opts Options) *Service {
	svc := &Service{
		cfg:     cfg,
		store:   dataStore,
		revoker: opts.Revoker,
		search:  opts.Search,
		events:  opts.Events,
		filter:  opts.Filter,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		now:     time.Now,
	}
	if svc.revoker == nil {
		svc.revoker = dataStore
	}
	if svc.events == nil {
		svc.events = events.NewNoop()
	}
	if svc.filter == nil {
		svc.filter = noopFilter{}
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// Bootstrap makes sure the default board exists.
func (s *Service) Bootstrap(ctx context.Context) error {
	return s.store.InsertBoard(ctx, store.Board{
		ID:          defaultBoardID,
		Slug:        defaultBoardSlug,
		Name:        "General",
		Description: "Questions, offers and everything else.",
	})
}

func (s *Service) Login(ctx context.Context, name string) (Session, error) {
	userName := strings.TrimSpace(name)
	if userName == "" {
		userName = "User"
	}
	if utf8.RuneCountInString(userName) > maxNameRunes {
		return Session{}, validationError(fmt.Sprintf("name must be at most %d characters", maxNameRunes))
	}

	user, err := s.store.EnsureUserByName(ctx, util.NewID("usr"), userName)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(user)
}

func (s *Service) issueSession(user store.User) (Session, error) {
	claims := auth.NewClaims(user.ID, user.DisplayName, user.Role, util.NewID("jti"), s.now(), s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), claims)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      string(rbac.Normalize(user.Role)),
		JTI:       claims.ID,
		ExpiresAt: claims.Expiry(),
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.revoker.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      string(rbac.Normalize(user.Role)),
		JTI:       claims.ID,
		ExpiresAt: claims.Expiry(),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session) error {
	if session.JTI == "" {
		return nil
	}
	if err := s.revoker.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
		s.logger.Warn("revoke access token", zap.String("user_id", session.UserID), zap.Error(err))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) authorize(session Session, action rbac.Action) error {
	if session.UserID == "" {
		return domainError(http.StatusUnauthorized, "AUTH_REQUIRED", "Sign in required", nil)
	}
	if !s.Can(session.Role, action) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", map[string]any{"action": string(action)})
	}
	return nil
}

type VoteOutcome struct {
	Action        vote.Action `json:"action"`
	PreviousValue int         `json:"previousValue"`
	Score         int         `json:"score"`
}

// CastVote toggles the caller's vote on a thread or post and returns the target's fresh score.
func (s *Service) CastVote(ctx context.Context, session Session, in VoteInput) (VoteOutcome, error) {
	if err := s.authorize(session, rbac.ActionVote); err != nil {
		return VoteOutcome{}, err
	}
	targetType, err := vote.ParseTargetType(in.TargetType)
	if err != nil {
		return VoteOutcome{}, validationError(err.Error())
	}
	targetID := strings.TrimSpace(in.TargetID)
	if targetID == "" {
		return VoteOutcome{}, validationError("targetId is required")
	}
	if in.Value != 1 && in.Value != -1 {
		return VoteOutcome{}, validationError(vote.ErrInvalidValue.Error())
	}

	result, err := s.store.CastVote(ctx, session.UserID, targetType, targetID, in.Value)
	if err != nil {
		if errors.Is(err, store.ErrThreadArchived) {
			return VoteOutcome{}, domainError(http.StatusNotFound, "NOT_FOUND", "Thread is archived", nil)
		}
		return VoteOutcome{}, err
	}

	scores, err := s.store.ScoresFor(ctx, targetType, []string{targetID})
	if err != nil {
		return VoteOutcome{}, err
	}
	outcome := VoteOutcome{Action: result.Action, PreviousValue: result.PreviousValue, Score: scores[targetID]}

	s.metrics.VoteCast(string(targetType), string(result.Action))
	s.publish(ctx, events.KeyVoteCast, events.VoteCast{
		UserID:        session.UserID,
		TargetType:    string(targetType),
		TargetID:      targetID,
		Value:         in.Value,
		Action:        string(result.Action),
		PreviousValue: result.PreviousValue,
		Score:         outcome.Score,
	})
	return outcome, nil
}

type ThreadView struct {
	ID         string    `json:"id"`
	BoardID    string    `json:"boardId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	IsPinned   bool      `json:"isPinned"`
	IsLocked   bool      `json:"isLocked"`
	CreatedAt  time.Time `json:"createdAt"`
	LastPostAt time.Time `json:"lastPostAt"`
	ReplyCount int       `json:"replyCount"`
	Score      int       `json:"score"`
}

func threadView(t store.Thread, score int) ThreadView {
	return ThreadView{
		ID:         t.ID,
		BoardID:    t.BoardID,
		AuthorID:   t.AuthorID,
		AuthorName: t.AuthorName,
		Title:      t.Title,
		Status:     t.Status,
		IsPinned:   t.IsPinned,
		IsLocked:   t.Locked(),
		CreatedAt:  t.CreatedAt,
		LastPostAt: t.LastPostAt,
		ReplyCount: t.ReplyCount,
		Score:      score,
	}
}

type ThreadPage struct {
	Items    []ThreadView `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
	Sort     string       `json:"sort"`
	Period   string       `json:"period,omitempty"`
}

// ListThreads pages threads by sort mode. The new sort pages in the store; hot and top
// rank a window of the most recent candidates in memory, so an old thread outside the
// window does not surface however high its score.
func (s *Service) ListThreads(ctx context.Context, in ListThreadsInput) (ThreadPage, error) {
	mode, err := ranking.ParseMode(in.Sort)
	if err != nil {
		return ThreadPage{}, validationError(err.Error())
	}
	period, err := ranking.ParsePeriod(in.Period)
	if err != nil {
		return ThreadPage{}, validationError(err.Error())
	}
	page := in.Page
	if page < 1 {
		page = 1
	}
	pageSize := in.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	now := s.now()
	filter := store.ThreadFilter{}
	if board := strings.TrimSpace(in.Board); board != "" {
		found, err := s.store.GetBoard(ctx, board)
		if err != nil {
			return ThreadPage{}, err
		}
		filter.BoardID = found.ID
	}
	if text := strings.TrimSpace(in.Query); text != "" {
		filter.RestrictToIDs = true
		if s.search != nil {
			ids, err := s.search.MatchThreadIDs(ctx, search.Query{Text: text, BoardID: filter.BoardID})
			if err != nil {
				return ThreadPage{}, fmt.Errorf("search threads: %w", err)
			}
			filter.IDs = ids
		}
	}
	if mode == ranking.ModeTop {
		filter.CreatedAfter = period.Cutoff(now)
	}

	var (
		threads []store.Thread
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if mode == ranking.ModeNew {
			threads, err = s.store.ListThreadsPage(gctx, filter, pageSize, (page-1)*pageSize)
		} else {
			threads, err = s.store.ListThreadCandidates(gctx, filter, ranking.CandidateWindow(pageSize, s.cfg.CandidateWindow))
		}
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.CountThreads(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return ThreadPage{}, err
	}

	ids := make([]string, len(threads))
	byID := make(map[string]store.Thread, len(threads))
	for i, t := range threads {
		ids[i] = t.ID
		byID[t.ID] = t
	}
	scores, err := s.store.ScoresFor(ctx, vote.TargetThread, ids)
	if err != nil {
		return ThreadPage{}, err
	}

	items := make([]ThreadView, 0, pageSize)
	if mode == ranking.ModeNew {
		for _, t := range threads {
			items = append(items, threadView(t, scores[t.ID]))
		}
	} else {
		s.metrics.CandidatesFetched(len(threads))
		cands := make([]ranking.Candidate, len(threads))
		for i, t := range threads {
			cands[i] = ranking.Candidate{ID: t.ID, Score: scores[t.ID], CreatedAt: t.CreatedAt, Pinned: t.IsPinned}
		}
		for _, c := range ranking.Paginate(ranking.Rank(cands, mode, period, now), page, pageSize) {
			items = append(items, threadView(byID[c.ID], c.Score))
		}
	}

	out := ThreadPage{Items: items, Total: total, Page: page, PageSize: pageSize, Sort: string(mode)}
	if mode == ranking.ModeTop {
		out.Period = string(period)
	}
	return out, nil
}

type CommentNode struct {
	ID            string        `json:"id"`
	ParentPostID  string        `json:"parentPostId,omitempty"`
	AuthorID      string        `json:"authorId,omitempty"`
	AuthorName    string        `json:"authorName,omitempty"`
	Body          string        `json:"body"`
	IsDeleted     bool          `json:"isDeleted"`
	DeletedReason string        `json:"deletedReason,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	Score         int           `json:"score"`
	Depth         int           `json:"depth"`
	Replies       []CommentNode `json:"replies"`
}

type CommentsView struct {
	Thread       ThreadView    `json:"thread"`
	Body         *CommentNode  `json:"body"`
	Comments     []CommentNode `json:"comments"`
	CommentCount int           `json:"commentCount"`
	Sort         string        `json:"sort"`
}

// ListComments returns the thread, its body post and the remaining comment forest.
// Replies made directly to the body post stay nested under it.
func (s *Service) ListComments(ctx context.Context, threadID, sort string) (CommentsView, error) {
	mode, err := comments.ParseSortMode(sort)
	if err != nil {
		return CommentsView{}, validationError(err.Error())
	}
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return CommentsView{}, err
	}
	posts, err := s.store.ListThreadPosts(ctx, thread.ID)
	if err != nil {
		return CommentsView{}, err
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	postScores, err := s.store.ScoresFor(ctx, vote.TargetPost, ids)
	if err != nil {
		return CommentsView{}, err
	}
	threadScores, err := s.store.ScoresFor(ctx, vote.TargetThread, []string{thread.ID})
	if err != nil {
		return CommentsView{}, err
	}

	entries := make([]comments.Entry, len(posts))
	bodyIdx := -1
	count := 0
	for i, p := range posts {
		entries[i] = comments.Entry{ID: p.ID, ParentID: p.ParentID(), CreatedAt: p.CreatedAt, Score: postScores[p.ID]}
		if bodyIdx < 0 && p.ParentPostID == nil {
			bodyIdx = i
			continue
		}
		if !p.IsDeleted {
			count++
		}
	}
	forest := comments.BuildTree(entries, mode)

	out := CommentsView{
		Thread:       threadView(thread, threadScores[thread.ID]),
		Comments:     make([]CommentNode, 0, len(forest.Roots)),
		CommentCount: count,
		Sort:         string(mode),
	}
	for _, root := range forest.Roots {
		node := commentNode(forest, posts, root)
		if root == bodyIdx {
			out.Body = &node
			continue
		}
		out.Comments = append(out.Comments, node)
	}
	return out, nil
}

func commentNode(forest comments.Forest, posts []store.Post, i int) CommentNode {
	n := forest.Nodes[i]
	p := posts[i]
	node := CommentNode{
		ID:           p.ID,
		ParentPostID: p.ParentID(),
		AuthorID:     p.AuthorID,
		AuthorName:   p.AuthorName,
		Body:         p.Body,
		CreatedAt:    p.CreatedAt,
		Score:        n.Score,
		Depth:        n.Depth,
		Replies:      make([]CommentNode, 0, len(n.Children)),
	}
	if p.IsDeleted {
		node.IsDeleted = true
		node.DeletedReason = p.DeletedReason
		node.AuthorID = ""
		node.AuthorName = ""
		node.Body = ""
	}
	for _, child := range n.Children {
		node.Replies = append(node.Replies, commentNode(forest, posts, child))
	}
	return node
}

type PostView struct {
	ID           string    `json:"id"`
	ThreadID     string    `json:"threadId"`
	ParentPostID string    `json:"parentPostId,omitempty"`
	AuthorID     string    `json:"authorId"`
	AuthorName   string    `json:"authorName"`
	Body         string    `json:"body"`
	Depth        int       `json:"depth"`
	CreatedAt    time.Time `json:"createdAt"`
}

func postView(p store.Post) PostView {
	return PostView{
		ID:           p.ID,
		ThreadID:     p.ThreadID,
		ParentPostID: p.ParentID(),
		AuthorID:     p.AuthorID,
		AuthorName:   p.AuthorName,
		Body:         p.Body,
		Depth:        p.Depth,
		CreatedAt:    p.CreatedAt,
	}
}

type ReplyOutcome struct {
	Post       PostView `json:"post"`
	Flagged    bool     `json:"flagged"`
	FlagReason string   `json:"flagReason,omitempty"`
}

// Reply adds a post to a thread. The depth check here only fails fast; the store
// repeats it inside the insert transaction and that result is authoritative.
func (s *Service) Reply(ctx context.Context, session Session, threadID string, in ReplyInput) (ReplyOutcome, error) {
	if err := s.authorize(session, rbac.ActionReply); err != nil {
		return ReplyOutcome{}, err
	}
	out, err := s.reply(ctx, session, threadID, in)
	if err != nil {
		var domainErr *DomainError
		if errors.As(err, &domainErr) {
			s.metrics.ReplyRejected(domainErr.Code)
		}
		return ReplyOutcome{}, err
	}
	return out, nil
}

func (s *Service) reply(ctx context.Context, session Session, threadID string, in ReplyInput) (ReplyOutcome, error) {
	body, err := s.validBody(in.Body)
	if err != nil {
		return ReplyOutcome{}, err
	}

	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return ReplyOutcome{}, replyError(err)
	}
	if thread.Locked() || thread.Archived() {
		return ReplyOutcome{}, replyError(store.ErrThreadLocked)
	}

	post := store.Post{
		ID:         util.NewID("pst"),
		ThreadID:   thread.ID,
		AuthorID:   session.UserID,
		AuthorName: session.UserName,
		Body:       body,
	}
	if parentID := strings.TrimSpace(in.ParentPostID); parentID != "" {
		parent, err := s.store.GetPost(ctx, parentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ReplyOutcome{}, replyError(store.ErrParentNotFound)
			}
			return ReplyOutcome{}, err
		}
		if parent.ThreadID != thread.ID {
			return ReplyOutcome{}, replyError(store.ErrParentNotFound)
		}
		if parent.IsDeleted {
			return ReplyOutcome{}, replyError(store.ErrTargetDeleted)
		}
		if _, err := comments.ValidateReplyDepth(ctx, parentID, s.store.PostParent); err != nil {
			return ReplyOutcome{}, replyError(err)
		}
		post.ParentPostID = &parentID
	}

	flagged, reason := s.filter.Check(ctx, body)

	created, err := s.store.InsertReply(ctx, post)
	if err != nil {
		return ReplyOutcome{}, replyError(err)
	}

	logging.FromContext(ctx, s.logger).Debug("reply stored",
		zap.String("thread_id", created.ThreadID),
		zap.String("post_id", created.ID),
		zap.Int("depth", created.Depth),
		zap.Bool("flagged", flagged),
	)
	s.publish(ctx, events.KeyPostReplied, events.PostReplied{
		PostID:       created.ID,
		ThreadID:     created.ThreadID,
		ParentPostID: created.ParentID(),
		AuthorID:     created.AuthorID,
		Depth:        created.Depth,
		Flagged:      flagged,
	})
	return ReplyOutcome{Post: postView(created), Flagged: flagged, FlagReason: reason}, nil
}

// replyError turns reply rejections into their domain errors; anything else passes through.
func replyError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domainError(http.StatusNotFound, "NOT_FOUND", "Thread not found", nil)
	case errors.Is(err, store.ErrThreadLocked), errors.Is(err, store.ErrThreadArchived):
		return domainError(http.StatusConflict, "THREAD_LOCKED", "Thread is not accepting replies", nil)
	case errors.Is(err, store.ErrParentNotFound):
		return domainError(http.StatusNotFound, "NOT_FOUND", "Parent post not found", nil)
	case errors.Is(err, store.ErrTargetDeleted):
		return domainError(http.StatusConflict, "TARGET_DELETED", "Parent post has been removed", nil)
	case errors.Is(err, comments.ErrDepthLimitExceeded):
		return domainError(http.StatusUnprocessableEntity, "DEPTH_LIMIT_EXCEEDED", "Replies cannot nest deeper than this",
			map[string]any{"maxDepth": comments.MaxDepth})
	default:
		return err
	}
}

func (s *Service) validBody(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return "", validationError("body is required")
	}
	if utf8.RuneCountInString(body) > s.cfg.MaxBodyRunes {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			fmt.Sprintf("body must be at most %d characters", s.cfg.MaxBodyRunes),
			map[string]any{"maxRunes": s.cfg.MaxBodyRunes})
	}
	return body, nil
}

type CreatedThread struct {
	Thread ThreadView `json:"thread"`
	Body   PostView   `json:"body"`
}

// CreateThread opens a thread with its body post. An empty board id means the default board.
func (s *Service) CreateThread(ctx context.Context, session Session, in CreateThreadInput) (CreatedThread, error) {
	if err := s.authorize(session, rbac.ActionCreateThread); err != nil {
		return CreatedThread{}, err
	}
	title := strings.TrimSpace(in.Title)
	if n := utf8.RuneCountInString(title); n < minTitleRunes || n > maxTitleRunes {
		return CreatedThread{}, validationError(fmt.Sprintf("title must be %d to %d characters", minTitleRunes, maxTitleRunes))
	}
	body, err := s.validBody(in.Body)
	if err != nil {
		return CreatedThread{}, err
	}

	boardRef := strings.TrimSpace(in.BoardID)
	if boardRef == "" {
		boardRef = defaultBoardSlug
	}
	board, err := s.store.GetBoard(ctx, boardRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CreatedThread{}, validationError("unknown board")
		}
		return CreatedThread{}, err
	}

	thread, post, err := s.store.CreateThread(ctx,
		store.Thread{
			ID:         util.NewID("thr"),
			BoardID:    board.ID,
			AuthorID:   session.UserID,
			AuthorName: session.UserName,
			Title:      title,
		},
		store.Post{
			ID:         util.NewID("pst"),
			AuthorID:   session.UserID,
			AuthorName: session.UserName,
			Body:       body,
		},
	)
	if err != nil {
		return CreatedThread{}, err
	}

	if s.search != nil {
		s.search.IndexThread(search.ThreadRecord{
			ID:      thread.ID,
			Title:   thread.Title,
			Body:    post.Body,
			BoardID: thread.BoardID,
			Status:  thread.Status,
		})
	}
	s.publish(ctx, events.KeyThreadCreated, events.ThreadCreated{
		ThreadID: thread.ID,
		BoardID:  thread.BoardID,
		AuthorID: thread.AuthorID,
		Title:    thread.Title,
	})
	return CreatedThread{Thread: threadView(thread, 0), Body: postView(post)}, nil
}

type BoardView struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Service) ListBoards(ctx context.Context) ([]BoardView, error) {
	boards, err := s.store.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]BoardView, 0, len(boards))
	for _, b := range boards {
		items = append(items, BoardView{ID: b.ID, Slug: b.Slug, Name: b.Name, Description: b.Description})
	}
	return items, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish hands an event to the broker. Delivery failures are logged, never returned.
func (s *Service) publish(ctx context.Context, key string, event any) {
	requestID := logging.RequestID(ctx)
	if err := s.events.Publish(ctx, key, event, requestID); err != nil {
		logging.FromContext(ctx, s.logger).Warn("publish event", zap.String("key", key), zap.Error(err))
	}
}

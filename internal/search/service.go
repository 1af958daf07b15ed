package search

import (
	"context"

	"go.uber.org/zap"
)

type threadIndexer interface {
	Matcher
	IndexThread(ThreadRecord) error
	IndexThreads([]ThreadRecord) error
	DeleteThread(string) error
}

type recordLoader interface {
	Matcher
	LoadAllRecords(context.Context) ([]ThreadRecord, error)
}

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	primary  threadIndexer
	fallback recordLoader
	logger   *zap.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(m *Meili, pgfts *PgFTS, logger *zap.Logger) *Service {
	var primary threadIndexer
	if m != nil {
		primary = m
	}
	var fallback recordLoader
	if pgfts != nil {
		fallback = pgfts
	}
	return newService(primary, fallback, logger)
}

func newService(primary threadIndexer, fallback recordLoader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{primary: primary, fallback: fallback, logger: logger.Named("search")}
}

func (s *Service) primaryReady() bool {
	return s.primary != nil && s.primary.Healthy()
}

// MatchThreadIDs tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) MatchThreadIDs(ctx context.Context, q Query) ([]string, error) {
	if s.primaryReady() {
		ids, err := s.primary.MatchThreadIDs(ctx, q)
		if err == nil {
			return ids, nil
		}
		s.logger.Warn("meilisearch error, falling back to pgfts", zap.Error(err))
	}
	if s.fallback == nil {
		return []string{}, nil
	}
	return s.fallback.MatchThreadIDs(ctx, q)
}

// IndexThread indexes a thread (fire-and-forget to Meilisearch).
func (s *Service) IndexThread(t ThreadRecord) {
	if !s.primaryReady() {
		return
	}
	go func() {
		if err := s.primary.IndexThread(t); err != nil {
			s.logger.Warn("index thread", zap.String("thread_id", t.ID), zap.Error(err))
		}
	}()
}

// DeleteThread removes a thread from the search index (fire-and-forget).
func (s *Service) DeleteThread(id string) {
	if !s.primaryReady() {
		return
	}
	go func() {
		if err := s.primary.DeleteThread(id); err != nil {
			s.logger.Warn("delete thread", zap.String("thread_id", id), zap.Error(err))
		}
	}()
}

// ReindexAllFromPG pushes every thread from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if !s.primaryReady() || s.fallback == nil {
		return
	}
	threads, err := s.fallback.LoadAllRecords(ctx)
	if err != nil {
		s.logger.Warn("reindex load failed", zap.Error(err))
		return
	}
	if err := s.primary.IndexThreads(threads); err != nil {
		s.logger.Warn("reindex threads", zap.Error(err))
		return
	}
	s.logger.Info("reindexed threads", zap.Int("count", len(threads)))
}

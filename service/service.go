// Package service orchestrates log search, CRUD and discovery across the
// persistence store, the cache and the validator. All infrastructure
// failures are logged with their cause and surfaced to callers with a
// generic message.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/guy0090/lostarklogs/cache"
	errordefs "github.com/guy0090/lostarklogs/errors"
	"github.com/guy0090/lostarklogs/events"
	"github.com/guy0090/lostarklogs/metrics"
	"github.com/guy0090/lostarklogs/model"
	"github.com/guy0090/lostarklogs/plan"
	"github.com/guy0090/lostarklogs/store"
	"github.com/guy0090/lostarklogs/validate"
)

type Service struct {
	store     store.Store
	cache     cache.Cache
	builder   *plan.Builder
	validator *validate.Validator
	events    events.Publisher
	metrics   *metrics.Metrics
}

func New(st store.Store, c cache.Cache, v *validate.Validator, pub events.Publisher, m *metrics.Metrics) *Service {
	if c == nil {
		c = cache.NewMemory()
	}
	if v == nil {
		v = validate.MustNew(false, validate.DefaultRegistry())
	}
	if pub == nil {
		pub = events.NewNoop()
	}
	if m == nil {
		m = metrics.NewMetrics()
	}

	slog.Info("log service initialized")

	return &Service{
		store:     st,
		cache:     c,
		builder:   plan.NewBuilder(st),
		validator: v,
		events:    pub,
		metrics:   m,
	}
}

// SearchLogs runs a filtered, paginated search. The full matching ID set is
// cached under the plan hash, so later pages of the same filter re-slice the
// cached set instead of re-querying.
func (s *Service) SearchLogs(ctx context.Context, filter model.LogFilter) (model.SearchResult, error) {
	p, err := s.builder.Build(ctx, filter)
	if err != nil {
		return model.SearchResult{}, err
	}

	start := time.Now()
	groups, source, err := s.groupsForPlan(ctx, p)
	if err != nil {
		return model.SearchResult{}, err
	}
	s.metrics.ObserveSearchDuration(source, time.Since(start).Seconds())

	found := len(groups)
	pageSize := p.Filter.PageSize
	// Rounded-up page count; the additive ceiling form overflows on
	// extreme page sizes.
	pages := found / pageSize
	if found%pageSize != 0 {
		pages++
	}

	// A page at or past the end is an empty window. The check precedes
	// the window arithmetic, which overflows on extreme page numbers.
	page := p.Filter.Page
	if page >= pages {
		return model.SearchResult{Found: 0, Page: 0, Pages: 0, Logs: []model.Log{}}, nil
	}

	lo := page * pageSize
	hi := found
	if hi-lo > pageSize {
		hi = lo + pageSize
	}
	window := groups[lo:hi]

	ids := make([]string, len(window))
	for i, g := range window {
		ids[i] = g.ID
	}

	logs, err := s.store.GetLogs(ctx, ids)
	s.metrics.RecordStoreOperation("getLogs", err)
	if err != nil {
		slog.ErrorContext(ctx, "log page fetch failed", "error", err, "ids", len(ids))
		return model.SearchResult{}, errordefs.Wrap(errordefs.KindSearchFailed, "Failed to search for logs", err)
	}

	return model.SearchResult{Found: found, Page: page, Pages: pages, Logs: logs}, nil
}

// groupsForPlan returns the plan's full matching ID set, from the cache when
// possible, and reports which source served it.
func (s *Service) groupsForPlan(ctx context.Context, p *plan.Plan) ([]model.LogGroup, string, error) {
	hash, err := p.Hash()
	if err != nil {
		slog.ErrorContext(ctx, "plan hash failed", "error", err)
		return nil, "", errordefs.Wrap(errordefs.KindSearchFailed, "Failed to search for logs", err)
	}
	key := cache.FilteredKey(hash)

	cached, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "filtered cache read failed", "error", err, "key", key)
		return nil, "", errordefs.Wrap(errordefs.KindSearchFailed, "Failed to search for logs", err)
	}

	if hit {
		s.metrics.RecordCacheHit("filtered")
		var groups []model.LogGroup
		if err := json.Unmarshal([]byte(cached), &groups); err != nil {
			slog.ErrorContext(ctx, "filtered cache entry corrupt", "error", err, "key", key)
			return nil, "", errordefs.Wrap(errordefs.KindSearchFailed, "Failed to search for logs", err)
		}
		return groups, "cache", nil
	}
	s.metrics.RecordCacheMiss("filtered")

	groups, err := s.store.AggregateLogs(ctx, p)
	s.metrics.RecordStoreOperation("aggregateLogs", err)
	if err != nil {
		slog.ErrorContext(ctx, "log aggregation failed", "error", err)
		return nil, "", errordefs.Wrap(errordefs.KindSearchFailed, "Failed to search for logs", err)
	}

	s.populate(ctx, key, groups)
	return groups, "store", nil
}

// populate writes a cache entry best-effort; a failure is logged and never
// fails the read that triggered it.
func (s *Service) populate(ctx context.Context, key string, value interface{}) {
	b, err := json.Marshal(value)
	if err != nil {
		slog.WarnContext(ctx, "cache populate marshal failed", "error", err, "key", key)
		return
	}
	if err := s.cache.Set(ctx, key, string(b), cache.DefaultTTL); err != nil {
		slog.WarnContext(ctx, "cache populate failed", "error", err, "key", key)
	}
}

// GetLog loads a single log through the per-ID cache. With bypassCache set
// the cache is not consulted, but a fresh read still repopulates it.
func (s *Service) GetLog(ctx context.Context, id string, bypassCache bool) (model.Log, error) {
	if id == "" {
		return model.Log{}, errordefs.New(errordefs.KindInvalidInput, "Log ID is required")
	}
	key := cache.LogKey(id)

	if !bypassCache {
		cached, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.ErrorContext(ctx, "log cache read failed", "error", err, "id", id)
			return model.Log{}, errordefs.Wrap(errordefs.KindStoreFailed, "Failed to load log", err)
		}
		if hit {
			s.metrics.RecordCacheHit("log")
			var log model.Log
			if err := json.Unmarshal([]byte(cached), &log); err != nil {
				slog.ErrorContext(ctx, "log cache entry corrupt", "error", err, "id", id)
				return model.Log{}, errordefs.Wrap(errordefs.KindStoreFailed, "Failed to load log", err)
			}
			return log, nil
		}
		s.metrics.RecordCacheMiss("log")
	}

	log, err := s.store.GetLog(ctx, id)
	s.metrics.RecordStoreOperation("getLog", err)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Log{}, errordefs.New(errordefs.KindNotFound, "Log not found")
		}
		slog.ErrorContext(ctx, "log read failed", "error", err, "id", id)
		return model.Log{}, errordefs.Wrap(errordefs.KindStoreFailed, "Failed to load log", err)
	}

	s.populate(ctx, key, log)
	return log, nil
}

// CreateLog validates and persists a submitted log, then caches it. A log
// is never partially persisted: validation runs before the insert.
func (s *Service) CreateLog(ctx context.Context, log model.Log) (model.Log, error) {
	if log.ID == "" {
		log.ID = model.NewLogID()
	}
	if log.CreatedAt == 0 {
		log.CreatedAt = model.NowMillis()
	}

	err := s.validator.ValidateLog(log)
	s.metrics.RecordValidation(err)
	if err != nil {
		return model.Log{}, err
	}

	err = s.store.InsertLog(ctx, log)
	s.metrics.RecordStoreOperation("insertLog", err)
	if err != nil {
		slog.ErrorContext(ctx, "log insert failed", "error", err, "id", log.ID)
		return model.Log{}, errordefs.Wrap(errordefs.KindStoreFailed, "Failed to save log", err)
	}

	s.populate(ctx, cache.LogKey(log.ID), log)

	if err := s.events.PublishLogCreated(ctx, log); err != nil {
		slog.WarnContext(ctx, "log created event failed", "error", err, "id", log.ID)
	}

	return log, nil
}

// DeleteLog removes a log from the store and then evicts its cache entry.
// Eviction runs only after the store confirms the delete, so a stale cached
// copy can never outlive the persisted deletion.
func (s *Service) DeleteLog(ctx context.Context, id string) error {
	if id == "" {
		return errordefs.New(errordefs.KindInvalidInput, "Log ID is required")
	}

	err := s.store.DeleteLog(ctx, id)
	s.metrics.RecordStoreOperation("deleteLog", err)
	if err != nil {
		slog.ErrorContext(ctx, "log delete failed", "error", err, "id", id)
		return errordefs.Wrap(errordefs.KindStoreFailed, "Failed to delete log", err)
	}

	if err := s.cache.Delete(ctx, cache.LogKey(id)); err != nil {
		slog.ErrorContext(ctx, "log cache eviction failed", "error", err, "id", id)
		return errordefs.Wrap(errordefs.KindStoreFailed, "Failed to delete log", err)
	}

	if err := s.events.PublishLogDeleted(ctx, id); err != nil {
		slog.WarnContext(ctx, "log deleted event failed", "error", err, "id", id)
	}

	return nil
}

// DeleteLogsByCreator removes every log the creator owns. Per-record cache
// entries are not evicted; they age out within the cache TTL.
func (s *Service) DeleteLogsByCreator(ctx context.Context, creator string) (int64, error) {
	if creator == "" {
		return 0, errordefs.New(errordefs.KindInvalidInput, "Creator is required")
	}

	deleted, err := s.store.DeleteLogsByCreator(ctx, creator)
	s.metrics.RecordStoreOperation("deleteLogsByCreator", err)
	if err != nil {
		slog.ErrorContext(ctx, "bulk log delete failed", "error", err, "creator", creator)
		return 0, errordefs.Wrap(errordefs.KindStoreFailed, "Failed to delete logs", err)
	}

	slog.InfoContext(ctx, "logs purged", "creator", creator, "deleted", deleted)

	if err := s.events.PublishLogsPurged(ctx, creator, deleted); err != nil {
		slog.WarnContext(ctx, "logs purged event failed", "error", err, "creator", creator)
	}

	return deleted, nil
}

// UniqueEntities returns the distinct (npcId, type) pairs observed across
// all logs, defaulting to boss and guardian entities. Results are cached;
// new uploads appear once the entry expires.
func (s *Service) UniqueEntities(ctx context.Context, types []model.EntityType) ([]model.EntityPair, error) {
	if len(types) == 0 {
		types = model.DefaultEntityTypes()
	}
	key := cache.UniqueEntitiesKey(types)

	cached, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "unique entities cache read failed", "error", err, "key", key)
		return nil, errordefs.Wrap(errordefs.KindSearchFailed, "Failed to get unique entities", err)
	}
	if hit {
		s.metrics.RecordCacheHit("uniqueEntities")
		var pairs []model.EntityPair
		if err := json.Unmarshal([]byte(cached), &pairs); err != nil {
			slog.ErrorContext(ctx, "unique entities cache entry corrupt", "error", err, "key", key)
			return nil, errordefs.Wrap(errordefs.KindSearchFailed, "Failed to get unique entities", err)
		}
		return pairs, nil
	}
	s.metrics.RecordCacheMiss("uniqueEntities")

	pairs, err := s.store.DistinctEntities(ctx, types)
	s.metrics.RecordStoreOperation("distinctEntities", err)
	if err != nil {
		slog.ErrorContext(ctx, "unique entities query failed", "error", err)
		return nil, errordefs.Wrap(errordefs.KindSearchFailed, "Failed to get unique entities", err)
	}

	s.populate(ctx, key, pairs)
	return pairs, nil
}

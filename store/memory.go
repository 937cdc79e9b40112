package store

import (
	"context"
	"sort"
	"sync"

	"github.com/guy0090/lostarklogs/model"
	"github.com/guy0090/lostarklogs/plan"
)

// MemoryStore implements Store using in-memory storage. It evaluates
// aggregation plans directly against the stage values, mirroring the
// pipeline the Mongo store runs.
type MemoryStore struct {
	mu    sync.RWMutex
	logs  map[string]model.Log
	users map[string]model.User
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:  make(map[string]model.Log),
		users: make(map[string]model.User),
	}
}

func (s *MemoryStore) InsertLog(_ context.Context, log model.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[log.ID] = log
	return nil
}

func (s *MemoryStore) GetLog(_ context.Context, id string) (model.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.logs[id]
	if !ok {
		return model.Log{}, ErrNotFound
	}
	return log, nil
}

func (s *MemoryStore) GetLogs(_ context.Context, ids []string) ([]model.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []model.Log
	for _, id := range ids {
		if log, ok := s.logs[id]; ok {
			result = append(result, log)
		}
	}
	return result, nil
}

func (s *MemoryStore) DeleteLog(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, id)
	return nil
}

func (s *MemoryStore) DeleteLogsByCreator(_ context.Context, creator string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, log := range s.logs {
		if log.Creator == creator {
			delete(s.logs, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) AggregateLogs(_ context.Context, p *plan.Plan) ([]model.LogGroup, error) {
	var pre plan.MatchLogs
	var post plan.MatchEntities
	sortStage := plan.SortGroups{Field: model.SortFieldDPS, Order: model.SortDescending}
	for _, stage := range p.Stages {
		switch v := stage.(type) {
		case plan.MatchLogs:
			pre = v
		case plan.MatchEntities:
			post = v
		case plan.SortGroups:
			sortStage = v
		}
	}

	s.mu.RLock()
	var groups []model.LogGroup
	for _, log := range s.logs {
		if !matchesLog(log, pre) {
			continue
		}
		// Unwind: the log survives if any entity row passes the post-filter.
		for _, entity := range log.Entities {
			if matchesEntity(log, entity, post) {
				groups = append(groups, model.LogGroup{
					ID:        log.ID,
					CreatedAt: log.CreatedAt,
					DPS:       log.DamageStatistics.DPS,
				})
				break
			}
		}
	}
	s.mu.RUnlock()

	// Map iteration order is random; fix it before the field sort so ties
	// page deterministically.
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	if sortStage.Order == model.SortDescending {
		sort.SliceStable(groups, func(i, j int) bool {
			return lessGroup(groups[j], groups[i], sortStage.Field)
		})
	} else {
		sort.SliceStable(groups, func(i, j int) bool {
			return lessGroup(groups[i], groups[j], sortStage.Field)
		})
	}
	return groups, nil
}

func (s *MemoryStore) DistinctEntities(_ context.Context, types []model.EntityType) ([]model.EntityPair, error) {
	s.mu.RLock()
	seen := make(map[model.EntityPair]struct{})
	for _, log := range s.logs {
		for _, entity := range log.Entities {
			if len(types) > 0 && !containsType(types, entity.Type) {
				continue
			}
			seen[model.EntityPair{NpcID: entity.NpcID, Type: entity.Type}] = struct{}{}
		}
	}
	s.mu.RUnlock()

	pairs := make([]model.EntityPair, 0, len(seen))
	for pair := range seen {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Type != pairs[j].Type {
			return pairs[i].Type < pairs[j].Type
		}
		return pairs[i].NpcID < pairs[j].NpcID
	})
	return pairs, nil
}

func (s *MemoryStore) FindUserByAPIKey(_ context.Context, key string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.APIKey == key {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

// PutUser registers a user so API keys resolve in tests and local runs.
func (s *MemoryStore) PutUser(user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *MemoryStore) Close() error {
	return nil
}

func matchesLog(log model.Log, pre plan.MatchLogs) bool {
	if pre.Creator != "" && log.Creator != pre.Creator {
		return false
	}
	if len(pre.Bosses) > 0 {
		found := false
		for _, entity := range log.Entities {
			if containsInt(pre.Bosses, entity.NpcID) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(pre.Range) == 2 {
		if log.CreatedAt < pre.Range[0] || log.CreatedAt > pre.Range[1] {
			return false
		}
	}
	return true
}

func matchesEntity(log model.Log, entity model.Entity, post plan.MatchEntities) bool {
	if entity.Level < post.MinLevel || entity.Level > post.MaxLevel {
		return false
	}
	if entity.GearLevel < post.MinGearLevel || entity.GearLevel > post.MaxGearLevel {
		return false
	}
	if len(post.Classes) > 0 && !containsInt(post.Classes, entity.ClassID) {
		return false
	}
	return log.DamageStatistics.DPS >= post.MinDPS
}

func lessGroup(a, b model.LogGroup, field string) bool {
	if field == model.SortFieldCreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.DPS < b.DPS
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsType(types []model.EntityType, t model.EntityType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

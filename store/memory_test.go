package store

import (
	"context"
	"errors"
	"testing"

	"github.com/guy0090/lostarklogs/model"
	"github.com/guy0090/lostarklogs/plan"
)

func playerEntity(classID, level int, gearLevel float64) model.Entity {
	return model.Entity{Type: model.EntityTypePlayer, ClassID: classID, Level: level, GearLevel: gearLevel}
}

func bossEntity(npcID int) model.Entity {
	return model.Entity{Type: model.EntityTypeBoss, NpcID: npcID, Level: 60}
}

func buildPlan(t *testing.T, filter model.LogFilter) *plan.Plan {
	t.Helper()
	p, err := plan.NewBuilder(nil).Build(context.Background(), filter)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return p
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	log := model.Log{
		ID:        "log-1",
		Creator:   "user-1",
		CreatedAt: 1650000000000,
		Entities:  []model.Entity{playerEntity(102, 58, 1490)},
	}
	if err := s.InsertLog(ctx, log); err != nil {
		t.Fatalf("InsertLog() error = %v", err)
	}

	got, err := s.GetLog(ctx, "log-1")
	if err != nil {
		t.Fatalf("GetLog() error = %v", err)
	}
	if got.ID != "log-1" || got.Creator != "user-1" {
		t.Errorf("GetLog() = %+v, want inserted log", got)
	}

	if _, err := s.GetLog(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetLog(absent) error = %v, want ErrNotFound", err)
	}

	if err := s.DeleteLog(ctx, "log-1"); err != nil {
		t.Fatalf("DeleteLog() error = %v", err)
	}
	if _, err := s.GetLog(ctx, "log-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetLog() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting again is still fine.
	if err := s.DeleteLog(ctx, "log-1"); err != nil {
		t.Errorf("DeleteLog(absent) error = %v", err)
	}
}

func TestMemoryStoreGetLogsSkipsMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, id := range []string{"a", "b"} {
		if err := s.InsertLog(ctx, model.Log{ID: id}); err != nil {
			t.Fatalf("InsertLog() error = %v", err)
		}
	}

	logs, err := s.GetLogs(ctx, []string{"a", "missing", "b"})
	if err != nil {
		t.Fatalf("GetLogs() error = %v", err)
	}
	if len(logs) != 2 {
		t.Errorf("GetLogs() returned %d logs, want 2", len(logs))
	}

	logs, err = s.GetLogs(ctx, nil)
	if err != nil || len(logs) != 0 {
		t.Errorf("GetLogs(nil) = %v, %v; want empty", logs, err)
	}
}

func TestMemoryStoreDeleteLogsByCreator(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ids := map[string]string{}
	for i, creator := range []string{"user-1", "user-2", "user-1"} {
		id := model.NewLogID()
		ids[id] = creator
		if err := s.InsertLog(ctx, model.Log{ID: id, Creator: creator, CreatedAt: int64(i)}); err != nil {
			t.Fatalf("InsertLog() error = %v", err)
		}
	}

	deleted, err := s.DeleteLogsByCreator(ctx, "user-1")
	if err != nil {
		t.Fatalf("DeleteLogsByCreator() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteLogsByCreator() = %d, want 2", deleted)
	}

	for id, creator := range ids {
		_, err := s.GetLog(ctx, id)
		if creator == "user-1" && !errors.Is(err, ErrNotFound) {
			t.Errorf("GetLog(%s) error = %v, want ErrNotFound after bulk delete", id, err)
		}
		if creator == "user-2" && err != nil {
			t.Errorf("GetLog(%s) error = %v, want surviving log", id, err)
		}
	}
}

func TestMemoryStoreAggregateFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	logs := []model.Log{
		{
			ID: "valtan", Creator: "user-1", CreatedAt: 1000,
			Entities:         []model.Entity{playerEntity(102, 60, 1500), bossEntity(480005)},
			DamageStatistics: model.DamageStatistics{DPS: 900000},
		},
		{
			ID: "vykas", Creator: "user-2", CreatedAt: 2000,
			Entities:         []model.Entity{playerEntity(105, 60, 1460), bossEntity(480006)},
			DamageStatistics: model.DamageStatistics{DPS: 750000},
		},
		{
			ID: "argos", Creator: "user-1", CreatedAt: 3000,
			Entities:         []model.Entity{playerEntity(302, 55, 1385), bossEntity(634000)},
			DamageStatistics: model.DamageStatistics{DPS: 400000},
		},
	}
	for _, log := range logs {
		if err := s.InsertLog(ctx, log); err != nil {
			t.Fatalf("InsertLog() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		filter  model.LogFilter
		wantIDs []string
	}{
		{
			name:    "unrestricted sorts by dps descending",
			filter:  model.LogFilter{},
			wantIDs: []string{"valtan", "vykas", "argos"},
		},
		{
			name:    "boss set",
			filter:  model.LogFilter{Bosses: []int{480005, 480006}},
			wantIDs: []string{"valtan", "vykas"},
		},
		{
			name:    "class set",
			filter:  model.LogFilter{Classes: []int{105}},
			wantIDs: []string{"vykas"},
		},
		{
			name:    "time range sorts by createdAt descending",
			filter:  model.LogFilter{Range: []int64{1000, 2500}},
			wantIDs: []string{"vykas", "valtan"},
		},
		{
			name:    "party dps floor",
			filter:  model.LogFilter{PartyDPS: 800000},
			wantIDs: []string{"valtan"},
		},
		{
			name:    "player level range",
			filter:  model.LogFilter{Levels: []int{56, 60}},
			wantIDs: []string{"valtan", "vykas"},
		},
		{
			name:    "gear level range",
			filter:  model.LogFilter{GearLevels: []float64{1450, 1520}},
			wantIDs: []string{"valtan", "vykas"},
		},
		{
			name: "explicit ascending dps sort",
			filter: model.LogFilter{
				Sort: &model.SortSpec{Field: model.SortFieldDPS, Order: model.SortAscending},
			},
			wantIDs: []string{"argos", "vykas", "valtan"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := s.AggregateLogs(ctx, buildPlan(t, tt.filter))
			if err != nil {
				t.Fatalf("AggregateLogs() error = %v", err)
			}
			gotIDs := make([]string, len(groups))
			for i, g := range groups {
				gotIDs[i] = g.ID
			}
			if len(gotIDs) != len(tt.wantIDs) {
				t.Fatalf("AggregateLogs() IDs = %v, want %v", gotIDs, tt.wantIDs)
			}
			for i := range gotIDs {
				if gotIDs[i] != tt.wantIDs[i] {
					t.Fatalf("AggregateLogs() IDs = %v, want %v", gotIDs, tt.wantIDs)
				}
			}
		})
	}
}

func TestMemoryStoreAggregateCreatorRestriction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.PutUser(model.User{ID: "user-1", Username: "bard-main", APIKey: "key-1"})

	for _, log := range []model.Log{
		{ID: "mine", Creator: "user-1", Entities: []model.Entity{playerEntity(204, 60, 1470)}, DamageStatistics: model.DamageStatistics{DPS: 100}},
		{ID: "theirs", Creator: "user-2", Entities: []model.Entity{playerEntity(104, 60, 1470)}, DamageStatistics: model.DamageStatistics{DPS: 200}},
	} {
		if err := s.InsertLog(ctx, log); err != nil {
			t.Fatalf("InsertLog() error = %v", err)
		}
	}

	p, err := plan.NewBuilder(s).Build(ctx, model.LogFilter{Key: "key-1"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	groups, err := s.AggregateLogs(ctx, p)
	if err != nil {
		t.Fatalf("AggregateLogs() error = %v", err)
	}
	if len(groups) != 1 || groups[0].ID != "mine" {
		t.Errorf("AggregateLogs() = %+v, want only the key owner's log", groups)
	}
}

func TestMemoryStoreDistinctEntities(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i, entities := range [][]model.Entity{
		{playerEntity(102, 60, 1500), {Type: model.EntityTypeBoss, NpcID: 1}},
		{playerEntity(105, 60, 1500), {Type: model.EntityTypeBoss, NpcID: 1}},
		{playerEntity(302, 60, 1500), {Type: model.EntityTypeGuardian, NpcID: 2}},
	} {
		log := model.Log{ID: model.NewLogID(), CreatedAt: int64(i), Entities: entities}
		if err := s.InsertLog(ctx, log); err != nil {
			t.Fatalf("InsertLog() error = %v", err)
		}
	}

	pairs, err := s.DistinctEntities(ctx, model.DefaultEntityTypes())
	if err != nil {
		t.Fatalf("DistinctEntities() error = %v", err)
	}

	want := []model.EntityPair{
		{NpcID: 1, Type: model.EntityTypeBoss},
		{NpcID: 2, Type: model.EntityTypeGuardian},
	}
	if len(pairs) != len(want) {
		t.Fatalf("DistinctEntities() = %v, want %v", pairs, want)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Fatalf("DistinctEntities() = %v, want %v", pairs, want)
		}
	}

	// Restricting to players hides bosses and guardians.
	players, err := s.DistinctEntities(ctx, []model.EntityType{model.EntityTypePlayer})
	if err != nil {
		t.Fatalf("DistinctEntities() error = %v", err)
	}
	for _, p := range players {
		if p.Type != model.EntityTypePlayer {
			t.Errorf("DistinctEntities(PLAYER) returned %v", p)
		}
	}
}

func TestMemoryStoreFindUserByAPIKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.PutUser(model.User{ID: "user-1", Username: "deathblade", APIKey: "key-1"})

	user, err := s.FindUserByAPIKey(ctx, "key-1")
	if err != nil {
		t.Fatalf("FindUserByAPIKey() error = %v", err)
	}
	if user == nil || user.ID != "user-1" {
		t.Errorf("FindUserByAPIKey() = %+v, want user-1", user)
	}

	user, err = s.FindUserByAPIKey(ctx, "unknown")
	if err != nil {
		t.Fatalf("FindUserByAPIKey() error = %v", err)
	}
	if user != nil {
		t.Errorf("FindUserByAPIKey(unknown) = %+v, want nil", user)
	}
}

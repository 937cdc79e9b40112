// Package store persists logs and users and executes the aggregation plans
// built by the plan package.
package store

import (
	"context"
	"errors"

	"github.com/guy0090/lostarklogs/model"
	"github.com/guy0090/lostarklogs/plan"
)

// ErrNotFound is returned by point lookups when the record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for log persistence.
type Store interface {
	// Logs
	InsertLog(ctx context.Context, log model.Log) error
	GetLog(ctx context.Context, id string) (model.Log, error)
	// GetLogs batch-fetches by ID. Missing IDs are skipped and the result
	// order is unspecified.
	GetLogs(ctx context.Context, ids []string) ([]model.Log, error)
	// DeleteLog removes a log; deleting an absent log is not an error.
	DeleteLog(ctx context.Context, id string) error
	DeleteLogsByCreator(ctx context.Context, creator string) (int64, error)

	// Queries
	AggregateLogs(ctx context.Context, p *plan.Plan) ([]model.LogGroup, error)
	// DistinctEntities returns the distinct (npcId, type) pairs observed
	// across all logs, restricted to the given types when non-empty.
	DistinctEntities(ctx context.Context, types []model.EntityType) ([]model.EntityPair, error)

	// Users
	// FindUserByAPIKey returns (nil, nil) when no user owns the key.
	FindUserByAPIKey(ctx context.Context, key string) (*model.User, error)

	Close() error
}

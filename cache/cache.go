// Package cache provides the expiring key/value store the log service keeps
// search results and single-log records in.
package cache

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/guy0090/lostarklogs/model"
)

// DefaultTTL is the expiry applied to every cache entry.
const DefaultTTL = 5 * time.Minute

// Cache is an expiring key/value store. Get reports a miss with found=false
// and a nil error; errors are reserved for the backend failing.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LogKey is the cache key for a single log record.
func LogKey(id string) string {
	return "log:" + id
}

// FilteredKey is the cache key for a filtered search's grouped ID list,
// derived from the plan hash.
func FilteredKey(planHash string) string {
	return "filteredLogs:" + planHash
}

// UniqueEntitiesKey is the cache key for a unique-entity query. The type
// list is sorted and deduplicated so equal type sets share an entry.
func UniqueEntitiesKey(types []model.EntityType) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	sort.Strings(names)
	n := 0
	for i, name := range names {
		if i == 0 || name != names[n-1] {
			names[n] = name
			n++
		}
	}
	return "uniqueEntities:" + strings.Join(names[:n], ",")
}

package model

import (
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityTypePlayer   EntityType = "PLAYER"
	EntityTypeBoss     EntityType = "BOSS"
	EntityTypeGuardian EntityType = "GUARDIAN"
)

// DefaultEntityTypes are the types reported by unique-entity discovery when
// the caller does not name any.
func DefaultEntityTypes() []EntityType {
	return []EntityType{EntityTypeBoss, EntityTypeGuardian}
}

// Entity is one participant row inside a log: the player characters plus the
// boss or guardian they fought. NpcID is zero for players; ClassID is zero
// for non-players.
type Entity struct {
	Type      EntityType `json:"type" bson:"type"`
	NpcID     int        `json:"npcId" bson:"npcId"`
	ClassID   int        `json:"classId" bson:"classId"`
	Level     int        `json:"level" bson:"level"`
	GearLevel float64    `json:"gearLevel" bson:"gearLevel"`
}

type DamageStatistics struct {
	DPS              float64 `json:"dps" bson:"dps"`
	TotalDamageDealt float64 `json:"totalDamageDealt" bson:"totalDamageDealt"`
}

// Log is a recorded combat encounter. Creator is the uploading user's ID and
// is empty for anonymous uploads. CreatedAt and Duration are unix
// milliseconds; filters and cached rows use the same representation so the
// values round-trip byte-for-byte.
type Log struct {
	ID               string           `json:"id" bson:"_id"`
	Creator          string           `json:"creator,omitempty" bson:"creator,omitempty"`
	CreatedAt        int64            `json:"createdAt" bson:"createdAt"`
	Duration         int64            `json:"duration" bson:"duration"`
	Entities         []Entity         `json:"entities" bson:"entities"`
	DamageStatistics DamageStatistics `json:"damageStatistics" bson:"damageStatistics"`
}

// Players returns the player entities of the log.
func (l Log) Players() []Entity {
	var out []Entity
	for _, e := range l.Entities {
		if e.Type == EntityTypePlayer {
			out = append(out, e)
		}
	}
	return out
}

// NewLogID mints an opaque log identifier.
func NewLogID() string {
	return uuid.NewString()
}

// NowMillis is the creation-timestamp clock used when a submitted log does
// not carry one.
func NowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

// LogGroup is one grouped row produced by the aggregation plan: the log's
// identity plus the two fields every sort order needs. Pages of these are
// what the filtered-search cache stores.
type LogGroup struct {
	ID        string  `json:"id" bson:"id"`
	CreatedAt int64   `json:"createdAt" bson:"createdAt"`
	DPS       float64 `json:"dps" bson:"dps"`
}

// EntityPair is a distinct (npcId, type) observation across all logs.
type EntityPair struct {
	NpcID int        `json:"npcId" bson:"npcId"`
	Type  EntityType `json:"type" bson:"type"`
}

// SearchResult is the page returned by a filtered search.
type SearchResult struct {
	Found int   `json:"found"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Logs  []Log `json:"logs"`
}

// User is the creator identity an API key resolves to.
type User struct {
	ID       string `json:"id" bson:"_id"`
	Username string `json:"username" bson:"username"`
	APIKey   string `json:"-" bson:"apiKey"`
}

// Package plan turns a log filter into a deterministic aggregation plan.
//
// A plan is an ordered list of pipeline stages (match, unwind, match, group,
// sort) fully determined by the normalized filter. Its canonical
// serialization feeds the content hash the search layer uses as a cache key,
// so two filters selecting the same logs share one cache entry.
package plan

import (
	"crypto/sha256"
	"encoding/hex"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/guy0090/lostarklogs/model"
)

// Stage is a single pipeline stage. Document renders the complete stage
// document, e.g. {"$match": {...}}. Field order inside the document is fixed
// per stage type so serialization stays stable.
type Stage interface {
	Document() bson.D
}

// MatchLogs is the pre-filter stage applied to whole log documents before
// the entity list is expanded. Zero-valued fields add no conditions; the
// empty stage matches every log.
type MatchLogs struct {
	Creator string
	Bosses  []int
	Range   []int64
}

func (s MatchLogs) Document() bson.D {
	conds := bson.D{}
	if s.Creator != "" {
		conds = append(conds, bson.E{Key: "creator", Value: s.Creator})
	}
	if len(s.Bosses) > 0 {
		conds = append(conds, bson.E{Key: "entities.npcId", Value: bson.D{
			{Key: "$in", Value: s.Bosses},
		}})
	}
	if len(s.Range) == 2 {
		conds = append(conds, bson.E{Key: "createdAt", Value: bson.D{
			{Key: "$gte", Value: s.Range[0]},
			{Key: "$lte", Value: s.Range[1]},
		}})
	}
	return bson.D{{Key: "$match", Value: conds}}
}

// UnwindEntities expands the entity list into one row per entity. Logs with
// no entities produce no rows.
type UnwindEntities struct{}

func (UnwindEntities) Document() bson.D {
	return bson.D{{Key: "$unwind", Value: "$entities"}}
}

// MatchEntities is the post-filter stage applied to unwound entity rows.
type MatchEntities struct {
	MinLevel     int
	MaxLevel     int
	MinGearLevel float64
	MaxGearLevel float64
	Classes      []int
	MinDPS       float64
}

func (s MatchEntities) Document() bson.D {
	conds := bson.D{
		{Key: "entities.level", Value: bson.D{
			{Key: "$gte", Value: s.MinLevel},
			{Key: "$lte", Value: s.MaxLevel},
		}},
		{Key: "entities.gearLevel", Value: bson.D{
			{Key: "$gte", Value: s.MinGearLevel},
			{Key: "$lte", Value: s.MaxGearLevel},
		}},
	}
	if len(s.Classes) > 0 {
		conds = append(conds, bson.E{Key: "entities.classId", Value: bson.D{
			{Key: "$in", Value: s.Classes},
		}})
	}
	conds = append(conds, bson.E{Key: "damageStatistics.dps", Value: bson.D{
		{Key: "$gte", Value: s.MinDPS},
	}})
	return bson.D{{Key: "$match", Value: conds}}
}

// GroupLogs collapses entity rows back to one row per log. The group key
// carries the log ID, creation timestamp and party DPS so the sort stage and
// the cached result need nothing beyond the key.
type GroupLogs struct{}

func (GroupLogs) Document() bson.D {
	return bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: bson.D{
			{Key: "id", Value: "$_id"},
			{Key: "createdAt", Value: "$createdAt"},
			{Key: "dps", Value: "$damageStatistics.dps"},
		}},
	}}}
}

// SortGroups orders the grouped rows by a group-key field.
type SortGroups struct {
	Field string
	Order model.SortOrder
}

func (s SortGroups) Document() bson.D {
	return bson.D{{Key: "$sort", Value: bson.D{
		{Key: "_id." + s.Field, Value: int(s.Order)},
	}}}
}

// Plan is the executable form of a filter: five stages plus the normalized
// filter they were built from. Page and page size never influence the
// stages, so every page of one search shares a serialization and hash.
type Plan struct {
	Stages []Stage
	Filter model.LogFilter
}

// Pipeline renders the stages as aggregation pipeline documents.
func (p *Plan) Pipeline() []bson.D {
	docs := make([]bson.D, len(p.Stages))
	for i, s := range p.Stages {
		docs[i] = s.Document()
	}
	return docs
}

// Serialize renders the pipeline as canonical extended JSON. The encoding
// preserves numeric types and document order, so equal plans serialize to
// equal bytes.
func (p *Plan) Serialize() (string, error) {
	doc := bson.D{{Key: "pipeline", Value: p.Pipeline()}}
	raw, err := bson.MarshalExtJSON(doc, true, false)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Hash returns the hex SHA-256 digest of the serialized plan.
func (p *Plan) Hash() (string, error) {
	s, err := p.Serialize()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:]), nil
}

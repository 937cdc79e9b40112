package model

import (
	"fmt"
	"sort"
)

type SortOrder int

const (
	SortAscending  SortOrder = 1
	SortDescending SortOrder = -1
)

// Fields a filtered search may sort grouped rows by.
const (
	SortFieldCreatedAt = "createdAt"
	SortFieldDPS       = "dps"
)

// SortSpec is an explicit sort requested by the caller. When absent the
// search falls back to createdAt (time-ranged filters) or DPS.
type SortSpec struct {
	Field string    `json:"field"`
	Order SortOrder `json:"order"`
}

// Filter defaults. Level and gear-level bounds mirror the game's character
// level and item-level caps.
const (
	DefaultPageSize     = 10
	DefaultMinLevel     = 0
	DefaultMaxLevel     = 60
	DefaultMinGearLevel = 302
	DefaultMaxGearLevel = 1625
)

// LogFilter is the per-request search filter. Pair-valued fields follow the
// submission format: a two-element [min, max] (or [from, to] in unix
// milliseconds for Range), with an empty slice meaning "use the default".
// A LogFilter is ephemeral and is never persisted.
type LogFilter struct {
	Bosses     []int     `json:"bosses,omitempty"`
	Classes    []int     `json:"classes,omitempty"`
	Range      []int64   `json:"range,omitempty"`
	Levels     []int     `json:"level,omitempty"`
	GearLevels []float64 `json:"gearLevel,omitempty"`
	PartyDPS   float64   `json:"partyDps,omitempty"`
	Key        string    `json:"key,omitempty"`
	Sort       *SortSpec `json:"sort,omitempty"`
	Page       int       `json:"page,omitempty"`
	PageSize   int       `json:"pageSize,omitempty"`
}

// Normalize returns a copy of the filter with defaults applied and set
// values sorted and deduplicated, so that two filters selecting the same
// logs build the same plan. It rejects malformed values; the zero LogFilter
// normalizes cleanly to the unrestricted default search.
func (f LogFilter) Normalize() (LogFilter, error) {
	out := f

	if out.PageSize < 0 {
		return out, fmt.Errorf("page size must not be negative, got %d", out.PageSize)
	}
	if out.PageSize == 0 {
		out.PageSize = DefaultPageSize
	}
	if out.Page < 0 {
		out.Page = 0
	}

	switch len(out.Range) {
	case 0:
	case 2:
		if out.Range[0] < 0 || out.Range[1] < 0 {
			return out, fmt.Errorf("time range bounds must not be negative")
		}
		if out.Range[0] > out.Range[1] {
			return out, fmt.Errorf("time range start %d is after end %d", out.Range[0], out.Range[1])
		}
		out.Range = []int64{out.Range[0], out.Range[1]}
	default:
		return out, fmt.Errorf("time range must be [from, to], got %d values", len(out.Range))
	}

	switch len(out.Levels) {
	case 0:
		out.Levels = []int{DefaultMinLevel, DefaultMaxLevel}
	case 2:
		if out.Levels[0] < 0 || out.Levels[0] > out.Levels[1] {
			return out, fmt.Errorf("level range [%d, %d] is not ordered", out.Levels[0], out.Levels[1])
		}
		out.Levels = []int{out.Levels[0], out.Levels[1]}
	default:
		return out, fmt.Errorf("level range must be [min, max], got %d values", len(out.Levels))
	}

	switch len(out.GearLevels) {
	case 0:
		out.GearLevels = []float64{DefaultMinGearLevel, DefaultMaxGearLevel}
	case 2:
		if out.GearLevels[0] < 0 || out.GearLevels[0] > out.GearLevels[1] {
			return out, fmt.Errorf("gear level range [%v, %v] is not ordered", out.GearLevels[0], out.GearLevels[1])
		}
		out.GearLevels = []float64{out.GearLevels[0], out.GearLevels[1]}
	default:
		return out, fmt.Errorf("gear level range must be [min, max], got %d values", len(out.GearLevels))
	}

	if out.PartyDPS < 0 {
		return out, fmt.Errorf("party dps must not be negative, got %v", out.PartyDPS)
	}

	out.Bosses = dedupeInts(out.Bosses)
	out.Classes = dedupeInts(out.Classes)

	if out.Sort != nil {
		s := *out.Sort
		if s.Field != SortFieldCreatedAt && s.Field != SortFieldDPS {
			return out, fmt.Errorf("unknown sort field %q", s.Field)
		}
		if s.Order != SortAscending && s.Order != SortDescending {
			return out, fmt.Errorf("sort order must be 1 or -1, got %d", s.Order)
		}
		out.Sort = &s
	}

	return out, nil
}

// dedupeInts sorts and deduplicates without touching the input slice.
func dedupeInts(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}

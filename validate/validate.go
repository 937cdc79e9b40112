// Package validate checks submitted logs before they are persisted. It runs
// JSON-schema structural validation first, then the domain rules the schema
// cannot express.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	errordefs "github.com/guy0090/lostarklogs/errors"
	"github.com/guy0090/lostarklogs/model"
)

// logSchema constrains the submitted document shape. Entity level and gear
// level bounds match the game's caps; an empty entity list is rejected
// outright.
const logSchema = `{
	"type": "object",
	"required": ["id", "createdAt", "duration", "entities", "damageStatistics"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"creator": {"type": "string"},
		"createdAt": {"type": "integer", "minimum": 0},
		"duration": {"type": "integer", "minimum": 0},
		"entities": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["type", "npcId", "classId", "level", "gearLevel"],
				"properties": {
					"type": {"type": "string", "minLength": 1},
					"npcId": {"type": "integer", "minimum": 0},
					"classId": {"type": "integer", "minimum": 0},
					"level": {"type": "integer", "minimum": 0, "maximum": 60},
					"gearLevel": {"type": "number", "minimum": 0, "maximum": 1625}
				}
			}
		},
		"damageStatistics": {
			"type": "object",
			"required": ["dps", "totalDamageDealt"],
			"properties": {
				"dps": {"type": "number", "minimum": 0},
				"totalDamageDealt": {"type": "number", "minimum": 0}
			}
		}
	}
}`

// Violation is a single field-path-scoped constraint failure.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Validator validates submitted logs. In strict mode structural failures
// surface without per-field detail.
type Validator struct {
	schema *gojsonschema.Schema
	bosses Registry
	strict bool
}

// New compiles the log schema and returns a validator backed by the given
// boss registry.
func New(strict bool, bosses Registry) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(logSchema))
	if err != nil {
		return nil, fmt.Errorf("invalid log schema: %w", err)
	}
	return &Validator{schema: schema, bosses: bosses, strict: strict}, nil
}

// MustNew is like New but panics when the log schema does not compile. The
// schema is a package constant, so a failure means a bad schema edit.
func MustNew(strict bool, bosses Registry) *Validator {
	v, err := New(strict, bosses)
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateLog returns nil when the log is acceptable. Structural failures
// are reported as a validation error carrying the flattened violation list
// (masked in strict mode); domain rule failures always name their cause.
func (v *Validator) ValidateLog(log model.Log) error {
	raw, err := json.Marshal(log)
	if err != nil {
		return errordefs.Wrap(errordefs.KindValidationFailed, "Log could not be serialized", err)
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return errordefs.Wrap(errordefs.KindValidationFailed, "Log validation failed", err)
	}

	if !result.Valid() {
		if v.strict {
			return errordefs.New(errordefs.KindValidationFailed, "Invalid log structure")
		}
		violations := make([]Violation, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, Violation{
				Path:    desc.Field(),
				Message: desc.Description(),
			})
		}
		return errordefs.NewWithDetails(errordefs.KindValidationFailed, "Log validation failed", violations)
	}

	// Domain rules the schema cannot express.
	if len(log.Players()) == 0 {
		return errordefs.New(errordefs.KindValidationFailed, "Log must contain at least one player entity")
	}
	for _, entity := range log.Entities {
		if entity.Type == model.EntityTypePlayer {
			continue
		}
		if !v.bosses.Supported(entity.NpcID) {
			return errordefs.New(errordefs.KindValidationFailed,
				fmt.Sprintf("Unsupported boss npcId: %d", entity.NpcID))
		}
	}

	return nil
}

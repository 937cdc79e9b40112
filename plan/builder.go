package plan

import (
	"context"
	"log/slog"

	errordefs "github.com/guy0090/lostarklogs/errors"
	"github.com/guy0090/lostarklogs/model"
)

// UserResolver resolves an API key to its owning user. A nil user with a
// nil error means the key is unknown.
type UserResolver interface {
	FindUserByAPIKey(ctx context.Context, key string) (*model.User, error)
}

// Builder builds plans, resolving filter API keys through users. A nil
// resolver treats every supplied key as unknown.
type Builder struct {
	users UserResolver
}

func NewBuilder(users UserResolver) *Builder {
	return &Builder{users: users}
}

// Build normalizes the filter and assembles its five-stage plan.
//
// An absent API key means no creator restriction. A supplied key must
// resolve: an unknown key is a not-found error, never a silent fallback to
// an unrestricted search.
func (b *Builder) Build(ctx context.Context, filter model.LogFilter) (*Plan, error) {
	f, err := filter.Normalize()
	if err != nil {
		return nil, errordefs.Wrap(errordefs.KindInvalidInput, "Invalid log filter", err)
	}

	creator := ""
	if f.Key != "" {
		var user *model.User
		if b.users != nil {
			user, err = b.users.FindUserByAPIKey(ctx, f.Key)
			if err != nil {
				slog.ErrorContext(ctx, "api key resolution failed", "error", err)
				return nil, errordefs.Wrap(errordefs.KindStoreFailed, "Failed to resolve API key", err)
			}
		}
		if user == nil {
			return nil, errordefs.New(errordefs.KindNotFound, "User not found")
		}
		creator = user.ID
	}

	sortField, sortOrder := sortFor(f)

	return &Plan{
		Filter: f,
		Stages: []Stage{
			MatchLogs{Creator: creator, Bosses: f.Bosses, Range: f.Range},
			UnwindEntities{},
			MatchEntities{
				MinLevel:     f.Levels[0],
				MaxLevel:     f.Levels[1],
				MinGearLevel: f.GearLevels[0],
				MaxGearLevel: f.GearLevels[1],
				Classes:      f.Classes,
				MinDPS:       f.PartyDPS,
			},
			GroupLogs{},
			SortGroups{Field: sortField, Order: sortOrder},
		},
	}, nil
}

// sortFor picks the single sort stage: the explicit sort if given, else
// newest-first when the filter is time-ranged, else highest DPS first.
func sortFor(f model.LogFilter) (string, model.SortOrder) {
	if f.Sort != nil {
		return f.Sort.Field, f.Sort.Order
	}
	if len(f.Range) == 2 {
		return model.SortFieldCreatedAt, model.SortDescending
	}
	return model.SortFieldDPS, model.SortDescending
}

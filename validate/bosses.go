package validate

// Registry reports whether an npcId belongs to a supported encounter. Every
// non-player entity in an uploaded log must pass this check.
type Registry interface {
	Supported(npcID int) bool
}

// StaticRegistry is a fixed npcId set with encounter names for display.
type StaticRegistry map[int]string

func (r StaticRegistry) Supported(npcID int) bool {
	_, ok := r[npcID]
	return ok
}

// Name returns the encounter name for an npcId, or "" when unknown.
func (r StaticRegistry) Name(npcID int) string {
	return r[npcID]
}

// SupportedBosses is the curated encounter set uploads are accepted for.
var SupportedBosses = StaticRegistry{
	// Guardian raids
	509006: "Ur'nil",
	509007: "Lumerus",
	509008: "Icy Legoros",
	509009: "Vertus",
	512002: "Chromanium",
	512004: "Nacrasena",
	512006: "Flame Fox Yoho",
	512008: "Tytalos",
	512009: "Dark Legoros",
	512011: "Helgaia",
	512012: "Calventus",
	512013: "Achates",
	512014: "Frost Helgaia",
	512015: "Lava Chromanium",
	512016: "Levanos",
	512017: "Alberhastic",
	512019: "Armored Nacrasena",
	512020: "Igrexion",
	512022: "Night Fox Yoho",
	512023: "Velganos",
	512025: "Deskaluda",
	512027: "Kungelanium",

	// Abyss raid: Argos
	634000: "Argos Phase 1",
	634010: "Argos Phase 2",
	634020: "Argos Phase 3",

	// Legion raid: Valtan
	480005: "Leader Lugaru",
	480006: "Destroyer Lucas",
	480009: "Demon Beast Commander Valtan",
	480010: "Ravaged Tyrant of Beasts",

	// Legion raid: Vykas
	480208: "Covetous Devourer Vykas",
	480209: "Covetous Legion Commander Vykas",
}

// DefaultRegistry returns the built-in supported-boss set.
func DefaultRegistry() Registry {
	return SupportedBosses
}

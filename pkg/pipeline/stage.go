package pipeline

// Stage is the stage tag of a registered unit: either global or a named stage.
// The zero value is global.
type Stage struct {
	name  string
	named bool
}

// Global returns the tag of units that apply to every declared stage.
func Global() Stage {
	return Stage{}
}

// Named returns the tag of units that only apply to the stage called name.
// Named("") is a stage called "", not a global tag.
func Named(name string) Stage {
	return Stage{name: name, named: true}
}

// IsGlobal reports whether the tag matches every stage.
func (s Stage) IsGlobal() bool {
	return !s.named
}

// Name returns the stage name and whether the tag is named.
func (s Stage) Name() (string, bool) {
	return s.name, s.named
}

// Matches reports whether a unit with this tag runs in stageName.
func (s Stage) Matches(stageName string) bool {
	return !s.named || s.name == stageName
}

func (s Stage) String() string {
	if !s.named {
		return "*"
	}

	return s.name
}

package blueprint

// ConstraintType names a blueprint constraint.
type ConstraintType string

const (
	ConstraintMarksTotal        ConstraintType = "marks_total"
	ConstraintDuration          ConstraintType = "duration"
	ConstraintCOCoverage        ConstraintType = "co_coverage"
	ConstraintUnitCoverage      ConstraintType = "unit_coverage"
	ConstraintBloomDistribution ConstraintType = "bloom_distribution"
	ConstraintDifficultyMix     ConstraintType = "difficulty_mix"
	ConstraintQuestionCount     ConstraintType = "question_count"
)

// Difficulty tiers recognized in difficulty_mix constraints and question tags.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Constraint is a single hard or soft requirement on an exam paper.
// Exactly one payload group is populated, determined by Type.
type Constraint struct {
	Type ConstraintType `json:"type"`
	Hard bool           `json:"hard"`

	// marks_total and duration carry a single integer value.
	Total int `json:"total,omitempty"`

	// co_coverage and unit_coverage map an id to its minimum marks.
	Minimums map[string]int `json:"minimums,omitempty"`

	// bloom_distribution maps a Bloom level (1..6) to its target share.
	Levels map[int]float64 `json:"levels,omitempty"`

	// difficulty_mix maps easy/medium/hard to target shares summing to 1.0.
	Mix map[string]float64 `json:"mix,omitempty"`

	// question_count bounds the number of questions.
	MinCount int `json:"min_count,omitempty"`
	MaxCount int `json:"max_count,omitempty"`
}

// Blueprint is a normalized exam paper blueprint loaded from YAML.
type Blueprint struct {
	PaperName   string       `json:"paper_name"`
	CourseCode  string       `json:"course_code"`
	ExamType    string       `json:"exam_type"`
	Constraints []Constraint `json:"constraints"`
	Source      string       `json:"-"`
}

// Constraint returns the first constraint of the given type, or nil.
func (b *Blueprint) Constraint(t ConstraintType) *Constraint {
	for i := range b.Constraints {
		if b.Constraints[i].Type == t {
			return &b.Constraints[i]
		}
	}
	return nil
}

// TotalMarks returns the marks_total value, or 0 when absent.
func (b *Blueprint) TotalMarks() int {
	if c := b.Constraint(ConstraintMarksTotal); c != nil {
		return c.Total
	}
	return 0
}

// DurationMinutes returns the duration value, or 0 when absent.
func (b *Blueprint) DurationMinutes() int {
	if c := b.Constraint(ConstraintDuration); c != nil {
		return c.Total
	}
	return 0
}

// COMinimums returns the co_coverage map, or nil when unconstrained.
func (b *Blueprint) COMinimums() map[string]int {
	if c := b.Constraint(ConstraintCOCoverage); c != nil {
		return c.Minimums
	}
	return nil
}

// UnitMinimums returns the unit_coverage map, or nil when unconstrained.
func (b *Blueprint) UnitMinimums() map[string]int {
	if c := b.Constraint(ConstraintUnitCoverage); c != nil {
		return c.Minimums
	}
	return nil
}

// BloomDistribution returns the bloom_distribution map, or nil when unconstrained.
func (b *Blueprint) BloomDistribution() map[int]float64 {
	if c := b.Constraint(ConstraintBloomDistribution); c != nil {
		return c.Levels
	}
	return nil
}

// DifficultyMix returns the difficulty_mix map, or nil when unconstrained.
func (b *Blueprint) DifficultyMix() map[string]float64 {
	if c := b.Constraint(ConstraintDifficultyMix); c != nil {
		return c.Mix
	}
	return nil
}

// HardConstraints returns the constraints marked as requirements.
func (b *Blueprint) HardConstraints() []Constraint {
	var out []Constraint
	for _, c := range b.Constraints {
		if c.Hard {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks that the blueprint carries the constraints every
// assembly algorithm depends on. It runs eagerly, before any selection
// or planning work starts.
func (b *Blueprint) Validate() error {
	var errs ValidationErrors
	for _, required := range []ConstraintType{ConstraintMarksTotal, ConstraintDuration} {
		c := b.Constraint(required)
		if c == nil {
			errs = append(errs, ValidationError{
				File:    b.Source,
				Field:   "constraints",
				Message: "missing required constraint: " + string(required),
			})
			continue
		}
		if c.Total <= 0 {
			errs = append(errs, ValidationError{
				File:    b.Source,
				Field:   string(required),
				Message: "value must be positive",
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

package planner

import (
	"fmt"
	"strings"

	"paperforge/internal/blueprint"
)

// ValidatePlan checks structural integrity and that spec marks sum to
// the target.
func ValidatePlan(plan Plan) error {
	if strings.TrimSpace(plan.PaperName) == "" {
		return fmt.Errorf("plan paper_name is required")
	}
	if strings.TrimSpace(plan.CourseCode) == "" {
		return fmt.Errorf("plan course_code is required")
	}
	if plan.TargetMarks <= 0 {
		return fmt.Errorf("plan target_marks must be positive")
	}
	if len(plan.Specs) == 0 {
		return fmt.Errorf("plan must include at least one question spec")
	}
	for idx, spec := range plan.Specs {
		if err := ValidateSpec(spec); err != nil {
			return fmt.Errorf("plan spec %d: %w", idx, err)
		}
	}
	if got := plan.TotalMarks(); got != plan.TargetMarks {
		return fmt.Errorf("plan specs total %d marks, want %d", got, plan.TargetMarks)
	}
	return nil
}

// ValidateSpec checks a single question spec.
func ValidateSpec(spec QuestionSpec) error {
	if strings.TrimSpace(spec.UnitID) == "" {
		return fmt.Errorf("unit_id is required")
	}
	if strings.TrimSpace(spec.COID) == "" {
		return fmt.Errorf("co_id is required")
	}
	if spec.BloomLevel < 1 || spec.BloomLevel > 6 {
		return fmt.Errorf("bloom_level must be between 1 and 6")
	}
	switch spec.Difficulty {
	case blueprint.DifficultyEasy, blueprint.DifficultyMedium, blueprint.DifficultyHard:
	default:
		return fmt.Errorf("difficulty must be easy, medium, or hard")
	}
	if spec.Marks <= 0 {
		return fmt.Errorf("marks must be positive")
	}
	return nil
}

package blueprint

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

type rawBlueprint struct {
	PaperName   string          `yaml:"paper_name"`
	CourseCode  string          `yaml:"course_code"`
	ExamType    string          `yaml:"exam_type"`
	Constraints []rawConstraint `yaml:"constraints"`
}

type rawConstraint struct {
	Type     string             `yaml:"type"`
	Hard     *bool              `yaml:"hard"`
	Total    *int               `yaml:"total"`
	Minimums map[string]int     `yaml:"minimums"`
	Levels   map[int]float64    `yaml:"levels"`
	Mix      map[string]float64 `yaml:"mix"`
	MinCount *int               `yaml:"min"`
	MaxCount *int               `yaml:"max"`
}

// ValidationError captures a single field-specific validation issue.
type ValidationError struct {
	File    string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
}

// ValidationErrors aggregates multiple validation problems.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

const mixTolerance = 0.01

// hardByDefault lists constraint types treated as requirements unless the
// document says otherwise. Distribution targets default to preferences.
var hardByDefault = map[ConstraintType]bool{
	ConstraintMarksTotal:        true,
	ConstraintDuration:          true,
	ConstraintCOCoverage:        true,
	ConstraintUnitCoverage:      true,
	ConstraintBloomDistribution: false,
	ConstraintDifficultyMix:     false,
	ConstraintQuestionCount:     false,
}

// ParseAndValidate unmarshals and validates a YAML blueprint document.
func ParseAndValidate(data []byte, source string) (Blueprint, error) {
	var raw rawBlueprint
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Blueprint{}, ValidationErrors{{
			File:    source,
			Field:   "yaml",
			Message: err.Error(),
		}}
	}
	return validateRawBlueprint(raw, source)
}

func validateRawBlueprint(raw rawBlueprint, source string) (Blueprint, error) {
	var errs ValidationErrors

	if strings.TrimSpace(raw.PaperName) == "" {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   "paper_name",
			Message: "paper_name is required",
		})
	}
	if strings.TrimSpace(raw.CourseCode) == "" {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   "course_code",
			Message: "course_code is required",
		})
	}
	if len(raw.Constraints) == 0 {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   "constraints",
			Message: "must contain at least one constraint",
		})
	}

	seen := make(map[ConstraintType]struct{})
	var normalized []Constraint

	for idx, rawC := range raw.Constraints {
		fieldPath := fmt.Sprintf("constraints[%d]", idx)
		c, cErrs := validateConstraint(rawC, fieldPath, source)
		errs = append(errs, cErrs...)

		if c.Type != "" {
			if _, exists := seen[c.Type]; exists {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   fieldPath + ".type",
					Message: fmt.Sprintf("duplicate constraint type %q", c.Type),
				})
			} else {
				seen[c.Type] = struct{}{}
			}
		}
		normalized = append(normalized, c)
	}

	if len(errs) > 0 {
		return Blueprint{}, errs
	}

	examType := strings.TrimSpace(raw.ExamType)
	if examType == "" {
		examType = "midterm"
	}

	bp := Blueprint{
		PaperName:   strings.TrimSpace(raw.PaperName),
		CourseCode:  strings.TrimSpace(raw.CourseCode),
		ExamType:    examType,
		Constraints: normalized,
		Source:      source,
	}

	if err := bp.Validate(); err != nil {
		if ve, ok := err.(ValidationErrors); ok {
			return Blueprint{}, ve
		}
		return Blueprint{}, err
	}
	return bp, nil
}

func validateConstraint(raw rawConstraint, fieldPath string, source string) (Constraint, ValidationErrors) {
	var errs ValidationErrors

	ctype, typeErr := parseConstraintType(raw.Type)
	if typeErr != nil {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".type",
			Message: typeErr.Error(),
		})
		return Constraint{}, errs
	}

	c := Constraint{Type: ctype, Hard: hardByDefault[ctype]}
	if raw.Hard != nil {
		c.Hard = *raw.Hard
	}

	switch ctype {
	case ConstraintMarksTotal, ConstraintDuration:
		if raw.Total == nil {
			errs = append(errs, ValidationError{
				File:    source,
				Field:   fieldPath + ".total",
				Message: "total is required",
			})
		} else if *raw.Total <= 0 {
			errs = append(errs, ValidationError{
				File:    source,
				Field:   fieldPath + ".total",
				Message: "must be positive",
			})
		} else {
			c.Total = *raw.Total
		}

	case ConstraintCOCoverage, ConstraintUnitCoverage:
		if len(raw.Minimums) == 0 {
			errs = append(errs, ValidationError{
				File:    source,
				Field:   fieldPath + ".minimums",
				Message: "minimums map is required",
			})
		}
		for id, min := range raw.Minimums {
			if strings.TrimSpace(id) == "" {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   fieldPath + ".minimums",
					Message: "minimums keys cannot be empty",
				})
			}
			if min < 0 {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   fmt.Sprintf("%s.minimums[%s]", fieldPath, id),
					Message: "minimum marks cannot be negative",
				})
			}
		}
		c.Minimums = raw.Minimums

	case ConstraintBloomDistribution:
		if len(raw.Levels) == 0 {
			errs = append(errs, ValidationError{
				File:    source,
				Field:   fieldPath + ".levels",
				Message: "levels map is required",
			})
		}
		for level, share := range raw.Levels {
			if level < 1 || level > 6 {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   fmt.Sprintf("%s.levels[%d]", fieldPath, level),
					Message: "Bloom level must be between 1 and 6",
				})
			}
			if share < 0 || share > 1 {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   fmt.Sprintf("%s.levels[%d]", fieldPath, level),
					Message: "share must be between 0.0 and 1.0",
				})
			}
		}
		c.Levels = raw.Levels

	case ConstraintDifficultyMix:
		if len(raw.Mix) == 0 {
			errs = append(errs, ValidationError{
				File:    source,
				Field:   fieldPath + ".mix",
				Message: "mix map is required",
			})
		}
		sum := 0.0
		for tier, share := range raw.Mix {
			switch tier {
			case DifficultyEasy, DifficultyMedium, DifficultyHard:
			default:
				errs = append(errs, ValidationError{
					File:    source,
					Field:   fmt.Sprintf("%s.mix[%s]", fieldPath, tier),
					Message: "difficulty must be easy, medium, or hard",
				})
			}
			sum += share
		}
		if len(raw.Mix) > 0 && math.Abs(sum-1.0) > mixTolerance {
			errs = append(errs, ValidationError{
				File:    source,
				Field:   fieldPath + ".mix",
				Message: fmt.Sprintf("shares must sum to 1.0 (got %.3f)", sum),
			})
		}
		c.Mix = raw.Mix

	case ConstraintQuestionCount:
		if raw.MinCount == nil || raw.MaxCount == nil {
			errs = append(errs, ValidationError{
				File:    source,
				Field:   fieldPath,
				Message: "min and max are required",
			})
		} else {
			if *raw.MinCount <= 0 {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   fieldPath + ".min",
					Message: "must be positive",
				})
			}
			if *raw.MaxCount < *raw.MinCount {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   fieldPath + ".max",
					Message: "must be >= min",
				})
			}
			c.MinCount = *raw.MinCount
			c.MaxCount = *raw.MaxCount
		}
	}

	return c, errs
}

func parseConstraintType(value string) (ConstraintType, error) {
	switch ConstraintType(strings.TrimSpace(value)) {
	case ConstraintMarksTotal:
		return ConstraintMarksTotal, nil
	case ConstraintDuration:
		return ConstraintDuration, nil
	case ConstraintCOCoverage:
		return ConstraintCOCoverage, nil
	case ConstraintUnitCoverage:
		return ConstraintUnitCoverage, nil
	case ConstraintBloomDistribution:
		return ConstraintBloomDistribution, nil
	case ConstraintDifficultyMix:
		return ConstraintDifficultyMix, nil
	case ConstraintQuestionCount:
		return ConstraintQuestionCount, nil
	default:
		return ConstraintType(value), fmt.Errorf("invalid constraint type %q", value)
	}
}

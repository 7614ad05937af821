package blueprint

// MidtermTemplate returns a standard 50-mark midterm blueprint for the
// given course.
func MidtermTemplate(courseCode string) Blueprint {
	return Blueprint{
		PaperName:  "Midterm Examination",
		CourseCode: courseCode,
		ExamType:   "midterm",
		Constraints: []Constraint{
			{Type: ConstraintMarksTotal, Hard: true, Total: 50},
			{Type: ConstraintDuration, Hard: true, Total: 90},
			{Type: ConstraintBloomDistribution, Levels: map[int]float64{
				1: 0.15, 2: 0.25, 3: 0.30, 4: 0.20, 5: 0.10,
			}},
			{Type: ConstraintDifficultyMix, Mix: map[string]float64{
				DifficultyEasy: 0.2, DifficultyMedium: 0.6, DifficultyHard: 0.2,
			}},
			{Type: ConstraintCOCoverage, Hard: true, Minimums: map[string]int{
				"CO1": 10, "CO2": 15, "CO3": 15, "CO4": 10,
			}},
			{Type: ConstraintQuestionCount, MinCount: 5, MaxCount: 10},
		},
	}
}

// FinalTemplate returns a standard 100-mark final exam blueprint for the
// given course.
func FinalTemplate(courseCode string) Blueprint {
	return Blueprint{
		PaperName:  "Final Examination",
		CourseCode: courseCode,
		ExamType:   "final",
		Constraints: []Constraint{
			{Type: ConstraintMarksTotal, Hard: true, Total: 100},
			{Type: ConstraintDuration, Hard: true, Total: 180},
			{Type: ConstraintBloomDistribution, Levels: map[int]float64{
				1: 0.10, 2: 0.20, 3: 0.30, 4: 0.25, 5: 0.10, 6: 0.05,
			}},
			{Type: ConstraintDifficultyMix, Mix: map[string]float64{
				DifficultyEasy: 0.15, DifficultyMedium: 0.60, DifficultyHard: 0.25,
			}},
			{Type: ConstraintCOCoverage, Hard: true, Minimums: map[string]int{
				"CO1": 20, "CO2": 20, "CO3": 20, "CO4": 20, "CO5": 20,
			}},
			{Type: ConstraintUnitCoverage, Hard: true, Minimums: map[string]int{
				"unit_1": 20, "unit_2": 20, "unit_3": 20, "unit_4": 20, "unit_5": 20,
			}},
			{Type: ConstraintQuestionCount, MinCount: 8, MaxCount: 15},
		},
	}
}

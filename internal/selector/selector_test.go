package selector

import (
	"reflect"
	"testing"

	"paperforge/internal/bank"
	"paperforge/internal/blueprint"
)

func testBlueprint() blueprint.Blueprint {
	return blueprint.Blueprint{
		PaperName:  "Midterm Examination",
		CourseCode: "CS101",
		ExamType:   "midterm",
		Constraints: []blueprint.Constraint{
			{Type: blueprint.ConstraintMarksTotal, Hard: true, Total: 50},
			{Type: blueprint.ConstraintDuration, Hard: true, Total: 90},
			{Type: blueprint.ConstraintCOCoverage, Hard: true, Minimums: map[string]int{
				"CO1": 10, "CO2": 15, "CO3": 10, "CO4": 5,
			}},
			{Type: blueprint.ConstraintBloomDistribution, Levels: map[int]float64{
				1: 0.2, 2: 0.4, 3: 0.4,
			}},
			{Type: blueprint.ConstraintDifficultyMix, Mix: map[string]float64{
				"easy": 0.2, "medium": 0.6, "hard": 0.2,
			}},
		},
	}
}

func question(id int64, co, unit string, bloom int, difficulty string, marks int) bank.Question {
	return bank.Question{
		ID:           id,
		Text:         "q",
		PrimaryCO:    co,
		UnitID:       unit,
		BloomLevel:   bloom,
		Difficulty:   difficulty,
		Marks:        marks,
		QualityScore: 80,
		ReviewStatus: bank.ReviewAccepted,
	}
}

func richPool() []bank.Question {
	var pool []bank.Question
	id := int64(1)
	for _, co := range []string{"CO1", "CO2", "CO3", "CO4"} {
		unit := "unit_" + co[2:]
		for _, marks := range []int{2, 5, 5, 10, 10} {
			for bloom := 1; bloom <= 3; bloom++ {
				pool = append(pool, question(id, co, unit, bloom, "medium", marks))
				id++
			}
		}
	}
	return pool
}

func TestSelectSatisfiesBlueprint(t *testing.T) {
	bp := testBlueprint()
	result := Select(bp, richPool(), Options{})

	if !result.Success {
		t.Fatalf("expected success, constraints %+v diag %+v", result.Constraints, result.Diagnostics)
	}
	if result.TotalMarks < 45 || result.TotalMarks > 55 {
		t.Fatalf("total marks %d outside tolerance of 50", result.TotalMarks)
	}

	summary := Summarize(result.Selected)
	for co, min := range bp.COMinimums() {
		if summary.COMarks[co] < min {
			t.Fatalf("%s minimum unmet: %d < %d", co, summary.COMarks[co], min)
		}
	}
	if !result.Constraints["co_coverage"] {
		t.Fatalf("co_coverage flag should hold: %+v", result.Constraints)
	}
}

func TestSelectNeverExceedsBudget(t *testing.T) {
	bp := testBlueprint()
	result := Select(bp, richPool(), Options{Randomize: true, Seed: 7})

	if result.TotalMarks > bp.TotalMarks() {
		t.Fatalf("selection overshot budget: %d > %d", result.TotalMarks, bp.TotalMarks())
	}
	seen := make(map[int64]bool)
	for _, q := range result.Selected {
		if seen[q.ID] {
			t.Fatalf("question %d selected twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestSelectBudgetBindsWithUnmetMinimum(t *testing.T) {
	// The CO1 minimum needs more marks than the whole paper allows. Once
	// the budget is spent the run must stop, not keep chasing the minimum.
	bp := blueprint.Blueprint{
		PaperName:  "Quiz",
		CourseCode: "CS101",
		ExamType:   "midterm",
		Constraints: []blueprint.Constraint{
			{Type: blueprint.ConstraintMarksTotal, Hard: true, Total: 10},
			{Type: blueprint.ConstraintCOCoverage, Hard: true, Minimums: map[string]int{
				"CO1": 20,
			}},
		},
	}
	pool := []bank.Question{
		question(1, "CO1", "unit_1", 2, "medium", 10),
		question(2, "CO1", "unit_1", 3, "medium", 10),
	}

	result := Select(bp, pool, Options{})

	if result.TotalMarks > bp.TotalMarks() {
		t.Fatalf("selection exceeded budget: %d > %d", result.TotalMarks, bp.TotalMarks())
	}
	if len(result.Selected) != 1 {
		t.Fatalf("expected exactly one question, got %d", len(result.Selected))
	}
	if result.Success {
		t.Fatalf("CO1 shortfall should not report success")
	}
	if result.Constraints["co_coverage"] {
		t.Fatalf("co_coverage should be unmet: %+v", result.Constraints)
	}
}

func TestSelectEmptyPool(t *testing.T) {
	result := Select(testBlueprint(), nil, Options{})

	if result.Success {
		t.Fatalf("expected failure on empty pool")
	}
	if result.Diagnostics.Error != "no_eligible_items" {
		t.Fatalf("unexpected error %q", result.Diagnostics.Error)
	}
	if len(result.Selected) != 0 {
		t.Fatalf("expected no selections")
	}
}

func TestSelectNothingFits(t *testing.T) {
	bp := testBlueprint()
	// Every candidate is larger than the whole budget.
	pool := []bank.Question{
		question(1, "CO1", "unit_1", 2, "medium", 60),
		question(2, "CO2", "unit_2", 3, "medium", 70),
	}
	result := Select(bp, pool, Options{})

	if result.Success {
		t.Fatalf("expected failure when nothing fits")
	}
	if result.Diagnostics.Error != "constraint_satisfaction_failed" {
		t.Fatalf("unexpected error %q", result.Diagnostics.Error)
	}
	if result.Diagnostics.EligibleCount != 2 {
		t.Fatalf("expected eligible count 2, got %d", result.Diagnostics.EligibleCount)
	}
}

func TestSelectDeterministicWithSeed(t *testing.T) {
	bp := testBlueprint()
	pool := richPool()

	first := Select(bp, pool, Options{Randomize: true, Seed: 42})
	second := Select(bp, pool, Options{Randomize: true, Seed: 42})

	if !reflect.DeepEqual(selectedIDs(first), selectedIDs(second)) {
		t.Fatalf("same seed produced different selections:\n%v\n%v",
			selectedIDs(first), selectedIDs(second))
	}
}

func TestSelectWithoutRandomizeIsStable(t *testing.T) {
	bp := testBlueprint()
	pool := richPool()

	first := Select(bp, pool, Options{})
	second := Select(bp, pool, Options{})

	if !reflect.DeepEqual(selectedIDs(first), selectedIDs(second)) {
		t.Fatalf("unshuffled selection should be stable")
	}
}

func selectedIDs(r Result) []int64 {
	ids := make([]int64, 0, len(r.Selected))
	for _, q := range r.Selected {
		ids = append(ids, q.ID)
	}
	return ids
}

func TestVerifyTolerance(t *testing.T) {
	bp := testBlueprint()

	within := []bank.Question{
		question(1, "CO1", "unit_1", 2, "medium", 10),
		question(2, "CO2", "unit_2", 2, "medium", 16),
		question(3, "CO2", "unit_2", 3, "medium", 10),
		question(4, "CO1", "unit_1", 1, "easy", 10),
	}
	checks := Verify(within, bp) // 46 marks, within 50 +/- 5
	if !checks["total_marks"] {
		t.Fatalf("46 marks should be within tolerance of 50: %+v", checks)
	}

	outside := []bank.Question{
		question(1, "CO1", "unit_1", 2, "medium", 10),
		question(2, "CO2", "unit_2", 2, "medium", 16),
	}
	checks = Verify(outside, bp)
	if checks["total_marks"] {
		t.Fatalf("26 marks should miss the 50-mark target")
	}

	// Distribution constraints are advisory and always pass when present.
	if !checks["bloom_distribution"] || !checks["difficulty_mix"] {
		t.Fatalf("distribution checks should not fail: %+v", checks)
	}
}

func TestVerifyCoverageMinimums(t *testing.T) {
	bp := testBlueprint()
	selected := []bank.Question{
		question(1, "CO1", "unit_1", 2, "medium", 10),
		question(2, "CO2", "unit_2", 2, "medium", 10), // CO2 needs 15
		question(3, "CO1", "unit_1", 3, "medium", 16),
		question(4, "CO1", "unit_1", 1, "easy", 10),
	}
	checks := Verify(selected, bp)
	if checks["co_coverage"] {
		t.Fatalf("CO2 shortfall should fail co_coverage: %+v", checks)
	}
}

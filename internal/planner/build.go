package planner

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"paperforge/internal/blueprint"
)

// standardMarks are the question sizes a plan draws from, largest first
// when choosing.
var standardMarks = []int{2, 5, 10, 16}

// Options tunes plan construction.
type Options struct {
	// Seed drives the weighted Bloom and difficulty draws. A fixed seed
	// makes the plan reproducible.
	Seed int64
	// UnitForCO overrides the default CO-to-unit mapping per course
	// outcome id. Missing entries fall back to the numeric heuristic.
	UnitForCO map[string]string
	// COForUnit overrides the default unit-to-CO mapping per unit id.
	COForUnit map[string]string
}

// Build constructs a generation plan whose specs sum exactly to the
// blueprint's total marks.
func Build(bp blueprint.Blueprint, opts Options) (Plan, error) {
	if err := bp.Validate(); err != nil {
		return Plan{}, err
	}

	targetMarks := bp.TotalMarks()
	coMinimums := bp.COMinimums()
	unitMinimums := bp.UnitMinimums()
	bloomTargets := bp.BloomDistribution()
	difficultyTargets := bp.DifficultyMix()

	rng := rand.New(rand.NewSource(opts.Seed))

	plan := Plan{
		PaperName:   bp.PaperName,
		CourseCode:  bp.CourseCode,
		TargetMarks: targetMarks,
		Seed:        opts.Seed,
		CreatedAt:   time.Now().UTC(),
	}
	remaining := targetMarks

	// Phase 1: course outcome minimums.
	for _, co := range sortedMinimumKeys(coMinimums) {
		allocated := 0
		for allocated < coMinimums[co] && remaining > 0 {
			marks := chooseMarks(coMinimums[co]-allocated, remaining)
			plan.Specs = append(plan.Specs, QuestionSpec{
				UnitID:     unitForCO(co, opts.UnitForCO),
				COID:       co,
				BloomLevel: chooseBloomLevel(rng, bloomTargets),
				Difficulty: chooseDifficulty(rng, difficultyTargets),
				Marks:      marks,
			})
			allocated += marks
			remaining -= marks
		}
	}

	// Phase 2: unit minimums, crediting marks phase 1 already placed.
	for _, unit := range sortedMinimumKeys(unitMinimums) {
		allocated := 0
		for _, spec := range plan.Specs {
			if spec.UnitID == unit {
				allocated += spec.Marks
			}
		}
		for allocated < unitMinimums[unit] && remaining > 0 {
			marks := chooseMarks(unitMinimums[unit]-allocated, remaining)
			plan.Specs = append(plan.Specs, QuestionSpec{
				UnitID:     unit,
				COID:       coForUnit(unit, opts.COForUnit),
				BloomLevel: chooseBloomLevel(rng, bloomTargets),
				Difficulty: chooseDifficulty(rng, difficultyTargets),
				Marks:      marks,
			})
			allocated += marks
			remaining -= marks
		}
	}

	// Phase 3: fill the rest, cycling course outcomes.
	cos := sortedMinimumKeys(coMinimums)
	for remaining > 0 {
		marks := chooseMarks(remaining, remaining)
		co := "CO1"
		if len(cos) > 0 {
			co = cos[len(plan.Specs)%len(cos)]
		}
		plan.Specs = append(plan.Specs, QuestionSpec{
			UnitID:     unitForCO(co, opts.UnitForCO),
			COID:       co,
			BloomLevel: chooseBloomLevel(rng, bloomTargets),
			Difficulty: chooseDifficulty(rng, difficultyTargets),
			Marks:      marks,
		})
		remaining -= marks
	}

	if got := plan.TotalMarks(); got != targetMarks {
		return Plan{}, fmt.Errorf("plan totals %d marks, want %d", got, targetMarks)
	}
	return plan, nil
}

// chooseMarks picks the largest standard size that fits both the
// outstanding requirement and the remaining budget.
func chooseMarks(needed, available int) int {
	for i := len(standardMarks) - 1; i >= 0; i-- {
		if standardMarks[i] <= needed && standardMarks[i] <= available {
			return standardMarks[i]
		}
	}
	if available < 2 {
		return available
	}
	return 2
}

// chooseBloomLevel draws a Bloom level weighted by the target
// distribution. Without a distribution it defaults to level 2.
func chooseBloomLevel(rng *rand.Rand, targets map[int]float64) int {
	if len(targets) == 0 {
		return 2
	}
	levels := make([]int, 0, len(targets))
	for level := range targets {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	total := 0.0
	for _, level := range levels {
		total += targets[level]
	}
	if total <= 0 {
		return levels[0]
	}

	r := rng.Float64() * total
	for _, level := range levels {
		r -= targets[level]
		if r < 0 {
			return level
		}
	}
	return levels[len(levels)-1]
}

// chooseDifficulty draws a difficulty weighted by the target mix.
// Without a mix it defaults to medium.
func chooseDifficulty(rng *rand.Rand, targets map[string]float64) string {
	if len(targets) == 0 {
		return blueprint.DifficultyMedium
	}
	tiers := make([]string, 0, len(targets))
	for tier := range targets {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)

	total := 0.0
	for _, tier := range tiers {
		total += targets[tier]
	}
	if total <= 0 {
		return tiers[0]
	}

	r := rng.Float64() * total
	for _, tier := range tiers {
		r -= targets[tier]
		if r < 0 {
			return tier
		}
	}
	return tiers[len(tiers)-1]
}

// unitForCO maps a course outcome to a unit, preferring the configured
// mapping and falling back to the numeric heuristic (CO1 to unit_1,
// capped at unit_5).
func unitForCO(coID string, overrides map[string]string) string {
	if unit, ok := overrides[coID]; ok {
		return unit
	}
	n := trailingNumber(coID, "CO")
	if n > 5 {
		n = 5
	}
	if n < 1 {
		n = 1
	}
	return fmt.Sprintf("unit_%d", n)
}

// coForUnit is the reverse mapping.
func coForUnit(unitID string, overrides map[string]string) string {
	if co, ok := overrides[unitID]; ok {
		return co
	}
	n := trailingNumber(unitID, "unit_")
	if n > 5 {
		n = 5
	}
	if n < 1 {
		n = 1
	}
	return fmt.Sprintf("CO%d", n)
}

func trailingNumber(id, prefix string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
	if err != nil {
		return 1
	}
	return n
}

func sortedMinimumKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

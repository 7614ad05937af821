// Package selector picks questions from the bank to satisfy a blueprint.
//
// Selection is greedy across three phases: course outcome minimums first,
// then unit minimums, then a soft fill that steers remaining marks toward
// the blueprint's Bloom and difficulty targets.
package selector

import (
	"math/rand"
	"sort"

	"paperforge/internal/bank"
	"paperforge/internal/blueprint"
)

// Options tunes a selection run.
type Options struct {
	// Randomize shuffles the candidate pool before selection so repeated
	// runs over the same bank produce different papers.
	Randomize bool
	// Seed drives the shuffle when Randomize is set. A fixed seed makes
	// the run reproducible.
	Seed int64
}

// Diagnostics carries counters and the failure reason, if any.
type Diagnostics struct {
	EligibleCount int    `json:"eligible_count"`
	SelectedCount int    `json:"selected_count"`
	Error         string `json:"error,omitempty"`
}

// Result is the outcome of a selection run.
type Result struct {
	Success     bool
	Selected    []bank.Question
	TotalMarks  int
	Constraints map[string]bool
	Diagnostics Diagnostics
}

// Select picks questions from pool to satisfy the blueprint.
func Select(bp blueprint.Blueprint, pool []bank.Question, opts Options) Result {
	if len(pool) == 0 {
		return Result{
			Constraints: map[string]bool{},
			Diagnostics: Diagnostics{Error: "no_eligible_items"},
		}
	}

	targetMarks := bp.TotalMarks()
	coMinimums := bp.COMinimums()
	unitMinimums := bp.UnitMinimums()
	bloomTargets := bp.BloomDistribution()
	difficultyTargets := bp.DifficultyMix()

	candidates := make([]bank.Question, len(pool))
	copy(candidates, pool)
	if opts.Randomize {
		rng := rand.New(rand.NewSource(opts.Seed))
		rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
	}

	var selected []bank.Question
	remaining := targetMarks

	coFulfilled := make(map[string]int, len(coMinimums))
	unitFulfilled := make(map[string]int, len(unitMinimums))

	take := func(idx int) {
		q := candidates[idx]
		selected = append(selected, q)
		candidates = append(candidates[:idx], candidates[idx+1:]...)
		remaining -= q.Marks
		if _, ok := coFulfilled[q.PrimaryCO]; ok || coMinimums[q.PrimaryCO] > 0 {
			coFulfilled[q.PrimaryCO] += q.Marks
		}
		if _, ok := unitFulfilled[q.UnitID]; ok || unitMinimums[q.UnitID] > 0 {
			unitFulfilled[q.UnitID] += q.Marks
		}
	}

	// Phase 1: course outcome minimums. A shortfall here is recorded by
	// verification rather than aborting the run.
	for _, co := range sortedKeys(coMinimums) {
		for coFulfilled[co] < coMinimums[co] {
			idx := findBest(candidates, criteria{primaryCO: co, maxMarks: remaining})
			if idx < 0 {
				break
			}
			take(idx)
		}
	}

	// Phase 2: unit minimums. Marks already placed in phase 1 count.
	for _, unit := range sortedKeys(unitMinimums) {
		for unitFulfilled[unit] < unitMinimums[unit] {
			idx := findBest(candidates, criteria{unitID: unit, maxMarks: remaining})
			if idx < 0 {
				break
			}
			take(idx)
		}
	}

	// Phase 3: fill remaining marks toward the soft distribution targets.
	for remaining > 0 && len(candidates) > 0 {
		idx := findBest(candidates, criteria{
			maxMarks:         remaining,
			preferBloom:      underrepresentedBloom(selected, bloomTargets),
			preferDifficulty: underrepresentedDifficulty(selected, difficultyTargets),
		})
		if idx < 0 {
			break
		}
		take(idx)
	}

	if len(selected) == 0 {
		return Result{
			Constraints: map[string]bool{},
			Diagnostics: Diagnostics{
				EligibleCount: len(pool),
				Error:         "constraint_satisfaction_failed",
			},
		}
	}

	total := 0
	for _, q := range selected {
		total += q.Marks
	}

	constraints := Verify(selected, bp)
	success := true
	for _, ok := range constraints {
		if !ok {
			success = false
			break
		}
	}

	return Result{
		Success:     success,
		Selected:    selected,
		TotalMarks:  total,
		Constraints: constraints,
		Diagnostics: Diagnostics{
			EligibleCount: len(pool),
			SelectedCount: len(selected),
		},
	}
}

type criteria struct {
	primaryCO        string
	unitID           string
	maxMarks         int
	preferBloom      int
	preferDifficulty string
}

// findBest returns the index of the highest-scoring candidate matching
// the criteria, or -1. Ties keep the earliest candidate. The marks cap
// always binds, so an exhausted budget matches nothing.
func findBest(candidates []bank.Question, c criteria) int {
	best := -1
	bestScore := -1.0

	for i, q := range candidates {
		if c.primaryCO != "" && q.PrimaryCO != c.primaryCO {
			continue
		}
		if c.unitID != "" && q.UnitID != c.unitID {
			continue
		}
		if q.Marks > c.maxMarks {
			continue
		}

		score := 0.0
		if c.preferBloom != 0 && q.BloomLevel == c.preferBloom {
			score += 10
		}
		if c.preferDifficulty != "" && q.Difficulty == c.preferDifficulty {
			score += 5
		}
		score += q.QualityScore / 100 * 3

		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// underrepresentedBloom returns the Bloom level whose marks share falls
// furthest below its target, or 0 when there is nothing to steer toward.
func underrepresentedBloom(selected []bank.Question, targets map[int]float64) int {
	if len(targets) == 0 || len(selected) == 0 {
		return 0
	}
	total := 0
	for _, q := range selected {
		total += q.Marks
	}
	if total == 0 {
		return 0
	}

	current := make(map[int]int, len(targets))
	for _, q := range selected {
		if _, ok := targets[q.BloomLevel]; ok {
			current[q.BloomLevel] += q.Marks
		}
	}

	maxDeficit := -1.0
	level := 0
	for _, l := range sortedIntKeys(targets) {
		deficit := targets[l] - float64(current[l])/float64(total)
		if deficit > maxDeficit {
			maxDeficit = deficit
			level = l
		}
	}
	return level
}

// underrepresentedDifficulty mirrors underrepresentedBloom for the
// difficulty mix.
func underrepresentedDifficulty(selected []bank.Question, targets map[string]float64) string {
	if len(targets) == 0 || len(selected) == 0 {
		return ""
	}
	total := 0
	for _, q := range selected {
		total += q.Marks
	}
	if total == 0 {
		return ""
	}

	current := make(map[string]int, len(targets))
	for _, q := range selected {
		if _, ok := targets[q.Difficulty]; ok {
			current[q.Difficulty] += q.Marks
		}
	}

	maxDeficit := -1.0
	tier := ""
	for _, d := range sortedShareKeys(targets) {
		deficit := targets[d] - float64(current[d])/float64(total)
		if deficit > maxDeficit {
			maxDeficit = deficit
			tier = d
		}
	}
	return tier
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedIntKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedShareKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

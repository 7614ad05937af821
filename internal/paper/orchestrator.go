package paper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"paperforge/internal/audit"
	"paperforge/internal/bank"
	"paperforge/internal/blueprint"
	"paperforge/internal/planner"
	"paperforge/internal/producer"
	"paperforge/internal/selector"
)

// DefaultMinFromBank is the hybrid-mode threshold below which the bank
// contribution is discarded entirely.
const DefaultMinFromBank = 3

// Orchestrator assembles papers from the bank and the producer.
type Orchestrator struct {
	Store    *bank.Store
	Producer producer.Producer
	// PapersDir is where rendered papers land. Empty disables rendering.
	PapersDir string
}

// Options tunes one assembly run.
type Options struct {
	Mode        Mode
	AuthorID    string
	MinFromBank int
	Randomize   bool
	Seed        int64
	// Planner carries the CO and unit mapping overrides for fresh plans.
	Planner planner.Options
}

// Assemble runs one paper assembly. It returns ErrEmptyResult when the
// run yields no questions; every other failure is a hard error.
func (o *Orchestrator) Assemble(ctx context.Context, bp blueprint.Blueprint, opts Options) (*Paper, error) {
	if err := bp.Validate(); err != nil {
		return nil, err
	}
	if opts.MinFromBank == 0 {
		opts.MinFromBank = DefaultMinFromBank
	}
	opts.Planner.Seed = opts.Seed

	_ = audit.LogEvent("paper", "assemble_started", map[string]any{
		"paper_name":  bp.PaperName,
		"course_code": bp.CourseCode,
		"mode":        string(opts.Mode),
		"author_id":   opts.AuthorID,
	})

	var (
		result *Paper
		err    error
	)
	switch opts.Mode {
	case ModeBankOnly:
		result, err = o.assembleBankOnly(ctx, bp, opts)
	case ModeFreshOnly:
		result, err = o.assembleFreshOnly(ctx, bp, opts)
	case ModeHybrid:
		result, err = o.assembleHybrid(ctx, bp, opts)
	default:
		err = fmt.Errorf("unknown assembly mode %q", opts.Mode)
	}

	finished := map[string]any{
		"paper_name": bp.PaperName,
		"mode":       string(opts.Mode),
	}
	if err != nil {
		finished["error"] = err.Error()
	}
	if result != nil {
		finished["paper_id"] = result.ID
		finished["question_count"] = len(result.QuestionIDs)
		finished["total_marks"] = result.TotalMarks
	}
	_ = audit.LogEvent("paper", "assemble_finished", finished)

	return result, err
}

func (o *Orchestrator) assembleBankOnly(ctx context.Context, bp blueprint.Blueprint, opts Options) (*Paper, error) {
	pool, err := o.Store.EligiblePool(bp.CourseCode, opts.AuthorID)
	if err != nil {
		return nil, err
	}

	result := selector.Select(bp, pool, selector.Options{
		Randomize: opts.Randomize,
		Seed:      opts.Seed,
	})
	if len(result.Selected) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResult, result.Diagnostics.Error)
	}

	// Partial satisfaction is surfaced via the constraint map, not blocked.
	return o.finalize(bp, result.Selected, nil, result.Constraints)
}

func (o *Orchestrator) assembleFreshOnly(ctx context.Context, bp blueprint.Blueprint, opts Options) (*Paper, error) {
	produced, err := o.produceFromPlan(ctx, bp, opts)
	if err != nil {
		return nil, err
	}
	if len(produced) == 0 {
		return nil, fmt.Errorf("%w: all production calls failed", ErrEmptyResult)
	}

	constraints := selector.Verify(produced, bp)
	return o.finalize(bp, nil, produced, constraints)
}

func (o *Orchestrator) assembleHybrid(ctx context.Context, bp blueprint.Blueprint, opts Options) (*Paper, error) {
	pool, err := o.Store.EligiblePool(bp.CourseCode, opts.AuthorID)
	if err != nil {
		return nil, err
	}

	result := selector.Select(bp, pool, selector.Options{
		Randomize: true,
		Seed:      opts.Seed,
	})

	if len(result.Selected) < opts.MinFromBank {
		// Too little usable bank material. Discard it and regenerate the
		// whole paper fresh.
		return o.assembleFreshOnly(ctx, bp, opts)
	}

	bankQuestions := result.Selected
	bankMarks := 0
	for _, q := range bankQuestions {
		bankMarks += q.Marks
	}

	var produced []bank.Question
	if bp.TotalMarks()-bankMarks > 0 {
		// The plan targets the full blueprint, not a budget-reduced one,
		// so hybrid totals can overshoot.
		produced, err = o.produceFromPlan(ctx, bp, opts)
		if err != nil {
			return nil, err
		}
	}

	combined := append(append([]bank.Question{}, bankQuestions...), produced...)
	constraints := selector.Verify(combined, bp)
	return o.finalize(bp, bankQuestions, produced, constraints)
}

// produceFromPlan builds a generation plan and materializes each spec.
// Individual production failures are logged and skipped.
func (o *Orchestrator) produceFromPlan(ctx context.Context, bp blueprint.Blueprint, opts Options) ([]bank.Question, error) {
	if o.Producer == nil {
		return nil, fmt.Errorf("no producer configured for mode %q", opts.Mode)
	}

	plan, err := planner.Build(bp, opts.Planner)
	if err != nil {
		return nil, err
	}

	var produced []bank.Question
	for idx, spec := range plan.Specs {
		q, prodErr := o.Producer.Produce(ctx, spec)
		if prodErr != nil {
			_ = audit.LogEvent("paper", "item_production_failed", map[string]any{
				"paper_name": bp.PaperName,
				"spec_index": idx,
				"co_id":      spec.COID,
				"unit_id":    spec.UnitID,
				"producer":   o.Producer.Name(),
				"error":      prodErr.Error(),
			})
			continue
		}

		// Marks come from the plan, not the producer.
		q.Marks = spec.Marks
		if q.AuthorID == "" {
			q.AuthorID = opts.AuthorID
		}
		if q.CourseCode == "" {
			q.CourseCode = bp.CourseCode
		}

		id, saveErr := o.Store.AddQuestion(q)
		if saveErr != nil {
			return nil, fmt.Errorf("save produced question: %w", saveErr)
		}
		q.ID = id
		produced = append(produced, q)
	}
	return produced, nil
}

// finalize persists the paper and renders it. Rendering failures are
// logged, never returned.
func (o *Orchestrator) finalize(bp blueprint.Blueprint, fromBank, fresh []bank.Question, constraints map[string]bool) (*Paper, error) {
	all := append(append([]bank.Question{}, fromBank...), fresh...)

	ids := make([]int64, 0, len(all))
	total := 0
	for _, q := range all {
		ids = append(ids, q.ID)
		total += q.Marks
	}

	coverage := selector.Summarize(all)

	p := &Paper{
		ID:              uuid.NewString(),
		PaperName:       bp.PaperName,
		CourseCode:      bp.CourseCode,
		ExamType:        bp.ExamType,
		TotalMarks:      total,
		DurationMinutes: bp.DurationMinutes(),
		QuestionIDs:     ids,
		BankCount:       len(fromBank),
		FreshCount:      len(fresh),
		Constraints:     constraints,
		Coverage:        coverage,
		Status:          "finalized",
		CreatedAt:       time.Now().UTC(),
	}

	blueprintJSON, err := json.Marshal(bp)
	if err != nil {
		return nil, fmt.Errorf("encode blueprint: %w", err)
	}
	coJSON, _ := json.Marshal(coverage.COMarks)
	unitJSON, _ := json.Marshal(coverage.UnitMarks)
	bloomJSON, _ := json.Marshal(coverage.BloomMarks)

	now := p.CreatedAt
	record := bank.PaperRecord{
		ID:                p.ID,
		PaperName:         p.PaperName,
		CourseCode:        p.CourseCode,
		ExamType:          p.ExamType,
		TotalMarks:        p.TotalMarks,
		DurationMinutes:   p.DurationMinutes,
		BlueprintJSON:     string(blueprintJSON),
		QuestionIDs:       ids,
		Status:            p.Status,
		CreatedAt:         now,
		FinalizedAt:       &now,
		COCoverageJSON:    string(coJSON),
		UnitCoverageJSON:  string(unitJSON),
		BloomCoverageJSON: string(bloomJSON),
	}
	if err := o.Store.SavePaper(record); err != nil {
		return nil, err
	}
	if err := o.Store.MarkUsed(ids); err != nil {
		return nil, err
	}

	if o.PapersDir != "" {
		path, renderErr := Render(o.PapersDir, bp, all, p)
		if renderErr != nil {
			_ = audit.LogEvent("paper", "render_failed", map[string]any{
				"paper_id": p.ID,
				"error":    renderErr.Error(),
			})
		} else {
			p.RenderedPath = path
		}
	}

	return p, nil
}

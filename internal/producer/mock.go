package producer

import (
	"context"
	"fmt"

	"paperforge/internal/bank"
	"paperforge/internal/planner"
)

// MockProducer is a deterministic, offline producer used for end-to-end
// testing of the orchestrator.
type MockProducer struct {
	CourseCode string
	AuthorID   string
	// FailEvery makes every Nth call fail, to exercise skip handling.
	// Zero disables failures.
	FailEvery int

	calls int
}

func (p *MockProducer) Name() string { return "mock" }

func (p *MockProducer) Produce(ctx context.Context, spec planner.QuestionSpec) (bank.Question, error) {
	if err := ctx.Err(); err != nil {
		return bank.Question{}, err
	}
	if err := planner.ValidateSpec(spec); err != nil {
		return bank.Question{}, err
	}

	p.calls++
	if p.FailEvery > 0 && p.calls%p.FailEvery == 0 {
		return bank.Question{}, fmt.Errorf("mock producer failure on call %d", p.calls)
	}

	return bank.Question{
		Text: fmt.Sprintf("Explain the key concept of %s addressed by %s. [%s, L%d, %d marks]",
			spec.UnitID, spec.COID, spec.Difficulty, spec.BloomLevel, spec.Marks),
		QuestionType: "short_answer",
		PrimaryCO:    spec.COID,
		UnitID:       spec.UnitID,
		BloomLevel:   spec.BloomLevel,
		Difficulty:   spec.Difficulty,
		Marks:        spec.Marks,
		CourseCode:   p.CourseCode,
		QualityScore: 80,
		ReviewStatus: bank.ReviewAccepted,
		AuthorID:     p.AuthorID,
	}, nil
}

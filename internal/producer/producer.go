// Package producer turns question specs into fresh bank questions.
package producer

import (
	"context"

	"paperforge/internal/bank"
	"paperforge/internal/planner"
)

// Producer generates a question matching a spec. The returned question
// is not yet persisted; the caller assigns marks and saves it.
type Producer interface {
	Name() string
	Produce(ctx context.Context, spec planner.QuestionSpec) (bank.Question, error)
}

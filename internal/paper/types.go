// Package paper orchestrates paper assembly over the bank, the
// selector, and the fresh-question producer.
package paper

import (
	"errors"
	"time"

	"paperforge/internal/selector"
)

// Assembly modes.
type Mode string

const (
	ModeBankOnly  Mode = "bank_only"
	ModeFreshOnly Mode = "fresh_only"
	ModeHybrid    Mode = "hybrid"
)

// ErrEmptyResult reports that assembly produced no questions at all.
// Callers may retry under a different mode.
var ErrEmptyResult = errors.New("no questions selected or produced")

// Paper is a finalized assembled paper.
type Paper struct {
	ID              string                   `json:"id"`
	PaperName       string                   `json:"paper_name"`
	CourseCode      string                   `json:"course_code"`
	ExamType        string                   `json:"exam_type"`
	TotalMarks      int                      `json:"total_marks"`
	DurationMinutes int                      `json:"duration_minutes"`
	QuestionIDs     []int64                  `json:"question_ids"`
	BankCount       int                      `json:"bank_count"`
	FreshCount      int                      `json:"fresh_count"`
	Constraints     map[string]bool          `json:"constraints_satisfied"`
	Coverage        selector.CoverageSummary `json:"coverage"`
	Status          string                   `json:"status"`
	CreatedAt       time.Time                `json:"created_at"`
	RenderedPath    string                   `json:"rendered_path,omitempty"`
}

// Package planner builds fresh-question generation plans from a
// blueprint. A plan mirrors what selection would have pulled from the
// bank: one spec per question, with marks summing exactly to the
// blueprint's total.
package planner

import "time"

// QuestionSpec describes one question to be produced.
type QuestionSpec struct {
	UnitID     string `json:"unit_id"`
	COID       string `json:"co_id"`
	BloomLevel int    `json:"bloom_level"`
	Difficulty string `json:"difficulty"`
	Marks      int    `json:"marks"`
}

// Plan is a full generation plan for a paper.
type Plan struct {
	PaperName   string         `json:"paper_name"`
	CourseCode  string         `json:"course_code"`
	TargetMarks int            `json:"target_marks"`
	Specs       []QuestionSpec `json:"specs"`
	Seed        int64          `json:"seed"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TotalMarks sums the marks across all specs.
func (p *Plan) TotalMarks() int {
	total := 0
	for _, spec := range p.Specs {
		total += spec.Marks
	}
	return total
}

package bank

import "time"

// Review statuses for questions in the bank. Only accepted questions
// are eligible for paper assembly.
const (
	ReviewPending  = "pending"
	ReviewAccepted = "accepted"
	ReviewEdited   = "edited"
	ReviewRejected = "rejected"
)

// Question is a single bank question with its educational metadata.
type Question struct {
	ID           int64
	Text         string
	QuestionType string
	PrimaryCO    string
	UnitID       string
	BloomLevel   int
	Difficulty   string
	Marks        int
	TimeMinutes  int
	CourseCode   string
	QualityScore float64
	ReviewStatus string
	AuthorID     string
	CreatedAt    time.Time
	ReviewedAt   *time.Time
	TimesUsed    int
	LastUsedAt   *time.Time
}

// Filters narrows a question query. Zero values mean "any".
type Filters struct {
	CourseCode   string
	PrimaryCO    string
	UnitID       string
	BloomLevel   int
	Difficulty   string
	ReviewStatus string
	AuthorID     string
}

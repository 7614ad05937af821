package bank

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "bank.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testQuestion(co, unit, author string) Question {
	return Question{
		Text:         "Explain binary search trees.",
		QuestionType: "short_answer",
		PrimaryCO:    co,
		UnitID:       unit,
		BloomLevel:   2,
		Difficulty:   "medium",
		Marks:        5,
		CourseCode:   "CS101",
		QualityScore: 80,
		ReviewStatus: ReviewAccepted,
		AuthorID:     author,
	}
}

func TestAddAndGetQuestion(t *testing.T) {
	store := openTestStore(t)

	id, err := store.AddQuestion(testQuestion("CO1", "unit_1", "prof-rao"))
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	q, err := store.GetQuestion(id)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if q.PrimaryCO != "CO1" || q.UnitID != "unit_1" || q.Marks != 5 {
		t.Fatalf("unexpected question %+v", q)
	}
	if q.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestAddQuestionValidation(t *testing.T) {
	store := openTestStore(t)

	q := testQuestion("CO1", "unit_1", "")
	q.Text = ""
	if _, err := store.AddQuestion(q); err == nil {
		t.Fatalf("expected empty text to be rejected")
	}

	q = testQuestion("CO1", "unit_1", "")
	q.BloomLevel = 7
	if _, err := store.AddQuestion(q); err == nil {
		t.Fatalf("expected bloom level 7 to be rejected")
	}

	q = testQuestion("CO1", "unit_1", "")
	q.Marks = 0
	if _, err := store.AddQuestion(q); err == nil {
		t.Fatalf("expected zero marks to be rejected")
	}
}

func TestQueryQuestionsFilters(t *testing.T) {
	store := openTestStore(t)

	for _, q := range []Question{
		testQuestion("CO1", "unit_1", "a"),
		testQuestion("CO2", "unit_2", "a"),
		testQuestion("CO2", "unit_2", "b"),
	} {
		if _, err := store.AddQuestion(q); err != nil {
			t.Fatalf("add question: %v", err)
		}
	}

	byCO, err := store.QueryQuestions(Filters{PrimaryCO: "CO2"})
	if err != nil {
		t.Fatalf("query by CO: %v", err)
	}
	if len(byCO) != 2 {
		t.Fatalf("expected 2 CO2 questions, got %d", len(byCO))
	}

	byAuthor, err := store.QueryQuestions(Filters{AuthorID: "b"})
	if err != nil {
		t.Fatalf("query by author: %v", err)
	}
	if len(byAuthor) != 1 {
		t.Fatalf("expected 1 question by author b, got %d", len(byAuthor))
	}
}

func TestEligiblePoolAuthorFallback(t *testing.T) {
	store := openTestStore(t)

	q := testQuestion("CO1", "unit_1", "prof-rao")
	if _, err := store.AddQuestion(q); err != nil {
		t.Fatalf("add question: %v", err)
	}
	pending := testQuestion("CO2", "unit_2", "prof-rao")
	pending.ReviewStatus = ReviewPending
	if _, err := store.AddQuestion(pending); err != nil {
		t.Fatalf("add pending question: %v", err)
	}

	// Author with accepted questions sees only their own.
	pool, err := store.EligiblePool("CS101", "prof-rao")
	if err != nil {
		t.Fatalf("eligible pool: %v", err)
	}
	if len(pool) != 1 {
		t.Fatalf("expected 1 eligible question, got %d", len(pool))
	}
	if pool[0].ReviewStatus != ReviewAccepted {
		t.Fatalf("pending question leaked into pool")
	}

	// Unknown author falls back to all accepted questions.
	pool, err = store.EligiblePool("CS101", "someone-else")
	if err != nil {
		t.Fatalf("eligible pool fallback: %v", err)
	}
	if len(pool) != 1 {
		t.Fatalf("expected fallback pool of 1, got %d", len(pool))
	}
}

func TestUpdateReviewStatus(t *testing.T) {
	store := openTestStore(t)

	q := testQuestion("CO1", "unit_1", "")
	q.ReviewStatus = ReviewPending
	id, err := store.AddQuestion(q)
	if err != nil {
		t.Fatalf("add question: %v", err)
	}

	if err := store.UpdateReviewStatus(id, "bogus"); err == nil {
		t.Fatalf("expected invalid status to be rejected")
	}
	if err := store.UpdateReviewStatus(id, ReviewAccepted); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := store.GetQuestion(id)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.ReviewStatus != ReviewAccepted {
		t.Fatalf("expected accepted, got %q", got.ReviewStatus)
	}
	if got.ReviewedAt == nil {
		t.Fatalf("expected reviewed_at to be set")
	}
}

func TestMarkUsed(t *testing.T) {
	store := openTestStore(t)

	id, err := store.AddQuestion(testQuestion("CO1", "unit_1", ""))
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if err := store.MarkUsed([]int64{id}); err != nil {
		t.Fatalf("mark used: %v", err)
	}

	got, err := store.GetQuestion(id)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.TimesUsed != 1 {
		t.Fatalf("expected times_used 1, got %d", got.TimesUsed)
	}
	if got.LastUsedAt == nil {
		t.Fatalf("expected last_used_at to be set")
	}
}

func TestSaveAndGetPaper(t *testing.T) {
	store := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	record := PaperRecord{
		ID:               "paper-1",
		PaperName:        "Midterm Examination",
		CourseCode:       "CS101",
		ExamType:         "midterm",
		TotalMarks:       50,
		DurationMinutes:  90,
		BlueprintJSON:    `{"paper_name":"Midterm Examination"}`,
		QuestionIDs:      []int64{1, 2, 3},
		Status:           "finalized",
		CreatedAt:        now,
		FinalizedAt:      &now,
		COCoverageJSON:   `{"CO1":10}`,
		UnitCoverageJSON: `{"unit_1":10}`,
	}
	if err := store.SavePaper(record); err != nil {
		t.Fatalf("save paper: %v", err)
	}

	got, err := store.GetPaper("paper-1")
	if err != nil {
		t.Fatalf("get paper: %v", err)
	}
	if got.PaperName != "Midterm Examination" || got.TotalMarks != 50 {
		t.Fatalf("unexpected paper %+v", got)
	}
	if len(got.QuestionIDs) != 3 {
		t.Fatalf("expected 3 question ids, got %v", got.QuestionIDs)
	}
	if got.FinalizedAt == nil {
		t.Fatalf("expected finalized_at to round-trip")
	}

	papers, err := store.ListPapers("CS101")
	if err != nil {
		t.Fatalf("list papers: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}
}

func TestSeedFromYAML(t *testing.T) {
	store := openTestStore(t)

	seed := `
questions:
  - text: Define a binary heap.
    type: short_answer
    primary_co: CO1
    unit_id: unit_1
    bloom_level: 1
    difficulty: easy
    marks: 2
    course_code: CS101
    review_status: accepted
  - text: Implement merge sort and analyze it.
    type: long_answer
    primary_co: CO2
    unit_id: unit_2
    bloom_level: 3
    difficulty: medium
    marks: 10
    course_code: CS101
    review_status: accepted
`
	path := filepath.Join(t.TempDir(), "seed.yml")
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	count, err := store.SeedFromYAML(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 inserted, got %d", count)
	}

	total, err := store.CountQuestions(Filters{CourseCode: "CS101"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 questions, got %d", total)
	}
}

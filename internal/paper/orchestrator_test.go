package paper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"paperforge/internal/bank"
	"paperforge/internal/blueprint"
	"paperforge/internal/planner"
	"paperforge/internal/producer"
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
				"CO1": 10, "CO2": 15,
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

func newTestOrchestrator(t *testing.T) (*Orchestrator, *bank.Store) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PAPERFORGE_AUDIT_DB", filepath.Join(dir, "audit.db"))

	store, err := bank.Open(filepath.Join(dir, "bank.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	orch := &Orchestrator{
		Store:     store,
		PapersDir: filepath.Join(dir, "papers"),
	}
	return orch, store
}

func seedBank(t *testing.T, store *bank.Store, n int) {
	t.Helper()
	cos := []string{"CO1", "CO2"}
	marks := []int{2, 5, 10}
	for i := 0; i < n; i++ {
		co := cos[i%len(cos)]
		q := bank.Question{
			Text:         "Explain a core concept.",
			QuestionType: "short_answer",
			PrimaryCO:    co,
			UnitID:       "unit_" + co[2:],
			BloomLevel:   1 + i%3,
			Difficulty:   "medium",
			Marks:        marks[i%len(marks)],
			CourseCode:   "CS101",
			QualityScore: 80,
			ReviewStatus: bank.ReviewAccepted,
		}
		if _, err := store.AddQuestion(q); err != nil {
			t.Fatalf("seed question %d: %v", i, err)
		}
	}
}

func TestAssembleBankOnly(t *testing.T) {
	orch, store := newTestOrchestrator(t)
	seedBank(t, store, 30)

	p, err := orch.Assemble(context.Background(), testBlueprint(), Options{
		Mode: ModeBankOnly,
		Seed: 11,
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if p.BankCount == 0 || p.FreshCount != 0 {
		t.Fatalf("expected pure bank paper, got bank=%d fresh=%d", p.BankCount, p.FreshCount)
	}
	if p.TotalMarks > 50 {
		t.Fatalf("paper overshot budget: %d", p.TotalMarks)
	}
	if p.Status != "finalized" {
		t.Fatalf("unexpected status %q", p.Status)
	}

	// The paper row must be queryable afterwards.
	record, err := store.GetPaper(p.ID)
	if err != nil {
		t.Fatalf("get paper: %v", err)
	}
	if len(record.QuestionIDs) != len(p.QuestionIDs) {
		t.Fatalf("persisted ids mismatch: %v vs %v", record.QuestionIDs, p.QuestionIDs)
	}

	// Selected questions get their usage counters bumped.
	used, err := store.GetQuestion(p.QuestionIDs[0])
	if err != nil {
		t.Fatalf("get used question: %v", err)
	}
	if used.TimesUsed != 1 {
		t.Fatalf("expected times_used 1, got %d", used.TimesUsed)
	}

	if p.RenderedPath == "" {
		t.Fatalf("expected paper to be rendered")
	}
	data, err := os.ReadFile(p.RenderedPath)
	if err != nil {
		t.Fatalf("read rendered paper: %v", err)
	}
	if !strings.Contains(string(data), "Midterm Examination") {
		t.Fatalf("rendered paper missing title")
	}
}

func TestAssembleBankOnlyEmptyBank(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	_, err := orch.Assemble(context.Background(), testBlueprint(), Options{Mode: ModeBankOnly})
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestAssembleBankOnlyPersistsPartialPaper(t *testing.T) {
	orch, store := newTestOrchestrator(t)
	// Far too little material to reach 50 marks, but not zero.
	seedBank(t, store, 3)

	p, err := orch.Assemble(context.Background(), testBlueprint(), Options{
		Mode: ModeBankOnly,
		Seed: 2,
	})
	if err != nil {
		t.Fatalf("partial selection should still persist: %v", err)
	}
	if p.Constraints["total_marks"] {
		t.Fatalf("expected total_marks shortfall to be reported: %+v", p.Constraints)
	}
	if _, err := store.GetPaper(p.ID); err != nil {
		t.Fatalf("partial paper should be persisted: %v", err)
	}
}

func TestAssembleFreshOnly(t *testing.T) {
	orch, store := newTestOrchestrator(t)
	orch.Producer = &producer.MockProducer{CourseCode: "CS101", AuthorID: "prof-rao"}

	bp := testBlueprint()
	p, err := orch.Assemble(context.Background(), bp, Options{
		Mode:     ModeFreshOnly,
		AuthorID: "prof-rao",
		Seed:     21,
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if p.BankCount != 0 || p.FreshCount == 0 {
		t.Fatalf("expected pure fresh paper, got bank=%d fresh=%d", p.BankCount, p.FreshCount)
	}
	if p.TotalMarks != bp.TotalMarks() {
		t.Fatalf("fresh plan should hit the budget exactly: got %d", p.TotalMarks)
	}

	// Produced questions must land in the bank.
	count, err := store.CountQuestions(bank.Filters{CourseCode: "CS101"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != p.FreshCount {
		t.Fatalf("expected %d stored questions, got %d", p.FreshCount, count)
	}
}

func TestAssembleFreshOnlySkipsFailedCalls(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	bp := testBlueprint()
	plan, err := planner.Build(bp, planner.Options{Seed: 21})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	specCount := len(plan.Specs)
	if specCount < 2 {
		t.Fatalf("test needs a multi-spec plan, got %d", specCount)
	}

	// The last production call fails; the paper still assembles.
	orch.Producer = &producer.MockProducer{CourseCode: "CS101", FailEvery: specCount}

	p, err := orch.Assemble(context.Background(), bp, Options{
		Mode: ModeFreshOnly,
		Seed: 21,
	})
	if err != nil {
		t.Fatalf("one failed call must not abort the run: %v", err)
	}
	if p.FreshCount != specCount-1 {
		t.Fatalf("expected %d produced questions, got %d", specCount-1, p.FreshCount)
	}
	if p.TotalMarks >= bp.TotalMarks() {
		t.Fatalf("skipped spec should leave a marks gap: %d", p.TotalMarks)
	}
}

func TestAssembleFreshOnlyAllCallsFail(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	orch.Producer = &producer.MockProducer{CourseCode: "CS101", FailEvery: 1}

	_, err := orch.Assemble(context.Background(), testBlueprint(), Options{
		Mode: ModeFreshOnly,
		Seed: 3,
	})
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestAssembleFreshOnlyWithoutProducer(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	_, err := orch.Assemble(context.Background(), testBlueprint(), Options{Mode: ModeFreshOnly})
	if err == nil {
		t.Fatalf("expected missing producer error")
	}
}

func TestAssembleHybridDiscardsThinBank(t *testing.T) {
	orch, store := newTestOrchestrator(t)
	// Two usable questions fall below the default minimum of three, so
	// the bank contribution is discarded and the paper is fully fresh.
	seedBank(t, store, 2)
	orch.Producer = &producer.MockProducer{CourseCode: "CS101"}

	bp := testBlueprint()
	p, err := orch.Assemble(context.Background(), bp, Options{
		Mode: ModeHybrid,
		Seed: 5,
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if p.BankCount != 0 {
		t.Fatalf("thin bank should be discarded, got bank count %d", p.BankCount)
	}
	if p.TotalMarks != bp.TotalMarks() {
		t.Fatalf("fallback fresh paper should hit the budget: %d", p.TotalMarks)
	}
}

func TestAssembleHybridMixesSources(t *testing.T) {
	orch, store := newTestOrchestrator(t)
	seedBank(t, store, 30)
	orch.Producer = &producer.MockProducer{CourseCode: "CS101"}

	p, err := orch.Assemble(context.Background(), testBlueprint(), Options{
		Mode: ModeHybrid,
		Seed: 8,
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if p.BankCount < DefaultMinFromBank {
		t.Fatalf("expected bank questions to be kept, got %d", p.BankCount)
	}
	if len(p.QuestionIDs) != p.BankCount+p.FreshCount {
		t.Fatalf("question id count mismatch: %d ids, bank=%d fresh=%d",
			len(p.QuestionIDs), p.BankCount, p.FreshCount)
	}
}

func TestAssembleUnknownMode(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	_, err := orch.Assemble(context.Background(), testBlueprint(), Options{Mode: Mode("nope")})
	if err == nil {
		t.Fatalf("expected unknown mode error")
	}
}

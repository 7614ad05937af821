package blueprint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeBlueprintFile(t *testing.T, dir, name, total string) string {
	t.Helper()
	yml := strings.ReplaceAll(`
paper_name: Midterm Examination
course_code: CS101
constraints:
  - type: marks_total
    total: TOTAL
  - type: duration
    total: 90
`, "TOTAL", total)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCreateAndApplyProposal(t *testing.T) {
	root := t.TempDir()
	blueprintsDir := filepath.Join(root, "blueprints")
	updatesDir := filepath.Join(root, "updates")
	proposalsRoot := filepath.Join(root, "proposals")
	for _, d := range []string{blueprintsDir, updatesDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}

	writeBlueprintFile(t, blueprintsDir, "midterm.yml", "50")
	writeBlueprintFile(t, updatesDir, "midterm.yml", "60")

	meta, err := CreateProposal("prof-rao", updatesDir, blueprintsDir, proposalsRoot, "raise total")
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if meta.AuthorID != "prof-rao" {
		t.Fatalf("unexpected author %q", meta.AuthorID)
	}
	if len(meta.Files) != 1 {
		t.Fatalf("expected 1 proposed file, got %d", len(meta.Files))
	}
	if meta.DiffFile == "" {
		t.Fatalf("expected a diff file for a modified blueprint")
	}
	diff, err := os.ReadFile(filepath.Join(meta.ProposalDir, meta.DiffFile))
	if err != nil {
		t.Fatalf("read diff: %v", err)
	}
	if !strings.Contains(string(diff), "60") {
		t.Fatalf("diff missing new total: %s", diff)
	}

	// Apply requires explicit confirmation.
	if _, err := ApplyProposal(meta.ProposalDir, false); err == nil {
		t.Fatalf("expected apply without confirmation to fail")
	}

	applied, err := ApplyProposal(meta.ProposalDir, true)
	if err != nil {
		t.Fatalf("apply proposal: %v", err)
	}
	if len(applied.Files) != 1 {
		t.Fatalf("expected 1 applied file, got %d", len(applied.Files))
	}

	bp, err := Load(filepath.Join(blueprintsDir, "midterm.yml"))
	if err != nil {
		t.Fatalf("load applied blueprint: %v", err)
	}
	if bp.TotalMarks() != 60 {
		t.Fatalf("expected applied total 60, got %d", bp.TotalMarks())
	}
}

func TestCreateProposalRejectsInvalidUpdates(t *testing.T) {
	root := t.TempDir()
	blueprintsDir := filepath.Join(root, "blueprints")
	updatesDir := filepath.Join(root, "updates")
	for _, d := range []string{blueprintsDir, updatesDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	writeBlueprintFile(t, updatesDir, "broken.yml", "-10")

	_, err := CreateProposal("prof-rao", updatesDir, blueprintsDir, filepath.Join(root, "proposals"), "")
	if err == nil {
		t.Fatalf("expected invalid updates to be rejected")
	}
}

func TestCreateProposalRejectsSameDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "blueprints")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeBlueprintFile(t, dir, "midterm.yml", "50")

	_, err := CreateProposal("prof-rao", dir, dir, filepath.Join(root, "proposals"), "")
	if err == nil {
		t.Fatalf("expected same-directory proposal to be rejected")
	}
}

package paper

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"paperforge/internal/bank"
	"paperforge/internal/blueprint"
)

// Render writes the paper as a Markdown document under dir and returns
// the file path.
func Render(dir string, bp blueprint.Blueprint, questions []bank.Question, p *Paper) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure papers dir: %w", err)
	}

	name := strings.ReplaceAll(bp.PaperName, " ", "_")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.md", name, p.CreatedAt.Format("20060102")))

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", bp.PaperName)
	fmt.Fprintf(&b, "- Course: %s\n", bp.CourseCode)
	fmt.Fprintf(&b, "- Exam type: %s\n", bp.ExamType)
	fmt.Fprintf(&b, "- Total marks: %d\n", p.TotalMarks)
	fmt.Fprintf(&b, "- Duration: %d minutes\n", p.DurationMinutes)
	fmt.Fprintf(&b, "- Paper id: %s\n\n", p.ID)

	b.WriteString("## Questions\n\n")
	for i, q := range questions {
		fmt.Fprintf(&b, "**Q%d.** %s\n\n", i+1, q.Text)
		fmt.Fprintf(&b, "*%s, %s, Bloom L%d, %s, %d marks*\n\n",
			q.PrimaryCO, q.UnitID, q.BloomLevel, q.Difficulty, q.Marks)
	}

	b.WriteString("## Coverage\n\n")
	b.WriteString("| Course outcome | Marks |\n|---|---|\n")
	for _, co := range sortedStringKeys(p.Coverage.COMarks) {
		fmt.Fprintf(&b, "| %s | %d |\n", co, p.Coverage.COMarks[co])
	}
	b.WriteString("\n| Unit | Marks |\n|---|---|\n")
	for _, unit := range sortedStringKeys(p.Coverage.UnitMarks) {
		fmt.Fprintf(&b, "| %s | %d |\n", unit, p.Coverage.UnitMarks[unit])
	}
	b.WriteString("\n| Bloom level | Marks |\n|---|---|\n")
	for level := 1; level <= 6; level++ {
		if marks, ok := p.Coverage.BloomMarks[level]; ok {
			fmt.Fprintf(&b, "| L%d | %d |\n", level, marks)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write paper: %w", err)
	}
	return path, nil
}

func sortedStringKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

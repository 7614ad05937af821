package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"paperforge/internal/audit"
	"paperforge/internal/bank"
	"paperforge/internal/blueprint"
	"paperforge/internal/notify"
	"paperforge/internal/paper"
	"paperforge/internal/planner"
	"paperforge/internal/producer"
	"paperforge/internal/queue"
	"paperforge/internal/workspace"
)

const appName = "paperforge"

func main() {
	flag.String("workspace", "", "Path to workspace root")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: blueprint-driven exam paper assembly\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [command] [flags]\n\n", appName)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  init       Initialize a new workspace")
		fmt.Fprintln(os.Stderr, "  blueprint  Validate and revise blueprints")
		fmt.Fprintln(os.Stderr, "  bank       Manage the question bank")
		fmt.Fprintln(os.Stderr, "  plan       Build generation plans")
		fmt.Fprintln(os.Stderr, "  paper      Assemble and inspect papers")
		fmt.Fprintln(os.Stderr, "  worker     Run the assembly worker")
		fmt.Fprintln(os.Stderr, "  help       Show this help")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	workspacePath, remaining, err := extractWorkspaceFlag(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	args := remaining
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		flag.Usage()
		return
	}

	switch args[0] {
	case "init":
		if err := runInit(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "blueprint":
		if err := runBlueprint(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "bank":
		if err := runBank(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "plan":
		if err := runPlan(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "paper":
		if err := runPaper(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "worker":
		if err := runWorker(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
}

func extractWorkspaceFlag(args []string) (string, []string, error) {
	var workspacePath string
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--workspace" {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--workspace requires a value")
			}
			workspacePath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--workspace=") {
			workspacePath = strings.TrimPrefix(arg, "--workspace=")
			continue
		}
		remaining = append(remaining, arg)
	}
	return workspacePath, remaining, nil
}

func resolveWorkspace(workspacePath string) (*workspace.Workspace, error) {
	if strings.TrimSpace(workspacePath) == "" {
		return nil, fmt.Errorf("--workspace is required")
	}
	ws, err := workspace.Resolve(workspacePath)
	if err != nil {
		return nil, err
	}
	// Route package-level audit events to the workspace audit DB.
	if err := os.Setenv("PAPERFORGE_AUDIT_DB", ws.AuditDBPath); err != nil {
		return nil, fmt.Errorf("set audit db path: %w", err)
	}
	return ws, nil
}

func runInit(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	course := fs.String("course", "CS101", "Course code for the sample blueprint and bank seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(workspacePath) == "" {
		return fmt.Errorf("--workspace is required")
	}

	root, err := workspace.ResolveRoot(workspacePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	ws, err := resolveWorkspace(root)
	if err != nil {
		return err
	}

	logger := audit.NewLogger(ws.AuditDBPath)
	startPayload := map[string]any{
		"workspace": ws.Root,
		"course":    *course,
	}
	if err := logger.LogEvent("cli", "workspace_init_started", startPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	var finishErr error
	defer func() {
		finishPayload := map[string]any{
			"workspace": ws.Root,
		}
		if finishErr != nil {
			finishPayload["error"] = finishErr.Error()
		}
		_ = logger.LogEvent("cli", "workspace_init_finished", finishPayload)
	}()

	if err := ws.EnsureDirs(); err != nil {
		finishErr = err
		return finishErr
	}

	blueprintYAML := fmt.Sprintf(sampleBlueprintTemplate, *course)
	if err := writeFileIfMissing(filepath.Join(ws.BlueprintsDir, "midterm.yml"), blueprintYAML); err != nil {
		finishErr = err
		return finishErr
	}
	seedYAML := strings.ReplaceAll(sampleBankSeedTemplate, "COURSE_CODE", *course)
	if err := writeFileIfMissing(filepath.Join(ws.Root, "bank_seed.yml"), seedYAML); err != nil {
		finishErr = err
		return finishErr
	}

	store, err := bank.Open(ws.BankDBPath)
	if err != nil {
		finishErr = err
		return finishErr
	}
	defer store.Close()

	fmt.Fprintf(os.Stdout, "Initialized workspace: %s\n", ws.Root)
	fmt.Fprintln(os.Stdout, "Next steps:")
	fmt.Fprintf(os.Stdout, "  %s bank seed --workspace %s --file bank_seed.yml\n", appName, ws.Root)
	fmt.Fprintf(os.Stdout, "  %s paper assemble --workspace %s --blueprint blueprints/midterm.yml --mode bank\n", appName, ws.Root)
	return nil
}

func runBlueprint(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s blueprint: missing subcommand (validate, propose, apply)", appName)
	}

	switch args[0] {
	case "validate":
		return runBlueprintValidate(args[1:], workspacePath)
	case "propose":
		return runBlueprintPropose(args[1:], workspacePath)
	case "apply":
		return runBlueprintApply(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s blueprint: unknown subcommand %q", appName, args[0])
	}
}

func runBlueprintValidate(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("blueprint validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dir := fs.String("dir", "", "Blueprint directory (default: <workspace>/blueprints)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}

	target := ws.BlueprintsDir
	if *dir != "" {
		target, err = ws.ResolvePath(*dir)
		if err != nil {
			return fmt.Errorf("resolve --dir: %w", err)
		}
	}

	set, err := blueprint.LoadFromDir(target)
	if err != nil {
		return err
	}

	for _, bp := range set.Blueprints {
		fmt.Fprintf(os.Stdout, "OK  %-30s %s (%d marks, %d min)\n",
			bp.PaperName, bp.CourseCode, bp.TotalMarks(), bp.DurationMinutes())
	}
	fmt.Fprintf(os.Stdout, "%d blueprint(s) valid\n", len(set.Blueprints))
	return nil
}

func runBlueprintPropose(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("blueprint propose", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	author := fs.String("author", "", "Author id")
	updatesDir := fs.String("updates", "", "Directory with updated blueprint YAML files")
	note := fs.String("note", "", "Optional note attached to the proposal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	if err := ws.EnsureDirs(); err != nil {
		return err
	}
	if *updatesDir == "" {
		return fmt.Errorf("--updates is required")
	}
	absUpdates, err := ws.ResolvePath(*updatesDir)
	if err != nil {
		return fmt.Errorf("resolve --updates: %w", err)
	}

	logger := audit.NewLogger(ws.AuditDBPath)
	_ = logger.LogEvent("cli", "blueprint_propose_started", map[string]any{
		"workspace": ws.Root,
		"author":    *author,
		"updates":   absUpdates,
	})

	proposalsRoot := filepath.Join(ws.ArtifactsDir, "proposals")
	meta, err := blueprint.CreateProposal(*author, absUpdates, ws.BlueprintsDir, proposalsRoot, *note)

	finishPayload := map[string]any{
		"workspace": ws.Root,
		"author":    *author,
	}
	if err != nil {
		finishPayload["error"] = err.Error()
		_ = logger.LogEvent("cli", "blueprint_propose_finished", finishPayload)
		return err
	}
	finishPayload["proposal_id"] = meta.ID
	_ = logger.LogEvent("cli", "blueprint_propose_finished", finishPayload)

	fmt.Fprintf(os.Stdout, "Created proposal: %s\n", meta.ProposalDir)
	if meta.DiffFile != "" {
		fmt.Fprintf(os.Stdout, "Diff: %s\n", filepath.Join(meta.ProposalDir, meta.DiffFile))
	}
	fmt.Fprintf(os.Stdout, "Apply with:\n  %s blueprint apply --workspace %s --proposal %s --i-understand\n",
		appName, ws.Root, meta.ProposalDir)
	return nil
}

func runBlueprintApply(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("blueprint apply", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	proposalDir := fs.String("proposal", "", "Proposal directory to apply")
	confirm := fs.Bool("i-understand", false, "Confirm overwriting blueprints with the proposal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	if *proposalDir == "" {
		return fmt.Errorf("--proposal is required")
	}
	absProposal, err := ws.ResolvePath(*proposalDir)
	if err != nil {
		return fmt.Errorf("resolve --proposal: %w", err)
	}

	logger := audit.NewLogger(ws.AuditDBPath)
	meta, err := blueprint.ApplyProposal(absProposal, *confirm)

	finishPayload := map[string]any{
		"workspace": ws.Root,
		"proposal":  absProposal,
	}
	if err != nil {
		finishPayload["error"] = err.Error()
		_ = logger.LogEvent("cli", "blueprint_apply_finished", finishPayload)
		return err
	}
	finishPayload["proposal_id"] = meta.ID
	finishPayload["files"] = meta.Files
	_ = logger.LogEvent("cli", "blueprint_apply_finished", finishPayload)

	fmt.Fprintf(os.Stdout, "Applied proposal %s (%d file(s)) to %s\n", meta.ID, len(meta.Files), meta.BlueprintsDir)
	return nil
}

func runBank(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s bank: missing subcommand (seed, stats, review)", appName)
	}

	switch args[0] {
	case "seed":
		return runBankSeed(args[1:], workspacePath)
	case "stats":
		return runBankStats(args[1:], workspacePath)
	case "review":
		return runBankReview(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s bank: unknown subcommand %q", appName, args[0])
	}
}

func runBankReview(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("bank review", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.Int64("id", 0, "Question id")
	status := fs.String("status", "", "New review status: pending, accepted, edited, or rejected")
	marks := fs.Int("marks", 0, "Optionally adjust the question's marks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("--id is required")
	}
	if *status == "" && *marks == 0 {
		return fmt.Errorf("nothing to do: pass --status and/or --marks")
	}

	store, err := bank.Open(ws.BankDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := audit.NewLogger(ws.AuditDBPath)
	if *marks != 0 {
		if err := store.UpdateQuestionMarks(*id, *marks); err != nil {
			return err
		}
	}
	if *status != "" {
		if err := store.UpdateReviewStatus(*id, *status); err != nil {
			return err
		}
	}
	_ = logger.LogEvent("cli", "bank_review_finished", map[string]any{
		"workspace":   ws.Root,
		"question_id": *id,
		"status":      *status,
		"marks":       *marks,
	})

	q, err := store.GetQuestion(*id)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Question %d: %s, %d marks\n", q.ID, q.ReviewStatus, q.Marks)
	return nil
}

func runBankSeed(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("bank seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := fs.String("file", "", "YAML file with questions to load")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}
	absFile, err := ws.ResolvePath(*file)
	if err != nil {
		return fmt.Errorf("resolve --file: %w", err)
	}

	store, err := bank.Open(ws.BankDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := audit.NewLogger(ws.AuditDBPath)
	count, err := store.SeedFromYAML(absFile)

	finishPayload := map[string]any{
		"workspace": ws.Root,
		"file":      absFile,
		"inserted":  count,
	}
	if err != nil {
		finishPayload["error"] = err.Error()
		_ = logger.LogEvent("cli", "bank_seed_finished", finishPayload)
		return err
	}
	_ = logger.LogEvent("cli", "bank_seed_finished", finishPayload)

	fmt.Fprintf(os.Stdout, "Seeded %d question(s) into %s\n", count, ws.BankDBPath)
	return nil
}

func runBankStats(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("bank stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	course := fs.String("course", "", "Filter stats by course code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}

	store, err := bank.Open(ws.BankDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	questions, err := store.QueryQuestions(bank.Filters{CourseCode: *course})
	if err != nil {
		return err
	}

	byStatus := map[string]int{}
	byCO := map[string]int{}
	for _, q := range questions {
		byStatus[q.ReviewStatus]++
		byCO[q.PrimaryCO]++
	}

	fmt.Fprintf(os.Stdout, "Questions: %d\n", len(questions))
	for _, status := range []string{bank.ReviewAccepted, bank.ReviewPending, bank.ReviewEdited, bank.ReviewRejected} {
		if byStatus[status] > 0 {
			fmt.Fprintf(os.Stdout, "  %-9s %d\n", status, byStatus[status])
		}
	}
	if len(byCO) > 0 {
		fmt.Fprintln(os.Stdout, "By course outcome:")
		for co, n := range byCO {
			fmt.Fprintf(os.Stdout, "  %-6s %d\n", co, n)
		}
	}
	return nil
}

func runPlan(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s plan: missing subcommand (generate, show)", appName)
	}

	switch args[0] {
	case "generate":
		return runPlanGenerate(args[1:], workspacePath)
	case "show":
		return runPlanShow(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s plan: unknown subcommand %q", appName, args[0])
	}
}

func runPlanShow(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("plan show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	planPath := fs.String("plan", "", "Plan file or directory containing plan.json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	if *planPath == "" {
		return fmt.Errorf("--plan is required")
	}
	abs, err := ws.ResolvePath(*planPath)
	if err != nil {
		return fmt.Errorf("resolve --plan: %w", err)
	}
	resolved, err := planner.ResolvePlanPath(abs)
	if err != nil {
		return err
	}

	plan, err := planner.LoadPlan(resolved)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s (%s): %d specs, %d marks, seed %d\n",
		plan.PaperName, plan.CourseCode, len(plan.Specs), plan.TotalMarks(), plan.Seed)
	for i, spec := range plan.Specs {
		fmt.Fprintf(os.Stdout, "  %2d. %-6s %-8s L%d %-6s %2d marks\n",
			i+1, spec.COID, spec.UnitID, spec.BloomLevel, spec.Difficulty, spec.Marks)
	}
	return nil
}

func runPlanGenerate(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("plan generate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	blueprintPath := fs.String("blueprint", "", "Blueprint YAML file")
	template := fs.String("template", "", "Use a standard template instead of a file: midterm or final")
	course := fs.String("course", "", "Course code for --template")
	outPath := fs.String("out", "", "Plan output path (default: <workspace>/artifacts/plans/<name>-<date>.json)")
	seed := fs.Int64("seed", time.Now().UnixNano(), "Seed for the weighted draws")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	if err := ws.EnsureDirs(); err != nil {
		return err
	}

	var bp blueprint.Blueprint
	var absBlueprint string
	switch {
	case *blueprintPath != "":
		absBlueprint, err = ws.ResolvePath(*blueprintPath)
		if err != nil {
			return fmt.Errorf("resolve --blueprint: %w", err)
		}
		bp, err = blueprint.Load(absBlueprint)
		if err != nil {
			return err
		}
	case *template != "":
		if *course == "" {
			return fmt.Errorf("--course is required with --template")
		}
		switch *template {
		case "midterm":
			bp = blueprint.MidtermTemplate(*course)
		case "final":
			bp = blueprint.FinalTemplate(*course)
		default:
			return fmt.Errorf("unknown template %q (want midterm or final)", *template)
		}
		absBlueprint = "template:" + *template
	default:
		return fmt.Errorf("--blueprint or --template is required")
	}

	logger := audit.NewLogger(ws.AuditDBPath)
	_ = logger.LogEvent("cli", "plan_generate_started", map[string]any{
		"workspace": ws.Root,
		"blueprint": absBlueprint,
		"seed":      *seed,
	})

	plan, err := planner.Build(bp, planner.Options{Seed: *seed})

	finishPayload := map[string]any{
		"workspace": ws.Root,
		"blueprint": absBlueprint,
	}
	if err != nil {
		finishPayload["error"] = err.Error()
		_ = logger.LogEvent("cli", "plan_generate_finished", finishPayload)
		return err
	}

	target := *outPath
	if target == "" {
		name := strings.ReplaceAll(strings.ToLower(bp.PaperName), " ", "-")
		target = filepath.Join(ws.ArtifactsDir, "plans",
			fmt.Sprintf("%s-%s.json", name, time.Now().UTC().Format("20060102-150405")))
	} else {
		target, err = ws.ResolvePath(target)
		if err != nil {
			return fmt.Errorf("resolve --out: %w", err)
		}
	}

	if err := planner.SavePlan(plan, target); err != nil {
		finishPayload["error"] = err.Error()
		_ = logger.LogEvent("cli", "plan_generate_finished", finishPayload)
		return err
	}
	finishPayload["plan_path"] = target
	finishPayload["specs"] = len(plan.Specs)
	_ = logger.LogEvent("cli", "plan_generate_finished", finishPayload)

	fmt.Fprintf(os.Stdout, "Wrote plan: %s (%d specs, %d marks)\n", target, len(plan.Specs), plan.TotalMarks())
	return nil
}

func runPaper(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s paper: missing subcommand (assemble, show, list)", appName)
	}

	switch args[0] {
	case "assemble":
		return runPaperAssemble(args[1:], workspacePath)
	case "show":
		return runPaperShow(args[1:], workspacePath)
	case "list":
		return runPaperList(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s paper: unknown subcommand %q", appName, args[0])
	}
}

func parseMode(mode string) (paper.Mode, error) {
	switch mode {
	case "bank":
		return paper.ModeBankOnly, nil
	case "fresh":
		return paper.ModeFreshOnly, nil
	case "hybrid":
		return paper.ModeHybrid, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want bank, fresh, or hybrid)", mode)
	}
}

func buildProducer(name, course, author string) (producer.Producer, error) {
	switch name {
	case "gemini":
		return producer.NewGemini("", "", course, author), nil
	case "mock":
		return &producer.MockProducer{CourseCode: course, AuthorID: author}, nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown producer: %s", name)
	}
}

func runPaperAssemble(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("paper assemble", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	blueprintPath := fs.String("blueprint", "", "Blueprint YAML file")
	mode := fs.String("mode", "bank", "Assembly mode: bank, fresh, or hybrid")
	author := fs.String("author", "", "Author id for preference-first selection")
	producerName := fs.String("producer", "gemini", "Producer for fresh questions: gemini or mock")
	minFromBank := fs.Int("min-from-bank", paper.DefaultMinFromBank, "Hybrid mode: minimum bank questions to keep them")
	randomize := fs.Bool("randomize", true, "Shuffle the candidate pool before selection")
	seed := fs.Int64("seed", time.Now().UnixNano(), "Seed for shuffling and weighted draws")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	if err := ws.EnsureDirs(); err != nil {
		return err
	}
	if *blueprintPath == "" {
		return fmt.Errorf("--blueprint is required")
	}
	absBlueprint, err := ws.ResolvePath(*blueprintPath)
	if err != nil {
		return fmt.Errorf("resolve --blueprint: %w", err)
	}

	bp, err := blueprint.Load(absBlueprint)
	if err != nil {
		return err
	}
	assembleMode, err := parseMode(*mode)
	if err != nil {
		return err
	}

	store, err := bank.Open(ws.BankDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	prod, err := buildProducer(*producerName, bp.CourseCode, *author)
	if err != nil {
		return err
	}

	orch := &paper.Orchestrator{
		Store:     store,
		Producer:  prod,
		PapersDir: filepath.Join(ws.ArtifactsDir, "papers"),
	}

	result, err := orch.Assemble(context.Background(), bp, paper.Options{
		Mode:        assembleMode,
		AuthorID:    *author,
		MinFromBank: *minFromBank,
		Randomize:   *randomize,
		Seed:        *seed,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Assembled paper %s\n", result.ID)
	fmt.Fprintf(os.Stdout, "  Questions: %d (%d bank, %d fresh)\n", len(result.QuestionIDs), result.BankCount, result.FreshCount)
	fmt.Fprintf(os.Stdout, "  Total marks: %d\n", result.TotalMarks)
	fmt.Fprintln(os.Stdout, "  Constraints:")
	for name, ok := range result.Constraints {
		status := "unmet"
		if ok {
			status = "met"
		}
		fmt.Fprintf(os.Stdout, "    %-20s %s\n", name, status)
	}
	if result.RenderedPath != "" {
		fmt.Fprintf(os.Stdout, "  Rendered: %s\n", result.RenderedPath)
	}
	return nil
}

func runPaperShow(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("paper show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("id", "", "Paper id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}

	store, err := bank.Open(ws.BankDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	record, err := store.GetPaper(*id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode paper: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

func runPaperList(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("paper list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	course := fs.String("course", "", "Filter by course code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}

	store, err := bank.Open(ws.BankDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	papers, err := store.ListPapers(*course)
	if err != nil {
		return err
	}
	if len(papers) == 0 {
		fmt.Fprintln(os.Stdout, "No papers found")
		return nil
	}
	for _, p := range papers {
		fmt.Fprintf(os.Stdout, "%s  %-28s %-8s %3d marks  %s\n",
			p.ID, p.PaperName, p.CourseCode, p.TotalMarks, p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runWorker(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s worker: missing subcommand (run, enqueue, jobs)", appName)
	}

	switch args[0] {
	case "run":
		return runWorkerRun(args[1:], workspacePath)
	case "enqueue":
		return runWorkerEnqueue(args[1:], workspacePath)
	case "jobs":
		return runWorkerJobs(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s worker: unknown subcommand %q", appName, args[0])
	}
}

func runWorkerRun(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("worker run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	producerName := fs.String("producer", "gemini", "Producer for fresh questions: gemini or mock")
	notifications := fs.Bool("notifications", false, "Send system notifications on completion")
	pollInterval := fs.Duration("poll-interval", time.Second, "Queue poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	if err := ws.EnsureDirs(); err != nil {
		return err
	}

	w, err := queue.New(queue.Config{
		StorePath:     ws.StateDBPath,
		AuditDBPath:   ws.AuditDBPath,
		PollInterval:  *pollInterval,
		Notifications: *notifications,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	w.RegisterHandler(queue.JobTypeAssemble, func(ctx context.Context, job *queue.Job) (any, error) {
		var payload queue.AssemblePayload
		if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("parse payload: %w", err)
		}

		absBlueprint, err := ws.ResolvePath(payload.BlueprintPath)
		if err != nil {
			return nil, fmt.Errorf("resolve blueprint path: %w", err)
		}
		bp, err := blueprint.Load(absBlueprint)
		if err != nil {
			return nil, err
		}
		assembleMode, err := parseMode(payload.Mode)
		if err != nil {
			return nil, err
		}

		store, err := bank.Open(ws.BankDBPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		prod, err := buildProducer(*producerName, bp.CourseCode, payload.AuthorID)
		if err != nil {
			return nil, err
		}

		orch := &paper.Orchestrator{
			Store:     store,
			Producer:  prod,
			PapersDir: filepath.Join(ws.ArtifactsDir, "papers"),
		}
		result, err := orch.Assemble(ctx, bp, paper.Options{
			Mode:        assembleMode,
			AuthorID:    payload.AuthorID,
			MinFromBank: payload.MinFromBank,
			Randomize:   payload.Randomize,
			Seed:        payload.Seed,
		})

		var questionCount, totalMarks int
		if result != nil {
			questionCount = len(result.QuestionIDs)
			totalMarks = result.TotalMarks
		}
		title, message := notify.FormatAssembleComplete(bp.PaperName, questionCount, totalMarks, err)
		_ = w.Notifier.Send(title, message)

		if err != nil {
			return nil, err
		}
		return map[string]any{
			"paper_id":       result.ID,
			"question_count": questionCount,
			"total_marks":    totalMarks,
			"rendered_path":  result.RenderedPath,
		}, nil
	})

	fmt.Fprintf(os.Stdout, "Worker running (queue: %s)\n", w.Store.DBPath)
	return w.Run(context.Background())
}

func runWorkerEnqueue(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("worker enqueue", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	blueprintPath := fs.String("blueprint", "", "Blueprint YAML file")
	mode := fs.String("mode", "bank", "Assembly mode: bank, fresh, or hybrid")
	author := fs.String("author", "", "Author id")
	minFromBank := fs.Int("min-from-bank", paper.DefaultMinFromBank, "Hybrid mode bank threshold")
	randomize := fs.Bool("randomize", true, "Shuffle the candidate pool before selection")
	seed := fs.Int64("seed", time.Now().UnixNano(), "Seed for shuffling and weighted draws")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}
	if *blueprintPath == "" {
		return fmt.Errorf("--blueprint is required")
	}
	if _, err := parseMode(*mode); err != nil {
		return err
	}

	store, err := queue.Open(ws.StateDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	jobID, err := store.Enqueue(queue.JobTypeAssemble, time.Now(), queue.AssemblePayload{
		BlueprintPath: *blueprintPath,
		Mode:          *mode,
		AuthorID:      *author,
		MinFromBank:   *minFromBank,
		Randomize:     *randomize,
		Seed:          *seed,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Enqueued job: %s\n", jobID)
	return nil
}

func runWorkerJobs(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("worker jobs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	limit := fs.Int("limit", 20, "Maximum jobs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ws, err := resolveWorkspace(workspacePath)
	if err != nil {
		return err
	}

	store, err := queue.Open(ws.StateDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	jobs, err := store.ListJobs(*limit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(os.Stdout, "No jobs")
		return nil
	}
	for _, job := range jobs {
		fmt.Fprintf(os.Stdout, "%-40s %-10s %s\n", job.ID, job.Status, job.ScheduledAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func writeFileIfMissing(path string, contents string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

const sampleBlueprintTemplate = `paper_name: Midterm Examination
course_code: %s
exam_type: midterm
constraints:
  - type: marks_total
    total: 50
  - type: duration
    total: 90
  - type: co_coverage
    minimums:
      CO1: 10
      CO2: 15
      CO3: 15
      CO4: 10
  - type: bloom_distribution
    levels:
      1: 0.15
      2: 0.25
      3: 0.30
      4: 0.20
      5: 0.10
  - type: difficulty_mix
    mix:
      easy: 0.2
      medium: 0.6
      hard: 0.2
  - type: question_count
    min: 5
    max: 10
`

const sampleBankSeedTemplate = `questions:
  - text: Define the time complexity of binary search and justify it.
    type: short_answer
    primary_co: CO1
    unit_id: unit_1
    bloom_level: 1
    difficulty: easy
    marks: 2
    course_code: COURSE_CODE
    quality_score: 85
    review_status: accepted
  - text: Compare linked lists and arrays for insert-heavy workloads.
    type: short_answer
    primary_co: CO1
    unit_id: unit_1
    bloom_level: 2
    difficulty: medium
    marks: 5
    course_code: COURSE_CODE
    quality_score: 80
    review_status: accepted
  - text: Implement a stack using two queues and analyze each operation.
    type: long_answer
    primary_co: CO2
    unit_id: unit_2
    bloom_level: 3
    difficulty: medium
    marks: 10
    course_code: COURSE_CODE
    quality_score: 88
    review_status: accepted
  - text: Design a hash table for a phone directory and discuss collision handling.
    type: long_answer
    primary_co: CO3
    unit_id: unit_3
    bloom_level: 4
    difficulty: hard
    marks: 16
    course_code: COURSE_CODE
    quality_score: 90
    review_status: accepted
  - text: Evaluate when quicksort degrades to quadratic time and how to avoid it.
    type: short_answer
    primary_co: CO4
    unit_id: unit_4
    bloom_level: 5
    difficulty: medium
    marks: 5
    course_code: COURSE_CODE
    quality_score: 82
    review_status: accepted
`

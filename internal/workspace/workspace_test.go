package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRequiresExistingDir(t *testing.T) {
	if _, err := Resolve(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected missing root to fail")
	}
	if _, err := Resolve(""); err == nil {
		t.Fatalf("expected empty root to fail")
	}
}

func TestResolveAndEnsureDirs(t *testing.T) {
	root := t.TempDir()
	ws, err := Resolve(root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ws.BlueprintsDir != filepath.Join(root, "blueprints") {
		t.Fatalf("unexpected blueprints dir %s", ws.BlueprintsDir)
	}

	if err := ws.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	for _, dir := range []string{
		ws.BlueprintsDir,
		ws.AuditDir,
		filepath.Join(ws.ArtifactsDir, "plans"),
		filepath.Join(ws.ArtifactsDir, "papers"),
		filepath.Join(ws.ArtifactsDir, "proposals"),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	ws, err := Resolve(root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	rel, err := ws.ResolvePath("blueprints/midterm.yml")
	if err != nil {
		t.Fatalf("resolve relative: %v", err)
	}
	if rel != filepath.Join(root, "blueprints", "midterm.yml") {
		t.Fatalf("unexpected resolved path %s", rel)
	}

	abs, err := ws.ResolvePath("/tmp/elsewhere.yml")
	if err != nil {
		t.Fatalf("resolve absolute: %v", err)
	}
	if abs != "/tmp/elsewhere.yml" {
		t.Fatalf("absolute paths should pass through, got %s", abs)
	}

	empty, err := ws.ResolvePath("  ")
	if err != nil {
		t.Fatalf("resolve empty: %v", err)
	}
	if empty != "" {
		t.Fatalf("blank path should resolve to empty, got %q", empty)
	}
}

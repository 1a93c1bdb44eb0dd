package linker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nthu-pllab/ctuscan/internal/cmdfilter"
	"github.com/nthu-pllab/ctuscan/internal/cmdrecord"
	"github.com/nthu-pllab/ctuscan/internal/resourcegraph"
)

func rec(pwd string, inputs, outputs []string) cmdrecord.CmdRecord {
	return cmdrecord.CmdRecord{
		Argv:    append([]string{"gcc"}, inputs...),
		Pwd:     pwd,
		ArgInfo: cmdfilter.ArgInfo{Inputs: inputs, Outputs: outputs},
	}
}

// S3: a.c and b.c each have a pre-existing index; after linking, a.o's
// index is a.c's (single resource, no copy), lib.a's index is the
// concatenation of a.o's then b.o's in insertion order, and a.c's targets
// point at lib.a's merged index.
func TestRunMergesAlongGraph(t *testing.T) {
	dir := t.TempDir()
	records := []cmdrecord.CmdRecord{
		rec(dir, []string{"a.c"}, []string{"a.o"}),
		rec(dir, []string{"b.c"}, []string{"b.o"}),
		rec(dir, []string{"a.o", "b.o"}, []string{"lib.a"}),
	}
	g, errs := resourcegraph.Build(records, dir)
	if len(errs) != 0 {
		t.Fatalf("Build errs = %v", errs)
	}

	l := &Linker{ProjectRoot: dir, ReportDir: dir}
	astDir := l.AstDir()
	if err := os.MkdirAll(astDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeIndex(t, filepath.Join(astDir, "a.c.index"), "AAA")
	writeIndex(t, filepath.Join(astDir, "b.c.index"), "BBB")

	if err := l.Run(g); err != nil {
		t.Fatalf("Run: %v", err)
	}

	aO, ok := g.Lookup("a.o")
	if !ok {
		t.Fatal("a.o vertex missing")
	}
	wantAO := filepath.Join(astDir, "a.c.index")
	if aO.IndexfilePath != wantAO {
		t.Errorf("a.o.IndexfilePath = %q, want %q (no-copy single resource)", aO.IndexfilePath, wantAO)
	}

	libA, ok := g.Lookup("lib.a")
	if !ok {
		t.Fatal("lib.a vertex missing")
	}
	wantLib := filepath.Join(astDir, "lib.a.index")
	if libA.IndexfilePath != wantLib {
		t.Errorf("lib.a.IndexfilePath = %q, want %q", libA.IndexfilePath, wantLib)
	}
	gotContent, err := os.ReadFile(libA.IndexfilePath)
	if err != nil {
		t.Fatalf("reading merged index: %v", err)
	}
	if string(gotContent) != "AAABBB" {
		t.Errorf("lib.a merged index = %q, want %q (a.c.index then b.c.index)", gotContent, "AAABBB")
	}

	aC, ok := g.Lookup("a.c")
	if !ok {
		t.Fatal("a.c vertex missing")
	}
	if diff := cmp.Diff([]string{wantLib}, aC.IndexfileTargets); diff != "" {
		t.Errorf("a.c.IndexfileTargets mismatch (-want +got):\n%s", diff)
	}
}

func TestRunPrunesVerticesWithNoIndex(t *testing.T) {
	dir := t.TempDir()
	records := []cmdrecord.CmdRecord{
		rec(dir, []string{"a.c"}, []string{"a.o"}),
	}
	g, _ := resourcegraph.Build(records, dir)
	l := &Linker{ProjectRoot: dir, ReportDir: dir}
	if err := os.MkdirAll(l.AstDir(), 0755); err != nil {
		t.Fatal(err)
	}
	// No a.c.index on disk: nothing to seed.
	if err := l.Run(g); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(g.Vertices()) != 0 {
		t.Errorf("expected all vertices pruned, got %d", len(g.Vertices()))
	}
}

func writeIndex(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

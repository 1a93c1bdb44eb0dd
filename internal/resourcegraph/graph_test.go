package resourcegraph

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nthu-pllab/ctuscan/internal/cmdfilter"
	"github.com/nthu-pllab/ctuscan/internal/cmdrecord"
)

func rec(pwd string, inputs, outputs []string) cmdrecord.CmdRecord {
	return cmdrecord.CmdRecord{
		Argv:    append([]string{"gcc"}, inputs...),
		Pwd:     pwd,
		ArgInfo: cmdfilter.ArgInfo{Inputs: inputs, Outputs: outputs},
	}
}

// S2: two compiles then an archive step produces the expected DAG shape,
// with sources ordered before objects before the archive.
func TestBuildAndTopoSort(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"a.c", "b.c"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	records := []cmdrecord.CmdRecord{
		rec(dir, []string{"a.c"}, []string{"a.o"}),
		rec(dir, []string{"b.c"}, []string{"b.o"}),
		rec(dir, []string{"a.o", "b.o"}, []string{"lib.a"}),
	}
	g, errs := Build(records, dir)
	if len(errs) != 0 {
		t.Fatalf("Build errs = %v, want none", errs)
	}

	var paths []string
	for _, v := range g.Vertices() {
		paths = append(paths, v.Path)
	}
	sort.Strings(paths)
	want := []string{"a.c", "a.o", "b.c", "b.o", "lib.a"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("vertex paths mismatch (-want +got):\n%s", diff)
	}

	order, err := g.TopoSort(false)
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	index := make(map[string]int, len(order))
	for i, v := range order {
		index[v.Path] = i
	}
	if index["a.c"] >= index["a.o"] {
		t.Error("a.c must come before a.o")
	}
	if index["a.o"] >= index["lib.a"] {
		t.Error("a.o must come before lib.a")
	}
	if index["b.o"] >= index["lib.a"] {
		t.Error("b.o must come before lib.a")
	}
}

func TestTransposeTopoSortReversesOrder(t *testing.T) {
	dir := t.TempDir()
	records := []cmdrecord.CmdRecord{
		rec(dir, []string{"a.c"}, []string{"a.o"}),
	}
	g, _ := Build(records, dir)
	fwd, err := g.TopoSort(false)
	if err != nil {
		t.Fatal(err)
	}
	bwd, err := g.TopoSort(true)
	if err != nil {
		t.Fatal(err)
	}
	if fwd[0].Path != "a.c" || bwd[0].Path != "a.o" {
		t.Errorf("fwd=%v bwd=%v, want forward starting a.c and transpose starting a.o", pathsOf(fwd), pathsOf(bwd))
	}
}

func pathsOf(vs []*Vertex) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Path
	}
	return out
}

func TestNoSelfLoopsOrDuplicateEdges(t *testing.T) {
	g := New()
	v := g.Vertex("a")
	g.AddEdge(v, v) // self-loop must be dropped
	w := g.Vertex("b")
	g.AddEdge(v, w)
	g.AddEdge(v, w) // duplicate must be a no-op

	if g.g.HasEdgeFromTo(v.ID(), v.ID()) {
		t.Error("self-loop was added")
	}
	count := 0
	it := g.g.Edges()
	for it.Next() {
		count++
	}
	if count != 1 {
		t.Errorf("edge count = %d, want 1 (duplicate insert should be a no-op)", count)
	}
}

func TestTopoSortCycleError(t *testing.T) {
	g := New()
	a, b := g.Vertex("a"), g.Vertex("b")
	g.AddEdge(a, b)
	g.AddEdge(b, a)
	if _, err := g.TopoSort(false); err == nil {
		t.Fatal("expected a cycle error")
	}
}

func TestRecordMismatchIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	records := []cmdrecord.CmdRecord{
		rec(dir, []string{"a.c", "b.c"}, []string{"a.o", "b.o", "c.o"}), // 2 in, 3 out
	}
	g, errs := Build(records, dir)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if len(g.Vertices()) != 0 {
		t.Errorf("mismatched record should contribute no vertices, got %d", len(g.Vertices()))
	}
}

func TestMissingPWDContributesNoEdges(t *testing.T) {
	records := []cmdrecord.CmdRecord{
		rec("", []string{"a.c"}, []string{"a.o"}),
	}
	g, errs := Build(records, "/proj")
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if len(g.Vertices()) != 0 {
		t.Errorf("missing-PWD record should contribute no vertices, got %d", len(g.Vertices()))
	}
}

// Invariant 6: graph.Load(graph.Save(G)) == G structurally.
func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	records := []cmdrecord.CmdRecord{
		rec(dir, []string{"a.c"}, []string{"a.o"}),
		rec(dir, []string{"b.c"}, []string{"b.o"}),
		rec(dir, []string{"a.o", "b.o"}, []string{"lib.a"}),
	}
	g, _ := Build(records, dir)
	g.Vertex("a.c").IndexfilePath = "ast/a.c.index"
	g.Vertex("a.c").IndexfileTargets = []string{"ast/lib.a.index"}

	savePath := filepath.Join(dir, "resource_graph.obj")
	if err := g.Save(savePath); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(savePath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantPaths := pathsOf(g.Vertices())
	gotPaths := pathsOf(loaded.Vertices())
	sort.Strings(wantPaths)
	sort.Strings(gotPaths)
	if diff := cmp.Diff(wantPaths, gotPaths); diff != "" {
		t.Errorf("vertex set mismatch after round-trip (-want +got):\n%s", diff)
	}

	lv, ok := loaded.Lookup("a.c")
	if !ok {
		t.Fatal("a.c missing after round-trip")
	}
	if lv.IndexfilePath != "ast/a.c.index" {
		t.Errorf("IndexfilePath = %q after round-trip, want ast/a.c.index", lv.IndexfilePath)
	}
	if diff := cmp.Diff([]string{"ast/lib.a.index"}, lv.IndexfileTargets); diff != "" {
		t.Errorf("IndexfileTargets mismatch after round-trip (-want +got):\n%s", diff)
	}

	origOrder, _ := g.TopoSort(false)
	loadedOrder, err := loaded.TopoSort(false)
	if err != nil {
		t.Fatalf("TopoSort after round-trip: %v", err)
	}
	if diff := cmp.Diff(pathsOf(origOrder), pathsOf(loadedOrder)); diff != "" {
		t.Errorf("topo order mismatch after round-trip (-want +got):\n%s", diff)
	}
}

func TestRemoveVertexRemovesIncidentEdges(t *testing.T) {
	g := New()
	a, b, c := g.Vertex("a"), g.Vertex("b"), g.Vertex("c")
	g.AddEdge(a, b)
	g.AddEdge(b, c)
	g.RemoveVertex("b")
	if _, ok := g.Lookup("b"); ok {
		t.Fatal("b should have been removed")
	}
	if len(g.Children(a)) != 0 {
		t.Error("edge a->b should have been removed")
	}
	if len(g.Parents(c)) != 0 {
		t.Error("edge b->c should have been removed")
	}
}

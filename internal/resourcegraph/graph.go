// Package resourcegraph builds a directed acyclic graph over the
// filesystem resources a build produces and consumes, and supports the
// topological traversals the virtual linker needs.
//
// The graph is a gonum simple.DirectedGraph, ordered and cycle-checked with
// topo.Sort rather than hand-rolled degree-table bookkeeping.
package resourcegraph

import (
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/nthu-pllab/ctuscan/internal/cmdrecord"
	"github.com/nthu-pllab/ctuscan/internal/scanerr"
)

// Vertex is one filesystem resource, keyed by its path relative to the
// project root.
type Vertex struct {
	id   int64
	Path string

	IndexfileResources []string
	IndexfilePath      string
	IndexfileTargets   []string
}

// ID implements graph.Node.
func (v *Vertex) ID() int64 { return v.id }

// Graph is a resource graph: the vertex set plus the edges derived from
// observed build commands.
type Graph struct {
	g      *simple.DirectedGraph
	byPath map[string]*Vertex
	nextID int64
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		g:      simple.NewDirectedGraph(),
		byPath: make(map[string]*Vertex),
	}
}

// Vertex returns the vertex for path, creating one if it doesn't exist yet.
func (g *Graph) Vertex(path string) *Vertex {
	if v, ok := g.byPath[path]; ok {
		return v
	}
	v := &Vertex{id: g.nextID, Path: path}
	g.nextID++
	g.byPath[path] = v
	g.g.AddNode(v)
	return v
}

// Lookup returns the vertex for path without creating it.
func (g *Graph) Lookup(path string) (*Vertex, bool) {
	v, ok := g.byPath[path]
	return v, ok
}

// Vertices returns every vertex currently in the graph, in no particular
// order.
func (g *Graph) Vertices() []*Vertex {
	out := make([]*Vertex, 0, len(g.byPath))
	for _, v := range g.byPath {
		out = append(out, v)
	}
	return out
}

// AddEdge adds an edge from→to, skipping self-loops and duplicate edges.
func (g *Graph) AddEdge(from, to *Vertex) {
	if from.ID() == to.ID() {
		return
	}
	if g.g.HasEdgeFromTo(from.ID(), to.ID()) {
		return
	}
	g.g.SetEdge(g.g.NewEdge(from, to))
}

// Parents returns the vertices with an edge into v (v's dependencies'
// consumers call this "children" in build-graph terms; here it names the
// graph-theoretic predecessors, i.e. nodes with an edge pointing at v).
func (g *Graph) Parents(v *Vertex) []*Vertex {
	var out []*Vertex
	it := g.g.To(v.ID())
	for it.Next() {
		out = append(out, it.Node().(*Vertex))
	}
	return out
}

// Children returns the vertices v has an edge into.
func (g *Graph) Children(v *Vertex) []*Vertex {
	var out []*Vertex
	it := g.g.From(v.ID())
	for it.Next() {
		out = append(out, it.Node().(*Vertex))
	}
	return out
}

// RemoveVertex removes v and every edge incident to it, in either
// direction.
func (g *Graph) RemoveVertex(path string) {
	v, ok := g.byPath[path]
	if !ok {
		return
	}
	g.g.RemoveNode(v.ID())
	delete(g.byPath, path)
}

// ErrCycle is scanerr.ErrGraphCycle; TopoSort returns an error wrapping it
// when the graph is not acyclic.
var ErrCycle = scanerr.ErrGraphCycle

// TopoSort returns the vertices of g in topological order. With
// transpose=true, it sorts the graph with every edge reversed, producing a
// reverse topological order, without g having to maintain two parallel
// sets of degree counters.
func (g *Graph) TopoSort(transpose bool) ([]*Vertex, error) {
	target := g.g
	if transpose {
		target = g.reversed()
	}
	sorted, err := topo.Sort(target)
	if err != nil {
		return nil, xerrors.Errorf("%w: %v", ErrCycle, err)
	}
	out := make([]*Vertex, len(sorted))
	for i, n := range sorted {
		out[i] = n.(*Vertex)
	}
	return out, nil
}

// reversed builds a transient copy of g's graph with every edge flipped.
func (g *Graph) reversed() *simple.DirectedGraph {
	r := simple.NewDirectedGraph()
	for _, v := range g.byPath {
		r.AddNode(v)
	}
	edges := g.g.Edges()
	for edges.Next() {
		e := edges.Edge()
		r.SetEdge(r.NewEdge(e.To(), e.From()))
	}
	return r
}

// Build constructs a Graph from an ordered CmdRecord stream, resolving
// paths relative to each record's pwd and canonicalizing any that already
// exist on disk. Non-fatal shape mismatches (the "otherwise warn and skip"
// rule for records whose input/output counts don't fit the N-to-1 or
// N-to-N shape) and missing PWDs are collected and returned rather than
// aborting construction.
func Build(records []cmdrecord.CmdRecord, projectRoot string) (*Graph, []error) {
	g := New()
	var errs []error
	for _, r := range records {
		inputs, outputs := r.ArgInfo.Inputs, r.ArgInfo.Outputs
		if len(inputs) == 0 || len(outputs) == 0 {
			continue
		}
		if r.Pwd == "" {
			errs = append(errs, xerrors.Errorf("%w: argv=%v", scanerr.ErrMissingPWD, r.Argv))
			continue
		}

		resolvedIn := make([]string, len(inputs))
		for i, p := range inputs {
			rp, err := ResolvePath(p, r.Pwd, projectRoot)
			if err != nil {
				errs = append(errs, err)
			}
			resolvedIn[i] = rp
		}
		resolvedOut := make([]string, len(outputs))
		for i, p := range outputs {
			rp, err := ResolvePath(p, r.Pwd, projectRoot)
			if err != nil {
				errs = append(errs, err)
			}
			resolvedOut[i] = rp
		}

		switch {
		case len(resolvedOut) == 1:
			out := g.Vertex(resolvedOut[0])
			for _, in := range resolvedIn {
				g.AddEdge(g.Vertex(in), out)
			}
		case len(resolvedOut) == len(resolvedIn):
			for i, in := range resolvedIn {
				g.AddEdge(g.Vertex(in), g.Vertex(resolvedOut[i]))
			}
		default:
			errs = append(errs, xerrors.Errorf("%w: %d inputs, %d outputs, argv=%v",
				scanerr.ErrRecordMismatch, len(resolvedIn), len(resolvedOut), r.Argv))
		}
	}
	return g, errs
}

// ResolvePath turns path (as written on a command line observed in pwd)
// into a project-root-relative string, canonicalizing via symlink
// resolution when the file exists.
func ResolvePath(path, pwd, projectRoot string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(pwd, abs)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	rel, err := filepath.Rel(projectRoot, abs)
	if err != nil {
		return abs, err
	}
	return rel, nil
}

// Export returns a cytoscape-shaped (nodes, edges) pair suitable for graph
// visualization. Not on the critical path.
func (g *Graph) Export() (nodes, edges []map[string]any) {
	for _, v := range g.byPath {
		nodes = append(nodes, map[string]any{
			"data": map[string]any{
				"id":                 v.Path,
				"indexfile_path":     v.IndexfilePath,
				"indexfile_targets":  v.IndexfileTargets,
			},
		})
	}
	it := g.g.Edges()
	for it.Next() {
		e := it.Edge()
		from := e.From().(*Vertex)
		to := e.To().(*Vertex)
		edges = append(edges, map[string]any{
			"data": map[string]any{
				"source": from.Path,
				"target": to.Path,
			},
		})
	}
	return nodes, edges
}

// Save serializes g to path atomically via encoding/gob.
func (g *Graph) Save(path string) error {
	data := toGraphData(g)
	b, err := encodeGob(data)
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, b, 0644)
}

// Load deserializes a Graph previously written by Save.
func Load(path string) (*Graph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data graphData
	if err := decodeGob(b, &data); err != nil {
		return nil, err
	}
	return fromGraphData(data), nil
}

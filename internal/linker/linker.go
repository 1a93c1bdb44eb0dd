// Package linker implements the virtual linker: it threads per-TU index
// artifacts through the resource graph so a CTU-mode compile of a
// downstream translation unit sees every upstream index.
package linker

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"github.com/nthu-pllab/ctuscan/internal/resourcegraph"
)

// Linker threads index artifacts through a resource graph rooted at
// ReportDir/ast.
type Linker struct {
	ProjectRoot string
	ReportDir   string
}

// AstDir returns the directory index artifacts live under.
func (l *Linker) AstDir() string {
	return filepath.Join(l.ReportDir, "ast")
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Run rewrites g in place: seeding per-source indexes, merging them
// forward along the graph, pruning vertices that end up with no index,
// then accumulating the set of sink indexes reachable from every
// remaining vertex.
func (l *Linker) Run(g *resourcegraph.Graph) error {
	astDir := l.AstDir()

	// Step 1: seed sources.
	for _, v := range g.Vertices() {
		if len(g.Parents(v)) != 0 {
			continue
		}
		candidate := filepath.Join(astDir, v.Path+".index")
		if fileExists(candidate) {
			v.IndexfileResources = append(v.IndexfileResources, candidate)
		}
	}

	// Step 2: forward merge in topological order.
	order, err := g.TopoSort(false)
	if err != nil {
		return err
	}
	for _, v := range order {
		switch len(v.IndexfileResources) {
		case 0:
			// indexfile_path stays empty
		case 1:
			v.IndexfilePath = v.IndexfileResources[0]
		default:
			dest := filepath.Join(astDir, v.Path+".index")
			if err := concat(dest, v.IndexfileResources); err != nil {
				return err
			}
			v.IndexfilePath = dest
		}
		if v.IndexfilePath != "" && fileExists(v.IndexfilePath) {
			for _, c := range g.Children(v) {
				c.IndexfileResources = append(c.IndexfileResources, v.IndexfilePath)
			}
		}
	}

	// Step 3: prune vertices with no resolved index.
	for _, v := range g.Vertices() {
		if v.IndexfilePath == "" {
			g.RemoveVertex(v.Path)
		}
	}

	// Step 4: backward target accumulation in reverse topological order.
	// Recompute order against the pruned graph; iterating it in reverse
	// visits every vertex after all of its children, so a child's targets
	// are always final by the time a parent reads them.
	pruned, err := g.TopoSort(false)
	if err != nil {
		return err
	}
	for i := len(pruned) - 1; i >= 0; i-- {
		v := pruned[i]
		if len(g.Children(v)) == 0 && fileExists(v.IndexfilePath) {
			v.IndexfileTargets = []string{v.IndexfilePath}
		}
		for _, p := range g.Parents(v) {
			p.IndexfileTargets = append(p.IndexfileTargets, v.IndexfileTargets...)
		}
	}

	return nil
}

// concat writes the byte-exact concatenation of srcs, in order, to dest,
// creating parent directories as needed. The destination is written
// through a renameio.PendingFile so a crash mid-merge never leaves a
// partially-written index visible to a concurrent CTU dispatch.
func concat(dest string, srcs []string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	f, err := renameio.TempFile("", dest)
	if err != nil {
		return err
	}
	defer f.Cleanup()
	for _, src := range srcs {
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		_, err = io.Copy(f, in)
		in.Close()
		if err != nil {
			return err
		}
	}
	return f.CloseAtomicallyReplace()
}

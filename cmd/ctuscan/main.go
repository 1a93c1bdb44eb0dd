// Command ctuscan traces a build, captures every compiler and archiver
// invocation, and drives a two-phase static analysis pass (per-TU, then
// cross-translation-unit) over it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/nthu-pllab/ctuscan"
	"github.com/nthu-pllab/ctuscan/internal/env"
	"github.com/nthu-pllab/ctuscan/internal/orchestrator"
	"github.com/nthu-pllab/ctuscan/internal/resourcegraph"
)

type cmd struct {
	fn func(ctx context.Context, args []string) error
}

var verbs = map[string]cmd{
	"scan":    {cmdScan},
	"graph":   {cmdGraph},
	"version": {cmdVersion},
}

func cmdVersion(ctx context.Context, args []string) error {
	fmt.Println(ctuscan.Version)
	return nil
}

func cmdGraph(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	path := fs.String("graph", "report/ast/resource_graph.obj", "path to a resource_graph.obj written by a previous scan")
	fs.Parse(args)

	g, err := resourcegraph.Load(*path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", *path, err)
	}
	nodes, edges := g.Export()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"nodes": nodes, "edges": edges})
}

func cmdScan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	reportDir := fs.String("o", "report", "directory to write reports, logs, and merged index files to")
	jobs := fs.Int("j", 0, "number of concurrent analyzer invocations (default: number of CPUs)")
	clang := fs.String("clang", "clang", "path to the real clang binary")
	analysis := fs.String("analyzer-opts", "", "space-separated -Xclang analyzer tokens, e.g. \"-analyzer-checker=misra.Foo\"")
	statusBugs := fs.Bool("status-bugs", false, "exit non-zero if any diagnostic was found, ignoring the traced build's own exit status")
	keepGoing := fs.Bool("k", false, "append -k -i to make/gmake build commands so one failing rule doesn't stop the trace early")
	keepEmpty := fs.Bool("keep-empty", false, "retain the report directory even when no diagnostics were produced (no-op: this driver never deletes it)")
	verbose := fs.Int("v", 0, "verbosity level, 0-4")
	outputFailures := fs.Bool("output-failures", true, "write a reproducer under <report>/failures for every crashing or erroring analyzer invocation")
	fs.Parse(args)
	_ = keepEmpty
	if *verbose > 0 {
		log.SetFlags(log.Ltime | log.Lmicroseconds)
	}

	build := fs.Args()
	if len(build) == 0 {
		return fmt.Errorf("usage: ctuscan scan [flags] -- <build command>")
	}
	if *keepGoing {
		build = augmentKeepGoing(build)
	}

	if err := os.MkdirAll(*reportDir, 0755); err != nil {
		return err
	}

	failuresDir := filepath.Join(*reportDir, "failures")
	ctuscan.RegisterAtExit(func() error {
		// Removes failuresDir only when nothing was written into it
		// (os.Remove fails silently on a non-empty directory), so a
		// genuine crash/error report always survives.
		os.Remove(failuresDir)
		return nil
	})

	var tokens []string
	if *analysis != "" {
		tokens = strings.Fields(*analysis)
	}

	c := &orchestrator.Ctx{
		Log:            log.New(os.Stderr, "", log.LstdFlags),
		ReportDir:      *reportDir,
		ProjectRoot:    env.ProjectRoot,
		Jobs:           *jobs,
		ClangPath:      *clang,
		AnalysisTokens: tokens,
		OutputFailures: *outputFailures,
		StatusBugs:     *statusBugs,
	}
	return c.Scan(ctx, build)
}

// augmentKeepGoing appends "-k -i" to make/gmake build commands so a single
// failing compile rule doesn't stop the trace before every translation
// unit has had a chance to run.
func augmentKeepGoing(build []string) []string {
	base := build[0]
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if base != "make" && base != "gmake" {
		return build
	}
	out := make([]string, len(build), len(build)+2)
	copy(out, build)
	return append(out, "-k", "-i")
}

func funcmain() error {
	flag.Parse()
	args := flag.Args()
	verb := "scan"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	v, ok := verbs[verb]
	if !ok {
		return fmt.Errorf("unknown command %q (syntax: ctuscan <scan|graph|version> [options])", verb)
	}

	ctx, canc := ctuscan.InterruptibleContext()
	defer canc()

	runErr := v.fn(ctx, args)
	if err := ctuscan.RunAtExit(); err != nil {
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nthu-pllab/ctuscan/internal/cmdrecord"
	"github.com/nthu-pllab/ctuscan/internal/ctrace"
	"github.com/nthu-pllab/ctuscan/internal/linker"
	"github.com/nthu-pllab/ctuscan/internal/resourcegraph"
)

// analyzerPath returns the fake-compiler binary to substitute for a CC or
// C++ invocation, resolved next to the ctuscan binary itself.
func analyzerPath(cxx bool) (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(self)
	if cxx {
		return filepath.Join(dir, "c++-analyzer"), nil
	}
	return filepath.Join(dir, "ccc-analyzer"), nil
}

// dispatch runs one fake-compiler invocation per C or C++ compiler record
// (archiver and other records are skipped), spread across a worker pool,
// with extraEnv appended to every child's
// environment (used to flip on CTU mode for phase 2).
func (c *Ctx) dispatch(ctx context.Context, records []cmdrecord.CmdRecord, extraEnv []string) error {
	jobs := make(chan cmdrecord.CmdRecord)
	eg, ctx := errgroup.WithContext(ctx)

	for i := 0; i < c.jobs(); i++ {
		i := i
		eg.Go(func() error {
			for r := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				c.dispatchOne(ctx, i, r, extraEnv)
			}
			return nil
		})
	}

	eg.Go(func() error {
		defer close(jobs)
		for _, r := range records {
			if !r.IsCC() && !r.IsCXX() {
				continue
			}
			select {
			case jobs <- r:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return eg.Wait()
}

// dispatchOne runs one analyzer invocation in place of record, reporting
// failures through c.Log rather than aborting the pool: one TU's analyzer
// crash must never prevent the rest of the build from being analyzed.
func (c *Ctx) dispatchOne(ctx context.Context, worker int, r cmdrecord.CmdRecord, extraEnv []string) {
	cxx := r.IsCXX()
	analyzer, err := analyzerPath(cxx)
	if err != nil {
		c.Log.Printf("resolving analyzer path: %v", err)
		return
	}

	ev := ctrace.Event("analyze "+filepath.Base(r.Argv[len(r.Argv)-1]), worker)
	c.status.update(worker, "analyzing "+r.Pwd)
	defer func() {
		ev.Done()
		c.status.update(worker, "idle")
	}()

	argv := append([]string{analyzer}, r.Argv[1:]...)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Pwd
	cmd.Env = append(c.analyzerEnv(), extraEnv...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	start := time.Now()
	if err := cmd.Run(); err != nil {
		c.Log.Printf("analyzer invocation for %s failed after %s: %v", r.Pwd, time.Since(start), err)
	}
}

// analyzerEnv builds the CCC_ANALYZER_* environment every dispatched fake
// compiler invocation needs, independent of phase.
func (c *Ctx) analyzerEnv() []string {
	env := append(os.Environ(),
		"CLANG="+c.clang(),
		"CCC_ANALYZER_OUTPUT_DIR="+c.ReportDir,
		"CCC_ANALYZER_OUTPUT_FORMAT=json",
		"CCC_ANALYZER_PROJECT_ROOT="+c.ProjectRoot,
	)
	if len(c.AnalysisTokens) > 0 {
		env = append(env, "CCC_ANALYZER_ANALYSIS="+joinTokens(c.AnalysisTokens))
	}
	if c.OutputFailures {
		env = append(env, "CCC_ANALYZER_OUTPUT_FAILURES=yes")
	}
	return env
}

func joinTokens(tokens []string) string {
	out := tokens[0]
	for _, t := range tokens[1:] {
		out += " " + t
	}
	return out
}

// linkAndDispatchCTU builds the resource graph from records, runs the
// virtual linker over it, persists the graph, and dispatches the CTU
// analysis phase against the resulting index targets. It returns the
// number of diagnostic reports the whole scan produced.
func (c *Ctx) linkAndDispatchCTU(ctx context.Context, records []cmdrecord.CmdRecord, graphPath string) (int, error) {
	g, errs := resourcegraph.Build(records, c.ProjectRoot)
	for _, e := range errs {
		c.Log.Printf("resource graph: %v", e)
	}

	lk := &linker.Linker{ProjectRoot: c.ProjectRoot, ReportDir: c.ReportDir}
	if err := lk.Run(g); err != nil {
		return 0, fmt.Errorf("linking: %w", err)
	}

	if err := g.Save(graphPath); err != nil {
		return 0, fmt.Errorf("saving resource graph: %w", err)
	}

	extraEnv := []string{
		"CCC_ANALYZER_CTUMODE=yes",
		"CCC_ANALYZER_RESOURCE_GRAPH_PATH=" + graphPath,
	}
	if err := c.dispatch(ctx, records, extraEnv); err != nil {
		return 0, err
	}

	return c.countReports()
}

// countReports counts the JSON diagnostic reports the analyzer wrote
// directly under ReportDir (as opposed to logs/, ast/, or failures/).
func (c *Ctx) countReports() (int, error) {
	entries, err := os.ReadDir(c.ReportDir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || e.Name() == "build_cmd.json" {
			continue
		}
		if filepath.Ext(e.Name()) == ".json" {
			n++
		}
	}
	return n, nil
}

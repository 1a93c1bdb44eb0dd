// Package orchestrator drives one end-to-end scan: trace a build, classify
// every captured command, dispatch single-translation-unit analysis,
// assemble the cross-translation-unit resource graph, link merged index
// files, and dispatch the CTU analysis pass that consumes them.
package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/klauspost/pgzip"

	"github.com/nthu-pllab/ctuscan"
	"github.com/nthu-pllab/ctuscan/internal/cmdfilter"
	"github.com/nthu-pllab/ctuscan/internal/cmdrecord"
	"github.com/nthu-pllab/ctuscan/internal/ctrace"
	"github.com/nthu-pllab/ctuscan/internal/env"
)

// Ctx is a scan context, containing configuration and state shared across
// the trace, analyze, and dispatch steps.
type Ctx struct {
	Log *log.Logger

	// ReportDir holds every artifact the scan produces: logs/, ast/,
	// failures/, and the diagnostic reports themselves.
	ReportDir string

	// ProjectRoot paths in the resource graph are resolved relative to.
	ProjectRoot string

	// Jobs is the worker pool size for each dispatch phase. Defaults to
	// runtime.NumCPU() when zero.
	Jobs int

	// ClangPath is the real compiler the fake compiler ultimately shells
	// out to. Defaults to "clang".
	ClangPath string

	// AnalysisTokens are passed through to the fake compiler as
	// CCC_ANALYZER_ANALYSIS (e.g. "-analyzer-checker=misra.Foo").
	AnalysisTokens []string

	// OutputFailures controls whether a crashing or erroring analyzer
	// invocation leaves a reproducer under failures/.
	OutputFailures bool

	// StatusBugs makes Scan return a non-zero-signaling error when any
	// diagnostic report was produced, regardless of the traced build's own
	// exit status.
	StatusBugs bool

	status *statusBoard
}

func (c *Ctx) jobs() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	return runtime.NumCPU()
}

func (c *Ctx) clang() string {
	if c.ClangPath != "" {
		return c.ClangPath
	}
	return "clang"
}

// FoundBugs reports whether the most recent Scan produced any diagnostic
// report. Only meaningful after Scan returns with StatusBugs enabled.
type FoundBugs struct {
	Count int
}

func (e *FoundBugs) Error() string {
	return fmt.Sprintf("%d diagnostic report(s) found", e.Count)
}

// Scan traces build, analyzes the resulting execve log, dispatches
// single-TU and cross-translation-unit analysis, and returns once every
// analyzer invocation has completed.
//
// A non-nil error from a failing analyzer invocation never aborts the
// scan early; every TU still gets a chance to run. Scan's own error return
// reports infrastructure failures (trace capture, graph construction) and,
// when StatusBugs is set, *FoundBugs once any diagnostic was written.
func (c *Ctx) Scan(ctx context.Context, build []string) error {
	if err := env.BumpFileLimit(); err != nil {
		c.Log.Printf("raising RLIMIT_NOFILE: %v (continuing with current limit)", err)
	}

	logsDir := filepath.Join(c.ReportDir, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return err
	}
	if err := ctrace.Enable(c.ReportDir); err != nil {
		c.Log.Printf("trace-event sink: %v", err)
	}

	traceLog := filepath.Join(logsDir, "strace.log")
	ctuscan.RegisterAtExit(func() error {
		// compressTraceLog removes traceLog once it has pgzipped it; this
		// only fires if Scan exits (error or interrupt) before that point,
		// leaving the uncompressed temp log behind.
		os.Remove(traceLog)
		return nil
	})

	start := time.Now()
	if err := c.trace(ctx, build, traceLog); err != nil {
		return err
	}
	c.Log.Printf("traced build (%s)", time.Since(start))

	start = time.Now()
	records, err := c.analyze(traceLog)
	if err != nil {
		return err
	}
	c.Log.Printf("analyzed %d build command(s) (%s)", len(records), time.Since(start))

	cmdLogPath := filepath.Join(c.ReportDir, "build_cmd.json")
	if err := cmdrecord.Persist(cmdLogPath, records); err != nil {
		c.Log.Printf("persisting %s: %v", cmdLogPath, err)
	}

	c.compressTraceLog(traceLog)

	c.status = newStatusBoard(c.jobs())

	start = time.Now()
	if err := c.dispatch(ctx, records, nil); err != nil {
		return err
	}
	c.Log.Printf("phase 1 (single-TU) analysis complete (%s)", time.Since(start))

	start = time.Now()
	astDir := filepath.Join(c.ReportDir, "ast")
	if err := os.MkdirAll(astDir, 0755); err != nil {
		return err
	}
	graphPath := filepath.Join(astDir, "resource_graph.obj")
	bugCount, err := c.linkAndDispatchCTU(ctx, records, graphPath)
	if err != nil {
		return err
	}
	c.Log.Printf("phase 2 (CTU) analysis complete (%s)", time.Since(start))

	if c.StatusBugs && bugCount > 0 {
		return &FoundBugs{Count: bugCount}
	}
	return nil
}

// trace runs build under strace, capturing every execve call (and its
// arguments/environment) to traceLog. The build's own exit status is
// ignored: a failing build can still produce build commands worth
// analyzing.
func (c *Ctx) trace(ctx context.Context, build []string, traceLog string) error {
	if len(build) == 0 {
		return fmt.Errorf("orchestrator: empty build command")
	}
	args := []string{
		"-e", "trace=execve",
		"-e", "signal=none",
		"-s", "65536",
		"-v", "-f",
		"-o", traceLog,
	}
	args = append(args, build...)
	cmd := exec.CommandContext(ctx, "strace", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Run() // exit status intentionally ignored
	return nil
}

// analyze parses traceLog into CmdRecords, classified against the default
// compiler/archiver filters.
func (c *Ctx) analyze(traceLog string) ([]cmdrecord.CmdRecord, error) {
	f, err := os.Open(traceLog)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return cmdrecord.Analyze(f, cmdfilter.DefaultRegistry(), func(line string, err error) {
		c.Log.Printf("trace parse: %v", err)
	})
}

// compressTraceLog pgzips traceLog in place once it has been fully consumed,
// rather than deleting it: it is useful for post-mortem debugging and small
// enough, pgzip-compressed, to keep around.
func (c *Ctx) compressTraceLog(traceLog string) {
	in, err := os.Open(traceLog)
	if err != nil {
		return
	}
	defer in.Close()
	out, err := os.Create(traceLog + ".gz")
	if err != nil {
		return
	}
	defer out.Close()
	zw := pgzip.NewWriter(out)
	buf := bufio.NewReader(in)
	if _, err := buf.WriteTo(zw); err != nil {
		c.Log.Printf("compressing trace log: %v", err)
		zw.Close()
		return
	}
	if err := zw.Close(); err != nil {
		c.Log.Printf("compressing trace log: %v", err)
		return
	}
	os.Remove(traceLog)
}

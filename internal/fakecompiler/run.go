package fakecompiler

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/nthu-pllab/ctuscan/internal/cmdfilter"
	"github.com/nthu-pllab/ctuscan/internal/diagnostics"
	"github.com/nthu-pllab/ctuscan/internal/resourcegraph"
	"github.com/nthu-pllab/ctuscan/internal/scanerr"

	"golang.org/x/xerrors"
)

// Run classifies argv (the compile invocation the orchestrator captured,
// with argv[0] already rewritten to this binary's path) and drives one
// analyzer invocation per source per CTU target.
//
// pwd is the working directory the original compile ran in; argv's
// relative paths are resolved against it.
func Run(params Params, cxxMode bool, argv []string, pwd string, log *os.File) error {
	var info cmdfilter.ArgInfo
	if cxxMode {
		info = cmdfilter.CXXFilter{}.Inspect(argv)
	} else {
		info = cmdfilter.CCFilter{}.Inspect(argv)
	}
	if info.Empty() {
		return nil
	}

	var graph *resourcegraph.Graph
	if params.CTUMode {
		g, err := resourcegraph.Load(params.ResourceGraphPath)
		if err != nil {
			return xerrors.Errorf("loading resource graph: %w", err)
		}
		graph = g
	}

	var firstErr error
	for _, src := range info.Inputs {
		if err := runOneSource(params, cxxMode, info, src, pwd, graph, log); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func runOneSource(params Params, cxxMode bool, info cmdfilter.ArgInfo, src, pwd string, graph *resourcegraph.Graph, log *os.File) error {
	srcPath := src
	if !filepath.IsAbs(srcPath) {
		srcPath = filepath.Join(pwd, srcPath)
	}
	if _, err := os.Stat(srcPath); err != nil {
		return xerrors.Errorf("%w: %s", scanerr.ErrMissingSource, srcPath)
	}

	lang := info.Lang
	if lang == "" {
		inferred, ok := InferLang(src, cxxMode)
		if !ok {
			return nil // unrecognized extension, nothing to dispatch
		}
		lang = inferred
	}

	targets := []string{""} // non-CTU: single nil target
	if params.CTUMode {
		targets = nil
		if graph != nil {
			if rel, err := resourcegraph.ResolvePath(src, pwd, params.ProjectRoot); err == nil {
				if v, ok := graph.Lookup(rel); ok {
					targets = v.IndexfileTargets
				}
			}
		}
	}

	for _, target := range targets {
		if err := dispatchOne(params, info, lang, srcPath, target, log); err != nil {
			return err
		}
	}
	return nil
}

// dispatchOne assembles and runs one analyzer invocation for src against
// target (the empty string outside CTU mode).
func dispatchOne(params Params, info cmdfilter.ArgInfo, lang, src, target string, log *os.File) error {
	reportPath := reportPathFor(params.OutputDir, src)
	astDir := astOutputDir(params, src)
	if err := os.MkdirAll(astDir, 0755); err != nil {
		return err
	}

	args := []string{"-fsyntax-only", "-fparse-all-comments", "-fno-trigraphs"}
	args = append(args, xclangWrap(params.AnalysisTokens)...)
	args = append(args,
		"-Xclang", "-plugin-arg-Misra-Checker", "-Xclang", "-o="+reportPath,
		"-Xclang", "-plugin-arg-Misra-Checker", "-Xclang", "-astdir="+astDir,
	)
	if target != "" {
		args = append(args,
			"-Xclang", "-plugin-arg-Misra-Checker", "-Xclang", "-ctu=true",
			"-Xclang", "-plugin-arg-Misra-Checker", "-Xclang", "-index="+target,
		)
	}
	for _, arch := range info.Archs {
		args = append(args, "-arch", arch)
	}
	args = append(args, "-x", lang)
	args = append(args, info.Options...)
	args = append(args, src)

	cc1Line, err := probeCC1Args(params.Clang, args)
	if err != nil {
		return err
	}
	cc1Args, err := splitShellWords(cc1Line)
	if err != nil {
		return err
	}
	if len(cc1Args) == 0 {
		return xerrors.New("fakecompiler: empty -### output")
	}

	cmd := exec.Command(cc1Args[0], cc1Args[1:]...)
	var stderr bytesBuffer
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	if runErr != nil {
		return handleFailure(params, cc1Args, src, runErr, stderr.Bytes())
	}

	if err := diagnostics.RewriteAbsPaths(reportPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return diagnostics.WriteCmdLog(filepath.Join(params.OutputDir, "logs"), diagnostics.CmdLog{
		ReportPath: reportPath,
		Command:    cc1Args,
		Dir:        params.ProjectRoot,
	})
}

func handleFailure(params Params, command []string, src string, runErr error, stderr []byte) error {
	exitErr, ok := runErr.(*exec.ExitError)
	kind := "other_error"
	code := -1
	sentinel := error(scanerr.ErrAnalyzerError)
	if ok {
		code = exitErr.ExitCode()
		if code < 0 {
			kind = "crash"
			sentinel = scanerr.ErrAnalyzerCrash
		}
	}

	if !params.OutputFailures {
		return xerrors.Errorf("%w: %s: %v", sentinel, src, runErr)
	}

	failuresDir := filepath.Join(params.OutputDir, "failures")
	reproducer := generateReproducer(failuresDir, command, src)

	if _, err := diagnostics.WriteFailure(failuresDir, diagnostics.FailureInfo{
		Command:    command,
		ExitCode:   code,
		Kind:       kind,
		Source:     src,
		Reproducer: reproducer,
	}, stderr); err != nil {
		return err
	}
	return xerrors.Errorf("%w: %s: %v", sentinel, src, runErr)
}

// generateReproducer re-runs the cc1 invocation that crashed or errored
// with -fsyntax-only swapped for -E, snapshotting the preprocessed source
// into failuresDir so the failure can be reproduced without the original
// build tree. Best-effort: a failure here never masks the original error,
// it just leaves Reproducer empty.
func generateReproducer(failuresDir string, command []string, src string) string {
	if len(command) == 0 {
		return ""
	}
	if err := os.MkdirAll(failuresDir, 0755); err != nil {
		return ""
	}

	out := filepath.Join(failuresDir, fmt.Sprintf("%s_%d_%d.repro.i", filepath.Base(src), os.Getpid(), time.Now().UnixNano()/1000))

	args := make([]string, 0, len(command)+2)
	for _, a := range command[1:] {
		if a == "-fsyntax-only" {
			continue
		}
		args = append(args, a)
	}
	args = append(args, "-E", "-o", out)

	if err := exec.Command(command[0], args...).Run(); err != nil {
		return ""
	}
	return out
}

// astOutputDir computes the directory the analyzer should write src's
// index file into: <out>/ast/<reldir>, where reldir is src's directory
// relative to the project root, in the same relative-path convention the
// resource graph keys vertices by. This keeps the written index at
// <ast>/<relpath>.index, exactly where the linker's seeding step
// (filepath.Join(astDir, vertex.Path+".index")) looks for it — a flat
// <out>/ast would collide same-named sources from different directories
// and never be found by multi-directory projects.
func astOutputDir(params Params, src string) string {
	astRoot := filepath.Join(params.OutputDir, "ast")
	rel, err := resourcegraph.ResolvePath(src, "", params.ProjectRoot)
	if err != nil {
		return astRoot
	}
	return filepath.Join(astRoot, filepath.Dir(rel))
}

// reportPathFor builds a unique diagnostic report path including a
// microsecond timestamp suffix, so concurrent workers never collide.
func reportPathFor(outputDir, src string) string {
	base := filepath.Base(src)
	return filepath.Join(outputDir, stampedName(base))
}

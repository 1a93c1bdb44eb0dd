// Package scanerr declares the sentinel error taxonomy shared across the
// scan pipeline, so callers can errors.Is/errors.As against a specific
// failure class regardless of which component raised it.
package scanerr

import "golang.org/x/xerrors"

// Sentinel errors. Wrap with xerrors.Errorf("...: %w", Err...) to attach
// context while keeping errors.Is working.
var (
	// ErrTraceParse marks a trace log line that did not parse against the
	// grammar at all. Logged and skipped; non-fatal.
	ErrTraceParse = xerrors.New("scanerr: malformed trace line")

	// ErrRecordMismatch marks a CmdRecord whose inputs/outputs shape
	// matched neither the N-to-1 nor the N-to-N graph-edge rule. The
	// record is excluded from the graph but still dispatched for
	// single-TU analysis.
	ErrRecordMismatch = xerrors.New("scanerr: inputs/outputs shape has no graph-edge rule")

	// ErrGraphCycle marks a resource graph that failed to topologically
	// sort. Fatal to CTU analysis; phase 1 results remain valid.
	ErrGraphCycle = xerrors.New("scanerr: resource graph contains a cycle")

	// ErrAnalyzerCrash marks an analyzer subprocess that exited due to a
	// signal (negative exit status).
	ErrAnalyzerCrash = xerrors.New("scanerr: analyzer crashed")

	// ErrAnalyzerError marks an analyzer subprocess that exited with a
	// positive non-zero status.
	ErrAnalyzerError = xerrors.New("scanerr: analyzer exited with an error")

	// ErrMissingSource marks an ArgInfo input that does not exist on disk
	// at dispatch time. The specific source is skipped; siblings in the
	// same invocation are still attempted.
	ErrMissingSource = xerrors.New("scanerr: source file does not exist")

	// ErrMissingPWD marks a CmdRecord whose envp had no PWD= entry. The
	// record is kept but contributes no graph edges.
	ErrMissingPWD = xerrors.New("scanerr: PWD not present in environment")
)

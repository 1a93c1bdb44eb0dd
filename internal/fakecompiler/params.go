// Package fakecompiler drives the external analyzer in place of the real
// compiler: it is invoked once per compile command, classifies its own
// argv, and dispatches one analyzer run per source per CTU target.
package fakecompiler

import (
	"os"
	"strconv"
	"strings"
)

// Params is the environment-derived configuration the orchestrator hands
// down to every fake-compiler invocation.
type Params struct {
	Clang             string // CLANG: path to the analyzer binary
	AnalysisTokens    []string
	OutputDir         string // CCC_ANALYZER_OUTPUT_DIR
	OutputFormat      string // CCC_ANALYZER_OUTPUT_FORMAT
	OutputFailures    bool   // CCC_ANALYZER_OUTPUT_FAILURES
	ProjectRoot       string // CCC_ANALYZER_PROJECT_ROOT
	CTUMode           bool   // CCC_ANALYZER_CTUMODE
	ResourceGraphPath string // CCC_ANALYZER_RESOURCE_GRAPH_PATH
}

// ParamsFromEnv reads the CCC_ANALYZER_* environment interface the
// orchestrator sets up before dispatching a worker.
func ParamsFromEnv() Params {
	return Params{
		Clang:             os.Getenv("CLANG"),
		AnalysisTokens:    strings.Fields(os.Getenv("CCC_ANALYZER_ANALYSIS")),
		OutputDir:         os.Getenv("CCC_ANALYZER_OUTPUT_DIR"),
		OutputFormat:      os.Getenv("CCC_ANALYZER_OUTPUT_FORMAT"),
		OutputFailures:    parseBool(os.Getenv("CCC_ANALYZER_OUTPUT_FAILURES")),
		ProjectRoot:       os.Getenv("CCC_ANALYZER_PROJECT_ROOT"),
		CTUMode:           parseBool(os.Getenv("CCC_ANALYZER_CTUMODE")),
		ResourceGraphPath: os.Getenv("CCC_ANALYZER_RESOURCE_GRAPH_PATH"),
	}
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	if b {
		return true
	}
	return s == "yes" || s == "YES" || s == "on"
}

// xclangWrap wraps each analysis option token as a "-Xclang <tok>" pair,
// the shape the analyzer expects for plugin-arg passthrough.
func xclangWrap(tokens []string) []string {
	out := make([]string, 0, 2*len(tokens))
	for _, t := range tokens {
		out = append(out, "-Xclang", t)
	}
	return out
}

package orchestrator

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testCtx(t *testing.T) *Ctx {
	t.Helper()
	return &Ctx{
		Log:       log.New(os.Stderr, "", 0),
		ReportDir: t.TempDir(),
	}
}

func TestAnalyzerEnvIncludesConfiguredValues(t *testing.T) {
	c := testCtx(t)
	c.ClangPath = "/opt/llvm/bin/clang"
	c.ProjectRoot = "/src"
	c.AnalysisTokens = []string{"-analyzer-checker=misra.Foo", "-analyzer-checker=misra.Bar"}
	c.OutputFailures = true

	env := c.analyzerEnv()
	want := []string{
		"CLANG=/opt/llvm/bin/clang",
		"CCC_ANALYZER_OUTPUT_DIR=" + c.ReportDir,
		"CCC_ANALYZER_OUTPUT_FORMAT=json",
		"CCC_ANALYZER_PROJECT_ROOT=/src",
		"CCC_ANALYZER_ANALYSIS=-analyzer-checker=misra.Foo -analyzer-checker=misra.Bar",
		"CCC_ANALYZER_OUTPUT_FAILURES=yes",
	}
	for _, w := range want {
		found := false
		for _, got := range env {
			if got == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("analyzerEnv() missing %q", w)
		}
	}
}

func TestAnalyzerEnvDefaultsClangWhenUnset(t *testing.T) {
	c := testCtx(t)
	env := c.analyzerEnv()
	for _, e := range env {
		if e == "CLANG=clang" {
			return
		}
	}
	t.Errorf("analyzerEnv() did not default CLANG to \"clang\": %v", env)
}

func TestJoinTokens(t *testing.T) {
	if got := joinTokens([]string{"-a", "-b", "-c"}); got != "-a -b -c" {
		t.Errorf("joinTokens = %q, want %q", got, "-a -b -c")
	}
	if got := joinTokens([]string{"-a"}); got != "-a" {
		t.Errorf("joinTokens = %q, want %q", got, "-a")
	}
}

func TestCountReports(t *testing.T) {
	c := testCtx(t)
	for _, name := range []string{"report1.json", "report2.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(c.ReportDir, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(c.ReportDir, "logs"), 0755); err != nil {
		t.Fatal(err)
	}
	n, err := c.countReports()
	if err != nil {
		t.Fatalf("countReports: %v", err)
	}
	if n != 2 {
		t.Errorf("countReports() = %d, want 2", n)
	}
}

func TestJobsDefaultsToNumCPUWhenUnset(t *testing.T) {
	c := &Ctx{}
	if c.jobs() <= 0 {
		t.Errorf("jobs() = %d, want > 0", c.jobs())
	}
	c.Jobs = 7
	if c.jobs() != 7 {
		t.Errorf("jobs() = %d, want 7", c.jobs())
	}
}

func TestFoundBugsError(t *testing.T) {
	err := &FoundBugs{Count: 3}
	if !strings.Contains(err.Error(), "3") {
		t.Errorf("FoundBugs.Error() = %q, want it to mention the count", err.Error())
	}
}

func TestStatusBoardOffTerminalIsNoop(t *testing.T) {
	b := &statusBoard{isTerminal: false, lines: make([]string, 2)}
	b.update(0, "building foo") // must not panic or block
	b.update(5, "out of range") // must not panic
}

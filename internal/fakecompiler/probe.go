package fakecompiler

import (
	"os/exec"
	"strings"

	"golang.org/x/xerrors"
)

// probeCC1Args asks clang for the exact backend command line it would run
// for args, via "clang -### <args>", and returns the last line of output
// (clang emits this to stderr, interleaved with stdout on some versions,
// hence CombinedOutput).
func probeCC1Args(clang string, args []string) (string, error) {
	cmd := exec.Command(clang, append([]string{"-###"}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", xerrors.Errorf("probing %s -### %v: %w", clang, args, err)
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) == 0 {
		return "", xerrors.Errorf("probing %s -### %v: no output", clang, args)
	}
	return lines[len(lines)-1], nil
}

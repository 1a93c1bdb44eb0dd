package cmdfilter

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Compiler/archiver name recognition: regexes over the final path
// component of argv[0]. Deliberately unanchored at the start (no "^"), so
// a cross-compiler prefix like "arm-linux-gnueabihf-" or "x86_64-pc-linux-gnu-"
// is absorbed and the toolchain is still recognized — mirroring the
// original's ".*/?gcc[^/]*$"-style patterns, which match on suffix only.
var (
	ccPatterns = []*regexp.Regexp{
		regexp.MustCompile(`cc$`),
		regexp.MustCompile(`gcc[^/]*$`),
		regexp.MustCompile(`clang[^+/]*$`), // must not match clang++
		regexp.MustCompile(`llvm-gcc[^/]*$`),
	}
	cxxPatterns = []*regexp.Regexp{
		regexp.MustCompile(`c\+\+$`),
		regexp.MustCompile(`g\+\+[^/]*$`),
		regexp.MustCompile(`clang\+\+[^/]*$`),
		regexp.MustCompile(`llvm-g\+\+[^/]*$`),
	}
	arPattern = regexp.MustCompile(`ar$`)
)

func matchesAny(basename string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(basename) {
			return true
		}
	}
	return false
}

func basename(cmd string) string {
	return filepath.Base(cmd)
}

// sourceCPattern and sourceCppPattern match any argument naming a .c or
// .cpp source, per the
// external interface's ".+\.c" / ".+\.cpp" pair: unanchored, so the
// extension may appear anywhere after at least one leading character.
var (
	sourceCPattern   = regexp.MustCompile(`.+\.c`)
	sourceCppPattern = regexp.MustCompile(`.+\.cpp`)
)

func looksLikeSource(arg string) bool {
	return sourceCPattern.MatchString(arg) || sourceCppPattern.MatchString(arg)
}

// isDroppedWarnOption reports whether arg is a -W... option other than
// -Wno-...; these are silently dropped rather than passed through. Written
// as an explicit prefix check rather than a regex: RE2 has no negative
// lookahead.
func isDroppedWarnOption(arg string) bool {
	return strings.HasPrefix(arg, "-W") && !strings.HasPrefix(arg, "-Wno-")
}

// noOpOptions immediately short-circuit a CC/CXX invocation to an empty
// ArgInfo: these are probes, not real compiles.
var noOpOptions = map[string]bool{
	"-E":                  true,
	"-M":                  true,
	"-MM":                 true,
	"-print-multiarch":    true,
	"-v":                  true,
	"--print-prog-name":   true,
	"--version":           true,
	"-###":                true,
}

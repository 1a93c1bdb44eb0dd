package cmdfilter

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/nthu-pllab/ctuscan"
)

// CCFilter recognizes the C compiler family (cc, gcc*, clang* but not
// clang++*, llvm-gcc*).
type CCFilter struct{}

func (CCFilter) Matches(cmd string) bool {
	return matchesAny(basename(cmd), ccPatterns)
}

func (CCFilter) Inspect(argv []string) ArgInfo {
	return inspectCCLike(argv)
}

// CXXFilter recognizes the C++ compiler family (c++, g++*, clang++*,
// llvm-g++*). Its argument decomposition is identical to CCFilter's; only
// the name patterns differ, per the external interface.
type CXXFilter struct{}

func (CXXFilter) Matches(cmd string) bool {
	return matchesAny(basename(cmd), cxxPatterns)
}

func (CXXFilter) Inspect(argv []string) ArgInfo {
	return inspectCCLike(argv)
}

// inspectCCLike implements the shared CC/CXX argument decomposition.
//
// The IGNORED_OPTIONS and COMPILER_OPTIONS tables that the original
// implementation declared but left commented out are deliberately not
// reintroduced here: every unrecognized non-"-W..." option is passthrough,
// consuming no look-ahead tokens, exactly the effective (if accidental)
// behavior of the commented-out source. Re-enabling those tables would
// change which options survive into `options` and is left to regression
// tests to justify, not speculation.
func inspectCCLike(argv []string) ArgInfo {
	var info ArgInfo

	args := argv[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if noOpOptions[arg] {
			return ArgInfo{}
		}

		lhs := arg
		if eq := strings.IndexByte(arg, '='); eq >= 0 {
			lhs = arg[:eq]
			if lhs == "" {
				continue
			}
		}

		switch lhs {
		case "-arch":
			if i+1 < len(args) {
				i++
				info.Archs = append(info.Archs, args[i])
			}
			continue
		case "-x":
			if i+1 < len(args) {
				i++
				info.Lang = args[i]
			}
			continue
		case "-o":
			if i+1 < len(args) {
				i++
				info.Outputs = []string{args[i]}
			}
			continue
		}

		if looksLikeSource(arg) {
			info.Inputs = append(info.Inputs, arg)
			continue
		}

		if isDroppedWarnOption(arg) {
			continue
		}

		info.Options = append(info.Options, arg)
	}

	if len(info.Archs) > 0 {
		info.Archs = ctuscan.FilterArchs(info.Archs)
		if len(info.Archs) == 0 {
			return ArgInfo{}
		}
	}

	if len(info.Inputs) == 0 {
		return ArgInfo{}
	}

	if len(info.Outputs) == 0 {
		if slices.Contains(info.Options, "-c") {
			for _, in := range info.Inputs {
				info.Outputs = append(info.Outputs, basenameWithoutSuffix(in)+".o")
			}
		} else {
			info.Outputs = []string{"a.out"}
		}
	}

	return info
}

// basenameWithoutSuffix returns the final path component of path with its
// extension (everything from the last '.') removed.
func basenameWithoutSuffix(path string) string {
	slash := strings.LastIndexByte(path, '/')
	base := path
	if slash >= 0 {
		base = path[slash+1:]
	}
	if dot := strings.LastIndexByte(base, '.'); dot >= 0 {
		return base[:dot]
	}
	return base
}

// Package cmdfilter classifies a compiler/archiver argv into the set of
// inputs, outputs, and passthrough options the build actually cares about.
package cmdfilter

// ArgInfo is the semantic decomposition of one compile/archive invocation.
// A zero-value ArgInfo (all fields empty) means "this invocation has
// nothing to contribute to the build graph", e.g. `-E`/`-v`/`--version`
// probes or archs that are entirely disallowed.
type ArgInfo struct {
	Inputs  []string
	Outputs []string
	Options []string
	Lang    string
	Archs   []string
}

// Empty reports whether a is the zero ArgInfo.
func (a ArgInfo) Empty() bool {
	return len(a.Inputs) == 0 && len(a.Outputs) == 0 && len(a.Options) == 0 &&
		a.Lang == "" && len(a.Archs) == 0
}

// Filter classifies an argv[0] and decomposes a matching argv into an
// ArgInfo.
type Filter interface {
	// Matches reports whether cmd (argv[0]) names a binary this filter
	// handles.
	Matches(cmd string) bool
	// Inspect decomposes argv (including argv[0]) into an ArgInfo.
	Inspect(argv []string) ArgInfo
}

// Registry is an ordered list of filters; the first filter whose Matches
// returns true wins. Construct one explicitly per caller rather than
// relying on a shared package-level instance, so tests and concurrent
// callers never contend over global mutable registration state.
type Registry []Filter

// Match returns the first filter in r matching cmd, or nil if none match.
func (r Registry) Match(cmd string) Filter {
	for _, f := range r {
		if f.Matches(cmd) {
			return f
		}
	}
	return nil
}

// DefaultRegistry returns the filter set described by the external
// interface: CC, then CXX, then AR, checked in that order. "clang++" still
// reaches the CXX filter because the CC filter's patterns are written to
// explicitly exclude it.
func DefaultRegistry() Registry {
	return Registry{
		CCFilter{},
		CXXFilter{},
		ARFilter{},
	}
}

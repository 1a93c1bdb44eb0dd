package ctuscan

// DisabledArchs lists -arch values the command filters refuse to analyze.
// A compile invocation naming only disabled architectures contributes no
// ArgInfo and is dropped from the build entirely.
var DisabledArchs = map[string]bool{
	"ppc":   true,
	"ppc64": true,
}

// FilterArchs removes every disabled architecture from archs, preserving
// order.
func FilterArchs(archs []string) []string {
	if len(archs) == 0 {
		return archs
	}
	filtered := make([]string, 0, len(archs))
	for _, a := range archs {
		if !DisabledArchs[a] {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

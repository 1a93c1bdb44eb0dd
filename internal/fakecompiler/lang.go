package fakecompiler

import "path/filepath"

// langByExt is the case-sensitive extension-to-language table from the
// external interface. ".i" is absent: its language depends on whether the
// invocation is itself in C++ mode, handled separately in InferLang.
var langByExt = map[string]string{
	".c":   "c",
	".cc":  "c++",
	".cp":  "c++",
	".cpp": "c++",
	".cxx": "c++",
	".c++": "c++",
	".C":   "c++",
	".CC":  "c++",
	".C++": "c++",
	".txx": "c++",
	".ii":  "c++-cpp-output",
	".m":   "objective-c",
	".mi":  "objective-c-cpp-output",
	".mm":  "objective-c++",
	".mii": "objective-c++-cpp-output",
}

// InferLang infers a language tag from a source path's extension, given
// whether the enclosing invocation is in C++ mode (affects ".i" only: it
// is "c-cpp-output" normally, "c++-cpp-output" under c++-analyzer).
func InferLang(path string, cxxMode bool) (string, bool) {
	ext := filepath.Ext(path)
	if ext == ".i" {
		if cxxMode {
			return "c++-cpp-output", true
		}
		return "c-cpp-output", true
	}
	lang, ok := langByExt[ext]
	return lang, ok
}

// Command ccc-analyzer is the fake compiler: a single binary installed
// under two names, ccc-analyzer and c++-analyzer, substituted for cc/c++
// in the build environment by the orchestrator. It is not meant to be run
// by hand.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nthu-pllab/ctuscan/internal/fakecompiler"
)

func main() {
	cxxMode := filepath.Base(os.Args[0]) == "c++-analyzer"

	pwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ccc-analyzer: getwd:", err)
		os.Exit(1)
	}

	params := fakecompiler.ParamsFromEnv()
	// argv[0] here is this binary's own path; fakecompiler.Run only needs
	// the real invocation's argv[1:] semantics, so hand the observed argv
	// through unchanged.
	argv := os.Args

	if err := fakecompiler.Run(params, cxxMode, argv, pwd, nil); err != nil {
		log.Printf("ccc-analyzer: %v", err)
		os.Exit(1)
	}
}

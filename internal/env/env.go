// Package env captures details about the ctuscan process environment: the
// project root override and the RLIMIT_NOFILE bump needed before spawning a
// large per-TU worker pool.
package env

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ProjectRoot is the root directory paths are resolved relative to.
// Overridden with CTUSCAN_ROOT; defaults to the working directory.
var ProjectRoot = findProjectRoot()

func findProjectRoot() string {
	if root := os.Getenv("CTUSCAN_ROOT"); root != "" {
		return root
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// BumpFileLimit raises RLIMIT_NOFILE to the host maximum so that dispatching
// hundreds of concurrent analyzer subprocesses, each holding open its own
// report, ast, and log files, does not exhaust file descriptors. The smaller
// of /proc/sys/fs/file-max and /proc/sys/fs/nr_open is the highest Linux will
// allow.
func BumpFileLimit() error {
	fileMax, err := readProcUint("/proc/sys/fs/file-max")
	if err != nil {
		return err
	}
	nrOpen, err := readProcUint("/proc/sys/fs/nr_open")
	if err != nil {
		return err
	}
	max := fileMax
	if nrOpen < max {
		max = nrOpen
	}
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &unix.Rlimit{Cur: max, Max: max})
}

func readProcUint(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(b)), 0, 64)
}

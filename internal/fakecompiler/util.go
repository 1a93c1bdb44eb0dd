package fakecompiler

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/google/shlex"
)

type bytesBuffer = bytes.Buffer

// splitShellWords tokenizes the "clang -###" probe's last output line,
// which is shell-quoted, into an argv.
func splitShellWords(line string) ([]string, error) {
	return shlex.Split(line)
}

// stampedName builds a report filename carrying a microsecond timestamp
// suffix, per the external interface's collision-avoidance requirement
// across concurrent workers.
func stampedName(base string) string {
	return fmt.Sprintf("%s_%d_%d.json", base, os.Getpid(), time.Now().UnixNano()/1000)
}

// Package diagnostics post-processes the JSON diagnostic reports and
// failure metadata the fake compiler produces.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio"
)

// RewriteAbsPaths rewrites every "file" field nested under
// diagnostics[].path[].location and diagnostics[].path[].ranges[] in the
// report at reportPath to its real absolute path, in place. Reports with
// no "diagnostics" key are left untouched.
func RewriteAbsPaths(reportPath string) error {
	b, err := os.ReadFile(reportPath)
	if err != nil {
		return err
	}
	var content map[string]any
	if err := json.Unmarshal(b, &content); err != nil {
		return err
	}
	diagnosticsRaw, ok := content["diagnostics"]
	if !ok {
		return nil
	}
	diags, ok := diagnosticsRaw.([]any)
	if !ok {
		return nil
	}
	for _, d := range diags {
		diag, ok := d.(map[string]any)
		if !ok {
			continue
		}
		path, _ := diag["path"].([]any)
		for _, p := range path {
			step, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if loc, ok := step["location"].(map[string]any); ok {
				rewriteLocation(loc)
			}
			if ranges, ok := step["ranges"].([]any); ok {
				for _, r := range ranges {
					if loc, ok := r.(map[string]any); ok {
						rewriteLocation(loc)
					}
				}
			}
		}
	}
	out, err := json.Marshal(content)
	if err != nil {
		return err
	}
	return renameio.WriteFile(reportPath, out, 0644)
}

func rewriteLocation(location map[string]any) {
	file, _ := location["file"].(string)
	if file == "" {
		return
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	location["file"] = abs
}

// FailureInfo is the metadata persisted alongside a crashed or erroring
// analyzer invocation.
type FailureInfo struct {
	Command    []string `json:"command"`
	ExitCode   int      `json:"exit_code"`
	Kind       string   `json:"kind"` // "crash" or "other_error"
	Source     string   `json:"source"`
	Reproducer string   `json:"reproducer,omitempty"`
}

// WriteFailure writes <failuresDir>/<stamp>.info.json and
// <failuresDir>/<stamp>.stderr.txt for one failed analyzer invocation,
// returning the stamp used so callers can correlate the two files.
func WriteFailure(failuresDir string, info FailureInfo, stderr []byte) (stamp string, err error) {
	if err := os.MkdirAll(failuresDir, 0755); err != nil {
		return "", err
	}
	stamp = fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102T150405"), os.Getpid())

	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", err
	}
	infoPath := filepath.Join(failuresDir, stamp+".info.json")
	if err := renameio.WriteFile(infoPath, b, 0644); err != nil {
		return "", err
	}
	stderrPath := filepath.Join(failuresDir, stamp+".stderr.txt")
	if err := renameio.WriteFile(stderrPath, stderr, 0644); err != nil {
		return "", err
	}
	return stamp, nil
}

// CmdLog is the per-invocation analyzer command log, written as a sibling
// JSON file alongside a successful report so a user can re-invoke the
// exact command later.
type CmdLog struct {
	ReportPath string   `json:"report_path"`
	Command    []string `json:"command"`
	Dir        string   `json:"dir"`
}

// WriteCmdLog writes logsDir/cmd_<pid>_<unix nanoseconds>.log.json.
func WriteCmdLog(logsDir string, log CmdLog) error {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("cmd_%d_%d.log.json", os.Getpid(), time.Now().UnixNano())
	return renameio.WriteFile(filepath.Join(logsDir, name), b, 0644)
}

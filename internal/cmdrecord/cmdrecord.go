// Package cmdrecord drives the trace lexer and command filters over a
// strace log to produce the ordered stream of observed build commands.
package cmdrecord

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/google/renameio"

	"github.com/nthu-pllab/ctuscan/internal/cmdfilter"
	"github.com/nthu-pllab/ctuscan/internal/tracelex"
)

// CmdRecord is one observed successful process: its argv, the working
// directory it ran in, and the semantic decomposition of its arguments.
// Immutable once constructed.
type CmdRecord struct {
	Argv    []string          `json:"argv"`
	Pwd     string            `json:"pwd"` // empty if PWD= was absent from envp
	ArgInfo cmdfilter.ArgInfo `json:"arginfo"`
}

// IsCC and IsCXX classify argv[0] the same way cmdfilter.CCFilter and
// CXXFilter do, independent of which filter originally matched the record
// (a CmdRecord built from an AR invocation is neither).
func (r CmdRecord) IsCC() bool {
	return len(r.Argv) > 0 && (cmdfilter.CCFilter{}).Matches(r.Argv[0])
}

func (r CmdRecord) IsCXX() bool {
	return len(r.Argv) > 0 && (cmdfilter.CXXFilter{}).Matches(r.Argv[0])
}

// extractPWD returns the value of the first PWD= entry in envp, split on
// the first '=' only, and whether one was present.
func extractPWD(envp []string) (string, bool) {
	for _, kv := range envp {
		if strings.HasPrefix(kv, "PWD=") {
			return kv[len("PWD="):], true
		}
	}
	return "", false
}

// Analyze streams log through the trace lexer, classifies every
// successful execve against registry, and returns the ordered list of
// resulting CmdRecords. Emission order equals trace order. Malformed trace
// lines are swallowed (tracelex.ErrMalformed/ErrNotExecve are expected,
// recoverable per the line grammar); onParseError, if non-nil, is called
// for each one.
func Analyze(log io.Reader, registry cmdfilter.Registry, onParseError func(line string, err error)) ([]CmdRecord, error) {
	p := tracelex.NewParser()
	var records []CmdRecord
	err := p.Scan(log, func(ev tracelex.Execve) error {
		if len(ev.Argv) == 0 {
			return nil
		}
		f := registry.Match(ev.Argv[0])
		if f == nil {
			return nil
		}
		pwd, _ := extractPWD(ev.Envp)
		records = append(records, CmdRecord{
			Argv:    ev.Argv,
			Pwd:     pwd,
			ArgInfo: f.Inspect(ev.Argv),
		})
		return nil
	}, onParseError)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Persist writes records as build_cmd.json atomically.
func Persist(path string, records []CmdRecord) error {
	if records == nil {
		records = []CmdRecord{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, b, 0644)
}

// Load reads a build_cmd.json file written by Persist.
func Load(path string) ([]CmdRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []CmdRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, err
	}
	return records, nil
}

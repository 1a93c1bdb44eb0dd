package tracelex

import (
	"bufio"
	"io"

	"golang.org/x/xerrors"
)

// Execve is one successful execve(2) observed in the trace: the path the
// kernel resolved, the argv and envp the process was started with, and the
// pid that made the call.
type Execve struct {
	Pid      int
	Filename string
	Argv     []string
	Envp     []string
	Status   int
}

// ErrMalformed indicates a trace line that does not parse against the
// grammar at all: the caller should log and skip it.
var ErrMalformed = xerrors.New("tracelex: malformed trace line")

// ErrNotExecve indicates a syscall line naming something other than
// execve; it is recoverable, the caller drops the line.
var ErrNotExecve = xerrors.New("tracelex: not an execve call")

type pendingCall struct {
	filename string
	argv     []string
	envp     []string
}

// Parser turns a sequence of trace log lines into a stream of successful
// Execve calls, joining unfinished/resumed call pairs by pid.
type Parser struct {
	pending map[int]pendingCall
}

// NewParser returns an empty Parser.
func NewParser() *Parser {
	return &Parser{pending: make(map[int]pendingCall)}
}

// PendingCount returns the number of suspended (unfinished) calls currently
// awaiting their resumed counterpart. A caller that streams a very long log
// without ever seeing PendingCount drop back down has detected calls whose
// resumption never arrived.
func (p *Parser) PendingCount() int {
	return len(p.pending)
}

// ParseLine parses one trace log line. It returns a non-nil *Execve only
// when the line completes a call whose exit status was 0; a nil result
// with a nil error means the line was consumed but produced nothing
// observable (an exit marker, an unfinished call, or a failed call).
func (p *Parser) ParseLine(line string) (*Execve, error) {
	lx := newLexer(line)
	pid, ok := lx.readInt()
	if !ok {
		return nil, ErrMalformed
	}
	lx.skipBlanks()

	switch lx.peek() {
	case '+':
		// process exit marker, e.g. "+++ exited with 0 +++"
		return nil, nil
	case '<':
		return p.parseResumed(lx, pid)
	}

	name, ok := lx.readIdentUntil('(')
	if !ok {
		return nil, ErrMalformed
	}
	if name != "execve" {
		return nil, ErrNotExecve
	}
	lx.pos++ // consume '('

	filename, ok := lx.readCString()
	if !ok {
		return nil, ErrMalformed
	}
	lx.skipBlanks()
	if !lx.consumeByte(',') {
		return nil, ErrMalformed
	}
	lx.skipBlanks()
	argv, ok := lx.readStringArray()
	if !ok {
		return nil, ErrMalformed
	}
	lx.skipBlanks()
	if !lx.consumeByte(',') {
		return nil, ErrMalformed
	}
	lx.skipBlanks()
	envp, ok := lx.readStringArray()
	if !ok {
		return nil, ErrMalformed
	}
	lx.skipBlanks()

	if lx.consumeLiteral("<unfinished ...>") {
		p.pending[pid] = pendingCall{filename: filename, argv: argv, envp: envp}
		return nil, nil
	}
	if !lx.consumeByte(')') {
		return nil, ErrMalformed
	}
	lx.skipBlanks()
	// The unfinished marker may also follow the closing ')'.
	if lx.consumeLiteral("<unfinished ...>") {
		p.pending[pid] = pendingCall{filename: filename, argv: argv, envp: envp}
		return nil, nil
	}
	status, ok := lx.readTail()
	if !ok {
		return nil, ErrMalformed
	}
	if status != 0 {
		return nil, nil
	}
	return &Execve{Pid: pid, Filename: filename, Argv: argv, Envp: envp, Status: status}, nil
}

// parseResumed handles a "<... execve resumed> ) = N" line, recovering the
// call's filename/argv/envp from the pending table.
func (p *Parser) parseResumed(lx *lexer, pid int) (*Execve, error) {
	if !lx.scanUpToAndPast("resumed>") {
		return nil, ErrMalformed
	}
	lx.skipBlanks()
	if !lx.consumeByte(')') {
		return nil, ErrMalformed
	}
	status, ok := lx.readTail()
	if !ok {
		return nil, ErrMalformed
	}
	pc, ok := p.pending[pid]
	if !ok {
		// A resumed call with no matching unfinished entry: the log is
		// missing its opening half (e.g. we started tracing mid-call).
		return nil, ErrMalformed
	}
	delete(p.pending, pid)
	if status != 0 {
		return nil, nil
	}
	return &Execve{Pid: pid, Filename: pc.filename, Argv: pc.argv, Envp: pc.envp, Status: status}, nil
}

// readTail reads the '=' <int> production that closes a completed call.
func (l *lexer) readTail() (int, bool) {
	l.skipBlanks()
	if !l.consumeByte('=') {
		return 0, false
	}
	l.skipBlanks()
	return l.readInt()
}

// Scan streams r line-by-line, invoking fn for every successful execve
// call. Malformed or non-execve lines are passed to onError rather than
// aborting the scan; onError may be nil, in which case such lines are
// silently dropped. Scan never buffers more than one line in memory.
func (p *Parser) Scan(r io.Reader, fn func(Execve) error, onError func(line string, err error)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		ev, err := p.ParseLine(line)
		if err != nil {
			if onError != nil {
				onError(line, err)
			}
			continue
		}
		if ev == nil {
			continue
		}
		if err := fn(*ev); err != nil {
			return err
		}
	}
	return sc.Err()
}

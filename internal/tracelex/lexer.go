// Package tracelex implements a lexer and parser for strace execve logs, the
// textual grammar a traced build command is recorded as.
package tracelex

import (
	"strconv"
	"strings"
)

// lexer is a cursor over a single log line. It has no look-ahead buffer
// beyond the byte the cursor currently points at.
type lexer struct {
	s   string
	pos int
}

func newLexer(line string) *lexer {
	return &lexer{s: line}
}

func (l *lexer) eof() bool {
	return l.pos >= len(l.s)
}

func (l *lexer) peek() byte {
	if l.eof() {
		return 0
	}
	return l.s[l.pos]
}

// skipBlanks consumes a run of spaces and tabs.
func (l *lexer) skipBlanks() {
	for !l.eof() && (l.s[l.pos] == ' ' || l.s[l.pos] == '\t') {
		l.pos++
	}
}

// readInt reads an optionally-signed decimal integer.
func (l *lexer) readInt() (int, bool) {
	start := l.pos
	if !l.eof() && (l.s[l.pos] == '-' || l.s[l.pos] == '+') {
		l.pos++
	}
	digitsStart := l.pos
	for !l.eof() && l.s[l.pos] >= '0' && l.s[l.pos] <= '9' {
		l.pos++
	}
	if l.pos == digitsStart {
		l.pos = start
		return 0, false
	}
	n, err := strconv.Atoi(l.s[start:l.pos])
	if err != nil {
		return 0, false
	}
	return n, true
}

// consumeByte consumes a single expected byte, returning whether it matched.
func (l *lexer) consumeByte(b byte) bool {
	if l.eof() || l.s[l.pos] != b {
		return false
	}
	l.pos++
	return true
}

// consumeLiteral consumes an exact literal string at the cursor.
func (l *lexer) consumeLiteral(lit string) bool {
	if !strings.HasPrefix(l.s[l.pos:], lit) {
		return false
	}
	l.pos += len(lit)
	return true
}

// scanUpToAndPast advances the cursor past the first occurrence of lit,
// anywhere ahead of the current position. Used for the "<... execve
// resumed>" prefix, whose leading "<..." contents we don't otherwise care
// about.
func (l *lexer) scanUpToAndPast(lit string) bool {
	idx := strings.Index(l.s[l.pos:], lit)
	if idx < 0 {
		return false
	}
	l.pos += idx + len(lit)
	return true
}

// readIdentUntil reads bytes up to (not including) the next occurrence of
// stop, used to read a syscall name up to its opening '('.
func (l *lexer) readIdentUntil(stop byte) (string, bool) {
	idx := strings.IndexByte(l.s[l.pos:], stop)
	if idx < 0 {
		return "", false
	}
	ident := l.s[l.pos : l.pos+idx]
	l.pos += idx
	return ident, true
}

// readCString reads a C-style double-quoted string and returns its
// unescaped content.
func (l *lexer) readCString() (string, bool) {
	if !l.consumeByte('"') {
		return "", false
	}
	var b strings.Builder
	for {
		if l.eof() {
			return "", false
		}
		c := l.s[l.pos]
		if c == '"' {
			l.pos++
			return b.String(), true
		}
		if c == '\\' {
			l.pos++
			if l.eof() {
				return "", false
			}
			esc, n, ok := unescapeOne(l.s[l.pos:])
			if !ok {
				return "", false
			}
			b.WriteByte(esc)
			l.pos += n
			continue
		}
		b.WriteByte(c)
		l.pos++
	}
}

// unescapeOne decodes one C backslash escape sequence (the backslash itself
// already consumed) and returns the decoded byte, the number of input bytes
// it consumed, and whether the sequence was well-formed.
func unescapeOne(s string) (byte, int, bool) {
	if len(s) == 0 {
		return 0, 0, false
	}
	switch s[0] {
	case 'n':
		return '\n', 1, true
	case 't':
		return '\t', 1, true
	case 'r':
		return '\r', 1, true
	case 'a':
		return '\a', 1, true
	case 'b':
		return '\b', 1, true
	case 'f':
		return '\f', 1, true
	case 'v':
		return '\v', 1, true
	case '\\':
		return '\\', 1, true
	case '"':
		return '"', 1, true
	case '\'':
		return '\'', 1, true
	case '?':
		return '?', 1, true
	case 'x':
		// hex escape: consume up to two hex digits
		n := 1
		var v int
		for n <= 2 && n < len(s) && isHex(s[n]) {
			v = v*16 + hexVal(s[n])
			n++
		}
		if n == 1 {
			return 0, 0, false
		}
		return byte(v), n, true
	default:
		if s[0] >= '0' && s[0] <= '7' {
			// octal escape: up to three octal digits
			n := 0
			v := 0
			for n < 3 && n < len(s) && s[n] >= '0' && s[n] <= '7' {
				v = v*8 + int(s[n]-'0')
				n++
			}
			return byte(v), n, true
		}
		// Unrecognized escape: strace never emits these, but pass the
		// byte through literally rather than failing the whole line.
		return s[0], 1, true
	}
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	default:
		return int(b-'A') + 10
	}
}

// readStringArray reads a '[' (<string> (',' <string>)*)? ']' production.
func (l *lexer) readStringArray() ([]string, bool) {
	if !l.consumeByte('[') {
		return nil, false
	}
	l.skipBlanks()
	var out []string
	if l.peek() == ']' {
		l.pos++
		return out, true
	}
	for {
		l.skipBlanks()
		s, ok := l.readCString()
		if !ok {
			return nil, false
		}
		out = append(out, s)
		l.skipBlanks()
		if l.consumeByte(',') {
			continue
		}
		if l.consumeByte(']') {
			return out, true
		}
		return nil, false
	}
}

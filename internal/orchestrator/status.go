package orchestrator

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// statusBoard renders one live status line per worker, redrawn in place on
// a terminal via ANSI cursor movement. Off a terminal, updates are dropped
// silently so piped/logged output stays readable.
type statusBoard struct {
	isTerminal bool

	mu       sync.Mutex
	lines    []string
	lastDraw time.Time
}

func newStatusBoard(workers int) *statusBoard {
	return &statusBoard{
		isTerminal: isatty.IsTerminal(os.Stdout.Fd()),
		lines:      make([]string, workers),
	}
}

func (b *statusBoard) update(worker int, status string) {
	if !b.isTerminal || worker < 0 || worker >= len(b.lines) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if diff := len(b.lines[worker]) - len(status); diff > 0 {
		status += strings.Repeat(" ", diff)
	}
	b.lines[worker] = status
	if time.Since(b.lastDraw) < 100*time.Millisecond {
		return
	}
	b.draw()
}

func (b *statusBoard) draw() {
	b.lastDraw = time.Now()
	for _, line := range b.lines {
		fmt.Println(line)
	}
	fmt.Printf("\033[%dA", len(b.lines)) // restore cursor position
}

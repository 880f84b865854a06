// Package ptybridge runs a command on a pseudo-terminal with a hard
// wall-clock budget and returns everything it printed.
package ptybridge

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// Defaults used when a Bridge field is zero.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultDrainGrace = 100 * time.Millisecond
	DefaultRows       = 40
	DefaultCols       = 200
)

// ErrTimeout is returned when the command outlives the budget or the
// context. The command's process group has been killed and reaped.
var ErrTimeout = errors.New("ptybridge: command timed out")

// Size is the terminal geometry presented to the command.
type Size struct {
	Rows uint16
	Cols uint16
}

// Bridge runs commands under a pseudo-terminal.
type Bridge struct {
	// Timeout bounds the whole run, from start to exit.
	Timeout time.Duration

	// DrainGrace is how long to keep reading after the command exits.
	DrainGrace time.Duration

	Size Size
}

// Command describes what to run. Env is passed as-is.
type Command struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// Result is the outcome of one run. Output is nil when TimedOut.
type Result struct {
	ExitCode int
	Output   []byte
	Elapsed  time.Duration
	PID      int
	TimedOut bool
}

func (b Bridge) timeout() time.Duration {
	if b.Timeout <= 0 {
		return DefaultTimeout
	}
	return b.Timeout
}

func (b Bridge) drainGrace() time.Duration {
	if b.DrainGrace <= 0 {
		return DefaultDrainGrace
	}
	return b.DrainGrace
}

func (b Bridge) size() Size {
	s := b.Size
	if s.Rows == 0 {
		s.Rows = DefaultRows
	}
	if s.Cols == 0 {
		s.Cols = DefaultCols
	}
	return s
}

// lockedBuffer is written by the reader goroutine and read by Run.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) Bytes() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return bytes.Clone(l.buf.Bytes())
}

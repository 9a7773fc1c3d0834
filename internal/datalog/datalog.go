// Package datalog implements the per-component numeric data logger used
// by Sensor, Motor and Actuator when their configuration enables a "log"
// block: one append-only line per update tick, a leading timestamp
// column followed by a fixed-precision dump of whatever values the
// caller registers for that line.
package datalog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/arobi-robotics/robotd/pkg/logging"
)

// Log is one append-only numeric log stream. A nil *Log is valid and
// every method on it is a no-op, so components can hold an optional Log
// unconditionally.
type Log struct {
	mu        sync.Mutex
	w         *bufio.Writer
	f         *os.File
	precision int
	line      []string
	start     time.Time
}

// New opens a Log. When dir is empty, the log writes to stdout instead of
// a file, matching the original firmware's "terminal logging" fallback
// when no log file name is configured. precision is the number of
// decimals used to format each registered value; zero or a negative
// value selects the default of 3.
func New(dir, name string, precision int) (*Log, error) {
	if precision <= 0 {
		precision = 3
	}

	l := &Log{precision: precision, start: time.Now()}

	if dir == "" {
		l.w = bufio.NewWriter(os.Stdout)
		return l, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("datalog: create dir %s: %w", dir, err)
	}

	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log", name, stamp))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logging.Component("datalog").WithError(err).Warn("falling back to stdout logging")
		l.w = bufio.NewWriter(os.Stdout)
		return l, nil
	}

	l.f = f
	l.w = bufio.NewWriter(f)
	return l, nil
}

// EnterNewLine starts a new log line timestamped at seconds elapsed since
// the log was opened.
func (l *Log) EnterNewLine() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	elapsed := time.Since(l.start).Seconds()
	l.line = []string{strconv.FormatFloat(elapsed, 'f', l.precision, 64)}
}

// RegisterValues appends values to the current line.
func (l *Log) RegisterValues(values ...float64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range values {
		l.line = append(l.line, strconv.FormatFloat(v, 'f', l.precision, 64))
	}
}

// Flush writes the current line and resets it.
func (l *Log) Flush() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.line) == 0 {
		return
	}
	for i, field := range l.line {
		if i > 0 {
			l.w.WriteByte(' ')
		}
		l.w.WriteString(field)
	}
	l.w.WriteByte('\n')
	l.w.Flush()
	l.line = l.line[:0]
}

// Close flushes and releases any backing file.
func (l *Log) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	if l.f != nil {
		l.f.Close()
	}
}

package logbook

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kingrea/protest-validator/internal/logging"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook is the validator-facing journal of a review session: decisions,
// saves and warnings, readable back for the on-screen log panel.
type Logbook struct {
	path   string
	mu     sync.Mutex
	log    *zap.Logger
	closer io.Closer
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	logger, closer, err := logging.NewFile(path, false)
	if err != nil {
		return nil, err
	}
	return &Logbook{path: path, log: logger, closer: closer}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close flushes and releases the backing file.
func (l *Logbook) Close() error {
	if l == nil || l.log == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.log.Sync()
	err := l.closer.Close()
	l.log = nil
	return err
}

// Append writes a single entry to the logbook.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.log == nil {
		return
	}
	message = strings.TrimSpace(message)
	switch level {
	case LevelWarn:
		l.log.Warn(message)
	case LevelError:
		l.log.Error(message)
	default:
		l.log.Info(message)
	}
}

// Tail returns up to maxLines of the most recent entries along with the
// total number of entries in the file.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total == 0 {
		return nil, 0
	}
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}

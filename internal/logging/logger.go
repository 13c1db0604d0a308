package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/gtdvault/internal/config"
)

// Logger appends timestamped lines to .gtd/logs/gtd.log so background write
// failures can be inspected after the board has closed.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// New creates (or reuses) the log file for the given vault.
func New(vaultDir string) (*Logger, error) {
	logDir := filepath.Join(vaultDir, config.GTDDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "gtd.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{file: f, now: time.Now}, nil
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes a single timestamped line to the log file. Writes may come
// from several goroutines at once.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	line = strings.TrimRight(line, "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.file, "[%s] %s\n", l.now().Format(time.RFC3339), line)
}

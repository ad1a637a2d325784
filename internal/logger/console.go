// Package logger provides the leveled console logger used by the
// organize and index drivers. Output is timestamped, mutex-guarded, and
// colorized when the destination is a terminal. The engine packages
// stay silent; diagnostics belong to the drivers.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const (
	levelTrace int = iota
	levelDebug
	levelInfo
	levelWarn
	levelError
)

// Console writes leveled, timestamped log lines to a writer.
type Console struct {
	writer io.Writer
	level  int
	color  bool
	mu     sync.Mutex
}

// NewConsole creates a Console writing to w at the given level. Valid
// levels are trace, debug, info, warn, and error (case-insensitive);
// empty or unknown levels default to info. Color output is enabled when
// w is a terminal.
func NewConsole(w io.Writer, level string) *Console {
	return &Console{
		writer: w,
		level:  levelToInt(level),
		color:  isTerminal(w),
	}
}

// isTerminal reports whether w is a TTY that can take color codes.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func levelToInt(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// Tracef logs at trace level, the most verbose.
func (c *Console) Tracef(format string, args ...any) {
	c.logf(levelTrace, "TRACE", nil, format, args...)
}

// Debugf logs at debug level.
func (c *Console) Debugf(format string, args ...any) {
	c.logf(levelDebug, "DEBUG", color.New(color.FgCyan), format, args...)
}

// Infof logs at info level.
func (c *Console) Infof(format string, args ...any) {
	c.logf(levelInfo, "INFO", nil, format, args...)
}

// Warnf logs at warn level.
func (c *Console) Warnf(format string, args ...any) {
	c.logf(levelWarn, "WARN", color.New(color.FgYellow), format, args...)
}

// Errorf logs at error level.
func (c *Console) Errorf(format string, args ...any) {
	c.logf(levelError, "ERROR", color.New(color.FgRed), format, args...)
}

// logf writes "[HH:MM:SS] [LEVEL] message" if the level passes the
// configured filter.
func (c *Console) logf(level int, label string, col *color.Color, format string, args ...any) {
	if c.writer == nil || level < c.level {
		return
	}

	tag := fmt.Sprintf("[%s]", label)
	if c.color && col != nil {
		tag = col.Sprint(tag)
	}
	line := fmt.Sprintf("[%s] %s %s\n",
		time.Now().Format("15:04:05"), tag, fmt.Sprintf(format, args...))

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.writer, line)
}

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Environment variable to configure log file path. "-" logs to stderr.
const envLogPath = "EXTRACTIO_LOG"

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu            sync.Mutex
	std           *log.Logger
	logFile       *os.File
	minLevel      = LevelInfo
	isInitialized bool
)

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
// Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel drops messages below l.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// Init initializes the logger to write to the provided file path.
// An empty path selects extractio.log next to the executable.
// It creates parent directories if needed and opens the file in append mode.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()
	return initLocked(path)
}

func initLocked(path string) error {
	if isInitialized {
		return nil
	}
	if path == "-" {
		std = newStd(os.Stderr)
		isInitialized = true
		return nil
	}
	if path == "" {
		path = defaultPath()
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = f
	std = newStd(f)
	isInitialized = true
	return nil
}

// SetOutput redirects logging to w, replacing any file opened by Init.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	std = newStd(w)
	isInitialized = true
}

// Close closes the underlying log file, if open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLocked()
}

func closeLocked() error {
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// Debugf logs diagnostics that are off by default.
func Debugf(format string, args ...any) { write(LevelDebug, format, args...) }

// Infof logs informational messages.
func Infof(format string, args ...any) { write(LevelInfo, format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { write(LevelWarn, format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { write(LevelError, format, args...) }

func write(level Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}
	if std == nil {
		// Fallback: initialize with default if not already.
		_ = initLocked(os.Getenv(envLogPath))
	}
	if std != nil {
		std.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func newStd(w io.Writer) *log.Logger {
	return log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)
}

func defaultPath() string {
	// Default to the directory where the executable is located
	if exePath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exePath), "extractio.log")
	}
	return "./extractio.log"
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

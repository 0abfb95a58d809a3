// Package logging provides the leveled application logger.
//
// The terminal UI owns stdout, so log lines go to a rotating file under the
// user's config directory and, in headless mode, to stderr as well.
package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config value such as "info" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

const (
	FileName = "powernap.log"

	defaultMaxFileSize = 5 * 1024 * 1024 // 5MB
	defaultMaxBackups  = 5
)

// Config holds logger options.
type Config struct {
	Level Level
	// Path is the log file. Empty disables file output.
	Path string
	// Console, when set, receives every line in addition to the file.
	Console     io.Writer
	MaxFileSize int64 // in bytes, default 5MB
	MaxBackups  int   // number of rotated files to keep, default 5
}

// Logger is a leveled logger safe for concurrent use. A nil *Logger
// discards everything.
type Logger struct {
	mu          sync.Mutex
	level       Level
	logger      *log.Logger
	file        *os.File
	path        string
	maxFileSize int64
	maxBackups  int
}

// DefaultPath returns ~/.config/powernap/logs/powernap.log.
func DefaultPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "powernap", "logs", FileName), nil
}

// New creates a logger. If the log file cannot be opened the returned
// logger still writes to Console and the error is returned alongside it.
func New(cfg Config) (*Logger, error) {
	l := &Logger{
		level:       cfg.Level,
		maxFileSize: defaultMaxFileSize,
		maxBackups:  defaultMaxBackups,
	}
	if cfg.MaxFileSize > 0 {
		l.maxFileSize = cfg.MaxFileSize
	}
	if cfg.MaxBackups > 0 {
		l.maxBackups = cfg.MaxBackups
	}

	console := cfg.Console
	if console == nil {
		console = io.Discard
	}
	l.logger = log.New(console, "", 0)

	if cfg.Path == "" {
		return l, nil
	}
	if err := l.openFile(cfg.Path, cfg.Console); err != nil {
		return l, fmt.Errorf("open log file: %w", err)
	}
	return l, nil
}

// Discard returns a logger that writes nowhere.
func Discard() *Logger {
	return &Logger{level: LevelError + 1, logger: log.New(io.Discard, "", 0)}
}

func (l *Logger) openFile(path string, console io.Writer) error {
	dir := filepath.Dir(path)
	if isSymlink(dir) {
		return fmt.Errorf("log directory %s is a symlink", dir)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if isSymlink(path) {
		return fmt.Errorf("log file %s is a symlink", path)
	}

	l.rotateIfNeeded(path)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}

	var out io.Writer = file
	if console != nil {
		out = io.MultiWriter(console, file)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.file = file
	l.path = path
	l.logger = log.New(out, "", 0)
	return nil
}

// isSymlink reports whether path is a symbolic link. A missing path is not.
func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}

func (l *Logger) rotateIfNeeded(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Size() < l.maxFileSize {
		return
	}
	l.rotate(path)
}

// rotate compresses the current file into path.<timestamp>.gz and prunes
// backups beyond maxBackups.
func (l *Logger) rotate(path string) {
	rotated := fmt.Sprintf("%s.%s.gz", path, time.Now().Format("20060102-150405"))
	if err := compressFile(path, rotated); err != nil {
		os.Rename(path, strings.TrimSuffix(rotated, ".gz"))
	} else {
		os.Remove(path)
	}
	l.cleanupOldBackups(path)
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

func (l *Logger) cleanupOldBackups(path string) {
	matches, err := filepath.Glob(path + ".*")
	if err != nil || len(matches) <= l.maxBackups {
		return
	}

	// Oldest first.
	sort.Slice(matches, func(i, j int) bool {
		a, errA := os.Stat(matches[i])
		b, errB := os.Stat(matches[j])
		if errA != nil || errB != nil {
			return false
		}
		return a.ModTime().Before(b.ModTime())
	})

	for _, m := range matches[:len(matches)-l.maxBackups] {
		os.Remove(m)
	}
}

// Path returns the log file path, or "" when logging only to the console.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	caller := "???"
	if _, file, line, ok := runtime.Caller(2); ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.logger.Printf("%s [%s] %s: %s", time.Now().Format("2006/01/02 15:04:05"), level, caller, msg)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log(LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log(LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log(LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log(LevelError, msg, args...) }

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.logger = log.New(io.Discard, "", 0)
	return err
}

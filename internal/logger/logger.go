package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"smartdate/internal/config"

	"github.com/sirupsen/logrus"
)

// LogFiles maps the public level names to their files in the log directory.
var LogFiles = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// Logger provides leveled logging (debug/info/warning/error) to stdout and
// one file per level.
type Logger struct {
	entry  *logrus.Logger
	logDir string
	files  map[string]*os.File
	mu     sync.Mutex
}

// NewLogger creates a Logger from the configuration and exits if the log
// directory cannot be prepared.
func NewLogger(cfg *config.Config) *Logger {
	l, err := New(cfg.Log.Directory, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	return l
}

// New creates a Logger writing into dir at the given level name. An empty
// dir logs to stdout only. Unknown level names fall back to info.
func New(dir, level string) (*Logger, error) {
	l := &Logger{
		logDir: dir,
		files:  make(map[string]*os.File, len(LogFiles)),
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		for name, file := range LogFiles {
			handle, err := os.OpenFile(filepath.Join(dir, file), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				l.Close()
				return nil, fmt.Errorf("failed to open log file %s: %w", file, err)
			}
			l.files[name] = handle
		}
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	l.entry = logrus.New()
	l.entry.SetOutput(os.Stdout)
	l.entry.SetLevel(lvl)
	l.entry.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true, TimestampFormat: "2006/01/02 15:04:05"})
	l.entry.AddHook(&fileHook{logger: l})

	if err != nil {
		l.Warning("Unknown log level %q, using info", level)
	}
	return l, nil
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.entry.Debugf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

// Fatal writes an error-level entry and exits the process.
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.entry.Fatalf(format, v...)
}

// Path returns the file backing a level name ("info", "warning", "error").
func (l *Logger) Path(level string) (string, bool) {
	file, ok := LogFiles[level]
	if !ok || l.logDir == "" {
		return "", false
	}
	return filepath.Join(l.logDir, file), true
}

// CleanLogs truncates the file of the given level name.
func (l *Logger) CleanLogs(level string) error {
	l.mu.Lock()
	handle, ok := l.files[level]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("unknown log level %q", level)
	}
	err := handle.Truncate(0)
	l.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to truncate %s log: %w", level, err)
	}

	l.Info("File content has been cleared: %s", LogFiles[level])
	return nil
}

// Close closes the level files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for name, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(l.files, name)
	}
	return firstErr
}

// fileHook copies each entry into the file of its level.
type fileHook struct {
	logger *Logger
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	name := "info"
	switch entry.Level {
	case logrus.WarnLevel:
		name = "warning"
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		name = "error"
	}

	line, err := entry.Bytes()
	if err != nil {
		return err
	}

	h.logger.mu.Lock()
	defer h.logger.mu.Unlock()

	f, ok := h.logger.files[name]
	if !ok {
		return nil
	}
	_, err = f.Write(line)
	return err
}

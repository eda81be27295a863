// Package xlog provides the process-wide structured log sink used by every
// xfrase component. It wraps logrus behind a lazily-initialized singleton
// (spec.md §9 "Global state" design note): a single *logrus.Logger instance
// serializes all log lines, and Init/Shutdown are called once from the
// entry points of the server, lookup and index subcommands (check and
// config do not initialize it), never from the destructor of a
// statically-stored object.
package xlog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.Mutex
	log = logrus.New()
)

// Level mirrors the CLI surface's --log-level values (spec.md §6).
type Level string

const (
	LevelDebug    Level = "debug"
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelWarning:
		return logrus.WarnLevel
	case LevelError, LevelCritical:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Init configures the singleton logger's level and output sink. logFile
// empty means stderr. Safe to call once at process start; calling it again
// reconfigures the same singleton (used in tests).
func Init(level Level, logFile string) error {
	mu.Lock()
	defer mu.Unlock()

	log.SetLevel(level.logrusLevel())
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if logFile == "" {
		log.SetOutput(os.Stderr)
		return nil
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("xlog: open log file: %w", err)
	}
	log.SetOutput(f)
	return nil
}

// Shutdown flushes and releases the log sink. Must be called once, from
// the owning subcommand's main, on the way out.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()

	if closer, ok := log.Out.(io.Closer); ok {
		_ = closer.Close()
	}
	log.SetOutput(os.Stderr)
}

// Fields is a shorthand for logrus.Fields, used to attach structured
// context (accession, remote_addr, ...) instead of interpolating it
// into the message text.
type Fields = logrus.Fields

func entry() *logrus.Entry { return logrus.NewEntry(log) }

func Debug(msg string, fields Fields) { entry().WithFields(fields).Debug(msg) }
func Info(msg string, fields Fields)  { entry().WithFields(fields).Info(msg) }
func Warn(msg string, fields Fields)  { entry().WithFields(fields).Warn(msg) }
func Error(msg string, fields Fields) { entry().WithFields(fields).Error(msg) }

// Critical logs at error severity with a critical=true field rather than
// terminating the process — logrus's own Fatal level calls os.Exit, which
// would be wrong for a per-connection or per-request failure.
func Critical(msg string, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	fields["critical"] = true
	entry().WithFields(fields).Error(msg)
}

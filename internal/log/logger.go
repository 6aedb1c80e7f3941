// Package log provides a global logger with configurable logging level. Output is formatted by
// logrus; the package keeps a printf-style API so call sites stay terse.

package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Level int

const (
	LevelNone    Level = iota // Disables logging.
	LevelError                // Logs anomalies that are not expected to occur during normal use.
	LevelWarning              // Logs anomalies that are expected to occur occasionally during normal use, such as failed connections.
	LevelInfo                 // Logs major events (scan started, session opened).
	LevelDebug                // Logs detailed IO
)

var globalLogLevel Level
var logMutex sync.Mutex

var logger = newLogger(os.Stderr)

var logrusLevels = map[Level]logrus.Level{
	LevelDebug:   logrus.DebugLevel,
	LevelInfo:    logrus.InfoLevel,
	LevelWarning: logrus.WarnLevel,
	LevelError:   logrus.ErrorLevel,
}

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return l
}

func SetLevel(level Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	globalLogLevel = level
}

// SetOutput redirects log output to w.
func SetOutput(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logger.SetOutput(w)
}

func logLevel() Level {
	logMutex.Lock()
	defer logMutex.Unlock()
	return globalLogLevel
}

func log(level Level, format string, a ...interface{}) {
	if level == LevelNone || level > logLevel() {
		return
	}
	logger.Logf(logrusLevels[level], format, a...)
}

func Debug(format string, a ...interface{}) {
	log(LevelDebug, format, a...)
}
func Info(format string, a ...interface{}) {
	log(LevelInfo, format, a...)
}
func Warning(format string, a ...interface{}) {
	log(LevelWarning, format, a...)
}
func Error(format string, a ...interface{}) {
	log(LevelError, format, a...)
}

// Package util provides low-level helpers shared by all other packages.
package util

import (
	"bytes"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// Logger writes levelled diagnostics to stderr with optional timestamps
// and level prefixes.  Probe results never go through the logger; they
// are rendered on stdout by the reporter.  A nil *Logger discards
// everything.
type Logger struct {
	level LogLevel
	base  *logrus.Logger
	fmt   *prefixFormatter
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
// Timestamps are enabled in debug mode and when stderr is redirected.
func NewLogger(verbosity int) *Logger {
	f := &prefixFormatter{
		timestamps: verbosity >= int(LogDebug) || !term.IsTerminal(int(os.Stderr.Fd())),
	}
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(f)
	base.SetLevel(logrus.TraceLevel) // filtering happens on our own levels

	return &Logger{level: LogLevel(verbosity), base: base, fmt: f}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	if l == nil {
		return
	}
	l.fmt.timestamps = on
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	if l == nil {
		return
	}
	l.base.SetOutput(w)
}

func (l *Logger) enabled(at LogLevel) bool { return l != nil && l.level >= at }

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	if l.enabled(LogNormal) {
		l.base.Infof(format, args...)
	}
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.enabled(LogNormal) {
		l.base.Warnf(format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.enabled(LogVerbose) {
		l.base.Debugf(format, args...)
	}
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.enabled(LogDebug) {
		l.base.Tracef(format, args...)
	}
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.base.Errorf(format, args...)
}

// ── formatter ────────────────────────────────────────────────────────

// prefixFormatter renders "[LVL] msg" or "15:04:05.000 [LVL] msg".
type prefixFormatter struct {
	timestamps bool
}

var levelTags = map[logrus.Level]string{
	logrus.PanicLevel: "ERR",
	logrus.FatalLevel: "ERR",
	logrus.ErrorLevel: "ERR",
	logrus.WarnLevel:  "WRN",
	logrus.InfoLevel:  "INF",
	logrus.DebugLevel: "VRB",
	logrus.TraceLevel: "DBG",
}

func (f *prefixFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	if f.timestamps {
		b.WriteString(e.Time.Format("15:04:05.000"))
		b.WriteByte(' ')
	}
	b.WriteByte('[')
	b.WriteString(levelTags[e.Level])
	b.WriteString("] ")
	b.WriteString(e.Message)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

package logging

import (
	"io"
	"strings"

	"github.com/labstack/gommon/log"
)

const header = `${time_rfc3339} ${level} ${prefix}`

// Logger is the subset of *log.Logger the batch stages write to.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// New creates a logger for a component. See SetLevel for level names.
func New(prefix string, level string) *log.Logger {
	l := log.New(prefix)
	l.SetHeader(header)
	SetLevel(l, level)
	return l
}

// Null discards everything.
func Null() *log.Logger {
	l := log.New("")
	l.SetOutput(io.Discard)
	l.SetLevel(log.OFF)
	return l
}

// SetLevel sets level by name: debug, info, warn, error or off.
//
// Empty means info. Unknown names fall back to warn.
func SetLevel(l *log.Logger, level string) {
	switch strings.ToLower(level) {
	case "debug":
		l.SetLevel(log.DEBUG)
	case "info", "":
		l.SetLevel(log.INFO)
	case "warn":
		l.SetLevel(log.WARN)
	case "error":
		l.SetLevel(log.ERROR)
	case "off":
		l.SetLevel(log.OFF)
	default:
		l.SetLevel(log.WARN)
		l.Warnf("unknown loglevel: %s . fall-backed to warn", level)
	}
}

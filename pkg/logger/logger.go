package logger

import (
	"log"
)

// Levels run from most to least verbose. SILENCE drops everything; tests
// run with it so assertion output stays readable.
const (
	DEBUG int = iota
	INFO
	WARNING
	ERROR
	SILENCE
)

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// stdLogger writes tagged lines through the standard log package. It is
// the only implementation the service ships; anything fancier plugs in
// behind the Logger interface.
type stdLogger struct {
	level int
}

func NewLogger(level int) *stdLogger {
	return &stdLogger{level: level}
}

func (l *stdLogger) logf(level int, tag, format string, args ...any) {
	if l.level > level {
		return
	}

	log.Printf(tag+" "+format+"\n", args...)
}

func (l *stdLogger) Debugf(format string, args ...any) {
	l.logf(DEBUG, "[DEBUG]", format, args...)
}

func (l *stdLogger) Infof(format string, args ...any) {
	l.logf(INFO, "[INFO]", format, args...)
}

func (l *stdLogger) Warnf(format string, args ...any) {
	l.logf(WARNING, "[WARN]", format, args...)
}

func (l *stdLogger) Errorf(format string, args ...any) {
	l.logf(ERROR, "[ERROR]", format, args...)
}

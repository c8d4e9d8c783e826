package lib

import "testing"

// Logger receives the debugging trace of a backend or of a protocol
// exchange. The standard library *log.Logger satisfies it.
type Logger interface {
	Print(a ...any)
	Println(a ...any)
	Printf(format string, a ...any)
}

// NoLog discards everything sent to it.
type NoLog struct{}

func (l *NoLog) Print(a ...any)                 {}
func (l *NoLog) Println(a ...any)               {}
func (l *NoLog) Printf(format string, a ...any) {}

// TestLogger sends the trace to the test output, each line marked with a
// prefix when several of them run side by side.
type TestLogger struct {
	tb     testing.TB
	prefix string
}

func NewTestLogger(tb testing.TB, prefix string) *TestLogger {
	return &TestLogger{
		tb:     tb,
		prefix: prefix,
	}
}

func (l *TestLogger) Print(a ...any) {
	if l.prefix == "" {
		l.tb.Log(a...)
		return
	}
	l.tb.Log(append([]any{l.prefix + ":"}, a...)...)
}

func (l *TestLogger) Println(a ...any) {
	l.Print(a...)
}

func (l *TestLogger) Printf(format string, a ...any) {
	if l.prefix != "" {
		format = l.prefix + ": " + format
	}
	l.tb.Logf(format, a...)
}

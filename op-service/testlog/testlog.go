// Package testlog provides loggers that write to the unit test log.
package testlog

import (
	"bytes"
	"log/slog"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// Testing is the subset of testing.TB the loggers need.
type Testing interface {
	Logf(format string, args ...any)
	Helper()
	Name() string
}

// tWriter forwards complete lines to t.Logf.
type tWriter struct {
	t   Testing
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *tWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			w.buf.Write(line)
			break
		}
		w.t.Logf("%s", bytes.TrimRight(line, "\n"))
	}
	return len(p), nil
}

func newTerminalHandler(t Testing, level slog.Level) slog.Handler {
	useColor := os.Getenv("GASLESS_TESTLOG_DISABLE_COLOR") != "true"
	return log.NewTerminalHandlerWithLevel(&tWriter{t: t}, level, useColor)
}

// Logger returns a logger which logs to the unit test log of t.
func Logger(t Testing, level slog.Level) log.Logger {
	return log.NewLogger(newTerminalHandler(t, level))
}

// CaptureLogger returns a logger that logs to t and records every record it handles.
func CaptureLogger(t Testing, level slog.Level) (log.Logger, *CapturingHandler) {
	h := &CapturingHandler{handler: newTerminalHandler(t, level), Logs: new([]*CapturedRecord)}
	return log.NewLogger(h), h
}

package testlog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// CapturedRecord is a log record together with the attributes inherited from the logger that emitted it.
type CapturedRecord struct {
	inherited []slog.Attr
	*slog.Record
}

// Attrs calls f on each Attr of the record, then on the inherited ones.
// Iteration stops if f returns false.
func (r *CapturedRecord) Attrs(f func(slog.Attr) bool) {
	searching := true
	r.Record.Attrs(func(a slog.Attr) bool {
		searching = f(a)
		return searching
	})
	if !searching {
		return
	}
	for _, a := range r.inherited {
		if !f(a) {
			return
		}
	}
}

func (r *CapturedRecord) AttrValue(name string) (v any) {
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == name {
			v = a.Value.Any()
			return false
		}
		return true
	})
	return
}

// CapturingHandler captures all log records and forwards them to a delegate.
type CapturingHandler struct {
	handler slog.Handler
	mu      sync.Mutex
	Logs    *[]*CapturedRecord // shared among derived handlers
	attrs   []slog.Attr
	parent  *CapturingHandler
}

var _ slog.Handler = (*CapturingHandler)(nil)

func (c *CapturingHandler) root() *CapturingHandler {
	if c.parent != nil {
		return c.parent.root()
	}
	return c
}

func (c *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	root := c.root()
	root.mu.Lock()
	*c.Logs = append(*c.Logs, &CapturedRecord{inherited: c.attrs, Record: &r})
	root.mu.Unlock()
	return c.handler.Handle(ctx, r)
}

func (c *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CapturingHandler{
		handler: c.handler.WithAttrs(attrs),
		Logs:    c.Logs,
		attrs:   append(append([]slog.Attr{}, c.attrs...), attrs...),
		parent:  c,
	}
}

func (c *CapturingHandler) WithGroup(name string) slog.Handler {
	return &CapturingHandler{
		handler: c.handler.WithGroup(name),
		Logs:    c.Logs,
		attrs:   c.attrs,
		parent:  c,
	}
}

func (c *CapturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return c.handler.Enabled(ctx, level)
}

func (c *CapturingHandler) Clear() {
	root := c.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	*c.Logs = (*c.Logs)[:0]
}

type LogFilter func(record *CapturedRecord) bool

func NewLevelFilter(level slog.Level) LogFilter {
	return func(r *CapturedRecord) bool {
		return r.Record.Level == level
	}
}

func NewMessageFilter(message string) LogFilter {
	return func(r *CapturedRecord) bool {
		return r.Record.Message == message
	}
}

func NewMessageContainsFilter(message string) LogFilter {
	return func(r *CapturedRecord) bool {
		return strings.Contains(r.Record.Message, message)
	}
}

func NewAttributesFilter(key, value string) LogFilter {
	return func(r *CapturedRecord) bool {
		found := false
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == key && a.Value.String() == value {
				found = true
				return false
			}
			return true
		})
		return found
	}
}

func NewErrContainsFilter(errMessage string) LogFilter {
	return func(r *CapturedRecord) bool {
		err, ok := r.AttrValue("err").(error)
		return ok && strings.Contains(err.Error(), errMessage)
	}
}

func (c *CapturingHandler) FindLog(filters ...LogFilter) *CapturedRecord {
	if logs := c.FindLogs(filters...); len(logs) > 0 {
		return logs[0]
	}
	return nil
}

func (c *CapturingHandler) FindLogs(filters ...LogFilter) []*CapturedRecord {
	root := c.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	var logs []*CapturedRecord
	for _, record := range *c.Logs {
		match := true
		for _, filter := range filters {
			if !filter(record) {
				match = false
				break
			}
		}
		if match {
			logs = append(logs, record)
		}
	}
	return logs
}

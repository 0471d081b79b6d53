package logger

import (
	"context"
	"sync"
)

type contextKey struct{}

var loggerKey = contextKey{}

// defaultLogger is used when no logger is found in context
var (
	defaultLogger   *Logger
	defaultLoggerMu sync.RWMutex
)

func init() {
	defaultLogger = New(nil)
}

// GetDefault returns the process-wide fallback logger.
func GetDefault() *Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// SetDefaultLogger replaces the fallback logger. Nil is ignored.
// Parameters:
//   - l: logger to set as default.
// Returns: none.
func SetDefaultLogger(l *Logger) {
	if l == nil {
		return
	}
	defaultLoggerMu.Lock()
	defaultLogger = l
	defaultLoggerMu.Unlock()
}

// WithContext returns a new context carrying l.
// Parameters:
//   - ctx: existing context to wrap.
// Returns:
//   - context.Context: context containing the logger.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger carried by ctx, or the default logger.
// It never returns nil.
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*Logger); ok {
			return l
		}
	}
	return GetDefault()
}

// Attached reports whether ctx carries its own logger.
func Attached(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	_, ok := ctx.Value(loggerKey).(*Logger)
	return ok
}

// Ensure returns ctx unchanged when it already carries a logger, otherwise a
// context carrying fallback. A nil fallback leaves ctx unchanged.
func Ensure(ctx context.Context, fallback *Logger) context.Context {
	if fallback == nil || Attached(ctx) {
		return ctx
	}
	return fallback.WithContext(ctx)
}

// WithFields returns a context whose logger carries the extra fields.
func WithFields(ctx context.Context, fields Fields) context.Context {
	return FromContext(ctx).WithFields(fields).WithContext(ctx)
}

// SetSyncID tags the context logger with a sync run ID.
func SetSyncID(ctx context.Context, id string) context.Context {
	return WithFields(ctx, Fields{FieldSyncID: id})
}

// SetSourceID tags the context logger with a content source ID.
func SetSourceID(ctx context.Context, id string) context.Context {
	return WithFields(ctx, Fields{FieldSourceID: id})
}

// SetItemID tags the context logger with a content item ID.
func SetItemID(ctx context.Context, id string) context.Context {
	return WithFields(ctx, Fields{FieldItemID: id})
}

// FieldString returns the string value of key on the context logger, or "".
func FieldString(ctx context.Context, key string) string {
	s, _ := FromContext(ctx).Data[key].(string)
	return s
}

package mock

import (
	"fmt"
	"sync"

	"trendgrid/internal/core"
)

// Entry is one logged line with the fields bound through WithField
type Entry struct {
	Level  string
	Msg    string
	Fields []string // "key=value", outermost scope first
}

// Logger is an ILogger that keeps messages in memory.
// Loggers derived with WithField share the parent's entries.
type Logger struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  []string
}

func NewLogger() *Logger {
	return &Logger{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (l *Logger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, Entry{Level: level, Msg: msg, Fields: l.fields})
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.record("DEBUG", msg) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.record("INFO", msg) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.record("WARN", msg) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.record("ERROR", msg) }
func (l *Logger) Fatal(msg string, fields ...interface{}) { l.record("FATAL", msg) }

func (l *Logger) WithField(key string, value interface{}) core.ILogger {
	return l.with(fmt.Sprintf("%s=%v", key, value))
}

func (l *Logger) WithFields(fields map[string]interface{}) core.ILogger {
	kv := make([]string, 0, len(fields))
	for k, v := range fields {
		kv = append(kv, fmt.Sprintf("%s=%v", k, v))
	}
	return l.with(kv...)
}

func (l *Logger) with(kv ...string) *Logger {
	fields := make([]string, 0, len(l.fields)+len(kv))
	fields = append(fields, l.fields...)
	fields = append(fields, kv...)
	return &Logger{mu: l.mu, entries: l.entries, fields: fields}
}

// Entries returns "LEVEL message" lines logged so far
func (l *Logger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(*l.entries))
	for i, e := range *l.entries {
		out[i] = fmt.Sprintf("%s %s", e.Level, e.Msg)
	}
	return out
}

// Records returns the logged entries with their bound fields
func (l *Logger) Records() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(*l.entries))
	copy(out, *l.entries)
	return out
}

// Contains reports whether a line with the level and message was logged
func (l *Logger) Contains(level, msg string) bool {
	want := fmt.Sprintf("%s %s", level, msg)
	for _, e := range l.Entries() {
		if e == want {
			return true
		}
	}
	return false
}

package logger

import (
	"strings"
	"sync"
)

// Entry is one captured log call
type Entry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// entryLog is shared by a TestLogger and every logger derived from it
type entryLog struct {
	mu      sync.Mutex
	entries []Entry
}

// TestLogger records log calls in memory. Loggers returned by WithField,
// WithFields and WithError write to the same record with their bound
// fields merged in, so a scraper that derives a run-scoped logger can still
// be inspected through the one passed in.
type TestLogger struct {
	record *entryLog
	fields map[string]interface{}
	err    error
}

// NewTestLogger creates an empty TestLogger
func NewTestLogger() *TestLogger {
	return &TestLogger{record: &entryLog{}}
}

func (l *TestLogger) derive(fields map[string]interface{}, err error) *TestLogger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	if err == nil {
		err = l.err
	}
	return &TestLogger{record: l.record, fields: merged, err: err}
}

func (l *TestLogger) add(level, msg string, fields map[string]interface{}) {
	entry := l.derive(fields, nil)

	l.record.mu.Lock()
	defer l.record.mu.Unlock()
	l.record.entries = append(l.record.entries, Entry{
		Level:   level,
		Message: msg,
		Fields:  entry.fields,
		Error:   entry.err,
	})
}

func (l *TestLogger) Debug(msg string) { l.add("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.add("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.add("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.add("ERROR", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.add("DEBUG", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.add("INFO", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.add("WARN", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.add("ERROR", msg, fields)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.derive(map[string]interface{}{key: value}, nil)
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return l.derive(fields, nil)
}

func (l *TestLogger) WithError(err error) Logger {
	return l.derive(nil, err)
}

// Entries returns a copy of everything logged so far
func (l *TestLogger) Entries() []Entry {
	l.record.mu.Lock()
	defer l.record.mu.Unlock()
	return append([]Entry(nil), l.record.entries...)
}

// EntriesAt returns the entries logged at level ("DEBUG", "INFO", ...)
func (l *TestLogger) EntriesAt(level string) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// FindEntry returns the first entry whose message is msg, or nil
func (l *TestLogger) FindEntry(msg string) *Entry {
	for _, e := range l.Entries() {
		if e.Message == msg {
			e := e
			return &e
		}
	}
	return nil
}

// HasMessage reports whether msg was logged verbatim
func (l *TestLogger) HasMessage(msg string) bool {
	return l.FindEntry(msg) != nil
}

// HasMessageContaining reports whether any logged message contains text
func (l *TestLogger) HasMessageContaining(text string) bool {
	for _, e := range l.Entries() {
		if strings.Contains(e.Message, text) {
			return true
		}
	}
	return false
}

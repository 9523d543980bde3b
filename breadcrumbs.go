package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"arec/internal/dblib"
	"arec/internal/record"
)

// BreadcrumbType represents the type of breadcrumb event
type BreadcrumbType string

const (
	BreadcrumbCommand  BreadcrumbType = "command"
	BreadcrumbDatabase BreadcrumbType = "database"
)

// BreadcrumbEntry represents a single breadcrumb event
type BreadcrumbEntry struct {
	Type      BreadcrumbType
	Message   string
	Data      map[string]any
	Timestamp time.Time
	Level     sentry.Level
}

// BreadcrumbBuffer is a thread-safe circular buffer of breadcrumbs. It is a
// record.Listener, so registering it on a record's events traces every
// statement the record runs.
type BreadcrumbBuffer struct {
	entries      []BreadcrumbEntry
	maxSize      int
	currentIndex int
	count        int
	mu           sync.Mutex
	now          func() time.Time
}

// NewBreadcrumbBuffer creates a new breadcrumb buffer with the given max size
func NewBreadcrumbBuffer(maxSize int) *BreadcrumbBuffer {
	return &BreadcrumbBuffer{
		entries: make([]BreadcrumbEntry, maxSize),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (b *BreadcrumbBuffer) addEntry(entry BreadcrumbEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.currentIndex] = entry
	b.currentIndex = (b.currentIndex + 1) % b.maxSize
	if b.count < b.maxSize {
		b.count++
	}
}

// RecordCommand records the CLI command being run.
func (b *BreadcrumbBuffer) RecordCommand(name string, args []string) {
	b.addEntry(BreadcrumbEntry{
		Type:      BreadcrumbCommand,
		Message:   fmt.Sprintf("Command: %s", name),
		Timestamp: b.now(),
		Level:     sentry.LevelInfo,
		Data: map[string]any{
			"args": len(args),
		},
	})
}

// HandleEvent records a record lifecycle event. Only names are kept (event,
// table and columns); field values never leave the process.
func (b *BreadcrumbBuffer) HandleEvent(ev *record.Event) {
	data := map[string]any{
		"event": ev.Name,
	}
	if ev.Record != nil {
		data["table"] = ev.Record.TableName().String()
	}
	if ev.Statement != nil {
		data["statement"] = ev.Statement.Type().String()
		written, filtered := statementColumns(ev.Statement)
		if len(written) > 0 {
			data["columns"] = written
		}
		if len(filtered) > 0 {
			data["where"] = filtered
		}
	}
	if ev.Result != nil {
		data["rows"] = len(ev.Result)
	}
	b.addEntry(BreadcrumbEntry{
		Type:      BreadcrumbDatabase,
		Message:   fmt.Sprintf("DB: %s %v", ev.Name, data["table"]),
		Timestamp: b.now(),
		Level:     sentry.LevelInfo,
		Data:      data,
	})
}

// statementColumns returns the columns stmt writes and the columns it filters on.
func statementColumns(stmt dblib.Statement) (written, filtered []string) {
	var preds []dblib.Predicate
	switch s := stmt.(type) {
	case *dblib.Select:
		preds = s.Predicates()
	case *dblib.Insert:
		written = s.ValuesCopy().Columns()
	case *dblib.Update:
		written = s.SetCopy().Columns()
		preds = s.Predicates()
	case *dblib.Delete:
		preds = s.Predicates()
	}
	for _, p := range preds {
		filtered = append(filtered, p.Column)
	}
	return written, filtered
}

// snapshot returns the buffered entries in chronological order.
func (b *BreadcrumbBuffer) snapshot() []BreadcrumbEntry {
	entries := make([]BreadcrumbEntry, 0, b.count)
	if b.count < b.maxSize {
		entries = append(entries, b.entries[:b.count]...)
	} else {
		for i := 0; i < b.maxSize; i++ {
			entries = append(entries, b.entries[(b.currentIndex+i)%b.maxSize])
		}
	}
	return entries
}

// aggregate collapses consecutive entries with the same type and message
// into one, adding a count.
func aggregate(entries []BreadcrumbEntry) []*sentry.Breadcrumb {
	var out []*sentry.Breadcrumb
	i := 0
	for i < len(entries) {
		current := entries[i]
		count := 1

		for i+count < len(entries) && entries[i+count].Type == current.Type &&
			entries[i+count].Message == current.Message {
			count++
		}

		message := current.Message
		data := current.Data
		if count > 1 {
			message = fmt.Sprintf("%s (x%d)", current.Message, count)
			data = make(map[string]any, len(current.Data)+1)
			for k, v := range current.Data {
				data[k] = v
			}
			data["count"] = count
		}

		out = append(out, &sentry.Breadcrumb{
			Message:   message,
			Category:  string(current.Type),
			Data:      data,
			Timestamp: current.Timestamp,
			Level:     current.Level,
		})

		i += count
	}
	return out
}

// Flush sends breadcrumbs to Sentry and empties the buffer.
func (b *BreadcrumbBuffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return
	}

	sentryBreadcrumbs := aggregate(b.snapshot())
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		for _, bc := range sentryBreadcrumbs {
			scope.AddBreadcrumb(bc, b.maxSize)
		}
	})

	b.entries = make([]BreadcrumbEntry, b.maxSize)
	b.currentIndex = 0
	b.count = 0
}

// Global breadcrumb buffer instance
var breadcrumbs *BreadcrumbBuffer

// InitBreadcrumbs initializes the global breadcrumb buffer
func InitBreadcrumbs(maxSize int) {
	breadcrumbs = NewBreadcrumbBuffer(maxSize)
}

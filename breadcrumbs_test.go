package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arec/internal/dblib"
	"arec/internal/record"
)

type rowsAdapter struct{ rows []dblib.Fields }

func (a rowsAdapter) Dialect() dblib.DatabaseType { return dblib.SQLite }

func (a rowsAdapter) Execute(context.Context, dblib.Statement) (*dblib.Result, error) {
	return &dblib.Result{Rows: a.rows, AffectedRows: 1}, nil
}

func TestBreadcrumbsRecordEvents(t *testing.T) {
	b := NewBreadcrumbBuffer(10)
	rec := record.New(
		record.WithAdapter(rowsAdapter{rows: []dblib.Fields{{"id": dblib.Int(1), "secret": dblib.String("pw")}}}),
		record.WithTableName("users"),
	)
	rec.Events().OnAny(b)

	found, err := rec.Find(context.Background(), record.All())
	require.NoError(t, err)
	require.Len(t, found, 1)

	entries := b.snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, BreadcrumbDatabase, entries[0].Type)
	assert.Equal(t, "DB: find.pre users", entries[0].Message)
	assert.Equal(t, "SELECT", entries[0].Data["statement"])
	assert.Equal(t, 1, entries[1].Data["rows"])
	for _, e := range entries {
		for _, v := range e.Data {
			assert.NotEqual(t, "pw", v, "field values must not be recorded")
		}
	}
}

func TestBreadcrumbsWrapAround(t *testing.T) {
	b := NewBreadcrumbBuffer(3)
	for _, name := range []string{"a", "b", "c", "d"} {
		b.RecordCommand(name, nil)
	}

	entries := b.snapshot()
	require.Len(t, entries, 3)
	assert.Equal(t, "Command: b", entries[0].Message)
	assert.Equal(t, "Command: d", entries[2].Message)
}

func TestBreadcrumbsAggregate(t *testing.T) {
	now := time.Now()
	entries := []BreadcrumbEntry{
		{Type: BreadcrumbDatabase, Message: "DB: find.pre users", Timestamp: now, Data: map[string]any{"event": "find.pre"}},
		{Type: BreadcrumbDatabase, Message: "DB: find.pre users", Timestamp: now},
		{Type: BreadcrumbCommand, Message: "Command: find", Timestamp: now},
	}

	got := aggregate(entries)
	require.Len(t, got, 2)
	assert.Equal(t, "DB: find.pre users (x2)", got[0].Message)
	assert.Equal(t, 2, got[0].Data["count"])
	assert.Equal(t, "find.pre", got[0].Data["event"])
	assert.Nil(t, entries[0].Data["count"], "aggregation must not modify the buffered entry")
	assert.Equal(t, "command", got[1].Category)
}

func TestBreadcrumbsFlushEmpties(t *testing.T) {
	b := NewBreadcrumbBuffer(3)
	b.RecordCommand("get", []string{"db", "users", "1"})
	b.Flush()
	assert.Empty(t, b.snapshot())
}

func TestBreadcrumbsRecordColumnsNotValues(t *testing.T) {
	b := NewBreadcrumbBuffer(10)
	proto := record.New(
		record.WithAdapter(rowsAdapter{rows: []dblib.Fields{{"id": dblib.Int(1), "secret": dblib.String("pw")}}}),
		record.WithTableName("users"),
	)
	found, err := proto.FindByPk(context.Background(), dblib.Int(1))
	require.NoError(t, err)
	require.NotNil(t, found)

	found.Events().OnAny(b)
	found.Set("secret", dblib.String("hunter2"))
	_, err = found.Save(context.Background())
	require.NoError(t, err)

	entries := b.snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, "DB: save.pre users", entries[0].Message)
	assert.NotContains(t, entries[0].Data, "statement")
	assert.Equal(t, "UPDATE", entries[1].Data["statement"])
	assert.Equal(t, []string{"id", "secret"}, entries[1].Data["columns"])
	assert.Equal(t, []string{"id"}, entries[1].Data["where"])
}

func TestStatementColumns(t *testing.T) {
	s := dblib.NewSQL(dblib.SQLite, dblib.TableIdentifier{Name: "users"})

	written, filtered := statementColumns(s.Insert().Values(dblib.Fields{"name": dblib.String("Ann")}))
	assert.Equal(t, []string{"name"}, written)
	assert.Nil(t, filtered)

	written, filtered = statementColumns(s.Select().Where("org", dblib.Int(1)).Where("login", dblib.String("ann")))
	assert.Nil(t, written)
	assert.Equal(t, []string{"org", "login"}, filtered)
}

package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"arec/internal/dblib"
	"arec/internal/record"
)

// setupCLI creates a SQLite database with a users table and a config file
// naming it "app". It returns a function running the CLI with that config.
func setupCLI(t *testing.T) func(args ...string) (string, error) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	dbPath := filepath.Join(dir, "app.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile,
		[]byte(fmt.Sprintf("databases:\n  app:\n    dbname: %q\n", dbPath)), 0o644))

	return func(args ...string) (string, error) {
		var buf bytes.Buffer
		out = &buf
		t.Cleanup(func() { out = os.Stdout })
		rootCmd.SetArgs(append([]string{"--config", configFile}, args...))
		err := rootCmd.Execute()
		return buf.String(), err
	}
}

func TestCLICrud(t *testing.T) {
	run := setupCLI(t)

	got, err := run("insert", "app", "users", "name=Ann", "age=30")
	require.NoError(t, err)
	assert.Contains(t, got, "Ann")
	assert.Contains(t, got, "(1 row)")

	_, err = run("insert", "app", "users", "name=Bob", "age=25")
	require.NoError(t, err)

	got, err = run("find", "app", "users", "name=Ann")
	require.NoError(t, err)
	assert.Contains(t, got, "(1 row)")
	assert.NotContains(t, got, "Bob")

	got, err = run("update", "app", "users", "1", "age=31")
	require.NoError(t, err)
	assert.Contains(t, got, "31")

	got, err = run("get", "app", "users", "1")
	require.NoError(t, err)
	assert.Contains(t, got, "31")

	got, err = run("delete", "app", "users", "1")
	require.NoError(t, err)
	assert.Equal(t, "deleted 1 row(s)\n", got)

	got, err = run("get", "app", "users", "1")
	require.NoError(t, err)
	assert.Equal(t, "(0 rows)\n", got)

	_, err = run("update", "app", "users", "1", "age=40")
	assert.ErrorContains(t, err, "no row in users")
}

func TestCLIUnknownDatabaseSuggests(t *testing.T) {
	run := setupCLI(t)

	_, err := run("get", "app2.db", "users", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Did you mean app?")
}

func TestCLIPreview(t *testing.T) {
	run := setupCLI(t)

	got, err := run("preview", "users", "delete", "id=7")
	require.NoError(t, err)
	assert.Contains(t, got, "DELETE FROM users WHERE id = 7;")

	_, err = run("preview", "users", "delete")
	assert.Error(t, err, "a delete without a filter is refused")
}

func TestStatementLoggerUsesRecordDialect(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	rec := record.New(record.WithAdapter(rowsAdapter{}), record.WithTableName("users"))
	rec.Events().OnAny(statementLogger(zap.New(core)))

	rec.ExchangeArray(dblib.Fields{"id": dblib.Int(1), "Full Name": dblib.String("Ann")})
	_, err := rec.Save(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("record event").All()
	require.Len(t, entries, 1, "save.pre carries no statement")
	assert.Equal(t, "save.post", entries[0].ContextMap()["event"])
	assert.Equal(t, `INSERT INTO users ("Full Name", id) VALUES ('Ann', 1) RETURNING id`, entries[0].ContextMap()["sql"])
}

func TestStatementLoggerSkipsAboveDebug(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rec := record.New(record.WithAdapter(rowsAdapter{}), record.WithTableName("users"))
	rec.Events().OnAny(statementLogger(zap.New(core)))

	_, err := rec.Find(context.Background(), record.All())
	require.NoError(t, err)
	assert.Zero(t, logs.Len())
}

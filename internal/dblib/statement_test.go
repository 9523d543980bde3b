package dblib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPerDialect(t *testing.T) {
	table := TableIdentifier{Schema: "crm", Name: "order"}
	row := Fields{"name": String("Ann"), "User Id": Int(7)}

	tests := []struct {
		name    string
		dbType  DatabaseType
		stmt    func(*SQL) Statement
		want    string
		wantLen int
	}{
		{
			name:    "sqlite select",
			dbType:  SQLite,
			stmt:    func(s *SQL) Statement { return s.Select().WhereFields(row) },
			want:    `SELECT * FROM crm."order" WHERE "User Id" = ? AND name = ?`,
			wantLen: 2,
		},
		{
			name:    "postgres select",
			dbType:  PostgreSQL,
			stmt:    func(s *SQL) Statement { return s.Select().WhereFields(row) },
			want:    `SELECT * FROM crm."order" WHERE "User Id" = $1 AND name = $2`,
			wantLen: 2,
		},
		{
			name:    "mysql select",
			dbType:  MySQL,
			stmt:    func(s *SQL) Statement { return s.Select().Columns("name", "select").WhereFields(row) },
			want:    "SELECT name, `select` FROM crm.`order` WHERE `User Id` = ? AND name = ?",
			wantLen: 2,
		},
		{
			name:   "mysql offset without limit",
			dbType: MySQL,
			stmt:   func(s *SQL) Statement { return s.Select().Offset(10) },
			want:   "SELECT * FROM crm.`order` LIMIT 18446744073709551615 OFFSET 10",
		},
		{
			name:    "postgres insert returning",
			dbType:  PostgreSQL,
			stmt:    func(s *SQL) Statement { return s.Insert().Values(row).Returning("id") },
			want:    `INSERT INTO crm."order" ("User Id", name) VALUES ($1, $2) RETURNING id`,
			wantLen: 2,
		},
		{
			name:    "mysql insert ignores returning",
			dbType:  MySQL,
			stmt:    func(s *SQL) Statement { return s.Insert().Values(row).Returning("id") },
			want:    "INSERT INTO crm.`order` (`User Id`, name) VALUES (?, ?)",
			wantLen: 2,
		},
		{
			name:   "sqlite insert default values",
			dbType: SQLite,
			stmt:   func(s *SQL) Statement { return s.Insert() },
			want:   `INSERT INTO crm."order" DEFAULT VALUES`,
		},
		{
			name:   "mysql insert default values",
			dbType: MySQL,
			stmt:   func(s *SQL) Statement { return s.Insert() },
			want:   "INSERT INTO crm.`order` () VALUES ()",
		},
		{
			name:   "postgres update",
			dbType: PostgreSQL,
			stmt: func(s *SQL) Statement {
				return s.Update().Set(Fields{"name": String("Bob")}).Where("id", Int(7)).Where("deleted_at", Null())
			},
			want:    `UPDATE crm."order" SET name = $1 WHERE id = $2 AND deleted_at IS NULL`,
			wantLen: 2,
		},
		{
			name:    "sqlite delete",
			dbType:  SQLite,
			stmt:    func(s *SQL) Statement { return s.Delete().Where("id", Int(7)) },
			want:    `DELETE FROM crm."order" WHERE id = ?`,
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := NewSQL(tt.dbType, table).Render(tt.stmt(NewSQL(tt.dbType, table)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, args, tt.wantLen)
		})
	}
}

func TestBuildArgsOrder(t *testing.T) {
	s := NewSQL(PostgreSQL, TableIdentifier{Name: "users"})
	_, args, err := s.Render(s.Update().Set(Fields{"b": Int(2), "a": Int(1)}).WhereFields(Fields{"id": Int(9)}))
	require.NoError(t, err)
	assert.Equal(t, []any{Int(1), Int(2), Int(9)}, args)
}

func TestBuildRefusesUnsafeStatements(t *testing.T) {
	s := NewSQL(SQLite, TableIdentifier{Name: "users"})

	_, _, err := s.Render(s.Delete())
	assert.ErrorIs(t, err, ErrUnsafeStatement)
	_, _, err = s.Render(s.Update().Set(Fields{"a": Int(1)}))
	assert.ErrorIs(t, err, ErrUnsafeStatement)
	_, _, err = s.Render(s.Update().Where("id", Int(1)))
	assert.ErrorIs(t, err, ErrEmptyUpdate)
	_, err = s.Preview(s.Delete())
	assert.ErrorIs(t, err, ErrUnsafeStatement)
}

func TestPreview(t *testing.T) {
	row := Fields{
		"name":  String("O'Brien"),
		"blob":  Bytes([]byte{0x01, 0xab}),
		"score": Float(1.5),
		"note":  Null(),
	}

	got, err := Preview(SQLite, NewSQL(SQLite, TableIdentifier{Name: "users"}).Insert().Values(row))
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO users (blob, name, note, score) VALUES (X'01AB', 'O''Brien', NULL, 1.5)`, got)

	got, err = Preview(PostgreSQL, NewSQL(PostgreSQL, TableIdentifier{Name: "users"}).Select().Where("blob", row["blob"]))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM users WHERE blob = '\x01AB'`, got)
}

func TestStatementCopiesFields(t *testing.T) {
	s := NewSQL(SQLite, TableIdentifier{Name: "users"})
	row := Fields{"name": String("Ann")}
	ins := s.Insert().Values(row)
	row["name"] = String("Bob")

	assert.True(t, ins.ValuesCopy().Equal(Fields{"name": String("Ann")}))
	assert.Equal(t, StatementInsert, ins.Type())
	assert.Equal(t, "users", ins.Table().String())
}

func TestDatabaseTypes(t *testing.T) {
	for _, s := range []string{"sqlite3", "PG", " mariadb "} {
		_, err := ParseDatabaseType(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseDatabaseType("oracle")
	assert.ErrorIs(t, err, ErrUnsupportedDatabase)

	name, err := PostgreSQL.DriverName()
	require.NoError(t, err)
	assert.Equal(t, "postgres", name)
	_, err = Snowflake.DriverName()
	assert.ErrorIs(t, err, ErrUnsupportedDatabase)

	assert.True(t, SQLite.SupportsReturning())
	assert.False(t, MySQL.SupportsReturning())
	assert.Equal(t, "mysql", MySQL.String())
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "users", QuoteIdent(PostgreSQL, "users"))
	assert.Equal(t, `"Users"`, QuoteIdent(PostgreSQL, "Users"))
	assert.Equal(t, `"select"`, QuoteIdent(SQLite, "select"))
	assert.Equal(t, "`a``b`", QuoteIdent(MySQL, "a`b"))
	assert.Equal(t, `"a""b"`, QuoteIdent(PostgreSQL, `a"b`))

	id := ParseTableIdentifier("crm.Users")
	assert.Equal(t, `crm."Users"`, id.Quoted(PostgreSQL))
	assert.Equal(t, "crm.Users", id.String())
	assert.True(t, ParseTableIdentifier("").IsZero())
}

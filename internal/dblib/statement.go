package dblib

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnsafeStatement is returned when an UPDATE or DELETE has no WHERE clause.
	ErrUnsafeStatement = errors.New("refusing to build statement without a where clause")
	// ErrEmptyUpdate is returned when an UPDATE has nothing to set.
	ErrEmptyUpdate = errors.New("update has no values to set")
)

// StatementType is the SQL verb of a Statement.
type StatementType int

const (
	StatementSelect StatementType = iota
	StatementInsert
	StatementUpdate
	StatementDelete
)

func (t StatementType) String() string {
	switch t {
	case StatementSelect:
		return "SELECT"
	case StatementInsert:
		return "INSERT"
	case StatementUpdate:
		return "UPDATE"
	case StatementDelete:
		return "DELETE"
	default:
		return "StatementType(" + strconv.Itoa(int(t)) + ")"
	}
}

// Statement is a structured SQL statement built by SQL. Statements are
// rendered to text only when an adapter executes them, so listeners can
// still change them after construction.
type Statement interface {
	Type() StatementType
	Table() TableIdentifier
	build(b *builder) error
}

// Predicate is one equality term of a WHERE clause. A NULL value renders as IS NULL.
type Predicate struct {
	Column string
	Value  Value
}

type SortColumn struct {
	Name string
	Asc  bool
}

func (sc SortColumn) String() string {
	if sc.Asc {
		return sc.Name + " ASC"
	}
	return sc.Name + " DESC"
}

// SQL creates statements for a single table in a given dialect.
type SQL struct {
	dialect DatabaseType
	table   TableIdentifier
}

func NewSQL(dialect DatabaseType, table TableIdentifier) *SQL {
	return &SQL{dialect: dialect, table: table}
}

func (s *SQL) Dialect() DatabaseType  { return s.dialect }
func (s *SQL) Table() TableIdentifier { return s.table }

func (s *SQL) Select() *Select { return &Select{table: s.table} }
func (s *SQL) Insert() *Insert { return &Insert{table: s.table, values: Fields{}} }
func (s *SQL) Update() *Update { return &Update{table: s.table, set: Fields{}} }
func (s *SQL) Delete() *Delete { return &Delete{table: s.table} }

// Render returns the query text and positional arguments for stmt.
func (s *SQL) Render(stmt Statement) (string, []any, error) {
	return Build(s.dialect, stmt)
}

// Preview returns stmt with literal values inlined. The result is meant for
// logs and display, never for execution.
func (s *SQL) Preview(stmt Statement) (string, error) {
	return Preview(s.dialect, stmt)
}

// Build renders stmt for dbType using placeholders.
func Build(dbType DatabaseType, stmt Statement) (string, []any, error) {
	b := &builder{dbType: dbType}
	if err := stmt.build(b); err != nil {
		return "", nil, fmt.Errorf("build %s %s: %w", stmt.Type(), stmt.Table(), err)
	}
	return b.String(), b.args, nil
}

// Preview renders stmt for dbType with literal values in place of placeholders.
func Preview(dbType DatabaseType, stmt Statement) (string, error) {
	b := &builder{dbType: dbType, inline: true}
	if err := stmt.build(b); err != nil {
		return "", fmt.Errorf("preview %s %s: %w", stmt.Type(), stmt.Table(), err)
	}
	return b.String(), nil
}

// Select is a SELECT statement with equality filters.
type Select struct {
	table   TableIdentifier
	columns []string
	where   []Predicate
	order   []SortColumn
	limit   int
	offset  int
}

func (s *Select) Type() StatementType    { return StatementSelect }
func (s *Select) Table() TableIdentifier { return s.table }

// Columns restricts the selected columns. No columns selects *.
func (s *Select) Columns(cols ...string) *Select {
	s.columns = append([]string(nil), cols...)
	return s
}

func (s *Select) Where(column string, v Value) *Select {
	s.where = append(s.where, Predicate{Column: column, Value: v})
	return s
}

// WhereFields ANDs one equality term per column, in sorted column order.
func (s *Select) WhereFields(f Fields) *Select {
	s.where = appendFields(s.where, f)
	return s
}

func (s *Select) OrderBy(column string, asc bool) *Select {
	s.order = append(s.order, SortColumn{Name: column, Asc: asc})
	return s
}

func (s *Select) Limit(n int) *Select {
	s.limit = n
	return s
}

func (s *Select) Offset(n int) *Select {
	s.offset = n
	return s
}

// Predicates returns a copy of the WHERE terms.
func (s *Select) Predicates() []Predicate { return append([]Predicate(nil), s.where...) }

func (s *Select) build(b *builder) error {
	b.WriteString("SELECT ")
	if len(s.columns) == 0 {
		b.WriteString("*")
	} else {
		b.identList(s.columns)
	}
	b.WriteString(" FROM ")
	b.WriteString(s.table.Quoted(b.dbType))
	b.where(s.where)
	if len(s.order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, sc := range s.order {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(SortColumn{Name: quoteIdent(b.dbType, sc.Name), Asc: sc.Asc}.String())
		}
	}
	if s.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(s.limit))
	}
	if s.offset > 0 {
		if s.limit <= 0 && b.dbType == MySQL {
			// MySQL has no OFFSET without LIMIT
			b.WriteString(" LIMIT 18446744073709551615")
		}
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(s.offset))
	}
	return nil
}

// Insert is an INSERT of a single row.
type Insert struct {
	table     TableIdentifier
	values    Fields
	returning string
}

func (s *Insert) Type() StatementType    { return StatementInsert }
func (s *Insert) Table() TableIdentifier { return s.table }

// Values replaces the inserted row with a copy of f.
func (s *Insert) Values(f Fields) *Insert {
	s.values = f.Clone()
	if s.values == nil {
		s.values = Fields{}
	}
	return s
}

// Set adds or replaces a single inserted column.
func (s *Insert) Set(column string, v Value) *Insert {
	s.values[column] = v
	return s
}

// Returning asks the database to report column after the insert. It is
// ignored by dialects without RETURNING support.
func (s *Insert) Returning(column string) *Insert {
	s.returning = column
	return s
}

func (s *Insert) ValuesCopy() Fields { return s.values.Clone() }

// ReturningColumn reports the column RETURNING will render for dbType, or "".
func (s *Insert) ReturningColumn(dbType DatabaseType) string {
	if s.returning == "" || !databaseFeatures[dbType].returning {
		return ""
	}
	return s.returning
}

func (s *Insert) build(b *builder) error {
	b.WriteString("INSERT INTO ")
	b.WriteString(s.table.Quoted(b.dbType))
	if len(s.values) == 0 {
		if databaseFeatures[b.dbType].defaultValuesInsert {
			b.WriteString(" DEFAULT VALUES")
		} else {
			b.WriteString(" () VALUES ()")
		}
	} else {
		cols := s.values.Columns()
		b.WriteString(" (")
		b.identList(cols)
		b.WriteString(") VALUES (")
		for i, col := range cols {
			if i > 0 {
				b.WriteString(", ")
			}
			b.bind(s.values[col])
		}
		b.WriteString(")")
	}
	if col := s.ReturningColumn(b.dbType); col != "" {
		b.WriteString(" RETURNING ")
		b.WriteString(quoteIdent(b.dbType, col))
	}
	return nil
}

// Update is an UPDATE filtered by equality terms.
type Update struct {
	table TableIdentifier
	set   Fields
	where []Predicate
}

func (s *Update) Type() StatementType    { return StatementUpdate }
func (s *Update) Table() TableIdentifier { return s.table }

// Set replaces the assigned columns with a copy of f.
func (s *Update) Set(f Fields) *Update {
	s.set = f.Clone()
	if s.set == nil {
		s.set = Fields{}
	}
	return s
}

func (s *Update) Where(column string, v Value) *Update {
	s.where = append(s.where, Predicate{Column: column, Value: v})
	return s
}

func (s *Update) WhereFields(f Fields) *Update {
	s.where = appendFields(s.where, f)
	return s
}

func (s *Update) SetCopy() Fields         { return s.set.Clone() }
func (s *Update) Predicates() []Predicate { return append([]Predicate(nil), s.where...) }

func (s *Update) build(b *builder) error {
	if len(s.set) == 0 {
		return ErrEmptyUpdate
	}
	if len(s.where) == 0 {
		return ErrUnsafeStatement
	}
	b.WriteString("UPDATE ")
	b.WriteString(s.table.Quoted(b.dbType))
	b.WriteString(" SET ")
	for i, col := range s.set.Columns() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(b.dbType, col))
		b.WriteString(" = ")
		b.bind(s.set[col])
	}
	b.where(s.where)
	return nil
}

// Delete is a DELETE filtered by equality terms.
type Delete struct {
	table TableIdentifier
	where []Predicate
}

func (s *Delete) Type() StatementType    { return StatementDelete }
func (s *Delete) Table() TableIdentifier { return s.table }

func (s *Delete) Where(column string, v Value) *Delete {
	s.where = append(s.where, Predicate{Column: column, Value: v})
	return s
}

func (s *Delete) WhereFields(f Fields) *Delete {
	s.where = appendFields(s.where, f)
	return s
}

func (s *Delete) Predicates() []Predicate { return append([]Predicate(nil), s.where...) }

func (s *Delete) build(b *builder) error {
	if len(s.where) == 0 {
		return ErrUnsafeStatement
	}
	b.WriteString("DELETE FROM ")
	b.WriteString(s.table.Quoted(b.dbType))
	b.where(s.where)
	return nil
}

func appendFields(dst []Predicate, f Fields) []Predicate {
	for _, col := range f.Columns() {
		dst = append(dst, Predicate{Column: col, Value: f[col]})
	}
	return dst
}

// builder accumulates query text and arguments. With inline set, values are
// written as literals instead of placeholders.
type builder struct {
	strings.Builder
	dbType DatabaseType
	inline bool
	args   []any
}

func (b *builder) bind(v Value) {
	if b.inline {
		b.WriteString(formatLiteral(b.dbType, v))
		return
	}
	b.args = append(b.args, v)
	b.WriteString(placeholder(b.dbType, len(b.args)))
}

func (b *builder) identList(cols []string) {
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(b.dbType, col))
	}
}

func (b *builder) where(preds []Predicate) {
	if len(preds) == 0 {
		return
	}
	b.WriteString(" WHERE ")
	for i, p := range preds {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(quoteIdent(b.dbType, p.Column))
		if p.Value.IsNull() {
			b.WriteString(" IS NULL")
			continue
		}
		b.WriteString(" = ")
		b.bind(p.Value)
	}
}

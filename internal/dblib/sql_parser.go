package dblib

import (
	"fmt"

	"github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	_ "github.com/pingcap/tidb/parser/test_driver"
)

// StatementInfo describes a parsed statement.
type StatementInfo struct {
	Type         StatementType
	Tables       []string // tables referenced, in the order they appear
	Columns      []string // columns written by INSERT/UPDATE
	WhereColumns []string // columns referenced in the WHERE clause
	SQL          string   // the text that was parsed
}

// Inspect renders stmt as a MySQL-dialect preview and parses it back,
// reporting what the database will see. It is used to validate generated
// statements and to describe them in the CLI.
func Inspect(stmt Statement) (*StatementInfo, error) {
	text, err := Preview(MySQL, stmt)
	if err != nil {
		return nil, err
	}
	return ParseStatement(text)
}

// ParseStatement parses a single MySQL-dialect statement.
func ParseStatement(sqlStr string) (*StatementInfo, error) {
	p := parser.New()

	stmtNodes, _, err := p.Parse(sqlStr, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse SQL: %w", err)
	}
	if len(stmtNodes) == 0 {
		return nil, fmt.Errorf("no SQL statement found")
	}
	if len(stmtNodes) > 1 {
		return nil, fmt.Errorf("expected one statement, got %d", len(stmtNodes))
	}

	info := &StatementInfo{SQL: sqlStr}
	var (
		refs  *ast.TableRefsClause
		where ast.ExprNode
	)
	switch stmt := stmtNodes[0].(type) {
	case *ast.SelectStmt:
		info.Type = StatementSelect
		refs, where = stmt.From, stmt.Where
	case *ast.InsertStmt:
		info.Type = StatementInsert
		refs = stmt.Table
		for _, col := range stmt.Columns {
			info.Columns = append(info.Columns, col.Name.O)
		}
	case *ast.UpdateStmt:
		info.Type = StatementUpdate
		refs, where = stmt.TableRefs, stmt.Where
		for _, a := range stmt.List {
			info.Columns = append(info.Columns, a.Column.Name.O)
		}
	case *ast.DeleteStmt:
		info.Type = StatementDelete
		refs, where = stmt.TableRefs, stmt.Where
	default:
		return nil, fmt.Errorf("unsupported statement %T", stmt)
	}

	if refs != nil && refs.TableRefs != nil {
		tables, err := extractTables(refs.TableRefs)
		if err != nil {
			return nil, err
		}
		info.Tables = tables
	}
	if where != nil {
		c := &columnCollector{}
		where.Accept(c)
		info.WhereColumns = c.columns
	}
	return info, nil
}

// extractTables extracts table names from a FROM clause or statement target.
func extractTables(tableRefs ast.ResultSetNode) ([]string, error) {
	if tableRefs == nil {
		return []string{}, nil
	}

	var tables []string
	switch ref := tableRefs.(type) {
	case *ast.TableSource:
		switch src := ref.Source.(type) {
		case *ast.TableName:
			tables = append(tables, tableNameString(src))
		case *ast.Join:
			return extractTables(src)
		case *ast.SelectStmt:
			if src.From != nil && src.From.TableRefs != nil {
				return extractTables(src.From.TableRefs)
			}
		}
	case *ast.Join:
		left, err := extractTables(ref.Left)
		if err != nil {
			return nil, err
		}
		tables = append(tables, left...)
		if ref.Right != nil {
			right, err := extractTables(ref.Right)
			if err != nil {
				return nil, err
			}
			tables = append(tables, right...)
		}
	case *ast.TableName:
		tables = append(tables, tableNameString(ref))
	default:
		return nil, fmt.Errorf("unsupported table reference type: %T", ref)
	}
	return tables, nil
}

func tableNameString(t *ast.TableName) string {
	if t.Schema.O != "" {
		return t.Schema.O + "." + t.Name.O
	}
	return t.Name.O
}

// columnCollector gathers column names referenced by an expression.
type columnCollector struct {
	columns []string
}

func (c *columnCollector) Enter(n ast.Node) (ast.Node, bool) {
	if col, ok := n.(*ast.ColumnNameExpr); ok {
		c.columns = append(c.columns, col.Name.Name.O)
	}
	return n, false
}

func (c *columnCollector) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}

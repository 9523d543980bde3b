package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"arec/internal/dblib"
	"arec/internal/record"
)

// NullDisplay is how NULL cells are shown.
const NullDisplay = "null"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	nullStyle   = cellStyle.Italic(true).Foreground(lipgloss.Color("8"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// recordColumns returns the columns to display: the primary key first, then
// the remaining columns of all records in sorted order.
func recordColumns(records []*record.Record) []string {
	if len(records) == 0 {
		return nil
	}
	cols := records[0].PrimaryKey()
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		seen[c] = true
	}
	var rest []string
	for _, rec := range records {
		for _, c := range rec.GetArrayCopy().Columns() {
			if !seen[c] {
				seen[c] = true
				rest = append(rest, c)
			}
		}
	}
	slices.Sort(rest)
	return append(cols, rest...)
}

func formatCellValue(v dblib.Value, present bool) string {
	if !present || v.IsNull() {
		return NullDisplay
	}
	if b, ok := v.AsBytes(); ok {
		return fmt.Sprintf("\\x%x", b)
	}
	return v.String()
}

// renderRecords writes records as a bordered table.
func renderRecords(w io.Writer, records []*record.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}

	cols := recordColumns(records)
	rows := make([][]string, len(records))
	nulls := make([][]bool, len(records))
	for i, rec := range records {
		rows[i] = make([]string, len(cols))
		nulls[i] = make([]bool, len(cols))
		for j, col := range cols {
			v, ok := rec.Get(col)
			rows[i][j] = formatCellValue(v, ok)
			nulls[i][j] = !ok || v.IsNull()
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(cols...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(nulls) && nulls[row][col]:
				return nullStyle
			default:
				return cellStyle
			}
		})

	suffix := "s"
	if len(records) == 1 {
		suffix = ""
	}
	_, err := fmt.Fprintf(w, "%s\n(%d row%s)\n", t.Render(), len(records), suffix)
	return err
}

// renderStatement writes the SQL preview of stmt followed by what the parser
// made of it.
func renderStatement(w io.Writer, dbType dblib.DatabaseType, stmt dblib.Statement) error {
	text, err := dblib.Preview(dbType, stmt)
	if err != nil {
		return err
	}
	info, err := dblib.Inspect(stmt)
	if err != nil {
		return fmt.Errorf("generated statement does not parse: %w", err)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return headerStyle
			}
			return cellStyle
		}).
		Row("type", info.Type.String()).
		Row("tables", fmt.Sprint(info.Tables))
	if len(info.Columns) > 0 {
		t.Row("columns", fmt.Sprint(info.Columns))
	}
	if len(info.WhereColumns) > 0 {
		t.Row("where", fmt.Sprint(info.WhereColumns))
	}

	_, err = fmt.Fprintf(w, "%s;\n%s\n", text, t.Render())
	return err
}

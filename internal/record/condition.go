package record

import "arec/internal/dblib"

type conditionKind int

const (
	conditionAll conditionKind = iota
	conditionWhere
	conditionFunc
)

// Condition selects the rows Find returns. The zero Condition selects every row.
type Condition struct {
	kind   conditionKind
	fields dblib.Fields
	fn     func(*dblib.Select)
}

// All selects every row.
func All() Condition { return Condition{} }

// Where selects rows whose columns equal the given values, ANDed together.
// A NULL value matches with IS NULL.
func Where(fields dblib.Fields) Condition {
	return Condition{kind: conditionWhere, fields: fields.Clone()}
}

// Func hands the SELECT to fn, which may change it freely before it runs.
func Func(fn func(*dblib.Select)) Condition {
	return Condition{kind: conditionFunc, fn: fn}
}

func (c Condition) apply(sel *dblib.Select) {
	switch c.kind {
	case conditionWhere:
		sel.WhereFields(c.fields)
	case conditionFunc:
		if c.fn != nil {
			c.fn(sel)
		}
	}
}

package main

import (
	"fmt"
	"strings"

	"arec/internal/dblib"
)

// parseAssignments turns col=val arguments into fields. Values go through
// dblib.ParseValue, so `\0` is NULL and numeric text becomes a number; quote
// a value with single quotes to keep it text ('007').
func parseAssignments(args []string) (dblib.Fields, error) {
	fields := make(dblib.Fields, len(args))
	for _, arg := range args {
		col, raw, ok := strings.Cut(arg, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid assignment %q: want col=val", arg)
		}
		if _, dup := fields[col]; dup {
			return nil, fmt.Errorf("column %q assigned twice", col)
		}
		fields[col] = parseValue(raw)
	}
	return fields, nil
}

// parseValues converts positional key arguments.
func parseValues(args []string) []dblib.Value {
	values := make([]dblib.Value, len(args))
	for i, raw := range args {
		values[i] = parseValue(raw)
	}
	return values
}

func parseValue(raw string) dblib.Value {
	if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
		return dblib.String(raw[1 : len(raw)-1])
	}
	return dblib.ParseValue(raw)
}

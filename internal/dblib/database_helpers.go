package dblib

import (
	"encoding/hex"
	"strings"
)

// QuoteIdent quotes an identifier (table or column) for the target database.
func QuoteIdent(dbType DatabaseType, ident string) string {
	return quoteIdent(dbType, ident)
}

// quoteIdent safely quotes an identifier (table/column) for the target DB.
// Attempts to minimize quoting by returning the identifier unquoted when it is
// obviously safe to do so:
// - comprised of lowercase letters, digits, and underscores
// - does not start with a digit
// - not a common SQL reserved keyword
// Otherwise it applies database-appropriate quoting with escaping.
func quoteIdent(dbType DatabaseType, ident string) string {
	if isSafeUnquotedIdent(ident) {
		return ident
	}

	switch dbType {
	case MySQL:
		escaped := strings.ReplaceAll(ident, "`", "``")
		return "`" + escaped + "`"
	default:
		escaped := strings.ReplaceAll(ident, "\"", "\"\"")
		return "\"" + escaped + "\""
	}
}

// isSafeUnquotedIdent returns true if ident can be used without quotes in a
// portable way across supported databases (lowercase [a-z_][a-z0-9_]* and not a
// common reserved keyword).
func isSafeUnquotedIdent(ident string) bool {
	if ident == "" {
		return false
	}
	c0 := ident[0]
	if !((c0 >= 'a' && c0 <= 'z') || c0 == '_') {
		return false
	}
	for i := 1; i < len(ident); i++ {
		c := ident[i]
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	if _, ok := commonReservedIdents[ident]; ok {
		return false
	}
	return true
}

// Small, conservative set of common SQL reserved keywords to avoid unquoted.
var commonReservedIdents = map[string]struct{}{
	// DML/DDL
	"select": {}, "insert": {}, "update": {}, "delete": {}, "into": {}, "values": {},
	"create": {}, "alter": {}, "drop": {}, "table": {}, "index": {}, "view": {},
	// Clauses
	"from": {}, "where": {}, "group": {}, "order": {}, "by": {}, "having": {},
	"limit": {}, "offset": {}, "join": {}, "inner": {}, "left": {}, "right": {}, "full": {}, "outer": {},
	// Operators/Predicates
	"and": {}, "or": {}, "not": {}, "in": {}, "is": {}, "like": {}, "between": {}, "exists": {},
	// Literals
	"null": {}, "true": {}, "false": {},
	// Misc
	"as": {}, "on": {}, "returning": {}, "default": {}, "set": {},
}

// formatLiteral renders a value as a SQL literal string for preview purposes.
// Strings and bytes are quoted with single quotes doubled.
func formatLiteral(dbType DatabaseType, v Value) string {
	switch v.Kind() {
	case KindNull:
		return "NULL"
	case KindInt, KindFloat:
		return v.String()
	case KindBytes:
		b, _ := v.AsBytes()
		if dbType == PostgreSQL {
			return "'\\x" + hexString(b) + "'"
		}
		return "X'" + hexString(b) + "'"
	default:
		s := strings.ReplaceAll(v.String(), "'", "''")
		return "'" + s + "'"
	}
}

func hexString(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

package record

import (
	"strings"

	"arec/internal/dblib"
)

// defaultTypeName is the type name used when a record is created without one.
const defaultTypeName = "record"

// DefaultTableName derives a table name from a qualified type name: the
// trailing segment after the last '\', '/' or '.', lower-cased.
// "App\Model\User" and "models.User" both give "user".
func DefaultTableName(typeName string) string {
	name := typeName
	if i := strings.LastIndexAny(name, `\/.`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return defaultTypeName
	}
	return name
}

func defaultTable(typeName string) dblib.TableIdentifier {
	return dblib.TableIdentifier{Name: DefaultTableName(typeName)}
}

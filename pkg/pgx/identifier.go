package pgx

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// SplitSchemaTableName splits a schema-qualified table name into schema and table parts.
// An unqualified name resolves to the public schema.
func SplitSchemaTableName(tableName string) (string, string) {
	if schema, table, ok := strings.Cut(tableName, "."); ok {
		return schema, table
	}
	return "public", tableName
}

// TableIdentifier returns the quoted, schema-qualified identifier for tableName,
// safe to interpolate into SQL text.
func TableIdentifier(tableName string) string {
	schema, table := SplitSchemaTableName(tableName)
	return pgx.Identifier{schema, table}.Sanitize()
}

// Identifier quotes a single identifier such as an index or column name.
func Identifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

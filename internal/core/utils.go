package core

import (
	"strings"
)

// QuoteIdentifier quotes a database, table or column name with backticks,
// doubling any backtick inside it.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QualifiedName returns `db`.`table`, or just `table` when db is empty.
func QualifiedName(db, table string) string {
	if db == "" {
		return QuoteIdentifier(table)
	}
	return QuoteIdentifier(db) + "." + QuoteIdentifier(table)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so the pattern matches s literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Package query renders the dynamic parts of advert queries: the WHERE
// predicate assembled from optional filters, the ORDER BY list, and partial
// SET lists for profile updates.
//
// Every fragment is produced through a Binder, which hands out the numbered
// placeholder and records the bound value in the same call. A condition and
// its argument therefore cannot drift apart, and the placeholders stay valid
// no matter which subset of filters is present.
package query

import (
	"fmt"
	"strconv"
)

// Dialect covers the few places where SQLite and PostgreSQL syntax differ.
type Dialect interface {
	// Name is the goose dialect name.
	Name() string
	// Placeholder renders the n-th (1-based) positional parameter.
	Placeholder(n int) string
	// ContainsFold renders a case-insensitive substring match of column
	// against a LIKE pattern bound at placeholder.
	ContainsFold(column, placeholder string) string
}

var (
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
)

// DialectFor maps a database/sql driver name to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return nil, fmt.Errorf("query: unsupported driver %q", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite3" }

// SQLite accepts ?NNN; repeated numbers refer to the same argument.
func (sqliteDialect) Placeholder(n int) string { return "?" + strconv.Itoa(n) }

// FoldFunc is the scalar function the SQLite store registers with the
// driver. It lower-cases full Unicode text; SQLite's own LIKE folds ASCII only.
const FoldFunc = "casefold"

func (sqliteDialect) ContainsFold(column, placeholder string) string {
	return FoldFunc + "(" + column + ") LIKE " + FoldFunc + "(" + placeholder + `) ESCAPE '\'`
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) ContainsFold(column, placeholder string) string {
	return column + " ILIKE " + placeholder + ` ESCAPE '\'`
}

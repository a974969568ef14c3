package sqlstore

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"

	"github.com/sakif/puzzle-market/internal/query"
)

// The SQLite dialect renders case-insensitive search as
// casefold(col) LIKE casefold(?N). Registration is process-wide and applies
// to every connection opened afterwards.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction(query.FoldFunc, 1, casefold)
}

// casefold lower-cases TEXT and BLOB values with Unicode rules. NULL stays
// NULL and numbers pass through.
func casefold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

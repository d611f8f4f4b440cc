package dbx

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the SQL flavour of a connection.
type Dialect string

const (
	Postgres Dialect = "pgx"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps a driver name from configuration onto a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// GooseDialect is the dialect name understood by goose.
func (d Dialect) GooseDialect() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "pgx"
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// MaxParams is the bind-parameter limit of a single statement.
func (d Dialect) MaxParams() int {
	if d == Postgres {
		return 65535
	}
	return 32766
}

// ValuesList renders "(p1, p2, ...), (...)" for rows×cols arguments, numbering
// placeholders from 1.
func (d Dialect) ValuesList(rows, cols int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

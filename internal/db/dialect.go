package db

import (
	"fmt"
	"strings"
	"time"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect interface {
	Name() string
	DriverName() string
	// ForUpdate is appended to locking reads. SQLite serializes writers
	// through a single connection, so it has no row-lock clause.
	ForUpdate() string
	Rebind(query string) string
	Schema() string
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string               { return "mysql" }
func (mysqlDialect) DriverName() string         { return "mysql" }
func (mysqlDialect) ForUpdate() string          { return " FOR UPDATE" }
func (mysqlDialect) Rebind(query string) string { return query }
func (mysqlDialect) Schema() string             { return schemaMySQL }

type postgresDialect struct{}

func (postgresDialect) Name() string               { return "postgres" }
func (postgresDialect) DriverName() string         { return "pgx" }
func (postgresDialect) ForUpdate() string          { return " FOR UPDATE" }
func (postgresDialect) Rebind(query string) string { return Rebind(query) }
func (postgresDialect) Schema() string             { return schemaPostgres }

type sqliteDialect struct{}

func (sqliteDialect) Name() string               { return "sqlite" }
func (sqliteDialect) DriverName() string         { return "sqlite" }
func (sqliteDialect) ForUpdate() string          { return "" }
func (sqliteDialect) Rebind(query string) string { return query }
func (sqliteDialect) Schema() string             { return schemaSQLite }

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql", "":
		return mysqlDialect{}, nil
	case "postgres", "postgresql", "pgx":
		return postgresDialect{}, nil
	case "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func Rebind(query string) string {
	n := 0
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}

const layoutTimestamp = "2006-01-02 15:04:05"

// Timestamp formats t as a UTC text timestamp accepted by every dialect.
func Timestamp(t time.Time) string {
	return t.UTC().Format(layoutTimestamp)
}

// ParseTime converts a scanned timestamp value to time.Time.
// SQLite returns text, MySQL (parseTime=true) and PostgreSQL return time.Time.
func ParseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case []byte:
		return ParseTime(string(t))
	case string:
		if t == "" {
			return time.Time{}
		}
		for _, layout := range []string{
			layoutTimestamp,
			time.RFC3339,
			time.RFC3339Nano,
			"2006-01-02 15:04:05-07:00",
			"2006-01-02 15:04:05.999999-07:00",
		} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC()
			}
		}
	}
	return time.Time{}
}

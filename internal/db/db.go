package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Querier is satisfied by both *DB and *Tx so repositories can run either
// against the pool or inside an open transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Q(query string) string
	ForUpdate() string
	Dialect() Dialect
}

type DB struct {
	*sql.DB
	dialect Dialect
}

// Open connects using the driver's dialect and applies pool settings.
func Open(driver, dsn string) (*DB, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if d.Name() == "sqlite" {
		dsn = sqliteDSN(dsn)
	}
	sqlDB, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name(), err)
	}
	if d.Name() == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	}
	return &DB{DB: sqlDB, dialect: d}, nil
}

// Wrap adapts an existing *sql.DB (e.g. sqlmock) to the given dialect.
func Wrap(sqlDB *sql.DB, d Dialect) *DB {
	return &DB{DB: sqlDB, dialect: d}
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (db *DB) Dialect() Dialect      { return db.dialect }
func (db *DB) Q(query string) string { return db.dialect.Rebind(query) }
func (db *DB) ForUpdate() string     { return db.dialect.ForUpdate() }

// Migrate creates the schema when it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range splitStatements(db.dialect.Schema()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", db.dialect.Name(), err)
		}
	}
	return nil
}

func splitStatements(schema string) []string {
	out := []string{}
	for _, s := range strings.Split(schema, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type Tx struct {
	*sql.Tx
	dialect Dialect
}

func (tx *Tx) Dialect() Dialect      { return tx.dialect }
func (tx *Tx) Q(query string) string { return tx.dialect.Rebind(query) }
func (tx *Tx) ForUpdate() string     { return tx.dialect.ForUpdate() }

// WithTx runs fn inside a transaction; fn's error rolls back.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&Tx{Tx: sqlTx, dialect: db.dialect}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// InsertID runs an INSERT and returns the generated key. PostgreSQL has no
// LastInsertId, so the statement gets a RETURNING clause there.
func InsertID(ctx context.Context, q Querier, query, pk string, args ...any) (int64, error) {
	if q.Dialect().Name() == "postgres" {
		var id int64
		err := q.QueryRowContext(ctx, q.Q(query+" RETURNING "+pk), args...).Scan(&id)
		return id, err
	}
	res, err := q.ExecContext(ctx, q.Q(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// NullIfZero stores optional ids as NULL.
func NullIfZero(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Driver string

const (
	Postgres Driver = "postgres"
	SQLite   Driver = "sqlite"
)

var placeholderRe = regexp.MustCompile(`\$\d+`)

func ParseDriver(name string) (Driver, error) {
	switch d := Driver(strings.ToLower(name)); d {
	case Postgres, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// connString adds the pragmas the sqlite driver needs to every connection.
func (d Driver) connString(dsn string) string {
	if d != SQLite {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// SqlCurioRepository serves both dialects. Queries are written with
// postgres placeholders, each used once and in ascending order, and are
// rewritten for sqlite.
type SqlCurioRepository struct {
	conn   *sql.DB
	driver Driver
}

func NewCurioRepository(driver Driver, dsn string) (*SqlCurioRepository, error) {
	db, err := sql.Open(string(driver), driver.connString(dsn))
	if err != nil {
		return nil, err
	}

	if driver == SQLite {
		// sqlite has a single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &SqlCurioRepository{conn: db, driver: driver}, nil
}

func (db *SqlCurioRepository) Driver() Driver {
	return db.driver
}

func (db *SqlCurioRepository) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *SqlCurioRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *SqlCurioRepository) rebind(query string) string {
	if db.driver != SQLite {
		return query
	}

	return placeholderRe.ReplaceAllString(query, "?")
}

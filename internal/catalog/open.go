package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

func wrapOpen(err error) error {
	return fmt.Errorf("open catalog: %w", err)
}

// driverFor picks the database/sql driver for a connection target. Anything
// without a recognised scheme is treated as a SQLite file path.
func driverFor(target string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(target, "postgres://"), strings.HasPrefix(target, "postgresql://"):
		return "postgres", target
	case strings.HasPrefix(target, "libsql://"),
		strings.HasPrefix(target, "http://"),
		strings.HasPrefix(target, "https://"),
		strings.HasPrefix(target, "ws://"),
		strings.HasPrefix(target, "wss://"):
		return "libsql", target
	case strings.HasPrefix(target, "sqlite://"):
		return "sqlite", strings.TrimPrefix(target, "sqlite://")
	case strings.HasPrefix(target, "sqlite:"):
		return "sqlite", strings.TrimPrefix(target, "sqlite:")
	}
	return "sqlite", target
}

// Open connects to the catalog at `target` and applies Schema.
func Open(target string) (*sqlx.DB, error) {
	if target == "" {
		return nil, wrapOpen(fmt.Errorf("a connection target was not specified"))
	}

	driver, dsn := driverFor(target)
	if driver == "sqlite" && dsn != ":memory:" {
		err := os.MkdirAll(filepath.Dir(dsn), 0777)
		if err != nil {
			return nil, wrapOpen(err)
		}
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, wrapOpen(err)
	}

	if driver == "sqlite" {
		// see this stackoverflow post for information on why the following
		// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
		// it also keeps every query on the same `:memory:` database.
		db.SetMaxOpenConns(1)
		if dsn != ":memory:" {
			_, err = db.Exec("PRAGMA journal_mode=WAL")
			if err != nil {
				db.Close()
				return nil, wrapOpen(err)
			}
		}
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, wrapOpen(err)
	}

	err = Migrate(db)
	if err != nil {
		db.Close()
		return nil, wrapOpen(err)
	}

	return db, nil
}

// Migrate applies Schema one statement at a time, not every driver accepts
// multiple statements per Exec.
func Migrate(db *sqlx.DB) error {
	for _, stmt := range strings.Split(Schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		_, err := db.Exec(stmt)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

package main

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/hazelgraph/hazel"
	"github.com/hazelgraph/hazel/internal/cli"
)

// resolveDSN returns the effective database DSN: an explicit --db flag
// wins, otherwise it falls back to the loaded config's database section.
func resolveDSN(dbFlag string) (string, error) {
	if dbFlag != "" {
		return dbFlag, nil
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("resolving database connection", err)
	}
	return dsn, nil
}

// openStore opens a *sql.DB against dsn, applies the embedded schema,
// and wraps it as a hazel.Store. The caller must close the returned
// *sql.DB.
func openStore(dsn string) (*sql.DB, hazel.Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, cli.DBConnectError("connecting to database", err)
	}

	if err := hazel.EnsureSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, nil, cli.DBConnectError("applying schema", err)
	}

	return db, hazel.Open(db), nil
}

// openEngine is openStore plus hazel.NewEngine, for the common case
// where a command just needs a ready-to-use Engine.
func openEngine(dsn string) (*sql.DB, *hazel.Engine, error) {
	db, store, err := openStore(dsn)
	if err != nil {
		return nil, nil, err
	}
	return db, hazel.NewEngine(store), nil
}

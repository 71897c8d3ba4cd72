// Package testutil provides a shared PostgreSQL fixture for hazel's
// integration tests: a singleton testcontainers-go container, a
// template database with the hazel schema already applied, and a DB
// helper that copies the template per test so tests never share state.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hazelgraph/hazel"
)

var (
	singletonOnce sync.Once
	singletonDSN  string
	singletonErr  error

	templateOnce sync.Once
	templateName string
	templateErr  error
)

func ensureSingleton() (string, error) {
	singletonOnce.Do(func() {
		ctx := context.Background()

		container, err := postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("postgres"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_INITDB_ARGS": "--auth-host=trust",
			}),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			singletonErr = fmt.Errorf("starting postgres container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx)
		if err != nil {
			_ = container.Terminate(ctx)
			singletonErr = fmt.Errorf("getting connection string: %w", err)
			return
		}
		singletonDSN = dsn + "sslmode=disable"
	})
	return singletonDSN, singletonErr
}

func ensureTemplate(adminDSN string) (string, error) {
	templateOnce.Do(func() {
		templateName = "hazel_template"

		if err := createDatabase(adminDSN, templateName); err != nil {
			templateErr = fmt.Errorf("creating template database: %w", err)
			return
		}

		templateDSN := replaceDBName(adminDSN, templateName)
		if err := applyHazelSchema(templateDSN); err != nil {
			templateErr = fmt.Errorf("applying schema to template: %w", err)
			return
		}

		_ = markAsTemplate(adminDSN, templateName)
	})
	return templateName, templateErr
}

// DB returns a connection to a freshly copied, fully migrated database,
// dropped automatically when the test completes.
func DB(tb testing.TB) *sql.DB {
	tb.Helper()

	adminDSN, err := ensureSingleton()
	require.NoError(tb, err, "starting postgres container")

	tmpl, err := ensureTemplate(adminDSN)
	require.NoError(tb, err, "creating template database")

	dbName := uniqueDBName("hazel_test")
	require.NoError(tb, createDatabaseFromTemplate(adminDSN, dbName, tmpl), "copying template database")

	dsn := replaceDBName(adminDSN, dbName)
	db, err := sql.Open("pgx", dsn)
	require.NoError(tb, err, "connecting to test database")
	require.NoError(tb, db.Ping(), "pinging test database")

	registerCleanup(tb, db, adminDSN, dbName)
	return db
}

// Store is DB plus hazel.Open, for tests that only need the Store
// interface and don't care about the underlying *sql.DB.
func Store(tb testing.TB) hazel.Store {
	return hazel.Open(DB(tb))
}

func registerCleanup(tb testing.TB, db *sql.DB, adminDSN, dbName string) {
	tb.Cleanup(func() {
		_ = db.Close()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = dropDatabase(ctx, adminDSN, dbName)
		}()
	})
}

func uniqueDBName(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

func createDatabase(adminDSN, name string) error {
	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", name))
	return err
}

func createDatabaseFromTemplate(adminDSN, name, template string) error {
	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	_, _ = db.Exec(fmt.Sprintf(`
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = '%s' AND pid <> pg_backend_pid()`, template))

	_, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s WITH TEMPLATE %s", name, template))
	return err
}

func markAsTemplate(adminDSN, name string) error {
	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(fmt.Sprintf("ALTER DATABASE %s WITH is_template = true", name))
	return err
}

func dropDatabase(ctx context.Context, adminDSN, name string) error {
	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	_, _ = db.ExecContext(ctx, fmt.Sprintf(`
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = '%s' AND pid <> pg_backend_pid()`, name))

	_, err = db.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", name))
	return err
}

func applyHazelSchema(dsn string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	return hazel.EnsureSchema(ctx, db)
}

// replaceDBName swaps the path segment of a postgres:// DSN.
func replaceDBName(dsn, newDB string) string {
	for i := len(dsn) - 1; i >= 0; i-- {
		if dsn[i] == '/' {
			rest := ""
			for j := i + 1; j < len(dsn); j++ {
				if dsn[j] == '?' {
					rest = dsn[j:]
					break
				}
			}
			return dsn[:i+1] + newDB + rest
		}
	}
	return dsn
}

package store

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// testDatabaseURL returns AGORA_TEST_DATABASE_URL when set, otherwise starts a
// throwaway Postgres container. Tests are skipped in short mode or without Docker.
func testDatabaseURL(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if dsn := strings.TrimSpace(os.Getenv("AGORA_TEST_DATABASE_URL")); dsn != "" {
		return dsn
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("agora_test"),
		postgres.WithUsername("agora"),
		postgres.WithPassword("agora"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("container dsn: %v", err)
	}
	return dsn
}

// openMigrated opens a clean, fully migrated schema.
func openMigrated(t *testing.T) (*sql.DB, *PostgresStore) {
	t.Helper()
	dsn := testDatabaseURL(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db, err := Open(ctx, dsn, PoolOptions{MaxOpenConns: 8})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if _, err := ApplyMigrations(ctx, db, migrationsDir, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db, NewPostgresStore(db)
}

func resetPublicSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`)
	return err
}

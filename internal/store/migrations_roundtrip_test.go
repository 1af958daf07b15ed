package store

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"
)

func TestMigrationsRoundTripPostgres(t *testing.T) {
	db, _ := openMigrated(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	applied, err := ApplyMigrations(ctx, db, migrationsDir, nil)
	if err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected no pending migrations, applied %v", applied)
	}

	if err := applyDownMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply down migrations: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		t.Fatalf("clear schema_migrations: %v", err)
	}
	if _, err := ApplyMigrations(ctx, db, migrationsDir, nil); err != nil {
		t.Fatalf("apply up migrations (pass 2): %v", err)
	}
}

func applyDownMigrations(ctx context.Context, db *sql.DB, dir string) error {
	downs, err := migrationFiles(dir, ".down.sql")
	if err != nil {
		return err
	}
	for i := len(downs) - 1; i >= 0; i-- {
		sqlBytes, err := os.ReadFile(downs[i])
		if err != nil {
			return err
		}
		sqlText := strings.TrimSpace(string(sqlBytes))
		if sqlText == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			return err
		}
	}
	return nil
}

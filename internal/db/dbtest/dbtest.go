// Package dbtest hands tests a migrated, empty Postgres database.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barangay-nit/eservices/internal/db"
)

// Pool connects to POSTGRES_TEST_DSN, applies the schema and truncates every
// table. The test is skipped when the variable is unset. Tests sharing the
// database must not run in parallel.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.ConnectPostgres(ctx, dsn, 20)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		TRUNCATE certificate_requests, appointments, tracking_sequences, staff_users, event_logs
		RESTART IDENTITY
	`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

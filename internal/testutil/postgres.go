// Package testutil provides helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEnvVar points the integration tests at a database. Tests that need
// Postgres are skipped when it is unset.
const PostgresEnvVar = "CHECKIN_TEST_DATABASE_URL"

// PostgresPool connects to the database named by PostgresEnvVar and truncates
// the given tables so each test starts from a clean slate. The pool is closed
// via test cleanup.
func PostgresPool(t *testing.T, tables ...string) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(PostgresEnvVar)
	if dsn == "" {
		t.Skipf("set %s to run Postgres integration tests", PostgresEnvVar)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping test database: %v", err)
	}
	t.Cleanup(pool.Close)

	for _, table := range tables {
		if _, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
			// Table may not exist yet on the first run; EnsureSchema creates it.
			continue
		}
	}
	return pool
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	pgddl "triplestore/internal/dialect/postgres"
)

// testStore spins up a throwaway Postgres container, bootstraps the
// schema, and returns a Store whose pool is closed and whose container
// is terminated when the test finishes.
func testStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("triplestore_test"),
		postgres.WithUsername("triplestore"),
		postgres.WithPassword("triplestore"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	s, err := Open(ctx, dsn)
	require.NoError(t, err, "failed to open store")
	t.Cleanup(s.Close)

	for _, stmt := range pgddl.BootstrapStatements() {
		_, err := s.pool.Exec(ctx, stmt)
		require.NoError(t, err, "bootstrap statement failed: %s", stmt)
	}

	return s
}

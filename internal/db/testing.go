package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// SetupTestDB creates an in-memory SQLite database with all migrations applied.
// It returns a clean database connection that will be automatically closed
// when the test completes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	// Every pooled connection would otherwise get its own empty database.
	conn.SetMaxOpenConns(1)

	require.NoError(t, conn.PingContext(context.Background()))

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = MEMORY;", // Faster for testing
		"PRAGMA synchronous = OFF;",     // Faster for testing
	}

	for _, pragma := range pragmas {
		_, err = conn.ExecContext(context.Background(), pragma)
		require.NoError(t, err)
	}

	goose.SetBaseFS(FS)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(conn, "migrations"))

	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}

// SetupTestStore is [SetupTestDB] wrapped in a [Store].
func SetupTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(SetupTestDB(t))
}

// CreateTestAccount inserts an account holding the given credits.
func CreateTestAccount(t *testing.T, q Querier, id string, credits int64) Account {
	t.Helper()
	now := time.Now().UnixMilli()
	acc, err := q.CreateAccount(context.Background(), CreateAccountParams{
		ID:        id,
		Credits:   credits,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return acc
}

// CreateTestSession inserts a CREATED session owned by accountID.
func CreateTestSession(t *testing.T, q Querier, sessionID, accountID string) Session {
	t.Helper()
	now := time.Now().UnixMilli()
	sess, err := q.CreateSession(context.Background(), CreateSessionParams{
		ID:        sessionID,
		AccountID: accountID,
		Status:    "CREATED",
		Contexts:  "{}",
		Questions: "[]",
		Metadata:  "{}",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return sess
}

package account

import (
	"context"
	"testing"
	"time"

	"github.com/juggyai/juggy/internal/db"
	"github.com/stretchr/testify/require"
)

func TestService_CreateGetAddCredits(t *testing.T) {
	t.Parallel()

	conn := db.SetupTestDB(t)
	svc := NewService(db.New(conn))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	acc, err := svc.Create(ctx, 30)
	require.NoError(t, err)
	require.NotEmpty(t, acc.ID)
	require.Equal(t, int64(30), acc.Credits)

	got, err := svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, acc, got)

	topped, err := svc.AddCredits(ctx, acc.ID, 15)
	require.NoError(t, err)
	require.Equal(t, int64(45), topped.Credits)

	_, err = svc.AddCredits(ctx, acc.ID, -5)
	require.Error(t, err)
}

func TestService_NotFound(t *testing.T) {
	t.Parallel()

	conn := db.SetupTestDB(t)
	svc := NewService(db.New(conn))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddCredits(ctx, "missing", 5)
	require.ErrorIs(t, err, ErrNotFound)
}

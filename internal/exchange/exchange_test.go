package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/juggyai/juggy/internal/db"
	"github.com/stretchr/testify/require"
)

func TestService_RecordAndList(t *testing.T) {
	t.Parallel()

	store := db.SetupTestStore(t)
	db.CreateTestAccount(t, store, "acc", 30)
	db.CreateTestSession(t, store, "sess", "acc")
	svc := NewService(store)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	first, err := svc.Record(ctx, RecordParams{
		SessionID:       "sess",
		AccountID:       "acc",
		CandidateText:   "Hi, I'm ready.",
		InterviewerText: "Great, let's start.",
		UsageMetadata: []ChunkMetadata{
			{IsStreamingResponse: true, ModelVersion: "gpt-4o-mini", PromptTokenCount: 12, TotalTokenCount: 20},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := svc.Record(ctx, RecordParams{SessionID: "sess", AccountID: "acc", CandidateText: "Sure."})
	require.NoError(t, err)
	require.Empty(t, second.UsageMetadata)

	exchanges, err := svc.List(ctx, "sess")
	require.NoError(t, err)
	require.Len(t, exchanges, 2)
	require.Equal(t, first.ID, exchanges[0].ID)
	require.Equal(t, second.ID, exchanges[1].ID)
	require.Equal(t, int64(12), exchanges[0].UsageMetadata[0].PromptTokenCount)

	count, err := svc.Count(ctx, "sess")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestService_RecordUnknownSession(t *testing.T) {
	t.Parallel()

	store := db.SetupTestStore(t)
	svc := NewService(store)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := svc.Record(ctx, RecordParams{SessionID: "missing", AccountID: "acc"})
	require.Error(t, err)

	_, err = svc.Record(ctx, RecordParams{})
	require.Error(t, err)
}

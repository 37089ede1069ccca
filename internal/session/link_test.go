package session

import (
	"context"
	"testing"
	"time"

	"github.com/juggyai/juggy/internal/db"
	"github.com/stretchr/testify/require"
)

func TestLinkPolicy_Decide(t *testing.T) {
	t.Parallel()

	policy := DefaultLinkPolicy
	cases := []struct {
		name    string
		current Session
		callID  string
		want    LinkAction
		wantErr bool
	}{
		{name: "first link", current: Session{Status: StatusCreated}, callID: "c1", want: LinkFirst},
		{name: "same call", current: Session{Status: StatusActive, CallID: "c1", UsedCredits: 30}, callID: "c1", want: LinkNone},
		{name: "short call", current: Session{Status: StatusActive, CallID: "c1", UsedCredits: 15}, callID: "c2", want: LinkReplace},
		{name: "completed short call", current: Session{Status: StatusCompleted, CallID: "c1", UsedCredits: 3}, callID: "c2", want: LinkReplace},
		{name: "long call", current: Session{Status: StatusActive, CallID: "c1", UsedCredits: 16}, callID: "c2", wantErr: true},
		{name: "terminated", current: Session{Status: StatusTerminated}, callID: "c1", wantErr: true},
		{name: "analysed", current: Session{Status: StatusAnalysed, CallID: "c1"}, callID: "c1", wantErr: true},
		{name: "empty call", current: Session{Status: StatusCreated}, callID: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := policy.Decide(tc.current, tc.callID)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrLinkRejected)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func createExchange(t *testing.T, q db.Querier, id, sessionID string) {
	t.Helper()
	_, err := q.CreateExchange(context.Background(), db.CreateExchangeParams{
		ID:              id,
		SessionID:       sessionID,
		AccountID:       "acc",
		CandidateText:   "hello",
		InterviewerText: "hi",
		UsageMetadata:   "[]",
		CreatedAt:       time.Now().UnixMilli(),
	})
	require.NoError(t, err)
}

func TestService_Link(t *testing.T) {
	t.Parallel()

	store, svc, clock := setupService(t)
	ctx := testContext(t)
	db.CreateTestAccount(t, store, "acc", 60)
	sess, err := svc.Create(ctx, CreateParams{AccountID: "acc"})
	require.NoError(t, err)

	res, err := svc.Link(ctx, sess.ID, "call-1", time.Time{})
	require.NoError(t, err)
	require.Equal(t, LinkFirst, res.Action)
	require.Equal(t, "call-1", res.Session.CallID)
	require.Zero(t, res.Session.CallStartedAt)

	res, err = svc.Link(ctx, sess.ID, "call-1", time.Time{})
	require.NoError(t, err)
	require.Equal(t, LinkNone, res.Action)

	other, err := svc.Create(ctx, CreateParams{AccountID: "acc"})
	require.NoError(t, err)
	_, err = svc.Link(ctx, other.ID, "call-1", time.Time{})
	require.ErrorIs(t, err, ErrCallInUse)

	_, err = svc.Link(ctx, "missing", "call-9", time.Time{})
	require.ErrorIs(t, err, ErrNotFound)

	got, err := svc.GetByCallID(ctx, "call-1")
	require.NoError(t, err)
	require.Equal(t, sess.ID, got.ID)

	_, err = svc.BeginTurn(ctx, TurnParams{CallID: "call-1", CallStartedAt: clock.Now()})
	require.NoError(t, err)
}

func TestService_RelinkShortCallDiscardsExchanges(t *testing.T) {
	t.Parallel()

	store, svc, clock := setupService(t)
	ctx := testContext(t)
	db.CreateTestAccount(t, store, "acc", 60)
	sess, err := svc.Create(ctx, CreateParams{AccountID: "acc"})
	require.NoError(t, err)

	start := clock.Now()
	_, err = svc.Link(ctx, sess.ID, "call-1", start)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	turn, err := svc.BeginTurn(ctx, TurnParams{CallID: "call-1"})
	require.NoError(t, err)
	require.Equal(t, int64(10), turn.Session.UsedCredits)

	createExchange(t, store, "ex-1", sess.ID)
	createExchange(t, store, "ex-2", sess.ID)

	res, err := svc.Link(ctx, sess.ID, "call-2", clock.Now())
	require.NoError(t, err)
	require.True(t, res.Relinked)
	require.Equal(t, int64(2), res.DiscardedExchanges)
	require.Equal(t, "call-2", res.Session.CallID)
	require.Equal(t, StatusCreated, res.Session.Status)
	require.Equal(t, int64(10), res.Session.CallBaseCredits)

	count, err := store.CountExchangesBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	_, err = svc.GetByCallID(ctx, "call-1")
	require.ErrorIs(t, err, ErrNotFound)

	// Billing restarts for the new call but the session total keeps growing.
	clock.Advance(3 * time.Minute)
	turn, err = svc.BeginTurn(ctx, TurnParams{CallID: "call-2"})
	require.NoError(t, err)
	require.Equal(t, int64(13), turn.Session.UsedCredits)
	require.Equal(t, int64(47), turn.Credits)
	require.Equal(t, StatusActive, turn.Session.Status)
}

func TestService_RelinkLongCallIsRejected(t *testing.T) {
	t.Parallel()

	store, svc, clock := setupService(t)
	ctx := testContext(t)
	db.CreateTestAccount(t, store, "acc", 60)
	sess, err := svc.Create(ctx, CreateParams{AccountID: "acc"})
	require.NoError(t, err)

	_, err = svc.Link(ctx, sess.ID, "call-1", clock.Now())
	require.NoError(t, err)
	clock.Advance(16 * time.Minute)
	_, err = svc.BeginTurn(ctx, TurnParams{CallID: "call-1"})
	require.NoError(t, err)
	createExchange(t, store, "ex-1", sess.ID)

	_, err = svc.Link(ctx, sess.ID, "call-2", clock.Now())
	require.ErrorIs(t, err, ErrLinkRejected)

	count, err := store.CountExchangesBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "call-1", got.CallID)
}

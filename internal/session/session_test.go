package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/juggyai/juggy/internal/db"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 12, 18, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupService(t *testing.T) (*db.Store, Service, *testClock) {
	t.Helper()
	store := db.SetupTestStore(t)
	clock := newTestClock()
	return store, NewService(store, WithClock(clock.Now)), clock
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestService_CreateAndGet(t *testing.T) {
	t.Parallel()

	store, svc, _ := setupService(t)
	ctx := testContext(t)
	db.CreateTestAccount(t, store, "acc", 30)

	created, err := svc.Create(ctx, CreateParams{
		AccountID: "acc",
		AgentName: "interviewer_agent",
		Contexts:  json.RawMessage(`{"job_description":"Go engineer"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, StatusCreated, created.Status)
	require.Empty(t, created.Questions)
	require.JSONEq(t, `{"job_description":"Go engineer"}`, string(created.Contexts))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)

	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Create(ctx, CreateParams{AccountID: "acc", Contexts: json.RawMessage(`{`)})
	require.Error(t, err)
}

func TestService_RecordQuestionPrepends(t *testing.T) {
	t.Parallel()

	store, svc, _ := setupService(t)
	ctx := testContext(t)
	db.CreateTestAccount(t, store, "acc", 30)
	sess, err := svc.Create(ctx, CreateParams{AccountID: "acc"})
	require.NoError(t, err)

	_, err = svc.RecordQuestion(ctx, sess.ID, Question{Question: "Tell me about yourself."})
	require.NoError(t, err)
	updated, err := svc.RecordQuestion(ctx, sess.ID, Question{Question: "Why Go?", QuestionType: "technical"})
	require.NoError(t, err)

	require.Len(t, updated.Questions, 2)
	require.Equal(t, "Why Go?", updated.Questions[0].Question)
	require.Equal(t, "technical", updated.Questions[0].QuestionType)
	require.NotEmpty(t, updated.Questions[0].CreatedAt)
	require.Equal(t, "Tell me about yourself.", updated.Questions[1].Question)

	_, err = svc.RecordQuestion(ctx, sess.ID, Question{})
	require.Error(t, err)
}

func TestService_ConcurrentQuestionsAreNotLost(t *testing.T) {
	t.Parallel()

	store, svc, _ := setupService(t)
	ctx := testContext(t)
	db.CreateTestAccount(t, store, "acc", 30)
	sess, err := svc.Create(ctx, CreateParams{AccountID: "acc"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordQuestion(ctx, sess.ID, Question{Question: fmt.Sprintf("q%d", i)})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 10)
}

func TestService_UpdateContexts(t *testing.T) {
	t.Parallel()

	store, svc, _ := setupService(t)
	ctx := testContext(t)
	db.CreateTestAccount(t, store, "acc", 30)
	sess, err := svc.Create(ctx, CreateParams{AccountID: "acc", Contexts: json.RawMessage(`{"a":1}`)})
	require.NoError(t, err)

	updated, err := svc.UpdateContexts(ctx, sess.ID, func(current json.RawMessage) (json.RawMessage, error) {
		require.JSONEq(t, `{"a":1}`, string(current))
		return json.RawMessage(`{"a":1,"b":2}`), nil
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1,"b":2}`, string(updated.Contexts))

	_, err = svc.UpdateContexts(ctx, sess.ID, func(json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`not json`), nil
	})
	require.Error(t, err)
}

func TestService_EndAndSummary(t *testing.T) {
	t.Parallel()

	store, svc, _ := setupService(t)
	ctx := testContext(t)
	db.CreateTestAccount(t, store, "acc", 30)
	sess, err := svc.Create(ctx, CreateParams{AccountID: "acc"})
	require.NoError(t, err)

	_, err = svc.SetSummary(ctx, sess.ID, json.RawMessage(`{"feedback":"ok"}`))
	require.ErrorIs(t, err, ErrInvalidTransition)

	ended, err := svc.End(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, ended.Status)

	ended, err = svc.End(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, ended.Status)

	analysed, err := svc.SetSummary(ctx, sess.ID, json.RawMessage(`{"feedback":"ok"}`))
	require.NoError(t, err)
	require.Equal(t, StatusAnalysed, analysed.Status)
	require.JSONEq(t, `{"feedback":"ok"}`, string(analysed.Summary))

	_, err = svc.End(ctx, sess.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_List(t *testing.T) {
	t.Parallel()

	store, svc, clock := setupService(t)
	ctx := testContext(t)
	db.CreateTestAccount(t, store, "acc", 30)
	db.CreateTestAccount(t, store, "other", 30)

	ids := make([]string, 7)
	for i := range ids {
		sess, err := svc.Create(ctx, CreateParams{AccountID: "acc"})
		require.NoError(t, err)
		ids[i] = sess.ID
		clock.Advance(time.Second)
	}
	_, err := svc.Create(ctx, CreateParams{AccountID: "other"})
	require.NoError(t, err)

	first, err := svc.List(ctx, "acc", 1)
	require.NoError(t, err)
	require.Equal(t, int64(7), first.Total)
	require.Equal(t, 2, first.TotalPages)
	require.Len(t, first.Sessions, PageSize)
	require.Equal(t, ids[6], first.Sessions[0].ID)

	second, err := svc.List(ctx, "acc", 2)
	require.NoError(t, err)
	require.Len(t, second.Sessions, 2)
	require.Equal(t, ids[0], second.Sessions[1].ID)

	_, err = svc.End(ctx, ids[0])
	require.NoError(t, err)
	_, err = svc.SetSummary(ctx, ids[0], json.RawMessage(`{}`))
	require.NoError(t, err)

	pending, err := svc.ListToAnalyse(ctx, "acc")
	require.NoError(t, err)
	require.Len(t, pending, 6)
	for _, s := range pending {
		require.NotEqual(t, ids[0], s.ID)
	}
}

func TestService_PublishesUpdates(t *testing.T) {
	t.Parallel()

	store, svc, _ := setupService(t)
	ctx := testContext(t)
	db.CreateTestAccount(t, store, "acc", 30)

	events := svc.Subscribe(ctx)
	sess, err := svc.Create(ctx, CreateParams{AccountID: "acc"})
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, sess.ID, ev.Payload.ID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

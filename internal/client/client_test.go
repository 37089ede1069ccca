package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/juggyai/juggy/internal/app"
	"github.com/juggyai/juggy/internal/config"
	"github.com/juggyai/juggy/internal/db"
	"github.com/juggyai/juggy/internal/llm/provider"
	"github.com/juggyai/juggy/internal/llm/tools"
	"github.com/juggyai/juggy/internal/message"
	"github.com/juggyai/juggy/internal/proto"
	"github.com/juggyai/juggy/internal/pubsub"
	"github.com/juggyai/juggy/internal/server"
	"github.com/stretchr/testify/require"
)

type greetingProvider struct{}

func (greetingProvider) SendMessages(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts ...provider.CallOption) (*provider.ProviderResponse, error) {
	return nil, errors.New("not implemented")
}

func (greetingProvider) StreamResponse(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts ...provider.CallOption) <-chan provider.ProviderEvent {
	ch := make(chan provider.ProviderEvent, 2)
	ch <- provider.ProviderEvent{Type: provider.EventContentDelta, Content: "Good morning."}
	ch <- provider.ProviderEvent{Type: provider.EventComplete, Response: &provider.ProviderResponse{
		Content:      "Good morning.",
		FinishReason: message.FinishReasonEndTurn,
		Model:        "greeting",
	}}
	close(ch)
	return ch
}

func (greetingProvider) Model() string { return "greeting" }

func setupClient(t *testing.T) (*Client, *app.App, context.Context) {
	t.Helper()
	cfg := &config.Config{
		Options:  &config.Options{},
		Metering: config.Metering{TerminationThreshold: -3, RelinkThresholdMinutes: 16},
		Agents: config.AgentsConfig{
			DefaultAgent:    "interviewer_agent",
			DefaultStrategy: config.StrategyQuestionsAndExchanges,
		},
	}
	a, err := app.New(t.Context(), db.SetupTestDB(t), cfg, greetingProvider{})
	require.NoError(t, err)

	srv := httptest.NewServer(server.NewServer(a, "tcp", "127.0.0.1:0").Handler())
	t.Cleanup(func() {
		srv.Close()
		a.Shutdown()
	})

	c, err := HostClient("tcp://" + strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	t.Cleanup(cancel)
	return c, a, ctx
}

func TestClient_HealthAndVersion(t *testing.T) {
	t.Parallel()
	c, _, ctx := setupClient(t)

	require.NoError(t, c.Health(ctx))
	vi, err := c.VersionInfo(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, vi.Version)
}

func TestClient_Interview(t *testing.T) {
	t.Parallel()
	c, a, ctx := setupClient(t)

	acc, err := c.CreateAccount(ctx, 20)
	require.NoError(t, err)
	_, err = c.CreateAgent(ctx, proto.CreateAgentRequest{
		Name:     "interviewer_agent",
		Version:  "v1",
		Prompt:   "You are an interviewer.",
		Activate: true,
	})
	require.NoError(t, err)

	created, err := c.CreateSession(ctx, proto.CreateSessionRequest{AccountID: acc.ID})
	require.NoError(t, err)
	linked, err := c.LinkSession(ctx, created.SessionID, proto.LinkSessionRequest{CallID: "call-a"})
	require.NoError(t, err)
	require.Equal(t, "call-a", linked.Session.CallID)

	var reply strings.Builder
	err = c.Chat(ctx, proto.ChatCompletionRequest{
		Messages: []proto.ChatMessage{{Role: "user", Content: "Good morning to you too."}},
		Call:     &proto.Call{ID: "call-a"},
	}, "", func(chunk proto.ChatCompletionChunk) error {
		for _, choice := range chunk.Choices {
			reply.WriteString(choice.Delta.Content)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "Good morning.", reply.String())

	a.Orchestrator.Wait()
	exchanges, err := c.ListExchanges(ctx, created.SessionID)
	require.NoError(t, err)
	require.Len(t, exchanges, 1)
	require.Equal(t, "Good morning to you too.", exchanges[0].CandidateText)

	status, err := c.SessionStatus(ctx, created.SessionID)
	require.NoError(t, err)
	require.Equal(t, created.SessionID, status.SessionID)

	ended, err := c.EndSession(ctx, created.SessionID)
	require.NoError(t, err)
	require.Equal(t, "COMPLETED", ended.Status)

	// A completed session cannot be linked again.
	other, err := c.CreateSession(ctx, proto.CreateSessionRequest{AccountID: acc.ID})
	require.NoError(t, err)
	_, err = c.LinkSession(ctx, other.SessionID, proto.LinkSessionRequest{CallID: "call-a"})
	require.True(t, IsStatus(err, http.StatusConflict), "got %v", err)
}

func TestClient_NotFound(t *testing.T) {
	t.Parallel()
	c, _, ctx := setupClient(t)

	_, err := c.GetSession(ctx, "missing")
	require.True(t, IsStatus(err, http.StatusNotFound))
	_, err = c.GetAccount(ctx, "missing")
	require.True(t, IsStatus(err, http.StatusNotFound))

	var e *Error
	require.ErrorAs(t, err, &e)
	require.NotEmpty(t, e.Message)
}

func TestClient_SubscribeEvents(t *testing.T) {
	t.Parallel()
	c, _, ctx := setupClient(t)

	events, err := c.SubscribeEvents(ctx)
	require.NoError(t, err)

	acc, err := c.CreateAccount(ctx, 1)
	require.NoError(t, err)
	created, err := c.CreateSession(ctx, proto.CreateSessionRequest{AccountID: acc.ID})
	require.NoError(t, err)

	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "events closed early")
			if e, ok := ev.(pubsub.Event[proto.Session]); ok && e.Payload.ID == created.SessionID {
				require.Equal(t, pubsub.CreatedEvent, e.Type)
				return
			}
		case <-ctx.Done():
			t.Fatal("no session event received")
		}
	}
}

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	ev, err := decodeEvent([]byte(`{"kind":"turn","type":"created","payload":{"stream_id":"s1","call_id":"c1","started_at":1}}`))
	require.NoError(t, err)
	turn, ok := ev.(pubsub.Event[proto.Turn])
	require.True(t, ok)
	require.Equal(t, "c1", turn.Payload.CallID)

	_, err = decodeEvent([]byte(`{"kind":"weather"}`))
	require.Error(t, err)
}

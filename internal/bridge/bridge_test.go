package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juggyai/juggy/internal/config"
	"github.com/juggyai/juggy/internal/llm/provider"
	"github.com/juggyai/juggy/internal/llm/tools"
	"github.com/juggyai/juggy/internal/message"
	"github.com/juggyai/juggy/internal/proto"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu     sync.Mutex
	rounds [][]provider.ProviderEvent
	calls  [][]message.Message
	block  bool
}

func (f *fakeProvider) SendMessages(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts ...provider.CallOption) (*provider.ProviderResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) StreamResponse(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts ...provider.CallOption) <-chan provider.ProviderEvent {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, append([]message.Message(nil), messages...))
	f.mu.Unlock()

	if f.block {
		ch := make(chan provider.ProviderEvent, 1)
		go func() {
			<-ctx.Done()
			ch <- provider.ProviderEvent{Type: provider.EventError, Error: ctx.Err()}
			close(ch)
		}()
		return ch
	}

	events := f.rounds[min(idx, len(f.rounds)-1)]
	ch := make(chan provider.ProviderEvent, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch
}

func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type echoTool struct {
	mu    sync.Mutex
	calls []string
}

func (e *echoTool) Name() string { return "echo" }

func (e *echoTool) Info() tools.ToolInfo {
	return tools.ToolInfo{Name: "echo", Description: "echoes input"}
}

func (e *echoTool) Run(ctx context.Context, call tools.ToolCall) (tools.ToolResponse, error) {
	e.mu.Lock()
	e.calls = append(e.calls, call.Input)
	e.mu.Unlock()
	return tools.NewTextResponse("echo:" + call.Input), nil
}

func drain(t *testing.T, s *Stream) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("stream did not finish")
		}
	}
}

func doneCount(events []Event) int {
	n := 0
	for _, ev := range events {
		if ev.Done {
			n++
		}
	}
	return n
}

func contentOf(events []Event) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev.Chunk != nil {
			sb.WriteString(ev.Chunk.Choices[0].Delta.Content)
		}
	}
	return sb.String()
}

func usage(total int64) *provider.TokenUsage {
	return &provider.TokenUsage{InputTokens: total - 2, OutputTokens: 2, TotalTokens: total}
}

func complete(reason message.FinishReason, calls ...message.ToolCall) provider.ProviderEvent {
	return provider.ProviderEvent{
		Type:     provider.EventComplete,
		Response: &provider.ProviderResponse{FinishReason: reason, ToolCalls: calls},
	}
}

func TestBridge_StreamsContent(t *testing.T) {
	t.Parallel()

	fp := &fakeProvider{rounds: [][]provider.ProviderEvent{{
		{Type: provider.EventContentDelta, Content: "Tell me ", Model: "fake-0601"},
		{Type: provider.EventContentDelta, Content: "about yourself."},
		{Type: provider.EventUsage, Usage: usage(12)},
		complete(message.FinishReasonEndTurn),
	}}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	s := New(fp).Stream(ctx, Request{Messages: []message.Message{message.NewText(message.User, "hi")}})
	events := drain(t, s)

	require.Len(t, events, 3)
	require.Equal(t, 1, doneCount(events))
	require.True(t, events[len(events)-1].Done)
	require.Equal(t, "Tell me about yourself.", contentOf(events))

	first := events[0].Chunk
	require.Equal(t, proto.ChunkObject, first.Object)
	require.True(t, strings.HasPrefix(first.ID, "chatcmpl-"))
	require.Len(t, first.ID, len("chatcmpl-")+10)
	require.Equal(t, first.ID, events[1].Chunk.ID)
	require.Equal(t, "fake-0601", first.Model)
	require.Equal(t, "fake-model", events[1].Chunk.Model)

	result := s.Wait()
	require.NoError(t, result.Err)
	require.Equal(t, "Tell me about yourself.", result.Content)
	require.Len(t, result.Metadata, 3)
	require.Equal(t, int64(12), result.Metadata[2].TotalTokenCount)
	require.True(t, result.Metadata[0].IsStreamingResponse)
}

func TestBridge_ErrorMidStream(t *testing.T) {
	t.Parallel()

	fp := &fakeProvider{rounds: [][]provider.ProviderEvent{{
		{Type: provider.EventContentDelta, Content: "partial"},
		{Type: provider.EventError, Error: errors.New("connection reset")},
	}}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	s := New(fp).Stream(ctx, Request{})
	events := drain(t, s)

	require.Len(t, events, 3)
	require.Equal(t, "partial", events[0].Chunk.Choices[0].Delta.Content)
	require.NotNil(t, events[1].Error)
	require.Contains(t, events[1].Error.Error, "connection reset")
	require.True(t, events[2].Done)

	result := s.Wait()
	require.Error(t, result.Err)
	require.Equal(t, "partial", result.Content)
}

func TestBridge_ToolRound(t *testing.T) {
	t.Parallel()

	call := message.ToolCall{ID: "call_1", Name: "echo", Input: `{"x":1}`, Finished: true}
	fp := &fakeProvider{rounds: [][]provider.ProviderEvent{
		{
			{Type: provider.EventContentDelta, Content: "Let me check. "},
			{Type: provider.EventToolUseStart, ToolCall: &message.ToolCall{ID: "call_1", Name: "echo"}},
			complete(message.FinishReasonToolUse, call),
		},
		{
			{Type: provider.EventContentDelta, Content: "Got it."},
			complete(message.FinishReasonEndTurn),
		},
	}}
	tool := &echoTool{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	s := New(fp).Stream(ctx, Request{
		Messages:   []message.Message{message.NewText(message.User, "hi")},
		Dispatcher: tools.NewDispatcher(false, tool),
	})
	events := drain(t, s)

	var toolChunks int
	for _, ev := range events {
		if ev.Chunk != nil && len(ev.Chunk.Choices[0].Delta.ToolCalls) > 0 {
			toolChunks++
			tc := ev.Chunk.Choices[0].Delta.ToolCalls[0]
			require.Equal(t, "call_1", tc.ID)
			require.Equal(t, "echo", tc.Function.Name)
			require.Equal(t, "function", tc.Type)
		}
	}
	require.Equal(t, 1, toolChunks)
	require.Equal(t, 1, doneCount(events))

	result := s.Wait()
	require.NoError(t, result.Err)
	require.Equal(t, "Let me check. Got it.", result.Content)
	require.Equal(t, 2, result.Rounds)
	require.Equal(t, []string{`{"x":1}`}, tool.calls)

	require.Equal(t, 2, fp.callCount())
	followUp := fp.calls[1]
	require.Len(t, followUp, 3)
	require.Equal(t, message.Assistant, followUp[1].Role)
	require.Len(t, followUp[1].ToolCalls(), 1)
	require.Equal(t, message.Tool, followUp[2].Role)
	require.Equal(t, "echo:"+`{"x":1}`, followUp[2].ToolResults()[0].Content)
}

func TestBridge_ToolCallArgumentsFromOpenAIStream(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		var chunks []string
		if requests.Add(1) == 1 {
			chunks = []string{
				`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-test","choices":[{"index":0,"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"echo","arguments":""}}]},"finish_reason":null}]}`,
				`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-test","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"question\":"}}]},"finish_reason":null}]}`,
				`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-test","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"Q1\"}"}}]},"finish_reason":null}]}`,
				`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-test","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
			}
		} else {
			chunks = []string{
				`{"id":"c2","object":"chat.completion.chunk","created":1,"model":"gpt-test","choices":[{"index":0,"delta":{"role":"assistant","content":"Noted."},"finish_reason":null}]}`,
				`{"id":"c2","object":"chat.completion.chunk","created":1,"model":"gpt-test","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
			}
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)

	p, err := provider.NewProvider(&config.Config{
		Provider: config.ProviderConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-test"},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	tool := &echoTool{}
	s := New(p).Stream(ctx, Request{
		Messages:   []message.Message{message.NewText(message.User, "hi")},
		Dispatcher: tools.NewDispatcher(false, tool),
	})
	events := drain(t, s)

	var calls []proto.ChunkToolCall
	for _, ev := range events {
		if ev.Chunk != nil {
			calls = append(calls, ev.Chunk.Choices[0].Delta.ToolCalls...)
		}
	}
	require.Len(t, calls, 1)
	require.Equal(t, "call_1", calls[0].ID)
	require.Equal(t, "echo", calls[0].Function.Name)
	require.Equal(t, `{"question":"Q1"}`, calls[0].Function.Arguments)
	require.Equal(t, 1, doneCount(events))

	result := s.Wait()
	require.NoError(t, result.Err)
	require.Equal(t, "Noted.", result.Content)
	require.Equal(t, []string{`{"question":"Q1"}`}, tool.calls)
}

func TestBridge_ToolRoundsExceeded(t *testing.T) {
	t.Parallel()

	call := message.ToolCall{ID: "call_1", Name: "echo", Input: "{}", Finished: true}
	fp := &fakeProvider{rounds: [][]provider.ProviderEvent{{complete(message.FinishReasonToolUse, call)}}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	s := New(fp, WithMaxToolRounds(2)).Stream(ctx, Request{Dispatcher: tools.NewDispatcher(false, &echoTool{})})
	events := drain(t, s)

	require.Equal(t, 1, doneCount(events))
	require.NotNil(t, events[len(events)-2].Error)
	result := s.Wait()
	require.ErrorIs(t, result.Err, ErrToolRoundsExceeded)
	require.Equal(t, 2, fp.callCount())
}

func TestBridge_NonStreamingResponse(t *testing.T) {
	t.Parallel()

	fp := &fakeProvider{rounds: [][]provider.ProviderEvent{{{
		Type: provider.EventComplete,
		Response: &provider.ProviderResponse{
			Content:      "Welcome.",
			Model:        "fake-0601",
			Usage:        provider.TokenUsage{InputTokens: 4, OutputTokens: 2, TotalTokens: 6},
			FinishReason: message.FinishReasonEndTurn,
		},
	}}}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	s := New(fp).Stream(ctx, Request{})
	events := drain(t, s)

	require.Len(t, events, 2)
	require.Equal(t, "Welcome.", contentOf(events))
	result := s.Wait()
	require.Len(t, result.Metadata, 1)
	require.False(t, result.Metadata[0].IsStreamingResponse)
	require.Equal(t, "fake-0601", result.Metadata[0].ModelVersion)
	require.Equal(t, int64(6), result.Metadata[0].TotalTokenCount)
}

func TestBridge_Timeout(t *testing.T) {
	t.Parallel()

	fp := &fakeProvider{block: true}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	s := New(fp, WithTimeout(50*time.Millisecond)).Stream(ctx, Request{})
	events := drain(t, s)

	require.Len(t, events, 2)
	require.Contains(t, events[0].Error.Error, "timed out")
	require.True(t, events[1].Done)
	require.ErrorIs(t, s.Wait().Err, context.DeadlineExceeded)
}

func TestBridge_CallerGone(t *testing.T) {
	t.Parallel()

	fp := &fakeProvider{block: true}

	ctx, cancel := context.WithCancel(context.Background())
	s := New(fp).Stream(ctx, Request{})
	cancel()

	done := make(chan Result, 1)
	go func() { done <- s.Wait() }()
	select {
	case result := <-done:
		require.ErrorIs(t, result.Err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not stop")
	}
}

func TestCanned(t *testing.T) {
	t.Parallel()

	s := Canned("juggy", "Session terminated.")
	events := drain(t, s)

	require.Len(t, events, 2)
	require.Equal(t, "Session terminated.", events[0].Chunk.Choices[0].Delta.Content)
	require.Nil(t, events[0].Chunk.Choices[0].FinishReason)
	require.True(t, events[1].Done)
	require.Equal(t, "Session terminated.", s.Wait().Content)
}

func TestEncode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	chunk := newChunk("chatcmpl-0123456789", "m", time.Unix(100, 0), proto.ChunkDelta{Content: "hi"})
	require.NoError(t, Encode(&buf, Event{Chunk: chunk}))
	require.NoError(t, Encode(&buf, Event{Error: &proto.ErrorChunk{Error: "boom"}}))
	require.NoError(t, Encode(&buf, Event{Done: true}))

	require.Equal(t,
		`data: {"id":"chatcmpl-0123456789","object":"chat.completion.chunk","created":100,"model":"m","choices":[{"index":0,"delta":{"content":"hi"},"finish_reason":null}]}`+"\n\n"+
			`data: {"error":"boom"}`+"\n\n"+
			"data: [DONE]\n\n",
		buf.String())
}

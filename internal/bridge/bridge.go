// Package bridge turns normalized provider events into OpenAI compatible
// chat completion chunks, running model requested tools in between.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juggyai/juggy/internal/exchange"
	"github.com/juggyai/juggy/internal/llm/provider"
	"github.com/juggyai/juggy/internal/llm/tools"
	"github.com/juggyai/juggy/internal/log"
	"github.com/juggyai/juggy/internal/message"
	"github.com/juggyai/juggy/internal/proto"
)

const (
	DefaultTimeout       = 5 * time.Minute
	DefaultMaxToolRounds = 5

	doneMarker = "[DONE]"
)

var ErrToolRoundsExceeded = errors.New("tool rounds exceeded")

// Event is one server-sent event of a turn. Exactly one of the fields is
// set; the last event of every stream has Done set.
type Event struct {
	Chunk *proto.ChatCompletionChunk
	Error *proto.ErrorChunk
	Done  bool
}

// Encode writes ev in server-sent event framing.
func Encode(w io.Writer, ev Event) error {
	if ev.Done {
		_, err := fmt.Fprintf(w, "data: %s\n\n", doneMarker)
		return err
	}
	var payload any = ev.Chunk
	if ev.Error != nil {
		payload = ev.Error
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// Result is what a turn produced once its stream is drained.
type Result struct {
	Content  string
	Metadata []exchange.ChunkMetadata
	Rounds   int
	Err      error
}

// Stream is a single turn in flight.
type Stream struct {
	ID     string
	events chan Event
	done   chan struct{}
	result Result
}

func newStream() *Stream {
	return &Stream{
		ID:     NewChunkID(),
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

// Events yields the chunks of the turn. The channel is closed after the
// done marker.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Wait blocks until the producer has finished and returns the result.
func (s *Stream) Wait() Result {
	<-s.done
	return s.result
}

// NewChunkID returns an id in the "chatcmpl-" form callers expect.
func NewChunkID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// Canned returns a finished stream that says text and ends. It has the
// same framing as a model stream.
func Canned(model, text string) *Stream {
	s := newStream()
	s.events <- Event{Chunk: newChunk(s.ID, model, time.Now(), proto.ChunkDelta{Role: "assistant", Content: text})}
	s.events <- Event{Done: true}
	close(s.events)
	s.result = Result{Content: text}
	close(s.done)
	return s
}

// Failed returns a finished stream carrying a single error chunk.
func Failed(err error) *Stream {
	s := newStream()
	s.events <- Event{Error: &proto.ErrorChunk{Error: err.Error()}}
	s.events <- Event{Done: true}
	close(s.events)
	s.result = Result{Err: err}
	close(s.done)
	return s
}

// Request describes one turn.
type Request struct {
	Messages   []message.Message
	Dispatcher *tools.Dispatcher
	Options    []provider.CallOption
}

type Bridge struct {
	provider      provider.Provider
	timeout       time.Duration
	maxToolRounds int
	now           func() time.Time
}

type Option func(*Bridge)

func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

func WithMaxToolRounds(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.maxToolRounds = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		b.now = now
	}
}

func New(p provider.Provider, opts ...Option) *Bridge {
	b := &Bridge{
		provider:      p,
		timeout:       DefaultTimeout,
		maxToolRounds: DefaultMaxToolRounds,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Stream starts the turn. Cancelling ctx stops the provider and the
// emission of further events; the result still holds whatever text was
// produced until then.
func (b *Bridge) Stream(ctx context.Context, req Request) *Stream {
	s := newStream()
	go b.run(ctx, s, req)
	return s
}

type turn struct {
	bridge  *Bridge
	stream  *Stream
	ctx     context.Context
	gone    bool
	content strings.Builder
	meta    []exchange.ChunkMetadata
	seen    map[string]bool
	toolIdx int
}

func (b *Bridge) run(ctx context.Context, s *Stream, req Request) {
	t := &turn{
		bridge: b,
		stream: s,
		ctx:    ctx,
		seen:   make(map[string]bool),
	}
	completed := false
	defer func() {
		if !completed && s.result.Err == nil {
			s.result.Err = errors.New("stream aborted")
			t.emit(Event{Error: &proto.ErrorChunk{Error: s.result.Err.Error()}})
		}
		t.emit(Event{Done: true})
		close(s.events)
		s.result.Content = t.content.String()
		s.result.Metadata = t.meta
		close(s.done)
	}()
	defer log.RecoverPanic("bridge", nil)

	streamCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if req.Dispatcher != nil {
		_, callID := tools.GetContextValues(ctx)
		slog.Debug("Starting turn stream", "stream_id", s.ID, "call_id", callID, "tools", len(req.Dispatcher.Tools()))
	}

	err := t.loop(streamCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("provider stream timed out after %s: %w", b.timeout, err)
		}
		slog.Error("Turn stream failed", "stream_id", s.ID, "error", err)
		s.result.Err = err
		t.emit(Event{Error: &proto.ErrorChunk{Error: err.Error()}})
	}
	completed = true
}

func (t *turn) loop(ctx context.Context, req Request) error {
	messages := req.Messages
	var declared []tools.BaseTool
	if req.Dispatcher != nil {
		declared = req.Dispatcher.Tools()
	}

	for round := 1; ; round++ {
		t.stream.result.Rounds = round
		response, err := t.consume(ctx, messages, declared, req.Options)
		if err != nil {
			return err
		}
		if response.FinishReason != message.FinishReasonToolUse || len(response.ToolCalls) == 0 {
			return nil
		}
		if req.Dispatcher == nil {
			slog.Warn("Model requested tools but none are declared", "stream_id", t.stream.ID)
			return nil
		}
		if round >= t.bridge.maxToolRounds {
			return fmt.Errorf("%w: %d", ErrToolRoundsExceeded, t.bridge.maxToolRounds)
		}

		results := req.Dispatcher.RunAll(ctx, response.ToolCalls)

		assistant := message.Message{Role: message.Assistant}
		if response.Content != "" {
			assistant.AppendContent(response.Content)
		}
		assistant.SetToolCalls(response.ToolCalls)
		assistant.AddFinish(message.FinishReasonToolUse, "", "")
		toolMsg := message.Message{Role: message.Tool}
		toolMsg.SetToolResults(results)
		messages = append(messages, assistant, toolMsg)
	}
}

// consume drains one provider round. The returned response is the one
// carried by EventComplete.
func (t *turn) consume(ctx context.Context, messages []message.Message, declared []tools.BaseTool, opts []provider.CallOption) (*provider.ProviderResponse, error) {
	streamed := false
	events := t.bridge.provider.StreamResponse(ctx, messages, declared, opts...)
	for ev := range events {
		switch ev.Type {
		case provider.EventContentDelta:
			streamed = true
			t.record(ev.Model, ev.Usage, true)
			t.text(ev.Model, ev.Content)
		case provider.EventToolUseStart:
			// Arguments are still streaming; the call goes out once
			// EventComplete carries it fully assembled.
			t.record(ev.Model, ev.Usage, true)
		case provider.EventToolUseDelta:
		case provider.EventUsage:
			t.record(ev.Model, ev.Usage, true)
		case provider.EventWarning:
			slog.Warn("Provider warning", "stream_id", t.stream.ID, "error", ev.Error)
		case provider.EventError:
			// Drain so the provider goroutine can exit.
			for range events {
			}
			return nil, ev.Error
		case provider.EventComplete:
			if ev.Response == nil {
				slog.Warn("Provider completed without a response", "stream_id", t.stream.ID)
				return &provider.ProviderResponse{FinishReason: message.FinishReasonEndTurn}, nil
			}
			if !streamed {
				// Non-streaming providers deliver everything at the end.
				t.record(ev.Response.Model, &ev.Response.Usage, false)
				if ev.Response.Content != "" {
					t.text(ev.Response.Model, ev.Response.Content)
				}
			}
			for _, call := range ev.Response.ToolCalls {
				t.toolCall(ev.Response.Model, call)
			}
			return ev.Response, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("provider stream ended without completing")
}

func (t *turn) text(model, content string) {
	t.content.WriteString(content)
	t.emit(Event{Chunk: newChunk(t.stream.ID, t.model(model), t.bridge.now(), proto.ChunkDelta{Content: content})})
}

// toolCall emits one tool call chunk, with its complete arguments, per call id.
func (t *turn) toolCall(model string, call message.ToolCall) {
	if call.ID == "" || t.seen[call.ID] {
		return
	}
	t.seen[call.ID] = true
	delta := proto.ChunkDelta{
		ToolCalls: []proto.ChunkToolCall{{
			Index: t.toolIdx,
			ID:    call.ID,
			Type:  "function",
			Function: proto.ChunkToolFunction{
				Name:      call.Name,
				Arguments: call.Input,
			},
		}},
	}
	t.toolIdx++
	t.emit(Event{Chunk: newChunk(t.stream.ID, t.model(model), t.bridge.now(), delta)})
}

func (t *turn) record(model string, usage *provider.TokenUsage, streaming bool) {
	meta := exchange.ChunkMetadata{
		IsStreamingResponse: streaming,
		ModelVersion:        t.model(model),
	}
	if usage != nil {
		meta.CachedContentTokenCount = usage.CacheReadTokens
		meta.CandidatesTokenCount = usage.OutputTokens
		meta.PromptTokenCount = usage.InputTokens + usage.CacheReadTokens
		meta.TotalTokenCount = usage.TotalTokens
	}
	t.meta = append(t.meta, meta)
}

func (t *turn) model(model string) string {
	if model != "" {
		return model
	}
	return t.bridge.provider.Model()
}

// emit hands ev to the consumer unless the consumer has gone away.
func (t *turn) emit(ev Event) {
	if t.gone {
		return
	}
	select {
	case t.stream.events <- ev:
	case <-t.ctx.Done():
		t.gone = true
	}
}

func newChunk(id, model string, now time.Time, delta proto.ChunkDelta) *proto.ChatCompletionChunk {
	return &proto.ChatCompletionChunk{
		ID:      id,
		Object:  proto.ChunkObject,
		Created: now.Unix(),
		Model:   model,
		Choices: []proto.ChunkChoice{{
			Index: 0,
			Delta: delta,
		}},
	}
}

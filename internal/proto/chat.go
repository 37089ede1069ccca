package proto

import (
	"fmt"
	"time"
)

// ChatCompletionRequest is the OpenAI compatible request a voice platform
// sends for every candidate turn.
type ChatCompletionRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Stream      *bool         `json:"stream,omitempty"`
	Tools       []ChatTool    `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	Destination string        `json:"destination,omitempty"`
	Call        *Call         `json:"call,omitempty"`
}

// IsStreaming defaults to true when the caller does not say.
func (r ChatCompletionRequest) IsStreaming() bool {
	return r.Stream == nil || *r.Stream
}

// LastUserMessage returns the content of the latest message, which is the
// candidate's utterance for this turn.
func (r ChatCompletionRequest) LastUserMessage() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

type ChatMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type ChatTool struct {
	Type     string         `json:"type"`
	Function map[string]any `json:"function"`
}

type CallMonitor struct {
	ControlURL string `json:"controlUrl"`
	ListenURL  string `json:"listenUrl"`
}

// Call identifies the external call a turn belongs to.
type Call struct {
	ID        string       `json:"id"`
	OrgID     string       `json:"orgId,omitempty"`
	CreatedAt string       `json:"createdAt,omitempty"`
	UpdatedAt string       `json:"updatedAt,omitempty"`
	Type      string       `json:"type,omitempty"`
	Monitor   *CallMonitor `json:"monitor,omitempty"`
}

// StartedAt parses CreatedAt. A missing timestamp yields the zero time.
func (c Call) StartedAt() (time.Time, error) {
	if c.CreatedAt == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, c.CreatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid call createdAt %q: %w", c.CreatedAt, err)
	}
	return t, nil
}

const ChunkObject = "chat.completion.chunk"

// ChatCompletionChunk is one server-sent event of a streamed turn.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model,omitempty"`
	Choices []ChunkChoice `json:"choices"`
}

type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type ChunkDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []ChunkToolCall `json:"tool_calls,omitempty"`
}

type ChunkToolCall struct {
	Index    int               `json:"index"`
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Function ChunkToolFunction `json:"function"`
}

type ChunkToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ErrorChunk is sent in place of a chunk when a turn is aborted.
type ErrorChunk struct {
	Error string `json:"error"`
}

const CompletionObject = "chat.completion"

// ChatCompletion is the reply to a turn sent with "stream": false.
type ChatCompletion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model,omitempty"`
	Choices []CompletionChoice `json:"choices"`
}

type CompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Turn is an in-flight or just finished candidate turn.
type Turn struct {
	StreamID   string `json:"stream_id"`
	CallID     string `json:"call_id"`
	Agent      string `json:"agent,omitempty"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at,omitempty"`
	Error      string `json:"error,omitempty"`
}

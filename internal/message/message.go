// Package message holds the in-memory conversation handed to the model.
// Messages are rebuilt from the caller's transcript on every turn and are
// never stored.
package message

import (
	"slices"
	"strings"
	"time"

	"github.com/juggyai/juggy/internal/proto"
)

type Role string

const (
	Assistant Role = "assistant"
	User      Role = "user"
	System    Role = "system"
	Tool      Role = "tool"
)

type FinishReason string

const (
	FinishReasonEndTurn   FinishReason = "end_turn"
	FinishReasonMaxTokens FinishReason = "max_tokens"
	FinishReasonToolUse   FinishReason = "tool_use"

	// Should never happen
	FinishReasonUnknown FinishReason = "unknown"
)

// ContentPart is one of [TextContent], [ToolCall], [ToolResult] or [Finish].
type ContentPart interface {
	isPart()
}

type TextContent struct {
	Text string
}

func (tc TextContent) String() string { return tc.Text }

func (TextContent) isPart() {}

type ToolCall struct {
	ID       string
	Name     string
	Input    string
	Finished bool
}

func (ToolCall) isPart() {}

type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	Metadata   string
	IsError    bool
}

func (ToolResult) isPart() {}

type Finish struct {
	Reason  FinishReason
	Time    int64
	Message string
	Details string
}

func (Finish) isPart() {}

type Message struct {
	Role  Role
	Parts []ContentPart
}

// NewText returns a message holding a single text part.
func NewText(role Role, text string) Message {
	return Message{
		Role:  role,
		Parts: []ContentPart{TextContent{Text: text}},
	}
}

func (m *Message) Content() TextContent {
	for _, part := range m.Parts {
		if c, ok := part.(TextContent); ok {
			return c
		}
	}
	return TextContent{}
}

func (m *Message) ToolCalls() []ToolCall {
	return partsOf[ToolCall](m.Parts)
}

func (m *Message) ToolResults() []ToolResult {
	return partsOf[ToolResult](m.Parts)
}

func partsOf[T ContentPart](parts []ContentPart) []T {
	out := make([]T, 0)
	for _, part := range parts {
		if c, ok := part.(T); ok {
			out = append(out, c)
		}
	}
	return out
}

// AppendContent extends the text part, adding one when there is none.
func (m *Message) AppendContent(delta string) {
	for i, part := range m.Parts {
		if c, ok := part.(TextContent); ok {
			m.Parts[i] = TextContent{Text: c.Text + delta}
			return
		}
	}
	m.Parts = append(m.Parts, TextContent{Text: delta})
}

// AddToolCall replaces the call with the same id or appends tc.
func (m *Message) AddToolCall(tc ToolCall) {
	if i := m.toolCallIndex(tc.ID); i >= 0 {
		m.Parts[i] = tc
		return
	}
	m.Parts = append(m.Parts, tc)
}

func (m *Message) AppendToolCallInput(toolCallID, inputDelta string) {
	if i := m.toolCallIndex(toolCallID); i >= 0 {
		c := m.Parts[i].(ToolCall)
		c.Input += inputDelta
		m.Parts[i] = c
	}
}

func (m *Message) FinishToolCall(toolCallID string) {
	if i := m.toolCallIndex(toolCallID); i >= 0 {
		c := m.Parts[i].(ToolCall)
		c.Finished = true
		m.Parts[i] = c
	}
}

func (m *Message) toolCallIndex(id string) int {
	return slices.IndexFunc(m.Parts, func(part ContentPart) bool {
		c, ok := part.(ToolCall)
		return ok && c.ID == id
	})
}

// SetToolCalls replaces every tool call part with tc.
func (m *Message) SetToolCalls(tc []ToolCall) {
	m.Parts = slices.DeleteFunc(m.Parts, func(part ContentPart) bool {
		_, ok := part.(ToolCall)
		return ok
	})
	for _, call := range tc {
		m.Parts = append(m.Parts, call)
	}
}

func (m *Message) SetToolResults(tr []ToolResult) {
	for _, result := range tr {
		m.Parts = append(m.Parts, result)
	}
}

// AddFinish records why the message ended, replacing an earlier reason.
func (m *Message) AddFinish(reason FinishReason, message, details string) {
	m.Parts = slices.DeleteFunc(m.Parts, func(part ContentPart) bool {
		_, ok := part.(Finish)
		return ok
	})
	m.Parts = append(m.Parts, Finish{Reason: reason, Time: time.Now().Unix(), Message: message, Details: details})
}

// FromTranscript converts the caller's chat transcript into provider
// messages. System messages belong to the caller's own template and are
// dropped. Tool output is replayed as assistant text because the caller's
// tool call ids are not ours.
func FromTranscript(transcript []proto.ChatMessage) []Message {
	messages := make([]Message, 0, len(transcript))
	for _, m := range transcript {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		switch m.Role {
		case "user":
			messages = append(messages, NewText(User, content))
		case "assistant", "bot":
			messages = append(messages, NewText(Assistant, content))
		case "tool", "function":
			messages = append(messages, NewText(Assistant, "Function result: "+content))
		}
	}
	return messages
}

// Transcript renders messages as role-tagged lines, oldest first.
func Transcript(messages []Message) string {
	var sb strings.Builder
	for _, m := range messages {
		text := m.Content().Text
		if text == "" {
			continue
		}
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String()
}

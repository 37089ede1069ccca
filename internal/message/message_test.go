package message

import (
	"testing"

	"github.com/juggyai/juggy/internal/proto"
	"github.com/stretchr/testify/require"
)

func TestFromTranscript(t *testing.T) {
	t.Parallel()

	got := FromTranscript([]proto.ChatMessage{
		{Role: "system", Content: "This is a blank template with minimal defaults."},
		{Role: "assistant", Content: "Hello? Shall we start?"},
		{Role: "user", Content: "Yes."},
		{Role: "tool", Content: "true"},
		{Role: "user", Content: "   "},
	})

	require.Len(t, got, 3)
	require.Equal(t, Assistant, got[0].Role)
	require.Equal(t, "Hello? Shall we start?", got[0].Content().Text)
	require.Equal(t, User, got[1].Role)
	require.Equal(t, "Function result: true", got[2].Content().Text)

	require.Equal(t, "assistant: Hello? Shall we start?\nuser: Yes.\nassistant: Function result: true\n", Transcript(got))
}

func TestMessageAppendContent(t *testing.T) {
	t.Parallel()

	m := Message{Role: Assistant}
	m.AppendContent("Hel")
	m.AppendContent("lo")
	m.AddToolCall(ToolCall{ID: "1", Name: "retrieveContext"})
	m.AppendToolCallInput("1", `{}`)
	m.FinishToolCall("1")

	require.Equal(t, "Hello", m.Content().Text)
	require.Len(t, m.ToolCalls(), 1)
	require.True(t, m.ToolCalls()[0].Finished)
	require.Equal(t, `{}`, m.ToolCalls()[0].Input)

	m.SetToolCalls([]ToolCall{{ID: "2", Name: "recordMainQuestion"}})
	require.Len(t, m.ToolCalls(), 1)
	require.Equal(t, "2", m.ToolCalls()[0].ID)
	require.Equal(t, "Hello", m.Content().Text)

	m.AddFinish(FinishReasonToolUse, "", "")
	m.AddFinish(FinishReasonEndTurn, "", "")
	finishes := partsOf[Finish](m.Parts)
	require.Len(t, finishes, 1)
	require.Equal(t, FinishReasonEndTurn, finishes[0].Reason)
}

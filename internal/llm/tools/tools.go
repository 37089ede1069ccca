package tools

import (
	"context"
	"encoding/json"

	"github.com/juggyai/juggy/internal/message"
	"github.com/juggyai/juggy/internal/proto"
)

type ToolInfo struct {
	Name        string
	Description string
	Parameters  map[string]any
	Required    []string
}

type (
	sessionIDContextKey string
	callIDContextKey    string
)

const (
	ToolResponseTypeText = proto.ToolResponseTypeText

	SessionIDContextKey sessionIDContextKey = "session_id"
	CallIDContextKey    callIDContextKey    = "call_id"
)

type ToolResponse = proto.ToolResponse

func NewTextResponse(content string) ToolResponse {
	return ToolResponse{
		Type:    ToolResponseTypeText,
		Content: content,
	}
}

func WithResponseMetadata(response ToolResponse, metadata any) ToolResponse {
	if metadata != nil {
		metadataBytes, err := json.Marshal(metadata)
		if err != nil {
			return response
		}
		response.Metadata = string(metadataBytes)
	}
	return response
}

func NewTextErrorResponse(content string) ToolResponse {
	return ToolResponse{
		Type:    ToolResponseTypeText,
		Content: content,
		IsError: true,
	}
}

type ToolCall = message.ToolCall

type BaseTool interface {
	Info() ToolInfo
	Name() string
	Run(ctx context.Context, params ToolCall) (ToolResponse, error)
}

// WithSession scopes ctx to the session and call a turn runs for. Tools
// act on this session whatever ids the model passes in its arguments.
func WithSession(ctx context.Context, sessionID, callID string) context.Context {
	ctx = context.WithValue(ctx, SessionIDContextKey, sessionID)
	return context.WithValue(ctx, CallIDContextKey, callID)
}

func GetContextValues(ctx context.Context) (string, string) {
	sessionID, _ := ctx.Value(SessionIDContextKey).(string)
	callID, _ := ctx.Value(CallIDContextKey).(string)
	return sessionID, callID
}

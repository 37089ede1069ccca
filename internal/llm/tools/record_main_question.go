package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/juggyai/juggy/internal/proto"
	"github.com/juggyai/juggy/internal/session"
)

// QuestionRecorder stores a main question against a session.
type QuestionRecorder interface {
	RecordQuestion(ctx context.Context, id string, q session.Question) (session.Session, error)
}

type recordMainQuestionTool struct {
	questions QuestionRecorder
}

func NewRecordMainQuestionTool(questions QuestionRecorder) BaseTool {
	return &recordMainQuestionTool{questions: questions}
}

func (t *recordMainQuestionTool) Name() string {
	return proto.RecordMainQuestionToolName
}

func (t *recordMainQuestionTool) Info() ToolInfo {
	properties, required := parametersOf(&proto.RecordMainQuestionParams{})
	return ToolInfo{
		Name: proto.RecordMainQuestionToolName,
		Description: `Save a main interview question right after you ask it. Follow-up and clarifying questions are not main questions and must not be saved.

Returns true when the question was saved and false otherwise. The interview continues either way.`,
		Parameters: properties,
		Required:   required,
	}
}

func (t *recordMainQuestionTool) Run(ctx context.Context, call ToolCall) (ToolResponse, error) {
	var params proto.RecordMainQuestionParams
	if err := json.Unmarshal([]byte(call.Input), &params); err != nil {
		slog.Warn("Invalid recordMainQuestion arguments", "input", call.Input, "error", err)
		return t.result(false), nil
	}
	if params.Question == "" {
		return t.result(false), nil
	}

	sessionID, _ := GetContextValues(ctx)
	if sessionID == "" {
		return t.result(false), nil
	}
	if params.SessionID != "" && params.SessionID != sessionID {
		slog.Debug("Ignoring model supplied session id", "given", params.SessionID, "session_id", sessionID)
	}

	usedResume := params.HasUsedResumeContext
	_, err := t.questions.RecordQuestion(ctx, sessionID, session.Question{
		Question:          params.Question,
		Reference:         params.Reference,
		Goal:              params.Goal,
		UsedResumeContext: &usedResume,
		QuestionType:      params.LastMainQuestionType,
	})
	if err != nil {
		slog.Error("Failed to record main question", "session_id", sessionID, "error", err)
		return t.result(false), nil
	}
	slog.Info("Recorded main question", "session_id", sessionID, "type", params.LastMainQuestionType)
	return t.result(true), nil
}

func (t *recordMainQuestionTool) result(ok bool) ToolResponse {
	response := NewTextResponse(strconv.FormatBool(ok))
	response.IsError = !ok
	return response
}

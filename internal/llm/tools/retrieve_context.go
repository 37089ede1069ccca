package tools

import (
	"context"
	"log/slog"

	"github.com/juggyai/juggy/internal/proto"
	"github.com/juggyai/juggy/internal/session"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// RetrieveContextErrorMessage is returned to the model when the context
// cannot be loaded.
const RetrieveContextErrorMessage = "There was an error retrieving context."

const (
	resumeMediaKey = "selected_resume_media_uuid"
	resumeDataKey  = "candidate_resume_data"
)

// SessionReader loads a session.
type SessionReader interface {
	Get(ctx context.Context, id string) (session.Session, error)
}

// ResumeCache looks up the structured form of a parsed resume. ok is false
// when the resume has not been parsed yet.
type ResumeCache interface {
	StructuredResume(ctx context.Context, mediaID string) (structured string, ok bool, err error)
}

type retrieveContextTool struct {
	sessions SessionReader
	resumes  ResumeCache
}

func NewRetrieveContextTool(sessions SessionReader, resumes ResumeCache) BaseTool {
	return &retrieveContextTool{
		sessions: sessions,
		resumes:  resumes,
	}
}

func (t *retrieveContextTool) Name() string {
	return proto.RetrieveContextToolName
}

func (t *retrieveContextTool) Info() ToolInfo {
	properties, required := parametersOf(&proto.RetrieveContextParams{})
	return ToolInfo{
		Name: proto.RetrieveContextToolName,
		Description: `Load the context of the current interview: the job description, the assessment notes and, when the candidate attached one, their parsed resume.

Call this before asking the first main question and whenever you need details about the role or the candidate. The result is JSON.`,
		Parameters: properties,
		Required:   required,
	}
}

func (t *retrieveContextTool) Run(ctx context.Context, call ToolCall) (ToolResponse, error) {
	sessionID, _ := GetContextValues(ctx)
	if sessionID == "" {
		return NewTextErrorResponse(RetrieveContextErrorMessage), nil
	}

	sess, err := t.sessions.Get(ctx, sessionID)
	if err != nil {
		slog.Error("Failed to load session context", "session_id", sessionID, "error", err)
		return NewTextErrorResponse(RetrieveContextErrorMessage), nil
	}

	contexts := string(sess.Contexts)
	if !gjson.Valid(contexts) {
		slog.Warn("Session contexts are not valid JSON", "session_id", sessionID)
		contexts = "{}"
	}

	mediaID := gjson.Get(contexts, resumeMediaKey).String()
	if mediaID == "" || t.resumes == nil {
		return NewTextResponse(contexts), nil
	}

	structured, ok, err := t.resumes.StructuredResume(ctx, mediaID)
	if err != nil {
		slog.Error("Failed to load parsed resume", "session_id", sessionID, "media_id", mediaID, "error", err)
		return NewTextErrorResponse(RetrieveContextErrorMessage), nil
	}
	if !ok {
		return NewTextResponse(contexts), nil
	}

	var enriched string
	if gjson.Valid(structured) {
		enriched, err = sjson.SetRaw(contexts, resumeDataKey, structured)
	} else {
		enriched, err = sjson.Set(contexts, resumeDataKey, structured)
	}
	if err != nil {
		slog.Error("Failed to attach parsed resume", "session_id", sessionID, "error", err)
		return NewTextErrorResponse(RetrieveContextErrorMessage), nil
	}
	return NewTextResponse(enriched), nil
}

package proto

import "encoding/json"

type Question struct {
	Question          string `json:"question"`
	CreatedAt         string `json:"createdAt,omitempty"`
	Reference         string `json:"reference,omitempty"`
	Goal              string `json:"goal,omitempty"`
	UsedResumeContext *bool  `json:"hasUsedResumeContext,omitempty"`
	QuestionType      string `json:"lastMainQuestionType,omitempty"`
}

type Session struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	AgentName     string          `json:"agent_name,omitempty"`
	CallID        string          `json:"call_id,omitempty"`
	CallStartedAt int64           `json:"call_started_at,omitempty"`
	Status        string          `json:"status"`
	UsedCredits   int64           `json:"used_credits"`
	Contexts      json.RawMessage `json:"contexts,omitempty"`
	Questions     []Question      `json:"questions"`
	Summary       json.RawMessage `json:"summary,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     int64           `json:"created_at"`
	UpdatedAt     int64           `json:"updated_at"`
}

// CreateSessionRequest creates a session for an account. Contexts holds the
// job, resume and assessment context the interviewer works from.
type CreateSessionRequest struct {
	AccountID string          `json:"account_id"`
	AgentName string          `json:"agent_name,omitempty"`
	Contexts  json.RawMessage `json:"contexts,omitempty"`
	Questions []Question      `json:"questions,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string  `json:"session_id"`
	Session   Session `json:"session"`
}

type LinkSessionRequest struct {
	CallID string `json:"call_id"`
	// CallStartedAt is an RFC 3339 timestamp and may be empty.
	CallStartedAt string `json:"call_started_at,omitempty"`
}

type LinkSessionResponse struct {
	Message            string  `json:"message"`
	Relinked           bool    `json:"relinked"`
	DiscardedExchanges int64   `json:"discarded_exchanges"`
	Session            Session `json:"session"`
}

// SessionStatus is the live view of a session and its account.
type SessionStatus struct {
	SessionID      string     `json:"session_id"`
	Status         string     `json:"status"`
	UsedCredits    int64      `json:"used_credits"`
	AccountCredits int64      `json:"account_credits"`
	CallStartedAt  int64      `json:"call_started_at,omitempty"`
	Questions      []Question `json:"questions"`
}

type SessionPage struct {
	Sessions   []Session `json:"sessions"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
	Total      int64     `json:"total"`
}

type ExchangeUsage struct {
	IsStreamingResponse     bool   `json:"is_streaming_response"`
	ModelVersion            string `json:"model_version"`
	CachedContentTokenCount int64  `json:"cached_content_token_count"`
	CandidatesTokenCount    int64  `json:"candidates_token_count"`
	PromptTokenCount        int64  `json:"prompt_token_count"`
	TotalTokenCount         int64  `json:"total_token_count"`
}

type Exchange struct {
	ID              string          `json:"id"`
	SessionID       string          `json:"session_id"`
	CandidateText   string          `json:"candidate_text"`
	InterviewerText string          `json:"interviewer_text"`
	UsageMetadata   []ExchangeUsage `json:"usage_metadata"`
	CreatedAt       int64           `json:"created_at"`
}

// AnalysisReport is the structured report written at the end of analysis.
type AnalysisReport struct {
	Patience        int      `json:"patience"`
	Preparedness    int      `json:"preparedness"`
	Confidence      int      `json:"confidence"`
	Fluency         int      `json:"fluency"`
	TopStrengths    []string `json:"top_strengths"`
	KeyImprovements []string `json:"key_improvements"`
	Feedback        string   `json:"feedback"`
}

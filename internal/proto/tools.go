package proto

type ToolResponseType string

const (
	ToolResponseTypeText ToolResponseType = "text"
)

type ToolResponse struct {
	Type     ToolResponseType `json:"type"`
	Content  string           `json:"content"`
	Metadata string           `json:"metadata,omitempty"`
	IsError  bool             `json:"is_error"`
}

const RetrieveContextToolName = "retrieveContext"

type RetrieveContextParams struct {
	SessionID string `json:"sessionId,omitempty" jsonschema:"description=The current interview session id"`
}

const RecordMainQuestionToolName = "recordMainQuestion"

type RecordMainQuestionParams struct {
	Question             string `json:"question" jsonschema:"required,description=The main question that was just asked to the candidate"`
	SessionID            string `json:"sessionId,omitempty" jsonschema:"description=The current interview session id"`
	HasUsedResumeContext bool   `json:"hasUsedResumeContext,omitempty" jsonschema:"description=Whether the question was built from the candidate resume"`
	LastMainQuestionType string `json:"lastMainQuestionType,omitempty" jsonschema:"description=The category of the question, for example behavioural or technical"`
	Reference            string `json:"reference,omitempty" jsonschema:"description=Where in the context the question came from"`
	Goal                 string `json:"goal,omitempty" jsonschema:"description=What the question is meant to assess"`
}

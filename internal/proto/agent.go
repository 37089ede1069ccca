package proto

// AgentConfig holds per agent overrides for a turn.
type AgentConfig struct {
	Model           string   `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Tools           []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	ContextStrategy string   `json:"context_strategy,omitempty" yaml:"context_strategy,omitempty"`
}

type Agent struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Prompt      string      `json:"prompt"`
	Config      AgentConfig `json:"config"`
	IsActive    bool        `json:"is_active"`
	ActivatedAt int64       `json:"activated_at,omitempty"`
	CreatedAt   int64       `json:"created_at"`
}

type CreateAgentRequest struct {
	Name     string      `json:"name"`
	Version  string      `json:"version"`
	Prompt   string      `json:"prompt"`
	Config   AgentConfig `json:"config"`
	Activate bool        `json:"activate,omitempty"`
}

type ParseJob struct {
	ID        string `json:"id"`
	MediaID   string `json:"media_id"`
	SessionID string `json:"session_id,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Attempts  int64  `json:"attempts"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type CreateParseJobRequest struct {
	MediaID   string `json:"media_id"`
	SessionID string `json:"session_id,omitempty"`
}

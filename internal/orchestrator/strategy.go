package orchestrator

import (
	"encoding/json"
	"log/slog"

	"github.com/juggyai/juggy/internal/config"
	"github.com/juggyai/juggy/internal/llm/prompt"
	"github.com/juggyai/juggy/internal/message"
	"github.com/juggyai/juggy/internal/proto"
	"github.com/juggyai/juggy/internal/session"
)

// Strategy is the per agent recipe for a turn: which tools the model gets
// and how much of the session goes into its input.
type Strategy struct {
	AgentName       string
	Tools           []string
	ContextStrategy string
}

// strategyFor merges the agent's own configuration over the defaults.
func (o *Orchestrator) strategyFor(agent prompt.Agent) Strategy {
	s := Strategy{
		AgentName:       agent.Name,
		Tools:           o.defaultTools,
		ContextStrategy: o.defaultStrategy,
	}
	if agent.Config.Tools != nil {
		s.Tools = agent.Config.Tools
	}
	switch agent.Config.ContextStrategy {
	case "":
	case config.StrategyQuestionsOnly, config.StrategyQuestionsAndExchanges, config.StrategyFullContext:
		s.ContextStrategy = agent.Config.ContextStrategy
	default:
		slog.Warn("Unknown context strategy, using default", "agent", agent.Name, "strategy", agent.Config.ContextStrategy)
	}
	return s
}

// assemble builds the template data and the provider messages for a turn.
func (s Strategy) assemble(sess session.Session, transcript []proto.ChatMessage) (prompt.Data, []message.Message) {
	messages := message.FromTranscript(transcript)
	data := prompt.Data{InterviewQuestions: sess.Questions}

	switch s.ContextStrategy {
	case config.StrategyQuestionsOnly:
		// Only the candidate's latest utterance is sent.
		if n := len(messages); n > 1 {
			messages = messages[n-1:]
		}
	case config.StrategyFullContext:
		data.OngoingExchanges = exchanges(messages)
		if len(sess.Contexts) > 0 {
			var contexts any
			if err := json.Unmarshal(sess.Contexts, &contexts); err != nil {
				slog.Warn("Session contexts are not valid JSON", "session_id", sess.ID, "error", err)
			} else {
				data.Contexts = contexts
			}
		}
	default:
		data.OngoingExchanges = exchanges(messages)
	}
	return data, messages
}

type exchangeLine struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func exchanges(messages []message.Message) []exchangeLine {
	lines := make([]exchangeLine, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, exchangeLine{Role: string(m.Role), Content: m.Content().Text})
	}
	return lines
}

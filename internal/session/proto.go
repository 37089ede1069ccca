package session

import "github.com/juggyai/juggy/internal/proto"

// Proto returns the wire form of s.
func (s Session) Proto() proto.Session {
	questions := make([]proto.Question, len(s.Questions))
	for i, q := range s.Questions {
		questions[i] = proto.Question(q)
	}
	return proto.Session{
		ID:            s.ID,
		AccountID:     s.AccountID,
		AgentName:     s.AgentName,
		CallID:        s.CallID,
		CallStartedAt: s.CallStartedAt,
		Status:        string(s.Status),
		UsedCredits:   s.UsedCredits,
		Contexts:      s.Contexts,
		Questions:     questions,
		Summary:       s.Summary,
		Metadata:      s.Metadata,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// QuestionsFromProto converts wire questions.
func QuestionsFromProto(questions []proto.Question) []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		out[i] = Question(q)
	}
	return out
}

func (p Page) Proto() proto.SessionPage {
	sessions := make([]proto.Session, len(p.Sessions))
	for i, s := range p.Sessions {
		sessions[i] = s.Proto()
	}
	return proto.SessionPage{
		Sessions:   sessions,
		Page:       p.Page,
		TotalPages: p.TotalPages,
		Total:      p.Total,
	}
}

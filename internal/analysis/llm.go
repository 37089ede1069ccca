package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/juggyai/juggy/internal/llm/provider"
	"github.com/juggyai/juggy/internal/message"
)

const systemPrompt = `You review mock job interviews. Read the transcript and the main questions the interviewer asked, then rate the candidate.

Scores are integers from 1 to 10:
- patience: did the candidate let the interviewer finish and take time to think
- preparedness: did the candidate know the role and their own background
- confidence: did the candidate answer with conviction
- fluency: were the answers clear and well structured

List at most three top strengths and at most three key improvements. Feedback is a short paragraph addressed to the candidate.`

var reportSchema = sync.OnceValue(func() map[string]any {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	raw, err := json.Marshal(reflector.Reflect(&Report{}))
	if err != nil {
		panic(err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		panic(err)
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema
})

// LLMAnalyzer asks the model for a report in structured output mode.
type LLMAnalyzer struct {
	provider provider.Provider
}

func NewLLMAnalyzer(p provider.Provider) *LLMAnalyzer {
	return &LLMAnalyzer{provider: p}
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, in Input) (Report, error) {
	resp, err := a.provider.SendMessages(ctx,
		[]message.Message{message.NewText(message.User, Transcript(in))},
		nil,
		provider.WithSystemMessage(systemPrompt),
		provider.WithResponseFormat(provider.ResponseFormat{
			Name:   "interview_report",
			Schema: reportSchema(),
		}),
	)
	if err != nil {
		return Report{}, err
	}

	var report Report
	if err := json.Unmarshal([]byte(resp.Content), &report); err != nil {
		return Report{}, fmt.Errorf("model returned an invalid report: %w", err)
	}
	return report, nil
}

// Transcript renders the interview for the analysis prompt.
func Transcript(in Input) string {
	var sb strings.Builder
	sb.WriteString("Main questions:\n")
	for i := len(in.Questions) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "- %s\n", in.Questions[i].Question)
	}
	sb.WriteString("\nTranscript:\n")
	for _, ex := range in.Exchanges {
		if ex.CandidateText != "" {
			fmt.Fprintf(&sb, "Candidate: %s\n", ex.CandidateText)
		}
		if ex.InterviewerText != "" {
			fmt.Fprintf(&sb, "Interviewer: %s\n", ex.InterviewerText)
		}
	}
	return sb.String()
}

package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/juggyai/juggy/internal/db"
	"github.com/juggyai/juggy/internal/exchange"
	"github.com/juggyai/juggy/internal/llm/provider"
	"github.com/juggyai/juggy/internal/llm/tools"
	"github.com/juggyai/juggy/internal/message"
	"github.com/juggyai/juggy/internal/session"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	input  Input
	report Report
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, in Input) (Report, error) {
	f.input = in
	return f.report, f.err
}

type fakeProvider struct {
	content string
	opts    provider.CallOptions
	input   []message.Message
}

func (f *fakeProvider) SendMessages(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts ...provider.CallOption) (*provider.ProviderResponse, error) {
	f.opts = provider.NewCallOptions(opts...)
	f.input = messages
	return &provider.ProviderResponse{Content: f.content}, nil
}

func (f *fakeProvider) StreamResponse(ctx context.Context, messages []message.Message, tools []tools.BaseTool, opts ...provider.CallOption) <-chan provider.ProviderEvent {
	ch := make(chan provider.ProviderEvent)
	close(ch)
	return ch
}

func (f *fakeProvider) Model() string { return "fake" }

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func setup(t *testing.T, analyzer Analyzer) (*Service, session.Service, exchange.Service, session.Session) {
	t.Helper()
	ctx := testContext(t)

	store := db.SetupTestStore(t)
	db.CreateTestAccount(t, store, "acc", 30)
	sessions := session.NewService(store)
	exchanges := exchange.NewService(store)

	sess, err := sessions.Create(ctx, session.CreateParams{
		AccountID: "acc",
		Questions: []session.Question{{Question: "Second?"}, {Question: "First?"}},
	})
	require.NoError(t, err)
	return NewService(sessions, exchanges, analyzer), sessions, exchanges, sess
}

func record(t *testing.T, exchanges exchange.Service, sess session.Session, candidate, interviewer string) {
	t.Helper()
	_, err := exchanges.Record(testContext(t), exchange.RecordParams{
		SessionID:       sess.ID,
		AccountID:       sess.AccountID,
		CandidateText:   candidate,
		InterviewerText: interviewer,
	})
	require.NoError(t, err)
}

func TestService_Analyse(t *testing.T) {
	t.Parallel()

	analyzer := &fakeAnalyzer{report: Report{Patience: 7, Feedback: "Good start."}}
	svc, sessions, exchanges, sess := setup(t, analyzer)
	ctx := testContext(t)

	record(t, exchanges, sess, "Hi", "First?")
	record(t, exchanges, sess, "An answer", "Second?")

	_, _, err := svc.Analyse(ctx, sess.ID)
	require.ErrorIs(t, err, ErrNotCompleted)

	_, err = sessions.End(ctx, sess.ID)
	require.NoError(t, err)

	got, report, err := svc.Analyse(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, 7, report.Patience)
	require.Equal(t, session.StatusAnalysed, got.Status)
	require.Len(t, analyzer.input.Exchanges, 2)
	require.Equal(t, "Hi", analyzer.input.Exchanges[0].CandidateText)
	require.Len(t, analyzer.input.Questions, 2)

	var stored Report
	require.NoError(t, json.Unmarshal(got.Summary, &stored))
	require.Equal(t, "Good start.", stored.Feedback)

	_, _, err = svc.Analyse(ctx, sess.ID)
	require.ErrorIs(t, err, ErrAlreadyAnalysed)
}

func TestService_AnalyseFailures(t *testing.T) {
	t.Parallel()

	analyzer := &fakeAnalyzer{err: errors.New("model down")}
	svc, sessions, exchanges, sess := setup(t, analyzer)
	ctx := testContext(t)

	_, err := sessions.End(ctx, sess.ID)
	require.NoError(t, err)

	_, _, err = svc.Analyse(ctx, sess.ID)
	require.ErrorIs(t, err, ErrNoExchanges)

	record(t, exchanges, sess, "Hi", "Hello")
	_, _, err = svc.Analyse(ctx, sess.ID)
	require.ErrorContains(t, err, "model down")

	got, err := sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, session.StatusCompleted, got.Status)

	_, _, err = svc.Analyse(ctx, "missing")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestLLMAnalyzer(t *testing.T) {
	t.Parallel()

	fp := &fakeProvider{content: `{"patience":6,"preparedness":8,"confidence":7,"fluency":9,"top_strengths":["clear"],"key_improvements":["depth"],"feedback":"Well done."}`}
	analyzer := NewLLMAnalyzer(fp)

	report, err := analyzer.Analyze(testContext(t), Input{
		Questions: []session.Question{{Question: "Second?"}, {Question: "First?"}},
		Exchanges: []exchange.Exchange{
			{CandidateText: "Hi", InterviewerText: "First?"},
			{CandidateText: "Answer", InterviewerText: "Second?"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 9, report.Fluency)
	require.Equal(t, []string{"clear"}, report.TopStrengths)

	require.NotNil(t, fp.opts.ResponseFormat)
	require.Equal(t, "interview_report", fp.opts.ResponseFormat.Name)
	props := fp.opts.ResponseFormat.Schema["properties"].(map[string]any)
	require.Contains(t, props, "key_improvements")
	require.NotContains(t, fp.opts.ResponseFormat.Schema, "$schema")
	require.NotEmpty(t, fp.opts.SystemMessage)

	require.Len(t, fp.input, 1)
	require.Equal(t,
		"Main questions:\n- First?\n- Second?\n\nTranscript:\nCandidate: Hi\nInterviewer: First?\nCandidate: Answer\nInterviewer: Second?\n",
		fp.input[0].Content().Text)
}

func TestLLMAnalyzer_InvalidReport(t *testing.T) {
	t.Parallel()

	_, err := NewLLMAnalyzer(&fakeProvider{content: "not json"}).Analyze(testContext(t), Input{})
	require.ErrorContains(t, err, "invalid report")
}

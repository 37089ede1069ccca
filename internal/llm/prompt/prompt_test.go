package prompt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/juggyai/juggy/internal/db"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (Service, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return NewService(db.SetupTestStore(t)), ctx
}

func TestService_ActiveVersion(t *testing.T) {
	t.Parallel()

	svc, ctx := setup(t)

	_, err := svc.Active(ctx, "interviewer_agent")
	require.ErrorIs(t, err, ErrNoActive)

	v1, err := svc.Create(ctx, CreateParams{Name: "interviewer_agent", Version: "v1", Prompt: "first", Activate: true})
	require.NoError(t, err)
	require.Equal(t, AgentID("interviewer_agent", "v1"), v1.ID)
	require.True(t, v1.IsActive)

	v2, err := svc.Create(ctx, CreateParams{
		Name:    "interviewer_agent",
		Version: "v2",
		Prompt:  "second",
		Config:  AgentConfig{Tools: []string{"retrieveContext"}, ContextStrategy: "full_context"},
	})
	require.NoError(t, err)
	require.False(t, v2.IsActive)

	active, err := svc.Active(ctx, "interviewer_agent")
	require.NoError(t, err)
	require.Equal(t, v1.ID, active.ID)

	_, err = svc.SetActive(ctx, v2.ID)
	require.NoError(t, err)
	active, err = svc.Active(ctx, "interviewer_agent")
	require.NoError(t, err)
	require.Equal(t, v2.ID, active.ID)
	require.Equal(t, []string{"retrieveContext"}, active.Config.Tools)

	old, err := svc.Get(ctx, v1.ID)
	require.NoError(t, err)
	require.False(t, old.IsActive)

	_, err = svc.Create(ctx, CreateParams{Name: "interviewer_agent", Version: "v2", Prompt: "dup"})
	require.Error(t, err)

	_, err = svc.SetActive(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestService_CreateRejectsBadTemplate(t *testing.T) {
	t.Parallel()

	svc, ctx := setup(t)
	_, err := svc.Create(ctx, CreateParams{Name: "a", Version: "v1", Prompt: "{{ .Contexts "})
	require.Error(t, err)
}

func TestAgent_Render(t *testing.T) {
	t.Parallel()

	agent := Agent{
		Name:    "interviewer_agent",
		Version: "v1",
		Prompt:  "Questions so far:\n{{ json .InterviewQuestions }}\n{{ if .Contexts }}Role: {{ .Contexts.role }}{{ end }}",
	}
	out, err := agent.Render(Data{
		InterviewQuestions: []map[string]string{{"question": "Why Go?"}},
		Contexts:           map[string]any{"role": "backend"},
	})
	require.NoError(t, err)
	require.Contains(t, out, `"question": "Why Go?"`)
	require.Contains(t, out, "Role: backend")

	plain := Agent{Prompt: "You are a friendly interviewer."}
	out, err = plain.Render(Data{})
	require.NoError(t, err)
	require.Equal(t, "You are a friendly interviewer.", out)
}

func TestImport(t *testing.T) {
	t.Parallel()

	svc, ctx := setup(t)
	f, err := ReadFile(strings.NewReader(`
agents:
  - name: interviewer_agent
    version: v1
    prompt: first
  - name: interviewer_agent
    version: v2
    active: true
    config:
      tools: [retrieveContext, recordMainQuestion]
      context_strategy: questions_only
    prompt: |
      second
`))
	require.NoError(t, err)
	require.Len(t, f.Agents, 2)

	imported, err := Import(ctx, svc, f)
	require.NoError(t, err)
	require.Len(t, imported, 2)

	active, err := svc.Active(ctx, "interviewer_agent")
	require.NoError(t, err)
	require.Equal(t, "v2", active.Version)
	require.Equal(t, "questions_only", active.Config.ContextStrategy)

	// Running it again changes nothing.
	_, err = Import(ctx, svc, f)
	require.NoError(t, err)
	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = ReadFile(strings.NewReader("agents:\n  - name: x\n    unknown: 1\n"))
	require.Error(t, err)
}

// Package orchestrator runs interview turns: it meters the session, picks
// the agent prompt and streams the model's answer back to the caller.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/juggyai/juggy/internal/account"
	"github.com/juggyai/juggy/internal/bridge"
	"github.com/juggyai/juggy/internal/exchange"
	"github.com/juggyai/juggy/internal/llm/prompt"
	"github.com/juggyai/juggy/internal/llm/provider"
	"github.com/juggyai/juggy/internal/llm/tools"
	"github.com/juggyai/juggy/internal/log"
	"github.com/juggyai/juggy/internal/proto"
	"github.com/juggyai/juggy/internal/session"
)

// TerminationMessage is the text of the termination stream.
const TerminationMessage = "Session terminated due to insufficient credits or time limit."

const recordTimeout = 10 * time.Second

var ErrMissingCall = errors.New("call id is required")

type Config struct {
	Sessions  session.Service
	Accounts  account.Service
	Exchanges exchange.Service
	Agents    prompt.Service
	Bridge    *bridge.Bridge
	Tools     []tools.BaseTool
	// ConcurrentTools runs the tool calls of one model round in parallel.
	ConcurrentTools bool
	DefaultAgent    string
	DefaultStrategy string
	// Model names the model in canned streams.
	Model string
}

type Orchestrator struct {
	sessions  session.Service
	accounts  account.Service
	exchanges exchange.Service
	agents    prompt.Service
	bridge    *bridge.Bridge

	tools           map[string]tools.BaseTool
	defaultTools    []string
	concurrentTools bool
	defaultAgent    string
	defaultStrategy string
	model           string

	recording sync.WaitGroup
}

func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		sessions:        cfg.Sessions,
		accounts:        cfg.Accounts,
		exchanges:       cfg.Exchanges,
		agents:          cfg.Agents,
		bridge:          cfg.Bridge,
		tools:           make(map[string]tools.BaseTool, len(cfg.Tools)),
		concurrentTools: cfg.ConcurrentTools,
		defaultAgent:    cfg.DefaultAgent,
		defaultStrategy: cfg.DefaultStrategy,
		model:           cfg.Model,
	}
	for _, t := range cfg.Tools {
		o.tools[t.Name()] = t
		o.defaultTools = append(o.defaultTools, t.Name())
	}
	return o
}

// Turn handles one candidate turn. Any failure after the request has been
// validated is reported inside the returned stream, so the error return
// is only set for requests that cannot be served at all.
//
// agentName overrides the agent bound to the session when set.
func (o *Orchestrator) Turn(ctx context.Context, req proto.ChatCompletionRequest, agentName string) (*bridge.Stream, error) {
	if req.Call == nil || req.Call.ID == "" {
		return nil, ErrMissingCall
	}
	startedAt, err := req.Call.StartedAt()
	if err != nil {
		return nil, err
	}

	turn, err := o.sessions.BeginTurn(ctx, session.TurnParams{
		CallID:        req.Call.ID,
		CallStartedAt: startedAt,
	})
	switch {
	case errors.Is(err, session.ErrNotFound):
		slog.Warn("Turn for a call without session", "call_id", req.Call.ID)
		return bridge.Canned(o.model, TerminationMessage), nil
	case err != nil:
		slog.Error("Failed to meter turn", "call_id", req.Call.ID, "error", err)
		return bridge.Failed(fmt.Errorf("failed to meter turn: %w", err)), nil
	}

	sess := turn.Session
	if turn.Terminated() {
		slog.Info("Session terminated",
			"session_id", sess.ID,
			"status", sess.Status,
			"used_credits", sess.UsedCredits,
			"credits", turn.Credits,
		)
		return bridge.Canned(o.model, TerminationMessage), nil
	}

	if agentName == "" {
		agentName = sess.AgentName
	}
	if agentName == "" {
		agentName = o.defaultAgent
	}
	agent, err := o.agents.Active(ctx, agentName)
	if err != nil {
		slog.Error("Failed to resolve agent prompt", "session_id", sess.ID, "agent", agentName, "error", err)
		return bridge.Failed(fmt.Errorf("failed to resolve agent %s: %w", agentName, err)), nil
	}

	strategy := o.strategyFor(agent)
	data, messages := strategy.assemble(sess, req.Messages)
	system, err := agent.Render(data)
	if err != nil {
		slog.Error("Failed to render agent prompt", "session_id", sess.ID, "agent", agentName, "error", err)
		return bridge.Failed(err), nil
	}

	opts := []provider.CallOption{
		provider.WithSystemMessage(system),
		provider.WithTemperature(agent.Config.Temperature),
	}
	if agent.Config.Model != "" {
		opts = append(opts, provider.WithCallModel(agent.Config.Model))
	}

	toolCtx := tools.WithSession(ctx, sess.ID, req.Call.ID)
	stream := o.bridge.Stream(toolCtx, bridge.Request{
		Messages:   messages,
		Dispatcher: o.dispatcher(strategy),
		Options:    opts,
	})

	o.recording.Add(1)
	go o.record(context.WithoutCancel(ctx), sess, req.LastUserMessage(), stream)

	return stream, nil
}

func (o *Orchestrator) dispatcher(s Strategy) *tools.Dispatcher {
	if len(s.Tools) == 0 {
		return nil
	}
	selected := make([]tools.BaseTool, 0, len(s.Tools))
	for _, name := range s.Tools {
		t, ok := o.tools[name]
		if !ok {
			slog.Warn("Agent declares an unknown tool", "agent", s.AgentName, "tool", name)
			continue
		}
		selected = append(selected, t)
	}
	if len(selected) == 0 {
		return nil
	}
	return tools.NewDispatcher(o.concurrentTools, selected...)
}

// record stores the exchange once the stream is drained. It never fails
// the turn.
func (o *Orchestrator) record(ctx context.Context, sess session.Session, candidate string, stream *bridge.Stream) {
	defer o.recording.Done()
	defer log.RecoverPanic("exchange-recorder", nil)

	result := stream.Wait()

	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	ex, err := o.exchanges.Record(ctx, exchange.RecordParams{
		SessionID:       sess.ID,
		AccountID:       sess.AccountID,
		CandidateText:   candidate,
		InterviewerText: result.Content,
		UsageMetadata:   result.Metadata,
	})
	if err != nil {
		slog.Error("Failed to record exchange", "session_id", sess.ID, "stream_id", stream.ID, "error", err)
		return
	}
	slog.Debug("Recorded exchange", "session_id", sess.ID, "exchange_id", ex.ID, "stream_error", result.Err)
}

// Wait blocks until every pending exchange has been recorded.
func (o *Orchestrator) Wait() {
	o.recording.Wait()
}

// Status reports a session together with its account balance.
func (o *Orchestrator) Status(ctx context.Context, id string) (proto.SessionStatus, error) {
	sess, err := o.sessions.Get(ctx, id)
	if err != nil {
		return proto.SessionStatus{}, err
	}
	acc, err := o.accounts.Get(ctx, sess.AccountID)
	if err != nil {
		return proto.SessionStatus{}, fmt.Errorf("failed to get account of session %s: %w", id, err)
	}

	return proto.SessionStatus{
		SessionID:      sess.ID,
		Status:         string(sess.Status),
		UsedCredits:    sess.UsedCredits,
		AccountCredits: acc.Credits,
		CallStartedAt:  sess.CallStartedAt,
		Questions:      sess.Proto().Questions,
	}, nil
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/juggyai/juggy/internal/account"
	"github.com/juggyai/juggy/internal/analysis"
	"github.com/juggyai/juggy/internal/llm/prompt"
	"github.com/juggyai/juggy/internal/log"
	"github.com/juggyai/juggy/internal/parsejob"
	"github.com/juggyai/juggy/internal/proto"
	"github.com/juggyai/juggy/internal/session"
	"github.com/juggyai/juggy/internal/version"
)

type controllerV1 struct {
	*Server
}

func (c *controllerV1) handleGetHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (c *controllerV1) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	jsonEncode(w, proto.VersionInfo{
		Version:   version.Version,
		Commit:    version.Commit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	})
}

func (c *controllerV1) handlePostControl(w http.ResponseWriter, r *http.Request) {
	var req proto.ServerControl
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logError(r, "failed to decode request", "error", err)
		jsonError(w, http.StatusBadRequest, "failed to decode request")
		return
	}

	switch req.Command {
	case "shutdown":
		go func() {
			slog.Info("shutting down server...")
			if err := c.Shutdown(context.Background()); err != nil {
				c.logError(r, "failed to shutdown server", "error", err)
			}
		}()
	default:
		c.logError(r, "unknown command", "command", req.Command)
		jsonError(w, http.StatusBadRequest, "unknown command")
		return
	}
}

func (c *controllerV1) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := *c.cfg
	// Environment references are safe to show, literal keys are not.
	if key := cfg.Provider.APIKey; key != "" && !strings.HasPrefix(key, "$") {
		cfg.Provider.APIKey = log.MaskAPIKey(key)
	}
	jsonEncode(w, cfg)
}

func (c *controllerV1) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	flusher := http.NewResponseController(w)
	events := c.app.Subscribe(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			c.logDebug(r, "stopping event stream")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.logDebug(r, "sending event", "event", fmt.Sprintf("%T", ev))
			data, err := json.Marshal(ev)
			if err != nil {
				c.logError(r, "failed to marshal event", "error", err)
				continue
			}

			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (c *controllerV1) handleGetTurns(w http.ResponseWriter, r *http.Request) {
	jsonEncode(w, c.app.GetTurns())
}

func (c *controllerV1) handleGetTurn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	turn, ok := c.app.GetTurn(id)
	if !ok {
		jsonError(w, http.StatusNotFound, "turn not found")
		return
	}
	jsonEncode(w, turn)
}

func (c *controllerV1) handlePostAccounts(w http.ResponseWriter, r *http.Request) {
	var req proto.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logError(r, "failed to decode request", "error", err)
		jsonError(w, http.StatusBadRequest, "failed to decode request")
		return
	}
	if req.Credits < 0 {
		jsonError(w, http.StatusBadRequest, "credits must not be negative")
		return
	}

	acc, err := c.app.Accounts.Create(r.Context(), req.Credits)
	if err != nil {
		c.logError(r, "failed to create account", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create account")
		return
	}
	jsonEncode(w, acc.Proto())
}

func (c *controllerV1) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	acc, err := c.app.Accounts.Get(r.Context(), id)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to get account", "id", id)
		return
	}
	jsonEncode(w, acc.Proto())
}

func (c *controllerV1) handlePostAccountCredits(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req proto.AddCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logError(r, "failed to decode request", "error", err)
		jsonError(w, http.StatusBadRequest, "failed to decode request")
		return
	}
	if req.Amount <= 0 {
		jsonError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	acc, err := c.app.Accounts.AddCredits(r.Context(), id, req.Amount)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to add credits", "id", id)
		return
	}
	jsonEncode(w, acc.Proto())
}

func (c *controllerV1) handleGetAccountSessions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = n
	}

	p, err := c.app.Sessions.List(r.Context(), id, page)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to list sessions", "account_id", id)
		return
	}
	jsonEncode(w, p.Proto())
}

func (c *controllerV1) handleGetAccountSessionsToAnalyse(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sessions, err := c.app.Sessions.ListToAnalyse(r.Context(), id)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to list sessions to analyse", "account_id", id)
		return
	}
	out := make([]proto.Session, len(sessions))
	for i, s := range sessions {
		out[i] = s.Proto()
	}
	jsonEncode(w, out)
}

func (c *controllerV1) handlePostSessions(w http.ResponseWriter, r *http.Request) {
	var req proto.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logError(r, "failed to decode request", "error", err)
		jsonError(w, http.StatusBadRequest, "failed to decode request")
		return
	}
	if req.AccountID == "" {
		jsonError(w, http.StatusBadRequest, "account_id is required")
		return
	}
	if _, err := c.app.Accounts.Get(r.Context(), req.AccountID); err != nil {
		c.handleServiceError(w, r, err, "failed to get account", "account_id", req.AccountID)
		return
	}

	sess, err := c.app.Sessions.Create(r.Context(), session.CreateParams{
		AccountID: req.AccountID,
		AgentName: req.AgentName,
		Contexts:  req.Contexts,
		Questions: session.QuestionsFromProto(req.Questions),
		Metadata:  req.Metadata,
	})
	if err != nil {
		c.logError(r, "failed to create session", "error", err)
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonEncode(w, proto.CreateSessionResponse{
		SessionID: sess.ID,
		Session:   sess.Proto(),
	})
}

func (c *controllerV1) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := c.app.Sessions.Get(r.Context(), id)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to get session", "id", id)
		return
	}
	jsonEncode(w, sess.Proto())
}

func (c *controllerV1) handlePostSessionLink(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req proto.LinkSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logError(r, "failed to decode request", "error", err)
		jsonError(w, http.StatusBadRequest, "failed to decode request")
		return
	}
	if req.CallID == "" {
		jsonError(w, http.StatusBadRequest, "call_id is required")
		return
	}
	var startedAt time.Time
	if req.CallStartedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, req.CallStartedAt)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid call_started_at")
			return
		}
		startedAt = t
	}

	res, err := c.app.Sessions.Link(r.Context(), id, req.CallID, startedAt)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to link session", "id", id, "call_id", req.CallID)
		return
	}
	jsonEncode(w, proto.LinkSessionResponse{
		Message:            fmt.Sprintf("linked call %s to session %s", req.CallID, id),
		Relinked:           res.Relinked,
		DiscardedExchanges: res.DiscardedExchanges,
		Session:            res.Session.Proto(),
	})
}

func (c *controllerV1) handlePostSessionEnd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := c.app.Sessions.End(r.Context(), id)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to end session", "id", id)
		return
	}
	jsonEncode(w, sess.Proto())
}

func (c *controllerV1) handlePostSessionAnalyse(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, _, err := c.app.Analysis.Analyse(r.Context(), id)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to analyse session", "id", id)
		return
	}
	jsonEncode(w, sess.Proto())
}

func (c *controllerV1) handleGetSessionStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status, err := c.app.Orchestrator.Status(r.Context(), id)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to get session status", "id", id)
		return
	}
	jsonEncode(w, status)
}

func (c *controllerV1) handleGetSessionExchanges(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := c.app.Sessions.Get(r.Context(), id); err != nil {
		c.handleServiceError(w, r, err, "failed to get session", "id", id)
		return
	}
	exchanges, err := c.app.Exchanges.List(r.Context(), id)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to list exchanges", "id", id)
		return
	}
	out := make([]proto.Exchange, len(exchanges))
	for i, e := range exchanges {
		out[i] = e.Proto()
	}
	jsonEncode(w, out)
}

func (c *controllerV1) handleGetAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := c.app.Agents.List(r.Context())
	if err != nil {
		c.handleServiceError(w, r, err, "failed to list agents")
		return
	}
	out := make([]proto.Agent, len(agents))
	for i, a := range agents {
		out[i] = a.Proto()
	}
	jsonEncode(w, out)
}

func (c *controllerV1) handlePostAgents(w http.ResponseWriter, r *http.Request) {
	var req proto.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logError(r, "failed to decode request", "error", err)
		jsonError(w, http.StatusBadRequest, "failed to decode request")
		return
	}

	agent, err := c.app.Agents.Create(r.Context(), prompt.CreateParams{
		Name:     req.Name,
		Version:  req.Version,
		Prompt:   req.Prompt,
		Config:   req.Config,
		Activate: req.Activate,
	})
	if err != nil {
		c.logError(r, "failed to create agent", "error", err, "name", req.Name)
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonEncode(w, agent.Proto())
}

func (c *controllerV1) handlePostAgentActivate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	agent, err := c.app.Agents.SetActive(r.Context(), id)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to activate agent", "id", id)
		return
	}
	jsonEncode(w, agent.Proto())
}

func (c *controllerV1) handlePostParseJobs(w http.ResponseWriter, r *http.Request) {
	var req proto.CreateParseJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logError(r, "failed to decode request", "error", err)
		jsonError(w, http.StatusBadRequest, "failed to decode request")
		return
	}
	if req.MediaID == "" {
		jsonError(w, http.StatusBadRequest, "media_id is required")
		return
	}

	job, err := c.app.ParseJobs.Enqueue(r.Context(), req.MediaID, req.SessionID)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to enqueue parse job", "media_id", req.MediaID)
		return
	}
	jsonEncode(w, job.Proto())
}

func (c *controllerV1) handleGetParseJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := c.app.ParseJobs.Get(r.Context(), id)
	if err != nil {
		c.handleServiceError(w, r, err, "failed to get parse job", "id", id)
		return
	}
	jsonEncode(w, job.Proto())
}

// handleServiceError maps the errors of the domain services to a status.
func (c *controllerV1) handleServiceError(w http.ResponseWriter, r *http.Request, err error, msg string, args ...any) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		c.logError(r, msg, append(args, "error", err)...)
		jsonError(w, status, msg)
		return
	}
	c.logDebug(r, msg, append(args, "error", err)...)
	jsonError(w, status, err.Error())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, prompt.ErrNotFound),
		errors.Is(err, parsejob.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrLinkRejected),
		errors.Is(err, session.ErrCallInUse),
		errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, analysis.ErrNotCompleted),
		errors.Is(err, analysis.ErrAlreadyAnalysed),
		errors.Is(err, analysis.ErrNoExchanges):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func jsonEncode(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(proto.Error{Message: message})
}

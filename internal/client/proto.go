package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/juggyai/juggy/internal/proto"
	"github.com/juggyai/juggy/internal/pubsub"
)

// Error is a reply with an error status.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

func checkStatus(rsp *http.Response) error {
	if rsp.StatusCode < http.StatusBadRequest {
		return nil
	}
	var e proto.Error
	_ = json.NewDecoder(rsp.Body).Decode(&e)
	return &Error{StatusCode: rsp.StatusCode, Message: e.Message}
}

// IsStatus reports whether err is a server reply with the given status.
func IsStatus(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == status
}

func (c *Client) CreateAccount(ctx context.Context, credits int64) (*proto.Account, error) {
	var acc proto.Account
	if err := c.do(ctx, http.MethodPost, "/accounts", nil, proto.CreateAccountRequest{Credits: credits}, &acc); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return &acc, nil
}

func (c *Client) GetAccount(ctx context.Context, id string) (*proto.Account, error) {
	var acc proto.Account
	if err := c.do(ctx, http.MethodGet, "/accounts/"+id, nil, nil, &acc); err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acc, nil
}

func (c *Client) AddCredits(ctx context.Context, id string, amount int64) (*proto.Account, error) {
	var acc proto.Account
	if err := c.do(ctx, http.MethodPost, "/accounts/"+id+"/credits", nil, proto.AddCreditsRequest{Amount: amount}, &acc); err != nil {
		return nil, fmt.Errorf("failed to add credits: %w", err)
	}
	return &acc, nil
}

func (c *Client) ListSessions(ctx context.Context, accountID string, page int) (*proto.SessionPage, error) {
	var p proto.SessionPage
	query := url.Values{"page": []string{strconv.Itoa(page)}}
	if err := c.do(ctx, http.MethodGet, "/accounts/"+accountID+"/sessions", query, nil, &p); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return &p, nil
}

func (c *Client) ListSessionsToAnalyse(ctx context.Context, accountID string) ([]proto.Session, error) {
	var sessions []proto.Session
	if err := c.do(ctx, http.MethodGet, "/accounts/"+accountID+"/sessions/to-analyse", nil, nil, &sessions); err != nil {
		return nil, fmt.Errorf("failed to list sessions to analyse: %w", err)
	}
	return sessions, nil
}

func (c *Client) CreateSession(ctx context.Context, req proto.CreateSessionRequest) (*proto.CreateSessionResponse, error) {
	var rsp proto.CreateSessionResponse
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, req, &rsp); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &rsp, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*proto.Session, error) {
	var sess proto.Session
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, nil, &sess); err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &sess, nil
}

func (c *Client) LinkSession(ctx context.Context, id string, req proto.LinkSessionRequest) (*proto.LinkSessionResponse, error) {
	var rsp proto.LinkSessionResponse
	if err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/link", nil, req, &rsp); err != nil {
		return nil, fmt.Errorf("failed to link session: %w", err)
	}
	return &rsp, nil
}

func (c *Client) EndSession(ctx context.Context, id string) (*proto.Session, error) {
	var sess proto.Session
	if err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/end", nil, nil, &sess); err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}
	return &sess, nil
}

func (c *Client) AnalyseSession(ctx context.Context, id string) (*proto.Session, error) {
	var sess proto.Session
	if err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/analyse", nil, nil, &sess); err != nil {
		return nil, fmt.Errorf("failed to analyse session: %w", err)
	}
	return &sess, nil
}

func (c *Client) SessionStatus(ctx context.Context, id string) (*proto.SessionStatus, error) {
	var status proto.SessionStatus
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id+"/status", nil, nil, &status); err != nil {
		return nil, fmt.Errorf("failed to get session status: %w", err)
	}
	return &status, nil
}

func (c *Client) ListExchanges(ctx context.Context, sessionID string) ([]proto.Exchange, error) {
	var exchanges []proto.Exchange
	if err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID+"/exchanges", nil, nil, &exchanges); err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}
	return exchanges, nil
}

func (c *Client) ListAgents(ctx context.Context) ([]proto.Agent, error) {
	var agents []proto.Agent
	if err := c.do(ctx, http.MethodGet, "/agents", nil, nil, &agents); err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return agents, nil
}

func (c *Client) CreateAgent(ctx context.Context, req proto.CreateAgentRequest) (*proto.Agent, error) {
	var agent proto.Agent
	if err := c.do(ctx, http.MethodPost, "/agents", nil, req, &agent); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return &agent, nil
}

func (c *Client) ActivateAgent(ctx context.Context, id string) (*proto.Agent, error) {
	var agent proto.Agent
	if err := c.do(ctx, http.MethodPost, "/agents/"+id+"/activate", nil, nil, &agent); err != nil {
		return nil, fmt.Errorf("failed to activate agent: %w", err)
	}
	return &agent, nil
}

func (c *Client) CreateParseJob(ctx context.Context, req proto.CreateParseJobRequest) (*proto.ParseJob, error) {
	var job proto.ParseJob
	if err := c.do(ctx, http.MethodPost, "/parse-jobs", nil, req, &job); err != nil {
		return nil, fmt.Errorf("failed to create parse job: %w", err)
	}
	return &job, nil
}

func (c *Client) GetParseJob(ctx context.Context, id string) (*proto.ParseJob, error) {
	var job proto.ParseJob
	if err := c.do(ctx, http.MethodGet, "/parse-jobs/"+id, nil, nil, &job); err != nil {
		return nil, fmt.Errorf("failed to get parse job: %w", err)
	}
	return &job, nil
}

// GetTurns lists the turns that are still streaming.
func (c *Client) GetTurns(ctx context.Context) ([]proto.Turn, error) {
	var turns []proto.Turn
	if err := c.do(ctx, http.MethodGet, "/turns", nil, nil, &turns); err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	return turns, nil
}

func (c *Client) GetTurn(ctx context.Context, streamID string) (*proto.Turn, error) {
	var turn proto.Turn
	if err := c.do(ctx, http.MethodGet, "/turns/"+streamID, nil, nil, &turn); err != nil {
		return nil, fmt.Errorf("failed to get turn: %w", err)
	}
	return &turn, nil
}

// Chat sends a streamed turn and calls fn for every chunk until the done
// marker. An error chunk ends the turn with an error.
func (c *Client) Chat(ctx context.Context, req proto.ChatCompletionRequest, agent string, fn func(proto.ChatCompletionChunk) error) error {
	stream := true
	req.Stream = &stream
	var query url.Values
	if agent != "" {
		query = url.Values{"agent": []string{agent}}
	}

	rsp, err := c.post(ctx, "/chat/completions", query, jsonBody(req), http.Header{
		"Content-Type": []string{"application/json"},
		"Accept":       []string{"text/event-stream"},
	})
	if err != nil {
		return fmt.Errorf("failed to send turn: %w", err)
	}
	defer rsp.Body.Close()
	if err := checkStatus(rsp); err != nil {
		return fmt.Errorf("failed to send turn: %w", err)
	}

	scr := bufio.NewReader(rsp.Body)
	for {
		line, err := scr.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			return errors.New("turn stream ended without done marker")
		}
		if err != nil {
			return fmt.Errorf("failed to read turn stream: %w", err)
		}
		data, ok := bytes.CutPrefix(bytes.TrimSpace(line), []byte("data:"))
		if !ok {
			continue
		}
		data = bytes.TrimSpace(data)
		if string(data) == "[DONE]" {
			return nil
		}

		var chunk struct {
			proto.ChatCompletionChunk
			Error string `json:"error"`
		}
		if err := json.Unmarshal(data, &chunk); err != nil {
			return fmt.Errorf("failed to decode chunk: %w", err)
		}
		if chunk.Error != "" {
			return errors.New(chunk.Error)
		}
		if err := fn(chunk.ChatCompletionChunk); err != nil {
			return err
		}
	}
}

// SubscribeEvents streams session, exchange, parse job and turn events.
// The channel is closed when ctx is done or the server goes away.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan any, error) {
	events := make(chan any, 100)
	rsp, err := c.get(ctx, "/events", nil, http.Header{
		"Accept":        []string{"text/event-stream"},
		"Cache-Control": []string{"no-cache"},
		"Connection":    []string{"keep-alive"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}

	if rsp.StatusCode != http.StatusOK {
		rsp.Body.Close()
		return nil, fmt.Errorf("failed to subscribe to events: status code %d", rsp.StatusCode)
	}

	go func() {
		defer close(events)
		defer rsp.Body.Close()

		scr := bufio.NewReader(rsp.Body)
		for {
			line, err := scr.ReadBytes('\n')
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					slog.Error("reading from events stream", "error", err)
				}
				return
			}
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				// End of an event
				continue
			}

			data, ok := bytes.CutPrefix(line, []byte("data:"))
			if !ok {
				slog.Warn("invalid event format", "line", string(line))
				continue
			}

			ev, err := decodeEvent(bytes.TrimSpace(data))
			if err != nil {
				slog.Warn("skipping event", "error", err)
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func decodeEvent(data []byte) (any, error) {
	var head struct {
		Kind pubsub.PayloadType `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("unmarshaling event: %w", err)
	}

	switch head.Kind {
	case pubsub.PayloadTypeSession:
		return unmarshalEvent[proto.Session](data)
	case pubsub.PayloadTypeExchange:
		return unmarshalEvent[proto.Exchange](data)
	case pubsub.PayloadTypeParseJob:
		return unmarshalEvent[proto.ParseJob](data)
	case pubsub.PayloadTypeTurn:
		return unmarshalEvent[proto.Turn](data)
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Kind)
	}
}

func unmarshalEvent[T any](data []byte) (pubsub.Event[T], error) {
	var e pubsub.Event[T]
	err := json.Unmarshal(data, &e)
	return e, err
}

func jsonBody(v any) *bytes.Buffer {
	b := new(bytes.Buffer)
	m, _ := json.Marshal(v)
	b.Write(m)
	return b
}

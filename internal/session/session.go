package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/juggyai/juggy/internal/credit"
	"github.com/juggyai/juggy/internal/csync"
	"github.com/juggyai/juggy/internal/db"
	"github.com/juggyai/juggy/internal/pubsub"
)

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusActive     Status = "ACTIVE"
	StatusCompleted  Status = "COMPLETED"
	StatusAnalysed   Status = "ANALYSED"
	StatusTerminated Status = "TERMINATED"
)

// Closed reports whether the session no longer accepts turns.
func (s Status) Closed() bool {
	switch s {
	case StatusCompleted, StatusAnalysed, StatusTerminated:
		return true
	}
	return false
}

// PageSize is the number of sessions returned per listing page.
const PageSize = 5

var (
	ErrNotFound          = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrCallInUse         = errors.New("call is already linked to another session")
)

// Question is one main interview question, newest first in a session.
type Question struct {
	Question          string `json:"question"`
	CreatedAt         string `json:"createdAt,omitempty"`
	Reference         string `json:"reference,omitempty"`
	Goal              string `json:"goal,omitempty"`
	UsedResumeContext *bool  `json:"hasUsedResumeContext,omitempty"`
	QuestionType      string `json:"lastMainQuestionType,omitempty"`
}

type Session struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	AgentName       string          `json:"agent_name,omitempty"`
	CallID          string          `json:"call_id,omitempty"`
	CallStartedAt   int64           `json:"call_started_at,omitempty"`
	CallBaseCredits int64           `json:"call_base_credits"`
	Status          Status          `json:"status"`
	UsedCredits     int64           `json:"used_credits"`
	Contexts        json.RawMessage `json:"contexts"`
	Questions       []Question      `json:"questions"`
	Summary         json.RawMessage `json:"summary,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedAt       int64           `json:"created_at"`
	UpdatedAt       int64           `json:"updated_at"`
}

func (Session) PayloadType() pubsub.PayloadType { return pubsub.PayloadTypeSession }

// CallUsedCredits is the number of minutes billed for the current call.
func (s Session) CallUsedCredits() int64 {
	return s.UsedCredits - s.CallBaseCredits
}

type CreateParams struct {
	AccountID string
	AgentName string
	Contexts  json.RawMessage
	Questions []Question
	Metadata  json.RawMessage
}

// Page is one page of an account's sessions, newest first.
type Page struct {
	Sessions   []Session `json:"sessions"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
	Total      int64     `json:"total"`
}

type Service interface {
	pubsub.Subscriber[Session]
	Create(ctx context.Context, params CreateParams) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	GetByCallID(ctx context.Context, callID string) (Session, error)
	Link(ctx context.Context, id, callID string, callStartedAt time.Time) (LinkResult, error)
	BeginTurn(ctx context.Context, params TurnParams) (Turn, error)
	End(ctx context.Context, id string) (Session, error)
	RecordQuestion(ctx context.Context, id string, q Question) (Session, error)
	UpdateContexts(ctx context.Context, id string, fn func(json.RawMessage) (json.RawMessage, error)) (Session, error)
	SetSummary(ctx context.Context, id string, summary json.RawMessage) (Session, error)
	List(ctx context.Context, accountID string, page int) (Page, error)
	ListToAnalyse(ctx context.Context, accountID string) ([]Session, error)
}

type service struct {
	*pubsub.Broker[Session]
	store  db.Transactor
	locks  *csync.KeyedMutex[string]
	meter  credit.Meter
	policy LinkPolicy
	now    func() time.Time
}

type Option func(*service)

// WithMeter sets the meter applied on every turn.
func WithMeter(m credit.Meter) Option {
	return func(s *service) { s.meter = m }
}

// WithLinkPolicy sets the re-link policy.
func WithLinkPolicy(p LinkPolicy) Option {
	return func(s *service) { s.policy = p }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(store db.Transactor, opts ...Option) Service {
	s := &service{
		Broker: pubsub.NewBroker[Session](),
		store:  store,
		locks:  csync.NewKeyedMutex[string](),
		meter:  credit.NewMeter(credit.DefaultThreshold),
		policy: DefaultLinkPolicy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, params CreateParams) (Session, error) {
	contexts := params.Contexts
	if len(contexts) == 0 {
		contexts = json.RawMessage("{}")
	}
	if !json.Valid(contexts) {
		return Session{}, fmt.Errorf("contexts is not valid JSON")
	}
	metadata := params.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage("{}")
	}
	questions := params.Questions
	if questions == nil {
		questions = []Question{}
	}
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return Session{}, err
	}

	now := s.now().UnixMilli()
	dbSession, err := s.store.CreateSession(ctx, db.CreateSessionParams{
		ID:        uuid.New().String(),
		AccountID: params.AccountID,
		AgentName: params.AgentName,
		Status:    string(StatusCreated),
		Contexts:  string(contexts),
		Questions: string(questionsJSON),
		Metadata:  string(metadata),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Session{}, err
	}
	session, err := s.fromDBItem(dbSession)
	if err != nil {
		return Session{}, err
	}
	s.Publish(pubsub.CreatedEvent, session)
	return session, nil
}

func (s *service) Get(ctx context.Context, id string) (Session, error) {
	return s.get(ctx, s.store, id)
}

func (s *service) get(ctx context.Context, q db.Querier, id string) (Session, error) {
	dbSession, err := q.GetSession(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return s.fromDBItem(dbSession)
}

func (s *service) GetByCallID(ctx context.Context, callID string) (Session, error) {
	if callID == "" {
		return Session{}, ErrNotFound
	}
	dbSession, err := s.store.GetSessionByCallID(ctx, sql.NullString{String: callID, Valid: true})
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return s.fromDBItem(dbSession)
}

// mutate runs fn on the freshest copy of the session, under the session lock
// and inside one transaction. Every write to a session's mutable fields goes
// through here.
func (s *service) mutate(ctx context.Context, id string, fn func(q db.Querier, current Session) (db.Session, error)) (Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var updated db.Session
	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		current, err := s.get(ctx, q, id)
		if err != nil {
			return err
		}
		updated, err = fn(q, current)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	session, err := s.fromDBItem(updated)
	if err != nil {
		return Session{}, err
	}
	s.Publish(pubsub.UpdatedEvent, session)
	return session, nil
}

// End marks the call as finished. Ending an already completed session is a
// no-op.
func (s *service) End(ctx context.Context, id string) (Session, error) {
	return s.mutate(ctx, id, func(q db.Querier, current Session) (db.Session, error) {
		switch current.Status {
		case StatusCreated, StatusActive, StatusCompleted:
		default:
			return db.Session{}, fmt.Errorf("%w: cannot end a %s session", ErrInvalidTransition, current.Status)
		}
		return q.UpdateSessionStatus(ctx, db.UpdateSessionStatusParams{
			Status:    string(StatusCompleted),
			UpdatedAt: s.now().UnixMilli(),
			ID:        id,
		})
	})
}

// RecordQuestion prepends q to the session's main questions. CreatedAt is
// filled in when empty.
func (s *service) RecordQuestion(ctx context.Context, id string, question Question) (Session, error) {
	if question.Question == "" {
		return Session{}, fmt.Errorf("question must not be empty")
	}
	if question.CreatedAt == "" {
		question.CreatedAt = s.now().UTC().Format(time.RFC3339Nano)
	}
	return s.mutate(ctx, id, func(q db.Querier, current Session) (db.Session, error) {
		questions := append([]Question{question}, current.Questions...)
		data, err := json.Marshal(questions)
		if err != nil {
			return db.Session{}, err
		}
		return q.UpdateSessionQuestions(ctx, db.UpdateSessionQuestionsParams{
			Questions: string(data),
			UpdatedAt: s.now().UnixMilli(),
			ID:        id,
		})
	})
}

// UpdateContexts replaces the context blob with fn's result, computed from
// the stored blob inside the session's write scope.
func (s *service) UpdateContexts(ctx context.Context, id string, fn func(json.RawMessage) (json.RawMessage, error)) (Session, error) {
	return s.mutate(ctx, id, func(q db.Querier, current Session) (db.Session, error) {
		contexts, err := fn(current.Contexts)
		if err != nil {
			return db.Session{}, err
		}
		if !json.Valid(contexts) {
			return db.Session{}, fmt.Errorf("contexts is not valid JSON")
		}
		return q.UpdateSessionContexts(ctx, db.UpdateSessionContextsParams{
			Contexts:  string(contexts),
			UpdatedAt: s.now().UnixMilli(),
			ID:        id,
		})
	})
}

// SetSummary stores the analysis report and moves a completed session to
// ANALYSED. Analysed sessions may be re-analysed.
func (s *service) SetSummary(ctx context.Context, id string, summary json.RawMessage) (Session, error) {
	if !json.Valid(summary) {
		return Session{}, fmt.Errorf("summary is not valid JSON")
	}
	return s.mutate(ctx, id, func(q db.Querier, current Session) (db.Session, error) {
		if current.Status != StatusCompleted && current.Status != StatusAnalysed {
			return db.Session{}, fmt.Errorf("%w: cannot analyse a %s session", ErrInvalidTransition, current.Status)
		}
		return q.UpdateSessionSummary(ctx, db.UpdateSessionSummaryParams{
			Summary:   sql.NullString{String: string(summary), Valid: true},
			Status:    string(StatusAnalysed),
			UpdatedAt: s.now().UnixMilli(),
			ID:        id,
		})
	})
}

func (s *service) List(ctx context.Context, accountID string, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	total, err := s.store.CountSessionsByAccount(ctx, accountID)
	if err != nil {
		return Page{}, err
	}
	dbSessions, err := s.store.ListSessionsByAccount(ctx, db.ListSessionsByAccountParams{
		AccountID: accountID,
		Limit:     PageSize,
		Offset:    int64((page - 1) * PageSize),
	})
	if err != nil {
		return Page{}, err
	}
	sessions, err := s.fromDBItems(dbSessions)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Sessions:   sessions,
		Page:       page,
		TotalPages: int((total + PageSize - 1) / PageSize),
		Total:      total,
	}, nil
}

func (s *service) ListToAnalyse(ctx context.Context, accountID string) ([]Session, error) {
	dbSessions, err := s.store.ListSessionsNotInStatus(ctx, db.ListSessionsNotInStatusParams{
		AccountID: accountID,
		Status:    string(StatusAnalysed),
	})
	if err != nil {
		return nil, err
	}
	return s.fromDBItems(dbSessions)
}

func (s *service) fromDBItems(items []db.Session) ([]Session, error) {
	sessions := make([]Session, len(items))
	for i, item := range items {
		session, err := s.fromDBItem(item)
		if err != nil {
			return nil, err
		}
		sessions[i] = session
	}
	return sessions, nil
}

func (s *service) fromDBItem(item db.Session) (Session, error) {
	var questions []Question
	if item.Questions != "" {
		if err := json.Unmarshal([]byte(item.Questions), &questions); err != nil {
			return Session{}, fmt.Errorf("failed to decode questions of session %s: %w", item.ID, err)
		}
	}
	if questions == nil {
		questions = []Question{}
	}
	session := Session{
		ID:              item.ID,
		AccountID:       item.AccountID,
		AgentName:       item.AgentName,
		CallID:          item.CallID.String,
		CallStartedAt:   item.CallStartedAt.Int64,
		CallBaseCredits: item.CallBaseCredits,
		Status:          Status(item.Status),
		UsedCredits:     item.UsedCredits,
		Contexts:        json.RawMessage(item.Contexts),
		Questions:       questions,
		Metadata:        json.RawMessage(item.Metadata),
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
	if item.Summary.Valid {
		session.Summary = json.RawMessage(item.Summary.String)
	}
	return session, nil
}

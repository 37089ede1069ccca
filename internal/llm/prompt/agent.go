// Package prompt keeps the versioned system prompts of interviewer agents.
// Every name has at most one active version; the most recently activated
// one is served.
package prompt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/juggyai/juggy/internal/db"
	"github.com/juggyai/juggy/internal/proto"
)

var (
	ErrNotFound = errors.New("agent not found")
	ErrNoActive = errors.New("no active agent version")
)

type AgentConfig = proto.AgentConfig

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

type CreateParams struct {
	Name     string
	Version  string
	Prompt   string
	Config   AgentConfig
	Activate bool
}

// AgentID derives the stable id of one agent version.
func AgentID(name, version string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name+"~@~"+version)).String()
}

type Service interface {
	Create(ctx context.Context, params CreateParams) (Agent, error)
	Get(ctx context.Context, id string) (Agent, error)
	SetActive(ctx context.Context, id string) (Agent, error)
	Active(ctx context.Context, name string) (Agent, error)
	List(ctx context.Context) ([]Agent, error)
}

type service struct {
	store db.Transactor
}

func NewService(store db.Transactor) Service {
	return &service{store: store}
}

func (s *service) Create(ctx context.Context, params CreateParams) (Agent, error) {
	if params.Name == "" || params.Version == "" {
		return Agent{}, fmt.Errorf("agent name and version are required")
	}
	if _, err := Parse(params.Prompt); err != nil {
		return Agent{}, err
	}
	cfg, err := json.Marshal(params.Config)
	if err != nil {
		return Agent{}, err
	}

	var created db.Agent
	err = s.store.ExecTx(ctx, func(q db.Querier) error {
		var err error
		now := time.Now().UnixMilli()
		created, err = q.CreateAgent(ctx, db.CreateAgentParams{
			ID:        AgentID(params.Name, params.Version),
			Name:      params.Name,
			Version:   params.Version,
			Prompt:    params.Prompt,
			Config:    string(cfg),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("failed to create agent %s@%s: %w", params.Name, params.Version, err)
		}
		if params.Activate {
			created, err = activate(ctx, q, created)
		}
		return err
	})
	if err != nil {
		return Agent{}, err
	}
	return fromDBItem(created)
}

func (s *service) Get(ctx context.Context, id string) (Agent, error) {
	dbAgent, err := s.store.GetAgent(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	if err != nil {
		return Agent{}, err
	}
	return fromDBItem(dbAgent)
}

// SetActive makes id the served version of its name and deactivates the
// others.
func (s *service) SetActive(ctx context.Context, id string) (Agent, error) {
	var activated db.Agent
	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		current, err := q.GetAgent(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		activated, err = activate(ctx, q, current)
		return err
	})
	if err != nil {
		return Agent{}, err
	}
	return fromDBItem(activated)
}

func activate(ctx context.Context, q db.Querier, agent db.Agent) (db.Agent, error) {
	now := time.Now()
	if err := q.DeactivateAgentsByName(ctx, db.DeactivateAgentsByNameParams{
		UpdatedAt: now.UnixMilli(),
		Name:      agent.Name,
	}); err != nil {
		return db.Agent{}, err
	}
	return q.ActivateAgent(ctx, db.ActivateAgentParams{
		ActivatedAt: sql.NullInt64{Int64: now.UnixMilli(), Valid: true},
		UpdatedAt:   now.UnixMilli(),
		ID:          agent.ID,
	})
}

func (s *service) Active(ctx context.Context, name string) (Agent, error) {
	dbAgent, err := s.store.GetActiveAgentByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, fmt.Errorf("%w: %s", ErrNoActive, name)
	}
	if err != nil {
		return Agent{}, err
	}
	return fromDBItem(dbAgent)
}

func (s *service) List(ctx context.Context) ([]Agent, error) {
	dbAgents, err := s.store.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	agents := make([]Agent, len(dbAgents))
	for i, item := range dbAgents {
		agents[i], err = fromDBItem(item)
		if err != nil {
			return nil, err
		}
	}
	return agents, nil
}

func fromDBItem(item db.Agent) (Agent, error) {
	var cfg AgentConfig
	if item.Config != "" {
		if err := json.Unmarshal([]byte(item.Config), &cfg); err != nil {
			return Agent{}, fmt.Errorf("failed to decode config of agent %s: %w", item.ID, err)
		}
	}
	return Agent{
		ID:          item.ID,
		Name:        item.Name,
		Version:     item.Version,
		Prompt:      item.Prompt,
		Config:      cfg,
		IsActive:    item.IsActive == 1,
		ActivatedAt: item.ActivatedAt.Int64,
		CreatedAt:   item.CreatedAt,
	}, nil
}

func (a Agent) Proto() proto.Agent {
	return proto.Agent(a)
}

// Package exchange records completed interview turns. Exchanges are append
// only and ordered by creation time.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/juggyai/juggy/internal/db"
	"github.com/juggyai/juggy/internal/proto"
	"github.com/juggyai/juggy/internal/pubsub"
)

// ChunkMetadata is the provider usage snapshot attached to one streamed
// chunk.
type ChunkMetadata struct {
	IsStreamingResponse     bool   `json:"is_streaming_response"`
	ModelVersion            string `json:"model_version"`
	CachedContentTokenCount int64  `json:"cached_content_token_count"`
	CandidatesTokenCount    int64  `json:"candidates_token_count"`
	PromptTokenCount        int64  `json:"prompt_token_count"`
	TotalTokenCount         int64  `json:"total_token_count"`
}

type Exchange struct {
	ID              string          `json:"id"`
	SessionID       string          `json:"session_id"`
	AccountID       string          `json:"account_id"`
	CandidateText   string          `json:"candidate_text"`
	InterviewerText string          `json:"interviewer_text"`
	UsageMetadata   []ChunkMetadata `json:"usage_metadata"`
	CreatedAt       int64           `json:"created_at"`
}

func (Exchange) PayloadType() pubsub.PayloadType { return pubsub.PayloadTypeExchange }

func (e Exchange) Proto() proto.Exchange {
	usage := make([]proto.ExchangeUsage, len(e.UsageMetadata))
	for i, m := range e.UsageMetadata {
		usage[i] = proto.ExchangeUsage(m)
	}
	return proto.Exchange{
		ID:              e.ID,
		SessionID:       e.SessionID,
		CandidateText:   e.CandidateText,
		InterviewerText: e.InterviewerText,
		UsageMetadata:   usage,
		CreatedAt:       e.CreatedAt,
	}
}

type RecordParams struct {
	SessionID       string
	AccountID       string
	CandidateText   string
	InterviewerText string
	UsageMetadata   []ChunkMetadata
}

type Service interface {
	pubsub.Subscriber[Exchange]
	Record(ctx context.Context, params RecordParams) (Exchange, error)
	List(ctx context.Context, sessionID string) ([]Exchange, error)
	Count(ctx context.Context, sessionID string) (int64, error)
}

type service struct {
	*pubsub.Broker[Exchange]
	q db.Querier
}

func NewService(q db.Querier) Service {
	return &service{
		Broker: pubsub.NewBroker[Exchange](),
		q:      q,
	}
}

// Record appends one exchange.
func (s *service) Record(ctx context.Context, params RecordParams) (Exchange, error) {
	if params.SessionID == "" {
		return Exchange{}, fmt.Errorf("session id is required")
	}
	usage := params.UsageMetadata
	if usage == nil {
		usage = []ChunkMetadata{}
	}
	usageJSON, err := json.Marshal(usage)
	if err != nil {
		return Exchange{}, fmt.Errorf("failed to encode usage metadata: %w", err)
	}

	dbExchange, err := s.q.CreateExchange(ctx, db.CreateExchangeParams{
		ID:              uuid.New().String(),
		SessionID:       params.SessionID,
		AccountID:       params.AccountID,
		CandidateText:   params.CandidateText,
		InterviewerText: params.InterviewerText,
		UsageMetadata:   string(usageJSON),
		CreatedAt:       time.Now().UnixMilli(),
	})
	if err != nil {
		return Exchange{}, err
	}
	exchange, err := s.fromDBItem(dbExchange)
	if err != nil {
		return Exchange{}, err
	}
	s.Publish(pubsub.CreatedEvent, exchange)
	return exchange, nil
}

// List returns the exchanges of a session in the order they were recorded.
func (s *service) List(ctx context.Context, sessionID string) ([]Exchange, error) {
	dbExchanges, err := s.q.ListExchangesBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	exchanges := make([]Exchange, len(dbExchanges))
	for i, item := range dbExchanges {
		exchanges[i], err = s.fromDBItem(item)
		if err != nil {
			return nil, err
		}
	}
	return exchanges, nil
}

func (s *service) Count(ctx context.Context, sessionID string) (int64, error) {
	return s.q.CountExchangesBySession(ctx, sessionID)
}

func (s *service) fromDBItem(item db.Exchange) (Exchange, error) {
	var usage []ChunkMetadata
	if item.UsageMetadata != "" {
		if err := json.Unmarshal([]byte(item.UsageMetadata), &usage); err != nil {
			return Exchange{}, fmt.Errorf("failed to decode usage metadata of exchange %s: %w", item.ID, err)
		}
	}
	if usage == nil {
		usage = []ChunkMetadata{}
	}
	return Exchange{
		ID:              item.ID,
		SessionID:       item.SessionID,
		AccountID:       item.AccountID,
		CandidateText:   item.CandidateText,
		InterviewerText: item.InterviewerText,
		UsageMetadata:   usage,
		CreatedAt:       item.CreatedAt,
	}, nil
}

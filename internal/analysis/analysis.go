// Package analysis scores a finished interview and stores the report on
// the session.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/juggyai/juggy/internal/exchange"
	"github.com/juggyai/juggy/internal/proto"
	"github.com/juggyai/juggy/internal/session"
)

var (
	ErrNotCompleted    = errors.New("session is not completed")
	ErrAlreadyAnalysed = errors.New("session is already analysed")
	ErrNoExchanges     = errors.New("session has no exchanges")
)

type Report = proto.AnalysisReport

// Input is everything an analyzer sees of one interview. Exchanges are in
// the order they were recorded.
type Input struct {
	Session   session.Session
	Questions []session.Question
	Exchanges []exchange.Exchange
}

type Analyzer interface {
	Analyze(ctx context.Context, in Input) (Report, error)
}

type Service struct {
	sessions  session.Service
	exchanges exchange.Service
	analyzer  Analyzer
}

func NewService(sessions session.Service, exchanges exchange.Service, analyzer Analyzer) *Service {
	return &Service{
		sessions:  sessions,
		exchanges: exchanges,
		analyzer:  analyzer,
	}
}

// Analyse runs the analyzer over a completed session, stores the report as
// the session summary and moves the session to ANALYSED.
func (s *Service) Analyse(ctx context.Context, id string) (session.Session, Report, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return session.Session{}, Report{}, err
	}
	switch sess.Status {
	case session.StatusCompleted:
	case session.StatusAnalysed:
		return sess, Report{}, ErrAlreadyAnalysed
	default:
		return sess, Report{}, fmt.Errorf("%w: status is %s", ErrNotCompleted, sess.Status)
	}

	exchanges, err := s.exchanges.List(ctx, id)
	if err != nil {
		return sess, Report{}, fmt.Errorf("failed to list exchanges: %w", err)
	}
	if len(exchanges) == 0 {
		return sess, Report{}, ErrNoExchanges
	}

	report, err := s.analyzer.Analyze(ctx, Input{
		Session:   sess,
		Questions: sess.Questions,
		Exchanges: exchanges,
	})
	if err != nil {
		return sess, Report{}, fmt.Errorf("failed to analyse session: %w", err)
	}

	summary, err := json.Marshal(report)
	if err != nil {
		return sess, Report{}, err
	}
	sess, err = s.sessions.SetSummary(ctx, id, summary)
	if err != nil {
		return sess, Report{}, err
	}
	slog.Info("Session analysed", "session_id", id, "exchanges", len(exchanges))
	return sess, report, nil
}

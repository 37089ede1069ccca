// Package parsejob is the durable queue of resume parse tasks. Jobs live in
// the same store as sessions and move PENDING -> RUNNING -> COMPLETED or
// FAILED; a failed attempt goes back to PENDING until MaxAttempts.
package parsejob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/juggyai/juggy/internal/db"
	"github.com/juggyai/juggy/internal/proto"
	"github.com/juggyai/juggy/internal/pubsub"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// MaxAttempts is how many times a job is tried before it fails for good.
const MaxAttempts = 3

var (
	ErrNotFound  = errors.New("parse job not found")
	ErrNoPending = errors.New("no pending parse job")
)

type Job struct {
	ID        string `json:"id"`
	MediaID   string `json:"media_id"`
	SessionID string `json:"session_id,omitempty"`
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
	Attempts  int64  `json:"attempts"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

func (Job) PayloadType() pubsub.PayloadType { return pubsub.PayloadTypeParseJob }

func (j Job) Proto() proto.ParseJob {
	return proto.ParseJob{
		ID:        j.ID,
		MediaID:   j.MediaID,
		SessionID: j.SessionID,
		Status:    string(j.Status),
		Error:     j.Error,
		Attempts:  j.Attempts,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// Result is the output of a document parser.
type Result struct {
	Raw        string
	Structured string
}

type Service interface {
	pubsub.Subscriber[Job]
	Enqueue(ctx context.Context, mediaID, sessionID string) (Job, error)
	Get(ctx context.Context, id string) (Job, error)
	ClaimNext(ctx context.Context) (Job, error)
	Complete(ctx context.Context, id string, result Result) (Job, error)
	Fail(ctx context.Context, id string, cause error) (Job, error)
	StructuredResume(ctx context.Context, mediaID string) (string, bool, error)
}

type service struct {
	*pubsub.Broker[Job]
	store db.Transactor
	now   func() time.Time
}

func NewService(store db.Transactor) Service {
	return &service{
		Broker: pubsub.NewBroker[Job](),
		store:  store,
		now:    time.Now,
	}
}

func (s *service) Enqueue(ctx context.Context, mediaID, sessionID string) (Job, error) {
	if mediaID == "" {
		return Job{}, fmt.Errorf("media id is required")
	}
	now := s.now().UnixMilli()
	dbJob, err := s.store.CreateParseJob(ctx, db.CreateParseJobParams{
		ID:        uuid.New().String(),
		MediaID:   mediaID,
		SessionID: sql.NullString{String: sessionID, Valid: sessionID != ""},
		Status:    string(StatusPending),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Job{}, err
	}
	job := fromDBItem(dbJob)
	s.Publish(pubsub.CreatedEvent, job)
	return job, nil
}

func (s *service) Get(ctx context.Context, id string) (Job, error) {
	dbJob, err := s.store.GetParseJob(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	return fromDBItem(dbJob), nil
}

// ClaimNext moves the oldest pending job to RUNNING and returns it.
func (s *service) ClaimNext(ctx context.Context) (Job, error) {
	dbJob, err := s.store.ClaimNextParseJob(ctx, s.now().UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNoPending
	}
	if err != nil {
		return Job{}, err
	}
	job := fromDBItem(dbJob)
	s.Publish(pubsub.UpdatedEvent, job)
	return job, nil
}

// Complete stores the parse result and finishes the job in one
// transaction.
func (s *service) Complete(ctx context.Context, id string, result Result) (Job, error) {
	var job Job
	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		dbJob, err := q.GetParseJob(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		now := s.now().UnixMilli()
		if _, err := q.UpsertParsedResult(ctx, db.UpsertParsedResultParams{
			ID:               uuid.New().String(),
			SourceID:         dbJob.MediaID,
			RawResult:        result.Raw,
			StructuredResult: sql.NullString{String: result.Structured, Valid: result.Structured != ""},
			CreatedAt:        now,
			UpdatedAt:        now,
		}); err != nil {
			return fmt.Errorf("failed to store parse result: %w", err)
		}
		dbJob, err = q.UpdateParseJobStatus(ctx, db.UpdateParseJobStatusParams{
			Status:    string(StatusCompleted),
			UpdatedAt: now,
			ID:        id,
		})
		if err != nil {
			return err
		}
		job = fromDBItem(dbJob)
		return nil
	})
	if err != nil {
		return Job{}, err
	}
	s.Publish(pubsub.UpdatedEvent, job)
	return job, nil
}

// Fail records cause. The job is retried while it has attempts left.
func (s *service) Fail(ctx context.Context, id string, cause error) (Job, error) {
	var job Job
	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		dbJob, err := q.GetParseJob(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		status := StatusPending
		if dbJob.Attempts >= MaxAttempts {
			status = StatusFailed
		}
		dbJob, err = q.UpdateParseJobStatus(ctx, db.UpdateParseJobStatusParams{
			Status:    string(status),
			Error:     sql.NullString{String: cause.Error(), Valid: true},
			UpdatedAt: s.now().UnixMilli(),
			ID:        id,
		})
		if err != nil {
			return err
		}
		job = fromDBItem(dbJob)
		return nil
	})
	if err != nil {
		return Job{}, err
	}
	s.Publish(pubsub.UpdatedEvent, job)
	return job, nil
}

// StructuredResume returns the structured parse of mediaID. ok is false
// when the media has not been parsed or has no structured form.
func (s *service) StructuredResume(ctx context.Context, mediaID string) (string, bool, error) {
	result, err := s.store.GetParsedResultBySource(ctx, mediaID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !result.StructuredResult.Valid || result.StructuredResult.String == "" {
		return "", false, nil
	}
	return result.StructuredResult.String, true, nil
}

func fromDBItem(item db.ParseJob) Job {
	return Job{
		ID:        item.ID,
		MediaID:   item.MediaID,
		SessionID: item.SessionID.String,
		Status:    Status(item.Status),
		Error:     item.Error.String,
		Attempts:  item.Attempts,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

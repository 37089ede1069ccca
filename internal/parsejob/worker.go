package parsejob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/juggyai/juggy/internal/log"
	"github.com/tidwall/sjson"
)

// ResumeMediaKey is the session context field naming the resume to use.
const ResumeMediaKey = "selected_resume_media_uuid"

// ContextUpdater is the part of the session store the worker writes to.
type ContextUpdater interface {
	UpdateContext(ctx context.Context, id string, fn func(json.RawMessage) (json.RawMessage, error)) error
}

// ContextUpdaterFunc adapts a function to [ContextUpdater].
type ContextUpdaterFunc func(ctx context.Context, id string, fn func(json.RawMessage) (json.RawMessage, error)) error

func (f ContextUpdaterFunc) UpdateContext(ctx context.Context, id string, fn func(json.RawMessage) (json.RawMessage, error)) error {
	return f(ctx, id, fn)
}

// Worker drains the queue one job at a time.
type Worker struct {
	jobs     Service
	parser   Parser
	sessions ContextUpdater
	interval time.Duration
	timeout  time.Duration
}

func NewWorker(jobs Service, parser Parser, sessions ContextUpdater, interval, timeout time.Duration) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Worker{
		jobs:     jobs,
		parser:   parser,
		sessions: sessions,
		interval: interval,
		timeout:  timeout,
	}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	defer log.RecoverPanic("parse-worker", nil)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		for {
			processed, err := w.ProcessNext(ctx)
			if err != nil && ctx.Err() == nil {
				slog.Error("Parse worker failed", "error", err)
			}
			if !processed || ctx.Err() != nil {
				break
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessNext claims and runs one job. It reports false when the queue was
// empty.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.jobs.ClaimNext(ctx)
	if errors.Is(err, ErrNoPending) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim parse job: %w", err)
	}

	parseCtx, cancel := context.WithTimeout(ctx, w.timeout)
	result, err := w.parser.Parse(parseCtx, job.MediaID)
	cancel()
	if err != nil {
		slog.Warn("Parse job attempt failed", "job_id", job.ID, "media_id", job.MediaID, "attempt", job.Attempts, "error", err)
		if _, ferr := w.jobs.Fail(context.WithoutCancel(ctx), job.ID, err); ferr != nil {
			return true, fmt.Errorf("failed to mark parse job %s failed: %w", job.ID, ferr)
		}
		return true, nil
	}

	if _, err := w.jobs.Complete(ctx, job.ID, result); err != nil {
		return true, fmt.Errorf("failed to complete parse job %s: %w", job.ID, err)
	}
	slog.Info("Parse job completed", "job_id", job.ID, "media_id", job.MediaID)

	if job.SessionID != "" && w.sessions != nil {
		err := w.sessions.UpdateContext(ctx, job.SessionID, func(contexts json.RawMessage) (json.RawMessage, error) {
			return sjson.SetBytes(contexts, ResumeMediaKey, job.MediaID)
		})
		if err != nil {
			slog.Error("Failed to attach parsed resume to session", "job_id", job.ID, "session_id", job.SessionID, "error", err)
		}
	}
	return true, nil
}

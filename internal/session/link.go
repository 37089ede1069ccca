package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/juggyai/juggy/internal/db"
	"github.com/juggyai/juggy/internal/pubsub"
)

// DefaultRelinkThreshold is the billed minutes below which a session may
// be moved to a new call.
const DefaultRelinkThreshold = 16

// ErrLinkRejected is returned when a session may not take the requested
// call. The wrapped message explains why.
var ErrLinkRejected = errors.New("link rejected")

// LinkAction is what linking a call to a session will do.
type LinkAction int

const (
	// LinkNone means the session is already linked to the call.
	LinkNone LinkAction = iota
	// LinkFirst attaches a call to a session that never had one.
	LinkFirst
	// LinkReplace moves the session to a new call and discards the
	// exchanges recorded against the old one.
	LinkReplace
)

// LinkPolicy decides whether a session can be linked to a call.
type LinkPolicy struct {
	// RelinkThreshold is in billed minutes.
	RelinkThreshold int64
}

var DefaultLinkPolicy = LinkPolicy{RelinkThreshold: DefaultRelinkThreshold}

// Decide returns the action for linking callID to current. It does no I/O.
func (p LinkPolicy) Decide(current Session, callID string) (LinkAction, error) {
	if callID == "" {
		return LinkNone, fmt.Errorf("%w: call id is required", ErrLinkRejected)
	}
	switch current.Status {
	case StatusTerminated, StatusAnalysed:
		return LinkNone, fmt.Errorf("%w: session %s is %s", ErrLinkRejected, current.ID, current.Status)
	}
	switch {
	case current.CallID == callID:
		return LinkNone, nil
	case current.CallID == "":
		return LinkFirst, nil
	case current.UsedCredits < p.RelinkThreshold:
		return LinkReplace, nil
	default:
		return LinkNone, fmt.Errorf(
			"%w: session %s already used %d minutes on call %s, re-linking is only allowed below %d minutes",
			ErrLinkRejected, current.ID, current.UsedCredits, current.CallID, p.RelinkThreshold,
		)
	}
}

// LinkResult describes a completed link.
type LinkResult struct {
	Session            Session    `json:"session"`
	Action             LinkAction `json:"-"`
	Relinked           bool       `json:"relinked"`
	DiscardedExchanges int64      `json:"discarded_exchanges"`
}

// Link attaches callID to the session. callStartedAt may be zero when the
// call start time is not known yet, in which case the first turn sets it.
func (s *service) Link(ctx context.Context, id, callID string, callStartedAt time.Time) (LinkResult, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var (
		result  LinkResult
		updated db.Session
	)
	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		current, err := s.get(ctx, q, id)
		if err != nil {
			return err
		}
		action, err := s.policy.Decide(current, callID)
		if err != nil {
			return err
		}
		result.Action = action
		if action == LinkNone {
			updated, err = q.GetSession(ctx, id)
			return err
		}

		other, err := q.GetSessionByCallID(ctx, sql.NullString{String: callID, Valid: true})
		switch {
		case err == nil && other.ID != id:
			return fmt.Errorf("%w: %s", ErrCallInUse, callID)
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return err
		}

		status := current.Status
		if action == LinkReplace {
			result.Relinked = true
			result.DiscardedExchanges, err = q.DeleteExchangesBySession(ctx, id)
			if err != nil {
				return err
			}
			status = StatusCreated
		}

		startedAt := sql.NullInt64{}
		if !callStartedAt.IsZero() {
			startedAt = sql.NullInt64{Int64: callStartedAt.UnixMilli(), Valid: true}
		}
		updated, err = q.LinkSessionCall(ctx, db.LinkSessionCallParams{
			CallID:          sql.NullString{String: callID, Valid: true},
			CallStartedAt:   startedAt,
			CallBaseCredits: current.UsedCredits,
			Status:          string(status),
			UpdatedAt:       s.now().UnixMilli(),
			ID:              id,
		})
		return err
	})
	if err != nil {
		return LinkResult{}, err
	}

	result.Session, err = s.fromDBItem(updated)
	if err != nil {
		return LinkResult{}, err
	}
	if result.Action != LinkNone {
		s.Publish(pubsub.UpdatedEvent, result.Session)
	}
	return result, nil
}

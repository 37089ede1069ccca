package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/juggyai/juggy/internal/credit"
	"github.com/juggyai/juggy/internal/db"
	"github.com/juggyai/juggy/internal/pubsub"
)

var ErrAccountNotFound = errors.New("account not found")

type TurnParams struct {
	CallID string
	// CallStartedAt is the start time reported by the caller. The first
	// value seen for a call is kept.
	CallStartedAt time.Time
}

// Turn is the metered state of a session at the start of a turn.
type Turn struct {
	Session Session
	// Credits is the account balance after this turn was billed.
	Credits  int64
	Decision credit.Decision
	// Closed is set when the session no longer takes turns. Nothing was
	// billed and Decision is empty.
	Closed bool
}

// Terminated reports whether the caller should get the termination stream.
func (t Turn) Terminated() bool {
	return t.Closed || t.Decision.ShouldTerminate
}

// BeginTurn resolves the session linked to params.CallID and meters the
// turn against its account in a single transaction. A session that is
// already closed is returned untouched with Closed set.
func (s *service) BeginTurn(ctx context.Context, params TurnParams) (Turn, error) {
	linked, err := s.GetByCallID(ctx, params.CallID)
	if err != nil {
		return Turn{}, err
	}

	unlock := s.locks.Lock(linked.ID)
	defer unlock()

	var (
		turn    Turn
		updated db.Session
	)
	err = s.store.ExecTx(ctx, func(q db.Querier) error {
		current, err := s.get(ctx, q, linked.ID)
		if err != nil {
			return err
		}
		// Re-linked to another call between the lookup and the lock.
		if current.CallID != params.CallID {
			return ErrNotFound
		}
		if current.Status.Closed() {
			turn = Turn{Session: current, Closed: true}
			return nil
		}

		acc, err := q.GetAccount(ctx, current.AccountID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, current.AccountID)
		}
		if err != nil {
			return err
		}

		now := s.now()
		if current.CallStartedAt == 0 {
			startedAt := params.CallStartedAt
			if startedAt.IsZero() {
				startedAt = now
			}
			current.CallStartedAt = startedAt.UnixMilli()
			if _, err := q.LinkSessionCall(ctx, db.LinkSessionCallParams{
				CallID:          sql.NullString{String: current.CallID, Valid: true},
				CallStartedAt:   sql.NullInt64{Int64: current.CallStartedAt, Valid: true},
				CallBaseCredits: current.CallBaseCredits,
				Status:          string(current.Status),
				UpdatedAt:       now.UnixMilli(),
				ID:              current.ID,
			}); err != nil {
				return err
			}
		}

		elapsed := credit.ElapsedMinutes(time.UnixMilli(current.CallStartedAt), now)
		decision := s.meter.Apply(elapsed, current.CallUsedCredits(), acc.Credits)

		if _, err := q.UpdateAccountCredits(ctx, db.UpdateAccountCreditsParams{
			Credits:   decision.NewBalance,
			UpdatedAt: now.UnixMilli(),
			ID:        acc.ID,
		}); err != nil {
			return err
		}

		status := StatusActive
		if decision.ShouldTerminate {
			status = StatusTerminated
		}
		updated, err = q.UpdateSessionMeter(ctx, db.UpdateSessionMeterParams{
			Status:      string(status),
			UsedCredits: current.CallBaseCredits + decision.NewUsedCredits,
			UpdatedAt:   now.UnixMilli(),
			ID:          current.ID,
		})
		if err != nil {
			return err
		}
		turn.Credits = decision.NewBalance
		turn.Decision = decision
		return nil
	})
	if err != nil {
		return Turn{}, err
	}
	if turn.Closed {
		return turn, nil
	}

	turn.Session, err = s.fromDBItem(updated)
	if err != nil {
		return Turn{}, err
	}
	s.Publish(pubsub.UpdatedEvent, turn.Session)
	return turn, nil
}

package app

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/juggyai/juggy/internal/bridge"
	"github.com/juggyai/juggy/internal/log"
	"github.com/juggyai/juggy/internal/proto"
	"github.com/juggyai/juggy/internal/pubsub"
)

// Turn is the tracked state of a candidate turn.
type Turn proto.Turn

func (Turn) PayloadType() pubsub.PayloadType { return pubsub.PayloadTypeTurn }

// GetTurns returns the turns currently streaming, oldest first.
func (a *App) GetTurns() []Turn {
	turns := make([]Turn, 0, a.turns.Len())
	for _, t := range a.turns.Seq2() {
		turns = append(turns, t)
	}
	slices.SortFunc(turns, func(x, y Turn) int {
		return cmp.Compare(x.StartedAt, y.StartedAt)
	})
	return turns
}

// GetTurn returns the state of one streaming turn.
func (a *App) GetTurn(streamID string) (Turn, bool) {
	return a.turns.Get(streamID)
}

// Turn runs one candidate turn and tracks it until its stream is drained.
func (a *App) Turn(ctx context.Context, req proto.ChatCompletionRequest, agentName string) (*bridge.Stream, error) {
	stream, err := a.Orchestrator.Turn(ctx, req, agentName)
	if err != nil {
		return nil, err
	}

	info := Turn{
		StreamID:  stream.ID,
		CallID:    req.Call.ID,
		Agent:     agentName,
		StartedAt: time.Now().UnixMilli(),
	}
	a.turns.Set(stream.ID, info)
	a.turnBroker.Publish(pubsub.CreatedEvent, info)

	a.turnWG.Go(func() {
		defer log.RecoverPanic("turn-tracker", nil)
		a.finishTurn(info, stream.Wait())
	})
	return stream, nil
}

func (a *App) finishTurn(info Turn, result bridge.Result) {
	a.turns.Del(info.StreamID)

	info.FinishedAt = time.Now().UnixMilli()
	if result.Err != nil {
		info.Error = result.Err.Error()
	}
	a.turnBroker.Publish(pubsub.UpdatedEvent, info)
}

package engine

import (
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"go.uber.org/zap"
)

// Checkpoint is the engine-side bookkeeping a failed operation must undo:
// the replacement registry and the trigger queue. Game states are
// immutable, so callers keep the old *state.State themselves.
type Checkpoint struct {
	replacements []effects.ReplacementEntry
	queue        rules.QueueSnapshot
}

// Checkpoint saves the registry and the queue.
func (e *Engine) Checkpoint() Checkpoint {
	return Checkpoint{
		replacements: e.replacements.Entries(),
		queue:        e.queue.Snapshot(),
	}
}

// Rollback restores what cp saved. Pair it with the state held at the
// time cp was taken.
func (e *Engine) Rollback(cp Checkpoint) {
	e.replacements.Restore(cp.replacements)
	e.queue.Restore(cp.queue)
	e.logger.Debug("rolled back",
		zap.Int("replacements", len(cp.replacements)),
		zap.Int("pending", e.queue.Len()))
}

// atomically runs op and rolls the engine back to where it was if op
// fails; the caller's st is returned with the error.
func (e *Engine) atomically(st *state.State, op func() (*state.State, error)) (*state.State, error) {
	cp := e.Checkpoint()
	next, err := op()
	if err != nil {
		e.Rollback(cp)
		return st, err
	}
	return next, nil
}

// Package removal knocks characters out of play and collects the
// on-knockout triggers that result.
package removal

import (
	"errors"
	"fmt"

	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"go.uber.org/zap"
)

// ErrNotOnField is returned when the card to remove is not a character in play.
var ErrNotOnField = errors.New("card is not a character on the field")

// Unregisterer drops every replacement a card owns.
type Unregisterer interface {
	UnregisterAllFor(sourceID string) int
}

// Process is the single knockout path shared by battle and resolvers.
type Process struct {
	logger       *zap.Logger
	replacements Unregisterer
	bus          *rules.EventBus
}

// NewProcess creates a removal process. replacements and bus may be nil.
func NewProcess(logger *zap.Logger, replacements Unregisterer, bus *rules.EventBus) *Process {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Process{logger: logger, replacements: replacements, bus: bus}
}

// RemoveCharacter knocks out a character. The steps run in a fixed order:
//  1. on-knockout triggers are built while the card is still on the field,
//  2. the permanent-removal flag is checked,
//  3. a flagged card goes to ZoneRemoved and its triggers are discarded;
//     otherwise it goes to the trash and the triggers are returned for the
//     caller to enqueue.
func (p *Process) RemoveCharacter(st *state.State, cardID string) (*state.State, []*rules.Trigger, error) {
	card, ok := st.Card(cardID)
	if !ok {
		return st, nil, fmt.Errorf("%w: %s", state.ErrCardNotFound, cardID)
	}
	if card.Zone != state.ZoneField || !card.IsCharacter() {
		return st, nil, fmt.Errorf("%w: %s in %s", ErrNotOnField, cardID, card.Zone)
	}

	event := rules.NewMoveEvent(card.Controller, cardID, string(state.ZoneField), string(state.ZoneTrash), rules.ReasonKnockout)
	triggers := p.buildTriggers(st, card, event)

	dest := state.ZoneTrash
	if card.PermanentRemoval {
		dest = state.ZoneRemoved
		event.ToZone = string(dest)
		event.Reason = rules.ReasonRemoved
		if len(triggers) > 0 {
			p.logger.Debug("permanent removal suppressed knockout triggers",
				zap.String("card_id", cardID),
				zap.Int("suppressed", len(triggers)))
		}
		triggers = nil
	}

	next, err := st.MoveCard(cardID, dest)
	if err != nil {
		return st, nil, fmt.Errorf("remove %s: %w", cardID, err)
	}
	if p.replacements != nil {
		p.replacements.UnregisterAllFor(cardID)
	}

	p.logger.Debug("character removed",
		zap.String("card_id", cardID),
		zap.String("zone", dest.String()),
		zap.Int("triggers", len(triggers)))
	p.bus.Publish(event)
	return next, triggers, nil
}

func (p *Process) buildTriggers(st *state.State, card state.Card, event rules.Event) []*rules.Trigger {
	var out []*rules.Trigger
	for _, def := range card.EffectsWithTiming(effects.TimingOnKnockout) {
		if def.TimingKind != effects.TimingKindAuto {
			continue
		}
		if def.OncePerTurn && st.EffectUsedThisTurn(card.ID, def.ID) {
			continue
		}
		out = append(out, rules.NewTrigger(def, card.ID, card.Controller, event, st.ActivePlayer()))
	}
	return out
}

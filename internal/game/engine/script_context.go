package engine

import (
	"context"
	"fmt"

	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/state"
)

// ScriptContext is the only surface a script body mutates state through.
// Each helper replaces the context's current state; the engine commits it
// when the script returns without error and discards it otherwise.
type ScriptContext struct {
	ctx    context.Context
	engine *Engine
	state  *state.State
	inst   *effects.Instance

	nested []*rules.Trigger
}

func newScriptContext(ctx context.Context, e *Engine, st *state.State, inst *effects.Instance) *ScriptContext {
	return &ScriptContext{ctx: ctx, engine: e, state: st, inst: inst}
}

// State returns the state as the script has left it so far.
func (sc *ScriptContext) State() *state.State { return sc.state }

// Instance returns the effect instance being resolved.
func (sc *ScriptContext) Instance() *effects.Instance { return sc.inst }

// SourceID returns the card the effect belongs to.
func (sc *ScriptContext) SourceID() string { return sc.inst.SourceID }

// Controller returns the player resolving the effect.
func (sc *ScriptContext) Controller() string { return sc.inst.Controller }

// Opponent returns the controller's opponent.
func (sc *ScriptContext) Opponent() string { return sc.state.Opponent(sc.inst.Controller) }

// Targets returns the card IDs chosen for the instance.
func (sc *ScriptContext) Targets() []string { return sc.inst.CardTargets() }

// MoveCard moves a card to zone. Leaving play drops the card's
// replacements in the same step.
func (sc *ScriptContext) MoveCard(cardID string, zone state.Zone) error {
	card, ok := sc.state.Card(cardID)
	if !ok {
		return fmt.Errorf("%w: %s", state.ErrCardNotFound, cardID)
	}
	next, err := sc.state.MoveCard(cardID, zone)
	if err != nil {
		return err
	}
	sc.state = next
	if card.Zone.InPlay() && !zone.InPlay() {
		sc.engine.replacements.UnregisterAllFor(cardID)
	}
	sc.engine.bus.Publish(rules.NewMoveEvent(card.Controller, cardID, string(card.Zone), string(zone), rules.ReasonEffect))
	return nil
}

// ModifyPower adds a timed power modifier.
func (sc *ScriptContext) ModifyPower(cardID string, delta int, d effects.Duration) error {
	return sc.modify(cardID, state.ModifierPower, delta, d)
}

// ModifyCost adds a timed cost modifier.
func (sc *ScriptContext) ModifyCost(cardID string, delta int, d effects.Duration) error {
	return sc.modify(cardID, state.ModifierCost, delta, d)
}

func (sc *ScriptContext) modify(cardID string, kind state.ModifierKind, delta int, d effects.Duration) error {
	next, err := sc.state.AddModifier(state.Modifier{
		CardID:   cardID,
		SourceID: sc.inst.SourceID,
		Kind:     kind,
		Delta:    delta,
		Duration: d,
	})
	if err != nil {
		return err
	}
	sc.state = next
	return nil
}

// DrawCards draws up to n cards for player and returns the drawn IDs.
func (sc *ScriptContext) DrawCards(player string, n int) ([]string, error) {
	next, drawn, err := sc.state.Draw(player, n)
	if err != nil {
		return nil, err
	}
	sc.state = next
	return drawn, nil
}

// SearchZone returns the player's cards in zone that pass filter, in zone
// order.
func (sc *ScriptContext) SearchZone(player string, zone state.Zone, filter effects.CardFilter) []state.Card {
	var out []state.Card
	for _, c := range sc.state.ZoneCards(player, zone) {
		if sc.state.MatchesFilter(c.ID, filter) {
			out = append(out, c)
		}
	}
	return out
}

// RestCard rests a card.
func (sc *ScriptContext) RestCard(cardID string) error {
	next, err := sc.state.Rest(cardID)
	if err != nil {
		return err
	}
	sc.state = next
	return nil
}

// ActivateCard sets a rested card active.
func (sc *ScriptContext) ActivateCard(cardID string) error {
	next, err := sc.state.SetActive(cardID)
	if err != nil {
		return err
	}
	sc.state = next
	return nil
}

// SetPermanentRemoval marks a card so its next knockout removes it from
// the game instead of trashing it.
func (sc *ScriptContext) SetPermanentRemoval(cardID string) error {
	next, err := sc.state.SetPermanentRemoval(cardID, true)
	if err != nil {
		return err
	}
	sc.state = next
	return nil
}

// SetFaceUp turns a card face up or down. A face-up life card is trashed
// instead of going to hand when it is taken.
func (sc *ScriptContext) SetFaceUp(cardID string, up bool) error {
	next, err := sc.state.SetFaceUp(cardID, up)
	if err != nil {
		return err
	}
	sc.state = next
	return nil
}

// AttachResources attaches up to n of the controller's resources to a card
// and returns how many were attached.
func (sc *ScriptContext) AttachResources(cardID string, n int, onlyRested bool) (int, error) {
	next, attached, err := sc.state.AttachResources(cardID, n, onlyRested)
	if err != nil {
		return 0, err
	}
	sc.state = next
	return attached, nil
}

// KnockOut removes a character through the knockout process. Its
// on-knockout triggers resolve before the engine returns to the outer
// queue.
func (sc *ScriptContext) KnockOut(cardID string) error {
	next, triggers, err := sc.engine.removal.RemoveCharacter(sc.state, cardID)
	if err != nil {
		return err
	}
	sc.state = next
	sc.nested = append(sc.nested, triggers...)
	return nil
}

// Resolve runs a built-in resolver with the given parameters and targets
// on behalf of the script's source.
func (sc *ScriptContext) Resolve(params effects.Params, targets []effects.Target) error {
	inst := sc.inst.Clone()
	inst.Params = params
	inst.Targets = targets
	res, err := sc.engine.resolvers.Dispatch(sc.ctx, inst, sc.state)
	if err != nil {
		return err
	}
	sc.state = res.State
	sc.nested = append(sc.nested, res.Triggers...)
	return nil
}

// Raise publishes an event; the effects it matches resolve before the
// engine returns to the outer queue.
func (sc *ScriptContext) Raise(event rules.Event) {
	sc.engine.bus.Publish(event)
	sc.nested = append(sc.nested, sc.engine.collectTriggers(sc.state, event)...)
}

// ChooseTargets suspends for the controller's pick among candidates.
func (sc *ScriptContext) ChooseTargets(candidates []string, minN, maxN int) ([]string, error) {
	req := decision.TargetRequest{
		Player:     sc.inst.Controller,
		SourceID:   sc.inst.SourceID,
		EffectID:   sc.inst.Definition.ID,
		Candidates: candidates,
		Min:        minN,
		Max:        maxN,
	}
	chosen, err := sc.engine.decisions.ChooseTargets(sc.ctx, sc.state, req)
	if err != nil {
		return nil, err
	}
	if err := decision.ValidateTargets(req, chosen); err != nil {
		return nil, err
	}
	return chosen, nil
}

// ChooseValue suspends for a number the controller picks in [minV, maxV]
// and records it on the instance under key.
func (sc *ScriptContext) ChooseValue(key string, minV, maxV int) (int, error) {
	req := decision.ValueRequest{
		Player:   sc.inst.Controller,
		SourceID: sc.inst.SourceID,
		Key:      key,
		Min:      minV,
		Max:      maxV,
	}
	v, err := sc.engine.decisions.ChooseValue(sc.ctx, sc.state, req)
	if err != nil {
		return 0, err
	}
	if err := decision.ValidateValue(req, v); err != nil {
		return 0, err
	}
	if sc.inst.ChosenValues == nil {
		sc.inst.ChosenValues = make(map[string]int)
	}
	sc.inst.ChosenValues[key] = v
	return v, nil
}

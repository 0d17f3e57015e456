package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/opcg/rules-engine-go/internal/game/cost"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"go.uber.org/zap"
)

// PreviewCost returns what activating an effect would cost right now,
// after replacements. It does not check whether the cost is payable.
func (e *Engine) PreviewCost(st *state.State, cardID, effectID string) (effects.Cost, error) {
	if err := e.SyncReplacements(st); err != nil {
		return nil, err
	}
	card, ok := st.Card(cardID)
	if !ok {
		return nil, &ActivationError{CardID: cardID, EffectID: effectID, Reason: ReasonNoSuchEffect, Detail: "unknown card"}
	}
	def, ok := card.Effect(effectID)
	if !ok {
		return nil, &ActivationError{CardID: cardID, EffectID: effectID, Reason: ReasonNoSuchEffect}
	}
	return e.replacements.ApplyCostReplacements(def.Cost, e.replacementContext(st, cardID, card.Controller, def))
}

// checkActivation runs the player-facing checks in a fixed order and
// returns the definition and its replaced cost.
func (e *Engine) checkActivation(st *state.State, cardID, effectID string) (state.Card, *effects.Definition, effects.Cost, error) {
	fail := func(r Reason, detail string) (state.Card, *effects.Definition, effects.Cost, error) {
		return state.Card{}, nil, nil, &ActivationError{CardID: cardID, EffectID: effectID, Reason: r, Detail: detail}
	}
	if st.GameOver() {
		return fail(ReasonGameOver, "")
	}
	card, ok := st.Card(cardID)
	if !ok {
		return fail(ReasonNoSuchEffect, "unknown card")
	}
	def, ok := card.Effect(effectID)
	if !ok {
		return fail(ReasonNoSuchEffect, "")
	}
	if def.TimingKind != effects.TimingKindActivated {
		return fail(ReasonNotActivatable, string(def.TimingKind))
	}
	if !card.Zone.InPlay() {
		return fail(ReasonSourceNotOnField, string(card.Zone))
	}
	if card.Controller != st.ActivePlayer() {
		return fail(ReasonNotYourTurn, "")
	}
	if !effects.Evaluate(def.Condition, st, cardID, card.Controller) {
		return fail(ReasonConditionUnmet, "")
	}
	if def.OncePerTurn && st.EffectUsedThisTurn(cardID, def.ID) {
		return fail(ReasonAlreadyUsed, "")
	}
	c, err := e.replacements.ApplyCostReplacements(def.Cost, e.replacementContext(st, cardID, card.Controller, def))
	if err != nil {
		return state.Card{}, nil, nil, err
	}
	if res := cost.CalculatePayment(c, st, card.Controller, ""); !res.Success {
		return fail(ReasonCostUnaffordable, res.Reason)
	}
	return card, def, c, nil
}

// ActivateEffect uses an ACTIVATED effect of a card in play. Illegal
// activations fail with an *ActivationError naming the reason. A legal
// activation pays the cost, marks once-per-turn use and resolves the body
// at once; triggers it raised are then resolved before returning. On
// error st is returned and the engine is rolled back.
func (e *Engine) ActivateEffect(ctx context.Context, st *state.State, cardID, effectID string) (*state.State, error) {
	return e.atomically(st, func() (*state.State, error) { return e.activate(ctx, st, cardID, effectID) })
}

func (e *Engine) activate(ctx context.Context, st *state.State, cardID, effectID string) (*state.State, error) {
	if err := e.SyncReplacements(st); err != nil {
		return st, err
	}
	card, def, c, err := e.checkActivation(st, cardID, effectID)
	if err != nil {
		return st, err
	}

	next, err := e.resolveNow(ctx, st, card.Controller, func() (outcome, error) {
		paid, err := cost.Pay(ctx, st, card.Controller, cardID, "", c, e.decisions)
		if err != nil {
			return outcome{}, err
		}
		if def.OncePerTurn {
			paid = paid.MarkEffectUsed(cardID, def.ID)
		}
		return e.runBody(ctx, paid, effects.NewInstance(def, cardID, card.Controller))
	})
	if err != nil {
		return st, err
	}
	e.logger.Debug("effect activated",
		zap.String("card_id", cardID),
		zap.String("effect_id", effectID),
		zap.String("player_id", card.Controller))
	return next, nil
}

// resolveNow runs body outside the queue, then resolves whatever triggers
// it produced.
func (e *Engine) resolveNow(ctx context.Context, st *state.State, player string, body func() (outcome, error)) (*state.State, error) {
	if err := e.resolution.BeginResolution(player); err != nil {
		return st, fmt.Errorf("%w: %v", ErrReentrantResolution, err)
	}
	out, err := body()
	_ = e.resolution.EndResolution(player)
	if err != nil {
		return st, err
	}
	e.queue.Enqueue(out.nested...)
	e.queue.Enqueue(out.deferred...)
	if err := e.SyncReplacements(out.state); err != nil {
		return st, err
	}
	return e.ResolveStack(ctx, out.state)
}

// PlayCard plays a card from the active player's hand, paying its derived
// cost after replacements. Characters and stages enter play and raise
// CARD_PLAYED; events resolve their MAIN effect and go to the trash.
func (e *Engine) PlayCard(ctx context.Context, st *state.State, cardID string) (*state.State, error) {
	return e.atomically(st, func() (*state.State, error) { return e.play(ctx, st, cardID) })
}

func (e *Engine) play(ctx context.Context, st *state.State, cardID string) (*state.State, error) {
	fail := func(r Reason, detail string) (*state.State, error) {
		return st, &PlayError{CardID: cardID, Reason: r, Detail: detail}
	}
	if st.GameOver() {
		return fail(ReasonGameOver, "")
	}
	card, ok := st.Card(cardID)
	if !ok || card.Zone != state.ZoneHand {
		return fail(ReasonNotInHand, "")
	}
	if card.Owner != st.ActivePlayer() {
		return fail(ReasonNotYourTurn, "")
	}

	var dest state.Zone
	var main *effects.Definition
	switch card.Category {
	case state.CategoryCharacter:
		dest = state.ZoneField
	case state.CategoryStage:
		dest = state.ZoneStage
	case state.CategoryEvent:
		dest = state.ZoneTrash
		main = mainEffect(card)
		if main == nil {
			return fail(ReasonNotPlayable, "event has no main effect")
		}
		if !effects.Evaluate(main.Condition, st, cardID, card.Owner) {
			return fail(ReasonConditionUnmet, main.ID)
		}
	default:
		return fail(ReasonNotPlayable, string(card.Category))
	}

	if err := e.SyncReplacements(st); err != nil {
		return st, err
	}
	c, err := e.playCost(st, card, main)
	if err != nil {
		return st, err
	}
	if res := cost.CalculatePayment(c, st, card.Owner, cardID); !res.Success {
		return fail(ReasonCostUnaffordable, res.Reason)
	}

	next, err := e.resolveNow(ctx, st, card.Owner, func() (outcome, error) {
		paid, err := cost.Pay(ctx, st, card.Owner, cardID, cardID, c, e.decisions)
		if err != nil {
			return outcome{}, err
		}
		if main != nil {
			out, err := e.runBody(ctx, paid, effects.NewInstance(main, cardID, card.Owner))
			if err != nil {
				return outcome{}, err
			}
			out.state, err = e.moveTo(out.state, card, dest, rules.ReasonPlay)
			return out, err
		}
		moved, err := e.moveTo(paid, card, dest, rules.ReasonPlay)
		if err != nil {
			return outcome{}, err
		}
		if err := e.SyncReplacements(moved); err != nil {
			return outcome{}, err
		}
		played := rules.NewEvent(rules.EventCardPlayed, card.Owner, cardID)
		e.bus.Publish(played)
		return outcome{state: moved, nested: e.collectTriggers(moved, played)}, nil
	})
	if err != nil {
		return st, err
	}
	e.logger.Debug("card played",
		zap.String("card_id", cardID),
		zap.String("player_id", card.Owner),
		zap.String("zone", dest.String()))
	return next, nil
}

func (e *Engine) playCost(st *state.State, card state.Card, main *effects.Definition) (effects.Cost, error) {
	var c effects.Cost = effects.RestResource{Amount: st.Cost(card.ID)}
	if main != nil && !effects.IsFree(main.Cost) {
		c = effects.Composite{Parts: []effects.Cost{c, main.Cost}}
	}
	return e.replacements.ApplyCostReplacements(c, e.replacementContext(st, card.ID, card.Owner, main))
}

func (e *Engine) moveTo(st *state.State, card state.Card, zone state.Zone, reason rules.MoveReason) (*state.State, error) {
	next, err := st.MoveCard(card.ID, zone)
	if err != nil {
		return st, err
	}
	e.bus.Publish(rules.NewMoveEvent(card.Owner, card.ID, string(card.Zone), string(zone), reason))
	return next, nil
}

func mainEffect(card state.Card) *effects.Definition {
	for _, def := range card.Effects {
		if def.Timing == effects.TimingMain && def.TimingKind != effects.TimingKindReplacement {
			return def
		}
	}
	return nil
}

// CounterEffect returns the COUNTER effect of an event card, if any.
func CounterEffect(card state.Card) *effects.Definition {
	if card.Category != state.CategoryEvent {
		return nil
	}
	for _, def := range card.Effects {
		if def.Timing == effects.TimingCounter {
			return def
		}
	}
	return nil
}

// checkCounterEvent validates a counter event use and returns the card,
// its COUNTER effect and the replaced cost.
func (e *Engine) checkCounterEvent(st *state.State, cardID, effectID string) (state.Card, *effects.Definition, effects.Cost, error) {
	fail := func(r Reason, detail string) (state.Card, *effects.Definition, effects.Cost, error) {
		return state.Card{}, nil, nil, &ActivationError{CardID: cardID, EffectID: effectID, Reason: r, Detail: detail}
	}
	if st.GameOver() {
		return fail(ReasonGameOver, "")
	}
	card, ok := st.Card(cardID)
	if !ok || card.Zone != state.ZoneHand {
		return fail(ReasonNotInHand, "")
	}
	def := CounterEffect(card)
	if def == nil || (effectID != "" && def.ID != effectID) {
		return fail(ReasonNoSuchEffect, "")
	}
	if card.Owner == st.ActivePlayer() {
		return fail(ReasonNotActivatable, "counters are used by the defending player")
	}
	if !effects.Evaluate(def.Condition, st, cardID, card.Owner) {
		return fail(ReasonConditionUnmet, "")
	}
	if err := e.SyncReplacements(st); err != nil {
		return state.Card{}, nil, nil, err
	}
	c, err := e.playCost(st, card, def)
	if err != nil {
		return state.Card{}, nil, nil, err
	}
	if res := cost.CalculatePayment(c, st, card.Owner, cardID); !res.Success {
		return fail(ReasonCostUnaffordable, res.Reason)
	}
	return card, def, c, nil
}

// CanUseCounterEvent reports whether UseCounterEvent would accept the card.
func (e *Engine) CanUseCounterEvent(st *state.State, cardID string) bool {
	_, _, _, err := e.checkCounterEvent(st, cardID, "")
	return err == nil
}

// UseCounterEvent plays an event card from the defending player's hand
// for its COUNTER effect: the card's cost is paid, the effect resolves at
// once and the card goes to the trash.
func (e *Engine) UseCounterEvent(ctx context.Context, st *state.State, cardID, effectID string) (*state.State, error) {
	card, def, c, err := e.checkCounterEvent(st, cardID, effectID)
	if err != nil {
		return st, err
	}
	return e.atomically(st, func() (*state.State, error) { return e.useCounter(ctx, st, card, def, c) })
}

func (e *Engine) useCounter(ctx context.Context, st *state.State, card state.Card, def *effects.Definition, c effects.Cost) (*state.State, error) {
	cardID := card.ID
	return e.resolveNow(ctx, st, card.Owner, func() (outcome, error) {
		paid, err := cost.Pay(ctx, st, card.Owner, cardID, cardID, c, e.decisions)
		if err != nil {
			return outcome{}, err
		}
		out, err := e.runBody(ctx, paid, effects.NewInstance(def, cardID, card.Owner))
		if err != nil {
			return outcome{}, err
		}
		out.state, err = e.moveTo(out.state, card, state.ZoneTrash, rules.ReasonPlay)
		if err != nil {
			return outcome{}, err
		}
		played := rules.NewEvent(rules.EventCounterPlayed, card.Owner, cardID)
		played.Metadata["effect_id"] = def.ID
		e.bus.Publish(played)
		return out, nil
	})
}

// EndTurn closes the active player's turn: end-of-turn effects resolve,
// the turn advances and the new active player's start-of-turn effects
// resolve. A failure anywhere returns st with the engine rolled back.
func (e *Engine) EndTurn(ctx context.Context, st *state.State) (*state.State, error) {
	if st.GameOver() {
		return st, &PlayError{Reason: ReasonGameOver}
	}
	return e.atomically(st, func() (*state.State, error) { return e.endTurn(ctx, st) })
}

func (e *Engine) endTurn(ctx context.Context, st *state.State) (*state.State, error) {
	active := st.ActivePlayer()
	e.Raise(st, rules.NewPhaseEvent(active, rules.PhaseTurnEnd))
	next, err := e.ResolveStack(ctx, st)
	if err != nil {
		return st, err
	}
	if next.GameOver() {
		return next, nil
	}

	next = next.AdvanceTurn()
	e.logger.Debug("turn advanced",
		zap.Int("turn", next.Turn()),
		zap.String("active_player", next.ActivePlayer()))
	e.Raise(next, rules.NewPhaseEvent(next.ActivePlayer(), rules.PhaseTurnStart))
	return e.ResolveStack(ctx, next)
}

// IsActionError reports whether err is a rejected player action rather
// than a content or engine failure.
func IsActionError(err error) bool {
	var ae *ActivationError
	var pe *PlayError
	return errors.As(err, &ae) || errors.As(err, &pe)
}

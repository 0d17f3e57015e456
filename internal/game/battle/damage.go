package battle

import (
	"context"
	"fmt"

	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"go.uber.org/zap"
)

// lifeTriggerKey is the value key the defender answers 1 to when
// activating a life card's trigger.
const lifeTriggerKey = "life-trigger"

// hits returns how many life cards the attacker removes.
func hits(attacker state.Card) int {
	if attacker.HasKeyword(effects.KeywordDoubleAttack) {
		return 2
	}
	return 1
}

// damageLeader removes life cards from the top of the defender's life.
// A leader hit with no life left loses the game.
func (b *battle) damageLeader(ctx context.Context) error {
	if b.st.Life(b.opponent) == 0 {
		b.st = b.st.SetLoser(b.opponent)
		b.out.DefenderLost = true
		b.m.logger.Info("leader defeated",
			zap.String("player_id", b.opponent),
			zap.String("attacker_id", b.attacker))
		return nil
	}

	attacker, _ := b.st.Card(b.attacker)
	n := min(hits(attacker), b.st.Life(b.opponent))
	var triggers []*rules.Trigger
	for range n {
		top := b.st.ZoneIDs(b.opponent, state.ZoneLife)[0]
		t, err := b.takeLife(ctx, top, attacker.HasKeyword(effects.KeywordBanish))
		if err != nil {
			return err
		}
		if t != nil {
			triggers = append(triggers, t)
		}
		b.out.DamageDealt++
		b.out.LifeCardsRemoved = append(b.out.LifeCardsRemoved, top)
	}

	if len(triggers) == 0 {
		return nil
	}
	b.m.engine.Enqueue(triggers...)
	return b.resolve(ctx)
}

// takeLife moves one life card out of the life zone. Face-down cards go
// to hand, face-up ones to the trash, and every card goes to the trash
// under banish. A card with a life trigger may instead have it activated,
// in which case it goes to the trash and its trigger is returned.
func (b *battle) takeLife(ctx context.Context, cardID string, banish bool) (*rules.Trigger, error) {
	card, _ := b.st.Card(cardID)

	dest := state.ZoneHand
	if banish || card.FaceUp {
		dest = state.ZoneTrash
	}

	var trigger *rules.Trigger
	if def := lifeTrigger(card); def != nil && !banish {
		req := decision.ValueRequest{
			Player:   b.opponent,
			SourceID: cardID,
			Key:      lifeTriggerKey,
			Min:      0,
			Max:      1,
		}
		v, err := b.m.engine.Decisions().ChooseValue(ctx, b.st, req)
		if err != nil {
			return nil, fmt.Errorf("choose life trigger: %w", err)
		}
		if err := decision.ValidateValue(req, v); err != nil {
			return nil, err
		}
		if v == 1 {
			dest = state.ZoneTrash
			evt := rules.NewEvent(rules.EventLifeLost, b.opponent, cardID)
			trigger = rules.NewTrigger(def, cardID, b.opponent, evt, b.st.ActivePlayer())
		}
	}

	next, err := b.st.MoveCard(cardID, dest)
	if err != nil {
		return nil, err
	}
	b.st = next

	lost := rules.NewEvent(rules.EventLifeLost, b.opponent, cardID)
	lost.TargetID = b.attacker
	lost.ToZone = string(dest)
	lost.Amount = b.st.Life(b.opponent)
	b.m.engine.Bus().Publish(lost)
	b.m.engine.Bus().Publish(rules.NewMoveEvent(b.opponent, cardID, string(state.ZoneLife), string(dest), rules.ReasonLife))
	return trigger, nil
}

func lifeTrigger(card state.Card) *effects.Definition {
	for _, def := range card.Effects {
		if def.Timing == effects.TimingLifeTrigger {
			return def
		}
	}
	return nil
}

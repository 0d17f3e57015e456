package resolvers

import (
	"context"
	"fmt"
	"slices"

	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/state"
)

type drawCards struct{}

func (drawCards) Kind() effects.Kind { return effects.KindDrawCards }

func (drawCards) CanResolve(inst *effects.Instance, _ *state.State) bool {
	p, err := params[effects.DrawCards](inst)
	return err == nil && p.Count > 0
}

func (drawCards) Resolve(_ context.Context, inst *effects.Instance, st *state.State) (Result, error) {
	p, err := params[effects.DrawCards](inst)
	if err != nil {
		return Result{State: st}, err
	}
	next := st
	for _, player := range inst.PlayerTargets() {
		if next, _, err = next.Draw(player, p.Count); err != nil {
			return Result{State: st}, err
		}
	}
	return Result{State: next}, nil
}

// searchDeck looks at the top cards of each targeted player's deck and
// suspends for that player's pick among the matching ones.
type searchDeck struct {
	decisions decision.Provider
}

func (searchDeck) Kind() effects.Kind { return effects.KindSearchDeck }

func (searchDeck) CanResolve(inst *effects.Instance, _ *state.State) bool {
	p, err := params[effects.SearchDeck](inst)
	return err == nil && p.LookAt > 0 && p.PickUpTo >= 0
}

func (r searchDeck) Resolve(ctx context.Context, inst *effects.Instance, st *state.State) (Result, error) {
	p, err := params[effects.SearchDeck](inst)
	if err != nil {
		return Result{State: st}, err
	}
	next := st
	for _, player := range inst.PlayerTargets() {
		deck := next.ZoneIDs(player, state.ZoneDeck)
		looked := deck[:min(p.LookAt, len(deck))]
		if len(looked) == 0 {
			continue
		}

		var matching []string
		for _, id := range looked {
			if next.MatchesFilter(id, p.Filter) {
				matching = append(matching, id)
			}
		}

		var chosen []string
		if n := min(p.PickUpTo, len(matching)); n > 0 {
			req := decision.TargetRequest{
				Player:     player,
				SourceID:   inst.SourceID,
				EffectID:   effectID(inst),
				Candidates: matching,
				Min:        0,
				Max:        n,
			}
			chosen, err = r.decisions.ChooseTargets(ctx, next, req)
			if err != nil {
				return Result{State: st}, fmt.Errorf("search pick: %w", err)
			}
			if err := decision.ValidateTargets(req, chosen); err != nil {
				return Result{State: st}, err
			}
		}

		for _, id := range chosen {
			if next, err = next.MoveCard(id, state.ZoneHand); err != nil {
				return Result{State: st}, err
			}
		}
		for _, id := range looked {
			if slices.Contains(chosen, id) {
				continue
			}
			if next, err = next.MoveCard(id, state.ZoneDeck); err != nil {
				return Result{State: st}, err
			}
		}
	}
	return Result{State: next}, nil
}

// discardCards makes each targeted player trash cards of their choice.
type discardCards struct {
	decisions decision.Provider
}

func (discardCards) Kind() effects.Kind { return effects.KindDiscardCards }

func (discardCards) CanResolve(inst *effects.Instance, _ *state.State) bool {
	p, err := params[effects.DiscardCards](inst)
	return err == nil && p.Count > 0
}

func (r discardCards) Resolve(ctx context.Context, inst *effects.Instance, st *state.State) (Result, error) {
	p, err := params[effects.DiscardCards](inst)
	if err != nil {
		return Result{State: st}, err
	}
	next := st
	for _, player := range inst.PlayerTargets() {
		hand := next.ZoneIDs(player, state.ZoneHand)
		n := min(p.Count, len(hand))
		if n == 0 {
			continue
		}
		req := decision.TargetRequest{
			Player:     player,
			SourceID:   inst.SourceID,
			EffectID:   effectID(inst),
			Candidates: hand,
			Min:        n,
			Max:        n,
		}
		chosen, err := r.decisions.ChooseTargets(ctx, next, req)
		if err != nil {
			return Result{State: st}, fmt.Errorf("discard pick: %w", err)
		}
		if err := decision.ValidateTargets(req, chosen); err != nil {
			return Result{State: st}, err
		}
		for _, id := range chosen {
			if next, err = next.MoveCard(id, state.ZoneTrash); err != nil {
				return Result{State: st}, err
			}
		}
	}
	return Result{State: next}, nil
}

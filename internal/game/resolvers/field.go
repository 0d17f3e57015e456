package resolvers

import (
	"context"

	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/removal"
	"github.com/opcg/rules-engine-go/internal/game/state"
)

type knockOut struct {
	knockouts Knocker
}

func (knockOut) Kind() effects.Kind { return effects.KindKnockOutCharacter }

func (knockOut) CanResolve(inst *effects.Instance, _ *state.State) bool {
	_, err := params[effects.KnockOutCharacter](inst)
	return err == nil
}

func (r knockOut) Resolve(_ context.Context, inst *effects.Instance, st *state.State) (Result, error) {
	p, err := params[effects.KnockOutCharacter](inst)
	if err != nil {
		return Result{State: st}, err
	}
	res := Result{State: st}
	for _, id := range inst.CardTargets() {
		if !passes(res.State, id, p.Limit) {
			continue
		}
		next, triggers, err := r.knockouts.RemoveCharacter(res.State, id)
		if err != nil {
			return Result{State: st}, err
		}
		res.State = next
		res.Triggers = append(res.Triggers, triggers...)
	}
	return res, nil
}

type bounce struct {
	replacements removal.Unregisterer
}

func (bounce) Kind() effects.Kind { return effects.KindBounceCharacter }

func (bounce) CanResolve(inst *effects.Instance, _ *state.State) bool {
	_, err := params[effects.BounceCharacter](inst)
	return err == nil
}

func (r bounce) Resolve(_ context.Context, inst *effects.Instance, st *state.State) (Result, error) {
	p, err := params[effects.BounceCharacter](inst)
	if err != nil {
		return Result{State: st}, err
	}
	next := st
	for _, id := range inst.CardTargets() {
		if !passes(next, id, p.Limit) {
			continue
		}
		if next, err = next.MoveCard(id, state.ZoneHand); err != nil {
			return Result{State: st}, err
		}
		if r.replacements != nil {
			r.replacements.UnregisterAllFor(id)
		}
	}
	return Result{State: next}, nil
}

type restCharacter struct{}

func (restCharacter) Kind() effects.Kind { return effects.KindRestCharacter }

func (restCharacter) CanResolve(inst *effects.Instance, _ *state.State) bool {
	_, err := params[effects.RestCharacter](inst)
	return err == nil
}

func (restCharacter) Resolve(_ context.Context, inst *effects.Instance, st *state.State) (Result, error) {
	p, err := params[effects.RestCharacter](inst)
	if err != nil {
		return Result{State: st}, err
	}
	next := st
	for _, id := range inst.CardTargets() {
		if !passes(next, id, p.Limit) {
			continue
		}
		if next, err = next.Rest(id); err != nil {
			return Result{State: st}, err
		}
	}
	return Result{State: next}, nil
}

type modifyPower struct{}

func (modifyPower) Kind() effects.Kind { return effects.KindModifyPower }

func (modifyPower) CanResolve(inst *effects.Instance, _ *state.State) bool {
	p, err := params[effects.ModifyPower](inst)
	return err == nil && p.Delta != 0
}

func (modifyPower) Resolve(_ context.Context, inst *effects.Instance, st *state.State) (Result, error) {
	p, err := params[effects.ModifyPower](inst)
	if err != nil {
		return Result{State: st}, err
	}
	next := st
	for _, id := range inst.CardTargets() {
		if !next.OnField(id) {
			continue
		}
		next, err = next.AddModifier(state.Modifier{
			CardID:   id,
			SourceID: inst.SourceID,
			Kind:     state.ModifierPower,
			Delta:    p.Delta,
			Duration: p.Duration,
		})
		if err != nil {
			return Result{State: st}, err
		}
	}
	return Result{State: next}, nil
}

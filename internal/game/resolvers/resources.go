package resolvers

import (
	"context"

	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/state"
)

type attachResource struct{}

func (attachResource) Kind() effects.Kind { return effects.KindAttachResource }

func (attachResource) CanResolve(inst *effects.Instance, _ *state.State) bool {
	p, err := params[effects.AttachResource](inst)
	return err == nil && p.Count > 0
}

func (attachResource) Resolve(_ context.Context, inst *effects.Instance, st *state.State) (Result, error) {
	p, err := params[effects.AttachResource](inst)
	if err != nil {
		return Result{State: st}, err
	}
	next := st
	for _, id := range inst.CardTargets() {
		if next, _, err = next.AttachResources(id, p.Count, p.FromRested); err != nil {
			return Result{State: st}, err
		}
	}
	return Result{State: next}, nil
}

type addResource struct{}

func (addResource) Kind() effects.Kind { return effects.KindAddResource }

func (addResource) CanResolve(inst *effects.Instance, _ *state.State) bool {
	p, err := params[effects.AddResource](inst)
	return err == nil && p.Count > 0
}

func (addResource) Resolve(_ context.Context, inst *effects.Instance, st *state.State) (Result, error) {
	p, err := params[effects.AddResource](inst)
	if err != nil {
		return Result{State: st}, err
	}
	next := st
	for _, player := range inst.PlayerTargets() {
		if next, _, err = next.AddResources(player, p.Count, p.Rested); err != nil {
			return Result{State: st}, err
		}
	}
	return Result{State: next}, nil
}

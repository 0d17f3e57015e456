// Package targeting computes legal effect targets and asks players to
// choose among them.
package targeting

import (
	"context"
	"fmt"

	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/state"
)

// Requirement is a target spec bound to the effect that declares it.
type Requirement struct {
	Spec       effects.TargetSpec
	SourceID   string
	Controller string
	EffectID   string
}

// bounds returns the [min, max] number of card targets. An unset Max
// means a single target.
func (r Requirement) bounds(available int) (int, int) {
	maxN := r.Spec.Max
	if maxN <= 0 {
		maxN = 1
	}
	maxN = min(maxN, available)
	minN := min(max(r.Spec.Min, 0), maxN)
	return minN, maxN
}

// Candidates returns the card IDs the requirement may target, in zone order
// (controller's cards first).
func Candidates(st *state.State, req Requirement) []string {
	var zones []state.Zone
	switch req.Spec.Kind {
	case effects.TargetCharacter:
		zones = []state.Zone{state.ZoneField}
	case effects.TargetLeaderOrCharacter:
		zones = []state.Zone{state.ZoneLeader, state.ZoneField}
	default:
		return nil
	}

	var players []string
	switch req.Spec.Side {
	case effects.SideOwn:
		players = []string{req.Controller}
	case effects.SideOpponent:
		players = []string{st.Opponent(req.Controller)}
	default:
		players = []string{req.Controller, st.Opponent(req.Controller)}
	}

	var out []string
	for _, p := range players {
		for _, z := range zones {
			out = append(out, st.ZoneIDs(p, z)...)
		}
	}
	return out
}

// Automatic returns the targets of specs that need no player choice.
func Automatic(st *state.State, req Requirement) []effects.Target {
	switch req.Spec.Kind {
	case effects.TargetController:
		return []effects.Target{effects.PlayerTarget(req.Controller)}
	case effects.TargetOpponent:
		return []effects.Target{effects.PlayerTarget(st.Opponent(req.Controller))}
	case effects.TargetSource:
		if _, ok := st.Card(req.SourceID); ok {
			return []effects.Target{effects.CardTarget(req.SourceID)}
		}
		return nil
	default:
		return nil
	}
}

// Choose resolves the requirement's targets. Automatic specs never ask;
// for card specs the controller picks through the provider and the answer
// is validated. No candidates means no targets.
func Choose(ctx context.Context, st *state.State, p decision.Provider, req Requirement) ([]effects.Target, error) {
	if req.Spec.Automatic() {
		return Automatic(st, req), nil
	}
	candidates := Candidates(st, req)
	if len(candidates) == 0 {
		return nil, nil
	}
	minN, maxN := req.bounds(len(candidates))
	dreq := decision.TargetRequest{
		Player:     req.Controller,
		SourceID:   req.SourceID,
		EffectID:   req.EffectID,
		Candidates: candidates,
		Min:        minN,
		Max:        maxN,
	}
	chosen, err := p.ChooseTargets(ctx, st, dreq)
	if err != nil {
		return nil, fmt.Errorf("choose targets for %s: %w", req.EffectID, err)
	}
	if err := decision.ValidateTargets(dreq, chosen); err != nil {
		return nil, err
	}
	out := make([]effects.Target, 0, len(chosen))
	for _, id := range chosen {
		out = append(out, effects.CardTarget(id))
	}
	return out, nil
}

// StillLegal drops targets that stopped being legal since they were
// chosen (left the field, changed sides).
func StillLegal(st *state.State, req Requirement, targets []effects.Target) []effects.Target {
	if req.Spec.Automatic() {
		return targets
	}
	legal := make(map[string]bool)
	for _, id := range Candidates(st, req) {
		legal[id] = true
	}
	out := make([]effects.Target, 0, len(targets))
	for _, t := range targets {
		if t.CardID != "" && !legal[t.CardID] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Package cost checks and pays effect and play costs against a player's
// resources and hand.
package cost

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/state"
)

// ErrUnaffordable is returned when a cost cannot be paid in full.
var ErrUnaffordable = errors.New("cost unaffordable")

// PaymentPlan is what paying a cost takes from the player.
type PaymentPlan struct {
	Rest    int
	Discard int
}

// PaymentResult represents the result of an affordability check.
type PaymentResult struct {
	Success bool
	Plan    *PaymentPlan
	Reason  string
}

// CalculatePayment checks whether player can pay c. The card identified by
// excludeID (usually the card being played from hand) does not count
// toward discards.
func CalculatePayment(c effects.Cost, st *state.State, player, excludeID string) *PaymentResult {
	plan := &PaymentPlan{
		Rest:    effects.TotalRest(c),
		Discard: effects.TotalDiscard(c),
	}
	if have := st.ActiveResources(player); have < plan.Rest {
		return &PaymentResult{
			Plan:   plan,
			Reason: fmt.Sprintf("insufficient active resources (need %d, have %d)", plan.Rest, have),
		}
	}
	if have := len(discardCandidates(st, player, excludeID)); have < plan.Discard {
		return &PaymentResult{
			Plan:   plan,
			Reason: fmt.Sprintf("insufficient cards in hand (need %d, have %d)", plan.Discard, have),
		}
	}
	return &PaymentResult{Success: true, Plan: plan}
}

// Pay rests resources and trashes the chosen hand cards. Which cards to
// trash is asked of the player through the provider.
func Pay(ctx context.Context, st *state.State, player, sourceID, excludeID string, c effects.Cost, p decision.Provider) (*state.State, error) {
	result := CalculatePayment(c, st, player, excludeID)
	if !result.Success {
		return st, fmt.Errorf("%w: %s", ErrUnaffordable, result.Reason)
	}

	next, err := st.RestResources(player, result.Plan.Rest)
	if err != nil {
		return st, fmt.Errorf("%w: %v", ErrUnaffordable, err)
	}
	if result.Plan.Discard == 0 {
		return next, nil
	}

	req := decision.TargetRequest{
		Player:     player,
		SourceID:   sourceID,
		Candidates: discardCandidates(next, player, excludeID),
		Min:        result.Plan.Discard,
		Max:        result.Plan.Discard,
	}
	chosen, err := p.ChooseTargets(ctx, next, req)
	if err != nil {
		return st, fmt.Errorf("choose discards: %w", err)
	}
	if err := decision.ValidateTargets(req, chosen); err != nil {
		return st, err
	}
	for _, id := range chosen {
		if next, err = next.MoveCard(id, state.ZoneTrash); err != nil {
			return st, err
		}
	}
	return next, nil
}

func discardCandidates(st *state.State, player, excludeID string) []string {
	hand := st.ZoneIDs(player, state.ZoneHand)
	if excludeID == "" {
		return hand
	}
	return slices.DeleteFunc(hand, func(id string) bool { return id == excludeID })
}

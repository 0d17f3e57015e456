package resolvers

import (
	"context"
	"testing"

	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/removal"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newResolverState(t *testing.T) *state.State {
	t.Helper()
	koEffect := &effects.Definition{ID: "on-ko", TimingKind: effects.TimingKindAuto, Timing: effects.TimingOnKnockout, Params: effects.DrawCards{Count: 1}}
	st, err := state.NewBuilder("p1", "p2").
		Resources("p1", state.ResourcePool{Deck: 2, Active: 1, Rested: 1}).
		Add(state.Card{ID: "l1", Owner: "p1", Category: state.CategoryLeader, BasePower: 5000}, state.ZoneLeader).
		Add(state.Card{ID: "small", Owner: "p2", Category: state.CategoryCharacter, BaseCost: 2, BasePower: 2000, Effects: []*effects.Definition{koEffect}}, state.ZoneField).
		Add(state.Card{ID: "big", Owner: "p2", Category: state.CategoryCharacter, BaseCost: 6, BasePower: 7000}, state.ZoneField).
		Add(state.Card{ID: "own", Owner: "p1", Category: state.CategoryCharacter, BaseCost: 1, BasePower: 1000}, state.ZoneField).
		Add(state.Card{ID: "d1", Owner: "p1", Category: state.CategoryCharacter, Name: "Alpha"}, state.ZoneDeck).
		Add(state.Card{ID: "d2", Owner: "p1", Category: state.CategoryEvent, Name: "Beta"}, state.ZoneDeck).
		Add(state.Card{ID: "d3", Owner: "p1", Category: state.CategoryCharacter, Name: "Gamma"}, state.ZoneDeck).
		Add(state.Card{ID: "d4", Owner: "p1", Category: state.CategoryCharacter, Name: "Delta"}, state.ZoneDeck).
		Add(state.Card{ID: "h1", Owner: "p2"}, state.ZoneHand).
		Add(state.Card{ID: "h2", Owner: "p2"}, state.ZoneHand).
		Build()
	require.NoError(t, err)
	return st
}

func newSet(t *testing.T, p decision.Provider) *Set {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return NewSet(Deps{Logger: logger, Decisions: p, Knockouts: removal.NewProcess(logger, nil, nil)})
}

func instance(params effects.Params, targets ...effects.Target) *effects.Instance {
	inst := effects.NewInstance(&effects.Definition{ID: "e", Params: params}, "l1", "p1")
	inst.Targets = targets
	return inst
}

func cards(ids ...string) []effects.Target {
	out := make([]effects.Target, 0, len(ids))
	for _, id := range ids {
		out = append(out, effects.CardTarget(id))
	}
	return out
}

func TestDispatch_NoTargetsIsNoop(t *testing.T) {
	st := newResolverState(t)
	set := newSet(t, decision.Funcs{})

	for _, p := range []effects.Params{
		effects.DrawCards{Count: 2},
		effects.KnockOutCharacter{},
		effects.BounceCharacter{},
		effects.AttachResource{Count: 1},
		effects.ModifyPower{Delta: 1000},
		effects.RestCharacter{},
		effects.DiscardCards{Count: 1},
		effects.AddResource{Count: 1},
		effects.SearchDeck{LookAt: 3, PickUpTo: 1},
	} {
		res, err := set.Dispatch(context.Background(), instance(p), st)
		require.NoError(t, err, p.Kind())
		assert.Same(t, st, res.State, p.Kind())
		assert.Empty(t, res.Triggers)
	}
}

func TestDispatch_UnknownKind(t *testing.T) {
	set := newSet(t, nil)
	_, err := set.Dispatch(context.Background(), instance(effects.ScriptOnly{}), newResolverState(t))
	assert.ErrorIs(t, err, ErrUnknownEffectKind)
}

func TestDispatch_InvalidParamsFizzle(t *testing.T) {
	st := newResolverState(t)
	res, err := newSet(t, nil).Dispatch(context.Background(), instance(effects.DrawCards{Count: 0}, effects.PlayerTarget("p1")), st)
	require.NoError(t, err)
	assert.Same(t, st, res.State)
}

func TestKnockOut_PerTargetConstraint(t *testing.T) {
	st := newResolverState(t)
	set := newSet(t, nil)

	inst := instance(effects.KnockOutCharacter{Limit: effects.CostAtMost(5)}, cards("big", "small")...)
	res, err := set.Dispatch(context.Background(), inst, st)
	require.NoError(t, err)

	assert.True(t, res.State.OnField("big"))
	assert.False(t, res.State.OnField("small"))
	assert.Equal(t, []string{"small"}, res.State.ZoneIDs("p2", state.ZoneTrash))
	require.Len(t, res.Triggers, 1)
	assert.Equal(t, "on-ko", res.Triggers[0].Definition.ID)
}

func TestKnockOut_UsesDerivedPower(t *testing.T) {
	st := newResolverState(t)
	st, err := st.AddModifier(state.Modifier{CardID: "small", Kind: state.ModifierPower, Delta: 3000})
	require.NoError(t, err)

	inst := instance(effects.KnockOutCharacter{Limit: effects.PowerAtMost(4000)}, cards("small")...)
	res, err := newSet(t, nil).Dispatch(context.Background(), inst, st)
	require.NoError(t, err)
	assert.True(t, res.State.OnField("small"))
}

func TestBounce(t *testing.T) {
	st := newResolverState(t)
	inst := instance(effects.BounceCharacter{Limit: effects.CostAtMost(2)}, cards("small", "big")...)
	res, err := newSet(t, nil).Dispatch(context.Background(), inst, st)
	require.NoError(t, err)

	assert.Contains(t, res.State.ZoneIDs("p2", state.ZoneHand), "small")
	assert.True(t, res.State.OnField("big"))
}

func TestRestCharacter(t *testing.T) {
	st := newResolverState(t)
	inst := instance(effects.RestCharacter{}, cards("big")...)
	res, err := newSet(t, nil).Dispatch(context.Background(), inst, st)
	require.NoError(t, err)

	card, _ := res.State.Card("big")
	assert.True(t, card.Rested)
}

func TestModifyPower(t *testing.T) {
	st := newResolverState(t)
	inst := instance(effects.ModifyPower{Delta: 2000, Duration: effects.DurationThisTurn}, cards("own", "gone")...)
	res, err := newSet(t, nil).Dispatch(context.Background(), inst, st)
	require.NoError(t, err)

	assert.Equal(t, 3000, res.State.Power("own"))
	assert.Equal(t, 1000, st.Power("own"))
}

func TestDrawCards_Clamps(t *testing.T) {
	st := newResolverState(t)
	inst := instance(effects.DrawCards{Count: 10}, effects.PlayerTarget("p1"))
	res, err := newSet(t, nil).Dispatch(context.Background(), inst, st)
	require.NoError(t, err)

	assert.Equal(t, 4, res.State.ZoneSize("p1", state.ZoneHand))
	assert.Zero(t, res.State.ZoneSize("p1", state.ZoneDeck))
}

func TestAttachResource_Clamps(t *testing.T) {
	st := newResolverState(t)
	inst := instance(effects.AttachResource{Count: 5}, cards("own")...)
	res, err := newSet(t, nil).Dispatch(context.Background(), inst, st)
	require.NoError(t, err)

	card, _ := res.State.Card("own")
	assert.Equal(t, 2, card.Attached)
	assert.Equal(t, 1000+2*state.DefaultResourceBonus, res.State.Power("own"))
}

func TestAddResource_Clamps(t *testing.T) {
	st := newResolverState(t)
	inst := instance(effects.AddResource{Count: 5}, effects.PlayerTarget("p1"))
	res, err := newSet(t, nil).Dispatch(context.Background(), inst, st)
	require.NoError(t, err)
	assert.Equal(t, state.ResourcePool{Active: 3, Rested: 1}, res.State.Resources("p1"))
}

func TestDiscardCards_TargetPlayerChooses(t *testing.T) {
	st := newResolverState(t)
	var asked string
	p := decision.Funcs{Targets: func(_ context.Context, _ *state.State, req decision.TargetRequest) ([]string, error) {
		asked = req.Player
		return []string{"h2"}, nil
	}}
	inst := instance(effects.DiscardCards{Count: 1}, effects.PlayerTarget("p2"))
	res, err := newSet(t, p).Dispatch(context.Background(), inst, st)
	require.NoError(t, err)

	assert.Equal(t, "p2", asked)
	assert.Equal(t, []string{"h2"}, res.State.ZoneIDs("p2", state.ZoneTrash))
}

func TestSearchDeck_SuspendsForChoice(t *testing.T) {
	st := newResolverState(t)

	var offered decision.TargetRequest
	p := decision.Funcs{Targets: func(_ context.Context, _ *state.State, req decision.TargetRequest) ([]string, error) {
		offered = req
		return []string{"d3"}, nil
	}}
	inst := instance(effects.SearchDeck{LookAt: 3, PickUpTo: 1, Filter: effects.CardFilter{Category: "CHARACTER"}}, effects.PlayerTarget("p1"))
	res, err := newSet(t, p).Dispatch(context.Background(), inst, st)
	require.NoError(t, err)

	assert.Equal(t, []string{"d1", "d3"}, offered.Candidates, "only matching cards among the top three")
	assert.Equal(t, 1, offered.Max)
	assert.Equal(t, []string{"d3"}, res.State.ZoneIDs("p1", state.ZoneHand))
	assert.Equal(t, []string{"d4", "d1", "d2"}, res.State.ZoneIDs("p1", state.ZoneDeck))
}

func TestSearchDeck_RejectsUnofferedCard(t *testing.T) {
	st := newResolverState(t)
	inst := instance(effects.SearchDeck{LookAt: 2, PickUpTo: 1}, effects.PlayerTarget("p1"))
	_, err := newSet(t, decision.NewScripted().Targets("d4")).Dispatch(context.Background(), inst, st)
	assert.ErrorIs(t, err, decision.ErrInvalidChoice)
}

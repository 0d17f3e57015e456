package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestEngine(t *testing.T, p decision.Provider) *Engine {
	t.Helper()
	return New(Options{Logger: zaptest.NewLogger(t), Decisions: p})
}

func auto(id string, timing effects.Timing, scriptID string) *effects.Definition {
	return &effects.Definition{ID: id, TimingKind: effects.TimingKindAuto, Timing: timing, ScriptID: scriptID}
}

func character(id, owner string, defs ...*effects.Definition) state.Card {
	return state.Card{ID: id, Owner: owner, Category: state.CategoryCharacter, BasePower: 3000, Effects: defs}
}

// recordTo returns a script that appends name to log.
func recordTo(log *[]string, name string) Script {
	return func(context.Context, *ScriptContext) error {
		*log = append(*log, name)
		return nil
	}
}

func mustRegister(t *testing.T, e *Engine, id string, fn Script) {
	t.Helper()
	require.NoError(t, e.RegisterScript(id, fn))
}

func TestRegisterScript_DuplicateIsError(t *testing.T) {
	e := newTestEngine(t, nil)
	mustRegister(t, e, "s", recordTo(new([]string), "s"))

	err := e.RegisterScript("s", recordTo(new([]string), "s"))
	assert.ErrorIs(t, err, ErrDuplicateScript)

	e.UnregisterScript("s")
	assert.False(t, e.HasScript("s"))
	assert.NoError(t, e.RegisterScript("s", recordTo(new([]string), "s")))
}

func TestTriggerEffects_ActivePlayerResolvesFirst(t *testing.T) {
	st, err := state.NewBuilder("p1", "p2").
		Add(character("a", "p1", auto("when-attacking", effects.TimingWhenAttacking, "mine")), state.ZoneField).
		Add(character("o", "p2", auto("on-attack", effects.TimingOnOpponentAttack, "theirs")), state.ZoneField).
		Build()
	require.NoError(t, err)

	var log []string
	e := newTestEngine(t, nil)
	mustRegister(t, e, "mine", recordTo(&log, "mine"))
	mustRegister(t, e, "theirs", recordTo(&log, "theirs"))

	n := e.TriggerEffects(st, rules.NewAttackEvent("p1", "a", "leader-2"))
	require.Equal(t, 2, n)

	pending := e.Pending()
	assert.Equal(t, 1, pending[0].Priority)
	assert.Equal(t, 0, pending[1].Priority)

	_, err = e.ResolveStack(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"mine", "theirs"}, log)
	assert.Empty(t, e.Pending())
}

func TestResolveStack_PriorityBeatsEnqueueOrder(t *testing.T) {
	st, err := state.NewBuilder("p1", "p2").
		Add(character("x", "p1"), state.ZoneField).
		Add(character("y", "p2"), state.ZoneField).
		Build()
	require.NoError(t, err)

	var log []string
	e := newTestEngine(t, nil)
	mustRegister(t, e, "p2-first", recordTo(&log, "p2-first"))
	mustRegister(t, e, "p2-second", recordTo(&log, "p2-second"))
	mustRegister(t, e, "p1", recordTo(&log, "p1"))

	evt := rules.NewEvent(rules.EventCardPlayed, "p1", "x")
	e.Enqueue(
		rules.NewTrigger(auto("a", effects.TimingOnPlay, "p2-first"), "y", "p2", evt, "p1"),
		rules.NewTrigger(auto("b", effects.TimingOnPlay, "p2-second"), "y", "p2", evt, "p1"),
		rules.NewTrigger(auto("c", effects.TimingOnPlay, "p1"), "x", "p1", evt, "p1"),
	)

	_, err = e.ResolveStack(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2-first", "p2-second"}, log)
}

func TestResolveStack_ConditionFailureFizzles(t *testing.T) {
	lifeAbove3 := effects.Compare{Op: effects.OpGreater, Left: effects.QuantityControllerLife, Right: effects.Const{Value: 3}}
	def := auto("cond", effects.TimingOnPlay, "never")
	def.Condition = lifeAbove3

	st, err := state.NewBuilder("p1", "p2").
		Add(character("x", "p1", def), state.ZoneField).
		Build()
	require.NoError(t, err)

	var log []string
	e := newTestEngine(t, nil)
	mustRegister(t, e, "never", recordTo(&log, "never"))

	var fizzled []rules.Event
	e.Bus().SubscribeTyped(rules.EventEffectFizzled, func(ev rules.Event) { fizzled = append(fizzled, ev) })

	e.Raise(st, rules.NewEvent(rules.EventCardPlayed, "p1", "x"))
	next, err := e.ResolveStack(context.Background(), st)
	require.NoError(t, err)

	assert.Empty(t, log)
	assert.Same(t, st, next)
	require.Len(t, fizzled, 1)
	assert.Equal(t, "condition unmet", fizzled[0].Metadata["reason"])
}

func TestResolveStack_MissingScriptIsContentError(t *testing.T) {
	st, err := state.NewBuilder("p1", "p2").
		Add(character("x", "p1", auto("play", effects.TimingOnPlay, "nope")), state.ZoneField).
		Build()
	require.NoError(t, err)

	e := newTestEngine(t, nil)
	e.Raise(st, rules.NewEvent(rules.EventCardPlayed, "p1", "x"))
	_, err = e.ResolveStack(context.Background(), st)
	assert.ErrorIs(t, err, ErrScriptNotFound)
	assert.True(t, IsContentError(err))
}

func TestResolveStack_ScriptErrorRollsBack(t *testing.T) {
	st, err := state.NewBuilder("p1", "p2").
		Add(character("x", "p1", auto("play", effects.TimingOnPlay, "boom")), state.ZoneField).
		Build()
	require.NoError(t, err)

	e := newTestEngine(t, nil)
	mustRegister(t, e, "boom", func(_ context.Context, sc *ScriptContext) error {
		if err := sc.MoveCard("x", state.ZoneTrash); err != nil {
			return err
		}
		return errors.New("boom")
	})

	e.Raise(st, rules.NewEvent(rules.EventCardPlayed, "p1", "x"))
	next, err := e.ResolveStack(context.Background(), st)
	require.Error(t, err)
	assert.Same(t, st, next)
	assert.True(t, next.OnField("x"))

	pending := e.Pending()
	require.Len(t, pending, 1, "the failing trigger is not consumed")
	assert.Equal(t, "play", pending[0].Definition.ID)
	assert.Equal(t, rules.TriggerPending, pending[0].Status)
}

func TestResolveStack_ScriptErrorRestoresReplacements(t *testing.T) {
	discount := &effects.Definition{ID: "discount", TimingKind: effects.TimingKindReplacement, ScriptID: "discount-3"}
	upkeep := auto("upkeep", effects.TimingStartOfTurn, "upkeep")
	upkeep.Cost = effects.RestResource{Amount: 3}
	flaky := auto("play", effects.TimingOnPlay, "flaky")

	st := activationState(t, 0,
		character("y", "p1", upkeep),
		character("x", "p2", flaky),
		character("helper", "p2", discount),
	)

	e := newTestEngine(t, nil)
	require.NoError(t, e.RegisterRewrite("discount-3", func(c effects.Cost, _ effects.ReplacementContext) (effects.Cost, error) {
		return effects.ReduceRest(c, 3), nil
	}, nil))
	calls := 0
	mustRegister(t, e, "flaky", func(_ context.Context, sc *ScriptContext) error {
		calls++
		if calls > 1 {
			return nil
		}
		if err := sc.MoveCard("helper", state.ZoneTrash); err != nil {
			return err
		}
		return errors.New("flaky")
	})
	ran := false
	mustRegister(t, e, "upkeep", func(context.Context, *ScriptContext) error {
		ran = true
		return nil
	})

	e.Enqueue(rules.NewTrigger(flaky, "x", "p2", rules.NewEvent(rules.EventCardPlayed, "p2", "x"), "p1"))
	next, err := e.ResolveStack(context.Background(), st)
	require.Error(t, err)
	assert.Same(t, st, next)
	assert.True(t, e.Replacements().HasSource("helper"))

	// The active player's trigger sorts ahead of the retried one, so it is
	// the first thing the next resolution pays for.
	e.Enqueue(rules.NewTrigger(upkeep, "y", "p1", rules.NewPhaseEvent("p1", rules.PhaseTurnStart), "p1"))
	next, err = e.ResolveStack(context.Background(), st)
	require.NoError(t, err)
	assert.True(t, ran, "upkeep resolves at the discounted cost")
	assert.Equal(t, 2, calls)
	assert.True(t, next.OnField("helper"))
	assert.Empty(t, e.Pending())
}

func TestActivateEffect_ErrorRollsBackQueue(t *testing.T) {
	raise := &effects.Definition{
		ID:         "raise",
		TimingKind: effects.TimingKindActivated,
		Timing:     effects.TimingMain,
		ScriptID:   "raise",
	}
	st := activationState(t, 0,
		character("src", "p1", raise),
		character("watcher", "p1", auto("play", effects.TimingOnPlay, "boom")),
	)

	var log []string
	e := newTestEngine(t, nil)
	mustRegister(t, e, "keep", recordTo(&log, "keep"))
	mustRegister(t, e, "boom", func(context.Context, *ScriptContext) error { return errors.New("boom") })
	mustRegister(t, e, "raise", func(_ context.Context, sc *ScriptContext) error {
		sc.Raise(rules.NewEvent(rules.EventCardPlayed, "p1", "watcher"))
		return nil
	})
	e.Enqueue(rules.NewTrigger(auto("keep", effects.TimingOnPlay, "keep"), "watcher", "p1", rules.NewEvent(rules.EventCardPlayed, "p1", "watcher"), "p1"))

	next, err := e.ActivateEffect(context.Background(), st, "src", "raise")
	require.Error(t, err)
	assert.Same(t, st, next)
	assert.NotEmpty(t, log, "the earlier trigger ran before the failure")

	pending := e.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "keep", pending[0].Definition.ID)
	assert.Equal(t, rules.TriggerPending, pending[0].Status)
}

func TestResolveStack_RejectsReentry(t *testing.T) {
	st, err := state.NewBuilder("p1", "p2").
		Add(character("x", "p1", auto("play", effects.TimingOnPlay, "reenter")), state.ZoneField).
		Build()
	require.NoError(t, err)

	e := newTestEngine(t, nil)
	var inner error
	mustRegister(t, e, "reenter", func(ctx context.Context, sc *ScriptContext) error {
		_, inner = e.ResolveStack(ctx, sc.State())
		return nil
	})

	e.Raise(st, rules.NewEvent(rules.EventCardPlayed, "p1", "x"))
	_, err = e.ResolveStack(context.Background(), st)
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrReentrantResolution)
}

func TestResolveStack_ScriptRaisedTriggersDrainFirst(t *testing.T) {
	st, err := state.NewBuilder("p1", "p2").
		Add(character("x", "p1"), state.ZoneField).
		Add(character("y", "p2"), state.ZoneField).
		Add(character("z", "p2", auto("z-play", effects.TimingOnPlay, "nested")), state.ZoneField).
		Build()
	require.NoError(t, err)

	var log []string
	e := newTestEngine(t, nil)
	mustRegister(t, e, "outer", func(_ context.Context, sc *ScriptContext) error {
		log = append(log, "outer")
		sc.Raise(rules.NewEvent(rules.EventCardPlayed, "p2", "z"))
		return nil
	})
	mustRegister(t, e, "nested", recordTo(&log, "nested"))
	mustRegister(t, e, "waiting", recordTo(&log, "waiting"))

	evt := rules.NewEvent(rules.EventCardPlayed, "p1", "x")
	e.Enqueue(
		rules.NewTrigger(auto("o", effects.TimingOnPlay, "outer"), "x", "p1", evt, "p1"),
		rules.NewTrigger(auto("w", effects.TimingOnPlay, "waiting"), "y", "p2", evt, "p1"),
	)

	_, err = e.ResolveStack(context.Background(), st)
	require.NoError(t, err)
	// Both later triggers have the same priority; the nested one still goes first.
	assert.Equal(t, []string{"outer", "nested", "waiting"}, log)
}

func TestResolveStack_ResolverTriggersWaitForCurrentList(t *testing.T) {
	koSelf := &effects.Definition{
		ID:         "ko",
		TimingKind: effects.TimingKindAuto,
		Timing:     effects.TimingOnPlay,
		Params:     effects.KnockOutCharacter{},
		Target:     effects.TargetSpec{Kind: effects.TargetCharacter, Side: effects.SideOwn, Max: 1},
	}
	st, err := state.NewBuilder("p1", "p2").
		Add(character("victim", "p1", auto("on-ko", effects.TimingOnKnockout, "on-ko")), state.ZoneField).
		Add(character("y", "p2"), state.ZoneField).
		Build()
	require.NoError(t, err)

	var log []string
	e := newTestEngine(t, nil)
	mustRegister(t, e, "on-ko", recordTo(&log, "on-ko"))
	mustRegister(t, e, "waiting", recordTo(&log, "waiting"))

	evt := rules.NewEvent(rules.EventCardPlayed, "p1", "victim")
	e.Enqueue(
		rules.NewTrigger(koSelf, "victim", "p1", evt, "p1"),
		rules.NewTrigger(auto("w", effects.TimingOnPlay, "waiting"), "y", "p2", evt, "p1"),
	)

	next, err := e.ResolveStack(context.Background(), st)
	require.NoError(t, err)
	// The knockout trigger has the higher priority but was raised by a
	// resolver, so it waits for the list it was raised from.
	assert.Equal(t, []string{"waiting", "on-ko"}, log)
	assert.Equal(t, []string{"victim"}, next.ZoneIDs("p1", state.ZoneTrash))
}

func TestResolveStack_GameOverLeavesTriggersPending(t *testing.T) {
	st, err := state.NewBuilder("p1", "p2").
		Add(character("x", "p1", auto("play", effects.TimingOnPlay, "s")), state.ZoneField).
		Build()
	require.NoError(t, err)

	var log []string
	e := newTestEngine(t, nil)
	mustRegister(t, e, "s", recordTo(&log, "s"))

	e.Raise(st, rules.NewEvent(rules.EventCardPlayed, "p1", "x"))
	_, err = e.ResolveStack(context.Background(), st.SetLoser("p2"))
	require.NoError(t, err)
	assert.Empty(t, log)
	require.Len(t, e.Pending(), 1)
	assert.Equal(t, rules.TriggerPending, e.Pending()[0].Status)
}

func activatedDraw(oncePerTurn bool, c effects.Cost) *effects.Definition {
	return &effects.Definition{
		ID:          "draw",
		TimingKind:  effects.TimingKindActivated,
		Timing:      effects.TimingMain,
		Cost:        c,
		Params:      effects.DrawCards{Count: 1},
		Target:      effects.TargetSpec{Kind: effects.TargetController},
		OncePerTurn: oncePerTurn,
	}
}

func activationState(t *testing.T, active int, extra ...state.Card) *state.State {
	t.Helper()
	b := state.NewBuilder("p1", "p2").
		Resources("p1", state.ResourcePool{Active: active}).
		Resources("p2", state.ResourcePool{Active: 10})
	for _, id := range []string{"d1", "d2", "d3", "d4"} {
		b.Add(state.Card{ID: id, Owner: "p1", Category: state.CategoryCharacter}, state.ZoneDeck)
		b.Add(state.Card{ID: id + "-2", Owner: "p2", Category: state.CategoryCharacter}, state.ZoneDeck)
	}
	for _, c := range extra {
		b.Add(c, state.ZoneField)
	}
	st, err := b.Build()
	require.NoError(t, err)
	return st
}

func TestActivateEffect_OncePerTurn(t *testing.T) {
	st := activationState(t, 0, character("src", "p1", activatedDraw(true, nil)))
	e := newTestEngine(t, nil)
	ctx := context.Background()

	st, err := e.ActivateEffect(ctx, st, "src", "draw")
	require.NoError(t, err)
	assert.Equal(t, 1, st.ZoneSize("p1", state.ZoneHand))
	assert.True(t, st.EffectUsedThisTurn("src", "draw"))

	_, err = e.ActivateEffect(ctx, st, "src", "draw")
	require.ErrorIs(t, err, ErrAlreadyUsed)
	var ae *ActivationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ReasonAlreadyUsed, ae.Reason)
	assert.True(t, IsActionError(err))

	// Back on p1's turn the use resets.
	st = st.AdvanceTurn()
	_, err = e.ActivateEffect(ctx, st, "src", "draw")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	st = st.AdvanceTurn()
	st, err = e.ActivateEffect(ctx, st, "src", "draw")
	require.NoError(t, err)
	assert.Equal(t, 2, st.ZoneSize("p1", state.ZoneHand))
}

func TestActivateEffect_Rejections(t *testing.T) {
	condDef := activatedDraw(false, nil)
	condDef.ID = "cond"
	condDef.Condition = effects.HasKeyword{Keyword: effects.KeywordRush}
	autoDef := auto("auto", effects.TimingOnPlay, "s")

	st := activationState(t, 1,
		character("src", "p1", activatedDraw(false, effects.RestResource{Amount: 2}), condDef, autoDef),
		character("theirs", "p2", activatedDraw(false, nil)),
	)
	e := newTestEngine(t, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		card   string
		effect string
		want   error
	}{
		{"unknown effect", "src", "missing", ErrNoSuchEffect},
		{"auto effect", "src", "auto", ErrNotActivatable},
		{"opponent's card", "theirs", "draw", ErrNotYourTurn},
		{"condition", "src", "cond", ErrConditionUnmet},
		{"cost", "src", "draw", ErrCostUnaffordable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := e.ActivateEffect(ctx, st, tc.card, tc.effect)
			assert.ErrorIs(t, err, tc.want)
			assert.Same(t, st, next)
		})
	}
}

func TestActivateEffect_CostReplacementMakesItAffordable(t *testing.T) {
	discount := &effects.Definition{
		ID:         "discount",
		TimingKind: effects.TimingKindReplacement,
		ScriptID:   "discount-3",
	}
	st := activationState(t, 2,
		character("src", "p1", activatedDraw(false, effects.RestResource{Amount: 5})),
		character("helper", "p1", discount),
	)

	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.ActivateEffect(ctx, st, "src", "draw")
	require.ErrorIs(t, err, ErrScriptNotFound, "replacement content must be registered")

	require.NoError(t, e.RegisterRewrite("discount-3", func(c effects.Cost, _ effects.ReplacementContext) (effects.Cost, error) {
		return effects.ReduceRest(c, 3), nil
	}, nil))

	preview, err := e.PreviewCost(st, "src", "draw")
	require.NoError(t, err)
	assert.Equal(t, effects.RestResource{Amount: 2}, preview)

	next, err := e.ActivateEffect(ctx, st, "src", "draw")
	require.NoError(t, err)
	assert.Equal(t, 0, next.ActiveResources("p1"))
	assert.Equal(t, 2, next.Resources("p1").Rested)
	assert.True(t, e.Replacements().HasSource("helper"))
}

func TestResolveStack_RetargetedBodyRechecksTargets(t *testing.T) {
	ko := &effects.Definition{
		ID:         "ko",
		TimingKind: effects.TimingKindAuto,
		Timing:     effects.TimingOnPlay,
		Params:     effects.KnockOutCharacter{},
		Target:     effects.TargetSpec{Kind: effects.TargetCharacter, Side: effects.SideOpponent, Max: 1},
	}
	redirect := &effects.Definition{ID: "redirect", TimingKind: effects.TimingKindReplacement, ScriptID: "redirect"}

	cases := []struct {
		name    string
		retarget string
		fizzled bool
	}{
		{"target in trash", "gone", true},
		{"legal target", "foe", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, err := state.NewBuilder("p1", "p2").
				Add(character("x", "p1", ko), state.ZoneField).
				Add(character("helper", "p1", redirect), state.ZoneField).
				Add(character("foe", "p2"), state.ZoneField).
				Add(character("gone", "p2"), state.ZoneTrash).
				Build()
			require.NoError(t, err)

			e := newTestEngine(t, nil)
			require.NoError(t, e.RegisterRewrite("redirect", nil, func(inst *effects.Instance, _ effects.ReplacementContext) (*effects.Instance, error) {
				inst.Targets = []effects.Target{effects.CardTarget(tc.retarget)}
				return inst, nil
			}))
			var fizzled []rules.Event
			e.Bus().SubscribeTyped(rules.EventEffectFizzled, func(ev rules.Event) { fizzled = append(fizzled, ev) })

			e.Raise(st, rules.NewEvent(rules.EventCardPlayed, "p1", "x"))
			next, err := e.ResolveStack(context.Background(), st)
			require.NoError(t, err)

			if tc.fizzled {
				require.Len(t, fizzled, 1)
				assert.Equal(t, "targets lost", fizzled[0].Metadata["reason"])
				assert.True(t, next.OnField("foe"))
				return
			}
			assert.Empty(t, fizzled)
			assert.Equal(t, state.ZoneTrash, mustCard(t, next, "foe").Zone)
		})
	}
}

func TestSyncReplacements_DropsDepartedSources(t *testing.T) {
	discount := &effects.Definition{ID: "discount", TimingKind: effects.TimingKindReplacement, ScriptID: "d"}
	bounceHelper := &effects.Definition{
		ID:         "bounce",
		TimingKind: effects.TimingKindActivated,
		Timing:     effects.TimingMain,
		ScriptID:   "bounce-helper",
	}
	st := activationState(t, 0,
		character("src", "p1", bounceHelper),
		character("helper", "p1", discount),
	)

	e := newTestEngine(t, nil)
	require.NoError(t, e.RegisterRewrite("d", func(c effects.Cost, _ effects.ReplacementContext) (effects.Cost, error) {
		return c, nil
	}, nil))
	mustRegister(t, e, "bounce-helper", func(_ context.Context, sc *ScriptContext) error {
		return sc.MoveCard("helper", state.ZoneHand)
	})

	require.NoError(t, e.SyncReplacements(st))
	require.True(t, e.Replacements().HasSource("helper"))
	require.NoError(t, e.SyncReplacements(st))
	assert.Len(t, e.Replacements().Entries(), 1, "registration is idempotent")

	next, err := e.ActivateEffect(context.Background(), st, "src", "bounce")
	require.NoError(t, err)
	assert.Equal(t, state.ZoneHand, mustCard(t, next, "helper").Zone)
	assert.False(t, e.Replacements().HasSource("helper"))
}

func mustCard(t *testing.T, st *state.State, id string) state.Card {
	t.Helper()
	c, ok := st.Card(id)
	require.True(t, ok, "card %s", id)
	return c
}

func TestPlayCard_CharacterTriggersOnPlay(t *testing.T) {
	onPlay := &effects.Definition{
		ID:         "on-play",
		TimingKind: effects.TimingKindAuto,
		Timing:     effects.TimingOnPlay,
		Params:     effects.DrawCards{Count: 1},
		Target:     effects.TargetSpec{Kind: effects.TargetController},
	}
	st, err := state.NewBuilder("p1", "p2").
		Resources("p1", state.ResourcePool{Active: 3}).
		Add(state.Card{ID: "deck", Owner: "p1", Category: state.CategoryCharacter}, state.ZoneDeck).
		Add(state.Card{ID: "ch", Owner: "p1", Category: state.CategoryCharacter, BaseCost: 2, Effects: []*effects.Definition{onPlay}}, state.ZoneHand).
		Build()
	require.NoError(t, err)

	var played []rules.Event
	e := newTestEngine(t, nil)
	e.Bus().SubscribeTyped(rules.EventCardPlayed, func(ev rules.Event) { played = append(played, ev) })

	next, err := e.PlayCard(context.Background(), st, "ch")
	require.NoError(t, err)
	assert.True(t, next.OnField("ch"))
	assert.Equal(t, []string{"deck"}, next.ZoneIDs("p1", state.ZoneHand))
	assert.Equal(t, 1, next.ActiveResources("p1"))
	assert.True(t, next.PlayedThisTurn("ch"))
	require.Len(t, played, 1)
	assert.Equal(t, "ch", played[0].CardID)
}

func TestPlayCard_EventResolvesMainAndTrashes(t *testing.T) {
	main := &effects.Definition{
		ID:         "main",
		TimingKind: effects.TimingKindActivated,
		Timing:     effects.TimingMain,
		Params:     effects.DrawCards{Count: 2},
		Target:     effects.TargetSpec{Kind: effects.TargetController},
	}
	st, err := state.NewBuilder("p1", "p2").
		Resources("p1", state.ResourcePool{Active: 1}).
		Add(state.Card{ID: "d1", Owner: "p1"}, state.ZoneDeck).
		Add(state.Card{ID: "d2", Owner: "p1"}, state.ZoneDeck).
		Add(state.Card{ID: "ev", Owner: "p1", Category: state.CategoryEvent, BaseCost: 1, Effects: []*effects.Definition{main}}, state.ZoneHand).
		Build()
	require.NoError(t, err)

	e := newTestEngine(t, nil)
	next, err := e.PlayCard(context.Background(), st, "ev")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, next.ZoneIDs("p1", state.ZoneHand))
	assert.Equal(t, []string{"ev"}, next.ZoneIDs("p1", state.ZoneTrash))
	assert.Equal(t, 0, next.ActiveResources("p1"))
}

func TestPlayCard_Rejections(t *testing.T) {
	st, err := state.NewBuilder("p1", "p2").
		Resources("p1", state.ResourcePool{Active: 1}).
		Add(state.Card{ID: "big", Owner: "p1", Category: state.CategoryCharacter, BaseCost: 4}, state.ZoneHand).
		Add(state.Card{ID: "theirs", Owner: "p2", Category: state.CategoryCharacter}, state.ZoneHand).
		Add(character("onfield", "p1"), state.ZoneField).
		Build()
	require.NoError(t, err)

	e := newTestEngine(t, nil)
	ctx := context.Background()

	_, err = e.PlayCard(ctx, st, "big")
	assert.ErrorIs(t, err, ErrCostUnaffordable)
	_, err = e.PlayCard(ctx, st, "theirs")
	assert.ErrorIs(t, err, ErrNotYourTurn)
	_, err = e.PlayCard(ctx, st, "onfield")
	assert.ErrorIs(t, err, ErrNotInHand)
	_, err = e.PlayCard(ctx, st.SetLoser("p2"), "big")
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestUseCounterEvent(t *testing.T) {
	counter := &effects.Definition{
		ID:         "counter",
		TimingKind: effects.TimingKindActivated,
		Timing:     effects.TimingCounter,
		Params:     effects.ModifyPower{Delta: 4000, Duration: effects.DurationThisBattle},
		Target:     effects.TargetSpec{Kind: effects.TargetLeaderOrCharacter, Side: effects.SideOwn, Max: 1},
	}
	st, err := state.NewBuilder("p1", "p2").
		Resources("p2", state.ResourcePool{Active: 1}).
		Add(state.Card{ID: "l2", Owner: "p2", Category: state.CategoryLeader, BasePower: 5000}, state.ZoneLeader).
		Add(state.Card{ID: "ce", Owner: "p2", Category: state.CategoryEvent, BaseCost: 1, Effects: []*effects.Definition{counter}}, state.ZoneHand).
		Build()
	require.NoError(t, err)

	var used []rules.Event
	e := newTestEngine(t, nil)
	e.Bus().SubscribeTyped(rules.EventCounterPlayed, func(ev rules.Event) { used = append(used, ev) })

	next, err := e.UseCounterEvent(context.Background(), st, "ce", "counter")
	require.NoError(t, err)
	assert.Equal(t, 9000, next.Power("l2"))
	assert.Equal(t, []string{"ce"}, next.ZoneIDs("p2", state.ZoneTrash))
	assert.Equal(t, 0, next.ActiveResources("p2"))
	assert.Len(t, used, 1)
	assert.Equal(t, 5000, next.ExpireModifiers(effects.DurationThisBattle).Power("l2"))

	_, err = e.UseCounterEvent(context.Background(), st.AdvanceTurn(), "ce", "counter")
	assert.ErrorIs(t, err, ErrNotActivatable, "the turn player cannot counter")
}

func TestEndTurn_RunsTurnBoundaryEffects(t *testing.T) {
	st, err := state.NewBuilder("p1", "p2").
		Add(character("mine", "p1", auto("eot", effects.TimingEndOfYourTurn, "eot")), state.ZoneField).
		Add(character("theirs", "p2",
			auto("eoot", effects.TimingEndOfOpponentTurn, "eoot"),
			auto("sot", effects.TimingStartOfTurn, "sot"),
		), state.ZoneField).
		Build()
	require.NoError(t, err)

	var log []string
	e := newTestEngine(t, nil)
	for _, id := range []string{"eot", "eoot", "sot"} {
		mustRegister(t, e, id, recordTo(&log, id))
	}

	next, err := e.EndTurn(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"eot", "eoot", "sot"}, log)
	assert.Equal(t, 2, next.Turn())
	assert.Equal(t, "p2", next.ActivePlayer())
}

func TestScriptContext_Helpers(t *testing.T) {
	def := &effects.Definition{ID: "body", TimingKind: effects.TimingKindActivated, Timing: effects.TimingMain, ScriptID: "body"}
	st := activationState(t, 2,
		character("src", "p1", def),
		character("foe", "p2"),
	)

	e := newTestEngine(t, decision.NewScripted().Targets("foe").Value(2))
	var chosen []string
	var value int
	mustRegister(t, e, "body", func(_ context.Context, sc *ScriptContext) error {
		if _, err := sc.DrawCards(sc.Controller(), 2); err != nil {
			return err
		}
		if err := sc.ModifyPower(sc.SourceID(), 2000, effects.DurationThisTurn); err != nil {
			return err
		}
		if err := sc.ModifyCost(sc.SourceID(), -1, effects.DurationThisTurn); err != nil {
			return err
		}
		var err error
		if chosen, err = sc.ChooseTargets([]string{"foe"}, 0, 1); err != nil {
			return err
		}
		if err := sc.RestCard(chosen[0]); err != nil {
			return err
		}
		if value, err = sc.ChooseValue("n", 0, 2); err != nil {
			return err
		}
		if _, err := sc.AttachResources(sc.SourceID(), value, false); err != nil {
			return err
		}
		in := sc.SearchZone(sc.Controller(), state.ZoneHand, effects.CardFilter{})
		if len(in) != 2 {
			return errors.New("expected two cards in hand")
		}
		return sc.KnockOut("foe")
	})

	next, err := e.ActivateEffect(context.Background(), st, "src", "body")
	require.NoError(t, err)
	assert.Equal(t, 2, next.ZoneSize("p1", state.ZoneHand))
	assert.Equal(t, 3000+2000+2*1000, next.Power("src"))
	assert.Equal(t, 0, next.Cost("src"))
	assert.Equal(t, []string{"foe"}, chosen)
	assert.Equal(t, 2, value)
	assert.Equal(t, []string{"foe"}, next.ZoneIDs("p2", state.ZoneTrash))
}

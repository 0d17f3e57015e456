// Package battle runs one combat exchange: the attack is declared, the
// defender may block and counter, and the result is applied as a
// knockout or life damage.
package battle

import (
	"context"
	"fmt"

	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/engine"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"go.uber.org/zap"
)

// Step is a state of the battle machine.
type Step string

const (
	StepDeclared         Step = "DECLARED"
	StepBlockOffered     Step = "BLOCK_OFFERED"
	StepBlockChosen      Step = "BLOCK_CHOSEN"
	StepBlockDeclined    Step = "BLOCK_DECLINED"
	StepCounter          Step = "COUNTER_STEP"
	StepDamageResolution Step = "DAMAGE_RESOLUTION"
	StepComplete         Step = "COMPLETE"
)

// Outcome records what a battle did.
type Outcome struct {
	AttackerID string
	TargetID   string
	// BlockerID is empty when no blocker was chosen.
	BlockerID string
	// DamageDealt counts life cards removed from the defending leader.
	DamageDealt        int
	DefenderKnockedOut bool
	// Powers as compared in damage resolution.
	AttackerPower    int
	DefenderPower    int
	LifeCardsRemoved []string
	DefenderLost     bool
	CountersPlayed   []string
	Steps            []Step
}

// Blocked reports whether the attack was redirected to a blocker.
func (o Outcome) Blocked() bool { return o.BlockerID != "" }

// DefenderID returns the card that actually defended.
func (o Outcome) DefenderID() string {
	if o.BlockerID != "" {
		return o.BlockerID
	}
	return o.TargetID
}

// Machine runs battles against one engine.
type Machine struct {
	logger *zap.Logger
	engine *engine.Engine
}

// NewMachine creates a battle machine that resolves triggers, counters and
// knockouts through eng.
func NewMachine(logger *zap.Logger, eng *engine.Engine) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{logger: logger, engine: eng}
}

// battle carries one exchange through the steps.
type battle struct {
	m        *Machine
	st       *state.State
	out      Outcome
	attacker string
	defender string
	player   string
	opponent string
}

func (b *battle) step(s Step) {
	b.out.Steps = append(b.out.Steps, s)
	b.m.logger.Debug("battle step",
		zap.String("step", string(s)),
		zap.String("attacker_id", b.attacker),
		zap.String("defender_id", b.defender))
}

// ExecuteAttack declares an attack and runs it to completion. Illegal
// declarations fail with an *AttackError before anything changes. Once
// declared, the attack always completes: if the attacker or defender
// leaves the field to an effect along the way, the battle ends without
// damage. A content or decision error aborts the attack: st is returned
// and the engine's registry and pending triggers are rolled back.
func (m *Machine) ExecuteAttack(ctx context.Context, st *state.State, attackerID, targetID string) (*state.State, Outcome, error) {
	if err := m.validate(st, attackerID, targetID); err != nil {
		return st, Outcome{}, err
	}
	attacker, _ := st.Card(attackerID)
	b := &battle{
		m:        m,
		st:       st,
		out:      Outcome{AttackerID: attackerID, TargetID: targetID},
		attacker: attackerID,
		defender: targetID,
		player:   attacker.Controller,
		opponent: st.Opponent(attacker.Controller),
	}

	cp := m.engine.Checkpoint()
	if err := b.run(ctx); err != nil {
		m.engine.Rollback(cp)
		return st, Outcome{}, err
	}
	b.complete()
	return b.st, b.out, nil
}

func (b *battle) run(ctx context.Context) error {
	if err := b.declare(ctx); err != nil {
		return err
	}
	steps := []func(context.Context) error{b.offerBlock, b.counterStep, b.resolveDamage}
	for _, step := range steps {
		if !b.live() {
			break
		}
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) validate(st *state.State, attackerID, targetID string) error {
	fail := func(r Reason, detail string) error {
		return &AttackError{AttackerID: attackerID, TargetID: targetID, Reason: r, Detail: detail}
	}
	if st.GameOver() {
		return fail(ReasonGameOver, "")
	}
	attacker, ok := st.Card(attackerID)
	if !ok || attacker.Controller != st.ActivePlayer() {
		return fail(ReasonNotYourCharacter, "")
	}
	switch {
	case attacker.Zone == state.ZoneLeader:
	case attacker.Zone == state.ZoneField && attacker.IsCharacter():
		if st.PlayedThisTurn(attackerID) && !attacker.HasKeyword(effects.KeywordRush) {
			return fail(ReasonSummoningSick, "")
		}
	default:
		return fail(ReasonNotYourCharacter, string(attacker.Zone))
	}
	if st.AttackedThisTurn(attackerID) {
		return fail(ReasonAlreadyAttacked, "")
	}
	if attacker.Rested {
		return fail(ReasonAttackerRested, "")
	}

	target, ok := st.Card(targetID)
	if !ok || target.Controller == attacker.Controller {
		return fail(ReasonInvalidTarget, "not an opposing card")
	}
	switch {
	case target.Zone == state.ZoneLeader:
	case target.Zone == state.ZoneField && target.IsCharacter():
		if !target.Rested {
			return fail(ReasonInvalidTarget, "active characters cannot be attacked")
		}
	default:
		return fail(ReasonInvalidTarget, string(target.Zone))
	}
	return nil
}

// live reports whether both combatants are still in play.
func (b *battle) live() bool {
	return !b.st.GameOver() && b.st.OnField(b.attacker) && b.st.OnField(b.defender)
}

func (b *battle) resolve(ctx context.Context) error {
	next, err := b.m.engine.ResolveStack(ctx, b.st)
	if err != nil {
		return err
	}
	b.st = next
	return nil
}

func (b *battle) declare(ctx context.Context) error {
	next, err := b.st.Rest(b.attacker)
	if err != nil {
		return err
	}
	if next, err = next.MarkAttacked(b.attacker); err != nil {
		return err
	}
	b.st = next
	b.step(StepDeclared)

	b.m.engine.Raise(b.st, rules.NewAttackEvent(b.player, b.attacker, b.defender))
	return b.resolve(ctx)
}

// blockers returns the defending player's characters able to block.
func (b *battle) blockers() []string {
	var out []string
	for _, c := range b.st.ZoneCards(b.opponent, state.ZoneField) {
		if c.ID == b.defender || c.Rested || !c.IsCharacter() || !c.HasKeyword(effects.KeywordBlocker) {
			continue
		}
		out = append(out, c.ID)
	}
	return out
}

func (b *battle) offerBlock(ctx context.Context) error {
	candidates := b.blockers()
	if len(candidates) == 0 {
		return nil
	}
	b.step(StepBlockOffered)

	req := decision.BlockRequest{
		Defender:   b.opponent,
		AttackerID: b.attacker,
		TargetID:   b.defender,
		Candidates: candidates,
	}
	choice, err := b.m.engine.Decisions().ChooseBlocker(ctx, b.st, req)
	if err != nil {
		return fmt.Errorf("choose blocker: %w", err)
	}
	if err := decision.ValidateBlocker(req, choice); err != nil {
		return err
	}
	if choice == "" {
		b.step(StepBlockDeclined)
		return nil
	}

	next, err := b.st.Rest(choice)
	if err != nil {
		return err
	}
	b.st = next
	b.defender = choice
	b.out.BlockerID = choice
	b.step(StepBlockChosen)

	evt := rules.NewEvent(rules.EventBlockDeclared, b.opponent, choice)
	evt.TargetID = b.attacker
	b.m.engine.Raise(b.st, evt)
	return b.resolve(ctx)
}

// counterOptions lists the defender's hand cards usable as counters.
func (b *battle) counterOptions() []decision.CounterOption {
	var out []decision.CounterOption
	for _, c := range b.st.ZoneCards(b.opponent, state.ZoneHand) {
		switch {
		case c.IsCharacter() && c.Counter > 0:
			out = append(out, decision.CounterOption{CardID: c.ID, Kind: decision.CounterFromCharacter, Amount: c.Counter})
		case c.Category == state.CategoryEvent:
			def := engine.CounterEffect(c)
			if def != nil && b.m.engine.CanUseCounterEvent(b.st, c.ID) {
				out = append(out, decision.CounterOption{CardID: c.ID, Kind: decision.CounterFromEvent, EffectID: def.ID})
			}
		}
	}
	return out
}

func (b *battle) counterStep(ctx context.Context) error {
	b.step(StepCounter)
	for b.live() {
		opts := b.counterOptions()
		if len(opts) == 0 {
			return nil
		}
		req := decision.CounterRequest{
			Defender:      b.opponent,
			AttackerID:    b.attacker,
			DefenderID:    b.defender,
			AttackerPower: b.st.Power(b.attacker),
			DefenderPower: b.st.Power(b.defender),
			Options:       opts,
		}
		choice, err := b.m.engine.Decisions().ChooseCounter(ctx, b.st, req)
		if err != nil {
			return fmt.Errorf("choose counter: %w", err)
		}
		opt, ok, err := decision.ValidateCounter(req, choice)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := b.useCounter(ctx, opt); err != nil {
			return err
		}
		b.out.CountersPlayed = append(b.out.CountersPlayed, opt.CardID)
	}
	return nil
}

func (b *battle) useCounter(ctx context.Context, opt decision.CounterOption) error {
	if opt.Kind == decision.CounterFromEvent {
		next, err := b.m.engine.UseCounterEvent(ctx, b.st, opt.CardID, opt.EffectID)
		if err != nil {
			return err
		}
		b.st = next
		return nil
	}

	next, err := b.st.AddModifier(state.Modifier{
		CardID:   b.defender,
		SourceID: opt.CardID,
		Kind:     state.ModifierPower,
		Delta:    opt.Amount,
		Duration: effects.DurationThisBattle,
	})
	if err != nil {
		return err
	}
	card, _ := b.st.Card(opt.CardID)
	if next, err = next.MoveCard(opt.CardID, state.ZoneTrash); err != nil {
		return err
	}
	b.st = next

	evt := rules.NewEvent(rules.EventCounterPlayed, b.opponent, opt.CardID)
	evt.TargetID = b.defender
	evt.Amount = opt.Amount
	b.m.engine.Bus().Publish(evt)
	b.m.engine.Bus().Publish(rules.NewMoveEvent(b.opponent, opt.CardID, string(card.Zone), string(state.ZoneTrash), rules.ReasonDiscard))
	return nil
}

func (b *battle) resolveDamage(ctx context.Context) error {
	b.step(StepDamageResolution)
	b.out.AttackerPower = b.st.Power(b.attacker)
	b.out.DefenderPower = b.st.Power(b.defender)
	if b.out.AttackerPower < b.out.DefenderPower {
		return nil
	}

	defender, _ := b.st.Card(b.defender)
	if defender.Zone == state.ZoneLeader {
		return b.damageLeader(ctx)
	}

	next, triggers, err := b.m.engine.Removal().RemoveCharacter(b.st, b.defender)
	if err != nil {
		return err
	}
	b.st = next
	b.out.DefenderKnockedOut = true
	b.m.engine.Enqueue(triggers...)
	return b.resolve(ctx)
}

func (b *battle) complete() {
	b.st = b.st.ExpireModifiers(effects.DurationThisBattle)
	b.step(StepComplete)

	evt := rules.NewEvent(rules.EventBattleEnded, b.player, b.attacker)
	evt.TargetID = b.out.DefenderID()
	evt.Amount = b.out.DamageDealt
	evt.Metadata["blocker_id"] = b.out.BlockerID
	evt.Metadata["defender_knocked_out"] = fmt.Sprint(b.out.DefenderKnockedOut)
	b.m.engine.Bus().Publish(evt)

	b.m.logger.Debug("battle complete",
		zap.String("attacker_id", b.out.AttackerID),
		zap.String("target_id", b.out.TargetID),
		zap.String("blocker_id", b.out.BlockerID),
		zap.Int("attacker_power", b.out.AttackerPower),
		zap.Int("defender_power", b.out.DefenderPower),
		zap.Int("damage", b.out.DamageDealt),
		zap.Bool("knocked_out", b.out.DefenderKnockedOut))
}

// Package engine detects which card effects react to game events, orders
// them and drives them to resolution through replacements, scripts and
// the built-in resolvers.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/removal"
	"github.com/opcg/rules-engine-go/internal/game/resolvers"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"go.uber.org/zap"
)

// DefaultMaxChainDepth bounds how many nested trigger frames may be open.
const DefaultMaxChainDepth = 32

// Script is an effect body registered under a script ID. It mutates state
// only through the ScriptContext.
type Script func(ctx context.Context, sc *ScriptContext) error

type rewrite struct {
	cost effects.CostRewrite
	body effects.BodyRewrite
}

// Options configures an Engine.
type Options struct {
	Logger        *zap.Logger
	Decisions     decision.Provider
	Replacements  *effects.ReplacementRegistry
	Bus           *rules.EventBus
	MaxChainDepth int
}

// Engine is the trigger and resolution engine of one game. It owns the
// script table, the replacement registry and the trigger queue; none of
// them is shared between games.
type Engine struct {
	logger       *zap.Logger
	decisions    decision.Provider
	replacements *effects.ReplacementRegistry
	bus          *rules.EventBus
	removal      *removal.Process
	resolvers    *resolvers.Set
	queue        *rules.TriggerQueue
	resolution   *rules.ResolutionContext

	mu       sync.RWMutex
	scripts  map[string]Script
	rewrites map[string]rewrite
}

// New creates an engine. Zero-value options get working defaults.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	decisions := opts.Decisions
	if decisions == nil {
		decisions = decision.Funcs{}
	}
	replacements := opts.Replacements
	if replacements == nil {
		replacements = effects.NewReplacementRegistry(logger.Named("replacements"))
	}
	bus := opts.Bus
	if bus == nil {
		bus = rules.NewEventBus()
	}
	depth := opts.MaxChainDepth
	if depth <= 0 {
		depth = DefaultMaxChainDepth
	}

	proc := removal.NewProcess(logger.Named("removal"), replacements, bus)
	return &Engine{
		logger:       logger,
		decisions:    decisions,
		replacements: replacements,
		bus:          bus,
		removal:      proc,
		resolvers: resolvers.NewSet(resolvers.Deps{
			Logger:       logger.Named("resolvers"),
			Decisions:    decisions,
			Knockouts:    proc,
			Replacements: replacements,
		}),
		queue:      rules.NewTriggerQueue(depth),
		resolution: rules.NewResolutionContext(1),
		scripts:    make(map[string]Script),
		rewrites:   make(map[string]rewrite),
	}
}

// Decisions returns the provider the engine suspends on.
func (e *Engine) Decisions() decision.Provider { return e.decisions }

// Replacements returns the engine's replacement registry.
func (e *Engine) Replacements() *effects.ReplacementRegistry { return e.replacements }

// Removal returns the knockout process bound to this engine.
func (e *Engine) Removal() *removal.Process { return e.removal }

// Bus returns the event bus the engine publishes to.
func (e *Engine) Bus() *rules.EventBus { return e.bus }

// Pending returns the triggers waiting to resolve.
func (e *Engine) Pending() []*rules.Trigger { return e.queue.Pending() }

// RegisterScript maps id to an effect body. Registering an ID twice is a
// content-loading bug and fails.
func (e *Engine) RegisterScript(id string, fn Script) error {
	if id == "" || fn == nil {
		return fmt.Errorf("register script %q: id and body required", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.scripts[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateScript, id)
	}
	e.scripts[id] = fn
	e.logger.Debug("registered script", zap.String("script_id", id))
	return nil
}

// UnregisterScript removes a script; unknown IDs are ignored.
func (e *Engine) UnregisterScript(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scripts, id)
}

// HasScript reports whether id is registered.
func (e *Engine) HasScript(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.scripts[id]
	return ok
}

func (e *Engine) script(id string) (Script, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.scripts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, id)
	}
	return fn, nil
}

// RegisterRewrite binds replacement content to the script ID REPLACEMENT
// definitions refer to. Either rewrite may be nil.
func (e *Engine) RegisterRewrite(id string, costRewrite effects.CostRewrite, bodyRewrite effects.BodyRewrite) error {
	if id == "" || (costRewrite == nil && bodyRewrite == nil) {
		return fmt.Errorf("register rewrite %q: id and a rewrite required", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.rewrites[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRewrite, id)
	}
	e.rewrites[id] = rewrite{cost: costRewrite, body: bodyRewrite}
	return nil
}

// Enqueue adds triggers built elsewhere (the removal process, life
// triggers) to the queue.
func (e *Engine) Enqueue(triggers ...*rules.Trigger) {
	e.queue.Enqueue(triggers...)
}

// Raise publishes an event and enqueues the triggers it matches.
func (e *Engine) Raise(st *state.State, event rules.Event) int {
	e.bus.Publish(event)
	return e.TriggerEffects(st, event)
}

// TriggerEffects scans the cards in play for AUTO effects whose timing
// matches the event, builds triggers with active-player priority and
// enqueues them. It returns how many were enqueued. On-knockout effects
// never match here; only the removal process builds those.
func (e *Engine) TriggerEffects(st *state.State, event rules.Event) int {
	triggers := e.collectTriggers(st, event)
	e.queue.Enqueue(triggers...)
	return len(triggers)
}

func (e *Engine) collectTriggers(st *state.State, event rules.Event) []*rules.Trigger {
	var out []*rules.Trigger
	for _, m := range timingsFor(event) {
		for _, card := range m.cards(st, event) {
			if !card.Zone.InPlay() {
				continue
			}
			for _, def := range card.EffectsWithTiming(m.timing) {
				if def.TimingKind != effects.TimingKindAuto {
					continue
				}
				if def.OncePerTurn && st.EffectUsedThisTurn(card.ID, def.ID) {
					continue
				}
				out = append(out, rules.NewTrigger(def, card.ID, card.Controller, event, st.ActivePlayer()))
			}
		}
	}
	if len(out) > 0 {
		e.logger.Debug("event matched effects",
			zap.String("event", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Int("triggers", len(out)))
	}
	return out
}

// timingMatch pairs a timing with the cards whose definitions may react.
type timingMatch struct {
	timing effects.Timing
	cards  func(*state.State, rules.Event) []state.Card
}

func subjectCard(st *state.State, event rules.Event) []state.Card {
	if c, ok := st.Card(event.CardID); ok {
		return []state.Card{c}
	}
	return nil
}

func playerCards(player func(*state.State, rules.Event) string) func(*state.State, rules.Event) []state.Card {
	return func(st *state.State, event rules.Event) []state.Card {
		return st.InPlay(player(st, event))
	}
}

func eventPlayer(_ *state.State, event rules.Event) string { return event.PlayerID }

func eventOpponent(st *state.State, event rules.Event) string { return st.Opponent(event.PlayerID) }

// timingsFor is the event to timing table.
func timingsFor(event rules.Event) []timingMatch {
	switch event.Type {
	case rules.EventCardPlayed:
		return []timingMatch{{effects.TimingOnPlay, subjectCard}}
	case rules.EventAttackDeclared:
		return []timingMatch{
			{effects.TimingWhenAttacking, subjectCard},
			{effects.TimingOnOpponentAttack, playerCards(eventOpponent)},
		}
	case rules.EventBlockDeclared:
		return []timingMatch{{effects.TimingOnBlock, subjectCard}}
	case rules.EventPhaseChanged:
		switch event.Phase {
		case rules.PhaseTurnStart:
			return []timingMatch{{effects.TimingStartOfTurn, playerCards(eventPlayer)}}
		case rules.PhaseTurnEnd:
			return []timingMatch{
				{effects.TimingEndOfYourTurn, playerCards(eventPlayer)},
				{effects.TimingEndOfOpponentTurn, playerCards(eventOpponent)},
			}
		}
	}
	return nil
}

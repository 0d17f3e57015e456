// Package resolvers holds one state transition per built-in effect kind.
//
// Every resolver follows the same conventions: an instance without
// targets leaves the state unchanged, numeric constraints are checked per
// target (failing targets are skipped, the rest still resolve), and
// operations limited by available cards or resources do as much as they
// can instead of failing.
package resolvers

import (
	"context"
	"errors"
	"fmt"

	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/removal"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"go.uber.org/zap"
)

var (
	// ErrUnknownEffectKind is returned when no resolver handles an instance's parameters.
	ErrUnknownEffectKind = errors.New("unknown effect kind")
	// ErrParamsMismatch is returned when a resolver is handed another kind's parameters.
	ErrParamsMismatch = errors.New("effect parameters do not match resolver")
)

// Result is a resolver's output: the new state plus any triggers the
// resolution produced (knockouts).
type Result struct {
	State    *state.State
	Triggers []*rules.Trigger
}

// Resolver is the transition for one effect kind.
type Resolver interface {
	Kind() effects.Kind
	// CanResolve checks parameter validity only, never target existence.
	CanResolve(inst *effects.Instance, st *state.State) bool
	Resolve(ctx context.Context, inst *effects.Instance, st *state.State) (Result, error)
}

// Knocker is the knockout path resolvers route through.
type Knocker interface {
	RemoveCharacter(st *state.State, cardID string) (*state.State, []*rules.Trigger, error)
}

// Set dispatches effect instances to the built-in resolvers.
type Set struct {
	logger    *zap.Logger
	resolvers map[effects.Kind]Resolver
}

// Deps are the collaborators the built-in resolvers need.
type Deps struct {
	Logger       *zap.Logger
	Decisions    decision.Provider
	Knockouts    Knocker
	Replacements removal.Unregisterer
}

// NewSet builds the set of built-in resolvers.
func NewSet(deps Deps) *Set {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	decisions := deps.Decisions
	if decisions == nil {
		decisions = decision.Funcs{}
	}
	knockouts := deps.Knockouts
	if knockouts == nil {
		knockouts = removal.NewProcess(logger, deps.Replacements, nil)
	}

	s := &Set{logger: logger, resolvers: make(map[effects.Kind]Resolver)}
	for _, r := range []Resolver{
		drawCards{},
		searchDeck{decisions: decisions},
		knockOut{knockouts: knockouts},
		bounce{replacements: deps.Replacements},
		attachResource{},
		modifyPower{},
		restCharacter{},
		discardCards{decisions: decisions},
		addResource{},
	} {
		s.resolvers[r.Kind()] = r
	}
	return s
}

// Resolver returns the resolver registered for kind.
func (s *Set) Resolver(kind effects.Kind) (Resolver, bool) {
	r, ok := s.resolvers[kind]
	return r, ok
}

// Dispatch selects the resolver by the instance's parameter type and runs
// it. Invalid parameters fizzle: the state comes back unchanged.
func (s *Set) Dispatch(ctx context.Context, inst *effects.Instance, st *state.State) (Result, error) {
	var kind effects.Kind
	switch inst.Params.(type) {
	case effects.DrawCards:
		kind = effects.KindDrawCards
	case effects.SearchDeck:
		kind = effects.KindSearchDeck
	case effects.KnockOutCharacter:
		kind = effects.KindKnockOutCharacter
	case effects.BounceCharacter:
		kind = effects.KindBounceCharacter
	case effects.AttachResource:
		kind = effects.KindAttachResource
	case effects.ModifyPower:
		kind = effects.KindModifyPower
	case effects.RestCharacter:
		kind = effects.KindRestCharacter
	case effects.DiscardCards:
		kind = effects.KindDiscardCards
	case effects.AddResource:
		kind = effects.KindAddResource
	default:
		return Result{State: st}, fmt.Errorf("%w: %s", ErrUnknownEffectKind, inst.Kind())
	}

	r, ok := s.resolvers[kind]
	if !ok {
		return Result{State: st}, fmt.Errorf("%w: %s", ErrUnknownEffectKind, kind)
	}
	if !r.CanResolve(inst, st) {
		s.logger.Debug("effect fizzled",
			zap.String("instance_id", inst.ID),
			zap.String("source_id", inst.SourceID),
			zap.String("kind", string(kind)),
			zap.String("reason", "invalid parameters"))
		return Result{State: st}, nil
	}
	res, err := r.Resolve(ctx, inst, st)
	if err != nil {
		return Result{State: st}, fmt.Errorf("resolve %s: %w", kind, err)
	}
	if res.State == nil {
		res.State = st
	}
	s.logger.Debug("effect resolved",
		zap.String("instance_id", inst.ID),
		zap.String("source_id", inst.SourceID),
		zap.String("kind", string(kind)),
		zap.Int("targets", len(inst.Targets)),
		zap.Int("triggers", len(res.Triggers)))
	return res, nil
}

func params[P effects.Params](inst *effects.Instance) (P, error) {
	p, ok := inst.Params.(P)
	if !ok {
		var zero P
		return zero, fmt.Errorf("%w: got %T", ErrParamsMismatch, inst.Params)
	}
	return p, nil
}

func effectID(inst *effects.Instance) string {
	if inst.Definition == nil {
		return ""
	}
	return inst.Definition.ID
}

// passes reports whether a card target is a character on the field
// within the limit, using derived cost and power.
func passes(st *state.State, cardID string, limit effects.Constraint) bool {
	card, ok := st.Card(cardID)
	if !ok || card.Zone != state.ZoneField || !card.IsCharacter() {
		return false
	}
	return limit.Allows(st.Cost(cardID), st.Power(cardID))
}

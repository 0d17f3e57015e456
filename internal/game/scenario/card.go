package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/state"
)

// Card is a card as written in a scenario file.
type Card struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	Category         string   `yaml:"category"`
	Power            int      `yaml:"power"`
	Cost             int      `yaml:"cost"`
	Counter          int      `yaml:"counter"`
	Colors           []string `yaml:"colors"`
	Keywords         []string `yaml:"keywords"`
	Rested           bool     `yaml:"rested"`
	FaceUp           bool     `yaml:"face_up"`
	Attached         int      `yaml:"attached"`
	PlayedTurn       int      `yaml:"played_turn"`
	PermanentRemoval bool     `yaml:"permanent_removal"`
	Effects          []Effect `yaml:"effects"`
}

// Effect is an effect definition. Kind selects a built-in resolver and the
// flat parameter fields it reads; Script names a registered script instead.
type Effect struct {
	ID          string      `yaml:"id"`
	TimingKind  string      `yaml:"timing_kind"`
	Timing      string      `yaml:"timing"`
	Kind        string      `yaml:"kind"`
	Script      string      `yaml:"script"`
	OncePerTurn bool        `yaml:"once_per_turn"`
	Priority    int         `yaml:"priority"`
	Text        string      `yaml:"text"`
	Cost        *CostSpec   `yaml:"cost"`
	Target      *TargetSpec `yaml:"target"`
	Conditions  []Compare   `yaml:"conditions"`

	Count      int    `yaml:"count"`
	LookAt     int    `yaml:"look_at"`
	PickUpTo   int    `yaml:"pick_up_to"`
	Delta      int    `yaml:"delta"`
	Duration   string `yaml:"duration"`
	FromRested bool   `yaml:"from_rested"`
	Rested     bool   `yaml:"rested"`
	MaxCost    *int   `yaml:"max_cost"`
	MaxPower   *int   `yaml:"max_power"`
	Filter     Filter `yaml:"filter"`
}

// CostSpec is an activation cost.
type CostSpec struct {
	Rest    int `yaml:"rest"`
	Discard int `yaml:"discard"`
}

// TargetSpec declares how an effect's targets are chosen.
type TargetSpec struct {
	Kind string `yaml:"kind"`
	Side string `yaml:"side"`
	Min  int    `yaml:"min"`
	Max  int    `yaml:"max"`
}

// Compare is one term of an effect condition; all terms must hold.
type Compare struct {
	Quantity string `yaml:"quantity"`
	Op       string `yaml:"op"`
	Value    int    `yaml:"value"`
}

// Filter narrows search-deck picks.
type Filter struct {
	Category    string `yaml:"category"`
	Color       string `yaml:"color"`
	Keyword     string `yaml:"keyword"`
	Name        string `yaml:"name"`
	ExcludeName string `yaml:"exclude_name"`
	MaxCost     *int   `yaml:"max_cost"`
	MaxPower    *int   `yaml:"max_power"`
}

func (c Card) toCard(owner string) (state.Card, error) {
	category := state.Category(strings.ToUpper(c.Category))
	if category == "" {
		category = state.CategoryCharacter
	}
	switch category {
	case state.CategoryLeader, state.CategoryCharacter, state.CategoryEvent, state.CategoryStage:
	default:
		return state.Card{}, fmt.Errorf("card %s: unknown category %q", c.ID, c.Category)
	}

	card := state.Card{
		ID:               c.ID,
		DefinitionID:     c.Name,
		Name:             c.Name,
		Owner:            owner,
		Category:         category,
		BasePower:        c.Power,
		BaseCost:         c.Cost,
		Counter:          c.Counter,
		Rested:           c.Rested,
		FaceUp:           c.FaceUp,
		Attached:         c.Attached,
		PlayedTurn:       c.PlayedTurn,
		PermanentRemoval: c.PermanentRemoval,
	}
	for _, col := range c.Colors {
		card.Colors = append(card.Colors, effects.Color(strings.ToUpper(col)))
	}
	for _, kw := range c.Keywords {
		card.Keywords = append(card.Keywords, effects.Keyword(strings.ToUpper(kw)))
	}

	var errs []error
	for i, e := range c.Effects {
		def, err := e.definition()
		if err != nil {
			errs = append(errs, fmt.Errorf("card %s effect %d: %w", c.ID, i, err))
			continue
		}
		card.Effects = append(card.Effects, def)
	}
	return card, errors.Join(errs...)
}

func (e Effect) definition() (*effects.Definition, error) {
	def := &effects.Definition{
		ID:                  e.ID,
		TimingKind:          effects.TimingKind(strings.ToUpper(e.TimingKind)),
		Timing:              effects.Timing(strings.ToUpper(e.Timing)),
		ScriptID:            e.Script,
		OncePerTurn:         e.OncePerTurn,
		ReplacementPriority: e.Priority,
		Text:                e.Text,
	}
	if def.ID == "" {
		return nil, errors.New("effect id is required")
	}
	if def.TimingKind == "" {
		def.TimingKind = effects.TimingKindAuto
	}
	switch def.TimingKind {
	case effects.TimingKindAuto, effects.TimingKindActivated, effects.TimingKindReplacement:
	default:
		return nil, fmt.Errorf("unknown timing kind %q", e.TimingKind)
	}
	if def.TimingKind == effects.TimingKindReplacement && e.Script == "" {
		return nil, errors.New("replacement effects need a script")
	}

	params, err := e.params()
	if err != nil {
		return nil, err
	}
	def.Params = params

	if e.Cost != nil {
		def.Cost = e.Cost.cost()
	}
	if e.Target != nil {
		def.Target = effects.TargetSpec{
			Kind: effects.TargetKind(strings.ToUpper(e.Target.Kind)),
			Side: effects.Side(strings.ToUpper(e.Target.Side)),
			Min:  e.Target.Min,
			Max:  e.Target.Max,
		}
	}
	cond, err := condition(e.Conditions)
	if err != nil {
		return nil, err
	}
	def.Condition = cond
	return def, nil
}

func (e Effect) params() (effects.Params, error) {
	kind := effects.Kind(strings.ToLower(e.Kind))
	if kind == "" {
		if e.Script == "" {
			return nil, errors.New("effect needs a kind or a script")
		}
		return effects.ScriptOnly{}, nil
	}
	limit := constraint(e.MaxCost, e.MaxPower)
	switch kind {
	case effects.KindDrawCards:
		return effects.DrawCards{Count: e.Count}, nil
	case effects.KindSearchDeck:
		return effects.SearchDeck{LookAt: e.LookAt, PickUpTo: e.PickUpTo, Filter: e.Filter.filter()}, nil
	case effects.KindKnockOutCharacter:
		return effects.KnockOutCharacter{Limit: limit}, nil
	case effects.KindBounceCharacter:
		return effects.BounceCharacter{Limit: limit}, nil
	case effects.KindAttachResource:
		return effects.AttachResource{Count: e.Count, FromRested: e.FromRested}, nil
	case effects.KindModifyPower:
		d, err := duration(e.Duration)
		if err != nil {
			return nil, err
		}
		return effects.ModifyPower{Delta: e.Delta, Duration: d}, nil
	case effects.KindRestCharacter:
		return effects.RestCharacter{Limit: limit}, nil
	case effects.KindDiscardCards:
		return effects.DiscardCards{Count: e.Count}, nil
	case effects.KindAddResource:
		return effects.AddResource{Count: e.Count, Rested: e.Rested}, nil
	case effects.KindScript:
		return effects.ScriptOnly{}, nil
	default:
		return nil, fmt.Errorf("unknown effect kind %q", e.Kind)
	}
}

func (c CostSpec) cost() effects.Cost {
	var parts []effects.Cost
	if c.Rest > 0 {
		parts = append(parts, effects.RestResource{Amount: c.Rest})
	}
	if c.Discard > 0 {
		parts = append(parts, effects.DiscardCard{Amount: c.Discard})
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		return effects.Composite{Parts: parts}
	}
}

func (f Filter) filter() effects.CardFilter {
	return effects.CardFilter{
		Category:     f.Category,
		Color:        effects.Color(strings.ToUpper(f.Color)),
		Keyword:      effects.Keyword(strings.ToUpper(f.Keyword)),
		NameContains: f.Name,
		ExcludeName:  f.ExcludeName,
		Limit:        constraint(f.MaxCost, f.MaxPower),
	}
}

func constraint(maxCost, maxPower *int) effects.Constraint {
	var c effects.Constraint
	if maxCost != nil {
		c.MaxCost, c.HasMaxCost = *maxCost, true
	}
	if maxPower != nil {
		c.MaxPower, c.HasMaxPower = *maxPower, true
	}
	return c
}

func duration(s string) (effects.Duration, error) {
	switch strings.ToLower(s) {
	case "", "this_turn":
		return effects.DurationThisTurn, nil
	case "this_battle":
		return effects.DurationThisBattle, nil
	case "permanent":
		return effects.DurationPermanent, nil
	default:
		return "", fmt.Errorf("unknown duration %q", s)
	}
}

func condition(terms []Compare) (effects.Condition, error) {
	var conds []effects.Condition
	for _, t := range terms {
		op := effects.CompareOp(t.Op)
		switch op {
		case effects.OpEqual, effects.OpNotEqual, effects.OpLess, effects.OpLessEqual, effects.OpGreater, effects.OpGreaterEqual:
		default:
			return nil, fmt.Errorf("unknown comparison %q", t.Op)
		}
		conds = append(conds, effects.Compare{
			Op:    op,
			Left:  effects.Quantity(t.Quantity),
			Right: effects.Const{Value: t.Value},
		})
	}
	switch len(conds) {
	case 0:
		return nil, nil
	case 1:
		return conds[0], nil
	default:
		return effects.And{Terms: conds}, nil
	}
}

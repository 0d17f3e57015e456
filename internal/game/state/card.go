package state

import (
	"slices"
	"strings"

	"github.com/opcg/rules-engine-go/internal/game/effects"
)

// Category is the printed card type.
type Category string

const (
	CategoryLeader    Category = "LEADER"
	CategoryCharacter Category = "CHARACTER"
	CategoryEvent     Category = "EVENT"
	CategoryStage     Category = "STAGE"
)

// Card is a card instance. It is a value type; the state hands out copies.
type Card struct {
	ID           string
	DefinitionID string
	Name         string
	Owner        string
	Controller   string
	Category     Category
	Zone         Zone

	BasePower int
	BaseCost  int
	// Counter is the power a character adds when used from hand in the counter step.
	Counter int
	Colors  []effects.Color
	// Keywords are printed keywords. Definitions are shared with every other
	// instance of the same card.
	Keywords []effects.Keyword
	Effects  []*effects.Definition

	Rested   bool
	Attached int
	// FaceUp only matters for life cards.
	FaceUp bool
	// PermanentRemoval routes the card to ZoneRemoved instead of the trash
	// when it is knocked out.
	PermanentRemoval bool
	PlayedTurn       int
	AttackedTurn     int
}

// HasKeyword reports whether the card carries kw.
func (c Card) HasKeyword(kw effects.Keyword) bool {
	return slices.Contains(c.Keywords, kw)
}

// HasColor reports whether the card has color col.
func (c Card) HasColor(col effects.Color) bool {
	return slices.Contains(c.Colors, col)
}

// Effect returns the definition with the given ID.
func (c Card) Effect(defID string) (*effects.Definition, bool) {
	for _, def := range c.Effects {
		if def != nil && def.ID == defID {
			return def, true
		}
	}
	return nil, false
}

// EffectsWithTiming returns the card's definitions reacting to timing.
func (c Card) EffectsWithTiming(timing effects.Timing) []*effects.Definition {
	var out []*effects.Definition
	for _, def := range c.Effects {
		if def != nil && def.Timing == timing && def.TimingKind != effects.TimingKindReplacement {
			out = append(out, def)
		}
	}
	return out
}

// IsCharacter reports whether the card is a character.
func (c Card) IsCharacter() bool { return c.Category == CategoryCharacter }

// IsLeader reports whether the card is a leader.
func (c Card) IsLeader() bool { return c.Category == CategoryLeader }

func (c Card) clone() Card {
	c.Colors = slices.Clone(c.Colors)
	c.Keywords = slices.Clone(c.Keywords)
	c.Effects = slices.Clone(c.Effects)
	return c
}

// matchesStatic checks the parts of a filter that do not need derived values.
func (c Card) matchesStatic(f effects.CardFilter) bool {
	if f.Category != "" && !strings.EqualFold(string(c.Category), f.Category) {
		return false
	}
	if f.Color != "" && !c.HasColor(f.Color) {
		return false
	}
	if f.Keyword != "" && !c.HasKeyword(f.Keyword) {
		return false
	}
	if f.NameContains != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.NameContains)) {
		return false
	}
	if f.ExcludeName != "" && strings.EqualFold(c.Name, f.ExcludeName) {
		return false
	}
	return true
}

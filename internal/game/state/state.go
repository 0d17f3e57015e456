package state

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/opcg/rules-engine-go/internal/game/effects"
)

// DefaultResourceBonus is the power each attached resource adds.
const DefaultResourceBonus = 1000

var (
	// ErrCardNotFound is returned when a card instance ID is unknown.
	ErrCardNotFound = errors.New("card not found")
	// ErrUnknownPlayer is returned when a player ID is not part of the game.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrInsufficientResources is returned when a payment cannot be made in full.
	ErrInsufficientResources = errors.New("insufficient resources")
	// ErrInsufficientCards is returned when a player cannot trash enough cards from hand.
	ErrInsufficientCards = errors.New("insufficient cards in hand")
)

// Rules holds the numeric constants derived values are computed with.
type Rules struct {
	ResourceBonus int
}

// ResourcePool counts a player's resource cards. Resources attached to
// characters are counted on the characters instead.
type ResourcePool struct {
	Deck   int
	Active int
	Rested int
}

// ModifierKind selects which derived value a modifier changes.
type ModifierKind string

const (
	ModifierPower ModifierKind = "POWER"
	ModifierCost  ModifierKind = "COST"
)

// Modifier is a timed change to a card's power or cost.
type Modifier struct {
	ID       string
	CardID   string
	SourceID string
	Kind     ModifierKind
	Delta    int
	Duration effects.Duration
	Turn     int
}

// State is an immutable game snapshot. Every mutator returns a new *State
// and leaves the receiver untouched, so callers may keep old handles for
// rollback or comparison.
type State struct {
	turn      int
	active    string
	players   []string
	pools     map[string]ResourcePool
	cards     map[string]Card
	zones     map[string]map[Zone][]string
	modifiers []Modifier
	used      map[string]int
	loser     string
	rules     Rules
}

// clone copies the containers; slices inside zones are copied lazily by
// the mutators that touch them.
func (s *State) clone() *State {
	cp := *s
	cp.players = slices.Clone(s.players)
	cp.pools = maps.Clone(s.pools)
	cp.cards = maps.Clone(s.cards)
	cp.zones = make(map[string]map[Zone][]string, len(s.zones))
	for p, z := range s.zones {
		cp.zones[p] = maps.Clone(z)
	}
	cp.modifiers = slices.Clone(s.modifiers)
	cp.used = maps.Clone(s.used)
	return &cp
}

// Turn returns the current turn number, starting at 1.
func (s *State) Turn() int { return s.turn }

// ActivePlayer returns the player whose turn it is.
func (s *State) ActivePlayer() string { return s.active }

// Players returns the player IDs in seating order.
func (s *State) Players() []string { return slices.Clone(s.players) }

// Rules returns the game's numeric constants.
func (s *State) Rules() Rules { return s.rules }

// Loser returns the player who lost, or "" while the game is running.
func (s *State) Loser() string { return s.loser }

// GameOver reports whether a loser has been decided.
func (s *State) GameOver() bool { return s.loser != "" }

// HasPlayer reports whether id takes part in the game.
func (s *State) HasPlayer(id string) bool { return slices.Contains(s.players, id) }

// Opponent returns the other player of a two-player game.
func (s *State) Opponent(player string) string {
	for _, p := range s.players {
		if p != player {
			return p
		}
	}
	return ""
}

// Card returns a copy of the card instance.
func (s *State) Card(id string) (Card, bool) {
	c, ok := s.cards[id]
	if !ok {
		return Card{}, false
	}
	return c.clone(), true
}

// ZoneIDs returns the card IDs in a player's zone in order.
func (s *State) ZoneIDs(player string, zone Zone) []string {
	return slices.Clone(s.zones[player][zone])
}

// ZoneCards returns copies of the cards in a player's zone in order.
func (s *State) ZoneCards(player string, zone Zone) []Card {
	ids := s.zones[player][zone]
	out := make([]Card, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.cards[id].clone())
	}
	return out
}

// ZoneSize returns the number of cards in a player's zone.
func (s *State) ZoneSize(player string, zone Zone) int {
	return len(s.zones[player][zone])
}

// Leader returns the player's leader card.
func (s *State) Leader(player string) (Card, bool) {
	ids := s.zones[player][ZoneLeader]
	if len(ids) == 0 {
		return Card{}, false
	}
	return s.Card(ids[0])
}

// InPlay returns the player's leader, characters and stage in that order.
func (s *State) InPlay(player string) []Card {
	var out []Card
	for _, z := range []Zone{ZoneLeader, ZoneField, ZoneStage} {
		out = append(out, s.ZoneCards(player, z)...)
	}
	return out
}

// OnField reports whether the card is in play.
func (s *State) OnField(id string) bool {
	c, ok := s.cards[id]
	return ok && c.Zone.InPlay()
}

// Life returns the number of life cards the player has left.
func (s *State) Life(player string) int { return len(s.zones[player][ZoneLife]) }

// Resources returns the player's resource pool.
func (s *State) Resources(player string) ResourcePool { return s.pools[player] }

// ActiveResources returns how many resources the player can rest right now.
func (s *State) ActiveResources(player string) int { return s.pools[player].Active }

// Modifiers returns the active modifiers on a card.
func (s *State) Modifiers(cardID string) []Modifier {
	var out []Modifier
	for _, m := range s.modifiers {
		if m.CardID == cardID {
			out = append(out, m)
		}
	}
	return out
}

// Power returns the card's derived power: base plus power modifiers plus
// the attached resource bonus. It is never cached.
func (s *State) Power(id string) int {
	c, ok := s.cards[id]
	if !ok {
		return 0
	}
	power := c.BasePower + c.Attached*s.rules.ResourceBonus
	for _, m := range s.modifiers {
		if m.CardID == id && m.Kind == ModifierPower {
			power += m.Delta
		}
	}
	return power
}

// Cost returns the card's derived cost, floored at zero.
func (s *State) Cost(id string) int {
	c, ok := s.cards[id]
	if !ok {
		return 0
	}
	cost := c.BaseCost
	for _, m := range s.modifiers {
		if m.CardID == id && m.Kind == ModifierCost {
			cost += m.Delta
		}
	}
	return max(cost, 0)
}

// EffectUsedThisTurn reports whether a once-per-turn effect of the card
// instance was already used during the current turn.
func (s *State) EffectUsedThisTurn(cardID, defID string) bool {
	return s.used[usedKey(cardID, defID)] == s.turn
}

// AttackedThisTurn reports whether the card already attacked this turn.
func (s *State) AttackedThisTurn(id string) bool {
	c, ok := s.cards[id]
	return ok && c.AttackedTurn == s.turn && s.turn > 0
}

// PlayedThisTurn reports whether the card entered the field this turn.
func (s *State) PlayedThisTurn(id string) bool {
	c, ok := s.cards[id]
	return ok && c.PlayedTurn == s.turn && s.turn > 0
}

// MatchesFilter reports whether the card passes f, using derived cost and power.
func (s *State) MatchesFilter(id string, f effects.CardFilter) bool {
	c, ok := s.cards[id]
	if !ok || !c.matchesStatic(f) {
		return false
	}
	return f.Limit.Allows(s.Cost(id), s.Power(id))
}

func usedKey(cardID, defID string) string {
	return cardID + "|" + defID
}

func (s *State) mustCard(id string) (Card, error) {
	c, ok := s.cards[id]
	if !ok {
		return Card{}, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	return c, nil
}

func (s *State) mustPlayer(id string) error {
	if !s.HasPlayer(id) {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}
	return nil
}

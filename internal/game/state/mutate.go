package state

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/opcg/rules-engine-go/internal/game/effects"
)

// MoveCard moves a card to the bottom (end) of a zone of its owner. It is
// the only zone transition; every caller that changes zones routes here.
// A card leaving play returns its attached resources to the owner rested
// and drops its modifiers and per-field flags.
func (s *State) MoveCard(id string, to Zone) (*State, error) {
	return s.moveCard(id, to, false)
}

// MoveCardToTop moves a card to index 0 of a zone.
func (s *State) MoveCardToTop(id string, to Zone) (*State, error) {
	return s.moveCard(id, to, true)
}

func (s *State) moveCard(id string, to Zone, top bool) (*State, error) {
	card, err := s.mustCard(id)
	if err != nil {
		return s, err
	}
	if to == ZoneNone {
		return s, fmt.Errorf("move %s: destination zone required", id)
	}

	next := s.clone()
	from := card.Zone
	owner := card.Owner

	if ids := next.zones[owner][from]; len(ids) > 0 {
		if idx := slices.Index(ids, id); idx >= 0 {
			next.zones[owner][from] = slices.Delete(slices.Clone(ids), idx, idx+1)
		}
	}
	if next.zones[owner] == nil {
		next.zones[owner] = make(map[Zone][]string)
	}
	dest := slices.Clone(next.zones[owner][to])
	if top {
		dest = slices.Insert(dest, 0, id)
	} else {
		dest = append(dest, id)
	}
	next.zones[owner][to] = dest

	if from.InPlay() && !to.InPlay() {
		pool := next.pools[owner]
		pool.Rested += card.Attached
		next.pools[owner] = pool

		card.Attached = 0
		card.Rested = false
		card.AttackedTurn = 0
		card.PlayedTurn = 0
		card.Controller = owner
		next.modifiers = slices.DeleteFunc(next.modifiers, func(m Modifier) bool {
			return m.CardID == id
		})
	}
	if !from.InPlay() && to.InPlay() {
		card.PlayedTurn = next.turn
		card.Rested = false
	}
	if from == ZoneLife && to != ZoneLife {
		card.FaceUp = false
	}
	card.Zone = to
	next.cards[id] = card
	return next, nil
}

// Draw moves up to n cards from the top of the player's deck to hand and
// returns the drawn IDs. An empty deck ends the draw early.
func (s *State) Draw(player string, n int) (*State, []string, error) {
	if err := s.mustPlayer(player); err != nil {
		return s, nil, err
	}
	next := s
	var drawn []string
	for range n {
		deck := next.zones[player][ZoneDeck]
		if len(deck) == 0 {
			break
		}
		var err error
		next, err = next.MoveCard(deck[0], ZoneHand)
		if err != nil {
			return s, nil, err
		}
		drawn = append(drawn, deck[0])
	}
	return next, drawn, nil
}

// Rest sets the card to rested.
func (s *State) Rest(id string) (*State, error) {
	return s.updateCard(id, func(c *Card) { c.Rested = true })
}

// SetActive sets the card to active.
func (s *State) SetActive(id string) (*State, error) {
	return s.updateCard(id, func(c *Card) { c.Rested = false })
}

// SetPermanentRemoval flags the card so a knockout routes it to ZoneRemoved.
func (s *State) SetPermanentRemoval(id string, v bool) (*State, error) {
	return s.updateCard(id, func(c *Card) { c.PermanentRemoval = v })
}

// SetFaceUp turns a card face up or down.
func (s *State) SetFaceUp(id string, v bool) (*State, error) {
	return s.updateCard(id, func(c *Card) { c.FaceUp = v })
}

// MarkAttacked records that the card attacked this turn.
func (s *State) MarkAttacked(id string) (*State, error) {
	turn := s.turn
	return s.updateCard(id, func(c *Card) { c.AttackedTurn = turn })
}

func (s *State) updateCard(id string, fn func(*Card)) (*State, error) {
	card, err := s.mustCard(id)
	if err != nil {
		return s, err
	}
	next := s.clone()
	card = card.clone()
	fn(&card)
	next.cards[id] = card
	return next, nil
}

// RestResources rests n of the player's active resources.
func (s *State) RestResources(player string, n int) (*State, error) {
	if err := s.mustPlayer(player); err != nil {
		return s, err
	}
	if n <= 0 {
		return s, nil
	}
	pool := s.pools[player]
	if pool.Active < n {
		return s, fmt.Errorf("%w: need %d, have %d", ErrInsufficientResources, n, pool.Active)
	}
	next := s.clone()
	pool.Active -= n
	pool.Rested += n
	next.pools[player] = pool
	return next, nil
}

// AttachResources attaches up to n of the controller's resources to a card
// in play and returns how many were attached. Rested resources are used
// first; with onlyRested, active ones are never touched.
func (s *State) AttachResources(cardID string, n int, onlyRested bool) (*State, int, error) {
	card, err := s.mustCard(cardID)
	if err != nil {
		return s, 0, err
	}
	if n <= 0 || !card.Zone.InPlay() {
		return s, 0, nil
	}
	pool := s.pools[card.Controller]
	fromRested := min(n, pool.Rested)
	fromActive := 0
	if !onlyRested {
		fromActive = min(n-fromRested, pool.Active)
	}
	total := fromRested + fromActive
	if total == 0 {
		return s, 0, nil
	}
	next := s.clone()
	pool.Rested -= fromRested
	pool.Active -= fromActive
	next.pools[card.Controller] = pool
	card.Attached += total
	next.cards[cardID] = card
	return next, total, nil
}

// AddResources moves up to n resources from the player's resource deck into
// play and returns how many moved.
func (s *State) AddResources(player string, n int, rested bool) (*State, int, error) {
	if err := s.mustPlayer(player); err != nil {
		return s, 0, err
	}
	pool := s.pools[player]
	moved := min(max(n, 0), pool.Deck)
	if moved == 0 {
		return s, 0, nil
	}
	next := s.clone()
	pool.Deck -= moved
	if rested {
		pool.Rested += moved
	} else {
		pool.Active += moved
	}
	next.pools[player] = pool
	return next, moved, nil
}

// AddModifier attaches a timed modifier to a card. The modifier's ID and
// turn are filled in when empty.
func (s *State) AddModifier(m Modifier) (*State, error) {
	if _, err := s.mustCard(m.CardID); err != nil {
		return s, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Turn == 0 {
		m.Turn = s.turn
	}
	if m.Duration == "" {
		m.Duration = effects.DurationThisTurn
	}
	next := s.clone()
	next.modifiers = append(next.modifiers, m)
	return next, nil
}

// ExpireModifiers drops every modifier with the given duration.
func (s *State) ExpireModifiers(d effects.Duration) *State {
	if !slices.ContainsFunc(s.modifiers, func(m Modifier) bool { return m.Duration == d }) {
		return s
	}
	next := s.clone()
	next.modifiers = slices.DeleteFunc(next.modifiers, func(m Modifier) bool {
		return m.Duration == d
	})
	return next
}

// MarkEffectUsed records a once-per-turn use for the current turn.
func (s *State) MarkEffectUsed(cardID, defID string) *State {
	next := s.clone()
	next.used[usedKey(cardID, defID)] = s.turn
	return next
}

// SetLoser ends the game with player as the loser.
func (s *State) SetLoser(player string) *State {
	if s.loser != "" {
		return s
	}
	next := s.clone()
	next.loser = player
	return next
}

// Refresh returns the player's attached resources to the pool and sets
// every card and resource of theirs active.
func (s *State) Refresh(player string) *State {
	next := s.clone()
	pool := next.pools[player]
	for _, z := range []Zone{ZoneLeader, ZoneField, ZoneStage} {
		for _, id := range next.zones[player][z] {
			card := next.cards[id]
			pool.Rested += card.Attached
			card.Attached = 0
			card.Rested = false
			next.cards[id] = card
		}
	}
	pool.Active += pool.Rested
	pool.Rested = 0
	next.pools[player] = pool
	return next
}

// AdvanceTurn hands the turn to the opponent: the turn counter increments,
// this-turn and this-battle modifiers expire and the new active player
// refreshes. It is the minimal hook an external phase driver needs.
func (s *State) AdvanceTurn() *State {
	next := s.ExpireModifiers(effects.DurationThisTurn).ExpireModifiers(effects.DurationThisBattle)
	next = next.clone()
	next.turn++
	next.active = next.Opponent(next.active)
	return next.Refresh(next.active)
}

package state

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Builder assembles an initial game state. It is meant for setup code
// (scenarios, tests) and is not safe for concurrent use.
type Builder struct {
	players []string
	active  string
	turn    int
	rules   Rules
	pools   map[string]ResourcePool
	cards   []Card
	errs    []error
}

// NewBuilder starts a two-player game; the first player is active.
func NewBuilder(first, second string) *Builder {
	return &Builder{
		players: []string{first, second},
		active:  first,
		turn:    1,
		rules:   Rules{ResourceBonus: DefaultResourceBonus},
		pools:   make(map[string]ResourcePool),
	}
}

// Active sets the active player.
func (b *Builder) Active(player string) *Builder {
	b.active = player
	return b
}

// Turn sets the turn number.
func (b *Builder) Turn(turn int) *Builder {
	b.turn = turn
	return b
}

// ResourceBonus sets the power each attached resource adds.
func (b *Builder) ResourceBonus(bonus int) *Builder {
	b.rules.ResourceBonus = bonus
	return b
}

// Resources sets a player's resource pool.
func (b *Builder) Resources(player string, pool ResourcePool) *Builder {
	b.pools[player] = pool
	return b
}

// Add places a card in a zone. An empty ID gets a fresh UUID and an empty
// controller defaults to the owner. Zone order follows call order.
func (b *Builder) Add(card Card, zone Zone) *Builder {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.Owner == "" {
		b.errs = append(b.errs, fmt.Errorf("card %s has no owner", card.ID))
		return b
	}
	if card.Controller == "" {
		card.Controller = card.Owner
	}
	card.Zone = zone
	b.cards = append(b.cards, card)
	return b
}

// Build validates the setup and returns the state.
func (b *Builder) Build() (*State, error) {
	errs := append([]error(nil), b.errs...)
	if b.players[0] == "" || b.players[1] == "" || b.players[0] == b.players[1] {
		errs = append(errs, fmt.Errorf("two distinct players required, got %q and %q", b.players[0], b.players[1]))
	}
	if b.active != b.players[0] && b.active != b.players[1] {
		errs = append(errs, fmt.Errorf("%w: active player %s", ErrUnknownPlayer, b.active))
	}
	if b.rules.ResourceBonus < 0 {
		errs = append(errs, errors.New("resource bonus must not be negative"))
	}

	st := &State{
		turn:    b.turn,
		active:  b.active,
		players: append([]string(nil), b.players...),
		pools:   make(map[string]ResourcePool, 2),
		cards:   make(map[string]Card, len(b.cards)),
		zones:   make(map[string]map[Zone][]string, 2),
		used:    make(map[string]int),
		rules:   b.rules,
	}
	for _, p := range b.players {
		st.pools[p] = b.pools[p]
		st.zones[p] = make(map[Zone][]string)
	}
	for _, c := range b.cards {
		if _, dup := st.cards[c.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate card id %s", c.ID))
			continue
		}
		if _, ok := st.zones[c.Owner]; !ok {
			errs = append(errs, fmt.Errorf("%w: owner %s of card %s", ErrUnknownPlayer, c.Owner, c.ID))
			continue
		}
		if c.Zone == ZoneLeader && len(st.zones[c.Owner][ZoneLeader]) > 0 {
			errs = append(errs, fmt.Errorf("player %s already has a leader", c.Owner))
			continue
		}
		st.cards[c.ID] = c.clone()
		st.zones[c.Owner][c.Zone] = append(st.zones[c.Owner][c.Zone], c.ID)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return st, nil
}

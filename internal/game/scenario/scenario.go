// Package scenario loads battle setups from YAML: the board, the canned
// player decisions and the attacks to run.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"gopkg.in/yaml.v3"
)

// Scenario is a complete battle setup.
type Scenario struct {
	Name          string    `yaml:"name"`
	ActivePlayer  string    `yaml:"active_player"`
	Turn          int       `yaml:"turn"`
	ResourceBonus int       `yaml:"resource_bonus"`
	Players       []Player  `yaml:"players"`
	Decisions     Decisions `yaml:"decisions"`
	Attacks       []Attack  `yaml:"attacks"`
}

// Player is one side of the board.
type Player struct {
	ID        string    `yaml:"id"`
	Resources Resources `yaml:"resources"`
	Leader    *Card     `yaml:"leader"`
	Life      []Card    `yaml:"life"`
	Field     []Card    `yaml:"field"`
	Stage     []Card    `yaml:"stage"`
	Hand      []Card    `yaml:"hand"`
	Deck      []Card    `yaml:"deck"`
	Trash     []Card    `yaml:"trash"`
}

// Resources is a player's resource pool.
type Resources struct {
	Deck   int `yaml:"deck"`
	Active int `yaml:"active"`
	Rested int `yaml:"rested"`
}

// Decisions are the canned answers, consumed in order per kind.
type Decisions struct {
	Blockers []string   `yaml:"blockers"`
	Counters []string   `yaml:"counters"`
	Targets  [][]string `yaml:"targets"`
	Values   []int      `yaml:"values"`
}

// Attack is one attack to execute.
type Attack struct {
	Attacker string `yaml:"attacker"`
	Target   string `yaml:"target"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a scenario. Unknown fields are rejected.
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the parts of a scenario Build cannot: exactly two
// players and attacks that name both cards.
func (s *Scenario) Validate() error {
	var errs []error
	if len(s.Players) != 2 {
		errs = append(errs, fmt.Errorf("scenario needs exactly two players, got %d", len(s.Players)))
	}
	for i, a := range s.Attacks {
		if a.Attacker == "" || a.Target == "" {
			errs = append(errs, fmt.Errorf("attack %d: attacker and target are required", i))
		}
	}
	return errors.Join(errs...)
}

// Build creates the initial state. The scenario's own resource_bonus wins
// over bonus when set.
func (s *Scenario) Build(bonus int) (*state.State, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	b := state.NewBuilder(s.Players[0].ID, s.Players[1].ID)
	if s.ActivePlayer != "" {
		b.Active(s.ActivePlayer)
	}
	if s.Turn > 0 {
		b.Turn(s.Turn)
	}
	if s.ResourceBonus > 0 {
		bonus = s.ResourceBonus
	}
	if bonus > 0 {
		b.ResourceBonus(bonus)
	}

	var errs []error
	for _, p := range s.Players {
		b.Resources(p.ID, state.ResourcePool{Deck: p.Resources.Deck, Active: p.Resources.Active, Rested: p.Resources.Rested})
		if p.Leader != nil {
			leader := *p.Leader
			leader.Category = string(state.CategoryLeader)
			errs = append(errs, add(b, p.ID, state.ZoneLeader, leader))
		}
		for _, zc := range []struct {
			zone  state.Zone
			cards []Card
		}{
			{state.ZoneLife, p.Life},
			{state.ZoneField, p.Field},
			{state.ZoneStage, p.Stage},
			{state.ZoneHand, p.Hand},
			{state.ZoneDeck, p.Deck},
			{state.ZoneTrash, p.Trash},
		} {
			for _, c := range zc.cards {
				errs = append(errs, add(b, p.ID, zc.zone, c))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return b.Build()
}

func add(b *state.Builder, owner string, zone state.Zone, c Card) error {
	card, err := c.toCard(owner)
	if err != nil {
		return err
	}
	b.Add(card, zone)
	return nil
}

// Provider returns a provider answering with the scenario's decisions.
func (s *Scenario) Provider() *decision.Scripted {
	p := decision.NewScripted().
		Block(s.Decisions.Blockers...).
		Counter(s.Decisions.Counters...).
		Value(s.Decisions.Values...)
	for _, t := range s.Decisions.Targets {
		p.Targets(t...)
	}
	return p
}

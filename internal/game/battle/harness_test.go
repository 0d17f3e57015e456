package battle

import (
	"context"
	"fmt"
	"testing"

	"github.com/opcg/rules-engine-go/internal/game/decision"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/engine"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"go.uber.org/zap/zaptest"
)

// battleHarness provides utilities for setting up and running battles.
type battleHarness struct {
	t         *testing.T
	builder   *state.Builder
	decisions *decision.Scripted
	engine    *engine.Engine
	machine   *Machine
	events    []rules.Event
}

func newBattleHarness(t *testing.T) *battleHarness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	decisions := decision.NewScripted()
	eng := engine.New(engine.Options{Logger: logger, Decisions: decisions})
	h := &battleHarness{
		t:         t,
		builder:   state.NewBuilder("p1", "p2"),
		decisions: decisions,
		engine:    eng,
		machine:   NewMachine(logger, eng),
	}
	eng.Bus().Subscribe(func(e rules.Event) { h.events = append(h.events, e) })
	return h
}

// leader adds a leader with the given power and that many face-down life cards.
func (h *battleHarness) leader(id, owner string, power, life int) *battleHarness {
	h.builder.Add(state.Card{ID: id, Owner: owner, Category: state.CategoryLeader, BasePower: power}, state.ZoneLeader)
	for i := range life {
		h.builder.Add(state.Card{
			ID:       fmt.Sprintf("%s-life-%d", id, i),
			Owner:    owner,
			Category: state.CategoryCharacter,
		}, state.ZoneLife)
	}
	return h
}

// characterSpec defines a test character.
type characterSpec struct {
	ID         string
	Owner      string
	Power      int
	Counter    int
	Keywords   []effects.Keyword
	Effects    []*effects.Definition
	Rested     bool
	PlayedTurn int
	Zone       state.Zone
}

func (h *battleHarness) character(spec characterSpec) *battleHarness {
	zone := spec.Zone
	if zone == state.ZoneNone {
		zone = state.ZoneField
	}
	h.builder.Add(state.Card{
		ID:         spec.ID,
		Owner:      spec.Owner,
		Category:   state.CategoryCharacter,
		BasePower:  spec.Power,
		Counter:    spec.Counter,
		Keywords:   spec.Keywords,
		Effects:    spec.Effects,
		Rested:     spec.Rested,
		PlayedTurn: spec.PlayedTurn,
	}, zone)
	return h
}

func (h *battleHarness) add(card state.Card, zone state.Zone) *battleHarness {
	h.builder.Add(card, zone)
	return h
}

func (h *battleHarness) build() *state.State {
	h.t.Helper()
	st, err := h.builder.Build()
	if err != nil {
		h.t.Fatalf("failed to build state: %v", err)
	}
	return st
}

// attack runs a battle that is expected to be legal.
func (h *battleHarness) attack(st *state.State, attackerID, targetID string) (*state.State, Outcome) {
	h.t.Helper()
	next, out, err := h.machine.ExecuteAttack(context.Background(), st, attackerID, targetID)
	if err != nil {
		h.t.Fatalf("attack %s -> %s failed: %v", attackerID, targetID, err)
	}
	return next, out
}

func (h *battleHarness) eventsOf(typ rules.EventType) []rules.Event {
	var out []rules.Event
	for _, e := range h.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func zoneOf(t *testing.T, st *state.State, id string) state.Zone {
	t.Helper()
	c, ok := st.Card(id)
	if !ok {
		t.Fatalf("card %s not found", id)
	}
	return c.Zone
}

package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/opcg/rules-engine-go/internal/game/battle"
	"github.com/opcg/rules-engine-go/internal/game/engine"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/scenario"
	"github.com/opcg/rules-engine-go/internal/game/script"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"go.uber.org/zap/zaptest"
)

// gameEnv wires a scenario, its scripts and the engine the way the
// simulator does.
type gameEnv struct {
	t       *testing.T
	ctx     context.Context
	engine  *engine.Engine
	machine *battle.Machine
	state   *state.State
	events  []rules.Event
}

func newGameEnv(t *testing.T, yamlSrc string, scripts map[string]string) *gameEnv {
	t.Helper()
	sc, err := scenario.Parse(strings.NewReader(yamlSrc))
	if err != nil {
		t.Fatalf("Failed to parse scenario: %v", err)
	}
	st, err := sc.Build(0)
	if err != nil {
		t.Fatalf("Failed to build scenario: %v", err)
	}

	logger := zaptest.NewLogger(t)
	eng := engine.New(engine.Options{Logger: logger, Decisions: sc.Provider()})
	for id, src := range scripts {
		fn, err := script.Compile(id, src)
		if err != nil {
			t.Fatalf("Failed to compile %s: %v", id, err)
		}
		if err := eng.RegisterScript(id, fn); err != nil {
			t.Fatalf("Failed to register %s: %v", id, err)
		}
	}

	env := &gameEnv{
		t:       t,
		ctx:     context.Background(),
		engine:  eng,
		machine: battle.NewMachine(logger, eng),
		state:   st,
	}
	eng.Bus().Subscribe(func(evt rules.Event) { env.events = append(env.events, evt) })
	return env
}

func (g *gameEnv) attack(attacker, target string) battle.Outcome {
	g.t.Helper()
	next, out, err := g.machine.ExecuteAttack(g.ctx, g.state, attacker, target)
	if err != nil {
		g.t.Fatalf("Attack %s -> %s failed: %v", attacker, target, err)
	}
	g.state = next
	return out
}

func (g *gameEnv) play(cardID string) {
	g.t.Helper()
	next, err := g.engine.PlayCard(g.ctx, g.state, cardID)
	if err != nil {
		g.t.Fatalf("Failed to play %s: %v", cardID, err)
	}
	g.state = next
}

func (g *gameEnv) endTurn() {
	g.t.Helper()
	next, err := g.engine.EndTurn(g.ctx, g.state)
	if err != nil {
		g.t.Fatalf("Failed to end turn: %v", err)
	}
	g.state = next
}

func (g *gameEnv) zoneOf(id string) state.Zone {
	g.t.Helper()
	c, ok := g.state.Card(id)
	if !ok {
		g.t.Fatalf("Card %s not found", id)
	}
	return c.Zone
}

func (g *gameEnv) count(eventType rules.EventType) int {
	n := 0
	for _, evt := range g.events {
		if evt.Type == eventType {
			n++
		}
	}
	return n
}

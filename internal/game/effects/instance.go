package effects

import (
	"maps"

	"github.com/google/uuid"
)

// Instance is a concrete invocation of a definition: who controls it,
// what it targets and which values were chosen for it.
type Instance struct {
	ID           string
	Definition   *Definition
	SourceID     string
	Controller   string
	Params       Params
	Targets      []Target
	ChosenValues map[string]int
	Resolved     bool
}

// NewInstance creates an unresolved instance of def.
func NewInstance(def *Definition, sourceID, controller string) *Instance {
	inst := &Instance{
		ID:           uuid.NewString(),
		Definition:   def,
		SourceID:     sourceID,
		Controller:   controller,
		ChosenValues: make(map[string]int),
	}
	if def != nil {
		inst.Params = def.Params
	}
	return inst
}

// Kind returns the kind of the (possibly rewritten) parameters.
func (i *Instance) Kind() Kind {
	if i.Params == nil {
		return KindScript
	}
	return i.Params.Kind()
}

// Clone returns a copy that shares nothing mutable with i.
func (i *Instance) Clone() *Instance {
	if i == nil {
		return nil
	}
	cp := *i
	cp.Targets = append([]Target(nil), i.Targets...)
	cp.ChosenValues = maps.Clone(i.ChosenValues)
	if cp.ChosenValues == nil {
		cp.ChosenValues = make(map[string]int)
	}
	return &cp
}

// CardTargets returns the card IDs among the targets.
func (i *Instance) CardTargets() []string {
	ids := make([]string, 0, len(i.Targets))
	for _, t := range i.Targets {
		if t.CardID != "" {
			ids = append(ids, t.CardID)
		}
	}
	return ids
}

// PlayerTargets returns the player IDs among the targets.
func (i *Instance) PlayerTargets() []string {
	ids := make([]string, 0, len(i.Targets))
	for _, t := range i.Targets {
		if t.PlayerID != "" {
			ids = append(ids, t.PlayerID)
		}
	}
	return ids
}

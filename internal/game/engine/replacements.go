package engine

import (
	"fmt"

	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"go.uber.org/zap"
)

// SyncReplacements makes the registry match the field: REPLACEMENT
// definitions of cards in play are registered once, and entries whose
// source card left play are removed. Entries owned by IDs that are not
// cards are left alone. The rewrite bodies are looked up by the
// definition's script ID.
func (e *Engine) SyncReplacements(st *state.State) error {
	type key struct{ source, def string }
	registered := make(map[key]bool)
	for _, entry := range e.replacements.Entries() {
		if entry.Definition != nil {
			registered[key{entry.SourceID, entry.Definition.ID}] = true
		}
	}

	for _, source := range e.replacements.Sources() {
		if _, known := st.Card(source); known && !st.OnField(source) {
			n := e.replacements.UnregisterAllFor(source)
			e.logger.Debug("dropped replacements of departed card",
				zap.String("source_id", source),
				zap.Int("entries", n))
		}
	}

	for _, player := range st.Players() {
		for _, card := range st.InPlay(player) {
			for _, def := range card.Effects {
				if def.TimingKind != effects.TimingKindReplacement || registered[key{card.ID, def.ID}] {
					continue
				}
				rw, err := e.rewrite(def.ScriptID)
				if err != nil {
					return fmt.Errorf("replacement %s on %s: %w", def.ID, card.ID, err)
				}
				e.replacements.Register(card.ID, def, def.ReplacementPriority, rw.cost, rw.body)
			}
		}
	}
	return nil
}

func (e *Engine) rewrite(id string) (rewrite, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rw, ok := e.rewrites[id]
	if !ok {
		return rewrite{}, fmt.Errorf("%w: %s", ErrScriptNotFound, id)
	}
	return rw, nil
}

package effects

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReplacementContext is the read-only view a rewrite runs against.
type ReplacementContext struct {
	Facts Facts
	// SourceID and Controller describe what is being paid for or resolved.
	SourceID   string
	Controller string
	Definition *Definition
	// Replacer is the card whose replacement is currently applying. The
	// registry sets it for each entry before calling the rewrite.
	Replacer string
}

// CostRewrite receives the already-rewritten cost and returns a new one.
type CostRewrite func(Cost, ReplacementContext) (Cost, error)

// BodyRewrite receives a private copy of the already-rewritten instance.
type BodyRewrite func(*Instance, ReplacementContext) (*Instance, error)

// ReplacementEntry is a registered static rewrite owned by a card on the field.
type ReplacementEntry struct {
	ID          string
	SourceID    string
	Definition  *Definition
	Priority    int
	CostRewrite CostRewrite
	BodyRewrite BodyRewrite
}

// ReplacementRegistry holds every active replacement entry of a game.
// Application folds entries left to right in ascending priority, ties
// broken by registration order, so rewrites compose.
type ReplacementRegistry struct {
	mu      sync.RWMutex
	entries []ReplacementEntry
	logger  *zap.Logger
}

// NewReplacementRegistry creates an empty registry.
func NewReplacementRegistry(logger *zap.Logger) *ReplacementRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplacementRegistry{logger: logger}
}

// Register adds an entry for sourceID and returns its ID. Either rewrite may be nil.
func (r *ReplacementRegistry) Register(sourceID string, def *Definition, priority int, costRewrite CostRewrite, bodyRewrite BodyRewrite) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := ReplacementEntry{
		ID:          uuid.NewString(),
		SourceID:    sourceID,
		Definition:  def,
		Priority:    priority,
		CostRewrite: costRewrite,
		BodyRewrite: bodyRewrite,
	}

	idx := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].Priority > priority
	})
	r.entries = append(r.entries, ReplacementEntry{})
	copy(r.entries[idx+1:], r.entries[idx:])
	r.entries[idx] = entry

	r.logger.Debug("registered replacement",
		zap.String("entry_id", entry.ID),
		zap.String("source_id", sourceID),
		zap.Int("priority", priority),
		zap.Bool("cost", costRewrite != nil),
		zap.Bool("body", bodyRewrite != nil))
	return entry.ID
}

// UnregisterAllFor removes every entry owned by sourceID and reports how many were removed.
func (r *ReplacementRegistry) UnregisterAllFor(sourceID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	removed := 0
	for _, e := range r.entries {
		if e.SourceID == sourceID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(r.entries); i++ {
		r.entries[i] = ReplacementEntry{}
	}
	r.entries = kept

	if removed > 0 {
		r.logger.Debug("unregistered replacements",
			zap.String("source_id", sourceID),
			zap.Int("removed", removed))
	}
	return removed
}

// HasSource reports whether any entry is owned by sourceID.
func (r *ReplacementRegistry) HasSource(sourceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.SourceID == sourceID {
			return true
		}
	}
	return false
}

// Entries returns the entries in application order.
func (r *ReplacementRegistry) Entries() []ReplacementEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ReplacementEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Restore replaces the registry's entries with a copy of entries, as
// returned by an earlier Entries call. Registration order is kept.
func (r *ReplacementRegistry) Restore(entries []ReplacementEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make([]ReplacementEntry, len(entries))
	copy(r.entries, entries)
	r.logger.Debug("restored replacements", zap.Int("entries", len(entries)))
}

// Sources returns the distinct source card IDs with registered entries.
func (r *ReplacementRegistry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.entries))
	var out []string
	for _, e := range r.entries {
		if _, ok := seen[e.SourceID]; ok {
			continue
		}
		seen[e.SourceID] = struct{}{}
		out = append(out, e.SourceID)
	}
	return out
}

// ApplyCostReplacements folds every active cost rewrite over cost. It never
// mutates its input and is safe to call speculatively.
func (r *ReplacementRegistry) ApplyCostReplacements(cost Cost, ctx ReplacementContext) (Cost, error) {
	current := cost
	for _, e := range r.active(ctx) {
		if e.CostRewrite == nil {
			continue
		}
		ctx.Replacer = e.SourceID
		next, err := e.CostRewrite(current, ctx)
		if err != nil {
			return nil, fmt.Errorf("cost replacement %s from %s: %w", e.ID, e.SourceID, err)
		}
		r.logger.Debug("applied cost replacement",
			zap.String("entry_id", e.ID),
			zap.String("source_id", e.SourceID),
			zap.Stringer("before", costStringer{current}),
			zap.Stringer("after", costStringer{next}))
		current = next
	}
	return current, nil
}

// ApplyBodyReplacements folds every active body rewrite over inst. Each
// rewrite receives its own clone; the input instance is never modified.
func (r *ReplacementRegistry) ApplyBodyReplacements(inst *Instance, ctx ReplacementContext) (*Instance, error) {
	current := inst
	for _, e := range r.active(ctx) {
		if e.BodyRewrite == nil {
			continue
		}
		ctx.Replacer = e.SourceID
		next, err := e.BodyRewrite(current.Clone(), ctx)
		if err != nil {
			return nil, fmt.Errorf("body replacement %s from %s: %w", e.ID, e.SourceID, err)
		}
		if next == nil {
			return nil, fmt.Errorf("body replacement %s from %s returned nil instance", e.ID, e.SourceID)
		}
		r.logger.Debug("applied body replacement",
			zap.String("entry_id", e.ID),
			zap.String("source_id", e.SourceID),
			zap.String("instance_id", next.ID))
		current = next
	}
	return current, nil
}

// active snapshots the entries whose source is still on the field.
func (r *ReplacementRegistry) active(ctx ReplacementContext) []ReplacementEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ReplacementEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if ctx.Facts != nil && !ctx.Facts.OnField(e.SourceID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

type costStringer struct{ c Cost }

func (s costStringer) String() string {
	if s.c == nil {
		return "<free>"
	}
	return s.c.String()
}

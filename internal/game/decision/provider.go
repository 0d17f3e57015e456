// Package decision models the points where the engine waits on a player:
// choosing a blocker, a counter, effect targets or a numeric value.
package decision

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/opcg/rules-engine-go/internal/game/state"
)

var (
	// ErrInvalidChoice is returned when a provider answers with something
	// that was not offered.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrReplayExhausted is returned when a replay has no answer left.
	ErrReplayExhausted = errors.New("replay exhausted")
	// ErrReplayMismatch is returned when a replay's next answer is for a
	// different kind of question.
	ErrReplayMismatch = errors.New("replay mismatch")
)

// BlockRequest asks the defending player for a blocker.
type BlockRequest struct {
	Defender   string
	AttackerID string
	TargetID   string
	Candidates []string
}

// CounterKind distinguishes the two ways to counter.
type CounterKind string

const (
	// CounterFromCharacter trashes a hand character for its counter value.
	CounterFromCharacter CounterKind = "CHARACTER"
	// CounterFromEvent plays a hand event's counter effect.
	CounterFromEvent CounterKind = "EVENT"
)

// CounterOption is one card the defender may use in the counter step.
type CounterOption struct {
	CardID   string
	Kind     CounterKind
	Amount   int
	EffectID string
}

// CounterRequest asks the defending player for one counter action.
type CounterRequest struct {
	Defender      string
	AttackerID    string
	DefenderID    string
	AttackerPower int
	DefenderPower int
	Options       []CounterOption
}

// TargetRequest asks a player to pick between Min and Max of the candidates.
type TargetRequest struct {
	Player     string
	SourceID   string
	EffectID   string
	Candidates []string
	Min        int
	Max        int
}

// ValueRequest asks a player for a number in [Min, Max].
type ValueRequest struct {
	Player   string
	SourceID string
	Key      string
	Min      int
	Max      int
}

// Provider answers the engine's questions. Every method may block; the
// engine mutates nothing while waiting. An empty blocker or counter
// answer declines. Timeouts are the provider's concern and surface as
// context errors.
type Provider interface {
	ChooseBlocker(ctx context.Context, st *state.State, req BlockRequest) (string, error)
	ChooseCounter(ctx context.Context, st *state.State, req CounterRequest) (string, error)
	ChooseTargets(ctx context.Context, st *state.State, req TargetRequest) ([]string, error)
	ChooseValue(ctx context.Context, st *state.State, req ValueRequest) (int, error)
}

// ValidateBlocker checks a blocker answer against the request.
func ValidateBlocker(req BlockRequest, choice string) error {
	if choice == "" || slices.Contains(req.Candidates, choice) {
		return nil
	}
	return fmt.Errorf("%w: blocker %s not offered", ErrInvalidChoice, choice)
}

// ValidateCounter checks a counter answer and returns the chosen option.
func ValidateCounter(req CounterRequest, choice string) (CounterOption, bool, error) {
	if choice == "" {
		return CounterOption{}, false, nil
	}
	for _, opt := range req.Options {
		if opt.CardID == choice {
			return opt, true, nil
		}
	}
	return CounterOption{}, false, fmt.Errorf("%w: counter %s not offered", ErrInvalidChoice, choice)
}

// ValidateTargets checks the count and membership of a target answer.
func ValidateTargets(req TargetRequest, chosen []string) error {
	if len(chosen) < req.Min || len(chosen) > req.Max {
		return fmt.Errorf("%w: %d targets chosen, want %d..%d", ErrInvalidChoice, len(chosen), req.Min, req.Max)
	}
	seen := make(map[string]struct{}, len(chosen))
	for _, id := range chosen {
		if !slices.Contains(req.Candidates, id) {
			return fmt.Errorf("%w: target %s not offered", ErrInvalidChoice, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: target %s chosen twice", ErrInvalidChoice, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ValidateValue checks a numeric answer against the request bounds.
func ValidateValue(req ValueRequest, v int) error {
	if v < req.Min || v > req.Max {
		return fmt.Errorf("%w: value %d outside %d..%d", ErrInvalidChoice, v, req.Min, req.Max)
	}
	return nil
}

// Funcs adapts plain functions to a Provider. A nil function falls back to
// a default: decline blocks and counters, take the first Max candidates,
// and answer Min for values.
type Funcs struct {
	Blocker func(context.Context, *state.State, BlockRequest) (string, error)
	Counter func(context.Context, *state.State, CounterRequest) (string, error)
	Targets func(context.Context, *state.State, TargetRequest) ([]string, error)
	Value   func(context.Context, *state.State, ValueRequest) (int, error)
}

var _ Provider = Funcs{}

func (f Funcs) ChooseBlocker(ctx context.Context, st *state.State, req BlockRequest) (string, error) {
	if f.Blocker == nil {
		return "", ctx.Err()
	}
	return f.Blocker(ctx, st, req)
}

func (f Funcs) ChooseCounter(ctx context.Context, st *state.State, req CounterRequest) (string, error) {
	if f.Counter == nil {
		return "", ctx.Err()
	}
	return f.Counter(ctx, st, req)
}

func (f Funcs) ChooseTargets(ctx context.Context, st *state.State, req TargetRequest) ([]string, error) {
	if f.Targets == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return FirstCandidates(req), nil
	}
	return f.Targets(ctx, st, req)
}

func (f Funcs) ChooseValue(ctx context.Context, st *state.State, req ValueRequest) (int, error) {
	if f.Value == nil {
		return req.Min, ctx.Err()
	}
	return f.Value(ctx, st, req)
}

// FirstCandidates returns the first Max candidates of the request.
func FirstCandidates(req TargetRequest) []string {
	n := min(max(req.Max, 0), len(req.Candidates))
	return slices.Clone(req.Candidates[:n])
}

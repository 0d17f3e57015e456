package decision

import (
	"context"
	"sync"

	"github.com/opcg/rules-engine-go/internal/game/state"
)

// Scripted answers from canned per-kind queues, first in first out. When
// a queue runs dry the Fallback answers (Funcs{} when nil).
type Scripted struct {
	mu       sync.Mutex
	blockers []string
	counters []string
	targets  [][]string
	values   []int
	Fallback Provider
}

var _ Provider = (*Scripted)(nil)

// NewScripted creates an empty scripted provider.
func NewScripted() *Scripted {
	return &Scripted{}
}

// Block queues blocker answers ("" declines).
func (s *Scripted) Block(ids ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockers = append(s.blockers, ids...)
	return s
}

// Counter queues counter answers ("" declines).
func (s *Scripted) Counter(ids ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = append(s.counters, ids...)
	return s
}

// Targets queues one target answer.
func (s *Scripted) Targets(ids ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, append([]string{}, ids...))
	return s
}

// Value queues numeric answers.
func (s *Scripted) Value(vs ...int) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, vs...)
	return s
}

// Remaining returns how many canned answers are left in total.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blockers) + len(s.counters) + len(s.targets) + len(s.values)
}

func (s *Scripted) fallback() Provider {
	if s.Fallback != nil {
		return s.Fallback
	}
	return Funcs{}
}

func (s *Scripted) ChooseBlocker(ctx context.Context, st *state.State, req BlockRequest) (string, error) {
	s.mu.Lock()
	if len(s.blockers) > 0 {
		v := s.blockers[0]
		s.blockers = s.blockers[1:]
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()
	return s.fallback().ChooseBlocker(ctx, st, req)
}

func (s *Scripted) ChooseCounter(ctx context.Context, st *state.State, req CounterRequest) (string, error) {
	s.mu.Lock()
	if len(s.counters) > 0 {
		v := s.counters[0]
		s.counters = s.counters[1:]
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()
	return s.fallback().ChooseCounter(ctx, st, req)
}

func (s *Scripted) ChooseTargets(ctx context.Context, st *state.State, req TargetRequest) ([]string, error) {
	s.mu.Lock()
	if len(s.targets) > 0 {
		v := s.targets[0]
		s.targets = s.targets[1:]
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()
	return s.fallback().ChooseTargets(ctx, st, req)
}

func (s *Scripted) ChooseValue(ctx context.Context, st *state.State, req ValueRequest) (int, error) {
	s.mu.Lock()
	if len(s.values) > 0 {
		v := s.values[0]
		s.values = s.values[1:]
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()
	return s.fallback().ChooseValue(ctx, st, req)
}

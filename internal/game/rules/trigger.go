package rules

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/opcg/rules-engine-go/internal/game/effects"
)

// ErrChainTooDeep is returned when triggers keep raising triggers past the
// configured frame limit.
var ErrChainTooDeep = errors.New("trigger chain too deep")

// TriggerStatus is the lifecycle of a trigger: Pending, Resolving, Resolved.
// There is no cancelled state; a trigger left pending when the game ends
// simply never resolves.
type TriggerStatus string

const (
	TriggerPending   TriggerStatus = "PENDING"
	TriggerResolving TriggerStatus = "RESOLVING"
	TriggerResolved  TriggerStatus = "RESOLVED"
)

// Trigger is a pending invocation of a card effect produced by an event.
// The source card is referenced by ID only and looked up when needed.
type Trigger struct {
	ID         string
	Definition *effects.Definition
	SourceID   string
	Controller string
	Event      Event
	Priority   int
	Seq        uint64
	Status     TriggerStatus
}

// PriorityFor returns 1 for the active player's triggers and 0 otherwise.
func PriorityFor(controller, activePlayer string) int {
	if controller == activePlayer {
		return 1
	}
	return 0
}

// NewTrigger builds a pending trigger with priority by active-player polarity.
func NewTrigger(def *effects.Definition, sourceID, controller string, event Event, activePlayer string) *Trigger {
	return &Trigger{
		ID:         uuid.NewString(),
		Definition: def,
		SourceID:   sourceID,
		Controller: controller,
		Event:      event,
		Priority:   PriorityFor(controller, activePlayer),
		Status:     TriggerPending,
	}
}

// TriggerQueue orders pending triggers. It is a stack of frames. A frame
// holds the triggers being drained plus a deferred list of arrivals; the
// arrivals are sorted into a fresh list only once the current list has
// drained. A new frame (PushFrame) drains completely before the frame
// below it continues. Within a list, triggers are ordered by priority
// (descending) then enqueue order.
type TriggerQueue struct {
	mu       sync.Mutex
	frames   []*frame
	nextSeq  uint64
	maxDepth int
}

type frame struct {
	items    []*Trigger
	deferred []*Trigger
}

// NewTriggerQueue creates an empty queue. maxDepth bounds the number of
// nested frames; zero or less means unbounded.
func NewTriggerQueue(maxDepth int) *TriggerQueue {
	return &TriggerQueue{maxDepth: maxDepth}
}

// Enqueue adds triggers to the list currently draining, opening a frame if
// none is open.
func (q *TriggerQueue) Enqueue(triggers ...*Trigger) {
	if len(triggers) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	top := q.top()
	top.items = q.sorted(top.items, q.stamp(triggers))
}

// Defer adds triggers to the current frame's arrivals. They resolve after
// everything already in the frame.
func (q *TriggerQueue) Defer(triggers ...*Trigger) {
	if len(triggers) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	top := q.top()
	top.deferred = append(top.deferred, q.stamp(triggers)...)
}

// PushFrame opens a new frame holding triggers. It does nothing when
// triggers is empty.
func (q *TriggerQueue) PushFrame(triggers ...*Trigger) error {
	if len(triggers) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.maxDepth > 0 && len(q.frames) >= q.maxDepth {
		return fmt.Errorf("%w: %d frames", ErrChainTooDeep, len(q.frames))
	}
	q.frames = append(q.frames, &frame{items: q.sorted(nil, q.stamp(triggers))})
	return nil
}

func (q *TriggerQueue) top() *frame {
	if len(q.frames) == 0 {
		q.frames = append(q.frames, &frame{})
	}
	return q.frames[len(q.frames)-1]
}

func (q *TriggerQueue) stamp(triggers []*Trigger) []*Trigger {
	out := make([]*Trigger, 0, len(triggers))
	for _, t := range triggers {
		if t == nil {
			continue
		}
		t.Seq = q.nextSeq
		q.nextSeq++
		t.Status = TriggerPending
		out = append(out, t)
	}
	return out
}

// sorted returns a freshly built, ordered list of existing plus added.
func (q *TriggerQueue) sorted(existing, added []*Trigger) []*Trigger {
	list := make([]*Trigger, 0, len(existing)+len(added))
	list = append(list, existing...)
	list = append(list, added...)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority > list[j].Priority
		}
		return list[i].Seq < list[j].Seq
	})
	return list
}

// Next removes and returns the best trigger of the innermost frame,
// marking it resolving.
func (q *TriggerQueue) Next() (*Trigger, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.frames) > 0 {
		top := q.frames[len(q.frames)-1]
		if len(top.items) == 0 {
			if len(top.deferred) == 0 {
				q.frames = q.frames[:len(q.frames)-1]
				continue
			}
			top.items = q.sorted(nil, top.deferred)
			top.deferred = nil
		}
		t := top.items[0]
		top.items = top.items[1:]
		t.Status = TriggerResolving
		return t, true
	}
	return nil, false
}

// Len returns the number of pending triggers across all frames.
func (q *TriggerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, f := range q.frames {
		n += len(f.items) + len(f.deferred)
	}
	return n
}

// Depth returns the number of open frames.
func (q *TriggerQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Pending returns the pending triggers in resolution order.
func (q *TriggerQueue) Pending() []*Trigger {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Trigger
	for i := len(q.frames) - 1; i >= 0; i-- {
		out = append(out, q.frames[i].items...)
		out = append(out, q.sorted(nil, q.frames[i].deferred)...)
	}
	return out
}

// QueueSnapshot is a saved queue position taken with Snapshot.
type QueueSnapshot struct {
	frames   []frame
	statuses map[*Trigger]TriggerStatus
}

// Snapshot records the open frames and the status of every queued trigger.
func (q *TriggerQueue) Snapshot() QueueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	snap := QueueSnapshot{
		frames:   make([]frame, len(q.frames)),
		statuses: make(map[*Trigger]TriggerStatus),
	}
	for i, f := range q.frames {
		snap.frames[i] = frame{
			items:    append([]*Trigger(nil), f.items...),
			deferred: append([]*Trigger(nil), f.deferred...),
		}
		for _, t := range f.items {
			snap.statuses[t] = t.Status
		}
		for _, t := range f.deferred {
			snap.statuses[t] = t.Status
		}
	}
	return snap
}

// Restore puts the queue back where snap was taken. Triggers queued at
// that point get their status back, so one popped since is pending again
// in its old place. Triggers added since are dropped. Sequence numbers
// keep counting.
func (q *TriggerQueue) Restore(snap QueueSnapshot) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frames = make([]*frame, len(snap.frames))
	for i, f := range snap.frames {
		q.frames[i] = &frame{
			items:    append([]*Trigger(nil), f.items...),
			deferred: append([]*Trigger(nil), f.deferred...),
		}
	}
	for t, status := range snap.statuses {
		t.Status = status
	}
}

// Clear drops every pending trigger.
func (q *TriggerQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frames = nil
}

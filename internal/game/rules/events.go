package rules

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType indicates the category of a game event.
type EventType string

const (
	EventCardPlayed     EventType = "CARD_PLAYED"
	EventCardMoved      EventType = "CARD_MOVED"
	EventPhaseChanged   EventType = "PHASE_CHANGED"
	EventAttackDeclared EventType = "ATTACK_DECLARED"
	EventBlockDeclared  EventType = "BLOCK_DECLARED"
	EventCounterPlayed  EventType = "COUNTER_PLAYED"
	EventLifeLost       EventType = "LIFE_LOST"
	EventBattleEnded    EventType = "BATTLE_ENDED"
	EventEffectResolved EventType = "EFFECT_RESOLVED"
	EventEffectFizzled  EventType = "EFFECT_FIZZLED"
)

// MoveReason tags a CARD_MOVED event with why the card moved.
type MoveReason string

const (
	ReasonKnockout MoveReason = "knockout"
	ReasonBounce   MoveReason = "bounce"
	ReasonDraw     MoveReason = "draw"
	ReasonPlay     MoveReason = "play"
	ReasonDiscard  MoveReason = "discard"
	ReasonLife     MoveReason = "life"
	ReasonEffect   MoveReason = "effect"
	ReasonSearch   MoveReason = "search"
	ReasonCost     MoveReason = "cost"
	ReasonRemoved  MoveReason = "removed"
)

// Phase is the turn phase carried by PHASE_CHANGED events.
type Phase string

const (
	PhaseTurnStart Phase = "TURN_START"
	PhaseMain      Phase = "MAIN"
	PhaseBattle    Phase = "BATTLE"
	PhaseTurnEnd   Phase = "TURN_END"
)

// Event is a tagged record of something that happened in the game.
type Event struct {
	Type      EventType
	ID        string
	PlayerID  string // player the event is about (or who acted)
	CardID    string // subject card
	TargetID  string // attack target, block target, ...
	FromZone  string
	ToZone    string
	Reason    MoveReason
	Phase     Phase
	Amount    int
	Timestamp time.Time
	Metadata  map[string]string
}

// NewEvent creates an event with an ID and timestamp.
func NewEvent(eventType EventType, playerID, cardID string) Event {
	return Event{
		Type:      eventType,
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		CardID:    cardID,
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}
}

// NewMoveEvent creates a CARD_MOVED event.
func NewMoveEvent(playerID, cardID, from, to string, reason MoveReason) Event {
	evt := NewEvent(EventCardMoved, playerID, cardID)
	evt.FromZone = from
	evt.ToZone = to
	evt.Reason = reason
	return evt
}

// NewPhaseEvent creates a PHASE_CHANGED event for the given player's phase.
func NewPhaseEvent(playerID string, phase Phase) Event {
	evt := NewEvent(EventPhaseChanged, playerID, "")
	evt.Phase = phase
	return evt
}

// NewAttackEvent creates an ATTACK_DECLARED event.
func NewAttackEvent(playerID, attackerID, targetID string) Event {
	evt := NewEvent(EventAttackDeclared, playerID, attackerID)
	evt.TargetID = targetID
	return evt
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
// Untyped listeners are called in subscription order.
func (bus *EventBus) Publish(event Event) {
	if bus == nil {
		return
	}
	bus.mu.RLock()
	handles := make([]int, 0, len(bus.listeners))
	for h := range bus.listeners {
		handles = append(handles, h)
	}
	listeners := make([]Listener, 0, len(handles))
	slices.Sort(handles)
	for _, h := range handles {
		listeners = append(listeners, bus.listeners[h])
	}
	typed := append([]TypedListener(nil), bus.typedListeners[event.Type]...)
	bus.mu.RUnlock()

	for _, l := range listeners {
		l(event)
	}
	for _, l := range typed {
		l.Callback(event)
	}
}

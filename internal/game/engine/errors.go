package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateScript is returned when a script ID is registered twice.
	ErrDuplicateScript = errors.New("script already registered")
	// ErrScriptNotFound is returned when a definition names an unregistered script.
	ErrScriptNotFound = errors.New("script not registered")
	// ErrDuplicateRewrite is returned when replacement content is registered twice.
	ErrDuplicateRewrite = errors.New("replacement rewrite already registered")
	// ErrReentrantResolution is returned when resolution is started while
	// another resolution is in progress.
	ErrReentrantResolution = errors.New("resolution already in progress")
)

// Reason explains why a player action was rejected.
type Reason string

const (
	ReasonNoSuchEffect     Reason = "no such effect"
	ReasonNotActivatable   Reason = "effect is not activatable"
	ReasonSourceNotOnField Reason = "source is not on the field"
	ReasonNotYourTurn      Reason = "not your turn"
	ReasonConditionUnmet   Reason = "condition unmet"
	ReasonAlreadyUsed      Reason = "already used this turn"
	ReasonCostUnaffordable Reason = "cost unaffordable"
	ReasonNotInHand        Reason = "card is not in hand"
	ReasonNotPlayable      Reason = "card cannot be played"
	ReasonGameOver         Reason = "game is over"
)

// Sentinels matching each reason through errors.Is.
var (
	ErrNoSuchEffect     = errors.New(string(ReasonNoSuchEffect))
	ErrNotActivatable   = errors.New(string(ReasonNotActivatable))
	ErrSourceNotOnField = errors.New(string(ReasonSourceNotOnField))
	ErrNotYourTurn      = errors.New(string(ReasonNotYourTurn))
	ErrConditionUnmet   = errors.New(string(ReasonConditionUnmet))
	ErrAlreadyUsed      = errors.New(string(ReasonAlreadyUsed))
	ErrCostUnaffordable = errors.New(string(ReasonCostUnaffordable))
	ErrNotInHand        = errors.New(string(ReasonNotInHand))
	ErrNotPlayable      = errors.New(string(ReasonNotPlayable))
	ErrGameOver         = errors.New(string(ReasonGameOver))
)

var reasonSentinels = map[Reason]error{
	ReasonNoSuchEffect:     ErrNoSuchEffect,
	ReasonNotActivatable:   ErrNotActivatable,
	ReasonSourceNotOnField: ErrSourceNotOnField,
	ReasonNotYourTurn:      ErrNotYourTurn,
	ReasonConditionUnmet:   ErrConditionUnmet,
	ReasonAlreadyUsed:      ErrAlreadyUsed,
	ReasonCostUnaffordable: ErrCostUnaffordable,
	ReasonNotInHand:        ErrNotInHand,
	ReasonNotPlayable:      ErrNotPlayable,
	ReasonGameOver:         ErrGameOver,
}

// ActivationError reports why ActivateEffect refused an activation.
type ActivationError struct {
	CardID   string
	EffectID string
	Reason   Reason
	Detail   string
}

func (e *ActivationError) Error() string {
	msg := fmt.Sprintf("cannot activate %s on %s: %s", e.EffectID, e.CardID, e.Reason)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Is matches the sentinel for the error's reason.
func (e *ActivationError) Is(target error) bool {
	return reasonSentinels[e.Reason] == target
}

// PlayError reports why PlayCard refused to play a card.
type PlayError struct {
	CardID string
	Reason Reason
	Detail string
}

func (e *PlayError) Error() string {
	msg := fmt.Sprintf("cannot play %s: %s", e.CardID, e.Reason)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Is matches the sentinel for the error's reason.
func (e *PlayError) Is(target error) bool {
	return reasonSentinels[e.Reason] == target
}

package battle

import (
	"errors"
	"fmt"
)

// Reason explains why an attack declaration was rejected.
type Reason string

const (
	ReasonGameOver         Reason = "game is over"
	ReasonNotYourCharacter Reason = "attacker is not the turn player's leader or character"
	ReasonAlreadyAttacked  Reason = "attacker already attacked this turn"
	ReasonAttackerRested   Reason = "attacker is rested"
	ReasonSummoningSick    Reason = "attacker was played this turn"
	ReasonInvalidTarget    Reason = "invalid attack target"
)

var (
	ErrGameOver         = errors.New(string(ReasonGameOver))
	ErrNotYourCharacter = errors.New(string(ReasonNotYourCharacter))
	ErrAlreadyAttacked  = errors.New(string(ReasonAlreadyAttacked))
	ErrAttackerRested   = errors.New(string(ReasonAttackerRested))
	ErrSummoningSick    = errors.New(string(ReasonSummoningSick))
	ErrInvalidTarget    = errors.New(string(ReasonInvalidTarget))
)

var reasonSentinels = map[Reason]error{
	ReasonGameOver:         ErrGameOver,
	ReasonNotYourCharacter: ErrNotYourCharacter,
	ReasonAlreadyAttacked:  ErrAlreadyAttacked,
	ReasonAttackerRested:   ErrAttackerRested,
	ReasonSummoningSick:    ErrSummoningSick,
	ReasonInvalidTarget:    ErrInvalidTarget,
}

// AttackError reports an illegal attack declaration.
type AttackError struct {
	AttackerID string
	TargetID   string
	Reason     Reason
	Detail     string
}

func (e *AttackError) Error() string {
	msg := fmt.Sprintf("attack %s -> %s rejected: %s", e.AttackerID, e.TargetID, e.Reason)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Is matches the sentinel for the error's reason.
func (e *AttackError) Is(target error) bool {
	return reasonSentinels[e.Reason] == target
}

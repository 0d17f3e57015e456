package state

import "github.com/opcg/rules-engine-go/internal/game/effects"

var _ effects.Facts = (*State)(nil)

// Quantity implements effects.Facts.
func (s *State) Quantity(q effects.Quantity, sourceID, controller string) int {
	switch q {
	case effects.QuantitySourcePower:
		return s.Power(sourceID)
	case effects.QuantitySourceCost:
		return s.Cost(sourceID)
	case effects.QuantitySourceAttached:
		return s.cards[sourceID].Attached
	case effects.QuantityControllerLife:
		return s.Life(controller)
	case effects.QuantityOpponentLife:
		return s.Life(s.Opponent(controller))
	case effects.QuantityControllerHand:
		return s.ZoneSize(controller, ZoneHand)
	case effects.QuantityControllerResources:
		return s.ActiveResources(controller)
	case effects.QuantityControllerField:
		return s.ZoneSize(controller, ZoneField)
	case effects.QuantityTurn:
		return s.turn
	default:
		return 0
	}
}

// CardHasKeyword implements effects.Facts.
func (s *State) CardHasKeyword(cardID string, kw effects.Keyword) bool {
	c, ok := s.cards[cardID]
	return ok && c.HasKeyword(kw)
}

// CardHasColor implements effects.Facts.
func (s *State) CardHasColor(cardID string, col effects.Color) bool {
	c, ok := s.cards[cardID]
	return ok && c.HasColor(col)
}

// ControllerOf implements effects.Facts.
func (s *State) ControllerOf(cardID string) string {
	return s.cards[cardID].Controller
}

package state

import (
	"fmt"
	"strings"
)

// Zone identifies where a card instance currently is. Index 0 of the deck
// and life zones is the top card.
type Zone string

const (
	ZoneNone    Zone = ""
	ZoneDeck    Zone = "DECK"
	ZoneHand    Zone = "HAND"
	ZoneLeader  Zone = "LEADER"
	ZoneField   Zone = "FIELD"
	ZoneStage   Zone = "STAGE"
	ZoneLife    Zone = "LIFE"
	ZoneTrash   Zone = "TRASH"
	ZoneRemoved Zone = "REMOVED"
)

var allZones = []Zone{ZoneDeck, ZoneHand, ZoneLeader, ZoneField, ZoneStage, ZoneLife, ZoneTrash, ZoneRemoved}

// InPlay reports whether cards in the zone are "on the field" for the
// purpose of effects and replacements.
func (z Zone) InPlay() bool {
	return z == ZoneLeader || z == ZoneField || z == ZoneStage
}

// Hidden reports whether the zone's contents are private.
func (z Zone) Hidden() bool {
	return z == ZoneDeck || z == ZoneHand || z == ZoneLife
}

func (z Zone) String() string {
	if z == ZoneNone {
		return "NONE"
	}
	return string(z)
}

// ParseZone converts a case-insensitive zone name.
func ParseZone(s string) (Zone, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, z := range allZones {
		if string(z) == name {
			return z, nil
		}
	}
	return ZoneNone, fmt.Errorf("unknown zone %q", s)
}

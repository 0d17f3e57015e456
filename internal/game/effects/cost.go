package effects

import (
	"fmt"
	"strings"
)

// Cost is an immutable cost expression tree. Rewrites always build a new
// tree; no function in this package mutates a Cost it was given.
type Cost interface {
	String() string
	isCost()
}

// RestResource requires resting Amount active resources.
type RestResource struct{ Amount int }

// DiscardCard requires trashing Amount cards from hand.
type DiscardCard struct{ Amount int }

// Composite requires paying every part.
type Composite struct{ Parts []Cost }

func (RestResource) isCost() {}
func (DiscardCard) isCost()  {}
func (Composite) isCost()    {}

func (c RestResource) String() string { return fmt.Sprintf("RestResource(%d)", c.Amount) }
func (c DiscardCard) String() string  { return fmt.Sprintf("DiscardCard(%d)", c.Amount) }

func (c Composite) String() string {
	parts := make([]string, 0, len(c.Parts))
	for _, p := range c.Parts {
		if p == nil {
			continue
		}
		parts = append(parts, p.String())
	}
	return "Composite(" + strings.Join(parts, ", ") + ")"
}

// TotalRest returns the number of resources the cost rests.
func TotalRest(c Cost) int {
	switch v := c.(type) {
	case RestResource:
		return max(v.Amount, 0)
	case Composite:
		total := 0
		for _, p := range v.Parts {
			total += TotalRest(p)
		}
		return total
	default:
		return 0
	}
}

// TotalDiscard returns the number of hand cards the cost trashes.
func TotalDiscard(c Cost) int {
	switch v := c.(type) {
	case DiscardCard:
		return max(v.Amount, 0)
	case Composite:
		total := 0
		for _, p := range v.Parts {
			total += TotalDiscard(p)
		}
		return total
	default:
		return 0
	}
}

// IsFree reports whether paying the cost changes nothing.
func IsFree(c Cost) bool {
	return c == nil || (TotalRest(c) == 0 && TotalDiscard(c) == 0)
}

// ReduceRest lowers the resources rested by c by n in total, taking from
// RestResource leaves in order and flooring each leaf at zero.
func ReduceRest(c Cost, n int) Cost {
	out, _ := reduceRest(c, n)
	return out
}

func reduceRest(c Cost, n int) (Cost, int) {
	if n <= 0 {
		return c, 0
	}
	switch v := c.(type) {
	case RestResource:
		taken := min(n, max(v.Amount, 0))
		return RestResource{Amount: max(v.Amount, 0) - taken}, n - taken
	case Composite:
		parts := make([]Cost, len(v.Parts))
		remaining := n
		for i, p := range v.Parts {
			parts[i], remaining = reduceRest(p, remaining)
		}
		return Composite{Parts: parts}, remaining
	default:
		return c, n
	}
}

// IncreaseRest adds n resources to the first RestResource leaf, or wraps
// the cost in a composite with a new leaf when there is none.
func IncreaseRest(c Cost, n int) Cost {
	if n <= 0 {
		return c
	}
	if c == nil {
		return RestResource{Amount: n}
	}
	if out, ok := increaseRest(c, n); ok {
		return out
	}
	return Composite{Parts: []Cost{c, RestResource{Amount: n}}}
}

func increaseRest(c Cost, n int) (Cost, bool) {
	switch v := c.(type) {
	case RestResource:
		return RestResource{Amount: v.Amount + n}, true
	case Composite:
		parts := make([]Cost, len(v.Parts))
		copy(parts, v.Parts)
		for i, p := range parts {
			if out, ok := increaseRest(p, n); ok {
				parts[i] = out
				return Composite{Parts: parts}, true
			}
		}
	}
	return c, false
}

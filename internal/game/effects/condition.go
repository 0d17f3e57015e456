package effects

// Condition is a closed expression evaluated against a read-only snapshot
// of the game. A nil Condition always holds.
type Condition interface {
	isCondition()
}

// CompareOp is a comparison operator.
type CompareOp string

const (
	OpEqual        CompareOp = "=="
	OpNotEqual     CompareOp = "!="
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
)

// Compare compares two operands.
type Compare struct {
	Op    CompareOp
	Left  Operand
	Right Operand
}

// And holds when every term holds.
type And struct{ Terms []Condition }

// Or holds when any term holds.
type Or struct{ Terms []Condition }

// Not negates a term.
type Not struct{ Term Condition }

// HasKeyword holds when the source card has the keyword.
type HasKeyword struct{ Keyword Keyword }

// IsColor holds when the source card has the color.
type IsColor struct{ Color Color }

func (Compare) isCondition()    {}
func (And) isCondition()        {}
func (Or) isCondition()         {}
func (Not) isCondition()        {}
func (HasKeyword) isCondition() {}
func (IsColor) isCondition()    {}

// Operand is either a constant or a quantity read from the snapshot.
type Operand interface {
	isOperand()
}

// Const is a literal operand.
type Const struct{ Value int }

// Quantity names a value derived from the game state, read relative to
// the effect's source card and controller.
type Quantity string

const (
	QuantitySourcePower         Quantity = "source.power"
	QuantitySourceCost          Quantity = "source.cost"
	QuantitySourceAttached      Quantity = "source.attached"
	QuantityControllerLife      Quantity = "controller.life"
	QuantityOpponentLife        Quantity = "opponent.life"
	QuantityControllerHand      Quantity = "controller.hand"
	QuantityControllerResources Quantity = "controller.resources"
	QuantityControllerField     Quantity = "controller.field"
	QuantityTurn                Quantity = "turn"
)

func (Const) isOperand()    {}
func (Quantity) isOperand() {}

// Facts is the read-only view conditions and replacements are evaluated
// against. The game state implements it.
type Facts interface {
	Quantity(q Quantity, sourceID, controller string) int
	CardHasKeyword(cardID string, kw Keyword) bool
	CardHasColor(cardID string, c Color) bool
	OnField(cardID string) bool
	ControllerOf(cardID string) string
}

// Evaluate reports whether cond holds for the given source and controller.
func Evaluate(cond Condition, facts Facts, sourceID, controller string) bool {
	if cond == nil {
		return true
	}
	switch c := cond.(type) {
	case Compare:
		left := operandValue(c.Left, facts, sourceID, controller)
		right := operandValue(c.Right, facts, sourceID, controller)
		return compare(c.Op, left, right)
	case And:
		for _, term := range c.Terms {
			if !Evaluate(term, facts, sourceID, controller) {
				return false
			}
		}
		return true
	case Or:
		for _, term := range c.Terms {
			if Evaluate(term, facts, sourceID, controller) {
				return true
			}
		}
		return false
	case Not:
		return !Evaluate(c.Term, facts, sourceID, controller)
	case HasKeyword:
		return facts != nil && facts.CardHasKeyword(sourceID, c.Keyword)
	case IsColor:
		return facts != nil && facts.CardHasColor(sourceID, c.Color)
	default:
		return false
	}
}

func operandValue(op Operand, facts Facts, sourceID, controller string) int {
	switch v := op.(type) {
	case Const:
		return v.Value
	case Quantity:
		if facts == nil {
			return 0
		}
		return facts.Quantity(v, sourceID, controller)
	default:
		return 0
	}
}

func compare(op CompareOp, left, right int) bool {
	switch op {
	case OpEqual:
		return left == right
	case OpNotEqual:
		return left != right
	case OpLess:
		return left < right
	case OpLessEqual:
		return left <= right
	case OpGreater:
		return left > right
	case OpGreaterEqual:
		return left >= right
	default:
		return false
	}
}

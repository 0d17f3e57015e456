package effects

// Kind is the effect-type tag a resolver is selected by.
type Kind string

const (
	KindDrawCards         Kind = "draw-cards"
	KindSearchDeck        Kind = "search-deck"
	KindKnockOutCharacter Kind = "knock-out-character"
	KindBounceCharacter   Kind = "bounce-character"
	KindAttachResource    Kind = "attach-resource"
	KindModifyPower       Kind = "modify-power"
	KindRestCharacter     Kind = "rest-character"
	KindDiscardCards      Kind = "discard-cards"
	KindAddResource       Kind = "add-resource"
	KindScript            Kind = "script"
)

// Params is the closed set of per-kind effect parameters. Every concrete
// type lives in this package; resolver dispatch switches over them.
type Params interface {
	Kind() Kind
	isParams()
}

// Constraint is a numeric limit a single target must satisfy.
type Constraint struct {
	MaxCost     int
	MaxPower    int
	HasMaxCost  bool
	HasMaxPower bool
}

// CostAtMost builds a constraint of "cost N or less".
func CostAtMost(n int) Constraint { return Constraint{MaxCost: n, HasMaxCost: true} }

// PowerAtMost builds a constraint of "power N or less".
func PowerAtMost(n int) Constraint { return Constraint{MaxPower: n, HasMaxPower: true} }

// Allows reports whether a target with the given derived cost and power passes.
func (c Constraint) Allows(cost, power int) bool {
	if c.HasMaxCost && cost > c.MaxCost {
		return false
	}
	if c.HasMaxPower && power > c.MaxPower {
		return false
	}
	return true
}

// CardFilter selects cards for search-style effects.
type CardFilter struct {
	Category     string
	Color        Color
	Keyword      Keyword
	NameContains string
	ExcludeName  string
	Limit        Constraint
}

// DrawCards draws Count cards for each targeted player.
type DrawCards struct{ Count int }

// SearchDeck looks at the top LookAt cards, lets the player pick up to
// PickUpTo matching cards into hand and puts the rest on the bottom.
type SearchDeck struct {
	LookAt   int
	PickUpTo int
	Filter   CardFilter
}

// KnockOutCharacter knocks out each targeted character that passes Limit.
type KnockOutCharacter struct{ Limit Constraint }

// BounceCharacter returns each targeted character that passes Limit to its owner's hand.
type BounceCharacter struct{ Limit Constraint }

// AttachResource attaches up to Count resources to each target.
type AttachResource struct {
	Count      int
	FromRested bool
}

// ModifyPower adds Delta power to each target for Duration.
type ModifyPower struct {
	Delta    int
	Duration Duration
}

// RestCharacter rests each targeted character that passes Limit.
type RestCharacter struct{ Limit Constraint }

// DiscardCards makes each targeted player trash Count cards from hand.
type DiscardCards struct{ Count int }

// AddResource moves up to Count resources from the resource deck into play.
type AddResource struct {
	Count  int
	Rested bool
}

// ScriptOnly marks an effect whose whole body is a registered script.
type ScriptOnly struct{}

func (DrawCards) Kind() Kind         { return KindDrawCards }
func (SearchDeck) Kind() Kind        { return KindSearchDeck }
func (KnockOutCharacter) Kind() Kind { return KindKnockOutCharacter }
func (BounceCharacter) Kind() Kind   { return KindBounceCharacter }
func (AttachResource) Kind() Kind    { return KindAttachResource }
func (ModifyPower) Kind() Kind       { return KindModifyPower }
func (RestCharacter) Kind() Kind     { return KindRestCharacter }
func (DiscardCards) Kind() Kind      { return KindDiscardCards }
func (AddResource) Kind() Kind       { return KindAddResource }
func (ScriptOnly) Kind() Kind        { return KindScript }

func (DrawCards) isParams()         {}
func (SearchDeck) isParams()        {}
func (KnockOutCharacter) isParams() {}
func (BounceCharacter) isParams()   {}
func (AttachResource) isParams()    {}
func (ModifyPower) isParams()       {}
func (RestCharacter) isParams()     {}
func (DiscardCards) isParams()      {}
func (AddResource) isParams()       {}
func (ScriptOnly) isParams()        {}

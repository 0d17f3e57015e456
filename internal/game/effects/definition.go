package effects

// TimingKind classifies how an effect definition becomes active.
type TimingKind string

const (
	// TimingKindAuto effects fire on their own when a matching event occurs.
	TimingKindAuto TimingKind = "AUTO"
	// TimingKindActivated effects are used by their controller on demand.
	TimingKindActivated TimingKind = "ACTIVATED"
	// TimingKindReplacement effects rewrite costs or effect bodies while their source is on the field.
	TimingKindReplacement TimingKind = "REPLACEMENT"
)

// Timing is the moment an effect reacts to or may be used in.
type Timing string

const (
	TimingNone              Timing = ""
	TimingOnPlay            Timing = "ON_PLAY"
	TimingOnKnockout        Timing = "ON_KO"
	TimingStartOfTurn       Timing = "START_OF_TURN"
	TimingEndOfYourTurn     Timing = "END_OF_YOUR_TURN"
	TimingEndOfOpponentTurn Timing = "END_OF_OPPONENT_TURN"
	TimingWhenAttacking     Timing = "WHEN_ATTACKING"
	TimingOnBlock           Timing = "ON_BLOCK"
	TimingOnOpponentAttack  Timing = "ON_OPPONENT_ATTACK"
	TimingCounter           Timing = "COUNTER"
	TimingLifeTrigger       Timing = "TRIGGER"
	TimingMain              Timing = "MAIN"
)

// SelfScoped reports whether the timing only ever matches the card the
// event is about (as opposed to every card a player has in play).
func (t Timing) SelfScoped() bool {
	switch t {
	case TimingOnPlay, TimingOnKnockout, TimingWhenAttacking, TimingOnBlock, TimingLifeTrigger:
		return true
	default:
		return false
	}
}

// Keyword is a printed keyword ability.
type Keyword string

const (
	KeywordRush         Keyword = "RUSH"
	KeywordBlocker      Keyword = "BLOCKER"
	KeywordDoubleAttack Keyword = "DOUBLE_ATTACK"
	KeywordBanish       Keyword = "BANISH"
)

// Color is a card color.
type Color string

const (
	ColorRed    Color = "RED"
	ColorGreen  Color = "GREEN"
	ColorBlue   Color = "BLUE"
	ColorPurple Color = "PURPLE"
	ColorBlack  Color = "BLACK"
	ColorYellow Color = "YELLOW"
)

// Duration represents how long a modifier lasts.
type Duration string

const (
	// DurationThisTurn expires when the turn advances.
	DurationThisTurn Duration = "ThisTurn"
	// DurationThisBattle expires when the current battle completes.
	DurationThisBattle Duration = "ThisBattle"
	// DurationPermanent lasts while the modified card stays where it is.
	DurationPermanent Duration = "Permanent"
)

// Definition describes one effect printed on a card. Definitions are owned
// by card data and shared between card instances; they are never mutated at
// runtime. Per-instance usage (once per turn) is tracked in the game state.
type Definition struct {
	ID          string
	TimingKind  TimingKind
	Timing      Timing
	Condition   Condition
	Cost        Cost
	Params      Params
	Target      TargetSpec
	ScriptID    string
	OncePerTurn bool
	// ReplacementPriority orders REPLACEMENT definitions (ascending).
	ReplacementPriority int
	Text                string
}

// Kind returns the effect kind tag used for resolver dispatch.
func (d *Definition) Kind() Kind {
	if d == nil || d.Params == nil {
		return KindScript
	}
	return d.Params.Kind()
}

// Scripted reports whether the effect body is a registered script rather
// than a built-in resolver.
func (d *Definition) Scripted() bool {
	return d != nil && d.ScriptID != ""
}

// TargetKind describes what an effect targets.
type TargetKind string

const (
	// TargetNone means the body decides everything itself.
	TargetNone TargetKind = ""
	// TargetController targets the effect's controller (chosen automatically).
	TargetController TargetKind = "CONTROLLER"
	// TargetOpponent targets the controller's opponent (chosen automatically).
	TargetOpponent TargetKind = "OPPONENT"
	// TargetSource targets the card the effect is printed on.
	TargetSource TargetKind = "SOURCE"
	// TargetCharacter targets characters on the field.
	TargetCharacter TargetKind = "CHARACTER"
	// TargetLeaderOrCharacter targets leaders or characters.
	TargetLeaderOrCharacter TargetKind = "LEADER_OR_CHARACTER"
)

// Side restricts whose cards are legal targets.
type Side string

const (
	SideAny      Side = ""
	SideOwn      Side = "OWN"
	SideOpponent Side = "OPPONENT"
)

// TargetSpec declares how targets are collected for an effect instance.
type TargetSpec struct {
	Kind TargetKind
	Side Side
	// Min and Max bound the number of chosen targets ("up to Max").
	Min int
	Max int
}

// Automatic reports whether targets are determined without a player choice.
func (s TargetSpec) Automatic() bool {
	switch s.Kind {
	case TargetNone, TargetController, TargetOpponent, TargetSource:
		return true
	default:
		return false
	}
}

// Target is a chosen effect target: a card or a player.
type Target struct {
	CardID   string
	PlayerID string
}

// CardTarget returns a target pointing at a card instance.
func CardTarget(id string) Target { return Target{CardID: id} }

// PlayerTarget returns a target pointing at a player.
func PlayerTarget(id string) Target { return Target{PlayerID: id} }

// ID returns whichever identifier the target carries.
func (t Target) ID() string {
	if t.CardID != "" {
		return t.CardID
	}
	return t.PlayerID
}

package script

import (
	"fmt"

	"github.com/Shopify/go-lua"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/engine"
	"github.com/opcg/rules-engine-go/internal/game/state"
)

// bind installs the ctx table for one resolution.
func bind(l *lua.State, sc *engine.ScriptContext) {
	l.NewTable()
	lua.SetFunctions(l, surface(sc), 0)
	l.SetGlobal("ctx")
}

func surface(sc *engine.ScriptContext) []lua.RegistryFunction {
	return []lua.RegistryFunction{
		{Name: "source", Function: func(l *lua.State) int {
			l.PushString(sc.SourceID())
			return 1
		}},
		{Name: "controller", Function: func(l *lua.State) int {
			l.PushString(sc.Controller())
			return 1
		}},
		{Name: "opponent", Function: func(l *lua.State) int {
			l.PushString(sc.Opponent())
			return 1
		}},
		{Name: "targets", Function: func(l *lua.State) int {
			pushStrings(l, sc.Targets())
			return 1
		}},
		{Name: "move_card", Function: func(l *lua.State) int {
			id := lua.CheckString(l, 1)
			check(l, sc.MoveCard(id, checkZone(l, 2)))
			return 0
		}},
		{Name: "modify_power", Function: func(l *lua.State) int {
			id := lua.CheckString(l, 1)
			delta := lua.CheckInteger(l, 2)
			check(l, sc.ModifyPower(id, delta, optDuration(l, 3)))
			return 0
		}},
		{Name: "modify_cost", Function: func(l *lua.State) int {
			id := lua.CheckString(l, 1)
			delta := lua.CheckInteger(l, 2)
			check(l, sc.ModifyCost(id, delta, optDuration(l, 3)))
			return 0
		}},
		{Name: "draw_cards", Function: func(l *lua.State) int {
			player := lua.CheckString(l, 1)
			drawn, err := sc.DrawCards(player, lua.CheckInteger(l, 2))
			check(l, err)
			l.PushInteger(len(drawn))
			return 1
		}},
		{Name: "search_zone", Function: func(l *lua.State) int {
			player := lua.CheckString(l, 1)
			zone := checkZone(l, 2)
			var ids []string
			for _, c := range sc.SearchZone(player, zone, optFilter(l, 3)) {
				ids = append(ids, c.ID)
			}
			pushStrings(l, ids)
			return 1
		}},
		{Name: "rest_card", Function: func(l *lua.State) int {
			check(l, sc.RestCard(lua.CheckString(l, 1)))
			return 0
		}},
		{Name: "activate_card", Function: func(l *lua.State) int {
			check(l, sc.ActivateCard(lua.CheckString(l, 1)))
			return 0
		}},
		{Name: "knock_out", Function: func(l *lua.State) int {
			check(l, sc.KnockOut(lua.CheckString(l, 1)))
			return 0
		}},
		{Name: "set_permanent_removal", Function: func(l *lua.State) int {
			check(l, sc.SetPermanentRemoval(lua.CheckString(l, 1)))
			return 0
		}},
		{Name: "set_face_up", Function: func(l *lua.State) int {
			id := lua.CheckString(l, 1)
			up := true
			if !l.IsNoneOrNil(2) {
				up = l.ToBoolean(2)
			}
			check(l, sc.SetFaceUp(id, up))
			return 0
		}},
		{Name: "attach_resources", Function: func(l *lua.State) int {
			id := lua.CheckString(l, 1)
			n, err := sc.AttachResources(id, lua.CheckInteger(l, 2), l.ToBoolean(3))
			check(l, err)
			l.PushInteger(n)
			return 1
		}},
		{Name: "choose_targets", Function: func(l *lua.State) int {
			candidates := checkStrings(l, 1)
			chosen, err := sc.ChooseTargets(candidates, lua.CheckInteger(l, 2), lua.CheckInteger(l, 3))
			check(l, err)
			pushStrings(l, chosen)
			return 1
		}},
		{Name: "choose_value", Function: func(l *lua.State) int {
			key := lua.CheckString(l, 1)
			v, err := sc.ChooseValue(key, lua.CheckInteger(l, 2), lua.CheckInteger(l, 3))
			check(l, err)
			l.PushInteger(v)
			return 1
		}},
		{Name: "power", Function: func(l *lua.State) int {
			l.PushInteger(sc.State().Power(lua.CheckString(l, 1)))
			return 1
		}},
		{Name: "cost", Function: func(l *lua.State) int {
			l.PushInteger(sc.State().Cost(lua.CheckString(l, 1)))
			return 1
		}},
		{Name: "life", Function: func(l *lua.State) int {
			l.PushInteger(sc.State().Life(lua.CheckString(l, 1)))
			return 1
		}},
		{Name: "zone", Function: func(l *lua.State) int {
			c, ok := sc.State().Card(lua.CheckString(l, 1))
			if !ok {
				l.PushNil()
				return 1
			}
			l.PushString(c.Zone.String())
			return 1
		}},
	}
}

// check raises err as a Lua error.
func check(l *lua.State, err error) {
	if err != nil {
		lua.Errorf(l, "%s", err.Error())
	}
}

func checkZone(l *lua.State, index int) state.Zone {
	z, err := state.ParseZone(lua.CheckString(l, index))
	if err != nil {
		lua.ArgumentError(l, index, err.Error())
	}
	return z
}

var durations = map[string]effects.Duration{
	"this_turn":   effects.DurationThisTurn,
	"this_battle": effects.DurationThisBattle,
	"permanent":   effects.DurationPermanent,
}

func optDuration(l *lua.State, index int) effects.Duration {
	name := lua.OptString(l, index, "this_turn")
	d, ok := durations[name]
	if !ok {
		lua.ArgumentError(l, index, fmt.Sprintf("unknown duration %q", name))
	}
	return d
}

// optFilter reads a filter table: category, color, keyword, name,
// exclude_name, max_cost, max_power. Every field is optional.
func optFilter(l *lua.State, index int) effects.CardFilter {
	var f effects.CardFilter
	if l.IsNoneOrNil(index) {
		return f
	}
	lua.CheckType(l, index, lua.TypeTable)
	f.Category = stringField(l, index, "category")
	f.Color = effects.Color(stringField(l, index, "color"))
	f.Keyword = effects.Keyword(stringField(l, index, "keyword"))
	f.NameContains = stringField(l, index, "name")
	f.ExcludeName = stringField(l, index, "exclude_name")
	if n, ok := intField(l, index, "max_cost"); ok {
		f.Limit.MaxCost, f.Limit.HasMaxCost = n, true
	}
	if n, ok := intField(l, index, "max_power"); ok {
		f.Limit.MaxPower, f.Limit.HasMaxPower = n, true
	}
	return f
}

func stringField(l *lua.State, index int, name string) string {
	l.Field(index, name)
	defer l.Pop(1)
	s, _ := l.ToString(-1)
	return s
}

func intField(l *lua.State, index int, name string) (int, bool) {
	l.Field(index, name)
	defer l.Pop(1)
	if l.TypeOf(-1) != lua.TypeNumber {
		return 0, false
	}
	return l.ToInteger(-1)
}

func checkStrings(l *lua.State, index int) []string {
	lua.CheckType(l, index, lua.TypeTable)
	n := l.RawLength(index)
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		l.RawGetInt(index, i)
		s, ok := l.ToString(-1)
		l.Pop(1)
		if !ok {
			lua.ArgumentError(l, index, "array of strings expected")
		}
		out = append(out, s)
	}
	return out
}

func pushStrings(l *lua.State, values []string) {
	l.CreateTable(len(values), 0)
	for i, v := range values {
		l.PushString(v)
		l.RawSetInt(-2, i+1)
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/opcg/rules-engine-go/internal/game/cost"
	"github.com/opcg/rules-engine-go/internal/game/effects"
	"github.com/opcg/rules-engine-go/internal/game/rules"
	"github.com/opcg/rules-engine-go/internal/game/state"
	"github.com/opcg/rules-engine-go/internal/game/targeting"
	"go.uber.org/zap"
)

// outcome collects what resolving one effect body produced.
type outcome struct {
	state *state.State
	// deferred triggers resolve after the current list (resolver output).
	deferred []*rules.Trigger
	// nested triggers were raised by a script and drain first.
	nested []*rules.Trigger
}

// ResolveStack resolves pending triggers until the queue is empty or the
// game ends. Triggers whose condition fails, that lose every target or
// whose cost cannot be paid fizzle silently. Content errors (missing
// scripts, failing rewrites or scripts) stop the loop: the returned state
// is the one from before the failing trigger, and the registry and queue
// are rolled back with it, so the failing trigger is pending again.
func (e *Engine) ResolveStack(ctx context.Context, st *state.State) (*state.State, error) {
	if err := e.resolution.BeginResolution("stack"); err != nil {
		return st, fmt.Errorf("%w: %v", ErrReentrantResolution, err)
	}
	defer func() { _ = e.resolution.EndResolution("stack") }()

	if err := e.SyncReplacements(st); err != nil {
		return st, err
	}
	for !st.GameOver() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		cp := e.Checkpoint()
		t, ok := e.queue.Next()
		if !ok {
			break
		}
		next, err := e.step(ctx, st, t)
		if err != nil {
			e.Rollback(cp)
			return st, fmt.Errorf("resolve trigger %s (%s on %s): %w", t.ID, t.Definition.ID, t.SourceID, err)
		}
		st = next
	}
	return st, nil
}

// step resolves one trigger and queues what it produced.
func (e *Engine) step(ctx context.Context, st *state.State, t *rules.Trigger) (*state.State, error) {
	out, err := e.resolveTrigger(ctx, st, t)
	if err != nil {
		return st, err
	}
	e.queue.Defer(out.deferred...)
	if err := e.queue.PushFrame(out.nested...); err != nil {
		return st, err
	}
	if err := e.SyncReplacements(out.state); err != nil {
		return st, err
	}
	t.Status = rules.TriggerResolved
	return out.state, nil
}

func (e *Engine) resolveTrigger(ctx context.Context, st *state.State, t *rules.Trigger) (outcome, error) {
	def := t.Definition
	fizzle := func(reason string) (outcome, error) {
		e.fizzle(t.Controller, t.SourceID, def.ID, reason, zap.String("trigger_id", t.ID))
		return outcome{state: st}, nil
	}

	if _, ok := st.Card(t.SourceID); !ok {
		return fizzle("source missing")
	}
	if !effects.Evaluate(def.Condition, st, t.SourceID, t.Controller) {
		return fizzle("condition unmet")
	}

	next := st
	if !effects.IsFree(def.Cost) {
		c, err := e.replacements.ApplyCostReplacements(def.Cost, e.replacementContext(st, t.SourceID, t.Controller, def))
		if err != nil {
			return outcome{}, err
		}
		if !cost.CalculatePayment(c, st, t.Controller, "").Success {
			return fizzle("cost unaffordable")
		}
		if next, err = cost.Pay(ctx, st, t.Controller, t.SourceID, "", c, e.decisions); err != nil {
			return outcome{}, err
		}
	}

	inst := effects.NewInstance(def, t.SourceID, t.Controller)
	out, err := e.runBody(ctx, next, inst)
	if err != nil {
		return outcome{}, err
	}
	if def.OncePerTurn {
		out.state = out.state.MarkEffectUsed(t.SourceID, def.ID)
	}
	return out, nil
}

// fizzle logs and publishes an effect that did nothing.
func (e *Engine) fizzle(controller, sourceID, effectID, reason string, fields ...zap.Field) {
	e.logger.Debug("effect fizzled", append(fields,
		zap.String("source_id", sourceID),
		zap.String("effect_id", effectID),
		zap.String("reason", reason))...)
	evt := rules.NewEvent(rules.EventEffectFizzled, controller, sourceID)
	evt.Metadata["effect_id"] = effectID
	evt.Metadata["reason"] = reason
	e.bus.Publish(evt)
}

// runBody applies body replacements, chooses targets and executes the
// instance. Targets a replacement already set are re-checked against the
// effect's target spec; if none is still legal the body fizzles.
func (e *Engine) runBody(ctx context.Context, st *state.State, inst *effects.Instance) (outcome, error) {
	def := inst.Definition
	inst, err := e.replacements.ApplyBodyReplacements(inst, e.replacementContext(st, inst.SourceID, inst.Controller, def))
	if err != nil {
		return outcome{}, err
	}
	if def.Target.Kind != effects.TargetNone {
		req := targeting.Requirement{
			Spec:       def.Target,
			SourceID:   inst.SourceID,
			Controller: inst.Controller,
			EffectID:   def.ID,
		}
		if len(inst.Targets) == 0 {
			if inst.Targets, err = targeting.Choose(ctx, st, e.decisions, req); err != nil {
				return outcome{}, err
			}
		} else if inst.Targets = targeting.StillLegal(st, req, inst.Targets); len(inst.Targets) == 0 {
			e.fizzle(inst.Controller, inst.SourceID, def.ID, "targets lost", zap.String("instance_id", inst.ID))
			return outcome{state: st}, nil
		}
	}
	out, err := e.execute(ctx, st, inst)
	if err != nil {
		return outcome{}, err
	}
	e.publishResolved(inst)
	return out, nil
}

// execute runs an instance's body: its script when it has one, otherwise
// the built-in resolver for its parameters.
func (e *Engine) execute(ctx context.Context, st *state.State, inst *effects.Instance) (outcome, error) {
	if inst.Definition.Scripted() {
		fn, err := e.script(inst.Definition.ScriptID)
		if err != nil {
			return outcome{}, err
		}
		sc := newScriptContext(ctx, e, st, inst)
		if err := fn(ctx, sc); err != nil {
			return outcome{}, fmt.Errorf("script %s: %w", inst.Definition.ScriptID, err)
		}
		inst.Resolved = true
		return outcome{state: sc.state, nested: sc.nested}, nil
	}

	res, err := e.resolvers.Dispatch(ctx, inst, st)
	if err != nil {
		return outcome{}, err
	}
	inst.Resolved = true
	return outcome{state: res.State, deferred: res.Triggers}, nil
}

func (e *Engine) publishResolved(inst *effects.Instance) {
	evt := rules.NewEvent(rules.EventEffectResolved, inst.Controller, inst.SourceID)
	evt.Metadata["effect_id"] = inst.Definition.ID
	evt.Metadata["instance_id"] = inst.ID
	evt.Amount = len(inst.Targets)
	e.bus.Publish(evt)
}

func (e *Engine) replacementContext(st *state.State, sourceID, controller string, def *effects.Definition) effects.ReplacementContext {
	return effects.ReplacementContext{
		Facts:      st,
		SourceID:   sourceID,
		Controller: controller,
		Definition: def,
	}
}

// IsContentError reports whether err comes from card content or engine
// wiring rather than from a player action.
func IsContentError(err error) bool {
	return errors.Is(err, ErrScriptNotFound) ||
		errors.Is(err, ErrDuplicateScript) ||
		errors.Is(err, ErrDuplicateRewrite) ||
		errors.Is(err, ErrReentrantResolution)
}

// Package actions implements the action dispatcher. Variable and signal
// actions mutate the session directly; everything physical, audible or
// visual becomes a command for the host.
package actions

import (
	"math"

	"github.com/nathoo/ecacore/engine/fault"
	"github.com/nathoo/ecacore/engine/rules"
	"github.com/nathoo/ecacore/engine/signals"
	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/types"
)

// Apply runs actions in list order. A failing action is skipped and its
// fault collected; later actions still run.
func Apply(s *types.Session, bus *signals.Bus, acts []types.Action, ctx rules.Context) ([]types.Command, []error) {
	var cmds []types.Command
	var faults []error

	for i, a := range acts {
		cmd, err := apply(s, bus, a, ctx)
		if err != nil {
			faults = append(faults, annotate(err, ctx, i))
			continue
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds, faults
}

func apply(s *types.Session, bus *signals.Bus, a types.Action, ctx rules.Context) (types.Command, error) {
	switch act := a.(type) {
	case types.Set:
		return nil, state.SetVar(s, act.Scope, ctx.Resolve(act.EntityID), act.Variable, act.Value)

	case types.Add:
		amount, err := amountOf(s, ctx, act.Amount, act.AmountVar)
		if err != nil {
			return nil, err
		}
		return nil, addTo(s, act.Scope, ctx.Resolve(act.EntityID), act.Variable, amount)

	case types.Subtract:
		amount, err := amountOf(s, ctx, act.Amount, act.AmountVar)
		if err != nil {
			return nil, err
		}
		return nil, addTo(s, act.Scope, ctx.Resolve(act.EntityID), act.Variable, -amount)

	case types.Move:
		e, err := entity(s, ctx.Resolve(act.EntityID))
		if err != nil {
			return nil, err
		}
		return types.PhysicsCommand{Kind: types.PhysicsMove, EntityID: e.ID,
			DX: act.DX, DY: act.DY, Magnitude: act.Speed}, nil

	case types.ApplyForce:
		e, err := entity(s, ctx.Resolve(act.EntityID))
		if err != nil {
			return nil, err
		}
		return types.PhysicsCommand{Kind: types.PhysicsForce, EntityID: e.ID,
			DX: act.FX, DY: act.FY, Magnitude: math.Hypot(act.FX, act.FY)}, nil

	case types.SetVelocity:
		e, err := entity(s, ctx.Resolve(act.EntityID))
		if err != nil {
			return nil, err
		}
		return types.PhysicsCommand{Kind: types.PhysicsVelocity, EntityID: e.ID,
			DX: act.VX, DY: act.VY, Magnitude: math.Hypot(act.VX, act.VY)}, nil

	case types.Teleport:
		e, err := entity(s, ctx.Resolve(act.EntityID))
		if err != nil {
			return nil, err
		}
		x, y := act.X, act.Y
		if act.Relative {
			x += e.Position.X
			y += e.Position.Y
		}
		return types.PhysicsCommand{Kind: types.PhysicsTeleport, EntityID: e.ID, DX: x, DY: y}, nil

	case types.Spawn:
		if act.TemplateID == "" {
			return nil, fault.New(fault.MissingReference, "spawn template is empty")
		}
		x, y, err := offset(s, ctx, act.EntityID, act.X, act.Y)
		if err != nil {
			return nil, err
		}
		return types.SpawnCommand{TemplateID: act.TemplateID, X: x, Y: y,
			UsePool: act.UsePool, PoolSize: act.PoolSize}, nil

	case types.PlayAnimation:
		return render(s, ctx, types.RenderAnimation, act.EntityID, act.Animation, act.Loop)

	case types.SetSprite:
		return render(s, ctx, types.RenderSprite, act.EntityID, act.SpriteKey, false)

	case types.SetMaterial:
		return render(s, ctx, types.RenderMaterial, act.EntityID, act.MaterialID, false)

	case types.LoadScene:
		if act.SceneName == "" {
			return nil, fault.New(fault.MissingReference, "scene name is empty")
		}
		tr := act.Transition
		if tr == "" {
			tr = types.TransitionNone
		}
		return types.SceneCommand{SceneName: act.SceneName, Transition: tr, Data: cloneData(act.Data)}, nil

	case types.ShowDialog:
		return types.DialogCommand{
			DialogID: act.DialogID,
			Speaker:  act.Speaker,
			Portrait: act.Portrait,
			Choices:  append([]types.Choice(nil), act.Choices...),
		}, nil

	case types.EmitSignal:
		if act.Signal == "" {
			return nil, fault.New(fault.MissingReference, "signal name is empty")
		}
		bus.Post(act.Signal)
		return nil, nil

	case types.StartCooldown:
		if act.CooldownID == "" {
			return nil, fault.New(fault.MissingReference, "cooldown id is empty")
		}
		ms, err := amountOf(s, ctx, act.DurationMs, act.DurationVar)
		if err != nil {
			return nil, err
		}
		state.StartCooldown(s, ctx.CooldownKey(act.CooldownID), ms)
		return nil, nil

	case types.SetActive:
		e, err := entity(s, ctx.Resolve(act.EntityID))
		if err != nil {
			return nil, err
		}
		return types.LifecycleCommand{Kind: types.LifecycleSetActive, EntityID: e.ID, Active: act.Active}, nil

	case types.Destroy:
		e, err := entity(s, ctx.Resolve(act.EntityID))
		if err != nil {
			return nil, err
		}
		return types.LifecycleCommand{Kind: types.LifecycleDestroy, EntityID: e.ID, DelayMs: act.DelayMs}, nil

	case types.PlayEffect:
		x, y, err := offset(s, ctx, act.EntityID, act.X, act.Y)
		if err != nil {
			return nil, err
		}
		scale := act.Scale
		if scale == 0 {
			scale = 1
		}
		return types.EffectCommand{PresetID: act.PresetID, X: x, Y: y, Scale: scale}, nil

	case types.PlaySound:
		return types.SoundCommand{SoundID: act.SoundID, Volume: act.Volume, Loop: act.Loop}, nil

	case types.StopSound:
		return types.SoundCommand{SoundID: act.SoundID, Stop: true}, nil

	default:
		return nil, fault.New(fault.UnknownRule, "action %T", a)
	}
}

// addTo adds delta to an existing float variable.
func addTo(s *types.Session, scope types.Scope, owner, name string, delta float64) error {
	v, ok := state.GetVar(s, scope, owner, name)
	if !ok {
		return fault.New(fault.MissingReference, "variable %q", name)
	}
	if v.Type != types.VarFloat {
		return fault.New(fault.TypeMismatch, "cannot add to %s variable %q", v.Type, name)
	}
	cur, _ := state.ToFloat(v.Value)
	return state.SetVar(s, scope, owner, name, cur+delta)
}

// amountOf returns fixed, or the float variable name on self when set.
func amountOf(s *types.Session, ctx rules.Context, fixed float64, name string) (float64, error) {
	if name == "" {
		return fixed, nil
	}
	v, ok := state.GetVar(s, types.ScopeEntity, ctx.Self, name)
	if !ok {
		return 0, fault.New(fault.MissingReference, "variable %q on %q", name, ctx.Self)
	}
	f, ok := v.Value.(float64)
	if !ok || v.Type != types.VarFloat {
		return 0, fault.New(fault.TypeMismatch, "%s variable %q is not a number", v.Type, name)
	}
	return f, nil
}

// offset makes (x, y) relative to ref when ref is set.
func offset(s *types.Session, ctx rules.Context, ref string, x, y float64) (float64, float64, error) {
	if ref == "" {
		return x, y, nil
	}
	e, err := entity(s, ctx.Resolve(ref))
	if err != nil {
		return 0, 0, err
	}
	return x + e.Position.X, y + e.Position.Y, nil
}

func render(s *types.Session, ctx rules.Context, kind, ref, key string, loop bool) (types.Command, error) {
	e, err := entity(s, ctx.Resolve(ref))
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fault.New(fault.MissingReference, "%s name is empty", kind)
	}
	return types.RenderCommand{Kind: kind, EntityID: e.ID, Key: key, Loop: loop}, nil
}

func cloneData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func entity(s *types.Session, id string) (*types.Entity, error) {
	e, ok := state.Entity(s, id)
	if !ok {
		return nil, fault.New(fault.MissingReference, "entity %q", id)
	}
	return e, nil
}

func annotate(err error, ctx rules.Context, index int) error {
	if fe, ok := err.(*fault.Error); ok {
		return fe.At(ctx.RuleID, index, ctx.Self)
	}
	return err
}

// Validate reports whether the dispatcher can run a.
func Validate(a types.Action) error {
	switch act := a.(type) {
	case types.Set:
		if _, _, err := state.Infer(act.Value); err != nil {
			return err
		}
		return nil
	case types.LoadScene:
		switch act.Transition {
		case "", types.TransitionNone, types.TransitionFade, types.TransitionSlide:
			return nil
		}
		return fault.New(fault.UnknownRule, "scene transition %q", act.Transition)
	case types.Add, types.Subtract, types.Move, types.ApplyForce, types.SetVelocity,
		types.Teleport, types.Spawn, types.ShowDialog, types.PlayAnimation,
		types.SetSprite, types.SetMaterial, types.EmitSignal, types.StartCooldown,
		types.SetActive, types.Destroy, types.PlayEffect, types.PlaySound, types.StopSound:
		return nil
	default:
		return fault.New(fault.UnknownRule, "action %T", a)
	}
}

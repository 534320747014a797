package rules

import (
	"math"
	"strings"

	"github.com/nathoo/ecacore/engine/fault"
	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/types"
)

// Entity reference aliases usable wherever a rule names an entity.
const (
	RefSelf  = "@self"
	RefOther = "@other"
)

// Context identifies the rule being evaluated and who it runs as.
type Context struct {
	RuleID string
	Self   string
	Other  string
}

// Resolve maps an entity reference to an entity ID. An empty reference
// means self.
func (c Context) Resolve(ref string) string {
	switch ref {
	case "", RefSelf:
		return c.Self
	case RefOther:
		return c.Other
	default:
		return ref
	}
}

// CooldownKey expands entity references inside a cooldown id, so
// "@self.attack" names a cooldown private to the entity the rule runs as.
func (c Context) CooldownKey(id string) string {
	if !strings.Contains(id, "@") {
		return id
	}
	return strings.NewReplacer(RefSelf, c.Self, RefOther, c.Other).Replace(id)
}

// EvalCondition evaluates a single condition. Any fault makes the
// condition fail; the fault is returned for logging.
func EvalCondition(c types.Condition, ctx Context, s *types.Session) (bool, error) {
	switch cond := c.(type) {
	case types.Compare:
		owner := ctx.Resolve(cond.EntityID)
		v, ok := state.GetVar(s, cond.Scope, owner, cond.Variable)
		if !ok {
			return false, missingVar(cond.Scope, owner, cond.Variable)
		}
		return compare(v, cond.Operator, cond.Value)

	case types.IsGrounded:
		e, err := lookup(s, ctx.Resolve(cond.EntityID))
		if err != nil {
			return false, err
		}
		return e.Grounded, nil

	case types.HasVariable:
		owner := ctx.Resolve(cond.EntityID)
		if cond.Scope != types.ScopeGlobal {
			if _, err := lookup(s, owner); err != nil {
				return false, err
			}
		}
		_, ok := state.GetVar(s, cond.Scope, owner, cond.Variable)
		return ok, nil

	case types.HasTag:
		e, err := lookup(s, ctx.Resolve(cond.EntityID))
		if err != nil {
			return false, err
		}
		return state.HasTag(e, cond.Tag), nil

	case types.IsActive:
		e, err := lookup(s, ctx.Resolve(cond.EntityID))
		if err != nil {
			return false, err
		}
		return e.Active == cond.Expected, nil

	case types.CooldownReady:
		return state.CooldownReady(s, ctx.CooldownKey(cond.CooldownID)), nil

	case types.RaycastHit:
		origin, err := lookup(s, ctx.Self)
		if err != nil {
			return false, err
		}
		return raycast(s, origin, cond), nil

	case types.Not:
		if cond.Inner == nil {
			return false, fault.New(fault.UnknownRule, "Not without inner condition")
		}
		ok, err := EvalCondition(cond.Inner, ctx, s)
		if err != nil {
			return false, err
		}
		return !ok, nil

	default:
		return false, fault.New(fault.UnknownRule, "condition %T", c)
	}
}

// EvalAll evaluates conditions in order and stops at the first failure.
// It returns the index of the failing condition, or -1 when all pass.
// An empty list passes.
func EvalAll(conds []types.Condition, ctx Context, s *types.Session) (bool, int, error) {
	for i, c := range conds {
		ok, err := EvalCondition(c, ctx, s)
		if err != nil {
			return false, i, err
		}
		if !ok {
			return false, i, nil
		}
	}
	return true, -1, nil
}

// compare coerces both the stored value and the literal to the variable's
// declared type before applying op.
func compare(v types.Variable, op types.CompareOperator, literal any) (bool, error) {
	left, err := state.Coerce(v.Type, v.Value)
	if err != nil {
		return false, err
	}
	right, err := state.Coerce(v.Type, literal)
	if err != nil {
		return false, err
	}

	var c int
	switch l := left.(type) {
	case float64:
		r := right.(float64)
		switch {
		case l < r:
			c = -1
		case l > r:
			c = 1
		}
	case string:
		c = strings.Compare(l, right.(string))
	case bool:
		eq := l == right.(bool)
		switch op {
		case types.OpEquals:
			return eq, nil
		case types.OpNotEquals:
			return !eq, nil
		}
		return false, fault.New(fault.TypeMismatch, "operator %s not defined for bool", op)
	}

	switch op {
	case types.OpEquals:
		return c == 0, nil
	case types.OpNotEquals:
		return c != 0, nil
	case types.OpGreaterThan:
		return c > 0, nil
	case types.OpLessThan:
		return c < 0, nil
	case types.OpGreaterOrEqual:
		return c >= 0, nil
	case types.OpLessOrEqual:
		return c <= 0, nil
	default:
		return false, fault.New(fault.UnknownRule, "operator %q", op)
	}
}

// raycast reports whether the ray from origin along (DX, DY) enters the
// bounds of another active entity carrying WithTag within Distance.
func raycast(s *types.Session, origin *types.Entity, r types.RaycastHit) bool {
	n := math.Hypot(r.DX, r.DY)
	if n == 0 || r.Distance <= 0 {
		return false
	}
	dir := types.Vec2{X: r.DX / n, Y: r.DY / n}
	for _, e := range state.Entities(s) {
		if e.ID == origin.ID || !e.Active {
			continue
		}
		if r.WithTag != "" && !state.HasTag(e, r.WithTag) {
			continue
		}
		if t, ok := rayBox(origin.Position, dir, e); ok && t <= r.Distance {
			return true
		}
	}
	return false
}

// rayBox is a slab test against e's bounding box. It returns the distance
// along dir at which the ray enters the box (0 when it starts inside).
func rayBox(o, dir types.Vec2, e *types.Entity) (float64, bool) {
	tmin, tmax := 0.0, math.Inf(1)
	axes := [2][4]float64{
		{o.X, dir.X, e.Position.X - e.Size.X/2, e.Position.X + e.Size.X/2},
		{o.Y, dir.Y, e.Position.Y - e.Size.Y/2, e.Position.Y + e.Size.Y/2},
	}
	for _, a := range axes {
		p, d, lo, hi := a[0], a[1], a[2], a[3]
		if d == 0 {
			if p < lo || p > hi {
				return 0, false
			}
			continue
		}
		t1, t2 := (lo-p)/d, (hi-p)/d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

func lookup(s *types.Session, id string) (*types.Entity, error) {
	e, ok := state.Entity(s, id)
	if !ok {
		return nil, fault.New(fault.MissingReference, "entity %q", id)
	}
	return e, nil
}

func missingVar(scope types.Scope, owner, name string) error {
	if scope == types.ScopeGlobal {
		return fault.New(fault.MissingReference, "global variable %q", name)
	}
	return fault.New(fault.MissingReference, "variable %q on %q", name, owner)
}

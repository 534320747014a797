// Package rules implements trigger matching and condition evaluation for
// ECA rules, plus the execution order of a tick's candidates.
package rules

import (
	"sort"

	"github.com/nathoo/ecacore/engine/fault"
	"github.com/nathoo/ecacore/types"
)

// Order sorts candidates for execution: Priority ascending, then
// registration order. The input must already be in registration order.
func Order(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Rule.Priority < cands[j].Rule.Priority
	})
}

// Validate reports the first element of r the evaluator cannot run. The
// loader calls it so unknown variants fail at load time.
func Validate(r types.Rule) error {
	if r.Trigger == nil {
		return fault.New(fault.UnknownRule, "rule %q has no trigger", r.ID)
	}
	switch t := r.Trigger.(type) {
	case types.OnKeyDown, types.OnKeyUp, types.OnClick, types.OnCollision,
		types.OnCollisionExit, types.OnTriggerEnter, types.OnEventSignal,
		types.OnTick, types.OnStart, types.OnDestroy:
	case types.OnAxis:
		if t.Axis == "" {
			return fault.New(fault.UnknownRule, "rule %q: axis name is empty", r.ID)
		}
	case types.OnTimer:
		if t.IntervalMs <= 0 {
			return fault.New(fault.UnknownRule, "rule %q: timer interval must be positive", r.ID)
		}
	default:
		return fault.New(fault.UnknownRule, "rule %q: trigger %T", r.ID, r.Trigger)
	}
	for i, c := range r.Conditions {
		if err := validateCondition(c); err != nil {
			return err.At(r.ID, i, "")
		}
	}
	return nil
}

func validateCondition(c types.Condition) *fault.Error {
	switch cond := c.(type) {
	case types.Compare:
		switch cond.Operator {
		case types.OpEquals, types.OpNotEquals, types.OpGreaterThan,
			types.OpLessThan, types.OpGreaterOrEqual, types.OpLessOrEqual:
			return nil
		}
		return fault.New(fault.UnknownRule, "operator %q", cond.Operator)
	case types.RaycastHit:
		if cond.Distance <= 0 || (cond.DX == 0 && cond.DY == 0) {
			return fault.New(fault.UnknownRule, "raycast needs a direction and a positive distance")
		}
		return nil
	case types.IsGrounded, types.HasVariable, types.HasTag, types.IsActive, types.CooldownReady:
		return nil
	case types.Not:
		if cond.Inner == nil {
			return fault.New(fault.UnknownRule, "Not without inner condition")
		}
		return validateCondition(cond.Inner)
	default:
		return fault.New(fault.UnknownRule, "condition %T", c)
	}
}

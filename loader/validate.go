package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/ecacore/engine/actions"
	"github.com/nathoo/ecacore/engine/presets"
	"github.com/nathoo/ecacore/engine/rules"
	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// validate checks the compiled defs for referential integrity and
// consistency, adding to ve.
func validate(defs *state.Defs, ve *ValidationError) {
	if defs.Scene.Title == "" {
		ve.errorf("Scene.title is required")
	}

	known := map[string]bool{}
	for _, def := range defs.Entities {
		if known[def.Entity.ID] {
			ve.errorf("duplicate entity id %q", def.Entity.ID)
		}
		known[def.Entity.ID] = true
	}

	builtin := map[string]bool{}
	for _, p := range presets.Defaults() {
		builtin[p.ID] = true
	}

	validateVars("globals", defs.Globals, ve)
	validateRules("scene", defs.Rules, known, ve)

	for _, def := range defs.Entities {
		where := fmt.Sprintf("entity %q", def.Entity.ID)
		validateVars(where, def.Entity.Variables, ve)
		validateRules(where, def.Entity.Rules, known, ve)
		for _, pid := range def.Presets {
			if _, ok := defs.Presets[pid]; !ok && !builtin[pid] {
				ve.errorf("%s applies undefined preset %q", where, pid)
			}
		}
	}

	ids := make([]string, 0, len(defs.Presets))
	for id := range defs.Presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := defs.Presets[id]
		where := fmt.Sprintf("preset %q", id)
		validateVars(where, p.Variables, ve)
		validateRules(where, p.Rules, known, ve)
	}
}

func validateVars(where string, vars []types.Variable, ve *ValidationError) {
	seen := map[string]bool{}
	for _, v := range vars {
		if seen[v.Name] {
			ve.errorf("%s: duplicate variable %q", where, v.Name)
		}
		seen[v.Name] = true
	}
}

func validateRules(where string, rs []types.Rule, known map[string]bool, ve *ValidationError) {
	seen := map[string]bool{}
	for _, r := range rs {
		if seen[r.ID] {
			ve.errorf("%s: duplicate rule id %q", where, r.ID)
		}
		seen[r.ID] = true

		if err := rules.Validate(r); err != nil {
			ve.errorf("%s: %v", where, err)
		}
		for i, a := range r.Actions {
			if err := actions.Validate(a); err != nil {
				ve.errorf("%s: rule %q action %d: %v", where, r.ID, i+1, err)
			}
		}

		for _, ref := range entityRefs(r) {
			if !known[ref] {
				ve.warnf("%s: rule %q references unknown entity %q", where, r.ID, ref)
			}
		}
	}
}

// entityRefs lists the literal entity ids a rule names, skipping the self
// and other aliases.
func entityRefs(r types.Rule) []string {
	var refs []string
	add := func(id string) {
		if id != "" && id != rules.RefSelf && id != rules.RefOther {
			refs = append(refs, id)
		}
	}

	var walk func(c types.Condition)
	walk = func(c types.Condition) {
		switch cond := c.(type) {
		case types.Compare:
			add(cond.EntityID)
		case types.IsGrounded:
			add(cond.EntityID)
		case types.HasVariable:
			add(cond.EntityID)
		case types.HasTag:
			add(cond.EntityID)
		case types.IsActive:
			add(cond.EntityID)
		case types.Not:
			walk(cond.Inner)
		}
	}
	for _, c := range r.Conditions {
		walk(c)
	}

	for _, a := range r.Actions {
		switch act := a.(type) {
		case types.Set:
			add(act.EntityID)
		case types.Add:
			add(act.EntityID)
		case types.Subtract:
			add(act.EntityID)
		case types.Move:
			add(act.EntityID)
		case types.ApplyForce:
			add(act.EntityID)
		case types.SetVelocity:
			add(act.EntityID)
		case types.Teleport:
			add(act.EntityID)
		case types.SetActive:
			add(act.EntityID)
		case types.Destroy:
			add(act.EntityID)
		case types.PlayEffect:
			add(act.EntityID)
		case types.Spawn:
			add(act.EntityID)
		case types.PlayAnimation:
			add(act.EntityID)
		case types.SetSprite:
			add(act.EntityID)
		case types.SetMaterial:
			add(act.EntityID)
		}
	}
	return refs
}

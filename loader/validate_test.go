package loader

import (
	"testing"

	"github.com/nathoo/ecacore/engine/presets"
	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/types"
)

// validDefs returns a minimal valid Defs for testing.
func validDefs() *state.Defs {
	return &state.Defs{
		Scene: types.SceneDef{Title: "Test"},
		Entities: []types.EntityDef{
			{Entity: types.Entity{ID: "player", Active: true}},
		},
		Presets: map[string]types.EntityPreset{},
	}
}

func runValidate(defs *state.Defs) *ValidationError {
	ve := &ValidationError{}
	validate(defs, ve)
	return ve
}

func TestValidate_ValidDefs(t *testing.T) {
	ve := runValidate(validDefs())
	if len(ve.Errors) > 0 || len(ve.Warnings) > 0 {
		t.Fatalf("expected clean defs, got %+v", ve)
	}
}

func TestValidate_EmptyTitle(t *testing.T) {
	defs := validDefs()
	defs.Scene.Title = ""
	assertContains(t, runValidate(defs).Errors, "Scene.title is required")
}

func TestValidate_DuplicateEntity(t *testing.T) {
	defs := validDefs()
	defs.Entities = append(defs.Entities, types.EntityDef{Entity: types.Entity{ID: "player"}})
	assertContains(t, runValidate(defs).Errors, `duplicate entity id "player"`)
}

func TestValidate_DuplicateRuleWithinOwner(t *testing.T) {
	defs := validDefs()
	r := types.Rule{ID: "jump", Trigger: types.OnTick{}}
	defs.Entities[0].Entity.Rules = []types.Rule{r, r}
	assertContains(t, runValidate(defs).Errors, `entity "player": duplicate rule id "jump"`)
}

func TestValidate_SameRuleIDAcrossOwnersIsFine(t *testing.T) {
	defs := validDefs()
	r := types.Rule{ID: "jump", Trigger: types.OnTick{}}
	defs.Rules = []types.Rule{r}
	defs.Entities[0].Entity.Rules = []types.Rule{r}
	if ve := runValidate(defs); len(ve.Errors) > 0 {
		t.Errorf("unexpected errors: %v", ve.Errors)
	}
}

func TestValidate_DuplicateVariables(t *testing.T) {
	defs := validDefs()
	defs.Globals = []types.Variable{{Name: "score"}, {Name: "score"}}
	defs.Presets["p"] = types.EntityPreset{ID: "p", Variables: []types.Variable{{Name: "hp"}, {Name: "hp"}}}

	ve := runValidate(defs)
	assertContains(t, ve.Errors, `globals: duplicate variable "score"`)
	assertContains(t, ve.Errors, `preset "p": duplicate variable "hp"`)
}

func TestValidate_PresetReferences(t *testing.T) {
	defs := validDefs()
	defs.Presets["coin"] = types.EntityPreset{ID: "coin"}
	defs.Entities[0].Presets = []string{presets.PlayerPlatformer, "coin", "jetpack"}

	ve := runValidate(defs)
	if len(ve.Errors) != 1 {
		t.Fatalf("expected only the jetpack error, got %v", ve.Errors)
	}
	assertContains(t, ve.Errors, `undefined preset "jetpack"`)
}

func TestValidate_RuleChecks(t *testing.T) {
	defs := validDefs()
	defs.Rules = []types.Rule{
		{ID: "no_trigger"},
		{ID: "zero_timer", Trigger: types.OnTimer{}},
		{ID: "bad_set", Trigger: types.OnTick{}, Actions: []types.Action{types.Set{Variable: "x", Value: []int{1}}}},
	}

	ve := runValidate(defs)
	assertContains(t, ve.Errors, `rule "no_trigger" has no trigger`)
	assertContains(t, ve.Errors, "timer interval must be positive")
	assertContains(t, ve.Errors, `rule "bad_set" action 1`)
}

func TestValidate_UnknownEntityRefsWarn(t *testing.T) {
	defs := validDefs()
	defs.Rules = []types.Rule{{
		ID:      "r",
		Trigger: types.OnTick{},
		Conditions: []types.Condition{
			types.Not{Inner: types.IsGrounded{EntityID: "ghost"}},
			types.HasTag{Tag: "x", EntityID: "@other"},
		},
		Actions: []types.Action{
			types.Destroy{EntityID: "@self"},
			types.Move{EntityID: "player"},
			types.SetActive{EntityID: "door"},
		},
	}}

	ve := runValidate(defs)
	if len(ve.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", ve.Errors)
	}
	if len(ve.Warnings) != 2 {
		t.Errorf("warnings = %v", ve.Warnings)
	}
	assertContains(t, ve.Warnings, `unknown entity "ghost"`)
	assertContains(t, ve.Warnings, `unknown entity "door"`)
}

package rules

import (
	"errors"
	"testing"

	"github.com/nathoo/ecacore/engine/fault"
	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/types"
)

func condTestSession() *types.Session {
	defs := &state.Defs{
		Globals: []types.Variable{
			{ID: "g1", Name: "questStep", Type: types.VarFloat, Value: 2.0, Scope: types.ScopeGlobal},
			{ID: "g2", Name: "zone", Type: types.VarString, Value: "caves", Scope: types.ScopeGlobal},
		},
		Entities: []types.EntityDef{
			{Entity: types.Entity{
				ID:       "player",
				Active:   true,
				Grounded: true,
				Tags:     []string{"hero"},
				Variables: []types.Variable{
					{ID: "v1", Name: "hp", Type: types.VarFloat, Value: 50.0, Scope: types.ScopeEntity},
					{ID: "v2", Name: "armed", Type: types.VarBool, Value: true, Scope: types.ScopeEntity},
				},
			}},
			{Entity: types.Entity{ID: "coin", Active: false, Tags: []string{"pickup"}}},
		},
	}
	s, _ := state.NewSession(defs)
	state.StartCooldown(s, "dash", 100)
	return s
}

func TestEvalCondition(t *testing.T) {
	s := condTestSession()
	ctx := Context{RuleID: "r1", Self: "player", Other: "coin"}

	tests := []struct {
		name string
		cond types.Condition
		want bool
	}{
		{"compare equals", types.Compare{Variable: "hp", Operator: types.OpEquals, Value: 50}, true},
		{"compare not equals", types.Compare{Variable: "hp", Operator: types.OpNotEquals, Value: 50}, false},
		{"compare greater", types.Compare{Variable: "hp", Operator: types.OpGreaterThan, Value: 10.5}, true},
		{"compare less", types.Compare{Variable: "hp", Operator: types.OpLessThan, Value: 10}, false},
		{"compare greater or equal", types.Compare{Variable: "hp", Operator: types.OpGreaterOrEqual, Value: 50}, true},
		{"compare less or equal", types.Compare{Variable: "hp", Operator: types.OpLessOrEqual, Value: 49}, false},
		{"compare global", types.Compare{Variable: "questStep", Operator: types.OpEquals, Value: 2, Scope: types.ScopeGlobal}, true},
		{"compare string lexical", types.Compare{Variable: "zone", Operator: types.OpLessThan, Value: "desert", Scope: types.ScopeGlobal}, true},
		{"compare bool", types.Compare{Variable: "armed", Operator: types.OpEquals, Value: true}, true},
		{"grounded self", types.IsGrounded{}, true},
		{"grounded named", types.IsGrounded{EntityID: "coin"}, false},
		{"has variable", types.HasVariable{Variable: "hp"}, true},
		{"lacks variable", types.HasVariable{Variable: "mana"}, false},
		{"has global", types.HasVariable{Variable: "zone", Scope: types.ScopeGlobal}, true},
		{"has tag", types.HasTag{Tag: "hero"}, true},
		{"other has tag", types.HasTag{Tag: "pickup", EntityID: RefOther}, true},
		{"is active", types.IsActive{Expected: true}, true},
		{"other inactive", types.IsActive{EntityID: RefOther, Expected: false}, true},
		{"cooldown running", types.CooldownReady{CooldownID: "dash"}, false},
		{"cooldown unknown", types.CooldownReady{CooldownID: "blink"}, true},
		{"not", types.Not{Inner: types.HasTag{Tag: "hero"}}, false},
		{"double not", types.Not{Inner: types.Not{Inner: types.IsGrounded{}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalCondition(tt.cond, ctx, s)
			if err != nil {
				t.Fatalf("EvalCondition() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("EvalCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalCondition_Faults(t *testing.T) {
	s := condTestSession()
	ctx := Context{RuleID: "r1", Self: "player"}

	tests := []struct {
		name string
		cond types.Condition
		want error
	}{
		{"missing variable", types.Compare{Variable: "mana", Operator: types.OpEquals, Value: 1}, fault.ErrMissingReference},
		{"missing entity", types.IsGrounded{EntityID: "ghost"}, fault.ErrMissingReference},
		{"string literal on float", types.Compare{Variable: "hp", Operator: types.OpEquals, Value: "50"}, fault.ErrTypeMismatch},
		{"ordering on bool", types.Compare{Variable: "armed", Operator: types.OpGreaterThan, Value: true}, fault.ErrTypeMismatch},
		{"unknown operator", types.Compare{Variable: "hp", Operator: "Near", Value: 1}, fault.ErrUnknownRule},
		{"not of missing stays failed", types.Not{Inner: types.HasTag{Tag: "x", EntityID: "ghost"}}, fault.ErrMissingReference},
		{"empty not", types.Not{}, fault.ErrUnknownRule},
		{"nil condition", nil, fault.ErrUnknownRule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalCondition(tt.cond, ctx, s)
			if got {
				t.Error("faulted condition must fail")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvalCondition_StoredValueOfWrongType(t *testing.T) {
	s := condTestSession()
	// Corrupt the stored value behind the declared float type.
	s.Globals[0].Value = "2"

	cond := types.Compare{Variable: "questStep", Operator: types.OpEquals, Value: 2, Scope: types.ScopeGlobal}
	got, err := EvalCondition(cond, Context{}, s)
	if got {
		t.Error("compare against mistyped value passed")
	}
	if !errors.Is(err, fault.ErrTypeMismatch) {
		t.Errorf("err = %v, want TypeMismatch", err)
	}
}

func TestEvalAll(t *testing.T) {
	s := condTestSession()
	ctx := Context{Self: "player"}

	ok, idx, err := EvalAll(nil, ctx, s)
	if !ok || idx != -1 || err != nil {
		t.Errorf("empty list: ok=%v idx=%d err=%v", ok, idx, err)
	}

	conds := []types.Condition{
		types.IsGrounded{},
		types.HasTag{Tag: "villain"},
		types.Compare{Variable: "nope", Operator: types.OpEquals, Value: 1},
	}
	ok, idx, err = EvalAll(conds, ctx, s)
	if ok || idx != 1 || err != nil {
		t.Errorf("short circuit: ok=%v idx=%d err=%v, want false 1 nil", ok, idx, err)
	}

	conds[1] = types.HasTag{Tag: "hero"}
	ok, idx, err = EvalAll(conds, ctx, s)
	if ok || idx != 2 || !errors.Is(err, fault.ErrMissingReference) {
		t.Errorf("fault: ok=%v idx=%d err=%v", ok, idx, err)
	}
}

func TestContextResolve(t *testing.T) {
	ctx := Context{Self: "player", Other: "coin"}
	tests := map[string]string{
		"":       "player",
		RefSelf:  "player",
		RefOther: "coin",
		"door":   "door",
	}
	for ref, want := range tests {
		if got := ctx.Resolve(ref); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", ref, got, want)
		}
	}
}

func TestEvalCondition_Raycast(t *testing.T) {
	s, _ := state.NewSession(&state.Defs{
		Entities: []types.EntityDef{
			{Entity: types.Entity{ID: "turret", Active: true, Size: types.Vec2{X: 10, Y: 10}}},
			{Entity: types.Entity{ID: "crate", Active: true, Tags: []string{"box"},
				Position: types.Vec2{X: 50}, Size: types.Vec2{X: 10, Y: 10}}},
			{Entity: types.Entity{ID: "decoy", Active: false, Tags: []string{"hero"},
				Position: types.Vec2{X: 20}, Size: types.Vec2{X: 10, Y: 10}}},
			{Entity: types.Entity{ID: "player", Active: true, Tags: []string{"hero"},
				Position: types.Vec2{X: 100, Y: 1}, Size: types.Vec2{X: 4, Y: 4}}},
			{Entity: types.Entity{ID: "scout", Active: true, Tags: []string{"hero"},
				Position: types.Vec2{Y: -300}}},
		},
	})
	ctx := Context{RuleID: "aim", Self: "turret"}

	tests := []struct {
		name string
		cond types.RaycastHit
		want bool
	}{
		{"nearest box in range", types.RaycastHit{DX: 1, Distance: 60}, true},
		{"box out of range", types.RaycastHit{DX: 1, Distance: 40}, false},
		{"tag skips untagged box", types.RaycastHit{DX: 1, Distance: 120, WithTag: "hero"}, true},
		{"tag out of range", types.RaycastHit{DX: 1, Distance: 90, WithTag: "hero"}, false},
		{"direction is normalized", types.RaycastHit{DX: 2, Distance: 60}, true},
		{"point target short", types.RaycastHit{DY: -1, Distance: 250}, false},
		{"point target reached", types.RaycastHit{DY: -1, Distance: 310}, true},
		{"nothing behind", types.RaycastHit{DX: -1, Distance: 500}, false},
		{"zero direction", types.RaycastHit{Distance: 500}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalCondition(tt.cond, ctx, s)
			if err != nil {
				t.Fatalf("EvalCondition() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("EvalCondition(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}

	_, err := EvalCondition(types.RaycastHit{DX: 1, Distance: 10}, Context{Self: "ghost"}, s)
	if !errors.Is(err, fault.ErrMissingReference) {
		t.Errorf("missing origin err = %v", err)
	}
}

func TestContextCooldownKey(t *testing.T) {
	ctx := Context{Self: "enemy_1", Other: "player"}
	tests := map[string]string{
		"dash":             "dash",
		"@self.attack":     "enemy_1.attack",
		"@self.hit.@other": "enemy_1.hit.player",
	}
	for id, want := range tests {
		if got := ctx.CooldownKey(id); got != want {
			t.Errorf("CooldownKey(%q) = %q, want %q", id, got, want)
		}
	}
}

package loader

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/nathoo/ecacore/types"
)

func TestLoad_Platformer(t *testing.T) {
	defs, err := Load("testdata/platformer")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Scene metadata.
	if defs.Scene.Title != "Test Platformer" {
		t.Errorf("Title = %q", defs.Scene.Title)
	}
	if defs.Scene.Author != "Tester" || defs.Scene.Version != "1.0" {
		t.Errorf("Scene = %+v", defs.Scene)
	}

	// Globals keep declaration order and get ids.
	if len(defs.Globals) != 2 {
		t.Fatalf("expected 2 globals, got %d", len(defs.Globals))
	}
	g := defs.Globals[0]
	if g.Name != "questStep" || g.Type != types.VarFloat || g.Value != 0.0 || g.Scope != types.ScopeGlobal {
		t.Errorf("questStep = %+v", g)
	}
	if g.ID == "" {
		t.Error("global has no id")
	}
	if defs.Globals[1].Type != types.VarString || defs.Globals[1].Value != "meadow" {
		t.Errorf("zone = %+v", defs.Globals[1])
	}

	// Entities keep file order.
	if len(defs.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(defs.Entities))
	}
	player := defs.Entities[0]
	if player.Entity.ID != "player" || player.Entity.Kind != "player" {
		t.Errorf("player = %+v", player.Entity)
	}
	if player.Entity.Position != (types.Vec2{X: 10, Y: 20}) {
		t.Errorf("player position = %+v", player.Entity.Position)
	}
	if !player.Entity.Active {
		t.Error("entities default to active")
	}
	if strings.Join(player.Entity.Tags, ",") != "player,hero" {
		t.Errorf("player tags = %v", player.Entity.Tags)
	}
	if len(player.Presets) != 1 || player.Presets[0] != "player_platformer" {
		t.Errorf("player presets = %v", player.Presets)
	}

	wantVars := []struct {
		name  string
		typ   types.VarType
		value any
	}{
		{"score", types.VarFloat, 0.0},
		{"title", types.VarString, "squire"},
		{"armed", types.VarBool, false},
	}
	if len(player.Entity.Variables) != len(wantVars) {
		t.Fatalf("player vars = %+v", player.Entity.Variables)
	}
	for i, w := range wantVars {
		v := player.Entity.Variables[i]
		if v.Name != w.name || v.Type != w.typ || v.Value != w.value || v.Scope != types.ScopeEntity {
			t.Errorf("var %d = %+v, want %s %s %v", i, v, w.name, w.typ, w.value)
		}
	}

	// Entity-scoped rule.
	if len(player.Entity.Rules) != 1 {
		t.Fatalf("player rules = %d", len(player.Entity.Rules))
	}
	jump := player.Entity.Rules[0]
	if jump.ID != "hero_jump" || jump.Name != "Hero jump" || jump.Priority != 1 {
		t.Errorf("hero_jump = %+v", jump)
	}
	if jump.Trigger != (types.OnKeyDown{Key: "Space"}) {
		t.Errorf("trigger = %#v", jump.Trigger)
	}
	if len(jump.Conditions) != 1 || jump.Conditions[0] != (types.IsGrounded{}) {
		t.Errorf("conditions = %#v", jump.Conditions)
	}
	if len(jump.Actions) != 1 || jump.Actions[0] != (types.ApplyForce{FX: 0, FY: -500}) {
		t.Errorf("actions = %#v", jump.Actions)
	}

	coin := defs.Entities[1]
	if coin.Entity.Kind != "prop" {
		t.Errorf("coin kind = %q, want default prop", coin.Entity.Kind)
	}
	if len(coin.Entity.Variables) != 1 || coin.Entity.Variables[0].Value != 5.0 {
		t.Errorf("coin vars = %+v", coin.Entity.Variables)
	}
	pickup := coin.Entity.Rules[0]
	if pickup.Trigger != (types.OnCollision{WithTag: "player"}) {
		t.Errorf("pickup trigger = %#v", pickup.Trigger)
	}
	wantActs := []types.Action{
		types.Add{Variable: "score", Amount: 1, EntityID: "@other"},
		types.Destroy{},
		types.EmitSignal{Signal: "COIN_TAKEN"},
	}
	if len(pickup.Actions) != len(wantActs) {
		t.Fatalf("pickup actions = %#v", pickup.Actions)
	}
	for i, a := range wantActs {
		if pickup.Actions[i] != a {
			t.Errorf("pickup action %d = %#v, want %#v", i, pickup.Actions[i], a)
		}
	}

	// Unclaimed rules are scene rules, in declaration order.
	var sceneIDs []string
	for _, r := range defs.Rules {
		sceneIDs = append(sceneIDs, r.ID)
	}
	if strings.Join(sceneIDs, ",") != "quest_advance,intro,ring_bell" {
		t.Errorf("scene rules = %v", sceneIDs)
	}
	cmp, ok := defs.Rules[0].Conditions[0].(types.Compare)
	if !ok || cmp.Operator != types.OpLessThan || cmp.Value != 3.0 || cmp.Scope != types.ScopeGlobal {
		t.Errorf("quest_advance condition = %#v", defs.Rules[0].Conditions[0])
	}
	dialog, ok := defs.Rules[1].Actions[0].(types.ShowDialog)
	if !ok || dialog.Speaker != "Guide" || len(dialog.Choices) != 1 || dialog.Choices[0].Signal != "INTRO_DONE" {
		t.Errorf("intro action = %#v", defs.Rules[1].Actions[0])
	}

	// JSON preset.
	spinner, ok := defs.Presets["spinner"]
	if !ok {
		t.Fatal("preset 'spinner' not loaded")
	}
	if spinner.Label != "Spinner" || len(spinner.Variables) != 1 || spinner.Variables[0].Value != 90.0 {
		t.Errorf("spinner = %+v", spinner)
	}
	if len(spinner.Rules) != 1 {
		t.Fatalf("spinner rules = %+v", spinner.Rules)
	}
	sparkle := spinner.Rules[0]
	if sparkle.Priority != 2 || sparkle.Trigger != (types.OnTimer{IntervalMs: 500, Repeat: true}) {
		t.Errorf("sparkle = %+v", sparkle)
	}
	want := types.PlayEffect{PresetID: "sparkle", Y: -4, Scale: 1, EntityID: "@self"}
	if sparkle.Actions[0] != want {
		t.Errorf("sparkle action = %#v, want %#v", sparkle.Actions[0], want)
	}
}

func TestLoad_LogsWarnings(t *testing.T) {
	log, hook := test.NewNullLogger()

	if _, err := Load("testdata/platformer", WithLogger(logrus.NewEntry(log))); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	found := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, `unknown entity "bell"`) {
			found = true
			if e.Data["component"] != "loader" {
				t.Errorf("component = %v", e.Data["component"])
			}
		}
	}
	if !found {
		t.Error("expected a warning for the unknown bell entity")
	}
}

func TestLoad_InvalidContent(t *testing.T) {
	_, err := Load("testdata/invalid")
	if err == nil {
		t.Fatal("expected validation error")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	for _, want := range []string{
		"Scene.title is required",
		`duplicate variable "lives"`,
		`unknown trigger type "OnTeleport"`,
		`unknown operator "=~"`,
		`unknown action type "Explode"`,
		"timer interval must be positive",
		`duplicate rule id "dup"`,
		`undefined preset "no_such_preset"`,
		"broken.json",
	} {
		assertContains(t, ve.Errors, want)
	}
	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	if _, err := Load("testdata/nope"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoad_NoLuaFiles(t *testing.T) {
	_, err := Load("testdata/empty")
	if err == nil || !strings.Contains(err.Error(), "no .lua files") {
		t.Errorf("err = %v", err)
	}
}

func TestSortedLuaFiles(t *testing.T) {
	got := sortedLuaFiles([]string{"rules.lua", "entities.lua", "scene.lua"})
	if strings.Join(got, ",") != "scene.lua,entities.lua,rules.lua" {
		t.Errorf("got %v", got)
	}
}

func assertContains(t *testing.T, list []string, substr string) {
	t.Helper()
	for _, s := range list {
		if strings.Contains(s, substr) {
			return
		}
	}
	t.Errorf("expected an entry containing %q in:\n  %s", substr, strings.Join(list, "\n  "))
}

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nathoo/ecacore/engine"
	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/types"
)

// testDefs returns a small scene for CLI testing.
func testDefs() *state.Defs {
	return &state.Defs{
		Scene: types.SceneDef{
			Title:       "Test Scene",
			Version:     "1.0",
			Description: "A tiny platformer.",
		},
		Globals: []types.Variable{
			{Name: "coins", Type: types.VarFloat, Value: 0.0, Scope: types.ScopeGlobal},
		},
		Entities: []types.EntityDef{
			{Entity: types.Entity{
				ID:     "player",
				Kind:   "player",
				Active: true,
				Tags:   []string{"player"},
				Variables: []types.Variable{
					{Name: "hp", Type: types.VarFloat, Value: 100.0, Scope: types.ScopeEntity},
				},
				Rules: []types.Rule{{
					ID:         "jump",
					Trigger:    types.OnKeyDown{Key: "Space"},
					Conditions: []types.Condition{types.IsGrounded{}},
					Actions:    []types.Action{types.ApplyForce{FX: 0, FY: -500}},
				}},
			}},
			{Entity: types.Entity{ID: "coin", Active: true, Tags: []string{"pickup"}}},
		},
		Rules: []types.Rule{{
			ID:      "collect",
			Trigger: types.OnCollision{WithTag: "pickup"},
			Actions: []types.Action{
				types.Add{Variable: "coins", Amount: 1, Scope: types.ScopeGlobal},
				types.Destroy{EntityID: "@other"},
				types.EmitSignal{Signal: "COLLECTED"},
			},
		}},
	}
}

func newTestCLI(t *testing.T, input string) (*CLI, *bytes.Buffer) {
	t.Helper()
	defs := testDefs()
	eng := engine.New(defs)
	var out bytes.Buffer
	c := &CLI{
		Engine:  eng,
		Defs:    defs,
		In:      strings.NewReader(input),
		Out:     &out,
		SaveDir: t.TempDir(),
	}
	return c, &out
}

func TestCLI_Header(t *testing.T) {
	c, out := newTestCLI(t, "/quit\n")
	c.Run()

	output := out.String()
	if !strings.Contains(output, "Test Scene v1.0") {
		t.Error("expected scene title in output")
	}
	if !strings.Contains(output, "A tiny platformer.") {
		t.Error("expected scene description in output")
	}
	if !strings.Contains(output, "[Goodbye.]") {
		t.Error("expected goodbye on /quit")
	}
}

func TestCLI_JumpRequiresGround(t *testing.T) {
	c, out := newTestCLI(t, "down Space\ntick\nground player on\ndown Space\ntick\n/quit\n")
	c.Run()

	output := out.String()
	if !strings.Contains(output, "tick 1: 0 fired, 0 commands") {
		t.Errorf("expected no jump in the air:\n%s", output)
	}
	if !strings.Contains(output, "tick 2: 1 fired, 1 commands") {
		t.Errorf("expected jump on the ground:\n%s", output)
	}
	if !strings.Contains(output, "physics force player (0, -500) magnitude 500") {
		t.Errorf("expected force command:\n%s", output)
	}
}

func TestCLI_InputIsConsumedByOneTick(t *testing.T) {
	c, out := newTestCLI(t, "ground player on\ndown Space\ntick\ntick\n/quit\n")
	c.Run()

	if !strings.Contains(out.String(), "tick 2: 0 fired, 0 commands") {
		t.Errorf("key press leaked into the second tick:\n%s", out.String())
	}
}

func TestCLI_CollisionAndTrace(t *testing.T) {
	c, out := newTestCLI(t, "/trace\ncollide player coin\ntick 20\n/vars\n/quit\n")
	c.Run()

	output := out.String()
	for _, want := range []string{
		"lifecycle destroy coin",
		"[[trace] fired: collect]",
		"[[trace] signals: COLLECTED]",
		"coins (float) = 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
	if c.Engine.Session.Clock != 20 {
		t.Errorf("clock = %v, want 20", c.Engine.Session.Clock)
	}
}

func TestCLI_HostSignal(t *testing.T) {
	defs := testDefs()
	defs.Rules = append(defs.Rules, types.Rule{
		ID:      "on_done",
		Trigger: types.OnEventSignal{Signal: "DIALOG_DONE"},
		Actions: []types.Action{types.PlaySound{SoundID: "chime", Volume: 0.5}},
	})
	var out bytes.Buffer
	c := &CLI{
		Engine:  engine.New(defs),
		Defs:    defs,
		In:      strings.NewReader("signal DIALOG_DONE\ntick\n/quit\n"),
		Out:     &out,
		SaveDir: t.TempDir(),
	}
	c.Run()

	if !strings.Contains(out.String(), "sound chime volume 0.5") {
		t.Errorf("expected sound command:\n%s", out.String())
	}
}

func TestCLI_AxisTriggerAndDestroyed(t *testing.T) {
	defs := testDefs()
	defs.Rules = append(defs.Rules,
		types.Rule{
			ID:      "steer",
			Trigger: types.OnAxis{Axis: "horizontal"},
			Actions: []types.Action{types.PlaySound{SoundID: "steer", Volume: 1}},
		},
		types.Rule{
			ID:      "poof",
			Trigger: types.OnDestroy{},
			Actions: []types.Action{types.PlaySound{SoundID: "poof", Volume: 1}},
		},
	)
	defs.Entities[0].Entity.Rules = append(defs.Entities[0].Entity.Rules, types.Rule{
		ID:      "ding",
		Trigger: types.OnTriggerEnter{WithTag: "pickup"},
		Actions: []types.Action{types.PlaySound{SoundID: "ding", Volume: 1}},
	})
	var out bytes.Buffer
	c := &CLI{
		Engine: engine.New(defs),
		Defs:   defs,
		In: strings.NewReader("axis horizontal -0.8\ntrigger player coin\ntick\n" +
			"axis horizontal fast\nsize player 10 20\ndestroyed coin\ntick\n/quit\n"),
		Out:     &out,
		SaveDir: t.TempDir(),
	}
	c.Run()

	output := out.String()
	for _, want := range []string{
		"tick 1: 2 fired, 2 commands",
		"sound steer volume 1",
		"sound ding volume 1",
		"Bad axis value: fast",
		"tick 2: 1 fired, 1 commands",
		"sound poof volume 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
	if _, ok := state.Entity(c.Engine.Session, "coin"); ok {
		t.Error("destroyed coin should be removed from the session")
	}
	if p, _ := state.Entity(c.Engine.Session, "player"); p.Size != (types.Vec2{X: 10, Y: 20}) {
		t.Errorf("player size = %+v", p.Size)
	}
}

func TestCLI_HelpCommand(t *testing.T) {
	c, out := newTestCLI(t, "/help\n/quit\n")
	c.Run()

	output := out.String()
	for _, want := range []string{"/save", "/load", "/quit", "/vars", "collide"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in help output", want)
		}
	}
}

func TestCLI_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	defs := testDefs()
	var out bytes.Buffer
	c := &CLI{
		Engine:  engine.New(defs),
		Defs:    defs,
		In:      strings.NewReader("collide player coin\ntick\n/save slot1\n/quit\n"),
		Out:     &out,
		SaveDir: dir,
	}
	c.Run()
	if !strings.Contains(out.String(), "Session saved to slot1.") {
		t.Fatalf("save failed:\n%s", out.String())
	}

	// Fresh engine, load the save.
	defs2 := testDefs()
	var out2 bytes.Buffer
	c2 := &CLI{
		Engine:  engine.New(defs2),
		Defs:    defs2,
		In:      strings.NewReader("/load slot1\n/vars\n/quit\n"),
		Out:     &out2,
		SaveDir: dir,
	}
	c2.Run()

	output := out2.String()
	if !strings.Contains(output, "Session loaded from slot1 (tick 1).") {
		t.Errorf("expected load message:\n%s", output)
	}
	if !strings.Contains(output, "coins (float) = 1") {
		t.Errorf("expected restored globals:\n%s", output)
	}
}

func TestCLI_LoadMissing(t *testing.T) {
	c, out := newTestCLI(t, "/load nothing\n/quit\n")
	c.Run()

	if !strings.Contains(out.String(), "Load failed") {
		t.Error("expected load failure message")
	}
}

func TestCLI_RulesAndPresets(t *testing.T) {
	c, out := newTestCLI(t, "/rules\n/presets\n/preset coin enemy_chaser\n/rules\n/preset coin jetpack\n/quit\n")
	c.Run()

	output := out.String()
	for _, want := range []string{
		"scene/collect [0] OnCollision",
		"player/jump [0] OnKeyDown",
		"player_platformer: ",
		"Applied enemy_chaser to coin",
		"coin/contact_damage [0] OnCollision from enemy_chaser",
		"Preset failed",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestCLI_BadInput(t *testing.T) {
	c, out := newTestCLI(t, "fly away\n/nope\ntick soon\nground ghost on\n/quit\n")
	c.Run()

	output := out.String()
	for _, want := range []string{
		"Unknown input: fly away",
		"Unknown command: /nope",
		"Bad tick length: soon",
		`No entity "ghost".`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestCLI_CommentsAndEcho(t *testing.T) {
	c, out := newTestCLI(t, "# a comment\ntick\n/quit\n")
	c.EchoInput = true
	c.Run()

	output := out.String()
	if strings.Contains(output, "a comment") {
		t.Error("comment lines should be skipped")
	}
	if !strings.Contains(output, "> tick\n") {
		t.Errorf("expected echoed input:\n%s", output)
	}
}

func TestFormatCommand(t *testing.T) {
	tests := []struct {
		cmd  types.Command
		want string
	}{
		{types.PhysicsCommand{Kind: types.PhysicsMove, EntityID: "p", DX: 1, DY: 0, Magnitude: 200}, "physics move p (1, 0) magnitude 200"},
		{types.DialogCommand{DialogID: "hi", Speaker: "Elder", Choices: []types.Choice{{Text: "Ok", Signal: "OK"}}}, "dialog hi by Elder [Ok -> OK]"},
		{types.EffectCommand{PresetID: "spark", X: 1.5, Y: 2, Scale: 1}, "effect spark at (1.5, 2) scale 1"},
		{types.SoundCommand{SoundID: "music", Volume: 0.8, Loop: true}, "sound music volume 0.8 loop"},
		{types.LifecycleCommand{Kind: types.LifecycleSetActive, EntityID: "door", Active: false}, "lifecycle set_active door false"},
		{types.LifecycleCommand{Kind: types.LifecycleDestroy, EntityID: "coin"}, "lifecycle destroy coin"},
		{types.LifecycleCommand{Kind: types.LifecycleDestroy, EntityID: "coin", DelayMs: 250}, "lifecycle destroy coin after 250ms"},
		{types.SoundCommand{SoundID: "music", Stop: true}, "sound music stop"},
		{types.SpawnCommand{TemplateID: "bullet", X: 3, Y: 4, UsePool: true, PoolSize: 8}, "spawn bullet at (3, 4) pool 8"},
		{types.RenderCommand{Kind: types.RenderAnimation, EntityID: "p", Key: "run", Loop: true}, "render animation p run loop"},
		{types.RenderCommand{Kind: types.RenderSprite, EntityID: "p", Key: "idle"}, "render sprite p idle"},
		{types.SceneCommand{SceneName: "caves", Transition: types.TransitionFade, Data: map[string]any{"from": "forest"}}, "scene caves transition Fade data map[from:forest]"},
	}
	for _, tt := range tests {
		if got := FormatCommand(tt.cmd); got != tt.want {
			t.Errorf("FormatCommand(%T) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

// Package cli provides a line-oriented driver for the rule engine: input
// lines queue host events, "tick" runs one engine pass, and meta-commands
// inspect or snapshot the session. It reads from stdin or a script file.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nathoo/ecacore/engine"
	"github.com/nathoo/ecacore/engine/save"
	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/types"
)

// DefaultTickMs is the elapsed time of a bare "tick".
const DefaultTickMs = 1000.0 / 60

// CLI handles terminal interaction with the host operator.
type CLI struct {
	Engine    *engine.Engine
	Defs      *state.Defs
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	Trace     bool
	EchoInput bool    // echo each input line after the prompt (for script playback)
	TickMs    float64 // elapsed time of a bare "tick"; 0 means DefaultTickMs
	pending   types.TickInput
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine, defs *state.Defs) *CLI {
	home, _ := os.UserHomeDir()
	saveDir := filepath.Join(home, ".ecacore", "saves")
	return &CLI{
		Engine:  eng,
		Defs:    defs,
		In:      os.Stdin,
		Out:     os.Stdout,
		SaveDir: saveDir,
	}
}

// Run shows the scene header, then loops: prompt → input → dispatch →
// output, until EOF or /quit.
func (c *CLI) Run() {
	if t := c.Defs.Scene.Title; t != "" {
		if v := c.Defs.Scene.Version; v != "" {
			t += " v" + v
		}
		c.printLine(t)
	}
	if c.Defs.Scene.Description != "" {
		c.printLine(c.Defs.Scene.Description)
	}
	c.printLine("")

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return // /quit
			}
			continue
		}

		c.handleInput(input)
	}
}

// handleInput queues one host event or runs a tick.
func (c *CLI) handleInput(input string) {
	parts := strings.Fields(input)
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch {
	case (cmd == "tick" || cmd == "t") && len(args) <= 1:
		ms := c.TickMs
		if ms <= 0 {
			ms = DefaultTickMs
		}
		if len(args) == 1 {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil || v < 0 {
				c.printSystem(fmt.Sprintf("Bad tick length: %s", args[0]))
				return
			}
			ms = v
		}
		c.runTick(ms)

	case cmd == "down" && len(args) == 1:
		c.pending.KeysDown = append(c.pending.KeysDown, args[0])

	case cmd == "up" && len(args) == 1:
		c.pending.KeysUp = append(c.pending.KeysUp, args[0])

	case cmd == "click" && len(args) <= 1:
		button := 0
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				c.printSystem(fmt.Sprintf("Bad button: %s", args[0]))
				return
			}
			button = n
		}
		c.pending.Clicks = append(c.pending.Clicks, button)

	case cmd == "collide" && len(args) == 2:
		c.pending.Collisions = append(c.pending.Collisions,
			types.Collision{A: args[0], B: args[1], Phase: types.CollisionEnter})

	case cmd == "separate" && len(args) == 2:
		c.pending.Collisions = append(c.pending.Collisions,
			types.Collision{A: args[0], B: args[1], Phase: types.CollisionExit})

	case cmd == "trigger" && len(args) == 2:
		c.pending.Collisions = append(c.pending.Collisions,
			types.Collision{A: args[0], B: args[1], Phase: types.CollisionTrigger})

	case cmd == "axis" && len(args) == 2:
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			c.printSystem(fmt.Sprintf("Bad axis value: %s", args[1]))
			return
		}
		if c.pending.Axes == nil {
			c.pending.Axes = map[string]float64{}
		}
		c.pending.Axes[args[0]] = v

	case cmd == "destroyed" && len(args) == 1:
		c.pending.Destroyed = append(c.pending.Destroyed, args[0])

	case cmd == "signal" && len(args) == 1:
		c.pending.Signals = append(c.pending.Signals, args[0])

	case cmd == "ground" && len(args) == 2:
		e, ok := c.entity(args[0])
		if !ok {
			return
		}
		switch strings.ToLower(args[1]) {
		case "on", "true", "yes":
			e.Grounded = true
		case "off", "false", "no":
			e.Grounded = false
		default:
			c.printSystem(fmt.Sprintf("Expected on or off, got %s", args[1]))
		}

	case cmd == "pos" && len(args) == 3:
		e, ok := c.entity(args[0])
		if !ok {
			return
		}
		x, errX := strconv.ParseFloat(args[1], 64)
		y, errY := strconv.ParseFloat(args[2], 64)
		if errX != nil || errY != nil {
			c.printSystem(fmt.Sprintf("Bad position: %s %s", args[1], args[2]))
			return
		}
		e.Position = types.Vec2{X: x, Y: y}

	case cmd == "size" && len(args) == 3:
		e, ok := c.entity(args[0])
		if !ok {
			return
		}
		w, errW := strconv.ParseFloat(args[1], 64)
		h, errH := strconv.ParseFloat(args[2], 64)
		if errW != nil || errH != nil || w < 0 || h < 0 {
			c.printSystem(fmt.Sprintf("Bad size: %s %s", args[1], args[2]))
			return
		}
		e.Size = types.Vec2{X: w, Y: h}

	default:
		c.printSystem(fmt.Sprintf("Unknown input: %s. Type /help for available commands.", input))
	}
}

func (c *CLI) entity(id string) (*types.Entity, bool) {
	e, ok := state.Entity(c.Engine.Session, id)
	if !ok {
		c.printSystem(fmt.Sprintf("No entity %q.", id))
	}
	return e, ok
}

// runTick hands the queued input to the engine and prints the result.
func (c *CLI) runTick(ms float64) {
	in := c.pending
	in.ElapsedMs = ms
	c.pending = types.TickInput{}

	res := c.Engine.Tick(in)
	c.printResult(res)
	if c.Trace {
		c.printTrace(res)
	}
}

// handleMeta dispatches meta-commands. Returns true if the session should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	args := parts[1:]
	var arg string
	if len(args) > 0 {
		arg = args[0]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(arg)

	case "/help":
		c.cmdHelp()

	case "/vars":
		c.cmdVars(arg)

	case "/rules":
		c.cmdRules()

	case "/presets":
		c.cmdPresets()

	case "/preset":
		if len(args) != 2 {
			c.printSystem("Usage: /preset <entity> <preset>")
			break
		}
		c.cmdApplyPreset(args[0], args[1])

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdSave(name string) {
	if name == "" {
		name = "quicksave"
	}

	data, err := save.Save(c.Engine.Session, c.Defs)
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	path := filepath.Join(c.SaveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	c.printSystem(fmt.Sprintf("Session saved to %s.", name))
}

func (c *CLI) cmdLoad(name string) {
	if name == "" {
		name = "quicksave"
	}

	path := filepath.Join(c.SaveDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	sd, err := save.Load(data)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	skipped := save.ApplySave(c.Engine.Session, sd)
	c.printSystem(fmt.Sprintf("Session loaded from %s (tick %d).", name, sd.Tick))
	if len(skipped) > 0 {
		c.printSystem(fmt.Sprintf("Skipped unknown entities: %s", strings.Join(skipped, ", ")))
	}
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /vars [entity]            Show global or entity variables",
		"  /rules                    List registered rules in execution order",
		"  /presets                  List available presets",
		"  /preset <entity> <preset> Apply a preset to an entity",
		"  /save [name]              Save session (default: quicksave)",
		"  /load [name]              Load session (default: quicksave)",
		"  /trace                    Toggle fired-rule trace output",
		"  /help                     Show this help",
		"  /quit                     Exit",
		"",
		"Input (queued for the next tick):",
		"  down <key> / up <key>     Key pressed / released",
		"  click [button]            Mouse click (0 left, 1 middle, 2 right)",
		"  collide <a> <b>           Collision started",
		"  separate <a> <b>          Collision ended",
		"  trigger <a> <b>           Entered a trigger area",
		"  axis <name> <value>       Analog axis value for the next tick",
		"  destroyed <entity>        Host destroyed an entity",
		"  signal <name>             Host signal, visible in the next tick",
		"  ground <entity> on|off    Set grounded state",
		"  pos <entity> <x> <y>      Set position",
		"  size <entity> <w> <h>     Set bounding box size",
		"  tick [ms] (t)             Run one engine pass",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdVars(entityID string) {
	vars := c.Engine.Session.Globals
	label := "Globals"
	if entityID != "" {
		e, ok := c.entity(entityID)
		if !ok {
			return
		}
		vars = e.Variables
		label = entityID
	}
	if len(vars) == 0 {
		c.printSystem(fmt.Sprintf("%s: no variables", label))
		return
	}
	c.printSystem(label + ":")
	for _, v := range vars {
		c.printLine(fmt.Sprintf("  %s (%s) = %v", v.Name, v.Type, v.Value))
	}
}

func (c *CLI) cmdRules() {
	regs := c.Engine.Rules()
	if len(regs) == 0 {
		c.printSystem("No rules registered.")
		return
	}
	for _, r := range regs {
		owner := r.Owner
		if owner == "" {
			owner = "scene"
		}
		line := fmt.Sprintf("  %s/%s [%d] %s", owner, r.Rule.ID, r.Rule.Priority, r.Rule.Trigger.TriggerKind())
		if r.Rule.Origin != "" {
			line += " from " + r.Rule.Origin
		}
		if r.Rule.Disabled {
			line += " (disabled)"
		}
		c.printLine(line)
	}
}

func (c *CLI) cmdPresets() {
	for _, p := range c.Engine.Presets.Available() {
		line := fmt.Sprintf("  %s: %s", p.ID, p.Label)
		if p.Description != "" {
			line += ". " + p.Description
		}
		c.printLine(line)
	}
}

func (c *CLI) cmdApplyPreset(entityID, presetID string) {
	e, err := c.Engine.ApplyPreset(entityID, presetID)
	if err != nil {
		c.printSystem(fmt.Sprintf("Preset failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Applied %s to %s (%d variables, %d rules).",
		presetID, e.ID, len(e.Variables), len(e.Rules)))
}

// FormatCommand renders one engine command as a single log line.
func FormatCommand(cmd types.Command) string {
	switch v := cmd.(type) {
	case types.PhysicsCommand:
		return fmt.Sprintf("physics %s %s (%g, %g) magnitude %g", v.Kind, v.EntityID, v.DX, v.DY, v.Magnitude)
	case types.SpawnCommand:
		s := fmt.Sprintf("spawn %s at (%g, %g)", v.TemplateID, v.X, v.Y)
		if v.UsePool {
			s += fmt.Sprintf(" pool %d", v.PoolSize)
		}
		return s
	case types.RenderCommand:
		s := fmt.Sprintf("render %s %s %s", v.Kind, v.EntityID, v.Key)
		if v.Loop {
			s += " loop"
		}
		return s
	case types.SceneCommand:
		s := fmt.Sprintf("scene %s transition %s", v.SceneName, v.Transition)
		if len(v.Data) > 0 {
			s += fmt.Sprintf(" data %v", v.Data)
		}
		return s
	case types.DialogCommand:
		s := "dialog " + v.DialogID
		if v.Speaker != "" {
			s += " by " + v.Speaker
		}
		for _, ch := range v.Choices {
			s += fmt.Sprintf(" [%s -> %s]", ch.Text, ch.Signal)
		}
		return s
	case types.EffectCommand:
		return fmt.Sprintf("effect %s at (%g, %g) scale %g", v.PresetID, v.X, v.Y, v.Scale)
	case types.SoundCommand:
		if v.Stop {
			return "sound " + v.SoundID + " stop"
		}
		s := fmt.Sprintf("sound %s volume %g", v.SoundID, v.Volume)
		if v.Loop {
			s += " loop"
		}
		return s
	case types.LifecycleCommand:
		if v.Kind == types.LifecycleSetActive {
			return fmt.Sprintf("lifecycle %s %s %t", v.Kind, v.EntityID, v.Active)
		}
		if v.DelayMs > 0 {
			return fmt.Sprintf("lifecycle %s %s after %gms", v.Kind, v.EntityID, v.DelayMs)
		}
		return fmt.Sprintf("lifecycle %s %s", v.Kind, v.EntityID)
	default:
		return fmt.Sprintf("%s %+v", cmd.CommandKind(), cmd)
	}
}

func (c *CLI) printResult(res types.TickResult) {
	c.printLine(fmt.Sprintf("tick %d: %d fired, %d commands", res.Tick, len(res.Fired), len(res.Commands)))
	for _, cmd := range res.Commands {
		c.printLine("  " + FormatCommand(cmd))
	}
	for _, err := range res.Faults {
		c.printSystem("fault: " + err.Error())
	}
}

func (c *CLI) printTrace(res types.TickResult) {
	if len(res.Fired) > 0 {
		c.printSystem(fmt.Sprintf("[trace] fired: %s", strings.Join(res.Fired, ", ")))
	}
	if len(res.Signals) > 0 {
		c.printSystem(fmt.Sprintf("[trace] signals: %s", strings.Join(res.Signals, ", ")))
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}

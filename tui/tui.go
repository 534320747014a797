package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/ecacore/cli"
	"github.com/nathoo/ecacore/engine"
	"github.com/nathoo/ecacore/engine/save"
	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/types"
)

// DefaultTickInterval is the tick period when Options leaves it unset.
const DefaultTickInterval = time.Second / 30

// Options configures the live runner.
type Options struct {
	TickInterval time.Duration
	SaveDir      string
	Trace        bool
}

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed operator input
	isSystem bool // true for meta-command output
}

// Model is the Bubble Tea model for the live runner.
type Model struct {
	engine *engine.Engine
	defs   *state.Defs

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated log lines (unstyled, for re-wrapping)

	interval time.Duration
	pressed  []string // key presses since the last tick
	held     []string // keys sent as down in the last tick
	signals  []string // host signals for the next tick
	dialog   *types.DialogCommand
	selected string

	width       int
	height      int
	ready       bool
	trace       bool
	paused      bool
	commandMode bool
	quitting    bool
	saveDir     string
}

// tickMsg is the external tick source.
type tickMsg time.Time

// outputMsg carries log lines into the Update loop.
type outputMsg struct {
	input    string   // echoed operator input
	lines    []string // output lines
	isSystem bool     // true for meta-command output
}

// New creates a TUI model wired to the given engine.
func New(eng *engine.Engine, defs *state.Defs, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.SaveDir == "" {
		home, _ := os.UserHomeDir()
		opts.SaveDir = filepath.Join(home, ".ecacore", "saves")
	}
	return Model{
		engine:   eng,
		defs:     defs,
		input:    ti,
		history:  NewHistory(100),
		interval: opts.TickInterval,
		trace:    opts.Trace,
		saveDir:  opts.SaveDir,
		selected: defaultSelection(eng.Session),
	}
}

// defaultSelection picks the first player entity, else the first entity.
func defaultSelection(s *types.Session) string {
	for _, e := range state.Entities(s) {
		if e.Kind == "player" {
			return e.ID
		}
	}
	if len(s.Order) > 0 {
		return s.Order[0]
	}
	return ""
}

// Run starts the Bubble Tea program.
func Run(eng *engine.Engine, defs *state.Defs, opts Options) error {
	p := tea.NewProgram(New(eng, defs, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init starts the tick source and prints the scene header.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.initialOutput())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) initialOutput() tea.Cmd {
	return func() tea.Msg {
		title := m.defs.Scene.Title
		if m.defs.Scene.Version != "" {
			title += " v" + m.defs.Scene.Version
		}
		if m.defs.Scene.Author != "" {
			title += " by " + m.defs.Scene.Author
		}
		lines := []string{title}
		if m.defs.Scene.Description != "" {
			lines = append(lines, m.defs.Scene.Description)
		}
		lines = append(lines, "[Keys go to the scene. Press / for commands, ctrl+c to quit.]")
		return outputMsg{lines: lines}
	}
}

// Update handles messages (ticks, key presses, window resize, output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()
		return m, nil

	case tickMsg:
		if !m.paused {
			m.step()
		}
		return m, m.tick()

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.commandMode {
			return m.updateCommand(msg)
		}
		return m.updatePlay(msg)

	case outputMsg:
		m = m.appendOutput(msg)
		return m, nil
	}

	if m.commandMode {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// updatePlay routes key presses to the scene.
func (m Model) updatePlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "/", ":":
		m.commandMode = true
		m.input.SetValue("/")
		m.input.CursorEnd()
		return m, m.input.Focus()

	case "pgup", "pgdown":
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		return m, vpCmd
	}

	if m.dialog != nil {
		if msg.Type == tea.KeyEsc {
			m.dialog = nil
			return m, nil
		}
		if n, ok := choiceIndex(msg, len(m.dialog.Choices)); ok {
			m = m.choose(n)
			return m, nil
		}
	}

	if name := keyName(msg); name != "" {
		m.press(name)
	}
	return m, nil
}

// updateCommand edits and submits the command line.
func (m Model) updateCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.leaveCommandMode()
		return m, nil

	case tea.KeyEnter:
		return m.handleEnter()

	case tea.KeyUp:
		if prev, ok := m.history.Prev(); ok {
			m.input.SetValue(prev)
			m.input.CursorEnd()
		}
		return m, nil

	case tea.KeyDown:
		if next, ok := m.history.Next(); ok {
			m.input.SetValue(next)
			m.input.CursorEnd()
		} else {
			m.input.SetValue("/")
			m.input.CursorEnd()
			m.history.ResetCursor()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) leaveCommandMode() {
	m.commandMode = false
	m.input.SetValue("")
	m.input.Blur()
	m.history.ResetCursor()
}

// keyName maps a terminal key to the key names rules are written against.
// Letters are upper-cased; unsupported keys map to "".
func keyName(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeySpace:
		return "Space"
	case tea.KeyUp:
		return "ArrowUp"
	case tea.KeyDown:
		return "ArrowDown"
	case tea.KeyLeft:
		return "ArrowLeft"
	case tea.KeyRight:
		return "ArrowRight"
	case tea.KeyEnter:
		return "Enter"
	case tea.KeyTab:
		return "Tab"
	case tea.KeyEsc:
		return "Escape"
	case tea.KeyRunes:
		if len(msg.Runes) != 1 || msg.Alt {
			return ""
		}
		if msg.Runes[0] == ' ' {
			return "Space"
		}
		return strings.ToUpper(string(msg.Runes[0]))
	}
	return ""
}

// choiceIndex reads a 1-based digit key as a 0-based choice index.
func choiceIndex(msg tea.KeyMsg, n int) (int, bool) {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return 0, false
	}
	i := int(msg.Runes[0] - '1')
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// press queues a key for the next tick. Repeats within one tick collapse.
func (m *Model) press(name string) {
	for _, k := range m.pressed {
		if k == name {
			return
		}
	}
	m.pressed = append(m.pressed, name)
}

// choose answers the open dialog, posting the choice signal next tick.
func (m Model) choose(i int) Model {
	ch := m.dialog.Choices[i]
	m.dialog = nil
	if ch.Signal != "" {
		m.signals = append(m.signals, ch.Signal)
	}
	return m.appendOutput(outputMsg{lines: []string{fmt.Sprintf("chose %q", ch.Text)}, isSystem: true})
}

// step runs one engine pass. Keys pressed since the last tick are sent as
// down; keys sent last tick and not pressed again are released.
func (m *Model) step() {
	var released []string
	for _, k := range m.held {
		if !contains(m.pressed, k) {
			released = append(released, k)
		}
	}
	in := types.TickInput{
		KeysDown:  m.pressed,
		KeysUp:    released,
		ElapsedMs: float64(m.interval) / float64(time.Millisecond),
		Signals:   m.signals,
	}
	m.held, m.pressed, m.signals = m.pressed, nil, nil

	res := m.engine.Tick(in)
	for _, c := range res.Commands {
		if d, ok := c.(types.DialogCommand); ok && len(d.Choices) > 0 {
			m.dialog = &d
		}
	}
	if lines := m.formatResult(res); len(lines) > 0 {
		*m = m.appendOutput(outputMsg{lines: lines})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// formatResult renders a tick. Quiet ticks produce no lines.
func (m *Model) formatResult(res types.TickResult) []string {
	traced := m.trace && (len(res.Fired) > 0 || len(res.Signals) > 0)
	if len(res.Commands) == 0 && len(res.Faults) == 0 && !traced {
		return nil
	}
	lines := []string{fmt.Sprintf("tick %d (%.0fms)", res.Tick, m.engine.Session.Clock)}
	for _, c := range res.Commands {
		lines = append(lines, "  "+cli.FormatCommand(c))
		if d, ok := c.(types.DialogCommand); ok {
			for i, ch := range d.Choices {
				lines = append(lines, fmt.Sprintf("    %d) %s", i+1, ch.Text))
			}
		}
	}
	for _, err := range res.Faults {
		lines = append(lines, "  fault: "+err.Error())
	}
	if traced {
		if len(res.Fired) > 0 {
			lines = append(lines, "  [trace] fired: "+strings.Join(res.Fired, ", "))
		}
		if len(res.Signals) > 0 {
			lines = append(lines, "  [trace] signals: "+strings.Join(res.Signals, ", "))
		}
	}
	return lines
}

// handleEnter processes the submitted command line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.leaveCommandMode()

	if input == "" || input == "/" {
		return m, nil
	}
	if !strings.HasPrefix(input, "/") {
		input = "/" + input
	}

	m.history.Push(input)

	output, quit := m.handleMeta(input)
	m = m.appendOutput(outputMsg{input: input, lines: output, isSystem: true})
	if quit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// appendOutput adds lines to the log and refreshes the viewport.
func (m Model) appendOutput(msg outputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "> " + msg.input, isInput: true})
	}
	for _, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}
	m.refreshViewport()
	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, styleOperatorInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries. Continuation lines keep the first line's indentation.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	indent := text[:len(text)-len(strings.TrimLeft(text, " "))]
	var result strings.Builder
	result.WriteString(indent)
	lineLen := len(indent)

	for i, word := range strings.Fields(text) {
		wLen := len(word)
		switch {
		case i == 0:
			result.WriteString(word)
			lineLen += wLen
		case lineLen+1+wLen > width:
			result.WriteString("\n")
			result.WriteString(indent)
			result.WriteString(word)
			lineLen = len(indent) + wLen
		default:
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input or hint.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	bottom := m.input.View()
	if !m.commandMode {
		hint := " / commands · ctrl+c quit"
		if m.dialog != nil {
			hint = fmt.Sprintf(" 1-%d choose · esc dismiss ·%s", len(m.dialog.Choices), hint)
		}
		bottom = styleSystem.Render(hint)
	}
	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + bottom
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	args := parts[1:]
	var arg string
	if len(args) > 0 {
		arg = args[0]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/save":
		return m.cmdSave(arg), false

	case "/load":
		return m.cmdLoad(arg), false

	case "/help":
		return m.cmdHelp(), false

	case "/vars":
		return m.cmdVars(arg), false

	case "/rules":
		return m.cmdRules(), false

	case "/presets":
		var out []string
		for _, p := range m.engine.Presets.Available() {
			out = append(out, fmt.Sprintf("%s: %s", p.ID, p.Label))
		}
		return out, false

	case "/preset":
		if len(args) != 2 {
			return []string{"Usage: /preset <entity> <preset>"}, false
		}
		e, err := m.engine.ApplyPreset(args[0], args[1])
		if err != nil {
			return []string{fmt.Sprintf("Preset failed: %v", err)}, false
		}
		return []string{fmt.Sprintf("Applied %s to %s (%d rules).", args[1], e.ID, len(e.Rules))}, false

	case "/select":
		if _, ok := state.Entity(m.engine.Session, arg); !ok {
			return []string{fmt.Sprintf("No entity %q.", arg)}, false
		}
		m.selected = arg
		return []string{"Selected " + arg + "."}, false

	case "/signal":
		if arg == "" {
			return []string{"Usage: /signal <name>"}, false
		}
		m.signals = append(m.signals, arg)
		return []string{"Signal " + arg + " queued."}, false

	case "/pause":
		m.paused = !m.paused
		if m.paused {
			return []string{"Paused."}, false
		}
		return []string{"Running."}, false

	case "/step":
		if !m.paused {
			return []string{"/step only works while paused."}, false
		}
		m.step()
		return []string{fmt.Sprintf("Stepped to tick %d.", m.engine.Session.Tick)}, false

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdSave(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	data, err := save.Save(m.engine.Session, m.defs)
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	if err := os.MkdirAll(m.saveDir, 0o755); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	path := filepath.Join(m.saveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	return []string{fmt.Sprintf("Session saved to %s.", name)}
}

func (m *Model) cmdLoad(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	path := filepath.Join(m.saveDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	sd, err := save.Load(data)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	skipped := save.ApplySave(m.engine.Session, sd)
	output := []string{fmt.Sprintf("Session loaded from %s (tick %d).", name, sd.Tick)}
	if len(skipped) > 0 {
		output = append(output, "Skipped unknown entities: "+strings.Join(skipped, ", "))
	}
	return output
}

func (m *Model) cmdHelp() []string {
	return []string{
		"Commands:",
		"  /vars [entity]             Show global or entity variables",
		"  /select <entity>           Show an entity in the status bar",
		"  /rules                     List rules in execution order",
		"  /presets                   List available presets",
		"  /preset <entity> <preset>  Apply a preset",
		"  /signal <name>             Post a host signal",
		"  /pause, /step              Pause ticking, step one tick",
		"  /save [name], /load [name] Snapshot the session",
		"  /trace                     Toggle fired-rule trace",
		"  /quit                      Exit",
		"",
		"Outside command mode every key goes to the scene; arrows are",
		"ArrowUp/Down/Left/Right, space is Space, letters are upper-case.",
		"PgUp/PgDn scroll the log.",
	}
}

func (m *Model) cmdVars(entityID string) []string {
	vars := m.engine.Session.Globals
	if entityID != "" {
		e, ok := state.Entity(m.engine.Session, entityID)
		if !ok {
			return []string{fmt.Sprintf("No entity %q.", entityID)}
		}
		vars = e.Variables
	}
	if len(vars) == 0 {
		return []string{"No variables."}
	}
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, fmt.Sprintf("%s (%s) = %v", v.Name, v.Type, v.Value))
	}
	return out
}

func (m *Model) cmdRules() []string {
	var out []string
	for _, r := range m.engine.Rules() {
		owner := r.Owner
		if owner == "" {
			owner = "scene"
		}
		out = append(out, fmt.Sprintf("%s/%s [%d] %s", owner, r.Rule.ID, r.Rule.Priority, r.Rule.Trigger.TriggerKind()))
	}
	if len(out) == 0 {
		return []string{"No rules registered."}
	}
	return out
}

// viewportKeyMap returns a viewport keymap with only paging enabled; every
// other key belongs to the scene.
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithDisabled()),
		HalfPageUp:   key.NewBinding(key.WithDisabled()),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}

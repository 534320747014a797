package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/ecacore/engine/state"
)

// renderStatusBar produces a full-width inverted status line showing the
// scene, tick and clock on the left and the selected entity's variables on
// the right. Variables are dropped from the end until the line fits.
func (m Model) renderStatusBar() string {
	s := m.engine.Session

	mode := ""
	if m.paused {
		mode = " PAUSED |"
	}
	left := fmt.Sprintf("%s %s | tick %d | %.0fms", mode, m.defs.Scene.Title, s.Tick, s.Clock)

	var vars []string
	if e, ok := state.Entity(s, m.selected); ok {
		for _, v := range e.Variables {
			vars = append(vars, fmt.Sprintf("%s=%v", v.Name, v.Value))
		}
	}

	right := ""
	for n := len(vars); n >= 0; n-- {
		candidate := m.selected + " "
		if n > 0 {
			candidate += strings.Join(vars[:n], " ") + " "
		}
		if n < len(vars) {
			candidate += "… "
		}
		if m.selected == "" {
			candidate = ""
		}
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width || n == 0 {
			right = candidate
			break
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	style := styleStatusBar
	if m.paused {
		style = stylePaused
	}
	return style.Width(m.width).Render(bar)
}

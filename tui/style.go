package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	stylePaused = lipgloss.NewStyle().
			Background(lipgloss.Color("130")).
			Foreground(lipgloss.Color("230")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleCommand = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleTickHeader = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleOperatorInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindCommand lineKind = iota
	kindTickHeader
	kindDialogue
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of log line this is.
// Leading indentation is ignored.
func classifyLine(line string) lineKind {
	s := strings.TrimLeft(line, " ")
	switch {
	case strings.HasPrefix(s, "[trace]"):
		return kindTrace
	case strings.HasPrefix(s, "fault:"):
		return kindError
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		return kindSystem
	case strings.HasPrefix(s, "tick "):
		return kindTickHeader
	case strings.HasPrefix(s, "dialog "), isChoiceLine(s):
		return kindDialogue
	default:
		return kindCommand
	}
}

// isChoiceLine matches a numbered dialog choice, "1) Yes".
func isChoiceLine(s string) bool {
	return len(s) > 2 && s[0] >= '1' && s[0] <= '9' && s[1] == ')'
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindTickHeader:
		return styleTickHeader.Render(line)
	case kindDialogue:
		return styleDialogue.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleCommand.Render(line)
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}

package cmd

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle lipgloss.Style
	ruleStyle   lipgloss.Style
)

func init() {
	headerStyle, ruleStyle = stylesFor(colorprofile.Detect(os.Stdout, os.Environ()))
}

// stylesFor picks colored styles on capable terminals and plain bold/faint
// ones elsewhere.
func stylesFor(p colorprofile.Profile) (header, rule lipgloss.Style) {
	switch p {
	case colorprofile.TrueColor, colorprofile.ANSI256:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
			lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	default:
		return lipgloss.NewStyle().Bold(true), lipgloss.NewStyle().Faint(true)
	}
}

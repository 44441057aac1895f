package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/DachengChen/asksql/contract"
)

// Palette inspired by standard terminal dark themes
var (
	ColorPrimary   = lipgloss.Color("255") // White
	ColorSecondary = lipgloss.Color("240") // Dark Gray
	ColorAccent    = lipgloss.Color("39")  // Blue / Cyan
	ColorSuccess   = lipgloss.Color("42")  // Green
	ColorError     = lipgloss.Color("196") // Red
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorDim       = lipgloss.Color("240")
	ColorMagenta   = lipgloss.Color("170")

	ColorHighlightBg = lipgloss.Color("236")
)

// Shared styles
var (
	StyleNormal = lipgloss.NewStyle().Foreground(ColorPrimary)
	StyleDimmed = lipgloss.NewStyle().Foreground(ColorDim)
	StyleBold   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary)

	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	StyleSection = lipgloss.NewStyle().Bold(true).Foreground(ColorMagenta)
	StylePrompt  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

	StyleTabActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			Padding(0, 1)

	StyleTabInactive = lipgloss.NewStyle().
				Foreground(ColorDim).
				Padding(0, 1)

	// Selected option or suggestion
	StyleListItemActive = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)

	StyleInputFocused = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)

	StyleStatusBar = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	StyleHelpKey = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorDim)

	// Message roles
	StyleUser      = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleAssistant = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleSystem    = lipgloss.NewStyle().Foreground(ColorWarning)

	StyleSQL = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Background(ColorHighlightBg).
			Padding(0, 1)
)

// ProvenanceStyle colours a filter or limit by who decided it.
func ProvenanceStyle(p contract.Provenance) lipgloss.Style {
	switch p {
	case contract.FromUser, contract.FromClarified:
		return StyleSuccess
	case contract.FromDefault:
		return StyleWarning
	case contract.FromInferred:
		return lipgloss.NewStyle().Foreground(ColorMagenta)
	}
	return StyleDimmed
}

// ValidationStyle colours a validation status.
func ValidationStyle(s contract.ValidationStatus) lipgloss.Style {
	switch s {
	case contract.ValidationPass:
		return StyleSuccess
	case contract.ValidationWarn:
		return StyleWarning
	case contract.ValidationFail:
		return StyleError
	}
	return StyleDimmed
}

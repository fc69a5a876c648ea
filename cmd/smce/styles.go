// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output, tuned for dark terminals.
const (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorError     = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for headers and the program name.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	// SubtitleStyle is for secondary text.
	SubtitleStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	// SuccessStyle is for completed steps.
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	// ErrorStyle is for failures.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	// WarningStyle is for warnings and non-zero exits.
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	// PathStyle is for file paths and segment names.
	PathStyle = lipgloss.NewStyle().Foreground(ColorHighlight)

	// stepStyle prefixes lifecycle lines such as "✓ built".
	stepStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorSuccess).PaddingRight(1)
)

// step renders a lifecycle line: a check mark, a verb, and a detail.
func step(verb, detail string) string {
	return stepStyle.Render("✓") + verb + " " + PathStyle.Render(detail)
}

// Package console renders plans, stage progress and run summaries for the CLI.
package console

import "github.com/charmbracelet/lipgloss"

// Theme centralizes all styling of the console output.
type Theme struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Dim    lipgloss.Style
	OK     lipgloss.Style
	Warn   lipgloss.Style
	Failed lipgloss.Style
	Box    lipgloss.Style
}

// NewTheme builds styles for r. Without color every style is plain text.
func NewTheme(r *lipgloss.Renderer, color bool) Theme {
	if !color {
		plain := r.NewStyle()
		return Theme{
			Title:  plain.Bold(true),
			Label:  plain,
			Value:  plain,
			Dim:    plain,
			OK:     plain,
			Warn:   plain,
			Failed: plain,
			Box:    r.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
		}
	}

	green := lipgloss.Color("#00D75F")
	return Theme{
		Title:  r.NewStyle().Bold(true).Foreground(green),
		Label:  r.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
		Value:  r.NewStyle().Foreground(lipgloss.Color("#FAFAFA")),
		Dim:    r.NewStyle().Foreground(lipgloss.Color("#888888")),
		OK:     r.NewStyle().Bold(true).Foreground(green),
		Warn:   r.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		Failed: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F")),
		Box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(green).
			Padding(0, 1),
	}
}

// Package tui is shellpack's terminal face: the banner, the section
// headers and status lines the pipeline emits through the StatusSink,
// and the prompts it asks through the Prompter. Everything here writes
// to the operator's terminal; the log file is pkg/logging's business.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("86")).
			Padding(0, 2)

	bannerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("86"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("82"))

	skipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// Banner renders the box printed before a run starts.
func Banner(release string) string {
	title := bannerTitleStyle.Render("shellpack " + release)
	subtitle := subtitleStyle.Render("shell environment backup and restore")
	return bannerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, subtitle))
}

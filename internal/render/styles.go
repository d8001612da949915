package render

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#FF6B6B")
	secondaryColor = lipgloss.Color("#4ECDC4")
	accentColor    = lipgloss.Color("#FFE66D")
	mutedColor     = lipgloss.Color("#6C757D")
	successColor   = lipgloss.Color("#2ECC71")
	errorColor     = lipgloss.Color("#E74C3C")
	fgColor        = lipgloss.Color("#EAEAEA")
)

// styles are bound to one lipgloss renderer so that color output follows
// the destination writer rather than stdout.
type styles struct {
	header     lipgloss.Style
	section    lipgloss.Style
	name       lipgloss.Style
	kind       lipgloss.Style
	routingKey lipgloss.Style
	muted      lipgloss.Style
	ok         lipgloss.Style
	bad        lipgloss.Style
	label      lipgloss.Style
	text       lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		header: r.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1),
		section: r.NewStyle().
			Bold(true).
			Foreground(secondaryColor),
		name: r.NewStyle().
			Bold(true).
			Foreground(fgColor),
		kind: r.NewStyle().
			Foreground(accentColor),
		routingKey: r.NewStyle().
			Foreground(secondaryColor).
			Italic(true),
		muted: r.NewStyle().
			Foreground(mutedColor),
		ok: r.NewStyle().
			Foreground(successColor).
			Bold(true),
		bad: r.NewStyle().
			Foreground(errorColor).
			Bold(true),
		label: r.NewStyle().
			Foreground(accentColor).
			Bold(true),
		text: r.NewStyle().
			Foreground(fgColor),
	}
}

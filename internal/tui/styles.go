package tui

import "github.com/charmbracelet/lipgloss"

// Palette follows the web marketplace: green for balance, blue for buying,
// purple for selling, yellow for solar.
var (
	Green  = lipgloss.Color("#16a34a")
	Blue   = lipgloss.Color("#2563eb")
	Purple = lipgloss.Color("#9333ea")
	Yellow = lipgloss.Color("#ca8a04")
	Red    = lipgloss.Color("#dc2626")
	Muted  = lipgloss.Color("#6b7280")
)

// Styles holds the rendered components of the marketplace screen.
type Styles struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Toggle      lipgloss.Style
	Card        func(border lipgloss.Color) lipgloss.Style
	CardTitle   func(c lipgloss.Color) lipgloss.Style
	Balance     lipgloss.Style
	Button      func(c lipgloss.Color) lipgloss.Style
	ErrorAlert  lipgloss.Style
	ResultAlert lipgloss.Style
	Help        lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(Green),
		Subtitle: lipgloss.NewStyle().Foreground(Muted),
		Toggle:   lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("#bfdbfe")).Foreground(lipgloss.Color("#1e3a8a")),
		Card: func(border lipgloss.Color) lipgloss.Style {
			return lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(border).
				Padding(0, 1).
				MarginBottom(1)
		},
		CardTitle: func(c lipgloss.Color) lipgloss.Style {
			return lipgloss.NewStyle().Bold(true).Foreground(c)
		},
		Balance: lipgloss.NewStyle().Bold(true).Foreground(Green),
		Button: func(c lipgloss.Color) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1).Background(c).Foreground(lipgloss.Color("#ffffff"))
		},
		ErrorAlert: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(Red).
			Foreground(Red).
			Padding(0, 1),
		ResultAlert: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(Green).
			Foreground(Green).
			Padding(0, 1),
		Help: lipgloss.NewStyle().Foreground(Muted),
	}
}

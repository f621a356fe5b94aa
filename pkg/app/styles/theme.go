package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Color palette
	Primary   = lipgloss.Color("#FF6B9D")
	Secondary = lipgloss.Color("#C792EA")
	Success   = lipgloss.Color("#C3E88D")
	Warning   = lipgloss.Color("#FFCB6B")
	Error     = lipgloss.Color("#F07178")
	Info      = lipgloss.Color("#82AAFF")
	Muted     = lipgloss.Color("#546E7A")
)

// Base styles
var (
	// Title style for headings
	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	// Section labels in the header and summary
	LabelStyle = lipgloss.NewStyle().
			Foreground(Secondary)

	// Muted/dimmed text
	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	// Rule between header, files and summary
	RuleStyle = lipgloss.NewStyle().
			Foreground(Muted)
)

// Status styles
var (
	StatusConverted = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	StatusFailed = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	StatusSkipped = lipgloss.NewStyle().
			Foreground(Info)

	StatusWarning = lipgloss.NewStyle().
			Foreground(Warning)
)

// StatusStyle picks the style for a per-file status word.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "converted", "removed":
		return StatusConverted
	case "failed":
		return StatusFailed
	case "skipped":
		return StatusSkipped
	case "remove_failed", "interrupted":
		return StatusWarning
	default:
		return MutedStyle
	}
}

// RatioStyle colors a compression percentage: green when the file shrank,
// amber when it grew.
func RatioStyle(pct float64) lipgloss.Style {
	if pct < 0 {
		return StatusWarning
	}
	return StatusConverted
}

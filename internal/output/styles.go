package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette. All colors used by the CLI are declared here.
var (
	// colorCyan is used for identifiable nouns: project names, descriptor names, paths.
	colorCyan = lipgloss.Color("14")

	// colorGreen is used for passed tests and successful steps.
	colorGreen = lipgloss.Color("82")

	// ColorYellow is used for warnings and skipped tests.
	ColorYellow = lipgloss.Color("220")

	// colorBoldRed is used for failures (matches ERROR level).
	colorBoldRed = lipgloss.Color("204")

	// colorGreenCheck is used for the completion checkmark.
	colorGreenCheck = lipgloss.Color("10")

	// colorDimGray is used for table borders.
	colorDimGray = lipgloss.Color("240")

	// colorBlue is used for table headers.
	colorBlue = lipgloss.Color("12")
)

// Semantic styles.
var (
	// StyleNoun styles identifiable nouns.
	StyleNoun = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleAction styles action verbs (building, pushing, pulling).
	StyleAction = lipgloss.NewStyle().Bold(true)

	// StyleDim styles structural chrome (prefixes, separators).
	StyleDim = lipgloss.NewStyle().Faint(true)

	// StyleSummary styles completion and summary lines.
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

// Status words shown next to tests and findings.
const (
	StatusPassed  = "PASSED"
	StatusFailed  = "FAILED"
	StatusSkipped = "SKIPPED"
	StatusError   = "ERROR"
	StatusWarning = "WARNING"
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case StatusPassed:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case StatusSkipped, StatusWarning:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case StatusFailed, StatusError:
		return lipgloss.NewStyle().Bold(true).Foreground(colorBoldRed)
	default:
		return lipgloss.NewStyle()
	}
}

// FormatStatus renders status in its color.
func FormatStatus(status string) string {
	return statusStyle(status).Render(status)
}

// FormatCheckmark renders a green checkmark with a message for stdout output.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(colorGreenCheck).Render("✔")
	return check + " " + msg
}

// FormatCross renders a red cross with a message.
func FormatCross(msg string) string {
	cross := lipgloss.NewStyle().Foreground(colorBoldRed).Render("✘")
	return cross + " " + msg
}

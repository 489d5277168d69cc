package output

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestStatusStyle(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		wantBold bool
		wantFG   lipgloss.TerminalColor
	}{
		{name: "passed returns green", status: StatusPassed, wantFG: colorGreen},
		{name: "skipped returns yellow", status: StatusSkipped, wantFG: ColorYellow},
		{name: "warning returns yellow", status: StatusWarning, wantFG: ColorYellow},
		{name: "failed returns bold red", status: StatusFailed, wantBold: true, wantFG: colorBoldRed},
		{name: "error returns bold red", status: StatusError, wantBold: true, wantFG: colorBoldRed},
		{name: "unknown returns default unstyled", status: "unknown-value", wantFG: lipgloss.NoColor{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style := statusStyle(tt.status)
			assert.Equal(t, tt.wantBold, style.GetBold())
			assert.Equal(t, tt.wantFG, style.GetForeground())
		})
	}
}

func TestFormatStatus_ContainsWord(t *testing.T) {
	for _, s := range []string{StatusPassed, StatusFailed, StatusSkipped} {
		assert.Contains(t, FormatStatus(s), s)
	}
}

func TestFormatCheckmark(t *testing.T) {
	out := FormatCheckmark("Package built")
	assert.True(t, strings.HasSuffix(out, " Package built"))
	assert.Contains(t, out, "✔")
}

func TestFormatCross(t *testing.T) {
	out := FormatCross("Validation failed")
	assert.True(t, strings.HasSuffix(out, " Validation failed"))
	assert.Contains(t, out, "✘")
}

package output

import (
	"fmt"
	"strings"

	"github.com/opmodel/lmctl/internal/behaviour"
	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/validation"
)

// RenderValidation renders validation findings, errors first.
func RenderValidation(r *validation.Result) string {
	if r == nil {
		return ""
	}

	var sb strings.Builder
	for _, f := range r.Errors {
		sb.WriteString(FormatCross(f.String()))
		sb.WriteString("\n")
	}
	for _, f := range r.Warnings {
		sb.WriteString(statusStyle(StatusWarning).Render("!"))
		sb.WriteString(" ")
		sb.WriteString(f.String())
		sb.WriteString("\n")
	}
	if r.Valid() {
		sb.WriteString(FormatCheckmark(fmt.Sprintf("Validation passed (%d warning(s))", len(r.Warnings))))
	} else {
		sb.WriteString(FormatCross(fmt.Sprintf("Validation failed: %d error(s), %d warning(s)", len(r.Errors), len(r.Warnings))))
	}
	sb.WriteString("\n")
	return sb.String()
}

// detailWidth bounds the DETAIL column of test reports. Structured output
// carries the full text.
const detailWidth = 120

// RenderTestReport renders a test report as a table followed by a summary.
func RenderTestReport(r *behaviour.Report) string {
	tbl := NewTable("PROJECT", "TEST", "STATUS", "DETAIL").Limit(3, detailWidth)
	addReportRows(tbl, r)

	var sb strings.Builder
	if tbl.Len() > 0 {
		sb.WriteString(tbl.String())
		sb.WriteString("\n")
	}
	sb.WriteString(StyleSummary.Render(fmt.Sprintf("%d passed, %d failed, %d skipped", r.Passed(), r.Failed(), r.Skipped())))
	sb.WriteString("\n")
	return sb.String()
}

func addReportRows(tbl *Table, r *behaviour.Report) {
	for _, e := range r.Suite.Entries {
		tbl.Row(r.FullName, e.Name, FormatStatus(string(e.Status)), e.Detail)
	}
	for _, c := range r.Children {
		addReportRows(tbl, c)
	}
}

// RenderTestListing renders the tests available in each project.
func RenderTestListing(listings []behaviour.Listing) string {
	var sb strings.Builder
	for _, l := range listings {
		sb.WriteString(StyleNoun.Render(l.FullName))
		sb.WriteString("\n")
		if len(l.Tests) == 0 {
			sb.WriteString(StyleDim.Render("  (no tests)"))
			sb.WriteString("\n")
			continue
		}
		for _, name := range l.Tests {
			sb.WriteString("  - ")
			sb.WriteString(name)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// RenderDiagnostics renders unresolved reference diagnostics.
func RenderDiagnostics(diags []journal.ReferenceDiagnostic) string {
	if len(diags) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(statusStyle(StatusWarning).Render(fmt.Sprintf("%d unresolved reference(s):", len(diags))))
	sb.WriteString("\n")
	for _, d := range diags {
		sb.WriteString("  ")
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

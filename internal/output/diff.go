package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gonvenience/ytbx"
	"github.com/homeport/dyff/pkg/dyff"
)

// FileChange is one file rewritten by a pull, rendered with its diff.
type FileChange struct {
	Project string
	Path    string
	// Diff is empty when the content did not change.
	Diff string
}

// DiffDocuments compares two YAML or JSON documents and returns a
// human-readable report. The result is empty when they are equivalent.
func DiffDocuments(before, after []byte, useColor bool) (string, error) {
	if len(bytes.TrimSpace(before)) == 0 && len(bytes.TrimSpace(after)) == 0 {
		return "", nil
	}

	from, err := parseDocument("before", before)
	if err != nil {
		return "", fmt.Errorf("parsing previous content: %w", err)
	}
	to, err := parseDocument("after", after)
	if err != nil {
		return "", fmt.Errorf("parsing pulled content: %w", err)
	}

	report, err := dyff.CompareInputFiles(from, to)
	if err != nil {
		return "", fmt.Errorf("comparing documents: %w", err)
	}
	if len(report.Diffs) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	writer := &dyff.HumanReport{
		Report:            report,
		DoNotInspectCerts: true,
		NoTableStyle:      !useColor,
		OmitHeader:        true,
	}
	if err := writer.WriteReport(io.Writer(&buf)); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func parseDocument(name string, data []byte) (ytbx.InputFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ytbx.InputFile{Location: name}, nil
	}
	docs, err := ytbx.LoadYAMLDocuments(data)
	if err != nil {
		return ytbx.InputFile{}, err
	}
	return ytbx.InputFile{Location: name, Documents: docs}, nil
}

// RenderPullChanges renders the files overwritten by a pull.
func RenderPullChanges(changes []FileChange) string {
	if len(changes) == 0 {
		return "No files pulled."
	}

	var sb strings.Builder
	modified := 0
	for _, c := range changes {
		if c.Diff == "" {
			sb.WriteString("  = ")
			sb.WriteString(StyleDim.Render(c.Path))
			sb.WriteString("\n")
			continue
		}
		modified++
		sb.WriteString("  ~ ")
		sb.WriteString(StyleNoun.Render(c.Path))
		if c.Project != "" {
			sb.WriteString(StyleDim.Render(" (" + c.Project + ")"))
		}
		sb.WriteString("\n")
		for _, line := range strings.Split(c.Diff, "\n") {
			if line != "" {
				sb.WriteString("    ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
	}

	sb.WriteString("\nSummary: ")
	sb.WriteString(pullSummary(modified, len(changes)-modified))
	sb.WriteString("\n")
	return sb.String()
}

func pullSummary(modified, unchanged int) string {
	parts := make([]string, 0, 2)
	if modified > 0 {
		parts = append(parts, fmt.Sprintf("%d modified", modified))
	}
	if unchanged > 0 {
		parts = append(parts, fmt.Sprintf("%d unchanged", unchanged))
	}
	return strings.Join(parts, ", ")
}

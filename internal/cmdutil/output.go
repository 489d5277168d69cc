package cmdutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/opmodel/lmctl/internal/behaviour"
	"github.com/opmodel/lmctl/internal/output"
	"github.com/opmodel/lmctl/internal/pipeline"
)

// WriteStructured writes v to w as YAML or JSON. Table output is rendered by
// the caller.
func WriteStructured(w io.Writer, format output.OutputFormat, v any) error {
	switch format {
	case output.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case output.FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("format %q is not a structured format", format)
	}
}

// TestResultView is the structured form of one test outcome.
type TestResultView struct {
	Project string `json:"project"`
	Test    string `json:"test"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

// TestReportView is the structured form of a test report.
type TestReportView struct {
	Passed  int              `json:"passed"`
	Failed  int              `json:"failed"`
	Skipped int              `json:"skipped"`
	Results []TestResultView `json:"results"`
}

// NewTestReportView flattens r in tree order.
func NewTestReportView(r *behaviour.Report) TestReportView {
	view := TestReportView{
		Passed:  r.Passed(),
		Failed:  r.Failed(),
		Skipped: r.Skipped(),
		Results: []TestResultView{},
	}
	var walk func(*behaviour.Report)
	walk = func(n *behaviour.Report) {
		for _, e := range n.Suite.Entries {
			view.Results = append(view.Results, TestResultView{
				Project: n.FullName,
				Test:    e.Name,
				Status:  string(e.Status),
				Detail:  e.Detail,
			})
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(r)
	return view
}

// TestListingView is the structured form of the tests of one project.
type TestListingView struct {
	Project string   `json:"project"`
	Tests   []string `json:"tests"`
}

// NewTestListingViews converts listings for structured output.
func NewTestListingViews(listings []behaviour.Listing) []TestListingView {
	views := make([]TestListingView, 0, len(listings))
	for _, l := range listings {
		tests := l.Tests
		if tests == nil {
			tests = []string{}
		}
		views = append(views, TestListingView{Project: l.FullName, Tests: tests})
	}
	return views
}

// PrintPipelineError reports err from a pipeline operation. Validation
// failures print every finding to w before the summary line.
func PrintPipelineError(w io.Writer, msg string, err error) {
	var validationErr *pipeline.ValidationFailedError
	if errors.As(err, &validationErr) && validationErr.Result != nil {
		fmt.Fprint(w, output.RenderValidation(validationErr.Result))
		output.Error(msg, "errors", len(validationErr.Result.Errors))
		return
	}
	output.Error(msg, "error", err)
}

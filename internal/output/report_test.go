package output

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opmodel/lmctl/internal/behaviour"
	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/validation"
)

func TestRenderValidation(t *testing.T) {
	t.Run("nil result", func(t *testing.T) {
		assert.Empty(t, RenderValidation(nil))
	})

	t.Run("passed with warnings", func(t *testing.T) {
		out := RenderValidation(&validation.Result{
			Warnings: []validation.Finding{{Project: "root", Message: "Found lifecycle manifest"}},
		})
		assert.Contains(t, out, "root: Found lifecycle manifest")
		assert.Contains(t, out, "Validation passed (1 warning(s))")
	})

	t.Run("failed", func(t *testing.T) {
		out := RenderValidation(&validation.Result{
			Errors: []validation.Finding{
				{Project: "db", Message: "No Lifecycle directory found at: /project/Lifecycle"},
			},
		})
		assert.Contains(t, out, "db: No Lifecycle directory found at: /project/Lifecycle")
		assert.Contains(t, out, "Validation failed: 1 error(s), 0 warning(s)")
	})
}

func TestRenderTestReport(t *testing.T) {
	report := &behaviour.Report{
		Name:     "root",
		FullName: "root",
		Suite: behaviour.Suite{Entries: []behaviour.Entry{
			{Name: "smoke", Status: behaviour.StatusPassed},
			{Name: "scale", Status: behaviour.StatusFailed, Detail: "step 2 failed"},
		}},
		Children: []*behaviour.Report{{
			Name:     "db",
			FullName: "db-root",
			Suite:    behaviour.Suite{Entries: []behaviour.Entry{{Name: "Tests", Status: behaviour.StatusSkipped}}},
		}},
	}

	out := RenderTestReport(report)
	assert.Contains(t, out, "smoke")
	assert.Contains(t, out, "step 2 failed")
	assert.Contains(t, out, "db-root")
	assert.Contains(t, out, "1 passed, 1 failed, 1 skipped")
}

func TestRenderTestReportEmpty(t *testing.T) {
	out := RenderTestReport(&behaviour.Report{Name: "root", FullName: "root"})
	assert.NotContains(t, out, "PROJECT")
	assert.Contains(t, out, "0 passed, 0 failed, 0 skipped")
}

func TestRenderTestListing(t *testing.T) {
	out := RenderTestListing([]behaviour.Listing{
		{Project: "root", FullName: "root", Tests: []string{"smoke", "scale"}},
		{Project: "db", FullName: "db-root"},
	})
	assert.Contains(t, out, "  - smoke\n")
	assert.Contains(t, out, "  - scale\n")
	assert.Contains(t, out, "db-root")
	assert.Contains(t, out, "(no tests)")
}

func TestRenderDiagnostics(t *testing.T) {
	assert.Empty(t, RenderDiagnostics(nil))

	out := RenderDiagnostics([]journal.ReferenceDiagnostic{{
		Project:   "root",
		File:      "Descriptor/assembly.yml",
		Field:     "composition.db.type",
		Reference: "$lmctl:/contains:/missing:/descriptor_name",
		Err:       errors.New("no such project"),
	}})
	assert.Contains(t, out, "1 unresolved reference(s):")
	assert.Contains(t, out, `Descriptor/assembly.yml#composition.db.type: cannot resolve reference "$lmctl:/contains:/missing:/descriptor_name": no such project`)
}

func TestTableLimitTruncatesCells(t *testing.T) {
	out := NewTable("NAME", "DETAIL").
		Limit(1, 10).
		Row("a", "0123456789abcdef").
		Row("b").
		String()

	assert.Contains(t, out, "0123456...")
	assert.NotContains(t, out, "abcdef")
	assert.Contains(t, out, "b")
}

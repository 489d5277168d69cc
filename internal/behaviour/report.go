package behaviour

// Status is the outcome of one test.
type Status string

// Test outcomes.
const (
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// Entry is the result of one scenario.
type Entry struct {
	Name   string
	Status Status
	Detail string
}

// Suite holds the results of the scenarios of one node.
type Suite struct {
	Entries []Entry
}

func (s Suite) count(status Status) int {
	n := 0
	for _, e := range s.Entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

// Report is the test outcome of a node and its sub-projects.
type Report struct {
	Name     string
	FullName string
	Suite    Suite
	Children []*Report
}

func (r *Report) total(status Status) int {
	n := r.Suite.count(status)
	for _, c := range r.Children {
		n += c.total(status)
	}
	return n
}

// Passed counts passed tests throughout the tree.
func (r *Report) Passed() int { return r.total(StatusPassed) }

// Failed counts failed tests throughout the tree.
func (r *Report) Failed() int { return r.total(StatusFailed) }

// Skipped counts skipped tests throughout the tree.
func (r *Report) Skipped() int { return r.total(StatusSkipped) }

// HasFailures reports whether any test failed.
func (r *Report) HasFailures() bool { return r.Failed() > 0 }

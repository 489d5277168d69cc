// Package behaviour runs behaviour test scenarios against an environment and
// polls each execution to a terminal state within a bounded time.
package behaviour

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/tree"
)

// Polling defaults.
const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 30 * time.Minute
)

// SelectAll selects every scenario.
const SelectAll = "*"

// Execution statuses that end polling.
const (
	executionPass    = "PASS"
	executionFail    = "FAIL"
	executionAborted = "ABORTED"
	stepInProgress   = "IN_PROGRESS"
)

// Runner executes scenarios one at a time.
type Runner struct {
	Store    orchestrator.BehaviourStore
	Journal  *journal.Journal
	Interval time.Duration
	Timeout  time.Duration
}

// NewRunner returns a Runner using the default interval and timeout.
func NewRunner(store orchestrator.BehaviourStore, j *journal.Journal) *Runner {
	return &Runner{Store: store, Journal: j, Interval: DefaultInterval, Timeout: DefaultTimeout}
}

// Execute runs the named scenario of a behaviour project and waits for it to
// finish. Failures, including a poll timeout, are reported in the entry.
func (r *Runner) Execute(ctx context.Context, projectID, name string) Entry {
	r.Journal.Event("Executing test: %s", name)
	status, reason, err := r.execute(ctx, projectID, name)
	if err != nil {
		return Entry{Name: name, Status: StatusFailed, Detail: fmt.Sprintf("%s failed: %v", name, err)}
	}
	r.Journal.Event("Test %s completed with result: %s", name, status)
	if status == executionPass {
		return Entry{Name: name, Status: StatusPassed}
	}
	if status == executionFail {
		r.Journal.ErrorEvent("Execution failed with reason: %s", reason)
	}
	detail := name + " failed:"
	if reason != "" {
		detail += " " + reason
	} else {
		detail += " no reason given"
	}
	return Entry{Name: name, Status: StatusFailed, Detail: detail}
}

func (r *Runner) execute(ctx context.Context, projectID, name string) (status, reason string, err error) {
	scenarios, err := r.Store.ListScenarios(ctx, projectID)
	if err != nil {
		return "", "", err
	}
	idx := slices.IndexFunc(scenarios, func(s orchestrator.Object) bool { return s["name"] == name })
	if idx < 0 {
		return "", "", fmt.Errorf("Scenario: %s does not exist in project: %s", name, projectID)
	}
	id, _ := scenarios[idx]["id"].(string)
	location, err := r.Store.ExecuteScenario(ctx, id)
	if err != nil {
		return "", "", err
	}
	execID := location[strings.LastIndex(location, "/")+1:]

	interval, timeout := r.Interval, r.Timeout
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	current := 0
	var final orchestrator.Object
	err = wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		execution, err := r.Store.GetExecution(ctx, execID)
		if err != nil {
			return false, err
		}
		switch execution["status"] {
		case executionPass, executionFail, executionAborted:
			final = execution
			return true, nil
		}
		current = r.progress(name, execution, current)
		return false, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		if wait.Interrupted(err) {
			return "", "", fmt.Errorf("execution %s did not complete within %s", execID, timeout)
		}
		return "", "", err
	}
	status, _ = final["status"].(string)
	if e, ok := final["error"]; ok && e != nil {
		reason = fmt.Sprint(e)
	}
	return status, reason, nil
}

// progress reports each step reached since the previous poll.
func (r *Runner) progress(name string, execution orchestrator.Object, prev int) int {
	total, current := steps(execution)
	for i := prev + 1; i < current; i++ {
		r.Journal.Event("Test '%s' in progress: step %d/%d", name, i, total)
	}
	if current > 0 {
		r.Journal.Event("Test '%s' in progress: step %d/%d", name, current, total)
	} else {
		r.Journal.Event("Test '%s' in progress: pending...", name)
	}
	return current
}

// steps returns the total step count and the 1-based position of the first
// step in progress, or 0 when none is.
func steps(execution orchestrator.Object) (total, current int) {
	stages, _ := execution["stageReports"].([]any)
	for _, stage := range stages {
		sm, _ := stage.(map[string]any)
		list, _ := sm["steps"].([]any)
		for _, step := range list {
			total++
			st, _ := step.(map[string]any)
			if current == 0 && st["status"] == stepInProgress {
				current = total
			}
		}
	}
	return total, current
}

// LoadScenarios reads every .json scenario below dir in lexical order. A
// missing dir yields no scenarios.
func LoadScenarios(t *tree.Tree, dir string) ([]orchestrator.Object, error) {
	if !t.IsDir(dir) {
		return nil, nil
	}
	var scenarios []orchestrator.Object
	err := t.WalkFiles(dir, func(rel string, _ os.FileInfo) error {
		if path.Ext(rel) != ".json" {
			return nil
		}
		data, err := t.ReadFile(rel)
		if err != nil {
			return err
		}
		var s orchestrator.Object
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%s: %w", t.Path(rel), err)
		}
		scenarios = append(scenarios, s)
		return nil
	})
	return scenarios, err
}

// Select keeps the scenarios named in selection, or all of them when the
// selection contains "*".
func Select(scenarios []orchestrator.Object, selection []string) []orchestrator.Object {
	all := slices.Contains(selection, SelectAll)
	var out []orchestrator.Object
	for _, s := range scenarios {
		name, ok := s["name"].(string)
		if all || (ok && slices.Contains(selection, name)) {
			out = append(out, s)
		}
	}
	return out
}

// Session is handed to a handler to test one node of a package.
type Session struct {
	Config    *project.Config
	Journal   *journal.Journal
	Content   *tree.Tree
	Runner    *Runner
	Selection []string
}

// RunDir executes the selected scenarios found below dir for the behaviour
// project projectID. A missing dir is reported as a single skipped entry.
func (s *Session) RunDir(ctx context.Context, projectID, dir string) (Suite, error) {
	if !s.Content.IsDir(dir) {
		s.Journal.Event("No tests directory found at %s", s.Content.Path(dir))
		return Suite{Entries: []Entry{{
			Name:   s.Config.FullName(),
			Status: StatusSkipped,
			Detail: "no tests directory found at " + s.Content.Path(dir),
		}}}, nil
	}
	scenarios, err := LoadScenarios(s.Content, dir)
	if err != nil {
		return Suite{}, err
	}
	selected := Select(scenarios, s.Selection)
	if len(selected) == 0 {
		s.Journal.Event("No matching tests found to execute at %s", s.Content.Path(dir))
		return Suite{}, nil
	}
	var suite Suite
	for _, scenario := range selected {
		name, _ := scenario["name"].(string)
		suite.Entries = append(suite.Entries, s.Runner.Execute(ctx, projectID, name))
	}
	return suite, nil
}

// Handler tests and lists the tests of one node.
type Handler interface {
	Test(ctx context.Context, s *Session) (Suite, error)
	ListTests(content *tree.Tree) ([]string, error)
}

// HandlerFunc looks up the handler for a node.
type HandlerFunc func(cfg *project.Config) (Handler, error)

// ErrNoRunner is returned by Run when no runner is configured.
var ErrNoRunner = errors.New("no test runner configured")

// Run tests p and its sub-projects, children first, and returns the combined
// report.
func Run(ctx context.Context, p *project.Project, handlerFor HandlerFunc, runner *Runner, selection []string, j *journal.Journal) (*Report, error) {
	if runner == nil {
		return nil, ErrNoRunner
	}
	report := &Report{Name: p.Config.Name, FullName: p.Config.FullName()}
	for _, child := range p.Children {
		j.Subproject(child.Config.Name)
		childReport, err := Run(ctx, child, handlerFor, runner, selection, j)
		j.SubprojectEnd()
		if err != nil {
			return nil, err
		}
		report.Children = append(report.Children, childReport)
	}

	j.Section("Execute Tests")
	h, err := handlerFor(p.Config)
	if err != nil {
		return nil, err
	}
	suite, err := h.Test(ctx, &Session{Config: p.Config, Journal: j, Content: p.Tree, Runner: runner, Selection: selection})
	if err != nil {
		return nil, fmt.Errorf("testing %s: %w", p.Config.Name, err)
	}
	report.Suite = suite
	return report, nil
}

// Listing names the tests of one node.
type Listing struct {
	Project  string
	FullName string
	Tests    []string
}

// List collects the test names of p and its sub-projects in tree order.
func List(p *project.Project, handlerFor HandlerFunc) ([]Listing, error) {
	var out []Listing
	err := p.Walk(func(n *project.Project) error {
		h, err := handlerFor(n.Config)
		if err != nil {
			return err
		}
		tests, err := h.ListTests(n.Tree)
		if err != nil {
			return fmt.Errorf("listing tests of %s: %w", n.Config.Name, err)
		}
		out = append(out, Listing{Project: n.Config.Name, FullName: n.Config.FullName(), Tests: tests})
		return nil
	})
	return out, err
}

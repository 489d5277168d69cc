// Package journal records the progress of one pipeline run: sections,
// sub-project boundaries, events and reference diagnostics. Consumers receive
// entries as they are appended.
package journal

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Kind identifies the type of an entry.
type Kind string

const (
	KindSection       Kind = "section"
	KindStage         Kind = "stage"
	KindSubproject    Kind = "subproject"
	KindSubprojectEnd Kind = "subproject_end"
	KindEvent         Kind = "event"
	KindErrorEvent    Kind = "error_event"
	KindWarning       Kind = "warning"
	KindDiagnostic    Kind = "diagnostic"
)

// ReferenceDiagnostic locates a reference that could not be resolved or
// mapped back. The original value is kept wherever one is reported.
type ReferenceDiagnostic struct {
	Project   string
	File      string
	Field     string
	Reference string
	Err       error
}

func (d ReferenceDiagnostic) String() string {
	loc := d.File
	if d.Field != "" {
		loc += "#" + d.Field
	}
	if loc != "" {
		return fmt.Sprintf("%s: cannot resolve reference %q: %v", loc, d.Reference, d.Err)
	}
	return fmt.Sprintf("cannot resolve reference %q: %v", d.Reference, d.Err)
}

// Entry is one record in the journal.
type Entry struct {
	Kind       Kind
	Project    string
	Message    string
	Diagnostic *ReferenceDiagnostic
}

// Consumer receives entries as they are recorded.
type Consumer interface {
	Consume(Entry)
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(Entry)

// Consume calls f(e).
func (f ConsumerFunc) Consume(e Entry) { f(e) }

// Journal is an append-only record. It is safe for concurrent use.
type Journal struct {
	mu        sync.Mutex
	runID     string
	project   []string
	entries   []Entry
	consumers []Consumer
}

// New returns a journal with a fresh run id.
func New(consumers ...Consumer) *Journal {
	return &Journal{runID: uuid.NewString(), consumers: consumers}
}

// RunID identifies this run in logs.
func (j *Journal) RunID() string { return j.runID }

// AddConsumer attaches c. Earlier entries are not replayed.
func (j *Journal) AddConsumer(c Consumer) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.consumers = append(j.consumers, c)
}

// Section starts a named section, e.g. "Validate" or "Stage Sources".
func (j *Journal) Section(title string) { j.add(Entry{Kind: KindSection, Message: title}) }

// Stage starts a step within a section.
func (j *Journal) Stage(title string) { j.add(Entry{Kind: KindStage, Message: title}) }

// Subproject marks the start of work on a sub-project.
func (j *Journal) Subproject(name string) {
	j.mu.Lock()
	j.project = append(j.project, name)
	j.mu.Unlock()
	j.add(Entry{Kind: KindSubproject, Message: name})
}

// SubprojectEnd marks the end of work on the current sub-project.
func (j *Journal) SubprojectEnd() {
	j.add(Entry{Kind: KindSubprojectEnd})
	j.mu.Lock()
	if n := len(j.project); n > 0 {
		j.project = j.project[:n-1]
	}
	j.mu.Unlock()
}

// Event records a message.
func (j *Journal) Event(format string, args ...any) {
	j.add(Entry{Kind: KindEvent, Message: sprintf(format, args...)})
}

// ErrorEvent records an error message that does not stop the run.
func (j *Journal) ErrorEvent(format string, args ...any) {
	j.add(Entry{Kind: KindErrorEvent, Message: sprintf(format, args...)})
}

// Warning records a message about something the run worked around.
func (j *Journal) Warning(format string, args ...any) {
	j.add(Entry{Kind: KindWarning, Message: sprintf(format, args...)})
}

// Diagnostic records an unresolved reference. The project is filled in from
// the current sub-project when empty.
func (j *Journal) Diagnostic(d ReferenceDiagnostic) {
	j.mu.Lock()
	if d.Project == "" && len(j.project) > 0 {
		d.Project = j.project[len(j.project)-1]
	}
	j.mu.Unlock()
	j.add(Entry{Kind: KindDiagnostic, Message: d.String(), Diagnostic: &d})
}

// Entries returns a copy of all entries recorded so far.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Diagnostics returns the reference diagnostics in the order they were recorded.
func (j *Journal) Diagnostics() []ReferenceDiagnostic {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []ReferenceDiagnostic
	for _, e := range j.entries {
		if e.Diagnostic != nil {
			out = append(out, *e.Diagnostic)
		}
	}
	return out
}

func (j *Journal) add(e Entry) {
	j.mu.Lock()
	if e.Project == "" && len(j.project) > 0 {
		e.Project = j.project[len(j.project)-1]
	}
	j.entries = append(j.entries, e)
	consumers := append([]Consumer(nil), j.consumers...)
	j.mu.Unlock()

	for _, c := range consumers {
		c.Consume(e)
	}
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

package testutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/opmodel/lmctl/internal/descriptor"
	"github.com/opmodel/lmctl/internal/orchestrator"
)

// Orchestrator is an in-memory environment implementing every store.
type Orchestrator struct {
	mu sync.Mutex

	Descriptors map[string]string
	Templates   map[string]string
	Projects    map[string]orchestrator.Object
	// Configurations and Scenarios are keyed by project id.
	Configurations map[string][]orchestrator.Object
	Scenarios      map[string][]orchestrator.Object
	Packages       map[string][]byte
	// Executions lists, per scenario name, the states returned by successive
	// polls. The last state repeats.
	Executions map[string][]orchestrator.Object
	// Calls records each store call as "Method arg".
	Calls []string

	nextID     int
	executions map[string]*execution
}

type execution struct {
	scenario string
	polls    int
}

// NewOrchestrator returns an empty environment.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		Descriptors:    map[string]string{},
		Templates:      map[string]string{},
		Projects:       map[string]orchestrator.Object{},
		Configurations: map[string][]orchestrator.Object{},
		Scenarios:      map[string][]orchestrator.Object{},
		Packages:       map[string][]byte{},
		Executions:     map[string][]orchestrator.Object{},
		executions:     map[string]*execution{},
	}
}

// Stores returns o as each of the store interfaces.
func (o *Orchestrator) Stores() orchestrator.Stores {
	return orchestrator.Stores{Descriptors: o, Behaviour: o, Packages: o}
}

func (o *Orchestrator) record(method, arg string) {
	o.Calls = append(o.Calls, method+" "+arg)
}

func notFound(kind, name string) error {
	return fmt.Errorf("%s %s: %w", kind, name, orchestrator.ErrNotFound)
}

func descriptorName(content string) (string, error) {
	d, err := descriptor.Parse([]byte(content))
	if err != nil {
		return "", err
	}
	return d.Name()
}

func (o *Orchestrator) GetDescriptor(_ context.Context, name string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("GetDescriptor", name)
	content, ok := o.Descriptors[name]
	if !ok {
		return "", notFound("descriptor", name)
	}
	return content, nil
}

func (o *Orchestrator) CreateDescriptor(_ context.Context, content string) error {
	name, err := descriptorName(content)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("CreateDescriptor", name)
	o.Descriptors[name] = content
	return nil
}

func (o *Orchestrator) UpdateDescriptor(_ context.Context, name, content string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("UpdateDescriptor", name)
	if _, ok := o.Descriptors[name]; !ok {
		return notFound("descriptor", name)
	}
	o.Descriptors[name] = content
	return nil
}

func (o *Orchestrator) DeleteDescriptor(_ context.Context, name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("DeleteDescriptor", name)
	if _, ok := o.Descriptors[name]; !ok {
		return notFound("descriptor", name)
	}
	delete(o.Descriptors, name)
	return nil
}

func (o *Orchestrator) GetDescriptorTemplate(_ context.Context, name string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("GetDescriptorTemplate", name)
	content, ok := o.Templates[name]
	if !ok {
		return "", notFound("descriptor template", name)
	}
	return content, nil
}

func (o *Orchestrator) CreateDescriptorTemplate(_ context.Context, content string) error {
	name, err := descriptorName(content)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("CreateDescriptorTemplate", name)
	o.Templates[name] = content
	return nil
}

func (o *Orchestrator) UpdateDescriptorTemplate(_ context.Context, name, content string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("UpdateDescriptorTemplate", name)
	if _, ok := o.Templates[name]; !ok {
		return notFound("descriptor template", name)
	}
	o.Templates[name] = content
	return nil
}

func (o *Orchestrator) GetProject(_ context.Context, id string) (orchestrator.Object, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("GetProject", id)
	p, ok := o.Projects[id]
	if !ok {
		return nil, notFound("project", id)
	}
	return p, nil
}

func (o *Orchestrator) CreateProject(_ context.Context, p orchestrator.Object) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	id, _ := p["id"].(string)
	o.record("CreateProject", id)
	o.Projects[id] = p
	return nil
}

func (o *Orchestrator) UpdateProject(_ context.Context, p orchestrator.Object) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	id, _ := p["id"].(string)
	o.record("UpdateProject", id)
	if _, ok := o.Projects[id]; !ok {
		return notFound("project", id)
	}
	o.Projects[id] = p
	return nil
}

func (o *Orchestrator) ListConfigurations(_ context.Context, projectID string) ([]orchestrator.Object, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("ListConfigurations", projectID)
	return o.Configurations[projectID], nil
}

func (o *Orchestrator) CreateConfiguration(_ context.Context, c orchestrator.Object) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("CreateConfiguration", name(c))
	o.Configurations[projectID(c)] = append(o.Configurations[projectID(c)], o.withID(c, "configuration"))
	return nil
}

func (o *Orchestrator) UpdateConfiguration(_ context.Context, c orchestrator.Object) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("UpdateConfiguration", name(c))
	return replace(o.Configurations[projectID(c)], c)
}

func (o *Orchestrator) ListScenarios(_ context.Context, projectID string) ([]orchestrator.Object, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("ListScenarios", projectID)
	return o.Scenarios[projectID], nil
}

func (o *Orchestrator) CreateScenario(_ context.Context, s orchestrator.Object) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("CreateScenario", name(s))
	o.Scenarios[projectID(s)] = append(o.Scenarios[projectID(s)], o.withID(s, "scenario"))
	return nil
}

func (o *Orchestrator) UpdateScenario(_ context.Context, s orchestrator.Object) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("UpdateScenario", name(s))
	return replace(o.Scenarios[projectID(s)], s)
}

func (o *Orchestrator) ExecuteScenario(_ context.Context, scenarioID string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("ExecuteScenario", scenarioID)
	for _, list := range o.Scenarios {
		for _, s := range list {
			if s["id"] == scenarioID {
				o.nextID++
				id := fmt.Sprintf("execution-%d", o.nextID)
				o.executions[id] = &execution{scenario: name(s)}
				return "/api/behaviour/executions/" + id, nil
			}
		}
	}
	return "", notFound("scenario", scenarioID)
}

func (o *Orchestrator) GetExecution(_ context.Context, id string) (orchestrator.Object, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("GetExecution", id)
	e, ok := o.executions[id]
	if !ok {
		return nil, notFound("execution", id)
	}
	states := o.Executions[e.scenario]
	if len(states) == 0 {
		return orchestrator.Object{"status": "PASS"}, nil
	}
	state := states[min(e.polls, len(states)-1)]
	e.polls++
	return state, nil
}

func (o *Orchestrator) OnboardPackage(_ context.Context, fileName string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("OnboardPackage", fileName)
	o.Packages[strings.TrimSuffix(fileName, ".zip")] = data
	return nil
}

func (o *Orchestrator) DeletePackage(_ context.Context, name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("DeletePackage", name)
	if _, ok := o.Packages[name]; !ok {
		return notFound("package", name)
	}
	delete(o.Packages, name)
	return nil
}

func (o *Orchestrator) withID(obj orchestrator.Object, kind string) orchestrator.Object {
	if _, ok := obj["id"]; ok {
		return obj
	}
	o.nextID++
	obj["id"] = fmt.Sprintf("%s-%d", kind, o.nextID)
	return obj
}

func replace(list []orchestrator.Object, obj orchestrator.Object) error {
	for i, existing := range list {
		if existing["id"] == obj["id"] {
			list[i] = obj
			return nil
		}
	}
	id, _ := obj["id"].(string)
	return notFound("object", id)
}

func name(obj orchestrator.Object) string {
	n, _ := obj["name"].(string)
	return n
}

func projectID(obj orchestrator.Object) string {
	id, _ := obj["projectId"].(string)
	return id
}

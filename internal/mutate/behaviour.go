package mutate

import (
	"encoding/json"
	"fmt"

	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/project"
)

// Behaviour document fields.
const (
	FieldID                       = "id"
	FieldName                     = "name"
	FieldProjectID                = "projectId"
	FieldDescriptorName           = "descriptorName"
	FieldDescriptorNameRef        = "descriptorNameRef"
	FieldAssemblyActors           = "assemblyActors"
	FieldProvided                 = "provided"
	FieldBaseConfigurationID      = "baseConfigurationId"
	FieldBaseConfigurationRef     = "baseConfigurationRef"
	FieldAssemblyConfigurationID  = "assemblyConfigurationId"
	FieldAssemblyConfigurationRef = "assemblyConfigurationRef"
)

// DeprecatedDescriptorNameRef is the old way of pointing a configuration at
// its own project's descriptor.
const DeprecatedDescriptorNameRef = "$lmctl.descriptor_name"

// actorSwaps pairs the id and ref form of each actor configuration field.
var actorSwaps = [][2]string{
	{FieldBaseConfigurationID, FieldBaseConfigurationRef},
	{FieldAssemblyConfigurationID, FieldAssemblyConfigurationRef},
}

// ConfigurationStage prepares an assembly configuration for packaging.
type ConfigurationStage struct {
	Config  *project.Config
	Index   *project.Index
	Journal *journal.Journal
	File    string
}

// Apply sets the project id and resolves the descriptor name.
func (m ConfigurationStage) Apply(content []byte) ([]byte, error) {
	doc, err := decodeObject(content)
	if err != nil {
		return nil, err
	}
	doc[FieldProjectID] = m.Config.DescriptorName()

	if ref, ok := doc[FieldDescriptorNameRef].(string); ok && ref == DeprecatedDescriptorNameRef {
		delete(doc, FieldDescriptorNameRef)
		doc[FieldDescriptorName] = m.Config.DescriptorName()
	}
	if name, ok := doc[FieldDescriptorName].(string); ok && m.Index.IsReference(name) {
		resolved, err := m.Index.ResolveString(name)
		if err != nil {
			m.Journal.Diagnostic(journal.ReferenceDiagnostic{File: m.File, Field: FieldDescriptorName, Reference: name, Err: err})
		} else {
			doc[FieldDescriptorName] = resolved
		}
	}
	return encodeObject(doc)
}

// ScenarioStage prepares a scenario for packaging.
type ScenarioStage struct {
	Config *project.Config
}

// Apply sets the project id.
func (m ScenarioStage) Apply(content []byte) ([]byte, error) {
	doc, err := decodeObject(content)
	if err != nil {
		return nil, err
	}
	doc[FieldProjectID] = m.Config.DescriptorName()
	return encodeObject(doc)
}

// ConfigurationPull makes a pulled assembly configuration environment independent.
type ConfigurationPull struct {
	Config  *project.Config
	Index   *project.Index
	Journal *journal.Journal
	File    string
}

// Apply modifies doc in place and returns it.
func (m ConfigurationPull) Apply(doc map[string]any) map[string]any {
	delete(doc, FieldID)
	doc[FieldProjectID] = m.Index.DescriptorReference(m.Config)

	name, ok := doc[FieldDescriptorName].(string)
	if !ok {
		return doc
	}
	owner, err := m.Index.ProjectFor(name)
	if err != nil {
		ref := m.Index.DescriptorMappingReference(name)
		m.Journal.Diagnostic(journal.ReferenceDiagnostic{File: m.File, Field: FieldDescriptorName, Reference: ref, Err: err})
		return doc
	}
	doc[FieldDescriptorName] = m.Index.DescriptorReference(owner)
	return doc
}

// ScenarioPull makes a pulled scenario environment independent.
type ScenarioPull struct {
	Config *project.Config
	Index  *project.Index
	// ConfigurationsByID holds the configurations pulled earlier in the
	// same run, keyed by id.
	ConfigurationsByID map[string]map[string]any
}

// Apply replaces configuration ids on actors with configuration names. Ids
// that are not known are kept as the ref.
func (m ScenarioPull) Apply(doc map[string]any) map[string]any {
	delete(doc, FieldID)
	doc[FieldProjectID] = m.Index.DescriptorReference(m.Config)

	forEachActor(doc, func(actor map[string]any) {
		for _, swap := range actorSwaps {
			id, ok := actor[swap[0]].(string)
			if !ok {
				continue
			}
			name := id
			if cfg, ok := m.ConfigurationsByID[id]; ok {
				if n, ok := cfg[FieldName].(string); ok {
					name = n
				}
			}
			delete(actor, swap[0])
			actor[swap[1]] = name
		}
	})
	return doc
}

// ScenarioPush swaps configuration refs on actors for the ids of the
// configurations already pushed.
type ScenarioPush struct {
	Configurations []map[string]any
}

// Apply modifies doc in place and returns it.
func (m ScenarioPush) Apply(doc map[string]any) map[string]any {
	forEachActor(doc, func(actor map[string]any) {
		for _, swap := range actorSwaps {
			ref, ok := actor[swap[1]]
			if !ok {
				continue
			}
			id := ref
			if name, ok := ref.(string); ok {
				if cfg := m.byName(name); cfg != nil {
					id = cfg[FieldID]
				}
			}
			delete(actor, swap[1])
			actor[swap[0]] = id
		}
	})
	return doc
}

func (m ScenarioPush) byName(name string) map[string]any {
	for _, c := range m.Configurations {
		if n, _ := c[FieldName].(string); n == name {
			return c
		}
	}
	return nil
}

// IsProvided reports whether a scenario actor is supplied by the environment.
func IsProvided(actor map[string]any) bool {
	provided, _ := actor[FieldProvided].(bool)
	return provided
}

// HasProvidedActor reports whether any actor of a scenario is provided.
// Such scenarios are runtime scenarios rather than tests.
func HasProvidedActor(doc map[string]any) bool {
	found := false
	forAllActors(doc, func(actor map[string]any) {
		if IsProvided(actor) {
			found = true
		}
	})
	return found
}

func forEachActor(doc map[string]any, fn func(map[string]any)) {
	forAllActors(doc, func(actor map[string]any) {
		if !IsProvided(actor) {
			fn(actor)
		}
	})
}

func forAllActors(doc map[string]any, fn func(map[string]any)) {
	actors, _ := doc[FieldAssemblyActors].([]any)
	for _, a := range actors {
		if actor, ok := a.(map[string]any); ok {
			fn(actor)
		}
	}
}

func decodeObject(content []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parsing behaviour file: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("parsing behaviour file: expected a JSON object")
	}
	return doc, nil
}

func encodeObject(doc map[string]any) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

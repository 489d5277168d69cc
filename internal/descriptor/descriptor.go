// Package descriptor models service and resource descriptors as
// order-preserving YAML documents.
//
// Documents are read in any key order. Writing sorts top-level sections and
// lifecycle phases into a canonical order so diffs between environments stay
// small.
package descriptor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Section keys.
const (
	KeyName              = "name"
	KeyDescription       = "description"
	KeyProperties        = "properties"
	KeyPrivateProperties = "private-properties"
	KeyInfrastructure    = "infrastructure"
	KeyLifecycle         = "lifecycle"
	KeyOperations        = "operations"
	KeyDefaultDriver     = "default-driver"
	KeyComposition       = "composition"
	KeyReferences        = "references"
	KeyRelationships     = "relationships"
	KeyQueries           = "queries"
)

// SectionOrder is the canonical order of top-level sections.
var SectionOrder = []string{
	KeyName, KeyDescription, KeyProperties, KeyPrivateProperties, KeyInfrastructure,
	KeyLifecycle, KeyOperations, KeyDefaultDriver, KeyComposition, KeyReferences,
	KeyRelationships, KeyQueries,
}

// LifecycleOrder is the canonical order of standard lifecycle phases.
var LifecycleOrder = []string{
	"Create", "Install", "Configure", "Reconfigure", "Start", "Stop", "Uninstall", "Delete",
}

// ErrNoName is returned when a name is required but the descriptor has none.
var ErrNoName = errors.New("descriptor has no name field")

// Descriptor is a parsed descriptor document.
type Descriptor struct {
	Map

	// comment is the head comment of the document.
	comment string
}

// New returns an empty descriptor.
func New() *Descriptor {
	return &Descriptor{Map: NewMap()}
}

// Parse reads a descriptor. An empty document yields an empty descriptor.
func Parse(data []byte) (*Descriptor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing descriptor: %w", err)
	}
	if len(doc.Content) == 0 {
		return New(), nil
	}
	root := doc.Content[0]
	if isNull(root) {
		return New(), nil
	}
	m, ok := AsMap(root)
	if !ok {
		return nil, fmt.Errorf("parsing descriptor: document must be a mapping, found %s", kindName(root))
	}
	return &Descriptor{Map: m, comment: doc.HeadComment}, nil
}

// Clone returns a deep copy that shares no nodes with d.
func (d *Descriptor) Clone() *Descriptor {
	return &Descriptor{Map: Map{node: cloneNode(d.node)}, comment: d.comment}
}

// Sort orders top-level sections and lifecycle phases canonically.
func (d *Descriptor) Sort() {
	d.reorder(SectionOrder)
	if lifecycle, ok := d.Map.Map(KeyLifecycle); ok {
		lifecycle.reorder(LifecycleOrder)
	}
}

// Marshal encodes a sorted copy of d as YAML.
func (d *Descriptor) Marshal() ([]byte, error) {
	sorted := d.Clone()
	sorted.Sort()
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	doc := &yaml.Node{Kind: yaml.DocumentNode, HeadComment: sorted.comment, Content: []*yaml.Node{sorted.node}}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding descriptor: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HasName reports whether the descriptor has a name section.
func (d *Descriptor) HasName() bool { return d.Has(KeyName) }

// Name returns the descriptor name.
func (d *Descriptor) Name() (string, error) {
	if !d.HasName() {
		return "", ErrNoName
	}
	return d.String(KeyName), nil
}

// SetName sets the name, inserting it as the first section when absent.
func (d *Descriptor) SetName(name string) {
	if d.HasName() {
		d.Set(KeyName, Scalar(name))
		return
	}
	d.Insert(0, KeyName, Scalar(name))
}

// RemoveName deletes the name section.
func (d *Descriptor) RemoveName() { d.Delete(KeyName) }

// Version returns the version part of the name.
func (d *Descriptor) Version() (string, error) {
	name, err := d.Name()
	if err != nil {
		return "", err
	}
	parts := strings.Split(name, Separator)
	if len(parts) < 3 {
		return "", fmt.Errorf("could not determine descriptor version as name contains only %d parts separated by %q", len(parts), Separator)
	}
	return parts[2], nil
}

// Entry is one element of a composition or references section.
type Entry struct {
	Key string
	Map
}

// Entries returns the mapping entries of section. Non-mapping sections and
// entries are skipped.
func (d *Descriptor) Entries(section string) []Entry {
	sec, ok := d.Map.Map(section)
	if !ok {
		return nil
	}
	var entries []Entry
	sec.Range(func(key string, value *yaml.Node) {
		if m, ok := AsMap(value); ok {
			entries = append(entries, Entry{Key: key, Map: m})
		}
	})
	return entries
}

// Lifecycle returns the lifecycle section as a mapping, converting the legacy
// list form (a list of phase names) into a mapping of empty phases.
func (d *Descriptor) Lifecycle() Map {
	n, ok := d.Get(KeyLifecycle)
	if ok && n.Kind == yaml.SequenceNode {
		converted := NewMap()
		for _, phase := range n.Content {
			converted.Set(phase.Value, NewMap().node)
		}
		d.Set(KeyLifecycle, converted.node)
		return converted
	}
	return d.EnsureMap(KeyLifecycle)
}

// InsertLifecycle replaces the entry for phase and re-sorts the phases. Nil
// properties or drivers are omitted.
func (d *Descriptor) InsertLifecycle(phase string, properties, drivers map[string]any) error {
	entry := NewMap()
	if properties != nil {
		n, err := Encode(properties)
		if err != nil {
			return fmt.Errorf("encoding %s properties: %w", phase, err)
		}
		entry.Set("properties", n)
	}
	if drivers != nil {
		n, err := Encode(drivers)
		if err != nil {
			return fmt.Errorf("encoding %s drivers: %w", phase, err)
		}
		entry.Set("drivers", n)
	}
	lifecycle := d.Lifecycle()
	lifecycle.Set(phase, entry.node)
	lifecycle.reorder(LifecycleOrder)
	return nil
}

// InsertDefaultDriver adds a default driver selected for infrastructureTypes.
func (d *Descriptor) InsertDefaultDriver(driver string, infrastructureTypes []string) {
	if len(infrastructureTypes) == 0 {
		infrastructureTypes = []string{"*"}
	}
	entry := NewMap()
	entry.EnsureMap("selector").Set("infrastructure-type", StringSeq(infrastructureTypes...))
	d.EnsureMap(KeyDefaultDriver).Set(driver, entry.node)
}

// InsertInfrastructureTemplate sets the template of an infrastructure type.
func (d *Descriptor) InsertInfrastructureTemplate(infrastructureType, file, templateType string) {
	d.insertInfrastructure(infrastructureType, "template", file, templateType)
}

// InsertInfrastructureDiscover sets the discover template of an infrastructure type.
func (d *Descriptor) InsertInfrastructureDiscover(infrastructureType, file, templateType string) {
	d.insertInfrastructure(infrastructureType, "discover", file, templateType)
}

func (d *Descriptor) insertInfrastructure(infrastructureType, kind, file, templateType string) {
	entry := NewMap()
	if file != "" {
		entry.Set("file", Scalar(file))
	}
	if templateType != "" {
		entry.Set("template-type", Scalar(templateType))
	}
	d.EnsureMap(KeyInfrastructure).EnsureMap(infrastructureType).Set(kind, entry.node)
}

// Property declares a descriptor property.
type Property struct {
	Description string `yaml:"description,omitempty"`
	Type        string `yaml:"type,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	ReadOnly    bool   `yaml:"read-only,omitempty"`
	Value       any    `yaml:"value,omitempty"`
	Default     any    `yaml:"default,omitempty"`
}

// AddProperty adds or replaces a property declaration.
func (d *Descriptor) AddProperty(name string, p Property) error {
	n, err := Encode(p)
	if err != nil {
		return fmt.Errorf("encoding property %s: %w", name, err)
	}
	d.EnsureMap(KeyProperties).Set(name, n)
	return nil
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "a list"
	case yaml.ScalarNode:
		return "a scalar"
	default:
		return "an unsupported node"
	}
}

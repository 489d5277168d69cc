package project

import (
	"fmt"

	"github.com/opmodel/lmctl/internal/reference"
)

// Resolution map keys.
const (
	KeyDescriptorName     = "descriptor_name"
	KeyContains           = "contains"
	KeyDescriptorMappings = "descriptor_mappings"
	KeyProject            = "project"
)

// Index is the resolution map of one project tree. It maps references such as
// "$lmctl:/contains:/db:/descriptor_name" to descriptor names and descriptor
// names back to the Config that owns them.
type Index struct {
	schema reference.Schema
	values map[string]any
}

// NewIndex builds the resolution map for the tree rooted at root.
func NewIndex(root *Config) *Index {
	values := map[string]any{}
	addNode(root, values)

	mappings := map[string]any{}
	_ = root.Walk(func(c *Config) error {
		mappings[c.DescriptorName()] = map[string]any{KeyProject: c}
		return nil
	})
	values[KeyDescriptorMappings] = mappings

	return &Index{schema: reference.Default, values: values}
}

func addNode(c *Config, values map[string]any) {
	values[KeyDescriptorName] = c.DescriptorName()
	contains := map[string]any{}
	for _, child := range c.Contains {
		sub := map[string]any{}
		contains[child.Name] = sub
		addNode(child, sub)
	}
	values[KeyContains] = contains
}

// Schema returns the reference schema of the index.
func (i *Index) Schema() reference.Schema { return i.schema }

// IsReference reports whether value is a reference in the index schema.
func (i *Index) IsReference(value string) bool {
	return i.schema.IsReference(value)
}

// Resolve returns the value ref points at.
func (i *Index) Resolve(ref string) (any, error) {
	return i.schema.Resolve(i.values, ref)
}

// ResolveString resolves ref and requires the result to be a string.
func (i *Index) ResolveString(ref string) (string, error) {
	v, err := i.Resolve(ref)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s resolves to %T, not a string", reference.ErrBadReference, ref, v)
	}
	return s, nil
}

// DescriptorReference returns the reference to c's descriptor name.
func (i *Index) DescriptorReference(c *Config) string {
	b := i.schema.NewBuilder()
	if c.IsRoot() {
		b.Add(KeyDescriptorName)
	} else {
		b.Add(c.Name).Add(KeyDescriptorName)
		for p := c.Parent(); p != nil; p = p.Parent() {
			b.AddBefore(KeyContains)
			if p.IsRoot() {
				break
			}
			b.AddBefore(p.Name)
		}
	}
	// At least one segment is always present.
	ref, _ := b.Get()
	return ref
}

// DescriptorMappingReference returns the reference to the Config owning
// descriptorName.
func (i *Index) DescriptorMappingReference(descriptorName string) string {
	ref, _ := i.schema.NewBuilder().Add(KeyDescriptorMappings).Add(descriptorName).Add(KeyProject).Get()
	return ref
}

// ProjectFor resolves the Config owning descriptorName.
func (i *Index) ProjectFor(descriptorName string) (*Config, error) {
	ref := i.DescriptorMappingReference(descriptorName)
	v, err := i.Resolve(ref)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not resolve to a project", reference.ErrBadReference, ref)
	}
	return c, nil
}

package project

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/opmodel/lmctl/internal/tree"
)

const rewriteHeader = "## Lmctl has updated this file with the latest schema changes. " +
	"A backup of your existing project file has been placed in the same directory with a .bak extension\n"

// IsLegacy reports whether a project document predates schema 2.0.
func IsLegacy(data []byte) (bool, error) {
	doc, err := decodeMapping(data)
	if err != nil {
		return false, err
	}
	schema := lookup(doc, "schema")
	return schema == nil || schema.Value == Schema1, nil
}

// Rewrite converts a schema 1.0 project document to schema 2.0. The schema is
// placed first, the version is added when missing and legacy vnfc definitions
// become Resource sub-projects managed by ansible-rm.
func Rewrite(data []byte, version string) ([]byte, error) {
	doc, err := decodeMapping(data)
	if err != nil {
		return nil, err
	}
	if version == "" {
		version = Schema1
	}

	out := &yaml.Node{Kind: yaml.MappingNode}
	if schema := lookup(doc, "schema"); schema != nil && schema.Value != Schema1 {
		appendPair(out, "schema", schema)
	} else {
		appendPair(out, "schema", scalar(Schema2))
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "schema" {
			continue
		}
		out.Content = append(out.Content, doc.Content[i], doc.Content[i+1])
	}
	if lookup(doc, "version") == nil {
		appendPair(out, "version", scalar(version))
	}

	if err := rewriteVNFCs(out); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(rewriteHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encoding project file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RewriteFile upgrades the project file in t, keeping a copy of the original
// at <file>.bak.
func RewriteFile(t *tree.Tree, file, version string) ([]byte, error) {
	orig, err := t.ReadFile(file)
	if err != nil {
		return nil, err
	}
	updated, err := Rewrite(orig, version)
	if err != nil {
		return nil, err
	}
	if err := tree.CopyFile(t, file, t, file+".bak"); err != nil {
		return nil, fmt.Errorf("backing up project file: %w", err)
	}
	if err := t.WriteFile(file, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func rewriteVNFCs(doc *yaml.Node) error {
	idx := indexOf(doc, "vnfcs")
	if idx < 0 {
		return nil
	}
	vnfcs := doc.Content[idx+1]

	contains := lookup(doc, "contains")
	if contains == nil {
		contains = &yaml.Node{Kind: yaml.SequenceNode}
		appendPair(doc, "contains", contains)
	} else if contains.Kind != yaml.SequenceNode {
		return fmt.Errorf("'contains' should be a list")
	}

	if defs := lookup(vnfcs, "definitions"); defs != nil && defs.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(defs.Content); i += 2 {
			name := defs.Content[i].Value
			directory := name
			if d := lookup(defs.Content[i+1], "directory"); d != nil {
				directory = d.Value
			}
			entry := &yaml.Node{Kind: yaml.MappingNode}
			appendPair(entry, "name", scalar(name))
			appendPair(entry, "type", scalar(string(TypeResource)))
			appendPair(entry, "directory", scalar(directory))
			appendPair(entry, "resource-manager", scalar(string(RMAnsible)))
			contains.Content = append(contains.Content, entry)
		}
	}

	// vnfcs index is unchanged by appending contains at the end.
	doc.Content = append(doc.Content[:idx], doc.Content[idx+2:]...)
	return nil
}

func decodeMapping(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing project file: %w", err)
	}
	if len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.MappingNode}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("project file should be a mapping")
	}
	return root, nil
}

func indexOf(m *yaml.Node, key string) int {
	if m == nil || m.Kind != yaml.MappingNode {
		return -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	if i := indexOf(m, key); i >= 0 {
		return m.Content[i+1]
	}
	return nil
}

func appendPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalar(key), value)
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

package descriptor

import (
	"gopkg.in/yaml.v3"
)

// Map is an order-preserving view of a YAML mapping node.
type Map struct {
	node *yaml.Node
}

// NewMap returns an empty mapping.
func NewMap() Map {
	return Map{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// AsMap returns a Map view of n if n is a mapping.
func AsMap(n *yaml.Node) (Map, bool) {
	if n == nil || n.Kind != yaml.MappingNode {
		return Map{}, false
	}
	return Map{node: n}, true
}

// Node returns the underlying mapping node.
func (m Map) Node() *yaml.Node { return m.node }

// Valid reports whether m wraps a mapping.
func (m Map) Valid() bool { return m.node != nil }

func (m Map) index(key string) int {
	if m.node == nil {
		return -1
	}
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		if m.node.Content[i].Value == key {
			return i
		}
	}
	return -1
}

// Has reports whether key is present.
func (m Map) Has(key string) bool { return m.index(key) >= 0 }

// Get returns the value node of key.
func (m Map) Get(key string) (*yaml.Node, bool) {
	i := m.index(key)
	if i < 0 {
		return nil, false
	}
	return m.node.Content[i+1], true
}

// Map returns the mapping stored at key.
func (m Map) Map(key string) (Map, bool) {
	n, ok := m.Get(key)
	if !ok {
		return Map{}, false
	}
	return AsMap(n)
}

// String returns the scalar value at key, or "".
func (m Map) String(key string) string {
	n, ok := m.Get(key)
	if !ok || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

// Keys returns the keys in document order.
func (m Map) Keys() []string {
	if m.node == nil {
		return nil
	}
	keys := make([]string, 0, len(m.node.Content)/2)
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		keys = append(keys, m.node.Content[i].Value)
	}
	return keys
}

// Set replaces the value of key, appending the key when absent.
func (m Map) Set(key string, value *yaml.Node) {
	if i := m.index(key); i >= 0 {
		m.node.Content[i+1] = value
		return
	}
	m.node.Content = append(m.node.Content, keyNode(key), value)
}

// Insert places key at position pos, replacing any existing entry.
func (m Map) Insert(pos int, key string, value *yaml.Node) {
	m.Delete(key)
	at := pos * 2
	if at > len(m.node.Content) {
		at = len(m.node.Content)
	}
	content := make([]*yaml.Node, 0, len(m.node.Content)+2)
	content = append(content, m.node.Content[:at]...)
	content = append(content, keyNode(key), value)
	content = append(content, m.node.Content[at:]...)
	m.node.Content = content
}

// Delete removes key and reports whether it was present.
func (m Map) Delete(key string) bool {
	i := m.index(key)
	if i < 0 {
		return false
	}
	m.node.Content = append(m.node.Content[:i], m.node.Content[i+2:]...)
	return true
}

// EnsureMap returns the mapping at key, creating it when the key is absent or null.
func (m Map) EnsureMap(key string) Map {
	if n, ok := m.Get(key); ok {
		if child, ok := AsMap(n); ok {
			return child
		}
		if !isNull(n) {
			// Non-mapping values are replaced.
			child := NewMap()
			m.Set(key, child.node)
			return child
		}
	}
	child := NewMap()
	m.Set(key, child.node)
	return child
}

// EnsureSeq returns the sequence at key, creating it when absent or null.
func (m Map) EnsureSeq(key string) *yaml.Node {
	if n, ok := m.Get(key); ok && n.Kind == yaml.SequenceNode {
		return n
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	m.Set(key, seq)
	return seq
}

// Range calls fn for each entry in document order.
func (m Map) Range(fn func(key string, value *yaml.Node)) {
	if m.node == nil {
		return
	}
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		fn(m.node.Content[i].Value, m.node.Content[i+1])
	}
}

// reorder sorts the entries so keys listed in order come first, in that order,
// followed by the remaining keys in their current order. Repeated keys keep
// every pair, in their current relative order.
func (m Map) reorder(order []string) {
	if m.node == nil {
		return
	}
	rank := make(map[string]int, len(order))
	for i, k := range order {
		rank[k] = i
	}
	var known, rest [][2]*yaml.Node
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		pair := [2]*yaml.Node{m.node.Content[i], m.node.Content[i+1]}
		if _, ok := rank[pair[0].Value]; ok {
			known = append(known, pair)
		} else {
			rest = append(rest, pair)
		}
	}
	sorted := make([][][2]*yaml.Node, len(order))
	for _, p := range known {
		r := rank[p[0].Value]
		sorted[r] = append(sorted[r], p)
	}
	content := make([]*yaml.Node, 0, len(m.node.Content))
	for _, pairs := range sorted {
		for _, p := range pairs {
			content = append(content, p[0], p[1])
		}
	}
	for _, p := range rest {
		content = append(content, p[0], p[1])
	}
	m.node.Content = content
}

// StringSeq returns a sequence of string scalars.
func StringSeq(values ...string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, v := range values {
		seq.Content = append(seq.Content, Scalar(v))
	}
	return seq
}

// Scalar returns a string scalar node.
func Scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// Encode converts a Go value into a node.
func Encode(v any) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return &n, nil
}

// SeqContains reports whether seq holds a scalar equal to value.
func SeqContains(seq *yaml.Node, value string) bool {
	for _, n := range seq.Content {
		if n.Kind == yaml.ScalarNode && n.Value == value {
			return true
		}
	}
	return false
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Alias != nil {
		c.Alias = cloneNode(n.Alias)
	}
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child)
		}
	}
	return &c
}

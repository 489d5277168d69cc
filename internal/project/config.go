package project

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Schema versions of lmproject.yml.
const (
	Schema1 = "1.0"
	Schema2 = "2.0"
)

// Config is one node of a project tree. The root carries the schema, version
// and packaging; every other node inherits them.
type Config struct {
	Schema            string             `yaml:"schema,omitempty" json:"schema,omitempty"`
	Name              string             `yaml:"name" json:"name"`
	Version           string             `yaml:"version,omitempty" json:"version,omitempty"`
	Type              Type               `yaml:"type,omitempty" json:"type,omitempty"`
	ResourceManager   ResourceManager    `yaml:"resource-manager,omitempty" json:"resource-manager,omitempty"`
	Directory         string             `yaml:"directory,omitempty" json:"directory,omitempty"`
	FullNameOverride  string             `yaml:"full-name-override,omitempty" json:"full-name-override,omitempty"`
	Packaging         Packaging          `yaml:"packaging,omitempty" json:"packaging,omitempty"`
	IncludedArtifacts []IncludedArtifact `yaml:"included-artifacts,omitempty" json:"included-artifacts,omitempty"`
	Contains          []*Config          `yaml:"contains,omitempty" json:"contains,omitempty"`

	parent *Config
}

// IncludedArtifact declares extra files to carry in the package.
type IncludedArtifact struct {
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`
	Path  string `yaml:"path" json:"path"`
	Items Items  `yaml:"items,omitempty" json:"items,omitempty"`
}

// Wildcard is the artifact item matching every file not named explicitly.
const Wildcard = "*"

// Items is the item list of an included artifact. A bare "*" is accepted as
// shorthand for ["*"].
type Items []string

// UnmarshalYAML accepts a scalar or a sequence.
func (i *Items) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*i = Items{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*i = items
		return nil
	default:
		return fmt.Errorf("line %d: items must be a string or a list of strings", node.Line)
	}
}

// Named returns the explicitly named items.
func (i Items) Named() []string {
	var named []string
	for _, item := range i {
		if item != Wildcard {
			named = append(named, item)
		}
	}
	return named
}

// HasWildcard reports whether the list contains "*".
func (i Items) HasWildcard() bool {
	for _, item := range i {
		if item == Wildcard {
			return true
		}
	}
	return false
}

// Parent returns the enclosing node, or nil for the root.
func (c *Config) Parent() *Config { return c.parent }

// IsRoot reports whether c has no parent.
func (c *Config) IsRoot() bool { return c.parent == nil }

// Root returns the top of the tree c belongs to.
func (c *Config) Root() *Config {
	r := c
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// EffectiveSchema returns the schema of the root.
func (c *Config) EffectiveSchema() string { return c.Root().Schema }

// EffectiveVersion returns the version of the root.
func (c *Config) EffectiveVersion() string { return c.Root().Version }

// EffectivePackaging returns the packaging of the root, defaulting to tgz.
func (c *Config) EffectivePackaging() Packaging {
	if p := c.Root().Packaging; p != "" {
		return p
	}
	return PackagingTgz
}

// EffectiveType returns the node type, defaulting to Assembly.
func (c *Config) EffectiveType() Type {
	if c.Type == "" {
		return TypeAssembly
	}
	return c.Type
}

// EffectiveDirectory returns the directory of a sub-project, defaulting to its name.
func (c *Config) EffectiveDirectory() string {
	if c.Directory == "" {
		return c.Name
	}
	return c.Directory
}

// FullName returns the node name followed by the full name of each ancestor,
// joined with "-".
func (c *Config) FullName() string {
	if c.FullNameOverride != "" {
		return c.FullNameOverride
	}
	if c.parent == nil {
		return c.Name
	}
	return c.Name + "-" + c.parent.FullName()
}

// DescriptorName returns "type::fullname::version" for the node.
func (c *Config) DescriptorName() string {
	return strings.Join([]string{c.EffectiveType().DescriptorType(), c.FullName(), c.EffectiveVersion()}, "::")
}

// TemplateDescriptorName returns the name given to an assembly template.
func (c *Config) TemplateDescriptorName() string {
	return strings.Join([]string{"assembly-template", c.FullName(), c.EffectiveVersion()}, "::")
}

// Walk visits c and then each descendant depth first, in declared order.
func (c *Config) Walk(fn func(*Config) error) error {
	if err := fn(c); err != nil {
		return err
	}
	for _, child := range c.Contains {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// link sets parent pointers below c.
func (c *Config) link() {
	for _, child := range c.Contains {
		child.parent = c
		child.link()
	}
}

// Link sets parent pointers throughout a tree built in code or decoded
// without Parse.
func Link(root *Config) *Config {
	root.parent = nil
	root.link()
	return root
}

// Check applies the structural rules every node must satisfy.
func (c *Config) Check() error {
	if c.IsRoot() {
		if c.Schema == "" {
			return fmt.Errorf("schema must be defined")
		}
		if c.Version == "" {
			return fmt.Errorf("version must be defined")
		}
		switch c.Packaging {
		case "", PackagingTgz, PackagingCsar:
		default:
			return fmt.Errorf("packaging must be one of: [%s %s]", PackagingTgz, PackagingCsar)
		}
	}
	return c.Walk(func(n *Config) error {
		if n.Name == "" {
			return fmt.Errorf("name must be defined")
		}
		t := n.EffectiveType()
		if !t.Valid() {
			return fmt.Errorf("project type must be one of: %v", KnownTypes)
		}
		if n.ResourceManager == "" {
			if t.RequiresResourceManager() {
				return fmt.Errorf("%s: resource_manager must be defined when type is %s", n.Name, t)
			}
		} else if !n.ResourceManager.Valid() {
			return fmt.Errorf("%s: resource_manager type not supported, must be one of: %s", n.Name, SupportedResourceManagers())
		}
		if t.IsETSIVNF() && n.ResourceManager.Group() != RMBrent {
			return fmt.Errorf("%s: resource_manager type not supported, for ETSI_VNF projects resource_manager must be one of: %v",
				n.Name, resourceManagerGroups[RMBrent])
		}
		dirs, names := sets.New[string](), sets.New[string]()
		for _, child := range n.Contains {
			dir := child.EffectiveDirectory()
			if dirs.Has(dir) {
				return fmt.Errorf("%s: more than one sub-project uses directory %q", n.Name, dir)
			}
			if names.Has(child.Name) {
				return fmt.Errorf("%s: more than one sub-project named %q", n.Name, child.Name)
			}
			dirs.Insert(dir)
			names.Insert(child.Name)
		}
		for _, a := range n.IncludedArtifacts {
			if a.Name == "" || a.Path == "" {
				return fmt.Errorf("%s: included artifacts must define a name and path", n.Name)
			}
		}
		return nil
	})
}

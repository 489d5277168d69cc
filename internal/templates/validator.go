package templates

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/opmodel/lmctl/internal/project"
)

// Project names become directory names and parts of descriptor names.
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateName checks that name can be used as a project name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.Contains(name, "::") || !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid project name %q: must start with a letter or digit and contain only letters, digits, '.', '_' and '-'", name)
	}
	return nil
}

// ParseChild parses a --contains value of the form name:type[:resource-manager].
func ParseChild(s string) (Child, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Child{}, fmt.Errorf("invalid sub-project %q: expected name:type[:resource-manager]", s)
	}
	c := Child{Name: parts[0], Type: project.Type(parts[1])}
	if len(parts) == 3 {
		c.ResourceManager = project.ResourceManager(parts[2])
	}
	if err := ValidateName(c.Name); err != nil {
		return Child{}, err
	}
	if !c.Type.Valid() {
		return Child{}, fmt.Errorf("invalid sub-project %q: unknown type %q, must be one of: %v", s, parts[1], project.KnownTypes)
	}
	return c, nil
}

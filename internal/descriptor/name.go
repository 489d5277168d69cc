package descriptor

import (
	"fmt"
	"strings"
)

// Separator joins the parts of a descriptor name.
const Separator = "::"

// Descriptor types used in names.
const (
	TypeAssembly         = "assembly"
	TypeAssemblyTemplate = "assembly-template"
	TypeResource         = "resource"
	TypeType             = "type"
)

// Name is the "type::name::version" triple identifying a descriptor.
type Name struct {
	Type    string
	Name    string
	Version string
}

// ParseName splits a descriptor name into its parts.
func ParseName(s string) (Name, error) {
	parts := strings.Split(s, Separator)
	if len(parts) != 3 {
		return Name{}, fmt.Errorf("descriptor name %q must have the form type%sname%sversion", s, Separator, Separator)
	}
	return Name{Type: parts[0], Name: parts[1], Version: parts[2]}, nil
}

// String joins the parts with Separator.
func (n Name) String() string {
	return strings.Join([]string{n.Type, n.Name, n.Version}, Separator)
}

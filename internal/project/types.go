package project

import (
	"fmt"
	"strings"
)

// Type is the content type of a project node as written in lmproject.yml.
// Comparisons are case-insensitive.
type Type string

// Project types.
const (
	TypeAssembly Type = "Assembly"
	TypeResource Type = "Resource"
	TypeType     Type = "Type"
	TypeETSINS   Type = "ETSI_NS"
	TypeETSIVNF  Type = "ETSI_VNF"

	// Legacy aliases for Assembly.
	TypeNS  Type = "NS"
	TypeVNF Type = "VNF"
)

// KnownTypes lists the canonical project types.
var KnownTypes = []Type{TypeAssembly, TypeResource, TypeType, TypeETSINS, TypeETSIVNF}

func (t Type) is(candidates ...Type) bool {
	for _, c := range candidates {
		if strings.EqualFold(string(t), string(c)) {
			return true
		}
	}
	return false
}

// IsAssembly reports whether t is Assembly or one of its legacy aliases.
func (t Type) IsAssembly() bool { return t.is(TypeAssembly, TypeNS, TypeVNF) }

// IsResource reports whether t is Resource.
func (t Type) IsResource() bool { return t.is(TypeResource) }

// IsType reports whether t is Type.
func (t Type) IsType() bool { return t.is(TypeType) }

// IsETSINS reports whether t is ETSI_NS.
func (t Type) IsETSINS() bool { return t.is(TypeETSINS) }

// IsETSIVNF reports whether t is ETSI_VNF.
func (t Type) IsETSIVNF() bool { return t.is(TypeETSIVNF) }

// Canonical returns the canonical spelling of t, or "" if t is unknown.
func (t Type) Canonical() Type {
	switch {
	case t.IsAssembly():
		return TypeAssembly
	case t.IsResource():
		return TypeResource
	case t.IsType():
		return TypeType
	case t.IsETSINS():
		return TypeETSINS
	case t.IsETSIVNF():
		return TypeETSIVNF
	default:
		return ""
	}
}

// Valid reports whether t is a known project type.
func (t Type) Valid() bool { return t.Canonical() != "" }

// RequiresResourceManager reports whether nodes of this type must name a resource manager.
func (t Type) RequiresResourceManager() bool { return t.IsResource() || t.IsETSIVNF() }

// DescriptorType returns the descriptor name prefix for t.
func (t Type) DescriptorType() string {
	switch {
	case t.IsResource(), t.IsETSIVNF():
		return "resource"
	case t.IsType():
		return "type"
	default:
		return "assembly"
	}
}

// ResourceManager names the resource manager a Resource project targets.
type ResourceManager string

// Canonical resource manager groups.
const (
	RMAnsible ResourceManager = "ansible-rm"
	RMBrent   ResourceManager = "brent"
	RMBrent21 ResourceManager = "brent2.1"
)

var resourceManagerGroups = map[ResourceManager][]ResourceManager{
	RMAnsible: {"ansible-rm", "ansiblerm"},
	RMBrent:   {"lm", "brent", "Brent"},
	RMBrent21: {"lm2.1", "brent2.1", "Brent2.1"},
}

// Group returns the canonical group of r, or "" if r is not supported.
// Aliases are matched exactly as listed.
func (r ResourceManager) Group() ResourceManager {
	for group, aliases := range resourceManagerGroups {
		for _, a := range aliases {
			if r == a {
				return group
			}
		}
	}
	return ""
}

// Valid reports whether r is a supported resource manager.
func (r ResourceManager) Valid() bool { return r.Group() != "" }

// SupportedResourceManagers describes the accepted spellings, grouped.
func SupportedResourceManagers() string {
	return fmt.Sprintf("%v", [][]ResourceManager{
		resourceManagerGroups[RMAnsible],
		resourceManagerGroups[RMBrent],
		resourceManagerGroups[RMBrent21],
	})
}

// Packaging selects the container format of the built package.
type Packaging string

// Packaging modes.
const (
	PackagingTgz  Packaging = "tgz"
	PackagingCsar Packaging = "csar"
)

package templates

import (
	"fmt"

	"github.com/opmodel/lmctl/internal/project"
)

// DefaultVersion is the version of a new project when none is given.
const DefaultVersion = "1.0"

// Skeleton layers under skeletons/. A project is rendered from one or more
// layers in order.
const (
	layerAssembly  = "assembly"
	layerType      = "type"
	layerBrent     = "brent"
	layerAnsibleRM = "ansible-rm"
	layerETSI      = "etsi"
)

// Layers returns the skeleton layers for a project of type t managed by rm.
func Layers(t project.Type, rm project.ResourceManager) ([]string, error) {
	switch {
	case t.IsAssembly():
		return []string{layerAssembly}, nil
	case t.IsType():
		return []string{layerType}, nil
	case t.IsETSINS():
		return []string{layerAssembly, layerETSI}, nil
	case t.IsETSIVNF():
		return []string{layerBrent, layerETSI}, nil
	case t.IsResource():
		switch rm.Group() {
		case project.RMBrent, project.RMBrent21:
			return []string{layerBrent}, nil
		case project.RMAnsible:
			return []string{layerAnsibleRM}, nil
		case "":
			return nil, fmt.Errorf("resource projects need a resource manager, one of: %s", project.SupportedResourceManagers())
		}
		return nil, fmt.Errorf("unsupported resource manager %q, must be one of: %s", rm, project.SupportedResourceManagers())
	default:
		return nil, fmt.Errorf("unsupported project type %q, must be one of: %v", t, project.KnownTypes)
	}
}

// Package version provides version information for lmctl.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/opmodel/lmctl/internal/project"
)

// Build-time variables set via ldflags.
var (
	// Version is the CLI version (set via ldflags).
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// cueModule is the module path of the CUE SDK used to check project files.
const cueModule = "cuelang.org/go"

// Info contains version information.
type Info struct {
	// Version is the CLI version (set via ldflags).
	Version string `json:"version"`

	// GitCommit is the git commit hash.
	GitCommit string `json:"gitCommit"`

	// BuildDate is the build timestamp.
	BuildDate string `json:"buildDate"`

	// GoVersion is the Go version used to build.
	GoVersion string `json:"goVersion"`

	// CUESDKVersion is the CUE SDK version linked into the binary.
	CUESDKVersion string `json:"cueSDKVersion"`

	// ProjectSchema is the project file schema written by this CLI.
	ProjectSchema string `json:"projectSchema"`
}

// Get returns the current version information.
func Get() Info {
	return Info{
		Version:       Version,
		GitCommit:     GitCommit,
		BuildDate:     BuildDate,
		GoVersion:     runtime.Version(),
		CUESDKVersion: dependencyVersion(cueModule),
		ProjectSchema: project.Schema2,
	}
}

// dependencyVersion returns the version of module path linked into the
// binary, or "unknown" outside a module build.
func dependencyVersion(path string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range bi.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return "unknown"
}

// String returns a human-readable version string.
func (i Info) String() string {
	return fmt.Sprintf("lmctl:\n  Version:    %s\n  Build ID:   %s/%s\n  Go Version: %s\n\nProjects:\n  Schema:      %s\n  CUE SDK:     %s",
		i.Version, i.BuildDate, i.GitCommit, i.GoVersion, i.ProjectSchema, i.CUESDKVersion)
}

// Package project provides the `lmctl project` command group.
package project

import (
	"github.com/spf13/cobra"

	"github.com/opmodel/lmctl/internal/cmdtypes"
)

// NewProjectCmd creates the project command group.
func NewProjectCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"proj"},
		Short:   "Project operations",
		Long:    `Commands for creating, building, pushing and testing Assembly and Resource projects.`,
	}

	cmd.AddCommand(
		NewCreateCmd(),
		NewValidateCmd(gc),
		NewBuildCmd(gc),
		NewPushCmd(gc),
		NewTestCmd(gc),
		NewListCmd(gc),
		NewPullCmd(gc),
	)

	return cmd
}

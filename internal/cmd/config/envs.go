package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	"github.com/opmodel/lmctl/internal/cmdutil"
	"github.com/opmodel/lmctl/internal/orchestrator"
	"github.com/opmodel/lmctl/internal/output"
)

// environmentView is the structured form of one configured environment.
// Credentials are never printed.
type environmentView struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	AuthMode string `json:"authMode"`
	Secure   bool   `json:"secure"`
	Default  bool   `json:"default"`
}

// NewConfigEnvsCmd creates the config envs command.
func NewConfigEnvsCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	var outputFlags cmdutil.OutputFlags

	c := &cobra.Command{
		Use:   "envs",
		Short: "List configured environments",
		RunE: func(c *cobra.Command, _ []string) error {
			return runConfigEnvs(c, gc, &outputFlags)
		},
	}
	outputFlags.AddTo(c)

	return c
}

func runConfigEnvs(c *cobra.Command, gc *cmdtypes.GlobalConfig, outputFlags *cmdutil.OutputFlags) error {
	format, err := outputFlags.Parse()
	if err != nil {
		return &cmdtypes.ExitError{Code: cmdtypes.ExitGeneralError, Err: err}
	}
	if gc == nil || gc.Config == nil {
		return &cmdtypes.ExitError{Code: cmdtypes.ExitNotFound, Err: fmt.Errorf("no configuration loaded")}
	}

	views := make([]environmentView, 0, len(gc.Config.Environments))
	for _, name := range gc.Config.EnvironmentNames() {
		env := gc.Config.Environments[name]
		mode := env.AuthMode
		if mode == "" {
			mode = orchestrator.AuthNone
		}
		views = append(views, environmentView{
			Name:     name,
			Address:  env.Address,
			AuthMode: string(mode),
			Secure:   env.Secure,
			Default:  name == gc.Config.DefaultEnvironment,
		})
	}

	out := c.OutOrStdout()
	if format != output.FormatTable {
		return cmdutil.WriteStructured(out, format, views)
	}

	if len(views) == 0 {
		fmt.Fprintln(out, "No environments configured.")
		return nil
	}
	tbl := output.NewTable("NAME", "ADDRESS", "AUTH", "SECURE", "DEFAULT")
	for _, v := range views {
		def := ""
		if v.Default {
			def = "*"
		}
		tbl.Row(v.Name, v.Address, v.AuthMode, strconv.FormatBool(v.Secure), def)
	}
	fmt.Fprintln(out, tbl.String())
	return nil
}

package config

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	"github.com/opmodel/lmctl/internal/config"
	"github.com/opmodel/lmctl/internal/output"
)

// NewConfigVetCmd creates the config vet command.
func NewConfigVetCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "vet",
		Short: "Validate the lmctl configuration file",
		Long: `Validate the lmctl configuration file.

Checks every environment has a usable address and the credentials its
authMode needs, then prints where each setting was resolved from.`,
		RunE: func(c *cobra.Command, _ []string) error {
			return runConfigVet(c, gc)
		},
	}
}

func runConfigVet(c *cobra.Command, gc *cmdtypes.GlobalConfig) error {
	path, err := configPath(gc)
	if err != nil {
		return err
	}

	exists, err := config.ConfigFileExists(path)
	if err != nil {
		return fmt.Errorf("checking config file: %w", err)
	}
	if !exists {
		return &cmdtypes.ExitError{
			Code: cmdtypes.ExitNotFound,
			Err:  fmt.Errorf("config file not found: %s", path),
		}
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(path)
	if err != nil {
		return &cmdtypes.ExitError{Code: cmdtypes.ExitValidationError, Err: err}
	}

	if err := config.Validate(cfg); err != nil {
		var validationErrs config.ValidationErrors
		if errors.As(err, &validationErrs) {
			w := c.ErrOrStderr()
			fmt.Fprintln(w, "Error: config validation failed")
			fmt.Fprintf(w, "  File: %s\n\n", path)
			for _, e := range validationErrs {
				fmt.Fprintf(w, "  %s: %s\n", e.Field, e.Message)
			}
			return &cmdtypes.ExitError{Code: cmdtypes.ExitValidationError, Err: err, Printed: true}
		}
		return fmt.Errorf("validating config: %w", err)
	}

	var flags map[string]string
	if gc != nil {
		flags = gc.Flags
	}
	tbl := output.NewTable("KEY", "VALUE", "SOURCE")
	for _, rv := range loader.Resolve(flags) {
		if rv.Source == "" {
			continue
		}
		tbl.Row(rv.Key, rv.Value, string(rv.Source))
	}

	out := c.OutOrStdout()
	fmt.Fprintln(out, output.FormatCheckmark(fmt.Sprintf("Config file is valid: %s", path)))
	if tbl.Len() > 0 {
		fmt.Fprintln(out, tbl.String())
	}
	return nil
}

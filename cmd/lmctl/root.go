package main

import (
	"strconv"

	"github.com/spf13/cobra"

	configcmd "github.com/opmodel/lmctl/internal/cmd/config"
	projectcmd "github.com/opmodel/lmctl/internal/cmd/project"
	"github.com/opmodel/lmctl/internal/cmdtypes"
	"github.com/opmodel/lmctl/internal/config"
	"github.com/opmodel/lmctl/internal/output"
	"github.com/opmodel/lmctl/internal/version"
)

// rootFlags are the global flags.
type rootFlags struct {
	config     string
	verbose    bool
	timestamps bool
}

// newRootCmd creates the base command. gc is filled in by PersistentPreRunE
// before any sub-command runs.
func newRootCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "lmctl",
		Short: "Lifecycle Manager project CLI",
		Long: `lmctl builds, pushes and tests Lifecycle Manager projects.

It provides commands to:
  - Create project skeletons for assemblies, resources and ETSI packages
  - Validate and build projects into packages
  - Push packages to an environment and run their behaviour tests
  - Pull descriptors and behaviour changed in an environment back into a project`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initializeGlobals(cmd, flags, gc)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Path to config file (env: LMCTL_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&flags.timestamps, "timestamps", true, "Show timestamps in log output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(configcmd.NewConfigCmd(gc))
	rootCmd.AddCommand(projectcmd.NewProjectCmd(gc))

	return rootCmd
}

// initializeGlobals loads configuration and sets up logging.
func initializeGlobals(cmd *cobra.Command, flags *rootFlags, gc *cmdtypes.GlobalConfig) error {
	resolvedPath, err := config.ResolveConfigPath(flags.config)
	if err != nil {
		return err
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(resolvedPath.ConfigPath)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		// Keep going: commands that do not need an environment still work.
		gc.ConfigErr = err
	}

	gc.Config = cfg
	gc.Loader = loader
	gc.ConfigPath = loader.Path()
	gc.Flags = map[string]string{}
	if cmd.Flags().Changed("verbose") {
		gc.Flags["log.verbose"] = strconv.FormatBool(flags.verbose)
	}
	if cmd.Flags().Changed("timestamps") {
		gc.Flags["log.timestamps"] = strconv.FormatBool(flags.timestamps)
	}

	logCfg := output.LogConfig{Verbose: flags.verbose}
	if cfg != nil && cfg.Log.Verbose {
		logCfg.Verbose = true
	}
	if cmd.Flags().Changed("timestamps") {
		logCfg.Timestamps = output.BoolPtr(flags.timestamps)
	} else if cfg != nil && cfg.Log.Timestamps != nil {
		logCfg.Timestamps = cfg.Log.Timestamps
	}
	output.SetupLogging(logCfg)
	gc.Verbose = logCfg.Verbose

	info := version.Get()
	output.Debug("lmctl started",
		"version", info.Version,
		"config", gc.ConfigPath,
		"config_source", resolvedPath.Source,
		"config_found", loader.Found(),
	)
	if gc.ConfigErr != nil {
		output.Debug("config load error", "error", gc.ConfigErr)
	}
	if gc.Verbose {
		config.LogResolvedValues(loader.Resolve(gc.Flags))
	}

	return nil
}

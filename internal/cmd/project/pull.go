package project

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	"github.com/opmodel/lmctl/internal/cmdutil"
	"github.com/opmodel/lmctl/internal/output"
	"github.com/opmodel/lmctl/internal/pull"
)

// pullOptions holds the flags for the pull command.
type pullOptions struct {
	project cmdutil.ProjectFlags
	env     cmdutil.EnvironmentFlags
	diff    bool
}

// NewPullCmd creates the project pull command.
func NewPullCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	opts := &pullOptions{}

	c := &cobra.Command{
		Use:   "pull [environment]",
		Short: "Pull descriptors and behaviour from an environment into a project",
		Long: `Pull retrieves the descriptor and behaviour of each Assembly and Type project
from the environment and overwrites the local sources. Every overwritten file
is first copied to _lmctl/pre_pull_backup.

With --diff, the changes between each backup and the pulled file are shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runPull(c, gc, opts, cmdutil.ResolveEnvironment(args))
		},
	}
	opts.project.AddTo(c)
	opts.env.AddTo(c)
	c.Flags().BoolVar(&opts.diff, "diff", false, "Show the changes made to each pulled file")

	return c
}

func runPull(c *cobra.Command, gc *cmdtypes.GlobalConfig, opts *pullOptions, environment string) error {
	p, err := openProject(opts.project.Path)
	if err != nil {
		return err
	}
	pl, _, err := newPipeline(gc, &cmdutil.EnvironmentOptions{Name: environment, Password: opts.env.Password})
	if err != nil {
		return err
	}

	var result *pull.Result
	err = output.RunWithSpinner(c.Context(), func(ctx context.Context) error {
		pulled, pullErr := pl.Pull(ctx, p)
		result = pulled
		return pullErr
	}, output.WithTitle(fmt.Sprintf("Pulling %s", p.Config.Name)))
	if err != nil {
		return failure(c.ErrOrStderr(), "pull failed", err)
	}

	out := c.OutOrStdout()
	printDiagnostics(out, result.Diagnostics)
	if opts.diff {
		changes, err := pullChanges(p.Tree.Root(), result.Changes, output.IsTTY())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, output.RenderPullChanges(changes))
		return nil
	}
	fmt.Fprintln(out, output.FormatCheckmark(fmt.Sprintf("Pulled %d file(s) into %s", len(result.Changes), p.Config.Name)))
	return nil
}

// pullChanges diffs each overwritten file against its backup. Paths are made
// relative to root.
func pullChanges(root string, changes []pull.Change, useColor bool) ([]output.FileChange, error) {
	out := make([]output.FileChange, 0, len(changes))
	for _, ch := range changes {
		before, err := os.ReadFile(ch.Backup)
		if err != nil {
			return nil, fmt.Errorf("reading backup: %w", err)
		}
		after, err := os.ReadFile(ch.Path)
		if err != nil {
			return nil, fmt.Errorf("reading pulled file: %w", err)
		}

		diff, err := output.DiffDocuments(before, after, useColor)
		if err != nil {
			// Not a YAML or JSON document.
			output.Debug("falling back to byte comparison", "path", ch.Path, "error", err)
			diff = ""
			if !bytes.Equal(before, after) {
				diff = "content changed"
			}
		}

		rel, err := filepath.Rel(root, ch.Path)
		if err != nil {
			rel = ch.Path
		}
		out = append(out, output.FileChange{Project: ch.Project, Path: filepath.ToSlash(rel), Diff: diff})
	}
	return out, nil
}

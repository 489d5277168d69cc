// Package main is the entry point for lmctl.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/opmodel/lmctl/internal/cmdtypes"
	oerrors "github.com/opmodel/lmctl/internal/errors"
)

func main() {
	rootCmd := newRootCmd(&cmdtypes.GlobalConfig{})

	if err := rootCmd.Execute(); err != nil {
		var exitErr *oerrors.ExitError
		if errors.As(err, &exitErr) {
			// Only print if the command layer hasn't already printed it
			if !exitErr.Printed {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cmdtypes.ExitCodeFromError(err))
	}
}

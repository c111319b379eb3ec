package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/tunescope/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a starter config file for the user to fill in.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s already exists", shared.ErrInvalidInput, path)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.writePlain("✓ Wrote %s\n", path)
	return r.writePlain("Fill in [credentials.google] with your OAuth client, then run `tunescope auth login`\n")
}

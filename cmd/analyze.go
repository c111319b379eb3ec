package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunescope/internal/formatter"
	"github.com/desertthunder/tunescope/internal/shared"
	"github.com/desertthunder/tunescope/internal/tasks"
	"github.com/urfave/cli/v3"
)

// AnalyzePlaylist fetches a playlist's tracks, resolves their metadata, and
// renders the resulting taste profile.
func (r *Runner) AnalyzePlaylist(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}

	playlistID := cmd.StringArg("playlist-id")
	if playlistID == "" {
		return fmt.Errorf("%w: playlist-id", shared.ErrMissingArgument)
	}

	prog := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range prog {
			r.logger.Info(update.Message, "phase", update.Phase, "current", update.Current, "total", update.Total)
		}
	}()

	result, err := r.engine.AnalyzePlaylist(ctx, playlistID, prog)
	close(prog)
	<-done
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", formatter.RenderProfile(result.Profile))
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/tunescope/internal/formatter"
	"github.com/desertthunder/tunescope/internal/shared"
	"github.com/urfave/cli/v3"
)

// LibraryPlaylists lists the authenticated user's playlists.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}

	playlists, err := r.library.Playlists(ctx, cmd.Int("max"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", formatter.RenderPlaylists(playlists))
}

// LibraryItems lists the tracks of one playlist in order.
func (r *Runner) LibraryItems(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}

	playlistID := cmd.StringArg("playlist-id")
	if playlistID == "" {
		return fmt.Errorf("%w: playlist-id", shared.ErrMissingArgument)
	}

	tracks, err := r.library.PlaylistItems(ctx, playlistID, cmd.Int("max"))
	if err != nil {
		return err
	}

	if path := cmd.String("csv"); path != "" {
		data, err := formatter.TracksToCSV(tracks)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write CSV file: %w", err)
		}
		return r.writePlain("✓ Wrote %d tracks to %s\n", len(tracks), path)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}
	return r.writePlain("%s", formatter.RenderTracks(tracks))
}

// LibraryVideos resolves full metadata for a set of video ids.
func (r *Runner) LibraryVideos(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}

	ids := cmd.StringArgs("video-id")
	if len(ids) == 0 {
		return fmt.Errorf("%w: video-id", shared.ErrMissingArgument)
	}

	details, err := r.library.VideoDetails(ctx, ids)
	if err != nil {
		return err
	}

	return r.writeJSON(details, cmd.Bool("pretty"))
}

// SearchMusic runs a free-text music search.
func (r *Runner) SearchMusic(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}

	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	hits, err := r.search.Music(ctx, query, cmd.Int("max"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(hits, true)
	}
	return r.writePlain("%s", formatter.RenderSearchHits(hits))
}

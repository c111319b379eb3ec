package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunescope/internal/analyzer"
	"github.com/desertthunder/tunescope/internal/shared"
)

// AnalysisResult pairs a taste profile with the playlist it describes.
type AnalysisResult struct {
	PlaylistID string                `json:"playlist_id"`
	Profile    analyzer.TasteProfile `json:"profile"`
}

// AnalyzePlaylist materializes a playlist's tracks, resolves their video
// metadata in batches, and runs the taste analysis.
//
// The item fetch is bounded by the analysis cap: there is no point paying
// quota for pages the sampler would discard anyway. Quota, auth, and
// not-found failures propagate unchanged; an analysis is never fabricated
// from a failed fetch.
func (e *Engine) AnalyzePlaylist(ctx context.Context, playlistID string, prog chan<- ProgressUpdate) (*AnalysisResult, error) {
	opts := e.opts
	if opts.TrackCap <= 0 {
		opts.TrackCap = 500
	}

	e.sendProgress(prog, ProgressUpdate{Phase: PhaseFetchingItems, Message: "fetching playlist items"})

	items, err := e.library.PlaylistItems(ctx, playlistID, opts.TrackCap)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: playlist %s is empty or inaccessible", shared.ErrPlaylistNotFound, playlistID)
	}

	e.logger.Info("analyzing playlist", "playlist", playlistID, "tracks", len(items))
	e.sendProgress(prog, ProgressUpdate{
		Phase:   PhaseResolvingDetails,
		Message: "resolving video metadata",
		Total:   len(items),
	})

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.VideoID)
	}

	details, err := e.library.VideoDetails(ctx, ids)
	if err != nil {
		return nil, err
	}

	tracks := make([]analyzer.Track, 0, len(items))
	for _, item := range items {
		track := analyzer.Track{
			VideoID:  item.VideoID,
			Title:    item.Title,
			Artist:   item.Artist,
			Song:     item.Song,
			Channel:  item.Channel,
			Position: item.Position,
		}
		if d, ok := details[item.VideoID]; ok {
			track.DurationSeconds = d.DurationSeconds
			track.PublishedAt = d.PublishedAt
		}
		tracks = append(tracks, track)
	}

	e.sendProgress(prog, ProgressUpdate{Phase: PhaseAnalyzing, Message: "building taste profile"})

	profile := analyzer.Analyze(tracks, opts)

	e.sendProgress(prog, ProgressUpdate{Phase: PhaseDone, Current: profile.AnalyzedTracks, Total: profile.TotalTracks})

	return &AnalysisResult{PlaylistID: playlistID, Profile: profile}, nil
}

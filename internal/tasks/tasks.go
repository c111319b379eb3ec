// package tasks orchestrates multi-call operations over the library services.
//
// The core abstraction is Engine, which materializes playlist data through
// the gateway-backed services and feeds it to the analyzer. Long operations
// emit progress updates via an optional channel for non-blocking status
// reporting to the CLI layer.
package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunescope/internal/analyzer"
	"github.com/desertthunder/tunescope/internal/services"
)

// Phase identifies the stage of a long-running operation.
type Phase string

const (
	PhaseFetchingItems    Phase = "fetching_items"
	PhaseResolvingDetails Phase = "resolving_details"
	PhaseAnalyzing        Phase = "analyzing"
	PhaseDone             Phase = "done"
)

// ProgressUpdate is a non-blocking status message emitted between stages.
type ProgressUpdate struct {
	Phase   Phase
	Message string
	Current int
	Total   int
}

// VideoResolver is the slice of the library the engine needs for metadata
// resolution.
type VideoResolver interface {
	PlaylistItems(ctx context.Context, playlistID string, max int) ([]services.Track, error)
	VideoDetails(ctx context.Context, videoIDs []string) (map[string]services.VideoDetails, error)
}

// Engine wires the library services to the analyzer.
type Engine struct {
	library VideoResolver
	logger  *log.Logger
	opts    analyzer.Options
}

// NewEngine creates an engine with the given analysis options.
func NewEngine(library VideoResolver, logger *log.Logger, opts analyzer.Options) *Engine {
	return &Engine{library: library, logger: logger, opts: opts}
}

// sendProgress delivers an update without blocking; a slow or absent consumer
// never stalls the operation.
func (e *Engine) sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}

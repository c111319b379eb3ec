package services

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/desertthunder/tunescope/internal/gateway"
)

// Caller is the slice of the gateway the services depend on.
type Caller interface {
	Call(ctx context.Context, ep gateway.Endpoint, params url.Values) ([]byte, error)
	CallPaged(ctx context.Context, ep gateway.Endpoint, params url.Values, maxItems int) ([]json.RawMessage, error)
}

// Playlist is a playlist in the authenticated user's library.
type Playlist struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ItemCount int    `json:"item_count"` // as reported by the provider; may be approximate
	Mine      bool   `json:"mine"`
}

// Track is a playlist item with partial video metadata. Duration and publish
// date require a separate [Library.VideoDetails] resolution.
type Track struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"` // raw, unnormalized; parsed from the title
	Song     string `json:"song"`
	Channel  string `json:"channel"`
	Position int    `json:"position"`
}

// VideoDetails is the full metadata for a single video.
type VideoDetails struct {
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title"`
	Channel         string    `json:"channel"`
	DurationSeconds int       `json:"duration_seconds"`
	PublishedAt     time.Time `json:"published_at"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	CategoryID      string    `json:"category_id,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
}

// SearchHit is a single music search result.
type SearchHit struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Song    string `json:"song"`
	Channel string `json:"channel"`
}

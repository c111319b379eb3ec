// YouTube Data API v3 library operations.
//
// Every method goes through the gateway, so cache, quota, and retry behavior
// is identical across endpoints. Response shapes follow
// https://developers.google.com/youtube/v3/docs
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunescope/internal/gateway"
	"github.com/desertthunder/tunescope/internal/shared"
)

const (
	// MaxIDsPerBatch is the provider's id cap for videos.list. Resolution
	// always batches up to this size; one call per id would burn quota for
	// nothing.
	MaxIDsPerBatch = 50

	// maxPageSize is the provider's page cap for list endpoints.
	maxPageSize = 50

	// maxSearchPageSize mirrors the original client's conservative search cap.
	maxSearchPageSize = 25

	// resolveWorkers bounds concurrent batch resolution. Each worker still
	// passes through the gateway's quota and cache checks.
	resolveWorkers = 3

	musicCategoryID = "10"
)

// Library provides read access to the authenticated user's playlists and
// video metadata.
type Library struct {
	gw     Caller
	logger *log.Logger

	listingTTL time.Duration
	videoTTL   time.Duration
}

// NewLibrary creates a library service with TTLs from cfg.
func NewLibrary(gw Caller, cfg shared.CacheConfig, logger *log.Logger) *Library {
	return &Library{
		gw:         gw,
		logger:     logger,
		listingTTL: secondsOr(cfg.ListingTTL, 300),
		videoTTL:   secondsOr(cfg.VideoTTL, 86400),
	}
}

func secondsOr(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

type playlistResource struct {
	ID      string `json:"id"`
	Snippet struct {
		Title string `json:"title"`
	} `json:"snippet"`
	ContentDetails struct {
		ItemCount int `json:"itemCount"`
	} `json:"contentDetails"`
}

// Playlists lists the user's playlists, fully paginated up to max (default
// 50).
func (l *Library) Playlists(ctx context.Context, max int) ([]Playlist, error) {
	if max <= 0 {
		max = 50
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("mine", "true")
	params.Set("maxResults", strconv.Itoa(min(max, maxPageSize)))

	ep := gateway.Endpoint{Name: "playlists.list", Path: "/playlists", TTL: l.listingTTL}
	items, err := l.gw.CallPaged(ctx, ep, params, max)
	if err != nil {
		return nil, err
	}

	playlists := make([]Playlist, 0, len(items))
	for _, item := range items {
		var res playlistResource
		if err := json.Unmarshal(item, &res); err != nil {
			return nil, fmt.Errorf("%w: playlist resource: %v", shared.ErrMalformedResponse, err)
		}
		playlists = append(playlists, Playlist{
			ID:        res.ID,
			Title:     res.Snippet.Title,
			ItemCount: res.ContentDetails.ItemCount,
			Mine:      true,
		})
	}

	return playlists, nil
}

type playlistItemResource struct {
	Snippet struct {
		Title                  string `json:"title"`
		Position               int    `json:"position"`
		VideoOwnerChannelTitle string `json:"videoOwnerChannelTitle"`
		ResourceID             struct {
			VideoID string `json:"videoId"`
		} `json:"resourceId"`
	} `json:"snippet"`
}

// PlaylistItems lists the items of a playlist in order, fully paginated up to
// max (default 200). Fails with [shared.ErrPlaylistNotFound] when the id does
// not resolve for the authenticated user.
func (l *Library) PlaylistItems(ctx context.Context, playlistID string, max int) ([]Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if max <= 0 {
		max = 200
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("playlistId", playlistID)
	params.Set("maxResults", strconv.Itoa(min(max, maxPageSize)))

	ep := gateway.Endpoint{Name: "playlistItems.list", Path: "/playlistItems", TTL: l.listingTTL}
	items, err := l.gw.CallPaged(ctx, ep, params, max)
	if err != nil {
		return nil, mapNotFound(err, shared.ErrPlaylistNotFound, playlistID)
	}

	tracks := make([]Track, 0, len(items))
	for _, item := range items {
		var res playlistItemResource
		if err := json.Unmarshal(item, &res); err != nil {
			return nil, fmt.Errorf("%w: playlist item: %v", shared.ErrMalformedResponse, err)
		}

		artist, song := ParseMusicTitle(res.Snippet.Title)
		tracks = append(tracks, Track{
			VideoID:  res.Snippet.ResourceID.VideoID,
			Title:    res.Snippet.Title,
			Artist:   artist,
			Song:     song,
			Channel:  res.Snippet.VideoOwnerChannelTitle,
			Position: res.Snippet.Position,
		})
	}

	return tracks, nil
}

type videoResource struct {
	ID      string `json:"id"`
	Snippet struct {
		Title        string    `json:"title"`
		ChannelTitle string    `json:"channelTitle"`
		PublishedAt  time.Time `json:"publishedAt"`
		CategoryID   string    `json:"categoryId"`
		Tags         []string  `json:"tags"`
	} `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Statistics struct {
		ViewCount string `json:"viewCount"`
		LikeCount string `json:"likeCount"`
	} `json:"statistics"`
}

type videoListResponse struct {
	Items []videoResource `json:"items"`
}

// VideoDetails resolves full metadata for a set of video ids.
//
// Ids are deduplicated and batched into [MaxIDsPerBatch]-sized calls; batches
// resolve on a small worker pool, each call passing through the gateway.
// Unknown ids are absent from the result; if nothing resolves at all the call
// fails with [shared.ErrVideoNotFound].
func (l *Library) VideoDetails(ctx context.Context, videoIDs []string) (map[string]VideoDetails, error) {
	ids := dedupe(videoIDs)
	if len(ids) == 0 {
		return map[string]VideoDetails{}, nil
	}

	batches := make([][]string, 0, (len(ids)+MaxIDsPerBatch-1)/MaxIDsPerBatch)
	for start := 0; start < len(ids); start += MaxIDsPerBatch {
		batches = append(batches, ids[start:min(start+MaxIDsPerBatch, len(ids))])
	}

	jobs := make(chan []string, len(batches))
	for _, batch := range batches {
		jobs <- batch
	}
	close(jobs)

	details := make(map[string]VideoDetails, len(ids))
	var mu sync.Mutex
	var firstErr error

	var wg sync.WaitGroup
	for range min(resolveWorkers, len(batches)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				resolved, err := l.resolveBatch(ctx, batch)

				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
				} else {
					for id, d := range resolved {
						details[id] = d
					}
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if len(details) == 0 {
		return nil, fmt.Errorf("%w: none of %d ids resolved", shared.ErrVideoNotFound, len(ids))
	}

	return details, nil
}

// resolveBatch fetches one videos.list call for up to [MaxIDsPerBatch] ids.
func (l *Library) resolveBatch(ctx context.Context, ids []string) (map[string]VideoDetails, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", strings.Join(ids, ","))

	ep := gateway.Endpoint{Name: "videos.list", Path: "/videos", TTL: l.videoTTL}
	payload, err := l.gw.Call(ctx, ep, params)
	if err != nil {
		return nil, err
	}

	var response videoListResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, fmt.Errorf("%w: video list: %v", shared.ErrMalformedResponse, err)
	}

	resolved := make(map[string]VideoDetails, len(response.Items))
	for _, item := range response.Items {
		resolved[item.ID] = VideoDetails{
			VideoID:         item.ID,
			Title:           item.Snippet.Title,
			Channel:         item.Snippet.ChannelTitle,
			DurationSeconds: ParseISODuration(item.ContentDetails.Duration),
			PublishedAt:     item.Snippet.PublishedAt,
			ViewCount:       parseCount(item.Statistics.ViewCount),
			LikeCount:       parseCount(item.Statistics.LikeCount),
			CategoryID:      item.Snippet.CategoryID,
			Tags:            item.Snippet.Tags,
		}
	}

	return resolved, nil
}

// Search provides free-text music search, a pure pass-through to the
// provider's search endpoint.
type Search struct {
	gw     Caller
	logger *log.Logger
	ttl    time.Duration
}

// NewSearch creates a search service with the TTL from cfg.
func NewSearch(gw Caller, cfg shared.CacheConfig, logger *log.Logger) *Search {
	return &Search{
		gw:     gw,
		logger: logger,
		ttl:    secondsOr(cfg.SearchTTL, 900),
	}
}

type searchResource struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
	} `json:"snippet"`
}

// Music searches for music videos matching query, returning up to max hits
// (default 10).
func (s *Search) Music(ctx context.Context, query string, max int) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if max <= 0 {
		max = 10
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("videoCategoryId", musicCategoryID)
	params.Set("maxResults", strconv.Itoa(min(max, maxSearchPageSize)))

	ep := gateway.Endpoint{Name: "search.list", Path: "/search", TTL: s.ttl}
	items, err := s.gw.CallPaged(ctx, ep, params, max)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(items))
	for _, item := range items {
		var res searchResource
		if err := json.Unmarshal(item, &res); err != nil {
			return nil, fmt.Errorf("%w: search result: %v", shared.ErrMalformedResponse, err)
		}

		artist, song := ParseMusicTitle(res.Snippet.Title)
		hits = append(hits, SearchHit{
			VideoID: res.ID.VideoID,
			Title:   res.Snippet.Title,
			Artist:  artist,
			Song:    song,
			Channel: res.Snippet.ChannelTitle,
		})
	}

	return hits, nil
}

// mapNotFound converts a provider 404 into the resource-specific sentinel.
func mapNotFound(err, sentinel error, id string) error {
	var statusErr *gateway.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == 404 {
		return fmt.Errorf("%w: %s", sentinel, id)
	}
	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

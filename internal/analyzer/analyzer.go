// package analyzer turns a materialized track list into a taste profile.
//
// Analysis is pure and deterministic: no network, no quota, and identical
// input always yields an identical profile. Ranking ties break by first
// appearance in playlist order, never by map iteration.
package analyzer

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tunescope/internal/services"
)

// Track is the analyzer's input: a playlist item merged with its resolved
// video metadata. PublishedAt is the zero value when unknown.
type Track struct {
	VideoID         string
	Title           string
	Artist          string // raw, unnormalized
	Song            string
	Channel         string
	Position        int
	DurationSeconds int
	PublishedAt     time.Time
}

// ArtistCount is one entry of the ranked artist list. Artist carries the
// most frequent raw spelling of the grouped variants.
type ArtistCount struct {
	Artist      string   `json:"artist"`
	Count       int      `json:"track_count"`
	SampleSongs []string `json:"sample_songs,omitempty"`
}

// ChannelCount is one entry of the ranked channel list.
type ChannelCount struct {
	Channel string `json:"channel"`
	Count   int    `json:"track_count"`
}

// EraBucket is one bar of the era histogram, keyed by decade ("2010s") or
// "unknown" when no publish date was available.
type EraBucket struct {
	Era   string `json:"era"`
	Count int    `json:"count"`
}

// DurationStats summarizes track lengths over the tracks that carried a
// duration.
type DurationStats struct {
	SampleSize      int     `json:"sample_size"`
	TotalMinutes    float64 `json:"total_minutes"`
	AvgTrackMinutes float64 `json:"avg_track_minutes"`
}

// TasteProfile is the structured output of an analysis: enough for a
// downstream component to generate prose without re-deriving statistics.
type TasteProfile struct {
	TotalTracks    int            `json:"total_tracks"`
	AnalyzedTracks int            `json:"analyzed_tracks"`
	Truncated      bool           `json:"truncated"`
	UniqueArtists  int            `json:"unique_artists"`
	TopArtists     []ArtistCount  `json:"top_artists"`
	TopChannels    []ChannelCount `json:"top_channels"`
	Eras           []EraBucket    `json:"era_histogram"`
	Duration       DurationStats  `json:"duration_stats"`
}

// Options tunes an analysis. Zero values fall back to the defaults.
type Options struct {
	TrackCap    int // sample cap; default 500
	TopArtists  int // ranked list length; default 15
	TopChannels int // ranked list length; default 10
}

const (
	defaultTrackCap    = 500
	defaultTopArtists  = 15
	defaultTopChannels = 10
	maxSampleSongs     = 3
)

func (o Options) withDefaults() Options {
	if o.TrackCap <= 0 {
		o.TrackCap = defaultTrackCap
	}
	if o.TopArtists <= 0 {
		o.TopArtists = defaultTopArtists
	}
	if o.TopChannels <= 0 {
		o.TopChannels = defaultTopChannels
	}
	return o
}

// Analyze builds a taste profile from tracks.
//
// Playlists above the track cap are uniformly sampled across their full
// length rather than truncated from the head, so the profile is not biased
// toward the playlist's start; Truncated is set and TotalTracks keeps the
// true count.
func Analyze(tracks []Track, opts Options) TasteProfile {
	opts = opts.withDefaults()

	total := len(tracks)
	analyzed := tracks
	truncated := false
	if total > opts.TrackCap {
		analyzed = sampleUniform(tracks, opts.TrackCap)
		truncated = true
	}

	profile := TasteProfile{
		TotalTracks:    total,
		AnalyzedTracks: len(analyzed),
		Truncated:      truncated,
	}

	profile.TopArtists, profile.UniqueArtists = rankArtists(analyzed, opts.TopArtists)
	profile.TopChannels = rankChannels(analyzed, opts.TopChannels)
	profile.Eras = eraHistogram(analyzed)
	profile.Duration = durationStats(analyzed)

	return profile
}

// sampleUniform picks limit tracks evenly spaced across the full list.
func sampleUniform(tracks []Track, limit int) []Track {
	sampled := make([]Track, 0, limit)
	for i := range limit {
		sampled = append(sampled, tracks[i*len(tracks)/limit])
	}
	return sampled
}

type artistGroup struct {
	count    int
	firstIdx int
	variants map[string]*variant
	songs    []string
}

type variant struct {
	count    int
	firstIdx int
}

// rankArtists groups tracks by case-folded artist name and ranks by
// frequency, ties broken by first appearance. Tracks whose title did not
// parse into an artist are excluded from the ranking but still count toward
// the profile's totals elsewhere.
func rankArtists(tracks []Track, top int) ([]ArtistCount, int) {
	groups := make(map[string]*artistGroup)

	for i, track := range tracks {
		raw := strings.TrimSpace(track.Artist)
		if raw == "" || raw == services.UnknownArtist {
			continue
		}
		key := strings.ToLower(raw)

		g, ok := groups[key]
		if !ok {
			g = &artistGroup{firstIdx: i, variants: make(map[string]*variant)}
			groups[key] = g
		}
		g.count++

		v, ok := g.variants[raw]
		if !ok {
			v = &variant{firstIdx: i}
			g.variants[raw] = v
		}
		v.count++

		if len(g.songs) < maxSampleSongs {
			song := track.Song
			if song == "" {
				song = track.Title
			}
			g.songs = append(g.songs, song)
		}
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		ga, gb := groups[keys[a]], groups[keys[b]]
		if ga.count != gb.count {
			return ga.count > gb.count
		}
		return ga.firstIdx < gb.firstIdx
	})

	ranked := make([]ArtistCount, 0, min(top, len(keys)))
	for _, key := range keys {
		if len(ranked) == top {
			break
		}
		g := groups[key]
		ranked = append(ranked, ArtistCount{
			Artist:      displayVariant(g.variants),
			Count:       g.count,
			SampleSongs: g.songs,
		})
	}

	return ranked, len(groups)
}

// displayVariant picks the most frequent raw spelling, ties broken by
// earliest appearance.
func displayVariant(variants map[string]*variant) string {
	raws := make([]string, 0, len(variants))
	for raw := range variants {
		raws = append(raws, raw)
	}
	sort.Slice(raws, func(a, b int) bool {
		va, vb := variants[raws[a]], variants[raws[b]]
		if va.count != vb.count {
			return va.count > vb.count
		}
		return va.firstIdx < vb.firstIdx
	})
	return raws[0]
}

func rankChannels(tracks []Track, top int) []ChannelCount {
	counts := make(map[string]int)
	firstIdx := make(map[string]int)

	for i, track := range tracks {
		channel := strings.TrimSpace(track.Channel)
		if channel == "" {
			continue
		}
		if _, ok := counts[channel]; !ok {
			firstIdx[channel] = i
		}
		counts[channel]++
	}

	channels := make([]string, 0, len(counts))
	for channel := range counts {
		channels = append(channels, channel)
	}
	sort.Slice(channels, func(a, b int) bool {
		if counts[channels[a]] != counts[channels[b]] {
			return counts[channels[a]] > counts[channels[b]]
		}
		return firstIdx[channels[a]] < firstIdx[channels[b]]
	})

	ranked := make([]ChannelCount, 0, min(top, len(channels)))
	for _, channel := range channels {
		if len(ranked) == top {
			break
		}
		ranked = append(ranked, ChannelCount{Channel: channel, Count: counts[channel]})
	}
	return ranked
}

// UnknownEra is the histogram bucket for tracks without a publish date.
const UnknownEra = "unknown"

// eraHistogram buckets tracks by publish-date decade, oldest first, with the
// unknown bucket always last.
func eraHistogram(tracks []Track) []EraBucket {
	counts := make(map[string]int)
	for _, track := range tracks {
		counts[eraOf(track.PublishedAt)]++
	}

	eras := make([]string, 0, len(counts))
	for era := range counts {
		eras = append(eras, era)
	}
	sort.Slice(eras, func(a, b int) bool {
		if eras[a] == UnknownEra {
			return false
		}
		if eras[b] == UnknownEra {
			return true
		}
		return eras[a] < eras[b]
	})

	histogram := make([]EraBucket, 0, len(eras))
	for _, era := range eras {
		histogram = append(histogram, EraBucket{Era: era, Count: counts[era]})
	}
	return histogram
}

func eraOf(published time.Time) string {
	if published.IsZero() {
		return UnknownEra
	}
	decade := (published.UTC().Year() / 10) * 10
	return strconv.Itoa(decade) + "s"
}

func durationStats(tracks []Track) DurationStats {
	stats := DurationStats{}
	totalSeconds := 0
	for _, track := range tracks {
		if track.DurationSeconds <= 0 {
			continue
		}
		stats.SampleSize++
		totalSeconds += track.DurationSeconds
	}

	if stats.SampleSize == 0 {
		return stats
	}

	stats.TotalMinutes = math.Round(float64(totalSeconds)/60*10) / 10
	stats.AvgTrackMinutes = math.Round(float64(totalSeconds)/float64(stats.SampleSize)/60*100) / 100
	return stats
}

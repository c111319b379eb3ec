// package formatter renders library data and taste profiles for the terminal
// and exports track listings to CSV.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/tunescope/internal/analyzer"
	"github.com/desertthunder/tunescope/internal/services"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	countStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// RenderPlaylists renders a playlist listing as aligned rows.
func RenderPlaylists(playlists []services.Playlist) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Playlists (%d)", len(playlists))))
	b.WriteString("\n")

	for _, p := range playlists {
		b.WriteString(fmt.Sprintf("%s  %s %s\n",
			dimStyle.Render(p.ID),
			p.Title,
			countStyle.Render(fmt.Sprintf("(%d items)", p.ItemCount)),
		))
	}
	return b.String()
}

// RenderTracks renders playlist items in playlist order.
func RenderTracks(tracks []services.Track) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Tracks (%d)", len(tracks))))
	b.WriteString("\n")

	for _, t := range tracks {
		b.WriteString(fmt.Sprintf("%3d. %s - %s %s\n",
			t.Position+1,
			t.Artist,
			t.Song,
			dimStyle.Render(t.VideoID),
		))
	}
	return b.String()
}

// RenderSearchHits renders search results.
func RenderSearchHits(hits []services.SearchHit) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Results (%d)", len(hits))))
	b.WriteString("\n")

	for i, h := range hits {
		b.WriteString(fmt.Sprintf("%2d. %s - %s %s\n",
			i+1,
			h.Artist,
			h.Song,
			dimStyle.Render(h.VideoID),
		))
	}
	return b.String()
}

// RenderProfile renders a taste profile: ranked artists, era histogram, and
// the counts a reader needs to judge the sample.
func RenderProfile(result analyzer.TasteProfile) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Taste Profile"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Tracks analyzed: %d of %d", result.AnalyzedTracks, result.TotalTracks))
	if result.Truncated {
		b.WriteString(dimStyle.Render(" (uniformly sampled)"))
	}
	b.WriteString(fmt.Sprintf("\nUnique artists: %d\n", result.UniqueArtists))

	if result.Duration.SampleSize > 0 {
		b.WriteString(fmt.Sprintf("Duration: %.1f min total, %.2f min avg over %d tracks\n",
			result.Duration.TotalMinutes, result.Duration.AvgTrackMinutes, result.Duration.SampleSize))
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Top Artists"))
	b.WriteString("\n")
	for i, a := range result.TopArtists {
		b.WriteString(fmt.Sprintf("%2d. %s %s\n", i+1, a.Artist,
			countStyle.Render(fmt.Sprintf("×%d", a.Count))))
		if len(a.SampleSongs) > 0 {
			b.WriteString(dimStyle.Render("    " + strings.Join(a.SampleSongs, ", ")))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Eras"))
	b.WriteString("\n")
	for _, era := range result.Eras {
		b.WriteString(fmt.Sprintf("%-8s %s %d\n", era.Era, bar(era.Count, result.AnalyzedTracks), era.Count))
	}

	if len(result.TopChannels) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Top Channels"))
		b.WriteString("\n")
		for i, c := range result.TopChannels {
			b.WriteString(fmt.Sprintf("%2d. %s %s\n", i+1, c.Channel,
				countStyle.Render(fmt.Sprintf("×%d", c.Count))))
		}
	}

	return b.String()
}

// bar renders a proportional histogram bar, at most 30 cells wide.
func bar(count, total int) string {
	if total <= 0 {
		return ""
	}
	width := count * 30 / total
	if width == 0 && count > 0 {
		width = 1
	}
	return countStyle.Render(strings.Repeat("█", width))
}

// TracksToCSV converts a track listing to CSV with columns: VideoID, Title,
// Artist, Song, Channel, Position.
func TracksToCSV(tracks []services.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"VideoID", "Title", "Artist", "Song", "Channel", "Position"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.VideoID,
			track.Title,
			track.Artist,
			track.Song,
			track.Channel,
			strconv.Itoa(track.Position),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

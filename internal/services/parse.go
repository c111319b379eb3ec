package services

import (
	"regexp"
	"strconv"
	"strings"
)

// UnknownArtist is the artist value for titles that do not parse.
const UnknownArtist = "Unknown"

// noiseSuffix strips common music-video qualifiers before splitting, e.g.
// "(Official Video)", "[Lyrics]", "(Live)".
var noiseSuffix = regexp.MustCompile(`(?i)\s*[(\[](?:Official\s*)?(?:Music\s*)?(?:Video|Audio|Lyrics?|HD|4K|Live|Remix|Cover)[)\]]`)

// splitPatterns match "Artist - Song", "Artist: Song", and "Artist | Song".
var splitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.+?)\s*[-–—:]\s*(.+?)$`),
	regexp.MustCompile(`^(.+?)\s*\|\s*(.+?)$`),
}

// ParseMusicTitle splits a video title into artist and song. Titles that do
// not match any known convention return [UnknownArtist] and the cleaned title
// as the song.
func ParseMusicTitle(title string) (artist, song string) {
	clean := strings.TrimSpace(noiseSuffix.ReplaceAllString(title, ""))

	for _, pattern := range splitPatterns {
		match := pattern.FindStringSubmatch(clean)
		if match == nil {
			continue
		}

		artist = strings.TrimSpace(match[1])
		song = strings.TrimSpace(match[2])
		if artist != "" && song != "" && len(artist) < 100 && len(song) < 200 {
			return artist, song
		}
	}

	return UnknownArtist, clean
}

// isoDuration matches ISO 8601 durations as emitted by the provider,
// e.g. "PT4M30S", "PT1H2M", "PT45S".
var isoDuration = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration converts an ISO 8601 duration to seconds. Unparseable
// input returns 0.
func ParseISODuration(s string) int {
	match := isoDuration.FindStringSubmatch(s)
	if match == nil {
		return 0
	}

	hours, _ := strconv.Atoi(zeroIfEmpty(match[1]))
	minutes, _ := strconv.Atoi(zeroIfEmpty(match[2]))
	seconds, _ := strconv.Atoi(zeroIfEmpty(match[3]))

	return hours*3600 + minutes*60 + seconds
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

package playlist

import (
	"fmt"
	"strings"
)

const sampleTrackCount = 3

// FormatSet returns a human-readable summary of a DJ set. Seeds are
// abbreviated to the first three; every set track is listed.
func FormatSet(set *Set) string {
	var sb strings.Builder

	trackWord := "track"
	if len(set.Tracks) != 1 {
		trackWord = "tracks"
	}
	fmt.Fprintf(&sb, "DJ set %s: %d %s from %s top tracks\n",
		set.ID, len(set.Tracks), trackWord, strings.ReplaceAll(string(set.TimeRange), "_", " "))

	if set.Averages != nil {
		m := Mood(*set.Averages)
		fmt.Fprintf(&sb, "Mood: %s (energy %.2f, valence %.2f, tempo %.0f bpm)\n",
			m.Name, m.Energy, m.Valence, set.Averages.Tempo)
	}

	seedSource := "cluster"
	if set.SeedFallback {
		seedSource = "random pick"
	}
	fmt.Fprintf(&sb, "\nSeeds (%s):\n", seedSource)

	sampleCount := min(sampleTrackCount, len(set.Seeds))
	for _, t := range set.Seeds[:sampleCount] {
		fmt.Fprintf(&sb, "  • %q - %s\n", t.Name, t.Artist)
	}
	if remaining := len(set.Seeds) - sampleTrackCount; remaining > 0 {
		fmt.Fprintf(&sb, "  ... and %d more\n", remaining)
	}

	if set.TrackFallback {
		sb.WriteString("\nTracks (recommendations unavailable, from top tracks):\n")
	} else {
		sb.WriteString("\nTracks:\n")
	}
	for i, t := range set.Tracks {
		fmt.Fprintf(&sb, "  %d. %q - %s\n", i+1, t.Name, t.Artist)
	}

	return sb.String()
}

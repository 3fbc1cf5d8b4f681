package playlist

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/justestif/go-spotify-radio-dj/internal/spotify"
)

func TestFormatSet(t *testing.T) {
	track := func(name, artist string) spotify.Track {
		return spotify.Track{ID: name, Name: name, Artist: artist}
	}
	id := uuid.MustParse("6f1c2f7e-3a9b-4c39-9d36-0f9d7e6c1a11")

	tests := []struct {
		name           string
		set            *Set
		wantContains   []string
		wantNotContain []string
	}{
		{
			name: "clustered set",
			set: &Set{
				ID:        id,
				TimeRange: spotify.MediumTerm,
				Seeds: []spotify.Track{
					track("A", "X"), track("B", "X"), track("C", "Y"), track("D", "Y"), track("E", "Z"),
				},
				Tracks:   []spotify.Track{track("R1", "Q"), track("R2", "W")},
				Averages: &spotify.AudioFeatures{Energy: 0.8, Valence: 0.7, Tempo: 124},
			},
			wantContains: []string{
				"DJ set 6f1c2f7e-3a9b-4c39-9d36-0f9d7e6c1a11: 2 tracks from medium term top tracks",
				"Mood: Upbeat Party (energy 0.80, valence 0.70, tempo 124 bpm)",
				"Seeds (cluster):",
				`• "A" - X`,
				`• "C" - Y`,
				"... and 2 more",
				`1. "R1" - Q`,
				`2. "R2" - W`,
			},
			wantNotContain: []string{`"D"`, "unavailable"},
		},
		{
			name: "fallback set",
			set: &Set{
				ID:            id,
				TimeRange:     spotify.ShortTerm,
				Seeds:         []spotify.Track{track("A", "X")},
				Tracks:        []spotify.Track{track("A", "X")},
				SeedFallback:  true,
				TrackFallback: true,
			},
			wantContains: []string{
				"1 track from short term",
				"Seeds (random pick):",
				"recommendations unavailable",
			},
			wantNotContain: []string{"Mood:", "more"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatSet(tt.set)
			for _, want := range tt.wantContains {
				assert.True(t, strings.Contains(got, want), "missing %q in:\n%s", want, got)
			}
			for _, not := range tt.wantNotContain {
				assert.False(t, strings.Contains(got, not), "unexpected %q in:\n%s", not, got)
			}
		})
	}
}

package playlist

import "github.com/justestif/go-spotify-radio-dj/internal/spotify"

// Quadrant thresholds for mood naming.
const (
	highEnergy     = 0.6
	highValence    = 0.5
	highAcoustic   = 0.6
	acousticSuffix = " (Acoustic)"
)

// MoodName describes averaged audio features.
// Uses a 2x2 energy/valence quadrant system with acousticness modifier.
//
// Quadrants:
//   - High Energy + High Valence = "Upbeat Party"
//   - High Energy + Low Valence  = "Intense & Dark"
//   - Low Energy  + High Valence = "Chill & Happy"
//   - Low Energy  + Low Valence  = "Reflective & Melancholy"
//
// Tempo is ignored.
func MoodName(f spotify.AudioFeatures) string {
	var name string
	switch quadrantOf(f) {
	case partyQuadrant:
		name = "Upbeat Party"
	case darkQuadrant:
		name = "Intense & Dark"
	case chillQuadrant:
		name = "Chill & Happy"
	default:
		name = "Reflective & Melancholy"
	}

	if f.Acousticness > highAcoustic {
		return name + acousticSuffix
	}
	return name
}

type quadrant int

const (
	partyQuadrant quadrant = iota
	darkQuadrant
	chillQuadrant
	reflectiveQuadrant
)

func quadrantOf(f spotify.AudioFeatures) quadrant {
	energetic := f.Energy > highEnergy
	positive := f.Valence > highValence
	switch {
	case energetic && positive:
		return partyQuadrant
	case energetic:
		return darkQuadrant
	case positive:
		return chillQuadrant
	}
	return reflectiveQuadrant
}

// MoodCategory represents a mood classification for display purposes.
type MoodCategory struct {
	Name        string  `json:"name"`
	Energy      float64 `json:"energy"`
	Valence     float64 `json:"valence"`
	Description string  `json:"description"`
}

// Mood returns the named mood and a short description for f.
func Mood(f spotify.AudioFeatures) MoodCategory {
	var description string
	switch quadrantOf(f) {
	case partyQuadrant:
		description = "High-energy, positive vibes for dancing"
	case darkQuadrant:
		description = "Intense, driving energy with darker tones"
	case chillQuadrant:
		description = "Relaxed and uplifting"
	default:
		description = "Contemplative and introspective"
	}

	return MoodCategory{
		Name:        MoodName(f),
		Energy:      f.Energy,
		Valence:     f.Valence,
		Description: description,
	}
}

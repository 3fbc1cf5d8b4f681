package spotify

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

// MaxTopTracks is the page size limit for the top tracks endpoint.
const MaxTopTracks = 50

// TimeRange selects the listening window for top tracks.
type TimeRange string

const (
	LongTerm   TimeRange = "long_term"
	MediumTerm TimeRange = "medium_term"
	ShortTerm  TimeRange = "short_term"
)

// TimeRanges lists every supported time range.
var TimeRanges = []TimeRange{LongTerm, MediumTerm, ShortTerm}

// RandomTimeRange picks one of TimeRanges uniformly.
func RandomTimeRange(rng *rand.Rand) TimeRange {
	return TimeRanges[rng.IntN(len(TimeRanges))]
}

// FeatureNames lists the audio features used for clustering, in vector order.
var FeatureNames = []string{"acousticness", "danceability", "energy", "valence", "tempo"}

// AudioFeatures holds the subset of Spotify audio features used for clustering.
type AudioFeatures struct {
	Acousticness float64 `json:"acousticness"`
	Danceability float64 `json:"danceability"`
	Energy       float64 `json:"energy"`
	Valence      float64 `json:"valence"`
	Tempo        float64 `json:"tempo"`
}

// Vector returns the features in FeatureNames order.
func (f AudioFeatures) Vector() vector.Vector {
	return vector.New(f.Acousticness, f.Danceability, f.Energy, f.Valence, f.Tempo)
}

// FeaturesFromVector is the inverse of AudioFeatures.Vector.
func FeaturesFromVector(v vector.Vector) AudioFeatures {
	return AudioFeatures{
		Acousticness: v[0],
		Danceability: v[1],
		Energy:       v[2],
		Valence:      v[3],
		Tempo:        v[4],
	}
}

// Track contains the track metadata a DJ set needs.
type Track struct {
	ID         string         `json:"id"`
	URI        string         `json:"uri"`
	Name       string         `json:"name"`
	Artist     string         `json:"artist"` // Comma-separated artist names
	Album      string         `json:"album"`
	ArtworkURL string         `json:"artwork_url,omitempty"`
	DurationMs int            `json:"duration_ms"`
	Features   *AudioFeatures `json:"features,omitempty"` // nil until fetched or when unavailable
}

// FetchTopTracks retrieves up to limit (at most MaxTopTracks) of the user's
// top tracks for timeRange.
func (c *Client) FetchTopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]Track, error) {
	if limit <= 0 || limit > MaxTopTracks {
		limit = MaxTopTracks
	}

	page, err := c.api.CurrentUsersTopTracks(ctx,
		spotify.Timerange(spotify.Range(timeRange)),
		spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks: %w", err)
	}
	if len(page.Tracks) == 0 {
		return nil, fmt.Errorf("fetching top tracks (%s): %w", timeRange, ErrNoTracks)
	}

	tracks := make([]Track, len(page.Tracks))
	for i, t := range page.Tracks {
		tracks[i] = convertTrack(t.SimpleTrack, t.Album)
	}

	log.Debug().Int("tracks", len(tracks)).Str("time_range", string(timeRange)).Msg("fetched top tracks")
	return tracks, nil
}

// convertTrack converts a Spotify track and its album to Track.
func convertTrack(t spotify.SimpleTrack, album spotify.SimpleAlbum) Track {
	// Join artist names
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return Track{
		ID:         t.ID.String(),
		URI:        string(t.URI),
		Name:       t.Name,
		Artist:     strings.Join(artists, ", "),
		Album:      album.Name,
		ArtworkURL: largestImage(album.Images),
		DurationMs: int(t.Duration),
	}
}

// largestImage returns the URL of the widest image, or "" if there are none.
func largestImage(images []spotify.Image) string {
	best := -1
	for i, img := range images {
		if best < 0 || img.Width > images[best].Width {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return images[best].URL
}

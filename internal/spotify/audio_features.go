package spotify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
)

const maxTracksPerRequest = 100

// FetchAudioFeatures retrieves audio features for the given tracks.
// Updates tracks in-place with their audio features.
// Batches requests to max 100 tracks per request per Spotify API limits.
// Tracks without available audio features keep a nil Features field.
func (c *Client) FetchAudioFeatures(ctx context.Context, tracks []Track) error {
	if len(tracks) == 0 {
		return nil
	}

	// Build ID slice and index map for fast lookup
	ids := make([]spotify.ID, len(tracks))
	indexByID := make(map[string][]int, len(tracks))
	for i, t := range tracks {
		ids[i] = spotify.ID(t.ID)
		indexByID[t.ID] = append(indexByID[t.ID], i)
	}

	total := len(ids)
	found := 0

	for i := 0; i < total; i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, total)
		batch := ids[i:end]

		features, err := c.api.GetAudioFeatures(ctx, batch...)
		if err != nil {
			return fmt.Errorf("fetching audio features (batch %d-%d): %w", i+1, end, err)
		}

		for _, f := range features {
			if f == nil {
				continue // Track has no audio features
			}
			for _, idx := range indexByID[f.ID.String()] {
				tracks[idx].Features = convertFeatures(f)
				found++
			}
		}
	}

	log.Debug().Int("tracks", total).Int("with_features", found).Msg("fetched audio features")
	return nil
}

// convertFeatures copies the clustering features from a Spotify response.
func convertFeatures(f *spotify.AudioFeatures) *AudioFeatures {
	return &AudioFeatures{
		Acousticness: float64(f.Acousticness),
		Danceability: float64(f.Danceability),
		Energy:       float64(f.Energy),
		Valence:      float64(f.Valence),
		Tempo:        float64(f.Tempo),
	}
}

package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// MaxSeeds is the most seed tracks the recommendations endpoint accepts.
const MaxSeeds = 5

// Recommendations returns up to limit tracks recommended from seedIDs. Only
// the first MaxSeeds ids are sent.
func (c *Client) Recommendations(ctx context.Context, seedIDs []string, limit int) ([]Track, error) {
	if len(seedIDs) == 0 {
		return nil, fmt.Errorf("getting recommendations: %w", ErrNoTracks)
	}
	if len(seedIDs) > MaxSeeds {
		seedIDs = seedIDs[:MaxSeeds]
	}

	seeds := spotify.Seeds{Tracks: make([]spotify.ID, len(seedIDs))}
	for i, id := range seedIDs {
		seeds.Tracks[i] = spotify.ID(id)
	}

	recs, err := c.api.GetRecommendations(ctx, seeds, nil, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("getting recommendations: %w", err)
	}

	tracks := make([]Track, len(recs.Tracks))
	for i, t := range recs.Tracks {
		tracks[i] = convertTrack(t, t.Album)
	}
	return tracks, nil
}

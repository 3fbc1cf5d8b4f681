package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// SavePlaylist creates a private playlist for the current user holding tracks
// in order. Returns the playlist ID.
func (c *Client) SavePlaylist(ctx context.Context, name, description string, tracks []Track) (string, error) {
	userID, err := c.UserID(ctx)
	if err != nil {
		return "", err
	}

	playlist, err := c.api.CreatePlaylistForUser(ctx, userID, name, description, false, false)
	if err != nil {
		return "", fmt.Errorf("creating playlist: %w", err)
	}

	ids := make([]spotify.ID, len(tracks))
	for i, t := range tracks {
		ids[i] = spotify.ID(t.ID)
	}

	// Spotify allows max 100 tracks per request.
	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))
		if _, err := c.api.AddTracksToPlaylist(ctx, playlist.ID, ids[i:end]...); err != nil {
			return "", fmt.Errorf("adding tracks (batch %d-%d): %w", i+1, end, err)
		}
	}

	return playlist.ID.String(), nil
}

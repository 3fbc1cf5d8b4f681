// Package spotify wraps the Spotify Web API calls the DJ set builder needs.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const tokenURL = "https://accounts.spotify.com/api/token"

// ErrNoTracks is returned when the user has no top tracks to seed from.
var ErrNoTracks = errors.New("no tracks")

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// NewFromToken creates a client that sends a caller-supplied access token.
// The token is not refreshed.
func NewFromToken(ctx context.Context, accessToken string, opts ...spotify.ClientOption) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})
	return New(spotify.New(oauth2.NewClient(ctx, ts), opts...))
}

// NewFromCredentials creates a client authorized with the client credentials
// grant. It can only make catalog requests, not user-scoped ones.
func NewFromCredentials(ctx context.Context, clientID, clientSecret string, opts ...spotify.ClientOption) *Client {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	return New(spotify.New(cfg.Client(ctx), opts...))
}

// NewWithHTTPClient creates a client over an already-authorized HTTP client.
func NewWithHTTPClient(httpClient *http.Client, opts ...spotify.ClientOption) *Client {
	return New(spotify.New(httpClient, opts...))
}

// UserID returns the current user's Spotify ID.
func (c *Client) UserID(ctx context.Context) (string, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("getting current user: %w", err)
	}
	return user.ID, nil
}

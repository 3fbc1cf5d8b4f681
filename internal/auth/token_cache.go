// Package auth remembers the Spotify access token a user last supplied to the
// CLI. Obtaining tokens is left to the caller.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	configDirName = "go-spotify-radio-dj"
	tokenFileName = "token.json"
)

// ErrNoToken is returned by Resolve when no usable token is available.
var ErrNoToken = errors.New("no Spotify access token")

// TokenCache handles persistent storage of access tokens.
type TokenCache struct {
	path string
}

// DefaultTokenCache returns a TokenCache using the default location:
// ~/.config/go-spotify-radio-dj/token.json
func DefaultTokenCache() (*TokenCache, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting user config dir: %w", err)
	}
	return NewTokenCache(filepath.Join(configDir, configDirName, tokenFileName)), nil
}

// NewTokenCache creates a TokenCache with a custom path.
func NewTokenCache(path string) *TokenCache {
	return &TokenCache{path: path}
}

// Path returns the file path where tokens are stored.
func (c *TokenCache) Path() string {
	return c.path
}

// Load reads a cached token from disk.
// Returns (nil, nil) if the token file does not exist.
func (c *TokenCache) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parsing token file: %w", err)
	}
	return &token, nil
}

// Save writes the token to disk with owner-only permissions, creating the
// parent directory if needed.
func (c *TokenCache) Save(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return errors.New("cannot save empty token")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// Delete removes the cached token file.
// Returns nil if the file does not exist.
func (c *TokenCache) Delete() error {
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

// Resolve returns the access token to use. A non-empty supplied token is saved
// with a one hour expiry, matching Spotify's token lifetime, and returned.
// Otherwise the cached token is returned if it has not expired.
func (c *TokenCache) Resolve(supplied string) (string, error) {
	if supplied = strings.TrimSpace(supplied); supplied != "" {
		token := &oauth2.Token{
			AccessToken: supplied,
			TokenType:   "Bearer",
			Expiry:      time.Now().Add(time.Hour),
		}
		if err := c.Save(token); err != nil {
			return "", err
		}
		return supplied, nil
	}

	token, err := c.Load()
	if err != nil {
		return "", err
	}
	if token == nil || !token.Valid() {
		return "", ErrNoToken
	}
	return token.AccessToken, nil
}

package auth

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenCacheSaveAndLoad(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))

	token := &oauth2.Token{
		AccessToken: "access",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour).Truncate(time.Second),
	}
	require.NoError(t, cache.Save(token))

	got, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, token.AccessToken, got.AccessToken)
	assert.True(t, token.Expiry.Equal(got.Expiry))
}

func TestTokenCacheLoadNonExistent(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "missing.json"))

	got, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenCacheLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewTokenCache(path).Load()
	assert.ErrorContains(t, err, "parsing token file")
}

func TestTokenCacheSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "token.json")
	require.NoError(t, NewTokenCache(path).Save(&oauth2.Token{AccessToken: "x"}))
	assert.FileExists(t, path)
}

func TestTokenCacheSaveEmptyToken(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))
	assert.Error(t, cache.Save(nil))
	assert.Error(t, cache.Save(&oauth2.Token{}))
}

func TestTokenCacheDelete(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, cache.Save(&oauth2.Token{AccessToken: "x"}))

	require.NoError(t, cache.Delete())
	assert.NoFileExists(t, cache.Path())
	assert.NoError(t, cache.Delete(), "deleting twice is fine")
}

func TestTokenCacheFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permissions differ on Windows")
	}
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, cache.Save(&oauth2.Token{AccessToken: "x"}))

	info, err := os.Stat(cache.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestTokenCacheResolve(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))

	_, err := cache.Resolve("")
	assert.ErrorIs(t, err, ErrNoToken)

	got, err := cache.Resolve("  fresh-token \n")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", got)

	got, err = cache.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", got, "cached token is reused")
}

func TestTokenCacheResolveExpired(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, cache.Save(&oauth2.Token{
		AccessToken: "stale",
		Expiry:      time.Now().Add(-time.Minute),
	}))

	_, err := cache.Resolve("")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestDefaultTokenCache(t *testing.T) {
	cache, err := DefaultTokenCache()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	assert.Equal(t, filepath.Join(configDirName, tokenFileName),
		filepath.Join(filepath.Base(filepath.Dir(cache.Path())), filepath.Base(cache.Path())))
}

package cli

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/justestif/go-spotify-radio-dj/internal/artwork"
	"github.com/justestif/go-spotify-radio-dj/internal/clustering"
	"github.com/justestif/go-spotify-radio-dj/internal/config"
	"github.com/justestif/go-spotify-radio-dj/internal/metrics"
	"github.com/justestif/go-spotify-radio-dj/internal/playlist"
	"github.com/justestif/go-spotify-radio-dj/internal/spotify"
	"github.com/justestif/go-spotify-radio-dj/internal/theme"
	"github.com/justestif/go-spotify-radio-dj/internal/web"
)

// newThemeService wires a theme service from the palette settings.
func newThemeService(cfg *config.Config, rng *rand.Rand, store theme.PaletteStore, m *metrics.Metrics) *theme.Service {
	fetcher := artwork.NewFetcher(artwork.WithMaxBytes(cfg.Palette.MaxBytes))

	opts := []theme.Option{
		theme.WithStrategy(theme.Strategy(cfg.Palette.Strategy)),
		theme.WithK(cfg.Palette.K),
		theme.WithDepth(cfg.Palette.Depth),
		theme.WithDarkenFactor(cfg.Palette.DarkenFactor),
		theme.WithMaxIterations(cfg.Clustering.MaxIterations),
		theme.WithMaxSide(cfg.Palette.MaxSide),
		theme.WithMetrics(m),
	}
	if store != nil {
		opts = append(opts, theme.WithStore(store))
	}
	return theme.NewService(fetcher, rng, opts...)
}

// builderOptions maps the clustering and playlist settings to builder options.
func builderOptions(cfg *config.Config, store playlist.SetStore, m *metrics.Metrics) []playlist.Option {
	opts := []playlist.Option{
		playlist.WithK(cfg.Clustering.K),
		playlist.WithInit(cfg.InitStrategy()),
		playlist.WithMaxIterations(cfg.Clustering.MaxIterations),
		playlist.WithTopTracks(cfg.Playlist.TopTracks),
		playlist.WithMaxSeeds(cfg.Playlist.MaxSeeds),
		playlist.WithRecommendations(cfg.Playlist.MinRecommendations, cfg.Playlist.MaxRecommendations),
		playlist.WithMetrics(m),
	}
	if store != nil {
		opts = append(opts, playlist.WithStore(store))
	}
	return opts
}

// builderFactory returns a web.BuilderFactory that builds sets against the
// Spotify account owning each request's access token. Every builder gets its
// own generator derived from rng.
func builderFactory(cfg *config.Config, rng *rand.Rand, store playlist.SetStore, m *metrics.Metrics) web.BuilderFactory {
	var mu sync.Mutex
	opts := builderOptions(cfg, store, m)

	return func(ctx context.Context, accessToken string) (web.SetBuilder, string, error) {
		client := spotify.NewFromToken(ctx, accessToken)
		userID, err := client.UserID(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("resolving user: %w", err)
		}

		mu.Lock()
		child := clustering.NewRand(rng.Uint64())
		mu.Unlock()

		return playlist.NewBuilder(client, child, opts...), userID, nil
	}
}

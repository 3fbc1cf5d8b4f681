package theme

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justestif/go-spotify-radio-dj/internal/palette"
)

// CacheTTL is the duration after which stored palettes are considered stale.
const CacheTTL = 30 * 24 * time.Hour // 30 days

// ErrCacheMiss is returned by a PaletteStore when no palette is stored.
var ErrCacheMiss = errors.New("palette not cached")

// Palette is a stored theme for one artwork URL.
type Palette struct {
	ImageURL  string
	Strategy  Strategy
	Theme     palette.Theme
	Colors    []palette.Color
	FetchedAt time.Time
}

// PaletteStore persists extracted palettes.
type PaletteStore interface {
	GetPalette(ctx context.Context, imageURL string, strategy Strategy) (*Palette, error)
	UpsertPalette(ctx context.Context, p *Palette) error
}

// lookup returns a fresh cached result, or nil on a miss or stale entry.
func (s *Service) lookup(ctx context.Context, imageURL string) (*Result, error) {
	p, err := s.store.GetPalette(ctx, imageURL, s.strategy)
	if errors.Is(err, ErrCacheMiss) {
		s.metrics.ObserveCache(false)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting cached palette: %w", err)
	}

	// Lazy invalidation
	if p.FetchedAt.Before(time.Now().Add(-s.ttl)) {
		s.metrics.ObserveCache(false)
		return nil, nil
	}

	s.metrics.ObserveCache(true)
	return &Result{
		Strategy: p.Strategy,
		Theme:    p.Theme,
		Colors:   p.Colors,
		Cached:   true,
	}, nil
}

// Package theme turns album artwork into the three-color visualizer theme.
package theme

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/justestif/go-spotify-radio-dj/internal/artwork"
	"github.com/justestif/go-spotify-radio-dj/internal/clustering"
	"github.com/justestif/go-spotify-radio-dj/internal/metrics"
	"github.com/justestif/go-spotify-radio-dj/internal/palette"
	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

// Strategy names how candidate colors are derived from samples.
type Strategy string

const (
	// StrategyCluster runs k-means++ over the samples.
	StrategyCluster Strategy = "cluster"
	// StrategyMedianCut quantizes the samples with median cut.
	StrategyMedianCut Strategy = "mediancut"
)

// DefaultConcurrency bounds parallel artwork fetches in ForImageURLs.
const DefaultConcurrency = 4

// ErrUnknownStrategy is returned for strategy names other than cluster and mediancut.
var ErrUnknownStrategy = errors.New("unknown palette strategy")

// ParseStrategy maps a name to a Strategy. The empty string is StrategyCluster.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyCluster:
		return StrategyCluster, nil
	case StrategyMedianCut:
		return StrategyMedianCut, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Result is one extracted theme together with every candidate color.
type Result struct {
	Strategy Strategy        `json:"strategy"`
	Theme    palette.Theme   `json:"theme"`
	Colors   []palette.Color `json:"colors"` // darkened, sorted by lightness
	Cached   bool            `json:"cached"`
}

// ImageResult holds the outcome for one URL in ForImageURLs.
type ImageResult struct {
	ImageURL string
	Result   *Result
	Error    error // non-nil if this URL failed
}

// ImageFetcher abstracts artwork downloads for testing.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (image.Image, error)
}

// Service extracts themes from samples and artwork URLs.
type Service struct {
	fetcher ImageFetcher
	store   PaletteStore
	metrics *metrics.Metrics

	mu  sync.Mutex
	rng *rand.Rand

	strategy      Strategy
	k             int
	depth         int
	darken        float64
	maxIterations int
	maxSide       int
	concurrency   int
	ttl           time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithStore enables the palette cache.
func WithStore(store PaletteStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithMetrics records extractions and cache lookups.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithStrategy sets the strategy used when callers pass an empty one.
func WithStrategy(st Strategy) Option {
	return func(s *Service) {
		if st != "" {
			s.strategy = st
		}
	}
}

// WithK sets the cluster count for StrategyCluster.
func WithK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.k = k
		}
	}
}

// WithDepth sets the median-cut depth for StrategyMedianCut.
func WithDepth(d int) Option {
	return func(s *Service) {
		s.depth = d
	}
}

// WithDarkenFactor overrides palette.DefaultDarkenFactor.
func WithDarkenFactor(f float64) Option {
	return func(s *Service) {
		if f > 0 {
			s.darken = f
		}
	}
}

// WithMaxIterations bounds each k-means run.
func WithMaxIterations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// WithMaxSide sets the thumbnail size used for sampling artwork.
func WithMaxSide(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSide = n
		}
	}
}

// WithConcurrency sets the number of concurrent fetches in ForImageURLs.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCacheTTL sets how long stored palettes stay fresh.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// NewService creates a theme service. A nil rng is seeded with 0.
func NewService(fetcher ImageFetcher, rng *rand.Rand, opts ...Option) *Service {
	if rng == nil {
		rng = clustering.NewRand(0)
	}
	s := &Service{
		fetcher:       fetcher,
		rng:           rng,
		strategy:      StrategyCluster,
		k:             palette.DefaultK,
		depth:         palette.MaxDepth,
		darken:        palette.DefaultDarkenFactor,
		maxIterations: clustering.DefaultMaxIterations,
		maxSide:       artwork.DefaultMaxSide,
		concurrency:   DefaultConcurrency,
		ttl:           CacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Params overrides the service defaults for one extraction.
type Params struct {
	Strategy Strategy // empty uses the service default
	K        int      // <= 0 uses the service default
	Depth    *int     // nil uses the service default
}

// Extract derives a theme from [0,255] samples. An empty strategy uses the
// service default.
func (s *Service) Extract(ctx context.Context, samples []palette.Color, strategy Strategy) (*Result, error) {
	return s.ExtractWith(ctx, samples, Params{Strategy: strategy})
}

// ExtractWith is Extract with per-call overrides.
func (s *Service) ExtractWith(ctx context.Context, samples []palette.Color, p Params) (*Result, error) {
	if p.Strategy == "" {
		p.Strategy = s.strategy
	}
	if p.K <= 0 {
		p.K = s.k
	}
	if p.Depth == nil {
		p.Depth = &s.depth
	}
	res, err := s.extract(ctx, samples, p)
	s.metrics.ObservePalette(string(p.Strategy), err)
	return res, err
}

func (s *Service) extract(ctx context.Context, samples []palette.Color, p Params) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, vector.ErrEmptyDataset
	}

	var colors []palette.Color
	switch p.Strategy {
	case StrategyCluster:
		ex := palette.NewExtractor(s.childRand(),
			palette.WithDarkenFactor(s.darken),
			palette.WithMaxIterations(s.maxIterations))

		start := time.Now()
		centroids, km, err := ex.Centroids(samples, p.K)
		if err != nil {
			return nil, err
		}
		s.metrics.ObserveCluster("theme", km.Iterations, km.Converged, time.Since(start))
		colors = centroids

	case StrategyMedianCut:
		buckets := palette.MedianCut(samples, *p.Depth)
		colors = make([]palette.Color, len(buckets))
		for i, c := range buckets {
			colors[i] = c.Scale(s.darken)
		}
		palette.SortByLightness(colors)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, p.Strategy)
	}

	return &Result{
		Strategy: p.Strategy,
		Theme:    palette.ThemeFrom(colors),
		Colors:   colors,
	}, nil
}

// childRand draws a fresh generator so concurrent extractions never share one.
func (s *Service) childRand() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clustering.NewRand(s.rng.Uint64())
}

// ForImageURL returns the theme for artwork at imageURL using the default
// strategy. Stored palettes younger than the cache TTL are returned without
// fetching; fresh results are persisted. A failed write is logged and the
// result is still returned.
func (s *Service) ForImageURL(ctx context.Context, imageURL string) (*Result, error) {
	if s.store != nil {
		cached, err := s.lookup(ctx, imageURL)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return cached, nil
		}
	}

	img, err := s.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching artwork: %w", err)
	}
	samples, err := artwork.Samples(img, s.maxSide)
	if err != nil {
		return nil, fmt.Errorf("sampling artwork: %w", err)
	}

	res, err := s.Extract(ctx, samples, s.strategy)
	if err != nil {
		return nil, fmt.Errorf("extracting theme: %w", err)
	}

	if s.store != nil {
		p := &Palette{
			ImageURL:  imageURL,
			Strategy:  res.Strategy,
			Theme:     res.Theme,
			Colors:    res.Colors,
			FetchedAt: time.Now(),
		}
		if err := s.store.UpsertPalette(ctx, p); err != nil {
			log.Warn().Err(err).Str("image", imageURL).Msg("persisting palette")
		}
	}

	log.Debug().
		Str("image", imageURL).
		Str("strategy", string(res.Strategy)).
		Str("primary", res.Theme.Primary.Hex()).
		Int("candidates", len(res.Colors)).
		Msg("extracted theme")
	return res, nil
}

// ForImageURLs resolves themes for several URLs concurrently. Results are
// returned in input order; individual failures are captured in
// ImageResult.Error rather than failing the batch.
func (s *Service) ForImageURLs(ctx context.Context, imageURLs []string) ([]ImageResult, error) {
	results := make([]ImageResult, len(imageURLs))
	if len(imageURLs) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, u := range imageURLs {
		g.Go(func() error {
			res, err := s.ForImageURL(gctx, u)
			results[i] = ImageResult{ImageURL: u, Result: res, Error: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// Package playlist builds DJ sets: it clusters a listener's top tracks by
// audio features and seeds recommendations from one cluster.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/justestif/go-spotify-radio-dj/internal/clustering"
	"github.com/justestif/go-spotify-radio-dj/internal/metrics"
	"github.com/justestif/go-spotify-radio-dj/internal/spotify"
	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

// Defaults for a Builder.
const (
	DefaultK                  = 10
	DefaultTopTracks          = spotify.MaxTopTracks
	DefaultMaxSeeds           = spotify.MaxSeeds
	DefaultMinRecommendations = 5
	DefaultMaxRecommendations = 7

	// FallbackTracks is the set size used when recommendations are unavailable.
	FallbackTracks = 6
)

// ErrNoFeatures is returned when none of the top tracks have audio features.
var ErrNoFeatures = errors.New("no tracks with audio features")

// Catalog is the subset of the Spotify client the builder uses.
type Catalog interface {
	FetchTopTracks(ctx context.Context, timeRange spotify.TimeRange, limit int) ([]spotify.Track, error)
	FetchAudioFeatures(ctx context.Context, tracks []spotify.Track) error
	Recommendations(ctx context.Context, seedIDs []string, limit int) ([]spotify.Track, error)
}

// SetStore persists built sets.
type SetStore interface {
	CreateSet(ctx context.Context, set *Set) error
}

// Set is one DJ set.
type Set struct {
	ID        uuid.UUID         `json:"id"`
	UserID    string            `json:"user_id"`
	TimeRange spotify.TimeRange `json:"time_range"`
	Seeds     []spotify.Track   `json:"seeds"`
	Tracks    []spotify.Track   `json:"tracks"`

	// Averages is the mean feature vector of the tracks the seeds came from.
	// Nil when no seed had features.
	Averages *spotify.AudioFeatures `json:"averages,omitempty"`
	Mood     string                 `json:"mood,omitempty"`

	SeedFallback  bool      `json:"seed_fallback"`  // seeds drawn at random instead of from a cluster
	TrackFallback bool      `json:"track_fallback"` // tracks drawn from top tracks instead of recommendations
	CreatedAt     time.Time `json:"created_at"`
}

// Builder builds DJ sets.
type Builder struct {
	catalog Catalog
	store   SetStore
	metrics *metrics.Metrics

	mu  sync.Mutex
	rng *rand.Rand

	k             int
	init          clustering.Init
	maxIterations int
	topTracks     int
	maxSeeds      int
	minRecs       int
	maxRecs       int
}

// Option configures a Builder.
type Option func(*Builder)

// WithStore persists every built set.
func WithStore(store SetStore) Option {
	return func(b *Builder) {
		b.store = store
	}
}

// WithMetrics records clustering runs and built sets.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// WithK sets the number of clusters.
func WithK(k int) Option {
	return func(b *Builder) {
		if k > 0 {
			b.k = k
		}
	}
}

// WithInit sets the centroid initialization strategy.
func WithInit(init clustering.Init) Option {
	return func(b *Builder) {
		b.init = init
	}
}

// WithMaxIterations bounds each k-means run.
func WithMaxIterations(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxIterations = n
		}
	}
}

// WithTopTracks sets how many top tracks are fetched.
func WithTopTracks(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.topTracks = n
		}
	}
}

// WithMaxSeeds caps the seed tracks sent for recommendations.
func WithMaxSeeds(n int) Option {
	return func(b *Builder) {
		if n > 0 && n <= spotify.MaxSeeds {
			b.maxSeeds = n
		}
	}
}

// WithRecommendations sets the inclusive range the set size is drawn from.
func WithRecommendations(lo, hi int) Option {
	return func(b *Builder) {
		if lo > 0 && lo <= hi {
			b.minRecs, b.maxRecs = lo, hi
		}
	}
}

// NewBuilder creates a Builder. A nil rng is seeded from the clock.
func NewBuilder(catalog Catalog, rng *rand.Rand, opts ...Option) *Builder {
	if rng == nil {
		rng = clustering.NewRand(uint64(time.Now().UnixNano()))
	}
	b := &Builder{
		catalog:       catalog,
		rng:           rng,
		k:             DefaultK,
		init:          clustering.InitNaive,
		maxIterations: clustering.DefaultMaxIterations,
		topTracks:     DefaultTopTracks,
		maxSeeds:      DefaultMaxSeeds,
		minRecs:       DefaultMinRecommendations,
		maxRecs:       DefaultMaxRecommendations,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build creates a DJ set for userID.
//
// Top tracks for a random time range are clustered by audio features and up
// to maxSeeds tracks from one randomly chosen non-empty cluster seed the
// recommendations. If features or clustering are unavailable, seeds are drawn
// at random from the top tracks instead. If recommendations fail, the set is
// FallbackTracks random top tracks.
func (b *Builder) Build(ctx context.Context, userID string) (*Set, error) {
	rng := b.childRand()

	timeRange := spotify.RandomTimeRange(rng)
	top, err := b.catalog.FetchTopTracks(ctx, timeRange, b.topTracks)
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks: %w", err)
	}
	if len(top) == 0 {
		return nil, spotify.ErrNoTracks
	}

	set := &Set{
		ID:        uuid.New(),
		UserID:    userID,
		TimeRange: timeRange,
		CreatedAt: time.Now().UTC(),
	}

	seeds, group, err := b.clusterSeeds(ctx, rng, top)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("user", userID).Msg("clustering top tracks failed, using random seeds")
		seeds = pickRandom(rng, top, b.maxSeeds)
		group = seeds
		set.SeedFallback = true
	}
	set.Seeds = seeds

	if avg, ok := FeatureAverages(group); ok {
		set.Averages = &avg
		set.Mood = MoodName(avg)
	}

	limit := b.minRecs + rng.IntN(b.maxRecs-b.minRecs+1)
	recs, err := b.catalog.Recommendations(ctx, trackIDs(seeds), limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("user", userID).Msg("recommendations failed, using top tracks")
		recs = pickRandom(rng, top, FallbackTracks)
		set.TrackFallback = true
	}
	set.Tracks = recs

	b.metrics.ObserveSet(set.SeedFallback)

	if b.store != nil {
		if err := b.store.CreateSet(ctx, set); err != nil {
			return nil, fmt.Errorf("saving set: %w", err)
		}
	}

	log.Info().
		Str("set", set.ID.String()).
		Str("user", userID).
		Str("time_range", string(timeRange)).
		Int("seeds", len(set.Seeds)).
		Int("tracks", len(set.Tracks)).
		Bool("seed_fallback", set.SeedFallback).
		Str("mood", set.Mood).
		Msg("built DJ set")
	return set, nil
}

// clusterSeeds fetches features for top, clusters the tracks that have them
// and returns up to maxSeeds tracks from one random non-empty cluster along
// with every track in that cluster.
func (b *Builder) clusterSeeds(ctx context.Context, rng *rand.Rand, top []spotify.Track) (seeds, group []spotify.Track, err error) {
	tracks := make([]spotify.Track, len(top))
	copy(tracks, top)

	if err := b.catalog.FetchAudioFeatures(ctx, tracks); err != nil {
		return nil, nil, err
	}

	var withFeatures []spotify.Track
	for _, t := range tracks {
		if t.Features != nil {
			withFeatures = append(withFeatures, t)
		}
	}
	if len(withFeatures) == 0 {
		return nil, nil, ErrNoFeatures
	}

	data := make(vector.Dataset, len(withFeatures))
	for i, t := range withFeatures {
		data[i] = t.Features.Vector()
	}

	start := time.Now()
	km := clustering.New(rng, clustering.WithMaxIterations(b.maxIterations))
	res, err := km.Cluster(data, b.k, b.init == clustering.InitKMeansPlusPlus)
	if err != nil {
		return nil, nil, fmt.Errorf("clustering tracks: %w", err)
	}
	b.metrics.ObserveCluster("playlist", res.Iterations, res.Converged, time.Since(start))

	nonEmpty := res.NonEmpty()
	chosen := nonEmpty[rng.IntN(len(nonEmpty))]

	group = make([]spotify.Track, len(chosen.Indexes))
	for i, idx := range chosen.Indexes {
		group[i] = withFeatures[idx]
	}

	n := min(len(group), b.maxSeeds)
	seeds = make([]spotify.Track, n)
	copy(seeds, group[:n])

	log.Debug().
		Int("tracks", len(withFeatures)).
		Int("clusters", len(nonEmpty)).
		Int("chosen", len(group)).
		Int("iterations", res.Iterations).
		Msg("clustered top tracks")
	return seeds, group, nil
}

func (b *Builder) childRand() *rand.Rand {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clustering.NewRand(b.rng.Uint64())
}

// FeatureAverages returns the mean of each audio feature over the tracks that
// have features. ok is false when none do.
func FeatureAverages(tracks []spotify.Track) (avg spotify.AudioFeatures, ok bool) {
	var points []vector.Vector
	for _, t := range tracks {
		if t.Features != nil {
			points = append(points, t.Features.Vector())
		}
	}
	mean, ok := vector.Mean(points)
	if !ok {
		return spotify.AudioFeatures{}, false
	}
	return spotify.FeaturesFromVector(mean), true
}

// pickRandom returns up to n distinct elements of tracks in random order.
func pickRandom(rng *rand.Rand, tracks []spotify.Track, n int) []spotify.Track {
	n = min(n, len(tracks))
	out := make([]spotify.Track, n)
	for i, idx := range rng.Perm(len(tracks))[:n] {
		out[i] = tracks[idx]
	}
	return out
}

func trackIDs(tracks []spotify.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/justestif/go-spotify-radio-dj/internal/artwork"
	"github.com/justestif/go-spotify-radio-dj/internal/clustering"
	"github.com/justestif/go-spotify-radio-dj/internal/metrics"
	"github.com/justestif/go-spotify-radio-dj/internal/palette"
	"github.com/justestif/go-spotify-radio-dj/internal/playlist"
	"github.com/justestif/go-spotify-radio-dj/internal/theme"
	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

// Request limits.
const (
	maxJSONBytes = 8 << 20
	maxVectors   = 100_000
)

var (
	errUnauthorized = errors.New("missing bearer token")
	errUnavailable  = errors.New("not configured")
)

// ThemeService extracts color themes.
type ThemeService interface {
	ExtractWith(ctx context.Context, samples []palette.Color, p theme.Params) (*theme.Result, error)
	ForImageURL(ctx context.Context, imageURL string) (*theme.Result, error)
}

// SetBuilder builds a DJ set for a user.
type SetBuilder interface {
	Build(ctx context.Context, userID string) (*playlist.Set, error)
}

// BuilderFactory returns a builder acting with the caller's Spotify access
// token, along with the token owner's user ID.
type BuilderFactory func(ctx context.Context, accessToken string) (SetBuilder, string, error)

// SetReader reads stored DJ sets.
type SetReader interface {
	Get(ctx context.Context, id uuid.UUID) (*playlist.Set, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]playlist.Set, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains HTTP handlers for the JSON API.
type Handlers struct {
	themes     ThemeService
	newBuilder BuilderFactory
	sets       SetReader
	pinger     Pinger
	stats      *metrics.Metrics
	metrics    http.Handler

	mu  sync.Mutex
	rng *rand.Rand

	maxImageBytes int64
	maxSide       int
}

// HandlerOption configures Handlers.
type HandlerOption func(*Handlers)

// WithBuilderFactory enables POST /api/sets.
func WithBuilderFactory(f BuilderFactory) HandlerOption {
	return func(h *Handlers) {
		h.newBuilder = f
	}
}

// WithSetReader enables reading stored sets.
func WithSetReader(r SetReader) HandlerOption {
	return func(h *Handlers) {
		h.sets = r
	}
}

// WithPinger adds a backend check to /healthz.
func WithPinger(p Pinger) HandlerOption {
	return func(h *Handlers) {
		h.pinger = p
	}
}

// WithMetrics records API clustering runs and serves /metrics.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handlers) {
		h.stats = m
		if m != nil {
			h.metrics = m.Handler()
		}
	}
}

// WithImageLimits sets the accepted upload size and the sampling thumbnail size.
func WithImageLimits(maxBytes int64, maxSide int) HandlerOption {
	return func(h *Handlers) {
		if maxBytes > 0 {
			h.maxImageBytes = maxBytes
		}
		if maxSide > 0 {
			h.maxSide = maxSide
		}
	}
}

// NewHandlers creates a new Handlers instance. A nil rng is seeded from the clock.
func NewHandlers(themes ThemeService, rng *rand.Rand, opts ...HandlerOption) *Handlers {
	if rng == nil {
		rng = clustering.NewRand(uint64(time.Now().UnixNano()))
	}
	h := &Handlers{
		themes:        themes,
		rng:           rng,
		maxImageBytes: artwork.DefaultMaxBytes,
		maxSide:       artwork.DefaultMaxSide,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health reports liveness (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"
	}
	writeJSON(w, http.StatusOK, status)
}

type clusterRequest struct {
	Vectors       [][]float64 `json:"vectors"`
	K             int         `json:"k"`
	KMeansPP      bool        `json:"kmeanspp"`
	Seed          *uint64     `json:"seed,omitempty"`
	MaxIterations int         `json:"max_iterations,omitempty"`
}

type clusterJSON struct {
	Centroid []float64 `json:"centroid"`
	Indexes  []int     `json:"indexes"`
}

type clusterResponse struct {
	Clusters   []clusterJSON `json:"clusters"`
	Iterations int           `json:"iterations"`
	Converged  bool          `json:"converged"`
	Seed       uint64        `json:"seed"`
}

// Cluster runs k-means over posted vectors (POST /api/cluster).
func (h *Handlers) Cluster(w http.ResponseWriter, r *http.Request) {
	var req clusterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Vectors) > maxVectors {
		writeError(w, r, fmt.Errorf("%w: at most %d vectors", errBadRequest, maxVectors))
		return
	}

	seed := h.seed(req.Seed)
	data := make(vector.Dataset, len(req.Vectors))
	for i, v := range req.Vectors {
		data[i] = vector.Vector(v)
	}

	opts := []clustering.Option{}
	if req.MaxIterations > 0 {
		opts = append(opts, clustering.WithMaxIterations(req.MaxIterations))
	}

	start := time.Now()
	res, err := clustering.New(clustering.NewRand(seed), opts...).Cluster(data, req.K, req.KMeansPP)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.stats.ObserveCluster("api", res.Iterations, res.Converged, time.Since(start))

	resp := clusterResponse{
		Clusters:   make([]clusterJSON, len(res.Clusters)),
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Seed:       seed,
	}
	for i, c := range res.Clusters {
		idx := c.Indexes
		if idx == nil {
			idx = []int{}
		}
		resp.Clusters[i] = clusterJSON{Centroid: c.Centroid, Indexes: idx}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Palette extracts a theme from an uploaded image (POST /api/palette).
// The image is the multipart field "image" or the raw request body.
// Query: strategy=cluster|mediancut, k, depth.
func (h *Handlers) Palette(w http.ResponseWriter, r *http.Request) {
	params, err := paletteParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	samples, err := h.uploadedSamples(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.themes.ExtractWith(r.Context(), samples, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toThemeResponse(res))
}

// Quantize returns the raw median-cut colors of an uploaded image
// (POST /api/quantize?depth=).
func (h *Handlers) Quantize(w http.ResponseWriter, r *http.Request) {
	depth := palette.MaxDepth
	if v := r.URL.Query().Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 0 || d > palette.MaxDepth {
			writeError(w, r, fmt.Errorf("%w: depth must be an integer in [0,%d]", errBadRequest, palette.MaxDepth))
			return
		}
		depth = d
	}

	samples, err := h.uploadedSamples(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	colors := palette.MedianCut(samples, depth)
	writeJSON(w, http.StatusOK, map[string]any{
		"depth":  depth,
		"colors": toColorsJSON(colors),
	})
}

// Theme returns the theme for an artwork URL (GET /api/theme?image=).
func (h *Handlers) Theme(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("image")
	if imageURL == "" {
		writeError(w, r, fmt.Errorf("%w: image query parameter is required", errBadRequest))
		return
	}

	res, err := h.themes.ForImageURL(r.Context(), imageURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toThemeResponse(res))
}

// CreateSet builds a DJ set for the bearer token's owner (POST /api/sets).
func (h *Handlers) CreateSet(w http.ResponseWriter, r *http.Request) {
	if h.newBuilder == nil {
		writeError(w, r, fmt.Errorf("set building %w", errUnavailable))
		return
	}

	token, ok := bearerToken(r)
	if !ok {
		writeError(w, r, errUnauthorized)
		return
	}

	builder, userID, err := h.newBuilder(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	set, err := builder.Build(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

// GetSet returns a stored set (GET /api/sets/{id}).
func (h *Handlers) GetSet(w http.ResponseWriter, r *http.Request) {
	if h.sets == nil {
		writeError(w, r, fmt.Errorf("set storage %w", errUnavailable))
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid set id", errBadRequest))
		return
	}

	set, err := h.sets.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// ListSets returns a user's recent sets (GET /api/users/{userID}/sets?limit=).
func (h *Handlers) ListSets(w http.ResponseWriter, r *http.Request) {
	if h.sets == nil {
		writeError(w, r, fmt.Errorf("set storage %w", errUnavailable))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = n
	}

	sets, err := h.sets.ListForUser(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sets == nil {
		sets = []playlist.Set{}
	}
	writeJSON(w, http.StatusOK, sets)
}

// seed returns requested, or a fresh seed from the handler generator.
func (h *Handlers) seed(requested *uint64) uint64 {
	if requested != nil {
		return *requested
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Uint64()
}

// uploadedSamples decodes the uploaded image and samples it.
func (h *Handlers) uploadedSamples(w http.ResponseWriter, r *http.Request) ([]palette.Color, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+1<<20)

	var body io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, fmt.Errorf("%w: reading image field: %v", errBadRequest, err)
		}
		defer file.Close()
		body = file
	}

	return artwork.DecodeSamples(body, h.maxImageBytes, h.maxSide)
}

func paletteParams(r *http.Request) (theme.Params, error) {
	q := r.URL.Query()

	strategy, err := theme.ParseStrategy(q.Get("strategy"))
	if err != nil {
		return theme.Params{}, err
	}
	p := theme.Params{Strategy: strategy}

	if v := q.Get("k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil || k < 1 {
			return theme.Params{}, fmt.Errorf("%w: k must be a positive integer", errBadRequest)
		}
		p.K = k
	}
	if v := q.Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 0 || d > palette.MaxDepth {
			return theme.Params{}, fmt.Errorf("%w: depth must be an integer in [0,%d]", errBadRequest, palette.MaxDepth)
		}
		p.Depth = &d
	}
	return p, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(auth[len(prefix):])
	return token, token != ""
}

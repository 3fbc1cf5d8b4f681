package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-spotify-radio-dj/internal/clustering"
	"github.com/justestif/go-spotify-radio-dj/internal/db"
	"github.com/justestif/go-spotify-radio-dj/internal/metrics"
	"github.com/justestif/go-spotify-radio-dj/internal/playlist"
	"github.com/justestif/go-spotify-radio-dj/internal/spotify"
	"github.com/justestif/go-spotify-radio-dj/internal/theme"
)

// mockFetcher serves images by URL.
type mockFetcher map[string]image.Image

func (m mockFetcher) Fetch(_ context.Context, rawURL string) (image.Image, error) {
	img, ok := m[rawURL]
	if !ok {
		return nil, errors.New("fetching: unexpected status 404")
	}
	return img, nil
}

// mockBuilder returns a fixed set.
type mockBuilder struct {
	set *playlist.Set
	err error
}

func (m *mockBuilder) Build(_ context.Context, userID string) (*playlist.Set, error) {
	if m.err != nil {
		return nil, m.err
	}
	set := *m.set
	set.UserID = userID
	return &set, nil
}

// memSets implements SetReader.
type memSets map[uuid.UUID]*playlist.Set

func (m memSets) Get(_ context.Context, id uuid.UUID) (*playlist.Set, error) {
	s, ok := m[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return s, nil
}

func (m memSets) ListForUser(_ context.Context, userID string, _ int) ([]playlist.Set, error) {
	var out []playlist.Set
	for _, s := range m {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func bands(cs ...color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8*len(cs)))
	for i, c := range cs {
		for y := i * 8; y < (i+1)*8; y++ {
			for x := 0; x < 8; x++ {
				img.SetRGBA(x, y, c)
			}
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var (
	black = color.RGBA{A: 255}
	red   = color.RGBA{R: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

func newTestServer(t *testing.T, opts ...HandlerOption) http.Handler {
	t.Helper()
	fetcher := mockFetcher{"https://i.scdn.co/cover": bands(black, red, white)}
	themes := theme.NewService(fetcher, clustering.NewRand(1))
	h := NewHandlers(themes, clustering.NewRand(2), opts...)
	return NewServer(ServerConfig{}, h).Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])

	rec = do(t, newTestServer(t, WithPinger(failingPinger{})), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(t), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "not mounted without metrics")

	m := metrics.New()
	srv := newTestServer(t, WithMetrics(m))
	body := `{"vectors":[[0,0],[10,10]],"k":2,"kmeanspp":true}`
	do(t, srv, httptest.NewRequest(http.MethodPost, "/api/cluster", strings.NewReader(body)))

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `radio_dj_cluster_runs_total{caller="api",converged="true"} 1`)
}

func TestCluster(t *testing.T) {
	srv := newTestServer(t)
	body := `{"vectors":[[0,0],[0,1],[10,10],[10,11]],"k":2,"kmeanspp":true,"seed":7}`

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/cluster", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[clusterResponse](t, rec)
	assert.True(t, resp.Converged)
	assert.Equal(t, uint64(7), resp.Seed)
	require.Len(t, resp.Clusters, 2)

	var groups [][]int
	for _, c := range resp.Clusters {
		groups = append(groups, c.Indexes)
	}
	assert.ElementsMatch(t, [][]int{{0, 1}, {2, 3}}, groups)

	again := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/cluster", strings.NewReader(body)))
	assert.JSONEq(t, rec.Body.String(), again.Body.String(), "same seed, same result")
}

func TestClusterErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"vectors":`, http.StatusBadRequest},
		{"unknown field", `{"vectors":[[1]],"k":1,"bogus":1}`, http.StatusBadRequest},
		{"k zero", `{"vectors":[[1]],"k":0}`, http.StatusBadRequest},
		{"k too large", `{"vectors":[[1,2]],"k":1000000000}`, http.StatusBadRequest},
		{"empty dataset", `{"vectors":[],"k":1}`, http.StatusBadRequest},
		{"ragged", `{"vectors":[[1,2],[3]],"k":1}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(t), httptest.NewRequest(http.MethodPost, "/api/cluster", strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestPaletteRawBody(t *testing.T) {
	data := pngBytes(t, bands(black, red, white))
	req := httptest.NewRequest(http.MethodPost, "/api/palette", bytes.NewReader(data))
	req.Header.Set("Content-Type", "image/png")

	rec := do(t, newTestServer(t), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[themeResponse](t, rec)
	assert.Equal(t, theme.StrategyCluster, resp.Strategy)
	assert.Len(t, resp.Colors, 3)
	assert.Equal(t, "#000000", resp.Theme.Primary.Hex)
	assert.InDelta(t, 0.9, resp.Theme.Secondary.R, 1e-9)
	assert.InDelta(t, 0.9, resp.Theme.Tertiary.B, 1e-9)
}

func TestPaletteMultipartMedianCut(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "cover.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t, bands(black, white)))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/palette?strategy=mediancut&depth=1", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := do(t, newTestServer(t), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[themeResponse](t, rec)
	assert.Equal(t, theme.StrategyMedianCut, resp.Strategy)
	require.Len(t, resp.Colors, 2)
	assert.Equal(t, "#000000", resp.Colors[0].Hex)
}

func TestPaletteErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		body  string
		want  int
	}{
		{"bad strategy", "?strategy=octree", "x", http.StatusBadRequest},
		{"bad k", "?k=zero", "x", http.StatusBadRequest},
		{"bad depth", "?depth=9", "x", http.StatusBadRequest},
		{"not an image", "", "plain text", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/palette"+tt.query, strings.NewReader(tt.body))
			rec := do(t, newTestServer(t), req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestPaletteHugeK(t *testing.T) {
	data := pngBytes(t, bands(black, red))
	rec := do(t, newTestServer(t), httptest.NewRequest(http.MethodPost, "/api/palette?k=1000000000", bytes.NewReader(data)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestPaletteTooLarge(t *testing.T) {
	srv := newTestServer(t, WithImageLimits(64, 0))
	data := pngBytes(t, bands(black, red, white))

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/palette", bytes.NewReader(data)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestQuantize(t *testing.T) {
	data := pngBytes(t, bands(black, white))
	rec := do(t, newTestServer(t), httptest.NewRequest(http.MethodPost, "/api/quantize?depth=1", bytes.NewReader(data)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Depth  int         `json:"depth"`
		Colors []colorJSON `json:"colors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Depth)
	require.Len(t, resp.Colors, 2)
	assert.Equal(t, "#000000", resp.Colors[0].Hex)
	assert.Equal(t, "#ffffff", resp.Colors[1].Hex)
}

func TestTheme(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/theme?image=https://i.scdn.co/cover", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[themeResponse](t, rec).Colors, 3)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/theme", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/theme?image=https://i.scdn.co/missing", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreateSet(t *testing.T) {
	set := &playlist.Set{
		ID:        uuid.New(),
		TimeRange: spotify.LongTerm,
		Tracks:    []spotify.Track{{ID: "r1", Name: "Rec"}},
	}
	var gotToken string
	factory := func(_ context.Context, token string) (SetBuilder, string, error) {
		gotToken = token
		return &mockBuilder{set: set}, "listener", nil
	}
	srv := newTestServer(t, WithBuilderFactory(factory))

	req := httptest.NewRequest(http.MethodPost, "/api/sets", nil)
	rec := do(t, srv, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/sets", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	rec = do(t, srv, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, "abc123", gotToken)
	got := decode[playlist.Set](t, rec)
	assert.Equal(t, set.ID, got.ID)
	assert.Equal(t, "listener", got.UserID)
	assert.Equal(t, set.Tracks, got.Tracks)
}

func TestCreateSetErrors(t *testing.T) {
	rec := do(t, newTestServer(t), httptest.NewRequest(http.MethodPost, "/api/sets", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	factory := func(context.Context, string) (SetBuilder, string, error) {
		return &mockBuilder{err: spotify.ErrNoTracks}, "u", nil
	}
	req := httptest.NewRequest(http.MethodPost, "/api/sets", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec = do(t, newTestServer(t, WithBuilderFactory(factory)), req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetAndListSets(t *testing.T) {
	id := uuid.New()
	sets := memSets{id: {ID: id, UserID: "listener", TimeRange: spotify.ShortTerm}}
	srv := newTestServer(t, WithSetReader(sets))

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/sets/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode[playlist.Set](t, rec).ID)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/sets/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/sets/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/users/listener/sets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]playlist.Set](t, rec), 1)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/users/nobody/sets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/users/listener/sets?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", tt.header)
		got, ok := bearerToken(r)
		assert.Equal(t, tt.want, got, tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
	}
}

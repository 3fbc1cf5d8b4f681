package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/justestif/go-spotify-radio-dj/internal/artwork"
	"github.com/justestif/go-spotify-radio-dj/internal/clustering"
	"github.com/justestif/go-spotify-radio-dj/internal/db"
	"github.com/justestif/go-spotify-radio-dj/internal/palette"
	"github.com/justestif/go-spotify-radio-dj/internal/spotify"
	"github.com/justestif/go-spotify-radio-dj/internal/theme"
	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

// errBadRequest marks malformed requests.
var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encoding response")
	}
}

// writeError maps err to a status code and writes a JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, vector.ErrInvalidInput),
		errors.Is(err, clustering.ErrUnknownInit),
		errors.Is(err, theme.ErrUnknownStrategy),
		errors.Is(err, artwork.ErrUnsupportedImage),
		errors.Is(err, artwork.ErrNoPixels),
		errors.Is(err, artwork.ErrBadURL):
		return http.StatusBadRequest
	case errors.Is(err, artwork.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, spotify.ErrNoTracks):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// colorJSON is a color with its hex rendering.
type colorJSON struct {
	R   float64 `json:"r"`
	G   float64 `json:"g"`
	B   float64 `json:"b"`
	Hex string  `json:"hex"`
}

func toColorJSON(c palette.Color) colorJSON {
	return colorJSON{R: c.R, G: c.G, B: c.B, Hex: c.Hex()}
}

func toColorsJSON(cs []palette.Color) []colorJSON {
	out := make([]colorJSON, len(cs))
	for i, c := range cs {
		out[i] = toColorJSON(c)
	}
	return out
}

type themeJSON struct {
	Primary   colorJSON `json:"primary"`
	Secondary colorJSON `json:"secondary"`
	Tertiary  colorJSON `json:"tertiary"`
}

type themeResponse struct {
	Strategy theme.Strategy `json:"strategy"`
	Theme    themeJSON      `json:"theme"`
	Colors   []colorJSON    `json:"colors"`
	Cached   bool           `json:"cached"`
}

func toThemeResponse(res *theme.Result) themeResponse {
	return themeResponse{
		Strategy: res.Strategy,
		Theme: themeJSON{
			Primary:   toColorJSON(res.Theme.Primary),
			Secondary: toColorJSON(res.Theme.Secondary),
			Tertiary:  toColorJSON(res.Theme.Tertiary),
		},
		Colors: toColorsJSON(res.Colors),
		Cached: res.Cached,
	}
}

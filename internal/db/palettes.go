package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-spotify-radio-dj/internal/theme"
)

// PaletteRepository handles artwork palette cache operations.
type PaletteRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves the palette for an image and strategy.
func (r *PaletteRepository) Get(ctx context.Context, imageURL string, strategy theme.Strategy) (*theme.Palette, error) {
	query := `
		SELECT image_url, strategy, theme, colors, fetched_at
		FROM palettes
		WHERE image_url = $1 AND strategy = $2
	`
	var (
		p  theme.Palette
		st string
	)
	err := r.pool.QueryRow(ctx, query, imageURL, string(strategy)).Scan(
		&p.ImageURL,
		&st,
		&p.Theme,
		&p.Colors,
		&p.FetchedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying palette: %w", err)
	}
	p.Strategy = theme.Strategy(st)
	return &p, nil
}

// Upsert inserts or replaces the palette for an image and strategy.
func (r *PaletteRepository) Upsert(ctx context.Context, p *theme.Palette) error {
	query := `
		INSERT INTO palettes (image_url, strategy, theme, colors, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (image_url, strategy) DO UPDATE SET
			theme = EXCLUDED.theme,
			colors = EXCLUDED.colors,
			fetched_at = EXCLUDED.fetched_at
	`
	_, err := r.pool.Exec(ctx, query, p.ImageURL, string(p.Strategy), p.Theme, p.Colors, p.FetchedAt)
	if err != nil {
		return fmt.Errorf("upserting palette: %w", err)
	}
	return nil
}

// DeleteOlderThan removes palettes fetched before cutoff and returns how many
// were removed.
func (r *PaletteRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM palettes WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting stale palettes: %w", err)
	}
	return result.RowsAffected(), nil
}

// Package db provides PostgreSQL persistence for DJ sets and the artwork
// palette cache.
package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-spotify-radio-dj/internal/playlist"
	"github.com/justestif/go-spotify-radio-dj/internal/theme"
)

// Common errors.
var (
	ErrNotFound = errors.New("not found")
)

var (
	_ playlist.SetStore  = (*DB)(nil)
	_ theme.PaletteStore = (*DB)(nil)
)

//go:embed schema.sql
var schema string

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Migrate creates missing tables and indexes. It is safe to run repeatedly.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Sets returns a SetRepository.
func (db *DB) Sets() *SetRepository {
	return &SetRepository{pool: db.pool}
}

// Palettes returns a PaletteRepository.
func (db *DB) Palettes() *PaletteRepository {
	return &PaletteRepository{pool: db.pool}
}

// CreateSet implements playlist.SetStore.
func (db *DB) CreateSet(ctx context.Context, set *playlist.Set) error {
	return db.Sets().Create(ctx, set)
}

// GetPalette implements theme.PaletteStore.
func (db *DB) GetPalette(ctx context.Context, imageURL string, strategy theme.Strategy) (*theme.Palette, error) {
	p, err := db.Palettes().Get(ctx, imageURL, strategy)
	if errors.Is(err, ErrNotFound) {
		return nil, theme.ErrCacheMiss
	}
	return p, err
}

// UpsertPalette implements theme.PaletteStore.
func (db *DB) UpsertPalette(ctx context.Context, p *theme.Palette) error {
	return db.Palettes().Upsert(ctx, p)
}

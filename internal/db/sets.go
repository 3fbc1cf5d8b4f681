package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-spotify-radio-dj/internal/playlist"
	"github.com/justestif/go-spotify-radio-dj/internal/spotify"
)

// DefaultListLimit caps ListForUser when no limit is given.
const DefaultListLimit = 20

const setColumns = `id, user_id, time_range, mood, averages, seeds, tracks, seed_fallback, track_fallback, created_at`

// SetRepository handles DJ set database operations.
type SetRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a set. A nil ID is replaced with a new one and CreatedAt is
// set to the database time.
func (r *SetRepository) Create(ctx context.Context, set *playlist.Set) error {
	if set.ID == uuid.Nil {
		set.ID = uuid.New()
	}

	query := `
		INSERT INTO dj_sets (` + setColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		set.ID,
		set.UserID,
		string(set.TimeRange),
		set.Mood,
		set.Averages,
		set.Seeds,
		set.Tracks,
		set.SeedFallback,
		set.TrackFallback,
	).Scan(&set.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting set: %w", err)
	}
	return nil
}

// Get retrieves a set by ID.
func (r *SetRepository) Get(ctx context.Context, id uuid.UUID) (*playlist.Set, error) {
	query := `SELECT ` + setColumns + ` FROM dj_sets WHERE id = $1`

	set, err := scanSet(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying set: %w", err)
	}
	return set, nil
}

// ListForUser retrieves a user's most recent sets, newest first.
func (r *SetRepository) ListForUser(ctx context.Context, userID string, limit int) ([]playlist.Set, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT ` + setColumns + `
		FROM dj_sets
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying user sets: %w", err)
	}
	defer rows.Close()

	var sets []playlist.Set
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		sets = append(sets, *set)
	}
	return sets, rows.Err()
}

// Delete removes a set by ID.
func (r *SetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM dj_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting set: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSet(row pgx.Row) (*playlist.Set, error) {
	var (
		set       playlist.Set
		timeRange string
	)
	err := row.Scan(
		&set.ID,
		&set.UserID,
		&timeRange,
		&set.Mood,
		&set.Averages,
		&set.Seeds,
		&set.Tracks,
		&set.SeedFallback,
		&set.TrackFallback,
		&set.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	set.TimeRange = spotify.TimeRange(timeRange)
	return &set, nil
}

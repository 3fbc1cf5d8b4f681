package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/justestif/go-spotify-radio-dj/internal/clustering"
	"github.com/justestif/go-spotify-radio-dj/internal/config"
	"github.com/justestif/go-spotify-radio-dj/internal/db"
	"github.com/justestif/go-spotify-radio-dj/internal/metrics"
	"github.com/justestif/go-spotify-radio-dj/internal/playlist"
	"github.com/justestif/go-spotify-radio-dj/internal/theme"
	"github.com/justestif/go-spotify-radio-dj/internal/web"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API server",
		Long: `Serve clustering, palette and DJ set endpoints over HTTP.

Set DATABASE_URL (or database.url) to persist sets and cache artwork themes.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rng, seed := seededRand(cfg)
	m := metrics.New()

	var (
		themeStore theme.PaletteStore
		setStore   playlist.SetStore
		handlerOps = []web.HandlerOption{
			web.WithMetrics(m),
			web.WithImageLimits(cfg.Palette.MaxBytes, cfg.Palette.MaxSide),
		}
		database *db.DB
	)
	if cfg.Database.URL != "" {
		database, err = openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer database.Close()

		themeStore = database
		setStore = database
		handlerOps = append(handlerOps,
			web.WithSetReader(database.Sets()),
			web.WithPinger(database),
		)
	} else {
		log.Warn().Msg("no database configured, sets and themes will not be persisted")
	}

	themes := newThemeService(cfg, clustering.NewRand(rng.Uint64()), themeStore, m)
	handlerOps = append(handlerOps, web.WithBuilderFactory(builderFactory(cfg, clustering.NewRand(rng.Uint64()), setStore, m)))

	handlers := web.NewHandlers(themes, clustering.NewRand(rng.Uint64()), handlerOps...)
	server := web.NewServer(serverConfig(cfg.Server), handlers)

	log.Info().
		Str("addr", cfg.Server.Addr).
		Uint64("seed", seed).
		Bool("database", database != nil).
		Msg("starting server")

	return server.Run(ctx)
}

// openDatabase connects, migrates and drops palettes older than the cache TTL.
func openDatabase(ctx context.Context, url string) (*db.DB, error) {
	database, err := db.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	removed, err := database.Palettes().DeleteOlderThan(ctx, time.Now().Add(-theme.CacheTTL))
	if err != nil {
		log.Warn().Err(err).Msg("pruning stale palettes")
	} else if removed > 0 {
		log.Info().Int64("removed", removed).Msg("pruned stale palettes")
	}
	return database, nil
}

func serverConfig(c config.ServerConfig) web.ServerConfig {
	return web.ServerConfig{
		Addr:            c.Addr,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		IdleTimeout:     c.IdleTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
	}
}

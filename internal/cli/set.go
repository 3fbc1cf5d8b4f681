package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/justestif/go-spotify-radio-dj/internal/auth"
	"github.com/justestif/go-spotify-radio-dj/internal/playlist"
	"github.com/justestif/go-spotify-radio-dj/internal/spotify"
)

// NewSetCmd creates the set command.
func NewSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Build a DJ set from your top tracks",
		Long: `Cluster your top tracks by audio features, pick one mood cluster and
ask Spotify for recommendations seeded from it.

A user access token is read from --token or SPOTIFY_TOKEN and cached for an
hour; later runs reuse the cached token.`,
		Args: cobra.NoArgs,
		RunE: runSet,
	}
	cmd.Flags().String("token", "", "Spotify user access token")
	cmd.Flags().Bool("playlist", false, "Save the set as a private Spotify playlist")
	cmd.Flags().String("name", "", "Playlist name (default: mood and date)")
	return cmd
}

func runSet(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	supplied, _ := cmd.Flags().GetString("token")
	if supplied == "" {
		supplied = os.Getenv("SPOTIFY_TOKEN")
	}
	cache, err := auth.DefaultTokenCache()
	if err != nil {
		return err
	}
	token, err := cache.Resolve(supplied)
	if errors.Is(err, auth.ErrNoToken) {
		return fmt.Errorf("%w: pass --token or set SPOTIFY_TOKEN", err)
	}
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client := spotify.NewFromToken(ctx, token)
	userID, err := client.UserID(ctx)
	if err != nil {
		return err
	}

	var store playlist.SetStore
	if cfg.Database.URL != "" {
		database, err := openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer database.Close()
		store = database
	}

	rng, seed := seededRand(cfg)
	builder := playlist.NewBuilder(client, rng, builderOptions(cfg, store, nil)...)
	set, err := builder.Build(ctx, userID)
	if err != nil {
		return fmt.Errorf("building set: %w", err)
	}
	log.Debug().Uint64("seed", seed).Str("set_id", set.ID.String()).Msg("built set")

	var playlistID string
	if save, _ := cmd.Flags().GetBool("playlist"); save {
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = playlistName(set)
		}
		playlistID, err = client.SavePlaylist(ctx, name, "Built by radio-dj", set.Tracks)
		if err != nil {
			return fmt.Errorf("saving playlist: %w", err)
		}
	}

	if wantJSON(cmd) {
		return writeJSON(cmd, struct {
			*playlist.Set
			PlaylistID string `json:"playlist_id,omitempty"`
		}{set, playlistID})
	}

	fmt.Fprint(cmd.OutOrStdout(), playlist.FormatSet(set))
	if playlistID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nSaved playlist %s\n", playlistID)
	}
	return nil
}

func playlistName(set *playlist.Set) string {
	created := set.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if set.Mood == "" {
		return "DJ Set " + created.Format("2006-01-02")
	}
	return fmt.Sprintf("%s DJ Set %s", set.Mood, created.Format("2006-01-02"))
}

// Package cli implements the radio-dj command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/justestif/go-spotify-radio-dj/internal/config"
	"github.com/justestif/go-spotify-radio-dj/internal/logging"
)

// NewRootCmd builds the radio-dj command with every subcommand attached.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "radio-dj",
		Short:         "Mood-clustered DJ sets and artwork color themes for Spotify",
		Long:          `Cluster your top tracks by audio features into DJ sets, and extract three-color themes from album artwork.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	rootCmd.AddCommand(
		NewServeCmd(),
		NewPaletteCmd(),
		NewQuantizeCmd(),
		NewClusterCmd(),
		NewSetCmd(),
	)
	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "radio-dj.yaml", "Path to the YAML config file")
	cmd.PersistentFlags().Uint64("seed", 0, "Random seed (default: config or clock)")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
}

// loadConfig reads the config named by --config, applies flag overrides,
// validates it and configures logging on stderr.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		cfg.Clustering.Seed = &seed
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.SetupWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Pretty)
	return cfg, nil
}

// seededRand returns the generator for this invocation and its seed.
func seededRand(cfg *config.Config) (*rand.Rand, uint64) {
	seed := cfg.Seed()
	return config.Rand(seed), seed
}

func wantJSON(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

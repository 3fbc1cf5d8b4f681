package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justestif/go-spotify-radio-dj/internal/artwork"
	"github.com/justestif/go-spotify-radio-dj/internal/palette"
	"github.com/justestif/go-spotify-radio-dj/internal/theme"
)

// NewPaletteCmd creates the palette command.
func NewPaletteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "palette <image-file|url>",
		Short: "Extract a three-color theme from an image",
		Long: `Extract primary, secondary and tertiary theme colors from a local image
or an artwork URL. Colors are darkened and ordered from darkest to lightest.`,
		Args: cobra.ExactArgs(1),
		RunE: runPalette,
	}
	cmd.Flags().String("strategy", "", "Extraction strategy (cluster|mediancut, default: config)")
	cmd.Flags().Int("k", 0, "Cluster count for the cluster strategy (default: config)")
	cmd.Flags().Int("depth", -1, "Split depth for the mediancut strategy (default: config)")
	return cmd
}

func runPalette(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if name, _ := cmd.Flags().GetString("strategy"); name != "" {
		cfg.Palette.Strategy = name
	}
	if k, _ := cmd.Flags().GetInt("k"); k > 0 {
		cfg.Palette.K = k
	}
	if d, _ := cmd.Flags().GetInt("depth"); d >= 0 {
		cfg.Palette.Depth = d
	}
	strategy, err := theme.ParseStrategy(cfg.Palette.Strategy)
	if err != nil {
		return err
	}

	rng, _ := seededRand(cfg)
	svc := newThemeService(cfg, rng, nil, nil)

	source := args[0]
	var res *theme.Result
	if isURL(source) {
		res, err = svc.ForImageURL(cmd.Context(), source)
	} else {
		var samples []palette.Color
		samples, err = readSamples(source, cfg.Palette.MaxBytes, cfg.Palette.MaxSide)
		if err != nil {
			return err
		}
		res, err = svc.Extract(cmd.Context(), samples, strategy)
	}
	if err != nil {
		return fmt.Errorf("extracting theme: %w", err)
	}

	if wantJSON(cmd) {
		return writeJSON(cmd, res)
	}
	printTheme(cmd, res)
	return nil
}

// NewQuantizeCmd creates the quantize command.
func NewQuantizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quantize <image-file>",
		Short: "Reduce an image to at most 2^depth median-cut colors",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuantize,
	}
	cmd.Flags().Int("depth", palette.MaxDepth, "Split depth, 0 to 4")
	return cmd
}

func runQuantize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	depth, _ := cmd.Flags().GetInt("depth")
	if depth < 0 || depth > palette.MaxDepth {
		return fmt.Errorf("depth must be in [0,%d], got %d", palette.MaxDepth, depth)
	}

	samples, err := readSamples(args[0], cfg.Palette.MaxBytes, cfg.Palette.MaxSide)
	if err != nil {
		return err
	}
	colors := palette.MedianCut(samples, depth)

	if wantJSON(cmd) {
		return writeJSON(cmd, colors)
	}
	for _, c := range colors {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  lightness %.3f\n", c.Hex(), c.Lightness())
	}
	return nil
}

func readSamples(path string, maxBytes int64, maxSide int) ([]palette.Color, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	samples, err := artwork.DecodeSamples(f, maxBytes, maxSide)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return samples, nil
}

func printTheme(cmd *cobra.Command, res *theme.Result) {
	out := cmd.OutOrStdout()
	roles := []string{"primary", "secondary", "tertiary"}
	for i, c := range res.Theme.Colors() {
		fmt.Fprintf(out, "%-9s  %s\n", roles[i], c.Hex())
	}
	if len(res.Colors) > 3 {
		hexes := make([]string, len(res.Colors))
		for i, c := range res.Colors {
			hexes[i] = c.Hex()
		}
		fmt.Fprintf(out, "candidates %s\n", strings.Join(hexes, " "))
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

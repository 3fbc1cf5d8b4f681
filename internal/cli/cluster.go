package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/justestif/go-spotify-radio-dj/internal/clustering"
	"github.com/justestif/go-spotify-radio-dj/internal/vector"
)

// NewClusterCmd creates the cluster command.
func NewClusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster <csv-file|->",
		Short: "Run k-means over numeric CSV rows",
		Long: `Partition the rows of a CSV file into k clusters. Every row is one vector;
a first row that does not parse as numbers is treated as a header.`,
		Args: cobra.ExactArgs(1),
		RunE: runCluster,
	}
	cmd.Flags().IntP("k", "k", 3, "Number of clusters")
	cmd.Flags().Bool("kmeanspp", false, "Use k-means++ seeding instead of naive")
	cmd.Flags().Int("max-iterations", 0, "Reassignment pass limit (default: config)")
	return cmd
}

type clusterOutput struct {
	Seed       uint64          `json:"seed"`
	Iterations int             `json:"iterations"`
	Converged  bool            `json:"converged"`
	Clusters   []clusterRecord `json:"clusters"`
}

type clusterRecord struct {
	Centroid []float64 `json:"centroid"`
	Indexes  []int     `json:"indexes"`
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	k, _ := cmd.Flags().GetInt("k")
	useKpp, _ := cmd.Flags().GetBool("kmeanspp")
	maxIter, _ := cmd.Flags().GetInt("max-iterations")
	if maxIter <= 0 {
		maxIter = cfg.Clustering.MaxIterations
	}

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening dataset: %w", err)
		}
		defer f.Close()
		in = f
	}

	data, err := readDataset(in)
	if err != nil {
		return err
	}

	rng, seed := seededRand(cfg)
	res, err := clustering.New(rng, clustering.WithMaxIterations(maxIter)).Cluster(data, k, useKpp)
	if err != nil {
		return fmt.Errorf("clustering: %w", err)
	}
	log.Debug().
		Uint64("seed", seed).
		Int("points", len(data)).
		Int("iterations", res.Iterations).
		Bool("converged", res.Converged).
		Msg("clustered dataset")

	out := clusterOutput{
		Seed:       seed,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Clusters:   make([]clusterRecord, len(res.Clusters)),
	}
	for i, c := range res.Clusters {
		idx := c.Indexes
		if idx == nil {
			idx = []int{}
		}
		out.Clusters[i] = clusterRecord{Centroid: c.Centroid, Indexes: idx}
	}

	if wantJSON(cmd) {
		return writeJSON(cmd, out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%d points, k=%d, %d iterations (converged: %t, seed %d)\n",
		len(data), k, res.Iterations, res.Converged, seed)
	for i, c := range out.Clusters {
		fmt.Fprintf(w, "cluster %d: %d points, centroid %s\n", i, len(c.Indexes), formatVector(c.Centroid))
	}
	return nil
}

// readDataset parses CSV rows into vectors. A leading non-numeric row is
// skipped as a header. Blank cells are rejected.
func readDataset(r io.Reader) (vector.Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var data vector.Dataset
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}

		v, err := parseRow(record)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		data = append(data, v)
	}
	return data, nil
}

func parseRow(record []string) (vector.Vector, error) {
	v := make(vector.Vector, len(record))
	for i, field := range record {
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i+1, err)
		}
		v[i] = f
	}
	return v, nil
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', 4, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

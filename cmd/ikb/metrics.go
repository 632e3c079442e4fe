package main

import (
	"fmt"
	"os"

	"ikb/internal/coupling"
	"ikb/internal/epistemic"
	"ikb/internal/logging"
	"ikb/internal/storage"
	"ikb/internal/version"

	"github.com/spf13/cobra"
)

var (
	metricsFormat string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compute coupling and epistemic trust metrics",
	Long: `Computes traceability metrics from the stored atoms, test records,
recommendations, and the latest coverage report.

Coupling metrics measure how well intent atoms, tests, and code are linked.
Epistemic metrics classify atoms into proven / committed / inferred / unknown
and derive certainty scores.

Examples:
  ikb metrics
  ikb metrics --format yaml
  ikb metrics --format human`,
	Run: runMetrics,
}

func init() {
	metricsCmd.Flags().StringVar(&metricsFormat, "format", "json", "Output format (json, yaml, human)")
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, args []string) {
	logger := newLogger(metricsFormat)
	repoRoot := mustGetRepoRoot()
	db := mustGetDB(repoRoot, logger)

	response, err := computeMetrics(db, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing metrics: %v\n", err)
		os.Exit(1)
	}

	output, err := FormatResponse(response, OutputFormat(metricsFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

// computeMetrics loads all records and the latest report and runs both engines
func computeMetrics(db *storage.DB, logger *logging.Logger) (*MetricsResponseCLI, error) {
	atoms, err := db.ListAtoms()
	if err != nil {
		return nil, err
	}
	tests, err := db.ListTestRecords()
	if err != nil {
		return nil, err
	}
	recs, err := db.ListRecommendations()
	if err != nil {
		return nil, err
	}
	latest, err := db.LatestReport()
	if err != nil {
		return nil, err
	}

	couplingEngine := coupling.NewEngine(logger)
	epistemicEngine := epistemic.NewEngine(couplingEngine, logger)

	return &MetricsResponseCLI{
		IkbVersion: version.Version,
		Coupling:   couplingEngine.Compute(atoms, tests, recs),
		Epistemic:  epistemicEngine.Compute(atoms, tests, recs, latest),
	}, nil
}

// MetricsResponseCLI contains the combined metrics for CLI output
type MetricsResponseCLI struct {
	IkbVersion string             `json:"ikbVersion" yaml:"ikbVersion"`
	Coupling   *coupling.Metrics  `json:"coupling" yaml:"coupling"`
	Epistemic  *epistemic.Metrics `json:"epistemic" yaml:"epistemic"`
}

package main

import (
	"fmt"
	"os"

	"ikb/internal/coverage"

	"github.com/spf13/cobra"
)

var (
	coverageFormat  string
	coverageID      string
	coverageHistory bool
	coverageLimit   int
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Show persisted coverage reports",
	Long: `Display the latest persisted coverage report, a specific report by ID,
or the report history.

Examples:
  ikb coverage                    # Latest report
  ikb coverage --id <report-id>
  ikb coverage --history --limit 10
  ikb coverage --format yaml`,
	Run: runCoverage,
}

func init() {
	coverageCmd.Flags().StringVar(&coverageFormat, "format", "human", "Output format (json, yaml, human)")
	coverageCmd.Flags().StringVar(&coverageID, "id", "", "Show a specific report by ID")
	coverageCmd.Flags().BoolVar(&coverageHistory, "history", false, "Include report history")
	coverageCmd.Flags().IntVar(&coverageLimit, "limit", 10, "Number of history entries (1-100)")
	rootCmd.AddCommand(coverageCmd)
}

func runCoverage(cmd *cobra.Command, args []string) {
	logger := newLogger(coverageFormat)
	repoRoot := mustGetRepoRoot()
	db := mustGetDB(repoRoot, logger)

	if coverageLimit < 1 {
		coverageLimit = 1
	}
	if coverageLimit > 100 {
		coverageLimit = 100
	}

	response := &CoverageResponseCLI{}

	var err error
	if coverageID != "" {
		response.Report, err = db.GetReport(coverageID)
	} else {
		response.Report, err = db.LatestReport()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if coverageHistory {
		response.History, err = db.ReportHistory(coverageLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading history: %v\n", err)
			os.Exit(1)
		}
	}

	output, err := FormatResponse(response, OutputFormat(coverageFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

// CoverageResponseCLI contains a coverage report view for CLI output
type CoverageResponseCLI struct {
	Report  *coverage.Report   `json:"report" yaml:"report"`
	History []*coverage.Report `json:"history,omitempty" yaml:"history,omitempty"`
}

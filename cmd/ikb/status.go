package main

import (
	"fmt"
	"os"
	"path/filepath"

	"ikb/internal/project"
	"ikb/internal/version"

	"github.com/spf13/cobra"
)

var (
	statusFormat string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store status",
	Long:  "Displays initialization state, stored record counts, and the last snapshot date.",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	logger := newLogger(statusFormat)
	repoRoot := mustGetRepoRoot()

	response := &StatusResponseCLI{
		IkbVersion: version.Version,
	}

	if _, err := os.Stat(filepath.Join(repoRoot, ".ikb")); err == nil {
		response.Initialized = true
	}

	if decl, err := project.Load(repoRoot); err == nil && decl != nil {
		response.Project = decl.Name
	}

	if response.Initialized {
		db := mustGetDB(repoRoot, logger)

		atoms, tests, recs, err := db.RecordCounts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading record counts: %v\n", err)
			os.Exit(1)
		}
		response.Atoms = atoms
		response.TestRecords = tests
		response.Recommendations = recs

		reports, err := db.ReportCount()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading report count: %v\n", err)
			os.Exit(1)
		}
		response.Reports = reports

		if snapshot, err := db.LatestSnapshot(); err == nil && snapshot != nil {
			response.LastSnapshot = snapshot.Date
		}
	}

	output, err := FormatResponse(response, OutputFormat(statusFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

// StatusResponseCLI contains store status for CLI output
type StatusResponseCLI struct {
	IkbVersion      string `json:"ikbVersion" yaml:"ikbVersion"`
	Initialized     bool   `json:"initialized" yaml:"initialized"`
	Project         string `json:"project,omitempty" yaml:"project,omitempty"`
	Reports         int    `json:"reports" yaml:"reports"`
	Atoms           int    `json:"atoms" yaml:"atoms"`
	TestRecords     int    `json:"testRecords" yaml:"testRecords"`
	Recommendations int    `json:"recommendations" yaml:"recommendations"`
	LastSnapshot    string `json:"lastSnapshot,omitempty" yaml:"lastSnapshot,omitempty"`
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"ikb/internal/coverage"
	"ikb/internal/errors"
	"ikb/internal/project"
	"ikb/internal/records"

	"github.com/spf13/cobra"
)

var (
	ingestCommit string
	ingestBranch string
	ingestFormat string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest coverage reports and traceability records",
}

var ingestCoverageCmd = &cobra.Command{
	Use:   "coverage <file>",
	Short: "Ingest a coverage report",
	Long: `Parses a coverage report and persists its normalized form.

The format is detected automatically. Supported formats:
  - lcov (lcov.info)
  - istanbul JSON (coverage-summary.json or coverage-final.json)
  - cobertura XML

Examples:
  ikb ingest coverage coverage/lcov.info
  ikb ingest coverage coverage-summary.json --commit abc123 --branch main`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestCoverage,
}

var ingestRecordsCmd = &cobra.Command{
	Use:   "records <file>",
	Short: "Import a JSON bundle of atoms, test records, and recommendations",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestRecords,
}

func init() {
	ingestCoverageCmd.Flags().StringVar(&ingestCommit, "commit", "", "Commit hash to associate with the report")
	ingestCoverageCmd.Flags().StringVar(&ingestBranch, "branch", "", "Branch name (defaults to PROJECT.toml default_branch)")
	ingestCmd.PersistentFlags().StringVar(&ingestFormat, "format", "human", "Output format (json, yaml, human)")
	ingestCmd.AddCommand(ingestCoverageCmd)
	ingestCmd.AddCommand(ingestRecordsCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngestCoverage(cmd *cobra.Command, args []string) error {
	logger := newLogger(ingestFormat)
	repoRoot := mustGetRepoRoot()

	payload, err := os.ReadFile(args[0])
	if err != nil {
		return errors.NewIkbError(errors.InternalError,
			fmt.Sprintf("Failed to read %s", args[0]), err, nil)
	}

	report, err := coverage.DetectAndParse(string(payload))
	if err != nil {
		return err
	}

	report.CommitHash = ingestCommit
	report.BranchName = ingestBranch

	// Fall back to the declared default branch when none was given
	if report.BranchName == "" {
		decl, declErr := project.Load(repoRoot)
		if declErr != nil {
			logger.Warn("Failed to read project declaration", map[string]interface{}{
				"error": declErr.Error(),
			})
		} else if decl != nil {
			report.BranchName = decl.DefaultBranch
		}
	}

	db := mustGetDB(repoRoot, logger)
	id, err := db.SaveReport(report, string(payload))
	if err != nil {
		return err
	}

	// Keep the stored history bounded
	cfg := loadConfig(repoRoot, logger)
	if cfg.Storage.HistoryLimit > 0 {
		if _, pruneErr := db.PruneReports(cfg.Storage.HistoryLimit); pruneErr != nil {
			logger.Warn("Failed to prune report history", map[string]interface{}{
				"error": pruneErr.Error(),
			})
		}
	}

	fmt.Printf("Ingested %s report %s\n", report.Format, id)
	fmt.Printf("  Lines: %d/%d (%.2f%%), Files: %d\n",
		report.Summary.Lines.Covered, report.Summary.Lines.Total,
		report.Summary.Lines.Pct, len(report.Files))

	return nil
}

func runIngestRecords(cmd *cobra.Command, args []string) error {
	logger := newLogger(ingestFormat)
	repoRoot := mustGetRepoRoot()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.NewIkbError(errors.InternalError,
			fmt.Sprintf("Failed to read %s", args[0]), err, nil)
	}

	var bundle records.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return errors.NewIkbError(errors.InvalidRecords,
			"Records bundle is not valid JSON", err, nil)
	}

	if err := validateBundle(&bundle); err != nil {
		return err
	}

	db := mustGetDB(repoRoot, logger)
	result, err := db.ImportBundle(&bundle)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d atoms, %d test records, %d recommendations\n",
		result.Atoms, result.TestRecords, result.Recommendations)

	return nil
}

// validateBundle rejects bundles with structurally invalid entries before
// anything is written
func validateBundle(bundle *records.Bundle) error {
	for i, atom := range bundle.Atoms {
		if atom.AtomID == "" {
			return errors.NewIkbError(errors.InvalidRecords,
				fmt.Sprintf("atom at index %d has no atomId", i), nil, nil)
		}
		switch atom.Status {
		case records.AtomDraft, records.AtomCommitted, records.AtomSuperseded:
		default:
			return errors.NewIkbError(errors.InvalidRecords,
				fmt.Sprintf("atom %s has invalid status %q", atom.AtomID, atom.Status), nil, nil)
		}
	}

	for i, rec := range bundle.TestRecords {
		if rec.FilePath == "" {
			return errors.NewIkbError(errors.InvalidRecords,
				fmt.Sprintf("test record at index %d has no filePath", i), nil, nil)
		}
	}

	for i, rec := range bundle.Recommendations {
		if rec.AtomID == "" {
			return errors.NewIkbError(errors.InvalidRecords,
				fmt.Sprintf("recommendation at index %d has no atomId", i), nil, nil)
		}
		switch rec.Status {
		case records.RecommendationPending, records.RecommendationAccepted, records.RecommendationRejected:
		default:
			return errors.NewIkbError(errors.InvalidRecords,
				fmt.Sprintf("recommendation for %s has invalid status %q", rec.AtomID, rec.Status), nil, nil)
		}
	}

	return nil
}

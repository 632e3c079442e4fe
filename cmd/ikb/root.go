package main

import (
	"ikb/internal/version"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ikb",
	Short: "IKB - Intent Knowledge Backend",
	Long: `IKB (Intent Knowledge Backend) tracks requirements-to-test traceability.
It normalizes coverage reports (lcov, istanbul JSON, cobertura XML), links intent
atoms to test records, and computes coupling and epistemic trust metrics.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("IKB version {{.Version}}\n")
}

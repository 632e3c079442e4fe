package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ikb/internal/config"
	"ikb/internal/errors"
	"ikb/internal/logging"

	"github.com/spf13/cobra"
)

var (
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize IKB configuration",
	Long:  "Creates a .ikb/ directory with default configuration in the current repository root",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force reinitialization (removes existing .ikb directory)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(logging.Config{
		Format: "human",
		Level:  "info",
	})

	cwd, err := os.Getwd()
	if err != nil {
		return errors.NewIkbError(errors.InternalError, "Failed to get current directory", err, nil)
	}

	// Check if .ikb already exists
	ikbDir := filepath.Join(cwd, ".ikb")
	if _, statErr := os.Stat(ikbDir); statErr == nil {
		if !initForce {
			// Idempotent behavior: already initialized is success (CI-friendly)
			fmt.Println("IKB already initialized.")
			fmt.Printf("Configuration at: %s\n", filepath.Join(ikbDir, "config.json"))
			fmt.Println("\nRun 'ikb init --force' to reinitialize.")
			return nil
		}
		if removeErr := os.RemoveAll(ikbDir); removeErr != nil {
			return errors.NewIkbError(errors.InternalError, "Failed to remove existing .ikb directory", removeErr, nil)
		}
		logger.Info("Removed existing .ikb directory", nil)
	}

	if mkdirErr := os.MkdirAll(ikbDir, 0755); mkdirErr != nil {
		return errors.NewIkbError(errors.InternalError, "Failed to create .ikb directory", mkdirErr, nil)
	}

	cfg := config.DefaultConfig()
	cfg.RepoRoot = "."

	configPath := filepath.Join(ikbDir, "config.json")
	configData, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.NewIkbError(errors.InternalError, "Failed to marshal config", err, nil)
	}

	if writeErr := os.WriteFile(configPath, configData, 0644); writeErr != nil {
		return errors.NewIkbError(errors.InternalError, "Failed to write config file", writeErr, nil)
	}

	logger.Info("IKB initialized successfully", map[string]interface{}{
		"config_path": configPath,
	})

	fmt.Println("IKB initialized successfully!")
	fmt.Printf("Configuration written to: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'ikb ingest coverage <file>' to add a coverage report")
	fmt.Println("  2. Run 'ikb ingest records <file>' to import atoms and test records")
	fmt.Println("  3. Run 'ikb metrics' to compute trust metrics")

	return nil
}

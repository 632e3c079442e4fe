package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		// Create schema_version table first
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		// Create all application tables
		if err := createCoverageReportsTable(tx); err != nil {
			return err
		}
		if err := createAtomsTable(tx); err != nil {
			return err
		}
		if err := createTestRecordsTable(tx); err != nil {
			return err
		}
		if err := createRecommendationsTable(tx); err != nil {
			return err
		}
		if err := createMetricsHistoryTable(tx); err != nil {
			return err
		}

		// Set initial schema version
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}

	db.logger.Info("Running database migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Run migrations sequentially
	// Add migration functions here as schema evolves

	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		// Table doesn't exist, this is a new database
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createCoverageReportsTable creates the coverage_reports table.
// Summary and per-file data are stored as JSON; the original payload is
// kept gzip-compressed for audit and re-parsing.
func createCoverageReportsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS coverage_reports (
			id TEXT PRIMARY KEY,
			format TEXT NOT NULL CHECK(format IN ('lcov', 'istanbul', 'cobertura')),
			summary_json TEXT NOT NULL,
			files_json TEXT NOT NULL,
			commit_hash TEXT,
			branch_name TEXT,
			metadata_json TEXT,
			raw_payload BLOB,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create coverage_reports table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_coverage_reports_created_at ON coverage_reports(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_coverage_reports_branch ON coverage_reports(branch_name)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createAtomsTable creates the atoms table
func createAtomsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS atoms (
			id TEXT PRIMARY KEY,
			atom_id TEXT NOT NULL UNIQUE,
			description TEXT,
			status TEXT NOT NULL CHECK(status IN ('draft', 'committed', 'superseded')),
			quality_score REAL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create atoms table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_atoms_status ON atoms(status)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// createTestRecordsTable creates the test_records table
func createTestRecordsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS test_records (
			id TEXT PRIMARY KEY,
			file_path TEXT NOT NULL,
			test_name TEXT,
			status TEXT,
			had_atom_annotation INTEGER NOT NULL DEFAULT 0,
			atom_recommendation_id TEXT,
			quality_score REAL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create test_records table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_test_records_file_path ON test_records(file_path)",
		"CREATE INDEX IF NOT EXISTS idx_test_records_recommendation ON test_records(atom_recommendation_id)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createRecommendationsTable creates the atom_recommendations table
func createRecommendationsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS atom_recommendations (
			id TEXT PRIMARY KEY,
			atom_id TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('pending', 'accepted', 'rejected')),
			confidence REAL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create atom_recommendations table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_recommendations_atom_id ON atom_recommendations(atom_id)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// createMetricsHistoryTable creates the metrics_history table.
// One row per calendar day; re-running a snapshot on the same day
// replaces that day's row.
func createMetricsHistoryTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metrics_history (
			snapshot_date TEXT PRIMARY KEY,
			coupling_json TEXT NOT NULL,
			epistemic_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create metrics_history table: %w", err)
	}

	return nil
}

package storage

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"ikb/internal/coverage"
	ikberrors "ikb/internal/errors"
)

// SaveReport persists a normalized coverage report. The original payload is
// stored gzip-compressed alongside the normalized form. Returns the assigned
// report ID.
func (db *DB) SaveReport(report *coverage.Report, rawPayload string) (string, error) {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	summaryJSON, err := json.Marshal(report.Summary)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	filesJSON, err := json.Marshal(report.Files)
	if err != nil {
		return "", fmt.Errorf("failed to marshal files: %w", err)
	}

	var metadataJSON []byte
	if report.Metadata != nil {
		metadataJSON, err = json.Marshal(report.Metadata)
		if err != nil {
			return "", fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	compressed, err := compressPayload(rawPayload)
	if err != nil {
		return "", fmt.Errorf("failed to compress payload: %w", err)
	}

	err = db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO coverage_reports
				(id, format, summary_json, files_json, commit_hash, branch_name, metadata_json, raw_payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			report.ID,
			string(report.Format),
			string(summaryJSON),
			string(filesJSON),
			nullableString(report.CommitHash),
			nullableString(report.BranchName),
			nullableBytes(metadataJSON),
			compressed,
			report.CreatedAt.Format(time.RFC3339),
		)
		return err
	})
	if err != nil {
		return "", ikberrors.NewIkbError(ikberrors.StoreUnavailable, "failed to save coverage report", err, nil)
	}

	db.logger.Info("Coverage report saved", map[string]interface{}{
		"report_id": report.ID,
		"format":    string(report.Format),
		"files":     len(report.Files),
	})

	return report.ID, nil
}

// GetReport loads a report by ID. Returns a ReportNotFound error when the
// ID does not exist.
func (db *DB) GetReport(id string) (*coverage.Report, error) {
	row := db.QueryRow(`
		SELECT id, format, summary_json, files_json, commit_hash, branch_name, metadata_json, created_at
		FROM coverage_reports
		WHERE id = ?
	`, id)

	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, ikberrors.NewIkbError(ikberrors.ReportNotFound,
			fmt.Sprintf("coverage report %q not found", id), nil, nil)
	}
	if err != nil {
		return nil, ikberrors.NewIkbError(ikberrors.StoreUnavailable, "failed to load coverage report", err, nil)
	}

	return report, nil
}

// LatestReport returns the most recently ingested report, or (nil, nil)
// when no reports exist.
func (db *DB) LatestReport() (*coverage.Report, error) {
	row := db.QueryRow(`
		SELECT id, format, summary_json, files_json, commit_hash, branch_name, metadata_json, created_at
		FROM coverage_reports
		ORDER BY rowid DESC
		LIMIT 1
	`)

	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, ikberrors.NewIkbError(ikberrors.StoreUnavailable, "failed to load latest report", err, nil)
	}

	return report, nil
}

// ReportHistory returns up to limit reports, newest first. Per-file data is
// omitted; callers needing files should use GetReport.
func (db *DB) ReportHistory(limit int) ([]*coverage.Report, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT id, format, summary_json, commit_hash, branch_name, created_at
		FROM coverage_reports
		ORDER BY rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, ikberrors.NewIkbError(ikberrors.StoreUnavailable, "failed to query report history", err, nil)
	}
	defer rows.Close()

	var reports []*coverage.Report
	for rows.Next() {
		var (
			report      coverage.Report
			format      string
			summaryJSON string
			commitHash  sql.NullString
			branchName  sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&report.ID, &format, &summaryJSON, &commitHash, &branchName, &createdAt); err != nil {
			return nil, err
		}
		report.Format = coverage.Format(format)
		if err := json.Unmarshal([]byte(summaryJSON), &report.Summary); err != nil {
			return nil, fmt.Errorf("corrupt summary for report %s: %w", report.ID, err)
		}
		report.CommitHash = commitHash.String
		report.BranchName = branchName.String
		report.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// RawPayload returns the original (decompressed) payload for a report
func (db *DB) RawPayload(id string) (string, error) {
	var compressed []byte
	err := db.QueryRow("SELECT raw_payload FROM coverage_reports WHERE id = ?", id).Scan(&compressed)
	if err == sql.ErrNoRows {
		return "", ikberrors.NewIkbError(ikberrors.ReportNotFound,
			fmt.Sprintf("coverage report %q not found", id), nil, nil)
	}
	if err != nil {
		return "", err
	}
	if len(compressed) == 0 {
		return "", nil
	}

	return decompressPayload(compressed)
}

// ReportCount returns the total number of stored reports
func (db *DB) ReportCount() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM coverage_reports").Scan(&count)
	return count, err
}

// PruneReports deletes the oldest reports so at most keep remain
func (db *DB) PruneReports(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	result, err := db.Exec(`
		DELETE FROM coverage_reports
		WHERE rowid NOT IN (
			SELECT rowid FROM coverage_reports ORDER BY rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, err
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		db.logger.Debug("Pruned old coverage reports", map[string]interface{}{
			"deleted": deleted,
			"kept":    keep,
		})
	}

	return int(deleted), nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanReport
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*coverage.Report, error) {
	var (
		report       coverage.Report
		format       string
		summaryJSON  string
		filesJSON    string
		commitHash   sql.NullString
		branchName   sql.NullString
		metadataJSON sql.NullString
		createdAt    string
	)

	err := row.Scan(&report.ID, &format, &summaryJSON, &filesJSON,
		&commitHash, &branchName, &metadataJSON, &createdAt)
	if err != nil {
		return nil, err
	}

	report.Format = coverage.Format(format)
	if err := json.Unmarshal([]byte(summaryJSON), &report.Summary); err != nil {
		return nil, fmt.Errorf("corrupt summary for report %s: %w", report.ID, err)
	}
	if err := json.Unmarshal([]byte(filesJSON), &report.Files); err != nil {
		return nil, fmt.Errorf("corrupt files for report %s: %w", report.ID, err)
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &report.Metadata); err != nil {
			return nil, fmt.Errorf("corrupt metadata for report %s: %w", report.ID, err)
		}
	}
	report.CommitHash = commitHash.String
	report.BranchName = branchName.String
	report.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &report, nil
}

func compressPayload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, nil
	}

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(payload)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decompressPayload(compressed []byte) (string, error) {
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", fmt.Errorf("failed to decompress payload: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decompress payload: %w", err)
	}

	return string(data), nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ikb/internal/coupling"
	"ikb/internal/epistemic"
	ikberrors "ikb/internal/errors"
)

// Snapshot is one day's metrics capture
type Snapshot struct {
	Date      string             `json:"date"` // YYYY-MM-DD
	Coupling  *coupling.Metrics  `json:"coupling"`
	Epistemic *epistemic.Metrics `json:"epistemic"`
	CreatedAt time.Time          `json:"createdAt"`
}

// UpsertSnapshot records today's metrics. Running the snapshot twice on the
// same calendar day replaces the earlier row rather than appending.
func (db *DB) UpsertSnapshot(snapshot *Snapshot) error {
	if snapshot.Date == "" {
		snapshot.Date = time.Now().UTC().Format("2006-01-02")
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}

	couplingJSON, err := json.Marshal(snapshot.Coupling)
	if err != nil {
		return fmt.Errorf("failed to marshal coupling metrics: %w", err)
	}
	epistemicJSON, err := json.Marshal(snapshot.Epistemic)
	if err != nil {
		return fmt.Errorf("failed to marshal epistemic metrics: %w", err)
	}

	err = db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO metrics_history (snapshot_date, coupling_json, epistemic_json, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(snapshot_date) DO UPDATE SET
				coupling_json = excluded.coupling_json,
				epistemic_json = excluded.epistemic_json,
				created_at = excluded.created_at
		`, snapshot.Date, string(couplingJSON), string(epistemicJSON),
			snapshot.CreatedAt.Format(time.RFC3339))
		return err
	})
	if err != nil {
		return ikberrors.NewIkbError(ikberrors.StoreUnavailable, "failed to save metrics snapshot", err, nil)
	}

	db.logger.Info("Metrics snapshot recorded", map[string]interface{}{
		"date": snapshot.Date,
	})

	return nil
}

// GetSnapshots returns up to limit snapshots, newest first
func (db *DB) GetSnapshots(limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := db.Query(`
		SELECT snapshot_date, coupling_json, epistemic_json, created_at
		FROM metrics_history
		ORDER BY snapshot_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, ikberrors.NewIkbError(ikberrors.StoreUnavailable, "failed to query metrics history", err, nil)
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		var (
			snapshot      Snapshot
			couplingJSON  string
			epistemicJSON string
			createdAt     string
		)
		if err := rows.Scan(&snapshot.Date, &couplingJSON, &epistemicJSON, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(couplingJSON), &snapshot.Coupling); err != nil {
			return nil, fmt.Errorf("corrupt coupling metrics for %s: %w", snapshot.Date, err)
		}
		if err := json.Unmarshal([]byte(epistemicJSON), &snapshot.Epistemic); err != nil {
			return nil, fmt.Errorf("corrupt epistemic metrics for %s: %w", snapshot.Date, err)
		}
		snapshot.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		snapshots = append(snapshots, &snapshot)
	}

	return snapshots, rows.Err()
}

// LatestSnapshot returns the most recent snapshot, or (nil, nil) when none exist
func (db *DB) LatestSnapshot() (*Snapshot, error) {
	snapshots, err := db.GetSnapshots(1)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return snapshots[0], nil
}

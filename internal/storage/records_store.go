package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	ikberrors "ikb/internal/errors"
	"ikb/internal/records"
)

// ImportResult summarizes an ImportBundle call
type ImportResult struct {
	Atoms           int `json:"atoms"`
	TestRecords     int `json:"testRecords"`
	Recommendations int `json:"recommendations"`
}

// ImportBundle upserts a records bundle in a single transaction. Entities
// are keyed by ID; re-importing a bundle replaces the stored rows.
func (db *DB) ImportBundle(bundle *records.Bundle) (*ImportResult, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	result := &ImportResult{}

	err := db.WithTx(func(tx *sql.Tx) error {
		for i := range bundle.Atoms {
			atom := &bundle.Atoms[i]
			if atom.ID == "" {
				atom.ID = uuid.New().String()
			}
			_, err := tx.Exec(`
				INSERT INTO atoms (id, atom_id, description, status, quality_score, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					atom_id = excluded.atom_id,
					description = excluded.description,
					status = excluded.status,
					quality_score = excluded.quality_score,
					updated_at = excluded.updated_at
			`, atom.ID, atom.AtomID, atom.Description, string(atom.Status),
				nullableFloat(atom.QualityScore), now)
			if err != nil {
				return err
			}
			result.Atoms++
		}

		for i := range bundle.TestRecords {
			rec := &bundle.TestRecords[i]
			if rec.ID == "" {
				rec.ID = uuid.New().String()
			}
			_, err := tx.Exec(`
				INSERT INTO test_records (id, file_path, test_name, status, had_atom_annotation, atom_recommendation_id, quality_score, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					file_path = excluded.file_path,
					test_name = excluded.test_name,
					status = excluded.status,
					had_atom_annotation = excluded.had_atom_annotation,
					atom_recommendation_id = excluded.atom_recommendation_id,
					quality_score = excluded.quality_score,
					updated_at = excluded.updated_at
			`, rec.ID, rec.FilePath, rec.TestName, rec.Status,
				boolToInt(rec.HadAtomAnnotation), nullableStringPtr(rec.AtomRecommendationID),
				nullableFloat(rec.QualityScore), now)
			if err != nil {
				return err
			}
			result.TestRecords++
		}

		for i := range bundle.Recommendations {
			rec := &bundle.Recommendations[i]
			if rec.ID == "" {
				rec.ID = uuid.New().String()
			}
			_, err := tx.Exec(`
				INSERT INTO atom_recommendations (id, atom_id, status, confidence, updated_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					atom_id = excluded.atom_id,
					status = excluded.status,
					confidence = excluded.confidence,
					updated_at = excluded.updated_at
			`, rec.ID, rec.AtomID, string(rec.Status), nullableFloat(rec.Confidence), now)
			if err != nil {
				return err
			}
			result.Recommendations++
		}

		return nil
	})
	if err != nil {
		return nil, ikberrors.NewIkbError(ikberrors.StoreUnavailable, "failed to import records bundle", err, nil)
	}

	db.logger.Info("Records bundle imported", map[string]interface{}{
		"atoms":           result.Atoms,
		"test_records":    result.TestRecords,
		"recommendations": result.Recommendations,
	})

	return result, nil
}

// ListAtoms returns all stored atoms
func (db *DB) ListAtoms() ([]records.Atom, error) {
	rows, err := db.Query(`
		SELECT id, atom_id, description, status, quality_score
		FROM atoms
		ORDER BY atom_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	atoms := []records.Atom{}
	for rows.Next() {
		var (
			atom    records.Atom
			status  string
			quality sql.NullFloat64
		)
		if err := rows.Scan(&atom.ID, &atom.AtomID, &atom.Description, &status, &quality); err != nil {
			return nil, err
		}
		atom.Status = records.AtomStatus(status)
		if quality.Valid {
			atom.QualityScore = &quality.Float64
		}
		atoms = append(atoms, atom)
	}

	return atoms, rows.Err()
}

// ListTestRecords returns all stored test records
func (db *DB) ListTestRecords() ([]records.TestRecord, error) {
	rows, err := db.Query(`
		SELECT id, file_path, test_name, status, had_atom_annotation, atom_recommendation_id, quality_score
		FROM test_records
		ORDER BY file_path, test_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	testRecords := []records.TestRecord{}
	for rows.Next() {
		var (
			rec       records.TestRecord
			annotated int
			recID     sql.NullString
			quality   sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.FilePath, &rec.TestName, &rec.Status, &annotated, &recID, &quality); err != nil {
			return nil, err
		}
		rec.HadAtomAnnotation = annotated != 0
		if recID.Valid {
			rec.AtomRecommendationID = &recID.String
		}
		if quality.Valid {
			rec.QualityScore = &quality.Float64
		}
		testRecords = append(testRecords, rec)
	}

	return testRecords, rows.Err()
}

// ListRecommendations returns all stored atom recommendations
func (db *DB) ListRecommendations() ([]records.AtomRecommendation, error) {
	rows, err := db.Query(`
		SELECT id, atom_id, status, confidence
		FROM atom_recommendations
		ORDER BY atom_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []records.AtomRecommendation{}
	for rows.Next() {
		var (
			rec        records.AtomRecommendation
			status     string
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.AtomID, &status, &confidence); err != nil {
			return nil, err
		}
		rec.Status = records.RecommendationStatus(status)
		if confidence.Valid {
			rec.Confidence = &confidence.Float64
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// RecordCounts reports how many of each record type are stored
func (db *DB) RecordCounts() (atoms, tests, recommendations int, err error) {
	if err = db.QueryRow("SELECT COUNT(*) FROM atoms").Scan(&atoms); err != nil {
		return
	}
	if err = db.QueryRow("SELECT COUNT(*) FROM test_records").Scan(&tests); err != nil {
		return
	}
	err = db.QueryRow("SELECT COUNT(*) FROM atom_recommendations").Scan(&recommendations)
	return
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullableStringPtr(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

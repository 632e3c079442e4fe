package storage

import (
	stderrors "errors"
	"io"
	"testing"

	"ikb/internal/coupling"
	"ikb/internal/coverage"
	"ikb/internal/epistemic"
	ikberrors "ikb/internal/errors"
	"ikb/internal/logging"
	"ikb/internal/records"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	logger := logging.NewLogger(logging.Config{Output: io.Discard, Level: logging.ErrorLevel})
	db, err := Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleReport() *coverage.Report {
	return &coverage.Report{
		Format: coverage.FormatLcov,
		Summary: coverage.Summary{
			Lines:      coverage.NewDimensionSummary(45, 38),
			Statements: coverage.NewDimensionSummary(45, 38),
			Branches:   coverage.NewDimensionSummary(10, 7),
			Functions:  coverage.NewDimensionSummary(5, 4),
		},
		Files: []coverage.FileCoverage{
			{
				FilePath:       "src/app.ts",
				Lines:          coverage.NewDimensionSummary(20, 18),
				Statements:     coverage.NewDimensionSummary(20, 18),
				Branches:       coverage.NewDimensionSummary(4, 3),
				Functions:      coverage.NewDimensionSummary(2, 2),
				UncoveredLines: []int{3, 10},
			},
		},
		CommitHash: "abc123",
		BranchName: "main",
		Metadata:   map[string]string{"source": "ci"},
	}
}

func TestOpenReopens(t *testing.T) {
	logger := logging.NewLogger(logging.Config{Output: io.Discard, Level: logging.ErrorLevel})
	dir := t.TempDir()

	db, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("first Open() error: %v", err)
	}
	db.Close()

	// Second open should run the migration path, not re-initialize
	db, err = Open(dir, logger)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	defer db.Close()

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestSaveAndGetReport(t *testing.T) {
	db := testDB(t)

	rawPayload := "SF:src/app.ts\nDA:1,1\nend_of_record\n"
	id, err := db.SaveReport(sampleReport(), rawPayload)
	if err != nil {
		t.Fatalf("SaveReport() error: %v", err)
	}
	if id == "" {
		t.Fatal("SaveReport() returned empty ID")
	}

	got, err := db.GetReport(id)
	if err != nil {
		t.Fatalf("GetReport() error: %v", err)
	}
	if got.Format != coverage.FormatLcov {
		t.Errorf("Format = %q, want lcov", got.Format)
	}
	if got.Summary.Lines.Pct != 84.44 {
		t.Errorf("Lines.Pct = %v, want 84.44", got.Summary.Lines.Pct)
	}
	if len(got.Files) != 1 || got.Files[0].FilePath != "src/app.ts" {
		t.Errorf("unexpected files: %+v", got.Files)
	}
	if got.CommitHash != "abc123" || got.BranchName != "main" {
		t.Errorf("commit/branch = %q/%q", got.CommitHash, got.BranchName)
	}
	if got.Metadata["source"] != "ci" {
		t.Errorf("Metadata = %v", got.Metadata)
	}

	// Raw payload survives the gzip round trip
	raw, err := db.RawPayload(id)
	if err != nil {
		t.Fatalf("RawPayload() error: %v", err)
	}
	if raw != rawPayload {
		t.Errorf("RawPayload = %q, want %q", raw, rawPayload)
	}
}

func TestGetReportNotFound(t *testing.T) {
	db := testDB(t)

	_, err := db.GetReport("nope")
	if err == nil {
		t.Fatal("expected error for missing report")
	}
	var ikbErr *ikberrors.IkbError
	if !stderrors.As(err, &ikbErr) || ikbErr.Code != ikberrors.ReportNotFound {
		t.Errorf("error = %v, want REPORT_NOT_FOUND", err)
	}
}

func TestLatestReport(t *testing.T) {
	db := testDB(t)

	latest, err := db.LatestReport()
	if err != nil {
		t.Fatalf("LatestReport() error: %v", err)
	}
	if latest != nil {
		t.Fatal("expected nil report on empty store")
	}

	first := sampleReport()
	if _, err := db.SaveReport(first, "first"); err != nil {
		t.Fatal(err)
	}
	second := sampleReport()
	second.CommitHash = "def456"
	secondID, err := db.SaveReport(second, "second")
	if err != nil {
		t.Fatal(err)
	}

	latest, err = db.LatestReport()
	if err != nil {
		t.Fatalf("LatestReport() error: %v", err)
	}
	if latest.ID != secondID {
		t.Errorf("latest ID = %q, want %q", latest.ID, secondID)
	}
	if latest.CommitHash != "def456" {
		t.Errorf("latest CommitHash = %q, want def456", latest.CommitHash)
	}
}

func TestReportHistoryAndPrune(t *testing.T) {
	db := testDB(t)

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := db.SaveReport(sampleReport(), "")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	history, err := db.ReportHistory(3)
	if err != nil {
		t.Fatalf("ReportHistory() error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[0].ID != ids[4] {
		t.Errorf("newest first: got %q, want %q", history[0].ID, ids[4])
	}

	deleted, err := db.PruneReports(2)
	if err != nil {
		t.Fatalf("PruneReports() error: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	count, err := db.ReportCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("remaining = %d, want 2", count)
	}
}

func TestImportBundleUpsert(t *testing.T) {
	db := testDB(t)

	quality := 85.0
	bundle := &records.Bundle{
		Atoms: []records.Atom{
			{ID: "a1", AtomID: "ATOM-001", Description: "validates input", Status: records.AtomCommitted, QualityScore: &quality},
			{ID: "a2", AtomID: "ATOM-002", Status: records.AtomDraft},
		},
		TestRecords: []records.TestRecord{
			{ID: "t1", FilePath: "tests/app.test.ts", TestName: "accepts valid input", HadAtomAnnotation: true},
		},
		Recommendations: []records.AtomRecommendation{
			{ID: "r1", AtomID: "ATOM-001", Status: records.RecommendationAccepted},
		},
	}

	result, err := db.ImportBundle(bundle)
	if err != nil {
		t.Fatalf("ImportBundle() error: %v", err)
	}
	if result.Atoms != 2 || result.TestRecords != 1 || result.Recommendations != 1 {
		t.Errorf("result = %+v", result)
	}

	// Re-import with a changed status should update in place
	bundle.Atoms[1].Status = records.AtomCommitted
	if _, err := db.ImportBundle(bundle); err != nil {
		t.Fatalf("second ImportBundle() error: %v", err)
	}

	atoms, err := db.ListAtoms()
	if err != nil {
		t.Fatal(err)
	}
	if len(atoms) != 2 {
		t.Fatalf("atom count = %d, want 2", len(atoms))
	}
	for _, atom := range atoms {
		if atom.Status != records.AtomCommitted {
			t.Errorf("atom %s status = %q, want committed", atom.AtomID, atom.Status)
		}
	}
	if atoms[0].QualityScore == nil || *atoms[0].QualityScore != 85.0 {
		t.Errorf("QualityScore = %v, want 85", atoms[0].QualityScore)
	}

	tests, err := db.ListTestRecords()
	if err != nil {
		t.Fatal(err)
	}
	if len(tests) != 1 || !tests[0].HadAtomAnnotation {
		t.Errorf("tests = %+v", tests)
	}

	recs, err := db.ListRecommendations()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Status != records.RecommendationAccepted {
		t.Errorf("recommendations = %+v", recs)
	}

	a, tr, r, err := db.RecordCounts()
	if err != nil {
		t.Fatal(err)
	}
	if a != 2 || tr != 1 || r != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", a, tr, r)
	}
}

func TestSnapshotUpsert(t *testing.T) {
	db := testDB(t)

	snapshot := &Snapshot{
		Date: "2026-08-26",
		Coupling: &coupling.Metrics{
			AtomTest: coupling.Rate{Total: 3, Matched: 1, Rate: 0.33, Orphans: []coupling.Orphan{}},
		},
		Epistemic: &epistemic.Metrics{
			Proven: epistemic.Level{Count: 2, Percentage: 33.33},
		},
	}
	if err := db.UpsertSnapshot(snapshot); err != nil {
		t.Fatalf("UpsertSnapshot() error: %v", err)
	}

	// Same-day snapshot replaces rather than appends
	snapshot.Coupling.AtomTest.Matched = 2
	if err := db.UpsertSnapshot(snapshot); err != nil {
		t.Fatalf("second UpsertSnapshot() error: %v", err)
	}

	snapshots, err := db.GetSnapshots(10)
	if err != nil {
		t.Fatalf("GetSnapshots() error: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("snapshot count = %d, want 1", len(snapshots))
	}
	if snapshots[0].Coupling.AtomTest.Matched != 2 {
		t.Errorf("Matched = %d, want 2 (upsert)", snapshots[0].Coupling.AtomTest.Matched)
	}

	latest, err := db.LatestSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.Date != "2026-08-26" {
		t.Errorf("latest = %+v", latest)
	}
}

func TestLatestSnapshotEmpty(t *testing.T) {
	db := testDB(t)

	latest, err := db.LatestSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Errorf("expected nil snapshot on empty store, got %+v", latest)
	}
}

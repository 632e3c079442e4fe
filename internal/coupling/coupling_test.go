package coupling

import (
	"io"
	"testing"

	"ikb/internal/logging"
	"ikb/internal/records"
)

func newTestEngine() *Engine {
	return NewEngine(logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: io.Discard}))
}

func ptr[T any](v T) *T { return &v }

func TestGetStrengthLevel(t *testing.T) {
	tests := []struct {
		name     string
		strength float64
		want     string
	}{
		{"strong", 0.9, "strong"},
		{"strong threshold", 0.8, "strong"},
		{"moderate high", 0.79, "moderate"},
		{"moderate threshold", 0.5, "moderate"},
		{"weak", 0.49, "weak"},
		{"zero", 0.0, "weak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetStrengthLevel(tt.strength); got != tt.want {
				t.Errorf("GetStrengthLevel(%v) = %q, want %q", tt.strength, got, tt.want)
			}
		})
	}
}

func TestAtomTestRate(t *testing.T) {
	atoms := []records.Atom{
		{AtomID: "IA-001", Description: "first", Status: records.AtomCommitted},
		{AtomID: "IA-002", Description: "second", Status: records.AtomCommitted},
		{AtomID: "IA-003", Description: "third", Status: records.AtomCommitted},
		{AtomID: "IA-004", Description: "draft", Status: records.AtomDraft},
	}
	recs := []records.AtomRecommendation{
		{ID: "r1", AtomID: "IA-002", Status: records.RecommendationAccepted},
		{ID: "r2", AtomID: "IA-001", Status: records.RecommendationPending},
	}

	rate := newTestEngine().AtomTestRate(records.BuildIndex(atoms, nil, recs))

	if rate.Total != 3 || rate.Matched != 1 {
		t.Fatalf("rate = %d/%d, want 1/3", rate.Matched, rate.Total)
	}
	if rate.Rate != 1.0/3.0 {
		t.Errorf("Rate = %v, want 1/3", rate.Rate)
	}
	if len(rate.Orphans) != 2 {
		t.Fatalf("orphans = %d, want 2", len(rate.Orphans))
	}
	// Orphans are identified by atomId, sorted
	if rate.Orphans[0].ID != "IA-001" || rate.Orphans[1].ID != "IA-003" {
		t.Errorf("orphans = %v", rate.Orphans)
	}
}

func TestTestAtomRate(t *testing.T) {
	tests := []records.TestRecord{
		{ID: "t1", TestName: "TestA", HadAtomAnnotation: true},
		{ID: "t2", TestName: "TestB", AtomRecommendationID: ptr("r1")},
		{ID: "t3", TestName: "TestC"},
	}

	rate := newTestEngine().TestAtomRate(records.BuildIndex(nil, tests, nil))

	if rate.Total != 3 || rate.Matched != 2 {
		t.Fatalf("rate = %d/%d, want 2/3", rate.Matched, rate.Total)
	}
	if len(rate.Orphans) != 1 || rate.Orphans[0].ID != "t3" {
		t.Errorf("orphans = %v", rate.Orphans)
	}
}

func TestCodeAtomRate(t *testing.T) {
	tests := []records.TestRecord{
		{ID: "t1", FilePath: "a_test.go", HadAtomAnnotation: true},
		{ID: "t2", FilePath: "a_test.go"},
		{ID: "t3", FilePath: "b_test.go"},
		{ID: "t4", FilePath: "c_test.go", AtomRecommendationID: ptr("r1")},
	}

	rate := newTestEngine().CodeAtomRate(records.BuildIndex(nil, tests, nil))

	// Denominator is the distinct file paths; a file counts when any of
	// its tests is linked
	if rate.Total != 3 || rate.Matched != 2 {
		t.Fatalf("rate = %d/%d, want 2/3", rate.Matched, rate.Total)
	}
	if len(rate.Orphans) != 1 || rate.Orphans[0].ID != "b_test.go" {
		t.Errorf("orphans = %v", rate.Orphans)
	}
}

func TestRatesEmptyUniverse(t *testing.T) {
	e := newTestEngine()
	ix := records.BuildIndex(nil, nil, nil)

	for name, rate := range map[string]Rate{
		"atomTest": e.AtomTestRate(ix),
		"testAtom": e.TestAtomRate(ix),
		"codeAtom": e.CodeAtomRate(ix),
	} {
		if rate.Rate != 0 {
			t.Errorf("%s rate = %v, want 0 on empty denominator", name, rate.Rate)
		}
		if rate.Orphans == nil {
			t.Errorf("%s orphans should be an empty list, not nil", name)
		}
	}
}

func TestRecordStrengthFormula(t *testing.T) {
	tests := []struct {
		name string
		rec  records.AtomRecommendation
		test records.TestRecord
		want float64
	}{
		{
			name: "annotated with quality",
			rec:  records.AtomRecommendation{},
			test: records.TestRecord{HadAtomAnnotation: true, QualityScore: ptr(80.0)},
			// (80*0.5 + 50*0.3 + 100*0.2)/100
			want: 0.75,
		},
		{
			name: "high confidence recommendation",
			rec:  records.AtomRecommendation{Confidence: ptr(85.0)},
			test: records.TestRecord{QualityScore: ptr(60.0)},
			// (60*0.5 + 50*0.3 + 70*0.2)/100
			want: 0.59,
		},
		{
			name: "low confidence falls back to baseline accuracy",
			rec:  records.AtomRecommendation{Confidence: ptr(79.0)},
			test: records.TestRecord{QualityScore: ptr(60.0)},
			// (60*0.5 + 50*0.3 + 50*0.2)/100
			want: 0.55,
		},
		{
			name: "unscored test uses the quality default",
			rec:  records.AtomRecommendation{},
			test: records.TestRecord{},
			// (50*0.5 + 50*0.3 + 50*0.2)/100
			want: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recordStrength(tt.rec, tt.test)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("recordStrength() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAtomStrengthDefaultsToMidpoint(t *testing.T) {
	atoms := []records.Atom{{AtomID: "IA-001", Status: records.AtomCommitted}}
	// Accepted recommendation exists but no test record carries its id
	recs := []records.AtomRecommendation{{ID: "r1", AtomID: "IA-001", Status: records.RecommendationAccepted}}

	ix := records.BuildIndex(atoms, nil, recs)
	if got := newTestEngine().AtomStrength(ix, "IA-001"); got != 0.5 {
		t.Errorf("AtomStrength = %v, want 0.5", got)
	}
}

func TestStrengthReportDistribution(t *testing.T) {
	atoms := []records.Atom{
		{AtomID: "IA-001", Status: records.AtomCommitted},
		{AtomID: "IA-002", Status: records.AtomCommitted},
	}
	recs := []records.AtomRecommendation{
		{ID: "r1", AtomID: "IA-001", Status: records.RecommendationAccepted},
		{ID: "r2", AtomID: "IA-002", Status: records.RecommendationAccepted},
	}
	tests := []records.TestRecord{
		// strength (95*0.5 + 50*0.3 + 100*0.2)/100 = 0.825 -> strong
		{ID: "t1", AtomRecommendationID: ptr("r1"), HadAtomAnnotation: true, QualityScore: ptr(95.0)},
		// strength (20*0.5 + 50*0.3 + 50*0.2)/100 = 0.35 -> weak
		{ID: "t2", AtomRecommendationID: ptr("r2"), QualityScore: ptr(20.0)},
	}

	report := newTestEngine().StrengthReport(records.BuildIndex(atoms, tests, recs))

	if report.LinkedAtoms != 2 {
		t.Fatalf("linkedAtoms = %d, want 2", report.LinkedAtoms)
	}
	if report.Distribution.Strong != 1 || report.Distribution.Weak != 1 || report.Distribution.Moderate != 0 {
		t.Errorf("distribution = %+v", report.Distribution)
	}
	wantMean := (0.825 + 0.35) / 2
	if diff := report.MeanStrength - wantMean; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("meanStrength = %v, want %v", report.MeanStrength, wantMean)
	}
}

func TestComputeEndToEnd(t *testing.T) {
	atoms := []records.Atom{
		{AtomID: "IA-001", Status: records.AtomCommitted},
		{AtomID: "IA-002", Status: records.AtomCommitted},
		{AtomID: "IA-003", Status: records.AtomCommitted},
	}
	recs := []records.AtomRecommendation{
		{ID: "r1", AtomID: "IA-001", Status: records.RecommendationAccepted, Confidence: ptr(90.0)},
	}
	tests := []records.TestRecord{
		{ID: "t1", FilePath: "a_test.go", AtomRecommendationID: ptr("r1"), QualityScore: ptr(70.0)},
	}

	m := newTestEngine().Compute(atoms, tests, recs)

	if m.AtomTest.Rate != 1.0/3.0 {
		t.Errorf("atomTest rate = %v, want 1/3", m.AtomTest.Rate)
	}
	if m.TestAtom.Matched != 1 || m.TestAtom.Total != 1 {
		t.Errorf("testAtom = %+v", m.TestAtom)
	}
	if m.CodeAtom.Matched != 1 || m.CodeAtom.Total != 1 {
		t.Errorf("codeAtom = %+v", m.CodeAtom)
	}
	// (70*0.5 + 50*0.3 + 70*0.2)/100 = 0.64
	if diff := m.Strength.MeanStrength - 0.64; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("meanStrength = %v, want 0.64", m.Strength.MeanStrength)
	}
}

package coupling

import (
	"sort"

	"ikb/internal/logging"
	"ikb/internal/records"
)

// Each "no data" situation has its own named default; the midpoints differ
// between formulas and must not be collapsed into one constant.
const (
	// defaultTestQuality substitutes for a test record that was never
	// quality-scored
	defaultTestQuality = 50.0

	// placeholderCoverageDepth stands in for per-file coverage; no per-file
	// join exists at this layer
	placeholderCoverageDepth = 50.0

	// annotation accuracy tiers
	accuracyAnnotated      = 100.0
	accuracyHighConfidence = 70.0
	accuracyBaseline       = 50.0

	// highConfidenceThreshold is the recommendation confidence at which an
	// unannotated link is still considered reliable
	highConfidenceThreshold = 80.0

	// defaultAtomStrength is the midpoint used for a linked atom whose test
	// records cannot be resolved
	defaultAtomStrength = 0.5

	// strength weights
	weightTestQuality        = 0.5
	weightCoverageDepth      = 0.3
	weightAnnotationAccuracy = 0.2

	// distribution thresholds
	strongThreshold   = 0.8
	moderateThreshold = 0.5
)

// Engine computes coupling metrics from one consistent read of the records
type Engine struct {
	logger *logging.Logger
}

// NewEngine creates a new coupling engine
func NewEngine(logger *logging.Logger) *Engine {
	return &Engine{logger: logger}
}

// Compute runs all three rate computations and the coupling-strength pass
func (e *Engine) Compute(atoms []records.Atom, tests []records.TestRecord, recs []records.AtomRecommendation) *Metrics {
	ix := records.BuildIndex(atoms, tests, recs)

	m := &Metrics{
		AtomTest: e.AtomTestRate(ix),
		TestAtom: e.TestAtomRate(ix),
		CodeAtom: e.CodeAtomRate(ix),
		Strength: e.StrengthReport(ix),
	}

	e.logger.Debug("Coupling metrics computed", map[string]interface{}{
		"atomTestRate": m.AtomTest.Rate,
		"testAtomRate": m.TestAtom.Rate,
		"codeAtomRate": m.CodeAtom.Rate,
		"meanStrength": m.Strength.MeanStrength,
	})

	return m
}

// AtomTestRate measures committed atoms evidenced by at least one accepted
// recommendation. Orphans are the unmatched committed atoms.
func (e *Engine) AtomTestRate(ix *records.Index) Rate {
	linked := ix.LinkedCommittedIDs()

	rate := Rate{
		Total:   len(ix.CommittedAtoms),
		Orphans: make([]Orphan, 0),
	}
	for _, a := range ix.CommittedAtoms {
		if linked[a.AtomID] {
			rate.Matched++
		} else {
			rate.Orphans = append(rate.Orphans, Orphan{ID: a.AtomID, Description: a.Description})
		}
	}

	sort.Slice(rate.Orphans, func(i, j int) bool { return rate.Orphans[i].ID < rate.Orphans[j].ID })
	rate.Rate = ratio(rate.Matched, rate.Total)
	return rate
}

// TestAtomRate measures test records linked to an atom by annotation or
// recommendation, over all test records
func (e *Engine) TestAtomRate(ix *records.Index) Rate {
	rate := Rate{
		Total:   len(ix.TestRecords),
		Orphans: make([]Orphan, 0),
	}
	for _, t := range ix.TestRecords {
		if t.Linked() {
			rate.Matched++
		} else {
			rate.Orphans = append(rate.Orphans, Orphan{ID: t.ID, Description: t.TestName})
		}
	}

	sort.Slice(rate.Orphans, func(i, j int) bool { return rate.Orphans[i].ID < rate.Orphans[j].ID })
	rate.Rate = ratio(rate.Matched, rate.Total)
	return rate
}

// CodeAtomRate approximates code linkage over the distinct file paths seen
// in test records; a file is covered when it holds at least one linked test.
// This is deliberately not a source-tree scan.
func (e *Engine) CodeAtomRate(ix *records.Index) Rate {
	covered := make(map[string]bool)
	for _, t := range ix.TestRecords {
		if t.FilePath == "" {
			continue
		}
		if _, seen := covered[t.FilePath]; !seen {
			covered[t.FilePath] = false
		}
		if t.Linked() {
			covered[t.FilePath] = true
		}
	}

	rate := Rate{
		Total:   len(covered),
		Orphans: make([]Orphan, 0),
	}
	for path, isCovered := range covered {
		if isCovered {
			rate.Matched++
		} else {
			rate.Orphans = append(rate.Orphans, Orphan{ID: path})
		}
	}

	sort.Slice(rate.Orphans, func(i, j int) bool { return rate.Orphans[i].ID < rate.Orphans[j].ID })
	rate.Rate = ratio(rate.Matched, rate.Total)
	return rate
}

// StrengthReport scores every linked atom and buckets the results
func (e *Engine) StrengthReport(ix *records.Index) StrengthReport {
	linked := ix.LinkedCommittedIDs()

	report := StrengthReport{LinkedAtoms: len(linked)}
	if len(linked) == 0 {
		return report
	}

	sum := 0.0
	for _, a := range ix.CommittedAtoms {
		if !linked[a.AtomID] {
			continue
		}
		strength := e.AtomStrength(ix, a.AtomID)
		sum += strength

		switch GetStrengthLevel(strength) {
		case "strong":
			report.Distribution.Strong++
		case "moderate":
			report.Distribution.Moderate++
		default:
			report.Distribution.Weak++
		}
	}

	report.MeanStrength = sum / float64(len(linked))
	return report
}

// AtomStrength is the mean per-record strength over the atom's accepted
// recommendations joined to their test records. An atom whose records
// cannot be resolved defaults to the midpoint.
func (e *Engine) AtomStrength(ix *records.Index, atomID string) float64 {
	sum := 0.0
	count := 0

	for _, rec := range ix.AcceptedByAtomID[atomID] {
		for _, t := range ix.TestsByRecommendationID[rec.ID] {
			sum += recordStrength(rec, t)
			count++
		}
	}

	if count == 0 {
		return defaultAtomStrength
	}
	return sum / float64(count)
}

// recordStrength scores one recommendation/test pair
func recordStrength(rec records.AtomRecommendation, t records.TestRecord) float64 {
	testQuality := defaultTestQuality
	if t.QualityScore != nil {
		testQuality = *t.QualityScore
	}

	accuracy := accuracyBaseline
	switch {
	case t.HadAtomAnnotation:
		accuracy = accuracyAnnotated
	case rec.Confidence != nil && *rec.Confidence >= highConfidenceThreshold:
		accuracy = accuracyHighConfidence
	}

	return (testQuality*weightTestQuality +
		placeholderCoverageDepth*weightCoverageDepth +
		accuracy*weightAnnotationAccuracy) / 100
}

func ratio(matched, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

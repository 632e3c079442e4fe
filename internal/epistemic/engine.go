package epistemic

import (
	"ikb/internal/coupling"
	"ikb/internal/coverage"
	"ikb/internal/logging"
	"ikb/internal/records"
)

// Defaults are named per formula site: the quality-weighted path degrades to
// documented midpoints, while the coverage-depth path deliberately degrades
// to zero with no substitution.
const (
	// defaultTestQualityScore substitutes for a proven atom with no scored
	// test records
	defaultTestQualityScore = 50.0

	// defaultCoveragePct substitutes for the overall line percentage when
	// no coverage report has been persisted
	defaultCoveragePct = 50.0

	// certainty weights
	weightTestQuality = 0.7
	weightCoverage    = 0.3

	// proven-breakdown thresholds
	highQualityThreshold   = 80.0
	mediumQualityThreshold = 50.0
)

// Engine computes the epistemic stack from the same record universe the
// coupling engine consumes, plus the latest persisted coverage report
type Engine struct {
	coupling *coupling.Engine
	logger   *logging.Logger
}

// NewEngine creates a new epistemic engine
func NewEngine(couplingEngine *coupling.Engine, logger *logging.Logger) *Engine {
	return &Engine{coupling: couplingEngine, logger: logger}
}

// Compute classifies the universe into the four levels and derives the
// quality-weighted refinements. latest may be nil when no coverage report
// has ever been ingested.
func (e *Engine) Compute(atoms []records.Atom, tests []records.TestRecord, recs []records.AtomRecommendation, latest *coverage.Report) *Metrics {
	ix := records.BuildIndex(atoms, tests, recs)
	linked := ix.LinkedCommittedIDs()

	proven := 0
	for _, a := range ix.CommittedAtoms {
		if linked[a.AtomID] {
			proven++
		}
	}
	// Linked ids are filtered to committed atoms, so this never goes
	// negative
	committed := len(ix.CommittedAtoms) - proven
	inferred := ix.PendingCount

	// Unknown counts orphan tests and uncovered files; diagnostic only
	testAtom := e.coupling.TestAtomRate(ix)
	codeAtom := e.coupling.CodeAtomRate(ix)
	unknown := len(testAtom.Orphans) + len(codeAtom.Orphans)

	totalKnown := proven + committed + inferred

	m := &Metrics{
		Proven:     Level{Count: proven, Percentage: share(proven, totalKnown)},
		Committed:  Level{Count: committed, Percentage: share(committed, totalKnown)},
		Inferred:   Level{Count: inferred, Percentage: share(inferred, totalKnown)},
		Unknown:    Level{Count: unknown},
		TotalKnown: totalKnown,
	}
	if totalKnown > 0 {
		m.TotalCertainty = float64(proven+committed) / float64(totalKnown)
	}

	m.QualityWeightedCertainty = e.qualityWeightedCertainty(ix, linked, totalKnown, latest)
	m.ProvenBreakdown = e.provenBreakdown(ix, linked)
	m.CoverageDepth = e.coverageDepth(ix, linked, latest)

	e.logger.Debug("Epistemic metrics computed", map[string]interface{}{
		"proven":         proven,
		"committed":      committed,
		"inferred":       inferred,
		"unknown":        unknown,
		"totalCertainty": m.TotalCertainty,
	})

	return m
}

// qualityWeightedCertainty averages the per-atom certainty over proven
// atoms. The result degrades to zero, not to a midpoint, when there is no
// evidence at all: "no evidence" is distinct from "mediocre evidence".
func (e *Engine) qualityWeightedCertainty(ix *records.Index, linked map[string]bool, totalKnown int, latest *coverage.Report) float64 {
	if totalKnown == 0 || len(linked) == 0 {
		return 0
	}

	avgCoverage := defaultCoveragePct
	if latest != nil {
		avgCoverage = latest.Summary.Lines.Pct
	}

	sum := 0.0
	count := 0
	for _, a := range ix.CommittedAtoms {
		if !linked[a.AtomID] {
			continue
		}
		quality := averageOrDefault(ix.QualityScoresForAtom(a.AtomID), defaultTestQualityScore)
		sum += (quality*weightTestQuality + avgCoverage*weightCoverage) / 100
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// provenBreakdown buckets proven atoms by average test quality
func (e *Engine) provenBreakdown(ix *records.Index, linked map[string]bool) ProvenBreakdown {
	var b ProvenBreakdown
	for _, a := range ix.CommittedAtoms {
		if !linked[a.AtomID] {
			continue
		}
		scores := ix.QualityScoresForAtom(a.AtomID)
		if len(scores) == 0 {
			// Unscored is unknown quality, not bad quality
			b.Medium++
			continue
		}
		switch avg := mean(scores); {
		case avg >= highQualityThreshold:
			b.High++
		case avg >= mediumQualityThreshold:
			b.Medium++
		default:
			b.Low++
		}
	}
	return b
}

// coverageDepth resolves proven atoms' test files against the latest
// report. With no report every committed atom counts as without coverage
// and depth stays zero.
func (e *Engine) coverageDepth(ix *records.Index, linked map[string]bool, latest *coverage.Report) CoverageDepth {
	depth := CoverageDepth{
		AtomsWithoutCoverage: len(ix.CommittedAtoms),
	}
	if latest == nil {
		return depth
	}

	linePctByFile := make(map[string]float64, len(latest.Files))
	for _, f := range latest.Files {
		linePctByFile[f.FilePath] = f.Lines.Pct
	}

	var matchedPcts []float64
	for _, a := range ix.CommittedAtoms {
		if !linked[a.AtomID] {
			continue
		}
		matched := false
		for _, path := range ix.TestFilePathsForAtom(a.AtomID) {
			if pct, ok := linePctByFile[path]; ok {
				matchedPcts = append(matchedPcts, pct)
				matched = true
			}
		}
		if matched {
			depth.AtomsWithCoverage++
		}
	}

	depth.AtomsWithoutCoverage = len(ix.CommittedAtoms) - depth.AtomsWithCoverage
	if len(matchedPcts) > 0 {
		// Mean over matched files only, never padded with zeros for
		// unmatched atoms
		depth.AverageCoverageDepth = mean(matchedPcts)
	}
	return depth
}

func share(count, totalKnown int) float64 {
	if totalKnown == 0 {
		return 0
	}
	return float64(count) / float64(totalKnown)
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func averageOrDefault(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	return mean(values)
}

package records

// Index holds the cross-collection joins both metric engines need, built
// once per computation so the formulas stay free of repeated linear scans.
type Index struct {
	Atoms           []Atom
	TestRecords     []TestRecord
	Recommendations []AtomRecommendation

	// CommittedAtoms preserves input order
	CommittedAtoms []Atom

	// AcceptedByAtomID joins an atom id to its accepted recommendations
	AcceptedByAtomID map[string][]AtomRecommendation

	// TestsByRecommendationID joins a recommendation id to the test records
	// that carry it
	TestsByRecommendationID map[string][]TestRecord

	// PendingCount is the number of pending recommendations
	PendingCount int
}

// BuildIndex constructs the join structures from one consistent read of the
// underlying records
func BuildIndex(atoms []Atom, tests []TestRecord, recs []AtomRecommendation) *Index {
	ix := &Index{
		Atoms:                   atoms,
		TestRecords:             tests,
		Recommendations:         recs,
		AcceptedByAtomID:        make(map[string][]AtomRecommendation),
		TestsByRecommendationID: make(map[string][]TestRecord),
	}

	for _, a := range atoms {
		if a.Status == AtomCommitted {
			ix.CommittedAtoms = append(ix.CommittedAtoms, a)
		}
	}

	for _, r := range recs {
		switch r.Status {
		case RecommendationAccepted:
			ix.AcceptedByAtomID[r.AtomID] = append(ix.AcceptedByAtomID[r.AtomID], r)
		case RecommendationPending:
			ix.PendingCount++
		}
	}

	for _, t := range tests {
		if t.AtomRecommendationID != nil {
			id := *t.AtomRecommendationID
			ix.TestsByRecommendationID[id] = append(ix.TestsByRecommendationID[id], t)
		}
	}

	return ix
}

// LinkedCommittedIDs returns the atom ids of committed atoms that are
// evidenced by at least one accepted recommendation
func (ix *Index) LinkedCommittedIDs() map[string]bool {
	linked := make(map[string]bool)
	for _, a := range ix.CommittedAtoms {
		if len(ix.AcceptedByAtomID[a.AtomID]) > 0 {
			linked[a.AtomID] = true
		}
	}
	return linked
}

// TestRecordsForAtom resolves an atom to its test records through its
// accepted recommendations
func (ix *Index) TestRecordsForAtom(atomID string) []TestRecord {
	var out []TestRecord
	for _, rec := range ix.AcceptedByAtomID[atomID] {
		out = append(out, ix.TestsByRecommendationID[rec.ID]...)
	}
	return out
}

// QualityScoresForAtom gathers the non-null quality scores of an atom's
// test records
func (ix *Index) QualityScoresForAtom(atomID string) []float64 {
	var scores []float64
	for _, t := range ix.TestRecordsForAtom(atomID) {
		if t.QualityScore != nil {
			scores = append(scores, *t.QualityScore)
		}
	}
	return scores
}

// TestFilePathsForAtom gathers the distinct file paths of an atom's test
// records
func (ix *Index) TestFilePathsForAtom(atomID string) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, t := range ix.TestRecordsForAtom(atomID) {
		if t.FilePath != "" && !seen[t.FilePath] {
			seen[t.FilePath] = true
			paths = append(paths, t.FilePath)
		}
	}
	return paths
}

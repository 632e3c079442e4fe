// Package epistemic computes the four-level certainty stack over the atom
// and test universe: proven, committed, inferred, and unknown.
package epistemic

// Level is one tier of the certainty stack
type Level struct {
	Count      int     `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"` // share of totalKnown; 0 when totalKnown is 0
}

// Metrics is the full epistemic computation output
type Metrics struct {
	Proven    Level `json:"proven" yaml:"proven"`
	Committed Level `json:"committed" yaml:"committed"`
	Inferred  Level `json:"inferred" yaml:"inferred"`

	// Unknown is diagnostic only; it is excluded from every ratio
	// denominator
	Unknown Level `json:"unknown" yaml:"unknown"`

	TotalKnown     int     `json:"totalKnown" yaml:"totalKnown"`
	TotalCertainty float64 `json:"totalCertainty" yaml:"totalCertainty"`

	QualityWeightedCertainty float64 `json:"qualityWeightedCertainty" yaml:"qualityWeightedCertainty"`

	ProvenBreakdown ProvenBreakdown `json:"provenBreakdown" yaml:"provenBreakdown"`
	CoverageDepth   CoverageDepth   `json:"coverageDepth" yaml:"coverageDepth"`
}

// ProvenBreakdown classifies proven atoms by average test quality. Atoms
// with no quality data at all land in medium, never low.
type ProvenBreakdown struct {
	High   int `json:"high" yaml:"high"`     // >= 80
	Medium int `json:"medium" yaml:"medium"` // [50, 80) or unscored
	Low    int `json:"low" yaml:"low"`       // < 50
}

// CoverageDepth reports how completely proven atoms' test files appear in
// the latest coverage report
type CoverageDepth struct {
	AtomsWithCoverage    int     `json:"atomsWithCoverage" yaml:"atomsWithCoverage"`
	AtomsWithoutCoverage int     `json:"atomsWithoutCoverage" yaml:"atomsWithoutCoverage"`
	AverageCoverageDepth float64 `json:"averageCoverageDepth" yaml:"averageCoverageDepth"`
}

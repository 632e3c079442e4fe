// Package coupling computes linkage rates and coupling strength between
// intent atoms, test records, and code files.
package coupling

// Rate is one linkage computation over a record universe
type Rate struct {
	Total   int      `json:"total" yaml:"total"`
	Matched int      `json:"matched" yaml:"matched"`
	Rate    float64  `json:"rate" yaml:"rate"` // matched/total, 0 when total is 0
	Orphans []Orphan `json:"orphans" yaml:"orphans"`
}

// Orphan summarizes an unmatched record; full entities are never embedded
type Orphan struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// StrengthDistribution buckets linked atoms by coupling strength
type StrengthDistribution struct {
	Strong   int `json:"strong" yaml:"strong"`     // >= 0.8
	Moderate int `json:"moderate" yaml:"moderate"` // [0.5, 0.8)
	Weak     int `json:"weak" yaml:"weak"`         // < 0.5
}

// StrengthReport is the coupling-strength view over the linked atom set
type StrengthReport struct {
	LinkedAtoms  int                  `json:"linkedAtoms" yaml:"linkedAtoms"`
	MeanStrength float64              `json:"meanStrength" yaml:"meanStrength"`
	Distribution StrengthDistribution `json:"distribution" yaml:"distribution"`
}

// Metrics is the full coupling computation output
type Metrics struct {
	AtomTest Rate           `json:"atomTest" yaml:"atomTest"`
	TestAtom Rate           `json:"testAtom" yaml:"testAtom"`
	CodeAtom Rate           `json:"codeAtom" yaml:"codeAtom"`
	Strength StrengthReport `json:"strength" yaml:"strength"`
}

// GetStrengthLevel classifies a coupling strength value
func GetStrengthLevel(strength float64) string {
	switch {
	case strength >= strongThreshold:
		return "strong"
	case strength >= moderateThreshold:
		return "moderate"
	default:
		return "weak"
	}
}

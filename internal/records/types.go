// Package records defines the atom, test, and recommendation record types
// the metric engines consume. The records originate outside the engines
// (annotation scanning, inference, persistence) and are read-only here.
package records

// AtomStatus is the lifecycle state of an intent atom
type AtomStatus string

const (
	AtomDraft      AtomStatus = "draft"
	AtomCommitted  AtomStatus = "committed"
	AtomSuperseded AtomStatus = "superseded"
)

// Atom is a discrete, testable statement of intended system behavior
type Atom struct {
	ID           string     `json:"id"`
	AtomID       string     `json:"atomId"`
	Description  string     `json:"description"`
	Status       AtomStatus `json:"status"`
	QualityScore *float64   `json:"qualityScore,omitempty"` // [0,100]
}

// TestRecord is one discovered test with its atom linkage evidence
type TestRecord struct {
	ID                   string   `json:"id"`
	FilePath             string   `json:"filePath"`
	TestName             string   `json:"testName"`
	Status               string   `json:"status"`
	HadAtomAnnotation    bool     `json:"hadAtomAnnotation"`
	AtomRecommendationID *string  `json:"atomRecommendationId,omitempty"`
	QualityScore         *float64 `json:"qualityScore,omitempty"`
}

// Linked reports whether the test is tied to an atom, either by an explicit
// annotation or through a recommendation
func (t TestRecord) Linked() bool {
	return t.HadAtomAnnotation || t.AtomRecommendationID != nil
}

// RecommendationStatus is the review state of an atom recommendation
type RecommendationStatus string

const (
	RecommendationPending  RecommendationStatus = "pending"
	RecommendationAccepted RecommendationStatus = "accepted"
	RecommendationRejected RecommendationStatus = "rejected"
)

// AtomRecommendation proposes a link between a test and an atom. Only
// accepted recommendations count as linkage evidence.
type AtomRecommendation struct {
	ID         string               `json:"id"`
	AtomID     string               `json:"atomId"`
	Status     RecommendationStatus `json:"status"`
	Confidence *float64             `json:"confidence,omitempty"` // [0,100]
}

// Bundle is the import shape for a full set of collaborator records
type Bundle struct {
	Atoms           []Atom               `json:"atoms"`
	TestRecords     []TestRecord         `json:"testRecords"`
	Recommendations []AtomRecommendation `json:"recommendations"`
}

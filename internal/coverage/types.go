// Package coverage normalizes raw coverage payloads into one canonical
// report shape. Three formats are supported: LCOV line protocol, Istanbul
// JSON (both the summary and the raw instrumentation shape), and Cobertura
// XML.
package coverage

import (
	"math"
	"time"
)

// Format identifies the source format of a normalized report
type Format string

const (
	FormatLcov      Format = "lcov"
	FormatIstanbul  Format = "istanbul"
	FormatCobertura Format = "cobertura"
)

// DimensionSummary is the canonical {total, covered, pct} shape used for
// every coverage or quality dimension. Pct is always in [0,100].
type DimensionSummary struct {
	Total   int     `json:"total" yaml:"total"`
	Covered int     `json:"covered" yaml:"covered"`
	Pct     float64 `json:"pct" yaml:"pct"`
}

// NewDimensionSummary builds a summary with the percentage rule applied
func NewDimensionSummary(total, covered int) DimensionSummary {
	return DimensionSummary{
		Total:   total,
		Covered: covered,
		Pct:     Percentage(covered, total),
	}
}

// Percentage returns covered/total*100 rounded to two decimal places.
// An empty denominator counts as fully satisfied, not undefined.
func Percentage(covered, total int) float64 {
	if total == 0 {
		return 100
	}
	return Round2(float64(covered) / float64(total) * 100)
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Summary holds the four aggregate dimensions of a report
type Summary struct {
	Statements DimensionSummary `json:"statements" yaml:"statements"`
	Branches   DimensionSummary `json:"branches" yaml:"branches"`
	Functions  DimensionSummary `json:"functions" yaml:"functions"`
	Lines      DimensionSummary `json:"lines" yaml:"lines"`
}

// FileCoverage is the canonical per-file shape
type FileCoverage struct {
	FilePath       string           `json:"filePath" yaml:"filePath"`
	Statements     DimensionSummary `json:"statements" yaml:"statements"`
	Branches       DimensionSummary `json:"branches" yaml:"branches"`
	Functions      DimensionSummary `json:"functions" yaml:"functions"`
	Lines          DimensionSummary `json:"lines" yaml:"lines"`
	UncoveredLines []int            `json:"uncoveredLines" yaml:"uncoveredLines"`
}

// Report is a normalized coverage report. A report is created once per
// ingested payload and is immutable thereafter; history accumulates in the
// store, and the newest by insertion order is "latest".
type Report struct {
	ID         string            `json:"id,omitempty" yaml:"id,omitempty"`
	Format     Format            `json:"format" yaml:"format"`
	Summary    Summary           `json:"summary" yaml:"summary"`
	Files      []FileCoverage    `json:"files" yaml:"files"`
	CommitHash string            `json:"commitHash,omitempty" yaml:"commitHash,omitempty"`
	BranchName string            `json:"branchName,omitempty" yaml:"branchName,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

// tally accumulates found/hit counts for one dimension while parsing
type tally struct {
	total   int
	covered int
}

func (t *tally) add(total, covered int) {
	t.total += total
	t.covered += covered
}

func (t *tally) addFile(d DimensionSummary) {
	t.total += d.Total
	t.covered += d.Covered
}

// summary derives a DimensionSummary from the running sums. Percentages are
// recomputed from the sums rather than averaged per file, which avoids bias
// toward files with few lines.
func (t tally) summary() DimensionSummary {
	return NewDimensionSummary(t.total, t.covered)
}

// summarize recomputes the aggregate summary from per-file dimensions
func summarize(files []FileCoverage) Summary {
	var statements, branches, functions, lines tally
	for _, f := range files {
		statements.addFile(f.Statements)
		branches.addFile(f.Branches)
		functions.addFile(f.Functions)
		lines.addFile(f.Lines)
	}
	return Summary{
		Statements: statements.summary(),
		Branches:   branches.summary(),
		Functions:  functions.summary(),
		Lines:      lines.summary(),
	}
}

package coverage

import (
	"encoding/json"
	"sort"
	"strings"
)

// IstanbulParser parses Istanbul JSON coverage in either of its two shapes:
// the pre-aggregated summary (a "total" entry plus per-file dimension
// objects) and the raw instrumentation map keyed by file path.
type IstanbulParser struct{}

// Format returns the format tag
func (p *IstanbulParser) Format() Format { return FormatIstanbul }

// CanParse claims JSON objects that exhibit one of the two known shapes
func (p *IstanbulParser) CanParse(content string) bool {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &root); err != nil {
		return false
	}

	return isSummaryShape(root) || isInstrumentationShape(root)
}

// Parse dispatches on the detected shape
func (p *IstanbulParser) Parse(content string) (Summary, []FileCoverage, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &root); err != nil {
		return Summary{}, nil, err
	}

	if isSummaryShape(root) {
		return parseIstanbulSummary(root)
	}
	return parseIstanbulInstrumentation(root)
}

// isSummaryShape reports whether the object carries a pre-aggregated
// "total" entry with a lines dimension
func isSummaryShape(root map[string]json.RawMessage) bool {
	raw, ok := root["total"]
	if !ok {
		return false
	}
	var total struct {
		Lines map[string]json.RawMessage `json:"lines"`
	}
	if err := json.Unmarshal(raw, &total); err != nil {
		return false
	}
	return total.Lines != nil
}

// isInstrumentationShape reports whether at least one entry carries a
// statement-hit counter map
func isInstrumentationShape(root map[string]json.RawMessage) bool {
	for _, raw := range root {
		var entry struct {
			S map[string]json.RawMessage `json:"s"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if entry.S != nil {
			return true
		}
	}
	return false
}

// istanbulPct tolerates the "Unknown" string Istanbul emits for empty
// denominators; non-numeric values degrade to zero
type istanbulPct float64

func (p *istanbulPct) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*p = istanbulPct(f)
		return nil
	}
	*p = 0
	return nil
}

type istanbulDimension struct {
	Total   int         `json:"total"`
	Covered int         `json:"covered"`
	Pct     istanbulPct `json:"pct"`
}

type istanbulFileSummary struct {
	Statements *istanbulDimension `json:"statements"`
	Branches   *istanbulDimension `json:"branches"`
	Functions  *istanbulDimension `json:"functions"`
	Lines      *istanbulDimension `json:"lines"`
}

// verbatimDimension carries an Istanbul dimension over without recomputing
// its percentage; a missing dimension defaults to the zero summary
func verbatimDimension(d *istanbulDimension) DimensionSummary {
	if d == nil {
		return DimensionSummary{}
	}
	return DimensionSummary{Total: d.Total, Covered: d.Covered, Pct: float64(d.Pct)}
}

func parseIstanbulSummary(root map[string]json.RawMessage) (Summary, []FileCoverage, error) {
	paths := make([]string, 0, len(root))
	for path := range root {
		if path != "total" {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	files := make([]FileCoverage, 0, len(paths))
	for _, path := range paths {
		var fs istanbulFileSummary
		if err := json.Unmarshal(root[path], &fs); err != nil {
			// Entries that do not decode as dimension objects are skipped
			continue
		}
		files = append(files, FileCoverage{
			FilePath:       path,
			Statements:     verbatimDimension(fs.Statements),
			Branches:       verbatimDimension(fs.Branches),
			Functions:      verbatimDimension(fs.Functions),
			Lines:          verbatimDimension(fs.Lines),
			UncoveredLines: []int{},
		})
	}

	var totalFS istanbulFileSummary
	if err := json.Unmarshal(root["total"], &totalFS); err != nil {
		return Summary{}, nil, err
	}
	summary := Summary{
		Statements: verbatimDimension(totalFS.Statements),
		Branches:   verbatimDimension(totalFS.Branches),
		Functions:  verbatimDimension(totalFS.Functions),
		Lines:      verbatimDimension(totalFS.Lines),
	}

	return summary, files, nil
}

type istanbulInstrumentation struct {
	S            map[string]int              `json:"s"`
	B            map[string][]int            `json:"b"`
	F            map[string]int              `json:"f"`
	StatementMap map[string]istanbulLocation `json:"statementMap"`
}

type istanbulLocation struct {
	Start istanbulPosition `json:"start"`
}

type istanbulPosition struct {
	Line int `json:"line"`
}

func parseIstanbulInstrumentation(root map[string]json.RawMessage) (Summary, []FileCoverage, error) {
	paths := make([]string, 0, len(root))
	for path := range root {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	files := make([]FileCoverage, 0, len(paths))
	for _, path := range paths {
		var entry istanbulInstrumentation
		if err := json.Unmarshal(root[path], &entry); err != nil {
			continue
		}

		stTotal := len(entry.S)
		stCovered := 0
		uncoveredSet := make(map[int]bool)
		for key, hits := range entry.S {
			if hits > 0 {
				stCovered++
				continue
			}
			// Resolve a zero-hit statement to its source line when the
			// location map is present; without it, uncovered lines stay empty
			if loc, ok := entry.StatementMap[key]; ok && loc.Start.Line > 0 {
				uncoveredSet[loc.Start.Line] = true
			}
		}
		uncovered := make([]int, 0, len(uncoveredSet))
		for line := range uncoveredSet {
			uncovered = append(uncovered, line)
		}
		sort.Ints(uncovered)

		// A branch slot may hold several path counters; each path counts
		// as one unit of total
		brTotal, brCovered := 0, 0
		for _, slot := range entry.B {
			brTotal += len(slot)
			for _, hits := range slot {
				if hits > 0 {
					brCovered++
				}
			}
		}

		fnTotal := len(entry.F)
		fnCovered := 0
		for _, hits := range entry.F {
			if hits > 0 {
				fnCovered++
			}
		}

		statements := NewDimensionSummary(stTotal, stCovered)

		files = append(files, FileCoverage{
			FilePath:   path,
			Statements: statements,
			Branches:   NewDimensionSummary(brTotal, brCovered),
			Functions:  NewDimensionSummary(fnTotal, fnCovered),
			// No separate line table exists in this shape; statement
			// counts stand in for lines
			Lines:          statements,
			UncoveredLines: uncovered,
		})
	}

	return summarize(files), files, nil
}

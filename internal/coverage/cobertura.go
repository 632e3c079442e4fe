package coverage

import (
	"encoding/xml"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// CoberturaParser parses Cobertura XML: a package/class/method/line
// hierarchy with rate attributes at every level.
type CoberturaParser struct{}

// Format returns the format tag
func (p *CoberturaParser) Format() Format { return FormatCobertura }

// CanParse claims XML documents rooted at a coverage element
func (p *CoberturaParser) CanParse(content string) bool {
	trimmed := strings.TrimSpace(content)
	return strings.HasPrefix(trimmed, "<") && strings.Contains(trimmed, "<coverage")
}

type coberturaDoc struct {
	XMLName         xml.Name           `xml:"coverage"`
	LineRate        string             `xml:"line-rate,attr"`
	BranchRate      string             `xml:"branch-rate,attr"`
	LinesCovered    string             `xml:"lines-covered,attr"`
	LinesValid      string             `xml:"lines-valid,attr"`
	BranchesCovered string             `xml:"branches-covered,attr"`
	BranchesValid   string             `xml:"branches-valid,attr"`
	Packages        []coberturaPackage `xml:"packages>package"`
}

type coberturaPackage struct {
	Classes []coberturaClass `xml:"classes>class"`
}

type coberturaClass struct {
	Filename string            `xml:"filename,attr"`
	Methods  []coberturaMethod `xml:"methods>method"`
	Lines    []coberturaLine   `xml:"lines>line"`
}

type coberturaMethod struct {
	LineRate string `xml:"line-rate,attr"`
}

type coberturaLine struct {
	Number            int    `xml:"number,attr"`
	Hits              *int   `xml:"hits,attr"`
	ConditionCoverage string `xml:"condition-coverage,attr"`
}

// conditionCoverageRe matches the "(hit/total)" tail of a
// condition-coverage attribute like "50% (1/2)"
var conditionCoverageRe = regexp.MustCompile(`\((\d+)/(\d+)\)`)

// coberturaFile accumulates class entries that share a filename
type coberturaFile struct {
	filePath  string
	lineHits  map[int]int
	fnTotal   int
	fnCovered int
	brTotal   int
	brCovered int
}

// Parse walks every class element; when the document has none, it falls
// back to the top-level summary attributes and emits zero files.
func (p *CoberturaParser) Parse(content string) (Summary, []FileCoverage, error) {
	var doc coberturaDoc
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		return Summary{}, nil, err
	}

	byPath := make(map[string]*coberturaFile)
	var order []string

	for _, pkg := range doc.Packages {
		for _, class := range pkg.Classes {
			file, ok := byPath[class.Filename]
			if !ok {
				file = &coberturaFile{
					filePath: class.Filename,
					lineHits: make(map[int]int),
				}
				byPath[class.Filename] = file
				order = append(order, class.Filename)
			}

			for _, method := range class.Methods {
				file.fnTotal++
				if rate, err := strconv.ParseFloat(method.LineRate, 64); err == nil && rate > 0 {
					file.fnCovered++
				}
			}

			for _, line := range class.Lines {
				// A line with no hits attribute carries no hit evidence;
				// it is never uncovered and never counted
				if line.Hits != nil {
					file.lineHits[line.Number] += *line.Hits
				}

				if m := conditionCoverageRe.FindStringSubmatch(line.ConditionCoverage); m != nil {
					hit, _ := strconv.Atoi(m[1])
					total, _ := strconv.Atoi(m[2])
					file.brTotal += total
					file.brCovered += hit
				}
			}
		}
	}

	if len(byPath) == 0 {
		return p.summaryFallback(doc), []FileCoverage{}, nil
	}

	files := make([]FileCoverage, 0, len(order))
	for _, path := range order {
		files = append(files, byPath[path].finalize())
	}

	return summarize(files), files, nil
}

// summaryFallback reads the document-level counters, or the rate attributes
// when counts are absent
func (p *CoberturaParser) summaryFallback(doc coberturaDoc) Summary {
	lines := attrDimension(doc.LinesCovered, doc.LinesValid, doc.LineRate)
	branches := attrDimension(doc.BranchesCovered, doc.BranchesValid, doc.BranchRate)
	return Summary{
		Statements: lines,
		Branches:   branches,
		Functions:  DimensionSummary{},
		Lines:      lines,
	}
}

func attrDimension(coveredAttr, validAttr, rateAttr string) DimensionSummary {
	if validAttr != "" {
		total, err1 := strconv.Atoi(validAttr)
		covered, err2 := strconv.Atoi(coveredAttr)
		if err1 == nil && err2 == nil {
			return NewDimensionSummary(total, covered)
		}
	}
	if rate, err := strconv.ParseFloat(rateAttr, 64); err == nil {
		return DimensionSummary{Pct: Round2(rate * 100)}
	}
	return DimensionSummary{}
}

func (f *coberturaFile) finalize() FileCoverage {
	linesTotal := len(f.lineHits)
	linesCovered := 0
	uncovered := make([]int, 0)
	for lineNo, hits := range f.lineHits {
		if hits > 0 {
			linesCovered++
		} else {
			uncovered = append(uncovered, lineNo)
		}
	}
	sort.Ints(uncovered)

	lines := NewDimensionSummary(linesTotal, linesCovered)

	return FileCoverage{
		FilePath:       f.filePath,
		Statements:     lines,
		Branches:       NewDimensionSummary(f.brTotal, f.brCovered),
		Functions:      NewDimensionSummary(f.fnTotal, f.fnCovered),
		Lines:          lines,
		UncoveredLines: uncovered,
	}
}

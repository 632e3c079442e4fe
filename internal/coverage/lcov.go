package coverage

import (
	"bufio"
	"sort"
	"strconv"
	"strings"
)

// LcovParser parses the LCOV line protocol: per-file records opened by an
// SF: directive and terminated by an explicit end_of_record marker.
type LcovParser struct{}

// Format returns the format tag
func (p *LcovParser) Format() Format { return FormatLcov }

// CanParse claims content that carries at least one file record with its
// closing marker
func (p *LcovParser) CanParse(content string) bool {
	return strings.Contains(content, "SF:") && strings.Contains(content, "end_of_record")
}

// lcovRecord accumulates one file record between SF: and end_of_record
type lcovRecord struct {
	filePath string
	lineHits map[int]int
	fnHits   map[string]int

	branchesFound int
	branchesHit   int

	// Explicit summary counts override the derived ones when present
	lf, lh, fnf, fnh, brf, brh *int
}

// Parse walks the protocol line by line. A record with no closing marker is
// silently dropped; no partial file is emitted for it.
func (p *LcovParser) Parse(content string) (Summary, []FileCoverage, error) {
	var files []FileCoverage
	var current *lcovRecord

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "SF:") {
			// An SF: before the previous end_of_record abandons the
			// unterminated record
			current = &lcovRecord{
				filePath: strings.TrimPrefix(line, "SF:"),
				lineHits: make(map[int]int),
				fnHits:   make(map[string]int),
			}
			continue
		}

		if current == nil {
			// TN: headers and stray directives outside a record
			continue
		}

		switch {
		case line == "end_of_record":
			files = append(files, current.finalize())
			current = nil

		case strings.HasPrefix(line, "DA:"):
			// DA:<line>,<hits>[,<checksum>]
			parts := strings.Split(strings.TrimPrefix(line, "DA:"), ",")
			if len(parts) < 2 {
				continue
			}
			lineNo, err1 := strconv.Atoi(parts[0])
			hits, err2 := strconv.Atoi(parts[1])
			if err1 != nil || err2 != nil {
				continue
			}
			current.lineHits[lineNo] += hits

		case strings.HasPrefix(line, "FN:"):
			// FN:<line>,<name> declares a function
			parts := strings.SplitN(strings.TrimPrefix(line, "FN:"), ",", 2)
			if len(parts) == 2 {
				if _, seen := current.fnHits[parts[1]]; !seen {
					current.fnHits[parts[1]] = 0
				}
			}

		case strings.HasPrefix(line, "FNDA:"):
			// FNDA:<count>,<name>
			parts := strings.SplitN(strings.TrimPrefix(line, "FNDA:"), ",", 2)
			if len(parts) != 2 {
				continue
			}
			count, err := strconv.Atoi(parts[0])
			if err != nil {
				continue
			}
			current.fnHits[parts[1]] += count

		case strings.HasPrefix(line, "BRDA:"):
			// BRDA:<line>,<block>,<branch>,<taken>; taken is "-" when the
			// branch was never reached
			parts := strings.Split(strings.TrimPrefix(line, "BRDA:"), ",")
			if len(parts) != 4 {
				continue
			}
			current.branchesFound++
			if taken := parts[3]; taken != "-" && taken != "0" {
				current.branchesHit++
			}

		case strings.HasPrefix(line, "LF:"):
			current.lf = parseLcovCount(line, "LF:")
		case strings.HasPrefix(line, "LH:"):
			current.lh = parseLcovCount(line, "LH:")
		case strings.HasPrefix(line, "FNF:"):
			current.fnf = parseLcovCount(line, "FNF:")
		case strings.HasPrefix(line, "FNH:"):
			current.fnh = parseLcovCount(line, "FNH:")
		case strings.HasPrefix(line, "BRF:"):
			current.brf = parseLcovCount(line, "BRF:")
		case strings.HasPrefix(line, "BRH:"):
			current.brh = parseLcovCount(line, "BRH:")
		}
	}

	return summarize(files), files, scanner.Err()
}

func parseLcovCount(line, prefix string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, prefix)))
	if err != nil {
		return nil
	}
	return &v
}

// finalize reduces the accumulated record to the canonical per-file shape
func (r *lcovRecord) finalize() FileCoverage {
	linesTotal := len(r.lineHits)
	linesCovered := 0
	uncovered := make([]int, 0)
	for lineNo, hits := range r.lineHits {
		if hits > 0 {
			linesCovered++
		} else {
			uncovered = append(uncovered, lineNo)
		}
	}
	sort.Ints(uncovered)

	if r.lf != nil {
		linesTotal = *r.lf
	}
	if r.lh != nil {
		linesCovered = *r.lh
	}

	fnTotal := len(r.fnHits)
	fnCovered := 0
	for _, count := range r.fnHits {
		if count > 0 {
			fnCovered++
		}
	}
	if r.fnf != nil {
		fnTotal = *r.fnf
	}
	if r.fnh != nil {
		fnCovered = *r.fnh
	}

	brTotal := r.branchesFound
	brCovered := r.branchesHit
	if r.brf != nil {
		brTotal = *r.brf
	}
	if r.brh != nil {
		brCovered = *r.brh
	}

	lines := NewDimensionSummary(linesTotal, linesCovered)

	return FileCoverage{
		FilePath: r.filePath,
		// The protocol has no statement dimension; lines stand in for it
		Statements:     lines,
		Branches:       NewDimensionSummary(brTotal, brCovered),
		Functions:      NewDimensionSummary(fnTotal, fnCovered),
		Lines:          lines,
		UncoveredLines: uncovered,
	}
}

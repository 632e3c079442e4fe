package coverage

import (
	"fmt"

	"ikb/internal/errors"
)

// Parser normalizes one coverage format. CanParse is a cheap structural
// sniff; Parse is total over claimed input and returns an error only for
// outright malformed encoding.
type Parser interface {
	Format() Format
	CanParse(content string) bool
	Parse(content string) (Summary, []FileCoverage, error)
}

// parsers are tried in a fixed priority order: line protocol first, then
// JSON, then XML. JSON/XML detection is loose structural sniffing, so a
// line-protocol payload could otherwise collide.
var parsers = []Parser{
	&LcovParser{},
	&IstanbulParser{},
	&CoberturaParser{},
}

// DetectAndParse auto-detects the payload format and returns the canonical
// report. It fails with FORMAT_NOT_RECOGNIZED when no parser claims the
// content, and with PARSE_FAILED when a claimed payload turns out to be
// malformed; no partial result is returned in either case.
func DetectAndParse(content string) (*Report, error) {
	for _, p := range parsers {
		if !p.CanParse(content) {
			continue
		}

		summary, files, err := p.Parse(content)
		if err != nil {
			return nil, errors.NewIkbError(errors.ParseFailed,
				fmt.Sprintf("unable to parse %s payload", p.Format()), err, nil)
		}

		return &Report{
			Format:  p.Format(),
			Summary: summary,
			Files:   files,
		}, nil
	}

	return nil, errors.NewIkbError(errors.FormatNotRecognized,
		"coverage format not recognized", nil, nil)
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatYAML formats the response as YAML
func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *MetricsResponseCLI:
		return formatMetricsHuman(v)
	case *CoverageResponseCLI:
		return formatCoverageHuman(v)
	case *StatusResponseCLI:
		return formatStatusHuman(v)
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// formatMetricsHuman formats a MetricsResponseCLI in human-readable format
func formatMetricsHuman(resp *MetricsResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("IKB Metrics - v%s\n", resp.IkbVersion))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	c := resp.Coupling
	b.WriteString("Coupling:\n")
	b.WriteString(fmt.Sprintf("  Atom -> Test: %d/%d (%.0f%%)\n",
		c.AtomTest.Matched, c.AtomTest.Total, c.AtomTest.Rate*100))
	b.WriteString(fmt.Sprintf("  Test -> Atom: %d/%d (%.0f%%)\n",
		c.TestAtom.Matched, c.TestAtom.Total, c.TestAtom.Rate*100))
	b.WriteString(fmt.Sprintf("  Code -> Atom: %d/%d (%.0f%%)\n",
		c.CodeAtom.Matched, c.CodeAtom.Total, c.CodeAtom.Rate*100))
	b.WriteString(fmt.Sprintf("  Mean Strength: %.2f (strong: %d, moderate: %d, weak: %d)\n\n",
		c.Strength.MeanStrength,
		c.Strength.Distribution.Strong,
		c.Strength.Distribution.Moderate,
		c.Strength.Distribution.Weak))

	if len(c.AtomTest.Orphans) > 0 {
		b.WriteString("  Atoms without tests:\n")
		for _, orphan := range c.AtomTest.Orphans {
			b.WriteString(fmt.Sprintf("    - %s", orphan.ID))
			if orphan.Description != "" {
				b.WriteString(fmt.Sprintf(" (%s)", orphan.Description))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	e := resp.Epistemic
	b.WriteString("Epistemic:\n")
	b.WriteString(fmt.Sprintf("  Proven:    %d (%.1f%%)\n", e.Proven.Count, e.Proven.Percentage))
	b.WriteString(fmt.Sprintf("  Committed: %d (%.1f%%)\n", e.Committed.Count, e.Committed.Percentage))
	b.WriteString(fmt.Sprintf("  Inferred:  %d (%.1f%%)\n", e.Inferred.Count, e.Inferred.Percentage))
	b.WriteString(fmt.Sprintf("  Unknown:   %d\n\n", e.Unknown.Count))
	b.WriteString(fmt.Sprintf("  Total Certainty: %.2f\n", e.TotalCertainty))
	b.WriteString(fmt.Sprintf("  Quality-Weighted Certainty: %.2f\n", e.QualityWeightedCertainty))
	b.WriteString(fmt.Sprintf("  Proven Breakdown: high %d / medium %d / low %d\n",
		e.ProvenBreakdown.High, e.ProvenBreakdown.Medium, e.ProvenBreakdown.Low))
	b.WriteString(fmt.Sprintf("  Coverage Depth: %.2f (%d with, %d without coverage)\n",
		e.CoverageDepth.AverageCoverageDepth,
		e.CoverageDepth.AtomsWithCoverage,
		e.CoverageDepth.AtomsWithoutCoverage))

	return b.String(), nil
}

// formatCoverageHuman formats a CoverageResponseCLI in human-readable format
func formatCoverageHuman(resp *CoverageResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString("Coverage Report\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if resp.Report == nil {
		b.WriteString("No coverage reports ingested yet.\n")
		b.WriteString("Run 'ikb ingest coverage <file>' to add one.\n")
		return b.String(), nil
	}

	r := resp.Report
	b.WriteString(fmt.Sprintf("ID: %s\n", r.ID))
	b.WriteString(fmt.Sprintf("Format: %s\n", r.Format))
	if r.CommitHash != "" {
		b.WriteString(fmt.Sprintf("Commit: %s\n", r.CommitHash))
	}
	if r.BranchName != "" {
		b.WriteString(fmt.Sprintf("Branch: %s\n", r.BranchName))
	}
	b.WriteString(fmt.Sprintf("Ingested: %s\n\n", r.CreatedAt.Format("2006-01-02 15:04:05")))

	b.WriteString("Summary:\n")
	b.WriteString(fmt.Sprintf("  Lines:      %d/%d (%.2f%%)\n", r.Summary.Lines.Covered, r.Summary.Lines.Total, r.Summary.Lines.Pct))
	b.WriteString(fmt.Sprintf("  Statements: %d/%d (%.2f%%)\n", r.Summary.Statements.Covered, r.Summary.Statements.Total, r.Summary.Statements.Pct))
	b.WriteString(fmt.Sprintf("  Branches:   %d/%d (%.2f%%)\n", r.Summary.Branches.Covered, r.Summary.Branches.Total, r.Summary.Branches.Pct))
	b.WriteString(fmt.Sprintf("  Functions:  %d/%d (%.2f%%)\n", r.Summary.Functions.Covered, r.Summary.Functions.Total, r.Summary.Functions.Pct))
	b.WriteString(fmt.Sprintf("\nFiles: %d\n", len(r.Files)))

	if len(resp.History) > 0 {
		b.WriteString("\nHistory:\n")
		for _, h := range resp.History {
			b.WriteString(fmt.Sprintf("  %s  %s  lines %.2f%%  %s\n",
				h.CreatedAt.Format("2006-01-02 15:04"), h.Format, h.Summary.Lines.Pct, h.ID))
		}
	}

	return b.String(), nil
}

// formatStatusHuman formats a StatusResponseCLI in human-readable format
func formatStatusHuman(resp *StatusResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("IKB Status - v%s\n", resp.IkbVersion))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	initIcon := "✓"
	initText := "Initialized"
	if !resp.Initialized {
		initIcon = "✗"
		initText = "Not initialized (run 'ikb init')"
	}
	b.WriteString(fmt.Sprintf("%s %s\n\n", initIcon, initText))

	if resp.Project != "" {
		b.WriteString(fmt.Sprintf("Project: %s\n\n", resp.Project))
	}

	b.WriteString("Store:\n")
	b.WriteString(fmt.Sprintf("  Coverage Reports: %d\n", resp.Reports))
	b.WriteString(fmt.Sprintf("  Atoms: %d\n", resp.Atoms))
	b.WriteString(fmt.Sprintf("  Test Records: %d\n", resp.TestRecords))
	b.WriteString(fmt.Sprintf("  Recommendations: %d\n", resp.Recommendations))

	if resp.LastSnapshot != "" {
		b.WriteString(fmt.Sprintf("\nLast Snapshot: %s\n", resp.LastSnapshot))
	}

	return b.String(), nil
}

package coverage

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const coberturaSample = `<?xml version="1.0"?>
<coverage line-rate="0.8" branch-rate="0.5" lines-covered="4" lines-valid="5">
  <packages>
    <package name="core">
      <classes>
        <class name="Parser" filename="src/parser.py" line-rate="0.8">
          <methods>
            <method name="parse" line-rate="1.0"/>
            <method name="reset" line-rate="0.0"/>
          </methods>
          <lines>
            <line number="1" hits="3"/>
            <line number="2" hits="0"/>
            <line number="3" hits="1" branch="true" condition-coverage="50% (1/2)"/>
            <line number="4"/>
            <line number="5" hits="2"/>
          </lines>
        </class>
      </classes>
    </package>
  </packages>
</coverage>`

func TestCoberturaParse(t *testing.T) {
	p := &CoberturaParser{}
	if !p.CanParse(coberturaSample) {
		t.Fatal("CanParse should claim cobertura XML")
	}

	summary, files, err := p.Parse(coberturaSample)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}

	f := files[0]
	if f.FilePath != "src/parser.py" {
		t.Errorf("filePath = %q", f.FilePath)
	}
	// Line 4 has no hits attribute: never uncovered, never counted
	if f.Lines.Total != 4 || f.Lines.Covered != 3 {
		t.Errorf("lines = %+v, want 3/4", f.Lines)
	}
	if diff := cmp.Diff([]int{2}, f.UncoveredLines); diff != "" {
		t.Errorf("uncovered lines (-want +got):\n%s", diff)
	}
	// condition-coverage "50% (1/2)" contributes total+=2, covered+=1
	if f.Branches.Total != 2 || f.Branches.Covered != 1 {
		t.Errorf("branches = %+v, want 1/2", f.Branches)
	}
	// A method is covered iff its own rate is > 0
	if f.Functions.Total != 2 || f.Functions.Covered != 1 {
		t.Errorf("functions = %+v, want 1/2", f.Functions)
	}

	if summary.Lines.Total != 4 || summary.Lines.Covered != 3 {
		t.Errorf("summary lines = %+v", summary.Lines)
	}
}

func TestCoberturaClassesSharingFilenameAccumulate(t *testing.T) {
	content := `<coverage>
  <packages><package><classes>
    <class name="A" filename="src/x.py"><lines><line number="1" hits="1"/></lines></class>
    <class name="B" filename="src/x.py"><lines><line number="2" hits="0"/></lines></class>
  </classes></package></packages>
</coverage>`

	_, files, err := (&CoberturaParser{}).Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1 merged file", len(files))
	}
	if files[0].Lines.Total != 2 || files[0].Lines.Covered != 1 {
		t.Errorf("lines = %+v, want 1/2", files[0].Lines)
	}
}

func TestCoberturaSummaryFallbackWithCounts(t *testing.T) {
	content := `<coverage lines-covered="38" lines-valid="45" branches-covered="3" branches-valid="4"></coverage>`

	summary, files, err := (&CoberturaParser{}).Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("fallback must emit zero files, got %d", len(files))
	}
	if summary.Lines.Total != 45 || summary.Lines.Covered != 38 || summary.Lines.Pct != 84.44 {
		t.Errorf("lines = %+v", summary.Lines)
	}
	if summary.Branches.Total != 4 || summary.Branches.Covered != 3 {
		t.Errorf("branches = %+v", summary.Branches)
	}
}

func TestCoberturaSummaryFallbackWithRatesOnly(t *testing.T) {
	content := `<coverage line-rate="0.8444" branch-rate="0.75"></coverage>`

	summary, files, err := (&CoberturaParser{}).Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("fallback must emit zero files, got %d", len(files))
	}
	if summary.Lines.Pct != 84.44 {
		t.Errorf("lines pct = %v, want 84.44", summary.Lines.Pct)
	}
	if summary.Branches.Pct != 75 {
		t.Errorf("branches pct = %v, want 75", summary.Branches.Pct)
	}
}

func TestCoberturaMalformedXML(t *testing.T) {
	_, _, err := (&CoberturaParser{}).Parse("<coverage><packages>")
	if err == nil {
		t.Error("expected an error for truncated XML")
	}
}

func TestCoberturaCanParseSniff(t *testing.T) {
	p := &CoberturaParser{}
	if p.CanParse(`{"coverage": true}`) {
		t.Error("should not claim JSON")
	}
	if !p.CanParse("  \n<?xml version=\"1.0\"?>\n<coverage></coverage>") {
		t.Error("should claim XML with a leading declaration")
	}
	if p.CanParse(strings.Repeat("x", 10)) {
		t.Error("should not claim plain text")
	}
}

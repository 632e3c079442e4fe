package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *IkbError
		want string
	}{
		{
			name: "without cause",
			err:  NewIkbError(FormatNotRecognized, "coverage format not recognized", nil, nil),
			want: "[FORMAT_NOT_RECOGNIZED] coverage format not recognized",
		},
		{
			name: "with cause",
			err:  NewIkbError(ParseFailed, "unable to parse payload", stderrors.New("unexpected EOF"), nil),
			want: "[PARSE_FAILED] unable to parse payload: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewIkbError(StoreUnavailable, "cannot open store", cause, nil)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestSuggestedFixesAttachedByDefault(t *testing.T) {
	err := NewIkbError(FormatNotRecognized, "no parser claimed content", nil, nil)

	if len(err.SuggestedFixes) == 0 {
		t.Fatal("expected default suggested fixes for FORMAT_NOT_RECOGNIZED")
	}
	if !strings.Contains(err.SuggestedFixes[0].Description, "lcov") {
		t.Errorf("unexpected fix description: %q", err.SuggestedFixes[0].Description)
	}
}

func TestGetSuggestedFixesUnknownCode(t *testing.T) {
	if fixes := GetSuggestedFixes(InternalError); fixes != nil {
		t.Errorf("expected nil fixes for INTERNAL_ERROR, got %v", fixes)
	}
}

func TestWithDetails(t *testing.T) {
	err := NewIkbError(InvalidRecords, "bundle rejected", nil, nil).WithDetails(map[string]int{"atoms": 0})
	if err.Details == nil {
		t.Error("WithDetails should set details")
	}
}

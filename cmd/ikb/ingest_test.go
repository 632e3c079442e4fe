package main

import (
	stderrors "errors"
	"testing"

	"ikb/internal/errors"
	"ikb/internal/records"
)

func TestValidateBundleAccepts(t *testing.T) {
	bundle := &records.Bundle{
		Atoms: []records.Atom{
			{AtomID: "ATOM-001", Status: records.AtomCommitted},
			{AtomID: "ATOM-002", Status: records.AtomDraft},
		},
		TestRecords: []records.TestRecord{
			{FilePath: "tests/auth.test.ts", HadAtomAnnotation: true},
		},
		Recommendations: []records.AtomRecommendation{
			{AtomID: "ATOM-001", Status: records.RecommendationAccepted},
		},
	}

	if err := validateBundle(bundle); err != nil {
		t.Errorf("validateBundle() = %v, want nil", err)
	}
}

func TestValidateBundleRejects(t *testing.T) {
	tests := []struct {
		name   string
		bundle *records.Bundle
	}{
		{
			name: "atom without id",
			bundle: &records.Bundle{
				Atoms: []records.Atom{{Status: records.AtomCommitted}},
			},
		},
		{
			name: "atom with bad status",
			bundle: &records.Bundle{
				Atoms: []records.Atom{{AtomID: "ATOM-001", Status: "active"}},
			},
		},
		{
			name: "test record without file path",
			bundle: &records.Bundle{
				TestRecords: []records.TestRecord{{TestName: "works"}},
			},
		},
		{
			name: "recommendation without atom id",
			bundle: &records.Bundle{
				Recommendations: []records.AtomRecommendation{{Status: records.RecommendationPending}},
			},
		},
		{
			name: "recommendation with bad status",
			bundle: &records.Bundle{
				Recommendations: []records.AtomRecommendation{{AtomID: "ATOM-001", Status: "maybe"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBundle(tt.bundle)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ikbErr *errors.IkbError
			if !stderrors.As(err, &ikbErr) || ikbErr.Code != errors.InvalidRecords {
				t.Errorf("error = %v, want INVALID_RECORDS", err)
			}
		})
	}
}

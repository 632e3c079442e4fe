package scheduler

import (
	"testing"
	"time"
)

func TestParseExpressionInterval(t *testing.T) {
	tests := []struct {
		expr     string
		interval time.Duration
	}{
		{"every 4h", 4 * time.Hour},
		{"every 30m", 30 * time.Minute},
		{"every 1 day", 24 * time.Hour},
		{"Every 2 Hours", 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			parsed, err := ParseExpression(tt.expr)
			if err != nil {
				t.Fatalf("ParseExpression(%q) error: %v", tt.expr, err)
			}
			if parsed.Type != ExprTypeInterval {
				t.Errorf("Type = %q, want interval", parsed.Type)
			}
			if parsed.Interval != tt.interval {
				t.Errorf("Interval = %v, want %v", parsed.Interval, tt.interval)
			}
		})
	}
}

func TestParseExpressionDaily(t *testing.T) {
	parsed, err := ParseExpression("daily at 02:00")
	if err != nil {
		t.Fatalf("ParseExpression() error: %v", err)
	}
	if parsed.Type != ExprTypeDaily {
		t.Errorf("Type = %q, want daily", parsed.Type)
	}
	if parsed.Time != "02:00" {
		t.Errorf("Time = %q, want 02:00", parsed.Time)
	}
}

func TestParseExpressionInvalid(t *testing.T) {
	invalid := []string{
		"",
		"whenever",
		"daily at 25:00",
		"daily at 10:75",
		"every 30s", // below the 1 minute floor
	}

	for _, expr := range invalid {
		if _, err := ParseExpression(expr); err == nil {
			t.Errorf("ParseExpression(%q) should fail", expr)
		}
	}
}

func TestNextRunInterval(t *testing.T) {
	from := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	parsed, err := ParseExpression("every 4h")
	if err != nil {
		t.Fatal(err)
	}

	next := parsed.NextRun(from)
	want := from.Add(4 * time.Hour)
	if !next.Equal(want) {
		t.Errorf("NextRun = %v, want %v", next, want)
	}
}

func TestNextRunDaily(t *testing.T) {
	parsed, err := ParseExpression("daily at 02:00")
	if err != nil {
		t.Fatal(err)
	}

	// Before today's slot: runs today
	from := time.Date(2026, 8, 26, 1, 0, 0, 0, time.UTC)
	next := parsed.NextRun(from)
	want := time.Date(2026, 8, 26, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextRun = %v, want %v", next, want)
	}

	// After today's slot: rolls to tomorrow
	from = time.Date(2026, 8, 26, 3, 0, 0, 0, time.UTC)
	next = parsed.NextRun(from)
	want = time.Date(2026, 8, 27, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextRun = %v, want %v", next, want)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{48 * time.Hour, "2d"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ikberrors "ikb/internal/errors"
)

// Expression types
const (
	ExprTypeInterval = "interval"
	ExprTypeDaily    = "daily"
)

// ParsedExpression represents a parsed schedule expression
type ParsedExpression struct {
	Type     string
	Interval time.Duration // for interval type
	Time     string        // for daily type (HH:MM)
}

var (
	intervalRegex = regexp.MustCompile(`^every\s+(\d+)\s*(m|h|d|minutes?|hours?|days?)$`)
	dailyRegex    = regexp.MustCompile(`^daily\s+at\s+(\d{1,2}):(\d{2})$`)
)

// ParseExpression parses a schedule expression. Supported forms are
// "every Xm/Xh/Xd" and "daily at HH:MM".
func ParseExpression(expr string) (*ParsedExpression, error) {
	expr = strings.TrimSpace(strings.ToLower(expr))

	if matches := intervalRegex.FindStringSubmatch(expr); matches != nil {
		value, _ := strconv.Atoi(matches[1])
		unit := matches[2]

		var duration time.Duration
		switch {
		case strings.HasPrefix(unit, "m"):
			duration = time.Duration(value) * time.Minute
		case strings.HasPrefix(unit, "h"):
			duration = time.Duration(value) * time.Hour
		case strings.HasPrefix(unit, "d"):
			duration = time.Duration(value) * 24 * time.Hour
		}

		if duration < time.Minute {
			return nil, ikberrors.NewIkbError(ikberrors.ScheduleInvalid,
				"minimum interval is 1 minute", nil, nil)
		}

		return &ParsedExpression{
			Type:     ExprTypeInterval,
			Interval: duration,
		}, nil
	}

	if matches := dailyRegex.FindStringSubmatch(expr); matches != nil {
		hour, _ := strconv.Atoi(matches[1])
		minute, _ := strconv.Atoi(matches[2])

		if hour > 23 || minute > 59 {
			return nil, ikberrors.NewIkbError(ikberrors.ScheduleInvalid,
				fmt.Sprintf("invalid time: %s:%s", matches[1], matches[2]), nil, nil)
		}

		return &ParsedExpression{
			Type: ExprTypeDaily,
			Time: fmt.Sprintf("%02d:%02d", hour, minute),
		}, nil
	}

	return nil, ikberrors.NewIkbError(ikberrors.ScheduleInvalid,
		fmt.Sprintf("unrecognized schedule expression: %s", expr), nil, nil)
}

// NextRunTime calculates the next run time for an expression
func NextRunTime(expr string, from time.Time) (time.Time, error) {
	parsed, err := ParseExpression(expr)
	if err != nil {
		return time.Time{}, err
	}

	return parsed.NextRun(from), nil
}

// NextRun calculates the next run time
func (p *ParsedExpression) NextRun(from time.Time) time.Time {
	switch p.Type {
	case ExprTypeInterval:
		return from.Add(p.Interval)

	case ExprTypeDaily:
		parts := strings.Split(p.Time, ":")
		hour, _ := strconv.Atoi(parts[0])
		minute, _ := strconv.Atoi(parts[1])

		next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())
		if !next.After(from) {
			next = next.AddDate(0, 0, 1)
		}
		return next

	default:
		return from.Add(time.Hour)
	}
}

// FormatDuration formats a duration for display
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// Package scheduler provides task scheduling for automated operations.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskType represents the type of scheduled task
type TaskType string

const (
	// TaskTypeSnapshot records the daily metrics snapshot
	TaskTypeSnapshot TaskType = "snapshot"
	// TaskTypePrune trims old coverage reports past the history limit
	TaskTypePrune TaskType = "prune"
)

// Schedule represents a scheduled task
type Schedule struct {
	ID           string     `json:"id"`
	TaskType     TaskType   `json:"taskType"`
	Expression   string     `json:"expression"` // "every Xh" or "daily at HH:MM"
	Enabled      bool       `json:"enabled"`
	NextRun      time.Time  `json:"nextRun"`
	LastRun      *time.Time `json:"lastRun,omitempty"`
	LastStatus   string     `json:"lastStatus,omitempty"` // "success", "failed"
	LastDuration int64      `json:"lastDuration,omitempty"` // milliseconds
	LastError    string     `json:"lastError,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// NewSchedule creates a new enabled schedule with its first run time computed
func NewSchedule(taskType TaskType, expression string) (*Schedule, error) {
	now := time.Now()

	nextRun, err := NextRunTime(expression, now)
	if err != nil {
		return nil, err
	}

	return &Schedule{
		ID:         uuid.New().String(),
		TaskType:   taskType,
		Expression: expression,
		Enabled:    true,
		NextRun:    nextRun,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsDue returns true if the schedule should run now
func (s *Schedule) IsDue() bool {
	if !s.Enabled {
		return false
	}
	return !time.Now().Before(s.NextRun)
}

// MarkRun updates the schedule after a run and computes the next run time
func (s *Schedule) MarkRun(success bool, duration time.Duration, errMsg string) error {
	now := time.Now()
	s.LastRun = &now
	s.LastDuration = duration.Milliseconds()
	s.UpdatedAt = now

	if success {
		s.LastStatus = "success"
		s.LastError = ""
	} else {
		s.LastStatus = "failed"
		s.LastError = errMsg
	}

	nextRun, err := NextRunTime(s.Expression, now)
	if err != nil {
		return err
	}
	s.NextRun = nextRun

	return nil
}

// ToJSON returns JSON representation
func (s *Schedule) ToJSON() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ikb/internal/logging"
	"ikb/internal/scheduler"
	"ikb/internal/storage"

	"github.com/spf13/cobra"
)

var (
	snapshotFormat string
	snapshotWatch  bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Record a metrics snapshot",
	Long: `Computes the current coupling and epistemic metrics and records them in
the metrics history. One row is kept per calendar day; running the snapshot
twice on the same day replaces the earlier entry.

With --watch, runs in the foreground and records snapshots on the schedule
configured in .ikb/config.json (default "daily at 02:00").

Examples:
  ikb snapshot
  ikb snapshot --watch`,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotFormat, "format", "human", "Output format (json, yaml, human)")
	snapshotCmd.Flags().BoolVar(&snapshotWatch, "watch", false, "Run in the foreground on the configured schedule")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	logger := newLogger(snapshotFormat)
	repoRoot := mustGetRepoRoot()
	db := mustGetDB(repoRoot, logger)

	if !snapshotWatch {
		snapshot, err := runSnapshotOnce(db, logger)
		if err != nil {
			return err
		}
		fmt.Printf("Snapshot recorded for %s\n", snapshot.Date)
		return nil
	}

	return watchSnapshots(repoRoot, db, logger)
}

// runSnapshotOnce computes current metrics and upserts today's history row
func runSnapshotOnce(db *storage.DB, logger *logging.Logger) (*storage.Snapshot, error) {
	metrics, err := computeMetrics(db, logger)
	if err != nil {
		return nil, err
	}

	snapshot := &storage.Snapshot{
		Coupling:  metrics.Coupling,
		Epistemic: metrics.Epistemic,
	}
	if err := db.UpsertSnapshot(snapshot); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// watchSnapshots runs the scheduler loop until interrupted
func watchSnapshots(repoRoot string, db *storage.DB, logger *logging.Logger) error {
	cfg := loadConfig(repoRoot, logger)
	if !cfg.Snapshot.Enabled {
		return fmt.Errorf("snapshots are disabled in config; set snapshot.enabled to true")
	}

	sched, err := scheduler.New(filepath.Join(repoRoot, ".ikb"), logger, scheduler.DefaultConfig())
	if err != nil {
		return err
	}

	sched.RegisterHandler(scheduler.TaskTypeSnapshot, func(ctx context.Context, s *scheduler.Schedule) error {
		_, err := runSnapshotOnce(db, logger)
		return err
	})

	// Ensure a snapshot schedule exists for the configured expression
	if err := ensureSnapshotSchedule(sched, cfg.Snapshot.Expression); err != nil {
		return err
	}

	if err := sched.Start(); err != nil {
		return err
	}

	fmt.Printf("Watching for snapshots (%s). Press Ctrl+C to stop.\n", cfg.Snapshot.Expression)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	return sched.Stop(10 * time.Second)
}

// ensureSnapshotSchedule creates or updates the snapshot schedule so it
// matches the configured expression
func ensureSnapshotSchedule(sched *scheduler.Scheduler, expression string) error {
	existing, err := sched.ListSchedules()
	if err != nil {
		return err
	}

	for _, s := range existing {
		if s.TaskType != scheduler.TaskTypeSnapshot {
			continue
		}
		if s.Expression == expression && s.Enabled {
			return nil
		}
		if err := sched.DeleteSchedule(s.ID); err != nil {
			return err
		}
	}

	schedule, err := scheduler.NewSchedule(scheduler.TaskTypeSnapshot, expression)
	if err != nil {
		return err
	}
	return sched.AddSchedule(schedule)
}

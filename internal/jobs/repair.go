// Package jobs runs scheduled maintenance against the store.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/metrics"
	"github.com/sadwiik06/SocialFlow/internal/store"
	"go.uber.org/zap"
)

// DefaultRepairSchedule is used when no schedule is configured
const DefaultRepairSchedule = "@every 30m"

// repairTimeout bounds one repair pass
const repairTimeout = 5 * time.Minute

// RepairJob runs store.Repairer on a cron schedule
type RepairJob struct {
	repairer store.Repairer
	cron     *cron.Cron
	log      *zap.Logger

	mu   sync.Mutex
	last *store.RepairReport
}

// NewRepairJob validates schedule and registers the job. Nothing runs until Start.
func NewRepairJob(repairer store.Repairer, schedule string) (*RepairJob, error) {
	if schedule == "" {
		schedule = DefaultRepairSchedule
	}

	j := &RepairJob{
		repairer: repairer,
		log:      logger.Named("repair"),
	}
	j.cron = cron.New(
		cron.WithLogger(cronLogger{j.log}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{j.log})),
	)
	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return nil, fmt.Errorf("invalid repair schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins the schedule in the background
func (j *RepairJob) Start() {
	j.cron.Start()
	j.log.Info("Repair job scheduled", zap.Time("next", j.cron.Entries()[0].Next))
}

// Stop halts the schedule and waits for a running pass, or for ctx
func (j *RepairJob) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one repair pass now
func (j *RepairJob) RunOnce(ctx context.Context) (*store.RepairReport, error) {
	m := metrics.Get()
	start := time.Now()

	report, err := j.repairer.Repair(ctx)
	if err != nil {
		m.RepairRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("repair failed: %w", err)
	}

	m.RepairRunsTotal.WithLabelValues("success").Inc()
	m.RepairFixedRecords.WithLabelValues("item_counts").Add(float64(report.ItemCounts))
	m.RepairFixedRecords.WithLabelValues("last_messages").Add(float64(report.LastMessages))
	m.RepairFixedRecords.WithLabelValues("follow_edges").Add(float64(report.FollowEdges))

	j.mu.Lock()
	j.last = report
	j.mu.Unlock()

	fields := []zap.Field{
		zap.Int64("item_counts", report.ItemCounts),
		zap.Int64("last_messages", report.LastMessages),
		zap.Int64("follow_edges", report.FollowEdges),
		logger.WithDuration(time.Since(start)),
	}
	if report.Total() > 0 {
		j.log.Warn("Repair fixed drifted records", fields...)
	} else {
		j.log.Info("Repair found nothing to fix", fields...)
	}
	return report, nil
}

// LastReport returns the most recent successful report, or nil
func (j *RepairJob) LastReport() *store.RepairReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

func (j *RepairJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), repairTimeout)
	defer cancel()
	if _, err := j.RunOnce(ctx); err != nil {
		j.log.Error("Scheduled repair failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, zap.Any("cron", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, zap.Error(err), zap.Any("cron", keysAndValues))
}

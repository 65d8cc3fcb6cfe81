// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	businessflow "github.com/shopmorph/Kaleido/business_flow"
	"github.com/shopmorph/Kaleido/models"
	"github.com/shopmorph/Kaleido/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	rotationsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kaleido_rotations_applied_total",
		Help: "Total number of case rotations committed by the scheduler",
	})

	rotationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kaleido_rotations_failed_total",
		Help: "Total number of case rotations that failed",
	})

	rotationPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kaleido_rotation_pass_duration_seconds",
		Help:    "Duration of one scheduler pass over all due tests",
		Buckets: prometheus.DefBuckets,
	})

	rollupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kaleido_rollup_runs_total",
		Help: "Total number of daily rollup runs partitioned by outcome",
	}, []string{"outcome"})
)

// RotationScheduler periodically flips due tests between their cases and
// runs the daily statistics rollup shortly after midnight UTC.
type RotationScheduler struct {
	rotationFlow   businessflow.RotationFlow
	statisticsFlow businessflow.StatisticsFlow
	logger         *log.Logger
	interval       time.Duration
}

func NewRotationScheduler(
	rotationFlow businessflow.RotationFlow,
	statisticsFlow businessflow.StatisticsFlow,
	interval time.Duration,
) *RotationScheduler {
	if interval <= 0 {
		interval = time.Minute
	}

	s := &RotationScheduler{
		rotationFlow:   rotationFlow,
		statisticsFlow: statisticsFlow,
		interval:       interval,
	}

	s.initSchedulerLogger()

	return s
}

// initSchedulerLogger configures a logger that writes to both stdout and a
// rotating file under data/ (or /data for containerized environments)
func (s *RotationScheduler) initSchedulerLogger() {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		rotating := &lumberjack.Logger{
			Filename:   filepath.Join(dir, "scheduler.log"),
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		mw := io.MultiWriter(os.Stdout, rotating)
		// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
		s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return
	}

	// Fallback to default stdout logger if no log directory is writable
	s.logger = log.Default()
	s.logger.Printf("scheduler: failed to initialize file logger, using stdout")
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *RotationScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	// Start daily rollup worker
	go s.startRollupWorker(ctx)

	return cancel
}

func (s *RotationScheduler) runOnce(ctx context.Context) {
	start := time.Now()

	summary, err := s.rotationFlow.RotateDueTests(ctx, models.RotationTriggerScheduler)
	if err != nil {
		s.logger.Printf("scheduler: rotation pass failed: %v", err)
		return
	}

	rotationPassDuration.Observe(time.Since(start).Seconds())
	rotationsAppliedTotal.Add(float64(len(summary.Applied)))
	rotationsFailedTotal.Add(float64(len(summary.Failed)))

	if len(summary.Applied) == 0 && len(summary.Failed) == 0 {
		return
	}
	s.logger.Printf("scheduler: rotation pass applied=%d failed=%d", len(summary.Applied), len(summary.Failed))

	for _, f := range summary.Failed {
		s.logger.Printf("scheduler: rotation failed for test=%s: %s", f.TestID, f.Error)
	}
}

// startRollupWorker aggregates the previous day's events into daily
// statistics shortly after each midnight UTC. Writes are keyed per day, so
// re-running after a restart is a no-op for already covered days.
func (s *RotationScheduler) startRollupWorker(ctx context.Context) {
	for {
		next := utils.DayStart(utils.UTCNow()).Add(24*time.Hour + 5*time.Minute)
		wait := time.Until(next)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		s.runRollup(ctx)
	}
}

func (s *RotationScheduler) runRollup(ctx context.Context) {
	to := utils.DayStart(utils.UTCNow())
	from := to.Add(-24 * time.Hour)

	summary, err := s.statisticsFlow.AggregateRange(ctx, from, to, nil)
	if err != nil {
		rollupRunsTotal.WithLabelValues("error").Inc()
		s.logger.Printf("scheduler: daily rollup failed for %s: %v", from.Format("2006-01-02"), err)
		return
	}

	rollupRunsTotal.WithLabelValues("success").Inc()
	s.logger.Printf("scheduler: daily rollup for %s wrote %d rows (%d groups, %d already present)",
		from.Format("2006-01-02"), summary.RowsWritten, summary.Groups, summary.RowsSkipped)
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"PricePulse/pkg/cache"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/queue"
)

// RepriceJobType is the queue message type for scheduled repricing.
const RepriceJobType = "reprice_cycle"

// cycleLockKey guards against two instances repricing at once.
const cycleLockKey = "reprice:lock"

// RepricePayload carries the cycle options through the queue.
type RepricePayload struct {
	DryRun    bool   `json:"dry_run"`
	Requested string `json:"requested,omitempty"` // "schedule" or "api"
}

// RepriceJob runs a full pricing cycle when a reprice message is dequeued.
// The scheduler and the enqueue endpoint both publish this job, so manual
// and timed cycles share one code path and never overlap per worker.
type RepriceJob struct {
	engine *PricingEngine
	locker cache.Service
	l      *applogger.Logger
}

func NewRepriceJob(engine *PricingEngine) *RepriceJob {
	return &RepriceJob{engine: engine}
}

// SetLogger injects a structured logger.
func (j *RepriceJob) SetLogger(l *applogger.Logger) { j.l = l }

// SetLocker enables the cross-instance cycle lock. Without it, cycles are
// serialized only within this process by the queue's single worker.
func (j *RepriceJob) SetLocker(locker cache.Service) { j.locker = locker }

func (j *RepriceJob) Name() string { return "reprice-job" }

func (j *RepriceJob) Type() string { return RepriceJobType }

func (j *RepriceJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RepricePayload](payload)
	if err != nil {
		return fmt.Errorf("parse reprice payload: %w", err)
	}

	if j.locker != nil {
		ok, err := j.locker.TryLock(ctx, cycleLockKey, 30*time.Minute)
		if err != nil {
			return fmt.Errorf("acquire cycle lock: %w", err)
		}
		if !ok {
			if j.l != nil {
				j.l.Warn("reprice cycle already running, skipping",
					applogger.String("requested", p.Requested),
				)
			}
			return nil
		}
		defer func() { _ = j.locker.Unlock(ctx, cycleLockKey) }()
	}

	report, err := j.engine.RunCycleFromStores(ctx, p.DryRun)
	if err != nil {
		return fmt.Errorf("reprice cycle: %w", err)
	}
	if j.l != nil {
		j.l.Info("reprice job complete",
			applogger.String("requested", p.Requested),
			applogger.Int("decisions", len(report.Decisions)),
			applogger.Int("updated", report.Updated),
			applogger.Int("skipped", len(report.Skipped)),
			applogger.Duration("duration_ms", report.Duration),
		)
	}
	return nil
}

var _ queue.Job = (*RepriceJob)(nil)

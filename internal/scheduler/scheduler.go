package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"clipflow/internal/config"
	"clipflow/internal/logging"
	"clipflow/internal/notifications"
	"clipflow/internal/queue"
	"clipflow/internal/quota"
	"clipflow/internal/services"
	"clipflow/internal/stage"
)

// SegmentPublisher uploads one segment and returns the platform reference.
type SegmentPublisher interface {
	PublishSegment(ctx context.Context, item *queue.Item, seg queue.Segment, totalParts int) (string, error)
	HealthCheck(ctx context.Context) stage.Health
}

// Summary reports what one invocation accomplished.
type Summary struct {
	// Advanced counts every committed stage advancement, including each
	// individual segment publish.
	Advanced int
	// Published counts committed segment publishes.
	Published int
	// Completed counts items that reached the Completed status this run.
	Completed int
	// Failed counts items that entered the Failed status this run.
	Failed int
	// Skipped counts items abandoned after a concurrent writer won the record.
	Skipped int
	// QuotaExhausted is set when a quota denial halted publish work.
	QuotaExhausted bool
}

// Deps carries the collaborators the scheduler drives.
type Deps struct {
	Store     *queue.Store
	Ledger    *quota.Ledger
	Fetch     stage.Handler
	Transform stage.Handler
	Publisher SegmentPublisher
	Notifier  notifications.Service
	Logger    *slog.Logger
}

// Scheduler advances work items through the pipeline one invocation at a time.
type Scheduler struct {
	cfg       *config.Config
	store     *queue.Store
	ledger    *quota.Ledger
	fetch     stage.Handler
	transform stage.Handler
	publisher SegmentPublisher
	notifier  notifications.Service
	logger    *slog.Logger
}

// New constructs a scheduler.
func New(cfg *config.Config, deps Deps) (*Scheduler, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("quota ledger is required")
	}
	if deps.Fetch == nil || deps.Transform == nil || deps.Publisher == nil {
		return nil, errors.New("all stage handlers are required")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		cfg:       cfg,
		store:     deps.Store,
		ledger:    deps.Ledger,
		fetch:     deps.Fetch,
		transform: deps.Transform,
		publisher: deps.Publisher,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "scheduler"),
	}, nil
}

// RunOnce loads the queue and advances eligible items until the per-run
// budget is spent or nothing is left. Fetch and transform work runs first so
// the publish backlog keeps growing even on quota-exhausted days.
func (s *Scheduler) RunOnce(ctx context.Context) (Summary, error) {
	var summary Summary

	items, err := s.store.List(ctx)
	if err != nil {
		if items == nil {
			return summary, fmt.Errorf("load queue: %w", err)
		}
		// Corrupt records are reported alongside the readable rows; they are
		// surfaced here and excluded from scheduling, never silently dropped.
		s.logger.Warn("queue contains corrupt records", logging.Error(err))
	}

	budget := s.cfg.Scheduler.MaxItemsPerRun

	var stageWork []*queue.Item
	var publishWork []*queue.Item
	for _, item := range items {
		switch item.Status {
		case queue.StatusDiscovered, queue.StatusFetched:
			stageWork = append(stageWork, item)
		case queue.StatusTransformed:
			publishWork = append(publishWork, item)
		}
	}
	SortItems(stageWork)

	for _, item := range stageWork {
		if budget <= 0 {
			break
		}
		s.advanceItem(ctx, item, &budget, &summary)
		if item.Status == queue.StatusTransformed {
			publishWork = append(publishWork, item)
		}
	}

	if budget > 0 {
		SortItems(publishWork)
		if err := s.runPublish(ctx, publishWork, &budget, &summary); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// advanceItem moves one item forward through fetch and transform, committing
// after each stage, until the item is ready to publish, fails, or the budget
// runs out.
func (s *Scheduler) advanceItem(ctx context.Context, item *queue.Item, budget *int, summary *Summary) {
	for *budget > 0 {
		var handler stage.Handler
		var next queue.Status
		switch item.Status {
		case queue.StatusDiscovered:
			handler, next = s.fetch, queue.StatusFetched
		case queue.StatusFetched:
			handler, next = s.transform, queue.StatusTransformed
		default:
			return
		}

		stageCtx := services.WithItemID(ctx, item.ID)
		stageCtx = services.WithStage(stageCtx, string(next))
		logger := logging.WithContext(stageCtx, s.logger)
		if aware, ok := handler.(stage.LoggerAware); ok {
			aware.SetLogger(logger)
		}

		if err := handler.Prepare(stageCtx, item); err != nil {
			s.recordFailure(ctx, item, err, summary)
			return
		}
		if err := handler.Execute(stageCtx, item); err != nil {
			s.recordFailure(ctx, item, err, summary)
			return
		}

		item.Status = next
		if err := s.store.Update(ctx, item); err != nil {
			if errors.Is(err, queue.ErrStaleWrite) {
				summary.Skipped++
				logger.Warn("concurrent writer advanced item first, skipping",
					logging.String(logging.FieldItemID, item.ID),
				)
				return
			}
			s.recordStoreError(ctx, item, err, summary)
			return
		}
		*budget--
		summary.Advanced++
		logger.Info("item advanced",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String(logging.FieldStage, string(next)),
		)
	}
}

// runPublish uploads pending segments in priority order, reserving quota per
// segment and committing each published reference before the next upload. A
// quota denial halts all remaining publish work; fetch and transform results
// committed earlier in the run are unaffected.
func (s *Scheduler) runPublish(ctx context.Context, items []*queue.Item, budget *int, summary *Summary) error {
	cost := s.cfg.Publish.CostUnits

	for _, item := range items {
		if *budget <= 0 {
			return nil
		}

		pubCtx := services.WithItemID(ctx, item.ID)
		pubCtx = services.WithStage(pubCtx, "publish")
		logger := logging.WithContext(pubCtx, s.logger)
		if aware, ok := s.publisher.(stage.LoggerAware); ok {
			aware.SetLogger(logger)
		}

		total := len(item.Segments)
		for _, seg := range item.UnpublishedSegments() {
			if *budget <= 0 {
				return nil
			}

			granted, err := s.ledger.TryReserve(ctx, cost)
			if err != nil {
				return fmt.Errorf("reserve quota: %w", err)
			}
			if !granted {
				summary.QuotaExhausted = true
				s.notifyQuotaExhausted(ctx)
				logger.Info("daily quota exhausted, halting publish work",
					logging.String(logging.FieldEventType, "quota_exhausted"),
				)
				return nil
			}

			ref, err := s.publisher.PublishSegment(pubCtx, item, seg, total)
			if err != nil {
				if relErr := s.ledger.Release(ctx, cost); relErr != nil {
					logger.Warn("release reserved quota", logging.Error(relErr))
				}
				if services.Classify(err) == services.KindQuotaDenied {
					// The platform is throttling; treat it like a local denial
					// so the backlog waits for the next window.
					summary.QuotaExhausted = true
					logger.Warn("platform throttled upload, halting publish work", logging.Error(err))
					return nil
				}
				s.recordFailure(ctx, item, err, summary)
				break
			}

			if item.PublishedRefs == nil {
				item.PublishedRefs = make(map[int]string)
			}
			item.PublishedRefs[seg.Index] = ref
			if item.AllSegmentsPublished() {
				item.Status = queue.StatusCompleted
			}

			if err := s.store.Update(ctx, item); err != nil {
				if errors.Is(err, queue.ErrStaleWrite) {
					// The upload happened, so the reservation stands even
					// though this invocation lost the record.
					summary.Skipped++
					logger.Warn("concurrent writer advanced item first, skipping",
						logging.String(logging.FieldItemID, item.ID),
					)
					break
				}
				return fmt.Errorf("commit published segment %d of %s: %w", seg.Index, item.ID, err)
			}

			*budget--
			summary.Advanced++
			summary.Published++
			if err := s.notifier.NotifySegmentPublished(ctx, item.Title, seg.Index, total, ref); err != nil {
				logger.Warn("send publish notification", logging.Error(err))
			}
			if item.Status == queue.StatusCompleted {
				summary.Completed++
				logger.Info("item completed",
					logging.String(logging.FieldEventType, "item_complete"),
					logging.Int("segments", total),
				)
				if err := s.notifier.NotifyItemCompleted(ctx, item.Title, total); err != nil {
					logger.Warn("send completion notification", logging.Error(err))
				}
			}
		}
	}
	return nil
}

// recordFailure classifies a stage error and commits the bookkeeping.
// Permanent failures and exhausted retry budgets move the item to Failed;
// transient failures bump the retry count and leave the item where it is.
func (s *Scheduler) recordFailure(ctx context.Context, item *queue.Item, stageErr error, summary *Summary) {
	switch services.Classify(stageErr) {
	case services.KindPermanent:
		item.SetFailed(stageErr.Error())
	default:
		item.RetryCount++
		item.LastError = stageErr.Error()
		if item.RetryCount > s.cfg.Scheduler.RetryCeiling {
			item.Status = queue.StatusFailed
		}
	}

	if err := s.store.Update(ctx, item); err != nil {
		if errors.Is(err, queue.ErrStaleWrite) {
			summary.Skipped++
			s.logger.Warn("concurrent writer advanced item first, dropping failure record",
				logging.String(logging.FieldItemID, item.ID),
				logging.Error(stageErr),
			)
			return
		}
		s.logger.Error("record item failure",
			logging.String(logging.FieldItemID, item.ID),
			logging.Error(err),
		)
		return
	}

	if item.Status == queue.StatusFailed {
		summary.Failed++
		s.logger.Error("item failed",
			logging.String(logging.FieldEventType, "item_failed"),
			logging.String(logging.FieldItemID, item.ID),
			logging.Int("retry_count", item.RetryCount),
			logging.Error(stageErr),
		)
		if err := s.notifier.NotifyError(ctx, stageErr, item.Title); err != nil {
			s.logger.Warn("send failure notification", logging.Error(err))
		}
		return
	}

	s.logger.Warn("item hit transient failure, will retry",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int("retry_count", item.RetryCount),
		logging.Error(stageErr),
	)
}

// recordStoreError logs a non-stale store failure during a commit. The stage
// work itself is idempotent, so the next invocation redoes it.
func (s *Scheduler) recordStoreError(ctx context.Context, item *queue.Item, err error, summary *Summary) {
	summary.Skipped++
	s.logger.Error("commit stage advancement",
		logging.String(logging.FieldItemID, item.ID),
		logging.Error(err),
	)
}

func (s *Scheduler) notifyQuotaExhausted(ctx context.Context) {
	usage, err := s.ledger.Usage(ctx)
	if err != nil {
		s.logger.Warn("read quota usage for notification", logging.Error(err))
		return
	}
	if err := s.notifier.NotifyQuotaExhausted(ctx, usage.ConsumedUnits, usage.DailyBudget); err != nil {
		s.logger.Warn("send quota notification", logging.Error(err))
	}
}

// HealthChecks runs every handler's health probe.
func (s *Scheduler) HealthChecks(ctx context.Context) []stage.Health {
	return []stage.Health{
		s.fetch.HealthCheck(ctx),
		s.transform.HealthCheck(ctx),
		s.publisher.HealthCheck(ctx),
	}
}

package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"clipflow/internal/config"
	"clipflow/internal/discovery"
	"clipflow/internal/fetching"
	"clipflow/internal/logging"
	"clipflow/internal/media"
	"clipflow/internal/notifications"
	"clipflow/internal/publishing"
	"clipflow/internal/queue"
	"clipflow/internal/quota"
	"clipflow/internal/scheduler"
	"clipflow/internal/services"
	"clipflow/internal/transform"
)

// Exit codes for the run command. Cron and wrapper scripts key off these.
const (
	// ExitAdvanced means at least one stage advancement was committed.
	ExitAdvanced = 0
	// ExitFatal means the invocation aborted before finishing its pass.
	ExitFatal = 1
	// ExitNothingEligible means the pass completed without advancing anything:
	// empty queue, exhausted quota, or a peer invocation holding the lock.
	ExitNothingEligible = 3
)

// Outcome reports what a single invocation did.
type Outcome struct {
	RunID    string
	Scan     discovery.Result
	Summary  scheduler.Summary
	ExitCode int
}

// Run executes one full pipeline pass: discover, advance, publish. The
// invocation is serialized against peers with a file lock; losing the lock is
// not an error, the running peer is doing the work.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Outcome, error) {
	started := time.Now()
	outcome := Outcome{RunID: uuid.NewString(), ExitCode: ExitNothingEligible}

	ctx = services.WithRunID(ctx, outcome.RunID)
	logger = logging.WithContext(ctx, logger)

	if err := cfg.EnsureDirectories(); err != nil {
		outcome.ExitCode = ExitFatal
		return outcome, err
	}

	lock := flock.New(filepath.Join(cfg.Paths.WorkDir, "clipflow.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		outcome.ExitCode = ExitFatal
		return outcome, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		logger.Info("another invocation holds the run lock, exiting")
		return outcome, nil
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release run lock", logging.Error(err))
		}
	}()

	store, err := queue.Open(cfg)
	if err != nil {
		outcome.ExitCode = ExitFatal
		return outcome, fmt.Errorf("open tracking store: %w", err)
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	ytdlp := media.NewYtDlp(media.WithYtDlpBinary(cfg.YtDlpBinary()))

	scanner := discovery.NewScanner(cfg, store, ytdlp, logger)
	scan, err := scanner.Scan(ctx)
	if err != nil {
		// A failed scan must not strand the existing backlog; keep going and
		// let the next invocation rescan.
		logger.Warn("channel scan failed, continuing with existing queue", logging.Error(err))
	}
	outcome.Scan = scan

	ledger, err := quota.NewLedger(cfg, store)
	if err != nil {
		outcome.ExitCode = ExitFatal
		return outcome, err
	}

	ffmpeg := media.NewFFmpeg(
		media.WithFFmpegBinary(cfg.FFmpegBinary()),
		media.WithFFprobeBinary(cfg.FFprobeBinary()),
	)

	sched, err := scheduler.New(cfg, scheduler.Deps{
		Store:     store,
		Ledger:    ledger,
		Fetch:     fetching.NewFetcher(cfg, ytdlp, logger),
		Transform: transform.NewTransformer(cfg, ffmpeg, logger),
		Publisher: publishing.NewPublisher(cfg, publishing.NewHTTPClient(cfg), logger),
		Notifier:  notifier,
		Logger:    logger,
	})
	if err != nil {
		outcome.ExitCode = ExitFatal
		return outcome, err
	}

	summary, err := sched.RunOnce(ctx)
	outcome.Summary = summary
	if err != nil {
		outcome.ExitCode = ExitFatal
		if notifyErr := notifier.NotifyError(ctx, err, "pipeline run"); notifyErr != nil {
			logger.Warn("send error notification", logging.Error(notifyErr))
		}
		return outcome, err
	}

	duration := time.Since(started)
	logger.Info("run complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("listed", scan.Listed),
		logging.Int("discovered", scan.Discovered),
		logging.Int("advanced", summary.Advanced),
		logging.Int("published", summary.Published),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Bool("quota_exhausted", summary.QuotaExhausted),
		logging.Duration("duration", duration),
	)

	if summary.Advanced > 0 || summary.Failed > 0 {
		if err := notifier.NotifyRunCompleted(ctx, summary.Advanced, summary.Failed, duration); err != nil {
			logger.Warn("send run notification", logging.Error(err))
		}
	}

	if summary.Advanced > 0 {
		outcome.ExitCode = ExitAdvanced
	}
	return outcome, nil
}

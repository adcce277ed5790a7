package fetching

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"clipflow/internal/config"
	"clipflow/internal/logging"
	"clipflow/internal/media"
	"clipflow/internal/queue"
	"clipflow/internal/services"
	"clipflow/internal/stage"
)

const stageName = "fetch"

// Downloader fetches one source video to a local path.
type Downloader interface {
	Download(ctx context.Context, sourceURL, outputPath string) error
	Binary() string
}

// Fetcher is the stage handler that downloads source videos.
type Fetcher struct {
	cfg        *config.Config
	downloader Downloader
	logger     *slog.Logger
}

// NewFetcher constructs the fetch stage handler.
func NewFetcher(cfg *config.Config, downloader Downloader, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		cfg:        cfg,
		downloader: downloader,
		logger:     logging.NewComponentLogger(logger, stageName),
	}
}

// SetLogger replaces the stage logger; the scheduler hands in a logger carrying
// per-item fields before each execution.
func (f *Fetcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		f.logger = logger
	}
}

// Prepare validates preconditions before any download starts.
func (f *Fetcher) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.SourceURL) == "" {
		return services.Wrap(services.ErrPermanent, stageName, "prepare", "item has no source url", nil)
	}
	if err := os.MkdirAll(f.cfg.Paths.DownloadsDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "prepare", "create downloads directory", err)
	}
	return nil
}

// Execute downloads the source video and records its local path on the item.
// An already-present download is reused so an interrupted run resumes without
// refetching.
func (f *Fetcher) Execute(ctx context.Context, item *queue.Item) error {
	target := filepath.Join(f.cfg.Paths.DownloadsDir, item.ID+".mp4")

	if info, err := os.Stat(target); err == nil && info.Size() > 0 {
		f.logger.Info("reusing existing download", logging.String("file", target))
		item.FetchedFile = target
		return nil
	}

	f.logger.Info("downloading source video",
		logging.String(logging.FieldEventType, "fetch_start"),
		logging.String("url", item.SourceURL),
	)

	if err := f.downloader.Download(ctx, item.SourceURL, target); err != nil {
		if media.SourceUnavailable(err) {
			return services.Wrap(services.ErrPermanent, stageName, "download", "source unavailable", err)
		}
		return services.Wrap(services.ErrTransient, stageName, "download", "", err)
	}

	info, err := os.Stat(target)
	if err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrTransient, stageName, "download", fmt.Sprintf("downloader reported success but %s is missing or empty", target), err)
	}

	item.FetchedFile = target
	return nil
}

// HealthCheck verifies the download tool is available.
func (f *Fetcher) HealthCheck(ctx context.Context) stage.Health {
	binary := f.downloader.Binary()
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(stageName, fmt.Sprintf("%s not found on PATH", binary))
	}
	return stage.Healthy(stageName)
}

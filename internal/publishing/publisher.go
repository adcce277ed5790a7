package publishing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"clipflow/internal/config"
	"clipflow/internal/logging"
	"clipflow/internal/queue"
	"clipflow/internal/services"
	"clipflow/internal/stage"
)

const stageName = "publish"

// Publisher uploads one segment at a time under the scheduler's quota control.
type Publisher struct {
	cfg    *config.Config
	client Client
	logger *slog.Logger
}

// NewPublisher constructs the publish handler.
func NewPublisher(cfg *config.Config, client Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		cfg:    cfg,
		client: client,
		logger: logging.NewComponentLogger(logger, stageName),
	}
}

// SetLogger replaces the publisher's logger.
func (p *Publisher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// PublishSegment uploads a single segment and returns the platform reference.
// The caller reserves quota before and commits the reference after; this
// method only performs the upload.
func (p *Publisher) PublishSegment(ctx context.Context, item *queue.Item, seg queue.Segment, totalParts int) (string, error) {
	if seg.Artifact == "" {
		return "", services.Wrap(services.ErrTransient, stageName, "publish_segment",
			fmt.Sprintf("segment %d has no artifact recorded", seg.Index), nil)
	}
	if _, err := os.Stat(seg.Artifact); err != nil {
		return "", services.Wrap(services.ErrTransient, stageName, "publish_segment",
			fmt.Sprintf("segment %d artifact missing", seg.Index), err)
	}

	req := UploadRequest{
		FilePath:    seg.Artifact,
		Title:       SegmentTitle(item.Title, seg.Index, totalParts, p.cfg.Publish.TitleSuffix),
		Description: SegmentDescription(p.cfg.Publish.DescriptionTemplate, item.Title, seg.Index, totalParts, item.SourceURL),
		Tags:        p.cfg.Publish.Tags,
		Category:    p.cfg.Publish.Category,
		Privacy:     p.cfg.Publish.Privacy,
	}

	p.logger.Info("uploading segment",
		logging.String(logging.FieldEventType, "publish_start"),
		logging.Int(logging.FieldSegment, seg.Index),
		logging.String("title", req.Title),
	)

	ref, err := p.client.Upload(ctx, req)
	if err != nil {
		return "", err
	}

	p.logger.Info("segment published",
		logging.String(logging.FieldEventType, "publish_complete"),
		logging.Int(logging.FieldSegment, seg.Index),
		logging.String("ref", ref),
	)
	return ref, nil
}

// HealthCheck verifies the publish endpoint is configured. No network call is
// made; a cron-invoked health probe must not consume quota.
func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(p.cfg.Publish.Endpoint) == "" {
		return stage.Unhealthy(stageName, "publish.endpoint is not configured")
	}
	if strings.TrimSpace(p.cfg.Publish.Token) == "" {
		return stage.Unhealthy(stageName, "publish.token is not configured")
	}
	return stage.Healthy(stageName)
}

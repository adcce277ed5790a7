package transform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"clipflow/internal/config"
	"clipflow/internal/logging"
	"clipflow/internal/media"
	"clipflow/internal/queue"
	"clipflow/internal/services"
	"clipflow/internal/stage"
)

const stageName = "transform"

// Cutter is the ffmpeg surface the transformer needs.
type Cutter interface {
	Duration(ctx context.Context, path string) (float64, error)
	Cut(ctx context.Context, spec media.CutSpec) error
	Binary() string
	ProbeBinary() string
}

// Transformer is the stage handler that cuts fetched videos into segments.
type Transformer struct {
	cfg    *config.Config
	cutter Cutter
	logger *slog.Logger
}

// NewTransformer constructs the transform stage handler.
func NewTransformer(cfg *config.Config, cutter Cutter, logger *slog.Logger) *Transformer {
	return &Transformer{
		cfg:    cfg,
		cutter: cutter,
		logger: logging.NewComponentLogger(logger, stageName),
	}
}

// SetLogger replaces the stage logger.
func (t *Transformer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// Prepare verifies the fetched file still exists and the segment directory is
// writable.
func (t *Transformer) Prepare(ctx context.Context, item *queue.Item) error {
	if item.FetchedFile == "" {
		return services.Wrap(services.ErrTransient, stageName, "prepare", "item has no fetched file recorded", nil)
	}
	if _, err := os.Stat(item.FetchedFile); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "prepare", "fetched file missing, refetch required", err)
	}
	if err := os.MkdirAll(t.cfg.Paths.SegmentsDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "prepare", "create segments directory", err)
	}
	return nil
}

// Execute probes the fetched video, plans its segments, and cuts any segment
// artifact not already on disk. Existing artifacts are reused so an
// interrupted run resumes where it stopped. The segment plan is stamped on the
// item exactly once and never changes afterwards.
func (t *Transformer) Execute(ctx context.Context, item *queue.Item) error {
	segments := item.Segments
	if len(segments) == 0 {
		total, err := t.cutter.Duration(ctx, item.FetchedFile)
		if err != nil {
			return services.Wrap(services.ErrTransient, stageName, "probe", "", err)
		}

		segments = PlanSegments(total, t.cfg.Segments.DurationSeconds, t.cfg.Segments.MinTailSeconds, t.cfg.Segments.MaxPerItem)
		if len(segments) == 0 {
			return services.Wrap(services.ErrPermanent, stageName, "plan",
				fmt.Sprintf("video too short to yield a segment (%.1fs)", total), nil)
		}
		t.logger.Info("planned segments",
			logging.String(logging.FieldEventType, "segments_planned"),
			logging.Float64("total_seconds", total),
			logging.Int("segments", len(segments)),
		)
	}

	for i := range segments {
		seg := &segments[i]
		if seg.Artifact == "" {
			seg.Artifact = filepath.Join(t.cfg.Paths.SegmentsDir, fmt.Sprintf("%s_part%d.mp4", item.ID, seg.Index))
		}
		if info, err := os.Stat(seg.Artifact); err == nil && info.Size() > 0 {
			continue
		}

		var overlay string
		if t.cfg.Segments.Overlay && len(segments) > 1 {
			overlay = fmt.Sprintf("Part %d", seg.Index)
		}
		spec := media.CutSpec{
			Input:    item.FetchedFile,
			Output:   seg.Artifact,
			Start:    seg.Start,
			Duration: seg.Duration,
			Overlay:  overlay,
		}
		if err := t.cutter.Cut(ctx, spec); err != nil {
			return services.Wrap(services.ErrTransient, stageName, "cut",
				fmt.Sprintf("segment %d", seg.Index), err)
		}
		t.logger.Info("cut segment",
			logging.Int(logging.FieldSegment, seg.Index),
			logging.String("artifact", seg.Artifact),
		)
	}

	item.Segments = segments
	return nil
}

// HealthCheck verifies ffmpeg and ffprobe are available.
func (t *Transformer) HealthCheck(ctx context.Context) stage.Health {
	for _, binary := range []string{t.cutter.Binary(), t.cutter.ProbeBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(stageName, fmt.Sprintf("%s not found on PATH", binary))
		}
	}
	return stage.Healthy(stageName)
}

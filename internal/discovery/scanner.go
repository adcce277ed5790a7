package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clipflow/internal/config"
	"clipflow/internal/logging"
	"clipflow/internal/media"
	"clipflow/internal/queue"
)

// Lister produces candidate videos for a channel URL.
type Lister interface {
	ListChannel(ctx context.Context, channelURL string, limit int) ([]media.ChannelEntry, error)
}

// Result summarizes one scan.
type Result struct {
	Listed     int
	Discovered int
	Refreshed  int
}

// Scanner upserts channel candidates into the tracking store.
type Scanner struct {
	cfg    *config.Config
	store  *queue.Store
	lister Lister
	logger *slog.Logger
}

// NewScanner constructs a scanner.
func NewScanner(cfg *config.Config, store *queue.Store, lister Lister, logger *slog.Logger) *Scanner {
	return &Scanner{
		cfg:    cfg,
		store:  store,
		lister: lister,
		logger: logging.NewComponentLogger(logger, "discovery"),
	}
}

// Scan lists the configured channel and records candidates. New videos become
// Discovered items; videos already tracked get a priority refresh only.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	channelURL := strings.TrimSpace(s.cfg.Source.ChannelURL)
	if channelURL == "" {
		return Result{}, errors.New("source.channel_url is not configured")
	}

	entries, err := s.lister.ListChannel(ctx, channelURL, s.cfg.Source.ScanLimit)
	if err != nil {
		return Result{}, fmt.Errorf("list channel: %w", err)
	}

	result := Result{Listed: len(entries)}
	for _, entry := range entries {
		existing, err := s.store.GetByID(ctx, entry.ID)
		if err != nil {
			if errors.Is(err, queue.ErrRecordCorrupt) {
				s.logger.Warn("skipping corrupt record during scan",
					logging.String(logging.FieldItemID, entry.ID),
					logging.Error(err),
				)
				continue
			}
			return result, fmt.Errorf("look up candidate %s: %w", entry.ID, err)
		}

		if existing != nil {
			if existing.Priority != entry.ViewCount {
				if err := s.store.RefreshPriority(ctx, entry.ID, entry.ViewCount); err != nil {
					return result, err
				}
				result.Refreshed++
			}
			continue
		}

		item := &queue.Item{
			ID:        entry.ID,
			Title:     entry.Title,
			SourceURL: entry.URL,
			Priority:  entry.ViewCount,
		}
		if err := s.store.Insert(ctx, item); err != nil {
			return result, fmt.Errorf("insert candidate %s: %w", entry.ID, err)
		}
		result.Discovered++
		s.logger.Info("discovered new video",
			logging.String(logging.FieldItemID, entry.ID),
			logging.String("title", entry.Title),
			logging.Int64("priority", entry.ViewCount),
		)
	}

	s.logger.Info("channel scan complete",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.Int("listed", result.Listed),
		logging.Int("discovered", result.Discovered),
		logging.Int("refreshed", result.Refreshed),
	)
	return result, nil
}

package fetching_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"clipflow/internal/fetching"
	"clipflow/internal/logging"
	"clipflow/internal/queue"
	"clipflow/internal/services"
	"clipflow/internal/testsupport"
)

type stubDownloader struct {
	err       error
	downloads int
	writes    testing.TB
}

func (s *stubDownloader) Download(ctx context.Context, sourceURL, outputPath string) error {
	if s.err != nil {
		return s.err
	}
	s.downloads++
	testsupport.WriteFile(s.writes, outputPath, 128)
	return nil
}

func (s *stubDownloader) Binary() string { return "yt-dlp" }

func TestFetcherDownloadsAndRecordsFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	downloader := &stubDownloader{writes: t}
	handler := fetching.NewFetcher(cfg, downloader, logging.NewNop())

	item := &queue.Item{
		ID:        "vid-1",
		Status:    queue.StatusDiscovered,
		SourceURL: "https://www.youtube.com/watch?v=vid-1",
	}
	ctx := context.Background()

	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	want := filepath.Join(cfg.Paths.DownloadsDir, "vid-1.mp4")
	if item.FetchedFile != want {
		t.Fatalf("expected fetched file %s, got %s", want, item.FetchedFile)
	}
	if downloader.downloads != 1 {
		t.Fatalf("expected 1 download, got %d", downloader.downloads)
	}
}

func TestFetcherReusesExistingDownload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	downloader := &stubDownloader{writes: t}
	handler := fetching.NewFetcher(cfg, downloader, logging.NewNop())

	existing := filepath.Join(cfg.Paths.DownloadsDir, "vid-2.mp4")
	testsupport.WriteFile(t, existing, 128)

	item := &queue.Item{
		ID:        "vid-2",
		Status:    queue.StatusDiscovered,
		SourceURL: "https://www.youtube.com/watch?v=vid-2",
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if downloader.downloads != 0 {
		t.Fatalf("expected no download for existing file, got %d", downloader.downloads)
	}
	if item.FetchedFile != existing {
		t.Fatalf("expected fetched file %s, got %s", existing, item.FetchedFile)
	}
}

func TestFetcherMissingSourceURLIsPermanent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler := fetching.NewFetcher(cfg, &stubDownloader{writes: t}, logging.NewNop())

	item := &queue.Item{ID: "vid-3", Status: queue.StatusDiscovered}
	err := handler.Prepare(context.Background(), item)
	if err == nil {
		t.Fatal("expected error for missing source url")
	}
	if services.Classify(err) != services.KindPermanent {
		t.Fatalf("expected permanent classification, got %v", err)
	}
}

func TestFetcherUnavailableSourceIsPermanent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	downloader := &stubDownloader{
		err:    errors.New("yt-dlp listing: ERROR: Video unavailable"),
		writes: t,
	}
	handler := fetching.NewFetcher(cfg, downloader, logging.NewNop())

	item := &queue.Item{
		ID:        "vid-4",
		Status:    queue.StatusDiscovered,
		SourceURL: "https://www.youtube.com/watch?v=vid-4",
	}
	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected download failure to propagate")
	}
	if services.Classify(err) != services.KindPermanent {
		t.Fatalf("expected permanent classification, got %v", err)
	}
}

func TestFetcherNetworkFailureIsTransient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	downloader := &stubDownloader{err: errors.New("connection reset by peer"), writes: t}
	handler := fetching.NewFetcher(cfg, downloader, logging.NewNop())

	item := &queue.Item{
		ID:        "vid-5",
		Status:    queue.StatusDiscovered,
		SourceURL: "https://www.youtube.com/watch?v=vid-5",
	}
	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected download failure to propagate")
	}
	if services.Classify(err) != services.KindTransient {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

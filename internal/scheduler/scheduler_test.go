package scheduler_test

import (
	"context"
	"fmt"
	"testing"

	"clipflow/internal/config"
	"clipflow/internal/queue"
	"clipflow/internal/quota"
	"clipflow/internal/scheduler"
	"clipflow/internal/services"
	"clipflow/internal/stage"
	"clipflow/internal/testsupport"
)

type stubStage struct {
	name    string
	execute func(ctx context.Context, item *queue.Item) error
	calls   []string
}

func (s *stubStage) Prepare(ctx context.Context, item *queue.Item) error { return nil }

func (s *stubStage) Execute(ctx context.Context, item *queue.Item) error {
	s.calls = append(s.calls, item.ID)
	if s.execute != nil {
		return s.execute(ctx, item)
	}
	return nil
}

func (s *stubStage) HealthCheck(ctx context.Context) stage.Health { return stage.Healthy(s.name) }

func newFetchStub() *stubStage {
	return &stubStage{
		name: "fetch",
		execute: func(ctx context.Context, item *queue.Item) error {
			item.FetchedFile = "/tmp/" + item.ID + ".mp4"
			return nil
		},
	}
}

func newTransformStub(segments int) *stubStage {
	return &stubStage{
		name: "transform",
		execute: func(ctx context.Context, item *queue.Item) error {
			item.Segments = makeSegments(item.ID, segments)
			return nil
		},
	}
}

func makeSegments(id string, count int) []queue.Segment {
	segments := make([]queue.Segment, 0, count)
	for i := 1; i <= count; i++ {
		segments = append(segments, queue.Segment{
			Index:    i,
			Start:    float64(i-1) * 60,
			Duration: 60,
			Artifact: fmt.Sprintf("/tmp/%s_part%d.mp4", id, i),
		})
	}
	return segments
}

type stubPublisher struct {
	err   error
	errOn string
	calls []string
}

func (s *stubPublisher) PublishSegment(ctx context.Context, item *queue.Item, seg queue.Segment, totalParts int) (string, error) {
	key := fmt.Sprintf("%s:%d", item.ID, seg.Index)
	if s.err != nil && (s.errOn == "" || s.errOn == key) {
		return "", s.err
	}
	s.calls = append(s.calls, key)
	return "remote-" + key, nil
}

func (s *stubPublisher) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("publish")
}

type fixture struct {
	cfg       *config.Config
	store     *queue.Store
	ledger    *quota.Ledger
	fetch     *stubStage
	transform *stubStage
	publisher *stubPublisher
	sched     *scheduler.Scheduler
}

func newFixture(t *testing.T, cfg *config.Config, segments int) *fixture {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	ledger, err := quota.NewLedger(cfg, store)
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}

	f := &fixture{
		cfg:       cfg,
		store:     store,
		ledger:    ledger,
		fetch:     newFetchStub(),
		transform: newTransformStub(segments),
		publisher: &stubPublisher{},
	}

	f.sched, err = scheduler.New(cfg, scheduler.Deps{
		Store:     store,
		Ledger:    ledger,
		Fetch:     f.fetch,
		Transform: f.transform,
		Publisher: f.publisher,
	})
	if err != nil {
		t.Fatalf("scheduler.New failed: %v", err)
	}
	return f
}

func seedTransformed(t *testing.T, store *queue.Store, id string, priority int64, segments int) *queue.Item {
	t.Helper()

	item := testsupport.NewItem(t, store, id, "Video "+id, priority)
	ctx := context.Background()

	item.Status = queue.StatusFetched
	item.FetchedFile = "/tmp/" + id + ".mp4"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("advance %s to fetched: %v", id, err)
	}

	item.Status = queue.StatusTransformed
	item.Segments = makeSegments(id, segments)
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("advance %s to transformed: %v", id, err)
	}
	return item
}

func mustGet(t *testing.T, store *queue.Store, id string) *queue.Item {
	t.Helper()
	item, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID %s failed: %v", id, err)
	}
	if item == nil {
		t.Fatalf("item %s missing", id)
	}
	return item
}

func TestRunOnceAdvancesItemEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := newFixture(t, cfg, 2)

	testsupport.NewItem(t, f.store, "vid-1", "End To End", 100)

	summary, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	// fetch + transform + two segment publishes
	if summary.Advanced != 4 {
		t.Fatalf("expected 4 advancements, got %d", summary.Advanced)
	}
	if summary.Published != 2 || summary.Completed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	item := mustGet(t, f.store, "vid-1")
	if item.Status != queue.StatusCompleted {
		t.Fatalf("expected completed item, got %s", item.Status)
	}
	if len(item.PublishedRefs) != 2 {
		t.Fatalf("expected 2 published refs, got %#v", item.PublishedRefs)
	}
	if f.publisher.calls[0] != "vid-1:1" || f.publisher.calls[1] != "vid-1:2" {
		t.Fatalf("segments published out of order: %v", f.publisher.calls)
	}
}

func TestRunOnceSelectsByPriorityThenAge(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxItemsPerRun(4))
	f := newFixture(t, cfg, 1)

	// Insertion order deliberately differs from selection order.
	testsupport.NewItem(t, f.store, "vid-low", "Low", 5)
	testsupport.NewItem(t, f.store, "vid-old", "Old High", 10)
	testsupport.NewItem(t, f.store, "vid-new", "New High", 10)

	summary, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if summary.Advanced != 4 {
		t.Fatalf("expected budget to be spent, got %d", summary.Advanced)
	}

	// Budget of 4 covers fetch+transform for the two high-priority items;
	// equal priorities resolve by creation time.
	if len(f.fetch.calls) != 2 || f.fetch.calls[0] != "vid-old" || f.fetch.calls[1] != "vid-new" {
		t.Fatalf("unexpected fetch order: %v", f.fetch.calls)
	}
	if mustGet(t, f.store, "vid-low").Status != queue.StatusDiscovered {
		t.Fatal("low priority item should not have advanced")
	}
}

func TestRunOnceQuotaDenialHaltsAllPublishWork(t *testing.T) {
	// Budget admits exactly one publish.
	cfg := testsupport.NewConfig(t, testsupport.WithDailyBudget(1600))
	f := newFixture(t, cfg, 1)

	seedTransformed(t, f.store, "vid-a", 100, 1)
	seedTransformed(t, f.store, "vid-b", 50, 1)

	summary, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if !summary.QuotaExhausted {
		t.Fatal("expected quota exhaustion")
	}
	if summary.Published != 1 {
		t.Fatalf("expected exactly one publish, got %d", summary.Published)
	}

	a := mustGet(t, f.store, "vid-a")
	if a.Status != queue.StatusCompleted {
		t.Fatalf("high priority item not completed: %s", a.Status)
	}

	// The denied item is untouched: not failed, no retry bump, just waiting.
	b := mustGet(t, f.store, "vid-b")
	if b.Status != queue.StatusTransformed || b.RetryCount != 0 || b.LastError != "" {
		t.Fatalf("quota denial damaged waiting item: %#v", b)
	}
}

func TestRunOnceResumesPartiallyPublishedItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := newFixture(t, cfg, 3)

	item := seedTransformed(t, f.store, "vid-1", 100, 3)
	item.PublishedRefs = map[int]string{1: "remote-earlier"}
	if err := f.store.Update(context.Background(), item); err != nil {
		t.Fatalf("record earlier publish: %v", err)
	}

	summary, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if summary.Published != 2 {
		t.Fatalf("expected 2 publishes for the remaining segments, got %d", summary.Published)
	}
	if len(f.publisher.calls) != 2 || f.publisher.calls[0] != "vid-1:2" || f.publisher.calls[1] != "vid-1:3" {
		t.Fatalf("unexpected publish calls: %v", f.publisher.calls)
	}

	reloaded := mustGet(t, f.store, "vid-1")
	if reloaded.Status != queue.StatusCompleted {
		t.Fatalf("expected completion, got %s", reloaded.Status)
	}
	if reloaded.PublishedRefs[1] != "remote-earlier" {
		t.Fatalf("earlier publish ref lost: %#v", reloaded.PublishedRefs)
	}
}

func TestRunOnceBudgetCountsEverySegmentPublish(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxItemsPerRun(3))
	f := newFixture(t, cfg, 3)

	testsupport.NewItem(t, f.store, "vid-1", "Three Parts", 100)

	summary, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	// fetch + transform + first segment exhausts the budget of 3.
	if summary.Advanced != 3 || summary.Published != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	item := mustGet(t, f.store, "vid-1")
	if item.Status != queue.StatusTransformed {
		t.Fatalf("expected item waiting in transformed, got %s", item.Status)
	}
	if len(item.PublishedRefs) != 1 {
		t.Fatalf("expected one committed publish, got %#v", item.PublishedRefs)
	}
}

func TestRunOnceTransientFailureBumpsRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRetryCeiling(2))
	f := newFixture(t, cfg, 1)
	f.fetch.execute = func(ctx context.Context, item *queue.Item) error {
		return services.Wrap(services.ErrTransient, "fetch", "download", "", fmt.Errorf("timeout"))
	}

	testsupport.NewItem(t, f.store, "vid-1", "Flaky", 100)

	summary, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if summary.Failed != 0 {
		t.Fatalf("transient failure below ceiling must not fail the item: %+v", summary)
	}

	item := mustGet(t, f.store, "vid-1")
	if item.Status != queue.StatusDiscovered {
		t.Fatalf("expected item to stay discovered, got %s", item.Status)
	}
	if item.RetryCount != 1 || item.LastError == "" {
		t.Fatalf("retry bookkeeping missing: %#v", item)
	}
}

func TestRunOnceRetryCeilingFailsItem(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRetryCeiling(0))
	f := newFixture(t, cfg, 1)
	f.fetch.execute = func(ctx context.Context, item *queue.Item) error {
		return services.Wrap(services.ErrTransient, "fetch", "download", "", fmt.Errorf("timeout"))
	}

	testsupport.NewItem(t, f.store, "vid-1", "Doomed", 100)

	summary, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected item failure past ceiling: %+v", summary)
	}
	if mustGet(t, f.store, "vid-1").Status != queue.StatusFailed {
		t.Fatal("expected failed status")
	}
}

func TestRunOncePermanentFailureFailsImmediately(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRetryCeiling(5))
	f := newFixture(t, cfg, 1)
	f.fetch.execute = func(ctx context.Context, item *queue.Item) error {
		return services.Wrap(services.ErrPermanent, "fetch", "download", "source unavailable", nil)
	}

	testsupport.NewItem(t, f.store, "vid-1", "Gone", 100)

	summary, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected immediate failure: %+v", summary)
	}

	item := mustGet(t, f.store, "vid-1")
	if item.Status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", item.Status)
	}
	if item.RetryCount != 0 {
		t.Fatalf("permanent failure must not consume retries: %d", item.RetryCount)
	}
}

func TestRunOncePublishFailureReleasesQuota(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := newFixture(t, cfg, 1)
	f.publisher.err = fmt.Errorf("%w: upload flaked", services.ErrTransient)

	seedTransformed(t, f.store, "vid-1", 100, 1)

	summary, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if summary.Published != 0 {
		t.Fatalf("expected no publish, got %d", summary.Published)
	}

	usage, err := f.ledger.Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	if usage.ConsumedUnits != 0 {
		t.Fatalf("failed publish leaked quota: %d", usage.ConsumedUnits)
	}

	item := mustGet(t, f.store, "vid-1")
	if item.RetryCount != 1 {
		t.Fatalf("expected retry bump after transient publish failure: %#v", item)
	}
}

func TestRunOnceRemoteThrottlingHaltsPublish(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := newFixture(t, cfg, 1)
	f.publisher.err = services.Wrap(services.ErrQuotaDenied, "publish", "upload", "status 429", nil)

	seedTransformed(t, f.store, "vid-a", 100, 1)
	seedTransformed(t, f.store, "vid-b", 50, 1)

	summary, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !summary.QuotaExhausted {
		t.Fatal("expected throttling to mark quota exhausted")
	}
	if summary.Failed != 0 {
		t.Fatalf("throttling must not fail items: %+v", summary)
	}

	// The reservation was released, so nothing is consumed.
	usage, err := f.ledger.Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	if usage.ConsumedUnits != 0 {
		t.Fatalf("throttled publish leaked quota: %d", usage.ConsumedUnits)
	}
}

func TestRunOnceEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := newFixture(t, cfg, 1)

	summary, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if summary.Advanced != 0 || summary.Failed != 0 {
		t.Fatalf("expected idle summary, got %+v", summary)
	}
}

func TestRunOnceSkipsCorruptRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	f := newFixture(t, cfg, 1)

	testsupport.NewItem(t, f.store, "vid-good", "Good", 10)
	testsupport.NewItem(t, f.store, "vid-bad", "Bad", 99)
	testsupport.CorruptItemStatus(t, f.store, "vid-bad", "???")

	summary, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if summary.Advanced == 0 {
		t.Fatal("readable item should still advance")
	}
	if got := mustGet(t, f.store, "vid-good").Status; got != queue.StatusCompleted {
		t.Fatalf("expected good item completed, got %s", got)
	}
}

func TestSortItemsDeterministic(t *testing.T) {
	a := &queue.Item{ID: "a", Priority: 10}
	b := &queue.Item{ID: "b", Priority: 10}
	c := &queue.Item{ID: "c", Priority: 99}

	items := []*queue.Item{b, a, c}
	scheduler.SortItems(items)

	if items[0].ID != "c" || items[1].ID != "a" || items[2].ID != "b" {
		t.Fatalf("unexpected order: %s %s %s", items[0].ID, items[1].ID, items[2].ID)
	}
}

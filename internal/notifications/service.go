package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipflow/internal/config"
)

const userAgent = "Clipflow-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyVideoDiscovered(ctx context.Context, title string, priority int64) error
	NotifySegmentPublished(ctx context.Context, title string, part, total int, ref string) error
	NotifyItemCompleted(ctx context.Context, title string, segments int) error
	NotifyQuotaExhausted(ctx context.Context, consumed, budget int64) error
	NotifyRunCompleted(ctx context.Context, advanced, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyVideoDiscovered(ctx context.Context, title string, priority int64) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Clipflow - Video Discovered",
		message: fmt.Sprintf("New video tracked: %s (%d views)", title, priority),
		tags:    []string{"clipflow", "discover"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySegmentPublished(ctx context.Context, title string, part, total int, ref string) error {
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Published part %d/%d of %s", part, total, title)
	if ref = strings.TrimSpace(ref); ref != "" {
		message = fmt.Sprintf("%s\nRef: %s", message, ref)
	}
	data := payload{
		title:   "Clipflow - Segment Published",
		message: message,
		tags:    []string{"clipflow", "publish"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyItemCompleted(ctx context.Context, title string, segments int) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:    "Clipflow - Video Complete",
		message:  fmt.Sprintf("All %d segments published: %s", segments, title),
		tags:     []string{"clipflow", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQuotaExhausted(ctx context.Context, consumed, budget int64) error {
	data := payload{
		title:   "Clipflow - Quota Exhausted",
		message: fmt.Sprintf("Daily publish budget reached: %d/%d units consumed", consumed, budget),
		tags:    []string{"clipflow", "quota"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, advanced, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title string
	var message string
	if failed == 0 {
		title = "Clipflow - Run Complete"
		message = fmt.Sprintf("Run complete: %d stage advancements in %s", advanced, durationText)
	} else {
		title = "Clipflow - Run Complete (with errors)"
		message = fmt.Sprintf("Run complete: %d advanced, %d failed in %s", advanced, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"clipflow", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Clipflow - Error",
		message:  builder.String(),
		tags:     []string{"clipflow", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Clipflow - Test",
		message:  "Notification system test",
		tags:     []string{"clipflow", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyVideoDiscovered(context.Context, string, int64) error              { return nil }
func (noopService) NotifySegmentPublished(context.Context, string, int, int, string) error  { return nil }
func (noopService) NotifyItemCompleted(context.Context, string, int) error                  { return nil }
func (noopService) NotifyQuotaExhausted(context.Context, int64, int64) error                { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, time.Duration) error       { return nil }
func (noopService) NotifyError(context.Context, error, string) error                        { return nil }
func (noopService) TestNotification(context.Context) error                                  { return nil }

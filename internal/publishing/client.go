package publishing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipflow/internal/config"
	"clipflow/internal/services"
)

// UploadRequest carries the artifact and its presentation metadata.
type UploadRequest struct {
	FilePath    string
	Title       string
	Description string
	Tags        []string
	Category    string
	Privacy     string
}

// Client uploads one segment and returns the platform's reference for it.
type Client interface {
	Upload(ctx context.Context, req UploadRequest) (string, error)
}

// HTTPClient uploads segments as multipart POST requests.
type HTTPClient struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPClient constructs an upload client from publish configuration.
func NewHTTPClient(cfg *config.Config) *HTTPClient {
	timeout := time.Duration(cfg.Publish.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		endpoint: cfg.Publish.Endpoint,
		token:    cfg.Publish.Token,
		client:   &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	ID string `json:"id"`
}

// Upload sends the segment to the publish endpoint. Client errors from the
// platform are permanent; rate limiting, timeouts, and server errors are
// transient so the next invocation retries them.
func (c *HTTPClient) Upload(ctx context.Context, req UploadRequest) (string, error) {
	file, err := os.Open(req.FilePath)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", "upload", "open segment artifact", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"title":       req.Title,
		"description": req.Description,
		"category":    req.Category,
		"privacy":     req.Privacy,
		"tags":        strings.Join(req.Tags, ","),
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("encode field %s: %w", name, err)
		}
	}

	part, err := writer.CreateFormFile("video", filepath.Base(req.FilePath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", "upload", "read segment artifact", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", "upload", "send upload request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyStatus(resp)
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", "upload", "decode upload response", err)
	}
	if decoded.ID == "" {
		return "", services.Wrap(services.ErrTransient, "publish", "upload", "upload response has no id", nil)
	}
	return decoded.ID, nil
}

// classifyStatus maps an upload failure status to a failure kind. The response
// body is truncated into the error for diagnosis.
func classifyStatus(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := fmt.Sprintf("status %d", resp.StatusCode)
	if len(snippet) > 0 {
		detail = fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return services.Wrap(services.ErrQuotaDenied, "publish", "upload", detail, nil)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500:
		return services.Wrap(services.ErrTransient, "publish", "upload", detail, nil)
	case resp.StatusCode >= 400:
		return services.Wrap(services.ErrPermanent, "publish", "upload", detail, nil)
	default:
		return services.Wrap(services.ErrTransient, "publish", "upload", detail, nil)
	}
}

package publishing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"clipflow/internal/publishing"
	"clipflow/internal/services"
	"clipflow/internal/testsupport"
)

func newUploadServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart form: %v", err)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func uploadRequest(t *testing.T, dir string) publishing.UploadRequest {
	t.Helper()
	artifact := filepath.Join(dir, "part1.mp4")
	testsupport.WriteFile(t, artifact, 128)
	return publishing.UploadRequest{
		FilePath: artifact,
		Title:    "My Video - Part 1 #shorts",
		Privacy:  "public",
		Category: "24",
	}
}

func TestHTTPClientUploadSuccess(t *testing.T) {
	server := newUploadServer(t, http.StatusCreated, `{"id":"remote-123"}`)

	cfg := testsupport.NewConfig(t)
	cfg.Publish.Endpoint = server.URL

	client := publishing.NewHTTPClient(cfg)
	ref, err := client.Upload(context.Background(), uploadRequest(t, t.TempDir()))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if ref != "remote-123" {
		t.Fatalf("expected remote-123, got %q", ref)
	}
}

func TestHTTPClientClientErrorIsPermanent(t *testing.T) {
	server := newUploadServer(t, http.StatusUnprocessableEntity, `{"error":"rejected"}`)

	cfg := testsupport.NewConfig(t)
	cfg.Publish.Endpoint = server.URL

	client := publishing.NewHTTPClient(cfg)
	_, err := client.Upload(context.Background(), uploadRequest(t, t.TempDir()))
	if err == nil {
		t.Fatal("expected upload rejection")
	}
	if services.Classify(err) != services.KindPermanent {
		t.Fatalf("expected permanent classification, got %v", err)
	}
}

func TestHTTPClientServerErrorIsTransient(t *testing.T) {
	server := newUploadServer(t, http.StatusBadGateway, "upstream sad")

	cfg := testsupport.NewConfig(t)
	cfg.Publish.Endpoint = server.URL

	client := publishing.NewHTTPClient(cfg)
	_, err := client.Upload(context.Background(), uploadRequest(t, t.TempDir()))
	if err == nil {
		t.Fatal("expected upload failure")
	}
	if services.Classify(err) != services.KindTransient {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestHTTPClientThrottlingIsQuotaDenied(t *testing.T) {
	server := newUploadServer(t, http.StatusTooManyRequests, "slow down")

	cfg := testsupport.NewConfig(t)
	cfg.Publish.Endpoint = server.URL

	client := publishing.NewHTTPClient(cfg)
	_, err := client.Upload(context.Background(), uploadRequest(t, t.TempDir()))
	if err == nil {
		t.Fatal("expected upload failure")
	}
	if services.Classify(err) != services.KindQuotaDenied {
		t.Fatalf("expected quota denied classification, got %v", err)
	}
}

func TestHTTPClientMissingArtifactIsTransient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Publish.Endpoint = "https://uploads.example.test/videos"

	client := publishing.NewHTTPClient(cfg)
	_, err := client.Upload(context.Background(), publishing.UploadRequest{
		FilePath: filepath.Join(t.TempDir(), "missing.mp4"),
		Title:    "Missing",
	})
	if err == nil {
		t.Fatal("expected error for missing artifact")
	}
	if services.Classify(err) != services.KindTransient {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

package services_test

import (
	"errors"
	"strings"
	"testing"

	"clipflow/internal/services"
)

func TestWrapCarriesMarkerAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrTransient, "fetch", "download", "", cause)

	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("marker lost: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
	if !strings.Contains(err.Error(), "fetch: download") {
		t.Fatalf("detail missing: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "publish", "upload", "no marker", nil)
	if services.Classify(err) != services.KindTransient {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want services.FailureKind
	}{
		{"permanent", services.Wrap(services.ErrPermanent, "fetch", "download", "", nil), services.KindPermanent},
		{"transient", services.Wrap(services.ErrTransient, "fetch", "download", "", nil), services.KindTransient},
		{"quota", services.Wrap(services.ErrQuotaDenied, "publish", "upload", "", nil), services.KindQuotaDenied},
		{"unmarked", errors.New("mystery"), services.KindTransient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Classify(tc.err); got != tc.want {
				t.Fatalf("Classify = %v, want %v", got, tc.want)
			}
		})
	}
}

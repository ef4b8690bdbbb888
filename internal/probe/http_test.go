package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProbeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result := New(2 * time.Second).Probe(context.Background(), server.URL)

	if result.StatusCode == nil || *result.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %+v", result.StatusCode)
	}
	if result.ErrorText != nil {
		t.Errorf("unexpected error text: %s", *result.ErrorText)
	}
	if result.LatencyMS == nil || *result.LatencyMS < 0 {
		t.Errorf("expected non-negative latency, got %+v", result.LatencyMS)
	}
}

func TestProbeCapturesErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	result := New(2 * time.Second).Probe(context.Background(), server.URL)

	// A 5xx is a completed probe, not a transport failure.
	if result.StatusCode == nil || *result.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %+v", result.StatusCode)
	}
	if result.ErrorText != nil {
		t.Errorf("unexpected error text: %s", *result.ErrorText)
	}
}

func TestProbeConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	result := New(time.Second).Probe(context.Background(), target)

	if result.StatusCode != nil {
		t.Errorf("expected no status, got %d", *result.StatusCode)
	}
	if result.ErrorText == nil {
		t.Fatal("expected error text for refused connection")
	}
	if result.LatencyMS == nil {
		t.Error("expected latency even for failed probes")
	}
}

func TestProbeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	start := time.Now()
	result := New(50 * time.Millisecond).Probe(context.Background(), server.URL)

	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("probe did not respect its deadline, took %v", elapsed)
	}
	if result.ErrorText == nil {
		t.Fatal("expected error text for timed out probe")
	}
}

func TestProbeInvalidURL(t *testing.T) {
	result := New(time.Second).Probe(context.Background(), "://not-a-url")

	if result.ErrorText == nil {
		t.Fatal("expected error text for invalid URL")
	}
	if result.StatusCode != nil {
		t.Errorf("expected no status, got %d", *result.StatusCode)
	}
}

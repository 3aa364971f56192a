package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if crawlerPagesTotal == nil || crawlerBytesTotal == nil || crawlerFetchAttemptsTotal == nil ||
		crawlerCodeBlocksTotal == nil || crawlerAdmissionsTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObservePage("https://init.test/page", "saved", 128)
	if val := testutil.ToFloat64(crawlerPagesTotal.WithLabelValues("init.test", "saved")); val != 1 {
		t.Errorf("Expected crawlerPagesTotal to be 1, got %f", val)
	}
	if val := testutil.ToFloat64(crawlerBytesTotal.WithLabelValues("init.test")); val != 128 {
		t.Errorf("Expected crawlerBytesTotal to be 128, got %f", val)
	}
}

func TestObserveHelpers(t *testing.T) {
	ObserveFetchAttempt("direct", "observe-helpers")
	ObserveFetchAttempt("direct", "observe-helpers")
	if val := testutil.ToFloat64(crawlerFetchAttemptsTotal.WithLabelValues("direct", "observe-helpers")); val != 2 {
		t.Errorf("Expected 2 fetch attempts, got %f", val)
	}

	ObserveCodeBlock("observe-lang")
	if val := testutil.ToFloat64(crawlerCodeBlocksTotal.WithLabelValues("observe-lang")); val != 1 {
		t.Errorf("Expected 1 code block, got %f", val)
	}

	ObserveAdmission("observe-result")
	if val := testutil.ToFloat64(crawlerAdmissionsTotal.WithLabelValues("observe-result")); val != 1 {
		t.Errorf("Expected 1 admission, got %f", val)
	}

	before := testutil.ToFloat64(crawlerActiveWorkers)
	IncActiveWorkers()
	if val := testutil.ToFloat64(crawlerActiveWorkers); val != before+1 {
		t.Errorf("Expected active workers %f, got %f", before+1, val)
	}
	DecActiveWorkers()

	ObserveRateLimitDelay("observe.test", 2*time.Second)
	if val := testutil.CollectAndCount(crawlerRateLimitDelaysSeconds); val <= 0 {
		t.Errorf("Expected rate limit delay to be observed, got %d", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}

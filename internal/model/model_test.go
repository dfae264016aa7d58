package model

import (
	"encoding/json"
	"testing"
	"time"
)

// TestComputeHash tests the content hash.
func TestComputeHash(t *testing.T) {
	t.Parallel()

	t.Run("known digest", func(t *testing.T) {
		t.Parallel()

		var p PageResult
		p.ComputeHash("abc")
		const want = "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"
		if p.Hash != want {
			t.Errorf("expected %s, got %s", want, p.Hash)
		}
	})

	t.Run("empty body has no hash", func(t *testing.T) {
		t.Parallel()

		p := PageResult{Hash: "stale"}
		p.ComputeHash("")
		if p.Hash != "" {
			t.Errorf("expected empty hash, got %q", p.Hash)
		}
	})
}

// TestStatusClass tests status grouping.
func TestStatusClass(t *testing.T) {
	t.Parallel()

	cases := map[int]string{0: "none", 200: "2xx", 301: "3xx", 404: "4xx", 503: "5xx", 700: "none"}
	for code, want := range cases {
		if got := StatusClass(code); got != want {
			t.Errorf("StatusClass(%d) = %q, want %q", code, got, want)
		}
	}
}

// TestCrawlReport tests the report aggregates.
func TestCrawlReport(t *testing.T) {
	t.Parallel()

	r := NewCrawlReport("http://x.test/")
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.StartedAt = start
	r.FinishedAt = start.Add(3 * time.Second)

	r.AddPage(PageResult{URL: "http://x.test/", StatusCode: 200})
	r.AddPage(PageResult{URL: "http://x.test/a", Depth: 1, StatusCode: 404, Error: "client error status: 404"})
	r.AddPage(PageResult{URL: "http://x.test/b", Depth: 2, Error: "transport error"})
	r.AddBlocked("http://x.test/private", 1)

	if r.Fetched() != 3 {
		t.Errorf("expected 3 fetched, got %d", r.Fetched())
	}
	if r.Failed() != 2 {
		t.Errorf("expected 2 failed, got %d", r.Failed())
	}
	if r.Duration() != 3*time.Second {
		t.Errorf("expected 3s, got %v", r.Duration())
	}
	if r.MaxDepthReached() != 2 {
		t.Errorf("expected depth 2, got %d", r.MaxDepthReached())
	}

	counts := r.StatusCounts()
	if counts["2xx"] != 1 || counts["4xx"] != 1 || counts["none"] != 1 {
		t.Errorf("unexpected status counts %v", counts)
	}
	if len(r.Blocked) != 1 || r.Blocked[0].URL != "http://x.test/private" {
		t.Errorf("unexpected blocked list %v", r.Blocked)
	}
}

// TestCrawlReportJSON verifies empty lists serialize as arrays.
func TestCrawlReportJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewCrawlReport("http://x.test/"))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"pages", "blocked", "seen"} {
		if _, ok := decoded[key].([]any); !ok {
			t.Errorf("expected %q to be an array, got %T", key, decoded[key])
		}
	}
	if r := (&CrawlReport{}); r.Duration() != 0 {
		t.Error("expected zero duration for unfinished report")
	}
}

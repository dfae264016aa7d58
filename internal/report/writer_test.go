package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/linkcrawler/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.CrawlReport {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r := model.NewCrawlReport("http://example.com/")
	r.UserAgent = "wswp"
	r.LinkPattern = "/(index|view)"
	r.MaxDepth = 2
	r.MaxURLs = 10
	r.StartedAt = start
	r.FinishedAt = start.Add(1500 * time.Millisecond)
	r.StopReason = model.StopFrontierExhausted
	r.RobotsStatus = "parsed"
	r.AddPage(model.PageResult{
		URL: "http://example.com/", Depth: 0, StatusCode: 200, Attempts: 1,
		Size: 120, LinksFound: 4, LinksAccepted: 2, LinksNew: 2,
	})
	r.AddPage(model.PageResult{
		URL: "http://example.com/view/1", Depth: 1, StatusCode: 503, Attempts: 2,
		Error: "server error: 503",
	})
	r.AddBlocked("http://example.com/private", 1)
	r.Seen = []model.SeenURL{
		{URL: "http://example.com/", Depth: 0},
		{URL: "http://example.com/view/1", Depth: 1},
		{URL: "http://example.com/private", Depth: 1},
	}
	return r
}

func createTestRuns() []model.RunSummary {
	return []model.RunSummary{
		{
			ID: 7, Seed: "http://example.com/", StopReason: model.StopMaxURLs,
			StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Fetched:   10, Failed: 1, Blocked: 2, Seen: 40,
		},
	}
}

// TestSimpleWriter tests the plain-text report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"CRAWL REPORT",
			"http://example.com/",
			"frontier_exhausted",
			"depth 2, 10 URLs",
			"Link pattern:  /(index|view)",
			"FETCHED:  2",
			"FAILED:   1",
			"BLOCKED:  1",
			"SEEN:     3",
			"2xx   1",
			"5xx   1",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("writes pages and blocked urls", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[503] d=1 http://example.com/view/1") {
			t.Error("expected failed page line")
		}
		if !strings.Contains(output, "error: server error: 503") {
			t.Error("expected error detail")
		}
		if !strings.Contains(output, "[x] d=1 http://example.com/private") {
			t.Error("expected blocked url")
		}
		if strings.Contains(output, "SEEN URLS") {
			t.Error("expected seen set only in verbose mode")
		}
	})

	t.Run("verbose mode includes seen set and link counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "SEEN URLS") {
			t.Error("expected seen section")
		}
		if !strings.Contains(output, "links=4/2/2") {
			t.Error("expected link counts")
		}
	})

	t.Run("unlimited max urls", func(t *testing.T) {
		t.Parallel()

		r := createTestReport()
		r.MaxURLs = 0
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "no URL limit") {
			t.Error("expected unlimited text")
		}
	})

	t.Run("returns bytes written", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(model.NewCrawlReport("http://x.test/"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes, got %d", buf.Len(), n)
		}
	})
}

// TestSimpleWriterRuns tests history output.
func TestSimpleWriterRuns(t *testing.T) {
	t.Parallel()

	t.Run("lists runs", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteRuns(createTestRuns()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "max_urls_reached") || !strings.Contains(output, "http://example.com/") {
			t.Errorf("unexpected output:\n%s", output)
		}
	})

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteRuns(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No archived crawls") {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid compact JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.CrawlReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Seed != "http://example.com/" {
			t.Errorf("expected seed, got %q", decoded.Seed)
		}
		if len(decoded.Pages) != 2 || len(decoded.Blocked) != 1 || len(decoded.Seen) != 3 {
			t.Errorf("unexpected lengths: %d pages, %d blocked, %d seen",
				len(decoded.Pages), len(decoded.Blocked), len(decoded.Seen))
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact single-line output")
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"seed\"") {
			t.Errorf("expected indented output, got:\n%s", buf.String())
		}
	})

	t.Run("custom indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n>\t\"seed\"") {
			t.Errorf("expected custom indent, got:\n%s", buf.String())
		}
	})

	t.Run("empty report has empty arrays", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(model.NewCrawlReport("http://x.test/")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"pages":[]`) {
			t.Errorf("expected empty pages array, got %s", buf.String())
		}
	})

	t.Run("runs as array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteRuns(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("expected [], got %q", buf.String())
		}
	})
}

// TestFullJSONWriter tests the metadata wrapper.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "1.2.3").Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded JSONReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", decoded.Version)
	}
	s := decoded.Summary
	if s.Fetched != 2 || s.Failed != 1 || s.Blocked != 1 || s.Seen != 3 || s.MaxDepthReached != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.DurationSeconds != 1.5 {
		t.Errorf("expected 1.5s, got %v", s.DurationSeconds)
	}
	if s.StatusCounts["5xx"] != 1 {
		t.Errorf("expected one 5xx, got %v", s.StatusCounts)
	}
	if decoded.Report == nil || decoded.Report.Seed != "http://example.com/" {
		t.Error("expected wrapped report")
	}
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Crawl Report",
			"## Summary",
			"## Pages",
			"## Blocked by robots.txt",
			"`http://example.com/`",
			"```mermaid",
			"server error: 503",
			"1 of 2 fetches failed.",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("empty report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(model.NewCrawlReport("http://x.test/")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "No pages were fetched.") {
			t.Error("expected empty pages text")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no chart without pages")
		}
	})

	t.Run("cancelled crawl warns", func(t *testing.T) {
		t.Parallel()

		r := createTestReport()
		r.StopReason = model.StopCancelled
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Results are partial") {
			t.Error("expected cancellation warning")
		}
	})

	t.Run("history table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteRuns(createTestRuns()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "# Crawl History") || !strings.Contains(buf.String(), "max_urls_reached") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write(*model.CrawlReport) (int, error)    { return 0, errors.New("write failed") }
func (failingWriter) WriteRuns([]model.RunSummary) (int, error) { return 0, errors.New("write failed") }

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
		n, err := mw.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
		if n != a.Len()+b.Len() {
			t.Errorf("expected %d total bytes, got %d", a.Len()+b.Len(), n)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewSimpleWriter(&buf))
		if _, err := mw.WriteRuns(createTestRuns()); err == nil {
			t.Error("expected error")
		}
		if buf.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

// TestTruncateString tests truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/linkcrawler/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleReport(seed string, start time.Time, hash string) *model.CrawlReport {
	r := model.NewCrawlReport(seed)
	r.UserAgent = "wswp"
	r.StartedAt = start
	r.FinishedAt = start.Add(2 * time.Second)
	r.StopReason = model.StopFrontierExhausted
	r.RobotsStatus = "parsed"
	r.AddPage(model.PageResult{
		URL: seed, Depth: 0, StatusCode: 200, Attempts: 1, Hash: hash,
		FetchedAt: start.Add(time.Second),
	})
	r.AddPage(model.PageResult{
		URL: seed + "missing", Depth: 1, StatusCode: 404, Attempts: 1,
		Error: "client error: 404",
	})
	r.AddBlocked(seed+"private", 1)
	r.Seen = []model.SeenURL{{URL: seed, Depth: 0}, {URL: seed + "missing", Depth: 1}, {URL: seed + "private", Depth: 1}}
	return r
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "absent"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

// TestDefaultOptions tests the default options.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true")
	}
}

// TestSaveAndGetRun tests archiving and loading full reports.
func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	id, err := db.SaveCrawlReport(ctx, sampleReport("http://example.com/", start, "aa"))
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive run id, got %d", id)
	}

	t.Run("get returns the stored report", func(t *testing.T) {
		t.Parallel()

		got, err := db.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Seed != "http://example.com/" {
			t.Errorf("expected seed, got %q", got.Seed)
		}
		if len(got.Pages) != 2 || len(got.Blocked) != 1 || len(got.Seen) != 3 {
			t.Errorf("unexpected report contents: %d pages, %d blocked, %d seen",
				len(got.Pages), len(got.Blocked), len(got.Seen))
		}
		if !got.StartedAt.Equal(start) {
			t.Errorf("expected start %v, got %v", start, got.StartedAt)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		_, err := db.GetRun(ctx, id+100)
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})
}

// TestListRuns tests run listing and filters.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, seed := range []string{"http://a.test/", "http://b.test/", "http://a.test/"} {
		if _, err := db.SaveCrawlReport(ctx, sampleReport(seed, start.Add(time.Duration(i)*time.Hour), "h")); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
	}

	t.Run("all runs newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "", 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].ID < runs[1].ID {
			t.Error("expected newest run first")
		}
		r := runs[0]
		if r.Fetched != 2 || r.Failed != 1 || r.Blocked != 1 || r.Seen != 3 {
			t.Errorf("unexpected totals %+v", r)
		}
		if r.StopReason != model.StopFrontierExhausted {
			t.Errorf("unexpected stop reason %q", r.StopReason)
		}
		if !r.StartedAt.Equal(start.Add(2 * time.Hour)) {
			t.Errorf("unexpected start %v", r.StartedAt)
		}
	})

	t.Run("filter by seed", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "http://a.test/", 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("expected 2 runs for a.test, got %d", len(runs))
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "", 1)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 {
			t.Errorf("expected 1 run, got %d", len(runs))
		}
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "http://none.test/", 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if runs == nil || len(runs) != 0 {
			t.Errorf("expected empty slice, got %v", runs)
		}
	})
}

// TestPageHistory tests tracing one URL across runs.
func TestPageHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := db.SaveCrawlReport(ctx, sampleReport("http://a.test/", start, "old"))
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}
	second, err := db.SaveCrawlReport(ctx, sampleReport("http://a.test/", start.Add(time.Hour), "new"))
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	records, err := db.PageHistory(ctx, "http://a.test/")
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RunID != second || records[0].Hash != "new" {
		t.Errorf("expected newest record first, got %+v", records[0])
	}
	if records[1].RunID != first || records[1].Hash != "old" {
		t.Errorf("unexpected older record %+v", records[1])
	}
	if !records[1].FetchedAt.Equal(start.Add(time.Second)) {
		t.Errorf("unexpected fetch time %v", records[1].FetchedAt)
	}

	missing, err := db.PageHistory(ctx, "http://a.test/missing")
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(missing) != 2 || missing[0].Error != "client error: 404" || !missing[0].FetchedAt.IsZero() {
		t.Errorf("unexpected records %+v", missing)
	}
}

// TestDeleteRun tests run deletion with its pages.
func TestDeleteRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	id, err := db.SaveCrawlReport(ctx, sampleReport("http://a.test/", time.Now(), "h"))
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	if err := db.DeleteRun(ctx, id); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}
	if _, err := db.GetRun(ctx, id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound after delete, got %v", err)
	}
	pages, err := db.PageHistory(ctx, "http://a.test/")
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("expected pages to be deleted, got %d", len(pages))
	}
	if err := db.DeleteRun(ctx, id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound on second delete, got %v", err)
	}
}

// TestParseTimestamp tests timestamp parsing fallbacks.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, in := range []string{"2026-03-01T10:00:00Z", "2026-03-01 10:00:00", "2026-03-01T10:00:00"} {
		if got := parseTimestamp(in); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}
	if !parseTimestamp("").IsZero() || !parseTimestamp("yesterday").IsZero() {
		t.Error("expected zero time for empty or invalid input")
	}
	if formatTimestamp(time.Time{}) != "" {
		t.Error("expected empty string for zero time")
	}
}

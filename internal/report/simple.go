package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/linkcrawler/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs plain-text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds the seen set and per-page link counts.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writePages(&sb, report)
	w.writeBlocked(&sb, report)
	if w.verbose {
		w.writeSeen(&sb, report)
	}
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// WriteRuns implements Writer.
func (w *SimpleWriter) WriteRuns(runs []model.RunSummary) (int, error) {
	var sb strings.Builder
	if len(runs) == 0 {
		sb.WriteString("No archived crawls.\n")
		return io.WriteString(w.output, sb.String())
	}

	fmt.Fprintf(&sb, "%-6s %-23s %-20s %7s %6s %7s %5s  %s\n",
		"ID", "STARTED", "STOP REASON", "FETCHED", "FAILED", "BLOCKED", "SEEN", "SEED")
	for _, r := range runs {
		fmt.Fprintf(&sb, "%-6d %-23s %-20s %7d %6d %7d %5d  %s\n",
			r.ID, r.StartedAt.Format(timeLayout), r.StopReason,
			r.Fetched, r.Failed, r.Blocked, r.Seen, r.Seed)
	}
	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                         CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:          %s\n", report.Seed)
	if !report.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Started:       %s\n", report.StartedAt.Format(timeLayout))
	}
	fmt.Fprintf(sb, "Duration:      %s\n", report.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Stopped:       %s\n", report.StopReason)
	fmt.Fprintf(sb, "robots.txt:    %s\n", report.RobotsStatus)
	fmt.Fprintf(sb, "Limits:        depth %d, %s\n", report.MaxDepth, maxURLsText(report.MaxURLs))
	if report.LinkPattern != "" {
		fmt.Fprintf(sb, "Link pattern:  %s\n", report.LinkPattern)
	}
	sb.WriteString("\n")
}

func maxURLsText(n int) string {
	if n <= 0 {
		return "no URL limit"
	}
	return fmt.Sprintf("%d URLs", n)
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.CrawlReport) {
	section(sb, "SUMMARY")

	fmt.Fprintf(sb, "  FETCHED:  %d\n", report.Fetched())
	fmt.Fprintf(sb, "  FAILED:   %d\n", report.Failed())
	fmt.Fprintf(sb, "  BLOCKED:  %d\n", len(report.Blocked))
	fmt.Fprintf(sb, "  SEEN:     %d\n", len(report.Seen))
	fmt.Fprintf(sb, "  DEEPEST:  %d\n", report.MaxDepthReached())
	sb.WriteString("\n")

	counts := report.StatusCounts()
	for _, class := range statusClasses {
		if counts[class] > 0 {
			fmt.Fprintf(sb, "  %-5s %d\n", class, counts[class])
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.CrawlReport) {
	if len(report.Pages) == 0 {
		return
	}
	section(sb, "PAGES")

	for _, p := range report.Pages {
		status := "---"
		if p.StatusCode != 0 {
			status = fmt.Sprintf("%d", p.StatusCode)
		}
		fmt.Fprintf(sb, "  [%s] d=%d %s\n", status, p.Depth, p.URL)
		if p.Error != "" {
			fmt.Fprintf(sb, "        error: %s\n", p.Error)
		}
		if w.verbose {
			fmt.Fprintf(sb, "        attempts=%d size=%d links=%d/%d/%d\n",
				p.Attempts, p.Size, p.LinksFound, p.LinksAccepted, p.LinksNew)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeBlocked(sb *strings.Builder, report *model.CrawlReport) {
	if len(report.Blocked) == 0 {
		return
	}
	section(sb, "BLOCKED BY ROBOTS.TXT")

	for _, b := range report.Blocked {
		fmt.Fprintf(sb, "  [x] d=%d %s\n", b.Depth, b.URL)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSeen(sb *strings.Builder, report *model.CrawlReport) {
	section(sb, "SEEN URLS")

	for _, s := range report.Seen {
		fmt.Fprintf(sb, "  d=%d %s\n", s.Depth, s.URL)
	}
	sb.WriteString("\n")
}

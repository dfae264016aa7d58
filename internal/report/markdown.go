package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/linkcrawler/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports as GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writePages(md, report)
	w.writeBlocked(md, report)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by linkcrawler*")

	return len(md.String()), md.Build()
}

// WriteRuns implements Writer.
func (w *MarkdownWriter) WriteRuns(runs []model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Crawl History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No archived crawls.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Format(timeLayout),
			"`" + r.Seed + "`",
			string(r.StopReason),
			strconv.Itoa(r.Fetched),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Blocked),
			strconv.Itoa(r.Seen),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Seed", "Stop Reason", "Fetched", "Failed", "Blocked", "Seen"},
		Rows:   rows,
	})
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Crawl Report")
	md.PlainText("")

	rows := [][]string{
		{"Seed", "`" + report.Seed + "`"},
		{"Started", report.StartedAt.Format(timeLayout)},
		{"Duration", report.Duration().Round(time.Millisecond).String()},
		{"Stop Reason", string(report.StopReason)},
		{"robots.txt", report.RobotsStatus},
		{"Max Depth", strconv.Itoa(report.MaxDepth)},
		{"Max URLs", maxURLsText(report.MaxURLs)},
	}
	if report.LinkPattern != "" {
		rows = append(rows, []string{"Link Pattern", "`" + report.LinkPattern + "`"})
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Fetched", strconv.Itoa(report.Fetched())},
			{"Failed", strconv.Itoa(report.Failed())},
			{"Blocked by robots.txt", strconv.Itoa(len(report.Blocked))},
			{"Seen", strconv.Itoa(len(report.Seen))},
			{"Deepest page", strconv.Itoa(report.MaxDepthReached())},
		},
	})
	md.PlainText("")

	if report.Fetched() > 0 {
		w.writeStatusChart(md, report)
	}

	switch {
	case report.StopReason == model.StopCancelled:
		md.Warningf("The crawl was cancelled before it finished. Results are partial.")
	case report.Fetched() > 0 && report.Failed() == report.Fetched():
		md.Cautionf("Every fetch failed (%d of %d).", report.Failed(), report.Fetched())
	case report.Failed() > 0:
		md.Importantf("%d of %d fetches failed.", report.Failed(), report.Fetched())
	default:
		md.Tip("All fetches succeeded.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeStatusChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Responses by Status Class"),
		piechart.WithShowData(true),
	)

	counts := report.StatusCounts()
	for _, class := range statusClasses {
		if counts[class] > 0 {
			chart.LabelAndIntValue(class, uint64(counts[class])) //nolint:gosec // counts are non-negative
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages were fetched.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Pages))
	for i, p := range report.Pages {
		status := "-"
		if p.StatusCode != 0 {
			status = strconv.Itoa(p.StatusCode)
		}
		errText := p.Error
		if errText == "" {
			errText = "-"
		}
		rows[i] = []string{
			truncateString(p.URL, 80),
			strconv.Itoa(p.Depth),
			status,
			strconv.Itoa(p.Attempts),
			strconv.Itoa(p.LinksNew),
			truncateString(errText, 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Status", "Attempts", "New Links", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeBlocked(md *markdown.Markdown, report *model.CrawlReport) {
	if len(report.Blocked) == 0 {
		return
	}
	md.H2("Blocked by robots.txt")
	md.PlainText("")

	items := make([]string, len(report.Blocked))
	for i, b := range report.Blocked {
		items[i] = "`" + b.URL + "` (depth " + strconv.Itoa(b.Depth) + ")"
	}
	md.BulletList(items...)
	md.PlainText("")
}

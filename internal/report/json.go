package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/linkcrawler/internal/model"
)

// JSONWriter outputs reports as JSON.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given line prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
// Output is compact unless an indent option is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *JSONWriter) Write(report *model.CrawlReport) (int, error) {
	return w.writeJSON(report)
}

// WriteRuns implements Writer. An empty list is written as [].
func (w *JSONWriter) WriteRuns(runs []model.RunSummary) (int, error) {
	if runs == nil {
		runs = []model.RunSummary{}
	}
	return w.writeJSON(runs)
}

// Encode writes any JSON-serializable value with the writer's formatting.
func (w *JSONWriter) Encode(v any) error {
	_, err := w.writeJSON(v)
	return err
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a crawl report with tool metadata and a summary.
type JSONReport struct {
	Version string             `json:"version"`
	Summary JSONSummary        `json:"summary"`
	Report  *model.CrawlReport `json:"report"`
}

// JSONSummary holds the totals of a report.
type JSONSummary struct {
	Fetched         int            `json:"fetched"`
	Failed          int            `json:"failed"`
	Blocked         int            `json:"blocked"`
	Seen            int            `json:"seen"`
	MaxDepthReached int            `json:"max_depth_reached"`
	DurationSeconds float64        `json:"duration_seconds"`
	StatusCounts    map[string]int `json:"status_counts"`
}

// NewJSONReport wraps report with version information.
func NewJSONReport(report *model.CrawlReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Summary: JSONSummary{
			Fetched:         report.Fetched(),
			Failed:          report.Failed(),
			Blocked:         len(report.Blocked),
			Seen:            len(report.Seen),
			MaxDepthReached: report.MaxDepthReached(),
			DurationSeconds: report.Duration().Seconds(),
			StatusCounts:    report.StatusCounts(),
		},
		Report: report,
	}
}

// FullJSONWriter writes reports wrapped in JSONReport.
type FullJSONWriter struct {
	*JSONWriter
	version string
}

// NewFullJSONWriter creates a writer for reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write implements Writer.
func (w *FullJSONWriter) Write(report *model.CrawlReport) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version))
}

package report

import (
	"io"

	"github.com/nao1215/linkcrawler/internal/model"
)

// Writer outputs crawl results.
type Writer interface {
	// Write outputs one crawl report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.CrawlReport) (int, error)

	// WriteRuns outputs a list of archived runs.
	WriteRuns(runs []model.RunSummary) (int, error)
}

// MultiWriter writes to several Writers in turn and stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.Write(report) })
}

// WriteRuns implements Writer.
func (m *MultiWriter) WriteRuns(runs []model.RunSummary) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteRuns(runs) })
}

func (m *MultiWriter) each(fn func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := fn(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const timeLayout = "2006-01-02 15:04:05 MST"

// statusClasses is the display order of status classes.
var statusClasses = []string{"2xx", "3xx", "4xx", "5xx", "none"}

// truncateString shortens s to maxLen bytes, ending with "..." when cut.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

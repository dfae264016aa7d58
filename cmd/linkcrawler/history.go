package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/nao1215/linkcrawler/internal/config"
	"github.com/nao1215/linkcrawler/internal/database"
	"github.com/nao1215/linkcrawler/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of archived runs listed by default.
const defaultHistoryLimit = 20

// errNoArchive is returned when no crawl has been archived yet.
var errNoArchive = errors.New("no crawl archive found; run 'linkcrawler crawl' first")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [seed-url]",
		Short: "Show archived crawl runs",
		Long: `History lists crawl runs stored in the local database.

Without arguments the most recent runs of every seed are listed. Pass a
seed URL to list only its runs, --id to print a full archived report, or
--url to see how one page responded across runs.

Examples:
  # List recent runs
  linkcrawler history

  # Runs of one seed, as JSON
  linkcrawler history -j https://example.com/

  # Print archived run 12 as Markdown
  linkcrawler history --id 12 -m

  # Status codes of one page over time
  linkcrawler history --url https://example.com/about

  # Delete archived run 12
  linkcrawler history --delete 12`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64("id", 0, "Print the archived report of this run")
	cmd.Flags().String("url", "", "Show the fetch history of this page URL")
	cmd.Flags().IntP("limit", "l", defaultHistoryLimit, "Maximum number of runs to list (0 means no limit)")
	cmd.Flags().Int64("delete", 0, "Delete the archived run with this ID")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output in Markdown format")
	cmd.Flags().String("db-dir", "", "Database directory (default: XDG data directory)")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	seed     string
	id       int64
	url      string
	limit    int
	deleteID int64
	json     bool
	markdown bool
	dbDir    string
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd, args)
	if err != nil {
		return err
	}

	db, err := openArchive(opts.dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case opts.deleteID != 0:
		if err := db.DeleteRun(ctx, opts.deleteID); err != nil {
			return fmt.Errorf("failed to delete run %d: %w", opts.deleteID, err)
		}
		fmt.Fprintf(out, "Deleted run %d\n", opts.deleteID)
		return nil
	case opts.id != 0:
		rep, err := db.GetRun(ctx, opts.id)
		if err != nil {
			return fmt.Errorf("failed to load run %d: %w", opts.id, err)
		}
		_, err = historyWriter(opts, out).Write(rep)
		return err
	case opts.url != "":
		return showPageHistory(ctx, db, opts, out)
	default:
		runs, err := db.ListRuns(ctx, opts.seed, opts.limit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		_, err = historyWriter(opts, out).WriteRuns(runs)
		return err
	}
}

// parseHistoryFlags reads the history flags.
func parseHistoryFlags(cmd *cobra.Command, args []string) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()

	if opts.id, err = flags.GetInt64("id"); err != nil {
		return opts, err
	}
	if opts.url, err = flags.GetString("url"); err != nil {
		return opts, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.deleteID, err = flags.GetInt64("delete"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}
	if len(args) > 0 {
		opts.seed = args[0]
	}

	if opts.json && opts.markdown {
		return opts, config.ErrConflictingReportFormats
	}
	if opts.limit < 0 {
		return opts, fmt.Errorf("invalid limit %d: must be non-negative", opts.limit)
	}
	return opts, nil
}

// openArchive opens an existing database without creating one.
func openArchive(dbDir string) (*database.CrawlDB, error) {
	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errNoArchive
		}
		return nil, fmt.Errorf("failed to access database: %w", err)
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// historyWriter selects the output format of archived data.
func historyWriter(opts historyOptions, out io.Writer) report.Writer {
	switch {
	case opts.json:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case opts.markdown:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out)
	}
}

// showPageHistory prints every archived fetch of one page.
func showPageHistory(ctx context.Context, db *database.CrawlDB, opts historyOptions, out io.Writer) error {
	records, err := db.PageHistory(ctx, opts.url)
	if err != nil {
		return fmt.Errorf("failed to load page history: %w", err)
	}

	if opts.json {
		return report.NewJSONWriter(out, report.WithPrettyPrint()).Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No archived fetches of %s.\n", opts.url)
		return nil
	}

	fmt.Fprintf(out, "Fetch history of %s\n\n", opts.url)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tFETCHED AT\tDEPTH\tSTATUS\tHASH\tERROR")
	for _, r := range records {
		hash := r.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\n",
			r.RunID, r.FetchedAt.Format(time.DateTime), r.Depth, r.StatusCode, hash, r.Error)
	}
	return tw.Flush()
}

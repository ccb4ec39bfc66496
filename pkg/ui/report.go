package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"profilesync/pkg/checkpoint"
	"profilesync/pkg/models"
	"profilesync/pkg/syncer"
)

const stampLayout = "2006-01-02 15:04"

// SummaryLine is the one-line form of a run summary
func SummaryLine(s syncer.Summary) string {
	return fmt.Sprintf("%d inserted, %d updated, %d unchanged, %d failed, %d skipped",
		s.Inserted, s.Updated, s.Unchanged, s.Failed, s.Skipped)
}

// PrintSummary writes the end-of-run report
func PrintSummary(w io.Writer, s syncer.Summary) {
	title := Green("Sync complete")
	if s.Interrupted {
		title = Yellow("Sync interrupted")
	}
	fmt.Fprintln(w, title)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	printTotals(tw, s.Totals)
	fmt.Fprintf(tw, "  Batches\t%d\n", s.Batches)
	tw.Flush()

	if len(s.Uncommitted) > 0 {
		fmt.Fprintf(w, "%s %s\n", Red("Uncommitted queue items:"), strings.Join(s.Uncommitted, ", "))
	}
}

// PrintRun writes a journal entry
func PrintRun(w io.Writer, r *checkpoint.Run) {
	state := Green("finished")
	switch {
	case !r.Finished():
		state = Yellow("in progress or crashed")
	case r.Interrupted:
		state = Yellow("interrupted")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  Target\t%s\n", r.Target)
	fmt.Fprintf(tw, "  State\t%s\n", state)
	fmt.Fprintf(tw, "  Started\t%s\n", r.StartedAt.Local().Format(stampLayout))
	if r.FinishedAt != nil {
		fmt.Fprintf(tw, "  Finished\t%s (%s)\n", r.FinishedAt.Local().Format(stampLayout),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	} else {
		fmt.Fprintf(tw, "  Last batch\t%s\n", r.UpdatedAt.Local().Format(stampLayout))
	}
	fmt.Fprintf(tw, "  Batches\t%d\n", r.Batches)
	printTotals(tw, r.Totals)
	tw.Flush()

	if len(r.Uncommitted) > 0 {
		fmt.Fprintf(w, "%s %s\n", Red("Uncommitted queue items:"), strings.Join(r.Uncommitted, ", "))
	}
}

func printTotals(tw *tabwriter.Writer, t checkpoint.Totals) {
	fmt.Fprintf(tw, "  Inserted\t%d\n", t.Inserted)
	fmt.Fprintf(tw, "  Updated\t%d\n", t.Updated)
	fmt.Fprintf(tw, "  Unchanged\t%d\n", t.Unchanged)
	fmt.Fprintf(tw, "  Completed\t%d\n", t.Completed)
	fmt.Fprintf(tw, "  Failed\t%d\n", t.Failed)
	fmt.Fprintf(tw, "  Skipped\t%d\n", t.Skipped)
	fmt.Fprintf(tw, "  Batch errors\t%d\n", t.BatchErrors)
	fmt.Fprintf(tw, "  Commit errors\t%d\n", t.CommitErrors)
	fmt.Fprintf(tw, "  API calls\t%d\n", t.APICalls)
}

// PrintQueue writes queue items as a table followed by per-status counts
func PrintQueue(w io.Writer, items []models.QueueItem) {
	counts := make(map[models.Status]int)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tUSERNAME\tSTATUS\tLAST_SCRAPED\tNOTES")
	for _, item := range items {
		counts[item.Status]++
		stamp := ""
		if item.CompletedAt != nil {
			stamp = item.CompletedAt.Format(models.CommittedLayout)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", item.RowIndex, item.Identifier, item.Status, stamp, item.LastNote)
	}
	tw.Flush()

	fmt.Fprintf(w, "%d pending, %d completed, %d failed\n",
		counts[models.StatusPending], counts[models.StatusCompleted], counts[models.StatusFailed])
}

package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// HealthSummary prints the aggregate source health view.
func (a *App) HealthSummary(ctx context.Context) error {
	store, closeMirrors := a.healthStore(ctx)
	defer closeMirrors()

	summary, err := store.Summarize()
	if err != nil {
		return err
	}
	if summary.TotalSources == 0 {
		fmt.Fprintln(os.Stdout, "no source health snapshots recorded")
		return nil
	}

	fmt.Fprintf(os.Stdout, "updated: %s  total: %d  healthy: %d  degraded: %d\n\n",
		summary.UpdatedAt.Format(time.RFC3339), summary.TotalSources, summary.HealthySources, summary.DegradedSources)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Source\tOK\tScore\tLatency(ms)\tStatus\tRedundancy\tChecked (UTC)")
	for _, snap := range summary.Snapshots {
		fmt.Fprintf(writer, "%s\t%t\t%.3f\t%.0f\t%d\t%s\t%s\n",
			snap.Source,
			snap.OK,
			snap.ReliabilityScore,
			snap.LatencyMs,
			snap.HTTPStatus,
			snap.RedundancyState,
			snap.CheckedAt.UTC().Format(time.RFC3339),
		)
	}
	return writer.Flush()
}

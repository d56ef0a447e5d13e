package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/profrank/internal/core/ports/driving"
)

var (
	refreshForce  bool
	refreshNoWait bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-ingest reviews when the cache is stale",
	Long: `Checks the cache age and re-ingests every instructor from the ratings
source when it is older than refresh.max_age. --force re-ingests regardless
of age. A refresh already running is joined rather than duplicated.

A failed refresh keeps the data already cached.`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache freshness and recent refreshes",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	refreshCmd.Flags().BoolVarP(&refreshForce, "force", "f", false, "refresh even when the cache is fresh")
	refreshCmd.Flags().BoolVar(&refreshNoWait, "no-wait", false, "return once the refresh has started")
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statusCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	if refreshService == nil {
		return errors.New("refresh service not configured")
	}

	if refreshForce {
		cmd.Println("Refreshing review cache...")
	} else {
		cmd.Println("Checking review cache...")
	}

	start := time.Now()
	out, err := refreshService.Refresh(cmd.Context(), driving.RefreshRequest{
		Force: refreshForce,
		Wait:  !refreshNoWait,
	})
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	if jsonOut {
		return printJSON(cmd, out)
	}

	switch out.Status {
	case driving.RefreshFresh:
		cmd.Println("Cache is fresh, nothing to do.")
	case driving.RefreshStarted:
		cmd.Println("Refresh started in the background.")
	case driving.RefreshInProgress:
		cmd.Println("A refresh is already running.")
	case driving.RefreshCompleted:
		cmd.Printf("Refresh completed in %s.\n", time.Since(start).Round(time.Millisecond))
		if run := out.Run; run != nil {
			cmd.Printf("  Pages: %d  Instructors: %d  New reviews: %d  Skipped: %d\n",
				run.Pages, run.InstructorsUpserted, run.ReviewsAdded, run.RecordsSkipped)
		}
	}

	if out.Metadata != nil {
		cmd.Printf("Cache holds %d instructors and %d reviews.\n", out.Metadata.InstructorCount, out.Metadata.ReviewCount)
	}
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if refreshService == nil {
		return errors.New("refresh service not configured")
	}

	report, err := refreshService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if jsonOut {
		return printJSON(cmd, report)
	}

	cmd.Printf("State:        %s\n", report.State)
	if m := report.Metadata; m != nil {
		cmd.Printf("Last refresh: %s\n", formatTime(m.LastRefresh))
		cmd.Printf("Instructors:  %d\n", m.InstructorCount)
		cmd.Printf("Reviews:      %d\n", m.ReviewCount)
	} else {
		cmd.Printf("Last refresh: %s\n", formatTime(time.Time{}))
	}
	cmd.Printf("Stale:        %t\n", report.Stale)
	if report.LastError != "" {
		cmd.Printf("Last error:   %s\n", report.LastError)
	}

	if len(report.RecentRuns) == 0 {
		return nil
	}

	cmd.Println()
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "STARTED\tSTATUS\tFORCED\tPAGES\tINSTRUCTORS\tREVIEWS\tSKIPPED")
	for i := range report.RecentRuns {
		r := &report.RecentRuns[i]
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%d\t%d\t%d\n",
			formatTime(r.StartedAt), r.Status, r.Forced, r.Pages, r.InstructorsUpserted, r.ReviewsAdded, r.RecordsSkipped)
	}
	return tw.Flush()
}

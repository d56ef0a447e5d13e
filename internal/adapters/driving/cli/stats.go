package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show headline numbers for the cache",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	stats, err := queryService.GetStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	if jsonOut {
		return printJSON(cmd, stats)
	}

	cmd.Printf("Instructors:        %d (%d rated)\n", stats.TotalInstructors, stats.RatedInstructors)
	cmd.Printf("Reviews:            %d\n", stats.TotalReviews)
	cmd.Printf("Average quality:    %s\n", formatMetric(stats.AvgQuality))

	if d := stats.HardestDepartment; d != nil {
		cmd.Printf("Hardest department: %s (%.2f over %d reviews)\n", d.Name, d.AvgDifficulty, d.TotalReviews)
	} else {
		cmd.Printf("Hardest department: %s\n", notAvailable)
	}
	if in := stats.HardestInstructor; in != nil {
		cmd.Printf("Hardest instructor: %s, %s (%.1f over %d reviews)\n", in.Name, in.Department, in.Difficulty, in.RatingCount)
	} else {
		cmd.Printf("Hardest instructor: %s\n", notAvailable)
	}

	cmd.Printf("Last refresh:       %s\n", formatTime(stats.LastRefresh))
	cmd.Printf("Refresh state:      %s\n", stats.RefreshState)
	return nil
}

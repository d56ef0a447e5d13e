package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driving"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule CODE...",
	Short: "Find instructors for course codes",
	Long: fmt.Sprintf(`Lists the instructors teaching each course code, best composite score first.
Codes are matched ignoring case and spaces, so "cs 101" matches CS101. At most %d codes per call.`, driving.MaxScheduleCodes),
	Args: cobra.RangeArgs(1, driving.MaxScheduleCodes),
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	matches, err := queryService.GetScheduleMatches(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("schedule failed: %w", err)
	}

	if jsonOut {
		return printJSON(cmd, matches)
	}

	codes := make([]string, 0, len(matches))
	for code := range matches {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		list := matches[code]
		cmd.Printf("%s\n", code)
		if len(list) == 0 {
			cmd.Println("  No instructors found.")
			cmd.Println()
			continue
		}

		ranked := make([]domain.RankedInstructor, len(list))
		for i := range list {
			ranked[i] = domain.RankedInstructor{Rank: i + 1, Instructor: list[i]}
		}
		if err := printInstructors(cmd.OutOrStdout(), ranked); err != nil {
			return err
		}
		cmd.Println()
	}
	return nil
}

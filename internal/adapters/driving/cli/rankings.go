package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driving"
)

var (
	rankDepartment string
	rankMinRatings int
	rankSort       string
	rankOrder      string
	rankLimit      int
)

var rankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Rank instructors",
	Long: `Lists instructors ranked by composite score, or by one metric with --sort.

Sort keys: composite, quality, difficulty, would_take_again, rating_count, name.
Difficulty and name sort ascending by default, everything else descending.
Instructors without a value for the sort key are listed last.`,
	Args: cobra.NoArgs,
	RunE: runRankings,
}

func init() {
	rankingsCmd.Flags().StringVarP(&rankDepartment, "department", "d", "", "only this department")
	rankingsCmd.Flags().IntVarP(&rankMinRatings, "min-ratings", "m", driving.DefaultMinRatings, "minimum number of reviews")
	rankingsCmd.Flags().StringVarP(&rankSort, "sort", "s", "", "sort key")
	rankingsCmd.Flags().StringVar(&rankOrder, "order", "", "asc or desc")
	rankingsCmd.Flags().IntVarP(&rankLimit, "limit", "n", 20, "maximum number of results (0 = all)")
	rootCmd.AddCommand(rankingsCmd)
}

func runRankings(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	ranked, err := queryService.GetRankings(cmd.Context(), driving.RankingRequest{
		Department: rankDepartment,
		MinRatings: rankMinRatings,
		SortBy:     domain.SortKey(rankSort),
		Order:      domain.SortOrder(rankOrder),
		Limit:      rankLimit,
	})
	if err != nil {
		return fmt.Errorf("rankings failed: %w", err)
	}

	if jsonOut {
		return printJSON(cmd, ranked)
	}
	if len(ranked) == 0 {
		cmd.Println("No instructors match.")
		return nil
	}
	return printInstructors(cmd.OutOrStdout(), ranked)
}

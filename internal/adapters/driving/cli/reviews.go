package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

var reviewsLimit int

var reviewsCmd = &cobra.Command{
	Use:   "reviews ID",
	Short: "Show an instructor's cached reviews",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviews,
}

func init() {
	reviewsCmd.Flags().IntVarP(&reviewsLimit, "limit", "n", 10, "maximum number of reviews (0 = all)")
	rootCmd.AddCommand(reviewsCmd)
}

func runReviews(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid instructor id %q", args[0])
	}

	reviews, err := queryService.GetInstructorReviews(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("instructor %d not found", id)
		}
		return fmt.Errorf("reviews failed: %w", err)
	}

	if reviewsLimit > 0 && len(reviews) > reviewsLimit {
		reviews = reviews[:reviewsLimit]
	}

	if jsonOut {
		return printJSON(cmd, reviews)
	}
	if len(reviews) == 0 {
		cmd.Println("No reviews cached.")
		return nil
	}

	for i := range reviews {
		r := &reviews[i]
		cmd.Printf("[%s] %s  quality %s  difficulty %s\n",
			formatTime(r.PostedAt), courseOrDash(r.Course), formatMetric(r.Quality), formatMetric(r.Difficulty))
		if r.Comment != "" {
			cmd.Printf("  %s\n", r.Comment)
		}
		cmd.Println()
	}
	return nil
}

func courseOrDash(course string) string {
	if course == "" {
		return "-"
	}
	return course
}

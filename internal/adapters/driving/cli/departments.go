package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

var departmentsCmd = &cobra.Command{
	Use:   "departments [name]",
	Short: "List departments or show one",
	Long: `Without arguments, lists every department with its instructor count and
averages. With a name, shows that department's common tags, popular
courses and top instructors. Names are matched case-insensitively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDepartments,
}

func init() {
	rootCmd.AddCommand(departmentsCmd)
}

func runDepartments(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	if len(args) == 1 {
		return showDepartment(cmd, args[0])
	}

	depts, err := queryService.GetDepartments(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing departments failed: %w", err)
	}

	if jsonOut {
		return printJSON(cmd, depts)
	}
	if len(depts) == 0 {
		cmd.Println("No departments cached. Run 'profrank refresh' first.")
		return nil
	}

	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "DEPARTMENT\tINSTRUCTORS\tRATED\tREVIEWS\tQUALITY\tDIFFICULTY\tAGAIN")
	for i := range depts {
		d := &depts[i]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			d.Name, d.InstructorCount, d.RatedCount, d.TotalReviews,
			formatMetric(d.AvgQuality), formatMetric(d.AvgDifficulty), formatPercent(d.AvgWouldTakeAgain))
	}
	return tw.Flush()
}

func showDepartment(cmd *cobra.Command, name string) error {
	d, err := queryService.GetDepartmentDetail(cmd.Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("department %q not found", name)
		}
		return fmt.Errorf("department failed: %w", err)
	}

	if jsonOut {
		return printJSON(cmd, d)
	}

	cmd.Printf("%s\n", d.Name)
	cmd.Printf("  Instructors:      %d (%d rated)\n", d.InstructorCount, d.RatedCount)
	cmd.Printf("  Reviews:          %d\n", d.TotalReviews)
	cmd.Printf("  Quality:          %s\n", formatMetric(d.AvgQuality))
	cmd.Printf("  Difficulty:       %s\n", formatMetric(d.AvgDifficulty))
	cmd.Printf("  Would take again: %s\n", formatPercent(d.AvgWouldTakeAgain))
	if len(d.TopTags) > 0 {
		cmd.Printf("  Tags:             %s\n", joinCounts(d.TopTags, 5))
	}
	if len(d.Courses) > 0 {
		cmd.Printf("  Courses:          %s\n", joinCounts(d.Courses, 10))
	}
	cmd.Println()

	if len(d.TopInstructors) == 0 {
		cmd.Println("No instructors with enough reviews to rank.")
		return nil
	}
	cmd.Println("Top instructors:")
	return printInstructors(cmd.OutOrStdout(), d.TopInstructors)
}

func joinCounts(counts []domain.Count, limit int) string {
	parts := make([]string, 0, limit)
	for i := 0; i < len(counts) && i < limit; i++ {
		parts = append(parts, fmt.Sprintf("%s (%d)", counts[i].Name, counts[i].Count))
	}
	return strings.Join(parts, ", ")
}

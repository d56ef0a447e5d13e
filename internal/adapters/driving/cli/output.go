package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

// notAvailable is printed for unknown metrics.
const notAvailable = "N/A"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// formatMetric renders a metric with one decimal, or N/A.
func formatMetric(m domain.Metric) string {
	if !m.Known {
		return notAvailable
	}
	return fmt.Sprintf("%.1f", m.Value)
}

// formatPercent renders a would-take-again percentage, or N/A.
func formatPercent(m domain.Metric) string {
	if !m.Known {
		return notAvailable
	}
	return fmt.Sprintf("%.0f%%", m.Value)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func printInstructors(w io.Writer, list []domain.RankedInstructor) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "RANK\tNAME\tDEPARTMENT\tQUALITY\tDIFFICULTY\tAGAIN\tRATINGS\tSCORE")
	for i := range list {
		in := &list[i].Instructor
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%.3f\n",
			list[i].Rank, in.Name(), in.Department,
			formatMetric(in.Quality), formatMetric(in.Difficulty), formatPercent(in.WouldTakeAgain),
			in.RatingCount, in.Composite)
	}
	return tw.Flush()
}

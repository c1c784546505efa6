package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/lmsplatform/lms/backend/go-services/internal/progress"
	"github.com/spf13/cobra"
)

// NewAnalyticsCmd creates the analytics command
func NewAnalyticsCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Print monthly enrollments for the past year",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), open, func(s *Stores) error {
				a, err := progress.NewAnalytics(s.Events).Monthly(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to load analytics: %w", err)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "MONTH\tENROLLMENTS")
				for _, m := range a.MonthlyEnrollments {
					fmt.Fprintf(tw, "%s\t%d\n", m.Month, m.Total)
				}
				fmt.Fprintf(tw, "total\t%d\n", a.TotalEnrollments)
				return tw.Flush()
			})
		},
	}
}

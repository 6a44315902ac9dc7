package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kosarica/feed-service/internal/pipeline"
	"github.com/kosarica/feed-service/internal/types"
)

var (
	refreshSupplier string
	refreshForce    bool
)

// refreshCmd runs one refresh pass in the foreground
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh pass over the supplier registry",
	Long: `Read the supplier registry and regenerate the XML feed of every supplier
whose spreadsheet changed. Use --supplier to refresh a single supplier and
--force to rewrite feeds even when their spreadsheets are unchanged.`,
	Example: `  feed-service refresh
  feed-service refresh --supplier 101 --force`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().StringVar(&refreshSupplier, "supplier", "", "Refresh only this supplier (Post_ID)")
	refreshCmd.Flags().BoolVar(&refreshForce, "force", false, "Rewrite feeds even when unchanged")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.Refresher.RunOnce(ctx, pipeline.RunOptions{
		Trigger:    types.TriggerCLI,
		SupplierID: refreshSupplier,
		Force:      refreshForce,
	})
	if summary != nil {
		displayRefreshSummary(summary)
	}
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	return nil
}

var outcomeOrder = []types.SupplierOutcome{
	types.OutcomeWritten,
	types.OutcomeUnchanged,
	types.OutcomeEmpty,
	types.OutcomeSkippedQuota,
	types.OutcomeFailedAccess,
	types.OutcomeFailedWrite,
}

func displayRefreshSummary(s *types.RunSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "RUN ID\t%s\n", s.ID)
	fmt.Fprintf(w, "STATUS\t%s\n", s.Status)
	if s.CompletedAt != nil {
		fmt.Fprintf(w, "DURATION\t%s\n", s.CompletedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "SUPPLIERS\t%d\n", s.SuppliersTotal)
	for _, outcome := range outcomeOrder {
		fmt.Fprintf(w, "  %s\t%d\n", outcome, s.Outcomes[outcome])
	}
	if len(s.FilesWritten) > 0 {
		fmt.Fprintf(w, "FILES\t%v\n", s.FilesWritten)
	}
	if s.Error != "" {
		fmt.Fprintf(w, "ERROR\t%s\n", s.Error)
	}
	w.Flush()
}

package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var runsLimit int

// runsCmd shows run history from the database
var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "Show refresh run history",
	Long: `List recent refresh runs, or the per-supplier results of one run.
Requires DATABASE_URL.`,
	Example: `  feed-service runs --limit 10
  feed-service runs 5f0c6a1e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Number of runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Runs == nil {
		return errors.New("run history requires DATABASE_URL")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	defer w.Flush()

	if len(args) == 1 {
		results, err := a.Runs.GetSuppliers(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "SUPPLIER\tNAME\tOUTCOME\tPRODUCTS\tREJECTED\tDURATION\tERROR")
		for _, r := range results {
			errMsg := r.Error
			if errMsg == "" {
				errMsg = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				r.SupplierID, r.SupplierName, r.Outcome, r.ProductCount, r.RejectedCount, r.Duration, errMsg)
		}
		return nil
	}

	runs, err := a.Runs.ListRecent(ctx, runsLimit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "RUN ID\tTRIGGER\tSTATUS\tSTARTED\tSUPPLIERS\tWRITTEN")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.Trigger, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"), r.SuppliersTotal, len(r.FilesWritten))
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/feed-service/internal/fingerprint"
)

// fingerprintCmd prints the change-detection fingerprint of a spreadsheet
var fingerprintCmd = &cobra.Command{
	Use:     "fingerprint <sheet-id>",
	Short:   "Print the content fingerprint of a supplier spreadsheet",
	Example: `  feed-service fingerprint 1AbCdEf...`,
	Args:    cobra.ExactArgs(1),
	RunE:    runFingerprint,
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	worksheets, err := a.Fetcher.Worksheets(ctx, args[0], logger)
	if err != nil {
		return fmt.Errorf("failed to read spreadsheet: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "FINGERPRINT\t%s\n", fingerprint.Compute(worksheets))
	fmt.Fprintln(w, "WORKSHEET\tROWS")
	for _, ws := range worksheets {
		fmt.Fprintf(w, "%s\t%d\n", ws.Title, len(ws.Values))
	}
	w.Flush()
	return nil
}

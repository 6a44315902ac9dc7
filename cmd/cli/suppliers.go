package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/feed-service/internal/types"
)

// suppliersCmd lists the suppliers in the registry
var suppliersCmd = &cobra.Command{
	Use:   "suppliers",
	Short: "List suppliers from the registry spreadsheet",
	Args:  cobra.NoArgs,
	RunE:  runSuppliers,
}

func init() {
	rootCmd.AddCommand(suppliersCmd)
}

func runSuppliers(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	suppliers, issues, err := a.Registry.Suppliers(ctx)
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSHEET\tCOLUMNS")
	fmt.Fprintln(w, "--\t----\t-----\t-------")
	for _, s := range suppliers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.SupplierID, s.SupplierName, s.SheetID, formatColumns(s.Columns))
	}
	w.Flush()

	for _, issue := range issues {
		logger.Warn().Int("row", issue.RowNumber).Str("reason", issue.Reason).Msg("Registry row skipped")
	}
	return nil
}

func formatColumns(columns types.ColumnMap) string {
	parts := make([]string, 0, len(columns))
	for _, field := range types.Fields {
		if letter, ok := columns[field]; ok {
			parts = append(parts, string(field)+"="+letter)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kosarica/feed-service/internal/feed"
	"github.com/kosarica/feed-service/internal/fingerprint"
	"github.com/kosarica/feed-service/internal/mapping"
	"github.com/kosarica/feed-service/internal/ratelimit"
	"github.com/kosarica/feed-service/internal/sheets"
	"github.com/kosarica/feed-service/internal/types"
)

var (
	convertColumns string
	convertOutput  string
)

// convertCmd turns a local workbook into a feed without touching the registry
var convertCmd = &cobra.Command{
	Use:   "convert <workbook.xlsx>",
	Short: "Convert a local .xlsx workbook to an XML feed",
	Long: `Read every worksheet of a local workbook, map rows with the given column
letters and write the resulting XML feed to --output or stdout.`,
	Example: `  feed-service convert prices.xlsx --columns ID=A,Name=B,Price=D
  feed-service convert prices.xlsx --columns ID=A,Name=B,Price=D,Currency=E -o 101.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertColumns, "columns", "", "Field to column letter mapping, e.g. ID=A,Name=B,Price=D")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Output file (default stdout)")
	convertCmd.MarkFlagRequired("columns")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	columns, err := parseColumnMap(convertColumns)
	if err != nil {
		return err
	}

	path := args[0]
	client := sheets.NewXLSXClient(filepath.Dir(path))
	fetcher := sheets.NewFetcher(client, ratelimit.NewPolicy(ratelimit.DefaultConfig()), ratelimit.NoopPacer(), 0)

	worksheets, err := fetcher.Worksheets(ctx, filepath.Base(path), logger)
	if err != nil {
		return err
	}

	rows, empty := sheets.Flatten(worksheets)
	products, rejected := mapping.BuildProducts(rows, columns)
	for _, r := range rejected {
		logger.Debug().Int("row", r.RowNumber).Strs("errors", r.Errors).Msg("Row rejected")
	}

	content, err := feed.Encode(products)
	if err != nil {
		return err
	}

	logger.Info().
		Str("fingerprint", fingerprint.Compute(worksheets)).
		Int("worksheets", len(worksheets)).
		Strs("empty_worksheets", empty).
		Int("products", len(products)).
		Int("rejected", len(rejected)).
		Msg("Workbook converted")

	if convertOutput == "" {
		_, err = os.Stdout.Write(content)
		return err
	}
	return os.WriteFile(convertOutput, content, 0644)
}

// parseColumnMap parses "Field=Letter" pairs. Field names match the registry
// headers case-insensitively; "-" leaves a field unmapped.
func parseColumnMap(s string) (types.ColumnMap, error) {
	columns := make(types.ColumnMap)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		name, letter, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid column mapping %q, expected Field=Letter", pair)
		}
		field, ok := lookupField(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}

		letter = strings.ToUpper(strings.TrimSpace(letter))
		if letter == sheets.NoColumn {
			continue
		}
		if _, ok := mapping.ColumnIndex(letter); !ok {
			return nil, fmt.Errorf("invalid column letter %q for %s", letter, field)
		}
		columns[field] = letter
	}
	return columns, nil
}

func lookupField(name string) (types.Field, bool) {
	for _, f := range types.Fields {
		if strings.EqualFold(string(f), name) {
			return f, true
		}
	}
	return "", false
}

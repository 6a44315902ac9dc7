package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kosarica/feed-service/internal/ratelimit"
	"github.com/kosarica/feed-service/internal/types"
)

// Registry column headers
const (
	HeaderSupplierID   = "Post_ID"
	HeaderSupplierName = "Supplier Name"
	HeaderSheetID      = "Google Sheet ID"

	// NoColumn in a "<Field> Column" cell means the field is not mapped
	NoColumn = "-"
)

// ErrRegistryHeader is returned when the registry lacks a required column
var ErrRegistryHeader = errors.New("registry header missing required column")

// ColumnHeader returns the registry header holding the column letter of a field
func ColumnHeader(field types.Field) string {
	return string(field) + " Column"
}

// RowIssue describes a registry row that was skipped
type RowIssue struct {
	RowNumber int
	Reason    string
}

// Registry reads the supplier list from the master spreadsheet
type Registry struct {
	client        Client
	policy        ratelimit.Policy
	pacer         *ratelimit.Pacer
	spreadsheetID string
	worksheet     string
}

// NewRegistry creates a registry reader for one worksheet of the master sheet
func NewRegistry(client Client, policy ratelimit.Policy, pacer *ratelimit.Pacer, spreadsheetID, worksheet string) *Registry {
	return &Registry{
		client:        client,
		policy:        policy,
		pacer:         pacer,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
	}
}

// Suppliers reads the registry fresh and returns suppliers in row order
func (r *Registry) Suppliers(ctx context.Context) ([]types.SupplierConfig, []RowIssue, error) {
	values, err := ratelimit.Retry(ctx, r.policy, "read registry", func(ctx context.Context) ([][]string, error) {
		if err := r.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		return r.client.GetValues(ctx, r.spreadsheetID, r.worksheet)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read registry %s/%s: %w", r.spreadsheetID, r.worksheet, err)
	}

	return ParseRegistry(values)
}

// ParseRegistry turns registry rows into supplier configs. The first row is
// the header; cells are matched to headers by position. Rows without a
// supplier id or sheet id are skipped and reported.
func ParseRegistry(values [][]string) ([]types.SupplierConfig, []RowIssue, error) {
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("%w: registry is empty", ErrRegistryHeader)
	}

	index := make(map[string]int, len(values[0]))
	for i, h := range values[0] {
		h = strings.TrimSpace(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	for _, required := range []string{HeaderSupplierID, HeaderSheetID} {
		if _, ok := index[required]; !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrRegistryHeader, required)
		}
	}

	cell := func(row []string, header string) string {
		i, ok := index[header]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	suppliers := make([]types.SupplierConfig, 0, len(values)-1)
	var issues []RowIssue

	for n, row := range values[1:] {
		rowNumber := n + 2 // 1-based, header is row 1

		supplierID := cell(row, HeaderSupplierID)
		sheetID := cell(row, HeaderSheetID)
		switch {
		case supplierID == "" && sheetID == "":
			continue
		case supplierID == "":
			issues = append(issues, RowIssue{RowNumber: rowNumber, Reason: "missing " + HeaderSupplierID})
			continue
		case sheetID == "":
			issues = append(issues, RowIssue{RowNumber: rowNumber, Reason: "missing " + HeaderSheetID})
			continue
		}

		columns := make(types.ColumnMap, len(types.Fields))
		for _, field := range types.Fields {
			letter := cell(row, ColumnHeader(field))
			if letter == "" || letter == NoColumn {
				continue
			}
			columns[field] = letter
		}

		suppliers = append(suppliers, types.SupplierConfig{
			SupplierID:   supplierID,
			SupplierName: cell(row, HeaderSupplierName),
			SheetID:      sheetID,
			Columns:      columns,
			RowNumber:    rowNumber,
		})
	}

	return suppliers, issues, nil
}

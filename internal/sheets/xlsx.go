package sheets

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXClient serves spreadsheets from .xlsx files in a directory. The
// spreadsheet id is the file name, with or without the extension. It lets the
// pipeline run against exported workbooks without API access.
type XLSXClient struct {
	dir string
}

// NewXLSXClient creates a client over the given directory
func NewXLSXClient(dir string) *XLSXClient {
	return &XLSXClient{dir: dir}
}

// ListWorksheets returns worksheet titles in workbook order
func (c *XLSXClient) ListWorksheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	f, err := c.open(spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// GetValues returns all rows of one worksheet
func (c *XLSXClient) GetValues(ctx context.Context, spreadsheetID string, worksheet string) ([][]string, error) {
	f, err := c.open(spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(worksheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q of %s: %w", worksheet, spreadsheetID, err)
	}
	return rows, nil
}

func (c *XLSXClient) open(spreadsheetID string) (*excelize.File, error) {
	if spreadsheetID == "" || strings.ContainsAny(spreadsheetID, `/\`) || strings.Contains(spreadsheetID, "..") {
		return nil, fmt.Errorf("invalid spreadsheet id %q", spreadsheetID)
	}

	name := spreadsheetID
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		name += ".xlsx"
	}

	f, err := excelize.OpenFile(filepath.Join(c.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", name, err)
	}
	return f, nil
}

package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/kosarica/feed-service/internal/ratelimit"
)

// rateLimitReasons are error reasons Google reports for quota rejections that
// do not always arrive as HTTP 429
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"RATE_LIMIT_EXCEEDED":   true,
}

// GoogleClient reads spreadsheets through the Google Sheets v4 API
type GoogleClient struct {
	svc *sheets.Service
}

// NewGoogleClient creates a Sheets API client. Authentication comes from the
// options, usually option.WithTokenSource.
func NewGoogleClient(ctx context.Context, opts ...option.ClientOption) (*GoogleClient, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &GoogleClient{svc: svc}, nil
}

// ListWorksheets returns worksheet titles in spreadsheet order
func (c *GoogleClient) ListWorksheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	spreadsheet, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyError(err)
	}

	titles := make([]string, 0, len(spreadsheet.Sheets))
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties == nil {
			continue
		}
		titles = append(titles, sheet.Properties.Title)
	}
	return titles, nil
}

// GetValues returns the formatted values of a whole worksheet
func (c *GoogleClient) GetValues(ctx context.Context, spreadsheetID string, worksheet string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, worksheetRange(worksheet)).
		ValueRenderOption("FORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyError(err)
	}

	values := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				cells[j] = fmt.Sprint(cell)
			}
		}
		values[i] = cells
	}
	return values, nil
}

// worksheetRange quotes a title as an A1 range covering the whole sheet
func worksheetRange(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// classifyError marks quota rejections with ratelimit.ErrQuotaExceeded
func classifyError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	if gerr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", ratelimit.ErrQuotaExceeded, err)
	}
	for _, item := range gerr.Errors {
		if rateLimitReasons[item.Reason] {
			return fmt.Errorf("%w: %w", ratelimit.ErrQuotaExceeded, err)
		}
	}
	return err
}

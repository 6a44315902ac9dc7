// Package sheets reads supplier data from spreadsheets.
package sheets

import "context"

// Client is the minimal spreadsheet API the refresh pipeline needs. Quota
// failures must wrap ratelimit.ErrQuotaExceeded so they are retried; every
// other error is treated as an access failure.
type Client interface {
	// ListWorksheets returns worksheet titles in spreadsheet order
	ListWorksheets(ctx context.Context, spreadsheetID string) ([]string, error)

	// GetValues returns the full grid of formatted cell values of one
	// worksheet, header row included
	GetValues(ctx context.Context, spreadsheetID string, worksheet string) ([][]string, error)
}

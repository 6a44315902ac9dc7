package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kosarica/feed-service/internal/ratelimit"
	"github.com/kosarica/feed-service/internal/types"
)

// Fetcher reads whole spreadsheets under the retry policy and pacer
type Fetcher struct {
	client         Client
	policy         ratelimit.Policy
	pacer          *ratelimit.Pacer
	worksheetDelay time.Duration
}

// NewFetcher creates a fetcher. worksheetDelay is paused before every
// worksheet read to spread requests over time.
func NewFetcher(client Client, policy ratelimit.Policy, pacer *ratelimit.Pacer, worksheetDelay time.Duration) *Fetcher {
	return &Fetcher{
		client:         client,
		policy:         policy,
		pacer:          pacer,
		worksheetDelay: worksheetDelay,
	}
}

// Worksheets opens a spreadsheet and reads every worksheet in order. Any
// failure aborts the whole read: a partial spreadsheet would produce a
// partial feed and a misleading fingerprint.
func (f *Fetcher) Worksheets(ctx context.Context, spreadsheetID string, logger *zerolog.Logger) ([]types.Worksheet, error) {
	titles, err := ratelimit.Retry(ctx, f.policy, "open spreadsheet "+spreadsheetID, func(ctx context.Context) ([]string, error) {
		if err := f.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		return f.client.ListWorksheets(ctx, spreadsheetID)
	})
	if err != nil {
		return nil, err
	}

	logger.Debug().Int("worksheets", len(titles)).Msg("Opened spreadsheet")

	worksheets := make([]types.Worksheet, 0, len(titles))
	for _, title := range titles {
		if err := f.pacer.Pause(ctx, f.worksheetDelay); err != nil {
			return nil, err
		}

		values, err := ratelimit.Retry(ctx, f.policy, "read worksheet "+title, func(ctx context.Context) ([][]string, error) {
			if err := f.pacer.Wait(ctx); err != nil {
				return nil, err
			}
			return f.client.GetValues(ctx, spreadsheetID, title)
		})
		if err != nil {
			return nil, fmt.Errorf("worksheet %q: %w", title, err)
		}

		logger.Debug().Str("worksheet", title).Int("rows", len(values)).Msg("Read worksheet")
		worksheets = append(worksheets, types.Worksheet{Title: title, Values: values})
	}

	return worksheets, nil
}

// Flatten drops the header row of each worksheet and concatenates the data
// rows, keeping worksheet order and row order. Worksheets with no data rows
// are returned in empty.
func Flatten(worksheets []types.Worksheet) (rows [][]string, empty []string) {
	for _, ws := range worksheets {
		if len(ws.Values) < 2 {
			empty = append(empty, ws.Title)
			continue
		}
		rows = append(rows, ws.Values[1:]...)
	}
	return rows, empty
}

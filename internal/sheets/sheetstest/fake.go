// Package sheetstest provides an in-memory spreadsheet client for tests.
package sheetstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/kosarica/feed-service/internal/types"
)

// Client is an in-memory sheets.Client. Errors queued with FailList or
// FailGet are returned, one per call, before the stored data is served.
type Client struct {
	mu          sync.Mutex
	sheets      map[string][]types.Worksheet
	listErrors  map[string][]error
	getErrors   map[string][]error
	listCalls   map[string]int
	getCalls    map[string]int
	onGetValues func(spreadsheetID, worksheet string)
}

// New creates an empty fake client
func New() *Client {
	return &Client{
		sheets:     make(map[string][]types.Worksheet),
		listErrors: make(map[string][]error),
		getErrors:  make(map[string][]error),
		listCalls:  make(map[string]int),
		getCalls:   make(map[string]int),
	}
}

// SetSpreadsheet replaces the worksheets of a spreadsheet
func (c *Client) SetSpreadsheet(spreadsheetID string, worksheets ...types.Worksheet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sheets[spreadsheetID] = worksheets
}

// FailList queues errors for ListWorksheets on a spreadsheet
func (c *Client) FailList(spreadsheetID string, errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErrors[spreadsheetID] = append(c.listErrors[spreadsheetID], errs...)
}

// FailGet queues errors for GetValues on one worksheet
func (c *Client) FailGet(spreadsheetID, worksheet string, errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := spreadsheetID + "/" + worksheet
	c.getErrors[key] = append(c.getErrors[key], errs...)
}

// OnGetValues registers a hook called on every GetValues call
func (c *Client) OnGetValues(fn func(spreadsheetID, worksheet string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onGetValues = fn
}

// ListCalls returns how many times ListWorksheets was called for a spreadsheet
func (c *Client) ListCalls(spreadsheetID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listCalls[spreadsheetID]
}

// GetCalls returns how many times GetValues was called for a worksheet
func (c *Client) GetCalls(spreadsheetID, worksheet string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getCalls[spreadsheetID+"/"+worksheet]
}

// ListWorksheets implements sheets.Client
func (c *Client) ListWorksheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listCalls[spreadsheetID]++
	if errs := c.listErrors[spreadsheetID]; len(errs) > 0 {
		c.listErrors[spreadsheetID] = errs[1:]
		return nil, errs[0]
	}

	worksheets, ok := c.sheets[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	titles := make([]string, len(worksheets))
	for i, ws := range worksheets {
		titles[i] = ws.Title
	}
	return titles, nil
}

// GetValues implements sheets.Client
func (c *Client) GetValues(ctx context.Context, spreadsheetID string, worksheet string) ([][]string, error) {
	c.mu.Lock()
	hook := c.onGetValues
	key := spreadsheetID + "/" + worksheet
	c.getCalls[key]++
	if errs := c.getErrors[key]; len(errs) > 0 {
		c.getErrors[key] = errs[1:]
		c.mu.Unlock()
		return nil, errs[0]
	}
	worksheets, ok := c.sheets[spreadsheetID]
	c.mu.Unlock()

	if hook != nil {
		hook(spreadsheetID, worksheet)
	}
	if !ok {
		return nil, fmt.Errorf("spreadsheet %s not found", spreadsheetID)
	}
	for _, ws := range worksheets {
		if ws.Title == worksheet {
			values := make([][]string, len(ws.Values))
			for i, row := range ws.Values {
				values[i] = append([]string(nil), row...)
			}
			return values, nil
		}
	}
	return nil, fmt.Errorf("worksheet %q not found in %s", worksheet, spreadsheetID)
}

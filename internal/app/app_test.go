package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kosarica/feed-service/config"
	"github.com/kosarica/feed-service/internal/auth"
	"github.com/kosarica/feed-service/internal/pipeline"
	"github.com/kosarica/feed-service/internal/types"
)

func writeWorkbook(t *testing.T, path, sheet string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}
	require.NoError(t, f.SaveAs(path))
}

func testConfig(t *testing.T, xlsxDir string) *config.Config {
	return &config.Config{
		Sheets: config.SheetsConfig{
			Source:            config.SourceXLSX,
			RegistryID:        "master",
			RegistryWorksheet: "Sheet1",
			XLSXDir:           xlsxDir,
		},
		Refresh: config.RefreshConfig{
			Interval:              time.Hour,
			BatchSize:             5,
			MaxConcurrentTriggers: 1,
		},
		RateLimit: config.RateLimitConfig{
			MaxAttempts: 5,
			BackoffUnit: 20 * time.Second,
		},
		Storage: config.StorageConfig{BasePath: t.TempDir()},
		Logging: config.LoggingConfig{Level: "debug", Format: "json", Dir: t.TempDir(), Retention: 10},
	}
}

func TestBuild_XLSXRefresh(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "master.xlsx"), "Sheet1", [][]string{
		{"Post_ID", "Supplier Name", "Google Sheet ID", "ID Column", "Name Column", "Stock Column", "Price Column", "SKU Column", "RRP Column", "Currency Column"},
		{"7", "Acme", "acme", "A", "B", "-", "C", "-", "-", "-"},
	})
	writeWorkbook(t, filepath.Join(dir, "acme.xlsx"), "Main", [][]string{
		{"ID", "Name", "Price"},
		{"1", "Widget", "120"},
	})

	cfg := testConfig(t, dir)
	var out bytes.Buffer
	logger := NewLogger(cfg.Logging, &out)

	a, err := Build(context.Background(), cfg, logger, &out)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Runs)
	require.NotNil(t, a.RunLogs)

	summary, err := a.Refresher.RunOnce(context.Background(), pipeline.RunOptions{Trigger: types.TriggerCLI})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Outcomes[types.OutcomeWritten])

	exists, err := a.Store.Exists(context.Background(), "7.xml")
	require.NoError(t, err)
	assert.True(t, exists)

	logs, err := a.RunLogs.List()
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Contains(t, out.String(), `"service":"feed-service"`)
}

func TestBuild_RequiresRegistryID(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Sheets.RegistryID = ""
	logger := NewLogger(cfg.Logging, &bytes.Buffer{})

	_, err := Build(context.Background(), cfg, logger, nil)
	assert.Error(t, err)
}

func TestNewClient_MissingCredentials(t *testing.T) {
	logger := NewLogger(config.LoggingConfig{}, &bytes.Buffer{})

	_, err := NewClient(context.Background(), config.SheetsConfig{Source: config.SourceGoogle}, logger)
	assert.ErrorIs(t, err, auth.ErrMissingCredentials)

	_, err = NewClient(context.Background(), config.SheetsConfig{Source: "ftp"}, logger)
	assert.Error(t, err)
}

func TestNewLogger_Level(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(config.LoggingConfig{Level: "warn"}, &out)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")
}

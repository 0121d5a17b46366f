package backend

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/config"
	"moneytracker/internal/core"
	"moneytracker/internal/insights"
)

func quietFactory() Factory {
	return NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:         "sqlite",
		SQLiteDBPath:        "/tmp/x.db",
		GoogleSpreadsheetID: "sid",
		FeedbackStrongRatio: 0.6,
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "sid", cfg.GoogleSpreadsheetID)
	assert.Equal(t, 0.6, cfg.Thresholds.StrongRatio)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{Type: "nope"}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: MemoryBackend, AMQPURL: "amqp://x"}.Validate())
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
}

func TestCreateServiceMemory(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	res, err := quietFactory().CreateService(context.Background(), Config{
		Type: MemoryBackend,
		Now:  func() time.Time { return now },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	assert.False(t, res.AMQP)
	assert.NotNil(t, res.Store.Queue)
	assert.Equal(t, insights.DefaultThresholds(), res.Service.Thresholds())

	rec, err := res.Service.Save(context.Background(), core.NewDate(2025, 3, 15), core.Amounts{Food: 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, rec.Total)

	pending, err := res.Store.Queue.PendingMirror(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCreateServiceSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "moneytracker.db")
	res, err := quietFactory().CreateService(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	require.NoError(t, res.Service.Ready(context.Background()))
	require.NoError(t, res.Cleanup())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCreateServiceRejectsBadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("car: []\n"), 0o600))

	_, err := quietFactory().CreateService(context.Background(), Config{Type: MemoryBackend, CatalogFile: path})
	assert.Error(t, err)
}

func TestCreateMirrorNeedsSpreadsheet(t *testing.T) {
	_, err := quietFactory().CreateMirror(context.Background(), Config{})
	assert.ErrorContains(t, err, "GOOGLE_SPREADSHEET_ID")
}

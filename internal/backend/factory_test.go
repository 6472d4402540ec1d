package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/config"
	"salesdash/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "postgres"})
	assert.ErrorContains(t, err, "invalid backend type")

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", DataDir: "seed"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "x.db", cfg.SQLiteDBPath)
	assert.Equal(t, "seed", cfg.DataDirectory)
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{Type: "nope"}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: SheetsBackend}.Validate())
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Len(t, GetBackendTypes(), 3)
}

func TestCreateBackend_Memory(t *testing.T) {
	dir := t.TempDir()
	seed := "# year,month,product,category,amount\n2024,1,Phone,Electronics,100\n2024,2,Phone,Electronics,200\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_sales.csv"), []byte(seed), 0o600))

	res, err := NewFactory(nil, nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, "memory ledger", res.Source)
	obs, err := res.Backend.MonthlySeries(context.Background(), core.SeriesQuery{Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, []core.SalesObservation{{Period: "Jan", Amount: 100}, {Period: "Feb", Amount: 200}}, obs)
}

func TestCreateBackend_SQLiteWithoutAMQP(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil, nil).CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, res.Close()) }()

	rec, err := res.Backend.AddSale(ctx, core.SalesRecord{Year: 2024, Month: 3, Product: "Desk", Category: "Home", Amount: 80})
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.NoError(t, res.Backend.Ping(ctx))

	require.NoError(t, res.Backend.DeleteSale(ctx, rec.ID))
	assert.ErrorIs(t, res.Backend.DeleteSale(ctx, rec.ID), core.ErrNotFound)
}

func TestCreateBackend_SheetsNeedsCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", "")
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", "")

	_, err := NewFactory(nil, nil).CreateBackend(context.Background(), Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc"})
	assert.ErrorContains(t, err, "service account credentials")
}

func TestBackendResult_CloseNil(t *testing.T) {
	var r *BackendResult
	assert.NoError(t, r.Close())
	assert.NoError(t, (&BackendResult{}).Close())
}

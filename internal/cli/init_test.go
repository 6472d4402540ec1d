package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.NoError(t, LoadEnvFile(), "missing .env is not an error")

	t.Setenv("SALESDASH_TEST_VALUE", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SALESDASH_TEST_VALUE=from-file\n"), 0o600))
	require.NoError(t, os.Unsetenv("SALESDASH_TEST_VALUE"))
	require.NoError(t, LoadEnvFile())
	assert.Equal(t, "from-file", os.Getenv("SALESDASH_TEST_VALUE"))
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("nonsense", "test")
	require.NotNil(t, logger)
	assert.Equal(t, "test", logger.Component())
}

func TestInitSQLite(t *testing.T) {
	repo := InitSQLite(SetupLogger("error", "test"), filepath.Join(t.TempDir(), "cli.db"))
	t.Cleanup(func() { repo.Close() })
	assert.NoError(t, repo.Ping(context.Background()))
}

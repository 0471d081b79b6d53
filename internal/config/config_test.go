package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Sync.BatchConcurrency)
	assert.Equal(t, 500, cfg.Sync.SummaryThreshold)
	assert.Equal(t, 10000, cfg.Sync.SearchTextMaxRunes)
	assert.Equal(t, 3.0, cfg.Notion.RequestsPerSecond)
	assert.Equal(t, 30*time.Second, cfg.Notion.Timeout)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: postgres
  host: db
  port: 5433
  user: app
  dbname: content
sync:
  batch_concurrency: 8
  archive_raw: true
notion:
  requests_per_second: 1.5
`), 0o644))
	t.Setenv("DATABASE_PASSWORD", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Sync.BatchConcurrency)
	assert.True(t, cfg.Sync.ArchiveRaw)
	assert.Equal(t, 1.5, cfg.Notion.RequestsPerSecond)
	assert.Equal(t, "host=db port=5433 user=app password=s3cret dbname=content sslmode=disable", cfg.Database.DSN())
}

func TestEmbeddingValidate(t *testing.T) {
	assert.NoError(t, (&EmbeddingConfig{}).Validate())

	c := &EmbeddingConfig{Enabled: true, Provider: "jina", Model: "m", Dimensions: 8}
	assert.Error(t, c.Validate())
	c.APIKey = "k"
	assert.NoError(t, c.Validate())
	c.Provider = "other"
	assert.Error(t, c.Validate())
}

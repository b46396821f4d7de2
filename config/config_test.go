package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FEED_DEFAULT_PAGE_SIZE", "")
	t.Setenv("FEED_MAX_PAGE_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Feed.DefaultPageSize)
	assert.Equal(t, 50, cfg.Feed.MaxPageSize)
	assert.Equal(t, 10*time.Second, cfg.Ingest.RetryBackoff)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FEED_DEFAULT_PAGE_SIZE", "5")
	t.Setenv("FEED_MAX_PAGE_SIZE", "20")
	t.Setenv("FEED_FETCH_PARALLELISM", "0")
	t.Setenv("INGEST_RETRY_BACKOFF", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Feed.DefaultPageSize)
	assert.Equal(t, 20, cfg.Feed.MaxPageSize)
	assert.Equal(t, 1, cfg.Feed.FetchParallelism)
	assert.Equal(t, 2*time.Second, cfg.Ingest.RetryBackoff)
}

func TestLoadRejectsInvertedPageSizes(t *testing.T) {
	t.Setenv("FEED_DEFAULT_PAGE_SIZE", "60")
	t.Setenv("FEED_MAX_PAGE_SIZE", "50")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "1", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:1/d?sslmode=disable", c.DSN())

	c.URL = "postgres://elsewhere/db"
	assert.Equal(t, "postgres://elsewhere/db", c.DSN())
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, ParseOrigins(" http://a, ,http://b "))
	assert.Nil(t, ParseOrigins(""))
}

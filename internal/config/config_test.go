package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("RECALC_PAGE_SIZE", "")
	t.Setenv("RECALC_CATCHUP_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"http://localhost:4200", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 500, cfg.RecalcPageSize)
	assert.Equal(t, time.Minute, cfg.CatchupInterval)
}

func TestLoad_CORSAllowedOriginsFromEnv(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://codetango.app, http://localhost:4200")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://codetango.app", "http://localhost:4200"}, cfg.CORSAllowedOrigins)
}

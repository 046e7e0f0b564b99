package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadFrom_Valid(t *testing.T) {
	p := writeConfig(t, `server:
  host: "127.0.0.1"
  port: ":9000"
limits:
  max_records: 50
cache:
  pdf_cache_enabled: true
  pdf_cache_ttl: 2m
  redis_host: "localhost:6379"
  redis_pdf_db: 2
pdf:
  engine: ROD
  default_paper: letter
  paper_sizes:
    a4:
      width: 8.27
      height: 11.69
    letter:
      width: 8.5
      height: 11
  render_concurrency: 3
reports:
  advance_balance_rule: formula
`)
	cfg := LoadFrom(p)

	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, 50, cfg.Limits.MaxRecords)
	assert.True(t, cfg.Cache.PDFCacheEnabled)
	assert.Equal(t, 2*time.Minute, cfg.Cache.PDFCacheTTL)
	assert.Equal(t, 2, cfg.Cache.PDFCacheDB)
	assert.Equal(t, EngineRod, cfg.PDF.Engine)
	assert.Equal(t, "LETTER", cfg.PDF.DefaultPaper)
	assert.Contains(t, cfg.PDF.PaperSizes, "A4")
	assert.Equal(t, 3, cfg.PDF.RenderConcurrency)
	assert.Equal(t, AdvanceRuleFormula, cfg.Reports.AdvanceBalanceRule)
}

func TestLoadFrom_AppliesDefaults(t *testing.T) {
	cfg := LoadFrom(writeConfig(t, "server:\n  host: \"\"\n"))

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 100, cfg.Server.BodyLimitMB)
	assert.Equal(t, EngineChromedp, cfg.PDF.Engine)
	assert.Equal(t, "A4", cfg.PDF.DefaultPaper)
	assert.Len(t, cfg.PDF.PaperSizes, 9)
	assert.Equal(t, 1, cfg.PDF.RenderConcurrency)
	assert.Equal(t, 60*time.Second, cfg.RenderTimeout())
	assert.Equal(t, time.Minute, cfg.RateLimiter.Interval)
	assert.Equal(t, AdvanceRuleConditional, cfg.Reports.AdvanceBalanceRule)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 0, cfg.Limits.MaxRecords)
}

func TestLoadFrom_PanicsOnInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{name: "unknown engine", yml: "pdf:\n  engine: wkhtml\n"},
		{name: "default paper missing", yml: "pdf:\n  default_paper: B5\n"},
		{name: "zero paper width", yml: "pdf:\n  paper_sizes:\n    A4:\n      width: 0\n      height: 11\n"},
		{name: "negative concurrency", yml: "pdf:\n  render_concurrency: -2\n"},
		{name: "negative pool size", yml: "pdf:\n  chrome_pool_size: -1\n"},
		{name: "negative max records", yml: "limits:\n  max_records: -1\n"},
		{name: "negative user limit", yml: "rate_limiter:\n  user_limit: -1\n"},
		{name: "unknown advance rule", yml: "reports:\n  advance_balance_rule: sometimes\n"},
		{name: "unknown time zone", yml: "reports:\n  time_zone: Mars/Olympus\n"},
		{name: "broken yaml", yml: "pdf: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := writeConfig(t, tc.yml)
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			_ = LoadFrom(p)
		})
	}
}

func TestLoadFrom_PanicsOnMissingFile(t *testing.T) {
	require.Panics(t, func() {
		_ = LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}

func TestLoad_UsesConfigPathEnv(t *testing.T) {
	p := writeConfig(t, "limits:\n  max_records: 7\n")
	t.Setenv("CONFIG_PATH", p)
	cfg := Load()
	if cfg.Limits.MaxRecords != 7 {
		t.Fatalf("expected CONFIG_PATH to be used")
	}
}

func TestPostgresConfigEnabled(t *testing.T) {
	assert.False(t, PostgresConfig{}.Enabled())
	assert.False(t, PostgresConfig{Host: "  "}.Enabled())
	assert.True(t, PostgresConfig{Host: "db"}.Enabled())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())

	cfg.Reports.TimeZone = "Nowhere/Land"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestExampleConfigLoads(t *testing.T) {
	cfg := LoadFrom(filepath.Join("..", "..", "config.example.yaml"))
	assert.Equal(t, EngineChromedp, cfg.PDF.Engine)
	assert.Equal(t, AdvanceRuleConditional, cfg.Reports.AdvanceBalanceRule)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.False(t, cfg.Auth.Postgres.Enabled())
	assert.Len(t, cfg.Branding.Address, 2)
}

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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 100, cfg.Backtest.Bollinger.LookbackDays)
	assert.Equal(t, 5, cfg.Backtest.Bollinger.CooldownDays)
	assert.Equal(t, 0.005, cfg.Backtest.Bollinger.Tolerance)
	assert.Equal(t, 300, cfg.Backtest.Vegas.LookbackDays)
	assert.Equal(t, 169, cfg.Backtest.Vegas.WarmupDays)
	assert.Equal(t, 20, cfg.Indicators.BollingerPeriod)
	assert.Equal(t, "0 0 */4 * * *", cfg.Schedule.Crawl)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
backtest:
  bollinger:
    lookback_days: 60
tracker:
  item_ids: ["a", "b"]
  item_delay: 500ms
server:
  port: 9090
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 60, cfg.Backtest.Bollinger.LookbackDays)
	assert.Equal(t, 5, cfg.Backtest.Bollinger.CooldownDays, "unset keys keep defaults")
	assert.Equal(t, []string{"a", "b"}, cfg.Tracker.ItemIDs)
	assert.Equal(t, 500*time.Millisecond, cfg.Tracker.ItemDelay)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "backtest:\n  bollinger:\n    cooldown_days: 7\n")
	t.Setenv("BOLL_COOLDOWN_DAYS", "3")
	t.Setenv("VEGAS_TOLERANCE", "0.01")
	t.Setenv("FAV_LIST_ID", "f1,f2")
	t.Setenv("NATY_TOPIC_BUY_SELL_NOTIFY", "cs2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Backtest.Bollinger.CooldownDays)
	assert.Equal(t, 0.01, cfg.Backtest.Vegas.Tolerance)
	assert.Equal(t, []string{"f1", "f2"}, cfg.Market.FolderIDs)
	assert.Equal(t, "cs2", cfg.Notify.Topic)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "logging: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Indicators.BollingerPeriod = 1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Backtest.Vegas.CooldownDays = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Indicators.MACDFast = cfg.Indicators.MACDSlow
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Strategies.RSIOversold = 80
	assert.Error(t, cfg.Validate())
}

func TestLoad_StrategyOverrides(t *testing.T) {
	path := writeConfig(t, "strategies:\n  enabled: [RSI, MACD, CsMa]\n  rsi_oversold: 30\nindicators:\n  cs_ma_slow: 120\n")
	t.Setenv("RSI_OVERBOUGHT", "80")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"RSI", "MACD", "CsMa"}, cfg.Strategies.Enabled)
	assert.Equal(t, 30.0, cfg.Strategies.RSIOversold)
	assert.Equal(t, 80.0, cfg.Strategies.RSIOverbought)
	assert.Equal(t, 120, cfg.Indicators.CsMaSlow)
	assert.Equal(t, 14, cfg.Indicators.RSIPeriod, "unset keys keep defaults")
}

package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/market"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/notify"
	"github.com/vitos/cs2_market_watch/internal/usecase"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type Config struct {
	Logging struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
		File  string `yaml:"file" env:"LOG_FILE"`
	} `yaml:"logging"`
	Database struct {
		Path string `yaml:"path" env:"DB_PATH"`
	} `yaml:"database"`
	Market     market.Config           `yaml:"market"`
	Notify     notify.Config           `yaml:"notify"`
	Indicators usecase.IndicatorConfig `yaml:"indicators"`
	Strategies usecase.StrategyConfig  `yaml:"strategies"`
	Backtest   struct {
		Bollinger usecase.BollingerBacktestConfig `yaml:"bollinger" envPrefix:"BOLL_"`
		Vegas     usecase.VegasBacktestConfig     `yaml:"vegas" envPrefix:"VEGAS_"`
	} `yaml:"backtest"`
	Tracker  usecase.TrackerConfig `yaml:"tracker"`
	Schedule struct {
		Crawl     string `yaml:"crawl" env:"CRAWL_SCHEDULE"`
		RunOnBoot bool   `yaml:"run_on_boot" env:"RUN_ON_BOOT"`
	} `yaml:"schedule"`
	Server struct {
		Port int `yaml:"port" env:"PORT"`
	} `yaml:"server"`
}

// Default returns the configuration used when no file or variable overrides it.
func Default() *Config {
	var cfg Config
	cfg.Logging.Level = "info"
	cfg.Database.Path = "market.db"
	cfg.Market = market.DefaultConfig()
	cfg.Notify.Server = notify.DefaultServer
	cfg.Indicators = usecase.DefaultIndicatorConfig()
	cfg.Strategies = usecase.DefaultStrategyConfig()
	cfg.Backtest.Bollinger = usecase.DefaultBollingerBacktestConfig()
	cfg.Backtest.Vegas = usecase.DefaultVegasBacktestConfig()
	cfg.Tracker = usecase.TrackerConfig{
		ItemDelay:  3 * time.Second,
		SignalsDir: "signals",
		Notify:     true,
	}
	cfg.Schedule.Crawl = "0 0 */4 * * *"
	cfg.Server.Port = 8080
	return &cfg
}

// Load layers the YAML file at path over the defaults and then applies
// environment variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Indicators.BollingerPeriod < 2 {
		return fmt.Errorf("indicators.bollinger_period must be at least 2, got %d", c.Indicators.BollingerPeriod)
	}
	if c.Indicators.VegasEMA1 <= 0 || c.Indicators.VegasEMA2 <= 0 || c.Indicators.VegasEMA3 <= 0 {
		return errors.New("indicators: vegas EMA periods must be positive")
	}
	if c.Indicators.RSIPeriod <= 0 {
		return fmt.Errorf("indicators.rsi_period must be positive, got %d", c.Indicators.RSIPeriod)
	}
	if c.Indicators.MACDFast <= 0 || c.Indicators.MACDSignal <= 0 || c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return errors.New("indicators: macd periods must be positive with fast below slow")
	}
	if c.Indicators.CsMaFast <= 0 || c.Indicators.CsMaMedium <= 0 || c.Indicators.CsMaSlow <= 0 {
		return errors.New("indicators: cs_ma periods must be positive")
	}
	if c.Strategies.RSIOversold >= c.Strategies.RSIOverbought {
		return fmt.Errorf("strategies: rsi_oversold %g must be below rsi_overbought %g",
			c.Strategies.RSIOversold, c.Strategies.RSIOverbought)
	}
	if c.Backtest.Bollinger.CooldownDays < 0 || c.Backtest.Vegas.CooldownDays < 0 {
		return errors.New("backtest: cooldown_days must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

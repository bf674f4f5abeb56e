package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ducminhle1904/futures-threshold-bot/internal/bot"
	boterrors "github.com/ducminhle1904/futures-threshold-bot/internal/errors"
	"github.com/ducminhle1904/futures-threshold-bot/internal/exchange/binance"
	"github.com/ducminhle1904/futures-threshold-bot/internal/logger"
)

const component = "config"

// Config is the complete runtime configuration. Decimal and duration
// fields are kept as text until LoopConfig/ClientConfig parse them.
type Config struct {
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Trading    TradingConfig    `yaml:"trading"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Report     ReportConfig     `yaml:"report"`
}

type ExchangeConfig struct {
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	BaseURL    string `yaml:"base_url"`
	Testnet    bool   `yaml:"testnet"`
	RecvWindow string `yaml:"recv_window"`
	Timeout    string `yaml:"timeout"`
}

type TradingConfig struct {
	Symbol            string `yaml:"symbol"`
	BuyPriceThreshold string `yaml:"buy_price_threshold"`
	BuyQuantity       string `yaml:"buy_quantity"`
	PollInterval      string `yaml:"poll_interval"`
	MaxAttempts       int    `yaml:"max_attempts"`
	SettleDelay       string `yaml:"settle_delay"`
	ReduceOnlyClose   bool   `yaml:"reduce_only_close"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type MonitoringConfig struct {
	Addr        string   `yaml:"addr"` // empty disables the HTTP server
	CORSOrigins []string `yaml:"cors_origins"`
}

type ReportConfig struct {
	Dir string `yaml:"dir"` // empty disables run reports
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Testnet: true,
			Timeout: "30s",
		},
		Trading: TradingConfig{
			Symbol:       "BTCUSDT",
			PollInterval: "5s",
			MaxAttempts:  bot.DefaultMaxAttempts,
			SettleDelay:  "1.5s",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load layers defaults, the optional YAML file at path, then environment
// variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, component, "Load").
				WithMessage("read config file").
				WithContext("path", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, component, "Load").
				WithMessage("parse config file").
				WithContext("path", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	c.Exchange.APIKey = getEnv("BINANCE_API_KEY", c.Exchange.APIKey)
	c.Exchange.APISecret = getEnv("BINANCE_API_SECRET", c.Exchange.APISecret)
	c.Exchange.BaseURL = getEnv("BINANCE_BASE_URL", c.Exchange.BaseURL)
	if c.Exchange.Testnet, err = getEnvBool("BINANCE_TESTNET", c.Exchange.Testnet); err != nil {
		return err
	}
	c.Exchange.RecvWindow = getEnv("BINANCE_RECV_WINDOW", c.Exchange.RecvWindow)

	c.Trading.Symbol = getEnv("TRADING_SYMBOL", c.Trading.Symbol)
	c.Trading.BuyPriceThreshold = getEnv("BUY_PRICE_THRESHOLD", c.Trading.BuyPriceThreshold)
	c.Trading.BuyQuantity = getEnv("BUY_QUANTITY", c.Trading.BuyQuantity)
	c.Trading.PollInterval = getEnv("POLL_INTERVAL", c.Trading.PollInterval)
	if c.Trading.MaxAttempts, err = getEnvInt("MAX_ATTEMPTS", c.Trading.MaxAttempts); err != nil {
		return err
	}
	c.Trading.SettleDelay = getEnv("SETTLE_DELAY", c.Trading.SettleDelay)
	if c.Trading.ReduceOnlyClose, err = getEnvBool("REDUCE_ONLY_CLOSE", c.Trading.ReduceOnlyClose); err != nil {
		return err
	}

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.File = getEnv("LOG_FILE", c.Logging.File)
	c.Monitoring.Addr = getEnv("MONITORING_ADDR", c.Monitoring.Addr)
	if origins := getEnv("MONITORING_CORS_ORIGINS", ""); origins != "" {
		c.Monitoring.CORSOrigins = splitList(origins)
	}
	c.Report.Dir = getEnv("REPORT_DIR", c.Report.Dir)
	return nil
}

// Validate checks everything every mode needs: credentials, durations and
// the log level. Trading parameters are checked by LoopConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Exchange.APIKey) == "" {
		return boterrors.NewConfigurationError(component, "Validate", "BINANCE_API_KEY is required")
	}
	if strings.TrimSpace(c.Exchange.APISecret) == "" {
		return boterrors.NewConfigurationError(component, "Validate", "BINANCE_API_SECRET is required")
	}
	if _, err := c.ClientConfig(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return boterrors.NewConfigurationError(component, "Validate", err.Error())
	}
	return nil
}

// ClientConfig builds the exchange client configuration
func (c *Config) ClientConfig() (binance.Config, error) {
	recvWindow, err := parseField("recv_window", c.Exchange.RecvWindow)
	if err != nil {
		return binance.Config{}, err
	}
	timeout, err := parseField("timeout", c.Exchange.Timeout)
	if err != nil {
		return binance.Config{}, err
	}
	return binance.Config{
		APIKey:     c.Exchange.APIKey,
		APISecret:  c.Exchange.APISecret,
		BaseURL:    c.Exchange.BaseURL,
		Testnet:    c.Exchange.Testnet,
		RecvWindow: recvWindow,
		Timeout:    timeout,
	}, nil
}

// LoopConfig parses and validates the trading parameters
func (c *Config) LoopConfig() (bot.LoopConfig, error) {
	threshold, err := parseDecimal("buy_price_threshold", c.Trading.BuyPriceThreshold)
	if err != nil {
		return bot.LoopConfig{}, err
	}
	qty, err := parseDecimal("buy_quantity", c.Trading.BuyQuantity)
	if err != nil {
		return bot.LoopConfig{}, err
	}
	poll, err := parseField("poll_interval", c.Trading.PollInterval)
	if err != nil {
		return bot.LoopConfig{}, err
	}
	settle, err := parseField("settle_delay", c.Trading.SettleDelay)
	if err != nil {
		return bot.LoopConfig{}, err
	}

	loop := bot.LoopConfig{
		Symbol:            c.Trading.Symbol,
		BuyPriceThreshold: threshold,
		BuyQuantity:       qty,
		PollInterval:      poll,
		MaxAttempts:       c.Trading.MaxAttempts,
		SettleDelay:       settle,
		ReduceOnlyClose:   c.Trading.ReduceOnlyClose,
	}.WithDefaults()
	if err := loop.Validate(); err != nil {
		return bot.LoopConfig{}, err
	}
	return loop, nil
}

// LoggerConfig maps the logging section
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Logging.Level,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}

// ParseDuration accepts Go duration syntax ("5s", "1m30s") or bare seconds
// ("5", "1.5"). Empty is zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		secs, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

func parseField(name, value string) (time.Duration, error) {
	d, err := ParseDuration(value)
	if err != nil {
		return 0, boterrors.NewConfigurationError(component, "parse", err.Error()).WithContext("field", name)
	}
	return d, nil
}

func parseDecimal(name, value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, boterrors.NewConfigurationError(component, "parse", name+" is required")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, boterrors.NewConfigurationError(component, "parse", fmt.Sprintf("invalid %s %q", name, value))
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal, boterrors.NewConfigurationError(component, "env", fmt.Sprintf("%s: invalid bool %q", key, val))
	}
	return b, nil
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal, boterrors.NewConfigurationError(component, "env", fmt.Sprintf("%s: invalid integer %q", key, val))
	}
	return n, nil
}

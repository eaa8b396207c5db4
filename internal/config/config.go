// Package config
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/amirphl/ema-trader/internal/market"
	"github.com/amirphl/ema-trader/internal/tfutils"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

/*
YAML config example:
exchange: "binance"
symbol: "BTC/USDC"
timeframe: "1m"
short_period: 2
long_period: 3
trade_amount: "0.1"
sleep_interval: "5s"
candle_limit: 100
confirm_orders: true
confirm_attempts: 5
confirm_delay: "2s"
telegram_chat_id: "..."
db_conn_str: "postgres://..."
*/

// Exchanges the trader can connect to.
var Exchanges = []string{"binance", "wallex", "alpaca"}

type Config struct {
	Exchange   string `yaml:"exchange"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	BaseURL    string `yaml:"base_url"`
	Paper      bool   `yaml:"paper"`
	DryRun     bool   `yaml:"dry_run"`
	Symbol     string `yaml:"symbol"`
	QuoteAsset string `yaml:"quote_asset"`
	Timeframe  string `yaml:"timeframe"`

	ShortPeriod   int             `yaml:"short_period"`
	LongPeriod    int             `yaml:"long_period"`
	TradeAmount   decimal.Decimal `yaml:"trade_amount"`
	SleepInterval time.Duration   `yaml:"sleep_interval"`
	CandleLimit   int             `yaml:"candle_limit"`

	ConfirmOrders   bool          `yaml:"confirm_orders"`
	ConfirmAttempts int           `yaml:"confirm_attempts"`
	ConfirmDelay    time.Duration `yaml:"confirm_delay"`
	HaltOnRejection bool          `yaml:"halt_on_rejection"`

	TelegramToken       string        `yaml:"telegram_token"`
	TelegramChatID      string        `yaml:"telegram_chat_id"`
	TelegramProxy       string        `yaml:"telegram_proxy"`
	NotificationRetries int           `yaml:"notification_retries"`
	NotificationDelay   time.Duration `yaml:"notification_delay"`

	DBConnStr string `yaml:"db_conn_str"`
	DBMaxOpen int    `yaml:"db_max_open"`
	DBMaxIdle int    `yaml:"db_max_idle"`

	LogFile string `yaml:"log_file"`
	Debug   bool   `yaml:"debug"`
}

// MustLoadConfig loads the configuration from the command line and exits on error.
func MustLoadConfig() Config {
	cfg, err := Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Config | %v", err)
	}
	return cfg
}

// Load builds the configuration from, in increasing priority: flag defaults,
// the YAML file given with -config, and flags set explicitly on the command
// line. Secrets left empty are read from the environment, after loading the
// optional .env file.
func Load(args []string) (Config, error) {
	var cfg Config
	var configFile, envFile string

	fs := flag.NewFlagSet("ema-trader", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&configFile, "config", "", "Path to YAML config file")
	fs.StringVar(&envFile, "env-file", ".env", "Path to .env file with secrets")
	fs.StringVar(&cfg.Exchange, "exchange", "binance", "Exchange: binance or wallex or alpaca")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "Override the exchange REST base URL")
	fs.BoolVar(&cfg.Paper, "paper", false, "Fill orders locally at the last close instead of sending them")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Log orders without sending them and advance the position")
	fs.StringVar(&cfg.Symbol, "symbol", "BTC/USDC", "Trading symbol")
	fs.StringVar(&cfg.QuoteAsset, "quote-asset", "", "Asset shown in the startup balance line (default: quote of symbol)")
	fs.StringVar(&cfg.Timeframe, "timeframe", "1m", "Candle timeframe")
	fs.IntVar(&cfg.ShortPeriod, "short-period", 2, "Short EMA period")
	fs.IntVar(&cfg.LongPeriod, "long-period", 3, "Long EMA period")
	fs.TextVar(&cfg.TradeAmount, "amount", decimal.RequireFromString("0.1"), "Order quantity in base asset")
	fs.DurationVar(&cfg.SleepInterval, "interval", 5*time.Second, "Delay between iterations")
	fs.IntVar(&cfg.CandleLimit, "limit", 100, "Number of candles fetched per iteration")
	fs.BoolVar(&cfg.ConfirmOrders, "confirm-orders", false, "Advance the position only once the order is filled")
	fs.IntVar(&cfg.ConfirmAttempts, "confirm-attempts", 5, "Order status checks before giving up")
	fs.DurationVar(&cfg.ConfirmDelay, "confirm-delay", 2*time.Second, "Delay between order status checks")
	fs.BoolVar(&cfg.HaltOnRejection, "halt-on-rejection", false, "Stop when an order is rejected")
	fs.StringVar(&cfg.TelegramToken, "telegram-token", "", "Telegram bot token for notifications")
	fs.StringVar(&cfg.TelegramChatID, "telegram-chat", "", "Telegram chat ID for notifications")
	fs.StringVar(&cfg.TelegramProxy, "telegram-proxy", "", "Proxy URL for the Telegram API")
	fs.IntVar(&cfg.NotificationRetries, "notification-retries", 3, "Number of notification send attempts")
	fs.DurationVar(&cfg.NotificationDelay, "notification-delay", 5*time.Second, "Delay between notification retries")
	fs.StringVar(&cfg.DBConnStr, "db-conn-str", "", "Postgres connection string (empty: in-memory journal)")
	fs.IntVar(&cfg.DBMaxOpen, "db-max-open", 10, "Max open database connections")
	fs.IntVar(&cfg.DBMaxIdle, "db-max-idle", 5, "Max idle database connections")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Also write JSON logs to this file")
	fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
		// explicit flags win over the file
		if err := fs.Parse(args); err != nil {
			return cfg, err
		}
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load env file: %w", err)
	}
	applyEnv(&cfg)

	cfg.Exchange = strings.ToLower(cfg.Exchange)
	if cfg.QuoteAsset == "" {
		_, cfg.QuoteAsset = market.SplitSymbol(cfg.Symbol)
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv fills empty secrets from the environment. EXCHANGE_API_KEY and
// EXCHANGE_API_SECRET apply to any exchange; the exchange specific names are
// the ones each venue documents.
func applyEnv(cfg *Config) {
	keyVars := []string{"EXCHANGE_API_KEY"}
	secretVars := []string{"EXCHANGE_API_SECRET"}
	switch strings.ToLower(cfg.Exchange) {
	case "binance":
		keyVars = append(keyVars, "BINANCE_API_KEY")
		secretVars = append(secretVars, "BINANCE_API_SECRET")
	case "wallex":
		keyVars = append(keyVars, "WALLEX_API_KEY")
	case "alpaca":
		keyVars = append(keyVars, "APCA_API_KEY_ID")
		secretVars = append(secretVars, "APCA_API_SECRET_KEY")
	}

	setFromEnv(&cfg.APIKey, keyVars...)
	setFromEnv(&cfg.APISecret, secretVars...)
	setFromEnv(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	setFromEnv(&cfg.TelegramChatID, "TELEGRAM_CHAT_ID")
	setFromEnv(&cfg.DBConnStr, "DB_CONN_STR")
}

func setFromEnv(dst *string, names ...string) {
	if *dst != "" {
		return
	}
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			return
		}
	}
}

func validate(cfg Config) error {
	if !slices.Contains(Exchanges, cfg.Exchange) {
		return fmt.Errorf("unsupported exchange: %s (supported: %s)", cfg.Exchange, strings.Join(Exchanges, ", "))
	}
	if base, quote := market.SplitSymbol(cfg.Symbol); base == "" || quote == "" {
		return fmt.Errorf("symbol must look like BASE/QUOTE, got %q", cfg.Symbol)
	}
	if !tfutils.IsValidTimeframe(cfg.Timeframe) {
		return fmt.Errorf("unsupported timeframe: %s (supported: %s)", cfg.Timeframe, strings.Join(tfutils.GetSupportedTimeframes(), ", "))
	}
	if cfg.ShortPeriod < 1 {
		return fmt.Errorf("short-period must be >= 1")
	}
	if cfg.ShortPeriod >= cfg.LongPeriod {
		return fmt.Errorf("short-period (%d) must be less than long-period (%d)", cfg.ShortPeriod, cfg.LongPeriod)
	}
	if !cfg.TradeAmount.IsPositive() {
		return fmt.Errorf("amount must be > 0")
	}
	if cfg.SleepInterval <= 0 {
		return fmt.Errorf("interval must be > 0")
	}
	if cfg.CandleLimit < 2 {
		return fmt.Errorf("limit must be >= 2")
	}
	if cfg.ConfirmOrders && cfg.ConfirmAttempts < 1 {
		return fmt.Errorf("confirm-attempts must be >= 1")
	}
	if cfg.ConfirmDelay < 0 {
		return fmt.Errorf("confirm-delay must be >= 0")
	}
	if (cfg.TelegramToken == "") != (cfg.TelegramChatID == "") {
		return fmt.Errorf("telegram-token and telegram-chat must be set together")
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/ema-trader/internal/config"
	"github.com/amirphl/ema-trader/internal/db"
	"github.com/amirphl/ema-trader/internal/db/conf"
	"github.com/amirphl/ema-trader/internal/exchange"
	"github.com/amirphl/ema-trader/internal/executor"
	"github.com/amirphl/ema-trader/internal/livetrading"
	"github.com/amirphl/ema-trader/internal/notifier"
	"github.com/amirphl/ema-trader/internal/position"
	"github.com/amirphl/ema-trader/internal/strategy"
	"github.com/amirphl/ema-trader/internal/utils"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoadConfig()

	logger, err := utils.NewLogger(cfg.LogFile, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger.Sugar()); err != nil {
		logger.Sugar().Errorf("Main | %v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.SugaredLogger) error {
	log.Infof("Main | Starting EMA trader on %s %s %s (short=%d long=%d amount=%s)",
		cfg.Exchange, cfg.Symbol, cfg.Timeframe, cfg.ShortPeriod, cfg.LongPeriod, cfg.TradeAmount)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			log.Infof("Main | Received signal %v, shutting down...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	storage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer storage.Close()

	n, err := buildNotifier(cfg)
	if err != nil {
		return err
	}

	ex, err := buildExchange(cfg, log)
	if err != nil {
		return err
	}

	if err := logBalance(ctx, cfg, ex, log); err != nil {
		return err
	}

	strat, err := strategy.NewEMACrossover(cfg.Symbol, cfg.Timeframe, cfg.ShortPeriod, cfg.LongPeriod)
	if err != nil {
		return err
	}

	clock := utils.RealClock{}
	exec := executor.New(executor.Config{
		Symbol:          cfg.Symbol,
		Quantity:        cfg.TradeAmount,
		ConfirmOrders:   cfg.ConfirmOrders,
		ConfirmAttempts: cfg.ConfirmAttempts,
		ConfirmDelay:    cfg.ConfirmDelay,
		DryRun:          cfg.DryRun,
	}, ex, storage, n, log, clock)

	trader := livetrading.New(livetrading.Config{
		Interval:        cfg.SleepInterval,
		CandleLimit:     cfg.CandleLimit,
		HaltOnRejection: cfg.HaltOnRejection,
	}, ex, strat, exec, storage, n, log, clock)

	// The position always starts flat; the journal is never read back.
	if err := trader.Run(ctx, position.Flat); err != nil {
		return err
	}
	log.Infof("Main | Shutdown complete, %s", trader.Tracker())
	return nil
}

func openStorage(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (db.Storage, error) {
	if cfg.DBConnStr == "" {
		log.Infof("Main | No database configured, journaling in memory")
		return db.NewMemory(), nil
	}

	dbConfig, err := conf.NewConfig(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle)
	if err != nil {
		return nil, fmt.Errorf("failed to create DB config: %w", err)
	}
	storage, err := db.New(*dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		storage.Close()
		return nil, err
	}
	log.Infof("Main | Connected to Postgres journal")
	return storage, nil
}

func buildNotifier(cfg config.Config) (notifier.Notifier, error) {
	if cfg.TelegramToken == "" {
		return notifier.Noop{}, nil
	}
	return notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, cfg.TelegramProxy, cfg.NotificationRetries, cfg.NotificationDelay)
}

func buildExchange(cfg config.Config, log *zap.SugaredLogger) (exchange.Exchange, error) {
	var ex exchange.Exchange
	switch cfg.Exchange {
	case "binance":
		ex = exchange.NewBinanceExchange(cfg.APIKey, cfg.APISecret, cfg.BaseURL)
	case "wallex":
		ex = exchange.NewWallexExchange(cfg.APIKey)
	case "alpaca":
		ex = exchange.NewAlpacaExchange(cfg.APIKey, cfg.APISecret, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported exchange: %s", cfg.Exchange)
	}

	if cfg.Paper {
		log.Infof("Main | Paper trading: orders fill locally at the last close")
		return exchange.NewPaperExchange(ex, log), nil
	}
	return ex, nil
}

// logBalance prints the quote asset balance. Only authentication style
// failures stop the trader, and not when orders never reach the exchange.
func logBalance(ctx context.Context, cfg config.Config, ex exchange.Exchange, log *zap.SugaredLogger) error {
	balances, err := exchange.FetchBalancesWithRetry(ctx, ex, 3, 2*time.Second)
	if err != nil {
		if exchange.KindOf(err) == exchange.KindFatal && ctx.Err() == nil && !cfg.Paper && !cfg.DryRun {
			return fmt.Errorf("fetch balances: %w", err)
		}
		log.Warnf("Main | Could not fetch balances: %v", err)
		return nil
	}
	bal, ok := balances[cfg.QuoteAsset]
	if !ok {
		log.Infof("Main | %s balance: 0", cfg.QuoteAsset)
		return nil
	}
	log.Infof("Main | %s balance: %s available, %s locked", cfg.QuoteAsset, bal.Available, bal.Locked)
	return nil
}

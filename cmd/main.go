// Command mbtrader runs a rule-based trading bot against the Mercado
// Bitcoin exchange API. It polls the market price, compares it with the
// weighted average purchase price of the account and fires buy/sell
// market orders when configured thresholds are crossed.
//
// Usage:
//
//	mbtrader --config config.yaml
//	mbtrader --pair BTC-BRL --pollinterval 60s
//
// Required environment variables (a .env file is honored):
//
//	MB_API_KEY, MB_API_SECRET
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/brenofariasdasilva/mbtrader/config"
	"github.com/brenofariasdasilva/mbtrader/internal"
	"github.com/brenofariasdasilva/mbtrader/internal/clients"
	"github.com/brenofariasdasilva/mbtrader/internal/display"
	"github.com/brenofariasdasilva/mbtrader/internal/domain"
	"github.com/brenofariasdasilva/mbtrader/internal/services/account"
	"github.com/brenofariasdasilva/mbtrader/internal/services/pricer"
	"github.com/brenofariasdasilva/mbtrader/internal/services/strategy"
	"github.com/brenofariasdasilva/mbtrader/internal/services/trader"
	"github.com/brenofariasdasilva/mbtrader/pkg/retrier"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	apiKey := os.Getenv("MB_API_KEY")
	apiSecret := os.Getenv("MB_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		log.Fatal("MB_API_KEY and MB_API_SECRET environment variables must be set")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	auth := clients.NewAuthenticator(apiKey, apiSecret, cfg.BaseURL, logger)
	client := clients.NewMercadoBitcoinClient(auth, cfg.BaseURL, logger,
		clients.WithTimeout(cfg.RequestTimeout),
		clients.WithMaxRetries(cfg.MaxRetries),
		clients.WithRetryDelay(cfg.RetryDelay))

	tracker := account.NewTracker(client)
	mbPricer := pricer.NewMercadoBitcoinPricer(client)
	mbTrader := trader.NewMercadoBitcoinTrader(client, tracker, cfg.Pair, logger)

	ruleStrategy, err := strategy.NewRuleStrategy(logger, cfg.Pair, cfg.Rules,
		mbPricer, mbTrader, tracker, cfg.MinOrderFiat, cfg.MinOrderQty)
	if err != nil {
		log.Fatal(err)
	}

	bot := internal.NewTradingBot(cfg.Pair, cfg.PollInterval, ruleStrategy, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printStartupSummary(ctx, cfg, tracker, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("trading bot stopped with error", zap.Error(err))
	}

	logger.Info("trading bot stopped")
}

// printStartupSummary fetches the account snapshot and renders the banner.
// Transient API failures at boot are retried; a summary failure is logged
// but never prevents the loop from starting.
func printStartupSummary(ctx context.Context, cfg config.Config, tracker *account.Tracker, logger *zap.Logger) {
	r := retrier.New(
		retrier.WithMaxRetries(cfg.MaxRetries),
		retrier.WithFixedDelay(cfg.RetryDelay))

	balances, err := retrier.DoWithData(r, ctx, func(ctx context.Context) ([]domain.Balance, error) {
		return tracker.Balances(ctx)
	})
	if err != nil {
		logger.Warn("failed to fetch balances for startup summary", zap.Error(err))
	}

	summary := display.Summary{
		Pair:     cfg.Pair,
		Balances: balances,
		Rules:    cfg.Rules,
	}

	average, err := tracker.AveragePurchasePrice(ctx, cfg.Pair)
	switch {
	case err == nil:
		summary.AveragePrice = average
		summary.HasAverage = true
	case errors.Is(err, domain.ErrNoPurchaseHistory):
	default:
		logger.Warn("failed to compute average price for startup summary", zap.Error(err))
	}

	fmt.Println(display.Render(summary))
}

package internal

import (
	"context"
	"time"

	"github.com/brenofariasdasilva/mbtrader/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TradingStrategy is one evaluation step of the decision engine.
type TradingStrategy interface {
	Trade(ctx context.Context) (*domain.TradeEvent, error)
}

// TradingBot drives the polling loop, running one strictly sequential
// cycle per tick. A cycle runs to completion before the next begins, and
// a stop request takes effect at the next iteration boundary.
type TradingBot struct {
	pair         domain.Pair
	pollInterval time.Duration
	strategy     TradingStrategy
	logger       *zap.Logger
}

// NewTradingBot creates a bot polling the pair at the given interval.
func NewTradingBot(pair domain.Pair, pollInterval time.Duration, strategy TradingStrategy, logger *zap.Logger) *TradingBot {
	return &TradingBot{
		pair:         pair,
		pollInterval: pollInterval,
		strategy:     strategy,
		logger:       logger.With(zap.String("pair", pair.String())),
	}
}

// Run executes cycles until the context is cancelled. A single cycle's
// failure never terminates the loop.
func (b *TradingBot) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	b.logger.Info("starting trading loop", zap.Duration("poll_interval", b.pollInterval))

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stop requested, leaving trading loop")
			return ctx.Err()
		case <-ticker.C:
			b.RunCycle(ctx)
		}
	}
}

// RunCycle performs one evaluation cycle and logs its outcome. Exposed so
// tests can drive cycles synchronously without real delays.
func (b *TradingBot) RunCycle(ctx context.Context) {
	event, err := b.strategy.Trade(ctx)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoPurchaseHistory):
			b.logger.Debug("no purchase history yet, skipping evaluation")
		case errors.Is(err, domain.ErrBelowMinimumOrder), errors.Is(err, domain.ErrInsufficientBalance):
			b.logger.Warn("rule fired but execution rejected", zap.Error(err))
		default:
			b.logger.Error("cycle failed", zap.Error(err))
		}
		return
	}

	if event != nil {
		b.logger.Info("trade executed",
			zap.String("rule", event.Rule),
			zap.String("side", string(event.Side)),
			zap.String("amount", event.Amount.String()),
			zap.String("price", event.Price.String()),
			zap.String("order_id", event.OrderID),
			zap.String("intent_id", event.IntentID))
	}
}

// Package trader executes market orders through the exchange client.
package trader

import (
	"context"

	"github.com/brenofariasdasilva/mbtrader/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type orderAPI interface {
	PlaceOrder(ctx context.Context, accountID, symbol string, req domain.OrderRequest) (domain.PlacedOrder, error)
	CancelOrder(ctx context.Context, accountID, symbol, orderID string) error
}

type accountResolver interface {
	AccountID(ctx context.Context) (string, error)
}

// MercadoBitcoinTrader places market orders. Buys are specified by total
// cost in quote currency, sells by base quantity, matching how the
// exchange expects market orders on each side.
type MercadoBitcoinTrader struct {
	client  orderAPI
	account accountResolver
	pair    domain.Pair
	logger  *zap.Logger
}

func NewMercadoBitcoinTrader(client orderAPI, account accountResolver, pair domain.Pair, logger *zap.Logger) *MercadoBitcoinTrader {
	return &MercadoBitcoinTrader{
		client:  client,
		account: account,
		pair:    pair,
		logger:  logger.With(zap.String("pair", pair.String())),
	}
}

// Buy places a market buy for the given total cost in quote currency and
// returns the exchange order id.
func (t *MercadoBitcoinTrader) Buy(ctx context.Context, cost decimal.Decimal) (string, error) {
	accountID, err := t.account.AccountID(ctx)
	if err != nil {
		return "", err
	}

	placed, err := t.client.PlaceOrder(ctx, accountID, t.pair.Symbol(), domain.OrderRequest{
		Side: domain.SideBuy,
		Type: domain.OrderTypeMarket,
		Cost: &cost,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to place market buy for %s %s", cost.String(), t.pair.Quote)
	}

	t.logger.Info("buy order placed",
		zap.String("order_id", placed.OrderID),
		zap.String("cost", cost.String()))

	return placed.OrderID, nil
}

// Sell places a market sell for the given base quantity and returns the
// exchange order id.
func (t *MercadoBitcoinTrader) Sell(ctx context.Context, qty decimal.Decimal) (string, error) {
	accountID, err := t.account.AccountID(ctx)
	if err != nil {
		return "", err
	}

	placed, err := t.client.PlaceOrder(ctx, accountID, t.pair.Symbol(), domain.OrderRequest{
		Side: domain.SideSell,
		Type: domain.OrderTypeMarket,
		Qty:  &qty,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to place market sell for %s %s", qty.String(), t.pair.Base)
	}

	t.logger.Info("sell order placed",
		zap.String("order_id", placed.OrderID),
		zap.String("qty", qty.String()))

	return placed.OrderID, nil
}

// Cancel cancels an open order.
func (t *MercadoBitcoinTrader) Cancel(ctx context.Context, orderID string) error {
	accountID, err := t.account.AccountID(ctx)
	if err != nil {
		return err
	}

	if err := t.client.CancelOrder(ctx, accountID, t.pair.Symbol(), orderID); err != nil {
		return errors.Wrapf(err, "failed to cancel order %s", orderID)
	}

	t.logger.Info("order cancelled", zap.String("order_id", orderID))

	return nil
}

// Package pricer provides current market prices.
package pricer

import (
	"context"

	"github.com/brenofariasdasilva/mbtrader/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type tickerAPI interface {
	Ticker(ctx context.Context, symbol string) (domain.Ticker, error)
}

// MercadoBitcoinPricer reads the last-trade price from the public ticker
// endpoint. No authentication is involved.
type MercadoBitcoinPricer struct {
	client tickerAPI
}

func NewMercadoBitcoinPricer(client tickerAPI) *MercadoBitcoinPricer {
	return &MercadoBitcoinPricer{client: client}
}

// GetPrice returns the last traded price for the pair.
func (p *MercadoBitcoinPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	ticker, err := p.client.Ticker(ctx, pair.Symbol())
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "failed to fetch ticker for %s", pair.String())
	}

	if ticker.Last.IsZero() {
		return decimal.Zero, errors.Errorf("exchange returned empty last price for %s", pair.String())
	}

	return ticker.Last, nil
}

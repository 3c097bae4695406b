// Package account derives balances and the weighted average purchase price
// from data fetched through the API client.
package account

import (
	"context"

	"github.com/brenofariasdasilva/mbtrader/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// api is what the tracker needs from the exchange client.
type api interface {
	Accounts(ctx context.Context) ([]domain.Account, error)
	Balances(ctx context.Context, accountID string) ([]domain.Balance, error)
	AllOrders(ctx context.Context, accountID string) (domain.OrderList, error)
	Positions(ctx context.Context, accountID string) ([]domain.Position, error)
}

// Tracker resolves the session account and computes position figures.
// Balances are fetched fresh on every call; only the account id is cached.
type Tracker struct {
	client    api
	accountID string
}

// NewTracker creates a Tracker over the given client.
func NewTracker(client api) *Tracker {
	return &Tracker{client: client}
}

// AccountID returns the session account id, resolving and caching the
// first account returned by the exchange on first use.
func (t *Tracker) AccountID(ctx context.Context) (string, error) {
	if t.accountID != "" {
		return t.accountID, nil
	}

	accounts, err := t.client.Accounts(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to list accounts")
	}
	if len(accounts) == 0 {
		return "", errors.New("exchange returned no accounts")
	}

	t.accountID = accounts[0].ID

	return t.accountID, nil
}

// SetAccountID overrides the session account.
func (t *Tracker) SetAccountID(accountID string) {
	t.accountID = accountID
}

// Balances fetches all balances of the session account.
func (t *Tracker) Balances(ctx context.Context) ([]domain.Balance, error) {
	accountID, err := t.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return t.client.Balances(ctx, accountID)
}

// AvailableBalance returns the available amount for the symbol. An absent
// symbol yields zero, not an error: a zero balance is a valid state.
func (t *Tracker) AvailableBalance(ctx context.Context, symbol string) (decimal.Decimal, error) {
	balance, err := t.balance(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Available, nil
}

// TotalBalance returns the total amount for the symbol, zero when absent.
func (t *Tracker) TotalBalance(ctx context.Context, symbol string) (decimal.Decimal, error) {
	balance, err := t.balance(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Total, nil
}

func (t *Tracker) balance(ctx context.Context, symbol string) (domain.Balance, error) {
	balances, err := t.Balances(ctx)
	if err != nil {
		return domain.Balance{}, err
	}
	for _, b := range balances {
		if b.Symbol == symbol {
			return b, nil
		}
	}
	return domain.Balance{Symbol: symbol}, nil
}

// AveragePurchasePrice computes the quantity-weighted mean price across all
// buy-side executions of the pair in the account's order history. It is a
// full recomputation on every call.
//
// Returns domain.ErrNoPurchaseHistory when no qualifying execution exists.
func (t *Tracker) AveragePurchasePrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	accountID, err := t.AccountID(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	history, err := t.client.AllOrders(ctx, accountID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to fetch order history")
	}

	totalCost := decimal.Zero
	totalQty := decimal.Zero

	for _, order := range history.Items {
		if order.Instrument != pair.Symbol() || order.Side != domain.SideBuy {
			continue
		}
		for _, execution := range order.Executions {
			totalCost = totalCost.Add(execution.Price.Mul(execution.Qty))
			totalQty = totalQty.Add(execution.Qty)
		}
	}

	if totalQty.IsZero() {
		return decimal.Zero, domain.ErrNoPurchaseHistory
	}

	return totalCost.Div(totalQty), nil
}

// Positions fetches the open positions of the session account.
func (t *Tracker) Positions(ctx context.Context) ([]domain.Position, error) {
	accountID, err := t.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return t.client.Positions(ctx, accountID)
}

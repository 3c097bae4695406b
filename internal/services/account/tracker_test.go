package account

import (
	"context"
	"testing"

	"github.com/brenofariasdasilva/mbtrader/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a hand-rolled stub of the client surface the tracker uses.
type fakeAPI struct {
	accounts      []domain.Account
	accountsErr   error
	accountsCalls int
	balances      []domain.Balance
	balancesErr   error
	orders        domain.OrderList
	ordersErr     error
	positions     []domain.Position
}

func (f *fakeAPI) Accounts(ctx context.Context) ([]domain.Account, error) {
	f.accountsCalls++
	return f.accounts, f.accountsErr
}

func (f *fakeAPI) Balances(ctx context.Context, accountID string) ([]domain.Balance, error) {
	return f.balances, f.balancesErr
}

func (f *fakeAPI) AllOrders(ctx context.Context, accountID string) (domain.OrderList, error) {
	return f.orders, f.ordersErr
}

func (f *fakeAPI) Positions(ctx context.Context, accountID string) ([]domain.Position, error) {
	return f.positions, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTracker_AccountID(t *testing.T) {
	t.Run("resolves first account once and caches it", func(t *testing.T) {
		api := &fakeAPI{accounts: []domain.Account{{ID: "acc-1"}, {ID: "acc-2"}}}
		tracker := NewTracker(api)

		id, err := tracker.AccountID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "acc-1", id)

		id, err = tracker.AccountID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "acc-1", id)
		assert.Equal(t, 1, api.accountsCalls)
	})

	t.Run("fails when exchange returns no accounts", func(t *testing.T) {
		tracker := NewTracker(&fakeAPI{})
		_, err := tracker.AccountID(context.Background())
		require.Error(t, err)
	})

	t.Run("override skips resolution", func(t *testing.T) {
		api := &fakeAPI{}
		tracker := NewTracker(api)
		tracker.SetAccountID("acc-override")

		id, err := tracker.AccountID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "acc-override", id)
		assert.Zero(t, api.accountsCalls)
	})
}

func TestTracker_Balances(t *testing.T) {
	api := &fakeAPI{
		accounts: []domain.Account{{ID: "acc-1"}},
		balances: []domain.Balance{
			{Symbol: "BRL", Available: dec("1000.50"), Total: dec("1200")},
			{Symbol: "BTC", Available: dec("0.5"), Total: dec("0.75")},
		},
	}
	tracker := NewTracker(api)
	ctx := context.Background()

	t.Run("available balance for known symbol", func(t *testing.T) {
		available, err := tracker.AvailableBalance(ctx, "BRL")
		require.NoError(t, err)
		assert.True(t, available.Equal(dec("1000.50")))
	})

	t.Run("total balance for known symbol", func(t *testing.T) {
		total, err := tracker.TotalBalance(ctx, "BTC")
		require.NoError(t, err)
		assert.True(t, total.Equal(dec("0.75")))
	})

	t.Run("absent symbol yields zero, not an error", func(t *testing.T) {
		available, err := tracker.AvailableBalance(ctx, "ETH")
		require.NoError(t, err)
		assert.True(t, available.IsZero())

		total, err := tracker.TotalBalance(ctx, "ETH")
		require.NoError(t, err)
		assert.True(t, total.IsZero())
	})
}

func TestTracker_AveragePurchasePrice(t *testing.T) {
	pair := domain.Pair{Base: "BTC", Quote: "BRL"}

	t.Run("quantity-weighted mean across orders and fills", func(t *testing.T) {
		api := &fakeAPI{
			accounts: []domain.Account{{ID: "acc-1"}},
			orders: domain.OrderList{Items: []domain.Order{
				{
					Instrument: "BTC-BRL",
					Side:       domain.SideBuy,
					Executions: []domain.Execution{
						{Price: dec("10000"), Qty: dec("1")},
						{Price: dec("20000"), Qty: dec("1")},
					},
				},
				{
					Instrument: "BTC-BRL",
					Side:       domain.SideBuy,
					Executions: []domain.Execution{
						{Price: dec("40000"), Qty: dec("2")},
					},
				},
			}},
		}
		tracker := NewTracker(api)

		average, err := tracker.AveragePurchasePrice(context.Background(), pair)
		require.NoError(t, err)
		// (10000 + 20000 + 80000) / 4
		assert.True(t, average.Equal(dec("27500")), "got %s", average.String())
	})

	t.Run("ignores sells and other instruments", func(t *testing.T) {
		api := &fakeAPI{
			accounts: []domain.Account{{ID: "acc-1"}},
			orders: domain.OrderList{Items: []domain.Order{
				{
					Instrument: "BTC-BRL",
					Side:       domain.SideSell,
					Executions: []domain.Execution{{Price: dec("99999"), Qty: dec("5")}},
				},
				{
					Instrument: "ETH-BRL",
					Side:       domain.SideBuy,
					Executions: []domain.Execution{{Price: dec("11111"), Qty: dec("5")}},
				},
				{
					Instrument: "BTC-BRL",
					Side:       domain.SideBuy,
					Executions: []domain.Execution{{Price: dec("30000"), Qty: dec("0.5")}},
				},
			}},
		}
		tracker := NewTracker(api)

		average, err := tracker.AveragePurchasePrice(context.Background(), pair)
		require.NoError(t, err)
		assert.True(t, average.Equal(dec("30000")))
	})

	t.Run("no qualifying fills reports unavailable, never divides by zero", func(t *testing.T) {
		api := &fakeAPI{
			accounts: []domain.Account{{ID: "acc-1"}},
			orders: domain.OrderList{Items: []domain.Order{
				{Instrument: "BTC-BRL", Side: domain.SideBuy}, // order without fills
			}},
		}
		tracker := NewTracker(api)

		_, err := tracker.AveragePurchasePrice(context.Background(), pair)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNoPurchaseHistory))
	})

	t.Run("propagates history fetch failure", func(t *testing.T) {
		api := &fakeAPI{
			accounts:  []domain.Account{{ID: "acc-1"}},
			ordersErr: errors.New("boom"),
		}
		tracker := NewTracker(api)

		_, err := tracker.AveragePurchasePrice(context.Background(), pair)
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrNoPurchaseHistory))
	})
}

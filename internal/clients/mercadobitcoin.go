package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brenofariasdasilva/mbtrader/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
)

// authProvider is what the client needs from the Authenticator.
type authProvider interface {
	AuthHeader(ctx context.Context) (string, error)
	Authenticate(ctx context.Context) error
	Invalidate()
}

// MercadoBitcoinClient wraps the exchange REST API with retry and
// token-refresh logic. All endpoint bindings are thin path/method mappings
// over the single Request primitive and carry no retry logic of their own.
type MercadoBitcoinClient struct {
	baseURL    string
	auth       authProvider
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// ClientOption configures the MercadoBitcoinClient.
type ClientOption func(*MercadoBitcoinClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *MercadoBitcoinClient) {
		c.httpClient.Timeout = d
	}
}

// WithMaxRetries sets the total number of attempts per request.
func WithMaxRetries(n int) ClientOption {
	return func(c *MercadoBitcoinClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the fixed delay between attempts.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *MercadoBitcoinClient) {
		c.retryDelay = d
	}
}

// NewMercadoBitcoinClient creates a client over the given authenticator.
func NewMercadoBitcoinClient(auth authProvider, baseURL string, logger *zap.Logger, opts ...ClientOption) *MercadoBitcoinClient {
	c := &MercadoBitcoinClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request issues one API call with the client's retry policy and returns
// the raw JSON body of a 200 response.
//
// A 401 on an authenticated request forces exactly one re-authentication
// and at most one retried request before surfacing an AuthError. Any other
// non-200 status or transport failure is retried up to maxRetries total
// attempts with a fixed delay, then surfaced as an APIError carrying the
// last observed status and body.
//
// Order placement is not idempotent at this layer: a retried POST after a
// timeout may duplicate an order on the exchange side.
func (c *MercadoBitcoinClient) Request(ctx context.Context, method, path string, query url.Values, body any, authenticated bool) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
	}

	reauthenticated := false

	var lastErr error
	var lastStatus int
	var lastBody string

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		req, err := c.newRequest(ctx, method, path, query, payload, authenticated)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			lastStatus = 0
			c.logger.Warn("request failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			lastStatus = 0
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return respBody, nil

		case resp.StatusCode == http.StatusUnauthorized && authenticated:
			if reauthenticated {
				return nil, &domain.AuthError{Reason: "request unauthorized after token refresh"}
			}
			reauthenticated = true
			c.auth.Invalidate()
			if err := c.auth.Authenticate(ctx); err != nil {
				return nil, err
			}
			// the retry with the fresh token does not consume a
			// regular retry attempt
			attempt--
			continue

		default:
			lastErr = nil
			lastStatus = resp.StatusCode
			lastBody = string(respBody)
			c.logger.Warn("request returned non-200 status",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1))
		}
	}

	return nil, apiError(lastStatus, lastBody, lastErr)
}

func (c *MercadoBitcoinClient) newRequest(ctx context.Context, method, path string, query url.Values, payload []byte, authenticated bool) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u = u + "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s %s request", method, path)
	}
	req.Header.Set("Content-Type", "application/json")

	if authenticated {
		header, err := c.auth.AuthHeader(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", header)
	}

	return req, nil
}

func apiError(status int, body string, err error) *domain.APIError {
	switch {
	case status >= 500:
		return &domain.APIError{Kind: domain.APIErrorServer, Status: status, Body: body}
	case status >= 400:
		return &domain.APIError{Kind: domain.APIErrorClient, Status: status, Body: body}
	default:
		return &domain.APIError{Kind: domain.APIErrorNetwork, Err: err}
	}
}

// Accounts lists the accounts available to the credentials.
func (c *MercadoBitcoinClient) Accounts(ctx context.Context) ([]domain.Account, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/accounts", nil, nil, true)
	if err != nil {
		return nil, err
	}
	var accounts []domain.Account
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, errors.Wrap(err, "failed to decode accounts")
	}
	return accounts, nil
}

// Balances lists per-symbol balances of the account.
func (c *MercadoBitcoinClient) Balances(ctx context.Context, accountID string) ([]domain.Balance, error) {
	raw, err := c.Request(ctx, http.MethodGet, fmt.Sprintf("/accounts/%s/balances", accountID), nil, nil, true)
	if err != nil {
		return nil, err
	}
	var balances []domain.Balance
	if err := json.Unmarshal(raw, &balances); err != nil {
		return nil, errors.Wrap(err, "failed to decode balances")
	}
	return balances, nil
}

// Ticker fetches the public ticker for a symbol. Unauthenticated.
func (c *MercadoBitcoinClient) Ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	raw, err := c.Request(ctx, http.MethodGet, fmt.Sprintf("/%s/ticker", symbol), nil, nil, false)
	if err != nil {
		return domain.Ticker{}, err
	}
	var ticker domain.Ticker
	if err := json.Unmarshal(raw, &ticker); err != nil {
		return domain.Ticker{}, errors.Wrap(err, "failed to decode ticker")
	}
	return ticker, nil
}

// Tickers fetches public tickers for all symbols. Unauthenticated.
func (c *MercadoBitcoinClient) Tickers(ctx context.Context) ([]domain.Ticker, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/tickers", nil, nil, false)
	if err != nil {
		return nil, err
	}
	var tickers []domain.Ticker
	if err := json.Unmarshal(raw, &tickers); err != nil {
		return nil, errors.Wrap(err, "failed to decode tickers")
	}
	return tickers, nil
}

// Orderbook fetches the public order book for a symbol. Unauthenticated.
func (c *MercadoBitcoinClient) Orderbook(ctx context.Context, symbol string) (domain.Orderbook, error) {
	raw, err := c.Request(ctx, http.MethodGet, fmt.Sprintf("/%s/orderbook", symbol), nil, nil, false)
	if err != nil {
		return domain.Orderbook{}, err
	}
	var book domain.Orderbook
	if err := json.Unmarshal(raw, &book); err != nil {
		return domain.Orderbook{}, errors.Wrap(err, "failed to decode orderbook")
	}
	return book, nil
}

// Orders lists the account's orders for one symbol.
func (c *MercadoBitcoinClient) Orders(ctx context.Context, accountID, symbol string) ([]domain.Order, error) {
	raw, err := c.Request(ctx, http.MethodGet, fmt.Sprintf("/accounts/%s/%s/orders", accountID, symbol), nil, nil, true)
	if err != nil {
		return nil, err
	}
	var orders []domain.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, errors.Wrap(err, "failed to decode orders")
	}
	return orders, nil
}

// AllOrders lists the account's full order history across symbols.
func (c *MercadoBitcoinClient) AllOrders(ctx context.Context, accountID string) (domain.OrderList, error) {
	raw, err := c.Request(ctx, http.MethodGet, fmt.Sprintf("/accounts/%s/orders", accountID), nil, nil, true)
	if err != nil {
		return domain.OrderList{}, err
	}
	var list domain.OrderList
	if err := json.Unmarshal(raw, &list); err != nil {
		return domain.OrderList{}, errors.Wrap(err, "failed to decode order list")
	}
	return list, nil
}

// PlaceOrder submits an order for the symbol.
func (c *MercadoBitcoinClient) PlaceOrder(ctx context.Context, accountID, symbol string, req domain.OrderRequest) (domain.PlacedOrder, error) {
	raw, err := c.Request(ctx, http.MethodPost, fmt.Sprintf("/accounts/%s/%s/orders", accountID, symbol), nil, req, true)
	if err != nil {
		return domain.PlacedOrder{}, err
	}
	var placed domain.PlacedOrder
	if err := json.Unmarshal(raw, &placed); err != nil {
		return domain.PlacedOrder{}, errors.Wrap(err, "failed to decode order placement response")
	}
	return placed, nil
}

// CancelOrder cancels an open order.
func (c *MercadoBitcoinClient) CancelOrder(ctx context.Context, accountID, symbol, orderID string) error {
	_, err := c.Request(ctx, http.MethodDelete, fmt.Sprintf("/accounts/%s/%s/orders/%s", accountID, symbol, orderID), nil, nil, true)
	return err
}

// Positions lists the account's open positions.
func (c *MercadoBitcoinClient) Positions(ctx context.Context, accountID string) ([]domain.Position, error) {
	raw, err := c.Request(ctx, http.MethodGet, fmt.Sprintf("/accounts/%s/positions", accountID), nil, nil, true)
	if err != nil {
		return nil, err
	}
	var positions []domain.Position
	if err := json.Unmarshal(raw, &positions); err != nil {
		return nil, errors.Wrap(err, "failed to decode positions")
	}
	return positions, nil
}

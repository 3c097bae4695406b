package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors surfaced by the tracker and the decision engine.
var (
	// ErrNoPurchaseHistory means the order history contains no filled
	// buy-side executions for the pair, so no average price exists.
	ErrNoPurchaseHistory = errors.New("no purchase history for pair")

	// ErrInsufficientBalance means a rule fired but the available balance
	// is zero or negative.
	ErrInsufficientBalance = errors.New("insufficient available balance")

	// ErrBelowMinimumOrder means the computed order size is under the
	// exchange minimum. The rule stays armed.
	ErrBelowMinimumOrder = errors.New("order below exchange minimum")
)

// AuthError indicates the token exchange failed or credentials were
// rejected. Fatal to the current cycle's authenticated calls, never to
// the process.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIErrorKind classifies a failed API call after retries were exhausted.
type APIErrorKind string

const (
	// APIErrorNetwork transport-level failure, no HTTP status observed.
	APIErrorNetwork APIErrorKind = "network"
	// APIErrorServer 5xx from the exchange.
	APIErrorServer APIErrorKind = "server"
	// APIErrorClient non-401 4xx from the exchange.
	APIErrorClient APIErrorKind = "client"
)

// APIError carries the last observed status and body of a failed request.
type APIError struct {
	Kind   APIErrorKind
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api %s error: status %d: %s", e.Kind, e.Status, e.Body)
	}
	return fmt.Sprintf("api %s error: %v", e.Kind, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

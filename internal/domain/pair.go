// Package domain defines core data structures used throughout the trading bot.
package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Pair cryptocurrency trading pair.
type Pair struct {
	// Base crypto currency symbol, e.g. BTC.
	Base string
	// Quote fiat currency symbol, e.g. BRL.
	Quote string
}

// Symbol returns the exchange instrument representation, e.g. "BTC-BRL".
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s-%s", p.Base, p.Quote)
}

// String returns the string representation.
func (p Pair) String() string {
	return p.Symbol()
}

// PairFromString parses a pair from its "BASE-QUOTE" form.
func PairFromString(s string) (Pair, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, errors.Errorf("invalid pair %q, expected format BASE-QUOTE", s)
	}
	return Pair{Base: parts[0], Quote: parts[1]}, nil
}

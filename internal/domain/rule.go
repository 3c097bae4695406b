package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rule is a single trading rule: when the current price deviates from the
// average purchase price by at least Threshold, commit Allocation of the
// available balance on the given side.
type Rule struct {
	// Name identifies the rule, e.g. "buy_1".
	Name string
	// Threshold minimal percent deviation from average price, as a
	// fraction (0.10 means 10%).
	Threshold decimal.Decimal
	// Allocation fraction of the available balance to commit.
	Allocation decimal.Decimal
	// Side buy rules spend fiat, sell rules spend crypto.
	Side Side
}

// Key returns the duplicate-suppression key for this rule at the given
// average price. The price is truncated to its integer bucket so the rule
// re-arms only on a meaningful cost-basis change.
func (r Rule) Key(averagePrice decimal.Decimal) string {
	return fmt.Sprintf("%s_%d", r.Name, averagePrice.Floor().IntPart())
}

// RuleAction is the ephemeral result of a rule evaluation.
type RuleAction struct {
	Rule   Rule
	Key    string
	Reason string
}

// DefaultRules returns the built-in rule table. Buy rules are ordered by
// descending threshold so the most aggressive matching rule wins a cycle.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "sell", Threshold: decimal.NewFromFloat(1.00), Allocation: decimal.NewFromFloat(0.20), Side: SideSell},
		{Name: "buy_3", Threshold: decimal.NewFromFloat(0.25), Allocation: decimal.NewFromFloat(0.50), Side: SideBuy},
		{Name: "buy_2", Threshold: decimal.NewFromFloat(0.20), Allocation: decimal.NewFromFloat(0.20), Side: SideBuy},
		{Name: "buy_1", Threshold: decimal.NewFromFloat(0.10), Allocation: decimal.NewFromFloat(0.10), Side: SideBuy},
	}
}

// PercentageDiff returns (current - reference) / reference as a fraction.
// A zero reference yields zero instead of a division error.
func PercentageDiff(current, reference decimal.Decimal) decimal.Decimal {
	if reference.IsZero() {
		return decimal.Zero
	}
	return current.Sub(reference).Div(reference)
}
